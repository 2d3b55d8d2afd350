package tts

import (
	"regexp"
	"strings"
	"time"
	"unicode"
)

// DefaultMaxChunkChars is the default upper bound on chunk length.
// Local engines degrade (and piper slows markedly) on very long inputs,
// so documents are packed into chunks below this size.
const DefaultMaxChunkChars = 600

// TextChunker splits extracted document text into synthesizable chunks.
// Sentences are detected first, then greedily packed so that no chunk
// exceeds the configured character limit. A sentence longer than the
// limit becomes its own oversized chunk rather than being cut mid-word.
type TextChunker struct {
	maxChars       int
	wordsPerMinute int

	numberRegex *regexp.Regexp
	punctRegex  *regexp.Regexp

	// Common abbreviations that don't end sentences.
	abbreviations map[string]bool
}

// NewTextChunker creates a chunker with the given chunk size limit.
// A non-positive limit selects DefaultMaxChunkChars.
func NewTextChunker(maxChars int) *TextChunker {
	if maxChars <= 0 {
		maxChars = DefaultMaxChunkChars
	}
	return &TextChunker{
		maxChars:       maxChars,
		wordsPerMinute: 150,
		numberRegex:    regexp.MustCompile(`\d+`),
		punctRegex:     regexp.MustCompile(`[,;:\-()]`),
		abbreviations:  makeAbbreviationMap(),
	}
}

// Split breaks text into chunks at sentence boundaries.
func (c *TextChunker) Split(text string) []Chunk {
	sentences := c.splitSentences(normalizeWhitespace(text))
	if len(sentences) == 0 {
		return nil
	}

	chunks := make([]Chunk, 0, len(sentences))
	var current strings.Builder

	flush := func() {
		s := strings.TrimSpace(current.String())
		current.Reset()
		if s == "" {
			return
		}
		chunks = append(chunks, Chunk{
			Index:    len(chunks),
			Text:     s,
			Estimate: c.EstimateDuration(s),
		})
	}

	for _, sentence := range sentences {
		if current.Len() > 0 && current.Len()+len(sentence)+1 > c.maxChars {
			flush()
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(sentence)
	}
	flush()

	return chunks
}

// EstimateDuration estimates the speaking duration for text. The base
// speaking rate is adjusted for numbers, punctuation pauses, and long
// words, capped at a 50% slowdown.
func (c *TextChunker) EstimateDuration(text string) time.Duration {
	words := len(strings.Fields(text))
	if words == 0 {
		words = 1
	}

	complexity := c.calculateComplexity(text)
	rate := float64(c.wordsPerMinute) * (1.0 - complexity*0.2)

	seconds := float64(words) * 60.0 / rate
	return time.Duration(seconds * float64(time.Second))
}

// splitSentences finds sentence boundaries in plain text.
func (c *TextChunker) splitSentences(text string) []string {
	runes := []rune(text)
	var sentences []string
	lastStart := 0

	appendSentence := func(start, end int) {
		s := strings.TrimSpace(string(runes[start:end]))
		if len(s) >= 2 {
			sentences = append(sentences, s)
		}
	}

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		if !c.isSentenceEnd(runes, i) {
			continue
		}

		// Collect trailing punctuation and closing quotes/brackets.
		end := i + 1
		for end < len(runes) && (runes[end] == '.' || runes[end] == '!' || runes[end] == '?') {
			end++
		}
		for end < len(runes) && isClosing(runes[end]) {
			end++
		}

		appendSentence(lastStart, end)

		for end < len(runes) && unicode.IsSpace(runes[end]) {
			end++
		}
		lastStart = end
		i = end - 1
	}

	if lastStart < len(runes) {
		appendSentence(lastStart, len(runes))
	}

	// Undelimited text is one sentence.
	if len(sentences) == 0 && len(strings.TrimSpace(text)) > 0 {
		sentences = append(sentences, strings.TrimSpace(text))
	}

	return sentences
}

// isSentenceEnd checks whether the punctuation at pos really terminates
// a sentence.
func (c *TextChunker) isSentenceEnd(runes []rune, pos int) bool {
	punct := runes[pos]

	if punct == '.' {
		// The word leading up to the period.
		start := pos - 1
		for start >= 0 && !unicode.IsSpace(runes[start]) {
			start--
		}
		word := strings.ToLower(string(runes[start+1 : pos+1]))
		bare := strings.TrimSuffix(word, ".")

		if c.abbreviations[bare] || c.abbreviations[word] {
			return false
		}
		// Multi-part abbreviations like "u.s." or "ph.d".
		if strings.Count(word, ".") > 1 {
			return false
		}

		// Decimal numbers.
		if pos > 0 && pos+1 < len(runes) &&
			unicode.IsDigit(runes[pos-1]) && unicode.IsDigit(runes[pos+1]) {
			return false
		}

		// Ellipsis.
		if pos+2 < len(runes) && runes[pos+1] == '.' && runes[pos+2] == '.' {
			return false
		}
	}

	// Skip closing quotes/brackets after the punctuation.
	next := pos + 1
	for next < len(runes) && isClosing(runes[next]) {
		next++
	}
	if next >= len(runes) {
		return true
	}
	if !unicode.IsSpace(runes[next]) {
		return false
	}

	for next < len(runes) && unicode.IsSpace(runes[next]) {
		next++
	}
	if next >= len(runes) {
		return true
	}

	// A following capital letter or digit is a typical sentence start.
	if unicode.IsUpper(runes[next]) || unicode.IsDigit(runes[next]) {
		return true
	}

	// Exclamation and question marks end sentences regardless of what
	// follows.
	return punct == '!' || punct == '?'
}

// calculateComplexity estimates text complexity for duration adjustment.
func (c *TextChunker) calculateComplexity(text string) float64 {
	complexity := 0.0

	complexity += float64(len(c.numberRegex.FindAllString(text, -1))) * 0.02
	complexity += float64(len(c.punctRegex.FindAllString(text, -1))) * 0.01

	words := strings.Fields(text)
	longWords := 0
	for _, w := range words {
		if len(w) > 10 {
			longWords++
		}
	}
	complexity += float64(longWords) / float64(len(words)+1) * 0.1

	if complexity > 0.5 {
		complexity = 0.5
	}
	return complexity
}

func isClosing(r rune) bool {
	return r == '"' || r == '\'' || r == ')' || r == ']' || r == '”' || r == '’'
}

// normalizeWhitespace collapses runs of whitespace, including the hard
// line breaks PDF extraction produces, into single spaces.
func normalizeWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// makeAbbreviationMap creates a map of common abbreviations.
func makeAbbreviationMap() map[string]bool {
	abbrevs := []string{
		"mr", "mrs", "ms", "dr", "prof", "sr", "jr",
		"ph.d", "m.d", "b.a", "m.a", "b.s",
		"llc", "inc", "ltd", "co", "corp",
		"i.e", "e.g", "etc", "vs", "cf", "al",
		"jan", "feb", "mar", "apr", "jun", "jul", "aug", "sep", "sept", "oct", "nov", "dec",
		"mon", "tue", "wed", "thu", "fri", "sat", "sun",
		"st", "rd", "ave", "blvd", "ln", "ct",
		"u.s", "u.k", "u.n", "e.u", "n.y", "l.a",
		"ft", "lbs", "oz", "kg", "km", "cm", "mm", "mi", "yd",
		"hr", "hrs", "min", "mins", "sec", "secs",
		"fig", "figs", "no", "nos", "vol", "vols", "pp", "pg", "ch", "sec", "eq", "ref", "refs",
	}

	m := make(map[string]bool)
	for _, a := range abbrevs {
		m[a] = true
		if !strings.Contains(a, ".") {
			m[a+"."] = true
		}
	}
	return m
}
