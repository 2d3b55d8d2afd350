package engines

import (
	"fmt"
	"strings"

	"github.com/kokorotts/kokoro/internal/tts"
)

// New constructs the engine named by cfg's type. The engine is not
// loaded; callers must Load it before synthesizing.
func New(engineType tts.EngineType, cfg tts.EngineConfig) (tts.Engine, error) {
	switch engineType {
	case tts.EngineSherpa:
		return NewSherpa(cfg), nil
	case tts.EnginePiper:
		return NewPiper(cfg), nil
	case tts.EngineMock:
		return NewMock(cfg), nil
	default:
		return nil, fmt.Errorf("%w: %q (valid: %s)",
			tts.ErrUnknownEngine, engineType, strings.Join(Names(), ", "))
	}
}

// Names lists the selectable engine names.
func Names() []string {
	return []string{
		string(tts.EngineSherpa),
		string(tts.EnginePiper),
	}
}
