package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kokorotts/kokoro/internal/audio"
)

const previewText = "The quick brown fox jumps over the lazy dog."

var (
	previewVoice bool

	voicesCmd = &cobra.Command{
		Use:   "voices",
		Short: "List available voices",
		Long:  paragraph(fmt.Sprintf("\nList the voices the configured engine can speak with. %s plays a short sample of the selected voice.", keyword("--preview"))),
		Args:  cobra.NoArgs,
		RunE:  executeVoices,
	}
)

func executeVoices(*cobra.Command, []string) error {
	_, cfg, _, err := loadState()
	if err != nil {
		return err
	}

	engine, err := buildEngine(cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	for _, v := range engine.Voices() {
		marker := "  "
		if v.ID == cfg.Voice {
			marker = keyword("* ")
		}
		line := fmt.Sprintf("%s%-14s %s", marker, v.ID, v.Name)
		if v.Language != "" {
			line += subtle(" (" + v.Language + ")")
		}
		fmt.Println(line)
	}

	if !previewVoice {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := engine.Load(ctx); err != nil {
		return fmt.Errorf("could not load engine for preview: %w", err)
	}
	if cfg.Voice != "" {
		if err := engine.SetVoice(cfg.Voice); err != nil {
			return err
		}
	}

	sample, err := engine.Synthesize(ctx, previewText)
	if err != nil {
		return fmt.Errorf("preview synthesis failed: %w", err)
	}
	return audio.Preview(ctx, sample)
}

func init() {
	voicesCmd.Flags().BoolVarP(&previewVoice, "preview", "p", false, "play a sample of the selected voice")
}
