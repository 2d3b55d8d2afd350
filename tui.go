package main

import (
	"context"
	"fmt"

	"github.com/caarlos0/env/v11"

	"github.com/kokorotts/kokoro/internal/pipeline"
	"github.com/kokorotts/kokoro/internal/queue"
	"github.com/kokorotts/kokoro/internal/settings"
	"github.com/kokorotts/kokoro/ui"
)

// runTUI opens the interactive queue view over the persisted queue and
// saves the queue state when the user quits.
func runTUI(store *settings.Store, cfg settings.Settings, q *queue.Manager) error {
	uiCfg, err := env.ParseAs[ui.Config]()
	if err != nil {
		return fmt.Errorf("error parsing config: %w", err)
	}

	// Logging would scribble over the alternate screen.
	muteLog()

	c := openCache()
	if c != nil {
		defer c.Close()
	}

	engine, err := buildEngine(cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	if cfg.Voice != "" {
		if err := engine.SetVoice(cfg.Voice); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	uiCfg.Queue = q
	uiCfg.Engine = cfg.Engine
	uiCfg.Voice = cfg.Voice
	uiCfg.StartRun = func() (*pipeline.Runner, error) {
		runner := pipeline.New(engine, q, c, runnerConfig(cfg))
		if err := runner.Start(ctx); err != nil {
			return nil, err
		}
		return runner, nil
	}

	if _, err := ui.NewProgram(uiCfg).Run(); err != nil {
		return fmt.Errorf("unable to run tui program: %w", err)
	}

	return saveState(store, cfg, q)
}
