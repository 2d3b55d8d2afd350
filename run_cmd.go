package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kokorotts/kokoro/internal/cache"
	"github.com/kokorotts/kokoro/internal/pipeline"
	"github.com/kokorotts/kokoro/internal/queue"
	"github.com/kokorotts/kokoro/internal/settings"
)

var (
	watchMode bool
	tuiMode   bool

	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Convert everything in the queue",
		Long: paragraph(
			fmt.Sprintf("\nWork through the queue, writing one audio file per document. %s keeps going, converting new files as they appear.", keyword("--watch")),
		),
		Args: cobra.NoArgs,
		RunE: executeRun,
	}
)

func executeRun(*cobra.Command, []string) error {
	store, cfg, q, err := loadState()
	if err != nil {
		return err
	}

	if tuiMode {
		return runTUI(store, cfg, q)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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

	if watchMode {
		watcher := pipeline.NewWatcher(watchDir(), q)
		go func() {
			if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("watcher stopped", "error", err)
			}
		}()
	}

	// First ^C stops the run cleanly; the second one cancels outright.
	interrupts := make(chan os.Signal, 2)
	signal.Notify(interrupts, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupts)

	for {
		if _, ok := q.NextPending(); !ok {
			if !watchMode {
				break
			}
			if stopped := waitForWork(ctx, q, interrupts, cancel); stopped {
				break
			}
		}

		runner := pipeline.New(engine, q, c, runnerConfig(cfg))
		if err := runner.Start(ctx); err != nil {
			return err
		}
		go relayInterrupts(ctx, runner, interrupts, cancel)

		var runErr error
		for event := range runner.Events() {
			logEvent(event)
			if event.Kind == pipeline.EventRunFinished {
				runErr = event.Err
			}
		}
		runner.Wait()

		if err := saveState(store, cfg, q); err != nil {
			log.Error("could not persist queue", "error", err)
		}
		if runErr != nil {
			return runErr
		}
		if ctx.Err() != nil || !watchMode {
			break
		}
	}

	return saveState(store, cfg, q)
}

// relayInterrupts turns the first interrupt into a clean stop and the
// second into a hard cancellation.
func relayInterrupts(ctx context.Context, runner *pipeline.Runner, interrupts chan os.Signal, cancel context.CancelFunc) {
	stopping := false
	for {
		select {
		case <-interrupts:
			if stopping {
				cancel()
				return
			}
			log.Info("stopping after the current chunk (^C again to abort)")
			runner.Stop()
			stopping = true
		case <-ctx.Done():
			return
		}
	}
}

func logEvent(event pipeline.Event) {
	switch event.Kind {
	case pipeline.EventJobUpdated:
		if event.Progress.TotalChunks > 0 {
			log.Debug("progress",
				"file", event.Job.Name(),
				"chunk", fmt.Sprintf("%d/%d", event.Progress.Chunk, event.Progress.TotalChunks),
				"audio", event.Progress.Synthesized.Round(time.Second))
		}
	case pipeline.EventStateChanged:
		log.Debug("state", "state", event.State)
	case pipeline.EventRunFinished:
		if event.Err != nil {
			log.Error("run failed", "error", event.Err)
		}
	}
}

// waitForWork blocks in watch mode until the queue has a pending job.
// It reports true when the run should end instead.
func waitForWork(ctx context.Context, q *queue.Manager, interrupts chan os.Signal, cancel context.CancelFunc) bool {
	log.Info("queue drained, waiting for new documents")
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return true
		case <-interrupts:
			cancel()
			return true
		case <-ticker.C:
			if _, ok := q.NextPending(); ok {
				return false
			}
		}
	}
}

func openCache() *cache.Cache {
	cacheCfg := cache.DefaultConfig()
	if dir := viper.GetString("cache.dir"); dir != "" {
		cacheCfg.Dir = dir
	}
	c, err := cache.New(cacheCfg)
	if err != nil {
		log.Warn("chunk cache disabled", "error", err)
		return nil
	}
	return c
}

func runnerConfig(cfg settings.Settings) pipeline.Config {
	return pipeline.Config{
		OutputDir:   cfg.OutputDir,
		Format:      cfg.Format,
		OptimizeMP3: cfg.OptimizeMP3,
		Voice:       cfg.Voice,
		Speed:       cfg.Speed,
	}
}

// watchDir is where watch mode looks for new documents.
func watchDir() string {
	if dir := viper.GetString("watch_dir"); dir != "" {
		return dir
	}
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}

func init() {
	runCmd.Flags().BoolVarP(&watchMode, "watch", "w", false, "keep running, converting new files as they appear")
	runCmd.Flags().BoolVarP(&tuiMode, "tui", "t", false, "run with the interactive queue view")
}
