// Package main provides the entry point for the Kokoro CLI application.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kokorotts/kokoro/internal/extract"
	"github.com/kokorotts/kokoro/internal/queue"
	"github.com/kokorotts/kokoro/internal/settings"
	"github.com/kokorotts/kokoro/internal/tts"
	"github.com/kokorotts/kokoro/internal/tts/engines"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile string

	rootCmd = &cobra.Command{
		Use:   "kokoro [path...]",
		Short: "Turn documents into audiobooks, offline",
		Long: paragraph(
			fmt.Sprintf("\nQueue up PDFs, markdown, or plain text and %s with a local neural voice.", keyword("read them aloud")),
		),
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		Args:             cobra.ArbitraryArgs,
		RunE:             execute,
	}
)

// execute queues any path arguments and opens the TUI over the saved
// queue. Headless conversion lives under the run command.
func execute(_ *cobra.Command, args []string) error {
	store, cfg, q, err := loadState()
	if err != nil {
		return err
	}

	for _, job := range addSources(q, args, os.Stdin) {
		log.Debug("queued", "file", job.Name())
	}
	if err := saveState(store, cfg, q); err != nil {
		return err
	}

	return runTUI(store, cfg, q)
}

// addSources queues the given arguments. Directories are walked
// recursively for documents, and "-" drains stdin into a temporary
// text file so piped text can be queued like any other source. Bad
// paths are logged and skipped so one of them does not block the rest.
func addSources(q *queue.Manager, args []string, stdin io.Reader) []queue.Job {
	var added []queue.Job
	for _, arg := range args {
		paths, err := expandSource(arg, stdin)
		if err != nil {
			log.Warn("not queued", "path", arg, "error", err)
			continue
		}
		for _, path := range paths {
			job, err := q.Add(path)
			if err != nil {
				log.Warn("not queued", "file", path, "error", err)
				continue
			}
			added = append(added, job)
		}
	}
	return added
}

// expandSource resolves one path argument into document paths.
func expandSource(arg string, stdin io.Reader) ([]string, error) {
	if arg == "-" {
		path, err := stdinToFile(stdin)
		if err != nil {
			return nil, err
		}
		return []string{path}, nil
	}

	info, err := os.Stat(arg)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{arg}, nil
	}

	docs, err := extract.FindDocuments(arg)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("no documents found under %s", arg)
	}
	return docs, nil
}

// stdinToFile captures stdin into a temp .txt file for the queue.
func stdinToFile(stdin io.Reader) (string, error) {
	f, err := os.CreateTemp("", "kokoro-stdin-*.txt")
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, stdin); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return f.Name(), nil
}

// loadState restores the settings file and the persisted queue, then
// overlays any config, env, or flag values.
func loadState() (*settings.Store, settings.Settings, *queue.Manager, error) {
	store, err := settings.NewStore()
	if err != nil {
		return nil, settings.Settings{}, nil, err
	}

	cfg, err := store.Load()
	if err != nil {
		// A corrupt settings file falls back to defaults; losing the
		// queue beats refusing to start.
		log.Warn("could not load settings", "error", err)
	}
	overlayConfig(&cfg)

	q := queue.NewManager()
	q.Restore(cfg.Queue)
	return store, cfg, q, nil
}

// overlayConfig applies viper-managed values (yaml config, KOKORO_*
// env, flags) on top of the persisted settings.
func overlayConfig(cfg *settings.Settings) {
	if v := viper.GetString("engine"); v != "" {
		cfg.Engine = v
	}
	if v := viper.GetString("voice"); v != "" {
		cfg.Voice = v
	}
	if v := viper.GetFloat64("speed"); v > 0 {
		cfg.Speed = v
	}
	if v := viper.GetString("output"); v != "" {
		cfg.OutputDir = v
	}
	if v := viper.GetString("format"); v != "" {
		cfg.Format = v
	}
	if viper.IsSet("optimize_mp3") {
		cfg.OptimizeMP3 = viper.GetBool("optimize_mp3")
	}
}

// saveState writes settings with the current queue snapshot.
func saveState(store *settings.Store, cfg settings.Settings, q *queue.Manager) error {
	cfg.Queue = q.Jobs()
	if err := store.Save(cfg); err != nil {
		return fmt.Errorf("could not save settings: %w", err)
	}
	return nil
}

// buildEngine constructs the configured TTS engine.
func buildEngine(cfg settings.Settings) (tts.Engine, error) {
	modelDir := viper.GetString("model_dir")
	if modelDir == "" {
		scope := gap.NewScope(gap.User, "kokoro")
		if dirs, err := scope.DataDirs(); err == nil && len(dirs) > 0 {
			modelDir = filepath.Join(dirs[0], "models", cfg.Engine)
		}
	}

	return engines.New(tts.EngineType(cfg.Engine), tts.EngineConfig{
		Voice:      cfg.Voice,
		Speed:      cfg.Speed,
		ModelDir:   modelDir,
		Binary:     viper.GetString("piper.binary"),
	})
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	rootCmd.PersistentFlags().StringP("engine", "e", "", "TTS engine (sherpa or piper)")
	rootCmd.PersistentFlags().StringP("voice", "v", "", "voice to synthesize with")
	rootCmd.PersistentFlags().Float64P("speed", "s", 0, "speech rate multiplier")
	rootCmd.PersistentFlags().StringP("output", "o", "", "output directory for audio files")
	rootCmd.PersistentFlags().StringP("format", "f", "", "output format (mp3 or wav)")
	rootCmd.PersistentFlags().Bool("optimize", false, "re-encode MP3s for fast seeking")

	_ = viper.BindPFlag("engine", rootCmd.PersistentFlags().Lookup("engine"))
	_ = viper.BindPFlag("voice", rootCmd.PersistentFlags().Lookup("voice"))
	_ = viper.BindPFlag("speed", rootCmd.PersistentFlags().Lookup("speed"))
	_ = viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))
	_ = viper.BindPFlag("format", rootCmd.PersistentFlags().Lookup("format"))
	_ = viper.BindPFlag("optimize_mp3", rootCmd.PersistentFlags().Lookup("optimize"))

	rootCmd.AddCommand(runCmd, queueCmd, voicesCmd, configCmd, manCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, "kokoro")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "kokoro")}, dirs...)
	}

	if c := os.Getenv("KOKORO_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("kokoro")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("kokoro")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", viper.ConfigFileUsed())
		return
	}

	if viper.ConfigFileUsed() == "" {
		configFile = filepath.Join(dirs[0], "kokoro.yml")
	}
	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
	}
}
