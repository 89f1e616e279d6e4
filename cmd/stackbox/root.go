// Package main provides the stackbox command line: it sends widgets to
// stackboxd, controls it and browses the widget history.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/stackbox/internal/config"
	"github.com/jmylchreest/stackbox/internal/dbus"
	"github.com/jmylchreest/stackbox/internal/store"
)

// Build-time variables (set via ldflags)
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

var (
	cfg        *config.Config
	globalOpts struct {
		verbose     bool
		historyFile string
		configPath  string
		appName     string
	}
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "stackbox",
	Short: "Message boxes, big boxes and stacked small boxes for Linux desktops",
	Long: `stackbox talks to stackboxd, the widget daemon.

It raises message boxes, big boxes and small boxes, waits for message box
answers, closes widgets, mutes sounds and browses the widget history.

Running stackbox without a subcommand prints the daemon status.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogger()

		var err error
		cfg, err = config.LoadConfig(globalOpts.configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStatus(cmd, args)
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		var exit exitError
		if errors.As(err, &exit) {
			os.Exit(exit.code)
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func main() {
	Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&globalOpts.verbose, "verbose", "v", false,
		"Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&globalOpts.historyFile, "history-file", "",
		"Path to history file (default: ~/.local/share/stackbox/history.jsonl)")
	rootCmd.PersistentFlags().StringVar(&globalOpts.configPath, "config", "",
		"Path to config file (default: ~/.config/stackbox/config.toml)")
	rootCmd.PersistentFlags().StringVar(&globalOpts.appName, "app", "",
		"Application name sent with widgets (default from config)")
}

// setupLogger configures the global slog logger.
func setupLogger() {
	level := slog.LevelWarn
	if globalOpts.verbose {
		level = slog.LevelDebug
	}

	// stderr keeps stdout clean for output
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// newClient connects to stackboxd.
func newClient() (*dbus.Client, error) {
	app := globalOpts.appName
	if app == "" {
		app = cfg.Client.AppName
	}
	return dbus.NewClient(app)
}

// historyPath returns the history file in use.
func historyPath() (string, error) {
	if globalOpts.historyFile != "" {
		return globalOpts.historyFile, nil
	}
	return store.HistoryPath()
}

// openHistory loads the history file into a read-only store.
func openHistory() (*store.Store, string, error) {
	path, err := historyPath()
	if err != nil {
		return nil, "", fmt.Errorf("failed to get history path: %w", err)
	}
	records, err := store.ReadHistory(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read history: %w", err)
	}
	s := store.NewStore(nil)
	for _, r := range records {
		if err := s.Add(r); err != nil {
			return nil, "", err
		}
	}
	logger.Debug("history loaded", "path", path, "count", s.Count())
	return s, path, nil
}

// exitError carries a process exit code without an error message, for
// commands whose result is their exit status.
type exitError struct {
	code int
}

func (e exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}
