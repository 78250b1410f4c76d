package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lazypower/instinct/internal/config"
	"github.com/lazypower/instinct/internal/evolve"
	"github.com/lazypower/instinct/internal/instincts"
	"github.com/lazypower/instinct/internal/logging"
	"github.com/lazypower/instinct/internal/observe"
	"github.com/lazypower/instinct/internal/store"
)

var (
	flagConfig   string
	flagHome     string
	flagLogLevel string

	cfg    config.Config
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "instinct",
	Short: "Manage learned instincts and evolve their confidence",
	Long: "Instinct keeps a directory of markdown instincts whose confidence rises " +
		"and decays with the tool observations recorded by Claude Code hooks.",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default <home>/instinct.toml)")
	rootCmd.PersistentFlags().StringVar(&flagHome, "home", "", "homunculus directory (default ~/.claude/homunculus)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level: debug, info, warn, error")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(evolveCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(hookCmd)
}

// setup loads configuration and builds the logger before any command runs.
func setup(cmd *cobra.Command, args []string) error {
	loaded, err := config.LoadHome(flagConfig, flagHome)
	if err != nil {
		return err
	}
	if flagLogLevel != "" {
		loaded.Log.Level = flagLogLevel
	}

	l, err := logging.New(loaded.Log.Level, loaded.Log.Format)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}

	cfg = loaded
	logger = l
	return nil
}

func instinctsDir() instincts.Dir {
	return instincts.Dir{Path: cfg.InstinctsDir()}
}

func observationLog() observe.Log {
	return observe.Log{Path: cfg.ObservationsFile()}
}

// openHistory opens the history database. History is advisory: when it is
// disabled or cannot be opened the caller carries on without it.
func openHistory() *store.DB {
	if !cfg.Database.Enabled {
		return nil
	}
	db, err := store.Open(cfg.DBPath())
	if err != nil {
		logger.Warn("history unavailable, continuing without it",
			zap.String("path", cfg.DBPath()), zap.Error(err))
		return nil
	}
	return db
}

func newEngine(db *store.DB) *evolve.Engine {
	eng := evolve.New(instinctsDir(), observationLog(), logger)
	eng.Workers = cfg.Evolve.Workers
	if db != nil {
		eng.SetHistory(db)
	}
	return eng
}
