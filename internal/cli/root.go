// Package cli wires the tellerbot commands.
package cli

import (
	"path/filepath"

	"github.com/soyeahso/tellerbot/internal/config"
	"github.com/soyeahso/tellerbot/internal/logging"
	"github.com/soyeahso/tellerbot/internal/store"
	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	logLevel string

	// loaded at init time
	paths config.Paths
	log   *logging.Logger
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tellerbot",
		Short: "tellerbot — Telegram teller for cash movements and receipts",
		Long:  "tellerbot guides Telegram users through cash-movement fee quotes and receipt document downloads.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			paths, err = config.ResolvePaths()
			if err != nil {
				return err
			}
			if cfgFile != "" {
				paths.Config = cfgFile
			}
			level := logLevel
			if level == "" {
				level = "info"
			}
			log = logging.New(nil, level)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.tellerbot/config.yaml)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error, fatal, silent)")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newSeedCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}

// loadConfig reads the config file, applies the log-level override and
// re-levels the package logger.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(paths.Config)
	if err != nil {
		return cfg, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	log = logging.New(nil, cfg.Logging.Level)
	return cfg, nil
}

// openDB opens the SQLite store at the configured path, defaulting to the
// data directory.
func openDB(cfg config.Config) (*store.DB, error) {
	dbPath := cfg.Database.Path
	if dbPath == "" {
		if err := paths.EnsureDirs(); err != nil {
			return nil, err
		}
		dbPath = filepath.Join(paths.Data, "tellerbot.db")
	}
	return store.Open(dbPath, log)
}
