package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/xtding233/storycore/internal/platform/config"
	"github.com/xtding233/storycore/internal/platform/logging"
)

// app carries what PersistentPreRunE loaded for the subcommands.
type app struct {
	cfg    config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	var logLevel string

	root := &cobra.Command{
		Use:          "storycore",
		Short:        "Narrative state engine: impacts, dice checks and event runs",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}
			logger, err := logging.New(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
			if err != nil {
				return err
			}
			slog.SetDefault(logger)
			a.cfg = cfg
			a.logger = logger
			return nil
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "override STORYCORE_LOG_LEVEL")

	root.AddCommand(
		newServeCmd(a),
		newApplyCmd(a),
		newCheckCmd(a),
		newOddsCmd(a),
	)
	return root
}
