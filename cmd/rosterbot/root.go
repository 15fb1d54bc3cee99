package main

import (
	"fmt"

	"rosterbot/pkg/config"
	"rosterbot/pkg/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const defaultConfigPath = "configs/config.yaml"

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "rosterbot",
		Short:         "Duty roster chat bot for a three-tier admin team",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", defaultConfigPath, "path to the YAML config file")

	rootCmd.AddCommand(
		newServeCmd(opts),
		newRosterCmd(opts),
		newBackupCmd(opts),
	)

	return rootCmd
}

func (o *rootOptions) load() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", o.configPath, err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *zap.SugaredLogger {
	return logger.New(cfg.Logging.Level, cfg.Logging.Format).Sugar()
}
