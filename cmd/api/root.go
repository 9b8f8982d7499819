package main

import (
	"github.com/petermazzocco/go-notes-project/internal/config"
	"github.com/petermazzocco/go-notes-project/internal/logging"
	"github.com/petermazzocco/go-notes-project/internal/repository"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newRootCmd(cfg *config.Config) *cobra.Command {
	serve := newServeCmd(cfg)

	cmd := &cobra.Command{
		Use:           "notesd",
		Short:         "Notes server with profile and note image uploads",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve.RunE,
	}

	cmd.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format (text, json)")

	cmd.AddCommand(
		serve,
		newMigrateCmd(cfg),
		newSeedCmd(cfg),
		newCreateUserCmd(cfg),
	)
	return cmd
}

// openRepository connects and migrates, which every command needs.
func openRepository(cmd *cobra.Command, cfg *config.Config, log logrus.FieldLogger) (*repository.Repository, error) {
	db, err := repository.Open(cfg.DBDriver, cfg.DSN, log)
	if err != nil {
		return nil, err
	}
	repo := repository.New(db)
	if err := repo.Migrate(cmd.Context()); err != nil {
		return nil, err
	}
	return repo, nil
}

func newLogger(cfg *config.Config) *logrus.Logger {
	return logging.New(cfg.LogLevel, cfg.LogFormat)
}
