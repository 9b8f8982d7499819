package main

import (
	"errors"
	"fmt"

	"github.com/petermazzocco/go-notes-project/internal/config"
	"github.com/spf13/cobra"
)

var errNoDSN = errors.New("DSN is required")

func newMigrateCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.DSN == "" {
				return errNoDSN
			}
			log := newLogger(cfg)
			if _, err := openRepository(cmd, cfg, log); err != nil {
				return err
			}
			log.WithField("driver", cfg.DBDriver).Info("schema migrated")
			return nil
		},
	}
}

func newSeedCmd(cfg *config.Config) *cobra.Command {
	var perUser int

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Add generated notes for every existing user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.DSN == "" {
				return errNoDSN
			}
			if perUser <= 0 {
				return fmt.Errorf("--notes must be positive, got %d", perUser)
			}
			log := newLogger(cfg)
			repo, err := openRepository(cmd, cfg, log)
			if err != nil {
				return err
			}
			n, err := repo.SeedNotes(cmd.Context(), perUser)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %d notes\n", n)
			return nil
		},
	}

	cmd.Flags().IntVar(&perUser, "notes", 10, "notes to create per user")
	return cmd
}

func newCreateUserCmd(cfg *config.Config) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "create-user USERNAME",
		Short: "Create a user without going through OAuth",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.DSN == "" {
				return errNoDSN
			}
			repo, err := openRepository(cmd, cfg, newLogger(cfg))
			if err != nil {
				return err
			}
			user, err := repo.CreateUser(cmd.Context(), args[0], name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created user %s (%s)\n", user.Username, user.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "display name")
	return cmd
}
