package main

import (
	"fmt"
	"sync"

	"rosterbot/internal/core/ports"
	"rosterbot/internal/core/services"
	backupinfra "rosterbot/internal/infrastructure/backup"
	"rosterbot/internal/infrastructure/repositories"
	"rosterbot/pkg/backup"
	"rosterbot/pkg/config"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const backupFormatVersion = "1"

func newBackupService(cfg *config.Config) (*backup.Service, error) {
	storage, err := backup.NewFileStorage(cfg.Backup.Dir)
	if err != nil {
		return nil, err
	}
	return backup.NewService(storage, backupFormatVersion), nil
}

func newBackupScheduler(cfg *config.Config, store ports.SnapshotStore, lock sync.Locker, log *zap.SugaredLogger) (*backupinfra.Scheduler, error) {
	service, err := newBackupService(cfg)
	if err != nil {
		return nil, err
	}
	return backupinfra.NewScheduler(service, store, backupinfra.Config{
		Interval: cfg.Backup.Interval,
		Keep:     cfg.Backup.Keep,
		Lock:     lock,
	}, log), nil
}

func newBackupCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Archive and restore the roster snapshots",
	}

	cmd.AddCommand(
		newBackupCreateCmd(opts),
		newBackupListCmd(opts),
		newBackupRestoreCmd(opts),
	)

	return cmd
}

func newBackupCreateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Write an archive of the current snapshots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			log := newLogger(cfg)
			defer log.Sync()

			factory, err := repositories.NewRepositoryFactory(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer factory.Close()

			scheduler, err := newBackupScheduler(cfg, factory.SnapshotStore(), nil, log)
			if err != nil {
				return err
			}
			name, err := scheduler.RunOnce(cmd.Context())
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), name)
			return nil
		},
	}
}

func newBackupListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List archives, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			service, err := newBackupService(cfg)
			if err != nil {
				return err
			}
			names, err := service.List(cmd.Context())
			if err != nil {
				return err
			}
			for _, name := range names {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

func newBackupRestoreCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <name>",
		Short: "Replace the stored snapshots with an archive (stop the bot first)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			log := newLogger(cfg)
			defer log.Sync()

			service, err := newBackupService(cfg)
			if err != nil {
				return err
			}
			factory, err := repositories.NewRepositoryFactory(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer factory.Close()

			keys, err := backupinfra.Restore(cmd.Context(), service, factory.SnapshotStore(), args[0])
			if err != nil {
				return err
			}

			// the restored records must decode
			roster := services.NewRosterService(factory.SnapshotStore(), log)
			if err := roster.Load(cmd.Context()); err != nil {
				return fmt.Errorf("restored snapshots do not load: %w", err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "restored %d snapshots from %s\n", len(keys), args[0])
			return nil
		},
	}
}
