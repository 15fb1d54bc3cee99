package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"rosterbot/internal/core/domain"
	"rosterbot/internal/core/ports"
	"rosterbot/internal/core/services"
	"rosterbot/internal/infrastructure/repositories"

	"github.com/spf13/cobra"
)

func newRosterCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "roster",
		Short: "Inspect or edit the persisted roster",
	}

	cmd.AddCommand(
		newRosterShowCmd(opts),
		newRosterMutateCmd(opts, "grant", true),
		newRosterMutateCmd(opts, "revoke", false),
	)

	return cmd
}

func newRosterShowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print every roster set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRoster(cmd.Context(), opts, func(roster ports.RosterService) error {
				printRoster(cmd.OutOrStdout(), roster, time.Now())
				return nil
			})
		},
	}
}

func newRosterMutateCmd(opts *rootOptions, use string, add bool) *cobra.Command {
	short := "Remove a user from a roster set"
	if add {
		short = "Add a user to a roster set"
	}

	return &cobra.Command{
		Use:   use + " <junior|senior|management> <user-id>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			group, err := domain.ParseGroup(args[0])
			if err != nil {
				return err
			}
			id, err := domain.ParseUserID(args[1])
			if err != nil {
				return err
			}

			return withRoster(cmd.Context(), opts, func(roster ports.RosterService) error {
				outcome, err := mutate(cmd.Context(), roster, group, add, id)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s: %s\n", use, group, id, outcome)
				return nil
			})
		},
	}
}

func withRoster(ctx context.Context, opts *rootOptions, fn func(ports.RosterService) error) error {
	cfg, err := opts.load()
	if err != nil {
		return err
	}
	log := newLogger(cfg)
	defer log.Sync()

	factory, err := repositories.NewRepositoryFactory(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer factory.Close()

	roster := services.NewRosterService(factory.SnapshotStore(), log)
	if err := roster.Load(ctx); err != nil {
		return err
	}
	return fn(roster)
}

func mutate(ctx context.Context, roster ports.RosterService, group domain.Group, add bool, id domain.UserID) (domain.Outcome, error) {
	switch group {
	case domain.GroupJunior:
		if add {
			return roster.AddJunior(ctx, id, domain.UnknownProfile())
		}
		_, outcome, err := roster.RemoveJunior(ctx, id)
		return outcome, err
	case domain.GroupSenior:
		if add {
			return roster.AddSenior(ctx, id)
		}
		return roster.RemoveSenior(ctx, id)
	default:
		if add {
			return roster.AddManagement(ctx, id)
		}
		return roster.RemoveManagement(ctx, id)
	}
}

func printRoster(w io.Writer, roster ports.RosterService, now time.Time) {
	_, _ = fmt.Fprintln(w, "Junior admins on duty:")
	for i, session := range roster.Juniors() {
		_, _ = fmt.Fprintf(w, "  %s\n", services.JuniorListEntry(i+1, session, now))
	}
	printMembers(w, "Senior admins:", roster.Seniors())
	printMembers(w, "Management:", roster.Management())
}

func printMembers(w io.Writer, title string, ids []domain.UserID) {
	_, _ = fmt.Fprintln(w, title)
	for _, id := range ids {
		_, _ = fmt.Fprintf(w, "  %s\n", id)
	}
}
