package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/teemow/meetslots/internal/slots"
)

// EnvOrgPassword supplies the organization password when --password is not set.
const EnvOrgPassword = "MEETSLOTS_ORG_PASSWORD"

func newDurationCmd() *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "duration",
		Short: "Manage the slot duration of individual days",
	}
	cmd.PersistentFlags().StringVar(&password, "password", "", "Organization password (default $"+EnvOrgPassword+")")

	authorize := func(s *services) error {
		if password == "" {
			password = os.Getenv(EnvOrgPassword)
		}
		return s.booking.AuthorizeOrg(password)
	}

	setCmd := &cobra.Command{
		Use:   "set DATE MINUTES",
		Short: "Set the slot duration for a day",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := slots.ParseDate(args[0])
			if err != nil {
				return fmt.Errorf("invalid date %q: %w", args[0], err)
			}
			minutes, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid minutes %q: %w", args[1], err)
			}
			return withServices(cmd, func(ctx context.Context, s *services) error {
				if err := authorize(s); err != nil {
					return err
				}
				if err := s.booking.SetSlotDuration(ctx, day, minutes); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Slot duration for %s set to %d minutes.\n", day, minutes)
				return nil
			})
		},
	}

	getCmd := &cobra.Command{
		Use:   "get DATE",
		Short: "Show the slot duration for a day",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := slots.ParseDate(args[0])
			if err != nil {
				return fmt.Errorf("invalid date %q: %w", args[0], err)
			}
			return withServices(cmd, func(ctx context.Context, s *services) error {
				minutes, err := s.booking.SlotDuration(ctx, day)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d minutes\n", day, minutes)
				return nil
			})
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List every configured slot duration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd, func(ctx context.Context, s *services) error {
				if err := authorize(s); err != nil {
					return err
				}
				all, err := s.booking.SlotDurations(ctx)
				if err != nil {
					return err
				}
				printDurations(cmd.OutOrStdout(), s.cfg.Slots.DefaultSlotDuration, all)
				return nil
			})
		},
	}

	cmd.AddCommand(setCmd, getCmd, listCmd)
	return cmd
}
