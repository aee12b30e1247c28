package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/teemow/meetslots/internal/google"
)

func newSlotsCmd() *cobra.Command {
	var (
		date    string
		account string
	)

	cmd := &cobra.Command{
		Use:   "slots",
		Short: "List free slots for a day",
		Long: `List the slots that are free in both the invitee's calendar and the
organization calendar on one day. The slot length is the duration configured
for that day.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := google.ValidateAccountName(account); err != nil {
				return err
			}
			return withServices(cmd, func(ctx context.Context, s *services) error {
				day, err := parseDayFlag(date, s.booking)
				if err != nil {
					return err
				}
				avail, err := s.booking.Availability(ctx, account, day)
				if err != nil {
					return err
				}
				printAvailability(cmd.OutOrStdout(), avail)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Day to search (YYYY-MM-DD, default today)")
	cmd.Flags().StringVar(&account, "account", google.DefaultAccount, "Token account of the invitee's calendar")

	return cmd
}
