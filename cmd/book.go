package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teemow/meetslots/internal/booking"
	"github.com/teemow/meetslots/internal/google"
	"github.com/teemow/meetslots/internal/slots"
)

func newBookCmd() *cobra.Command {
	var (
		date    string
		start   string
		summary string
		email   string
		account string
	)

	cmd := &cobra.Command{
		Use:   "book",
		Short: "Book a free slot as a Google Meet event",
		Long: `Book the slot starting at --start on --date. The meeting is created in
the organization calendar with a Google Meet link, added to the invitee's
calendar and the details are emailed to --email.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := google.ValidateAccountName(account); err != nil {
				return err
			}
			clock, err := slots.ParseClock(start)
			if err != nil {
				return fmt.Errorf("invalid --start %q: %w", start, err)
			}

			return withServices(cmd, func(ctx context.Context, s *services) error {
				day, err := slots.ParseDate(date)
				if err != nil {
					return fmt.Errorf("invalid --date %q: %w", date, err)
				}
				slot, err := s.booking.SlotAt(ctx, day, clock)
				if err != nil {
					return err
				}
				result, err := s.booking.Book(ctx, booking.BookRequest{
					Account:   account,
					UserEmail: email,
					Summary:   summary,
					Slot:      slot,
				})
				if err != nil {
					return err
				}
				printBooking(cmd.OutOrStdout(), result)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Day of the meeting (YYYY-MM-DD)")
	cmd.Flags().StringVar(&start, "start", "", "Start time of the slot (HH:MM)")
	cmd.Flags().StringVar(&summary, "summary", "", "Meeting title")
	cmd.Flags().StringVar(&email, "email", "", "Invitee email address")
	cmd.Flags().StringVar(&account, "account", google.DefaultAccount, "Token account of the invitee's calendar")
	_ = cmd.MarkFlagRequired("date")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("summary")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}
