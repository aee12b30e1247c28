package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teemow/meetslots/internal/booking"
	"github.com/teemow/meetslots/internal/google"
)

func newProposeCmd() *cobra.Command {
	var (
		count   int
		account string
		book    int
		email   string
	)

	cmd := &cobra.Command{
		Use:   "propose",
		Short: "Propose the earliest free slots",
		Long: `Propose the earliest free slots starting two days from today. With --book N
the N-th proposal is booked in the organization calendar and the meeting
details are emailed to --email.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := google.ValidateAccountName(account); err != nil {
				return err
			}
			if book > 0 && email == "" {
				return fmt.Errorf("--email is required with --book")
			}
			if count <= 0 {
				return fmt.Errorf("--count must be positive")
			}

			return withServices(cmd, func(ctx context.Context, s *services) error {
				proposals, err := s.booking.Propose(ctx, account, count)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				printProposals(out, proposals)
				if book == 0 {
					return nil
				}
				if book > len(proposals) {
					return fmt.Errorf("--book %d is out of range, %d slots were proposed", book, len(proposals))
				}

				result, err := s.booking.AutoBook(ctx, account, email, proposals[book-1].Slot)
				if err != nil {
					return err
				}
				fmt.Fprintln(out)
				printBooking(out, result)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&count, "count", booking.DefaultProposalCount, "Number of slots to propose")
	cmd.Flags().StringVar(&account, "account", google.DefaultAccount, "Token account of the invitee's calendar")
	cmd.Flags().IntVar(&book, "book", 0, "Book the N-th proposed slot (1-based)")
	cmd.Flags().StringVar(&email, "email", "", "Invitee email address, required with --book")

	return cmd
}
