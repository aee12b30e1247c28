package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newInviteCmd() *cobra.Command {
	var to string

	cmd := &cobra.Command{
		Use:   "invite",
		Short: "Email the booking page link to a candidate",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd, func(ctx context.Context, s *services) error {
				if err := s.booking.Invite(ctx, to); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Invitation sent to %s\n", to)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&to, "to", "", "Recipient email address")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}
