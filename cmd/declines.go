package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/meetslots/internal/config"
	"github.com/teemow/meetslots/internal/declines"
)

func newDeclinesCmd() *cobra.Command {
	var (
		calendarID string
		logPath    string
		show       bool
	)

	cmd := &cobra.Command{
		Use:   "declines",
		Short: "Delete upcoming events that an attendee declined",
		Long: `Scan the organization calendar from tomorrow for three days and delete
every event with at least one declined attendee. Each declined attendee is
appended to a CSV log. With --show the log is printed and nothing is scanned.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if show {
				return showDeclineLog(cmd, logPath)
			}
			return withServices(cmd, func(ctx context.Context, s *services) error {
				if calendarID == "" {
					calendarID = s.cfg.OrgCalendarID
				}
				if logPath == "" {
					logPath = s.cfg.DeclinesLog
				}

				result, err := s.newScanner(logPath, nil).Scan(ctx, calendarID, time.Now())
				out := cmd.OutOrStdout()
				if result != nil {
					fmt.Fprintf(out, "Scanned %d events, deleted %d.\n", result.Scanned, len(result.Deleted))
					for _, id := range result.Failed {
						fmt.Fprintf(out, "  Failed to delete %s\n", id)
					}
					if len(result.Records) > 0 {
						fmt.Fprintf(out, "Logged %d declined attendees to %s\n", len(result.Records), logPath)
					}
				}
				return err
			})
		},
	}

	cmd.Flags().StringVar(&calendarID, "calendar", "", "Calendar to scan (default the organization calendar)")
	cmd.Flags().StringVar(&logPath, "log", "", "CSV file receiving declined attendees (default $MEETSLOTS_DECLINES_LOG)")
	cmd.Flags().BoolVar(&show, "show", false, "Print the declined attendees logged so far instead of scanning")

	return cmd
}

func showDeclineLog(cmd *cobra.Command, logPath string) error {
	if logPath == "" {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		logPath = cfg.DeclinesLog
	}

	records, err := declines.NewCSVLog(logPath).Records()
	if err != nil {
		return err
	}
	printDeclineRecords(cmd.OutOrStdout(), logPath, records)
	return nil
}
