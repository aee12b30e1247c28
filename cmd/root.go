package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teemow/meetslots/internal/logging"
)

var (
	debugMode bool
	logFormat string
)

// rootCmd represents the base command for the meetslots application
var rootCmd = &cobra.Command{
	Use:   "meetslots",
	Short: "Finds free meeting slots and books Google Meet calls",
	Long: `meetslots intersects an invitee's Google Calendar with the organization
calendar, offers the free slots inside working hours and books the chosen one
as a Google Meet event in both calendars.

It can run as:
  - A CLI for looking up slots, booking and administration
  - A JSON HTTP API and MCP (Model Context Protocol) server (serve)`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		slog.SetDefault(logging.NewLogger(os.Stderr, logFormat, debugMode))
	},
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "meetslots version %s\n" .Version}}`)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	cancel()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format: text or json")

	rootCmd.AddCommand(newSlotsCmd())
	rootCmd.AddCommand(newBookCmd())
	rootCmd.AddCommand(newProposeCmd())
	rootCmd.AddCommand(newInviteCmd())
	rootCmd.AddCommand(newDurationCmd())
	rootCmd.AddCommand(newDeclinesCmd())
	rootCmd.AddCommand(newAuthCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
	rootCmd.AddCommand(newVersionCmd())
}
