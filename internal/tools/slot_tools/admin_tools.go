package slot_tools

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/meetslots/internal/server"
	"github.com/teemow/meetslots/internal/tools/batch"
	"github.com/teemow/meetslots/internal/tools/common"
)

// registerAdminTools registers the organization-only tools. Each one checks
// the organization password before acting.
func registerAdminTools(s *mcpserver.MCPServer, sc *server.ServerContext) {
	setDurationTool := mcp.NewTool("slots_set_duration",
		mcp.WithDescription("Set the slot length for one day (organization only)"),
		mcp.WithString("date",
			mcp.Required(),
			mcp.Description("Day to configure (YYYY-MM-DD, today or later)"),
		),
		mcp.WithNumber("minutes",
			mcp.Required(),
			mcp.Description("Slot length in minutes (a multiple of 15)"),
		),
		passwordOption(),
	)
	s.AddTool(setDurationTool, common.InstrumentedToolHandler("slots_set_duration", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleSetDuration(ctx, request, sc)
		}))

	listDurationsTool := mcp.NewTool("slots_list_durations",
		mcp.WithDescription("List the configured per-day slot lengths (organization only)"),
		passwordOption(),
	)
	s.AddTool(listDurationsTool, common.InstrumentedToolHandler("slots_list_durations", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleListDurations(ctx, request, sc)
		}))

	inviteTool := mcp.NewTool("slots_invite",
		mcp.WithDescription("Email the booking page link to a prospective invitee (organization only)"),
		mcp.WithString("email",
			mcp.Required(),
			mcp.Description("Recipient email address, or an array of addresses to invite several candidates"),
		),
		passwordOption(),
	)
	s.AddTool(inviteTool, common.InstrumentedToolHandlerWithService("slots_invite", "gmail", "send", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleInvite(ctx, request, sc)
		}))

	scanTool := mcp.NewTool("declines_scan",
		mcp.WithDescription("Delete upcoming organization events that an attendee declined and log the declined attendees (organization only)"),
		passwordOption(),
	)
	s.AddTool(scanTool, common.InstrumentedToolHandlerWithService("declines_scan", "calendar", "delete", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleScanDeclines(ctx, request, sc)
		}))
}

func handleSetDuration(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	svc, errResult := service(sc)
	if errResult != nil {
		return errResult, nil
	}
	if errResult := authorize(svc, request); errResult != nil {
		return errResult, nil
	}
	day, err := parseDateArg(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	minutes, err := request.RequireInt("minutes")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := svc.SetSlotDuration(ctx, day, minutes); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to set slot duration: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Slot duration for %s set to %d minutes.", day, minutes)), nil
}

func handleListDurations(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	svc, errResult := service(sc)
	if errResult != nil {
		return errResult, nil
	}
	if errResult := authorize(svc, request); errResult != nil {
		return errResult, nil
	}

	all, err := svc.SlotDurations(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list slot durations: %v", err)), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Default slot duration: %d minutes\n", svc.Config().Slots.DefaultSlotDuration)
	if len(all) == 0 {
		sb.WriteString("No per-day durations configured.")
		return mcp.NewToolResultText(sb.String()), nil
	}
	days := make([]string, 0, len(all))
	for day := range all {
		days = append(days, day)
	}
	sort.Strings(days)
	sb.WriteString("\n")
	for _, day := range days {
		fmt.Fprintf(&sb, "%s: %d minutes\n", day, all[day])
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func handleInvite(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	svc, errResult := service(sc)
	if errResult != nil {
		return errResult, nil
	}
	if errResult := authorize(svc, request); errResult != nil {
		return errResult, nil
	}
	emails, err := batch.ParseList(request.GetArguments()["email"], "email")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if len(emails) == 1 {
		if err := svc.Invite(ctx, emails[0]); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to send invitation: %v", err)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Invitation sent to %s.", emails[0])), nil
	}

	report := batch.Run(ctx, emails, func(ctx context.Context, email string) (string, error) {
		if err := svc.Invite(ctx, email); err != nil {
			return "", err
		}
		return "invitation sent", nil
	})
	if report.Succeeded == 0 {
		return mcp.NewToolResultError(report.JSON()), nil
	}
	return mcp.NewToolResultText(report.JSON()), nil
}

func handleScanDeclines(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	svc, errResult := service(sc)
	if errResult != nil {
		return errResult, nil
	}
	if errResult := authorize(svc, request); errResult != nil {
		return errResult, nil
	}

	result, err := sc.ScanDeclines(ctx)
	if err != nil && result == nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to scan for declined events: %v", err)), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Scanned %d events, deleted %d.\n", result.Scanned, len(result.Deleted))
	for _, rec := range result.Records {
		fmt.Fprintf(&sb, "- %s declined by %s\n", rec.EventID, rec.AttendeeEmail)
	}
	if len(result.Failed) > 0 {
		fmt.Fprintf(&sb, "Failed to delete: %s\n", strings.Join(result.Failed, ", "))
	}
	if err != nil {
		fmt.Fprintf(&sb, "Scan stopped early: %v\n", err)
		return mcp.NewToolResultError(sb.String()), nil
	}
	return mcp.NewToolResultText(sb.String()), nil
}
