package slot_tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/meetslots/internal/server"
	"github.com/teemow/meetslots/internal/tools/common"
)

func registerQueryTools(s *mcpserver.MCPServer, sc *server.ServerContext) {
	findTool := mcp.NewTool("slots_find",
		mcp.WithDescription("List the free meeting slots of a day, considering both the invitee's and the organization's calendar"),
		mcp.WithString("date",
			mcp.Required(),
			mcp.Description("Day to check (YYYY-MM-DD)"),
		),
		accountOption(),
	)
	s.AddTool(findTool, common.InstrumentedToolHandlerWithService("slots_find", "calendar", "list", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleFindSlots(ctx, request, sc)
		}))

	proposeTool := mcp.NewTool("slots_propose",
		mcp.WithDescription("Propose the next free slots starting two days from today, as the scheduling agent does"),
		mcp.WithNumber("count",
			mcp.Description("Number of slots to propose (default: 3)"),
		),
		accountOption(),
	)
	s.AddTool(proposeTool, common.InstrumentedToolHandlerWithService("slots_propose", "calendar", "list", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handlePropose(ctx, request, sc)
		}))
}

func handleFindSlots(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	svc, errResult := service(sc)
	if errResult != nil {
		return errResult, nil
	}
	account, err := common.ValidAccountFromArgs(request.GetArguments())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	day, err := parseDateArg(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	avail, err := svc.Availability(ctx, account, day)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to compute free slots: %v", err)), nil
	}

	loc := svc.Config().Slots.Location
	if len(avail.Slots) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No free %d-minute slots on %s.", avail.DurationMinutes, day)), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Free %d-minute slots on %s (%s):\n\n", avail.DurationMinutes, day, loc)
	for i, slot := range avail.Slots {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, formatSlot(slot, loc))
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func handlePropose(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	svc, errResult := service(sc)
	if errResult != nil {
		return errResult, nil
	}
	account, err := common.ValidAccountFromArgs(request.GetArguments())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	count := request.GetInt("count", 0)
	if count < 0 {
		return mcp.NewToolResultError("count must be positive"), nil
	}

	proposals, err := svc.Propose(ctx, account, count)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to propose slots: %v", err)), nil
	}
	if len(proposals) == 0 {
		return mcp.NewToolResultText("No free slots found in the lookahead window."), nil
	}

	loc := svc.Config().Slots.Location
	var sb strings.Builder
	fmt.Fprintf(&sb, "Proposed slots (%s):\n\n", loc)
	for i, p := range proposals {
		fmt.Fprintf(&sb, "%d. %s %s (start: %s, end: %s)\n", i+1, p.Day, formatSlot(p.Slot, loc),
			p.Slot.Start.Format(time.RFC3339), p.Slot.End.Format(time.RFC3339))
	}
	sb.WriteString("\nUse slots_auto_book with a start and end to book one of them.")
	return mcp.NewToolResultText(sb.String()), nil
}
