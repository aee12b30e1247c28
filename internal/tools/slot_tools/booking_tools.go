package slot_tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/meetslots/internal/booking"
	"github.com/teemow/meetslots/internal/server"
	"github.com/teemow/meetslots/internal/slots"
	"github.com/teemow/meetslots/internal/tools/common"
)

func registerBookingTools(s *mcpserver.MCPServer, sc *server.ServerContext) {
	bookTool := mcp.NewTool("slots_book",
		mcp.WithDescription("Book a free slot: creates the meeting with a Google Meet link in the organization calendar, adds it to the invitee's calendar and emails the details"),
		mcp.WithString("date",
			mcp.Required(),
			mcp.Description("Day of the meeting (YYYY-MM-DD)"),
		),
		mcp.WithString("start",
			mcp.Required(),
			mcp.Description("Start time of the slot (HH:MM, 24h, in the configured timezone)"),
		),
		mcp.WithString("email",
			mcp.Required(),
			mcp.Description("Invitee email address"),
		),
		mcp.WithString("summary",
			mcp.Required(),
			mcp.Description("Meeting title"),
		),
		accountOption(),
	)
	s.AddTool(bookTool, common.InstrumentedToolHandlerWithService("slots_book", "calendar", "insert", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleBook(ctx, request, sc)
		}))

	autoBookTool := mcp.NewTool("slots_auto_book",
		mcp.WithDescription("Book a proposed slot as an 'Interview' in the organization calendar and email the details to the invitee"),
		mcp.WithString("start",
			mcp.Required(),
			mcp.Description("Slot start (RFC3339, as returned by slots_propose)"),
		),
		mcp.WithString("end",
			mcp.Required(),
			mcp.Description("Slot end (RFC3339, as returned by slots_propose)"),
		),
		mcp.WithString("email",
			mcp.Required(),
			mcp.Description("Invitee email address"),
		),
		accountOption(),
	)
	s.AddTool(autoBookTool, common.InstrumentedToolHandlerWithService("slots_auto_book", "calendar", "insert", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleAutoBook(ctx, request, sc)
		}))
}

func handleBook(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
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
	startRaw, err := request.RequireString("start")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	start, err := slots.ParseClock(startRaw)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	slot, err := svc.SlotAt(ctx, day, start)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	result, err := svc.Book(ctx, booking.BookRequest{
		Account:   account,
		UserEmail: request.GetString("email", ""),
		Summary:   request.GetString("summary", ""),
		Slot:      slot,
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to book slot: %v", err)), nil
	}
	return mcp.NewToolResultText(formatBooking(result, svc.Config().Slots.Location)), nil
}

func handleAutoBook(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	svc, errResult := service(sc)
	if errResult != nil {
		return errResult, nil
	}
	account, err := common.ValidAccountFromArgs(request.GetArguments())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	start, err := parseTimeArg(request, "start")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	end, err := parseTimeArg(request, "end")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := svc.AutoBook(ctx, account, request.GetString("email", ""), slots.Slot{Start: start, End: end})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to book slot: %v", err)), nil
	}
	return mcp.NewToolResultText(formatBooking(result, svc.Config().Slots.Location)), nil
}
