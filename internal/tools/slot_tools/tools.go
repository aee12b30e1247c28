package slot_tools

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/meetslots/internal/booking"
	"github.com/teemow/meetslots/internal/server"
	"github.com/teemow/meetslots/internal/slots"
)

const clockLayout = "15:04"

var errNoService = errors.New("booking service is not configured")

// RegisterSlotTools registers the availability, booking and admin tools.
// Tools that write to a calendar, the duration store or a mailbox are only
// registered when readOnly is false.
func RegisterSlotTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	registerQueryTools(s, sc)
	if !readOnly {
		registerBookingTools(s, sc)
		registerAdminTools(s, sc)
	}
	return nil
}

func accountOption() mcp.ToolOption {
	return mcp.WithString("account",
		mcp.Description("Token account of the invitee's calendar (default: 'default')."),
	)
}

func passwordOption() mcp.ToolOption {
	return mcp.WithString("password",
		mcp.Required(),
		mcp.Description("Organization password"),
	)
}

// service returns the booking service or an error result to hand back.
func service(sc *server.ServerContext) (*booking.Service, *mcp.CallToolResult) {
	svc := sc.BookingService()
	if svc == nil {
		return nil, mcp.NewToolResultError(errNoService.Error())
	}
	return svc, nil
}

// authorize checks the password argument against the organization hash.
func authorize(svc *booking.Service, request mcp.CallToolRequest) *mcp.CallToolResult {
	if err := svc.AuthorizeOrg(request.GetString("password", "")); err != nil {
		return mcp.NewToolResultError("organization password is incorrect")
	}
	return nil
}

func parseDateArg(request mcp.CallToolRequest) (slots.Date, error) {
	raw, err := request.RequireString("date")
	if err != nil {
		return slots.Date{}, err
	}
	return slots.ParseDate(raw)
}

func parseTimeArg(request mcp.CallToolRequest, key string) (time.Time, error) {
	raw, err := request.RequireString(key)
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s format: %w", key, err)
	}
	return t, nil
}

func formatSlot(slot slots.Slot, loc *time.Location) string {
	return fmt.Sprintf("%s - %s", slot.Start.In(loc).Format(clockLayout), slot.End.In(loc).Format(clockLayout))
}

func formatBooking(b *booking.Booking, loc *time.Location) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Meeting booked on %s, %s (%s)\n",
		slots.DateOf(b.Slot.Start.In(loc)), formatSlot(b.Slot, loc), loc)
	fmt.Fprintf(&sb, "Organization event: %s\n", b.OrgEventID)
	if b.UserEventID != "" {
		fmt.Fprintf(&sb, "Invitee event: %s\n", b.UserEventID)
	}
	if b.MeetLink != "" {
		fmt.Fprintf(&sb, "Google Meet: %s\n", b.MeetLink)
	}
	if b.EmailSent {
		sb.WriteString("Meeting details were emailed to the invitee.\n")
	}
	if b.UserEventError != "" {
		fmt.Fprintf(&sb, "Warning: invitee event not created: %s\n", b.UserEventError)
	}
	if b.EmailError != "" {
		fmt.Fprintf(&sb, "Warning: email not sent: %s\n", b.EmailError)
	}
	return sb.String()
}

