package slot_tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/teemow/meetslots/internal/booking"
	"github.com/teemow/meetslots/internal/calendar"
	"github.com/teemow/meetslots/internal/declines"
	"github.com/teemow/meetslots/internal/durations"
	"github.com/teemow/meetslots/internal/mail"
	"github.com/teemow/meetslots/internal/server"
	"github.com/teemow/meetslots/internal/slots"
)

const testPassword = "org-secret"

var (
	ist     = time.FixedZone("IST", 19800)
	testNow = time.Date(2026, 10, 18, 8, 0, 0, 0, ist)
)

type fakeCalendar struct {
	mu      sync.Mutex
	events  []calendar.EventSummary
	created []calendar.MeetingInput
	deleted []string
}

func (f *fakeCalendar) ListEvents(_ context.Context, _ string, timeMin, timeMax time.Time) ([]calendar.EventSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []calendar.EventSummary
	for _, ev := range f.events {
		if ev.Start.Before(timeMax) && ev.End.After(timeMin) {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (f *fakeCalendar) CreateMeeting(_ context.Context, calendarID string, input calendar.MeetingInput) (*calendar.EventSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, input)
	ev := calendar.EventSummary{
		ID:       fmt.Sprintf("%s-%d", calendarID, len(f.created)),
		Start:    input.Start,
		End:      input.End,
		MeetLink: "https://meet.google.com/abc-defg-hij",
	}
	f.events = append(f.events, ev)
	return &ev, nil
}

func (f *fakeCalendar) DeleteEvent(_ context.Context, _ string, eventID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, eventID)
	return nil
}

type fakeProvider map[string]*fakeCalendar

func (p fakeProvider) CalendarForAccount(_ context.Context, account string) (booking.Calendar, error) {
	cal, ok := p[account]
	if !ok {
		return nil, errors.New("no token for account " + account)
	}
	return cal, nil
}

type sinkSender struct {
	sent []mail.Message
}

func (s *sinkSender) Send(_ context.Context, msg mail.Message) error {
	s.sent = append(s.sent, msg)
	return nil
}

type toolFixture struct {
	mcp    *mcpserver.MCPServer
	sc     *server.ServerContext
	org    *fakeCalendar
	guest  *fakeCalendar
	sender *sinkSender
}

func newToolFixture(t *testing.T, readOnly bool) *toolFixture {
	t.Helper()

	slotCfg := slots.DefaultConfig()
	slotCfg.Location = ist
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)

	f := &toolFixture{org: &fakeCalendar{}, guest: &fakeCalendar{}, sender: &sinkSender{}}
	logger := slog.New(slog.DiscardHandler)
	svc, err := booking.NewService(booking.Config{
		Slots:           slotCfg,
		OrgAccount:      "org",
		OrgCalendarID:   "org@example.com",
		OrgPasswordHash: string(hash),
		MailFrom:        "org@example.com",
		BookingURL:      "https://book.example.com/",
	}, fakeProvider{"org": f.org, "default": f.guest},
		durations.NewFileStore(filepath.Join(t.TempDir(), "durations.json"), 60), f.sender, logger)
	require.NoError(t, err)
	svc.SetClock(func() time.Time { return testNow })

	f.sc, err = server.NewServerContext(context.Background(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.sc.Shutdown() })
	f.sc.SetBookingService(svc)
	f.sc.SetDeclineScanner(declines.NewScanner(f.org, declines.NewCSVLog(filepath.Join(t.TempDir(), "declined.csv")), ist, logger), "org@example.com")

	f.mcp = mcpserver.NewMCPServer("test-server", "1.0.0", mcpserver.WithToolCapabilities(true))
	require.NoError(t, RegisterSlotTools(f.mcp, f.sc, readOnly))
	return f
}

func (f *toolFixture) call(t *testing.T, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	tool, ok := f.mcp.ListTools()[name]
	require.True(t, ok, "tool %s is not registered", name)

	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	result, err := tool.Handler(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, result)
	return result
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	text, ok := mcp.AsTextContent(result.Content[0])
	require.True(t, ok)
	return text.Text
}

func TestRegisterSlotTools(t *testing.T) {
	tests := []struct {
		name      string
		readOnly  bool
		wantTools []string
		absent    []string
	}{
		{
			name:      "read-write",
			wantTools: []string{"slots_find", "slots_propose", "slots_book", "slots_auto_book", "slots_set_duration", "slots_list_durations", "slots_invite", "declines_scan"},
		},
		{
			name:      "read-only",
			readOnly:  true,
			wantTools: []string{"slots_find", "slots_propose"},
			absent:    []string{"slots_book", "slots_auto_book", "slots_set_duration", "slots_invite", "declines_scan"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newToolFixture(t, tt.readOnly)
			registered := f.mcp.ListTools()
			for _, name := range tt.wantTools {
				assert.Contains(t, registered, name)
			}
			for _, name := range tt.absent {
				assert.NotContains(t, registered, name)
			}
		})
	}
}

func TestSlotsFind(t *testing.T) {
	f := newToolFixture(t, true)
	f.org.events = []calendar.EventSummary{{
		ID:    "busy",
		Start: time.Date(2026, 10, 19, 9, 0, 0, 0, ist),
		End:   time.Date(2026, 10, 19, 15, 0, 0, 0, ist),
	}}

	result := f.call(t, "slots_find", map[string]interface{}{"date": "2026-10-19"})
	assert.False(t, result.IsError)
	text := resultText(t, result)
	assert.Contains(t, text, "Free 60-minute slots on 2026-10-19")
	assert.Contains(t, text, "1. 15:00 - 16:00")
	assert.Contains(t, text, "2. 16:00 - 17:00")

	result = f.call(t, "slots_find", map[string]interface{}{"date": "2026-10-17"})
	assert.False(t, result.IsError)
	assert.Contains(t, resultText(t, result), "No free 60-minute slots")

	for _, args := range []map[string]interface{}{
		{},
		{"date": "tomorrow"},
		{"date": "2026-10-19", "account": "../x"},
	} {
		assert.True(t, f.call(t, "slots_find", args).IsError, "%v", args)
	}
}

func TestSlotsProposeAndAutoBook(t *testing.T) {
	f := newToolFixture(t, false)

	result := f.call(t, "slots_propose", map[string]interface{}{"count": float64(1)})
	require.False(t, result.IsError, resultText(t, result))
	text := resultText(t, result)
	assert.Contains(t, text, "1. 2026-10-20 09:00 - 10:00")

	start := time.Date(2026, 10, 20, 9, 0, 0, 0, ist)
	result = f.call(t, "slots_auto_book", map[string]interface{}{
		"start": start.Format(time.RFC3339),
		"end":   start.Add(time.Hour).Format(time.RFC3339),
		"email": "candidate@example.com",
	})
	require.False(t, result.IsError, resultText(t, result))
	assert.Contains(t, resultText(t, result), "Google Meet: https://meet.google.com/abc-defg-hij")
	require.Len(t, f.org.created, 1)
	assert.Equal(t, booking.DefaultAutoBookSummary, f.org.created[0].Summary)
	assert.Len(t, f.sender.sent, 1)
}

func TestSlotsBook(t *testing.T) {
	f := newToolFixture(t, false)
	args := map[string]interface{}{
		"date":    "2026-10-19",
		"start":   "11:00",
		"email":   "guest@example.com",
		"summary": "Intro call",
	}

	result := f.call(t, "slots_book", args)
	require.False(t, result.IsError, resultText(t, result))
	text := resultText(t, result)
	assert.Contains(t, text, "Meeting booked on 2026-10-19, 11:00 - 12:00")
	assert.Contains(t, text, "emailed to the invitee")
	assert.Len(t, f.guest.created, 1)

	result = f.call(t, "slots_book", args)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), booking.ErrSlotUnavailable.Error())

	result = f.call(t, "slots_book", map[string]interface{}{"date": "2026-10-19", "start": "9am"})
	assert.True(t, result.IsError)
}

func TestAdminToolsRequirePassword(t *testing.T) {
	f := newToolFixture(t, false)

	for _, name := range []string{"slots_set_duration", "slots_list_durations", "slots_invite", "declines_scan"} {
		result := f.call(t, name, map[string]interface{}{
			"password": "wrong",
			"date":     "2026-10-20",
			"minutes":  float64(30),
			"email":    "candidate@example.com",
		})
		assert.True(t, result.IsError, name)
		assert.Contains(t, resultText(t, result), "password is incorrect", name)
	}
	assert.Empty(t, f.sender.sent)
}

func TestSlotsDurations(t *testing.T) {
	f := newToolFixture(t, false)

	result := f.call(t, "slots_set_duration", map[string]interface{}{
		"password": testPassword,
		"date":     "2026-10-20",
		"minutes":  float64(45),
	})
	require.False(t, result.IsError, resultText(t, result))
	assert.Contains(t, resultText(t, result), "set to 45 minutes")

	result = f.call(t, "slots_set_duration", map[string]interface{}{
		"password": testPassword,
		"date":     "2026-10-20",
		"minutes":  float64(20),
	})
	assert.True(t, result.IsError)

	result = f.call(t, "slots_list_durations", map[string]interface{}{"password": testPassword})
	require.False(t, result.IsError)
	text := resultText(t, result)
	assert.Contains(t, text, "Default slot duration: 60 minutes")
	assert.Contains(t, text, "2026-10-20: 45 minutes")
}

func TestSlotsInvite(t *testing.T) {
	f := newToolFixture(t, false)

	result := f.call(t, "slots_invite", map[string]interface{}{"password": testPassword, "email": "candidate@example.com"})
	require.False(t, result.IsError, resultText(t, result))
	require.Len(t, f.sender.sent, 1)
	assert.Equal(t, []string{"candidate@example.com"}, f.sender.sent[0].To)
	assert.Contains(t, f.sender.sent[0].Body, "https://book.example.com/")
}

func TestSlotsInviteSeveral(t *testing.T) {
	f := newToolFixture(t, false)

	result := f.call(t, "slots_invite", map[string]interface{}{
		"password": testPassword,
		"email":    []interface{}{"one@example.com", "not-an-address", "two@example.com"},
	})
	require.False(t, result.IsError, resultText(t, result))
	require.Len(t, f.sender.sent, 2)

	text := resultText(t, result)
	assert.Contains(t, text, `"succeeded": 2`)
	assert.Contains(t, text, `"failed": 1`)
	assert.Contains(t, text, "not-an-address")
}

func TestDeclinesScan(t *testing.T) {
	f := newToolFixture(t, false)

	result := f.call(t, "declines_scan", map[string]interface{}{"password": testPassword})
	require.False(t, result.IsError, resultText(t, result))
	assert.Contains(t, resultText(t, result), "deleted 0")
}

func TestToolsWithoutService(t *testing.T) {
	sc, err := server.NewServerContext(context.Background(), nil)
	require.NoError(t, err)
	defer func() { _ = sc.Shutdown() }()

	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]interface{}{"date": "2026-10-19"}
	result, err := handleFindSlots(context.Background(), req, sc)
	require.NoError(t, err)
	assert.True(t, result.IsError)
}
