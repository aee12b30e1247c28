package resources

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/meetslots/internal/booking"
	"github.com/teemow/meetslots/internal/durations"
	"github.com/teemow/meetslots/internal/mail"
	"github.com/teemow/meetslots/internal/server"
	"github.com/teemow/meetslots/internal/slots"
)

type noCalendars struct{}

func (noCalendars) CalendarForAccount(context.Context, string) (booking.Calendar, error) {
	return nil, errors.New("no calendars in this test")
}

func newContext(t *testing.T, withService bool) *server.ServerContext {
	t.Helper()
	sc, err := server.NewServerContext(context.Background(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })
	if !withService {
		return sc
	}

	store := durations.NewFileStore(filepath.Join(t.TempDir(), "durations.json"), 60)
	require.NoError(t, store.Save(context.Background(), slots.Date{Year: 2026, Month: time.October, Day: 21}, 45))

	svc, err := booking.NewService(booking.Config{Slots: slots.DefaultConfig()}, noCalendars{}, store, mail.NewLogSender(nil), nil)
	require.NoError(t, err)
	svc.SetClock(func() time.Time { return time.Date(2026, time.October, 18, 8, 0, 0, 0, time.UTC) })
	sc.SetBookingService(svc)
	return sc
}

func readRequest(uri string) mcp.ReadResourceRequest {
	req := mcp.ReadResourceRequest{}
	req.Params.URI = uri
	return req
}

func decode(t *testing.T, contents []mcp.ResourceContents) map[string]any {
	t.Helper()
	require.Len(t, contents, 1)
	text, ok := contents[0].(*mcp.TextResourceContents)
	require.True(t, ok)
	assert.Equal(t, "application/json", text.MIMEType)

	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(text.Text), &out))
	return out
}

func TestRegisterScheduleResources(t *testing.T) {
	s := mcpserver.NewMCPServer("test", "1.0.0", mcpserver.WithResourceCapabilities(false, false))
	assert.NoError(t, RegisterScheduleResources(s, newContext(t, false)))
}

func TestHandleSettings(t *testing.T) {
	sc := newContext(t, true)

	contents, err := handleSettings(context.Background(), readRequest(SettingsURI), sc)
	require.NoError(t, err)

	out := decode(t, contents)
	assert.Equal(t, slots.DefaultConfig().Location.String(), out["timezone"])
	assert.Equal(t, "09:00", out["work_start"])
	assert.Equal(t, "17:00", out["work_end"])
	assert.Equal(t, float64(booking.DefaultProposalCount), out["proposal_count"])
	assert.Equal(t, float64(booking.DefaultMaxLookaheadDays), out["max_lookahead_days"])
}

func TestHandleDuration(t *testing.T) {
	sc := newContext(t, true)

	tests := []struct {
		name        string
		uri         string
		wantMinutes float64
		wantErr     bool
	}{
		{name: "configured day", uri: "meetslots://durations/2026-10-21", wantMinutes: 45},
		{name: "default day", uri: "meetslots://durations/2026-10-22", wantMinutes: 60},
		{name: "bad date", uri: "meetslots://durations/tomorrow", wantErr: true},
		{name: "wrong prefix", uri: "meetslots://settings", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			contents, err := handleDuration(context.Background(), readRequest(tt.uri), sc)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantMinutes, decode(t, contents)["duration_minutes"])
		})
	}
}

func TestResourcesWithoutService(t *testing.T) {
	sc := newContext(t, false)

	_, err := handleSettings(context.Background(), readRequest(SettingsURI), sc)
	assert.Error(t, err)

	_, err = handleDuration(context.Background(), readRequest("meetslots://durations/2026-10-21"), sc)
	assert.Error(t, err)
}
