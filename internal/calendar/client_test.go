package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/teemow/meetslots/internal/slots"
)

// fakeCalendarAPI records requests and serves canned Calendar v3 responses.
type fakeCalendarAPI struct {
	mu       sync.Mutex
	inserted []*calendar.Event
	queries  []string
	deleted  []string
}

func (f *fakeCalendarAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/calendars/primary/events":
		f.queries = append(f.queries, r.URL.RawQuery)
		if r.URL.Query().Get("pageToken") == "" {
			_ = json.NewEncoder(w).Encode(calendar.Events{
				Items: []*calendar.Event{{
					Id:      "evt-1",
					Summary: "Standup",
					Start:   &calendar.EventDateTime{DateTime: "2026-10-19T10:00:00+05:30"},
					End:     &calendar.EventDateTime{DateTime: "2026-10-19T10:30:00+05:30"},
				}},
				NextPageToken: "page-2",
			})
			return
		}
		_ = json.NewEncoder(w).Encode(calendar.Events{
			Items: []*calendar.Event{{
				Id:    "evt-2",
				Start: &calendar.EventDateTime{Date: "2026-10-19"},
				End:   &calendar.EventDateTime{Date: "2026-10-20"},
			}},
		})

	case r.Method == http.MethodPost && r.URL.Path == "/calendars/primary/events":
		var ev calendar.Event
		if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.inserted = append(f.inserted, &ev)
		f.queries = append(f.queries, r.URL.RawQuery)
		ev.Id = "created-1"
		if ev.ConferenceData != nil && ev.ConferenceData.CreateRequest != nil {
			ev.HangoutLink = "https://meet.google.com/abc-defg-hij"
		}
		_ = json.NewEncoder(w).Encode(ev)

	case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, "/calendars/primary/events/"):
		id := strings.TrimPrefix(r.URL.Path, "/calendars/primary/events/")
		if id == "missing" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"code":404,"message":"Not Found"}}`))
			return
		}
		f.deleted = append(f.deleted, id)
		w.WriteHeader(http.StatusNoContent)

	default:
		http.NotFound(w, r)
	}
}

func newTestClient(t *testing.T) (*Client, *fakeCalendarAPI) {
	t.Helper()

	api := &fakeCalendarAPI{}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	client, err := NewClientWithHTTPClient(context.Background(), "org", srv.Client(), option.WithEndpoint(srv.URL+"/"))
	require.NoError(t, err)
	return client, api
}

func TestClient_ListEvents_AllPages(t *testing.T) {
	client, api := newTestClient(t)
	assert.Equal(t, "org", client.Account())

	loc := time.FixedZone("IST", 5*3600+1800)
	dayStart := time.Date(2026, 10, 19, 0, 0, 0, 0, loc)

	events, err := client.ListEvents(context.Background(), PrimaryCalendarID, dayStart, dayStart.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, "evt-1", events[0].ID)
	assert.Equal(t, "2026-10-19T10:00:00+05:30", events[0].RawStart)
	assert.Equal(t, "evt-2", events[1].ID)
	assert.Empty(t, events[1].RawStart, "all-day events carry no dateTime")

	require.Len(t, api.queries, 2)
	assert.Contains(t, api.queries[0], "singleEvents=true")
	assert.Contains(t, api.queries[0], "orderBy=startTime")
	assert.Contains(t, api.queries[1], "pageToken=page-2")
}

func TestClient_CreateMeeting_NewConference(t *testing.T) {
	client, api := newTestClient(t)

	loc := time.FixedZone("IST", 5*3600+1800)
	start := time.Date(2026, 10, 19, 11, 0, 0, 0, loc)

	created, err := client.CreateMeeting(context.Background(), PrimaryCalendarID, MeetingInput{
		Summary:   "Interview",
		Start:     start,
		End:       start.Add(time.Hour),
		TimeZone:  "Asia/Kolkata",
		Attendees: []string{"guest@example.com"},
	})
	require.NoError(t, err)
	assert.Equal(t, "created-1", created.ID)
	assert.Equal(t, "https://meet.google.com/abc-defg-hij", created.MeetLink)

	require.Len(t, api.inserted, 1)
	ev := api.inserted[0]
	assert.Equal(t, DefaultLocation, ev.Location)
	assert.Equal(t, DefaultDescription, ev.Description)
	assert.Equal(t, "Asia/Kolkata", ev.Start.TimeZone)
	assert.Equal(t, "2026-10-19T11:00:00+05:30", ev.Start.DateTime)
	require.NotNil(t, ev.ConferenceData.CreateRequest)
	assert.NotEmpty(t, ev.ConferenceData.CreateRequest.RequestId)
	assert.Equal(t, "hangoutsMeet", ev.ConferenceData.CreateRequest.ConferenceSolutionKey.Type)
	require.Len(t, ev.Reminders.Overrides, 2)
	assert.Equal(t, int64(1440), ev.Reminders.Overrides[0].Minutes)
	assert.Equal(t, int64(10), ev.Reminders.Overrides[1].Minutes)
	require.Len(t, ev.Attendees, 1)
	assert.Contains(t, api.queries[0], "conferenceDataVersion=1")
}

func TestClient_CreateMeeting_ExistingLink(t *testing.T) {
	client, api := newTestClient(t)

	start := time.Date(2026, 10, 19, 11, 0, 0, 0, time.UTC)
	created, err := client.CreateMeeting(context.Background(), PrimaryCalendarID, MeetingInput{
		Summary:  "Interview",
		Start:    start,
		End:      start.Add(30 * time.Minute),
		MeetLink: "https://meet.google.com/xyz",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://meet.google.com/xyz", created.MeetLink)

	ev := api.inserted[0]
	assert.Nil(t, ev.ConferenceData.CreateRequest)
	require.Len(t, ev.ConferenceData.EntryPoints, 1)
	assert.Equal(t, "video", ev.ConferenceData.EntryPoints[0].EntryPointType)
	assert.Equal(t, "UTC", ev.Start.TimeZone)
}

func TestClient_CreateMeeting_InvertedRange(t *testing.T) {
	client, api := newTestClient(t)

	start := time.Date(2026, 10, 19, 11, 0, 0, 0, time.UTC)
	_, err := client.CreateMeeting(context.Background(), PrimaryCalendarID, MeetingInput{Start: start, End: start})
	assert.Error(t, err)
	assert.Empty(t, api.inserted)
}

func TestClient_DeleteEvent(t *testing.T) {
	client, api := newTestClient(t)

	require.NoError(t, client.DeleteEvent(context.Background(), PrimaryCalendarID, "evt-1"))
	assert.Equal(t, []string{"evt-1"}, api.deleted)

	err := client.DeleteEvent(context.Background(), PrimaryCalendarID, "missing")
	assert.True(t, errors.Is(err, ErrEventNotFound))
}

func TestToEventSummary(t *testing.T) {
	assert.Equal(t, EventSummary{}, toEventSummary(nil))

	ev := &calendar.Event{
		Id:          "evt-3",
		Summary:     "Review",
		HangoutLink: "",
		Start:       &calendar.EventDateTime{DateTime: "not-a-time"},
		End:         &calendar.EventDateTime{DateTime: "2026-10-19T12:00:00Z"},
		Organizer:   &calendar.EventOrganizer{Email: "org@example.com"},
		Attendees: []*calendar.EventAttendee{
			{Email: "a@example.com", ResponseStatus: ResponseAccepted},
			{Email: "b@example.com", ResponseStatus: ResponseDeclined},
			nil,
			{Email: "c@example.com", ResponseStatus: ResponseDeclined},
		},
		ConferenceData: &calendar.ConferenceData{
			EntryPoints: []*calendar.EntryPoint{
				{EntryPointType: "phone", Uri: "tel:+1"},
				{EntryPointType: "video", Uri: "https://meet.google.com/v"},
			},
		},
	}

	s := toEventSummary(ev)
	assert.Equal(t, "not-a-time", s.RawStart)
	assert.True(t, s.Start.IsZero())
	assert.Equal(t, "org@example.com", s.Organizer)
	assert.Equal(t, "https://meet.google.com/v", s.MeetLink)
	assert.Len(t, s.Attendees, 3)
	assert.Equal(t, []string{"b@example.com", "c@example.com"}, s.DeclinedAttendees())
	assert.Equal(t, slots.RawInterval{Start: "not-a-time", End: "2026-10-19T12:00:00Z"}, s.Busy())
}

func TestBusyIntervals(t *testing.T) {
	events := []EventSummary{
		{RawStart: "2026-10-19T09:00:00Z", RawEnd: "2026-10-19T10:00:00Z"},
		{},
	}
	raw := BusyIntervals(events)
	require.Len(t, raw, 2)
	assert.Equal(t, "2026-10-19T09:00:00Z", raw[0].Start)
	assert.Equal(t, slots.RawInterval{}, raw[1])
}

func TestHasTokenForAccountWithProvider_Nil(t *testing.T) {
	assert.False(t, HasTokenForAccountWithProvider("org", nil))
	assert.False(t, HasTokenForAccount(""))
}
