package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/teemow/meetslots/internal/calendar"
	"github.com/teemow/meetslots/internal/durations"
	"github.com/teemow/meetslots/internal/mail"
	"github.com/teemow/meetslots/internal/slots"
)

const (
	testOrgAccount  = "org"
	testOrgCalendar = "org@example.com"
	testGuest       = "guest"
	testGuestEmail  = "guest@example.com"
)

var (
	ist     = time.FixedZone("IST", 19800)
	testNow = time.Date(2026, 10, 18, 8, 0, 0, 0, ist)
	day1    = slots.Date{Year: 2026, Month: time.October, Day: 19}
)

func at(day slots.Date, hour, minute int) time.Time {
	return time.Date(day.Year, day.Month, day.Day, hour, minute, 0, 0, ist)
}

func event(id string, start, end time.Time) calendar.EventSummary {
	return calendar.EventSummary{
		ID:       id,
		Start:    start,
		End:      end,
		RawStart: start.Format(time.RFC3339),
		RawEnd:   end.Format(time.RFC3339),
	}
}

type createdEvent struct {
	calendarID string
	input      calendar.MeetingInput
}

// fakeCalendar serves events per calendar ID and records created meetings.
type fakeCalendar struct {
	mu        sync.Mutex
	events    map[string][]calendar.EventSummary
	created   []createdEvent
	listErr   error
	createErr error
	nextID    int
}

func newFakeCalendar() *fakeCalendar {
	return &fakeCalendar{events: map[string][]calendar.EventSummary{}}
}

func (f *fakeCalendar) ListEvents(_ context.Context, calendarID string, timeMin, timeMax time.Time) ([]calendar.EventSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []calendar.EventSummary
	for _, ev := range f.events[calendarID] {
		if ev.Start.Before(timeMax) && ev.End.After(timeMin) {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (f *fakeCalendar) CreateMeeting(_ context.Context, calendarID string, input calendar.MeetingInput) (*calendar.EventSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, createdEvent{calendarID: calendarID, input: input})
	f.nextID++

	link := input.MeetLink
	if link == "" {
		link = fmt.Sprintf("https://meet.google.com/new-%d", f.nextID)
	}
	return &calendar.EventSummary{
		ID:       fmt.Sprintf("%s-evt-%d", calendarID, f.nextID),
		Summary:  input.Summary,
		Start:    input.Start,
		End:      input.End,
		MeetLink: link,
	}, nil
}

type fakeProvider map[string]*fakeCalendar

func (p fakeProvider) CalendarForAccount(_ context.Context, account string) (Calendar, error) {
	cal, ok := p[account]
	if !ok {
		return nil, fmt.Errorf("no token for account %s", account)
	}
	return cal, nil
}

type recordingSender struct {
	mu   sync.Mutex
	sent []mail.Message
	err  error
}

func (s *recordingSender) Send(_ context.Context, msg mail.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

type fixture struct {
	svc    *Service
	org    *fakeCalendar
	guest  *fakeCalendar
	sender *recordingSender
	store  durations.Store
}

func newFixture(t *testing.T, mutate ...func(*Config)) *fixture {
	t.Helper()

	slotCfg := slots.DefaultConfig()
	slotCfg.Location = ist

	hash, err := bcrypt.GenerateFromPassword([]byte("org-secret"), bcrypt.MinCost)
	require.NoError(t, err)

	cfg := Config{
		Slots:           slotCfg,
		OrgAccount:      testOrgAccount,
		OrgCalendarID:   testOrgCalendar,
		OrgPasswordHash: string(hash),
		MailFrom:        "org@example.com",
		BookingURL:      "https://book.example.com/",
	}
	for _, m := range mutate {
		m(&cfg)
	}

	f := &fixture{
		org:    newFakeCalendar(),
		guest:  newFakeCalendar(),
		sender: &recordingSender{},
		store:  durations.NewFileStore(filepath.Join(t.TempDir(), "durations.json"), 60),
	}
	provider := fakeProvider{testOrgAccount: f.org, testGuest: f.guest}

	f.svc, err = NewService(cfg, provider, f.store, f.sender, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	f.svc.SetClock(func() time.Time { return testNow })
	return f
}

func TestNewService_Validation(t *testing.T) {
	store := durations.NewFileStore(filepath.Join(t.TempDir(), "d.json"), 60)
	sender := &recordingSender{}
	provider := fakeProvider{}

	_, err := NewService(Config{}, provider, store, sender, nil)
	assert.ErrorIs(t, err, slots.ErrInvalidConfiguration)

	cfg := Config{Slots: slots.DefaultConfig()}
	_, err = NewService(cfg, nil, store, sender, nil)
	assert.Error(t, err)
	_, err = NewService(cfg, provider, nil, sender, nil)
	assert.Error(t, err)
	_, err = NewService(cfg, provider, store, nil, nil)
	assert.Error(t, err)

	svc, err := NewService(cfg, provider, store, sender, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultProposalCount, svc.Config().ProposalCount)
	assert.Equal(t, DefaultProposalOffsetDays, svc.Config().ProposalOffsetDays)
	assert.Equal(t, DefaultMaxLookaheadDays, svc.Config().MaxLookaheadDays)
	assert.Equal(t, calendar.PrimaryCalendarID, svc.Config().OrgCalendarID)
}

func TestService_Availability(t *testing.T) {
	f := newFixture(t)
	f.guest.events[calendar.PrimaryCalendarID] = []calendar.EventSummary{
		event("standup", at(day1, 10, 0), at(day1, 11, 0)),
		{ID: "all-day"},
	}
	f.org.events[testOrgCalendar] = []calendar.EventSummary{
		event("review", at(day1, 13, 0), at(day1, 14, 30)),
	}

	got, err := f.svc.Availability(context.Background(), testGuest, day1)
	require.NoError(t, err)

	assert.Equal(t, day1, got.Day)
	assert.Equal(t, 60, got.DurationMinutes)
	want := []slots.Slot{
		{Start: at(day1, 9, 0), End: at(day1, 10, 0)},
		{Start: at(day1, 11, 0), End: at(day1, 12, 0)},
		{Start: at(day1, 12, 0), End: at(day1, 13, 0)},
		{Start: at(day1, 14, 30), End: at(day1, 15, 30)},
		{Start: at(day1, 15, 30), End: at(day1, 16, 30)},
	}
	require.Len(t, got.Slots, len(want))
	for i := range want {
		assert.True(t, want[i].Start.Equal(got.Slots[i].Start), "slot %d start", i)
		assert.True(t, want[i].End.Equal(got.Slots[i].End), "slot %d end", i)
	}
}

func TestService_AvailabilityUsesStoredDuration(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Save(context.Background(), day1, 240))

	got, err := f.svc.Availability(context.Background(), testGuest, day1)
	require.NoError(t, err)
	assert.Equal(t, 240, got.DurationMinutes)
	require.Len(t, got.Slots, 2)
	assert.True(t, at(day1, 13, 0).Equal(got.Slots[1].Start))
}

func TestService_AvailabilityErrors(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Availability(context.Background(), "stranger", day1)
	assert.Error(t, err)

	f.org.listErr = errors.New("backend down")
	_, err = f.svc.Availability(context.Background(), testGuest, day1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend down")
}

func TestService_SlotAt(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Save(context.Background(), day1, 45))

	slot, err := f.svc.SlotAt(context.Background(), day1, slots.Clock{Hour: 11, Minute: 15})
	require.NoError(t, err)
	assert.True(t, at(day1, 11, 15).Equal(slot.Start))
	assert.Equal(t, 45*time.Minute, slot.Duration())
}

func TestService_Propose(t *testing.T) {
	f := newFixture(t)
	day2 := slots.Date{Year: 2026, Month: time.October, Day: 20}
	day3 := day2.AddDays(1)
	f.org.events[testOrgCalendar] = []calendar.EventSummary{
		event("offsite", at(day2, 9, 0), at(day2, 17, 0)),
		event("lunch", at(day3, 10, 0), at(day3, 11, 0)),
	}

	got, err := f.svc.Propose(context.Background(), testGuest, 0)
	require.NoError(t, err)
	require.Len(t, got, DefaultProposalCount)

	wantStarts := []time.Time{at(day3, 9, 0), at(day3, 11, 0), at(day3, 12, 0)}
	for i, p := range got {
		assert.Equal(t, day3, p.Day)
		assert.True(t, wantStarts[i].Equal(p.Slot.Start), "proposal %d", i)
		assert.Equal(t, time.Hour, p.Slot.Duration())
	}
}

func TestService_ProposeGivesUp(t *testing.T) {
	f := newFixture(t, func(c *Config) { c.MaxLookaheadDays = 3 })
	for i := 0; i < 10; i++ {
		d := day1.AddDays(i)
		f.org.events[testOrgCalendar] = append(f.org.events[testOrgCalendar], event("busy", at(d, 0, 0), at(d, 23, 0)))
	}

	got, err := f.svc.Propose(context.Background(), testGuest, 5)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestService_Book(t *testing.T) {
	f := newFixture(t)
	slot := slots.Slot{Start: at(day1, 11, 0), End: at(day1, 12, 0)}

	got, err := f.svc.Book(context.Background(), BookRequest{
		Account:   testGuest,
		UserEmail: testGuestEmail,
		Summary:   "Intro call",
		Slot:      slot,
	})
	require.NoError(t, err)

	require.Len(t, f.org.created, 1)
	orgCreated := f.org.created[0]
	assert.Equal(t, testOrgCalendar, orgCreated.calendarID)
	assert.Empty(t, orgCreated.input.MeetLink)
	assert.Equal(t, []string{testGuestEmail}, orgCreated.input.Attendees)
	assert.Equal(t, "IST", orgCreated.input.TimeZone)

	require.Len(t, f.guest.created, 1)
	assert.Equal(t, calendar.PrimaryCalendarID, f.guest.created[0].calendarID)
	assert.Equal(t, got.MeetLink, f.guest.created[0].input.MeetLink)

	assert.Equal(t, "org@example.com-evt-1", got.OrgEventID)
	assert.Equal(t, "primary-evt-1", got.UserEventID)
	assert.True(t, got.EmailSent)
	assert.Empty(t, got.EmailError)

	require.Len(t, f.sender.sent, 1)
	msg := f.sender.sent[0]
	assert.Equal(t, mail.DetailsSubject, msg.Subject)
	assert.Equal(t, []string{testGuestEmail}, msg.To)
	assert.Contains(t, msg.Body, "Event: Intro call")
	assert.Contains(t, msg.Body, "Google Meet Link: "+got.MeetLink)
}

func TestService_BookAsOrg(t *testing.T) {
	f := newFixture(t)
	slot := slots.Slot{Start: at(day1, 9, 0), End: at(day1, 10, 0)}

	got, err := f.svc.Book(context.Background(), BookRequest{
		Account:   testOrgAccount,
		UserEmail: testOrgCalendar,
		Summary:   "Planning",
		Slot:      slot,
	})
	require.NoError(t, err)

	require.Len(t, f.org.created, 2)
	assert.Equal(t, testOrgCalendar, f.org.created[0].calendarID)
	assert.Equal(t, calendar.PrimaryCalendarID, f.org.created[1].calendarID)
	assert.Empty(t, f.org.created[1].input.MeetLink)
	assert.False(t, got.EmailSent)
	assert.Empty(t, f.sender.sent)
}

func TestService_BookFailures(t *testing.T) {
	free := slots.Slot{Start: at(day1, 11, 0), End: at(day1, 12, 0)}

	tests := []struct {
		name    string
		setup   func(f *fixture)
		req     BookRequest
		wantErr error
	}{
		{
			name:    "missing summary",
			req:     BookRequest{Account: testGuest, UserEmail: testGuestEmail, Slot: free},
			wantErr: ErrInvalidRequest,
		},
		{
			name:    "bad email",
			req:     BookRequest{Account: testGuest, UserEmail: "guest", Summary: "x", Slot: free},
			wantErr: ErrInvalidRequest,
		},
		{
			name:    "inverted slot",
			req:     BookRequest{Account: testGuest, UserEmail: testGuestEmail, Summary: "x", Slot: slots.Slot{Start: free.End, End: free.Start}},
			wantErr: ErrInvalidRequest,
		},
		{
			name: "overlapping event",
			setup: func(f *fixture) {
				f.guest.events[calendar.PrimaryCalendarID] = []calendar.EventSummary{event("x", at(day1, 11, 30), at(day1, 12, 30))}
			},
			req:     BookRequest{Account: testGuest, UserEmail: testGuestEmail, Summary: "x", Slot: free},
			wantErr: ErrSlotUnavailable,
		},
		{
			name:    "longer than the day's duration",
			req:     BookRequest{Account: testGuest, UserEmail: testGuestEmail, Summary: "x", Slot: slots.Slot{Start: at(day1, 9, 7), End: at(day1, 16, 13)}},
			wantErr: ErrSlotUnavailable,
		},
		{
			name:    "start between offered slots",
			req:     BookRequest{Account: testGuest, UserEmail: testGuestEmail, Summary: "x", Slot: slots.Slot{Start: at(day1, 11, 15), End: at(day1, 12, 15)}},
			wantErr: ErrSlotUnavailable,
		},
		{
			name:    "stored duration differs",
			setup:   func(f *fixture) { _ = f.store.Save(context.Background(), day1, 30) },
			req:     BookRequest{Account: testGuest, UserEmail: testGuestEmail, Summary: "x", Slot: free},
			wantErr: ErrSlotUnavailable,
		},
		{
			name:    "outside working hours",
			req:     BookRequest{Account: testGuest, UserEmail: testGuestEmail, Summary: "x", Slot: slots.Slot{Start: at(day1, 16, 30), End: at(day1, 17, 30)}},
			wantErr: ErrSlotUnavailable,
		},
		{
			name: "already started",
			req: BookRequest{Account: testGuest, UserEmail: testGuestEmail, Summary: "x",
				Slot: slots.Slot{Start: testNow.Add(-time.Hour), End: testNow}},
			wantErr: ErrSlotUnavailable,
		},
		{
			name:    "organization event fails",
			setup:   func(f *fixture) { f.org.createErr = errors.New("quota exceeded") },
			req:     BookRequest{Account: testGuest, UserEmail: testGuestEmail, Summary: "x", Slot: free},
			wantErr: ErrOrgEventFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if tt.setup != nil {
				tt.setup(f)
			}

			_, err := f.svc.Book(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, f.guest.created)
			assert.Empty(t, f.sender.sent)
		})
	}
}

func TestService_BookReportsLateFailures(t *testing.T) {
	f := newFixture(t)
	f.guest.createErr = errors.New("calendar read-only")
	f.sender.err = errors.New("smtp unreachable")

	got, err := f.svc.Book(context.Background(), BookRequest{
		Account:   testGuest,
		UserEmail: testGuestEmail,
		Summary:   "Intro call",
		Slot:      slots.Slot{Start: at(day1, 11, 0), End: at(day1, 12, 0)},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, got.OrgEventID)
	assert.Empty(t, got.UserEventID)
	assert.Equal(t, "calendar read-only", got.UserEventError)
	assert.False(t, got.EmailSent)
	assert.Equal(t, "smtp unreachable", got.EmailError)
}

func TestService_AutoBook(t *testing.T) {
	f := newFixture(t)
	slot := slots.Slot{Start: at(day1, 14, 0), End: at(day1, 15, 0)}

	got, err := f.svc.AutoBook(context.Background(), testGuest, testGuestEmail, slot)
	require.NoError(t, err)

	require.Len(t, f.org.created, 1)
	assert.Equal(t, DefaultAutoBookSummary, f.org.created[0].input.Summary)
	assert.Empty(t, f.guest.created)
	assert.True(t, got.EmailSent)
	require.Len(t, f.sender.sent, 1)
	assert.Contains(t, f.sender.sent[0].Body, "Event: Interview")
}

func TestService_AutoBookRejectsUnofferedSlots(t *testing.T) {
	tests := []struct {
		name string
		slot slots.Slot
	}{
		{"wrong length", slots.Slot{Start: at(day1, 14, 0), End: at(day1, 14, 30)}},
		{"misaligned start", slots.Slot{Start: at(day1, 14, 10), End: at(day1, 15, 10)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.svc.AutoBook(context.Background(), testGuest, testGuestEmail, tt.slot)
			assert.ErrorIs(t, err, ErrSlotUnavailable)
			assert.Empty(t, f.org.created)
			assert.Empty(t, f.sender.sent)
		})
	}
}

func TestService_Invite(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.svc.Invite(context.Background(), testGuestEmail))
	require.Len(t, f.sender.sent, 1)
	assert.Equal(t, mail.InvitationSubject, f.sender.sent[0].Subject)
	assert.Contains(t, f.sender.sent[0].Body, "https://book.example.com/")

	assert.ErrorIs(t, f.svc.Invite(context.Background(), "nobody"), ErrInvalidRequest)

	noURL := newFixture(t, func(c *Config) { c.BookingURL = "" })
	assert.ErrorIs(t, noURL.svc.Invite(context.Background(), testGuestEmail), ErrInvalidRequest)
}

func TestService_AuthorizeOrg(t *testing.T) {
	f := newFixture(t)
	assert.NoError(t, f.svc.AuthorizeOrg("org-secret"))
	assert.ErrorIs(t, f.svc.AuthorizeOrg("org"), ErrUnauthorized)
	assert.ErrorIs(t, f.svc.AuthorizeOrg(""), ErrUnauthorized)

	unset := newFixture(t, func(c *Config) { c.OrgPasswordHash = "" })
	assert.ErrorIs(t, unset.svc.AuthorizeOrg("org-secret"), ErrUnauthorized)
}

func TestService_SetSlotDuration(t *testing.T) {
	today := slots.Date{Year: 2026, Month: time.October, Day: 18}

	tests := []struct {
		name    string
		day     slots.Date
		minutes int
		wantErr error
	}{
		{"today", today, 30, nil},
		{"future", today.AddDays(7), 90, nil},
		{"yesterday", today.AddDays(-1), 30, ErrInvalidDate},
		{"zero date", slots.Date{}, 30, ErrInvalidDate},
		{"below step", today, 10, durations.ErrInvalidDuration},
		{"off step", today, 50, durations.ErrInvalidDuration},
		{"negative", today, -15, durations.ErrInvalidDuration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			err := f.svc.SetSlotDuration(context.Background(), tt.day, tt.minutes)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				all, err := f.svc.SlotDurations(context.Background())
				require.NoError(t, err)
				assert.Empty(t, all)
				return
			}
			require.NoError(t, err)
			got, err := f.svc.SlotDuration(context.Background(), tt.day)
			require.NoError(t, err)
			assert.Equal(t, tt.minutes, got)
		})
	}
}

func TestSourceFrom(t *testing.T) {
	assert.Equal(t, "cli", sourceFrom(context.Background()))
	assert.Equal(t, "http", sourceFrom(WithSource(context.Background(), "http")))
}
