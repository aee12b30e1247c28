package declines

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/teemow/meetslots/internal/calendar"
	"github.com/teemow/meetslots/internal/instrumentation"
	"github.com/teemow/meetslots/internal/logging"
	"github.com/teemow/meetslots/internal/slots"
)

// WindowDays is the number of days scanned, starting tomorrow.
const WindowDays = 3

// Calendar lists and deletes events.
type Calendar interface {
	ListEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time) ([]calendar.EventSummary, error)
	DeleteEvent(ctx context.Context, calendarID, eventID string) error
}

// Log stores decline records.
type Log interface {
	Append(records []Record) error
}

// Record is one declined attendee of a deleted event.
type Record struct {
	EventID       string `json:"event_id"`
	AttendeeEmail string `json:"attendee_email"`
}

// Result summarizes a scan.
type Result struct {
	Scanned int      `json:"scanned"`
	Deleted []string `json:"deleted"`
	Failed  []string `json:"failed"`
	Records []Record `json:"records"`
}

// Scanner deletes upcoming events that have declined attendees.
type Scanner struct {
	cal     Calendar
	log     Log
	loc     *time.Location
	logger  *slog.Logger
	metrics *instrumentation.Metrics
}

// NewScanner creates a Scanner computing its window in loc.
func NewScanner(cal Calendar, log Log, loc *time.Location, logger *slog.Logger) *Scanner {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{cal: cal, log: log, loc: loc, logger: logger}
}

// SetMetrics sets the metrics recorder.
func (s *Scanner) SetMetrics(m *instrumentation.Metrics) {
	s.metrics = m
}

// Window returns [tomorrow 00:00, tomorrow+3 days 00:00) relative to now.
func (s *Scanner) Window(now time.Time) (time.Time, time.Time) {
	tomorrow := slots.DateOf(now.In(s.loc)).AddDays(1)
	return tomorrow.Midnight(s.loc), tomorrow.AddDays(WindowDays).Midnight(s.loc)
}

// Scan deletes every event in the window with at least one declined
// attendee and logs one record per declined attendee. A failed deletion is
// counted in Result.Failed and the scan moves on. When appending to the log
// fails the scan stops and the partial result is returned with the error.
func (s *Scanner) Scan(ctx context.Context, calendarID string, now time.Time) (*Result, error) {
	ctx, span := instrumentation.StartSpan(ctx, "declines.scan",
		instrumentation.NewSpanAttributeBuilder().WithCalendar(calendarID).Build()...)
	defer span.End()

	logger := logging.WithOperation(s.logger, "declines.scan").With(logging.Calendar(calendarID))

	timeMin, timeMax := s.Window(now)
	events, err := s.cal.ListEvents(ctx, calendarID, timeMin, timeMax)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return nil, fmt.Errorf("list events: %w", err)
	}

	result := &Result{Scanned: len(events), Deleted: []string{}, Failed: []string{}, Records: []Record{}}
	for _, ev := range events {
		declined := ev.DeclinedAttendees()
		if len(declined) == 0 {
			continue
		}

		if err := s.cal.DeleteEvent(ctx, calendarID, ev.ID); err != nil {
			s.metrics.RecordDeclinedDeleted(ctx, instrumentation.StatusError)
			result.Failed = append(result.Failed, ev.ID)
			level := slog.LevelError
			if errors.Is(err, calendar.ErrEventNotFound) {
				level = slog.LevelWarn
			}
			logger.Log(ctx, level, "failed to delete declined event", logging.Event(ev.ID), logging.Err(err))
			continue
		}

		s.metrics.RecordDeclinedDeleted(ctx, instrumentation.StatusSuccess)
		result.Deleted = append(result.Deleted, ev.ID)
		logger.Info("deleted declined event", logging.Event(ev.ID), slog.Int("declined", len(declined)))

		records := make([]Record, 0, len(declined))
		for _, email := range declined {
			records = append(records, Record{EventID: ev.ID, AttendeeEmail: email})
		}
		if err := s.log.Append(records); err != nil {
			instrumentation.SetSpanError(span, err)
			return result, fmt.Errorf("append decline records for %s: %w", ev.ID, err)
		}
		result.Records = append(result.Records, records...)
	}

	instrumentation.SetSpanSuccess(span)
	logger.Info("scan complete",
		slog.Int("scanned", result.Scanned),
		slog.Int("deleted", len(result.Deleted)),
		slog.Int("failed", len(result.Failed)))
	return result, nil
}
