package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/teemow/meetslots/internal/calendar"
	"github.com/teemow/meetslots/internal/durations"
	"github.com/teemow/meetslots/internal/instrumentation"
	"github.com/teemow/meetslots/internal/mail"
	"github.com/teemow/meetslots/internal/slots"
)

var (
	// ErrOrgEventFailed is returned when the organization event could not be
	// created. Nothing was written to any calendar.
	ErrOrgEventFailed = errors.New("failed to create event in organization calendar")

	// ErrUnauthorized is returned when the organization password is wrong or
	// no password hash is configured.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrSlotUnavailable is returned when the requested slot is no longer free.
	ErrSlotUnavailable = errors.New("slot is no longer available")

	// ErrInvalidDate is returned for dates an operation does not accept.
	ErrInvalidDate = errors.New("invalid date")

	// ErrInvalidRequest is returned for malformed booking requests.
	ErrInvalidRequest = errors.New("invalid request")
)

// Defaults for the proposal agent and admin form constraints.
const (
	DefaultProposalCount      = 3
	DefaultProposalOffsetDays = 2
	DefaultMaxLookaheadDays   = 30
	DefaultAutoBookSummary    = "Interview"

	// DurationStep is the granularity of admin-configured slot durations.
	DurationStep = 15
)

// Calendar is the part of the calendar provider the service uses.
type Calendar interface {
	ListEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time) ([]calendar.EventSummary, error)
	CreateMeeting(ctx context.Context, calendarID string, input calendar.MeetingInput) (*calendar.EventSummary, error)
}

// CalendarProvider hands out an authenticated Calendar per token account.
type CalendarProvider interface {
	CalendarForAccount(ctx context.Context, account string) (Calendar, error)
}

// Config holds the settings the service needs beyond its collaborators.
type Config struct {
	Slots slots.Config

	OrgAccount      string
	OrgCalendarID   string
	OrgPasswordHash string

	MailFrom   string
	BookingURL string

	ProposalCount      int
	ProposalOffsetDays int
	MaxLookaheadDays   int
}

// Service orchestrates availability lookups, bookings and admin actions.
type Service struct {
	cfg       Config
	calendars CalendarProvider
	durations durations.Store
	sender    mail.Sender
	logger    *slog.Logger
	metrics   *instrumentation.Metrics
	audit     *instrumentation.AuditLogger
	now       func() time.Time
}

// NewService creates a Service. Zero proposal settings take their defaults.
func NewService(cfg Config, calendars CalendarProvider, store durations.Store, sender mail.Sender, logger *slog.Logger) (*Service, error) {
	if err := cfg.Slots.Validate(); err != nil {
		return nil, err
	}
	if calendars == nil {
		return nil, fmt.Errorf("calendar provider is required")
	}
	if store == nil {
		return nil, fmt.Errorf("duration store is required")
	}
	if sender == nil {
		return nil, fmt.Errorf("mail sender is required")
	}
	if cfg.OrgCalendarID == "" {
		cfg.OrgCalendarID = calendar.PrimaryCalendarID
	}
	if cfg.ProposalCount <= 0 {
		cfg.ProposalCount = DefaultProposalCount
	}
	if cfg.ProposalOffsetDays <= 0 {
		cfg.ProposalOffsetDays = DefaultProposalOffsetDays
	}
	if cfg.MaxLookaheadDays <= 0 {
		cfg.MaxLookaheadDays = DefaultMaxLookaheadDays
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		cfg:       cfg,
		calendars: calendars,
		durations: store,
		sender:    sender,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// SetMetrics sets the metrics recorder. A nil recorder disables metrics.
func (s *Service) SetMetrics(m *instrumentation.Metrics) {
	s.metrics = m
}

// SetAuditLogger sets the audit trail for bookings, invitations and
// duration changes. A nil logger disables it.
func (s *Service) SetAuditLogger(al *instrumentation.AuditLogger) {
	s.audit = al
}

// SetClock replaces the time source.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Config returns the service configuration with defaults applied.
func (s *Service) Config() Config {
	return s.cfg
}

// Today returns the current date in the configured time zone.
func (s *Service) Today() slots.Date {
	return s.cfg.Slots.Today(s.now())
}

type sourceKey struct{}

// WithSource tags ctx with the surface an operation was invoked from.
// It is used as the source label on scheduling metrics.
func WithSource(ctx context.Context, source string) context.Context {
	return context.WithValue(ctx, sourceKey{}, source)
}

func sourceFrom(ctx context.Context) string {
	if source, ok := ctx.Value(sourceKey{}).(string); ok && source != "" {
		return source
	}
	return instrumentation.SourceCLI
}

func (s *Service) beginAudit(ctx context.Context, kind, action string) *instrumentation.AuditRecord {
	return instrumentation.BeginAudit(ctx, kind, action).From(sourceFrom(ctx))
}

func statusOf(err error) string {
	if err != nil {
		return instrumentation.StatusError
	}
	return instrumentation.StatusSuccess
}
