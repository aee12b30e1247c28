package instrumentation

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// Audit record kinds.
const (
	AuditTool     = "tool"
	AuditBooking  = "booking"
	AuditInvite   = "invite"
	AuditDuration = "duration"
)

// AuditRecord is one entry of the scheduling audit trail: who touched the
// calendars, through which surface and with what outcome.
//
// Attendee holds an email address. Unless the AuditLogger is configured to
// include PII only its domain is written.
type AuditRecord struct {
	Kind   string
	Action string // tool name, or booking.book, booking.auto_book, ...
	Source string // mcp, http, cli

	Account  string
	Attendee string
	Day      string

	Service   string
	Operation string

	Started time.Time
	Elapsed time.Duration
	OK      bool
	Err     string

	TraceID string
	SpanID  string
}

// BeginAudit starts a record for action and picks up the active span from ctx.
func BeginAudit(ctx context.Context, kind, action string) *AuditRecord {
	r := &AuditRecord{Kind: kind, Action: action, Started: time.Now()}
	if sc := trace.SpanFromContext(ctx).SpanContext(); sc.IsValid() {
		r.TraceID = sc.TraceID().String()
		r.SpanID = sc.SpanID().String()
	}
	return r
}

// From sets the surface the action was invoked from.
func (r *AuditRecord) From(source string) *AuditRecord {
	r.Source = source
	return r
}

// ForAccount sets the Google account the action ran against.
func (r *AuditRecord) ForAccount(account string) *AuditRecord {
	r.Account = account
	return r
}

// ForAttendee sets the invitee address.
func (r *AuditRecord) ForAttendee(email string) *AuditRecord {
	r.Attendee = email
	return r
}

// ForDay sets the calendar day (YYYY-MM-DD) the action concerned.
func (r *AuditRecord) ForDay(day string) *AuditRecord {
	r.Day = day
	return r
}

// Via records the Google service and operation behind the action.
func (r *AuditRecord) Via(service, operation string) *AuditRecord {
	r.Service = service
	r.Operation = operation
	return r
}

// Finish stops the clock. A nil err marks the record successful.
func (r *AuditRecord) Finish(err error) *AuditRecord {
	r.Elapsed = time.Since(r.Started)
	r.OK = err == nil
	if err != nil {
		r.Err = err.Error()
	}
	return r
}

// Reject stops the clock and marks the record failed with reason.
// Tools use it when they return an error result instead of a Go error.
func (r *AuditRecord) Reject(reason string) *AuditRecord {
	r.Elapsed = time.Since(r.Started)
	r.OK = false
	r.Err = reason
	return r
}

// Status returns StatusSuccess or StatusError.
func (r *AuditRecord) Status() string {
	if r.OK {
		return StatusSuccess
	}
	return StatusError
}

// AttendeeDomain returns the domain of the attendee address, or "unknown".
func (r *AuditRecord) AttendeeDomain() string {
	return emailDomain(r.Attendee)
}

func (r *AuditRecord) attrs(includePII bool) []any {
	args := []any{
		slog.String("kind", r.Kind),
		slog.String("action", r.Action),
		slog.Duration("elapsed", r.Elapsed),
		slog.String("status", r.Status()),
	}
	optional := func(key, value string) {
		if value != "" {
			args = append(args, slog.String(key, value))
		}
	}

	optional("source", r.Source)
	optional("account", r.Account)
	if r.Attendee != "" {
		if includePII {
			args = append(args, slog.String("attendee", r.Attendee))
		} else {
			args = append(args, slog.String("attendee_domain", r.AttendeeDomain()))
		}
	}
	optional("day", r.Day)
	optional("service", r.Service)
	optional("operation", r.Operation)
	optional("trace_id", r.TraceID)
	if includePII {
		optional("span_id", r.SpanID)
	}
	optional("error", r.Err)
	return args
}

func emailDomain(email string) string {
	_, domain, ok := strings.Cut(email, "@")
	if !ok || domain == "" || strings.Contains(domain, "@") {
		return "unknown"
	}
	return domain
}

// AuditLogger writes audit records through slog. A nil *AuditLogger is valid
// and drops everything, so callers need no checks.
type AuditLogger struct {
	logger     *slog.Logger
	level      slog.Level
	includePII bool
	enabled    bool
}

// NewAuditLogger creates an AuditLogger. A nil logger uses slog.Default().
// Successful records are written at cfg.LogLevel, failed ones at WARN or
// above.
func NewAuditLogger(logger *slog.Logger, cfg AuditLoggingConfig) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	level := slog.LevelInfo
	if cfg.LogLevel != "" {
		if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
			level = slog.LevelInfo
		}
	}
	return &AuditLogger{
		logger:     logger.With(slog.String("log_type", "audit")),
		level:      level,
		includePII: cfg.IncludePII,
		enabled:    cfg.Enabled,
	}
}

// Enabled reports whether records are written.
func (al *AuditLogger) Enabled() bool {
	return al != nil && al.enabled
}

// Record writes r. Records that were never finished are finished as
// successful first.
func (al *AuditLogger) Record(ctx context.Context, r *AuditRecord) {
	if !al.Enabled() || r == nil {
		return
	}
	if r.Elapsed == 0 && r.Err == "" && !r.OK {
		r.Finish(nil)
	}

	level, msg := al.level, r.Kind+"_succeeded"
	if !r.OK {
		level, msg = max(al.level, slog.LevelWarn), r.Kind+"_failed"
	}
	al.logger.Log(ctx, level, msg, r.attrs(al.includePII)...)
}
