package logging

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
)

// Attribute keys shared by every component.
const (
	KeyOperation = "operation"
	KeyAccount   = "account"
	KeyCalendar  = "calendar"
	KeyDay       = "day"
	KeyEvent     = "event_id"
	KeySlot      = "slot"
	KeySlots     = "slots"
	KeyUserHash  = "user_hash"
	KeyDuration  = "duration_minutes"
	KeyError     = "error"
)

// NewLogger builds the process logger. Format is "text" or "json"; anything
// else falls back to text.
func NewLogger(w io.Writer, format string, debug bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if debug {
		opts.Level = slog.LevelDebug
	}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// WithOperation scopes logger to one operation, e.g. "booking.book".
func WithOperation(logger *slog.Logger, operation string) *slog.Logger {
	return logger.With(Operation(operation))
}

func Operation(op string) slog.Attr { return slog.String(KeyOperation, op) }

func Account(account string) slog.Attr { return slog.String(KeyAccount, account) }

func Calendar(id string) slog.Attr { return slog.String(KeyCalendar, id) }

func Event(id string) slog.Attr { return slog.String(KeyEvent, id) }

func SlotCount(n int) slog.Attr { return slog.Int(KeySlots, n) }

func DurationMinutes(minutes int) slog.Attr { return slog.Int(KeyDuration, minutes) }

// Day logs a calendar date through its String method.
func Day(day fmt.Stringer) slog.Attr {
	return slog.String(KeyDay, day.String())
}

// Slot logs a meeting interval as a group with RFC 3339 start and end.
func Slot(start, end time.Time) slog.Attr {
	return slog.Group(KeySlot,
		slog.String("start", start.Format(time.RFC3339)),
		slog.String("end", end.Format(time.RFC3339)),
	)
}

// Err logs err under KeyError. A nil error yields an empty group, which
// handlers drop, so Err(maybeNil) is always safe.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Group("")
	}
	return slog.String(KeyError, err.Error())
}

// AnonymizeEmail maps an address to a stable short hash so log lines about
// the same invitee can be correlated without storing the address.
func AnonymizeEmail(email string) string {
	if email == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(email))))
	return "user:" + hex.EncodeToString(sum[:8])
}

// UserHash logs the anonymized form of email.
func UserHash(email string) slog.Attr {
	return slog.String(KeyUserHash, AnonymizeEmail(email))
}
