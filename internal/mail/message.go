package mail

import (
	"bytes"
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"net/mail"
	"net/textproto"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
)

// ErrInvalidMessage is returned when a message lacks a sender, recipient or subject.
var ErrInvalidMessage = errors.New("invalid message")

const productID = "-//meetslots//Meeting Scheduler//EN"

// Message is a plain-text email, optionally carrying a calendar invite.
type Message struct {
	From    string
	To      []string
	Subject string
	Body    string
	Invite  *Invite
}

// Invite describes the meeting attached to a message as an iCalendar part.
type Invite struct {
	UID         string
	Summary     string
	Description string
	Location    string
	URL         string
	Start       time.Time
	End         time.Time
	Organizer   string
	Attendees   []string
}

// Validate checks the message can be composed.
func (m Message) Validate() error {
	if _, err := mail.ParseAddress(m.From); err != nil {
		return fmt.Errorf("%w: sender %q: %v", ErrInvalidMessage, m.From, err)
	}
	if len(m.To) == 0 {
		return fmt.Errorf("%w: at least one recipient is required", ErrInvalidMessage)
	}
	for _, to := range m.To {
		if _, err := mail.ParseAddress(to); err != nil {
			return fmt.Errorf("%w: recipient %q: %v", ErrInvalidMessage, to, err)
		}
	}
	if m.Subject == "" {
		return fmt.Errorf("%w: subject is required", ErrInvalidMessage)
	}
	if m.Invite != nil && !m.Invite.Start.Before(m.Invite.End) {
		return fmt.Errorf("%w: invite must end after it starts", ErrInvalidMessage)
	}
	return nil
}

// Compose renders the message in RFC 5322 format. Messages with an invite
// become multipart/mixed with a text/calendar part.
func Compose(m Message, now time.Time) ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	writeHeader(&buf, "From", m.From)
	writeHeader(&buf, "To", strings.Join(m.To, ", "))
	writeHeader(&buf, "Subject", encodeRFC2047(m.Subject))
	writeHeader(&buf, "Date", now.Format(time.RFC1123Z))
	writeHeader(&buf, "MIME-Version", "1.0")

	if m.Invite == nil {
		writeHeader(&buf, "Content-Type", `text/plain; charset="UTF-8"`)
		writeHeader(&buf, "Content-Transfer-Encoding", "8bit")
		buf.WriteString("\r\n")
		buf.WriteString(normalizeNewlines(m.Body))
		return buf.Bytes(), nil
	}

	mw := multipart.NewWriter(&buf)
	writeHeader(&buf, "Content-Type", fmt.Sprintf("multipart/mixed; boundary=%q", mw.Boundary()))
	buf.WriteString("\r\n")

	text, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {`text/plain; charset="UTF-8"`},
		"Content-Transfer-Encoding": {"8bit"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create text part: %w", err)
	}
	if _, err := text.Write([]byte(normalizeNewlines(m.Body))); err != nil {
		return nil, fmt.Errorf("failed to write text part: %w", err)
	}

	cal, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {`text/calendar; method=REQUEST; charset="UTF-8"`},
		"Content-Transfer-Encoding": {"8bit"},
		"Content-Disposition":       {`attachment; filename="invite.ics"`},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar part: %w", err)
	}
	if _, err := cal.Write([]byte(RenderInvite(*m.Invite, now))); err != nil {
		return nil, fmt.Errorf("failed to write calendar part: %w", err)
	}

	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish message: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderInvite serializes an invite as an iCalendar REQUEST.
func RenderInvite(inv Invite, now time.Time) string {
	cal := ics.NewCalendar()
	cal.SetProductId(productID)
	cal.SetMethod(ics.MethodRequest)

	event := cal.AddEvent(inv.UID)
	event.SetDtStampTime(now.UTC())
	event.SetStartAt(inv.Start.UTC())
	event.SetEndAt(inv.End.UTC())
	event.SetSummary(inv.Summary)
	if inv.Description != "" {
		event.SetDescription(inv.Description)
	}
	if inv.Location != "" {
		event.SetLocation(inv.Location)
	}
	if inv.URL != "" {
		event.SetURL(inv.URL)
	}
	if inv.Organizer != "" {
		event.SetOrganizer("mailto:" + inv.Organizer)
	}
	for _, attendee := range inv.Attendees {
		event.AddAttendee(attendee)
	}
	return cal.Serialize()
}

func writeHeader(buf *bytes.Buffer, key, value string) {
	buf.WriteString(key)
	buf.WriteString(": ")
	buf.WriteString(value)
	buf.WriteString("\r\n")
}

// encodeRFC2047 encodes a header value containing non-ASCII characters.
func encodeRFC2047(s string) string {
	for _, r := range s {
		if r > 127 {
			return mime.BEncoding.Encode("UTF-8", s)
		}
	}
	return s
}

func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\n", "\r\n")
}
