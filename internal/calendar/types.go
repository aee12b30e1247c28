package calendar

import (
	"time"

	calendar "google.golang.org/api/calendar/v3"

	"github.com/teemow/meetslots/internal/slots"
)

// Response statuses reported for event attendees.
const (
	ResponseAccepted    = "accepted"
	ResponseDeclined    = "declined"
	ResponseTentative   = "tentative"
	ResponseNeedsAction = "needsAction"
)

// Defaults applied by CreateMeeting when the input leaves them empty.
const (
	DefaultLocation    = "Office"
	DefaultDescription = "A meeting"
)

const (
	conferenceSolutionMeet = "hangoutsMeet"
	entryPointVideo        = "video"
)

// MeetingInput describes a meeting to create.
type MeetingInput struct {
	Summary     string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
	// TimeZone is the IANA name sent alongside start and end.
	TimeZone  string
	Attendees []string
	// MeetLink attaches an existing conference link instead of requesting a
	// new Google Meet conference.
	MeetLink string
}

// EventSummary represents a simplified calendar event.
type EventSummary struct {
	ID          string
	Summary     string
	Description string
	Location    string
	Status      string
	Start       time.Time
	End         time.Time
	// RawStart and RawEnd are the provider's dateTime strings, empty for
	// all-day events.
	RawStart  string
	RawEnd    string
	Organizer string
	Attendees []AttendeeInfo
	MeetLink  string
	HTMLLink  string
}

// AttendeeInfo represents information about an event attendee
type AttendeeInfo struct {
	Email          string
	DisplayName    string
	ResponseStatus string
	Organizer      bool
}

// Busy returns the event as a raw busy interval for the slot calculator.
func (e EventSummary) Busy() slots.RawInterval {
	return slots.RawInterval{Start: e.RawStart, End: e.RawEnd}
}

// DeclinedAttendees returns the emails of attendees who declined the event.
func (e EventSummary) DeclinedAttendees() []string {
	var declined []string
	for _, att := range e.Attendees {
		if att.ResponseStatus == ResponseDeclined {
			declined = append(declined, att.Email)
		}
	}
	return declined
}

// BusyIntervals converts a list of events into raw busy intervals.
func BusyIntervals(events []EventSummary) []slots.RawInterval {
	raw := make([]slots.RawInterval, 0, len(events))
	for _, ev := range events {
		raw = append(raw, ev.Busy())
	}
	return raw
}

// toEventSummary converts a Google Calendar event to an EventSummary
func toEventSummary(event *calendar.Event) EventSummary {
	if event == nil {
		return EventSummary{}
	}

	summary := EventSummary{
		ID:          event.Id,
		Summary:     event.Summary,
		Description: event.Description,
		Location:    event.Location,
		Status:      event.Status,
		HTMLLink:    event.HtmlLink,
	}

	if event.Start != nil {
		summary.RawStart = event.Start.DateTime
		summary.Start = parseEventTime(event.Start)
	}
	if event.End != nil {
		summary.RawEnd = event.End.DateTime
		summary.End = parseEventTime(event.End)
	}

	if event.Organizer != nil {
		summary.Organizer = event.Organizer.Email
	}

	for _, att := range event.Attendees {
		if att == nil {
			continue
		}
		summary.Attendees = append(summary.Attendees, AttendeeInfo{
			Email:          att.Email,
			DisplayName:    att.DisplayName,
			ResponseStatus: att.ResponseStatus,
			Organizer:      att.Organizer,
		})
	}

	summary.MeetLink = meetLink(event)
	return summary
}

// parseEventTime returns the zero time when the value cannot be parsed.
func parseEventTime(dt *calendar.EventDateTime) time.Time {
	if dt.DateTime != "" {
		if t, err := time.Parse(time.RFC3339, dt.DateTime); err == nil {
			return t
		}
		return time.Time{}
	}
	if dt.Date != "" {
		if t, err := time.Parse(slots.DateLayout, dt.Date); err == nil {
			return t
		}
	}
	return time.Time{}
}

// meetLink prefers the hangout link and falls back to the first video entry point.
func meetLink(event *calendar.Event) string {
	if event.HangoutLink != "" {
		return event.HangoutLink
	}
	if event.ConferenceData == nil {
		return ""
	}
	for _, ep := range event.ConferenceData.EntryPoints {
		if ep != nil && ep.EntryPointType == entryPointVideo {
			return ep.Uri
		}
	}
	return ""
}
