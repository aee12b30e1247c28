package mail

import (
	"fmt"
	"strings"
	"time"
)

// Subjects of the messages meetslots sends.
const (
	DetailsSubject    = "Event Details"
	InvitationSubject = "Proposed Event"
)

// TimeLayout renders meeting times in the details body.
const TimeLayout = "2006-01-02 15:04:05-07:00"

const responseFooter = "Please respond with Yes/No/Maybe directly from Google Calendar"

// Meeting carries the fields rendered into a meeting details email.
type Meeting struct {
	EventID  string
	Summary  string
	Start    time.Time
	End      time.Time
	MeetLink string
	// Password is included for the organization's confirmation when set.
	Password string
}

// DetailsBody renders the body of the meeting details email.
func DetailsBody(m Meeting) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Event: %s\n", m.Summary)
	fmt.Fprintf(&b, "Time: %s - %s\n", m.Start.Format(TimeLayout), m.End.Format(TimeLayout))
	fmt.Fprintf(&b, "Google Meet Link: %s", m.MeetLink)
	if m.Password != "" {
		fmt.Fprintf(&b, "\nPassword for organization email confirmation: %s", m.Password)
	}
	b.WriteString("\n\n")
	b.WriteString(responseFooter)
	b.WriteString("\n")
	return b.String()
}

// MeetingDetails builds the "Event Details" message with an attached invite.
func MeetingDetails(from, to string, m Meeting) Message {
	uid := m.EventID
	if uid == "" {
		uid = fmt.Sprintf("%d@meetslots", m.Start.Unix())
	}
	return Message{
		From:    from,
		To:      []string{to},
		Subject: DetailsSubject,
		Body:    DetailsBody(m),
		Invite: &Invite{
			UID:       uid,
			Summary:   m.Summary,
			URL:       m.MeetLink,
			Location:  m.MeetLink,
			Start:     m.Start,
			End:       m.End,
			Organizer: from,
			Attendees: []string{to},
		},
	}
}

// Invitation builds the "Proposed Event" message pointing at the booking page.
func Invitation(from, to, bookingURL string) Message {
	return Message{
		From:    from,
		To:      []string{to},
		Subject: InvitationSubject,
		Body:    fmt.Sprintf("You are invited to pick a meeting slot:\n%s\n", bookingURL),
	}
}
