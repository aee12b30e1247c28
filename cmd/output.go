package cmd

import (
	"fmt"
	"io"
	"sort"

	"github.com/teemow/meetslots/internal/booking"
	"github.com/teemow/meetslots/internal/declines"
	"github.com/teemow/meetslots/internal/slots"
)

// parseDayFlag parses a YYYY-MM-DD flag value. An empty value means today.
func parseDayFlag(value string, svc *booking.Service) (slots.Date, error) {
	if value == "" {
		return svc.Today(), nil
	}
	day, err := slots.ParseDate(value)
	if err != nil {
		return slots.Date{}, fmt.Errorf("invalid --date %q: %w", value, err)
	}
	return day, nil
}

func printAvailability(w io.Writer, avail *booking.Availability) {
	if len(avail.Slots) == 0 {
		fmt.Fprintf(w, "No free %d-minute slots on %s.\n", avail.DurationMinutes, avail.Day)
		return
	}
	fmt.Fprintf(w, "Free %d-minute slots on %s:\n", avail.DurationMinutes, avail.Day)
	for _, s := range avail.Slots {
		fmt.Fprintf(w, "  %s - %s\n", s.Start.Format("15:04"), s.End.Format("15:04"))
	}
}

func printProposals(w io.Writer, proposals []booking.Proposal) {
	if len(proposals) == 0 {
		fmt.Fprintln(w, "No free slots found.")
		return
	}
	for i, p := range proposals {
		fmt.Fprintf(w, "%d. %s %s - %s\n", i+1, p.Day,
			p.Slot.Start.Format("15:04"), p.Slot.End.Format("15:04"))
	}
}

func printBooking(w io.Writer, b *booking.Booking) {
	fmt.Fprintf(w, "Booked %s\n", b.Slot)
	fmt.Fprintf(w, "  Organization event: %s\n", b.OrgEventID)
	if b.UserEventID != "" {
		fmt.Fprintf(w, "  Invitee event:      %s\n", b.UserEventID)
	}
	if b.MeetLink != "" {
		fmt.Fprintf(w, "  Meet link:          %s\n", b.MeetLink)
	}
	if b.EmailSent {
		fmt.Fprintln(w, "  Meeting details were emailed to the invitee.")
	}
	if b.UserEventError != "" {
		fmt.Fprintf(w, "  Warning: invitee calendar not updated: %s\n", b.UserEventError)
	}
	if b.EmailError != "" {
		fmt.Fprintf(w, "  Warning: email not sent: %s\n", b.EmailError)
	}
}

func printDurations(w io.Writer, defaultMinutes int, all map[string]int) {
	fmt.Fprintf(w, "Default slot duration: %d minutes\n", defaultMinutes)
	days := make([]string, 0, len(all))
	for day := range all {
		days = append(days, day)
	}
	sort.Strings(days)
	for _, day := range days {
		fmt.Fprintf(w, "%s: %d minutes\n", day, all[day])
	}
}

func printDeclineRecords(w io.Writer, path string, records []declines.Record) {
	if len(records) == 0 {
		fmt.Fprintf(w, "No declined attendees logged in %s.\n", path)
		return
	}
	fmt.Fprintf(w, "%d declined attendees logged in %s:\n", len(records), path)
	for _, r := range records {
		fmt.Fprintf(w, "  %s  %s\n", r.EventID, r.AttendeeEmail)
	}
}
