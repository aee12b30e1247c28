// Package declines removes upcoming events that attendees have declined.
//
// A Scanner looks at the three days starting tomorrow, deletes each event
// with at least one declined attendee and records the declines in a CSV
// file with the columns "Event ID" and "Attendee Email".
package declines
