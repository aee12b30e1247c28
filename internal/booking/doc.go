// Package booking ties the slot calculator to the calendars and the mail
// sender.
//
// A Service reads two calendars for every lookup: the invitee's primary
// calendar and the organization calendar. Book creates the organization
// event first, with a new Google Meet conference; only when that succeeds
// are the invitee's event and the details email attempted, and their
// failures are reported on the Booking instead of failing the call.
//
// Propose implements the scheduling agent: it starts two days out and walks
// forward one day at a time until enough slots are found.
package booking
