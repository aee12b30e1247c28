package google

import (
	calendar "google.golang.org/api/calendar/v3"
	gmail "google.golang.org/api/gmail/v1"
)

// DefaultOAuthScopes are the scopes requested for every account: calendar
// read/write for availability and booking, and send-only Gmail access for
// meeting notifications.
var DefaultOAuthScopes = []string{
	calendar.CalendarScope,
	gmail.GmailSendScope,
}
