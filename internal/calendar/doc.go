// Package calendar adapts the Google Calendar v3 API to the operations meetslots
// needs: listing a day's events, creating meetings with a Google Meet
// conference, and deleting events.
//
// Example usage:
//
//	client, err := calendar.NewClientForAccount(ctx, "org")
//	if err != nil {
//	    return err
//	}
//	start, end := cfg.DayBounds(day)
//	events, err := client.ListEvents(ctx, calendar.PrimaryCalendarID, start, end)
package calendar
