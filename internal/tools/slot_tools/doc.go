// Package slot_tools provides the MCP tools for finding and booking meeting
// slots and for the organization's admin actions.
//
// Read-only tools:
//   - slots_find: free slots of one day
//   - slots_propose: the next free slots starting two days out
//
// Write tools, registered unless the server runs read-only:
//   - slots_book, slots_auto_book: book a slot
//   - slots_set_duration, slots_list_durations: per-day slot lengths
//   - slots_invite: email the booking page link
//   - declines_scan: delete upcoming events with declined attendees
//
// Admin tools take the organization password as an argument.
package slot_tools
