// Package cmd implements the command-line interface for meetslots.
//
// This package provides the following commands:
//   - slots: List free slots for a day
//   - book: Book a slot as a Google Meet event
//   - propose: Propose the earliest free slots and optionally book one
//   - invite: Email the booking page link to a candidate
//   - duration: Set, get and list per-day slot durations
//   - declines: Delete upcoming events with declined attendees
//   - auth: Authorize Google accounts
//   - serve: Start the MCP server and the JSON booking API
//   - generate-docs: Generate markdown documentation for all MCP tools
//   - version: Display version information
//
// Commands read their configuration from MEETSLOTS_* environment variables.
package cmd
