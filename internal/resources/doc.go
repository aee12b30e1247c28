// Package resources provides MCP resources describing the booking setup.
// Resources are read-only data sources that MCP clients can fetch before
// calling the slot tools, such as the working hours and the slot duration
// configured for a day.
package resources
