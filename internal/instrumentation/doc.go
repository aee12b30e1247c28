// Package instrumentation wires OpenTelemetry metrics, tracing and the
// scheduling audit trail for meetslots.
//
// Metrics recorded by Metrics:
//   - slot_computations_total, slots_offered: availability lookups by source
//   - bookings_total: booking attempts by source and status
//   - emails_sent_total: meeting details and invitations by transport
//   - declined_events_deleted_total: events removed by the decline scanner
//   - google_api_operations_total, google_api_operation_duration_seconds
//   - mcp_tool_invocations_total, mcp_tool_duration_seconds
//   - http_requests_total, http_request_duration_seconds
//
// The Prometheus exporter uses a registry private to the Provider that also
// carries the Go runtime and process collectors. The metrics server in
// internal/server exposes it through PrometheusHandler.
//
// Spans are named tool.<name> for MCP tools, booking.<action> for the booking
// service and google.<service>.<operation> for Google API calls.
//
// AuditRecord and AuditLogger form the audit trail. Booking, invitation and
// duration changes are recorded by the booking service whatever surface
// called it, and MCP tool calls by the tool wrapper. Attendee addresses are
// reduced to their domain unless MEETSLOTS_AUDIT_LOG_PII is set.
//
// Configuration comes from ConfigFromEnv; see the Env* constants.
package instrumentation
