// Package server provides the shared server context and the HTTP surfaces
// of meetslots.
//
// # Key Components
//
// ServerContext caches Google Calendar and Gmail clients per token account
// and holds the booking service and the decline scanner shared by the JSON
// API and the MCP tools. AccountCalendar and AccountMailer resolve clients
// lazily so services can be wired before an account has a token.
//
// NewRouter builds a chi router with request IDs, panic recovery, request
// metrics and the health endpoints. It optionally mounts the MCP
// streamable-HTTP handler at /mcp and the JSON API under /api/v1:
//
//	GET  /api/v1/slots?date=YYYY-MM-DD&account=NAME
//	POST /api/v1/bookings
//	GET  /api/v1/proposals?count=N
//	POST /api/v1/proposals/bookings
//	POST /api/v1/org/login
//	POST /api/v1/org/logout
//	GET  /api/v1/org/durations            (organization session)
//	PUT  /api/v1/org/durations/{date}     (organization session)
//	POST /api/v1/invitations              (organization session)
//	POST /api/v1/declines/scan            (organization session)
//
// # Organization Sessions
//
// SessionManager signs (and, with a block key, encrypts) the session cookie
// with gorilla/securecookie. Logins are throttled per client IP by
// IPRateLimiter.
//
// MetricsServer exposes Prometheus metrics on a dedicated port.
package server
