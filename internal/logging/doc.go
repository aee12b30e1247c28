// Package logging provides structured logging helpers for meetslots.
//
// All components log through log/slog. This package keeps attribute names
// consistent (account, calendar, day, event_id) and keeps invitee addresses
// out of operational logs.
//
// # Usage Patterns
//
// Create a logger with standard attributes:
//
//	logger := logging.WithOperation(slog.Default(), "booking.availability")
//	logger.Info("computed free slots",
//	    logging.Day(day),
//	    logging.SlotCount(len(free)))
//
// Anonymize invitee addresses before logging:
//
//	logger.Info("meeting booked",
//	    logging.UserHash(email))
//
// # Security Considerations
//
//   - Invitee emails are hashed to prevent PII leakage while allowing correlation
//   - OAuth tokens are never logged
package logging
