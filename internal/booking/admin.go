package booking

import (
	"context"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/teemow/meetslots/internal/durations"
	"github.com/teemow/meetslots/internal/instrumentation"
	"github.com/teemow/meetslots/internal/logging"
	"github.com/teemow/meetslots/internal/slots"
)

// AuthorizeOrg checks password against the configured organization hash.
func (s *Service) AuthorizeOrg(password string) error {
	if s.cfg.OrgPasswordHash == "" {
		return fmt.Errorf("%w: no organization password configured", ErrUnauthorized)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.cfg.OrgPasswordHash), []byte(password)); err != nil {
		return ErrUnauthorized
	}
	return nil
}

// SetSlotDuration stores the slot length for day. The day must not be in the
// past and minutes must be a positive multiple of DurationStep.
func (s *Service) SetSlotDuration(ctx context.Context, day slots.Date, minutes int) (err error) {
	record := s.beginAudit(ctx, instrumentation.AuditDuration, "booking.set_duration").ForDay(day.String())
	defer func() { s.audit.Record(ctx, record.Finish(err)) }()

	if day.IsZero() {
		return fmt.Errorf("%w: date is required", ErrInvalidDate)
	}
	if today := s.Today(); day.Before(today) {
		return fmt.Errorf("%w: %s is before today (%s)", ErrInvalidDate, day, today)
	}
	if minutes < DurationStep || minutes%DurationStep != 0 {
		return fmt.Errorf("%w: %d is not a multiple of %d minutes", durations.ErrInvalidDuration, minutes, DurationStep)
	}

	if err := s.durations.Save(ctx, day, minutes); err != nil {
		return fmt.Errorf("save slot duration: %w", err)
	}

	logging.WithOperation(s.logger, "booking.set_duration").Info("slot duration saved",
		logging.Day(day),
		logging.DurationMinutes(minutes))
	return nil
}

// SlotDuration returns the slot length in effect for day.
func (s *Service) SlotDuration(ctx context.Context, day slots.Date) (int, error) {
	return s.durations.Load(ctx, day)
}

// SlotDurations returns every stored slot length keyed by YYYY-MM-DD.
func (s *Service) SlotDurations(ctx context.Context) (map[string]int, error) {
	return s.durations.All(ctx)
}
