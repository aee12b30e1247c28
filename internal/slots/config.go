package slots

import (
	"fmt"
	"time"
)

// Defaults for the working-day envelope and slot lengths.
const (
	DefaultTimezone            = "Asia/Kolkata"
	DefaultSlotDuration        = 60
	DefaultDefaultSlotDuration = 60
)

var (
	DefaultWorkStart = Clock{Hour: 9}
	DefaultWorkEnd   = Clock{Hour: 17}
)

// Config describes the working-day envelope slots are computed in.
type Config struct {
	// WorkStart and WorkEnd bound every working day.
	WorkStart Clock
	WorkEnd   Clock

	// Location is the time zone working hours are interpreted in.
	Location *time.Location

	// SlotDuration is the meeting length in minutes used by automatic proposals.
	SlotDuration int

	// DefaultSlotDuration is returned for days without a stored duration.
	DefaultSlotDuration int
}

// DefaultConfig returns the 09:00-17:00 Asia/Kolkata envelope with 60 minute slots.
// If the time zone database is unavailable the location falls back to UTC.
func DefaultConfig() Config {
	loc, err := time.LoadLocation(DefaultTimezone)
	if err != nil {
		loc = time.UTC
	}
	return Config{
		WorkStart:           DefaultWorkStart,
		WorkEnd:             DefaultWorkEnd,
		Location:            loc,
		SlotDuration:        DefaultSlotDuration,
		DefaultSlotDuration: DefaultDefaultSlotDuration,
	}
}

// Validate checks the envelope and both slot lengths are usable.
func (c Config) Validate() error {
	if err := c.validateEnvelope(); err != nil {
		return err
	}
	if c.SlotDuration <= 0 {
		return fmt.Errorf("%w: slot duration must be positive, got %d", ErrInvalidConfiguration, c.SlotDuration)
	}
	if c.DefaultSlotDuration <= 0 {
		return fmt.Errorf("%w: default slot duration must be positive, got %d", ErrInvalidConfiguration, c.DefaultSlotDuration)
	}
	return nil
}

func (c Config) validateEnvelope() error {
	if c.Location == nil {
		return fmt.Errorf("%w: time zone is not set", ErrInvalidConfiguration)
	}
	if c.WorkStart.Hour < 0 || c.WorkStart.Hour > 23 || c.WorkEnd.Hour < 0 || c.WorkEnd.Hour > 23 {
		return fmt.Errorf("%w: working hours must be within a single day", ErrInvalidConfiguration)
	}
	if c.WorkEnd.minutes() <= c.WorkStart.minutes() {
		return fmt.Errorf("%w: working day must end after it starts (%s-%s)", ErrInvalidConfiguration, c.WorkStart, c.WorkEnd)
	}
	if c.WorkStart.Minute < 0 || c.WorkStart.Minute > 59 || c.WorkEnd.Minute < 0 || c.WorkEnd.Minute > 59 {
		return fmt.Errorf("%w: invalid minute in working hours", ErrInvalidConfiguration)
	}
	return nil
}

// WorkingHours returns the start and end of the working day on day.
func (c Config) WorkingHours(day Date) (time.Time, time.Time) {
	return day.At(c.WorkStart, c.Location), day.At(c.WorkEnd, c.Location)
}

// DayBounds returns [00:00, next 00:00) of day in the configured location.
func (c Config) DayBounds(day Date) (time.Time, time.Time) {
	return day.Midnight(c.Location), day.AddDays(1).Midnight(c.Location)
}

// Today returns the date of now in the configured location.
func (c Config) Today(now time.Time) Date {
	return DateOf(now.In(c.Location))
}
