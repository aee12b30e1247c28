package slots

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/teemow/meetslots/internal/logging"
)

// ParseInterval parses a provider busy entry with RFC 3339 endpoints.
func ParseInterval(raw RawInterval) (Interval, error) {
	start, err := time.Parse(time.RFC3339, raw.Start)
	if err != nil {
		return Interval{}, fmt.Errorf("%w: start %q: %v", ErrMalformedInterval, raw.Start, err)
	}
	end, err := time.Parse(time.RFC3339, raw.End)
	if err != nil {
		return Interval{}, fmt.Errorf("%w: end %q: %v", ErrMalformedInterval, raw.End, err)
	}
	if !start.Before(end) {
		return Interval{}, fmt.Errorf("%w: end %s is not after start %s", ErrMalformedInterval, raw.End, raw.Start)
	}
	return Interval{Start: start, End: end}, nil
}

// ParseIntervals converts provider entries into busy intervals.
//
// Entries missing either endpoint (all-day events) are skipped silently.
// Malformed entries are logged as warnings and skipped; they never fail
// the whole computation.
func ParseIntervals(raw []RawInterval, logger *slog.Logger) []Interval {
	if logger == nil {
		logger = slog.Default()
	}

	intervals := make([]Interval, 0, len(raw))
	for _, r := range raw {
		if r.Start == "" || r.End == "" {
			continue
		}
		iv, err := ParseInterval(r)
		if err != nil {
			logger.Warn("skipping busy interval", logging.Err(err))
			continue
		}
		intervals = append(intervals, iv)
	}
	return intervals
}
