package slots

import (
	"fmt"
	"sort"
	"time"
)

// gap is a free window between busy intervals. Its end may lie beyond the
// working day; slicing clips it.
type gap struct {
	start time.Time
	end   time.Time
}

// Compute returns the free slots of slotDuration minutes on day.
//
// Busy intervals from both calendars are merged and swept in start order.
// On the current day (in cfg.Location) the sweep starts at the later of now
// and the start of the working day. Every slot starts strictly after now, so
// on past days the result is always empty. Slots are returned in
// chronological order and never overlap a busy interval.
func Compute(busyA, busyB []Interval, day Date, slotDuration int, cfg Config, now time.Time) ([]Slot, error) {
	if slotDuration <= 0 {
		return nil, fmt.Errorf("%w: slot duration must be positive, got %d", ErrInvalidConfiguration, slotDuration)
	}
	if err := cfg.validateEnvelope(); err != nil {
		return nil, err
	}

	workStart, workEnd := cfg.WorkingHours(day)
	now = now.In(cfg.Location)

	busy := mergeBusy(busyA, busyB, cfg.Location)

	cursor := workStart
	if DateOf(now) == day && now.After(workStart) {
		cursor = now
	}

	var gaps []gap
	for _, iv := range busy {
		if iv.Start.After(cursor) {
			gaps = append(gaps, gap{start: cursor, end: iv.Start})
		}
		if iv.End.After(cursor) {
			cursor = iv.End
		}
	}
	if cursor.Before(workEnd) {
		gaps = append(gaps, gap{start: cursor, end: workEnd})
	}

	length := time.Duration(slotDuration) * time.Minute
	var free []Slot
	for _, g := range gaps {
		for start := g.start; ; start = start.Add(length) {
			end := start.Add(length)
			if end.After(g.end) || end.After(workEnd) {
				break
			}
			if start.After(now) {
				free = append(free, Slot{Start: start, End: end})
			}
		}
	}

	return free, nil
}

// mergeBusy concatenates both lists, drops invalid entries, normalizes
// endpoints into loc and sorts by start time.
func mergeBusy(busyA, busyB []Interval, loc *time.Location) []Interval {
	merged := make([]Interval, 0, len(busyA)+len(busyB))
	for _, list := range [][]Interval{busyA, busyB} {
		for _, iv := range list {
			if !iv.Valid() {
				continue
			}
			merged = append(merged, Interval{Start: iv.Start.In(loc), End: iv.End.In(loc)})
		}
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Start.Before(merged[j].Start)
	})
	return merged
}
