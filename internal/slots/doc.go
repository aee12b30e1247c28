// Package slots computes bookable meeting slots for a single day.
//
// Busy intervals from two calendars are merged, clipped to the configured
// working-day envelope and the remaining gaps are cut into fixed-length
// slots. The computation is pure: the current time is passed in by the
// caller, which keeps results reproducible in tests.
//
// Example usage:
//
//	cfg := slots.DefaultConfig()
//	day, _ := slots.ParseDate("2025-03-14")
//	free, err := slots.Compute(userBusy, orgBusy, day, 30, cfg, time.Now())
//	if err != nil {
//	    log.Fatal(err)
//	}
package slots
