package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/teemow/meetslots/internal/calendar"
	"github.com/teemow/meetslots/internal/instrumentation"
	"github.com/teemow/meetslots/internal/logging"
	"github.com/teemow/meetslots/internal/slots"
)

// Availability is the result of a free-slot lookup for one day.
type Availability struct {
	Day             slots.Date   `json:"date"`
	DurationMinutes int          `json:"duration_minutes"`
	Slots           []slots.Slot `json:"slots"`
}

// Proposal is a slot offered by the scheduling agent.
type Proposal struct {
	Day  slots.Date `json:"date"`
	Slot slots.Slot `json:"slot"`
}

// calendars holds the two calendars every lookup reads.
type calendars struct {
	user Calendar
	org  Calendar
}

func (s *Service) openCalendars(ctx context.Context, account string) (calendars, error) {
	user, err := s.calendars.CalendarForAccount(ctx, account)
	if err != nil {
		return calendars{}, fmt.Errorf("calendar for account %s: %w", account, err)
	}
	org := user
	if account != s.cfg.OrgAccount {
		org, err = s.calendars.CalendarForAccount(ctx, s.cfg.OrgAccount)
		if err != nil {
			return calendars{}, fmt.Errorf("organization calendar: %w", err)
		}
	}
	return calendars{user: user, org: org}, nil
}

// busy lists the user's primary calendar and the organization calendar for
// day and returns both sets of busy intervals.
func (s *Service) busy(ctx context.Context, cals calendars, day slots.Date) ([]slots.Interval, []slots.Interval, error) {
	timeMin, timeMax := s.cfg.Slots.DayBounds(day)

	userEvents, err := cals.user.ListEvents(ctx, calendar.PrimaryCalendarID, timeMin, timeMax)
	if err != nil {
		return nil, nil, fmt.Errorf("list user events: %w", err)
	}
	orgEvents, err := cals.org.ListEvents(ctx, s.cfg.OrgCalendarID, timeMin, timeMax)
	if err != nil {
		return nil, nil, fmt.Errorf("list organization events: %w", err)
	}

	return slots.ParseIntervals(calendar.BusyIntervals(userEvents), s.logger),
		slots.ParseIntervals(calendar.BusyIntervals(orgEvents), s.logger), nil
}

func (s *Service) freeSlots(ctx context.Context, cals calendars, day slots.Date, minutes int) ([]slots.Slot, error) {
	busyUser, busyOrg, err := s.busy(ctx, cals, day)
	if err != nil {
		return nil, err
	}
	return slots.Compute(busyUser, busyOrg, day, minutes, s.cfg.Slots, s.now())
}

// Availability returns the free slots on day for account, using the slot
// duration stored for that day.
func (s *Service) Availability(ctx context.Context, account string, day slots.Date) (result *Availability, err error) {
	ctx, span := instrumentation.StartSpan(ctx, "booking.availability",
		instrumentation.NewSpanAttributeBuilder().WithAccount(account).WithDay(day.String()).Build()...)
	defer span.End()

	var found int
	defer func() {
		s.metrics.RecordSlotComputation(ctx, sourceFrom(ctx), statusOf(err), found)
		instrumentation.SetSlotCount(span, found)
		if err != nil {
			instrumentation.SetSpanError(span, err)
			return
		}
		instrumentation.SetSpanSuccess(span)
	}()

	minutes, err := s.durations.Load(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("load slot duration: %w", err)
	}

	cals, err := s.openCalendars(ctx, account)
	if err != nil {
		return nil, err
	}

	free, err := s.freeSlots(ctx, cals, day, minutes)
	if err != nil {
		return nil, err
	}
	found = len(free)

	logging.WithOperation(s.logger, "booking.availability").Debug("computed free slots",
		logging.Account(account),
		logging.Day(day),
		logging.DurationMinutes(minutes),
		logging.SlotCount(found))

	return &Availability{Day: day, DurationMinutes: minutes, Slots: free}, nil
}

// SlotAt returns the slot starting at the given time of day on day, sized by
// the duration stored for that day.
func (s *Service) SlotAt(ctx context.Context, day slots.Date, start slots.Clock) (slots.Slot, error) {
	minutes, err := s.durations.Load(ctx, day)
	if err != nil {
		return slots.Slot{}, fmt.Errorf("load slot duration: %w", err)
	}
	begin := day.At(start, s.cfg.Slots.Location)
	return slots.Slot{Start: begin, End: begin.Add(time.Duration(minutes) * time.Minute)}, nil
}

// Propose walks forward from ProposalOffsetDays after today and collects up
// to count slots of the configured slot duration. It gives up after
// MaxLookaheadDays days and returns what it found.
func (s *Service) Propose(ctx context.Context, account string, count int) (proposals []Proposal, err error) {
	if count <= 0 {
		count = s.cfg.ProposalCount
	}

	ctx, span := instrumentation.StartSpan(ctx, "booking.propose",
		instrumentation.NewSpanAttributeBuilder().WithAccount(account).Build()...)
	defer span.End()
	defer func() {
		s.metrics.RecordSlotComputation(ctx, sourceFrom(ctx), statusOf(err), len(proposals))
		if err != nil {
			instrumentation.SetSpanError(span, err)
			return
		}
		instrumentation.SetSpanSuccess(span)
	}()

	cals, err := s.openCalendars(ctx, account)
	if err != nil {
		return nil, err
	}

	day := s.Today().AddDays(s.cfg.ProposalOffsetDays)
	for i := 0; i < s.cfg.MaxLookaheadDays && len(proposals) < count; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		free, err := s.freeSlots(ctx, cals, day, s.cfg.Slots.SlotDuration)
		if err != nil {
			return nil, fmt.Errorf("proposals for %s: %w", day, err)
		}
		for _, slot := range free {
			proposals = append(proposals, Proposal{Day: day, Slot: slot})
			if len(proposals) == count {
				break
			}
		}
		day = day.AddDays(1)
	}

	logging.WithOperation(s.logger, "booking.propose").Info("proposed slots",
		logging.Account(account),
		logging.SlotCount(len(proposals)))

	return proposals, nil
}

// checkFree reports ErrSlotUnavailable unless slot is one of the free slots
// of the given length that Compute offers on its day.
func (s *Service) checkFree(ctx context.Context, cals calendars, slot slots.Slot, minutes int) error {
	day := slots.DateOf(slot.Start.In(s.cfg.Slots.Location))
	workStart, workEnd := s.cfg.Slots.WorkingHours(day)

	if slot.Start.Before(workStart) || slot.End.After(workEnd) {
		return fmt.Errorf("%w: %s is outside working hours", ErrSlotUnavailable, slot)
	}
	if !slot.Start.After(s.now()) {
		return fmt.Errorf("%w: %s has already started", ErrSlotUnavailable, slot)
	}
	if slot.Duration() != time.Duration(minutes)*time.Minute {
		return fmt.Errorf("%w: %s is not %d minutes long", ErrSlotUnavailable, slot, minutes)
	}

	free, err := s.freeSlots(ctx, cals, day, minutes)
	if err != nil {
		return err
	}
	for _, offered := range free {
		if offered.Start.Equal(slot.Start) && offered.End.Equal(slot.End) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s is not a free slot", ErrSlotUnavailable, slot)
}
