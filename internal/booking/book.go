package booking

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/teemow/meetslots/internal/calendar"
	"github.com/teemow/meetslots/internal/instrumentation"
	"github.com/teemow/meetslots/internal/logging"
	mailer "github.com/teemow/meetslots/internal/mail"
	"github.com/teemow/meetslots/internal/slots"
)

// BookRequest asks for a meeting in a free slot.
type BookRequest struct {
	// Account is the token account of the invitee's calendar.
	Account string `json:"account"`
	// UserEmail is the invitee's address.
	UserEmail string     `json:"email"`
	Summary   string     `json:"summary"`
	Slot      slots.Slot `json:"slot"`
}

// Booking is the outcome of a successful booking.
type Booking struct {
	OrgEventID  string     `json:"org_event_id"`
	UserEventID string     `json:"user_event_id,omitempty"`
	MeetLink    string     `json:"meet_link,omitempty"`
	Slot        slots.Slot `json:"slot"`
	EmailSent   bool       `json:"email_sent"`

	// UserEventError and EmailError report failures that happened after the
	// organization event was created. The booking stands regardless.
	UserEventError string `json:"user_event_error,omitempty"`
	EmailError     string `json:"email_error,omitempty"`
}

func (r BookRequest) validate() error {
	if strings.TrimSpace(r.Summary) == "" {
		return fmt.Errorf("%w: summary is required", ErrInvalidRequest)
	}
	if _, err := mail.ParseAddress(r.UserEmail); err != nil {
		return fmt.Errorf("%w: invalid email %q", ErrInvalidRequest, r.UserEmail)
	}
	if r.Slot.Start.IsZero() || !r.Slot.Start.Before(r.Slot.End) {
		return fmt.Errorf("%w: slot must end after it starts", ErrInvalidRequest)
	}
	return nil
}

// isOrg reports whether the invitee is the organization itself.
func (s *Service) isOrg(req BookRequest) bool {
	return req.Account == s.cfg.OrgAccount || strings.EqualFold(req.UserEmail, s.cfg.OrgCalendarID)
}

// Book creates the meeting in the organization calendar with a new Google
// Meet conference. For invitees other than the organization it then adds
// the event to the invitee's primary calendar with the same link and emails
// the details. The slot must be one Availability offers for its day.
func (s *Service) Book(ctx context.Context, req BookRequest) (result *Booking, err error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	ctx, span := instrumentation.StartSpan(ctx, "booking.book",
		instrumentation.NewSpanAttributeBuilder().WithAccount(req.Account).Build()...)
	defer span.End()
	record := s.beginAudit(ctx, instrumentation.AuditBooking, "booking.book").
		ForAccount(req.Account).
		ForAttendee(req.UserEmail).
		ForDay(req.Slot.Start.In(s.cfg.Slots.Location).Format(time.DateOnly))
	defer func() {
		s.audit.Record(ctx, record.Finish(err))
		s.metrics.RecordBooking(ctx, sourceFrom(ctx), statusOf(err))
		if err != nil {
			instrumentation.SetSpanError(span, err)
			return
		}
		instrumentation.SetSpanSuccess(span)
	}()

	cals, err := s.openCalendars(ctx, req.Account)
	if err != nil {
		return nil, err
	}
	minutes, err := s.durations.Load(ctx, slots.DateOf(req.Slot.Start.In(s.cfg.Slots.Location)))
	if err != nil {
		return nil, fmt.Errorf("load slot duration: %w", err)
	}
	if err := s.checkFree(ctx, cals, req.Slot, minutes); err != nil {
		return nil, err
	}

	logger := logging.WithOperation(s.logger, "booking.book").With(logging.Account(req.Account))

	orgEvent, err := cals.org.CreateMeeting(ctx, s.cfg.OrgCalendarID, s.meetingInput(req, ""))
	if err != nil {
		logger.Error("organization event failed", logging.Err(err))
		return nil, fmt.Errorf("%w: %v", ErrOrgEventFailed, err)
	}

	booking := &Booking{
		OrgEventID: orgEvent.ID,
		MeetLink:   orgEvent.MeetLink,
		Slot:       req.Slot,
	}
	logger.Info("organization event created", logging.Event(orgEvent.ID), logging.Slot(req.Slot.Start, req.Slot.End))

	isOrg := s.isOrg(req)
	link := orgEvent.MeetLink
	if isOrg {
		link = ""
	}

	userEvent, err := cals.user.CreateMeeting(ctx, calendar.PrimaryCalendarID, s.meetingInput(req, link))
	if err != nil {
		booking.UserEventError = err.Error()
		logger.Warn("user event failed", logging.Err(err))
	} else {
		booking.UserEventID = userEvent.ID
	}

	if isOrg {
		return booking, nil
	}
	s.sendDetails(ctx, booking, req.Summary, req.UserEmail, orgEvent.ID)
	return booking, nil
}

// AutoBook books a proposed slot in the organization calendar under the
// Interview summary and emails the details to userEmail.
func (s *Service) AutoBook(ctx context.Context, account, userEmail string, slot slots.Slot) (result *Booking, err error) {
	req := BookRequest{Account: account, UserEmail: userEmail, Summary: DefaultAutoBookSummary, Slot: slot}
	if err := req.validate(); err != nil {
		return nil, err
	}

	ctx, span := instrumentation.StartSpan(ctx, "booking.auto_book",
		instrumentation.NewSpanAttributeBuilder().WithAccount(account).Build()...)
	defer span.End()
	record := s.beginAudit(ctx, instrumentation.AuditBooking, "booking.auto_book").
		ForAccount(account).
		ForAttendee(userEmail).
		ForDay(slot.Start.In(s.cfg.Slots.Location).Format(time.DateOnly))
	defer func() {
		s.audit.Record(ctx, record.Finish(err))
		s.metrics.RecordBooking(ctx, sourceFrom(ctx), statusOf(err))
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
	if err := s.checkFree(ctx, cals, slot, s.cfg.Slots.SlotDuration); err != nil {
		return nil, err
	}

	orgEvent, err := cals.org.CreateMeeting(ctx, s.cfg.OrgCalendarID, s.meetingInput(req, ""))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOrgEventFailed, err)
	}

	booking := &Booking{OrgEventID: orgEvent.ID, MeetLink: orgEvent.MeetLink, Slot: slot}
	s.sendDetails(ctx, booking, req.Summary, userEmail, orgEvent.ID)
	return booking, nil
}

// Invite emails the booking page URL to recipient.
func (s *Service) Invite(ctx context.Context, recipient string) (err error) {
	record := s.beginAudit(ctx, instrumentation.AuditInvite, "booking.invite").ForAttendee(recipient)
	defer func() { s.audit.Record(ctx, record.Finish(err)) }()

	if _, err := mail.ParseAddress(recipient); err != nil {
		return fmt.Errorf("%w: invalid email %q", ErrInvalidRequest, recipient)
	}
	if s.cfg.BookingURL == "" {
		return fmt.Errorf("%w: no booking URL configured", ErrInvalidRequest)
	}

	if err := s.sender.Send(ctx, mailer.Invitation(s.cfg.MailFrom, recipient, s.cfg.BookingURL)); err != nil {
		return fmt.Errorf("send invitation: %w", err)
	}
	logging.WithOperation(s.logger, "booking.invite").Info("invitation sent", logging.UserHash(recipient))
	return nil
}

func (s *Service) meetingInput(req BookRequest, meetLink string) calendar.MeetingInput {
	return calendar.MeetingInput{
		Summary:   req.Summary,
		Start:     req.Slot.Start.In(s.cfg.Slots.Location),
		End:       req.Slot.End.In(s.cfg.Slots.Location),
		TimeZone:  s.cfg.Slots.Location.String(),
		Attendees: []string{req.UserEmail},
		MeetLink:  meetLink,
	}
}

func (s *Service) sendDetails(ctx context.Context, booking *Booking, summary, to, eventID string) {
	msg := mailer.MeetingDetails(s.cfg.MailFrom, to, mailer.Meeting{
		EventID:  eventID,
		Summary:  summary,
		Start:    booking.Slot.Start.In(s.cfg.Slots.Location),
		End:      booking.Slot.End.In(s.cfg.Slots.Location),
		MeetLink: booking.MeetLink,
	})

	if err := s.sender.Send(ctx, msg); err != nil {
		booking.EmailError = err.Error()
		logging.WithOperation(s.logger, "booking.email").Warn("meeting details not sent",
			logging.Event(eventID), logging.UserHash(to), logging.Err(err))
		return
	}
	booking.EmailSent = true
}
