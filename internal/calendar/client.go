package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/teemow/meetslots/internal/google"
	"github.com/teemow/meetslots/internal/instrumentation"
)

// PrimaryCalendarID addresses the authenticated user's own calendar.
const PrimaryCalendarID = "primary"

// ErrEventNotFound is returned when the event to delete no longer exists.
var ErrEventNotFound = errors.New("event not found")

// Client wraps the Google Calendar service
type Client struct {
	svc     *calendar.Service
	account string
	metrics *instrumentation.Metrics
}

// Account returns the account name this client is associated with
func (c *Client) Account() string {
	return c.account
}

// SetMetrics attaches a metrics recorder for Google API operations.
func (c *Client) SetMetrics(m *instrumentation.Metrics) {
	c.metrics = m
}

// HasTokenForAccountWithProvider checks if a valid OAuth token exists for the specified account
func HasTokenForAccountWithProvider(account string, provider google.TokenProvider) bool {
	if provider == nil {
		return false
	}
	return provider.HasTokenForAccount(account)
}

// HasTokenForAccount checks if a token file exists for the specified account
func HasTokenForAccount(account string) bool {
	return HasTokenForAccountWithProvider(account, google.NewFileTokenProvider())
}

// NewClientForAccountWithProvider creates a Calendar client for an account,
// authenticating with a token from the given provider.
func NewClientForAccountWithProvider(ctx context.Context, account string, tokenProvider google.TokenProvider) (*Client, error) {
	httpClient, err := google.HTTPClientForAccount(ctx, tokenProvider, account)
	if err != nil {
		return nil, err
	}
	return NewClientWithHTTPClient(ctx, account, httpClient)
}

// NewClientForAccount creates a Calendar client using the file-based token store.
func NewClientForAccount(ctx context.Context, account string) (*Client, error) {
	return NewClientForAccountWithProvider(ctx, account, google.NewFileTokenProvider())
}

// NewClientWithHTTPClient creates a Calendar client over an already
// authenticated HTTP client. Extra options (such as an endpoint override) are
// passed through to the API service.
func NewClientWithHTTPClient(ctx context.Context, account string, httpClient *http.Client, opts ...option.ClientOption) (*Client, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	svc, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Calendar service: %w", err)
	}

	return &Client{
		svc:     svc,
		account: account,
	}, nil
}

// ListEvents lists the single (expanded) events of a calendar that overlap
// [timeMin, timeMax), ordered by start time. All result pages are read.
func (c *Client) ListEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time) (events []EventSummary, err error) {
	ctx, span := instrumentation.StartGoogleAPISpan(ctx, instrumentation.ServiceCalendar, instrumentation.OperationList,
		instrumentation.NewSpanAttributeBuilder().WithAccount(c.account).WithCalendar(calendarID).Build()...)
	defer c.finish(ctx, span, instrumentation.OperationList, time.Now(), &err)

	call := c.svc.Events.List(calendarID).
		TimeMin(timeMin.Format(time.RFC3339)).
		TimeMax(timeMax.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime")

	err = call.Pages(ctx, func(page *calendar.Events) error {
		for _, item := range page.Items {
			events = append(events, toEventSummary(item))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list events of calendar %s: %w", calendarID, err)
	}

	return events, nil
}

// CreateMeeting inserts a meeting into a calendar. Unless input.MeetLink is
// set, a new Google Meet conference is requested for it.
func (c *Client) CreateMeeting(ctx context.Context, calendarID string, input MeetingInput) (summary *EventSummary, err error) {
	ctx, span := instrumentation.StartGoogleAPISpan(ctx, instrumentation.ServiceCalendar, instrumentation.OperationCreate,
		instrumentation.NewSpanAttributeBuilder().WithAccount(c.account).WithCalendar(calendarID).Build()...)
	defer c.finish(ctx, span, instrumentation.OperationCreate, time.Now(), &err)

	if !input.Start.Before(input.End) {
		return nil, fmt.Errorf("meeting end %s must be after start %s", input.End.Format(time.RFC3339), input.Start.Format(time.RFC3339))
	}

	created, err := c.svc.Events.Insert(calendarID, newMeetingEvent(input)).
		ConferenceDataVersion(1).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to create event in calendar %s: %w", calendarID, err)
	}

	s := toEventSummary(created)
	return &s, nil
}

// DeleteEvent deletes an event. A missing event yields ErrEventNotFound.
func (c *Client) DeleteEvent(ctx context.Context, calendarID, eventID string) (err error) {
	ctx, span := instrumentation.StartGoogleAPISpan(ctx, instrumentation.ServiceCalendar, instrumentation.OperationDelete,
		instrumentation.NewSpanAttributeBuilder().WithAccount(c.account).WithCalendar(calendarID).WithResource("event", eventID).Build()...)
	defer c.finish(ctx, span, instrumentation.OperationDelete, time.Now(), &err)

	err = c.svc.Events.Delete(calendarID, eventID).Context(ctx).Do()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && (apiErr.Code == http.StatusNotFound || apiErr.Code == http.StatusGone) {
			return fmt.Errorf("failed to delete event %s: %w", eventID, ErrEventNotFound)
		}
		return fmt.Errorf("failed to delete event %s: %w", eventID, err)
	}
	return nil
}

func newMeetingEvent(input MeetingInput) *calendar.Event {
	location := input.Location
	if location == "" {
		location = DefaultLocation
	}
	description := input.Description
	if description == "" {
		description = DefaultDescription
	}
	tz := input.TimeZone
	if tz == "" {
		tz = input.Start.Location().String()
	}

	event := &calendar.Event{
		Summary:     input.Summary,
		Location:    location,
		Description: description,
		Start: &calendar.EventDateTime{
			DateTime: input.Start.Format(time.RFC3339),
			TimeZone: tz,
		},
		End: &calendar.EventDateTime{
			DateTime: input.End.Format(time.RFC3339),
			TimeZone: tz,
		},
		Reminders: &calendar.EventReminders{
			UseDefault: false,
			Overrides: []*calendar.EventReminder{
				{Method: "email", Minutes: 24 * 60},
				{Method: "popup", Minutes: 10},
			},
			ForceSendFields: []string{"UseDefault"},
		},
	}

	for _, email := range input.Attendees {
		event.Attendees = append(event.Attendees, &calendar.EventAttendee{Email: email})
	}

	if input.MeetLink != "" {
		event.ConferenceData = &calendar.ConferenceData{
			ConferenceSolution: &calendar.ConferenceSolution{
				Key: &calendar.ConferenceSolutionKey{Type: conferenceSolutionMeet},
			},
			EntryPoints: []*calendar.EntryPoint{
				{EntryPointType: entryPointVideo, Uri: input.MeetLink},
			},
		}
	} else {
		event.ConferenceData = &calendar.ConferenceData{
			CreateRequest: &calendar.CreateConferenceRequest{
				RequestId:             uuid.NewString(),
				ConferenceSolutionKey: &calendar.ConferenceSolutionKey{Type: conferenceSolutionMeet},
			},
		}
	}

	return event
}

// finish ends an API span and records the operation metric.
func (c *Client) finish(ctx context.Context, span trace.Span, operation string, start time.Time, errp *error) {
	status := instrumentation.StatusSuccess
	if *errp != nil {
		status = instrumentation.StatusError
		instrumentation.SetSpanError(span, *errp)
	} else {
		instrumentation.SetSpanSuccess(span)
	}
	c.metrics.RecordGoogleAPIOperation(ctx, instrumentation.ServiceCalendar, operation, status, time.Since(start))
	span.End()
}
