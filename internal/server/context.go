package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/teemow/meetslots/internal/booking"
	"github.com/teemow/meetslots/internal/calendar"
	"github.com/teemow/meetslots/internal/declines"
	"github.com/teemow/meetslots/internal/gmail"
	"github.com/teemow/meetslots/internal/google"
	"github.com/teemow/meetslots/internal/instrumentation"
)

// ErrShutdown is returned for client requests after Shutdown.
var ErrShutdown = errors.New("server is shutting down")

// ServerContext holds the per-process state shared by the HTTP API and the
// MCP tools: cached Google API clients per account and the services built
// on top of them.
type ServerContext struct {
	ctx             context.Context
	cancel          context.CancelFunc
	tokenProvider   google.TokenProvider
	calendarClients map[string]*calendar.Client // Maps account name to Calendar client
	gmailClients    map[string]*gmail.Client    // Maps account name to Gmail client
	service         *booking.Service
	scanner         *declines.Scanner
	declinesCal     string
	metrics         *instrumentation.Metrics
	auditLogger     *instrumentation.AuditLogger
	mu              sync.RWMutex
	shutdown        bool
}

// NewServerContext creates a new server context. A nil token provider reads
// tokens from disk.
func NewServerContext(ctx context.Context, tokenProvider google.TokenProvider) (*ServerContext, error) {
	if tokenProvider == nil {
		tokenProvider = google.NewFileTokenProvider()
	}

	shutdownCtx, cancel := context.WithCancel(ctx)
	return &ServerContext{
		ctx:             shutdownCtx,
		cancel:          cancel,
		tokenProvider:   tokenProvider,
		calendarClients: make(map[string]*calendar.Client),
		gmailClients:    make(map[string]*gmail.Client),
	}, nil
}

// Context returns the server context
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// TokenProvider returns the provider used to authenticate Google clients.
func (sc *ServerContext) TokenProvider() google.TokenProvider {
	return sc.tokenProvider
}

// CalendarClientForAccount returns the Calendar client for account,
// creating and caching it on first use.
func (sc *ServerContext) CalendarClientForAccount(_ context.Context, account string) (*calendar.Client, error) {
	sc.mu.RLock()
	client, ok := sc.calendarClients[account]
	shutdown := sc.shutdown
	sc.mu.RUnlock()
	if shutdown {
		return nil, ErrShutdown
	}
	if ok {
		return client, nil
	}

	if !calendar.HasTokenForAccountWithProvider(account, sc.tokenProvider) {
		return nil, errors.New(google.GetAuthenticationErrorMessage(account))
	}
	client, err := calendar.NewClientForAccountWithProvider(sc.ctx, account, sc.tokenProvider)
	if err != nil {
		return nil, fmt.Errorf("failed to create Calendar client for account %s: %w", account, err)
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()
	if existing, ok := sc.calendarClients[account]; ok {
		return existing, nil
	}
	client.SetMetrics(sc.metrics)
	sc.calendarClients[account] = client
	return client, nil
}

// SetCalendarClientForAccount sets the Calendar client for a specific account
func (sc *ServerContext) SetCalendarClientForAccount(account string, client *calendar.Client) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.calendarClients[account] = client
}

// CalendarForAccount implements booking.CalendarProvider.
func (sc *ServerContext) CalendarForAccount(ctx context.Context, account string) (booking.Calendar, error) {
	return sc.CalendarClientForAccount(ctx, account)
}

// GmailClientForAccount returns the Gmail client for account, creating and
// caching it on first use.
func (sc *ServerContext) GmailClientForAccount(_ context.Context, account string) (*gmail.Client, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil, ErrShutdown
	}
	if client, ok := sc.gmailClients[account]; ok {
		return client, nil
	}
	if !sc.tokenProvider.HasTokenForAccount(account) {
		return nil, errors.New(google.GetAuthenticationErrorMessage(account))
	}

	client, err := gmail.NewClientForAccountWithProvider(sc.ctx, account, sc.tokenProvider)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail client for account %s: %w", account, err)
	}
	client.SetMetrics(sc.metrics)
	sc.gmailClients[account] = client
	return client, nil
}

// AccountCalendar returns a calendar bound to account whose client is
// resolved on every call, so it can be built before the account has a token.
func (sc *ServerContext) AccountCalendar(account string) *AccountCalendar {
	return &AccountCalendar{sc: sc, account: account}
}

// AccountMailer returns a Gmail sender bound to account, resolved lazily.
func (sc *ServerContext) AccountMailer(account string) *AccountMailer {
	return &AccountMailer{sc: sc, account: account}
}

// SetBookingService sets the booking service used by the API and the tools.
func (sc *ServerContext) SetBookingService(svc *booking.Service) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.service = svc
}

// BookingService returns the booking service, or nil if none is set.
func (sc *ServerContext) BookingService() *booking.Service {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.service
}

// SetDeclineScanner sets the scanner and the calendar it scans.
func (sc *ServerContext) SetDeclineScanner(scanner *declines.Scanner, calendarID string) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.scanner = scanner
	sc.declinesCal = calendarID
}

// HasDeclineScanner reports whether a decline scanner is configured.
func (sc *ServerContext) HasDeclineScanner() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.scanner != nil
}

// ScanDeclines runs the decline scanner against its configured calendar.
func (sc *ServerContext) ScanDeclines(ctx context.Context) (*declines.Result, error) {
	sc.mu.RLock()
	scanner, calendarID := sc.scanner, sc.declinesCal
	sc.mu.RUnlock()

	if scanner == nil {
		return nil, errors.New("decline scanner is not configured")
	}
	return scanner.Scan(ctx, calendarID, time.Now())
}

// SetMetrics sets the metrics recorder on the context and on every cached client.
func (sc *ServerContext) SetMetrics(m *instrumentation.Metrics) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.metrics = m
	for _, c := range sc.calendarClients {
		c.SetMetrics(m)
	}
	for _, c := range sc.gmailClients {
		c.SetMetrics(m)
	}
}

// Metrics returns the metrics recorder, which may be nil.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.metrics
}

// SetAuditLogger sets the audit logger for tool invocations.
func (sc *ServerContext) SetAuditLogger(al *instrumentation.AuditLogger) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.auditLogger = al
}

// AuditLogger returns the audit logger, which may be nil.
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.auditLogger
}

// IsShutdown returns whether the server has been shutdown
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown shuts down the server context
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()
	return nil
}

// AccountCalendar resolves the Calendar client of one account per call.
type AccountCalendar struct {
	sc      *ServerContext
	account string
}

// ListEvents lists events through the account's client.
func (a *AccountCalendar) ListEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time) ([]calendar.EventSummary, error) {
	client, err := a.sc.CalendarClientForAccount(ctx, a.account)
	if err != nil {
		return nil, err
	}
	return client.ListEvents(ctx, calendarID, timeMin, timeMax)
}

// CreateMeeting creates a meeting through the account's client.
func (a *AccountCalendar) CreateMeeting(ctx context.Context, calendarID string, input calendar.MeetingInput) (*calendar.EventSummary, error) {
	client, err := a.sc.CalendarClientForAccount(ctx, a.account)
	if err != nil {
		return nil, err
	}
	return client.CreateMeeting(ctx, calendarID, input)
}

// DeleteEvent deletes an event through the account's client.
func (a *AccountCalendar) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	client, err := a.sc.CalendarClientForAccount(ctx, a.account)
	if err != nil {
		return err
	}
	return client.DeleteEvent(ctx, calendarID, eventID)
}

// AccountMailer sends raw messages through the Gmail client of one account.
type AccountMailer struct {
	sc      *ServerContext
	account string
}

// SendRaw implements mail.RawSender.
func (a *AccountMailer) SendRaw(ctx context.Context, raw []byte) (string, error) {
	client, err := a.sc.GmailClientForAccount(ctx, a.account)
	if err != nil {
		return "", err
	}
	return client.SendRaw(ctx, raw)
}
