package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/teemow/meetslots/internal/booking"
	"github.com/teemow/meetslots/internal/config"
	"github.com/teemow/meetslots/internal/declines"
	"github.com/teemow/meetslots/internal/durations"
	"github.com/teemow/meetslots/internal/instrumentation"
	"github.com/teemow/meetslots/internal/mail"
	"github.com/teemow/meetslots/internal/server"
)

// services bundles everything a command needs to talk to the calendars.
type services struct {
	cfg     config.Config
	sc      *server.ServerContext
	store   durations.Store
	booking *booking.Service
	scanner *declines.Scanner
	logger  *slog.Logger
}

// newServices loads the configuration from the environment and wires the
// booking service and the decline scanner into a fresh server context.
// A nil metrics recorder disables metrics.
func newServices(ctx context.Context, logger *slog.Logger, metrics *instrumentation.Metrics) (*services, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	sc, err := server.NewServerContext(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create server context: %w", err)
	}
	if metrics != nil {
		sc.SetMetrics(metrics)
	}

	store, err := durations.Open(ctx, cfg.Durations)
	if err != nil {
		_ = sc.Shutdown()
		return nil, fmt.Errorf("failed to open duration store: %w", err)
	}

	s := &services{cfg: cfg, sc: sc, store: store, logger: logger}

	sender, err := s.newSender(metrics)
	if err != nil {
		_ = s.Close()
		return nil, err
	}

	svc, err := booking.NewService(booking.Config{
		Slots:           cfg.Slots,
		OrgAccount:      cfg.OrgAccount,
		OrgCalendarID:   cfg.OrgCalendarID,
		OrgPasswordHash: cfg.OrgPasswordHash,
		MailFrom:        cfg.Mail.From,
		BookingURL:      cfg.BookingURL,
	}, sc, store, sender, logger)
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to create booking service: %w", err)
	}
	svc.SetMetrics(metrics)
	s.booking = svc
	sc.SetBookingService(svc)

	s.scanner = s.newScanner(cfg.DeclinesLog, metrics)
	sc.SetDeclineScanner(s.scanner, cfg.OrgCalendarID)

	return s, nil
}

func (s *services) newSender(metrics *instrumentation.Metrics) (mail.Sender, error) {
	switch s.cfg.Mail.Transport {
	case mail.TransportGmail:
		return mail.NewGmailSender(s.sc.AccountMailer(s.cfg.OrgAccount), s.logger, metrics), nil
	case mail.TransportSMTP:
		sender, err := mail.NewSMTPSender(s.cfg.Mail.SMTP, s.logger, metrics)
		if err != nil {
			return nil, fmt.Errorf("failed to create SMTP sender: %w", err)
		}
		return sender, nil
	case mail.TransportLog:
		return mail.NewLogSender(s.logger), nil
	}
	return nil, mail.ValidateTransport(s.cfg.Mail.Transport)
}

// newScanner builds a decline scanner over the organization calendar
// appending to the CSV file at logPath.
func (s *services) newScanner(logPath string, metrics *instrumentation.Metrics) *declines.Scanner {
	scanner := declines.NewScanner(
		s.sc.AccountCalendar(s.cfg.OrgAccount),
		declines.NewCSVLog(logPath),
		s.cfg.Slots.Location,
		s.logger,
	)
	scanner.SetMetrics(metrics)
	return scanner
}

// Close releases the duration store and shuts the server context down.
func (s *services) Close() error {
	var errs []error
	if c, ok := s.store.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	errs = append(errs, s.sc.Shutdown())
	return errors.Join(errs...)
}

// withServices runs fn with services built for a one-shot CLI command.
func withServices(cmd *cobra.Command, fn func(ctx context.Context, s *services) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	s, err := newServices(ctx, slog.Default(), nil)
	if err != nil {
		return err
	}
	defer func() {
		if err := s.Close(); err != nil {
			slog.Warn("failed to release resources", "error", err)
		}
	}()

	return fn(ctx, s)
}
