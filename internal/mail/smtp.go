package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"
	"time"

	"github.com/teemow/meetslots/internal/instrumentation"
	"github.com/teemow/meetslots/internal/logging"
)

// DefaultSMTPPort is the submission port used with STARTTLS.
const DefaultSMTPPort = 587

const smtpDialTimeout = 30 * time.Second

// SMTPConfig holds the SMTP submission settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	// InsecureSkipTLS disables STARTTLS. Only for local test servers.
	InsecureSkipTLS bool
}

// SMTPSender delivers messages over SMTP with STARTTLS and PLAIN auth.
type SMTPSender struct {
	cfg     SMTPConfig
	logger  *slog.Logger
	metrics *instrumentation.Metrics
	now     func() time.Time
}

// NewSMTPSender validates cfg and returns a sender.
func NewSMTPSender(cfg SMTPConfig, logger *slog.Logger, metrics *instrumentation.Metrics) (*SMTPSender, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("SMTP host is required")
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultSMTPPort
	}
	if cfg.Port < 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid SMTP port %d", cfg.Port)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SMTPSender{cfg: cfg, logger: logger, metrics: metrics, now: time.Now}, nil
}

// Send composes msg and submits it. The context bounds the dial and, through
// its deadline, the whole exchange.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	raw, err := Compose(msg, s.now())
	if err != nil {
		return err
	}

	if err := s.deliver(ctx, msg, raw); err != nil {
		s.metrics.RecordEmailSent(ctx, TransportSMTP, instrumentation.StatusError)
		s.logger.Warn("smtp delivery failed",
			logging.Operation("mail.send"),
			logging.UserHash(firstRecipient(msg)),
			logging.Err(err))
		return err
	}

	s.metrics.RecordEmailSent(ctx, TransportSMTP, instrumentation.StatusSuccess)
	s.logger.Info("email sent",
		logging.Operation("mail.send"),
		slog.String("transport", TransportSMTP),
		logging.UserHash(firstRecipient(msg)))
	return nil
}

func (s *SMTPSender) deliver(ctx context.Context, msg Message, raw []byte) error {
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))

	dialer := &net.Dialer{Timeout: smtpDialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to start SMTP session: %w", err)
	}
	defer client.Close()

	if !s.cfg.InsecureSkipTLS {
		if ok, _ := client.Extension("STARTTLS"); !ok {
			return fmt.Errorf("SMTP server %s does not support STARTTLS", addr)
		}
		if err := client.StartTLS(&tls.Config{ServerName: s.cfg.Host, MinVersion: tls.VersionTLS12}); err != nil {
			return fmt.Errorf("STARTTLS failed: %w", err)
		}
	}

	if s.cfg.Username != "" {
		auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}

	from, err := mail.ParseAddress(msg.From)
	if err != nil {
		return fmt.Errorf("invalid sender: %w", err)
	}
	if err := client.Mail(from.Address); err != nil {
		return fmt.Errorf("MAIL FROM rejected: %w", err)
	}
	for _, to := range msg.To {
		rcpt, err := mail.ParseAddress(to)
		if err != nil {
			return fmt.Errorf("invalid recipient: %w", err)
		}
		if err := client.Rcpt(rcpt.Address); err != nil {
			return fmt.Errorf("RCPT TO %s rejected: %w", logging.AnonymizeEmail(rcpt.Address), err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("DATA rejected: %w", err)
	}
	if _, err := w.Write(raw); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("message rejected: %w", err)
	}

	return client.Quit()
}
