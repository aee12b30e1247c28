package mail

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/teemow/meetslots/internal/instrumentation"
	"github.com/teemow/meetslots/internal/logging"
)

// Transports selectable in configuration.
const (
	TransportGmail = "gmail"
	TransportSMTP  = "smtp"
	TransportLog   = "log"
)

// Sender delivers messages. Failures are returned, never retried.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// RawSender sends an already composed RFC 5322 message.
type RawSender interface {
	SendRaw(ctx context.Context, raw []byte) (string, error)
}

// GmailSender sends messages through the Gmail API.
type GmailSender struct {
	client  RawSender
	logger  *slog.Logger
	metrics *instrumentation.Metrics
	now     func() time.Time
}

// NewGmailSender wraps a Gmail client.
func NewGmailSender(client RawSender, logger *slog.Logger, metrics *instrumentation.Metrics) *GmailSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &GmailSender{client: client, logger: logger, metrics: metrics, now: time.Now}
}

// Send composes and sends msg.
func (s *GmailSender) Send(ctx context.Context, msg Message) error {
	raw, err := Compose(msg, s.now())
	if err != nil {
		return err
	}

	id, err := s.client.SendRaw(ctx, raw)
	if err != nil {
		s.metrics.RecordEmailSent(ctx, TransportGmail, instrumentation.StatusError)
		return err
	}

	s.metrics.RecordEmailSent(ctx, TransportGmail, instrumentation.StatusSuccess)
	s.logger.Info("email sent",
		logging.Operation("mail.send"),
		slog.String("transport", TransportGmail),
		slog.String("message_id", id),
		logging.UserHash(firstRecipient(msg)))
	return nil
}

// LogSender writes messages to the log instead of delivering them.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender returns a sender for development setups without a mail transport.
func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger}
}

// Send validates msg and logs it.
func (s *LogSender) Send(_ context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	s.logger.Info("email not delivered, log transport configured",
		logging.Operation("mail.send"),
		slog.String("transport", TransportLog),
		slog.String("subject", msg.Subject),
		logging.UserHash(firstRecipient(msg)),
		slog.Bool("invite", msg.Invite != nil))
	return nil
}

func firstRecipient(msg Message) string {
	if len(msg.To) == 0 {
		return ""
	}
	return msg.To[0]
}

// ValidateTransport reports whether name selects a known sender.
func ValidateTransport(name string) error {
	switch name {
	case TransportGmail, TransportSMTP, TransportLog:
		return nil
	}
	return fmt.Errorf("unsupported mail transport %q, must be one of: %s, %s, %s", name, TransportGmail, TransportSMTP, TransportLog)
}
