package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/teemow/meetslots/internal/calendar"
	"github.com/teemow/meetslots/internal/durations"
	"github.com/teemow/meetslots/internal/google"
	"github.com/teemow/meetslots/internal/mail"
	"github.com/teemow/meetslots/internal/slots"
)

// Environment variable names.
const (
	EnvWorkStart           = "MEETSLOTS_WORK_START"
	EnvWorkEnd             = "MEETSLOTS_WORK_END"
	EnvTimezone            = "MEETSLOTS_TIMEZONE"
	EnvSlotDuration        = "MEETSLOTS_SLOT_DURATION"
	EnvDefaultSlotDuration = "MEETSLOTS_DEFAULT_SLOT_DURATION"
	EnvOrgCalendarID       = "MEETSLOTS_ORG_CALENDAR_ID"
	EnvOrgAccount          = "MEETSLOTS_ORG_ACCOUNT"
	EnvOrgPasswordHash     = "MEETSLOTS_ORG_PASSWORD_HASH"
	EnvDurationStore       = "MEETSLOTS_DURATION_STORE"
	EnvDurationsFile       = "MEETSLOTS_DURATIONS_FILE"
	EnvRedisAddr           = "MEETSLOTS_REDIS_ADDR"
	EnvRedisPassword       = "MEETSLOTS_REDIS_PASSWORD"
	EnvRedisDB             = "MEETSLOTS_REDIS_DB"
	EnvMailTransport       = "MEETSLOTS_MAIL_TRANSPORT"
	EnvMailFrom            = "MEETSLOTS_MAIL_FROM"
	EnvSMTPHost            = "MEETSLOTS_SMTP_HOST"
	EnvSMTPPort            = "MEETSLOTS_SMTP_PORT"
	EnvSMTPUsername        = "MEETSLOTS_SMTP_USERNAME"
	EnvSMTPPassword        = "MEETSLOTS_SMTP_PASSWORD"
	EnvBookingURL          = "MEETSLOTS_BOOKING_URL"
	EnvDeclinesLog         = "MEETSLOTS_DECLINES_LOG"
	EnvCookieHashKey       = "MEETSLOTS_COOKIE_HASH_KEY"
	EnvCookieBlockKey      = "MEETSLOTS_COOKIE_BLOCK_KEY"
	EnvHTTPAddr            = "MEETSLOTS_HTTP_ADDR"
	EnvMetricsAddr         = "MEETSLOTS_METRICS_ADDR"
)

// Defaults for settings that are not part of the slot envelope.
const (
	DefaultDeclinesLog = "declined_attendees.csv"
	DefaultHTTPAddr    = ":8080"
	DefaultMetricsAddr = ":9090"
	DefaultBookingURL  = "http://localhost:8080/"
	DefaultLogSender   = "meetslots@localhost"
)

// Config is the process configuration.
type Config struct {
	Slots     slots.Config
	Durations durations.Config

	// OrgCalendarID is the organization calendar every booking is mirrored to.
	OrgCalendarID string
	// OrgAccount is the token account used for the organization calendar.
	OrgAccount string
	// OrgPasswordHash is the bcrypt hash guarding admin actions.
	// Admin actions are refused while it is empty.
	OrgPasswordHash string

	Mail MailConfig

	BookingURL  string
	DeclinesLog string

	// CookieHashKey and CookieBlockKey sign and encrypt admin sessions.
	// Random keys are generated at startup when they are empty.
	CookieHashKey  []byte
	CookieBlockKey []byte

	HTTPAddr    string
	MetricsAddr string
}

// MailConfig selects the mail transport.
type MailConfig struct {
	Transport string
	From      string
	SMTP      mail.SMTPConfig
}

// Load reads the configuration from the environment. Unset variables take
// their defaults; set but unparseable variables are errors.
func Load() (Config, error) {
	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	cfg := Config{
		Slots: slots.DefaultConfig(),
		Durations: durations.Config{
			Backend: getEnvOrDefault(EnvDurationStore, durations.BackendFile),
			Path:    getEnvOrDefault(EnvDurationsFile, durations.DefaultFile),
			Redis: durations.RedisConfig{
				Addr:      os.Getenv(EnvRedisAddr),
				Password:  os.Getenv(EnvRedisPassword),
				KeyPrefix: durations.DefaultRedisKeyPrefix,
			},
		},
		OrgCalendarID:   getEnvOrDefault(EnvOrgCalendarID, calendar.PrimaryCalendarID),
		OrgAccount:      getEnvOrDefault(EnvOrgAccount, "org"),
		OrgPasswordHash: os.Getenv(EnvOrgPasswordHash),
		Mail: MailConfig{
			Transport: getEnvOrDefault(EnvMailTransport, mail.TransportGmail),
			From:      os.Getenv(EnvMailFrom),
			SMTP: mail.SMTPConfig{
				Host:     os.Getenv(EnvSMTPHost),
				Username: os.Getenv(EnvSMTPUsername),
				Password: os.Getenv(EnvSMTPPassword),
			},
		},
		BookingURL:  getEnvOrDefault(EnvBookingURL, DefaultBookingURL),
		DeclinesLog: getEnvOrDefault(EnvDeclinesLog, DefaultDeclinesLog),
		HTTPAddr:    getEnvOrDefault(EnvHTTPAddr, DefaultHTTPAddr),
		MetricsAddr: getEnvOrDefault(EnvMetricsAddr, DefaultMetricsAddr),
	}

	if v := os.Getenv(EnvWorkStart); v != "" {
		c, err := slots.ParseClock(v)
		collect(wrapEnv(EnvWorkStart, err))
		cfg.Slots.WorkStart = c
	}
	if v := os.Getenv(EnvWorkEnd); v != "" {
		c, err := slots.ParseClock(v)
		collect(wrapEnv(EnvWorkEnd, err))
		cfg.Slots.WorkEnd = c
	}
	if v := os.Getenv(EnvTimezone); v != "" {
		loc, err := time.LoadLocation(v)
		collect(wrapEnv(EnvTimezone, err))
		if err == nil {
			cfg.Slots.Location = loc
		}
	}

	var err error
	cfg.Slots.SlotDuration, err = getEnvIntOrDefault(EnvSlotDuration, cfg.Slots.SlotDuration)
	collect(err)
	cfg.Slots.DefaultSlotDuration, err = getEnvIntOrDefault(EnvDefaultSlotDuration, cfg.Slots.DefaultSlotDuration)
	collect(err)
	cfg.Durations.DefaultMinutes = cfg.Slots.DefaultSlotDuration

	if cfg.Mail.From == "" && cfg.Mail.Transport == mail.TransportLog {
		cfg.Mail.From = DefaultLogSender
	}

	cfg.Durations.Redis.DB, err = getEnvIntOrDefault(EnvRedisDB, 0)
	collect(err)
	cfg.Mail.SMTP.Port, err = getEnvIntOrDefault(EnvSMTPPort, mail.DefaultSMTPPort)
	collect(err)

	cfg.CookieHashKey, err = getEnvKey(EnvCookieHashKey)
	collect(err)
	cfg.CookieBlockKey, err = getEnvKey(EnvCookieBlockKey)
	collect(err)

	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}
	return cfg, nil
}

// Validate checks the configuration for values that would make operations fail later.
func (c *Config) Validate() error {
	if err := c.Slots.Validate(); err != nil {
		return err
	}
	if err := google.ValidateAccountName(c.OrgAccount); err != nil {
		return fmt.Errorf("%s: %w", EnvOrgAccount, err)
	}
	if c.OrgCalendarID == "" {
		return fmt.Errorf("%s must not be empty", EnvOrgCalendarID)
	}
	if err := mail.ValidateTransport(c.Mail.Transport); err != nil {
		return err
	}
	if c.Mail.Transport != mail.TransportLog && c.Mail.From == "" {
		return fmt.Errorf("%s is required for the %s mail transport", EnvMailFrom, c.Mail.Transport)
	}
	if c.Mail.Transport == mail.TransportSMTP && c.Mail.SMTP.Host == "" {
		return fmt.Errorf("%s is required for the smtp mail transport", EnvSMTPHost)
	}
	if c.Durations.Backend == durations.BackendRedis && c.Durations.Redis.Addr == "" {
		return fmt.Errorf("%s is required for the redis duration store", EnvRedisAddr)
	}
	if n := len(c.CookieHashKey); n != 0 && n != 32 && n != 64 {
		return fmt.Errorf("%s must decode to 32 or 64 bytes, got %d", EnvCookieHashKey, n)
	}
	if n := len(c.CookieBlockKey); n != 0 && n != 16 && n != 24 && n != 32 {
		return fmt.Errorf("%s must decode to 16, 24 or 32 bytes, got %d", EnvCookieBlockKey, n)
	}
	if len(c.CookieBlockKey) > 0 && len(c.CookieHashKey) == 0 {
		return fmt.Errorf("%s requires %s", EnvCookieBlockKey, EnvCookieHashKey)
	}
	return nil
}

// getEnvOrDefault returns the value of an environment variable or a default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvIntOrDefault returns the integer value of an environment variable or a default value.
func getEnvIntOrDefault(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue, wrapEnv(key, err)
	}
	return parsed, nil
}

// getEnvKey decodes a base64 encoded key.
func getEnvKey(key string) ([]byte, error) {
	value := os.Getenv(key)
	if value == "" {
		return nil, nil
	}
	decoded, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("%s (must be base64 encoded): %w", key, err)
	}
	return decoded, nil
}

func wrapEnv(key string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", key, err)
}
