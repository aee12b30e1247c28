package config

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/meetslots/internal/durations"
	"github.com/teemow/meetslots/internal/mail"
	"github.com/teemow/meetslots/internal/slots"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv(EnvMailFrom, "org@example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, slots.DefaultWorkStart, cfg.Slots.WorkStart)
	assert.Equal(t, slots.DefaultWorkEnd, cfg.Slots.WorkEnd)
	assert.Equal(t, 60, cfg.Slots.SlotDuration)
	assert.Equal(t, 60, cfg.Durations.DefaultMinutes)
	assert.Equal(t, durations.BackendFile, cfg.Durations.Backend)
	assert.Equal(t, durations.DefaultFile, cfg.Durations.Path)
	assert.Equal(t, "primary", cfg.OrgCalendarID)
	assert.Equal(t, "org", cfg.OrgAccount)
	assert.Equal(t, mail.TransportGmail, cfg.Mail.Transport)
	assert.Equal(t, mail.DefaultSMTPPort, cfg.Mail.SMTP.Port)
	assert.Equal(t, DefaultDeclinesLog, cfg.DeclinesLog)
	assert.Equal(t, DefaultHTTPAddr, cfg.HTTPAddr)
	assert.Equal(t, DefaultMetricsAddr, cfg.MetricsAddr)
	assert.Nil(t, cfg.CookieHashKey)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_Overrides(t *testing.T) {
	hashKey := strings.Repeat("h", 32)
	blockKey := strings.Repeat("b", 16)

	t.Setenv(EnvWorkStart, "10:30")
	t.Setenv(EnvWorkEnd, "18:00")
	t.Setenv(EnvTimezone, "Europe/Berlin")
	t.Setenv(EnvSlotDuration, "45")
	t.Setenv(EnvDefaultSlotDuration, "30")
	t.Setenv(EnvDurationStore, durations.BackendRedis)
	t.Setenv(EnvRedisAddr, "localhost:6379")
	t.Setenv(EnvRedisDB, "2")
	t.Setenv(EnvMailTransport, mail.TransportSMTP)
	t.Setenv(EnvMailFrom, "org@example.com")
	t.Setenv(EnvSMTPHost, "smtp.example.com")
	t.Setenv(EnvSMTPPort, "2525")
	t.Setenv(EnvCookieHashKey, base64.StdEncoding.EncodeToString([]byte(hashKey)))
	t.Setenv(EnvCookieBlockKey, base64.StdEncoding.EncodeToString([]byte(blockKey)))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, slots.Clock{Hour: 10, Minute: 30}, cfg.Slots.WorkStart)
	assert.Equal(t, slots.Clock{Hour: 18}, cfg.Slots.WorkEnd)
	assert.Equal(t, "Europe/Berlin", cfg.Slots.Location.String())
	assert.Equal(t, 45, cfg.Slots.SlotDuration)
	assert.Equal(t, 30, cfg.Slots.DefaultSlotDuration)
	assert.Equal(t, 30, cfg.Durations.DefaultMinutes)
	assert.Equal(t, 2, cfg.Durations.Redis.DB)
	assert.Equal(t, 2525, cfg.Mail.SMTP.Port)
	assert.Equal(t, []byte(hashKey), cfg.CookieHashKey)
	assert.Equal(t, []byte(blockKey), cfg.CookieBlockKey)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_ParseErrors(t *testing.T) {
	t.Setenv(EnvWorkStart, "nine")
	t.Setenv(EnvTimezone, "Mars/Olympus")
	t.Setenv(EnvSlotDuration, "sixty")
	t.Setenv(EnvCookieHashKey, "%%%")

	_, err := Load()
	require.Error(t, err)
	for _, key := range []string{EnvWorkStart, EnvTimezone, EnvSlotDuration, EnvCookieHashKey} {
		assert.Contains(t, err.Error(), key)
	}
}

func TestLoad_LogTransportDefaultsSender(t *testing.T) {
	t.Setenv(EnvMailTransport, mail.TransportLog)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultLogSender, cfg.Mail.From)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		return Config{
			Slots:         slots.DefaultConfig(),
			Durations:     durations.Config{Backend: durations.BackendFile, DefaultMinutes: 60},
			OrgCalendarID: "primary",
			OrgAccount:    "org",
			Mail:          MailConfig{Transport: mail.TransportGmail, From: "org@example.com"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"inverted working day", func(c *Config) { c.Slots.WorkEnd = slots.Clock{Hour: 8} }, "invalid configuration"},
		{"bad account", func(c *Config) { c.OrgAccount = "org/../x" }, EnvOrgAccount},
		{"empty calendar", func(c *Config) { c.OrgCalendarID = "" }, EnvOrgCalendarID},
		{"unknown transport", func(c *Config) { c.Mail.Transport = "fax" }, "unsupported mail transport"},
		{"missing sender", func(c *Config) { c.Mail.From = "" }, EnvMailFrom},
		{"smtp without host", func(c *Config) { c.Mail.Transport = mail.TransportSMTP }, EnvSMTPHost},
		{"redis without addr", func(c *Config) { c.Durations.Backend = durations.BackendRedis }, EnvRedisAddr},
		{"short hash key", func(c *Config) { c.CookieHashKey = []byte("short") }, EnvCookieHashKey},
		{"odd block key", func(c *Config) {
			c.CookieHashKey = make([]byte, 32)
			c.CookieBlockKey = make([]byte, 20)
		}, EnvCookieBlockKey},
		{"block key alone", func(c *Config) { c.CookieBlockKey = make([]byte, 16) }, EnvCookieHashKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_ValidateWrapsSlotErrors(t *testing.T) {
	cfg := Config{Slots: slots.Config{}}
	assert.True(t, errors.Is(cfg.Validate(), slots.ErrInvalidConfiguration))
}
