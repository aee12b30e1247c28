package instrumentation

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"time"
)

// Environment variables read by ConfigFromEnv. The OTEL_* names follow the
// OpenTelemetry conventions so a collector sidecar can configure meetslots
// the same way as every other service.
const (
	EnvEnabled         = "MEETSLOTS_INSTRUMENTATION"
	EnvMetricsExporter = "MEETSLOTS_METRICS_EXPORTER"
	EnvTracingExporter = "MEETSLOTS_TRACING_EXPORTER"
	EnvDetailedLabels  = "MEETSLOTS_METRICS_ACCOUNT_LABEL"
	EnvAuditEnabled    = "MEETSLOTS_AUDIT_LOG"
	EnvAuditPII        = "MEETSLOTS_AUDIT_LOG_PII"
	EnvAuditLevel      = "MEETSLOTS_AUDIT_LOG_LEVEL"

	EnvServiceName  = "OTEL_SERVICE_NAME"
	EnvInstanceID   = "OTEL_SERVICE_INSTANCE_ID"
	EnvOTLPEndpoint = "OTEL_EXPORTER_OTLP_ENDPOINT"
	EnvOTLPInsecure = "OTEL_EXPORTER_OTLP_INSECURE"
	EnvSamplingRate = "OTEL_TRACES_SAMPLER_ARG"
)

// DefaultServiceName is the OpenTelemetry service name unless overridden.
const DefaultServiceName = "meetslots"

// DefaultSamplingRate is the share of root traces kept.
const DefaultSamplingRate = 0.1

// Config controls metrics, tracing and the audit trail.
type Config struct {
	ServiceName    string
	ServiceVersion string
	// ServiceInstanceID defaults to the hostname, which is the pod name
	// on Kubernetes.
	ServiceInstanceID string

	// Enabled switches metrics and tracing on. The audit trail is
	// controlled separately by AuditLogging.Enabled.
	Enabled bool

	// MetricsExporter is prometheus, otlp or stdout.
	MetricsExporter string
	// TracingExporter is otlp, stdout or none.
	TracingExporter string

	// OTLPEndpoint is host:port without a scheme. TLS is used unless
	// OTLPInsecure is set.
	OTLPEndpoint string
	OTLPInsecure bool

	TraceSamplingRate float64

	// DetailedLabels adds the account label to tool metrics. Account
	// names are chosen by callers, so leave it off on public deployments.
	DetailedLabels bool

	AuditLogging AuditLoggingConfig
}

// AuditLoggingConfig controls the audit trail of bookings, invitations,
// duration changes and tool calls.
type AuditLoggingConfig struct {
	Enabled bool
	// IncludePII writes full attendee addresses instead of their domain.
	IncludePII bool
	// LogLevel is the slog level of successful records. Failed records
	// are written at WARN or above.
	LogLevel string
}

// DefaultConfig reads the configuration from the process environment.
func DefaultConfig() Config {
	return ConfigFromEnv(os.Getenv)
}

// ConfigFromEnv builds a Config from getenv. Unset or unparsable values
// fall back to their defaults.
func ConfigFromEnv(getenv func(string) string) Config {
	env := envReader(getenv)
	return Config{
		ServiceName:       env.str(EnvServiceName, DefaultServiceName),
		ServiceVersion:    "unknown",
		ServiceInstanceID: env.str(EnvInstanceID, ""),
		Enabled:           env.boolean(EnvEnabled, true),
		MetricsExporter:   env.str(EnvMetricsExporter, ExporterPrometheus),
		TracingExporter:   env.str(EnvTracingExporter, ExporterNone),
		OTLPEndpoint:      env.str(EnvOTLPEndpoint, ""),
		OTLPInsecure:      env.boolean(EnvOTLPInsecure, false),
		TraceSamplingRate: env.float(EnvSamplingRate, DefaultSamplingRate),
		DetailedLabels:    env.boolean(EnvDetailedLabels, false),
		AuditLogging: AuditLoggingConfig{
			Enabled:    env.boolean(EnvAuditEnabled, true),
			IncludePII: env.boolean(EnvAuditPII, false),
			LogLevel:   env.str(EnvAuditLevel, "info"),
		},
	}
}

// Validate checks exporter names, the sampling rate and that OTLP exporters
// have an endpoint.
func (c *Config) Validate() error {
	if c.TraceSamplingRate < 0 || c.TraceSamplingRate > 1 {
		return fmt.Errorf("trace sampling rate must be between 0.0 and 1.0, got %g", c.TraceSamplingRate)
	}

	metricsExporters := []string{ExporterPrometheus, ExporterOTLP, ExporterStdout}
	if c.MetricsExporter != "" && !slices.Contains(metricsExporters, c.MetricsExporter) {
		return fmt.Errorf("invalid metrics exporter %q, must be one of %v", c.MetricsExporter, metricsExporters)
	}
	tracingExporters := []string{ExporterOTLP, ExporterStdout, ExporterNone}
	if c.TracingExporter != "" && !slices.Contains(tracingExporters, c.TracingExporter) {
		return fmt.Errorf("invalid tracing exporter %q, must be one of %v", c.TracingExporter, tracingExporters)
	}

	if c.OTLPEndpoint == "" && (c.MetricsExporter == ExporterOTLP || c.TracingExporter == ExporterOTLP) {
		return fmt.Errorf("%s is required when exporting over OTLP", EnvOTLPEndpoint)
	}
	return nil
}

type envReader func(string) string

func (e envReader) str(key, def string) string {
	if v := e(key); v != "" {
		return v
	}
	return def
}

func (e envReader) boolean(key string, def bool) bool {
	if v, err := strconv.ParseBool(e(key)); err == nil {
		return v
	}
	return def
}

func (e envReader) float(key string, def float64) float64 {
	if v, err := strconv.ParseFloat(e(key), 64); err == nil {
		return v
	}
	return def
}

// Label values shared by metrics, spans and audit records.
const (
	StatusSuccess = "success"
	StatusError   = "error"

	ServiceGmail    = "gmail"
	ServiceCalendar = "calendar"

	OperationList   = "list"
	OperationCreate = "create"
	OperationDelete = "delete"
	OperationSend   = "send"

	TransportGmail = "gmail"
	TransportSMTP  = "smtp"

	SourceHTTP = "http"
	SourceMCP  = "mcp"
	SourceCLI  = "cli"

	ExporterPrometheus = "prometheus"
	ExporterOTLP       = "otlp"
	ExporterStdout     = "stdout"
	ExporterNone       = "none"
)

// DefaultMetricInterval is the export interval of periodic metric readers.
const DefaultMetricInterval = 10 * time.Second
