package instrumentation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	attrMethod    = "method"
	attrPath      = "path"
	attrStatus    = "status"
	attrOperation = "operation"
	attrService   = "service"
	attrTool      = "tool"
	attrAccount   = "account"
	attrSource    = "source"
	attrTransport = "transport"
)

// Histogram buckets in seconds. Google calls and tool calls wrapping them
// share a range; local HTTP handling is faster.
var (
	httpSecondsBuckets   = []float64{0.001, 0.01, 0.1, 0.5, 1, 2.5, 5, 10}
	remoteSecondsBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}
	slotCountBuckets     = []float64{0, 1, 2, 4, 8, 16, 32, 64}
)

// Metrics records meetslots metrics. The zero value and a nil *Metrics
// record nothing.
type Metrics struct {
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram

	googleAPIOperationsTotal   metric.Int64Counter
	googleAPIOperationDuration metric.Float64Histogram

	slotComputationsTotal metric.Int64Counter
	slotsOffered          metric.Int64Histogram
	bookingsTotal         metric.Int64Counter
	declinedDeletedTotal  metric.Int64Counter
	emailsSentTotal       metric.Int64Counter

	toolInvocationsTotal metric.Int64Counter
	toolDuration         metric.Float64Histogram

	// detailedLabels adds the account label to tool metrics.
	detailedLabels bool
}

// instruments creates instruments on meter and collects every failure.
type instruments struct {
	meter metric.Meter
	errs  []error
}

func (b *instruments) counter(name, desc, unit string) metric.Int64Counter {
	c, err := b.meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit(unit))
	if err != nil {
		b.errs = append(b.errs, fmt.Errorf("%s: %w", name, err))
	}
	return c
}

func (b *instruments) seconds(name, desc string, buckets []float64) metric.Float64Histogram {
	h, err := b.meter.Float64Histogram(name,
		metric.WithDescription(desc),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(buckets...),
	)
	if err != nil {
		b.errs = append(b.errs, fmt.Errorf("%s: %w", name, err))
	}
	return h
}

func (b *instruments) count(name, desc, unit string, buckets []float64) metric.Int64Histogram {
	h, err := b.meter.Int64Histogram(name,
		metric.WithDescription(desc),
		metric.WithUnit(unit),
		metric.WithExplicitBucketBoundaries(buckets...),
	)
	if err != nil {
		b.errs = append(b.errs, fmt.Errorf("%s: %w", name, err))
	}
	return h
}

// NewMetrics creates every instrument on meter. detailedLabels adds the
// account label to tool metrics.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	b := &instruments{meter: meter}
	m := &Metrics{
		httpRequestsTotal:   b.counter("http_requests_total", "Total number of HTTP requests", "{request}"),
		httpRequestDuration: b.seconds("http_request_duration_seconds", "HTTP request duration in seconds", httpSecondsBuckets),

		googleAPIOperationsTotal:   b.counter("google_api_operations_total", "Total number of Google API operations", "{operation}"),
		googleAPIOperationDuration: b.seconds("google_api_operation_duration_seconds", "Google API operation duration in seconds", remoteSecondsBuckets),

		slotComputationsTotal: b.counter("slot_computations_total", "Total number of availability computations", "{computation}"),
		slotsOffered:          b.count("slots_offered", "Number of free slots returned per computation", "{slot}", slotCountBuckets),
		bookingsTotal:         b.counter("bookings_total", "Total number of booking attempts", "{booking}"),
		declinedDeletedTotal:  b.counter("declined_events_deleted_total", "Total number of declined events removed from the calendar", "{event}"),
		emailsSentTotal:       b.counter("emails_sent_total", "Total number of notification emails sent", "{email}"),

		toolInvocationsTotal: b.counter("mcp_tool_invocations_total", "Total number of MCP tool invocations", "{invocation}"),
		toolDuration:         b.seconds("mcp_tool_duration_seconds", "MCP tool execution duration in seconds", remoteSecondsBuckets),

		detailedLabels: detailedLabels,
	}
	if err := errors.Join(b.errs...); err != nil {
		return nil, fmt.Errorf("failed to create instruments: %w", err)
	}
	return m, nil
}

// RecordHTTPRequest records one request handled by the booking API router.
// path is the route pattern, not the raw URL.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m == nil || m.httpRequestsTotal == nil {
		return
	}
	opt := metric.WithAttributes(
		attribute.String(attrMethod, method),
		attribute.String(attrPath, path),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	)
	m.httpRequestsTotal.Add(ctx, 1, opt)
	m.httpRequestDuration.Record(ctx, duration.Seconds(), opt)
}

// RecordGoogleAPIOperation records one Calendar or Gmail API call.
func (m *Metrics) RecordGoogleAPIOperation(ctx context.Context, service, operation, status string, duration time.Duration) {
	if m == nil || m.googleAPIOperationsTotal == nil {
		return
	}
	opt := metric.WithAttributes(
		attribute.String(attrService, service),
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	)
	m.googleAPIOperationsTotal.Add(ctx, 1, opt)
	m.googleAPIOperationDuration.Record(ctx, duration.Seconds(), opt)
}

// RecordSlotComputation records one availability computation and, when it
// succeeded, how many slots it offered.
func (m *Metrics) RecordSlotComputation(ctx context.Context, source, status string, slots int) {
	if m == nil || m.slotComputationsTotal == nil {
		return
	}
	m.slotComputationsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrSource, source),
		attribute.String(attrStatus, status),
	))
	if status == StatusSuccess {
		m.slotsOffered.Record(ctx, int64(slots), metric.WithAttributes(attribute.String(attrSource, source)))
	}
}

// RecordBooking records a booking attempt.
func (m *Metrics) RecordBooking(ctx context.Context, source, status string) {
	if m == nil || m.bookingsTotal == nil {
		return
	}
	m.bookingsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrSource, source),
		attribute.String(attrStatus, status),
	))
}

// RecordDeclinedDeleted records the outcome of removing one declined event.
func (m *Metrics) RecordDeclinedDeleted(ctx context.Context, status string) {
	if m == nil || m.declinedDeletedTotal == nil {
		return
	}
	m.declinedDeletedTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrStatus, status)))
}

// RecordEmailSent records one email over transport (gmail or smtp).
func (m *Metrics) RecordEmailSent(ctx context.Context, transport, status string) {
	if m == nil || m.emailsSentTotal == nil {
		return
	}
	m.emailsSentTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrTransport, transport),
		attribute.String(attrStatus, status),
	))
}

// RecordToolInvocation records an MCP tool call without account label.
func (m *Metrics) RecordToolInvocation(ctx context.Context, toolName, status string, duration time.Duration) {
	m.RecordToolInvocationWithAccount(ctx, toolName, status, "", duration)
}

// RecordToolInvocationWithAccount records an MCP tool call. The account is
// attached only with detailed labels.
func (m *Metrics) RecordToolInvocationWithAccount(ctx context.Context, toolName, status, account string, duration time.Duration) {
	if m == nil || m.toolInvocationsTotal == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String(attrTool, toolName),
		attribute.String(attrStatus, status),
	}
	if m.detailedLabels && account != "" {
		attrs = append(attrs, attribute.String(attrAccount, account))
	}
	opt := metric.WithAttributes(attrs...)
	m.toolInvocationsTotal.Add(ctx, 1, opt)
	m.toolDuration.Record(ctx, duration.Seconds(), opt)
}
