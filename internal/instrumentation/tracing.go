package instrumentation

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope of every meetslots span.
const TracerName = "github.com/teemow/meetslots"

// Span attribute keys.
const (
	SpanAttrTool         = "mcp.tool"
	SpanAttrService      = "google.service"
	SpanAttrOperation    = "google.operation"
	SpanAttrAccount      = "meetslots.account"
	SpanAttrCalendar     = "meetslots.calendar"
	SpanAttrDay          = "meetslots.day"
	SpanAttrSlotCount    = "meetslots.slot_count"
	SpanAttrResourceID   = "meetslots.resource_id"
	SpanAttrResourceType = "meetslots.resource_type"
)

// SpanAttributeBuilder collects span attributes and skips empty values, so
// optional fields such as the account can be passed unchecked.
type SpanAttributeBuilder struct {
	attrs []attribute.KeyValue
}

func NewSpanAttributeBuilder() *SpanAttributeBuilder {
	return &SpanAttributeBuilder{}
}

func (b *SpanAttributeBuilder) add(key, value string) *SpanAttributeBuilder {
	if value != "" {
		b.attrs = append(b.attrs, attribute.String(key, value))
	}
	return b
}

func (b *SpanAttributeBuilder) WithAccount(account string) *SpanAttributeBuilder {
	return b.add(SpanAttrAccount, account)
}

func (b *SpanAttributeBuilder) WithCalendar(calendarID string) *SpanAttributeBuilder {
	return b.add(SpanAttrCalendar, calendarID)
}

// WithDay takes a YYYY-MM-DD date.
func (b *SpanAttributeBuilder) WithDay(day string) *SpanAttributeBuilder {
	return b.add(SpanAttrDay, day)
}

// WithResource names the object acted on, e.g. ("event", id).
func (b *SpanAttributeBuilder) WithResource(resourceType, resourceID string) *SpanAttributeBuilder {
	return b.add(SpanAttrResourceType, resourceType).add(SpanAttrResourceID, resourceID)
}

func (b *SpanAttributeBuilder) Build() []attribute.KeyValue {
	return b.attrs
}

func tracer() trace.Tracer {
	return otel.GetTracerProvider().Tracer(TracerName)
}

// StartSpan starts an internal span. The caller must end it.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer().Start(ctx, name, trace.WithAttributes(attrs...))
}

// StartToolSpan starts the server span tool.<name> around an MCP tool call.
func StartToolSpan(ctx context.Context, toolName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer().Start(ctx, "tool."+toolName,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attribute.String(SpanAttrTool, toolName)),
		trace.WithAttributes(attrs...),
	)
}

// StartGoogleAPISpan starts the client span google.<service>.<operation>.
func StartGoogleAPISpan(ctx context.Context, service, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer().Start(ctx, "google."+service+"."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String(SpanAttrService, service),
			attribute.String(SpanAttrOperation, operation),
		),
		trace.WithAttributes(attrs...),
	)
}

// SetSlotCount records how many free slots a computation produced.
func SetSlotCount(span trace.Span, n int) {
	span.SetAttributes(attribute.Int(SpanAttrSlotCount, n))
}

// SetSpanError marks span failed. A nil err leaves it untouched.
func SetSpanError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func SetSpanSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}
