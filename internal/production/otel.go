package production

import (
	"context"
	"io"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/comalice/blockx"
)

const instrumentation = "github.com/comalice/blockx"

// OTelTransmitter records one span per transition. The span starts and
// ends at the record's timestamp and carries every record field as an
// attribute.
type OTelTransmitter struct {
	tracer trace.Tracer
}

// NewOTelTransmitter creates a transmitter using tp.
func NewOTelTransmitter(tp trace.TracerProvider) *OTelTransmitter {
	return &OTelTransmitter{tracer: tp.Tracer(instrumentation)}
}

func (t *OTelTransmitter) Transmit(ctx context.Context, rec blockx.TraceRecord) error {
	at := time.UnixMilli(rec.Timestamp)
	_, span := t.tracer.Start(ctx, rec.Transition,
		trace.WithTimestamp(at),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("blockx.context", rec.Context),
			attribute.String("blockx.state.current", rec.CurrentState),
			attribute.String("blockx.state.next", rec.NextState),
			attribute.String("blockx.event", rec.Event),
			attribute.String("blockx.transition", rec.Transition),
			attribute.String("blockx.guard", rec.Guard),
			attribute.String("blockx.effect", rec.Effect),
		))
	span.End(trace.WithTimestamp(at))
	return nil
}

// NewStdoutProvider builds a tracer provider exporting spans as JSON to w.
// Callers own the provider and must Shutdown it.
func NewStdoutProvider(ctx context.Context, service, version string, w io.Writer) (*sdktrace.TracerProvider, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, err
	}
	return NewProvider(ctx, service, version, exporter)
}

// NewProvider builds a tracer provider exporting synchronously through
// exporter.
func NewProvider(ctx context.Context, service, version string, exporter sdktrace.SpanExporter) (*sdktrace.TracerProvider, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			attribute.String("service.name", service),
			attribute.String("service.version", version),
		),
	)
	if err != nil {
		return nil, err
	}
	return sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(exporter)),
		sdktrace.WithResource(res),
	), nil
}
