package daemon

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/jmylchreest/stackbox/internal/config"
	"github.com/jmylchreest/stackbox/internal/notify"
)

const tracerName = "stackbox/widgets"

// NewTracerProvider builds an OTLP/HTTP tracer provider from cfg. It
// returns nil when tracing is disabled.
func NewTracerProvider(ctx context.Context, cfg config.TracingConfig) (*sdktrace.TracerProvider, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "stackboxd"
	}
	res := resource.NewSchemaless(attribute.String("service.name", serviceName))

	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	), nil
}

// WidgetTracer records one span per widget, from creation to close.
// State changes, recolors and z-order changes become span events.
type WidgetTracer struct {
	tracer oteltrace.Tracer

	mu    sync.Mutex
	spans map[notify.Ref]oteltrace.Span
}

// NewWidgetTracer creates a WidgetTracer on tp.
func NewWidgetTracer(tp oteltrace.TracerProvider) *WidgetTracer {
	return &WidgetTracer{
		tracer: tp.Tracer(tracerName),
		spans:  make(map[notify.Ref]oteltrace.Span),
	}
}

// Listen is a notify.Listener.
func (t *WidgetTracer) Listen(e notify.Event) {
	switch e.Type {
	case notify.EventCreated:
		v := e.View
		_, span := t.tracer.Start(context.Background(), "widget "+v.Ref.Kind.String(),
			oteltrace.WithTimestamp(v.CreatedAt),
			oteltrace.WithAttributes(
				attribute.String("stackbox.widget.ref", v.Ref.String()),
				attribute.String("stackbox.widget.uid", v.UID),
				attribute.String("stackbox.widget.title", v.Title),
				attribute.String("stackbox.widget.source", v.Origin.Source),
				attribute.String("stackbox.widget.app", v.Origin.App),
				attribute.Int64("stackbox.widget.timeout_ms", v.Timeout.Milliseconds()),
			),
		)
		t.mu.Lock()
		t.spans[v.Ref] = span
		t.mu.Unlock()

	case notify.EventStateChanged:
		span, ok := t.span(e.Ref)
		if !ok {
			return
		}
		span.AddEvent("state "+e.State.String(), oteltrace.WithTimestamp(e.At),
			oteltrace.WithAttributes(attribute.String("stackbox.reason", e.Reason.String())))

	case notify.EventColorChanged:
		if span, ok := t.span(e.Ref); ok {
			span.AddEvent("color", oteltrace.WithTimestamp(e.At),
				oteltrace.WithAttributes(attribute.String("stackbox.color", e.Color)))
		}

	case notify.EventZOrderChanged:
		if span, ok := t.span(e.Ref); ok {
			span.AddEvent("raise", oteltrace.WithTimestamp(e.At),
				oteltrace.WithAttributes(attribute.Int("stackbox.z_index", e.ZIndex)))
		}

	case notify.EventRemoved:
		t.mu.Lock()
		span, ok := t.spans[e.Ref]
		delete(t.spans, e.Ref)
		t.mu.Unlock()
		if !ok {
			return
		}
		if e.Reason == notify.CloseReasonDestroyed {
			span.SetStatus(codes.Error, "destroyed")
		}
		span.End(oteltrace.WithTimestamp(e.At))
	}
}

// Closed annotates the span with the widget result.
func (t *WidgetTracer) Closed(res notify.Result) {
	span, ok := t.span(res.Ref)
	if !ok {
		return
	}
	attrs := []attribute.KeyValue{attribute.String("stackbox.close.reason", res.Reason.String())}
	if res.Button != "" {
		attrs = append(attrs, attribute.String("stackbox.close.button", res.Button))
	}
	span.SetAttributes(attrs...)
}

func (t *WidgetTracer) span(ref notify.Ref) (oteltrace.Span, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	span, ok := t.spans[ref]
	return span, ok
}

// Live returns the number of open spans.
func (t *WidgetTracer) Live() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.spans)
}
