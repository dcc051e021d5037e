// Package trace wraps opentracing behind the narrow interface the rest
// of simhost actually needs: start a span for a frame or an entity,
// keyed so a later phase can find and chain off the same span, the same
// shape as this codebase's module.Tracer.
package trace

import (
	"sync"

	"github.com/opentracing/opentracing-go"

	"github.com/pjanec/simhost/internal/ids"
)

const (
	SpanFrameCapture  = "simhost.frame.capture"
	SpanFrameDispatch = "simhost.frame.dispatch"
	SpanFramePlayback = "simhost.frame.playback"
	SpanModuleTick    = "simhost.module.tick"
	SpanGhostLifetime = "simhost.entity.ghost_lifetime"
)

// Tracer starts and remembers spans keyed by an entity so a later phase
// (e.g. promotion out of Ghost) can chain a child span off whatever span
// is still open for that entity.
type Tracer interface {
	StartFrameSpan(frame uint32, operationName string) opentracing.Span
	StartSpan(e ids.Entity, operationName string, refs ...opentracing.StartSpanOption) opentracing.Span
	GetSpan(e ids.Entity, operationName string) (opentracing.Span, bool)
	FinishSpan(e ids.Entity, operationName string)
}

type spanKey struct {
	entity ids.Entity
	name   string
}

// OpenTracingTracer implements Tracer against any opentracing.Tracer
// (Jaeger, a no-op tracer, or anything else conforming to the API).
type OpenTracingTracer struct {
	tracer opentracing.Tracer

	mu    sync.Mutex
	spans map[spanKey]opentracing.Span
}

func NewOpenTracingTracer(tracer opentracing.Tracer) *OpenTracingTracer {
	if tracer == nil {
		tracer = opentracing.NoopTracer{}
	}
	return &OpenTracingTracer{tracer: tracer, spans: make(map[spanKey]opentracing.Span)}
}

func (t *OpenTracingTracer) StartFrameSpan(frame uint32, operationName string) opentracing.Span {
	return t.tracer.StartSpan(operationName, opentracing.Tag{Key: "frame", Value: frame})
}

func (t *OpenTracingTracer) StartSpan(e ids.Entity, operationName string, refs ...opentracing.StartSpanOption) opentracing.Span {
	opts := append([]opentracing.StartSpanOption{opentracing.Tag{Key: "entity", Value: e.String()}}, refs...)
	span := t.tracer.StartSpan(operationName, opts...)

	t.mu.Lock()
	t.spans[spanKey{e, operationName}] = span
	t.mu.Unlock()
	return span
}

func (t *OpenTracingTracer) GetSpan(e ids.Entity, operationName string) (opentracing.Span, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.spans[spanKey{e, operationName}]
	return s, ok
}

func (t *OpenTracingTracer) FinishSpan(e ids.Entity, operationName string) {
	key := spanKey{e, operationName}
	t.mu.Lock()
	span, ok := t.spans[key]
	if ok {
		delete(t.spans, key)
	}
	t.mu.Unlock()
	if ok {
		span.Finish()
	}
}
