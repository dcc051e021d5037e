package trace

import (
	"testing"

	"github.com/opentracing/opentracing-go/mocktracer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pjanec/simhost/internal/ids"
)

func TestOpenTracingTracerStartGetFinishSpan(t *testing.T) {
	mt := mocktracer.New()
	tr := NewOpenTracingTracer(mt)
	e := ids.Entity{Index: 1, Generation: 1}

	tr.StartSpan(e, SpanGhostLifetime)
	span, ok := tr.GetSpan(e, SpanGhostLifetime)
	require.True(t, ok)
	require.NotNil(t, span)

	tr.FinishSpan(e, SpanGhostLifetime)
	_, ok = tr.GetSpan(e, SpanGhostLifetime)
	assert.False(t, ok)

	finished := mt.FinishedSpans()
	require.Len(t, finished, 1)
	assert.Equal(t, SpanGhostLifetime, finished[0].OperationName)
}

func TestOpenTracingTracerDefaultsToNoopWhenNilTracerGiven(t *testing.T) {
	tr := NewOpenTracingTracer(nil)
	span := tr.StartFrameSpan(1, SpanFrameCapture)
	assert.NotNil(t, span)
}
