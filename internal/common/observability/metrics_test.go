// internal/common/observability/metrics_test.go
package observability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
)

func TestStartSpan_ProvidesTraceID(t *testing.T) {
	o := New("pos-interpreter-test")
	defer o.Shutdown()

	assert.Empty(t, TraceID(context.Background()))

	ctx, span := o.StartSpan(context.Background(), "interpret", attribute.String("text", "modo factura"))
	defer span.End()

	assert.Len(t, TraceID(ctx), 32)
	assert.True(t, span.SpanContext().IsValid())
}

func TestRecordJob_ZeroValueIsSafe(t *testing.T) {
	var o Observability
	assert.NotPanics(t, func() {
		o.RecordJobProcessed(context.Background(), "completed")
		o.RecordJobDuration(context.Background(), time.Millisecond, "completed")
		_, span := o.StartSpan(context.Background(), "noop")
		span.End()
		o.Shutdown()
	})
}
