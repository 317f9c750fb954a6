package dispatch

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const scopeName = "github.com/nerrad567/media-coordinator/internal/dispatch"

// newTracer returns the dispatcher's tracer. A nil provider means the
// global one, which is a no-op until tracing is set up.
func newTracer(tp trace.TracerProvider) trace.Tracer {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return tp.Tracer(scopeName)
}
