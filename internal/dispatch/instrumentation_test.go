package dispatch

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/nerrad567/media-coordinator/internal/session"
)

func TestDispatch_RecordsSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	devices := newFakeDevices()
	d, err := New(Options{
		Inventory:      testInventory(),
		Store:          session.NewStore(),
		Devices:        devices,
		Delivery:       DeliveryBestEffort,
		TracerProvider: tp,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx := context.Background()
	if _, err := d.Execute(ctx, []byte(`{"action":"PLAY","targetTvId":"tv_living_room","contentRef":"demo-video"}`)); err != nil {
		t.Fatalf("PLAY error = %v", err)
	}
	if _, err := d.Execute(ctx, []byte(`{"action":"STOP","sessionId":"sess_missing"}`)); err == nil {
		t.Fatal("STOP on a missing session should fail")
	}

	spans := recorder.Ended()
	if len(spans) != 2 {
		t.Fatalf("ended spans = %d, want 2", len(spans))
	}

	attrs := func(s sdktrace.ReadOnlySpan) map[string]string {
		m := map[string]string{}
		for _, kv := range s.Attributes() {
			m[string(kv.Key)] = kv.Value.Emit()
		}
		return m
	}

	play := spans[0]
	if play.Name() != "dispatch PLAY" {
		t.Errorf("span name = %q", play.Name())
	}
	a := attrs(play)
	if a["command.outcome"] != string(OutcomeAccepted) || a["session.id"] == "" {
		t.Errorf("PLAY attributes = %v", a)
	}

	stop := spans[1]
	if got := attrs(stop)["command.outcome"]; got != string(OutcomeRejected) {
		t.Errorf("STOP outcome = %q, want rejected", got)
	}
	if stop.Status().Code == codes.Error {
		t.Error("client errors must not mark the span as failed")
	}
}
