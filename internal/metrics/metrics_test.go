package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/nerrad567/media-coordinator/internal/command"
	"github.com/nerrad567/media-coordinator/internal/device"
	"github.com/nerrad567/media-coordinator/internal/dispatch"
)

type point struct {
	measurement string
	tags        map[string]string
	fields      map[string]any
	ts          time.Time
}

type fakeWriter struct {
	points []point
}

func (f *fakeWriter) WritePoint(m string, tags map[string]string, fields map[string]any, ts time.Time) {
	f.points = append(f.points, point{m, tags, fields, ts})
}

func TestObserve(t *testing.T) {
	w := &fakeWriter{}
	r := NewRecorder(w)
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	var obs dispatch.Observer = r
	obs.Observe(dispatch.Record{
		Action:   command.ActionSeek,
		Outcome:  dispatch.OutcomeAccepted,
		Duration: 3 * time.Millisecond,
		At:       at,
	})
	obs.Observe(dispatch.Record{Outcome: dispatch.OutcomeRejected})

	if len(w.points) != 2 {
		t.Fatalf("points = %d, want 2", len(w.points))
	}
	p := w.points[0]
	if p.measurement != MeasurementCommandDispatch || p.tags["action"] != "SEEK" || p.tags["outcome"] != "accepted" {
		t.Errorf("point = %+v", p)
	}
	if p.fields["duration_ms"] != 3.0 || !p.ts.Equal(at) {
		t.Errorf("fields = %v, ts = %v", p.fields, p.ts)
	}
	if w.points[1].tags["action"] != "UNKNOWN" || w.points[1].ts.IsZero() {
		t.Errorf("unparsed point = %+v", w.points[1])
	}
}

func TestDeviceCall(t *testing.T) {
	w := &fakeWriter{}
	r := NewRecorder(w)
	fixed := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return fixed }

	tests := []struct {
		name    string
		call    device.Call
		success string
	}{
		{"ok", device.Call{Path: device.PathPlay, Status: 200, Duration: time.Millisecond}, "true"},
		{"refused", device.Call{Path: device.PathSetVolume, Status: 500}, "false"},
		{"unreachable", device.Call{Path: device.PathAttachSession, Err: errors.New("dial")}, "false"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w.points = nil
			r.DeviceCall(tt.call)
			if len(w.points) != 1 {
				t.Fatalf("points = %d", len(w.points))
			}
			p := w.points[0]
			if p.measurement != MeasurementDownstreamCall || p.tags["path"] != tt.call.Path || p.tags["success"] != tt.success {
				t.Errorf("point = %+v", p)
			}
			if !p.ts.Equal(fixed) {
				t.Errorf("ts = %v", p.ts)
			}
		})
	}
}
