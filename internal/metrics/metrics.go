// Package metrics records dispatch and device-call timings as time-series
// points.
package metrics

import (
	"time"

	"github.com/nerrad567/media-coordinator/internal/device"
	"github.com/nerrad567/media-coordinator/internal/dispatch"
)

// Measurement names.
const (
	MeasurementCommandDispatch = "command_dispatch"
	MeasurementDownstreamCall  = "downstream_call"
)

// PointWriter is satisfied by *influxdb.Client.
type PointWriter interface {
	WritePoint(measurement string, tags map[string]string, fields map[string]any, ts time.Time)
}

// Recorder turns dispatch records and device calls into points.
type Recorder struct {
	w   PointWriter
	now func() time.Time
}

// NewRecorder returns a Recorder writing to w.
func NewRecorder(w PointWriter) *Recorder {
	return &Recorder{w: w, now: time.Now}
}

// Observe implements dispatch.Observer.
func (r *Recorder) Observe(rec dispatch.Record) {
	action := string(rec.Action)
	if action == "" {
		action = "UNKNOWN"
	}
	at := rec.At
	if at.IsZero() {
		at = r.now()
	}
	r.w.WritePoint(MeasurementCommandDispatch,
		map[string]string{"action": action, "outcome": string(rec.Outcome)},
		map[string]any{"duration_ms": millis(rec.Duration), "count": 1},
		at)
}

// DeviceCall is a device.Options.OnCall hook.
func (r *Recorder) DeviceCall(call device.Call) {
	ok := call.Err == nil && call.Status >= 200 && call.Status < 300
	r.w.WritePoint(MeasurementDownstreamCall,
		map[string]string{"path": call.Path, "success": boolTag(ok)},
		map[string]any{"duration_ms": millis(call.Duration), "status": call.Status},
		r.now())
}

func millis(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}

func boolTag(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
