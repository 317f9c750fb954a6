// Package influxdb writes coordinator metrics to InfluxDB v2.
//
// Writes are non-blocking and batched by the official client; failures are
// reported through SetOnError. Connect returns ErrDisabled when the
// influxdb section is switched off, so callers can skip metrics entirely.
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WritePoint("command_dispatch",
//	    map[string]string{"action": "PLAY", "outcome": "accepted"},
//	    map[string]any{"duration_ms": 4.2}, time.Now())
package influxdb
