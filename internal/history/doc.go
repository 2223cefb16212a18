// Package history records rule events to time-series storage.
//
// The Recorder sits between the rule registry and the InfluxDB client:
// it implements rule.Sink, flattens each event's published streams to
// numeric fields, and hands the point to the client's batched writer.
//
// # Usage
//
//	influx, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	ruleRegistry.AddSink(history.NewRecorder(influx))
//
// # Thread Safety
//
// Recorder is stateless and safe for concurrent use.
package history
