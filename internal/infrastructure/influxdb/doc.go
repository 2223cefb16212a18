// Package influxdb provides InfluxDB connectivity for Spatial Core.
//
// It wraps the official influxdb-client-go v2 library with Spatial Core-specific
// patterns for connection management, event recording, and health monitoring.
//
// # Purpose
//
// This package handles time-series storage of rule event history:
// state transitions together with the measurement values the rule
// publishes.
//
// # Usage
//
//	cfg := config.InfluxDBConfig{
//	    URL:    "http://localhost:8086",
//	    Token:  "your-token",
//	    Org:    "spatialcore",
//	    Bucket: "events",
//	}
//
//	client, err := influxdb.Connect(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Record a rule event
//	client.WriteRuleEvent("docking-alignment", "enter", true,
//	    map[string]float64{"distance": 0.082})
//
//	// Query recent history
//	events, err := client.QueryRuleEvents(ctx, "docking-alignment", 24*time.Hour, 100)
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are logged via a callback.
// Connection, query, and health check errors are returned directly.
//
// # Performance
//
// Writes are batched according to config.yaml settings (batch_size, flush_interval).
// This reduces network overhead for high-frequency event streams.
package influxdb
