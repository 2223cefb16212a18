package influxdb_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kestrelworks/spatial-core/internal/infrastructure/config"
	"github.com/kestrelworks/spatial-core/internal/infrastructure/influxdb"
)

// testConfig matches the local dev InfluxDB from docker-compose.yml.
func testConfig() config.InfluxDBConfig {
	return config.InfluxDBConfig{
		Enabled:       true,
		URL:           "http://127.0.0.1:8086",
		Token:         "spatialcore-dev-token",
		Org:           "spatialcore",
		Bucket:        "metrics",
		BatchSize:     100,
		FlushInterval: 1,
	}
}

// connectOrSkip connects to the dev server, skipping the test when it is
// not running.
func connectOrSkip(t *testing.T) *influxdb.Client {
	t.Helper()
	client, err := influxdb.Connect(testConfig())
	if err != nil {
		t.Skip("InfluxDB not available, skipping integration test")
	}
	t.Cleanup(func() { client.Close() })
	return client
}

// errorSink captures async write failures.
type errorSink struct {
	mu  sync.Mutex
	err error
}

func (s *errorSink) set(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func (s *errorSink) get() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func TestConnectDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false

	if _, err := influxdb.Connect(cfg); !errors.Is(err, influxdb.ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnectUnreachable(t *testing.T) {
	cfg := testConfig()
	cfg.URL = "http://127.0.0.1:59999"

	if _, err := influxdb.Connect(cfg); !errors.Is(err, influxdb.ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestConnectClampsBatchSettings(t *testing.T) {
	cfg := testConfig()
	cfg.BatchSize = -5
	cfg.FlushInterval = 0

	client, err := influxdb.Connect(cfg)
	if err != nil {
		t.Skip("InfluxDB not available, skipping integration test")
	}
	defer client.Close()

	if !client.IsConnected() {
		t.Error("IsConnected() = false after Connect()")
	}
}

func TestHealthCheck(t *testing.T) {
	client := connectOrSkip(t)

	if err := client.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	if err := client.HealthCheck(cancelled); err == nil {
		t.Error("HealthCheck() with cancelled context should fail")
	}
}

func TestWriteRuleEvent(t *testing.T) {
	client := connectOrSkip(t)

	sink := &errorSink{}
	client.SetOnError(sink.set)

	client.WriteRuleEvent("docking-alignment", "enter", true,
		map[string]float64{"primitives.near-dock.measurement": 0.082})
	// A rule without publish streams still records its state field.
	client.WriteRuleEvent("docking-alignment", "exit", false, nil)
	client.Flush()

	time.Sleep(100 * time.Millisecond)
	if err := sink.get(); err != nil {
		t.Errorf("async write error = %v", err)
	}
}

func TestQueryRuleEventsRoundtrip(t *testing.T) {
	client := connectOrSkip(t)

	client.WriteRuleEvent("query-roundtrip", "enter", true,
		map[string]float64{"distance": 0.1})
	client.Flush()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	events, err := client.QueryRuleEvents(ctx, "query-roundtrip", time.Hour, 10)
	if err != nil {
		t.Fatalf("QueryRuleEvents() error = %v", err)
	}
	for _, ev := range events {
		if ev.RuleID != "query-roundtrip" {
			t.Errorf("RuleID = %q, want query-roundtrip", ev.RuleID)
		}
	}
}

func TestQueryRuleEventsDisconnected(t *testing.T) {
	client := connectOrSkip(t)
	client.Close()

	_, err := client.QueryRuleEvents(context.Background(), "any", time.Hour, 10)
	if !errors.Is(err, influxdb.ErrNotConnected) {
		t.Errorf("QueryRuleEvents() after Close() error = %v, want ErrNotConnected", err)
	}
}

func TestCloseFlushesAndDisconnects(t *testing.T) {
	client, err := influxdb.Connect(testConfig())
	if err != nil {
		t.Skip("InfluxDB not available, skipping integration test")
	}

	client.WriteRuleEvent("close-flush", "enter", true, nil)
	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if client.IsConnected() {
		t.Error("IsConnected() = true after Close()")
	}

	// Writes after Close are dropped, not panicking.
	client.WriteRuleEvent("close-flush", "exit", false, nil)
	client.Flush()
}
