//go:build integration

package mqtt

import (
	"encoding/json"
	"testing"
	"time"
)

// Lifecycle tests that exercise the system status topic against a live
// broker at 127.0.0.1:1883.
//
// Run with:
//   go test -tags=integration -count=1 -v ./internal/infrastructure/mqtt/...

func TestIntegration_OnlineStatusPublished(t *testing.T) {
	watcher := mustConnect(t, "spatialcore-int-status-watch")

	statuses := make(chan statusPayload, 4)
	err := watcher.Subscribe(Topics{}.SystemStatus(), 1, func(_ string, payload []byte) error {
		var s statusPayload
		if err := json.Unmarshal(payload, &s); err != nil {
			return err
		}
		statuses <- s
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	time.Sleep(100 * time.Millisecond)

	core := mustConnect(t, "spatialcore-int-status-core")
	_ = core

	deadline := time.After(5 * time.Second)
	for {
		select {
		case s := <-statuses:
			if s.Status == "online" && s.ClientID == "spatialcore-int-status-core" {
				return
			}
		case <-deadline:
			t.Fatal("never observed online status for the connecting client")
		}
	}
}

func TestIntegration_GracefulShutdownStatus(t *testing.T) {
	watcher := mustConnect(t, "spatialcore-int-shutdown-watch")

	statuses := make(chan statusPayload, 4)
	err := watcher.Subscribe(Topics{}.SystemStatus(), 1, func(_ string, payload []byte) error {
		var s statusPayload
		if err := json.Unmarshal(payload, &s); err != nil {
			return err
		}
		statuses <- s
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	time.Sleep(100 * time.Millisecond)

	core, err := Connect(testConfig("spatialcore-int-shutdown-core"))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	core.Close()

	deadline := time.After(5 * time.Second)
	for {
		select {
		case s := <-statuses:
			if s.Status == "offline" && s.ClientID == "spatialcore-int-shutdown-core" {
				if s.Reason != "graceful_shutdown" {
					t.Errorf("offline reason = %q, want graceful_shutdown", s.Reason)
				}
				return
			}
		case <-deadline:
			t.Fatal("never observed offline status after Close()")
		}
	}
}

func TestIntegration_RuleEventRoundtrip(t *testing.T) {
	engine := mustConnect(t, "spatialcore-int-engine")
	consumer := mustConnect(t, "spatialcore-int-consumer")

	received := make(chan string, 1)
	err := consumer.Subscribe(Topics{}.AllRuleEvents(), 1, func(topic string, _ []byte) error {
		select {
		case received <- topic:
		default:
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	time.Sleep(100 * time.Millisecond)

	event := []byte(`{"rule":"door-watch","state":true,"snapshot":{"primitives.proximity.measurement":0.12}}`)
	if err := engine.Publish(Topics{}.CoreRuleEvent("door-watch"), event, 1, false); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case topic := <-received:
		if want := Topics{}.CoreRuleEvent("door-watch"); topic != want {
			t.Errorf("event topic = %q, want %q", topic, want)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for rule event")
	}
}
