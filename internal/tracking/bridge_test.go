package tracking

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/kestrelworks/spatial-core/internal/entity"
	"github.com/kestrelworks/spatial-core/internal/geometry"
	"github.com/kestrelworks/spatial-core/internal/infrastructure/mqtt"
	"github.com/kestrelworks/spatial-core/internal/rule"
)

// fakeMQTT records subscriptions and publishes, and lets tests inject
// inbound messages by topic.
type fakeMQTT struct {
	subs      map[string]mqtt.MessageHandler
	published []publishedMsg
}

type publishedMsg struct {
	topic    string
	payload  []byte
	retained bool
}

func newFakeMQTT() *fakeMQTT {
	return &fakeMQTT{subs: make(map[string]mqtt.MessageHandler)}
}

func (f *fakeMQTT) Publish(topic string, payload []byte, _ byte, retained bool) error {
	f.published = append(f.published, publishedMsg{topic: topic, payload: payload, retained: retained})
	return nil
}

func (f *fakeMQTT) Subscribe(topic string, _ byte, handler mqtt.MessageHandler) error {
	f.subs[topic] = handler
	return nil
}

func (f *fakeMQTT) IsConnected() bool { return true }

// deliver routes an inbound message to the handler whose wildcard
// pattern matches the topic's branch.
func (f *fakeMQTT) deliver(t *testing.T, topic string, payload []byte) error {
	t.Helper()
	for pattern, handler := range f.subs {
		prefix := strings.TrimSuffix(pattern, "+")
		if strings.HasPrefix(topic, prefix) {
			return handler(topic, payload)
		}
	}
	t.Fatalf("no subscription matches topic %s", topic)
	return nil
}

func newTestBridge(t *testing.T) (*Bridge, *fakeMQTT, *entity.Registry) {
	t.Helper()
	client := newFakeMQTT()
	registry := entity.NewRegistry()
	bridge := New(client, registry, 1)
	if err := bridge.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	return bridge, client, registry
}

func TestBridgeSubscribesTrackingBranch(t *testing.T) {
	_, client, _ := newTestBridge(t)

	want := []string{
		"spatialcore/tracking/pose/+",
		"spatialcore/tracking/register/+",
		"spatialcore/tracking/unregister/+",
	}
	for _, pattern := range want {
		if _, ok := client.subs[pattern]; !ok {
			t.Errorf("missing subscription %s", pattern)
		}
	}
	if len(client.subs) != len(want) {
		t.Errorf("subscription count = %d, want %d", len(client.subs), len(want))
	}
}

func TestRegisterCreatesEntityAndMirrorsState(t *testing.T) {
	_, client, registry := newTestBridge(t)

	payload := []byte(`{"name":"Cart","width":0.6,"height":0.4,"resolution_w":640,"resolution_h":480,"tags":["cart"]}`)
	if err := client.deliver(t, "spatialcore/tracking/register/cart-1", payload); err != nil {
		t.Fatalf("register handler error = %v", err)
	}

	e, err := registry.Get("cart-1")
	if err != nil {
		t.Fatalf("entity not registered: %v", err)
	}
	if e.Name != "Cart" || e.Width != 0.6 || e.ResolutionW != 640 {
		t.Errorf("entity fields = %+v", e)
	}

	if len(client.published) != 1 {
		t.Fatalf("published %d messages, want 1", len(client.published))
	}
	pub := client.published[0]
	if pub.topic != "spatialcore/core/entity/cart-1/state" {
		t.Errorf("state topic = %s", pub.topic)
	}
	if !pub.retained {
		t.Error("entity state must be retained")
	}
	var state EntityStateMessage
	if err := json.Unmarshal(pub.payload, &state); err != nil {
		t.Fatalf("unmarshalling state: %v", err)
	}
	if state.ID != "cart-1" || state.Status != StatusRegistered {
		t.Errorf("state = %+v", state)
	}
}

func TestReRegisterRefreshesEntity(t *testing.T) {
	_, client, registry := newTestBridge(t)

	first := []byte(`{"width":0.6,"height":0.4}`)
	if err := client.deliver(t, "spatialcore/tracking/register/cart-1", first); err != nil {
		t.Fatalf("first register error = %v", err)
	}
	second := []byte(`{"width":0.8,"height":0.5}`)
	if err := client.deliver(t, "spatialcore/tracking/register/cart-1", second); err != nil {
		t.Fatalf("second register error = %v", err)
	}

	e, err := registry.Get("cart-1")
	if err != nil {
		t.Fatalf("entity missing after re-register: %v", err)
	}
	if e.Width != 0.8 {
		t.Errorf("Width = %v after re-register, want 0.8", e.Width)
	}
}

func TestPoseUpdateWithQuaternion(t *testing.T) {
	_, client, registry := newTestBridge(t)

	if err := client.deliver(t, "spatialcore/tracking/register/cart-1",
		[]byte(`{"width":0.6,"height":0.4}`)); err != nil {
		t.Fatalf("register error = %v", err)
	}

	payload := []byte(`{"position":{"x":1,"y":0,"z":2},"orientation":{"w":1,"x":0,"y":0,"z":0}}`)
	if err := client.deliver(t, "spatialcore/tracking/pose/cart-1", payload); err != nil {
		t.Fatalf("pose handler error = %v", err)
	}

	pose, ok := registry.CurrentPose("cart-1")
	if !ok {
		t.Fatal("pose not stored")
	}
	if pose.Position.X != 1 || pose.Position.Z != 2 {
		t.Errorf("Position = %+v", pose.Position)
	}
	if pose.Orientation != geometry.QuatIdentity {
		t.Errorf("Orientation = %+v, want identity", pose.Orientation)
	}
}

func TestPoseUpdateWithEulerAngles(t *testing.T) {
	_, client, registry := newTestBridge(t)

	if err := client.deliver(t, "spatialcore/tracking/register/cart-1",
		[]byte(`{"width":0.6,"height":0.4}`)); err != nil {
		t.Fatalf("register error = %v", err)
	}

	payload := []byte(`{"position":{"x":0,"y":0,"z":0},"euler":{"yaw":90}}`)
	if err := client.deliver(t, "spatialcore/tracking/pose/cart-1", payload); err != nil {
		t.Fatalf("pose handler error = %v", err)
	}

	pose, ok := registry.CurrentPose("cart-1")
	if !ok {
		t.Fatal("pose not stored")
	}
	_, yaw, _ := pose.Orientation.Euler()
	if math.Abs(yaw-90) > 1e-6 {
		t.Errorf("yaw = %v, want 90", yaw)
	}
}

func TestPoseUpdateInvokesHook(t *testing.T) {
	client := newFakeMQTT()
	registry := entity.NewRegistry()
	bridge := New(client, registry, 1)

	var observed []string
	bridge.OnPoseUpdate(func(id string) { observed = append(observed, id) })
	if err := bridge.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if err := client.deliver(t, "spatialcore/tracking/register/cart-1",
		[]byte(`{"width":0.6,"height":0.4}`)); err != nil {
		t.Fatalf("register error = %v", err)
	}
	for i := 0; i < 2; i++ {
		payload := []byte(`{"position":{"x":1,"y":0,"z":0}}`)
		if err := client.deliver(t, "spatialcore/tracking/pose/cart-1", payload); err != nil {
			t.Fatalf("pose handler error = %v", err)
		}
	}

	if len(observed) != 2 {
		t.Fatalf("hook invocations = %d, want 2", len(observed))
	}
	if observed[0] != "cart-1" {
		t.Errorf("hook id = %s, want cart-1", observed[0])
	}

	// A malformed payload never reaches the hook.
	_ = client.deliver(t, "spatialcore/tracking/pose/cart-1", []byte(`{`))
	if len(observed) != 2 {
		t.Errorf("hook ran on a rejected payload: %d invocations", len(observed))
	}
}

func TestPositionOnlyPoseKeepsOrientation(t *testing.T) {
	_, client, registry := newTestBridge(t)

	if err := client.deliver(t, "spatialcore/tracking/register/cart-1",
		[]byte(`{"width":0.6,"height":0.4}`)); err != nil {
		t.Fatalf("register error = %v", err)
	}

	turned := []byte(`{"position":{"x":0,"y":0,"z":0},"euler":{"yaw":45}}`)
	if err := client.deliver(t, "spatialcore/tracking/pose/cart-1", turned); err != nil {
		t.Fatalf("first pose error = %v", err)
	}
	moved := []byte(`{"position":{"x":3,"y":0,"z":0}}`)
	if err := client.deliver(t, "spatialcore/tracking/pose/cart-1", moved); err != nil {
		t.Fatalf("second pose error = %v", err)
	}

	pose, _ := registry.CurrentPose("cart-1")
	if pose.Position.X != 3 {
		t.Errorf("Position.X = %v, want 3", pose.Position.X)
	}
	_, yaw, _ := pose.Orientation.Euler()
	if math.Abs(yaw-45) > 1e-6 {
		t.Errorf("yaw = %v after position-only update, want 45", yaw)
	}
}

func TestUnregisterRemovesEntity(t *testing.T) {
	_, client, registry := newTestBridge(t)

	if err := client.deliver(t, "spatialcore/tracking/register/cart-1",
		[]byte(`{"width":0.6,"height":0.4}`)); err != nil {
		t.Fatalf("register error = %v", err)
	}
	client.published = nil

	if err := client.deliver(t, "spatialcore/tracking/unregister/cart-1", nil); err != nil {
		t.Fatalf("unregister handler error = %v", err)
	}

	if _, err := registry.Get("cart-1"); err == nil {
		t.Error("entity still registered after unregister")
	}

	if len(client.published) != 1 {
		t.Fatalf("published %d messages, want 1", len(client.published))
	}
	var state EntityStateMessage
	if err := json.Unmarshal(client.published[0].payload, &state); err != nil {
		t.Fatalf("unmarshalling state: %v", err)
	}
	if state.Status != StatusUnregistered {
		t.Errorf("Status = %s, want %s", state.Status, StatusUnregistered)
	}
}

func TestUnregisterUnknownEntityIsNotAnError(t *testing.T) {
	_, client, _ := newTestBridge(t)

	if err := client.deliver(t, "spatialcore/tracking/unregister/ghost", nil); err != nil {
		t.Errorf("unregister(ghost) error = %v, want nil", err)
	}
}

func TestMalformedPosePayloadReturnsError(t *testing.T) {
	_, client, _ := newTestBridge(t)

	if err := client.deliver(t, "spatialcore/tracking/pose/cart-1", []byte("{not json")); err == nil {
		t.Error("malformed payload did not return an error")
	}
}

func TestPublishRuleEvent(t *testing.T) {
	bridge, client, _ := newTestBridge(t)

	bridge.PublishRuleEvent(rule.WireEvent{
		ID:      "door-watch",
		EventID: "evt-1",
		Type:    "rule_event",
		State:   true,
		Streams: map[string]any{"primitives.near.measurement": 0.05},
	})

	if len(client.published) != 1 {
		t.Fatalf("published %d messages, want 1", len(client.published))
	}
	pub := client.published[0]
	if pub.topic != "spatialcore/core/rule/door-watch/event" {
		t.Errorf("topic = %s", pub.topic)
	}
	if pub.retained {
		t.Error("rule events must not be retained")
	}
	var decoded map[string]any
	if err := json.Unmarshal(pub.payload, &decoded); err != nil {
		t.Fatalf("unmarshalling event: %v", err)
	}
	if decoded["state"] != true {
		t.Errorf("state = %v, want true", decoded["state"])
	}
}
