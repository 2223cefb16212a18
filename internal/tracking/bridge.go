package tracking

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/kestrelworks/spatial-core/internal/entity"
	"github.com/kestrelworks/spatial-core/internal/geometry"
	"github.com/kestrelworks/spatial-core/internal/infrastructure/mqtt"
	"github.com/kestrelworks/spatial-core/internal/rule"
)

// MQTTClient is the interface for MQTT operations.
// Satisfied by *mqtt.Client; allows mocking in tests.
type MQTTClient interface {
	// Publish sends a message to a topic.
	Publish(topic string, payload []byte, qos byte, retained bool) error

	// Subscribe registers a handler for a topic pattern.
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error

	// IsConnected returns true if connected to the broker.
	IsConnected() bool
}

// Logger is the optional structured logger. Matches slog's signature.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Bridge connects external tracking systems to the engine over MQTT.
//
// Inbound, it subscribes to the tracking branch and feeds the entity
// registry: pose updates, registrations and removals. Outbound, it is
// a rule event sink, publishing each fired rule event on its own topic
// and mirroring entity registrations as retained canonical state.
//
// Thread Safety: All methods are safe for concurrent use. Handlers run
// on the MQTT client's delivery goroutines.
type Bridge struct {
	client   MQTTClient
	registry *entity.Registry
	qos      byte
	topics   mqtt.Topics
	logger   Logger
	onPose   func(entityID string)
}

// New creates a tracking bridge over the given MQTT client and entity
// registry.
func New(client MQTTClient, registry *entity.Registry, qos byte) *Bridge {
	return &Bridge{
		client:   client,
		registry: registry,
		qos:      qos,
		logger:   noopLogger{},
	}
}

// SetLogger installs a structured logger. Nil restores the no-op.
func (b *Bridge) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	b.logger = logger
}

// OnPoseUpdate sets a hook invoked with the entity id after each
// applied pose update. Set it before Start.
func (b *Bridge) OnPoseUpdate(fn func(entityID string)) {
	b.onPose = fn
}

// Start subscribes to the tracking topics. The MQTT client restores
// the subscriptions itself on reconnect.
func (b *Bridge) Start() error {
	subs := []struct {
		pattern string
		handler mqtt.MessageHandler
	}{
		{b.topics.AllTrackingPoses(), b.handlePose},
		{b.topics.AllTrackingRegisters(), b.handleRegister},
		{b.topics.AllTrackingUnregisters(), b.handleUnregister},
	}
	for _, sub := range subs {
		if err := b.client.Subscribe(sub.pattern, b.qos, sub.handler); err != nil {
			return fmt.Errorf("subscribing to %s: %w", sub.pattern, err)
		}
	}
	b.logger.Info("tracking bridge started", "qos", b.qos)
	return nil
}

// PublishRuleEvent implements the rule event sink. Marshal or publish
// failures are logged, not returned; the engine never blocks on a
// slow broker.
func (b *Bridge) PublishRuleEvent(ev rule.WireEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		b.logger.Error("marshalling rule event", "rule", ev.ID, "error", err)
		return
	}
	topic := b.topics.CoreRuleEvent(ev.ID)
	if err := b.client.Publish(topic, payload, b.qos, false); err != nil {
		b.logger.Warn("publishing rule event", "rule", ev.ID, "error", err)
	}
}

// handlePose applies one pose update to the registry.
func (b *Bridge) handlePose(topic string, payload []byte) error {
	id, err := entityIDFromTopic(topic)
	if err != nil {
		return err
	}

	var msg PoseMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("parsing pose for %s: %w", id, err)
	}

	pose := entity.Pose{Position: msg.Position, Orientation: orientationOf(&msg)}
	if msg.Orientation == nil && msg.Euler == nil {
		// Position-only update: keep the last known orientation.
		if prev, ok := b.registry.CurrentPose(id); ok {
			pose.Orientation = prev.Orientation
		}
	}

	b.registry.UpdatePose(id, pose)
	if b.onPose != nil {
		b.onPose(id)
	}
	return nil
}

// handleRegister creates or refreshes an entity from a registration
// message and mirrors it as retained canonical state.
func (b *Bridge) handleRegister(topic string, payload []byte) error {
	id, err := entityIDFromTopic(topic)
	if err != nil {
		return err
	}

	var msg RegisterMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("parsing registration for %s: %w", id, err)
	}

	e := &entity.Entity{
		ID:          id,
		Name:        msg.Name,
		Width:       msg.Width,
		Height:      msg.Height,
		ResolutionW: msg.ResolutionW,
		ResolutionH: msg.ResolutionH,
		Tags:        msg.Tags,
	}

	if err := b.registry.Register(e); err != nil {
		// Re-registration refreshes the record in place.
		if unregErr := b.registry.Unregister(id); unregErr != nil {
			return fmt.Errorf("registering %s: %w", id, err)
		}
		if err := b.registry.Register(e); err != nil {
			return fmt.Errorf("re-registering %s: %w", id, err)
		}
	}

	b.publishEntityState(e, StatusRegistered)
	return nil
}

// handleUnregister removes an entity. Unknown ids are not an error;
// removal messages may be replayed.
func (b *Bridge) handleUnregister(topic string, _ []byte) error {
	id, err := entityIDFromTopic(topic)
	if err != nil {
		return err
	}

	e, getErr := b.registry.Get(id)
	if err := b.registry.Unregister(id); err != nil {
		b.logger.Warn("unregister for unknown entity", "id", id)
		return nil
	}
	if getErr == nil {
		b.publishEntityState(e, StatusUnregistered)
	}
	return nil
}

// publishEntityState mirrors an entity record on the canonical topic.
func (b *Bridge) publishEntityState(e *entity.Entity, status string) {
	msg := EntityStateMessage{
		ID:          e.ID,
		Name:        e.Name,
		Width:       e.Width,
		Height:      e.Height,
		ResolutionW: e.ResolutionW,
		ResolutionH: e.ResolutionH,
		Tags:        e.Tags,
		Status:      status,
		Timestamp:   time.Now().UTC(),
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		b.logger.Error("marshalling entity state", "id", e.ID, "error", err)
		return
	}
	topic := b.topics.CoreEntityState(e.ID)
	if err := b.client.Publish(topic, payload, b.qos, true); err != nil {
		b.logger.Warn("publishing entity state", "id", e.ID, "error", err)
	}
}

// orientationOf extracts the orientation from a pose message,
// preferring the quaternion encoding.
func orientationOf(msg *PoseMessage) geometry.Quat {
	switch {
	case msg.Orientation != nil:
		return msg.Orientation.Normalize()
	case msg.Euler != nil:
		return geometry.QuatFromEuler(msg.Euler.Pitch, msg.Euler.Yaw, msg.Euler.Roll)
	default:
		return geometry.QuatIdentity
	}
}

// entityIDFromTopic extracts the entity id from the final topic
// segment.
func entityIDFromTopic(topic string) (string, error) {
	idx := strings.LastIndex(topic, "/")
	if idx < 0 || idx == len(topic)-1 {
		return "", fmt.Errorf("malformed tracking topic %q", topic)
	}
	return topic[idx+1:], nil
}
