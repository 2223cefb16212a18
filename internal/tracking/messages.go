package tracking

import (
	"time"

	"github.com/kestrelworks/spatial-core/internal/geometry"
)

// MQTT message types exchanged with external tracking systems.

// EulerAngles is the alternative orientation encoding for trackers
// that do not produce quaternions. Degrees, YXZ order.
type EulerAngles struct {
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
	Roll  float64 `json:"roll"`
}

// PoseMessage is published by a tracking system on
// spatialcore/tracking/pose/{entity_id}.
//
// Orientation takes precedence over Euler when both are present. A
// message with neither keeps the entity's previous orientation, so
// position-only trackers stay cheap.
type PoseMessage struct {
	// Timestamp is when the pose was observed (UTC, ISO8601).
	// Optional; informational only.
	Timestamp time.Time `json:"timestamp,omitzero"`

	// Position is the entity centre in world metres.
	Position geometry.Vec3 `json:"position"`

	// Orientation is the entity rotation as a unit quaternion.
	Orientation *geometry.Quat `json:"orientation,omitempty"`

	// Euler is the entity rotation as Euler angles in degrees.
	Euler *EulerAngles `json:"euler,omitempty"`
}

// RegisterMessage is published on
// spatialcore/tracking/register/{entity_id} to announce an entity.
// The id in the topic is authoritative; an id in the payload is
// ignored.
type RegisterMessage struct {
	Name        string   `json:"name,omitempty"`
	Width       float64  `json:"width"`
	Height      float64  `json:"height"`
	ResolutionW int      `json:"resolution_w,omitempty"`
	ResolutionH int      `json:"resolution_h,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// EntityStateMessage is the canonical entity record published by Core
// on spatialcore/core/entity/{entity_id}/state after a registration.
// Retained so late subscribers see the current fleet.
type EntityStateMessage struct {
	ID          string    `json:"id"`
	Name        string    `json:"name,omitempty"`
	Width       float64   `json:"width"`
	Height      float64   `json:"height"`
	ResolutionW int       `json:"resolution_w,omitempty"`
	ResolutionH int       `json:"resolution_h,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
}

// Entity status values for EntityStateMessage.
const (
	StatusRegistered   = "registered"
	StatusUnregistered = "unregistered"
)
