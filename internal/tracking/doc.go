// Package tracking bridges external tracking systems to the engine
// over MQTT.
//
// Inbound, the bridge subscribes to the spatialcore/tracking branch:
//
//	spatialcore/tracking/register/{id}    entity registration
//	spatialcore/tracking/unregister/{id}  entity removal
//	spatialcore/tracking/pose/{id}        pose updates
//
// and feeds the entity registry. Outbound, it mirrors registrations as
// retained canonical entity state and acts as a rule event sink,
// publishing each fired rule event on spatialcore/core/rule/{id}/event.
//
// Pose messages accept either a quaternion or Euler angles; a message
// with neither keeps the entity's previous orientation so that
// position-only trackers work unchanged.
package tracking
