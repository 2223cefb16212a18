package mqtt

import "fmt"

// Topic prefixes for the Spatial Core MQTT hierarchy.
//
// Tracking systems publish into the tracking branch; the engine
// publishes rule events and system status from the core branch.
const (
	// TopicPrefixTracking is the base for inbound tracking topics.
	// Scheme: spatialcore/tracking/{kind}/{entity_id}
	TopicPrefixTracking = "spatialcore/tracking"

	// TopicPrefixCore is the base for all core topics.
	TopicPrefixCore = "spatialcore/core"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "spatialcore/system"
)

// Topics provides builders for Spatial Core MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	poseTopic := topics.TrackingPose("cart-1")
//	// Returns: "spatialcore/tracking/pose/cart-1"
type Topics struct{}

// =============================================================================
// Tracking Topics (inbound)
// =============================================================================

// TrackingPose returns the topic a tracking system publishes pose
// updates for one entity on.
//
// Example: spatialcore/tracking/pose/cart-1
func (Topics) TrackingPose(entityID string) string {
	return fmt.Sprintf("%s/pose/%s", TopicPrefixTracking, entityID)
}

// TrackingRegister returns the topic for entity registration messages.
//
// Example: spatialcore/tracking/register/cart-1
func (Topics) TrackingRegister(entityID string) string {
	return fmt.Sprintf("%s/register/%s", TopicPrefixTracking, entityID)
}

// TrackingUnregister returns the topic for entity removal messages.
//
// Example: spatialcore/tracking/unregister/cart-1
func (Topics) TrackingUnregister(entityID string) string {
	return fmt.Sprintf("%s/unregister/%s", TopicPrefixTracking, entityID)
}

// =============================================================================
// Core Topics (outbound)
// =============================================================================

// CoreRuleEvent returns the topic rule events are published on.
//
// Example: spatialcore/core/rule/door-watch/event
func (Topics) CoreRuleEvent(ruleID string) string {
	return fmt.Sprintf("%s/rule/%s/event", TopicPrefixCore, ruleID)
}

// CoreEntityState returns the canonical entity topic published by Core
// when an entity is registered or updated.
//
// Example: spatialcore/core/entity/cart-1/state
func (Topics) CoreEntityState(entityID string) string {
	return fmt.Sprintf("%s/entity/%s/state", TopicPrefixCore, entityID)
}

// =============================================================================
// System Topics
// =============================================================================

// SystemStatus returns the system status topic.
//
// Example: spatialcore/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// =============================================================================
// Wildcard Patterns for Subscriptions
// =============================================================================

// AllTrackingPoses returns a pattern matching all pose updates.
//
// Pattern: spatialcore/tracking/pose/+
func (Topics) AllTrackingPoses() string {
	return fmt.Sprintf("%s/pose/+", TopicPrefixTracking)
}

// AllTrackingRegisters returns a pattern matching all registrations.
//
// Pattern: spatialcore/tracking/register/+
func (Topics) AllTrackingRegisters() string {
	return fmt.Sprintf("%s/register/+", TopicPrefixTracking)
}

// AllTrackingUnregisters returns a pattern matching all removals.
//
// Pattern: spatialcore/tracking/unregister/+
func (Topics) AllTrackingUnregisters() string {
	return fmt.Sprintf("%s/unregister/+", TopicPrefixTracking)
}

// AllRuleEvents returns a pattern matching all published rule events.
//
// Pattern: spatialcore/core/rule/+/event
func (Topics) AllRuleEvents() string {
	return fmt.Sprintf("%s/rule/+/event", TopicPrefixCore)
}

// AllTopics returns a pattern matching all Spatial Core topics.
// Use with caution - this receives ALL traffic.
//
// Pattern: spatialcore/#
func (Topics) AllTopics() string {
	return "spatialcore/#"
}
