package rule

import (
	"github.com/google/uuid"

	"github.com/kestrelworks/spatial-core/internal/geometry"
)

// WireEvent is the external form of a rule event. Field names are the
// stable wire contract.
type WireEvent struct {
	ID      string         `json:"id"`
	EventID string         `json:"eventId"`
	Type    string         `json:"type"`
	State   bool           `json:"state"`
	Streams map[string]any `json:"streams"`
}

// Serialize flattens an event for external consumption: vectors and
// orientations become plain numeric-field records, projection results
// become tagged variant records carrying world coordinates plus pixel
// coordinates for each pair member whose surface metadata is known.
func Serialize(e Event) WireEvent {
	streams := make(map[string]any, e.Streams.Len())
	for _, path := range e.Streams.Paths() {
		v, _ := e.Streams.Get(path)
		streams[path] = sanitize(v, e.MapperA, e.MapperB)
	}
	return WireEvent{
		ID:      e.RuleID,
		EventID: uuid.NewString(),
		Type:    "rule_event",
		State:   e.State,
		Streams: streams,
	}
}

func sanitize(v StreamValue, mapperA, mapperB *geometry.PixelMap) any {
	switch v.Kind {
	case StreamScalar:
		return v.Scalar
	case StreamBool:
		return v.Bool
	case StreamVec2:
		return vec2Record(v.Vec2)
	case StreamVec3:
		return vec3Record(v.Vec3)
	case StreamQuat:
		return map[string]any{"w": v.Quat.W, "x": v.Quat.X, "y": v.Quat.Y, "z": v.Quat.Z}
	case StreamSegment:
		rec := map[string]any{"kind": "segment"}
		if len(v.Points) == 2 {
			rec["a"] = vec3Record(v.Points[0])
			rec["b"] = vec3Record(v.Points[1])
		}
		return rec
	case StreamPolygon:
		return map[string]any{"kind": "polygon", "points": vec3Records(v.Points)}
	case StreamOverlap:
		rec := map[string]any{
			"kind":  v.Overlap.Kind.String(),
			"ratio": v.Overlap.Ratio,
			"world": vec3Records(v.Overlap.Points),
		}
		if px, ok := pixelRecords(v.Overlap.Points, mapperA); ok {
			rec["pixelA"] = px
		}
		if px, ok := pixelRecords(v.Overlap.Points, mapperB); ok {
			rec["pixelB"] = px
		}
		return rec
	default:
		return nil
	}
}

func vec2Record(v geometry.Vec2) map[string]any {
	return map[string]any{"x": v.X, "y": v.Y}
}

func vec3Record(v geometry.Vec3) map[string]any {
	return map[string]any{"x": v.X, "y": v.Y, "z": v.Z}
}

func vec3Records(points []geometry.Vec3) []any {
	out := make([]any, len(points))
	for i, p := range points {
		out[i] = vec3Record(p)
	}
	return out
}

// pixelRecords maps world points into an entity's pixel space. The
// whole list is dropped when any point falls outside the surface, so a
// partially-mapped overlap never masquerades as a complete one.
func pixelRecords(points []geometry.Vec3, mapper *geometry.PixelMap) ([]any, bool) {
	if mapper == nil || len(points) == 0 {
		return nil, false
	}
	out := make([]any, len(points))
	for i, p := range points {
		px, err := mapper.WorldToPixel(p)
		if err != nil {
			return nil, false
		}
		out[i] = vec2Record(px)
	}
	return out, true
}
