package entity

import (
	"strings"
	"time"

	"github.com/kestrelworks/spatial-core/internal/geometry"
)

// Entity is a tracked rectangular object.
type Entity struct {
	// Identity
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// Declared physical rectangle size in metres. Non-positive sizes
	// disable corner/surface derived signals.
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`

	// Optional pixel resolution of the entity's surface. Zero means
	// the entity has no pixel space and pixel mapping is skipped.
	ResolutionW int `json:"resolution_w,omitempty" yaml:"resolution_w,omitempty"`
	ResolutionH int `json:"resolution_h,omitempty" yaml:"resolution_h,omitempty"`

	// Tags are free-form labels used by constraint selectors.
	Tags []string `json:"tags,omitempty" yaml:"tags,omitempty"`

	RegisteredAt time.Time `json:"registered_at" yaml:"-"`
}

// HasSize reports whether the entity declared a usable physical size.
func (e *Entity) HasSize() bool {
	return e.Width > 0 && e.Height > 0
}

// HasResolution reports whether the entity declared a pixel resolution.
func (e *Entity) HasResolution() bool {
	return e.ResolutionW > 0 && e.ResolutionH > 0
}

// HasTag reports whether the entity carries the given tag.
func (e *Entity) HasTag(tag string) bool {
	for _, t := range e.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// DeepCopy returns an independent copy of the entity. Slice fields are
// cloned so cache entries cannot be mutated through returned values.
func (e *Entity) DeepCopy() *Entity {
	if e == nil {
		return nil
	}
	cpy := *e
	if e.Tags != nil {
		cpy.Tags = make([]string, len(e.Tags))
		copy(cpy.Tags, e.Tags)
	}
	return &cpy
}

// Pose is a raw world pose: position plus orientation.
type Pose struct {
	Position    geometry.Vec3 `json:"position"`
	Orientation geometry.Quat `json:"orientation"`
}

// PoseSource supplies the latest raw pose for an entity. The engine
// samples it once per scheduler tick. The boolean is false while no
// pose has been reported yet.
type PoseSource interface {
	CurrentPose(id string) (Pose, bool)
}

// Pair is an ordered entity pair: A is required, B optional. The Key
// disambiguates cached signals between pairs.
type Pair struct {
	A   *Entity
	B   *Entity
	Key string
}

// NewPair builds a pair from a required primary and an optional
// secondary entity. Returns ErrNoPrimary when a is nil.
func NewPair(a, b *Entity) (Pair, error) {
	if a == nil {
		return Pair{}, ErrNoPrimary
	}
	key := a.ID + "|"
	if b != nil {
		key += b.ID
	}
	return Pair{A: a, B: b, Key: key}, nil
}

// Entity returns the pair member for the given role ("A" or "B"); nil
// when absent.
func (p Pair) Entity(role string) *Entity {
	switch role {
	case "A":
		return p.A
	case "B":
		return p.B
	default:
		return nil
	}
}

// Selector names the entities a rule binds to. Each field is either an
// entity id or a constraint of the form "tag:<label>". B may be empty
// for single-entity rules.
type Selector struct {
	A string `json:"a" yaml:"a"`
	B string `json:"b,omitempty" yaml:"b,omitempty"`
}
