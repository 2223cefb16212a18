package rule

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kestrelworks/spatial-core/internal/entity"
	"github.com/kestrelworks/spatial-core/internal/primitive"
)

// Ref is one reference inside a condition tree: the id of a primitive
// or composition, optionally negated, optionally carrying an inline
// override of the primitive's catalog spec.
//
// The textual form is a plain id with an optional "!" or "~" negation
// prefix. The object form is an inline primitive spec, negated via its
// own "negate" field.
type Ref struct {
	ID      string
	Negated bool
	Inline  *primitive.InlineSpec
}

// inlineRef is the object form of a condition reference on the wire.
type inlineRef struct {
	primitive.InlineSpec `yaml:",inline"`
	Negate               bool `json:"negate,omitempty" yaml:"negate,omitempty"`
}

func parseRefString(s string) (Ref, error) {
	negated := false
	for strings.HasPrefix(s, "!") || strings.HasPrefix(s, "~") {
		negated = !negated
		s = s[1:]
	}
	if s == "" {
		return Ref{}, fmt.Errorf("%w: empty condition reference", ErrInvalidRule)
	}
	return Ref{ID: s, Negated: negated}, nil
}

// UnmarshalJSON accepts either the string or the inline-object form.
func (r *Ref) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		parsed, err := parseRefString(s)
		if err != nil {
			return err
		}
		*r = parsed
		return nil
	}
	var obj inlineRef
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("%w: condition reference: %v", ErrInvalidRule, err)
	}
	if obj.ID == "" {
		return fmt.Errorf("%w: inline condition reference without id", ErrInvalidRule)
	}
	inline := obj.InlineSpec
	*r = Ref{ID: obj.ID, Negated: obj.Negate, Inline: &inline}
	return nil
}

// UnmarshalYAML accepts either the string or the inline-object form.
func (r *Ref) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err == nil {
		parsed, err := parseRefString(s)
		if err != nil {
			return err
		}
		*r = parsed
		return nil
	}
	var obj inlineRef
	if err := unmarshal(&obj); err != nil {
		return fmt.Errorf("%w: condition reference: %v", ErrInvalidRule, err)
	}
	if obj.ID == "" {
		return fmt.Errorf("%w: inline condition reference without id", ErrInvalidRule)
	}
	inline := obj.InlineSpec
	*r = Ref{ID: obj.ID, Negated: obj.Negate, Inline: &inline}
	return nil
}

// MarshalJSON writes the string form when possible, the object form
// when an inline override is present.
func (r Ref) MarshalJSON() ([]byte, error) {
	if r.Inline == nil {
		s := r.ID
		if r.Negated {
			s = "!" + s
		}
		return json.Marshal(s)
	}
	return json.Marshal(inlineRef{InlineSpec: *r.Inline, Negate: r.Negated})
}

// ConditionTree is a boolean combination of primitive and composition
// references.
type ConditionTree struct {
	// Operator is AND, OR or NOT. Empty means AND.
	Operator   string `json:"operator,omitempty" yaml:"operator,omitempty"`
	Primitives []Ref  `json:"primitives" yaml:"primitives"`
}

// CompositionSpec is a named, reusable boolean combination referenced
// from rule conditions by id.
type CompositionSpec struct {
	ID          string `json:"id" yaml:"id"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Operator    string `json:"operator,omitempty" yaml:"operator,omitempty"`
	Primitives  []Ref  `json:"primitives" yaml:"primitives"`
}

// Validate checks the static shape of the composition.
func (c *CompositionSpec) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("%w: composition with empty id", ErrInvalidRule)
	}
	if err := validateOperator(c.Operator); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidRule, c.ID, err)
	}
	if len(c.Primitives) == 0 {
		return fmt.Errorf("%w: %s: composition has no operands", ErrInvalidRule, c.ID)
	}
	return nil
}

// PixelPoint is a literal pixel coordinate in a mapping directive.
type PixelPoint struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Mapping requests pixel/world coordinate translation on the published
// snapshot. ToPixel directives name a published stream whose world
// point is mapped into the entity's pixel space; FromPixel directives
// carry a literal pixel coordinate mapped onto the entity's surface in
// world space. A directive is skipped, not an error, when the entity,
// its resolution, or its corners are unavailable.
type Mapping struct {
	ToPixelA   string      `json:"toPixelA,omitempty" yaml:"toPixelA,omitempty"`
	ToPixelB   string      `json:"toPixelB,omitempty" yaml:"toPixelB,omitempty"`
	FromPixelA *PixelPoint `json:"fromPixelA,omitempty" yaml:"fromPixelA,omitempty"`
	FromPixelB *PixelPoint `json:"fromPixelB,omitempty" yaml:"fromPixelB,omitempty"`
}

// PublishSpec lists the streams included in each event snapshot.
type PublishSpec struct {
	// Streams are publish paths: "primitives.<id>.measurement",
	// "primitives.<id>.value", or an entity feature path such as
	// "A.corners", "B.corner.topLeft", "A.edge.top", "A.surface".
	Streams []string `json:"streams" yaml:"streams"`
	Mapping *Mapping `json:"mapping,omitempty" yaml:"mapping,omitempty"`
}

// Trigger modes.
const (
	OnEnter  = "enter"
	OnExit   = "exit"
	OnChange = "change"
	OnTrue   = "true"
	OnFalse  = "false"
	OnAlways = "always"
)

// Spec is one declarative rule: a boolean condition over primitives,
// bound to an entity pair, publishing a value snapshot on a trigger.
type Spec struct {
	ID        string          `json:"id" yaml:"id"`
	On        string          `json:"on,omitempty" yaml:"on,omitempty"`
	Condition *ConditionTree  `json:"condition,omitempty" yaml:"condition,omitempty"`
	Entities  entity.Selector `json:"entities" yaml:"entities"`
	Publish   *PublishSpec    `json:"publish,omitempty" yaml:"publish,omitempty"`
}

// Validate checks the static shape of the spec.
func (s *Spec) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidRule)
	}
	switch s.On {
	case "", OnEnter, OnExit, OnChange, OnTrue, OnFalse, OnAlways:
	default:
		return fmt.Errorf("%w: %s: unknown trigger mode %q", ErrInvalidRule, s.ID, s.On)
	}
	if s.Entities.A == "" {
		return fmt.Errorf("%w: %s: no primary entity selector", ErrInvalidRule, s.ID)
	}
	if s.Condition != nil {
		if err := validateOperator(s.Condition.Operator); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidRule, s.ID, err)
		}
	}
	return nil
}

// Mode returns the trigger mode, defaulting to always.
func (s *Spec) Mode() string {
	if s.On == "" {
		return OnAlways
	}
	return s.On
}

func validateOperator(op string) error {
	switch op {
	case "", "AND", "OR", "NOT":
		return nil
	default:
		return fmt.Errorf("unknown operator %q", op)
	}
}
