package rule

import (
	"encoding/json"
	"errors"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/kestrelworks/spatial-core/internal/entity"
)

func TestRefUnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    Ref
		wantErr bool
	}{
		{name: "plain id", data: `"proximity"`, want: Ref{ID: "proximity"}},
		{name: "bang negation", data: `"!proximity"`, want: Ref{ID: "proximity", Negated: true}},
		{name: "tilde negation", data: `"~proximity"`, want: Ref{ID: "proximity", Negated: true}},
		{name: "double negation cancels", data: `"!!proximity"`, want: Ref{ID: "proximity"}},
		{name: "empty string", data: `""`, wantErr: true},
		{name: "bare negation", data: `"!"`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Ref
			err := json.Unmarshal([]byte(tt.data), &got)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && (got.ID != tt.want.ID || got.Negated != tt.want.Negated) {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestRefUnmarshalInlineObject(t *testing.T) {
	data := `{"id":"proximity","condition":{"lt":0.03},"negate":true}`
	var got Ref
	if err := json.Unmarshal([]byte(data), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.ID != "proximity" || !got.Negated {
		t.Errorf("got %+v, want negated proximity", got)
	}
	if got.Inline == nil || got.Inline.Condition == nil || got.Inline.Condition.Lt == nil || *got.Inline.Condition.Lt != 0.03 {
		t.Errorf("inline override not captured: %+v", got.Inline)
	}

	var missing Ref
	if err := json.Unmarshal([]byte(`{"condition":{"lt":1}}`), &missing); !errors.Is(err, ErrInvalidRule) {
		t.Errorf("object without id: error = %v, want ErrInvalidRule", err)
	}
}

func TestSpecUnmarshalYAML(t *testing.T) {
	doc := `
id: door-watch
on: enter
condition:
  operator: AND
  primitives:
    - proximity
    - "!occluded"
    - id: approach
      condition:
        gt: 0.5
entities:
  a: door-1
  b: "tag:panel"
publish:
  streams:
    - primitives.proximity.measurement
    - B.corner.topLeft
  mapping:
    toPixelB: B.corner.topLeft
`
	var spec Spec
	if err := yaml.Unmarshal([]byte(doc), &spec); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if spec.ID != "door-watch" || spec.On != OnEnter {
		t.Errorf("header fields: %+v", spec)
	}
	refs := spec.Condition.Primitives
	if len(refs) != 3 {
		t.Fatalf("refs = %d, want 3", len(refs))
	}
	if refs[0].ID != "proximity" || refs[0].Negated {
		t.Errorf("refs[0] = %+v", refs[0])
	}
	if refs[1].ID != "occluded" || !refs[1].Negated {
		t.Errorf("refs[1] = %+v", refs[1])
	}
	if refs[2].ID != "approach" || refs[2].Inline == nil || refs[2].Inline.Condition.Gt == nil {
		t.Errorf("refs[2] = %+v", refs[2])
	}
	if spec.Entities != (entity.Selector{A: "door-1", B: "tag:panel"}) {
		t.Errorf("entities = %+v", spec.Entities)
	}
	if spec.Publish.Mapping.ToPixelB != "B.corner.topLeft" {
		t.Errorf("mapping = %+v", spec.Publish.Mapping)
	}
}

func TestSpecValidate(t *testing.T) {
	tests := []struct {
		name    string
		spec    Spec
		wantErr bool
	}{
		{"minimal", Spec{ID: "r", Entities: entity.Selector{A: "a"}}, false},
		{"all modes", Spec{ID: "r", On: "exit", Entities: entity.Selector{A: "a"}}, false},
		{"empty id", Spec{Entities: entity.Selector{A: "a"}}, true},
		{"bad mode", Spec{ID: "r", On: "sometimes", Entities: entity.Selector{A: "a"}}, true},
		{"no primary selector", Spec{ID: "r"}, true},
		{"bad operator", Spec{ID: "r", Entities: entity.Selector{A: "a"},
			Condition: &ConditionTree{Operator: "XOR", Primitives: []Ref{{ID: "p"}}}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.spec.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
