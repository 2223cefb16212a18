package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/kestrelworks/spatial-core/internal/entity"
	"github.com/kestrelworks/spatial-core/internal/primitive"
	"github.com/kestrelworks/spatial-core/internal/rule"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewService(NewSQLiteRepository(setupTestDB(t)))
}

func TestService_LoadWarmsCache(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	if err := repo.CreatePrimitive(ctx, testPrimitive("near")); err != nil {
		t.Fatalf("seeding primitive: %v", err)
	}
	if err := repo.CreateComposition(ctx, testComposition("docked")); err != nil {
		t.Fatalf("seeding composition: %v", err)
	}
	if err := repo.CreateRule(ctx, testRule("door-watch")); err != nil {
		t.Fatalf("seeding rule: %v", err)
	}

	svc := NewService(repo)
	if err := svc.Load(ctx); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if _, ok := svc.PrimitiveSpec("near"); !ok {
		t.Error("PrimitiveSpec(near) not found after Load")
	}
	if _, ok := svc.CompositionSpec("docked"); !ok {
		t.Error("CompositionSpec(docked) not found after Load")
	}
	if _, ok := svc.Rule("door-watch"); !ok {
		t.Error("Rule(door-watch) not found after Load")
	}
	if _, ok := svc.PrimitiveSpec("missing"); ok {
		t.Error("PrimitiveSpec(missing) unexpectedly found")
	}
}

func TestService_CreateValidatesSpec(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	// distance requires exactly two feature refs
	bad := &primitive.Spec{
		ID:     "broken",
		Metric: primitive.MetricDistance,
		Refs:   []string{"A.center"},
	}
	if err := svc.CreatePrimitive(ctx, bad); !errors.Is(err, ErrInvalidSpec) {
		t.Errorf("CreatePrimitive(invalid) error = %v, want ErrInvalidSpec", err)
	}
	if _, ok := svc.PrimitiveSpec("broken"); ok {
		t.Error("invalid spec must not enter the cache")
	}

	noOperands := &rule.CompositionSpec{ID: "empty", Operator: "AND"}
	if err := svc.CreateComposition(ctx, noOperands); !errors.Is(err, ErrInvalidSpec) {
		t.Errorf("CreateComposition(invalid) error = %v, want ErrInvalidSpec", err)
	}

	noPrimary := &rule.Spec{ID: "r1", Entities: entity.Selector{}}
	if err := svc.CreateRule(ctx, noPrimary); !errors.Is(err, ErrInvalidSpec) {
		t.Errorf("CreateRule(invalid) error = %v, want ErrInvalidSpec", err)
	}
}

func TestService_CreateThenLookup(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	spec := testPrimitive("near")
	if err := svc.CreatePrimitive(ctx, spec); err != nil {
		t.Fatalf("CreatePrimitive() error = %v", err)
	}

	got, ok := svc.PrimitiveSpec("near")
	if !ok {
		t.Fatal("PrimitiveSpec(near) not found after create")
	}
	if got.Metric != primitive.MetricDistance {
		t.Errorf("Metric = %q, want distance", got.Metric)
	}

	if err := svc.CreatePrimitive(ctx, testPrimitive("near")); !errors.Is(err, ErrExists) {
		t.Errorf("duplicate CreatePrimitive() error = %v, want ErrExists", err)
	}
}

func TestService_DeleteEvictsCache(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if err := svc.CreatePrimitive(ctx, testPrimitive("near")); err != nil {
		t.Fatalf("CreatePrimitive() error = %v", err)
	}
	if err := svc.DeletePrimitive(ctx, "near"); err != nil {
		t.Fatalf("DeletePrimitive() error = %v", err)
	}
	if _, ok := svc.PrimitiveSpec("near"); ok {
		t.Error("PrimitiveSpec(near) still cached after delete")
	}
	if err := svc.DeletePrimitive(ctx, "near"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second DeletePrimitive() error = %v, want ErrNotFound", err)
	}
}

func TestService_ListsAreOrdered(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	for _, id := range []string{"charlie", "alpha", "bravo"} {
		if err := svc.CreatePrimitive(ctx, testPrimitive(id)); err != nil {
			t.Fatalf("CreatePrimitive(%s) error = %v", id, err)
		}
	}

	specs := svc.Primitives()
	want := []string{"alpha", "bravo", "charlie"}
	if len(specs) != len(want) {
		t.Fatalf("Primitives() returned %d specs, want %d", len(specs), len(want))
	}
	for i, id := range want {
		if specs[i].ID != id {
			t.Errorf("Primitives()[%d].ID = %q, want %q", i, specs[i].ID, id)
		}
	}
}

func TestLoadSeed(t *testing.T) {
	content := `
entities:
  - id: door-1
    width: 0.9
    height: 2.0
    resolution_w: 1920
    resolution_h: 1080
    tags: [door]
  - id: cart-1
    width: 0.6
    height: 0.4

primitives:
  - id: near
    metric: distance
    refs: [A.center, B.center]
    condition:
      lt: 0.5

compositions:
  - id: docked
    operator: AND
    primitives:
      - near

rules:
  - id: door-watch
    on: enter
    condition:
      primitives:
        - docked
    entities:
      a: door-1
      b: cart-1
`
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "seed.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("writing seed file: %v", err)
	}

	seed, err := LoadSeed(path)
	if err != nil {
		t.Fatalf("LoadSeed() error = %v", err)
	}

	if len(seed.Entities) != 2 {
		t.Fatalf("Entities length = %d, want 2", len(seed.Entities))
	}
	if seed.Entities[0].ID != "door-1" || seed.Entities[0].ResolutionW != 1920 {
		t.Errorf("entity door-1 not parsed: %+v", seed.Entities[0])
	}
	if len(seed.Primitives) != 1 || seed.Primitives[0].Metric != "distance" {
		t.Errorf("primitives not parsed: %+v", seed.Primitives)
	}
	if len(seed.Compositions) != 1 || len(seed.Compositions[0].Primitives) != 1 {
		t.Errorf("compositions not parsed: %+v", seed.Compositions)
	}
	if len(seed.Rules) != 1 || seed.Rules[0].Entities.B != "cart-1" {
		t.Errorf("rules not parsed: %+v", seed.Rules)
	}
}

func TestApplySeed_SkipsBadSpecs(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	seed := &SeedFile{
		Primitives: []primitive.Spec{
			*testPrimitive("near"),
			{ID: "broken", Metric: primitive.MetricDistance, Refs: []string{"A.center"}},
			*testPrimitive("aligned"),
		},
		Rules: []rule.Spec{*testRule("door-watch")},
	}

	applied, skipped := svc.ApplySeed(ctx, seed)
	if applied != 3 {
		t.Errorf("applied = %d, want 3", applied)
	}
	if skipped != 1 {
		t.Errorf("skipped = %d, want 1", skipped)
	}

	if _, ok := svc.PrimitiveSpec("near"); !ok {
		t.Error("valid primitive before the bad one not applied")
	}
	if _, ok := svc.PrimitiveSpec("aligned"); !ok {
		t.Error("valid primitive after the bad one not applied")
	}
	if _, ok := svc.PrimitiveSpec("broken"); ok {
		t.Error("invalid primitive must not be applied")
	}
}

func TestApplySeed_IsIdempotent(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	seed := &SeedFile{Primitives: []primitive.Spec{*testPrimitive("near")}}

	if applied, skipped := svc.ApplySeed(ctx, seed); applied != 1 || skipped != 0 {
		t.Fatalf("first ApplySeed() = (%d, %d), want (1, 0)", applied, skipped)
	}

	// Second application updates rather than failing on the duplicate.
	seed.Primitives[0].Condition.Lt = fp(0.2)
	if applied, skipped := svc.ApplySeed(ctx, seed); applied != 1 || skipped != 0 {
		t.Fatalf("second ApplySeed() = (%d, %d), want (1, 0)", applied, skipped)
	}

	got, ok := svc.PrimitiveSpec("near")
	if !ok {
		t.Fatal("PrimitiveSpec(near) not found")
	}
	if got.Condition.Lt == nil || *got.Condition.Lt != 0.2 {
		t.Errorf("re-seed did not update the spec: %+v", got.Condition)
	}
}
