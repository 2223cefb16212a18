package catalog

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/kestrelworks/spatial-core/internal/entity"
	"github.com/kestrelworks/spatial-core/internal/primitive"
	"github.com/kestrelworks/spatial-core/internal/rule"
)

// setupTestDB creates an in-memory SQLite database with the catalog schema.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}

	// Matches the catalog schema migration.
	schema := `
		CREATE TABLE primitives (
			id TEXT PRIMARY KEY,
			spec TEXT NOT NULL,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		) STRICT;

		CREATE TABLE compositions (
			id TEXT PRIMARY KEY,
			spec TEXT NOT NULL,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		) STRICT;

		CREATE TABLE rules (
			id TEXT PRIMARY KEY,
			spec TEXT NOT NULL,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		) STRICT;`

	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("creating schema: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func fp(v float64) *float64 { return &v }

// testPrimitive creates a valid distance primitive spec.
func testPrimitive(id string) *primitive.Spec {
	return &primitive.Spec{
		ID:        id,
		Metric:    primitive.MetricDistance,
		Refs:      []string{"A.center", "B.center"},
		Condition: &primitive.Condition{Lt: fp(0.1)},
	}
}

func testComposition(id string) *rule.CompositionSpec {
	return &rule.CompositionSpec{
		ID:         id,
		Operator:   "AND",
		Primitives: []rule.Ref{{ID: "near"}, {ID: "aligned"}},
	}
}

func testRule(id string) *rule.Spec {
	return &rule.Spec{
		ID: id,
		On: rule.OnEnter,
		Condition: &rule.ConditionTree{
			Primitives: []rule.Ref{{ID: "near"}},
		},
		Entities: entity.Selector{A: "door-1", B: "cart-1"},
	}
}

func TestRepository_PrimitiveCRUD(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	spec := testPrimitive("near")
	if err := repo.CreatePrimitive(ctx, spec); err != nil {
		t.Fatalf("CreatePrimitive() error = %v", err)
	}

	got, err := repo.GetPrimitive(ctx, "near")
	if err != nil {
		t.Fatalf("GetPrimitive() error = %v", err)
	}
	if got.Metric != primitive.MetricDistance {
		t.Errorf("Metric = %q, want %q", got.Metric, primitive.MetricDistance)
	}
	if len(got.Refs) != 2 || got.Refs[0] != "A.center" {
		t.Errorf("Refs = %v, want [A.center B.center]", got.Refs)
	}
	if got.Condition == nil || got.Condition.Lt == nil || *got.Condition.Lt != 0.1 {
		t.Errorf("Condition not round-tripped: %+v", got.Condition)
	}

	// Duplicate create fails
	if err := repo.CreatePrimitive(ctx, spec); !errors.Is(err, ErrExists) {
		t.Errorf("duplicate CreatePrimitive() error = %v, want ErrExists", err)
	}

	// Update changes the stored document
	spec.Condition.Lt = fp(0.25)
	if err := repo.UpdatePrimitive(ctx, spec); err != nil {
		t.Fatalf("UpdatePrimitive() error = %v", err)
	}
	got, err = repo.GetPrimitive(ctx, "near")
	if err != nil {
		t.Fatalf("GetPrimitive() after update error = %v", err)
	}
	if *got.Condition.Lt != 0.25 {
		t.Errorf("Condition.Lt = %v after update, want 0.25", *got.Condition.Lt)
	}

	// Delete removes it
	if err := repo.DeletePrimitive(ctx, "near"); err != nil {
		t.Fatalf("DeletePrimitive() error = %v", err)
	}
	if _, err := repo.GetPrimitive(ctx, "near"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetPrimitive() after delete error = %v, want ErrNotFound", err)
	}
	if err := repo.DeletePrimitive(ctx, "near"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second DeletePrimitive() error = %v, want ErrNotFound", err)
	}
}

func TestRepository_ListPrimitivesOrdered(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	for _, id := range []string{"zeta", "alpha", "mid"} {
		if err := repo.CreatePrimitive(ctx, testPrimitive(id)); err != nil {
			t.Fatalf("CreatePrimitive(%s) error = %v", id, err)
		}
	}

	specs, err := repo.ListPrimitives(ctx)
	if err != nil {
		t.Fatalf("ListPrimitives() error = %v", err)
	}
	if len(specs) != 3 {
		t.Fatalf("ListPrimitives() returned %d specs, want 3", len(specs))
	}
	want := []string{"alpha", "mid", "zeta"}
	for i, id := range want {
		if specs[i].ID != id {
			t.Errorf("specs[%d].ID = %q, want %q", i, specs[i].ID, id)
		}
	}
}

func TestRepository_CompositionCRUD(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	spec := testComposition("docked")
	if err := repo.CreateComposition(ctx, spec); err != nil {
		t.Fatalf("CreateComposition() error = %v", err)
	}

	got, err := repo.GetComposition(ctx, "docked")
	if err != nil {
		t.Fatalf("GetComposition() error = %v", err)
	}
	if got.Operator != "AND" {
		t.Errorf("Operator = %q, want AND", got.Operator)
	}
	if len(got.Primitives) != 2 {
		t.Fatalf("Primitives length = %d, want 2", len(got.Primitives))
	}
	if got.Primitives[1].ID != "aligned" {
		t.Errorf("Primitives[1].ID = %q, want aligned", got.Primitives[1].ID)
	}

	if err := repo.DeleteComposition(ctx, "docked"); err != nil {
		t.Fatalf("DeleteComposition() error = %v", err)
	}
	if _, err := repo.GetComposition(ctx, "docked"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetComposition() after delete error = %v, want ErrNotFound", err)
	}
}

func TestRepository_CompositionNegatedRefRoundTrip(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	spec := &rule.CompositionSpec{
		ID:         "clear-path",
		Operator:   "AND",
		Primitives: []rule.Ref{{ID: "near"}, {ID: "occluded", Negated: true}},
	}
	if err := repo.CreateComposition(ctx, spec); err != nil {
		t.Fatalf("CreateComposition() error = %v", err)
	}

	got, err := repo.GetComposition(ctx, "clear-path")
	if err != nil {
		t.Fatalf("GetComposition() error = %v", err)
	}
	if !got.Primitives[1].Negated {
		t.Error("negation lost through persistence round trip")
	}
}

func TestRepository_RuleCRUD(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	spec := testRule("door-watch")
	if err := repo.CreateRule(ctx, spec); err != nil {
		t.Fatalf("CreateRule() error = %v", err)
	}

	got, err := repo.GetRule(ctx, "door-watch")
	if err != nil {
		t.Fatalf("GetRule() error = %v", err)
	}
	if got.On != rule.OnEnter {
		t.Errorf("On = %q, want %q", got.On, rule.OnEnter)
	}
	if got.Entities.A != "door-1" || got.Entities.B != "cart-1" {
		t.Errorf("Entities = %+v, want door-1/cart-1", got.Entities)
	}

	if _, err := repo.GetRule(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetRule(missing) error = %v, want ErrNotFound", err)
	}

	if err := repo.UpdateRule(ctx, testRule("missing")); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateRule(missing) error = %v, want ErrNotFound", err)
	}
}
