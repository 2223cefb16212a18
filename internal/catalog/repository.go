package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kestrelworks/spatial-core/internal/primitive"
	"github.com/kestrelworks/spatial-core/internal/rule"
)

// Repository defines the interface for spec persistence.
// This abstraction allows different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
type Repository interface {
	// Primitive specs
	GetPrimitive(ctx context.Context, id string) (*primitive.Spec, error)
	ListPrimitives(ctx context.Context) ([]primitive.Spec, error)
	CreatePrimitive(ctx context.Context, spec *primitive.Spec) error
	UpdatePrimitive(ctx context.Context, spec *primitive.Spec) error
	DeletePrimitive(ctx context.Context, id string) error

	// Composition specs
	GetComposition(ctx context.Context, id string) (*rule.CompositionSpec, error)
	ListCompositions(ctx context.Context) ([]rule.CompositionSpec, error)
	CreateComposition(ctx context.Context, spec *rule.CompositionSpec) error
	UpdateComposition(ctx context.Context, spec *rule.CompositionSpec) error
	DeleteComposition(ctx context.Context, id string) error

	// Rule specs
	GetRule(ctx context.Context, id string) (*rule.Spec, error)
	ListRules(ctx context.Context) ([]rule.Spec, error)
	CreateRule(ctx context.Context, spec *rule.Spec) error
	UpdateRule(ctx context.Context, spec *rule.Spec) error
	DeleteRule(ctx context.Context, id string) error
}

// SQLiteRepository implements Repository using SQLite.
//
// Specs are stored as JSON documents keyed by id. The document is the
// source of truth; the id column exists for lookups and uniqueness.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// GetPrimitive retrieves a primitive spec by id.
func (r *SQLiteRepository) GetPrimitive(ctx context.Context, id string) (*primitive.Spec, error) {
	doc, err := r.getDoc(ctx, "primitives", id)
	if err != nil {
		return nil, err
	}
	var spec primitive.Spec
	if err := json.Unmarshal(doc, &spec); err != nil {
		return nil, fmt.Errorf("unmarshalling primitive %s: %w", id, err)
	}
	return &spec, nil
}

// ListPrimitives retrieves all primitive specs ordered by id.
func (r *SQLiteRepository) ListPrimitives(ctx context.Context) ([]primitive.Spec, error) {
	docs, err := r.listDocs(ctx, "primitives")
	if err != nil {
		return nil, err
	}
	specs := make([]primitive.Spec, 0, len(docs))
	for _, doc := range docs {
		var spec primitive.Spec
		if err := json.Unmarshal(doc, &spec); err != nil {
			return nil, fmt.Errorf("unmarshalling primitive: %w", err)
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// CreatePrimitive inserts a new primitive spec.
func (r *SQLiteRepository) CreatePrimitive(ctx context.Context, spec *primitive.Spec) error {
	return r.createDoc(ctx, "primitives", spec.ID, spec)
}

// UpdatePrimitive replaces an existing primitive spec.
func (r *SQLiteRepository) UpdatePrimitive(ctx context.Context, spec *primitive.Spec) error {
	return r.updateDoc(ctx, "primitives", spec.ID, spec)
}

// DeletePrimitive removes a primitive spec by id.
func (r *SQLiteRepository) DeletePrimitive(ctx context.Context, id string) error {
	return r.deleteDoc(ctx, "primitives", id)
}

// GetComposition retrieves a composition spec by id.
func (r *SQLiteRepository) GetComposition(ctx context.Context, id string) (*rule.CompositionSpec, error) {
	doc, err := r.getDoc(ctx, "compositions", id)
	if err != nil {
		return nil, err
	}
	var spec rule.CompositionSpec
	if err := json.Unmarshal(doc, &spec); err != nil {
		return nil, fmt.Errorf("unmarshalling composition %s: %w", id, err)
	}
	return &spec, nil
}

// ListCompositions retrieves all composition specs ordered by id.
func (r *SQLiteRepository) ListCompositions(ctx context.Context) ([]rule.CompositionSpec, error) {
	docs, err := r.listDocs(ctx, "compositions")
	if err != nil {
		return nil, err
	}
	specs := make([]rule.CompositionSpec, 0, len(docs))
	for _, doc := range docs {
		var spec rule.CompositionSpec
		if err := json.Unmarshal(doc, &spec); err != nil {
			return nil, fmt.Errorf("unmarshalling composition: %w", err)
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// CreateComposition inserts a new composition spec.
func (r *SQLiteRepository) CreateComposition(ctx context.Context, spec *rule.CompositionSpec) error {
	return r.createDoc(ctx, "compositions", spec.ID, spec)
}

// UpdateComposition replaces an existing composition spec.
func (r *SQLiteRepository) UpdateComposition(ctx context.Context, spec *rule.CompositionSpec) error {
	return r.updateDoc(ctx, "compositions", spec.ID, spec)
}

// DeleteComposition removes a composition spec by id.
func (r *SQLiteRepository) DeleteComposition(ctx context.Context, id string) error {
	return r.deleteDoc(ctx, "compositions", id)
}

// GetRule retrieves a rule spec by id.
func (r *SQLiteRepository) GetRule(ctx context.Context, id string) (*rule.Spec, error) {
	doc, err := r.getDoc(ctx, "rules", id)
	if err != nil {
		return nil, err
	}
	var spec rule.Spec
	if err := json.Unmarshal(doc, &spec); err != nil {
		return nil, fmt.Errorf("unmarshalling rule %s: %w", id, err)
	}
	return &spec, nil
}

// ListRules retrieves all rule specs ordered by id.
func (r *SQLiteRepository) ListRules(ctx context.Context) ([]rule.Spec, error) {
	docs, err := r.listDocs(ctx, "rules")
	if err != nil {
		return nil, err
	}
	specs := make([]rule.Spec, 0, len(docs))
	for _, doc := range docs {
		var spec rule.Spec
		if err := json.Unmarshal(doc, &spec); err != nil {
			return nil, fmt.Errorf("unmarshalling rule: %w", err)
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// CreateRule inserts a new rule spec.
func (r *SQLiteRepository) CreateRule(ctx context.Context, spec *rule.Spec) error {
	return r.createDoc(ctx, "rules", spec.ID, spec)
}

// UpdateRule replaces an existing rule spec.
func (r *SQLiteRepository) UpdateRule(ctx context.Context, spec *rule.Spec) error {
	return r.updateDoc(ctx, "rules", spec.ID, spec)
}

// DeleteRule removes a rule spec by id.
func (r *SQLiteRepository) DeleteRule(ctx context.Context, id string) error {
	return r.deleteDoc(ctx, "rules", id)
}

// ─── Document Helpers ───────────────────────────────────────────────────────

// The three spec tables share one shape: id, spec JSON, timestamps.
// Table names are compile-time constants above, never user input.

func (r *SQLiteRepository) getDoc(ctx context.Context, table, id string) ([]byte, error) {
	query := `SELECT spec FROM ` + table + ` WHERE id = ?`

	var doc string
	err := r.db.QueryRowContext(ctx, query, id).Scan(&doc)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s %s", ErrNotFound, strings.TrimSuffix(table, "s"), id)
		}
		return nil, fmt.Errorf("querying %s: %w", table, err)
	}
	return []byte(doc), nil
}

func (r *SQLiteRepository) listDocs(ctx context.Context, table string) ([][]byte, error) {
	query := `SELECT spec FROM ` + table + ` ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", table, err)
	}
	defer rows.Close()

	var docs [][]byte
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scanning %s row: %w", table, err)
		}
		docs = append(docs, []byte(doc))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s: %w", table, err)
	}
	return docs, nil
}

func (r *SQLiteRepository) createDoc(ctx context.Context, table, id string, spec any) error {
	doc, err := json.Marshal(spec)
	if err != nil {
		return fmt.Errorf("marshalling %s: %w", table, err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	query := `INSERT INTO ` + table + ` (id, spec, created_at, updated_at) VALUES (?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query, id, string(doc), now, now)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("%w: %s %s", ErrExists, strings.TrimSuffix(table, "s"), id)
		}
		return fmt.Errorf("inserting into %s: %w", table, err)
	}
	return nil
}

func (r *SQLiteRepository) updateDoc(ctx context.Context, table, id string, spec any) error {
	doc, err := json.Marshal(spec)
	if err != nil {
		return fmt.Errorf("marshalling %s: %w", table, err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	query := `UPDATE ` + table + ` SET spec = ?, updated_at = ? WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, string(doc), now, id)
	if err != nil {
		return fmt.Errorf("updating %s: %w", table, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s %s", ErrNotFound, strings.TrimSuffix(table, "s"), id)
	}
	return nil
}

func (r *SQLiteRepository) deleteDoc(ctx context.Context, table, id string) error {
	query := `DELETE FROM ` + table + ` WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("deleting from %s: %w", table, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s %s", ErrNotFound, strings.TrimSuffix(table, "s"), id)
	}
	return nil
}

func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint failed") ||
		strings.Contains(msg, "unique constraint")
}
