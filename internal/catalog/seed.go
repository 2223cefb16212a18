package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kestrelworks/spatial-core/internal/entity"
	"github.com/kestrelworks/spatial-core/internal/primitive"
	"github.com/kestrelworks/spatial-core/internal/rule"
)

// SeedFile is the YAML document loaded at startup to pre-populate the
// catalog. Entities are declared alongside the specs so that a single
// file can describe a complete deployment. Entities are not persisted
// by the catalog; the caller registers them with the entity registry.
type SeedFile struct {
	Entities     []entity.Entity        `yaml:"entities"`
	Primitives   []primitive.Spec       `yaml:"primitives"`
	Compositions []rule.CompositionSpec `yaml:"compositions"`
	Rules        []rule.Spec            `yaml:"rules"`
}

// LoadSeed reads and parses a seed file.
func LoadSeed(path string) (*SeedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading seed file: %w", err)
	}

	var seed SeedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parsing seed file: %w", err)
	}
	return &seed, nil
}

// ApplySeed upserts every spec in the seed into the catalog. A spec
// that fails validation or persistence is logged and skipped so that
// one bad entry does not block the rest of the file. Returns the
// number of specs applied and the number skipped.
//
// Specs already present in the catalog are updated in place, which
// makes seeding idempotent across restarts.
func (s *Service) ApplySeed(ctx context.Context, seed *SeedFile) (applied, skipped int) {
	for i := range seed.Primitives {
		spec := &seed.Primitives[i]
		if err := s.upsertPrimitive(ctx, spec); err != nil {
			s.logger.Warn("seed primitive skipped", "primitive", spec.ID, "error", err)
			skipped++
			continue
		}
		applied++
	}

	for i := range seed.Compositions {
		spec := &seed.Compositions[i]
		if err := s.upsertComposition(ctx, spec); err != nil {
			s.logger.Warn("seed composition skipped", "composition", spec.ID, "error", err)
			skipped++
			continue
		}
		applied++
	}

	for i := range seed.Rules {
		spec := &seed.Rules[i]
		if err := s.upsertRule(ctx, spec); err != nil {
			s.logger.Warn("seed rule skipped", "rule", spec.ID, "error", err)
			skipped++
			continue
		}
		applied++
	}

	return applied, skipped
}

func (s *Service) upsertPrimitive(ctx context.Context, spec *primitive.Spec) error {
	err := s.CreatePrimitive(ctx, spec)
	if errors.Is(err, ErrExists) {
		return s.UpdatePrimitive(ctx, spec)
	}
	return err
}

func (s *Service) upsertComposition(ctx context.Context, spec *rule.CompositionSpec) error {
	err := s.CreateComposition(ctx, spec)
	if errors.Is(err, ErrExists) {
		return s.UpdateComposition(ctx, spec)
	}
	return err
}

func (s *Service) upsertRule(ctx context.Context, spec *rule.Spec) error {
	err := s.CreateRule(ctx, spec)
	if errors.Is(err, ErrExists) {
		return s.UpdateRule(ctx, spec)
	}
	return err
}
