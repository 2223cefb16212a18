package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kestrelworks/spatial-core/internal/rule"
)

// Defaults for the rule event history query window.
const (
	defaultHistoryLookback = 24 * time.Hour
	defaultHistoryLimit    = 100
	maxHistoryLimit        = 1000
)

// handleListRules returns all rule specs with their live registration state.
func (s *Server) handleListRules(w http.ResponseWriter, _ *http.Request) {
	specs := s.catalog.Rules()

	type ruleInfo struct {
		rule.Spec
		Active bool `json:"active"`
	}

	rules := make([]ruleInfo, 0, len(specs))
	for _, spec := range specs {
		_, active := s.rules.Rule(spec.ID)
		rules = append(rules, ruleInfo{Spec: spec, Active: active})
	}

	writeJSON(w, http.StatusOK, map[string]any{"rules": rules, "count": len(rules)})
}

// handleGetRule returns a single rule spec by ID.
func (s *Server) handleGetRule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	spec, ok := s.catalog.Rule(id)
	if !ok {
		writeNotFound(w, "rule not found")
		return
	}

	_, active := s.rules.Rule(id)
	writeJSON(w, http.StatusOK, map[string]any{"rule": spec, "active": active})
}

// handleCreateRule persists a rule and registers it with the engine.
//
// Compilation failure (unknown primitive, unresolvable entity selector,
// malformed condition) rolls the catalog write back so the stored
// catalog only ever contains rules that have compiled at least once.
func (s *Server) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	var spec rule.Spec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.catalog.CreateRule(r.Context(), &spec); err != nil {
		writeCatalogError(w, err, "rule")
		return
	}

	if err := s.rules.RegisterRule(&spec); err != nil {
		if delErr := s.catalog.DeleteRule(r.Context(), spec.ID); delErr != nil {
			s.logger.Warn("rollback of failed rule failed", "rule_id", spec.ID, "error", delErr)
		}
		writeRuleError(w, err)
		return
	}

	if s.metrics != nil {
		s.metrics.SetRuleCount(s.rules.Count())
	}

	s.logger.Info("rule created via API", "rule_id", spec.ID)
	writeJSON(w, http.StatusCreated, spec)
}

// handleUpdateRule replaces a rule spec and recompiles the live pipeline.
func (s *Server) handleUpdateRule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var spec rule.Spec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	spec.ID = id

	if err := s.catalog.UpdateRule(r.Context(), &spec); err != nil {
		writeCatalogError(w, err, "rule")
		return
	}

	// Swap the live pipeline. The old pipeline is torn down first so
	// primitive refcounts release before the new compile acquires them.
	if err := s.rules.UnregisterRule(id); err != nil && !errors.Is(err, rule.ErrNotFound) {
		s.logger.Warn("unregister during rule update failed", "rule_id", id, "error", err)
	}
	if err := s.rules.RegisterRule(&spec); err != nil {
		writeRuleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, spec)
}

// handleDeleteRule removes a rule from the catalog and the engine.
func (s *Server) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.catalog.DeleteRule(r.Context(), id); err != nil {
		writeCatalogError(w, err, "rule")
		return
	}

	if err := s.rules.UnregisterRule(id); err != nil && !errors.Is(err, rule.ErrNotFound) {
		s.logger.Warn("unregister during rule delete failed", "rule_id", id, "error", err)
	}

	if s.metrics != nil {
		s.metrics.SetRuleCount(s.rules.Count())
	}

	s.logger.Info("rule deleted via API", "rule_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// handleRuleEvents returns recent event history for a rule.
//
// Query parameters:
//   - lookback: Go duration string bounding the search window (default 24h)
//   - limit: maximum number of events (default 100, capped at 1000)
func (s *Server) handleRuleEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if _, ok := s.catalog.Rule(id); !ok {
		writeNotFound(w, "rule not found")
		return
	}

	if s.influx == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "event history storage not configured")
		return
	}

	lookback := defaultHistoryLookback
	if v := r.URL.Query().Get("lookback"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			writeBadRequest(w, "invalid lookback duration")
			return
		}
		lookback = d
	}

	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeBadRequest(w, "invalid limit")
			return
		}
		if n > maxHistoryLimit {
			n = maxHistoryLimit
		}
		limit = n
	}

	events, err := s.influx.QueryRuleEvents(r.Context(), id, lookback, limit)
	if err != nil {
		s.logger.Error("rule event history query failed", "rule_id", id, "error", err)
		writeInternalError(w, "event history query failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"events": events, "count": len(events)})
}

// writeRuleError maps rule registry errors to HTTP responses.
func writeRuleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, rule.ErrExists):
		writeConflict(w, "rule already registered")
	case errors.Is(err, rule.ErrInvalidRule), errors.Is(err, rule.ErrCompositionCycle):
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
	default:
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
	}
}
