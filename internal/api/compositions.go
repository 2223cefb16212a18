package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kestrelworks/spatial-core/internal/rule"
)

// handleListCompositions returns all composition specs in the catalog.
func (s *Server) handleListCompositions(w http.ResponseWriter, _ *http.Request) {
	compositions := s.catalog.Compositions()
	writeJSON(w, http.StatusOK, map[string]any{"compositions": compositions, "count": len(compositions)})
}

// handleGetComposition returns a single composition spec by ID.
func (s *Server) handleGetComposition(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	spec, ok := s.catalog.CompositionSpec(id)
	if !ok {
		writeNotFound(w, "composition not found")
		return
	}

	writeJSON(w, http.StatusOK, spec)
}

// handleCreateComposition persists a new composition spec.
func (s *Server) handleCreateComposition(w http.ResponseWriter, r *http.Request) {
	var spec rule.CompositionSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.catalog.CreateComposition(r.Context(), &spec); err != nil {
		writeCatalogError(w, err, "composition")
		return
	}

	s.logger.Info("composition created via API", "composition_id", spec.ID)
	writeJSON(w, http.StatusCreated, spec)
}

// handleUpdateComposition replaces an existing composition spec.
func (s *Server) handleUpdateComposition(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var spec rule.CompositionSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	spec.ID = id

	if err := s.catalog.UpdateComposition(r.Context(), &spec); err != nil {
		writeCatalogError(w, err, "composition")
		return
	}

	writeJSON(w, http.StatusOK, spec)
}

// handleDeleteComposition removes a composition spec from the catalog.
func (s *Server) handleDeleteComposition(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.catalog.DeleteComposition(r.Context(), id); err != nil {
		writeCatalogError(w, err, "composition")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
