package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kestrelworks/spatial-core/internal/catalog"
	"github.com/kestrelworks/spatial-core/internal/primitive"
)

// handleListPrimitives returns all primitive specs in the catalog.
func (s *Server) handleListPrimitives(w http.ResponseWriter, _ *http.Request) {
	primitives := s.catalog.Primitives()
	writeJSON(w, http.StatusOK, map[string]any{"primitives": primitives, "count": len(primitives)})
}

// handleGetPrimitive returns a single primitive spec by ID.
func (s *Server) handleGetPrimitive(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	spec, ok := s.catalog.PrimitiveSpec(id)
	if !ok {
		writeNotFound(w, "primitive not found")
		return
	}

	writeJSON(w, http.StatusOK, spec)
}

// handleCreatePrimitive persists a new primitive spec.
func (s *Server) handleCreatePrimitive(w http.ResponseWriter, r *http.Request) {
	var spec primitive.Spec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.catalog.CreatePrimitive(r.Context(), &spec); err != nil {
		writeCatalogError(w, err, "primitive")
		return
	}

	s.logger.Info("primitive created via API", "primitive_id", spec.ID)
	writeJSON(w, http.StatusCreated, spec)
}

// handleUpdatePrimitive replaces an existing primitive spec.
//
// Rules already compiled against the previous spec keep their pipelines;
// the change applies the next time a rule referencing the primitive is
// registered.
func (s *Server) handleUpdatePrimitive(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var spec primitive.Spec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	spec.ID = id

	if err := s.catalog.UpdatePrimitive(r.Context(), &spec); err != nil {
		writeCatalogError(w, err, "primitive")
		return
	}

	writeJSON(w, http.StatusOK, spec)
}

// handleDeletePrimitive removes a primitive spec from the catalog.
func (s *Server) handleDeletePrimitive(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.catalog.DeletePrimitive(r.Context(), id); err != nil {
		writeCatalogError(w, err, "primitive")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// writeCatalogError maps catalog sentinel errors to HTTP responses.
func writeCatalogError(w http.ResponseWriter, err error, kind string) {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		writeNotFound(w, kind+" not found")
	case errors.Is(err, catalog.ErrExists):
		writeConflict(w, kind+" already exists")
	case errors.Is(err, catalog.ErrInvalidSpec):
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
	default:
		writeInternalError(w, "failed to persist "+kind)
	}
}
