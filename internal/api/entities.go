package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kestrelworks/spatial-core/internal/entity"
)

// handleListEntities returns all registered entities.
//
// Query parameters:
//   - tag: filter to entities carrying the given tag
func (s *Server) handleListEntities(w http.ResponseWriter, r *http.Request) {
	entities := s.entities.List()

	if tag := r.URL.Query().Get("tag"); tag != "" {
		filtered := entities[:0]
		for _, e := range entities {
			if hasTag(e.Tags, tag) {
				filtered = append(filtered, e)
			}
		}
		entities = filtered
	}

	writeJSON(w, http.StatusOK, map[string]any{"entities": entities, "count": len(entities)})
}

// handleGetEntity returns a single entity by ID.
func (s *Server) handleGetEntity(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	e, err := s.entities.Get(id)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			writeNotFound(w, "entity not found")
			return
		}
		writeInternalError(w, "failed to get entity")
		return
	}

	writeJSON(w, http.StatusOK, e)
}

// handleRegisterEntity registers a new entity.
func (s *Server) handleRegisterEntity(w http.ResponseWriter, r *http.Request) {
	var e entity.Entity
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.entities.Register(&e); err != nil {
		switch {
		case errors.Is(err, entity.ErrExists):
			writeConflict(w, "entity already registered")
		case errors.Is(err, entity.ErrInvalidID):
			writeBadRequest(w, err.Error())
		default:
			writeInternalError(w, "failed to register entity")
		}
		return
	}

	if s.metrics != nil {
		s.metrics.SetEntityCount(s.entities.Count())
	}

	if s.hub != nil {
		s.hub.Broadcast(ChannelEntityState, map[string]any{"id": e.ID, "status": "registered"})
	}

	s.logger.Info("entity registered via API", "entity_id", e.ID)
	writeJSON(w, http.StatusCreated, e)
}

// handleUnregisterEntity removes an entity from the registry.
// Derived signals referencing the entity are torn down via evict hooks.
func (s *Server) handleUnregisterEntity(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.entities.Unregister(id); err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			writeNotFound(w, "entity not found")
			return
		}
		writeInternalError(w, "failed to unregister entity")
		return
	}

	if s.metrics != nil {
		s.metrics.SetEntityCount(s.entities.Count())
	}

	if s.hub != nil {
		s.hub.Broadcast(ChannelEntityState, map[string]any{"id": id, "status": "unregistered"})
	}

	s.logger.Info("entity unregistered via API", "entity_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// handleGetPose returns the entity's last known pose.
func (s *Server) handleGetPose(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if _, err := s.entities.Get(id); err != nil {
		writeNotFound(w, "entity not found")
		return
	}

	pose, ok := s.entities.CurrentPose(id)
	if !ok {
		writeNotFound(w, "no pose recorded for entity")
		return
	}

	writeJSON(w, http.StatusOK, pose)
}

// handleSetPose applies a pose update, equivalent to a tracking message
// arriving over MQTT. Useful for test rigs and manual repositioning.
func (s *Server) handleSetPose(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if _, err := s.entities.Get(id); err != nil {
		writeNotFound(w, "entity not found")
		return
	}

	var pose entity.Pose
	if err := json.NewDecoder(r.Body).Decode(&pose); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	pose.Orientation = pose.Orientation.Normalize()

	s.entities.UpdatePose(id, pose)

	if s.metrics != nil {
		s.metrics.ObservePoseUpdate(id)
	}

	writeJSON(w, http.StatusOK, pose)
}

// hasTag reports whether tags contains tag.
func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}
