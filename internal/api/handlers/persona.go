package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/credobot/credo/internal/domain"
	"github.com/credobot/credo/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type PersonaHandler struct {
	personaStore domain.PersonaStore
	index        domain.VectorIndex
	logger       *zap.Logger
}

func NewPersonaHandler(ps domain.PersonaStore, index domain.VectorIndex, logger *zap.Logger) *PersonaHandler {
	return &PersonaHandler{personaStore: ps, index: index, logger: logger}
}

type createPersonaRequest struct {
	Name string `json:"name"`
}

func (h *PersonaHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createPersonaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	p := &domain.Persona{Name: req.Name}
	if err := h.personaStore.Create(r.Context(), p); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create persona")
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *PersonaHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "personaID")
	if !ok {
		return
	}

	p, err := h.personaStore.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "persona not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get persona")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Delete removes a persona and cascades to every belief, stance, evidence
// link, audit row and interaction it owns. The persona's vector index and
// its on-disk artifacts go with it.
func (h *PersonaHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "personaID")
	if !ok {
		return
	}

	if err := h.personaStore.Delete(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "persona not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete persona")
		return
	}

	if err := h.index.Clear(id); err != nil {
		// The relational rows are gone; leftover artifacts are stale but
		// harmless, so the delete still succeeds.
		h.logger.Warn("failed to clear vector index for deleted persona",
			zap.String("persona_id", id.String()), zap.Error(err))
	}
	w.WriteHeader(http.StatusNoContent)
}

// pathUUID parses a UUID path parameter, writing a 400 on failure.
func pathUUID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid "+param)
		return uuid.Nil, false
	}
	return id, true
}
