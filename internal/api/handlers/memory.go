package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/credobot/credo/internal/domain"
	"github.com/credobot/credo/internal/service"
)

type MemoryHandler struct {
	svc *service.MemoryService
}

func NewMemoryHandler(svc *service.MemoryService) *MemoryHandler {
	return &MemoryHandler{svc: svc}
}

type logInteractionRequest struct {
	Content  string         `json:"content"`
	Type     string         `json:"type"`
	Metadata map[string]any `json:"metadata"`
}

func (h *MemoryHandler) Log(w http.ResponseWriter, r *http.Request) {
	personaID, ok := pathUUID(w, r, "personaID")
	if !ok {
		return
	}

	var req logInteractionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	interaction, err := h.svc.LogInteraction(r.Context(), personaID, req.Content, domain.InteractionType(req.Type), req.Metadata)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, interaction)
}

func (h *MemoryHandler) Search(w http.ResponseWriter, r *http.Request) {
	personaID, ok := pathUUID(w, r, "personaID")
	if !ok {
		return
	}

	q := r.URL.Query()
	limit := 10
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	results, err := h.svc.SearchHistory(r.Context(), personaID, q.Get("q"), limit, q.Get("container"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results, "count": len(results)})
}

func (h *MemoryHandler) Rebuild(w http.ResponseWriter, r *http.Request) {
	personaID, ok := pathUUID(w, r, "personaID")
	if !ok {
		return
	}

	count, err := h.svc.RebuildIndex(r.Context(), personaID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"indexed": count})
}
