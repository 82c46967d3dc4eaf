package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/credobot/credo/internal/domain"
	"github.com/credobot/credo/internal/service"
)

type EvidenceHandler struct {
	svc *service.EvidenceService
}

func NewEvidenceHandler(svc *service.EvidenceService) *EvidenceHandler {
	return &EvidenceHandler{svc: svc}
}

type appendEvidenceRequest struct {
	SourceType string `json:"source_type"`
	SourceRef  string `json:"source_ref"`
	Strength   string `json:"strength"`
}

func (h *EvidenceHandler) Append(w http.ResponseWriter, r *http.Request) {
	personaID, ok := pathUUID(w, r, "personaID")
	if !ok {
		return
	}
	beliefID, ok := pathUUID(w, r, "nodeID")
	if !ok {
		return
	}

	var req appendEvidenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	link, err := h.svc.AppendEvidence(r.Context(), personaID, beliefID,
		domain.EvidenceSourceType(req.SourceType), req.SourceRef, domain.EvidenceStrength(req.Strength))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, link)
}

func (h *EvidenceHandler) List(w http.ResponseWriter, r *http.Request) {
	personaID, ok := pathUUID(w, r, "personaID")
	if !ok {
		return
	}
	beliefID, ok := pathUUID(w, r, "nodeID")
	if !ok {
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	links, err := h.svc.ListByBelief(r.Context(), personaID, beliefID, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"evidence": links, "count": len(links)})
}
