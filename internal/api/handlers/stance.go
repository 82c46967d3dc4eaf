package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/credobot/credo/internal/domain"
	"github.com/credobot/credo/internal/service"
)

type StanceHandler struct {
	stanceSvc     *service.StanceService
	confidenceSvc *service.ConfidenceService
}

func NewStanceHandler(ss *service.StanceService, cs *service.ConfidenceService) *StanceHandler {
	return &StanceHandler{stanceSvc: ss, confidenceSvc: cs}
}

type updateStanceRequest struct {
	Text       string   `json:"text"`
	Confidence *float32 `json:"confidence"`
	Rationale  string   `json:"rationale"`
	Actor      string   `json:"actor"`
}

func (h *StanceHandler) Update(w http.ResponseWriter, r *http.Request) {
	personaID, ok := pathUUID(w, r, "personaID")
	if !ok {
		return
	}
	beliefID, ok := pathUUID(w, r, "nodeID")
	if !ok {
		return
	}

	var req updateStanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sv, err := h.stanceSvc.UpdateStance(r.Context(), personaID, beliefID, req.Text, req.Confidence, req.Rationale, req.Actor, domain.TriggerAgent)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sv)
}

type lockRequest struct {
	Reason string `json:"reason"`
	Actor  string `json:"actor"`
}

func (h *StanceHandler) Lock(w http.ResponseWriter, r *http.Request) {
	personaID, ok := pathUUID(w, r, "personaID")
	if !ok {
		return
	}
	beliefID, ok := pathUUID(w, r, "nodeID")
	if !ok {
		return
	}

	var req lockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sv, err := h.stanceSvc.Lock(r.Context(), personaID, beliefID, req.Reason, req.Actor)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sv)
}

func (h *StanceHandler) Unlock(w http.ResponseWriter, r *http.Request) {
	personaID, ok := pathUUID(w, r, "personaID")
	if !ok {
		return
	}
	beliefID, ok := pathUUID(w, r, "nodeID")
	if !ok {
		return
	}

	var req lockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sv, err := h.stanceSvc.Unlock(r.Context(), personaID, beliefID, req.Reason, req.Actor)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sv)
}

func (h *StanceHandler) History(w http.ResponseWriter, r *http.Request) {
	personaID, ok := pathUUID(w, r, "personaID")
	if !ok {
		return
	}
	beliefID, ok := pathUUID(w, r, "nodeID")
	if !ok {
		return
	}

	versions, err := h.stanceSvc.History(r.Context(), personaID, beliefID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stances": versions, "count": len(versions)})
}

func (h *StanceHandler) AuditLog(w http.ResponseWriter, r *http.Request) {
	personaID, ok := pathUUID(w, r, "personaID")
	if !ok {
		return
	}
	beliefID, ok := pathUUID(w, r, "nodeID")
	if !ok {
		return
	}

	updates, err := h.stanceSvc.AuditLog(r.Context(), personaID, beliefID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"updates": updates, "count": len(updates)})
}

type evidenceUpdateRequest struct {
	Strength  string `json:"strength"`
	Direction string `json:"direction"`
	Reason    string `json:"reason"`
	Actor     string `json:"actor"`
}

// UpdateFromEvidence applies one evidence-driven confidence update.
func (h *StanceHandler) UpdateFromEvidence(w http.ResponseWriter, r *http.Request) {
	personaID, ok := pathUUID(w, r, "personaID")
	if !ok {
		return
	}
	beliefID, ok := pathUUID(w, r, "nodeID")
	if !ok {
		return
	}

	var req evidenceUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sv, err := h.confidenceSvc.UpdateFromEvidence(r.Context(), personaID, beliefID,
		domain.EvidenceStrength(req.Strength), req.Reason, domain.Direction(req.Direction), req.Actor)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sv)
}

type conflictRequest struct {
	Explanation      string `json:"explanation"`
	EvidenceStrength string `json:"evidence_strength"`
	SourceRef        string `json:"source_ref"`
	Actor            string `json:"actor"`
}

// UpdateFromConflict runs the threshold policy. A legitimate rejection is a
// 200 with applied=false, not an error.
func (h *StanceHandler) UpdateFromConflict(w http.ResponseWriter, r *http.Request) {
	personaID, ok := pathUUID(w, r, "personaID")
	if !ok {
		return
	}
	beliefID, ok := pathUUID(w, r, "nodeID")
	if !ok {
		return
	}

	var req conflictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	applied, err := h.confidenceSvc.UpdateFromConflict(r.Context(), personaID, beliefID, service.ConflictInput{
		Explanation:      req.Explanation,
		EvidenceStrength: domain.EvidenceStrength(req.EvidenceStrength),
		SourceRef:        req.SourceRef,
	}, req.Actor)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"applied": applied})
}

type nudgeRequest struct {
	Direction string  `json:"direction"`
	Amount    float64 `json:"amount"`
	Reason    string  `json:"reason"`
	Actor     string  `json:"actor"`
}

func (h *StanceHandler) Nudge(w http.ResponseWriter, r *http.Request) {
	personaID, ok := pathUUID(w, r, "personaID")
	if !ok {
		return
	}
	beliefID, ok := pathUUID(w, r, "nodeID")
	if !ok {
		return
	}

	var req nudgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sv, err := h.confidenceSvc.NudgeConfidence(r.Context(), personaID, beliefID,
		domain.Direction(req.Direction), req.Amount, req.Reason, req.Actor)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sv)
}

type manualUpdateRequest struct {
	Confidence *float32 `json:"confidence"`
	Text       *string  `json:"text"`
	Rationale  string   `json:"rationale"`
	Actor      string   `json:"actor"`
}

func (h *StanceHandler) ManualUpdate(w http.ResponseWriter, r *http.Request) {
	personaID, ok := pathUUID(w, r, "personaID")
	if !ok {
		return
	}
	beliefID, ok := pathUUID(w, r, "nodeID")
	if !ok {
		return
	}

	var req manualUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sv, err := h.confidenceSvc.ManualUpdate(r.Context(), personaID, beliefID, req.Confidence, req.Text, req.Rationale, req.Actor)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sv)
}
