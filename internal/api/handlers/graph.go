package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/credobot/credo/internal/domain"
	"github.com/credobot/credo/internal/service"
	"github.com/google/uuid"
)

type GraphHandler struct {
	graphSvc *service.GraphService
}

func NewGraphHandler(gs *service.GraphService) *GraphHandler {
	return &GraphHandler{graphSvc: gs}
}

// Query returns the persona's belief graph, optionally filtered by tags
// (comma-separated, match-any) and min_confidence.
func (h *GraphHandler) Query(w http.ResponseWriter, r *http.Request) {
	personaID, ok := pathUUID(w, r, "personaID")
	if !ok {
		return
	}

	var tags []string
	if raw := r.URL.Query().Get("tags"); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tags = append(tags, t)
			}
		}
	}

	var minConfidence *float32
	if raw := r.URL.Query().Get("min_confidence"); raw != "" {
		v, err := strconv.ParseFloat(raw, 32)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid min_confidence")
			return
		}
		f := float32(v)
		minConfidence = &f
	}

	result, err := h.graphSvc.QueryGraph(r.Context(), personaID, tags, minConfidence)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type createNodeRequest struct {
	Title      string   `json:"title"`
	Summary    string   `json:"summary"`
	Confidence *float32 `json:"confidence"`
	Tags       []string `json:"tags"`
}

func (h *GraphHandler) CreateNode(w http.ResponseWriter, r *http.Request) {
	personaID, ok := pathUUID(w, r, "personaID")
	if !ok {
		return
	}

	var req createNodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	node := &domain.BeliefNode{
		PersonaID:         personaID,
		Title:             req.Title,
		Summary:           req.Summary,
		CurrentConfidence: req.Confidence,
		Tags:              req.Tags,
	}
	if err := h.graphSvc.CreateNode(r.Context(), node); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, node)
}

func (h *GraphHandler) GetNode(w http.ResponseWriter, r *http.Request) {
	personaID, ok := pathUUID(w, r, "personaID")
	if !ok {
		return
	}
	nodeID, ok := pathUUID(w, r, "nodeID")
	if !ok {
		return
	}

	node, err := h.graphSvc.GetNode(r.Context(), personaID, nodeID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, node)
}

func (h *GraphHandler) DeleteNode(w http.ResponseWriter, r *http.Request) {
	personaID, ok := pathUUID(w, r, "personaID")
	if !ok {
		return
	}
	nodeID, ok := pathUUID(w, r, "nodeID")
	if !ok {
		return
	}

	if err := h.graphSvc.DeleteNode(r.Context(), personaID, nodeID); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type createEdgeRequest struct {
	SourceID string  `json:"source_id"`
	TargetID string  `json:"target_id"`
	Relation string  `json:"relation"`
	Weight   float32 `json:"weight"`
}

func (h *GraphHandler) CreateEdge(w http.ResponseWriter, r *http.Request) {
	personaID, ok := pathUUID(w, r, "personaID")
	if !ok {
		return
	}

	var req createEdgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sourceID, err := uuid.Parse(req.SourceID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid source_id")
		return
	}
	targetID, err := uuid.Parse(req.TargetID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid target_id")
		return
	}

	edge := &domain.BeliefEdge{
		PersonaID: personaID,
		SourceID:  sourceID,
		TargetID:  targetID,
		Relation:  domain.Relation(req.Relation),
		Weight:    req.Weight,
	}
	if err := h.graphSvc.CreateEdge(r.Context(), edge); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, edge)
}

func (h *GraphHandler) DeleteEdge(w http.ResponseWriter, r *http.Request) {
	personaID, ok := pathUUID(w, r, "personaID")
	if !ok {
		return
	}
	edgeID, ok := pathUUID(w, r, "edgeID")
	if !ok {
		return
	}

	if err := h.graphSvc.DeleteEdge(r.Context(), personaID, edgeID); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
