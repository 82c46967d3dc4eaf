package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/credobot/credo/internal/domain"
	"github.com/credobot/credo/internal/service"
)

type ContextHandler struct {
	svc *service.ContextService
}

func NewContextHandler(svc *service.ContextService) *ContextHandler {
	return &ContextHandler{svc: svc}
}

type assembleRequest struct {
	Thread domain.ThreadContext `json:"thread"`
	Tags   []string             `json:"tags"`
}

func (h *ContextHandler) Assemble(w http.ResponseWriter, r *http.Request) {
	personaID, ok := pathUUID(w, r, "personaID")
	if !ok {
		return
	}

	var req assembleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	assembled, err := h.svc.AssembleContext(r.Context(), personaID, req.Thread, req.Tags)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, assembled)
}

type promptRequest struct {
	Persona domain.PersonaConfig `json:"persona"`
	Thread  domain.ThreadContext `json:"thread"`
	Tags    []string             `json:"tags"`
}

// Prompt assembles context and renders it as a single prompt string.
func (h *ContextHandler) Prompt(w http.ResponseWriter, r *http.Request) {
	personaID, ok := pathUUID(w, r, "personaID")
	if !ok {
		return
	}

	var req promptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	assembled, err := h.svc.AssembleContext(r.Context(), personaID, req.Thread, req.Tags)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	prompt := h.svc.AssemblePrompt(req.Persona, assembled)
	writeJSON(w, http.StatusOK, map[string]any{
		"prompt":      prompt,
		"token_count": assembled.TokenCount,
	})
}
