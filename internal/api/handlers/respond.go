package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/credobot/credo/internal/service"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps domain error sentinels onto HTTP statuses: locked
// stances are forbidden, missing references are 404, validation failures are
// 400, duplicates are 409, a missing embedding backend is 503, everything
// else is a server error.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrStanceLocked):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrEmbeddingUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, service.ErrPersonaNotFound),
		errors.Is(err, service.ErrBeliefNotFound),
		errors.Is(err, service.ErrEdgeNotFound),
		errors.Is(err, service.ErrStanceNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrDuplicateExternalRef):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrTitleRequired),
		errors.Is(err, service.ErrTextRequired),
		errors.Is(err, service.ErrContentRequired),
		errors.Is(err, service.ErrQueryRequired),
		errors.Is(err, service.ErrSourceRefRequired),
		errors.Is(err, service.ErrExternalRefRequired),
		errors.Is(err, service.ErrContainerRequired),
		errors.Is(err, service.ErrThreadContainerRequired),
		errors.Is(err, service.ErrInvalidRelation),
		errors.Is(err, service.ErrInvalidConfidence),
		errors.Is(err, service.ErrInvalidWeight),
		errors.Is(err, service.ErrInvalidStrength),
		errors.Is(err, service.ErrInvalidDirection),
		errors.Is(err, service.ErrInvalidSourceType),
		errors.Is(err, service.ErrInvalidInteractionType),
		errors.Is(err, service.ErrInvalidLimit),
		errors.Is(err, service.ErrInvalidNudgeAmount),
		errors.Is(err, service.ErrConflictIncomplete),
		errors.Is(err, service.ErrEdgeAcrossPersonas):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
