package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/credobot/credo/internal/service"
	"github.com/stretchr/testify/assert"
)

func TestWriteServiceError_StatusMapping(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
	}{
		{service.ErrStanceLocked, http.StatusForbidden},
		{fmt.Errorf("wrapped: %w", service.ErrStanceLocked), http.StatusForbidden},
		{service.ErrPersonaNotFound, http.StatusNotFound},
		{service.ErrBeliefNotFound, http.StatusNotFound},
		{service.ErrStanceNotFound, http.StatusNotFound},
		{service.ErrEdgeNotFound, http.StatusNotFound},
		{service.ErrDuplicateExternalRef, http.StatusConflict},
		{service.ErrEmbeddingUnavailable, http.StatusServiceUnavailable},
		{service.ErrTextRequired, http.StatusBadRequest},
		{service.ErrInvalidStrength, http.StatusBadRequest},
		{service.ErrInvalidNudgeAmount, http.StatusBadRequest},
		{service.ErrConflictIncomplete, http.StatusBadRequest},
		{service.ErrEdgeAcrossPersonas, http.StatusBadRequest},
		{errors.New("pool exhausted"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		rec := httptest.NewRecorder()
		writeServiceError(rec, tt.err)
		assert.Equal(t, tt.wantStatus, rec.Code, "error %v", tt.err)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	}
}

func TestWriteServiceError_HidesInternalDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	writeServiceError(rec, errors.New("connection to 10.0.0.5 refused"))

	var body map[string]string
	assert.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "internal error", body["error"])
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSON(rec, http.StatusCreated, map[string]int{"count": 3})

	assert.Equal(t, http.StatusCreated, rec.Code)
	var body map[string]int
	assert.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, 3, body["count"])
}
