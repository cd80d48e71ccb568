package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/streakhq/curator/internal/contracts"
)

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}

func respondData(w http.ResponseWriter, data interface{}) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    data,
	})
}

// errorStatus maps domain errors onto HTTP status codes
func errorStatus(err error) int {
	switch {
	case errors.Is(err, contracts.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, contracts.ErrInvalidConfig), errors.Is(err, contracts.ErrInvalidDraft):
		return http.StatusBadRequest
	case errors.Is(err, contracts.ErrAlreadyExists), errors.Is(err, contracts.ErrAwaitingProof),
		errors.Is(err, contracts.ErrNotEnded):
		return http.StatusConflict
	case errors.Is(err, contracts.ErrProofUnverified), errors.Is(err, contracts.ErrInsufficientData):
		return http.StatusUnprocessableEntity
	case errors.Is(err, contracts.ErrPublishFailed):
		return http.StatusBadGateway
	case errors.Is(err, contracts.ErrSourceUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// decodeBody decodes an optional JSON body; an empty body leaves dest untouched
func decodeBody(r *http.Request, dest interface{}) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	// chunked requests report ContentLength -1 even when empty
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
