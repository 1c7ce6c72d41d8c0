package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/credohq/credo/internal/service"
	"github.com/credohq/credo/internal/store"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// writeServiceError maps the shared error taxonomy onto HTTP statuses;
// anything unrecognized becomes a 500 with the fallback message.
func writeServiceError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrVersionConflict),
		errors.Is(err, service.ErrConcurrentUpdate),
		errors.Is(err, store.ErrDuplicateEdge),
		errors.Is(err, service.ErrForgettingInProgress):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, fallback)
	}
}
