// Package httpx holds the JSON response helpers and the single place
// store errors are translated into status codes.
package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"taskpulse/internal/store"
)

type apiError struct {
	Error string `json:"error"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteErr(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, apiError{Error: msg})
}

// WriteStoreErr maps the store's sentinel errors onto status codes and
// falls back to 500 for anything unrecognized. fallback is the message
// used for that 500, so handlers never leak internal error text.
func WriteStoreErr(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, store.ErrValidation):
		WriteErr(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrNotFound):
		WriteErr(w, http.StatusNotFound, "not found")
	case errors.Is(err, store.ErrForbidden):
		WriteErr(w, http.StatusForbidden, "forbidden")
	default:
		WriteErr(w, http.StatusInternalServerError, fallback)
	}
}
