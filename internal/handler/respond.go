package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/autodine/autodine/internal/api"
	"github.com/autodine/autodine/internal/service"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("ERROR: failed to encode JSON response: %v", err)
	}
}

func writeOK(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, api.Result{Success: true})
}

func writeFailure(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, api.Result{Success: false, Error: msg})
}

// decodeBody decodes the request body into v and writes the failure
// response itself when that is not possible.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeFailure(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeFailure(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// writeServiceError maps store errors to HTTP status codes.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, service.ErrTableNotFound),
		errors.Is(err, service.ErrOrderNotFound):
		writeFailure(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrNoActiveOrder),
		errors.Is(err, service.ErrOrderPending):
		writeFailure(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrNoSlot):
		writeFailure(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, service.ErrEmptyCart),
		errors.Is(err, service.ErrInvalidMethod):
		writeFailure(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("ERROR: %s: %v", op, err)
		writeFailure(w, http.StatusInternalServerError, "internal server error")
	}
}
