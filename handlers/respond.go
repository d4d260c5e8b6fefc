// Package handlers is the request/response surface. Handlers decode, call a
// service, and map failure kinds to statuses; no business rule lives here.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"parley/errors"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError maps a failure kind to its status and a safe message. Internal
// faults are logged with detail and answered without it.
func writeError(w http.ResponseWriter, log *slog.Logger, err error) {
	status := errors.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		log.Error("Request failed", "err", err)
	}
	writeJSON(w, status, errorBody{Error: errors.SafeMessage(err)})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return false
	}
	return true
}
