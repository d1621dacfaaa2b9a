package http

import (
	"encoding/json"
	"net/http"

	"obesityrisk/wizard"
)

type stateResponse struct {
	SessionID  string             `json:"session_id"`
	State      wizard.Snapshot    `json:"state"`
	Prediction *wizard.Prediction `json:"prediction,omitempty"`
}

type errorResponse struct {
	Error      string           `json:"error"`
	Kind       string           `json:"kind,omitempty"`
	Field      string           `json:"field,omitempty"`
	Suggestion string           `json:"suggestion,omitempty"`
	SessionID  string           `json:"session_id,omitempty"`
	State      *wizard.Snapshot `json:"state,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, body errorResponse) {
	respondJSON(w, status, body)
}
