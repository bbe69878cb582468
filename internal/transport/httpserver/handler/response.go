package handler

import (
	"encoding/json"
	"net/http"
)

type ackResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

func writeAck(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusOK, ackResponse{Success: true, Message: message})
}

// writeError answers in the acknowledgement shape so clients can read the
// message from failures and negative acks alike.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ackResponse{Success: false, Message: message, Code: code})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
