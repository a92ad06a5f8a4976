package api

import (
	"encoding/json"
	"log"
	"net/http"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to write json response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

// writeInternalError logs the underlying error under the request ID and
// returns a generic body. Driver and storage error strings never reach the
// client.
func writeInternalError(w http.ResponseWriter, r *http.Request, err error) {
	log.Printf("internal error request_id=%s method=%s path=%s err=%v",
		GetRequestID(r.Context()), r.Method, r.URL.Path, err)
	writeError(w, http.StatusInternalServerError, "internal_error", "something went wrong, please try again")
}
