package handlers

import (
	"encoding/json"
	"net/http"
)

// errorResponse is the error envelope used by every endpoint
type errorResponse struct {
	Detail string `json:"detail"`
}

// dataResponse wraps series payloads
type dataResponse struct {
	Data interface{} `json:"data"`
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, detail string) {
	respondJSON(w, status, errorResponse{Detail: detail})
}
