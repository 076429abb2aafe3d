package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ameentrust/donorgate/internal/api"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeBackendError maps a failed backend call onto this surface:
// the backend's own status and message when it answered, 502 with a
// generic message when it never did.
func writeBackendError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		status = apiErr.Status
	}
	writeJSON(w, status, map[string]string{"error": api.UserMessage(err)})
}
