package fakecma

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const contentType = "application/vnd.contentful.management.v1+json"

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("fakecma: encode response")
	}
}

// writeError sends the API's error document.
func writeError(w http.ResponseWriter, r *http.Request, status int, id, message string) {
	reqID := r.Header.Get("X-Request-Id")
	if reqID == "" {
		reqID = uuid.NewString()
	}
	writeJSON(w, status, map[string]any{
		"sys":       map[string]any{"type": "Error", "id": id},
		"message":   message,
		"requestId": reqID,
	})
}
