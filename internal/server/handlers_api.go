package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/thinkscotty/postmuse/internal/ai"
	"github.com/thinkscotty/postmuse/internal/database"
	"github.com/thinkscotty/postmuse/internal/knowledge"
	"github.com/thinkscotty/postmuse/internal/pipeline"
	"github.com/thinkscotty/postmuse/internal/redact"
)

const maxJSONBody = 1 << 20

func jsonResponse(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func jsonStatus(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func jsonError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// decodeJSON reads a bounded JSON body into v and writes a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		jsonError(w, "Invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

// writeError maps domain errors onto HTTP statuses.
func writeError(w http.ResponseWriter, op string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ai.ErrMissingAPIKey),
		errors.Is(err, knowledge.ErrInvalidName),
		errors.Is(err, knowledge.ErrNotText),
		errors.Is(err, pipeline.ErrNoContent):
		status = http.StatusBadRequest
	case errors.Is(err, knowledge.ErrTopicNotFound),
		errors.Is(err, pipeline.ErrSessionNotFound),
		errors.Is(err, database.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, knowledge.ErrTopicExists):
		status = http.StatusConflict
	case errors.Is(err, knowledge.ErrTooLarge):
		status = http.StatusRequestEntityTooLarge
	case errors.Is(err, pipeline.ErrNetwork), errors.Is(err, pipeline.ErrEmptyResponse):
		status = http.StatusBadGateway
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}

	if status >= 500 {
		slog.Error("API: "+op+" failed", "status", status, "error", err)
	} else {
		slog.Debug("API: "+op+" rejected", "status", status, "error", err)
	}
	jsonError(w, redact.String(err.Error()), status)
}
