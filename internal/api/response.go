package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"iadetakip/internal/pipeline"
	"iadetakip/internal/storage"
	"iadetakip/internal/tracker"
)

func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("encoding response", "error", err)
		}
	}
}

func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}

// writeErr maps domain errors onto status codes.
func writeErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotConfigured):
		jsonError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, pipeline.ErrNoValidRows):
		jsonError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, pipeline.ErrUnsupportedFormat):
		jsonError(w, http.StatusUnsupportedMediaType, err.Error())
	case errors.Is(err, tracker.ErrNoBarcodes):
		jsonError(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error("request failed", "error", err)
		jsonError(w, http.StatusBadGateway, err.Error())
	}
}
