package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/chetan-code/taskcal/internal/apperr"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response_encode_failed", "error", err)
	}
}

// writeError maps err to its status code. Unexpected errors are logged here
// and reach the client only as a generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.KindUnexpected {
		slog.Error("request_failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
	}
	writeJSON(w, apperr.StatusCode(kind), map[string]string{"error": apperr.Message(err)})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return &apperr.Error{Kind: apperr.KindValidation, Message: "invalid request body", Err: err}
	}
	return nil
}
