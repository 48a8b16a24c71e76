package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/garnizeh/bidboard/internal/validate"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, v any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("write response", slog.Any("err", err))
	}
}

func writeError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, errorResponse{Error: msg}, status)
}

// decodeBody checks the request body against the named schema and decodes
// it into dst. The returned error is safe to show to the client.
func decodeBody(r *http.Request, schemas *validate.Loader, schema string, dst any) error {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return errors.New("could not read request body")
	}
	if err := schemas.Validate(r.Context(), schema, data); err != nil {
		var verr *validate.Error
		if errors.As(err, &verr) {
			return verr
		}
		return errors.New("invalid json")
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("invalid json: %w", err)
	}
	return nil
}
