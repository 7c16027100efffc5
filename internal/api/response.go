package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/erazemk/omara/internal/imaging"
	"github.com/erazemk/omara/internal/ingest"
	"github.com/erazemk/omara/internal/model"
	"github.com/erazemk/omara/internal/upstream"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Status string `json:"status"`
	Detail string `json:"detail"`
}

// jsonResponse writes a JSON response with the given status code.
func (s *server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			s.logger.Warn("error encoding response", zap.Error(err))
		}
	}
}

// jsonError writes a JSON error response.
func (s *server) jsonError(w http.ResponseWriter, status int, detail string) {
	s.jsonResponse(w, status, errorBody{Status: "error", Detail: detail})
}

// writeError maps a component error to its HTTP status. Unknown errors are
// logged and reported as a generic 500.
func (s *server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validation *model.ValidationError
		corrupt    *model.CorruptStoreError
		external   *upstream.ExternalServiceError
		ingestion  *ingest.IngestionError
	)
	switch {
	case errors.Is(err, model.ErrNotFound):
		s.jsonError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, imaging.ErrUnsupportedFormat):
		s.jsonError(w, http.StatusBadRequest, "unsupported image: "+err.Error())
	case errors.As(err, &ingestion):
		s.logger.Error("ingestion failed", zap.String("stage", ingestion.Stage), zap.Error(err))
		s.jsonError(w, http.StatusInternalServerError, fmt.Sprintf("image processing failed at %s", ingestion.Stage))
	case errors.As(err, &validation):
		s.jsonError(w, http.StatusBadRequest, validation.Error())
	case errors.As(err, &external):
		s.logger.Warn("external service failed", zap.String("path", r.URL.Path), zap.Error(err))
		s.jsonError(w, http.StatusBadGateway, external.Error())
	case errors.As(err, &corrupt):
		s.logger.Error("item store is corrupt", zap.String("path", corrupt.Path), zap.Error(err))
		s.jsonError(w, http.StatusInternalServerError, "item store is unreadable")
	default:
		s.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		s.jsonError(w, http.StatusInternalServerError, "internal error")
	}
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	return dec.Decode(target)
}
