package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/Aryiadm/physio-threat-engine/internal/db"
	"github.com/Aryiadm/physio-threat-engine/internal/models"
)

// Error codes returned in APIError.Code.
const (
	ErrCodeInvalidRequest   = "INVALID_REQUEST"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeInsufficientData = "INSUFFICIENT_DATA"
	ErrCodeRateLimited      = "RATE_LIMITED"
	ErrCodeInternal         = "INTERNAL_ERROR"
)

// APIError is the body of every non-2xx response.
type APIError struct {
	Error     string            `json:"error"`
	Code      string            `json:"code,omitempty"`
	Message   string            `json:"message"`
	RequestID string            `json:"request_id,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
}

func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string, details map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(APIError{
		Error:     http.StatusText(status),
		Code:      code,
		Message:   message,
		RequestID: RequestIDFrom(r.Context()),
		Details:   details,
	})
}

// respondErr maps err onto a status and code. Malformed input is the
// caller's fault; anything unclassified is internal.
func (s *Server) respondErr(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, models.ErrMalformedInput):
		details := map[string]string{}
		var ie *models.InputError
		if errors.As(err, &ie) {
			details["field"] = ie.Field
			if ie.Detail != "" {
				details["value"] = ie.Detail
			}
		}
		respondError(w, r, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error(), details)
	case errors.Is(err, db.ErrNotFound):
		respondError(w, r, http.StatusNotFound, ErrCodeNotFound, err.Error(), nil)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		respondError(w, r, http.StatusServiceUnavailable, ErrCodeInternal, "request cancelled", nil)
	default:
		s.logger.Error("Request failed",
			zap.String("request_id", RequestIDFrom(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		respondError(w, r, http.StatusInternalServerError, ErrCodeInternal, "internal server error", nil)
	}
}
