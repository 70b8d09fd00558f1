package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jrsteele09/go-learner-session/auth"
	"github.com/jrsteele09/go-learner-session/identity"
	apperrors "github.com/jrsteele09/go-learner-session/internal/errors"
	"github.com/jrsteele09/go-learner-session/profile"
	"github.com/rs/zerolog/log"
)

const maxRequestBody = 64 << 10

type warningResponse struct {
	Warning string `json:"warning"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("failed to encode response")
	}
}

func writeWarning(w http.ResponseWriter, status int, warning string) {
	writeJSON(w, status, warningResponse{Warning: warning})
}

// writeError renders err as the warning the UI shows.
func writeError(w http.ResponseWriter, err error) {
	writeWarning(w, statusFor(err), auth.WarningMessage(err))
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}

func statusFor(err error) int {
	switch identity.KindOf(err) {
	case identity.KindValidation:
		return http.StatusBadRequest
	case identity.KindInvalidCredential:
		return http.StatusUnauthorized
	case identity.KindUnconfirmed:
		return http.StatusForbidden
	case identity.KindConflict:
		return http.StatusConflict
	case identity.KindNetwork:
		return http.StatusServiceUnavailable
	}

	var apiErr *profile.APIError
	switch {
	case errors.Is(err, apperrors.ErrNoSession):
		return http.StatusUnauthorized
	case errors.Is(err, apperrors.ErrSessionSuperseded):
		return http.StatusConflict
	case errors.Is(err, auth.ErrAliasUnavailable):
		return http.StatusNotFound
	case errors.As(err, &apiErr):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
