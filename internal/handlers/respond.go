package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/petermazzocco/vitalarbor-api/internal/common"
	"github.com/petermazzocco/vitalarbor-api/internal/images"
	"github.com/rs/zerolog/hlog"
)

const msgInvalidCredentials = "Invalid credentials"

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]any{"error": msg})
}

// writeError maps domain errors to a status and body. Unknown users and
// wrong passwords get the same answer.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case images.IsAuthError(err):
		badRequest(w, msgInvalidCredentials)
	case errors.Is(err, common.ErrInvalidInput), errors.Is(err, common.ErrAlreadyExists):
		badRequest(w, err.Error())
	default:
		hlog.FromRequest(r).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":   "Internal server error",
			"details": err.Error(),
		})
	}
}

// MissingCredentials answers requests without a username or password. A
// body cut off by the request size cap is reported as too large instead.
func MissingCredentials(w http.ResponseWriter, r *http.Request, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		badRequest(w, "Image too large")
		return
	}
	if err != nil {
		hlog.FromRequest(r).Debug().Err(err).Msg("could not read credentials")
	}
	badRequest(w, "Username and password required")
}
