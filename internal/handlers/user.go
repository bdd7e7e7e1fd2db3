package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/petermazzocco/vitalarbor-api/internal/auth"
	"github.com/petermazzocco/vitalarbor-api/internal/common"
	"github.com/rs/zerolog/hlog"
)

type UserStore interface {
	Create(ctx context.Context, username, password string) error
	Verify(ctx context.Context, username, password string) (bool, error)
}

func SignupHandler(w http.ResponseWriter, r *http.Request, users UserStore) {
	creds, ok := auth.FromContext(r.Context())
	if !ok {
		MissingCredentials(w, r, nil)
		return
	}

	if err := users.Create(r.Context(), creds.Username, creds.Password); err != nil {
		if errors.Is(err, common.ErrAlreadyExists) {
			badRequest(w, "User already exists")
			return
		}
		writeError(w, r, err)
		return
	}

	hlog.FromRequest(r).Info().Str("username", creds.Username).Msg("signup successful")
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Signup successful",
	})
}

func LoginHandler(w http.ResponseWriter, r *http.Request, users UserStore) {
	creds, ok := auth.FromContext(r.Context())
	if !ok {
		MissingCredentials(w, r, nil)
		return
	}

	match, err := users.Verify(r.Context(), creds.Username, creds.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !match {
		badRequest(w, msgInvalidCredentials)
		return
	}

	hlog.FromRequest(r).Info().Str("username", creds.Username).Msg("login successful")
	writeJSON(w, http.StatusOK, map[string]any{
		"message":  "Login successful",
		"username": creds.Username,
	})
}
