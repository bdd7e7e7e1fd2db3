// Package server assembles the HTTP router of the API.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/petermazzocco/vitalarbor-api/internal/auth"
	"github.com/petermazzocco/vitalarbor-api/internal/handlers"
	"github.com/petermazzocco/vitalarbor-api/internal/images"
	"github.com/petermazzocco/vitalarbor-api/internal/logging"
	"github.com/rs/zerolog"
	"github.com/unrolled/secure"
)

type Options struct {
	Users    handlers.UserStore
	Pipeline handlers.ImagePipeline
	Logger   zerolog.Logger

	RateLimitRequests int
	RateLimitWindow   time.Duration
	Development       bool
}

// maxUploadBody leaves room for the form fields around a full-size image.
const maxUploadBody = images.MaxImageSize + 1<<20

func NewRouter(opts Options) http.Handler {
	if opts.RateLimitRequests <= 0 {
		opts.RateLimitRequests = 100
	}
	if opts.RateLimitWindow <= 0 {
		opts.RateLimitWindow = 15 * time.Minute
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.RequestLogger(opts.Logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))
	r.Use(secure.New(secure.Options{
		FrameDeny:            true,
		ContentTypeNosniff:   true,
		BrowserXssFilter:     true,
		ReferrerPolicy:       "no-referrer",
		STSSeconds:           15552000,
		STSIncludeSubdomains: true,
		IsDevelopment:        opts.Development,
	}).Handler)
	r.Use(httprate.Limit(
		opts.RateLimitRequests,
		opts.RateLimitWindow,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]any{"error": "Too many requests, please try again later"})
		}),
	))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(auth.CredentialsMiddleware(handlers.MissingCredentials))

			r.Post("/signup", func(w http.ResponseWriter, r *http.Request) {
				handlers.SignupHandler(w, r, opts.Users)
			})
			r.Post("/login", func(w http.ResponseWriter, r *http.Request) {
				handlers.LoginHandler(w, r, opts.Users)
			})
			r.Post("/images", func(w http.ResponseWriter, r *http.Request) {
				handlers.ListImagesHandler(w, r, opts.Pipeline)
			})
			r.Post("/process", func(w http.ResponseWriter, r *http.Request) {
				handlers.ProcessImageHandler(w, r, opts.Pipeline)
			})
		})

		// The body cap has to run before the credentials middleware parses the form.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequestSize(maxUploadBody))
			r.Use(auth.CredentialsMiddleware(handlers.MissingCredentials))

			r.Post("/upload", func(w http.ResponseWriter, r *http.Request) {
				handlers.UploadImageHandler(w, r, opts.Pipeline)
			})
		})
	})

	return r
}
