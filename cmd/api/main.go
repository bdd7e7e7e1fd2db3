package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/petermazzocco/vitalarbor-api/internal/auth"
	"github.com/petermazzocco/vitalarbor-api/internal/blob"
	"github.com/petermazzocco/vitalarbor-api/internal/config"
	"github.com/petermazzocco/vitalarbor-api/internal/images"
	"github.com/petermazzocco/vitalarbor-api/internal/logging"
	"github.com/petermazzocco/vitalarbor-api/internal/server"
	"github.com/petermazzocco/vitalarbor-api/internal/store"
	"github.com/rs/zerolog"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	// Database connection
	db, err := store.Open(cfg.DBDriver, cfg.DSN)
	if err != nil {
		return err
	}
	users := store.New(db, auth.NewHasher(auth.DefaultCost))

	blobs, err := newBlobStore(ctx, cfg)
	if err != nil {
		return err
	}
	analyzer, err := images.NewAnalyzer(cfg.Analyzer)
	if err != nil {
		return err
	}
	pipeline := images.NewPipeline(users, blobs, analyzer)

	router := server.NewRouter(server.Options{
		Users:             users,
		Pipeline:          pipeline,
		Logger:            log,
		RateLimitRequests: cfg.RateLimitRequests,
		RateLimitWindow:   cfg.RateLimitWindow,
		Development:       cfg.Development(),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Str("bucket", cfg.Bucket).
			Str("blob_backend", cfg.BlobBackend).
			Msg("VitalArbor API running")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	log.Info().Msg("shutting down")
	return srv.Shutdown(shutdownCtx)
}

func newBlobStore(ctx context.Context, cfg *config.Config) (blob.Store, error) {
	switch cfg.BlobBackend {
	case "memory":
		return blob.NewMemoryStore(cfg.PublicURL), nil
	case "s3":
		return blob.NewS3Store(ctx, blob.S3Config{
			Bucket:          cfg.Bucket,
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.AccessKeyID,
			AccessKeySecret: cfg.AccessKeySecret,
			URLTemplate:     cfg.PublicURL,
			PublicACL:       cfg.PublicACL,
			UsePathStyle:    cfg.S3PathStyle,
			ConditionalPut:  cfg.S3ConditionalPut,
		})
	default:
		return nil, fmt.Errorf("unknown blob backend %q", cfg.BlobBackend)
	}
}
