// Package images receives tree images, stores them as blobs and keeps the
// per-user image metadata up to date.
package images

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/petermazzocco/vitalarbor-api/internal/blob"
	"github.com/petermazzocco/vitalarbor-api/internal/common"
	"github.com/petermazzocco/vitalarbor-api/models"
	"github.com/rs/zerolog"
)

// MaxImageSize is the largest accepted upload.
const MaxImageSize = 10 << 20

// maxKeyAttempts bounds how many later milliseconds Upload tries when a
// storage key is already taken.
const maxKeyAttempts = 5

// Store is the subset of the credential store the pipeline needs.
type Store interface {
	Verify(ctx context.Context, username, password string) (bool, error)
	AppendImage(ctx context.Context, username string, image *models.Image) error
	UpdateImage(ctx context.Context, username, filename string, mutate func(*models.Image)) error
	ListImages(ctx context.Context, username string) ([]models.Image, error)
	FindImage(ctx context.Context, username, filename string) (*models.Image, error)
}

type UploadInput struct {
	Filename string
	MimeType string
	Data     []byte
}

type UploadResult struct {
	URL      string
	Filename string
}

type Pipeline struct {
	store    Store
	blobs    blob.Store
	analyzer Analyzer
	now      func() time.Time
}

func NewPipeline(store Store, blobs blob.Store, analyzer Analyzer) *Pipeline {
	if analyzer == nil {
		analyzer = StubAnalyzer{}
	}
	return &Pipeline{store: store, blobs: blobs, analyzer: analyzer, now: time.Now}
}

// Authenticate checks username and password. It returns an error wrapping
// common.ErrNotFound for an unknown user and common.ErrUnauthorized for a
// wrong password.
func (p *Pipeline) Authenticate(ctx context.Context, username, password string) error {
	ok, err := p.store.Verify(ctx, username, password)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("user %q: %w", username, common.ErrUnauthorized)
	}
	return nil
}

// Upload stores the image and records it on the user. If recording fails
// the blob is left in place. Two uploads of the same name within one
// millisecond get consecutive timestamps, never a shared key.
func (p *Pipeline) Upload(ctx context.Context, username, password string, in UploadInput) (*UploadResult, error) {
	if err := p.Authenticate(ctx, username, password); err != nil {
		return nil, err
	}
	if err := validateUpload(in); err != nil {
		return nil, err
	}

	uploadedAt, key, err := p.putBlob(ctx, username, in)
	if err != nil {
		return nil, err
	}
	url := p.blobs.PublicURL(key)

	image := &models.Image{
		Filename:   key,
		URL:        url,
		MimeType:   in.MimeType,
		Size:       int64(len(in.Data)),
		UploadedAt: uploadedAt,
	}
	if err := p.store.AppendImage(ctx, username, image); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("key", key).Msg("image metadata not saved, blob orphaned")
		return nil, err
	}

	zerolog.Ctx(ctx).Info().Str("username", username).Str("filename", key).Msg("image uploaded")
	return &UploadResult{URL: url, Filename: key}, nil
}

func (p *Pipeline) putBlob(ctx context.Context, username string, in UploadInput) (time.Time, string, error) {
	at := p.now()
	for attempt := 1; ; attempt++ {
		key := StorageKey(username, at, in.Filename)
		err := p.blobs.Put(ctx, key, in.MimeType, in.Data)
		if err == nil {
			return at, key, nil
		}
		if !errors.Is(err, common.ErrAlreadyExists) || attempt == maxKeyAttempts {
			return time.Time{}, "", err
		}
		zerolog.Ctx(ctx).Debug().Str("key", key).Msg("storage key taken, retrying")
		at = at.Add(time.Millisecond)
	}
}

// Process analyzes filename and marks it processed. An unknown filename
// leaves the images untouched and still reports the result.
func (p *Pipeline) Process(ctx context.Context, username, password, filename string) (*models.ProcessingResult, error) {
	if err := p.Authenticate(ctx, username, password); err != nil {
		return nil, err
	}

	load := func(ctx context.Context) ([]byte, error) {
		if _, err := p.store.FindImage(ctx, username, filename); err != nil {
			return nil, err
		}
		return p.blobs.Get(ctx, filename)
	}
	results, err := p.analyzer.Analyze(ctx, filename, load)
	if err != nil {
		return nil, err
	}

	matched := false
	err = p.store.UpdateImage(ctx, username, filename, func(img *models.Image) {
		matched = true
		img.Processed = true
		img.Results = results
	})
	if err != nil {
		return nil, err
	}
	if !matched {
		zerolog.Ctx(ctx).Warn().Str("username", username).Str("filename", filename).Msg("processed image has no metadata entry")
	}
	return results, nil
}

// List returns the user's images, oldest first.
func (p *Pipeline) List(ctx context.Context, username, password string) ([]models.Image, error) {
	if err := p.Authenticate(ctx, username, password); err != nil {
		return nil, err
	}
	return p.store.ListImages(ctx, username)
}

// StorageKey names the blob of an upload: <username>/<unixMillis>_<name>.
func StorageKey(username string, at time.Time, originalName string) string {
	return fmt.Sprintf("%s/%d_%s", username, at.UnixMilli(), originalName)
}

func validateUpload(in UploadInput) error {
	switch {
	case len(in.Data) == 0:
		return fmt.Errorf("empty image: %w", common.ErrInvalidInput)
	case len(in.Data) > MaxImageSize:
		return fmt.Errorf("image larger than %d bytes: %w", MaxImageSize, common.ErrInvalidInput)
	case !strings.HasPrefix(in.MimeType, "image/"):
		return fmt.Errorf("only image files allowed, got %q: %w", in.MimeType, common.ErrInvalidInput)
	}
	return nil
}

// IsAuthError reports whether err means the credentials did not check out.
func IsAuthError(err error) bool {
	return errors.Is(err, common.ErrUnauthorized) || errors.Is(err, common.ErrNotFound)
}
