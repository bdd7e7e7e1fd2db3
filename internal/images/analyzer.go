package images

import (
	"context"
	"errors"
	"fmt"

	"github.com/h2non/bimg"
	"github.com/petermazzocco/vitalarbor-api/internal/common"
	"github.com/petermazzocco/vitalarbor-api/models"
)

// LoadFunc fetches the bytes of the image being analyzed. It returns an
// error wrapping common.ErrNotFound when the user has no such image.
type LoadFunc func(ctx context.Context) ([]byte, error)

// Analyzer produces the processing result for one image.
type Analyzer interface {
	Analyze(ctx context.Context, filename string, load LoadFunc) (*models.ProcessingResult, error)
}

// Placeholder is the fixed result reported until a real tree analysis exists.
func Placeholder() *models.ProcessingResult {
	return &models.ProcessingResult{
		TreeType:     "Example Tree",
		Health:       "Good",
		EstimatedAge: "10 years",
	}
}

// StubAnalyzer ignores the image and returns Placeholder.
type StubAnalyzer struct{}

func (StubAnalyzer) Analyze(ctx context.Context, filename string, load LoadFunc) (*models.ProcessingResult, error) {
	return Placeholder(), nil
}

// VipsAnalyzer decodes the image header with libvips and adds its size and
// format to the placeholder result.
type VipsAnalyzer struct{}

func (VipsAnalyzer) Analyze(ctx context.Context, filename string, load LoadFunc) (*models.ProcessingResult, error) {
	result := Placeholder()

	data, err := load(ctx)
	if errors.Is(err, common.ErrNotFound) {
		return result, nil
	}
	if err != nil {
		return nil, err
	}

	img := bimg.NewImage(data)
	size, err := img.Size()
	if err != nil {
		return nil, fmt.Errorf("decode %q: %w: %v", filename, common.ErrInvalidInput, err)
	}
	result.Width = size.Width
	result.Height = size.Height
	result.Format = img.Type()
	return result, nil
}

// NewAnalyzer returns the analyzer registered under name.
func NewAnalyzer(name string) (Analyzer, error) {
	switch name {
	case "", "stub":
		return StubAnalyzer{}, nil
	case "vips":
		return VipsAnalyzer{}, nil
	default:
		return nil, fmt.Errorf("unknown analyzer %q", name)
	}
}
