package images

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/petermazzocco/vitalarbor-api/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStubAnalyzer_IgnoresContent(t *testing.T) {
	loaded := false
	load := func(ctx context.Context) ([]byte, error) {
		loaded = true
		return nil, nil
	}

	res, err := StubAnalyzer{}.Analyze(context.Background(), "alice/1_a.jpg", load)
	require.NoError(t, err)
	assert.Equal(t, Placeholder(), res)
	assert.False(t, loaded)
}

func TestPlaceholder_ReturnsFreshCopy(t *testing.T) {
	a := Placeholder()
	a.Health = "Poor"
	assert.Equal(t, "Good", Placeholder().Health)
}

func TestVipsAnalyzer_MissingImageFallsBack(t *testing.T) {
	load := func(ctx context.Context) ([]byte, error) {
		return nil, fmt.Errorf("image %q: %w", "x", common.ErrNotFound)
	}

	res, err := VipsAnalyzer{}.Analyze(context.Background(), "alice/x.jpg", load)
	require.NoError(t, err)
	assert.Equal(t, Placeholder(), res)
}

func TestVipsAnalyzer_LoadError(t *testing.T) {
	boom := errors.New("bucket unavailable")
	load := func(ctx context.Context) ([]byte, error) { return nil, boom }

	_, err := VipsAnalyzer{}.Analyze(context.Background(), "alice/x.jpg", load)
	assert.ErrorIs(t, err, boom)
}

func TestNewAnalyzer(t *testing.T) {
	a, err := NewAnalyzer("")
	require.NoError(t, err)
	assert.IsType(t, StubAnalyzer{}, a)

	a, err = NewAnalyzer("vips")
	require.NoError(t, err)
	assert.IsType(t, VipsAnalyzer{}, a)

	_, err = NewAnalyzer("neural")
	assert.Error(t, err)
}
