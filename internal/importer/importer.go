// Package importer bulk-loads accounts from a text file of
// username:password lines.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/petermazzocco/vitalarbor-api/internal/common"
	"github.com/rs/zerolog"
)

// Store creates accounts the same way signup does.
type Store interface {
	Exists(ctx context.Context, username string) (bool, error)
	Create(ctx context.Context, username, password string) error
}

// Summary counts what a run did with each line.
type Summary struct {
	Created     int
	Existing    int
	Invalid     int
	FileCreated bool
}

type Importer struct {
	store Store
	log   zerolog.Logger
}

func New(store Store, log zerolog.Logger) *Importer {
	return &Importer{store: store, log: log}
}

// Run imports every valid line of path, one account at a time. Blank lines
// are ignored. Malformed lines and existing usernames are skipped, as are
// passwords the store rejects as invalid. A missing file is created empty.
// Any other store error stops the run.
func (im *Importer) Run(ctx context.Context, path string) (Summary, error) {
	var sum Summary

	content, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		im.log.Warn().Str("file", path).Msg("users file not found, creating empty file")
		if err := os.WriteFile(path, nil, 0o600); err != nil {
			return sum, fmt.Errorf("create %s: %w", path, err)
		}
		im.log.Info().Msg("add users in format username:password, one per line")
		sum.FileCreated = true
		return sum, nil
	}
	if err != nil {
		return sum, fmt.Errorf("read %s: %w", path, err)
	}

	for n, raw := range strings.Split(string(content), "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		username, password, ok := parseLine(line)
		if !ok {
			im.log.Warn().Int("line", n+1).Msg("skipping invalid line")
			sum.Invalid++
			continue
		}

		exists, err := im.store.Exists(ctx, username)
		if err != nil {
			return sum, err
		}
		if exists {
			im.log.Info().Str("username", username).Msg("skipping, already exists")
			sum.Existing++
			continue
		}

		err = im.store.Create(ctx, username, password)
		if errors.Is(err, common.ErrInvalidInput) {
			im.log.Warn().Int("line", n+1).Str("username", username).Msg("skipping, password rejected")
			sum.Invalid++
			continue
		}
		if err != nil {
			return sum, err
		}
		im.log.Info().Str("username", username).Msg("migrated")
		sum.Created++
	}

	im.log.Info().
		Int("created", sum.Created).
		Int("existing", sum.Existing).
		Int("invalid", sum.Invalid).
		Msg("migration complete")
	return sum, nil
}

// parseLine splits on the first colon; both halves must be non-empty.
func parseLine(line string) (username, password string, ok bool) {
	username, password, found := strings.Cut(line, ":")
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)
	if !found || username == "" || password == "" {
		return "", "", false
	}
	return username, password, true
}
