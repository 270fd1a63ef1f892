package sync

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/conorfennell/knoldeck/internal/domain"
	"github.com/conorfennell/knoldeck/internal/gitsource"
	"github.com/conorfennell/knoldeck/internal/storage"
)

// AddSource registers a local directory or git URL. Local paths are stored
// absolute and must exist; registering the same path twice is a conflict.
func AddSource(ctx context.Context, db *storage.DB, path string) (domain.Source, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return domain.Source{}, fmt.Errorf("%w: source path cannot be empty", domain.ErrValidation)
	}

	typ := domain.SourceLocal
	if gitsource.IsRemote(path) {
		typ = domain.SourceGit
	} else {
		abs, err := filepath.Abs(path)
		if err != nil {
			return domain.Source{}, fmt.Errorf("failed to resolve %s: %w", path, err)
		}
		info, err := os.Stat(abs)
		if err != nil || !info.IsDir() {
			return domain.Source{}, fmt.Errorf("%w: %s is not a directory", domain.ErrValidation, path)
		}
		path = abs
	}

	_, err := db.FindSourceByPath(ctx, path)
	switch {
	case err == nil:
		return domain.Source{}, fmt.Errorf("source %s: %w", path, domain.ErrConflict)
	case !errors.Is(err, domain.ErrNotFound):
		return domain.Source{}, err
	}

	id, err := db.InsertSource(ctx, path, typ)
	if err != nil {
		return domain.Source{}, err
	}
	return domain.Source{ID: id, Path: path, Type: typ}, nil
}
