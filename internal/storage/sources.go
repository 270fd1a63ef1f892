package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/conorfennell/knoldeck/internal/domain"
)

type sourceRow struct {
	ID          int64         `db:"id"`
	Path        string        `db:"path"`
	Type        string        `db:"type"`
	LastScanned sql.NullInt64 `db:"last_scanned"`
}

func (r sourceRow) source() domain.Source {
	return domain.Source{
		ID:          r.ID,
		Path:        r.Path,
		Type:        domain.SourceType(r.Type),
		LastScanned: timePtr(r.LastScanned),
	}
}

// InsertSource registers a source path and returns its ID.
func (db *DB) InsertSource(ctx context.Context, path string, typ domain.SourceType) (int64, error) {
	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO sources (path, type)
		VALUES (?, ?)
	`, path, string(typ))
	if err != nil {
		return 0, fmt.Errorf("failed to insert source %s: %w", path, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for source %s: %w", path, err)
	}
	return id, nil
}

// FindSourceByPath retrieves a source by its path.
func (db *DB) FindSourceByPath(ctx context.Context, path string) (domain.Source, error) {
	var row sourceRow
	err := db.conn.GetContext(ctx, &row, `SELECT id, path, type, last_scanned FROM sources WHERE path = ?`, path)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Source{}, fmt.Errorf("source %s: %w", path, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Source{}, fmt.Errorf("failed to find source by path %s: %w", path, err)
	}
	return row.source(), nil
}

// GetAllSources retrieves all registered sources.
func (db *DB) GetAllSources(ctx context.Context) ([]domain.Source, error) {
	var rows []sourceRow
	if err := db.conn.SelectContext(ctx, &rows, `SELECT id, path, type, last_scanned FROM sources ORDER BY id`); err != nil {
		return nil, fmt.Errorf("failed to get all sources: %w", err)
	}
	sources := make([]domain.Source, 0, len(rows))
	for _, r := range rows {
		sources = append(sources, r.source())
	}
	return sources, nil
}

// UpdateSourceLastScanned stamps the time a source was last reconciled.
func (db *DB) UpdateSourceLastScanned(ctx context.Context, sourceID int64, at time.Time) error {
	res, err := db.conn.ExecContext(ctx, `UPDATE sources SET last_scanned = ? WHERE id = ?`, toMillis(at), sourceID)
	if err != nil {
		return fmt.Errorf("failed to update last scanned for source ID %d: %w", sourceID, err)
	}
	return expectOne(res, fmt.Sprintf("source %d", sourceID))
}

// DeleteSource removes a source and every deck imported from it.
func (db *DB) DeleteSource(ctx context.Context, id int64) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM sources WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete source %d: %w", id, err)
	}
	return expectOne(res, fmt.Sprintf("source %d", id))
}
