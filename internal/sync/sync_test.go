package sync

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorfennell/knoldeck/internal/domain"
	"github.com/conorfennell/knoldeck/internal/storage"
)

func openDB(t *testing.T) *storage.DB {
	t.Helper()
	db, err := storage.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestReconcile(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	root := t.TempDir()

	write(t, filepath.Join(root, "go.md"), `# Go
Tags: lang

Q: What does defer do?
A: Runs a call when the function returns.
---
Q: Zero value of a map?
A: nil
`)
	write(t, filepath.Join(root, "sub", "sql.md"), "Q: SELECT?\nA: reads rows\n")
	write(t, filepath.Join(root, "notes.txt"), "Q: ignored\nA: ignored\n")
	write(t, filepath.Join(root, ".git", "x.md"), "Q: hidden\nA: hidden\n")

	id, err := db.InsertSource(ctx, root, domain.SourceLocal)
	require.NoError(t, err)
	source := domain.Source{ID: id, Path: root, Type: domain.SourceLocal}

	t0 := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	report, err := Reconcile(ctx, db, source, root, t0)
	require.NoError(t, err)
	assert.Empty(t, report.Errors)
	assert.Equal(t, 2, report.DecksCreated)
	assert.Equal(t, 3, report.CardsAdded)

	goDeck, err := db.FindDeckBySourcePath(ctx, id, "go.md")
	require.NoError(t, err)
	assert.Equal(t, "Go", goDeck.Name)
	assert.Equal(t, []string{"lang"}, goDeck.Tags)

	sqlDeck, err := db.FindDeckBySourcePath(ctx, id, "sub/sql.md")
	require.NoError(t, err)
	assert.Equal(t, "sql", sqlDeck.Name)

	// Give one card some review history; it must survive edits to other cards.
	cards, err := db.ListCardsByDeck(ctx, goDeck.ID)
	require.NoError(t, err)
	require.Len(t, cards, 2)
	var deferCard domain.Card
	for _, c := range cards {
		if c.Front == "What does defer do?" {
			deferCard = c
		}
	}
	reviewed := deferCard.Clone()
	reviewed.Repetitions, reviewed.Interval = 2, 6
	reviewed.UpdatedAt = t0.Add(time.Hour)
	require.NoError(t, db.UpdateCardSchedule(ctx, reviewed, deferCard.UpdatedAt))

	write(t, filepath.Join(root, "go.md"), `# Go basics
Tags: lang, go

Q: What does defer do?
A: Runs a call when the function returns.
---
Q: Zero value of a slice?
A: nil
`)
	require.NoError(t, os.Remove(filepath.Join(root, "sub", "sql.md")))

	t1 := t0.Add(24 * time.Hour)
	report, err = Reconcile(ctx, db, source, root, t1)
	require.NoError(t, err)
	assert.Equal(t, 1, report.DecksUpdated)
	assert.Equal(t, 1, report.DecksDeleted)
	assert.Equal(t, 1, report.CardsAdded)
	assert.Equal(t, 1, report.CardsDeleted)

	kept, err := db.GetCard(ctx, deferCard.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, kept.Repetitions, "schedule survives re-import")
	assert.Equal(t, 6, kept.Interval)

	goDeck, err = db.GetDeck(ctx, goDeck.ID)
	require.NoError(t, err)
	assert.Equal(t, "Go basics", goDeck.Name)
	assert.Equal(t, []string{"lang", "go"}, goDeck.Tags)

	_, err = db.GetDeck(ctx, sqlDeck.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	sources, err := db.GetAllSources(ctx)
	require.NoError(t, err)
	require.Len(t, sources, 1)
	require.NotNil(t, sources[0].LastScanned)
	assert.True(t, sources[0].LastScanned.Equal(t1))
}

func TestReconcileIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	root := t.TempDir()
	write(t, filepath.Join(root, "a.md"), "Q: one\nA: 1\nQ: one\nA: 1\nQ: two\nA: 2\n")

	id, err := db.InsertSource(ctx, root, domain.SourceLocal)
	require.NoError(t, err)
	source := domain.Source{ID: id, Path: root, Type: domain.SourceLocal}

	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	first, err := Reconcile(ctx, db, source, root, now)
	require.NoError(t, err)
	assert.Equal(t, 2, first.CardsAdded, "duplicate entries collapse to one card")

	second, err := Reconcile(ctx, db, source, root, now)
	require.NoError(t, err)
	assert.Zero(t, second.CardsAdded)
	assert.Zero(t, second.CardsDeleted)
	assert.Zero(t, second.DecksCreated)
	assert.Zero(t, second.DecksUpdated)
}

func TestRunWithoutSources(t *testing.T) {
	db := openDB(t)
	report, err := Run(context.Background(), db, t.TempDir())
	require.NoError(t, err)
	assert.Zero(t, report.Sources)
}

func TestRunLocalSource(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	root := t.TempDir()
	write(t, filepath.Join(root, "deck.md"), "Q: q\nA: a\n")
	_, err := db.InsertSource(ctx, root, domain.SourceLocal)
	require.NoError(t, err)
	_, err = db.InsertSource(ctx, filepath.Join(root, "missing"), domain.SourceLocal)
	require.NoError(t, err)

	report, err := Run(ctx, db, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Sources)
	assert.Equal(t, 1, report.CardsAdded)
	assert.Len(t, report.Errors, 1, "the missing directory is reported, not fatal")
}

func TestAddSource(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	dir := t.TempDir()

	local, err := AddSource(ctx, db, dir)
	require.NoError(t, err)
	assert.Equal(t, domain.SourceLocal, local.Type)
	assert.True(t, filepath.IsAbs(local.Path))

	git, err := AddSource(ctx, db, "https://github.com/u/notes.git")
	require.NoError(t, err)
	assert.Equal(t, domain.SourceGit, git.Type)

	_, err = AddSource(ctx, db, dir)
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = AddSource(ctx, db, filepath.Join(dir, "missing"))
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = AddSource(ctx, db, "  ")
	assert.ErrorIs(t, err, domain.ErrValidation)
}
