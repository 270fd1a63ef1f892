package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorfennell/knoldeck/internal/storage"
)

type cli struct {
	t  *testing.T
	db string
}

func newCLI(t *testing.T) *cli {
	dir := t.TempDir()
	t.Chdir(dir)
	return &cli{t: t, db: filepath.Join(dir, "test.db")}
}

func (c *cli) run(stdin string, args ...string) (string, error) {
	c.t.Helper()
	var out bytes.Buffer
	args = append(args, "--db", c.db, "--log-level", "error")
	err := run(context.Background(), args, strings.NewReader(stdin), &out, io.Discard)
	return out.String(), err
}

func (c *cli) mustRun(stdin string, args ...string) string {
	c.t.Helper()
	out, err := c.run(stdin, args...)
	require.NoError(c.t, err, out)
	return out
}

func (c *cli) deckID(name string) string {
	c.t.Helper()
	db, err := storage.Open(c.db)
	require.NoError(c.t, err)
	defer db.Close()
	decks, err := db.ListDecks(context.Background())
	require.NoError(c.t, err)
	for _, d := range decks {
		if d.Name == name {
			return d.ID
		}
	}
	c.t.Fatalf("deck %q not found", name)
	return ""
}

func TestCLIWorkflow(t *testing.T) {
	c := newCLI(t)
	require.NoError(t, os.MkdirAll("notes", 0o755))
	require.NoError(t, os.WriteFile(filepath.Join("notes", "go.md"), []byte(`# Go
Tags: lang

Q: What does defer do?
A: Runs a call when the function returns.
---
Q: Zero value of a map?
A: nil
`), 0o644))

	out := c.mustRun("", "add-source", "notes")
	assert.Contains(t, out, "added local source")

	out = c.mustRun("", "sync")
	assert.Contains(t, out, "2 cards added")

	out = c.mustRun("", "decks")
	assert.Contains(t, out, "Go")
	assert.Contains(t, out, "lang")

	out = c.mustRun("", "due")
	assert.Contains(t, out, "2 due")

	id := c.deckID("Go")
	out = c.mustRun("\n2\n\nq\n", "study", "--deck", id)
	assert.Contains(t, out, "+3 XP")
	assert.Contains(t, out, "reviewed 1 of 2 cards")

	out = c.mustRun("", "due", "--deck", id)
	assert.Contains(t, out, "1 due")

	out = c.mustRun("", "stats")
	assert.Contains(t, out, "cards reviewed: 1")
	assert.Contains(t, out, "streak: 1 days")

	out = c.mustRun("", "share", "--deck", id)
	code := strings.TrimSpace(out)
	require.NotEmpty(t, code)
	out = c.mustRun("", "import-share", code)
	assert.Contains(t, out, "with 2 cards")

	out = c.mustRun("", "export", "backup.json")
	assert.Contains(t, out, "exported 2 decks")

	backup, err := os.ReadFile("backup.json")
	require.NoError(t, err)
	out = c.mustRun(string(backup), "import")
	assert.Contains(t, out, "imported 2 decks and 4 cards")
}

func TestCLIStudyRetriesBadInput(t *testing.T) {
	c := newCLI(t)
	require.NoError(t, os.WriteFile("one.md", []byte("Q: q\nA: a\n"), 0o644))
	c.mustRun("", "add-source", ".")
	c.mustRun("", "sync")

	out := c.mustRun("\nperfect\n3\n", "study", "--deck", c.deckID("one"))
	assert.Contains(t, out, "invalid review outcome")
	assert.Contains(t, out, "+5 XP")
	assert.Contains(t, out, "reviewed 1 of 1 cards")

	out = c.mustRun("", "study", "--deck", c.deckID("one"))
	assert.Contains(t, out, "nothing due")
}

func TestCLIErrors(t *testing.T) {
	c := newCLI(t)

	_, err := c.run("", "frobnicate")
	assert.ErrorIs(t, err, errUsage)

	_, err = c.run("", "study")
	assert.ErrorContains(t, err, "--deck is required")

	_, err = c.run("", "add-source")
	assert.Error(t, err)

	_, err = c.run("", "import-share", "not-a-code")
	assert.Error(t, err)

	_, err = c.run("", "share", "--deck", "missing")
	assert.Error(t, err)
}
