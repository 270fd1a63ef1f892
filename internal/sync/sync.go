// Package sync imports markdown decks from registered sources into storage.
package sync

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/conorfennell/knoldeck/internal/domain"
	"github.com/conorfennell/knoldeck/internal/gitsource"
	"github.com/conorfennell/knoldeck/internal/knol"
	"github.com/conorfennell/knoldeck/internal/parser"
	"github.com/conorfennell/knoldeck/internal/storage"
)

// Report summarises what a sync changed.
type Report struct {
	Sources      int
	DecksCreated int
	DecksUpdated int
	DecksDeleted int
	CardsAdded   int
	CardsDeleted int
	Errors       []error
}

func (r *Report) add(o Report) {
	r.DecksCreated += o.DecksCreated
	r.DecksUpdated += o.DecksUpdated
	r.DecksDeleted += o.DecksDeleted
	r.CardsAdded += o.CardsAdded
	r.CardsDeleted += o.CardsDeleted
	r.Errors = append(r.Errors, o.Errors...)
}

// Run iterates over all sources and reconciles them. Git sources are cloned or
// pulled into reposDir first. A failing source is logged and skipped; only
// storage failures that prevent the sync from starting are returned.
func Run(ctx context.Context, db *storage.DB, reposDir string) (Report, error) {
	slog.Info("starting sync for all sources")
	sources, err := db.GetAllSources(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("failed to get sources: %w", err)
	}

	var report Report
	if len(sources) == 0 {
		slog.Info("no sources configured, add one with: knoldeck add-source <path/or/url.git>")
		return report, nil
	}

	for _, source := range sources {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		slog.Info("syncing source", "id", source.ID, "type", source.Type, "path", source.Path)
		report.Sources++

		root := source.Path
		if source.Type == domain.SourceGit {
			root, err = gitsource.LocalPath(reposDir, source.Path)
			if err != nil {
				slog.Error("error determining local path for git repo", "url", source.Path, "error", err)
				report.Errors = append(report.Errors, err)
				continue
			}
			if err := gitsource.Sync(ctx, source.Path, root); err != nil {
				slog.Error("error syncing git repo", "url", source.Path, "error", err)
				report.Errors = append(report.Errors, err)
				continue
			}
		}

		r, err := Reconcile(ctx, db, source, root, time.Now())
		report.add(r)
		if err != nil {
			slog.Error("error reconciling source", "source_id", source.ID, "error", err)
			report.Errors = append(report.Errors, err)
		}
	}

	slog.Info("sync complete",
		"sources", report.Sources,
		"cards_added", report.CardsAdded,
		"cards_deleted", report.CardsDeleted,
		"errors", len(report.Errors),
	)
	return report, nil
}

// Reconcile makes the decks of source match the markdown files under root.
// Each file becomes one deck keyed by its path relative to root. Cards are
// matched by content hash so unchanged cards keep their schedule; new cards
// start fresh and cards that disappeared from the file are deleted. Decks whose
// file is gone are deleted with their cards.
func Reconcile(ctx context.Context, db *storage.DB, source domain.Source, root string, now time.Time) (Report, error) {
	var report Report
	seen := make(map[string]bool)

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(strings.ToLower(d.Name()), ".md") {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		seen[rel] = true

		doc, err := parser.ParseFile(path)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Errorf("parsing %s: %w", path, err))
			return nil
		}
		r, err := reconcileFile(ctx, db, source.ID, rel, doc, now)
		report.add(r)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Errorf("importing %s: %w", path, err))
		}
		return nil
	})
	if walkErr != nil {
		return report, fmt.Errorf("error walking directory %s: %w", root, walkErr)
	}

	decks, err := db.ListDecksBySource(ctx, source.ID)
	if err != nil {
		return report, err
	}
	for _, deck := range decks {
		if seen[deck.Path] {
			continue
		}
		slog.Info("deck file removed, deleting deck", "deck_id", deck.ID, "path", deck.Path)
		if err := db.DeleteDeck(ctx, deck.ID); err != nil {
			slog.Warn("failed to delete deck", "deck_id", deck.ID, "error", err)
			report.Errors = append(report.Errors, err)
			continue
		}
		report.DecksDeleted++
	}

	if err := db.UpdateSourceLastScanned(ctx, source.ID, now); err != nil {
		slog.Warn("failed to update last scanned for source", "source_id", source.ID, "error", err)
	}

	slog.Info("reconciliation complete",
		"path", root,
		"decks", len(seen),
		"cards_added", report.CardsAdded,
		"orphaned_deleted", report.CardsDeleted,
		"errors", len(report.Errors),
	)
	return report, nil
}

func reconcileFile(ctx context.Context, db *storage.DB, sourceID int64, rel string, doc *parser.Document, now time.Time) (Report, error) {
	var report Report

	deck, err := db.FindDeckBySourcePath(ctx, sourceID, rel)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		deck = domain.NewDeck(doc.Title, doc.Description, doc.Tags, now)
		deck.SourceID = &sourceID
		deck.Path = rel
		if err := db.InsertDeck(ctx, deck); err != nil {
			return report, err
		}
		report.DecksCreated++
	case err != nil:
		return report, err
	case deck.Name != doc.Title || deck.Description != doc.Description || !slices.Equal(deck.Tags, doc.Tags):
		deck.Name, deck.Description, deck.Tags, deck.UpdatedAt = doc.Title, doc.Description, doc.Tags, now
		if err := db.UpdateDeck(ctx, deck); err != nil {
			return report, err
		}
		report.DecksUpdated++
	}

	existing, err := db.ListCardsByDeck(ctx, deck.ID)
	if err != nil {
		return report, err
	}
	byHash := make(map[string]domain.Card, len(existing))
	for _, c := range existing {
		byHash[c.Hash] = c
	}

	var fresh []domain.Card
	found := make(map[string]bool, len(doc.Entries))
	for _, e := range doc.Entries {
		h := knol.Hash(e.Front, e.Back)
		if found[h] {
			slog.Debug("duplicate card in file, skipping", "path", rel, "line", e.Line)
			continue
		}
		found[h] = true
		if _, ok := byHash[h]; ok {
			continue
		}
		c := domain.NewCard(deck.ID, e.Front, e.Back, now)
		c.Hash = h
		fresh = append(fresh, c)
	}

	var orphaned []domain.Card
	for _, c := range existing {
		if !found[c.Hash] {
			orphaned = append(orphaned, c)
		}
	}

	err = db.InTx(ctx, func(tx *storage.Tx) error {
		for _, c := range fresh {
			slog.Debug("new card found, inserting", "hash", c.Hash, "path", rel)
			if err := tx.InsertCard(ctx, c); err != nil {
				return err
			}
		}
		for _, c := range orphaned {
			slog.Debug("orphaned card, deleting", "hash", c.Hash, "path", rel)
			if err := tx.DeleteCard(ctx, c.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return report, err
	}
	report.CardsAdded += len(fresh)
	report.CardsDeleted += len(orphaned)
	return report, nil
}

