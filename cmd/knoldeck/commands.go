package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/conorfennell/knoldeck/internal/domain"
	"github.com/conorfennell/knoldeck/internal/jobs"
	"github.com/conorfennell/knoldeck/internal/progress"
	"github.com/conorfennell/knoldeck/internal/session"
	"github.com/conorfennell/knoldeck/internal/share"
	"github.com/conorfennell/knoldeck/internal/sm2"
	"github.com/conorfennell/knoldeck/internal/storage"
	"github.com/conorfennell/knoldeck/internal/sync"
	"github.com/conorfennell/knoldeck/internal/web"
)

func runServe(ctx context.Context, a *app, _ *pflag.FlagSet) error {
	params := a.cfg.Scheduler.Params()
	sessions := session.NewService(a.db, params, a.cfg.Study.DailyGoal)
	srv := &http.Server{
		Addr:              a.cfg.Server.Addr,
		Handler:           web.NewServer(a.db, sessions, params, a.cfg.Sync.ReposDir),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if a.cfg.Sync.Interval > 0 {
		scheduler := jobs.New()
		err := scheduler.Every("sync", a.cfg.Sync.Interval, func(ctx context.Context) error {
			_, err := sync.Run(ctx, a.db, a.cfg.Sync.ReposDir)
			return err
		})
		if err != nil {
			return err
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func runSync(ctx context.Context, a *app, _ *pflag.FlagSet) error {
	report, err := sync.Run(ctx, a.db, a.cfg.Sync.ReposDir)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%d sources: %d decks created, %d updated, %d deleted; %d cards added, %d deleted\n",
		report.Sources, report.DecksCreated, report.DecksUpdated, report.DecksDeleted,
		report.CardsAdded, report.CardsDeleted)
	for _, e := range report.Errors {
		fmt.Fprintf(a.out, "- %s\n", e)
	}
	return nil
}

func runAddSource(ctx context.Context, a *app, fs *pflag.FlagSet) error {
	if fs.NArg() != 1 {
		return errors.New("add-source takes exactly one path or URL")
	}
	source, err := sync.AddSource(ctx, a.db, fs.Arg(0))
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "added %s source %d: %s\nrun \"knoldeck sync\" to import its decks\n", source.Type, source.ID, source.Path)
	return nil
}

func runDecks(ctx context.Context, a *app, _ *pflag.FlagSet) error {
	decks, err := a.db.ListDecks(ctx)
	if err != nil {
		return err
	}
	if len(decks) == 0 {
		fmt.Fprintln(a.out, "no decks yet")
		return nil
	}

	now := time.Now()
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCARDS\tDUE\tTAGS")
	for _, d := range decks {
		cards, err := a.db.ListCardsByDeck(ctx, d.ID)
		if err != nil {
			return err
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n", d.ID, d.Name, len(cards), sm2.CountDue(cards, now), strings.Join(d.Tags, ","))
	}
	return tw.Flush()
}

func dueFlags(fs *pflag.FlagSet) {
	fs.String("deck", "", "only list cards of this deck")
}

func runDue(ctx context.Context, a *app, fs *pflag.FlagSet) error {
	deckID, _ := fs.GetString("deck")

	var cards []domain.Card
	var err error
	if deckID != "" {
		if _, err := a.db.GetDeck(ctx, deckID); err != nil {
			return err
		}
		cards, err = a.db.ListCardsByDeck(ctx, deckID)
	} else {
		cards, err = a.db.ListCards(ctx)
	}
	if err != nil {
		return err
	}

	due := sm2.SelectDue(cards, time.Now())
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDECK\tINTERVAL\tFRONT")
	for _, c := range due {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", c.ID, c.DeckID, c.Interval, firstLine(c.Front))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%d due\n", len(due))
	return nil
}

func runStats(ctx context.Context, a *app, _ *pflag.FlagSet) error {
	stats, err := a.db.GetStats(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "level %d, %d XP (%d to next level)\n", stats.Level, stats.XP, progress.XPToNextLevel(stats))
	fmt.Fprintf(a.out, "streak: %d days\n", progress.CurrentStreak(stats, time.Now()))
	fmt.Fprintf(a.out, "cards reviewed: %d\n", stats.TotalCardsReviewed)
	fmt.Fprintf(a.out, "study time: %s\n", stats.TotalStudyTime.Round(time.Second))
	return nil
}

func runExport(ctx context.Context, a *app, fs *pflag.FlagSet) error {
	snap, err := a.db.Snapshot(ctx)
	if err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return share.Export(a.out, snap, time.Now())
	}

	f, err := os.Create(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", fs.Arg(0), err)
	}
	if err := share.Export(f, snap, time.Now()); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "exported %d decks and %d cards to %s\n", len(snap.Decks), len(snap.Cards), fs.Arg(0))
	return nil
}

func runImport(ctx context.Context, a *app, fs *pflag.FlagSet) error {
	var r io.Reader = a.in
	if fs.NArg() > 0 {
		f, err := os.Open(fs.Arg(0))
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}
	snap, err := share.Import(r)
	if err != nil {
		return err
	}
	if err := a.db.Restore(ctx, snap); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "imported %d decks and %d cards\n", len(snap.Decks), len(snap.Cards))
	return nil
}

func shareFlags(fs *pflag.FlagSet) {
	fs.String("deck", "", "deck to share")
}

func runShare(ctx context.Context, a *app, fs *pflag.FlagSet) error {
	deckID, _ := fs.GetString("deck")
	if deckID == "" {
		return errors.New("--deck is required")
	}
	deck, err := a.db.GetDeck(ctx, deckID)
	if err != nil {
		return err
	}
	cards, err := a.db.ListCardsByDeck(ctx, deckID)
	if err != nil {
		return err
	}
	code, err := share.EncodeDeck(deck, cards)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, code)
	return nil
}

func runImportShare(ctx context.Context, a *app, fs *pflag.FlagSet) error {
	if fs.NArg() != 1 {
		return errors.New("import-share takes exactly one code")
	}
	shared, err := share.DecodeDeck(fs.Arg(0))
	if err != nil {
		return err
	}
	deck, cards := shared.NewDeck(time.Now())
	err = a.db.InTx(ctx, func(tx *storage.Tx) error {
		if err := tx.InsertDeck(ctx, deck); err != nil {
			return err
		}
		for _, c := range cards {
			if err := tx.InsertCard(ctx, c); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "imported deck %q (%s) with %d cards\n", deck.Name, deck.ID, len(cards))
	return nil
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
