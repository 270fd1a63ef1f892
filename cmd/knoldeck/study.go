package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/conorfennell/knoldeck/internal/domain"
	"github.com/conorfennell/knoldeck/internal/session"
)

func studyFlags(fs *pflag.FlagSet) {
	fs.String("deck", "", "deck to study")
	fs.Int("limit", 0, "maximum cards this session (0 uses the daily goal, -1 for no limit)")
	fs.Bool("all", false, "study every card of the deck when none are due")
}

// runStudy shows each card's front, waits for Enter, shows the back and asks
// for an outcome. "q" ends the session early; answers so far are kept.
func runStudy(ctx context.Context, a *app, fs *pflag.FlagSet) error {
	deckID, _ := fs.GetString("deck")
	if deckID == "" {
		return errors.New("--deck is required")
	}
	limit, _ := fs.GetInt("limit")
	all, _ := fs.GetBool("all")

	svc := session.NewService(a.db, a.cfg.Scheduler.Params(), a.cfg.Study.DailyGoal)
	sess, err := svc.Start(ctx, deckID, session.Options{Limit: limit, IncludeNotDue: all})
	if err != nil {
		return err
	}
	if len(sess.Queue) == 0 {
		fmt.Fprintln(a.out, "nothing due in this deck, use --all to study it anyway")
		_, err := svc.Finish(ctx, sess)
		return err
	}

	in := bufio.NewScanner(a.in)
	xp := 0
	for i, card := range sess.Queue {
		if ctx.Err() != nil {
			break
		}
		fmt.Fprintf(a.out, "\n[%d/%d] %s\n", i+1, len(sess.Queue), card.Front)
		fmt.Fprint(a.out, "(enter to reveal) ")
		if !in.Scan() {
			break
		}
		fmt.Fprintf(a.out, "%s\n", card.Back)

		outcome, ok := promptOutcome(a, in)
		if !ok {
			break
		}
		res, err := svc.Answer(ctx, sess, card.ID, outcome)
		if err != nil {
			if errors.Is(err, domain.ErrConflict) {
				fmt.Fprintln(a.out, "card changed elsewhere, skipping")
				continue
			}
			return err
		}
		xp += res.XPEarned
		fmt.Fprintf(a.out, "+%d XP, next review in %d day(s)\n", res.XPEarned, res.Card.Interval)
	}

	// Keep the answers even when the user interrupted.
	rec, err := svc.Finish(context.WithoutCancel(ctx), sess)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "\nreviewed %d of %d cards, earned %d XP in %s\n",
		len(rec.Reviews), len(sess.Queue), xp, rec.Duration.Round(time.Second))
	return nil
}

// promptOutcome reads an outcome name or digit. It returns false when the
// user quits or input ends.
func promptOutcome(a *app, in *bufio.Scanner) (domain.Outcome, bool) {
	for {
		fmt.Fprint(a.out, "how did it go? 0 forgot, 1 hard, 2 good, 3 easy, q quit: ")
		if !in.Scan() {
			return 0, false
		}
		text := strings.TrimSpace(in.Text())
		if strings.EqualFold(text, "q") {
			return 0, false
		}
		o, err := domain.ParseOutcome(text)
		if err == nil {
			return o, true
		}
		fmt.Fprintln(a.out, err)
	}
}
