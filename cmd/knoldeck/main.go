// Command knoldeck is a spaced-repetition flashcard tool: it imports markdown
// decks, runs study sessions in the terminal and serves a JSON API.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/conorfennell/knoldeck/internal/config"
	"github.com/conorfennell/knoldeck/internal/logger"
	"github.com/conorfennell/knoldeck/internal/storage"
)

const usage = `usage: knoldeck <command> [flags]

commands:
  serve                      run the HTTP API (and periodic sync)
  sync                       import decks from all sources
  add-source <path|url>      register a directory or git repository of decks
  decks                      list decks with due counts
  due [--deck ID]            list due cards
  study --deck ID            review due cards in the terminal
  stats                      show streak, XP and level
  export [file]              write a JSON backup (stdout by default)
  import [file]              replace the library with a backup (stdin by default)
  share --deck ID            print a share code for a deck
  import-share <code>        create a deck from a share code

run "knoldeck <command> --help" for the flags of a command.
`

// errUsage means the usage text was already printed.
var errUsage = errors.New("invalid usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, errUsage) && !errors.Is(err, pflag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}

// app carries what every command needs.
type app struct {
	cfg *config.Config
	db  *storage.DB
	in  io.Reader
	out io.Writer
}

type command struct {
	flags func(fs *pflag.FlagSet)
	run   func(ctx context.Context, a *app, fs *pflag.FlagSet) error
}

var commands = map[string]command{
	"serve":        {run: runServe},
	"sync":         {run: runSync},
	"add-source":   {run: runAddSource},
	"decks":        {run: runDecks},
	"due":          {flags: dueFlags, run: runDue},
	"study":        {flags: studyFlags, run: runStudy},
	"stats":        {run: runStats},
	"export":       {run: runExport},
	"import":       {run: runImport},
	"share":        {flags: shareFlags, run: runShare},
	"import-share": {run: runImportShare},
}

func run(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) error {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		fmt.Fprint(errOut, usage)
		return errUsage
	}
	name := args[0]
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(errOut, "unknown command %q\n\n%s", name, usage)
		return errUsage
	}

	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(errOut)
	config.RegisterFlags(fs)
	if cmd.flags != nil {
		cmd.flags(fs)
	}
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	cfg, err := config.Load(fs)
	if err != nil {
		return err
	}
	if _, err := logger.Setup(errOut, cfg.Log.Level, cfg.Log.Format); err != nil {
		return err
	}

	db, err := storage.Open(cfg.DB.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	return cmd.run(ctx, &app{cfg: cfg, db: db, in: in, out: out}, fs)
}
