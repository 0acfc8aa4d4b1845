// Package cli implements the one-shot command-line interface: account
// management, local note editing and sync triggering.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/notesync/internal/config"
	"github.com/dmitrijs2005/notesync/internal/logging"
	"github.com/dmitrijs2005/notesync/internal/storage"
	syncpkg "github.com/dmitrijs2005/notesync/internal/sync"
)

type App struct {
	config   *config.Config
	store    *storage.Storage
	keychain *storage.Keychain
	manager  *syncpkg.Manager
	log      logging.Logger

	reader *bufio.Reader
	out    io.Writer
}

func NewApp(ctx context.Context, cfg *config.Config, log logging.Logger) (*App, error) {
	store, err := storage.InitDatabase(ctx, cfg.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("initializing database: %w", err)
	}

	keychain, err := storage.NewKeychain(cfg.DataDir, store.Accounts)
	if err != nil {
		return nil, err
	}

	manager := syncpkg.NewManager(store, keychain, cfg, log)

	return &App{
		config:   cfg,
		store:    store,
		keychain: keychain,
		manager:  manager,
		log:      log,
		reader:   bufio.NewReader(os.Stdin),
		out:      os.Stdout,
	}, nil
}

func (a *App) Close() error {
	return a.store.Close()
}

// Run dispatches one subcommand. args excludes the binary name but may still
// contain global flags, which the config layer has already consumed.
func (a *App) Run(ctx context.Context, args []string) error {
	cmd, rest := splitCommand(args)

	switch cmd {
	case "account":
		return a.runAccount(ctx, rest)
	case "note":
		return a.runNote(ctx, rest)
	case "sync":
		return a.runSync(ctx, rest)
	case "", "help":
		a.printUsage()
		return nil
	default:
		a.printUsage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// splitCommand returns the first non-flag argument and everything after it.
func splitCommand(args []string) (string, []string) {
	for i, arg := range args {
		if len(arg) > 0 && arg[0] != '-' {
			return arg, args[i+1:]
		}
	}
	return "", nil
}

func (a *App) printUsage() {
	fmt.Fprint(a.out, `Usage:
  notesync account add            add a server account (prompts for credentials)
  notesync account list           list configured accounts
  notesync account remove NAME    remove an account and its notes
  notesync note add ACCOUNT       create a note (multiline input)
  notesync note list ACCOUNT      list notes of an account
  notesync note edit ID           replace a note's content
  notesync note delete ID         delete a note (synced on next cycle)
  notesync sync ACCOUNT           synchronize one account
  notesync sync --all             synchronize every account
`)
}
