package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/dmitrijs2005/notesync/internal/cli"
	"github.com/dmitrijs2005/notesync/internal/config"
	"github.com/dmitrijs2005/notesync/internal/flagx"
	"github.com/dmitrijs2005/notesync/internal/logging"
)

func main() {
	ctx := context.Background()
	cfg := config.LoadConfig()

	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	app, err := cli.NewApp(ctx, cfg, log)
	if err != nil {
		log.Error(ctx, "startup failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	// strip the global flags already consumed by the config layer
	args := commandArgs(os.Args[1:])
	if err := app.Run(ctx, args); err != nil {
		log.Error(ctx, "command failed", "error", err)
		os.Exit(1)
	}
}

// commandArgs drops the config-layer flags and their values, leaving the
// subcommand and its arguments.
func commandArgs(args []string) []string {
	global := flagx.FilterArgs(args, []string{"-c", "-config", "-d", "-t", "-p"})
	skip := make(map[int]bool)
	for i := 0; i < len(args) && len(global) > 0; i++ {
		if args[i] == global[0] {
			skip[i] = true
			global = global[1:]
		}
	}
	out := make([]string, 0, len(args))
	for i, arg := range args {
		if !skip[i] {
			out = append(out, arg)
		}
	}
	return out
}
