// Command bridgectl is a terminal client for the practice engine. It talks
// to the storage directly, so it works offline against a local SQLite file.
//
//	bridgectl [-db path] <command> [flags]
//
// Commands:
//
//	deal                  deal and print a random hand
//	register -email E     create a learner (prompts for a password)
//	learners              list learners
//	practice -email E     practise interactively
//	review                list exercises by how settled their answers are
//	show -exercise ID     print one exercise with its recorded calls
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"

	"github.com/rychipman/bridge-practice/config"
	"github.com/rychipman/bridge-practice/internal/bootstrap"
	"github.com/rychipman/bridge-practice/pkg/logger"
)

var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stderr); err != nil {
		if !errors.Is(err, errUsage) {
			pterm.Error.Println(err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stderr io.Writer) error {
	global := flag.NewFlagSet("bridgectl", flag.ContinueOnError)
	global.SetOutput(stderr)
	dbPath := global.String("db", "bridge.db", "SQLite database file")
	envFile := global.String("env", ".env", "dotenv file to load")
	verbose := global.Bool("v", false, "log debug output")
	global.Usage = func() {
		fmt.Fprintln(stderr, "usage: bridgectl [-db path] <deal|register|learners|practice|review|show> [flags]")
		global.PrintDefaults()
	}
	if err := global.Parse(args); err != nil {
		return errUsage
	}
	if global.NArg() == 0 {
		global.Usage()
		return errUsage
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	log := logger.New(logger.Options{Output: stderr, Level: level, Format: logger.FormatPretty})

	name, rest := global.Arg(0), global.Args()[1:]
	if name == "deal" {
		return cmdDeal(rest, stderr)
	}

	cfg, err := config.Load(*envFile)
	if err != nil {
		return err
	}
	cfg.Database.Driver = config.DriverSQLite
	cfg.Database.SQLitePath = *dbPath

	storage, err := bootstrap.OpenStorage(ctx, cfg.Database, 1, log)
	if err != nil {
		return err
	}
	defer storage.Close()

	a, err := newApp(storage, cfg, log)
	if err != nil {
		return err
	}

	switch name {
	case "register":
		return a.cmdRegister(ctx, rest, stderr)
	case "learners":
		return a.cmdLearners(ctx, rest, stderr)
	case "practice":
		return a.cmdPractice(ctx, rest, stderr)
	case "review":
		return a.cmdReview(ctx, rest, stderr)
	case "show":
		return a.cmdShow(ctx, rest, stderr)
	default:
		global.Usage()
		return errUsage
	}
}
