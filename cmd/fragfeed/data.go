package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ernie/fragfeed/internal/collector"
	"github.com/ernie/fragfeed/internal/domain"
	"github.com/ernie/fragfeed/internal/eventlog"
	"github.com/ernie/fragfeed/internal/history"
)

// cmdStats replays the event log and prints the leaderboard
func cmdStats(args []string) error {
	fs, configPath := newFlagSet("stats")
	since := fs.String("since", "all", "only count games since: all, today, week or a date")
	fs.Parse(args)

	a, err := setup(*configPath)
	if err != nil {
		return err
	}
	defer a.logger.Sync()

	loc, err := a.cfg.Location()
	if err != nil {
		return err
	}

	ctx := context.Background()
	store, err := a.openEventLog(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	text, err := history.Stats(ctx, store, *since, loc, a.logger)
	if err != nil {
		return fmt.Errorf("computing stats: %w", err)
	}
	fmt.Print(text)
	return nil
}

// cmdImport decodes a complete raw server log straight into the event log
func cmdImport(args []string) error {
	fs, configPath := newFlagSet("import")
	reset := fs.Bool("reset", false, "clear the event log first")
	fs.Parse(args)

	if fs.NArg() < 1 {
		return errors.New("usage: fragfeed import [--reset] <games.log>")
	}
	path := fs.Arg(0)

	a, err := setup(*configPath)
	if err != nil {
		return err
	}
	defer a.logger.Sync()
	loc, err := a.cfg.Location()
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	ctx := context.Background()
	store, err := a.openEventLog(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	if *reset {
		if err := store.Reset(ctx); err != nil {
			return fmt.Errorf("resetting event log: %w", err)
		}
	}

	appendEvent := collector.PublisherFunc(func(ctx context.Context, ev domain.Event) error {
		rec, err := eventlog.FromEvent(ev)
		if err != nil {
			return err
		}
		return store.Append(ctx, rec)
	})

	n, err := collector.New(nil, appendEvent, a.logger, collector.WithLocation(loc)).Fill(ctx, f)
	if err != nil {
		return fmt.Errorf("importing %s after %d events: %w", path, n, err)
	}
	fmt.Printf("Imported %d events from %s\n", n, path)
	return nil
}

// cmdExport writes the event log to a gzip JSON lines archive
func cmdExport(args []string) error {
	fs, configPath := newFlagSet("export")
	fs.Parse(args)

	if fs.NArg() < 1 {
		return errors.New("usage: fragfeed export <file.jsonl.gz>")
	}
	path := fs.Arg(0)

	a, err := setup(*configPath)
	if err != nil {
		return err
	}
	defer a.logger.Sync()

	ctx := context.Background()
	store, err := a.openEventLog(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	var w io.Writer = os.Stdout
	if path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	n, err := eventlog.Export(ctx, store, w)
	if err != nil {
		return fmt.Errorf("exporting: %w", err)
	}
	if path != "-" {
		fmt.Printf("Exported %d records to %s\n", n, path)
	}
	return nil
}

// cmdRestore appends the records of an export archive to the event log
func cmdRestore(args []string) error {
	fs, configPath := newFlagSet("restore")
	reset := fs.Bool("reset", false, "clear the event log first")
	fs.Parse(args)

	if fs.NArg() < 1 {
		return errors.New("usage: fragfeed restore [--reset] <file.jsonl.gz>")
	}
	path := fs.Arg(0)

	a, err := setup(*configPath)
	if err != nil {
		return err
	}
	defer a.logger.Sync()

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	ctx := context.Background()
	store, err := a.openEventLog(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	if *reset {
		if err := store.Reset(ctx); err != nil {
			return fmt.Errorf("resetting event log: %w", err)
		}
	}

	n, err := eventlog.Import(ctx, store, f)
	if err != nil {
		return fmt.Errorf("restoring %s after %d records: %w", path, n, err)
	}
	fmt.Printf("Restored %d records from %s\n", n, path)
	return nil
}
