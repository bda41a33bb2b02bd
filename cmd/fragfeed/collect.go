package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/ernie/fragfeed/internal/collector"
	"github.com/ernie/fragfeed/internal/transport"
)

// cmdCollect tails the server log and publishes every decoded event
func cmdCollect(args []string) error {
	fs, configPath := newFlagSet("collect")
	fromStart := fs.Bool("from-start", false, "publish the existing log content before following")
	fs.Parse(args)

	a, err := setup(*configPath)
	if err != nil {
		return err
	}
	defer a.logger.Sync()
	cfg := a.cfg

	logPath := cfg.Collector.LogPath
	if fs.NArg() > 0 {
		logPath = fs.Arg(0)
	}
	if logPath == "" {
		return errors.New("no log file given: pass one or set collector.log_path")
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := transport.Connect(cfg.NATS.URL, "fragfeed-collect", a.logger)
	if err != nil {
		return err
	}
	defer conn.Close()

	pub := transport.NewPublisher(conn, cfg.Namespace)
	tailer := collector.NewTailer(logPath, cfg.Collector.FromStart || *fromStart)

	a.logger.Infow("Collecting", "path", logPath, "namespace", cfg.Namespace)
	if err := collector.New(tailer, pub, a.logger, collector.WithLocation(loc)).Run(ctx); err != nil {
		return err
	}
	return pub.Flush()
}
