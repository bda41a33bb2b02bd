package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ernie/fragfeed/internal/api"
	"github.com/ernie/fragfeed/internal/auth"
	"github.com/ernie/fragfeed/internal/collector"
	"github.com/ernie/fragfeed/internal/domain"
	"github.com/ernie/fragfeed/internal/eventlog"
	"github.com/ernie/fragfeed/internal/tracker"
	"github.com/ernie/fragfeed/internal/transport"
)

// cmdServe consumes the event stream: it tracks the live match, persists
// every event and serves the HTTP API until interrupted
func cmdServe(args []string) error {
	fs, configPath := newFlagSet("serve")
	fs.Parse(args)

	a, err := setup(*configPath)
	if err != nil {
		return err
	}
	defer a.logger.Sync()
	cfg := a.cfg

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.logger.Infow("Fragfeed starting", "version", version, "namespace", cfg.Namespace)

	natsURL := cfg.NATS.URL
	if cfg.NATS.Embedded {
		ns, err := transport.StartEmbedded(cfg.NATS.Port)
		if err != nil {
			return err
		}
		defer ns.Shutdown()
		natsURL = ns.ClientURL()
		a.logger.Infow("Embedded NATS server started", "url", natsURL)
	}

	conn, err := transport.Connect(natsURL, "fragfeed-serve", a.logger)
	if err != nil {
		return err
	}
	defer conn.Close()

	store, err := a.openEventLog(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	var (
		users       api.UserStore
		authService *auth.Service
	)
	if cfg.Auth.JWTSecret != "" {
		userStore, closeUsers, err := a.openUsers(store)
		if err != nil {
			return err
		}
		defer closeUsers()
		users = userStore
		authService = auth.NewService(cfg.Auth.JWTSecret, cfg.Auth.TokenDuration)
	} else {
		a.logger.Warnw("No JWT secret configured, logins are disabled")
	}

	var probe tracker.Prober
	if addr := cfg.GameServer.Address; addr != "" {
		probe = func(ctx context.Context) (*domain.ServerStatus, error) {
			return collector.QueryStatus(ctx, addr)
		}
	}

	queue := tracker.NewQueue()
	svc := tracker.NewService(tracker.New(a.logger, tracker.WithLocation(loc)), queue, probe, a.logger)
	hub := api.NewHub(a.logger)
	drainer := tracker.NewDrainer(queue, hub, cfg.Notify.Interval, svc.Refresh, cfg.Notify.IdleInterval, a.logger)
	writer := eventlog.NewWriter(store, a.logger)

	router := api.NewRouter(api.Deps{
		Events:       store,
		Users:        users,
		Live:         svc,
		Hub:          hub,
		Auth:         authService,
		Location:     loc,
		AuthRequired: cfg.Auth.Required,
		Logger:       a.logger,
	})
	server := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	sub := transport.NewSubscriber(conn, cfg.Namespace, a.logger)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return hub.Run(ctx) })
	g.Go(func() error { return drainer.Run(ctx) })
	g.Go(func() error {
		return sub.Subscribe(ctx, func(ctx context.Context, rec eventlog.Record) {
			writer.Handle(ctx, rec)
			svc.Handle(ctx, rec)
		}, nil)
	})
	g.Go(func() error {
		a.logger.Infow("HTTP server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		a.logger.Infow("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	a.logger.Infow("Shutdown complete")
	return nil
}
