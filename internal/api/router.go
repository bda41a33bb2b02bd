package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ernie/fragfeed/internal/auth"
	"github.com/ernie/fragfeed/internal/domain"
	"github.com/ernie/fragfeed/internal/eventlog"
	"github.com/ernie/fragfeed/internal/storage"
)

// UserStore looks up dashboard accounts
type UserStore interface {
	GetUserByUsername(ctx context.Context, username string) (*storage.User, error)
	UpdateUserLastLogin(ctx context.Context, userID int64) error
}

// LiveSource reports the state of the match in progress
type LiveSource interface {
	Status() domain.LiveStatus
}

// Deps holds what the router serves from. Users and Auth may be nil when
// logins are not offered.
type Deps struct {
	Events       eventlog.Store
	Users        UserStore
	Live         LiveSource
	Hub          *Hub
	Auth         *auth.Service
	Location     *time.Location
	AuthRequired bool
	Logger       *zap.SugaredLogger
}

// Router holds the HTTP routes and dependencies
type Router struct {
	mux          chi.Router
	events       eventlog.Store
	users        UserStore
	live         LiveSource
	hub          *Hub
	auth         *auth.Service
	loc          *time.Location
	authRequired bool
	logger       *zap.SugaredLogger
}

// NewRouter creates the HTTP router
func NewRouter(deps Deps) *Router {
	r := &Router{
		mux:          chi.NewRouter(),
		events:       deps.Events,
		users:        deps.Users,
		live:         deps.Live,
		hub:          deps.Hub,
		auth:         deps.Auth,
		loc:          deps.Location,
		authRequired: deps.AuthRequired,
		logger:       deps.Logger,
	}
	if r.loc == nil {
		r.loc = time.UTC
	}
	if r.logger == nil {
		r.logger = zap.NewNop().Sugar()
	}

	r.mux.Use(middleware.RealIP)
	r.mux.Use(cors)
	r.mux.Use(r.logRequests)
	r.mux.Use(middleware.Recoverer)

	r.mux.Get("/healthz", handleHealth)
	r.mux.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.mux.Post("/api/auth/login", r.handleLogin)

	r.mux.Group(func(mux chi.Router) {
		if r.authRequired {
			mux.Use(r.requireAuth)
		}
		mux.Get("/api/stats", r.handleStats)
		mux.Get("/api/players", r.handlePlayers)
		mux.Get("/api/games", r.handleGames)
		mux.Get("/api/live", r.handleLive)
		mux.Get("/ws", r.handleWebSocket)
	})

	return r
}

// ServeHTTP implements http.Handler
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// cors opens the API to browser dashboards served from elsewhere
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if req.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, req)
	})
}

func (r *Router) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, req.ProtoMajor)

		defer func() {
			r.logger.Debugw("HTTP request",
				"method", req.Method,
				"path", req.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"remote", req.RemoteAddr,
			)
		}()

		next.ServeHTTP(ww, req)
	})
}
