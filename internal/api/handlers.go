package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ernie/fragfeed/internal/domain"
	"github.com/ernie/fragfeed/internal/history"
)

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func handleHealth(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok"))
}

// replay loads the event log and resolves the since query parameter
func (r *Router) replay(w http.ResponseWriter, req *http.Request) (*history.State, *time.Time, bool) {
	state, err := history.Load(req.Context(), r.events, r.loc, r.logger)
	if err != nil {
		r.logger.Errorw("Failed to load event log", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load event log")
		return nil, nil, false
	}
	since := history.ParseSince(req.URL.Query().Get("since"), time.Now(), r.loc)
	return state, since, true
}

// handleStats renders the leaderboard as plain text
func (r *Router) handleStats(w http.ResponseWriter, req *http.Request) {
	state, since, ok := r.replay(w, req)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(state.StatsText(since)))
}

func (r *Router) handlePlayers(w http.ResponseWriter, req *http.Request) {
	state, since, ok := r.replay(w, req)
	if !ok {
		return
	}
	rows := history.PlayerWins(state.PlayerMeta(since))
	if rows == nil {
		rows = []history.PlayerWin{}
	}
	writeJSON(w, http.StatusOK, rows)
}

// GameResponse is a committed game with its duration when both ends are dated
type GameResponse struct {
	domain.Game
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
}

func (r *Router) handleGames(w http.ResponseWriter, req *http.Request) {
	state, since, ok := r.replay(w, req)
	if !ok {
		return
	}
	games := state.GamesSince(since)
	resp := make([]GameResponse, len(games))
	for i, g := range games {
		resp[i] = GameResponse{Game: g, DurationSeconds: g.Duration().Seconds()}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (r *Router) handleLive(w http.ResponseWriter, req *http.Request) {
	if r.live == nil {
		writeJSON(w, http.StatusOK, domain.LiveStatus{})
		return
	}
	writeJSON(w, http.StatusOK, r.live.Status())
}
