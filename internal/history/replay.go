package history

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/ernie/fragfeed/internal/domain"
	"github.com/ernie/fragfeed/internal/eventlog"
)

var gamesReplayed = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "fragfeed",
	Name:      "history_games_total",
	Help:      "Games seen during replay, by outcome.",
}, []string{"outcome"})

// record is a committed game plus the order in which each player's weapons
// and victims first appeared, used to break ties
type record struct {
	game        *domain.Game
	weaponOrder map[string][]string
	targetOrder map[string][]string
}

// State holds the games reconstructed by one replay pass
type State struct {
	loc     *time.Location
	records []*record
}

// Option configures a replay
type Option func(*State)

// WithLocation sets the time zone used to render timestamps
func WithLocation(loc *time.Location) Option {
	return func(s *State) { s.loc = loc }
}

// Replay rebuilds the committed games from an ordered batch of records.
// Records that do not decode are logged and skipped. The result depends
// only on recs, so replaying the same batch gives the same state.
func Replay(recs []eventlog.Record, logger *zap.SugaredLogger, opts ...Option) *State {
	s := &State{loc: time.UTC}
	for _, opt := range opts {
		opt(s)
	}

	var open *record
	discard := func(why string) {
		if open == nil {
			return
		}
		gamesReplayed.WithLabelValues("discarded").Inc()
		logger.Debugw("Discarded game", "start", open.game.Start, "map", open.game.MapName, "reason", why)
		open = nil
	}

	for _, rec := range recs {
		ev, err := rec.Event()
		if err != nil {
			eventlog.PayloadsRejected.WithLabelValues("history").Inc()
			logger.Errorw("Skipping unparseable record", "action", rec.Action, "id", rec.ID, "error", err)
			continue
		}

		switch ev.Kind {
		case domain.KindInitGame:
			discard("superseded by a new InitGame")
			open = &record{
				game: &domain.Game{
					Start:     ev.Timestamp,
					StartedAt: ev.Time,
					MapName:   ev.Init.MapName,
					FragLimit: ev.Init.FragLimit,
					Scores:    make(map[string]int),
					Kills:     make(domain.KillMatrix),
					Weapons:   make(domain.WeaponMatrix),
				},
				weaponOrder: make(map[string][]string),
				targetOrder: make(map[string][]string),
			}

		case domain.KindScore:
			if open != nil {
				open.game.Scores[ev.Score.Name] = ev.Score.Score
			}

		case domain.KindKill:
			if open != nil {
				open.addKill(ev.Kill)
			}

		case domain.KindExit:
			if open != nil {
				open.game.Reason = domain.NormalizeReason(ev.Exit.Reason)
				open.game.End = ev.Timestamp
				if !ev.Time.IsZero() {
					ended := ev.Time
					open.game.EndedAt = &ended
				}
			}

		case domain.KindShutdownGame:
			if open == nil {
				continue
			}
			if len(open.game.Scores) < 2 {
				discard("fewer than two scorers")
				continue
			}
			open.game.Winners = domain.Winners(open.game.Scores)
			s.records = append(s.records, open)
			gamesReplayed.WithLabelValues("committed").Inc()
			logger.Infow("Game committed",
				"map", open.game.MapName,
				"start", s.render(open.game),
				"players", len(open.game.Scores),
				"won", renderWinners(open.game.Winners))
			open = nil
		}
	}
	discard("log ended before ShutdownGame")
	return s
}

func (r *record) addKill(k *domain.Kill) {
	_, subject := k.Subject()
	g := r.game

	if _, ok := g.Kills[subject][k.VictimName]; !ok {
		r.targetOrder[subject] = append(r.targetOrder[subject], k.VictimName)
	}
	g.Kills.Add(subject, k.VictimName)

	if k.IsSelfInflicted() {
		return
	}
	label := domain.WeaponLabel(k.MethodID)
	if _, ok := g.Weapons[subject][label]; !ok {
		r.weaponOrder[subject] = append(r.weaponOrder[subject], label)
	}
	g.Weapons.Add(subject, label)
}

// Games returns the committed games in log order
func (s *State) Games() []domain.Game {
	games := make([]domain.Game, len(s.records))
	for i, r := range s.records {
		games[i] = *r.game
	}
	return games
}

// GamesSince returns the committed games that pass the since filter
func (s *State) GamesSince(since *time.Time) []domain.Game {
	games := make([]domain.Game, 0, len(s.records))
	for _, r := range s.records {
		if included(r.game, since) {
			games = append(games, *r.game)
		}
	}
	return games
}

// render formats a game's start for humans
func (s *State) render(g *domain.Game) string {
	if g.StartedAt.IsZero() {
		return g.Start
	}
	return g.StartedAt.In(s.loc).Format("2006-01-02 15:04")
}

func renderWinners(winners []string) string {
	names := make([]string, len(winners))
	for i, w := range winners {
		names[i] = domain.DisplayName(w)
	}
	if len(names) == 1 {
		return names[0]
	}
	return strings.Join(names, ", ") + " (shared victory)"
}
