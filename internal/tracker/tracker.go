package tracker

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ernie/fragfeed/internal/domain"
)

// Glyphs decorate the frag limit countdown
var Glyphs = []string{"👻", "💀", "☠️", "😵", "🤯", "🤬", "🤘", "🎯", "💣", "🖕"}

// GlyphChooser picks the decoration for a countdown notification
type GlyphChooser func(glyphs []string) string

// RandomGlyph is the default chooser
func RandomGlyph(glyphs []string) string {
	return glyphs[rand.IntN(len(glyphs))]
}

var countdownText = map[int]string{
	-3: "THREE FRAGS LEFT",
	-2: "TWO FRAGS LEFT",
	-1: "ONE FRAG LEFT",
}

// timeLayout renders event timestamps in notifications
const timeLayout = "2006-01-02 15:04"

// LivePlayer is a connected client within the current match
type LivePlayer struct {
	ClientID int
	Name     string // empty until learned from userinfo or a kill line
	Score    int    // running score, not authoritative
	Userinfo map[string]string
}

// liveMatch exists between InitGame and ShutdownGame
type liveMatch struct {
	mapName   string
	fragLimit int
	startedAt string
	fired     map[int]bool // countdown deltas already announced
}

// Tracker follows the running match from the event stream and produces
// notification lines. It is not safe for concurrent use; events must be
// applied in the order they were decoded.
type Tracker struct {
	loc     *time.Location
	choose  GlyphChooser
	logger  *zap.SugaredLogger
	match   *liveMatch
	players map[int]*LivePlayer
}

// Option configures a Tracker
type Option func(*Tracker)

// WithGlyphChooser replaces the random countdown decoration
func WithGlyphChooser(choose GlyphChooser) Option {
	return func(t *Tracker) { t.choose = choose }
}

// WithLocation sets the time zone timestamps are rendered in
func WithLocation(loc *time.Location) Option {
	return func(t *Tracker) { t.loc = loc }
}

// New creates an idle tracker
func New(logger *zap.SugaredLogger, opts ...Option) *Tracker {
	t := &Tracker{
		loc:     time.UTC,
		choose:  RandomGlyph,
		logger:  logger,
		players: make(map[int]*LivePlayer),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Active reports whether a match is in progress
func (t *Tracker) Active() bool {
	return t.match != nil
}

// Apply advances the tracker by one event and returns the notifications it
// produced, in order.
func (t *Tracker) Apply(ev domain.Event) []string {
	switch ev.Kind {
	case domain.KindShutdownGame:
		return t.shutdown(ev)
	case domain.KindInitGame:
		return t.initGame(ev)
	}

	if t.match == nil {
		t.logger.Debugw("Ignoring event outside a match", "action", ev.Kind.String(), "timestamp", ev.Timestamp)
		return nil
	}

	switch ev.Kind {
	case domain.KindExit:
		return t.exit(ev)
	case domain.KindScore:
		return []string{fmt.Sprintf(" > %s: %d kills", domain.DisplayName(ev.Score.Name), ev.Score.Score)}
	case domain.KindKill:
		return t.kill(ev)
	case domain.KindClientDisconnect:
		return t.disconnect(ev)
	case domain.KindClientInfoChanged:
		return t.infoChanged(ev)
	}
	// ClientConnect, ClientBegin and Server carry nothing the live view uses
	return nil
}

func (t *Tracker) shutdown(ev domain.Event) []string {
	hadPlayers := len(t.players) > 0
	t.match = nil
	t.players = make(map[int]*LivePlayer)
	if !hadPlayers {
		return nil
	}
	return []string{fmt.Sprintf("Server restarting at %s!", t.when(ev))}
}

func (t *Tracker) initGame(ev domain.Event) []string {
	var out []string
	if len(t.players) > 0 {
		out = append(out, fmt.Sprintf("New game starting on %s at %s!", ev.Init.MapName, t.when(ev)))
	}
	t.match = &liveMatch{
		mapName:   ev.Init.MapName,
		fragLimit: ev.Init.FragLimit,
		startedAt: ev.Timestamp,
		fired:     make(map[int]bool),
	}
	t.players = make(map[int]*LivePlayer)
	return out
}

func (t *Tracker) exit(ev domain.Event) []string {
	if len(t.players) == 0 {
		return nil
	}
	return []string{fmt.Sprintf("Game ended due to %s at %s", domain.NormalizeReason(ev.Exit.Reason), t.when(ev))}
}

func (t *Tracker) kill(ev domain.Event) []string {
	k := ev.Kill
	var out []string

	if k.Method == "MOD_LIGHTNING" || (k.Method == "" && k.MethodID == domain.MethodLightning) {
		out = append(out, fmt.Sprintf("%s killed %s with ⚡ SHAFT! ⚡",
			domain.DisplayName(k.AttackerName), domain.DisplayName(k.VictimName)))
	}

	if victim, ok := t.players[k.VictimID]; ok && victim.Name == "" && k.VictimName != "" {
		victim.Name = k.VictimName
	}

	id, _ := k.Subject()
	p := t.player(id)

	if k.IsSelfInflicted() {
		p.Score--
		return out
	}

	p.Score++
	if p.Score > 0 && p.Score%5 == 0 && p.Name != "" {
		out = append(out, fmt.Sprintf("%s has %d kills", domain.DisplayName(p.Name), p.Score))
	}

	delta := p.Score - t.match.fragLimit
	if text, ok := countdownText[delta]; ok && !t.match.fired[delta] {
		t.match.fired[delta] = true
		out = append(out, text+" "+strings.Repeat(t.choose(Glyphs), -delta))
	}
	return out
}

func (t *Tracker) disconnect(ev domain.Event) []string {
	name := domain.UnknownName
	if p, ok := t.players[ev.ClientID]; ok {
		name = domain.DisplayName(p.Name)
		delete(t.players, ev.ClientID)
	}
	return []string{fmt.Sprintf("%s disconnected, %s", name, t.online())}
}

func (t *Tracker) infoChanged(ev domain.Event) []string {
	p := t.player(ev.ClientID)
	prev := p.Name

	for k, v := range ev.Info.Userinfo {
		p.Userinfo[k] = v
	}
	if ev.Info.Name != "" {
		p.Name = ev.Info.Name
	}

	switch {
	case prev == "" && p.Name != "":
		return []string{fmt.Sprintf("%s joined the game, %s", domain.DisplayName(p.Name), t.online())}
	case prev != "" && p.Name != prev:
		return []string{fmt.Sprintf("%s changed name to %s", domain.DisplayName(prev), domain.DisplayName(p.Name))}
	}
	return nil
}

// player returns the LivePlayer for id, creating it on first sight
func (t *Tracker) player(id int) *LivePlayer {
	p, ok := t.players[id]
	if !ok {
		p = &LivePlayer{ClientID: id, Userinfo: make(map[string]string)}
		t.players[id] = p
	}
	return p
}

func (t *Tracker) online() string {
	if len(t.players) == 0 {
		return "server empty"
	}
	return fmt.Sprintf("%d players online", len(t.players))
}

// when renders the event time in the tracker's zone, or the raw token when
// the log only carries a game clock
func (t *Tracker) when(ev domain.Event) string {
	if ev.Time.IsZero() {
		return ev.Timestamp
	}
	return ev.Time.In(t.loc).Format(timeLayout)
}

// Status returns a snapshot of the current match
func (t *Tracker) Status() domain.LiveStatus {
	status := domain.LiveStatus{
		Active:        t.match != nil,
		PlayersOnline: len(t.players),
	}
	if t.match != nil {
		status.MapName = t.match.mapName
		status.FragLimit = t.match.fragLimit
		status.StartedAt = t.match.startedAt
	}
	for _, p := range t.players {
		status.Players = append(status.Players, domain.DisplayName(p.Name))
	}
	sort.Strings(status.Players)
	return status
}
