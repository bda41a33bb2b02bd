package history

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ernie/fragfeed/internal/domain"
	"github.com/ernie/fragfeed/internal/eventlog"
)

// batch builds persisted records from a compact script
type batch struct {
	t    *testing.T
	recs []eventlog.Record
}

func (b *batch) add(ev domain.Event) *batch {
	b.t.Helper()
	rec, err := eventlog.FromEvent(ev)
	require.NoError(b.t, err)
	b.recs = append(b.recs, rec)
	return b
}

func (b *batch) init(ts, mapName string, fragLimit int) *batch {
	return b.add(domain.Event{
		Kind: domain.KindInitGame, Timestamp: ts, Time: domain.ParseTimestamp(ts), ClientID: domain.NoClient,
		Init: &domain.InitGame{MapName: mapName, FragLimit: fragLimit, Settings: map[string]string{}},
	})
}

func (b *batch) kill(attacker, victim, method int, attackerName, victimName string) *batch {
	return b.add(domain.Event{
		Kind: domain.KindKill, Timestamp: "1:00", ClientID: attacker,
		Kill: &domain.Kill{AttackerID: attacker, VictimID: victim, MethodID: method,
			AttackerName: attackerName, VictimName: victimName, Method: domain.MeansOfDeath[method]},
	})
}

func (b *batch) score(id int, name string, score int) *batch {
	return b.add(domain.Event{Kind: domain.KindScore, Timestamp: "5:00", ClientID: id,
		Score: &domain.Score{Score: score, Name: name}})
}

func (b *batch) exit(ts, reason string) *batch {
	return b.add(domain.Event{Kind: domain.KindExit, Timestamp: ts, Time: domain.ParseTimestamp(ts), ClientID: domain.NoClient,
		Exit: &domain.Exit{Reason: reason}})
}

func (b *batch) shutdown() *batch {
	return b.add(domain.Event{Kind: domain.KindShutdownGame, Timestamp: "5:01", ClientID: domain.NoClient})
}

func newBatch(t *testing.T) *batch {
	return &batch{t: t}
}

func replay(recs []eventlog.Record) *State {
	return Replay(recs, zap.NewNop().Sugar())
}

func TestCommittedGame(t *testing.T) {
	b := newBatch(t).init("2024-03-09T20:00:00Z", "q3dm1", 5)
	for range 5 {
		b.kill(1, 2, 7, "A", "B")
	}
	b.exit("2024-03-09T20:07:30Z", "Fraglimit hit.").score(1, "A", 5).score(2, "B", 0).shutdown()

	games := replay(b.recs).Games()
	require.Len(t, games, 1)
	g := games[0]
	require.Equal(t, "q3dm1", g.MapName)
	require.Equal(t, 5, g.FragLimit)
	require.Equal(t, []string{"A"}, g.Winners)
	require.Equal(t, map[string]int{"A": 5, "B": 0}, g.Scores)
	require.Equal(t, "fraglimit hit", g.Reason)
	require.Equal(t, 5, g.Kills["A"]["B"])
	require.Equal(t, 5, g.Weapons["A"]["rocket launcher"])
	require.Equal(t, 7*time.Minute+30*time.Second, g.Duration())
}

func TestSingleScorerDiscarded(t *testing.T) {
	b := newBatch(t).init("0:00", "q3dm1", 20).score(1, "A", 3).shutdown()
	state := replay(b.recs)
	require.Empty(t, state.Games())
	require.Equal(t, "0 games recorded, 0 players\n", state.StatsText(nil))
	require.Empty(t, PlayerWins(state.PlayerMeta(nil)))
}

func TestIncompleteGamesDropped(t *testing.T) {
	b := newBatch(t).
		// superseded by the next InitGame
		init("0:00", "q3dm1", 20).score(1, "A", 3).score(2, "B", 1).
		init("0:00", "q3dm2", 20).score(1, "A", 4).score(2, "B", 2).shutdown().
		// truncated at the end of the log
		init("0:00", "q3dm3", 20).score(1, "A", 9).score(2, "B", 8)

	games := replay(b.recs).Games()
	require.Len(t, games, 1)
	require.Equal(t, "q3dm2", games[0].MapName)
	require.Equal(t, map[string]int{"A": 4, "B": 2}, games[0].Scores)
}

func TestSuicidesAndWorldKills(t *testing.T) {
	b := newBatch(t).init("0:00", "q3dm1", 20).
		kill(1, 1, 7, "A", "A").
		kill(domain.WorldID, 2, 19, "<world>", "B").
		kill(1, 2, 10, "A", "B").
		score(1, "A", 0).score(2, "B", -1).shutdown()

	g := replay(b.recs).Games()[0]
	require.Equal(t, domain.KillMatrix{"A": {"A": 1, "B": 1}, "B": {"B": 1}}, g.Kills)
	require.Equal(t, domain.WeaponMatrix{"A": {"railgun": 1}}, g.Weapons)
}

func TestEventsOutsideGameIgnored(t *testing.T) {
	b := newBatch(t).kill(1, 2, 7, "A", "B").score(1, "A", 3).exit("0:00", "x").shutdown().
		init("0:00", "q3dm1", 20).score(1, "A", 1).score(2, "B", 1).shutdown()
	games := replay(b.recs).Games()
	require.Len(t, games, 1)
	require.Empty(t, games[0].Kills)
	require.Empty(t, games[0].Reason)
}

func TestBadRecordsSkipped(t *testing.T) {
	b := newBatch(t).init("0:00", "q3dm1", 20).score(1, "A", 2)
	b.recs = append(b.recs,
		eventlog.Record{Action: "Score", Content: json.RawMessage(`{"timestamp":"5:00","score":"x","n":"C"}`)},
		eventlog.Record{Action: "Kill", Content: json.RawMessage(`garbage`)},
		eventlog.Record{Action: "info", Content: json.RawMessage(`{"timestamp":"5:00"}`)},
	)
	b.score(2, "B", 1).shutdown()

	games := replay(b.recs).Games()
	require.Len(t, games, 1)
	require.Equal(t, map[string]int{"A": 2, "B": 1}, games[0].Scores)
}

func TestTiesShareTheWin(t *testing.T) {
	b := newBatch(t).
		init("0:00", "q3dm1", 20).score(1, "A", 7).score(2, "B", 7).score(3, "C", 2).shutdown().
		init("0:00", "q3dm2", 20).score(1, "A", 1).score(2, "B", 4).shutdown()

	state := replay(b.recs)
	require.Equal(t, []string{"A", "B"}, state.Games()[0].Winners)

	rows := PlayerWins(state.PlayerMeta(nil))
	require.Equal(t, []PlayerWin{
		{Name: "B", Wins: 2, Games: 2, Fraction: 1, BestMap: "q3dm1"},
		{Name: "A", Wins: 1, Games: 2, Fraction: 0.5, BestMap: "q3dm1"},
		{Name: "C", Wins: 0, Games: 1, Fraction: 0, BestMap: "q3dm1"},
	}, rows)
}

func TestPlayerMetaSince(t *testing.T) {
	b := newBatch(t).
		init("2024-03-01T20:00:00Z", "q3dm1", 20).score(1, "A", 7).score(2, "B", 3).shutdown().
		init("2024-03-09T20:00:00Z", "q3dm7", 20).score(1, "A", 1).score(2, "B", 4).shutdown().
		init("0:00", "q3dm17", 20).score(1, "A", 9).score(2, "B", 4).shutdown()

	state := replay(b.recs)
	require.Equal(t, 3, state.PlayerMeta(nil).Games)

	since := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	meta := state.PlayerMeta(&since)
	require.Equal(t, 1, meta.Games)
	require.Equal(t, "2024-03-09 20:00", meta.First)
	require.Equal(t, map[string]int{"q3dm7": 4}, meta.Players["B"].MapScores)

	// the cutoff is inclusive
	exact := time.Date(2024, 3, 9, 20, 0, 0, 0, time.UTC)
	require.Equal(t, 1, state.PlayerMeta(&exact).Games)
}

func TestStatsText(t *testing.T) {
	b := newBatch(t).init("2024-03-09T20:00:00Z", "q3dm1", 20).
		kill(1, 2, 7, "A", "Sarge").
		kill(1, 3, 10, "A", "C").
		kill(1, 3, 7, "A", "C").
		kill(1, 2, 10, "A", "Sarge").
		kill(2, 1, 2, "Sarge", "A").
		score(1, "A", 4).score(2, "Sarge", 1).score(3, "C", 0).shutdown().
		init("2024-03-10T20:00:00Z", "q3dm7", 20).
		kill(3, 1, 6, "C", "A").
		score(1, "A", 0).score(3, "C", 1).shutdown()

	oslo, err := time.LoadLocation("Europe/Oslo")
	require.NoError(t, err)
	state := Replay(b.recs, zap.NewNop().Sugar(), WithLocation(oslo))

	want := strings.Join([]string{
		"2 games recorded since 2024-03-09 21:00, 3 players",
		">> A: 1/2 wins (50%), best map q3dm1, favorite weapon rocket launcher",
		"   kills: Sarge [bot] (2), C (2)",
		">> C: 1/2 wins (50%), best map q3dm7, favorite weapon rocket launcher",
		"   kills: A (1)",
		">> Sarge [bot]: 0/1 wins (0%), best map q3dm1, favorite weapon gauntlet",
		"   kills: A (1)",
		"",
	}, "\n")
	require.Equal(t, want, state.StatsText(nil))
}

func TestReplayIsIdempotent(t *testing.T) {
	b := newBatch(t)
	names := []string{"Anarki", "Bones", "Crash", "Doom", "Hunter"}
	for game := range 6 {
		b.init("0:00", []string{"q3dm1", "q3dm6", "q3dm17"}[game%3], 20)
		for i := range 40 {
			a, v := (i+game)%5, (i*3+game)%5
			b.kill(a, v, (i%23)+1, names[a], names[v])
		}
		for id, name := range names[:2+game%4] {
			b.score(id, name, (id*7+game)%11)
		}
		b.shutdown()
	}

	first := replay(b.recs).StatsText(nil)
	second := replay(b.recs).StatsText(nil)
	require.Equal(t, first, second)
	require.NotEqual(t, "0 games recorded, 0 players\n", first)
}

func TestParseSince(t *testing.T) {
	oslo, err := time.LoadLocation("Europe/Oslo")
	require.NoError(t, err)
	// Thursday evening in Oslo
	now := time.Date(2024, 3, 14, 22, 30, 0, 0, oslo)

	day := func(y int, m time.Month, d int) *time.Time {
		t := time.Date(y, m, d, 0, 0, 0, 0, oslo)
		return &t
	}

	tests := []struct {
		in   string
		want *time.Time
	}{
		{"all", nil},
		{"", nil},
		{"yesterday-ish", nil},
		{"today", day(2024, 3, 14)},
		{"TODAY", day(2024, 3, 14)},
		{"week", day(2024, 3, 11)},
		{"2024-02-29", day(2024, 2, 29)},
		{"01.03.2024", day(2024, 3, 1)},
		{"2024-03-02T15:04:05+01:00", day(2024, 3, 2)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := ParseSince(tt.in, now, oslo)
			if tt.want == nil {
				require.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			require.True(t, tt.want.Equal(*got), "got %v want %v", got, tt.want)
		})
	}

	// Monday is its own week start
	monday := time.Date(2024, 3, 11, 8, 0, 0, 0, oslo)
	require.True(t, day(2024, 3, 11).Equal(*ParseSince("week", monday, oslo)))
	sunday := time.Date(2024, 3, 17, 8, 0, 0, 0, oslo)
	require.True(t, day(2024, 3, 11).Equal(*ParseSince("week", sunday, oslo)))
}

func TestStatsHeaderCountsRankedPlayersOnly(t *testing.T) {
	b := newBatch(t).init("0:00", "q3dm1", 20).
		kill(1, 2, 7, "A", "B").
		kill(3, 1, 7, "C", "A").
		score(1, "A", 1).score(2, "B", 0).shutdown()

	text := replay(b.recs).StatsText(nil)
	require.True(t, strings.HasPrefix(text, "1 games recorded since 0:00, 2 players\n"), text)
	require.NotContains(t, text, ">> C")
	require.Len(t, PlayerWins(replay(b.recs).PlayerMeta(nil)), 2)
}
