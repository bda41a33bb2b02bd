package collector

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ernie/fragfeed/internal/domain"
	"github.com/ernie/fragfeed/internal/eventlog"
	"github.com/ernie/fragfeed/internal/history"
)

const sampleLog = `  0:00 ------------------------------------------------------------
  0:00 InitGame: \mapname\q3dm1\fraglimit\5
  0:01 ClientConnect: 1
  0:01 ClientUserinfoChanged: 1 n\A\t\0
  0:01 Item: 1 weapon_shotgun
  0:02 Kill: 1 2 7: A killed
  0:03 Kill: 1 2 7: A killed B by MOD_ROCKET_SPLASH
  0:04 say: A: gg
  0:05 ShutdownGame:
`

func TestFillPublishesDecodedEvents(t *testing.T) {
	var got []domain.Event
	c := New(nil, PublisherFunc(func(_ context.Context, ev domain.Event) error {
		got = append(got, ev)
		return nil
	}), zap.NewNop().Sugar())

	n, err := c.Fill(context.Background(), strings.NewReader(sampleLog))
	require.NoError(t, err)
	require.Equal(t, 5, n)

	kinds := make([]domain.Kind, len(got))
	for i, ev := range got {
		kinds[i] = ev.Kind
	}
	require.Equal(t, []domain.Kind{
		domain.KindInitGame,
		domain.KindClientConnect,
		domain.KindClientInfoChanged,
		domain.KindKill,
		domain.KindShutdownGame,
	}, kinds)
}

func TestFillStopsOnPublishError(t *testing.T) {
	calls := 0
	c := New(nil, PublisherFunc(func(context.Context, domain.Event) error {
		calls++
		return errors.New("broker down")
	}), zap.NewNop().Sugar())

	n, err := c.Fill(context.Background(), strings.NewReader(sampleLog))
	require.Error(t, err)
	require.Zero(t, n)
	require.Equal(t, 1, calls)
}

func TestHandleLineKeepsGoing(t *testing.T) {
	var got []domain.Event
	c := New(nil, PublisherFunc(func(_ context.Context, ev domain.Event) error {
		got = append(got, ev)
		return errors.New("dropped")
	}), zap.NewNop().Sugar())

	ctx := context.Background()
	c.HandleLine(ctx, "0:02 Kill: 1 2")
	c.HandleLine(ctx, "0:03 ShutdownGame:")
	c.HandleLine(ctx, "0:04 ShutdownGame:")
	require.Len(t, got, 2)
}

func TestFollowedGameClockLinesGetArrivalTime(t *testing.T) {
	oslo, err := time.LoadLocation("Europe/Oslo")
	require.NoError(t, err)
	now := time.Date(2026, 10, 17, 20, 5, 0, 0, oslo)

	var recs []eventlog.Record
	var events []domain.Event
	c := New(nil, PublisherFunc(func(_ context.Context, ev domain.Event) error {
		rec, err := eventlog.FromEvent(ev)
		if err != nil {
			return err
		}
		events = append(events, ev)
		recs = append(recs, rec)
		return nil
	}), zap.NewNop().Sugar(), WithLocation(oslo), WithClock(func() time.Time { return now }))

	ctx := context.Background()
	for _, line := range []string{
		`  0:00 InitGame: \mapname\q3dm1\fraglimit\5`,
		`  0:03 Kill: 1 2 7: A killed B by MOD_ROCKET_SPLASH`,
		`  2:00 Exit: Fraglimit hit.`,
		`  2:00 score: 1  ping: 0  client: 1 A`,
		`  2:00 score: 0  ping: 0  client: 2 B`,
		`  2:05 ShutdownGame:`,
	} {
		c.HandleLine(ctx, line)
	}
	require.Len(t, events, 6)

	first := events[0]
	require.Equal(t, "0:00", first.Clock)
	require.Equal(t, "2026-10-17T20:05:00+02:00", first.Timestamp)
	require.True(t, first.Time.Equal(now))
	require.Equal(t, "2:05", events[5].Clock)

	state := history.Replay(recs, zap.NewNop().Sugar(), history.WithLocation(oslo))
	text := state.StatsText(history.ParseSince("today", now, oslo))
	require.True(t, strings.HasPrefix(text, "1 games recorded since 2026-10-17 20:05, 2 players\n"), text)
}

func TestDatedLinesReadInLocation(t *testing.T) {
	oslo, err := time.LoadLocation("Europe/Oslo")
	require.NoError(t, err)

	var got []domain.Event
	c := New(nil, PublisherFunc(func(_ context.Context, ev domain.Event) error {
		got = append(got, ev)
		return nil
	}), zap.NewNop().Sugar(), WithLocation(oslo))

	c.HandleLine(context.Background(), "2024-03-09T21:14:05 ShutdownGame:")
	require.Len(t, got, 1)
	require.Empty(t, got[0].Clock)
	require.Equal(t, "2024-03-09T21:14:05+01:00", got[0].Timestamp)
	require.True(t, got[0].Time.Equal(time.Date(2024, 3, 9, 20, 14, 5, 0, time.UTC)))

	n, err := c.Fill(context.Background(), strings.NewReader("  1:00 ShutdownGame:\n"))
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, "1:00", got[1].Timestamp)
	require.Empty(t, got[1].Clock)
	require.True(t, got[1].Time.IsZero())
}
