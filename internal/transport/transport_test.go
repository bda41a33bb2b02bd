package transport

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ernie/fragfeed/internal/domain"
	"github.com/ernie/fragfeed/internal/eventlog"
)

func TestSubject(t *testing.T) {
	require.Equal(t, "q3server.log.Kill", Subject("q3server", eventlog.Record{Action: "Kill"}))
	require.Equal(t, "q3server.log.ClientBegin.4", Subject("q3server", eventlog.Record{Action: "ClientBegin", ClientID: "4"}))
	require.Equal(t, "q3server.log.>", Wildcard("q3server"))
}

func TestParseSubject(t *testing.T) {
	action, clientID, err := ParseSubject("q3server", "q3server.log.ClientDisconnect.7")
	require.NoError(t, err)
	require.Equal(t, "ClientDisconnect", action)
	require.Equal(t, "7", clientID)

	action, clientID, err = ParseSubject("lan.q3", "lan.q3.log.Exit")
	require.NoError(t, err)
	require.Equal(t, "Exit", action)
	require.Empty(t, clientID)

	_, _, err = ParseSubject("q3server", "other.log.Exit")
	require.Error(t, err)
	_, _, err = ParseSubject("q3server", "q3server.log.a.b.c")
	require.Error(t, err)
}

func TestPublishSubscribe(t *testing.T) {
	ns, err := StartEmbedded(RandomPort)
	require.NoError(t, err)
	defer ns.Shutdown()

	logger := zap.NewNop().Sugar()
	conn, err := Connect(ns.ClientURL(), "fragfeed-test", logger)
	require.NoError(t, err)
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan eventlog.Record, 16)
	ready := make(chan struct{})
	done := make(chan error, 1)
	sub := NewSubscriber(conn, "test", logger)
	go func() {
		done <- sub.Subscribe(ctx, func(_ context.Context, rec eventlog.Record) { got <- rec }, ready)
	}()
	<-ready

	pub := NewPublisher(conn, "test")
	events := []domain.Event{
		{Kind: domain.KindInitGame, Timestamp: "0:00", ClientID: domain.NoClient,
			Init: &domain.InitGame{MapName: "q3dm1", FragLimit: 5, Settings: map[string]string{"mapname": "q3dm1", "fraglimit": "5"}}},
		{Kind: domain.KindClientConnect, Timestamp: "0:01", ClientID: 3},
		{Kind: domain.KindKill, Timestamp: "0:02", ClientID: 3,
			Kill: &domain.Kill{AttackerID: 3, VictimID: 4, MethodID: 7, AttackerName: "A", VictimName: "B", Method: "MOD_ROCKET_SPLASH"}},
	}
	for _, ev := range events {
		require.NoError(t, pub.Publish(ctx, ev))
	}
	require.NoError(t, pub.Flush())

	for i, want := range events {
		select {
		case rec := <-got:
			require.Equal(t, want.Kind.String(), rec.Action, "message %d", i)
			require.NotEmpty(t, rec.ID)
			ev, err := rec.Event()
			require.NoError(t, err)
			require.Equal(t, want, ev)
		case <-time.After(5 * time.Second):
			t.Fatalf("message %d not delivered", i)
		}
	}

	cancel()
	require.NoError(t, <-done)
}

func TestSlowHandlerReceivesBurst(t *testing.T) {
	ns, err := StartEmbedded(RandomPort)
	require.NoError(t, err)
	defer ns.Shutdown()

	logger := zap.NewNop().Sugar()
	conn, err := Connect(ns.ClientURL(), "fragfeed-test", logger)
	require.NoError(t, err)
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	const total = 5000
	var delivered atomic.Int64
	var lastID atomic.Int64
	inOrder := atomic.Bool{}
	inOrder.Store(true)

	ready := make(chan struct{})
	done := make(chan error, 1)
	sub := NewSubscriber(conn, "burst", logger)
	go func() {
		done <- sub.Subscribe(ctx, func(_ context.Context, rec eventlog.Record) {
			time.Sleep(200 * time.Microsecond)
			ev, err := rec.Event()
			if err != nil || int64(ev.ClientID) != lastID.Load() {
				inOrder.Store(false)
			}
			lastID.Add(1)
			delivered.Add(1)
		}, ready)
	}()
	<-ready

	pub := NewPublisher(conn, "burst")
	for i := range total {
		require.NoError(t, pub.Publish(ctx, domain.Event{Kind: domain.KindClientBegin, Timestamp: "0:01", ClientID: i}))
	}
	require.NoError(t, pub.Flush())

	require.Eventually(t, func() bool { return delivered.Load() == total }, 20*time.Second, 10*time.Millisecond)
	require.True(t, inOrder.Load())

	cancel()
	require.NoError(t, <-done)
}
