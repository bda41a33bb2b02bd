package eventlog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// memStore is an in-memory Store for tests
type memStore struct {
	recs      []Record
	appendErr error
}

func (m *memStore) Append(_ context.Context, rec Record) error {
	if m.appendErr != nil {
		return m.appendErr
	}
	m.recs = append(m.recs, rec)
	return nil
}

func (m *memStore) Records(context.Context) ([]Record, error) {
	return append([]Record(nil), m.recs...), nil
}

func (m *memStore) Reset(context.Context) error {
	m.recs = nil
	return nil
}

func (m *memStore) Close() error { return nil }

func sampleRecords() []Record {
	return []Record{
		{ID: "a", Action: "InitGame", Content: json.RawMessage(`{"timestamp":"0:00","mapname":"q3dm1","fraglimit":"5"}`)},
		{ID: "b", Action: "ClientConnect", ClientID: "1", Content: json.RawMessage(`{"timestamp":"0:01","clientid":"1"}`)},
		{ID: "c", Action: "ShutdownGame", Content: json.RawMessage(`{"timestamp":"3:00"}`)},
	}
}

func TestExportImport(t *testing.T) {
	ctx := context.Background()
	src := &memStore{recs: sampleRecords()}

	var buf bytes.Buffer
	n, err := Export(ctx, src, &buf)
	require.NoError(t, err)
	require.Equal(t, 3, n)

	dst := &memStore{}
	n, err = Import(ctx, dst, bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.Len(t, dst.recs, 3)
	for i, rec := range dst.recs {
		require.Equal(t, src.recs[i].ID, rec.ID)
		require.Equal(t, src.recs[i].Action, rec.Action)
		require.Equal(t, src.recs[i].ClientID, rec.ClientID)
		require.JSONEq(t, string(src.recs[i].Content), string(rec.Content))
	}
}

func TestImportRejectsGarbage(t *testing.T) {
	ctx := context.Background()

	_, err := Import(ctx, &memStore{}, bytes.NewReader([]byte("plain text")))
	require.Error(t, err)

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, _ = zw.Write([]byte("{\"action\":\"Exit\",\"content\":{\"timestamp\":\"1:00\"}}\n\nnot json\n"))
	require.NoError(t, zw.Close())

	dst := &memStore{}
	n, err := Import(ctx, dst, &buf)
	require.Error(t, err)
	require.Equal(t, 1, n)
	require.Len(t, dst.recs, 1)
}

func TestWriterLogsAndContinues(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	w := NewWriter(store, zap.NewNop().Sugar())

	for _, rec := range sampleRecords() {
		w.Handle(ctx, rec)
	}
	require.Len(t, store.recs, 3)

	store.appendErr = errors.New("disk full")
	w.Handle(ctx, sampleRecords()[0])
	require.Len(t, store.recs, 3)
}

func TestRedisStore(t *testing.T) {
	url := os.Getenv("FRAGFEED_TEST_REDIS")
	if url == "" {
		t.Skip("FRAGFEED_TEST_REDIS not set")
	}
	ctx := context.Background()

	store, err := OpenRedis(ctx, url, "fragfeed-test-q3log")
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.Reset(ctx))
	defer store.Reset(ctx)

	for _, rec := range sampleRecords() {
		require.NoError(t, store.Append(ctx, rec))
	}
	recs, err := store.Records(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	require.Equal(t, "InitGame", recs[0].Action)
	require.Equal(t, "1", recs[1].ClientID)
	require.Equal(t, "ShutdownGame", recs[2].Action)
}

func TestRedisStoreUnreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:1", MaxRetries: -1})
	store := NewRedisStore(client, "")
	defer store.Close()
	require.Equal(t, DefaultRedisKey, store.key)
	require.Error(t, store.Append(context.Background(), sampleRecords()[0]))
}
