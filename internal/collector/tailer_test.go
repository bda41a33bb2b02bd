package collector

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func nextLine(t *testing.T, tailer *Tailer) string {
	t.Helper()
	select {
	case line := <-tailer.Lines:
		return line
	case <-time.After(5 * time.Second):
		t.Fatal("no line from tailer")
		return ""
	}
}

func appendTo(t *testing.T, path, text string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(text)
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func TestTailerFollowsAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "games.log")
	require.NoError(t, os.WriteFile(path, []byte("0:00 old line\n"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tailer := NewTailer(path, false)
	done := make(chan error, 1)
	go func() { done <- tailer.Run(ctx) }()

	// Give the tailer time to seek to the end before appending
	time.Sleep(100 * time.Millisecond)
	appendTo(t, path, "0:01 first\r\n0:02 sec")
	require.Equal(t, "0:01 first", nextLine(t, tailer))

	appendTo(t, path, "ond\n")
	require.Equal(t, "0:02 second", nextLine(t, tailer))

	cancel()
	require.NoError(t, <-done)
}

func TestTailerFromStartAndTruncate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "games.log")
	require.NoError(t, os.WriteFile(path, []byte("0:00 one\n0:01 two\n"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tailer := NewTailer(path, true)
	go tailer.Run(ctx)

	require.Equal(t, "0:00 one", nextLine(t, tailer))
	require.Equal(t, "0:01 two", nextLine(t, tailer))

	// copytruncate rotation starts the file over
	require.NoError(t, os.WriteFile(path, []byte("0:00 new\n"), 0o644))
	require.Equal(t, "0:00 new", nextLine(t, tailer))
}

func TestTailerMissingFile(t *testing.T) {
	tailer := NewTailer(filepath.Join(t.TempDir(), "nope.log"), false)
	require.Error(t, tailer.Run(context.Background()))
}

func TestReadLines(t *testing.T) {
	var got []string
	err := ReadLines(strings.NewReader("a\r\n\nb\nc"), func(line string) {
		got = append(got, line)
	})
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c"}, got)
}
