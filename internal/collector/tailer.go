package collector

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// pollInterval backs up fsnotify on filesystems that drop write events
const pollInterval = time.Second

// Tailer follows a server log file and emits complete lines
type Tailer struct {
	path      string
	fromStart bool
	file      *os.File
	position  int64
	Lines     chan string
	Errors    chan error
}

// NewTailer creates a tailer for path. When fromStart is set the existing
// content is emitted before following, otherwise only new lines are.
func NewTailer(path string, fromStart bool) *Tailer {
	return &Tailer{
		path:      path,
		fromStart: fromStart,
		Lines:     make(chan string, 256),
		Errors:    make(chan error, 10),
	}
}

// Run follows the file until ctx is cancelled. Lines are delivered in file
// order; Lines is closed on return.
func (t *Tailer) Run(ctx context.Context) error {
	defer close(t.Lines)

	if err := t.open(); err != nil {
		return err
	}
	defer func() {
		if t.file != nil {
			t.file.Close()
		}
	}()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory so rotation (remove + create) is seen
	if err := watcher.Add(filepath.Dir(t.path)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(t.path), err)
	}

	if err := t.readNewContent(ctx); err != nil {
		t.reportError(err)
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != filepath.Clean(t.path) {
				continue
			}
			if ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				t.file.Close()
				t.file = nil
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				if t.file == nil {
					if err := t.reopen(); err != nil {
						t.reportError(err)
						continue
					}
				}
				if err := t.readNewContent(ctx); err != nil {
					t.reportError(err)
				}
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			t.reportError(fmt.Errorf("watcher: %w", err))

		case <-ticker.C:
			if t.file == nil {
				if err := t.reopen(); err != nil {
					continue
				}
			}
			if err := t.readNewContent(ctx); err != nil {
				t.reportError(err)
			}
		}
	}
}

func (t *Tailer) open() error {
	file, err := os.Open(t.path)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	t.file = file

	if !t.fromStart {
		pos, err := t.file.Seek(0, io.SeekEnd)
		if err != nil {
			t.file.Close()
			return fmt.Errorf("seeking to end: %w", err)
		}
		t.position = pos
	}
	return nil
}

// reopen picks up a rotated file from its beginning
func (t *Tailer) reopen() error {
	file, err := os.Open(t.path)
	if err != nil {
		return fmt.Errorf("reopening log file: %w", err)
	}
	t.file = file
	t.position = 0
	return nil
}

func (t *Tailer) reportError(err error) {
	select {
	case t.Errors <- err:
	default:
	}
}

// readNewContent reads any complete lines written since the last read
func (t *Tailer) readNewContent(ctx context.Context) error {
	stat, err := t.file.Stat()
	if err != nil {
		return fmt.Errorf("stat file: %w", err)
	}

	// Handle copytruncate: file size smaller than position
	if stat.Size() < t.position {
		t.position = 0
	}
	if stat.Size() == t.position {
		return nil
	}

	if _, err := t.file.Seek(t.position, io.SeekStart); err != nil {
		return fmt.Errorf("seeking to %d: %w", t.position, err)
	}

	reader := bufio.NewReader(t.file)
	for {
		line, err := reader.ReadString('\n')
		if err == io.EOF {
			// Partial line - don't advance position past it
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading line: %w", err)
		}
		t.position += int64(len(line))

		line = trimLineEnd(line)
		if line == "" {
			continue
		}
		select {
		case t.Lines <- line:
		case <-ctx.Done():
			return nil
		}
	}
}

func trimLineEnd(line string) string {
	for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
		line = line[:len(line)-1]
	}
	return line
}

// ReadLines decodes a complete file in one pass, used to backfill the event
// log from an existing server log.
func ReadLines(r io.Reader, fn func(line string)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	for scanner.Scan() {
		if line := trimLineEnd(scanner.Text()); line != "" {
			fn(line)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading lines: %w", err)
	}
	return nil
}
