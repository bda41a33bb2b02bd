package eventlog

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
)

// Export writes every record of the store to w as gzip-compressed JSON
// lines, one record per line, in append order. It returns the number of
// records written.
func Export(ctx context.Context, store Store, w io.Writer) (int, error) {
	recs, err := store.Records(ctx)
	if err != nil {
		return 0, err
	}

	zw := gzip.NewWriter(w)
	enc := json.NewEncoder(zw)
	for i, rec := range recs {
		if err := enc.Encode(rec); err != nil {
			zw.Close()
			return i, fmt.Errorf("encoding record %d: %w", i, err)
		}
	}
	if err := zw.Close(); err != nil {
		return len(recs), fmt.Errorf("closing archive: %w", err)
	}
	return len(recs), nil
}

// Import appends the records of a gzip JSON-lines archive to the store, in
// file order. Lines that are not records abort the import since an archive
// is expected to be produced by Export.
func Import(ctx context.Context, store Store, r io.Reader) (int, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return 0, fmt.Errorf("opening archive: %w", err)
	}
	defer zr.Close()

	scanner := bufio.NewScanner(zr)
	scanner.Buffer(make([]byte, 64*1024), 10*1024*1024)

	n := 0
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			return n, fmt.Errorf("line %d: %w", n+1, err)
		}
		if err := store.Append(ctx, rec); err != nil {
			return n, err
		}
		n++
	}
	if err := scanner.Err(); err != nil {
		return n, fmt.Errorf("reading archive: %w", err)
	}
	return n, nil
}
