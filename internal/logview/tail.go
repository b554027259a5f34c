package logview

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// TailFeed tails an NDJSON file into the container. The browser shim
// appends one JSON object per observed row:
//
//	{"id":"...","signals":{"domain":"ads.example.com","blockedIcon":true}}
//
// The file is the shim's half of the observable container; appended
// lines become appended rows. Truncation restarts from the top.
func TailFeed(ctx context.Context, feed *Feed, path string, logger *slog.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("logview: new watcher: %w", err)
	}
	defer w.Close()

	// Watch the parent directory so the feed file may appear later.
	dir := filepath.Dir(path)
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("logview: watch %s: %w", dir, err)
	}

	logger.Info("tail: started", slog.String("path", path))

	var offset int64
	offset = consumeFrom(feed, path, offset, logger)

	for {
		select {
		case <-ctx.Done():
			logger.Info("tail: stopped")
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != filepath.Clean(path) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				offset = consumeFrom(feed, path, offset, logger)
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("tail: error", slog.String("error", watchErr.Error()))
		}
	}
}

// consumeFrom reads complete NDJSON lines starting at offset and appends
// the decoded rows. It returns the new offset. A malformed line is
// skipped; it must not abort the remaining lines.
func consumeFrom(feed *Feed, path string, offset int64, logger *slog.Logger) int64 {
	f, err := os.Open(path)
	if err != nil {
		return offset
	}
	defer f.Close()

	if info, statErr := f.Stat(); statErr == nil && info.Size() < offset {
		// Truncated; start over.
		offset = 0
	}
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return offset
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return offset
	}
	// Only consume up to the last newline; a partially written final
	// line stays for the next event.
	end := bytes.LastIndexByte(data, '\n')
	if end < 0 {
		return offset
	}
	chunk := data[:end+1]
	offset += int64(len(chunk))

	var batch []Row
	for _, line := range bytes.Split(chunk, []byte{'\n'}) {
		if len(line) == 0 {
			continue
		}
		var row Row
		if err := json.Unmarshal(line, &row); err != nil {
			logger.Warn("tail: bad line skipped", slog.String("error", err.Error()))
			continue
		}
		batch = append(batch, row)
	}
	feed.Append(batch...)
	return offset
}
