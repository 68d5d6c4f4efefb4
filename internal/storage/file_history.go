package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileHistory stores the posted history in a single JSON file.
type FileHistory struct {
	filePath  string
	retention time.Duration
	logger    *slog.Logger
	now       func() time.Time

	entries *ledger
	writeMu sync.Mutex
}

// NewFileHistory creates a file history. Call Load before use.
// retention <= 0 keeps every record.
func NewFileHistory(filePath string, retention time.Duration, logger *slog.Logger) *FileHistory {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileHistory{
		filePath:  filePath,
		retention: retention,
		logger:    logger.With("component", "history", "backend", "file"),
		now:       time.Now,
		entries:   newLedger(),
	}
}

// Load reads the history file. A missing, unreadable or unparseable file
// starts an empty history: posting a duplicate beats not posting at all.
func (fh *FileHistory) Load() error {
	data, err := os.ReadFile(fh.filePath)
	if errors.Is(err, fs.ErrNotExist) {
		fh.logger.Warn("history file not found, starting empty", "path", fh.filePath)
		fh.entries.reset(nil)
		return nil
	}
	if err != nil {
		fh.logger.Warn("can't read history file, starting empty", "path", fh.filePath, "error", err)
		fh.entries.reset(nil)
		return nil
	}

	records, err := decodeHistory(data)
	if err != nil {
		fh.logger.Warn("history file is corrupt, starting empty", "path", fh.filePath, "error", err)
		fh.entries.reset(nil)
		return nil
	}

	now := fh.now()
	kept := records[:0]
	for _, r := range records {
		if !expired(r, fh.retention, now) {
			kept = append(kept, r)
		}
	}
	if dropped := len(records) - len(kept); dropped > 0 {
		fh.logger.Info("dropped records outside retention window", "dropped", dropped)
	}

	fh.entries.reset(kept)
	fh.logger.Info("history loaded", "path", fh.filePath, "records", fh.entries.len())
	return nil
}

// decodeHistory accepts a JSON array whose elements are either plain
// strings (legacy format) or Record objects.
func decodeHistory(data []byte) ([]Record, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal history: %w", err)
	}

	records := make([]Record, 0, len(raw))
	for i, elem := range raw {
		var r Record
		switch trimmed := bytes.TrimSpace(elem); {
		case len(trimmed) > 0 && trimmed[0] == '"':
			if err := json.Unmarshal(trimmed, &r.Text); err != nil {
				return nil, fmt.Errorf("entry %d: %w", i, err)
			}
		default:
			if err := json.Unmarshal(trimmed, &r); err != nil {
				return nil, fmt.Errorf("entry %d: %w", i, err)
			}
		}
		if r.Text == "" {
			continue
		}
		records = append(records, r)
	}
	return records, nil
}

// Contains reports whether text was already posted.
func (fh *FileHistory) Contains(text string) bool {
	return fh.entries.contains(text)
}

// Record adds text to the history and rewrites the file. Recording a
// known text is a no-op. The in-memory entry is kept even if the write
// fails so the same text is not posted twice by this process.
func (fh *FileHistory) Record(ctx context.Context, text, post string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !fh.entries.add(Record{Text: text, Post: post, PostedAt: fh.now().UTC()}) {
		return nil
	}
	return fh.Save()
}

// Save writes the whole history atomically: a temp file in the same
// directory is renamed over the target.
func (fh *FileHistory) Save() error {
	fh.writeMu.Lock()
	defer fh.writeMu.Unlock()

	data, err := json.MarshalIndent(fh.entries.snapshot(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}

	dir := filepath.Dir(fh.filePath)
	tmp, err := os.CreateTemp(dir, filepath.Base(fh.filePath)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write history: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync history: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close history: %w", err)
	}
	if err := os.Rename(tmpName, fh.filePath); err != nil {
		return fmt.Errorf("failed to replace history file: %w", err)
	}
	return nil
}

// Records returns the history, newest first.
func (fh *FileHistory) Records() []Record {
	return newestFirst(fh.entries.snapshot())
}

// Len returns the number of records.
func (fh *FileHistory) Len() int {
	return fh.entries.len()
}

func (fh *FileHistory) Close() error { return nil }
