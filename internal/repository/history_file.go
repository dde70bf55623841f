package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"pi-assistant/internal/models"
)

// FileHistoryLog keeps the whole history as one JSON array on disk.
// Every append reads the array, adds a record and rewrites the file, so
// all access goes through mu.
type FileHistoryLog struct {
	mu   sync.Mutex
	path string
}

func NewFileHistoryLog(path string) *FileHistoryLog {
	return &FileHistoryLog{path: path}
}

func (l *FileHistoryLog) Append(ctx context.Context, ex models.Exchange) (models.Exchange, error) {
	if err := ctx.Err(); err != nil {
		return ex, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	records, err := l.read()
	if err != nil {
		return ex, err
	}

	ex.ID = nextID(records)
	records = append(records, ex)

	if err := l.write(records); err != nil {
		return ex, err
	}
	return ex, nil
}

func (l *FileHistoryLog) List(ctx context.Context) ([]models.Exchange, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	return l.read()
}

func (l *FileHistoryLog) Close() error { return nil }

// read treats a missing or empty file as an empty history.
func (l *FileHistoryLog) read() ([]models.Exchange, error) {
	data, err := os.ReadFile(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []models.Exchange{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read history file: %w", err)
	}
	if len(data) == 0 {
		return []models.Exchange{}, nil
	}

	var records []models.Exchange
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse history file: %w", err)
	}
	if records == nil {
		records = []models.Exchange{}
	}
	return records, nil
}

func (l *FileHistoryLog) write(records []models.Exchange) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}

	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".history-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp history file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write history: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to flush history: %w", err)
	}
	if err := os.Rename(tmpName, l.path); err != nil {
		return fmt.Errorf("failed to replace history file: %w", err)
	}
	return nil
}

func nextID(records []models.Exchange) int64 {
	var highest int64
	for _, r := range records {
		if r.ID > highest {
			highest = r.ID
		}
	}
	return highest + 1
}
