package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"lpIncentive/internal/model"
)

// JSONLFile writes one JSON value per line. Close flushes buffered lines.
type JSONLFile struct {
	file   *os.File
	writer *bufio.Writer
}

// OpenJSONL opens path for writing, creating parent directories. appendMode keeps existing lines.
func OpenJSONL(path string, appendMode bool) (*JSONLFile, error) {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create dir: %w", err)
		}
	}

	flags := os.O_CREATE | os.O_WRONLY
	if appendMode {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}

	file, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &JSONLFile{file: file, writer: bufio.NewWriter(file)}, nil
}

func (f *JSONLFile) Write(value interface{}) error {
	line, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if _, err := f.writer.Write(line); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if err := f.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("write newline: %w", err)
	}
	return nil
}

func (f *JSONLFile) Close() error {
	if f == nil {
		return nil
	}
	if err := f.writer.Flush(); err != nil {
		f.file.Close()
		return fmt.Errorf("flush: %w", err)
	}
	return f.file.Close()
}

// JsonlStorage appends hook events to a JSONL file, opening it per batch.
type JsonlStorage struct {
	path string
	mu   sync.Mutex
}

func NewJsonlStorage(path string) *JsonlStorage {
	return &JsonlStorage{path: path}
}

// PutEventBatch appends a batch of events as JSON lines.
func (s *JsonlStorage) PutEventBatch(_ context.Context, events []model.HookEvent) error {
	if len(events) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out, err := OpenJSONL(s.path, true)
	if err != nil {
		return fmt.Errorf("open events: %w", err)
	}
	for _, event := range events {
		if err := out.Write(event); err != nil {
			out.Close()
			return fmt.Errorf("hook event %d/%d: %w", event.Seq, event.LogIndex, err)
		}
	}
	return out.Close()
}
