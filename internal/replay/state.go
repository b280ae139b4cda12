package replay

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"lpIncentive/internal/model"
	"lpIncentive/internal/storage/postgres"
)

// StateStore persists replay progress together with the hook and vault state.
type StateStore interface {
	Load(ctx context.Context) (model.ReplayState, bool, error)
	Save(ctx context.Context, state model.ReplayState) error
}

// FileStateStore stores state in a local JSON file.
type FileStateStore struct {
	Path string
}

func (s *FileStateStore) Load(ctx context.Context) (model.ReplayState, bool, error) {
	if s == nil || s.Path == "" {
		return model.ReplayState{}, false, nil
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return model.ReplayState{}, false, nil
		}
		return model.ReplayState{}, false, fmt.Errorf("read state: %w", err)
	}

	var state model.ReplayState
	if err := json.Unmarshal(data, &state); err != nil {
		return model.ReplayState{}, false, fmt.Errorf("parse state: %w", err)
	}
	return state, true, nil
}

func (s *FileStateStore) Save(ctx context.Context, state model.ReplayState) error {
	if s == nil || s.Path == "" {
		return nil
	}
	dir := filepath.Dir(s.Path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create state dir: %w", err)
		}
	}

	state.UpdatedAt = time.Now().UTC().Format(time.RFC3339Nano)
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write state tmp: %w", err)
	}
	if err := os.Rename(tmp, s.Path); err != nil {
		return fmt.Errorf("rename state: %w", err)
	}
	return nil
}

// DBStateStore stores state in Postgres under Name.
type DBStateStore struct {
	Store *postgres.Store
	Name  string
}

func (s *DBStateStore) Load(ctx context.Context) (model.ReplayState, bool, error) {
	if s == nil || s.Store == nil {
		return model.ReplayState{}, false, nil
	}
	return s.Store.LoadReplayState(ctx, s.Name)
}

func (s *DBStateStore) Save(ctx context.Context, state model.ReplayState) error {
	if s == nil || s.Store == nil {
		return nil
	}
	return s.Store.SaveReplayState(ctx, s.Name, state)
}
