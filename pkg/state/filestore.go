package state

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// FileStore persists records as JSON files in a directory, one file per key.
type FileStore struct {
	dir    string
	logger *zap.Logger
}

// NewFileStore creates a file-backed store rooted at dir, creating the
// directory if needed.
func NewFileStore(dir string, logger *zap.Logger) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("state directory is required")
	}
	if logger == nil {
		logger, _ = zap.NewProduction()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}
	return &FileStore{dir: dir, logger: logger}, nil
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, key+"_state.json")
}

// Load reads the record for the key. A missing file or an unparsable record
// falls back to the zero record.
func (s *FileStore) Load(ctx context.Context, key string) (*Record, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Error("Error reading state file, starting fresh",
				zap.String("key", key), zap.Error(err))
		}
		return NewRecord(), nil
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		s.logger.Error("Error parsing state file, starting fresh",
			zap.String("key", key), zap.Error(err))
		return NewRecord(), nil
	}
	if rec.Prompts == nil {
		rec.Prompts = []string{}
	}
	return &rec, nil
}

// Save writes the record atomically: write to a temp file, then rename over
// the old record.
func (s *FileStore) Save(ctx context.Context, key string, rec *Record) error {
	if rec == nil {
		return fmt.Errorf("record is required")
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal state record: %w", err)
	}

	path := s.path(key)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}
