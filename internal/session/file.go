package session

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// FileStore keeps one YAML file per session in a directory.
type FileStore struct {
	dir string
}

// NewFileStore returns a store rooted at dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("file store: directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating sessions dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the directory the store writes to.
func (f *FileStore) Dir() string { return f.dir }

func (f *FileStore) path(id string) (string, error) {
	if _, err := uuid.Parse(id); err != nil {
		return "", fmt.Errorf("session %q: %w", id, ErrNotFound)
	}
	return filepath.Join(f.dir, id+".yaml"), nil
}

// Save writes the session atomically to <dir>/<id>.yaml.
func (f *FileStore) Save(_ context.Context, s *Session) error {
	dest, err := f.path(s.ID)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshaling session: %w", err)
	}

	tmp := dest + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing temp session file: %w", err)
	}

	if err := os.Rename(tmp, dest); err != nil {
		_ = os.Remove(tmp) // best-effort cleanup
		return fmt.Errorf("renaming session file: %w", err)
	}

	return nil
}

// Load reads a session from <dir>/<id>.yaml.
func (f *FileStore) Load(_ context.Context, id string) (*Session, error) {
	path, err := f.path(id)
	if err != nil {
		return nil, err
	}
	return loadFile(path)
}

func loadFile(path string) (*Session, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("session file %q: %w", path, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading session %q: %w", path, err)
	}

	var s Session
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing session %q: %w", path, err)
	}
	s.normalize()
	return &s, nil
}

// List returns all sessions sorted by updated_at descending. Unreadable and
// corrupt files are skipped.
func (f *FileStore) List(_ context.Context) ([]*Session, error) {
	entries, err := filepath.Glob(filepath.Join(f.dir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}

	sessions := []*Session{}
	for _, path := range entries {
		s, err := loadFile(path)
		if err != nil {
			continue
		}
		sessions = append(sessions, s)
	}

	sortByUpdated(sessions)
	return sessions, nil
}

// Delete removes the session file.
func (f *FileStore) Delete(_ context.Context, id string) error {
	path, err := f.path(id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("session %q: %w", id, ErrNotFound)
		}
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// DeleteAll removes every session file and returns how many were removed.
func (f *FileStore) DeleteAll(_ context.Context) (int, error) {
	entries, err := filepath.Glob(filepath.Join(f.dir, "*.yaml"))
	if err != nil {
		return 0, fmt.Errorf("listing sessions: %w", err)
	}
	deleted := 0
	for _, path := range entries {
		if err := os.Remove(path); err == nil {
			deleted++
		}
	}
	return deleted, nil
}

// Cleanup deletes session files not updated within retention.
// Returns the number of files deleted.
func (f *FileStore) Cleanup(_ context.Context, retention time.Duration) (int, error) {
	entries, err := filepath.Glob(filepath.Join(f.dir, "*.yaml"))
	if err != nil {
		return 0, fmt.Errorf("listing sessions for cleanup: %w", err)
	}

	cutoff := time.Now().Add(-retention)
	deleted := 0

	for _, path := range entries {
		s, err := loadFile(path)
		if err != nil {
			continue
		}
		if s.UpdatedAt.After(cutoff) {
			continue // not old enough
		}
		if err := os.Remove(path); err == nil {
			deleted++
		}
	}

	return deleted, nil
}

// Close is a no-op; files are not held open.
func (f *FileStore) Close() error { return nil }
