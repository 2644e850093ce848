package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shahar-caura/scout/internal/config"
)

// ErrNotFound is returned when a session or one of its parts does not exist.
var ErrNotFound = errors.New("not found")

// Store persists sessions.
type Store interface {
	Save(ctx context.Context, s *Session) error
	Load(ctx context.Context, id string) (*Session, error)
	// List returns every session, most recently updated first.
	List(ctx context.Context) ([]*Session, error)
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) (int, error)
	// Cleanup deletes sessions not updated within retention.
	Cleanup(ctx context.Context, retention time.Duration) (int, error)
	Close() error
}

// Open returns the store selected by cfg.Driver: "file" (the default),
// "sqlite", or "postgres".
func Open(cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "", "file":
		return NewFileStore(cfg.Dir)
	case "sqlite":
		return NewSQLiteStore(cfg.DSN)
	case "postgres":
		s, err := NewPostgresStore(cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// Page returns the summaries of sessions[offset:offset+limit].
func Page(sessions []*Session, limit, offset int) []Summary {
	out := []Summary{}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(sessions) {
		return out
	}
	end := len(sessions)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	for _, s := range sessions[offset:end] {
		out = append(out, s.Summarize())
	}
	return out
}

// Find resolves id or a unique id prefix against the stored sessions.
func Find(ctx context.Context, st Store, ref string) (*Session, error) {
	if ref == "" {
		return nil, fmt.Errorf("session id: %w", ErrNotFound)
	}
	if s, err := st.Load(ctx, ref); err == nil {
		return s, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	all, err := st.List(ctx)
	if err != nil {
		return nil, err
	}
	var match *Session
	for _, s := range all {
		if strings.HasPrefix(s.ID, ref) {
			if match != nil {
				return nil, fmt.Errorf("session prefix %q is ambiguous", ref)
			}
			match = s
		}
	}
	if match == nil {
		return nil, fmt.Errorf("session %q: %w", ref, ErrNotFound)
	}
	return match, nil
}

func sortByUpdated(sessions []*Session) {
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})
}
