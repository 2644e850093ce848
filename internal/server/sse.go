package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/shahar-caura/scout/internal/session"
)

// Session event types.
const (
	EventSessionUpdated = "session.updated"
	EventSessionDeleted = "session.deleted"
)

// Event is a session change notification sent to SSE clients.
type Event struct {
	Type    string           `json:"type"`
	ID      string           `json:"id"`
	Session *session.Summary `json:"session,omitempty"`
}

const keepaliveInterval = 20 * time.Second

// SSEHub fans out session change events to connected SSE clients.
//
// With a directory to watch, events come from the filesystem, so changes made
// by other processes sharing the file store show up too. Without one, the
// HTTP handlers publish events through Notify.
type SSEHub struct {
	dir    string
	store  session.Store
	logger *slog.Logger

	mu      sync.Mutex
	clients map[chan []byte]struct{}
}

// NewSSEHub creates an SSEHub. dir may be empty.
func NewSSEHub(dir string, store session.Store, logger *slog.Logger) *SSEHub {
	return &SSEHub{
		dir:     dir,
		store:   store,
		logger:  logger,
		clients: make(map[chan []byte]struct{}),
	}
}

// Watching reports whether events come from a directory watcher.
func (h *SSEHub) Watching() bool { return h.dir != "" }

// Notify broadcasts ev unless a directory watcher is the event source.
func (h *SSEHub) Notify(ev Event) {
	if h.Watching() {
		return
	}
	h.publish(ev)
}

// Start watches the session directory and broadcasts events. Blocks until
// ctx is cancelled. Without a directory it only waits for ctx.
func (h *SSEHub) Start(ctx context.Context) {
	if !h.Watching() {
		<-ctx.Done()
		return
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		h.logger.Error("sse: failed to create watcher", "err", err)
		return
	}
	defer func() { _ = watcher.Close() }()

	if err := os.MkdirAll(h.dir, 0o755); err != nil {
		h.logger.Error("sse: failed to create sessions dir", "err", err)
		return
	}
	if err := watcher.Add(h.dir); err != nil {
		h.logger.Error("sse: failed to watch sessions dir", "err", err)
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			h.handleFileEvent(ctx, event)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			h.logger.Error("sse: watcher error", "err", err)
		}
	}
}

func (h *SSEHub) handleFileEvent(ctx context.Context, event fsnotify.Event) {
	if !strings.HasSuffix(event.Name, ".yaml") {
		return
	}
	id := strings.TrimSuffix(filepath.Base(event.Name), ".yaml")

	switch {
	case event.Op&fsnotify.Remove != 0:
		h.publish(Event{Type: EventSessionDeleted, ID: id})
	case event.Op&(fsnotify.Write|fsnotify.Create) != 0:
		s, err := h.store.Load(ctx, id)
		if err != nil {
			return // transient read during atomic write
		}
		sum := s.Summarize()
		h.publish(Event{Type: EventSessionUpdated, ID: id, Session: &sum})
	}
}

func (h *SSEHub) publish(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("sse: encoding event", "err", err)
		return
	}
	h.broadcast(data)
}

func (h *SSEHub) broadcast(data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		select {
		case ch <- data:
		default:
			// Slow client; drop this event.
		}
	}
}

func (h *SSEHub) addClient(ch chan []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[ch] = struct{}{}
}

func (h *SSEHub) removeClient(ch chan []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, ch)
	close(ch)
}

// Clients returns the number of connected clients.
func (h *SSEHub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeHTTP implements http.Handler for SSE connections.
func (h *SSEHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := make(chan []byte, 32)
	h.addClient(ch)
	defer h.removeClient(ch)

	keepalive := time.NewTicker(keepaliveInterval)
	defer keepalive.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-keepalive.C:
			_, _ = fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		case data := <-ch:
			_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}
