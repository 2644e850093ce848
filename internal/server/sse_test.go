package server_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shahar-caura/scout/internal/server"
	"github.com/shahar-caura/scout/internal/session"
)

// subscribe connects n SSE clients to h. The returned function cancels them
// and returns what each received.
func subscribe(t *testing.T, h http.Handler, n int) func() []string {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())

	bodies := make([]string, n)
	done := make(chan int, n)
	for i := range n {
		req := httptest.NewRequest("GET", "/api/events", nil).WithContext(ctx)
		rec := &flushRecorder{ResponseRecorder: httptest.NewRecorder()}
		go func() {
			// This blocks until context is cancelled.
			h.ServeHTTP(rec, req)
			bodies[i] = rec.Body.String()
			done <- i
		}()
	}

	return func() []string {
		cancel()
		for range n {
			select {
			case <-done:
			case <-time.After(2 * time.Second):
				t.Fatal("timeout waiting for SSE clients to finish")
			}
		}
		return bodies
	}
}

func TestSSEHub_WatchesFileStore(t *testing.T) {
	dir := t.TempDir()
	st, err := session.NewFileStore(dir)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	hub := server.NewSSEHub(dir, st, logger)
	assert.True(t, hub.Watching())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Start(ctx)

	// Give the watcher time to start.
	time.Sleep(100 * time.Millisecond)

	stop := subscribe(t, hub, 2)
	require.Eventually(t, func() bool { return hub.Clients() == 2 }, time.Second, 10*time.Millisecond)

	// A session written by any process sharing the directory is broadcast.
	s := session.New("watched")
	require.NoError(t, st.Save(context.Background(), s))
	time.Sleep(300 * time.Millisecond)
	require.NoError(t, st.Delete(context.Background(), s.ID))
	time.Sleep(300 * time.Millisecond)

	// Handler-side notifications are ignored while watching.
	hub.Notify(server.Event{Type: server.EventSessionUpdated, ID: "handler-event"})
	time.Sleep(50 * time.Millisecond)

	for i, body := range stop() {
		assert.Contains(t, body, `"type":"session.updated","id":"`+s.ID+`"`, "client %d", i)
		assert.Contains(t, body, `"title":"watched"`, "client %d", i)
		assert.Contains(t, body, `"type":"session.deleted","id":"`+s.ID+`"`, "client %d", i)
		assert.NotContains(t, body, "handler-event")
	}
}

func TestSSE_HandlersPublishWithoutWatcher(t *testing.T) {
	env := newTestEnv(t)
	hub := env.server.Hub()
	assert.False(t, hub.Watching())

	stop := subscribe(t, env.handler, 1)
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 10*time.Millisecond)

	s := createSession(t, env, "published")
	rec := env.do(t, http.MethodDelete, "/api/sessions/"+s.ID, "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	// Wait for events to propagate.
	time.Sleep(100 * time.Millisecond)

	body := stop()[0]
	assert.Equal(t, 2, strings.Count(body, "data: "), body)
	assert.Contains(t, body, `"type":"session.updated","id":"`+s.ID+`"`)
	assert.Contains(t, body, `"type":"session.deleted","id":"`+s.ID+`"`)
}

// flushRecorder wraps httptest.ResponseRecorder to implement http.Flusher.
type flushRecorder struct {
	*httptest.ResponseRecorder
}

func (f *flushRecorder) Flush() {
	// no-op for testing; data is already in the buffer.
}
