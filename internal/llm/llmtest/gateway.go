// Package llmtest provides a fake OpenAI-compatible chat completions gateway.
package llmtest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/shahar-caura/scout/internal/config"
)

// Request is a chat completion request as received by the gateway.
type Request struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Stream      bool      `json:"stream"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
	Header      http.Header
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Gateway streams Tokens for streaming requests and answers Reply otherwise.
// Models listed in Fail are answered with that HTTP status.
type Gateway struct {
	*httptest.Server

	mu       sync.Mutex
	Tokens   []string
	Reply    string
	Fail     map[string]int
	requests []Request
}

// New starts a gateway that is closed when the test ends.
func New(t testing.TB) *Gateway {
	t.Helper()
	g := &Gateway{
		Tokens: []string{"Hello", ", ", "world"},
		Reply:  "What is next?",
		Fail:   map[string]int{},
	}
	g.Server = httptest.NewServer(http.HandlerFunc(g.handle))
	t.Cleanup(g.Close)
	return g
}

// Config returns an LLM configuration pointed at the gateway.
func (g *Gateway) Config(models ...string) config.LLMConfig {
	if len(models) == 0 {
		models = []string{"test/model"}
	}
	return config.LLMConfig{
		BaseURL:     g.URL,
		APIKey:      "test-key",
		Models:      models,
		Temperature: 0.7,
		MaxTokens:   2000,
		Referer:     "http://localhost:3000",
		Title:       "Scout Test",
		Timeout:     config.Duration{Duration: 5 * time.Second},
	}
}

// Requests returns a copy of every request received so far.
func (g *Gateway) Requests() []Request {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]Request(nil), g.requests...)
}

func (g *Gateway) handle(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/chat/completions" {
		http.NotFound(w, r)
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	req.Header = r.Header.Clone()

	g.mu.Lock()
	g.requests = append(g.requests, req)
	status := g.Fail[req.Model]
	tokens := append([]string(nil), g.Tokens...)
	reply := g.Reply
	g.mu.Unlock()

	if status != 0 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		fmt.Fprintf(w, `{"error":{"message":"%s unavailable","type":"server_error"}}`, req.Model)
		return
	}

	if !req.Stream {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":     "cmpl-test",
			"object": "chat.completion",
			"model":  req.Model,
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": reply},
				"finish_reason": "stop",
			}},
		})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	flusher, _ := w.(http.Flusher)
	for _, tok := range tokens {
		chunk, _ := json.Marshal(map[string]any{
			"id":     "chunk-test",
			"object": "chat.completion.chunk",
			"model":  req.Model,
			"choices": []map[string]any{{
				"index": 0,
				"delta": map[string]string{"content": tok},
			}},
		})
		fmt.Fprintf(w, "data: %s\n\n", chunk)
		if flusher != nil {
			flusher.Flush()
		}
	}
	fmt.Fprint(w, "data: [DONE]\n\n")
}
