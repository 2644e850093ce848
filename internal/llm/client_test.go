package llm

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shahar-caura/scout/internal/llm/llmtest"
	"github.com/shahar-caura/scout/internal/search"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func collect(t *testing.T, c *Client, req StreamRequest) (string, error) {
	t.Helper()
	var sb strings.Builder
	err := c.Stream(context.Background(), req, func(tok string) error {
		sb.WriteString(tok)
		return nil
	})
	return sb.String(), err
}

func TestStream_HappyPath(t *testing.T) {
	gw := llmtest.New(t)
	c := New(gw.Config(), testLogger())

	out, err := collect(t, c, StreamRequest{Query: "what is go", Context: "1. Go", Style: StyleBullets})
	require.NoError(t, err)
	assert.Equal(t, "Hello, world", out)

	reqs := gw.Requests()
	require.Len(t, reqs, 1)
	req := reqs[0]
	assert.True(t, req.Stream)
	assert.Equal(t, "test/model", req.Model)
	assert.InDelta(t, 0.7, req.Temperature, 1e-6)
	assert.Equal(t, 2000, req.MaxTokens)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, "system", req.Messages[0].Role)
	assert.Contains(t, req.Messages[0].Content, StylePrompt(StyleBullets))
	assert.True(t, strings.HasSuffix(req.Messages[0].Content, "Web Search Context:\n1. Go"))
	assert.Equal(t, llmtest.Message{Role: "user", Content: "what is go"}, req.Messages[1])

	assert.Equal(t, "Bearer test-key", req.Header.Get("Authorization"))
	assert.Equal(t, "http://localhost:3000", req.Header.Get("HTTP-Referer"))
	assert.Equal(t, "Scout Test", req.Header.Get("X-Title"))
}

func TestStream_HistoryReplacesQuery(t *testing.T) {
	gw := llmtest.New(t)
	c := New(gw.Config(), testLogger())

	_, err := collect(t, c, StreamRequest{
		Query: "ignored",
		Style: StyleDefault,
		Messages: []Message{
			{Role: "user", Content: "first"},
			{Role: "assistant", Content: "answer"},
			{Role: "user", Content: "second"},
		},
	})
	require.NoError(t, err)

	msgs := gw.Requests()[0].Messages
	require.Len(t, msgs, 4)
	assert.Equal(t, "first", msgs[1].Content)
	assert.Equal(t, "second", msgs[3].Content)
}

func TestStream_NotConfigured(t *testing.T) {
	gw := llmtest.New(t)
	cfg := gw.Config()
	cfg.APIKey = ""
	c := New(cfg, testLogger())

	assert.False(t, c.Configured())
	_, err := collect(t, c, StreamRequest{Query: "q"})
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.Empty(t, gw.Requests())
}

func TestStream_FallsBackToNextModel(t *testing.T) {
	gw := llmtest.New(t)
	gw.Fail["bad/model"] = http.StatusServiceUnavailable
	c := New(gw.Config("bad/model", "good/model"), testLogger())

	out, err := collect(t, c, StreamRequest{Query: "q"})
	require.NoError(t, err)
	assert.Equal(t, "Hello, world", out)

	reqs := gw.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "bad/model", reqs[0].Model)
	assert.Equal(t, "good/model", reqs[1].Model)
}

func TestStream_RoundRobin(t *testing.T) {
	gw := llmtest.New(t)
	c := New(gw.Config("a", "b"), testLogger())

	for range 3 {
		_, err := collect(t, c, StreamRequest{Query: "q"})
		require.NoError(t, err)
	}

	var models []string
	for _, r := range gw.Requests() {
		models = append(models, r.Model)
	}
	assert.Equal(t, []string{"a", "b", "a"}, models)
}

func TestStream_AllModelsFail(t *testing.T) {
	gw := llmtest.New(t)
	gw.Fail["a"] = http.StatusInternalServerError
	gw.Fail["b"] = http.StatusTooManyRequests
	c := New(gw.Config("a", "b"), testLogger())

	_, err := collect(t, c, StreamRequest{Query: "q"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all models failed")
}

func TestStream_CallbackErrorStops(t *testing.T) {
	gw := llmtest.New(t)
	c := New(gw.Config("a", "b"), testLogger())
	stop := errors.New("client went away")

	calls := 0
	err := c.Stream(context.Background(), StreamRequest{Query: "q"}, func(string) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
	assert.Len(t, gw.Requests(), 1, "no fallback once output started")
}

func TestGenerateQuestions(t *testing.T) {
	gw := llmtest.New(t)
	gw.Reply = "1. How do goroutines work?\n\n- What is a channel?\n  Why use select?  \nQ4\nQ5\nQ6"
	c := New(gw.Config(), testLogger())

	results := []search.Result{
		{Title: "A", URL: "https://a"}, {Title: "B", URL: "https://b"},
		{Title: "C", URL: "https://c"}, {Title: "D", URL: "https://d"},
	}
	qs, err := c.GenerateQuestions(context.Background(), "Go has goroutines.", results, "go concurrency")
	require.NoError(t, err)
	assert.Equal(t, []string{"How do goroutines work?", "What is a channel?", "Why use select?", "Q4", "Q5"}, qs)

	req := gw.Requests()[0]
	assert.False(t, req.Stream)
	assert.Equal(t, 300, req.MaxTokens)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, questionSystemPrompt, req.Messages[0].Content)
	assert.Contains(t, req.Messages[1].Content, `User Query: "go concurrency"`)
	assert.Contains(t, req.Messages[1].Content, "3. C - https://c")
	assert.NotContains(t, req.Messages[1].Content, "https://d")
}

func TestGenerateQuestions_EmptyReply(t *testing.T) {
	gw := llmtest.New(t)
	gw.Reply = "\n  \n"
	c := New(gw.Config(), testLogger())

	_, err := c.GenerateQuestions(context.Background(), "content", nil, "query")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no questions generated")
}

func TestGenerateQuestions_UpstreamFailure(t *testing.T) {
	gw := llmtest.New(t)
	gw.Fail["test/model"] = http.StatusBadGateway
	c := New(gw.Config(), testLogger())

	_, err := c.GenerateQuestions(context.Background(), "content", nil, "query")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "generating questions")
}

func TestFallback_ReturnsCopy(t *testing.T) {
	qs := Fallback()
	require.Len(t, qs, MaxQuestions)
	qs[0] = "changed"
	assert.Equal(t, "Can you provide more details about this topic?", FallbackQuestions[0])
}
