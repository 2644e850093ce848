package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/shahar-caura/scout/internal/config"
)

// ErrNotConfigured is returned when no API key is available.
var ErrNotConfigured = errors.New("llm: OPENROUTER_API_KEY not configured")

// Message is one turn of conversation history.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// StreamRequest is an answer request: the query, the search context it is
// grounded on, and optional prior turns that replace the bare query.
type StreamRequest struct {
	Query    string
	Context  string
	Style    Style
	Messages []Message
}

// Client talks to an OpenAI-compatible chat completions gateway.
type Client struct {
	api         *openai.Client
	configured  bool
	pool        *ModelPool
	temperature float32
	maxTokens   int
	logger      *slog.Logger
	next        atomic.Uint64
}

// New returns a Client for cfg. Every request carries the referer and title
// headers the gateway uses for attribution.
func New(cfg config.LLMConfig, logger *slog.Logger) *Client {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	oc.HTTPClient = &http.Client{
		Timeout: cfg.Timeout.Duration,
		Transport: &headerTransport{
			base: http.DefaultTransport,
			headers: map[string]string{
				"HTTP-Referer": cfg.Referer,
				"X-Title":      cfg.Title,
			},
		},
	}

	models := cfg.Models
	if len(models) == 0 {
		models = []string{"openai/gpt-3.5-turbo"}
	}

	return &Client{
		api:         openai.NewClientWithConfig(oc),
		configured:  cfg.APIKey != "",
		pool:        NewModelPool(models),
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		logger:      logger,
	}
}

// Configured reports whether an API key is set.
func (c *Client) Configured() bool { return c.configured }

// Stream generates an answer and passes each content delta to onToken.
// Models that fail before producing any output are skipped in favor of the
// next one in the pool. An error from onToken stops the stream.
func (c *Client) Stream(ctx context.Context, req StreamRequest, onToken func(string) error) error {
	if !c.configured {
		return ErrNotConfigured
	}

	msgs := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: SystemPrompt(req.Style, req.Context)},
	}
	if len(req.Messages) > 0 {
		for _, m := range req.Messages {
			msgs = append(msgs, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
		}
	} else {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.Query})
	}

	c.logger.Debug("streaming request",
		"style", req.Style,
		"context_len", len(req.Context),
		"messages", len(msgs),
		"history", len(req.Messages))

	var errs []error
	for _, model := range c.pool.Order(c.assign()) {
		started, err := c.streamModel(ctx, model, msgs, onToken)
		if err == nil {
			return nil
		}
		if started || ctx.Err() != nil {
			return err
		}
		c.logger.Warn("model failed, falling back", "model", model, "err", err)
		errs = append(errs, err)
	}
	return fmt.Errorf("llm: all models failed: %w", errors.Join(errs...))
}

// streamModel reports whether any content reached onToken before it failed.
func (c *Client) streamModel(ctx context.Context, model string, msgs []openai.ChatCompletionMessage, onToken func(string) error) (bool, error) {
	start := time.Now()
	stream, err := c.api.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    msgs,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return false, fmt.Errorf("llm: opening stream on %s: %w", model, err)
	}
	defer stream.Close()

	started := false
	tokens := 0
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			c.logger.Debug("stream finished", "model", model, "tokens", tokens, "duration", time.Since(start).Round(time.Millisecond))
			return started, nil
		}
		if err != nil {
			return started, fmt.Errorf("llm: reading stream from %s: %w", model, err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		content := resp.Choices[0].Delta.Content
		if content == "" {
			continue
		}
		started = true
		tokens++
		if err := onToken(content); err != nil {
			return started, err
		}
	}
}

// Complete runs a non-streaming completion, with the same fallback as Stream.
func (c *Client) Complete(ctx context.Context, msgs []Message, maxTokens int) (string, error) {
	if !c.configured {
		return "", ErrNotConfigured
	}

	req := openai.ChatCompletionRequest{
		Temperature: c.temperature,
		MaxTokens:   maxTokens,
	}
	for _, m := range msgs {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	var errs []error
	for _, model := range c.pool.Order(c.assign()) {
		req.Model = model
		resp, err := c.api.CreateChatCompletion(ctx, req)
		if err == nil {
			if len(resp.Choices) == 0 {
				return "", fmt.Errorf("llm: %s returned no choices", model)
			}
			return resp.Choices[0].Message.Content, nil
		}
		if ctx.Err() != nil {
			return "", fmt.Errorf("llm: completion on %s: %w", model, err)
		}
		c.logger.Warn("model failed, falling back", "model", model, "err", err)
		errs = append(errs, fmt.Errorf("%s: %w", model, err))
	}
	return "", fmt.Errorf("llm: all models failed: %w", errors.Join(errs...))
}

func (c *Client) assign() int {
	return int(c.next.Add(1) - 1)
}

// headerTransport adds fixed headers to every outgoing request.
type headerTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

func (t *headerTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	for k, v := range t.headers {
		if v != "" {
			r.Header.Set(k, v)
		}
	}
	return t.base.RoundTrip(r)
}
