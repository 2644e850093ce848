package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shahar-caura/scout/internal/intent"
	"github.com/shahar-caura/scout/internal/llm"
	"github.com/shahar-caura/scout/internal/search"
)

// Advisory messages for queries that are not answered by a local tool.
const (
	MsgMixed    = "This query contains both computational and research elements. Consider using both tool calls and web search."
	MsgResearch = "Query classified as research query, use web search"
)

const (
	msgSearchNotConfigured = "EXA_API_KEY not configured. Please set EXA_API_KEY in your environment or .scout.env file"
	msgLLMNotConfigured    = "OPENROUTER_API_KEY not configured"
)

// HealthResponse is the body of GET /api/health.
type HealthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	UptimeSeconds int    `json:"uptimeSeconds"`
}

// ToolCallResponse is the body of POST /api/tool-call.
type ToolCallResponse struct {
	Classification     intent.Classification  `json:"classification"`
	ToolResult         *intent.ToolCallResult `json:"toolResult,omitempty"`
	ShouldUseTool      bool                   `json:"shouldUseTool"`
	ShouldUseWebSearch bool                   `json:"shouldUseWebSearch,omitempty"`
	Message            string                 `json:"message,omitempty"`
}

// QuestionsResponse is the body of POST /api/generate-questions.
type QuestionsResponse struct {
	Questions []string `json:"questions"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("decoding request body: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	uptime := int(time.Since(s.startTime).Seconds())
	if uptime < 1 {
		uptime = 1
	}
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:        "ok",
		Version:       s.version,
		UptimeSeconds: uptime,
	})
}

func (s *Server) handleToolCall(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Query *string `json:"query"`
	}
	if err := decodeBody(r, &body); err != nil || body.Query == nil || *body.Query == "" {
		writeError(w, http.StatusBadRequest, "Query is required and must be a string")
		return
	}

	resp, err := s.routeQuery(*body.Query)
	if err != nil {
		s.logger.Error("tool call failed", "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to process tool call")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// routeQuery classifies query and runs the suggested tool. Tool failures are
// part of the response, not errors.
func (s *Server) routeQuery(query string) (resp *ToolCallResponse, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("routing query: %v", p)
		}
	}()

	c := s.router.Classify(query)
	switch {
	case c.Type == intent.KindTool && c.SuggestedTool != "":
		tr := intent.Dispatch(query, c.SuggestedTool)
		return &ToolCallResponse{Classification: c, ToolResult: &tr, ShouldUseTool: true}, nil
	case c.Type == intent.KindMixed:
		return &ToolCallResponse{Classification: c, ShouldUseWebSearch: true, Message: MsgMixed}, nil
	default:
		return &ToolCallResponse{Classification: c, ShouldUseWebSearch: true, Message: MsgResearch}, nil
	}
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Query string `json:"query"`
	}
	if err := decodeBody(r, &body); err != nil || body.Query == "" {
		writeError(w, http.StatusBadRequest, "Query cannot be empty")
		return
	}
	if !s.search.Configured() {
		writeError(w, http.StatusInternalServerError, msgSearchNotConfigured)
		return
	}

	resp, err := s.search.Search(r.Context(), body.Query)
	if err != nil {
		s.logger.Error("search failed", "query", body.Query, "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to search")
		return
	}
	s.logger.Debug("search complete", "query", body.Query, "results", len(resp.Results))
	writeJSON(w, http.StatusOK, resp)
}

type streamBody struct {
	Query    string        `json:"query"`
	Context  string        `json:"context"`
	Style    string        `json:"style"`
	Messages []llm.Message `json:"messages,omitempty"`
}

// handleStream relays answer deltas as "data: {json}" frames and ends with
// "data: [DONE]". A failure before the first frame is a JSON 500; after it
// the body is cut short.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	var body streamBody
	if err := decodeBody(r, &body); err != nil || body.Query == "" || !llm.ValidStyle(body.Style) {
		writeError(w, http.StatusBadRequest, "Query, context and a valid style are required")
		return
	}
	if !s.llm.Configured() {
		writeError(w, http.StatusInternalServerError, msgLLMNotConfigured)
		return
	}

	flusher, _ := w.(http.Flusher)
	started := false
	err := s.llm.Stream(r.Context(), llm.StreamRequest{
		Query:    body.Query,
		Context:  body.Context,
		Style:    llm.Style(body.Style),
		Messages: body.Messages,
	}, func(tok string) error {
		if !started {
			started = true
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.Header().Set("Cache-Control", "no-cache")
			w.Header().Set("Connection", "keep-alive")
			w.WriteHeader(http.StatusOK)
		}
		frame, err := json.Marshal(struct {
			Content string `json:"content"`
		}{tok})
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", frame); err != nil {
			return err
		}
		if flusher != nil {
			flusher.Flush()
		}
		return nil
	})
	if err != nil {
		s.logger.Error("stream failed", "started", started, "err", err)
		if !started {
			writeError(w, http.StatusInternalServerError, "Failed to stream response")
		}
		return
	}

	if !started {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
	}
	_, _ = fmt.Fprint(w, "data: [DONE]\n\n")
	if flusher != nil {
		flusher.Flush()
	}
}

func (s *Server) handleGenerateQuestions(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Content       string          `json:"content"`
		SearchResults []search.Result `json:"searchResults"`
		UserQuery     string          `json:"userQuery"`
	}
	if err := decodeBody(r, &body); err != nil || body.Content == "" || body.UserQuery == "" {
		writeError(w, http.StatusBadRequest, "Content and user query are required")
		return
	}

	questions, err := s.llm.GenerateQuestions(r.Context(), body.Content, body.SearchResults, body.UserQuery)
	if err != nil {
		s.logger.Error("generate questions failed", "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to generate questions")
		return
	}
	writeJSON(w, http.StatusOK, QuestionsResponse{Questions: questions})
}
