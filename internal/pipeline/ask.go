package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shahar-caura/scout/internal/intent"
	"github.com/shahar-caura/scout/internal/llm"
	"github.com/shahar-caura/scout/internal/search"
	"github.com/shahar-caura/scout/internal/session"
)

// historyTurns is how many prior messages are sent with a question.
const historyTurns = 10

// Searcher finds web results for a query.
type Searcher interface {
	Search(ctx context.Context, query string) (*search.Response, error)
}

// Answerer streams grounded answers and suggests follow-up questions.
type Answerer interface {
	Stream(ctx context.Context, req llm.StreamRequest, onToken func(string) error) error
	GenerateQuestions(ctx context.Context, content string, results []search.Result, userQuery string) ([]string, error)
}

// Providers holds the wired collaborators for an ask run.
type Providers struct {
	Router *intent.Classifier
	Search Searcher
	LLM    Answerer
	Store  session.Store
}

// AskOpts configures one question.
type AskOpts struct {
	Query string
	Style llm.Style
	// OnToken receives answer deltas as they stream. May be nil.
	OnToken func(string) error
	// NoTools sends every query to web search.
	NoTools bool
}

// Result is the outcome of an ask run.
type Result struct {
	Classification intent.Classification
	// ToolResult is set when a local tool was tried.
	ToolResult *intent.ToolCallResult
	Answer     session.Message
	Sources    []search.Citation
	Questions  []string
}

// Ask answers opts.Query inside sess:
//
//	classify → record question → tool (if it succeeds) or search → stream → sources → follow-ups.
//
// The session is saved after every step so a watcher sees progress. A failed
// tool falls back to web search. A failed search or stream leaves an
// "Error: ..." answer in the session and returns the error.
func Ask(ctx context.Context, p Providers, sess *session.Session, opts AskOpts, logger *slog.Logger) (*Result, error) {
	res := &Result{Classification: p.Router.Classify(opts.Query)}
	logger = logger.With("session", sess.ID)
	logger.Info("classified query", "type", res.Classification.Type, "tool", res.Classification.SuggestedTool, "confidence", res.Classification.Confidence)

	history := sess.History(historyTurns - 1)
	sess.AddMessage(session.RoleUser, opts.Query, nil)
	if err := save(ctx, p.Store, sess, "recording question"); err != nil {
		return nil, err
	}

	if !opts.NoTools && res.Classification.Type == intent.KindTool && res.Classification.SuggestedTool != "" {
		tr := intent.Dispatch(opts.Query, res.Classification.SuggestedTool)
		res.ToolResult = &tr
		if tr.Success {
			res.Answer = sess.AddMessage(session.RoleAssistant, ToolAnswer(tr), nil)
			if err := save(ctx, p.Store, sess, "recording tool answer"); err != nil {
				return nil, err
			}
			return res, nil
		}
		logger.Info("tool failed, falling back to web search", "tool", tr.Type, "error", tr.Error)
	}

	asst := sess.AddMessage(session.RoleAssistant, "", nil)
	streaming := true
	if _, err := sess.UpdateMessage(asst.ID, session.MessagePatch{IsStreaming: &streaming}); err != nil {
		return nil, err
	}
	if err := save(ctx, p.Store, sess, "recording answer"); err != nil {
		return nil, err
	}

	resp, err := p.Search.Search(ctx, opts.Query)
	if err != nil {
		return nil, fail(ctx, p.Store, sess, asst.ID, fmt.Errorf("searching: %w", err), logger)
	}
	logger.Info("search complete", "results", len(resp.Results))

	msgs := make([]llm.Message, 0, len(history)+1)
	for _, m := range history {
		msgs = append(msgs, llm.Message{Role: string(m.Role), Content: m.Content})
	}
	msgs = append(msgs, llm.Message{Role: string(session.RoleUser), Content: opts.Query})

	err = p.LLM.Stream(ctx, llm.StreamRequest{
		Query:    opts.Query,
		Context:  search.FormatContext(resp.Results),
		Style:    opts.Style,
		Messages: msgs,
	}, func(tok string) error {
		if err := sess.AppendContent(asst.ID, tok); err != nil {
			return err
		}
		if opts.OnToken != nil {
			return opts.OnToken(tok)
		}
		return nil
	})
	if err != nil {
		return nil, fail(ctx, p.Store, sess, asst.ID, fmt.Errorf("streaming answer: %w", err), logger)
	}

	res.Sources = search.Citations(resp.Results)
	done := false
	answer, err := sess.UpdateMessage(asst.ID, session.MessagePatch{IsStreaming: &done, Sources: res.Sources})
	if err != nil {
		return nil, err
	}
	res.Answer = answer
	if err := save(ctx, p.Store, sess, "recording sources"); err != nil {
		return nil, err
	}

	questions, err := p.LLM.GenerateQuestions(ctx, answer.Content, resp.Results, opts.Query)
	if err != nil {
		logger.Warn("using fallback questions", "error", err)
		questions = llm.Fallback()
	}
	for _, q := range sess.AddRelatedQuestions(asst.ID, questions) {
		res.Questions = append(res.Questions, q.Text)
	}
	if err := save(ctx, p.Store, sess, "recording related questions"); err != nil {
		return nil, err
	}

	return res, nil
}

// ToolAnswer renders a successful tool result as answer text.
func ToolAnswer(tr intent.ToolCallResult) string {
	switch r := tr.Result.(type) {
	case *intent.CalcResult:
		return fmt.Sprintf("%s = %s", r.Expression, r.Formatted)
	case intent.Placeholder:
		return r.Message
	default:
		return fmt.Sprint(r)
	}
}

// fail records cause as the answer text and stops streaming.
func fail(ctx context.Context, st session.Store, sess *session.Session, msgID string, cause error, logger *slog.Logger) error {
	content := "Error: " + cause.Error()
	done := false
	if _, err := sess.UpdateMessage(msgID, session.MessagePatch{Content: &content, IsStreaming: &done}); err != nil {
		return cause
	}
	// Best-effort: the original cause is what the caller needs.
	if err := st.Save(ctx, sess); err != nil {
		logger.Error("saving failed answer", "error", err)
	}
	return cause
}

func save(ctx context.Context, st session.Store, sess *session.Session, step string) error {
	if err := st.Save(ctx, sess); err != nil {
		return fmt.Errorf("%s: %w", step, err)
	}
	return nil
}
