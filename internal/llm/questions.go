package llm

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/shahar-caura/scout/internal/search"
)

const (
	// MaxQuestions caps the follow-up questions kept from one generation.
	MaxQuestions = 5

	questionMaxTokens = 300
)

// FallbackQuestions are offered when generation fails.
var FallbackQuestions = []string{
	"Can you provide more details about this topic?",
	"What are the key benefits of this approach?",
	"Are there any potential drawbacks or limitations?",
	"How does this compare to alternative methods?",
	"What are the practical applications?",
}

var listMarker = regexp.MustCompile(`^(?:[-*•]|\d+[.)])\s+`)

// GenerateQuestions asks the model for follow-up questions about an answer.
func (c *Client) GenerateQuestions(ctx context.Context, content string, results []search.Result, userQuery string) ([]string, error) {
	out, err := c.Complete(ctx, []Message{
		{Role: openai.ChatMessageRoleSystem, Content: questionSystemPrompt},
		{Role: openai.ChatMessageRoleUser, Content: QuestionPrompt(content, results, userQuery)},
	}, questionMaxTokens)
	if err != nil {
		return nil, fmt.Errorf("generating questions: %w", err)
	}

	questions := ParseQuestions(out)
	if len(questions) == 0 {
		return nil, errors.New("generating questions: no questions generated")
	}
	return questions, nil
}

// ParseQuestions splits model output into at most MaxQuestions trimmed,
// non-empty lines. A leading bullet or number is stripped.
func ParseQuestions(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		q := strings.TrimSpace(listMarker.ReplaceAllString(strings.TrimSpace(line), ""))
		if q == "" {
			continue
		}
		out = append(out, q)
		if len(out) == MaxQuestions {
			break
		}
	}
	return out
}

// Fallback returns a copy of FallbackQuestions.
func Fallback() []string {
	return append([]string(nil), FallbackQuestions...)
}
