package llm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shahar-caura/scout/internal/search"
)

func TestStylePrompt(t *testing.T) {
	assert.Contains(t, StylePrompt(StyleStepByStep), "numbered steps")
	assert.Contains(t, StylePrompt(StyleBullets), "bullet-point summary")
	assert.Contains(t, StylePrompt(StyleELI5), "5-year-old")
	assert.Equal(t, StylePrompt(StyleDefault), StylePrompt(Style("pirate")))
}

func TestValidStyle(t *testing.T) {
	for _, s := range Styles {
		assert.True(t, ValidStyle(string(s)), s)
	}
	assert.False(t, ValidStyle("Default"))
	assert.False(t, ValidStyle(""))
}

func TestSystemPrompt(t *testing.T) {
	p := SystemPrompt(StyleELI5, "1. Source")

	assert.True(t, strings.HasPrefix(p, "You are a helpful research assistant. "+StylePrompt(StyleELI5)))
	assert.Contains(t, p, "Format your response using Markdown")
	assert.Contains(t, p, "`code` for technical terms")
	assert.True(t, strings.HasSuffix(p, "Web Search Context:\n1. Source"))
}

func TestQuestionPrompt(t *testing.T) {
	p := QuestionPrompt("Answer text", []search.Result{{Title: "T", URL: "https://t"}}, "the query")

	assert.Contains(t, p, `User Query: "the query"`)
	assert.Contains(t, p, `AI Response: "Answer text"`)
	assert.Contains(t, p, "Search Results Context:\n1. T - https://t\n\nGenerate 5 related questions")
	assert.True(t, strings.HasSuffix(p, "without numbering or bullet points."))
}

func TestParseQuestions(t *testing.T) {
	assert.Empty(t, ParseQuestions(""))
	assert.Equal(t, []string{"a?", "b?"}, ParseQuestions("  a?\n\n* b?\n"))
	assert.Equal(t, []string{"2024 trends?"}, ParseQuestions("2024 trends?"), "bare numbers without a marker are kept")
	assert.Len(t, ParseQuestions("1\n2\n3\n4\n5\n6\n7"), MaxQuestions)
}
