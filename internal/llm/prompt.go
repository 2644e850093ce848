package llm

import (
	"fmt"
	"strings"

	"github.com/shahar-caura/scout/internal/search"
)

// Style selects how the answer is written.
type Style string

const (
	StyleDefault    Style = "default"
	StyleStepByStep Style = "step-by-step"
	StyleBullets    Style = "bullet summary"
	StyleELI5       Style = "explain like I'm 5"
)

// Styles lists every accepted response style.
var Styles = []Style{StyleDefault, StyleStepByStep, StyleBullets, StyleELI5}

// ValidStyle reports whether s names a known style.
func ValidStyle(s string) bool {
	for _, v := range Styles {
		if string(v) == s {
			return true
		}
	}
	return false
}

// StylePrompt returns the instruction for style. Unknown styles get the
// default instruction.
func StylePrompt(style Style) string {
	switch style {
	case StyleStepByStep:
		return "Please provide a step-by-step explanation with clear numbered steps."
	case StyleBullets:
		return "Please provide a concise bullet-point summary of the key points."
	case StyleELI5:
		return "Please explain this in simple terms that a 5-year-old could understand, using analogies and simple language."
	default:
		return "Please provide a comprehensive and well-structured response."
	}
}

// SystemPrompt builds the answering instructions around the search context.
func SystemPrompt(style Style, context string) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "You are a helpful research assistant. %s\n\n", StylePrompt(style))

	sb.WriteString(`Use the provided web search context to answer the user's question. If the context doesn't contain enough information, say so and provide what you can based on the available information.

IMPORTANT: Format your response using Markdown for better readability. Use:
- **Bold text** for important points
- *Italic text* for emphasis
- ## Headings for main sections
- ### Subheadings for subsections
- - Bullet points for lists
- 1. Numbered lists for steps
- ` + "`code`" + ` for technical terms
- > Blockquotes for important information
- [Links](url) for references
- Tables for structured data

`)

	fmt.Fprintf(&sb, "Web Search Context:\n%s", context)

	return sb.String()
}

const questionSystemPrompt = "You are an AI assistant that generates relevant follow-up questions based on conversation content. Generate questions that help users explore topics more deeply."

// maxQuestionSources is how many search results are cited in the question prompt.
const maxQuestionSources = 3

// QuestionPrompt asks for follow-up questions about an answer.
func QuestionPrompt(content string, results []search.Result, userQuery string) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, `Based on the following conversation and search results, generate %d relevant follow-up questions that would help the user explore the topic further. The questions should be specific, insightful, and directly related to the content discussed.

User Query: "%s"

AI Response: "%s"

Search Results Context:
`, MaxQuestions, userQuery, content)

	for i, r := range results {
		if i == maxQuestionSources {
			break
		}
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "%d. %s - %s", i+1, r.Title, r.URL)
	}

	fmt.Fprintf(&sb, `

Generate %d related questions that are:
1. Specific to the content discussed
2. Helpful for deeper exploration
3. Varied in scope (some broad, some specific)
4. Directly related to the topic

Return only the questions, one per line, without numbering or bullet points.`, MaxQuestions)

	return sb.String()
}
