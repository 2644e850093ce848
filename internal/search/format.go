package search

import (
	"fmt"
	"strings"
	"time"
)

// maxContextResults is how many results feed the prompt context and citations.
const maxContextResults = 5

// FormatContext renders the top results as the numbered context block the
// language model answers from.
func FormatContext(results []Result) string {
	blocks := make([]string, 0, maxContextResults)
	for i, r := range top(results) {
		var sb strings.Builder
		fmt.Fprintf(&sb, "%d. %s", i+1, r.Title)
		if r.Author != "" {
			fmt.Fprintf(&sb, " by %s", r.Author)
		}
		fmt.Fprintf(&sb, "\n   Published: %s", publishedDay(r.PublishedDate))
		fmt.Fprintf(&sb, "\n   Source: %s", r.URL)
		fmt.Fprintf(&sb, "\n   Relevance Score: %.3f", r.Score)
		blocks = append(blocks, sb.String())
	}
	return strings.Join(blocks, "\n\n")
}

// Citations converts the top results into source citations.
func Citations(results []Result) []Citation {
	out := make([]Citation, 0, maxContextResults)
	for _, r := range top(results) {
		out = append(out, Citation{
			ID:             r.ID,
			Title:          r.Title,
			URL:            r.URL,
			Author:         r.Author,
			PublishedDate:  r.PublishedDate,
			RelevanceScore: r.Score,
		})
	}
	return out
}

func top(results []Result) []Result {
	if len(results) > maxContextResults {
		return results[:maxContextResults]
	}
	return results
}

// publishedDay reduces a provider timestamp to its calendar day. Values that
// do not parse are passed through.
func publishedDay(s string) string {
	if s == "" {
		return "unknown"
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(time.DateOnly)
		}
	}
	return s
}
