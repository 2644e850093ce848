package search

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResults(n int) []Result {
	out := make([]Result, n)
	for i := range out {
		out[i] = Result{
			ID:            fmt.Sprintf("r%d", i+1),
			Title:         fmt.Sprintf("Title %d", i+1),
			URL:           fmt.Sprintf("https://example.com/%d", i+1),
			PublishedDate: "2024-03-05T10:00:00.000Z",
			Score:         0.5,
		}
	}
	return out
}

func TestFormatContext(t *testing.T) {
	results := []Result{
		{Title: "Go 1.22 release notes", URL: "https://go.dev/doc/go1.22", Author: "The Go Team", PublishedDate: "2024-02-06T00:00:00Z", Score: 0.87654},
		{Title: "Range over func", URL: "https://go.dev/blog/range-functions", Score: 0.5},
	}

	want := "1. Go 1.22 release notes by The Go Team\n" +
		"   Published: 2024-02-06\n" +
		"   Source: https://go.dev/doc/go1.22\n" +
		"   Relevance Score: 0.877\n" +
		"\n" +
		"2. Range over func\n" +
		"   Published: unknown\n" +
		"   Source: https://go.dev/blog/range-functions\n" +
		"   Relevance Score: 0.500"
	assert.Equal(t, want, FormatContext(results))
}

func TestFormatContext_TopFiveOnly(t *testing.T) {
	ctx := FormatContext(sampleResults(8))
	assert.Equal(t, 5, strings.Count(ctx, "Source: "))
	assert.NotContains(t, ctx, "Title 6")
}

func TestFormatContext_Empty(t *testing.T) {
	assert.Equal(t, "", FormatContext(nil))
}

func TestCitations(t *testing.T) {
	cites := Citations(sampleResults(7))
	require.Len(t, cites, 5)
	assert.Equal(t, Citation{
		ID:             "r1",
		Title:          "Title 1",
		URL:            "https://example.com/1",
		PublishedDate:  "2024-03-05T10:00:00.000Z",
		RelevanceScore: 0.5,
	}, cites[0])

	assert.NotNil(t, Citations(nil))
}

func TestPublishedDay(t *testing.T) {
	assert.Equal(t, "2024-03-05", publishedDay("2024-03-05T10:00:00.000Z"))
	assert.Equal(t, "2024-03-05", publishedDay("2024-03-05T10:00:00"))
	assert.Equal(t, "2024-03-05", publishedDay("2024-03-05"))
	assert.Equal(t, "last spring", publishedDay("last spring"))
	assert.Equal(t, "unknown", publishedDay(""))
}
