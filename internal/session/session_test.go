package session

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shahar-caura/scout/internal/search"
)

// age moves the session's timestamps into the past so mutations are observable.
func age(s *Session, d time.Duration) {
	s.CreatedAt = s.CreatedAt.Add(-d)
	s.UpdatedAt = s.UpdatedAt.Add(-d)
}

func TestNew_CorrectInitialState(t *testing.T) {
	s := New("")

	assert.Equal(t, DefaultTitle, s.Title)
	assert.Len(t, s.ID, 36)
	assert.NotNil(t, s.Messages)
	assert.NotNil(t, s.Highlights)
	assert.NotNil(t, s.Bookmarks)
	assert.NotNil(t, s.RelatedQuestions)
	assert.False(t, s.CreatedAt.IsZero())
	assert.Equal(t, s.CreatedAt, s.UpdatedAt)

	assert.Equal(t, "Go notes", New("  Go notes ").Title)
	assert.NotEqual(t, New("").ID, New("").ID)
}

func TestRename(t *testing.T) {
	s := New("")
	age(s, time.Hour)
	before := s.UpdatedAt

	require.NoError(t, s.Rename("  Research  "))
	assert.Equal(t, "Research", s.Title)
	assert.True(t, s.UpdatedAt.After(before))

	assert.Error(t, s.Rename("   "))
	assert.Equal(t, "Research", s.Title)
}

func TestAddAndUpdateMessage(t *testing.T) {
	s := New("")
	age(s, time.Hour)
	before := s.UpdatedAt

	user := s.AddMessage(RoleUser, "what is go", nil)
	assert.True(t, s.UpdatedAt.After(before))
	asst := s.AddMessage(RoleAssistant, "", nil)
	require.Len(t, s.Messages, 2)
	assert.Equal(t, RoleUser, s.Messages[0].Role)
	assert.NotEqual(t, user.ID, asst.ID)

	streaming := true
	_, err := s.UpdateMessage(asst.ID, MessagePatch{IsStreaming: &streaming})
	require.NoError(t, err)
	require.NoError(t, s.AppendContent(asst.ID, "Go is "))
	require.NoError(t, s.AppendContent(asst.ID, "a language."))

	done := false
	cites := []search.Citation{{ID: "r1", Title: "go.dev", URL: "https://go.dev", RelevanceScore: 0.9}}
	m, err := s.UpdateMessage(asst.ID, MessagePatch{IsStreaming: &done, Sources: cites})
	require.NoError(t, err)
	assert.Equal(t, "Go is a language.", m.Content)
	assert.False(t, m.IsStreaming)
	assert.Equal(t, cites, m.Sources)

	got, ok := s.Message(asst.ID)
	require.True(t, ok)
	assert.Equal(t, m, got)

	content := "replaced"
	m, err = s.UpdateMessage(user.ID, MessagePatch{Content: &content})
	require.NoError(t, err)
	assert.Equal(t, "replaced", m.Content)
}

func TestUpdateMessage_NotFound(t *testing.T) {
	s := New("")
	_, err := s.UpdateMessage("missing", MessagePatch{})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.AppendContent("missing", "x"), ErrNotFound)

	_, ok := s.Message("missing")
	assert.False(t, ok)
}

func TestHighlights(t *testing.T) {
	s := New("")
	m := s.AddMessage(RoleAssistant, "Goroutines are cheap.", nil)

	h := s.AddHighlight("cheap", m.ID)
	assert.Equal(t, m.ID, h.MessageID)
	require.Len(t, s.Highlights, 1)

	assert.False(t, s.RemoveHighlight("missing"))
	assert.True(t, s.RemoveHighlight(h.ID))
	assert.Empty(t, s.Highlights)
}

func TestBookmarks(t *testing.T) {
	s := New("")
	m := s.AddMessage(RoleAssistant, "answer", nil)

	b := s.AddBookmark("Channels", "answer", nil, m.ID)
	assert.NotNil(t, b.KeyPoints, "key points encode as an array")
	b2 := s.AddBookmark("Select", "answer", []string{"multiplexing"}, m.ID)

	assert.True(t, s.RemoveBookmark(b.ID))
	require.Len(t, s.Bookmarks, 1)
	assert.Equal(t, b2.ID, s.Bookmarks[0].ID)
	assert.False(t, s.RemoveBookmark(b.ID))
}

func TestRelatedQuestions(t *testing.T) {
	s := New("")
	a := s.AddMessage(RoleAssistant, "a", nil)
	b := s.AddMessage(RoleAssistant, "b", nil)

	added := s.AddRelatedQuestions(a.ID, []string{"Why?", "  ", " How? "})
	require.Len(t, added, 2)
	assert.Equal(t, "How?", added[1].Text)
	s.AddRelatedQuestions(b.ID, []string{"When?"})
	s.AddRelatedQuestions(a.ID, []string{"Where?"})

	assert.Len(t, s.RelatedTo(a.ID), 3)
	assert.Len(t, s.RelatedTo(b.ID), 1)

	assert.Equal(t, 3, s.RemoveRelatedQuestions(a.ID))
	assert.Equal(t, 0, s.RemoveRelatedQuestions(a.ID))
	require.Len(t, s.RelatedQuestions, 1)
	assert.Equal(t, "When?", s.RelatedQuestions[0].Text)
}

func TestClear(t *testing.T) {
	s := New("Keep me")
	m := s.AddMessage(RoleUser, "q", nil)
	s.AddHighlight("q", m.ID)
	s.AddBookmark("t", "c", nil, m.ID)
	s.AddRelatedQuestions(m.ID, []string{"x"})

	s.Clear()
	assert.Equal(t, "Keep me", s.Title)
	assert.Empty(t, s.Messages)
	assert.Empty(t, s.Highlights)
	assert.Empty(t, s.Bookmarks)
	assert.Empty(t, s.RelatedQuestions)
	assert.NotNil(t, s.Messages)
}

func TestSearch(t *testing.T) {
	s := New("")
	s.AddMessage(RoleUser, "Tell me about Goroutines", nil)
	s.AddMessage(RoleAssistant, "goroutines are lightweight threads", nil)
	s.AddMessage(RoleUser, "and channels?", nil)

	assert.Len(t, s.Search("GOROUTINE"), 2)
	assert.Len(t, s.Search("channels"), 1)
	assert.Empty(t, s.Search("rust"))
	assert.Empty(t, s.Search("  "))
	assert.NotNil(t, s.Search("rust"))
}

func TestHistory(t *testing.T) {
	s := New("")
	for i := range 12 {
		s.AddMessage(RoleUser, strings.Repeat("x", i+1), nil)
	}

	h := s.History(10)
	require.Len(t, h, 10)
	assert.Equal(t, "xxx", h[0].Content)
	assert.Len(t, s.History(0), 12)
	assert.Len(t, s.History(50), 12)

	h[0].Content = "mutated"
	assert.Equal(t, "xxx", s.Messages[2].Content, "history is a copy")
}

func TestSummarize(t *testing.T) {
	s := New("Topic")
	s.AddMessage(RoleAssistant, "welcome", nil)
	s.AddMessage(RoleUser, strings.Repeat("a", 100), nil)

	sum := s.Summarize()
	assert.Equal(t, s.ID, sum.ID)
	assert.Equal(t, "Topic", sum.Title)
	assert.Equal(t, 2, sum.MessageCount)
	assert.Equal(t, strings.Repeat("a", 80)+"...", sum.Preview)

	assert.Empty(t, New("").Summarize().Preview)
}

func TestRoleValid(t *testing.T) {
	assert.True(t, RoleUser.Valid())
	assert.True(t, RoleAssistant.Valid())
	assert.False(t, Role("system").Valid())
}
