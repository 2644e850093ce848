package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shahar-caura/scout/internal/search"
)

// DefaultTitle is the title of a session nobody has named yet.
const DefaultTitle = "New Chat"

// Role is the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool { return r == RoleUser || r == RoleAssistant }

// Message is one chat turn. Sources are the citations an answer was grounded on.
type Message struct {
	ID          string            `json:"id" yaml:"id"`
	Role        Role              `json:"role" yaml:"role"`
	Content     string            `json:"content" yaml:"content"`
	Timestamp   time.Time         `json:"timestamp" yaml:"timestamp"`
	IsStreaming bool              `json:"isStreaming,omitempty" yaml:"is_streaming,omitempty"`
	Sources     []search.Citation `json:"sources,omitempty" yaml:"sources,omitempty"`
}

// Highlight is a passage the user marked inside a message.
type Highlight struct {
	ID        string    `json:"id" yaml:"id"`
	Text      string    `json:"text" yaml:"text"`
	MessageID string    `json:"messageId" yaml:"message_id"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}

// Bookmark saves a message with a title and key points.
type Bookmark struct {
	ID        string    `json:"id" yaml:"id"`
	Title     string    `json:"title" yaml:"title"`
	Content   string    `json:"content" yaml:"content"`
	KeyPoints []string  `json:"keyPoints" yaml:"key_points"`
	MessageID string    `json:"messageId" yaml:"message_id"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}

// RelatedQuestion is a suggested follow-up attached to an answer.
type RelatedQuestion struct {
	ID        string `json:"id" yaml:"id"`
	Text      string `json:"text" yaml:"text"`
	MessageID string `json:"messageId" yaml:"message_id"`
}

// Session is one conversation and everything the user attached to it.
// Methods that change it bump UpdatedAt. A Session is not safe for
// concurrent mutation.
type Session struct {
	ID               string            `json:"id" yaml:"id"`
	Title            string            `json:"title" yaml:"title"`
	Messages         []Message         `json:"messages" yaml:"messages"`
	Highlights       []Highlight       `json:"highlights" yaml:"highlights"`
	Bookmarks        []Bookmark        `json:"bookmarks" yaml:"bookmarks"`
	RelatedQuestions []RelatedQuestion `json:"relatedQuestions" yaml:"related_questions"`
	CreatedAt        time.Time         `json:"createdAt" yaml:"created_at"`
	UpdatedAt        time.Time         `json:"updatedAt" yaml:"updated_at"`
}

// Summary is the list view of a session.
type Summary struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	MessageCount int       `json:"messageCount"`
	Preview      string    `json:"preview,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// MessagePatch lists the message fields to change. Nil fields are left alone.
type MessagePatch struct {
	Content     *string
	IsStreaming *bool
	Sources     []search.Citation
}

const previewLen = 80

// New creates an empty session. A blank title becomes DefaultTitle.
func New(title string) *Session {
	title = strings.TrimSpace(title)
	if title == "" {
		title = DefaultTitle
	}
	now := time.Now().UTC()
	return &Session{
		ID:               uuid.NewString(),
		Title:            title,
		Messages:         []Message{},
		Highlights:       []Highlight{},
		Bookmarks:        []Bookmark{},
		RelatedQuestions: []RelatedQuestion{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func (s *Session) touch() { s.UpdatedAt = time.Now().UTC() }

// normalize replaces nil slices so the session always encodes as arrays.
func (s *Session) normalize() {
	if s.Messages == nil {
		s.Messages = []Message{}
	}
	if s.Highlights == nil {
		s.Highlights = []Highlight{}
	}
	if s.Bookmarks == nil {
		s.Bookmarks = []Bookmark{}
	}
	if s.RelatedQuestions == nil {
		s.RelatedQuestions = []RelatedQuestion{}
	}
}

// Rename sets the title. Blank titles are rejected.
func (s *Session) Rename(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return fmt.Errorf("title must not be empty")
	}
	s.Title = title
	s.touch()
	return nil
}

// AddMessage appends a message and returns it.
func (s *Session) AddMessage(role Role, content string, sources []search.Citation) Message {
	m := Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
		Sources:   sources,
	}
	s.Messages = append(s.Messages, m)
	s.touch()
	return m
}

// Message returns the message with id.
func (s *Session) Message(id string) (Message, bool) {
	if i := s.messageIndex(id); i >= 0 {
		return s.Messages[i], true
	}
	return Message{}, false
}

// UpdateMessage applies patch to the message with id.
func (s *Session) UpdateMessage(id string, patch MessagePatch) (Message, error) {
	i := s.messageIndex(id)
	if i < 0 {
		return Message{}, fmt.Errorf("message %q: %w", id, ErrNotFound)
	}
	m := &s.Messages[i]
	if patch.Content != nil {
		m.Content = *patch.Content
	}
	if patch.IsStreaming != nil {
		m.IsStreaming = *patch.IsStreaming
	}
	if patch.Sources != nil {
		m.Sources = patch.Sources
	}
	s.touch()
	return *m, nil
}

// AppendContent adds a streamed delta to the message with id.
func (s *Session) AppendContent(id, delta string) error {
	i := s.messageIndex(id)
	if i < 0 {
		return fmt.Errorf("message %q: %w", id, ErrNotFound)
	}
	s.Messages[i].Content += delta
	s.touch()
	return nil
}

func (s *Session) messageIndex(id string) int {
	for i := range s.Messages {
		if s.Messages[i].ID == id {
			return i
		}
	}
	return -1
}

// AddHighlight records a highlighted passage of a message.
func (s *Session) AddHighlight(text, messageID string) Highlight {
	h := Highlight{
		ID:        uuid.NewString(),
		Text:      text,
		MessageID: messageID,
		Timestamp: time.Now().UTC(),
	}
	s.Highlights = append(s.Highlights, h)
	s.touch()
	return h
}

// RemoveHighlight deletes the highlight with id and reports whether it existed.
func (s *Session) RemoveHighlight(id string) bool {
	for i, h := range s.Highlights {
		if h.ID == id {
			s.Highlights = append(s.Highlights[:i], s.Highlights[i+1:]...)
			s.touch()
			return true
		}
	}
	return false
}

// AddBookmark saves a bookmark for a message.
func (s *Session) AddBookmark(title, content string, keyPoints []string, messageID string) Bookmark {
	if keyPoints == nil {
		keyPoints = []string{}
	}
	b := Bookmark{
		ID:        uuid.NewString(),
		Title:     title,
		Content:   content,
		KeyPoints: keyPoints,
		MessageID: messageID,
		Timestamp: time.Now().UTC(),
	}
	s.Bookmarks = append(s.Bookmarks, b)
	s.touch()
	return b
}

// RemoveBookmark deletes the bookmark with id and reports whether it existed.
func (s *Session) RemoveBookmark(id string) bool {
	for i, b := range s.Bookmarks {
		if b.ID == id {
			s.Bookmarks = append(s.Bookmarks[:i], s.Bookmarks[i+1:]...)
			s.touch()
			return true
		}
	}
	return false
}

// AddRelatedQuestions attaches follow-up questions to a message. Blank
// questions are skipped.
func (s *Session) AddRelatedQuestions(messageID string, questions []string) []RelatedQuestion {
	added := make([]RelatedQuestion, 0, len(questions))
	for _, q := range questions {
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		added = append(added, RelatedQuestion{ID: uuid.NewString(), Text: q, MessageID: messageID})
	}
	s.RelatedQuestions = append(s.RelatedQuestions, added...)
	s.touch()
	return added
}

// RelatedTo returns the follow-up questions attached to a message.
func (s *Session) RelatedTo(messageID string) []RelatedQuestion {
	var out []RelatedQuestion
	for _, q := range s.RelatedQuestions {
		if q.MessageID == messageID {
			out = append(out, q)
		}
	}
	return out
}

// RemoveRelatedQuestions drops every question attached to a message and
// returns how many were removed.
func (s *Session) RemoveRelatedQuestions(messageID string) int {
	kept := s.RelatedQuestions[:0]
	for _, q := range s.RelatedQuestions {
		if q.MessageID != messageID {
			kept = append(kept, q)
		}
	}
	removed := len(s.RelatedQuestions) - len(kept)
	s.RelatedQuestions = kept
	if removed > 0 {
		s.touch()
	}
	return removed
}

// Clear empties the conversation but keeps the session and its title.
func (s *Session) Clear() {
	s.Messages = []Message{}
	s.Highlights = []Highlight{}
	s.Bookmarks = []Bookmark{}
	s.RelatedQuestions = []RelatedQuestion{}
	s.touch()
}

// Search returns messages whose content contains q, ignoring case.
// A blank q matches nothing.
func (s *Session) Search(q string) []Message {
	q = strings.ToLower(strings.TrimSpace(q))
	out := []Message{}
	if q == "" {
		return out
	}
	for _, m := range s.Messages {
		if strings.Contains(strings.ToLower(m.Content), q) {
			out = append(out, m)
		}
	}
	return out
}

// History returns the last n messages, oldest first.
func (s *Session) History(n int) []Message {
	if n <= 0 || n >= len(s.Messages) {
		return append([]Message(nil), s.Messages...)
	}
	return append([]Message(nil), s.Messages[len(s.Messages)-n:]...)
}

// Summarize returns the list view of s.
func (s *Session) Summarize() Summary {
	sum := Summary{
		ID:           s.ID,
		Title:        s.Title,
		MessageCount: len(s.Messages),
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
	for _, m := range s.Messages {
		if m.Role == RoleUser {
			sum.Preview = truncate(m.Content, previewLen)
			break
		}
	}
	return sum
}

func truncate(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n]) + "..."
}
