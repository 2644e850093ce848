package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/oapi-codegen/runtime"

	"github.com/shahar-caura/scout/internal/search"
	"github.com/shahar-caura/scout/internal/session"
)

const defaultPageSize = 20

// SessionList is the body of GET /api/sessions.
type SessionList struct {
	Sessions []session.Summary `json:"sessions"`
	Total    int               `json:"total"`
}

// apiError is a failure with a client-facing status and message.
type apiError struct {
	status int
	msg    string
}

func (e *apiError) Error() string { return e.msg }

func notFound(what string) error {
	return &apiError{status: http.StatusNotFound, msg: what + " not found"}
}

func badRequest(msg string) error {
	return &apiError{status: http.StatusBadRequest, msg: msg}
}

func (s *Server) writeFailure(w http.ResponseWriter, err error) {
	var ae *apiError
	switch {
	case errors.As(err, &ae):
		writeError(w, ae.status, ae.msg)
	case errors.Is(err, session.ErrNotFound):
		writeError(w, http.StatusNotFound, "session not found")
	default:
		s.logger.Error("session request failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// decodeOptional decodes a JSON body that may be absent.
func decodeOptional(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	err := decodeBody(r, v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// updateSession loads a session, applies fn and saves the result.
func (s *Server) updateSession(ctx context.Context, id string, fn func(*session.Session) error) (*session.Session, error) {
	s.sessMu.Lock()
	defer s.sessMu.Unlock()

	sess, err := s.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(sess); err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("saving session: %w", err)
	}
	s.notifyUpdated(sess)
	return sess, nil
}

func (s *Server) notifyUpdated(sess *session.Session) {
	sum := sess.Summarize()
	s.hub.Notify(Event{Type: EventSessionUpdated, ID: sess.ID, Session: &sum})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	limit, offset := defaultPageSize, 0
	if err := runtime.BindQueryParameter("form", true, false, "limit", r.URL.Query(), &limit); err != nil {
		writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "offset", r.URL.Query(), &offset); err != nil {
		writeError(w, http.StatusBadRequest, "invalid offset")
		return
	}

	all, err := s.store.List(r.Context())
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SessionList{
		Sessions: session.Page(all, limit, offset),
		Total:    len(all),
	})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Title string `json:"title"`
	}
	if err := decodeOptional(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sess := session.New(body.Title)
	s.sessMu.Lock()
	err := s.store.Save(r.Context(), sess)
	s.sessMu.Unlock()
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.notifyUpdated(sess)
	s.logger.Info("session created", "id", sess.ID, "title", sess.Title)
	writeJSON(w, http.StatusCreated, sess)
}

func (s *Server) handleClearSessions(w http.ResponseWriter, r *http.Request) {
	s.sessMu.Lock()
	defer s.sessMu.Unlock()

	var ids []string
	if !s.hub.Watching() {
		all, err := s.store.List(r.Context())
		if err != nil {
			s.writeFailure(w, err)
			return
		}
		for _, sess := range all {
			ids = append(ids, sess.ID)
		}
	}

	n, err := s.store.DeleteAll(r.Context())
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	for _, id := range ids {
		s.hub.Notify(Event{Type: EventSessionDeleted, ID: id})
	}
	s.logger.Info("sessions cleared", "count", n)
	writeJSON(w, http.StatusOK, map[string]int{"deleted": n})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.store.Load(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleRenameSession(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Title string `json:"title"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Title is required")
		return
	}
	sess, err := s.updateSession(r.Context(), r.PathValue("id"), func(sess *session.Session) error {
		if err := sess.Rename(body.Title); err != nil {
			return badRequest("Title is required")
		}
		return nil
	})
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	s.sessMu.Lock()
	err := s.store.Delete(r.Context(), id)
	s.sessMu.Unlock()
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.hub.Notify(Event{Type: EventSessionDeleted, ID: id})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.updateSession(r.Context(), r.PathValue("id"), func(sess *session.Session) error {
		sess.Clear()
		return nil
	})
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleAddMessage(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Role        session.Role      `json:"role"`
		Content     string            `json:"content"`
		IsStreaming bool              `json:"isStreaming"`
		Sources     []search.Citation `json:"sources"`
	}
	if err := decodeBody(r, &body); err != nil || !body.Role.Valid() {
		writeError(w, http.StatusBadRequest, "Role must be user or assistant")
		return
	}

	var msg session.Message
	_, err := s.updateSession(r.Context(), r.PathValue("id"), func(sess *session.Session) error {
		msg = sess.AddMessage(body.Role, body.Content, body.Sources)
		if !body.IsStreaming {
			return nil
		}
		streaming := true
		var err error
		msg, err = sess.UpdateMessage(msg.ID, session.MessagePatch{IsStreaming: &streaming})
		return err
	})
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

func (s *Server) handleUpdateMessage(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Content     *string           `json:"content"`
		IsStreaming *bool             `json:"isStreaming"`
		Sources     []search.Citation `json:"sources"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var msg session.Message
	_, err := s.updateSession(r.Context(), r.PathValue("id"), func(sess *session.Session) error {
		m, err := sess.UpdateMessage(r.PathValue("mid"), session.MessagePatch{
			Content:     body.Content,
			IsStreaming: body.IsStreaming,
			Sources:     body.Sources,
		})
		if err != nil {
			return notFound("message")
		}
		msg = m
		return nil
	})
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

func (s *Server) handleAddHighlight(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Text      string `json:"text"`
		MessageID string `json:"messageId"`
	}
	if err := decodeBody(r, &body); err != nil || body.Text == "" || body.MessageID == "" {
		writeError(w, http.StatusBadRequest, "Text and message id are required")
		return
	}

	var h session.Highlight
	_, err := s.updateSession(r.Context(), r.PathValue("id"), func(sess *session.Session) error {
		if _, ok := sess.Message(body.MessageID); !ok {
			return notFound("message")
		}
		h = sess.AddHighlight(body.Text, body.MessageID)
		return nil
	})
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, h)
}

func (s *Server) handleRemoveHighlight(w http.ResponseWriter, r *http.Request) {
	_, err := s.updateSession(r.Context(), r.PathValue("id"), func(sess *session.Session) error {
		if !sess.RemoveHighlight(r.PathValue("hid")) {
			return notFound("highlight")
		}
		return nil
	})
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddBookmark(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Title     string   `json:"title"`
		Content   string   `json:"content"`
		KeyPoints []string `json:"keyPoints"`
		MessageID string   `json:"messageId"`
	}
	if err := decodeBody(r, &body); err != nil || body.Title == "" || body.MessageID == "" {
		writeError(w, http.StatusBadRequest, "Title, content and message id are required")
		return
	}

	var b session.Bookmark
	_, err := s.updateSession(r.Context(), r.PathValue("id"), func(sess *session.Session) error {
		if _, ok := sess.Message(body.MessageID); !ok {
			return notFound("message")
		}
		b = sess.AddBookmark(body.Title, body.Content, body.KeyPoints, body.MessageID)
		return nil
	})
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (s *Server) handleRemoveBookmark(w http.ResponseWriter, r *http.Request) {
	_, err := s.updateSession(r.Context(), r.PathValue("id"), func(sess *session.Session) error {
		if !sess.RemoveBookmark(r.PathValue("bid")) {
			return notFound("bookmark")
		}
		return nil
	})
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddRelatedQuestions(w http.ResponseWriter, r *http.Request) {
	var body struct {
		MessageID string   `json:"messageId"`
		Questions []string `json:"questions"`
	}
	if err := decodeBody(r, &body); err != nil || body.MessageID == "" {
		writeError(w, http.StatusBadRequest, "Message id and questions are required")
		return
	}

	var added []session.RelatedQuestion
	_, err := s.updateSession(r.Context(), r.PathValue("id"), func(sess *session.Session) error {
		if _, ok := sess.Message(body.MessageID); !ok {
			return notFound("message")
		}
		added = sess.AddRelatedQuestions(body.MessageID, body.Questions)
		return nil
	})
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	if added == nil {
		added = []session.RelatedQuestion{}
	}
	writeJSON(w, http.StatusCreated, map[string][]session.RelatedQuestion{"relatedQuestions": added})
}

func (s *Server) handleRemoveRelatedQuestions(w http.ResponseWriter, r *http.Request) {
	var n int
	_, err := s.updateSession(r.Context(), r.PathValue("id"), func(sess *session.Session) error {
		n = sess.RemoveRelatedQuestions(r.PathValue("mid"))
		return nil
	})
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"removed": n})
}

func (s *Server) handleSearchSession(w http.ResponseWriter, r *http.Request) {
	var q string
	if err := runtime.BindQueryParameter("form", true, true, "q", r.URL.Query(), &q); err != nil {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}

	sess, err := s.store.Load(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]session.Message{"messages": sess.Search(q)})
}
