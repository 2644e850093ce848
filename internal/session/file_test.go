package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestFileStore_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), ".scout", "sessions")
	fs, err := NewFileStore(dir)
	require.NoError(t, err)

	s := New("")
	require.NoError(t, fs.Save(context.Background(), s))

	_, err = os.Stat(filepath.Join(dir, s.ID+".yaml"))
	require.NoError(t, err, "session file should exist")
	assert.Equal(t, dir, fs.Dir())
}

func TestFileStore_NoTempFileLeftBehind(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	s := New("")
	require.NoError(t, fs.Save(context.Background(), s))

	_, err = os.Stat(filepath.Join(fs.Dir(), s.ID+".yaml.tmp"))
	assert.True(t, os.IsNotExist(err), "temp file should be cleaned up after rename")
}

func TestFileStore_YAMLFieldNames(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	s := New("Fields")
	m := s.AddMessage(RoleUser, "hello", nil)
	s.AddHighlight("hello", m.ID)
	require.NoError(t, fs.Save(context.Background(), s))

	data, err := os.ReadFile(filepath.Join(fs.Dir(), s.ID+".yaml"))
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, yaml.Unmarshal(data, &raw))
	assert.Equal(t, "Fields", raw["title"])
	assert.Contains(t, raw, "created_at")
	assert.Contains(t, raw, "updated_at")
	assert.Contains(t, raw, "related_questions")

	hl := raw["highlights"].([]any)[0].(map[string]any)
	assert.Equal(t, m.ID, hl["message_id"])
}

func TestFileStore_ListSkipsCorruptFiles(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, fs.Save(context.Background(), New("good")))
	require.NoError(t, os.WriteFile(filepath.Join(fs.Dir(), "bad.yaml"), []byte(":\n\t- :\n  bad"), 0o644))

	all, err := fs.List(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "good", all[0].Title)
}

func TestFileStore_SaveRejectsInvalidID(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	s := New("")
	s.ID = "../escape"
	assert.ErrorIs(t, fs.Save(context.Background(), s), ErrNotFound)
}

func TestNewFileStore_RequiresDir(t *testing.T) {
	_, err := NewFileStore("")
	require.Error(t, err)
}
