package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shahar-caura/scout/internal/config"
	"github.com/shahar-caura/scout/internal/intent"
	"github.com/shahar-caura/scout/internal/llm/llmtest"
	"github.com/shahar-caura/scout/internal/session"
)

// setupWorkspace moves the test into an empty directory with no API keys and
// writes a config that keeps sessions there. It returns the config path.
func setupWorkspace(t *testing.T, extra ...string) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	t.Setenv("EXA_API_KEY", "")
	t.Setenv("OPENROUTER_API_KEY", "")

	cfg := "store:\n  driver: file\n  dir: " + filepath.Join(dir, "sessions") + "\n" + strings.Join(extra, "")
	path := filepath.Join(dir, "scout.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	return path
}

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root := newRootCmd(slog.New(slog.NewTextHandler(io.Discard, nil)))
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(""))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

var sessionLine = regexp.MustCompile(`session ([0-9a-f-]{36})`)

func TestClassifyCmd(t *testing.T) {
	cfgPath := setupWorkspace(t)

	out, _, err := execute(t, "--config", cfgPath, "classify", "calculate", "12", "*", "4")
	require.NoError(t, err)
	assert.Contains(t, out, "type:       tool")
	assert.Contains(t, out, "tool:       calculator")

	out, _, err = execute(t, "--config", cfgPath, "classify", "--json", "latest news about fusion energy")
	require.NoError(t, err)
	var c intent.Classification
	require.NoError(t, json.Unmarshal([]byte(out), &c))
	assert.Equal(t, intent.KindWebSearch, c.Type)
	assert.Empty(t, c.SuggestedTool)
}

func TestToolCmd(t *testing.T) {
	setupWorkspace(t)

	out, _, err := execute(t, "tool", "calculate", "12", "*", "4")
	require.NoError(t, err)
	var res struct {
		Type    string            `json:"type"`
		Success bool              `json:"success"`
		Result  intent.CalcResult `json:"result"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.True(t, res.Success)
	assert.Equal(t, "calculator", res.Type)
	assert.Equal(t, "48", res.Result.Formatted)

	out, _, err = execute(t, "tool", "--tool", "converter", "convert 5 km to miles")
	require.Error(t, err)
	assert.Contains(t, out, `"success": false`)
	assert.Contains(t, err.Error(), "Unit conversion feature coming soon")

	_, _, err = execute(t, "tool", "latest news about fusion energy")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a tool query")
}

func TestAskCmd_WebSearch(t *testing.T) {
	exa := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results":[{"id":"r1","title":"Fusion milestone","url":"https://example.com/fusion","score":0.9,"text":"Net energy gain."}]}`))
	}))
	t.Cleanup(exa.Close)

	gw := llmtest.New(t)
	gw.Reply = "1. What is ignition?\n2. Who funds fusion research?"
	lc := gw.Config()

	cfgPath := setupWorkspace(t, fmt.Sprintf(`search:
  base_url: %s
  api_key: exa-test
llm:
  base_url: %s
  api_key: %s
  models: [%s]
`, exa.URL, lc.BaseURL, lc.APIKey, lc.Models[0]))

	out, errOut, err := execute(t, "--config", cfgPath, "ask", "--style", "eli5", "latest news about fusion energy")
	require.Error(t, err, "eli5 is not a style name")
	assert.Contains(t, err.Error(), "unknown style")
	assert.Empty(t, out)

	out, errOut, err = execute(t, "--config", cfgPath, "ask", "--style", "step-by-step", "latest news about fusion energy")
	require.NoError(t, err)
	assert.Contains(t, out, "Hello, world\n")
	assert.Contains(t, out, "Sources:\n  [1] Fusion milestone\n      https://example.com/fusion")
	assert.Contains(t, out, "  - What is ignition?")
	assert.Contains(t, out, "  - Who funds fusion research?")

	m := sessionLine.FindStringSubmatch(errOut)
	require.Len(t, m, 2, errOut)
	id := m[1]

	// Follow-ups continue the session by id prefix.
	_, _, err = execute(t, "--config", cfgPath, "ask", "--session", id[:8], "--no-tools", "what about 2 + 2")
	require.NoError(t, err)

	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)
	st, err := session.Open(cfg.Store)
	require.NoError(t, err)
	defer st.Close()

	s, err := st.Load(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "latest news about fusion energy", s.Title)
	require.Len(t, s.Messages, 4)
	assert.Equal(t, "Hello, world", s.Messages[3].Content)
	assert.False(t, s.Messages[3].IsStreaming)
}

func TestSessionsCmd(t *testing.T) {
	cfgPath := setupWorkspace(t)

	out, _, err := execute(t, "--config", cfgPath, "sessions", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No sessions found.")

	_, errOut, err := execute(t, "--config", cfgPath, "ask", "calculate 7 * 6")
	require.NoError(t, err)
	m := sessionLine.FindStringSubmatch(errOut)
	require.Len(t, m, 2, errOut)
	id := m[1]

	_, _, err = execute(t, "--config", cfgPath, "ask", "--session", id, "calculate 100 * 12")
	require.NoError(t, err)

	out, _, err = execute(t, "--config", cfgPath, "sessions", "list")
	require.NoError(t, err)
	assert.Contains(t, out, id)
	assert.Contains(t, out, "calculate 7 * 6")

	out, _, err = execute(t, "--config", cfgPath, "sessions", "show", id[:8])
	require.NoError(t, err)
	assert.Contains(t, out, "7 * 6 = 42")
	assert.Contains(t, out, "100 * 12 = 1200")
	assert.Contains(t, out, "[user]")

	_, _, err = execute(t, "--config", cfgPath, "sessions", "clear")
	require.Error(t, err, "clear needs --yes")

	out, _, err = execute(t, "--config", cfgPath, "sessions", "delete", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted "+id)

	_, _, err = execute(t, "--config", cfgPath, "sessions", "show", id)
	require.Error(t, err)
	assert.ErrorIs(t, err, session.ErrNotFound)

	_, _, err = execute(t, "--config", cfgPath, "ask", "calculate 1 + 1")
	require.NoError(t, err)
	out, _, err = execute(t, "--config", cfgPath, "sessions", "clear", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted 1 sessions")

	out, _, err = execute(t, "--config", cfgPath, "sessions", "cleanup", "--retention", "1h")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted 0 expired sessions")
}

func TestInitCmd_Defaults(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))

	out, _, err := execute(t, "init", "--defaults")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote scout.yaml")

	cfg, err := config.Load("scout.yaml")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8080", cfg.Server.Addr)
	assert.Equal(t, "file", cfg.Store.Driver)
	assert.Equal(t, ".scout/sessions", cfg.Store.Dir)
	assert.Equal(t, []string{"openai/gpt-3.5-turbo"}, cfg.LLM.Models)
	assert.False(t, cfg.Router.MixedFirst)

	env, err := os.ReadFile(config.GlobalEnvPath())
	require.NoError(t, err)
	assert.Contains(t, string(env), "EXA_API_KEY=")
	assert.Contains(t, string(env), "OPENROUTER_API_KEY=")

	_, _, err = execute(t, "init", "--defaults")
	require.Error(t, err, "existing config is not overwritten")
	_, _, err = execute(t, "init", "--defaults", "--force")
	require.NoError(t, err)
}

func TestInitCmd_Interactive(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))

	var out bytes.Buffer
	answers := strings.Join([]string{
		"0.0.0.0:9090",  // addr
		"auto",          // search type
		"8",             // results
		"a/one, b/two",  // models
		"sqlite",        // driver
		"data/scout.db", // dsn
		"48h",           // retention
		"y",             // mixed first
	}, "\n") + "\n"

	err := cmdInit(strings.NewReader(answers), &out, io.Discard, "scout.yaml", false, false)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "=== Sessions ===")

	cfg, err := config.Load("scout.yaml")
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9090", cfg.Server.Addr)
	assert.Equal(t, "auto", cfg.Search.Type)
	assert.Equal(t, 8, cfg.Search.NumResults)
	assert.Equal(t, []string{"a/one", "b/two"}, cfg.LLM.Models)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "data/scout.db", cfg.Store.DSN)
	assert.Equal(t, "48h0m0s", cfg.Store.Retention.Duration.String())
	assert.True(t, cfg.Router.MixedFirst)
}

func TestTitleFor(t *testing.T) {
	assert.Equal(t, "what is go", titleFor("  what   is\tgo "))
	long := strings.Repeat("x", 100)
	assert.Equal(t, strings.Repeat("x", maxTitleLen)+"...", titleFor(long))
}

func TestVersionCmd(t *testing.T) {
	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "scout dev\n", out)
}
