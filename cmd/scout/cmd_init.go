package main

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/spf13/cobra"

	"github.com/shahar-caura/scout/internal/config"
)

func newInitCmd(configPath *string) *cobra.Command {
	var defaults, force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize scout.yaml",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !defaults {
				if fi, err := os.Stdin.Stat(); err == nil && fi.Mode()&os.ModeCharDevice == 0 && cmd.InOrStdin() == os.Stdin {
					return fmt.Errorf("scout init requires an interactive terminal (or --defaults)")
				}
			}
			return cmdInit(cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr(), *configPath, defaults, force)
		},
	}

	cmd.Flags().BoolVar(&defaults, "defaults", false, "write the default configuration without prompting")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing config file")
	return cmd
}

// cmdInit runs an interactive wizard to generate the config file. With
// defaults set every prompt takes its default value.
func cmdInit(in io.Reader, out, errOut io.Writer, configPath string, defaults, force bool) error {
	p := &prompter{scanner: bufio.NewScanner(in), out: out, defaults: defaults}

	// Overwrite guard.
	if _, err := os.Stat(configPath); err == nil && !force {
		if defaults || !p.yesNo(fmt.Sprintf("%s already exists. Overwrite?", configPath), false) {
			return fmt.Errorf("%s already exists", configPath)
		}
	}

	fmt.Fprintf(out, "Initializing %s...\n", configPath)

	data := initData{}

	p.section("Server")
	data.Addr = p.str("Listen address", "127.0.0.1:8080")

	p.section("Search")
	data.SearchType = p.str("Search type (neural/keyword/auto)", "neural")
	data.NumResults = p.str("Results per search", "5")

	p.section("LLM")
	data.Models = splitList(p.str("Models (comma separated, tried in order)", "openai/gpt-3.5-turbo"))
	if len(data.Models) == 0 {
		return fmt.Errorf("at least one model is required")
	}

	p.section("Sessions")
	data.Driver = p.str("Store driver (file/sqlite/postgres)", "file")
	switch data.Driver {
	case "file":
		data.Dir = p.str("Sessions directory", ".scout/sessions")
	case "sqlite":
		data.DSN = p.str("Database file", ".scout/scout.db")
	case "postgres":
		data.DatabaseURL = p.str("Database URL", "")
		if data.DatabaseURL == "" {
			return fmt.Errorf("database URL is required for postgres")
		}
		data.DSN = "${SCOUT_DATABASE_URL}"
	default:
		return fmt.Errorf("unknown store driver %q", data.Driver)
	}
	data.Retention = p.str("Delete sessions idle for", "720h")
	data.MixedFirst = p.yesNo("\nPrefer mixed routing for queries that are both factual and fresh?", false)

	tmpl, err := template.New("scout.yaml").Parse(scoutYAMLTemplate)
	if err != nil {
		return fmt.Errorf("parsing template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("rendering template: %w", err)
	}

	if dir := filepath.Dir(configPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(configPath, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", configPath, err)
	}

	fmt.Fprintf(out, "\nWrote %s\n", configPath)

	if err := generateEnvFiles(out, errOut, data); err != nil {
		fmt.Fprintf(errOut, "\nWarning: could not generate env files: %v\n", err)
	}
	return nil
}

// generateEnvFiles creates .scout.env (project) and the global env file with
// placeholder values for the secrets scout reads.
func generateEnvFiles(out, errOut io.Writer, data initData) error {
	globalLines := []string{"EXA_API_KEY=", "OPENROUTER_API_KEY="}

	if data.DatabaseURL != "" {
		content := "# Scout project-local environment\n# This file is loaded automatically by scout. Do not commit.\n\n"
		content += fmt.Sprintf("SCOUT_DATABASE_URL=%s\n", data.DatabaseURL)
		if err := os.WriteFile(config.ProjectEnvFile, []byte(content), 0o600); err != nil {
			return fmt.Errorf("writing %s: %w", config.ProjectEnvFile, err)
		}
		fmt.Fprintf(out, "Wrote %s\n", config.ProjectEnvFile)
		fmt.Fprintf(errOut, "\nTip: add %s to .gitignore to avoid committing secrets.\n", config.ProjectEnvFile)
	}

	globalPath := config.GlobalEnvPath()
	if _, err := os.Stat(globalPath); os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(globalPath), 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", filepath.Dir(globalPath), err)
		}
		content := "# Scout API keys, shared across projects\n\n" + strings.Join(globalLines, "\n") + "\n"
		if err := os.WriteFile(globalPath, []byte(content), 0o600); err != nil {
			return fmt.Errorf("writing %s: %w", globalPath, err)
		}
		fmt.Fprintf(out, "Wrote %s (fill in your API keys)\n", globalPath)
		return nil
	}

	fmt.Fprintf(errOut, "\nNote: %s already exists. Ensure these vars are set:\n", globalPath)
	for _, line := range globalLines {
		if k, _, ok := strings.Cut(line, "="); ok {
			fmt.Fprintf(errOut, "  - %s\n", k)
		}
	}
	return nil
}

type initData struct {
	Addr       string
	SearchType string
	NumResults string
	Models     []string

	Driver      string
	Dir         string
	DSN         string
	DatabaseURL string
	Retention   string

	MixedFirst bool
}

const scoutYAMLTemplate = `# Scout configuration
# Environment variables are resolved at load time: ${VAR_NAME}

server:
  addr: "{{.Addr}}"
  shutdown_timeout: 5s

search:
  api_key: ${EXA_API_KEY}
  type: {{.SearchType}}
  num_results: {{.NumResults}}
  # rate_per_second: 5
  # burst: 5

llm:
  api_key: ${OPENROUTER_API_KEY}
  models:
{{- range .Models}}
    - {{.}}
{{- end}}
  # temperature: 0.7
  # max_tokens: 2000

store:
  driver: {{.Driver}}
{{- if .Dir}}
  dir: {{.Dir}}
{{- end}}
{{- if .DSN}}
  dsn: "{{.DSN}}"
{{- end}}
  retention: {{.Retention}}

router:
  mixed_first: {{.MixedFirst}}
`

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// prompter reads wizard answers line by line.
type prompter struct {
	scanner  *bufio.Scanner
	out      io.Writer
	defaults bool
}

func (p *prompter) section(name string) {
	if !p.defaults {
		fmt.Fprintf(p.out, "\n=== %s ===\n", name)
	}
}

func (p *prompter) str(label, defaultVal string) string {
	if p.defaults {
		return defaultVal
	}
	if defaultVal != "" {
		fmt.Fprintf(p.out, "%s [%s]: ", label, defaultVal)
	} else {
		fmt.Fprintf(p.out, "%s: ", label)
	}
	p.scanner.Scan()
	input := strings.TrimSpace(p.scanner.Text())
	if input == "" {
		return defaultVal
	}
	return input
}

func (p *prompter) yesNo(label string, defaultYes bool) bool {
	if p.defaults {
		return defaultYes
	}
	hint := "[y/N]"
	if defaultYes {
		hint = "[Y/n]"
	}
	fmt.Fprintf(p.out, "%s %s: ", label, hint)
	p.scanner.Scan()
	input := strings.TrimSpace(strings.ToLower(p.scanner.Text()))
	if input == "" {
		return defaultYes
	}
	return input == "y" || input == "yes"
}
