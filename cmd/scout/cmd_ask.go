package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shahar-caura/scout/internal/llm"
	"github.com/shahar-caura/scout/internal/pipeline"
	"github.com/shahar-caura/scout/internal/search"
	"github.com/shahar-caura/scout/internal/session"
)

// maxTitleLen bounds titles derived from the first question of a session.
const maxTitleLen = 60

type askOptions struct {
	style   string
	session string
	noTools bool
}

func newAskCmd(logger *slog.Logger, configPath *string) *cobra.Command {
	var opts askOptions

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a question with a local tool or web search",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(cmd, logger, *configPath, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.style, "style", "s", string(llm.StyleDefault), `answer style: "default", "step-by-step", "bullet summary" or "explain like I'm 5"`)
	cmd.Flags().StringVar(&opts.session, "session", "", "continue an existing session (id or unique prefix)")
	cmd.Flags().BoolVar(&opts.noTools, "no-tools", false, "always use web search")

	_ = cmd.RegisterFlagCompletionFunc("style", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return completeStyles(toComplete)
	})
	_ = cmd.RegisterFlagCompletionFunc("session", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return completeSessionIDs(*configPath, toComplete)
	})
	return cmd
}

func runAsk(cmd *cobra.Command, logger *slog.Logger, configPath, query string, opts askOptions) error {
	if !llm.ValidStyle(opts.style) {
		return fmt.Errorf("unknown style %q", opts.style)
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	c, err := wireClients(cfg, logger)
	if err != nil {
		return err
	}
	defer c.store.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var sess *session.Session
	if opts.session != "" {
		sess, err = session.Find(ctx, c.store, opts.session)
		if err != nil {
			return fmt.Errorf("finding session %q: %w", opts.session, err)
		}
	} else {
		sess = session.New(titleFor(query))
	}

	out := cmd.OutOrStdout()
	res, err := pipeline.Ask(ctx, c.providers(), sess, pipeline.AskOpts{
		Query:   query,
		Style:   llm.Style(opts.style),
		NoTools: opts.noTools,
		OnToken: func(tok string) error {
			_, err := io.WriteString(out, tok)
			return err
		},
	}, logger)
	if err != nil {
		switch {
		case errors.Is(err, search.ErrNotConfigured):
			return errors.New("web search needs EXA_API_KEY; set it in your environment or .scout.env")
		case errors.Is(err, llm.ErrNotConfigured):
			return errors.New("answers need OPENROUTER_API_KEY; set it in your environment or .scout.env")
		}
		return err
	}

	if res.ToolResult != nil && res.ToolResult.Success {
		fmt.Fprintln(out, res.Answer.Content)
	} else {
		fmt.Fprintln(out)
	}
	printSources(out, res.Sources)
	printQuestions(out, res.Questions)
	fmt.Fprintf(cmd.ErrOrStderr(), "\nsession %s\n", sess.ID)
	return nil
}

func printSources(w io.Writer, sources []search.Citation) {
	if len(sources) == 0 {
		return
	}
	fmt.Fprintln(w, "\nSources:")
	for i, s := range sources {
		fmt.Fprintf(w, "  [%d] %s\n      %s\n", i+1, s.Title, s.URL)
	}
}

func printQuestions(w io.Writer, questions []string) {
	if len(questions) == 0 {
		return
	}
	fmt.Fprintln(w, "\nRelated questions:")
	for _, q := range questions {
		fmt.Fprintf(w, "  - %s\n", q)
	}
}

// titleFor derives a session title from its first question.
func titleFor(query string) string {
	q := strings.Join(strings.Fields(query), " ")
	if r := []rune(q); len(r) > maxTitleLen {
		return string(r[:maxTitleLen]) + "..."
	}
	return q
}
