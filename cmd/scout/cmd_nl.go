package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shahar-caura/scout/internal/llm"
)

// runNaturalLanguage treats root-level arguments that are not a subcommand as
// a question for ask.
func runNaturalLanguage(cmd *cobra.Command, logger *slog.Logger, configPath string, args []string) error {
	if len(args) == 0 {
		return cmd.Help()
	}

	// A lone word close to a subcommand is more likely a typo than a question.
	if len(args) == 1 {
		if s := cmd.SuggestionsFor(args[0]); len(s) > 0 {
			return fmt.Errorf("unknown command %q (did you mean %q?)", args[0], s[0])
		}
	}

	query := strings.Join(args, " ")
	logger.Debug("treating arguments as a question", "query", query)

	return runAsk(cmd, logger, configPath, query, askOptions{style: string(llm.StyleDefault)})
}
