package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if err := newRootCmd(logger).Execute(); err != nil {
		logger.Error("scout failed", "error", err)
		os.Exit(1)
	}
}

func newRootCmd(logger *slog.Logger) *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "scout [question]",
		Short: "Research assistant: routes questions to local tools or web search",
		Long: `scout answers questions. Arithmetic is computed locally; everything else is
searched on the web and answered by an LLM grounded on the results.

Anything that is not a subcommand is treated as a question:

  scout what is the latest on fusion power
  scout calculate 12 * (3 + 4)`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNaturalLanguage(cmd, logger, configPath, args)
		},
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "scout.yaml", "path to config file")

	root.AddCommand(
		newServeCmd(logger, &configPath),
		newClassifyCmd(&configPath),
		newToolCmd(),
		newAskCmd(logger, &configPath),
		newSessionsCmd(logger, &configPath),
		newInitCmd(&configPath),
		newCompletionCmd(),
		newVersionCmd(),
	)
	return root
}
