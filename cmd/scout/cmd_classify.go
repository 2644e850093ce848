package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shahar-caura/scout/internal/config"
	"github.com/shahar-caura/scout/internal/intent"
)

func newClassifyCmd(configPath *string) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "classify <query>",
		Short: "Show how a query would be routed",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOrDefault(*configPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			c := newRouter(cfg).Classify(strings.Join(args, " "))

			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, c)
			}
			fmt.Fprintf(out, "type:       %s\n", c.Type)
			fmt.Fprintf(out, "confidence: %.2f\n", c.Confidence)
			if c.SuggestedTool != "" {
				fmt.Fprintf(out, "tool:       %s\n", c.SuggestedTool)
			}
			fmt.Fprintf(out, "reasoning:  %s\n", c.Reasoning)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the classification as JSON")
	return cmd
}

func newToolCmd() *cobra.Command {
	var tool string

	cmd := &cobra.Command{
		Use:   "tool <query>",
		Short: "Run a local tool against a query",
		Long: `Run a local tool against a query and print the result envelope as JSON.

Without --tool the tool is picked by the router; queries it would send to web
search are rejected.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")

			t := intent.Tool(tool)
			if t == "" {
				c := intent.NewClassifier().Classify(query)
				if c.Type != intent.KindTool {
					return fmt.Errorf("query is not a tool query (classified as %s)", c.Type)
				}
				t = c.SuggestedTool
			}

			res := intent.Dispatch(query, t)
			if err := writeJSON(cmd.OutOrStdout(), res); err != nil {
				return err
			}
			if !res.Success {
				return fmt.Errorf("%s: %s", res.Type, res.Error)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&tool, "tool", "", "tool to run (calculator, converter, formatter, generator)")
	_ = cmd.RegisterFlagCompletionFunc("tool", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return completeTools(toComplete)
	})
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
