package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/shahar-caura/scout/internal/pipeline"
	"github.com/shahar-caura/scout/internal/session"
)

func newSessionsCmd(logger *slog.Logger, configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sessions",
		Aliases: []string{"session"},
		Short:   "Manage research sessions",
	}

	var complete cobra.CompletionFunc = func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if len(args) != 0 {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		return completeSessionIDs(*configPath, toComplete)
	}

	cmd.AddCommand(
		newSessionsListCmd(configPath),
		newSessionsShowCmd(configPath, complete),
		newSessionsDeleteCmd(configPath, complete),
		newSessionsClearCmd(configPath),
		newSessionsCleanupCmd(logger, configPath),
	)
	return cmd
}

// openStore loads config and opens the configured session store.
func openStore(configPath string) (session.Store, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	st, err := session.Open(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("opening session store: %w", err)
	}
	return st, nil
}

func newSessionsListCmd(configPath *string) *cobra.Command {
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sessions, most recently updated first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(*configPath)
			if err != nil {
				return err
			}
			defer st.Close()

			all, err := st.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("listing sessions: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(all) == 0 {
				fmt.Fprintln(out, "No sessions found.")
				return nil
			}

			fmt.Fprintf(out, "%-36s  %-8s  %-16s  %s\n", "ID", "MESSAGES", "UPDATED", "TITLE")
			for _, s := range session.Page(all, limit, offset) {
				fmt.Fprintf(out, "%-36s  %-8d  %-16s  %s\n",
					s.ID,
					s.MessageCount,
					s.UpdatedAt.Local().Format("2006-01-02 15:04"),
					s.Title,
				)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum sessions to show (0 for all)")
	cmd.Flags().IntVar(&offset, "offset", 0, "sessions to skip")
	return cmd
}

func newSessionsShowCmd(configPath *string, complete cobra.CompletionFunc) *cobra.Command {
	return &cobra.Command{
		Use:               "show <id>",
		Short:             "Print a session transcript",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: complete,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(*configPath)
			if err != nil {
				return err
			}
			defer st.Close()

			s, err := session.Find(cmd.Context(), st, args[0])
			if err != nil {
				return fmt.Errorf("finding session %q: %w", args[0], err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s  (%s)\n", s.Title, s.ID)
			fmt.Fprintf(out, "created %s, updated %s\n",
				s.CreatedAt.Local().Format(time.DateTime),
				s.UpdatedAt.Local().Format(time.DateTime))

			for _, m := range s.Messages {
				fmt.Fprintf(out, "\n[%s] %s\n", m.Role, m.Timestamp.Local().Format(time.Kitchen))
				fmt.Fprintln(out, m.Content)
				printSources(out, m.Sources)

				var qs []string
				for _, q := range s.RelatedTo(m.ID) {
					qs = append(qs, q.Text)
				}
				printQuestions(out, qs)
			}

			if len(s.Bookmarks) > 0 {
				fmt.Fprintln(out, "\nBookmarks:")
				for _, b := range s.Bookmarks {
					fmt.Fprintf(out, "  * %s\n", b.Title)
				}
			}
			if len(s.Highlights) > 0 {
				fmt.Fprintln(out, "\nHighlights:")
				for _, h := range s.Highlights {
					fmt.Fprintf(out, "  %q\n", h.Text)
				}
			}
			return nil
		},
	}
}

func newSessionsDeleteCmd(configPath *string, complete cobra.CompletionFunc) *cobra.Command {
	return &cobra.Command{
		Use:               "delete <id>",
		Short:             "Delete a session",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: complete,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(*configPath)
			if err != nil {
				return err
			}
			defer st.Close()

			s, err := session.Find(cmd.Context(), st, args[0])
			if err != nil {
				return fmt.Errorf("finding session %q: %w", args[0], err)
			}
			if err := st.Delete(cmd.Context(), s.ID); err != nil {
				return fmt.Errorf("deleting session: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", s.ID)
			return nil
		},
	}
}

func newSessionsClearCmd(configPath *string) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to delete all sessions without --yes")
			}
			st, err := openStore(*configPath)
			if err != nil {
				return err
			}
			defer st.Close()

			n, err := st.DeleteAll(cmd.Context())
			if err != nil {
				return fmt.Errorf("deleting sessions: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d sessions\n", n)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm deletion")
	return cmd
}

func newSessionsCleanupCmd(logger *slog.Logger, configPath *string) *cobra.Command {
	var retention time.Duration

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete sessions not updated within the retention period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if retention == 0 {
				retention = cfg.Store.Retention.Duration
			}
			st, err := session.Open(cfg.Store)
			if err != nil {
				return fmt.Errorf("opening session store: %w", err)
			}
			defer st.Close()

			n, err := pipeline.CleanupSessions(cmd.Context(), st, retention, logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d expired sessions\n", n)
			return nil
		},
	}

	cmd.Flags().DurationVar(&retention, "retention", 0, "override store.retention")
	return cmd
}
