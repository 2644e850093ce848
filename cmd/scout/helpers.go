package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/shahar-caura/scout/internal/config"
	"github.com/shahar-caura/scout/internal/intent"
	"github.com/shahar-caura/scout/internal/llm"
	"github.com/shahar-caura/scout/internal/pipeline"
	"github.com/shahar-caura/scout/internal/search"
	"github.com/shahar-caura/scout/internal/session"
)

// loadConfig loads env files, then the config at path or defaults if it
// does not exist.
func loadConfig(path string) (*config.Config, error) {
	config.LoadEnvFiles()
	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

func newRouter(cfg *config.Config) *intent.Classifier {
	if cfg.Router.MixedFirst {
		return intent.NewClassifier(intent.WithMixedFirst())
	}
	return intent.NewClassifier()
}

// --- Provider wiring ---

// clients holds the concrete collaborators built from a config.
type clients struct {
	router *intent.Classifier
	search *search.Exa
	llm    *llm.Client
	store  session.Store
}

// wireClients builds the search, LLM and store clients for cfg. The caller
// closes the store.
func wireClients(cfg *config.Config, logger *slog.Logger) (*clients, error) {
	st, err := session.Open(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("opening session store: %w", err)
	}
	return &clients{
		router: newRouter(cfg),
		search: search.New(cfg.Search),
		llm:    llm.New(cfg.LLM, logger),
		store:  st,
	}, nil
}

func (c *clients) providers() pipeline.Providers {
	return pipeline.Providers{Router: c.router, Search: c.search, LLM: c.llm, Store: c.store}
}

// --- Dynamic completions ---

func completeSessionIDs(configPath string, toComplete string) ([]string, cobra.ShellCompDirective) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	st, err := session.Open(cfg.Store)
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	defer st.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	all, err := st.List(ctx)
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	var ids []string
	for _, s := range all {
		if strings.HasPrefix(s.ID, toComplete) {
			ids = append(ids, fmt.Sprintf("%s\t%s", s.ID, s.Title))
		}
	}
	return ids, cobra.ShellCompDirectiveNoFileComp
}

func completeStyles(toComplete string) ([]string, cobra.ShellCompDirective) {
	var out []string
	for _, s := range llm.Styles {
		if strings.HasPrefix(string(s), toComplete) {
			out = append(out, string(s))
		}
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}

func completeTools(toComplete string) ([]string, cobra.ShellCompDirective) {
	var out []string
	for _, t := range []intent.Tool{intent.ToolCalculator, intent.ToolConverter, intent.ToolFormatter, intent.ToolGenerator} {
		if strings.HasPrefix(string(t), toComplete) {
			out = append(out, string(t))
		}
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}
