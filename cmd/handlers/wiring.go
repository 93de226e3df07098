package handlers

import (
	"fmt"
	"time"

	"autopress/internal/autopilot"
	"autopress/internal/config"
	"autopress/internal/images"
	"autopress/internal/llm"
	"autopress/internal/logger"
	"autopress/internal/pipeline"
	"autopress/internal/publish"
	"autopress/internal/research"
	"autopress/internal/search"
	"autopress/internal/store"
)

// buildRunner assembles a fully wired autopilot runner from configuration.
// The caller owns closing the returned store.
func buildRunner(cfg *config.Config) (*autopilot.Runner, *store.Store, error) {
	st, err := store.NewStore(cfg.App.DataDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open store: %w", err)
	}

	llmClient, err := llm.NewClient(cfg.AI.Gemini)
	if err != nil {
		_ = st.Close()
		return nil, nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	searchProvider := buildSearchProvider(cfg)
	imageProvider := buildImageProvider(cfg)

	// A nil *WebhookSink must stay a nil interface, or publishing would be
	// attempted against a sink that was never configured.
	var sink publish.Sink
	if webhook := publish.NewWebhookSink(cfg.Publish); webhook != nil {
		sink = webhook
	}

	generator := pipeline.NewGenerator(
		llmClient,
		searchProvider,
		imageProvider,
		config.Duration(cfg.Autopilot.StageTimeout, 90*time.Second),
		config.Duration(cfg.Autopilot.ResearchTimeout, 2*time.Minute),
	)
	refiller := research.NewRefiller(llmClient, searchProvider, cfg.Autopilot.RefillCap)

	runner := autopilot.NewRunner(st, generator, refiller, sink, autopilot.Config{
		ItemPause:           config.Duration(cfg.Autopilot.ItemPause, 2*time.Second),
		RefillCap:           cfg.Autopilot.RefillCap,
		MaxParallelProjects: cfg.Autopilot.MaxParallelProjects,
		StaleJobCutoff:      config.Duration(cfg.Autopilot.StaleJobCutoff, 2*time.Hour),
	})
	return runner, st, nil
}

// buildSearchProvider returns the configured search provider, or nil when
// search is disabled or misconfigured. Search is an optional collaborator;
// a broken provider degrades the pipeline rather than blocking it.
func buildSearchProvider(cfg *config.Config) search.Provider {
	name := cfg.Search.DefaultProvider
	if name == "" {
		return nil
	}
	provider, err := search.NewProvider(search.ProviderType(name), config.GetSearchProviderConfig(name))
	if err != nil {
		logger.Warn("search provider unavailable, SERP analysis will be skipped", "provider", name, "error", err.Error())
		return nil
	}
	return provider
}

// buildImageProvider returns the configured image provider, or nil when
// image sourcing is disabled or misconfigured.
func buildImageProvider(cfg *config.Config) images.Provider {
	provider, err := images.NewProvider(cfg.Images)
	if err != nil {
		logger.Warn("image provider unavailable, image sourcing will be skipped", "error", err.Error())
		return nil
	}
	return provider
}
