package main

import (
	"log/slog"

	"github.com/kgarbacinski/AutoViralAI/internal/config"
	"github.com/kgarbacinski/AutoViralAI/internal/database"
	"github.com/kgarbacinski/AutoViralAI/internal/events"
	"github.com/kgarbacinski/AutoViralAI/internal/graph"
	"github.com/kgarbacinski/AutoViralAI/internal/knowledge"
	"github.com/kgarbacinski/AutoViralAI/internal/llm"
	"github.com/kgarbacinski/AutoViralAI/internal/orchestrator"
	"github.com/kgarbacinski/AutoViralAI/internal/pipeline"
	"github.com/kgarbacinski/AutoViralAI/internal/platform"
)

// app holds everything the commands need, wired once per invocation.
type app struct {
	cfg    *config.Config
	db     *database.DB
	kb     *knowledge.Base
	orch   *orchestrator.Orchestrator
	social platform.SocialClient
	bus    *events.Bus
}

func (a *app) close() {
	a.bus.Close()
	a.db.Close()
}

// buildApp opens the database and wires the adapters, pipelines, and
// orchestrator from the loaded config.
func buildApp(cfg *config.Config, opts ...orchestrator.Option) (*app, error) {
	db, err := database.OpenWithConfig(database.Config{
		Path:        cfg.Database.Path,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return nil, err
	}

	social, err := platform.NewSocialClient(cfg)
	if err != nil {
		db.Close()
		return nil, err
	}
	scraper, err := platform.NewScraper(cfg)
	if err != nil {
		db.Close()
		return nil, err
	}

	var llmClient llm.Client
	llmClient, err = llm.NewAnthropicClient(cfg.LLM)
	if err != nil {
		if cfg.Core.IsProduction() {
			db.Close()
			return nil, err
		}
		// Development runs work against mock adapters end to end.
		slog.Warn("no LLM credentials, using the mock client", "error", err)
		llmClient = llm.NewMockClient()
	}

	kb := knowledge.NewBase(db, cfg.Core.AccountID)
	deps := pipeline.Deps{
		LLM:            llmClient,
		KB:             kb,
		Social:         social,
		News:           platform.NewNewsClient(cfg),
		Scraper:        scraper,
		Embedder:       platform.NewHashEmbedder(),
		MaxRegenerates: cfg.Scheduler.MaxRegenerates,
		Logger:         slog.Default(),
	}

	bus := events.NewBus()
	opts = append(opts,
		orchestrator.WithBus(bus),
		orchestrator.WithLogger(slog.Default()),
		orchestrator.WithClosers(social),
	)
	orch, err := orchestrator.New(cfg, deps, db, graph.NewSQLiteCheckpointStore(db), opts...)
	if err != nil {
		social.Close()
		db.Close()
		return nil, err
	}

	return &app{cfg: cfg, db: db, kb: kb, orch: orch, social: social, bus: bus}, nil
}
