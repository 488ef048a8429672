package main

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"concierge/internal/cascade"
	"concierge/internal/cli"
	"concierge/internal/config"
	"concierge/internal/guideline"
	"concierge/internal/llm_client"
	"concierge/internal/logger"
	"concierge/internal/matcher"
	"concierge/internal/planner"
	"concierge/internal/tools"
	"concierge/internal/worker"
)

func main() {
	_ = godotenv.Load()

	cfgPath := os.Getenv("CONCIERGE_CONFIG")
	if cfgPath == "" {
		cfgPath = "concierge.yaml"
	}
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("Fatal Error: Could not load config: %v", err)
	}

	if err := logger.Init(cfg.LogFile); err != nil {
		log.Fatalf("Fatal Error: Could not initialize logger: %v", err)
	}

	if err := llm_client.Init(llm_client.Config{
		Backend:    cfg.LLM.Backend,
		Model:      cfg.LLM.Model,
		OllamaHost: cfg.LLM.OllamaHost,
	}); err != nil {
		log.Fatalf("Fatal Error: Could not initialize LLM client: %v", err)
	}
	model := llm_client.AllowedModelOrDefault(cfg.LLM.Model)

	store, err := guideline.LoadStore(cfg.GuidelinesFile)
	if err != nil {
		log.Fatalf("Fatal Error: Could not load guidelines: %v", err)
	}

	registry, err := worker.LoadRegistry(cfg.WorkersFile)
	if err != nil {
		log.Fatalf("Fatal Error: Could not load worker catalog: %v", err)
	}

	gateway := tools.NewGateway()
	tools.RegisterDomainTools(gateway)

	m, err := matcher.New(store, model, cfg.Matcher.CacheSize)
	if err != nil {
		log.Fatalf("Fatal Error: Could not build matcher: %v", err)
	}

	executor := cascade.NewExecutor(registry, gateway, model).
		WithDependencyMode(cascade.DependencyMode(cfg.Cascade.DependencyMode)).
		WithTaskTimeout(time.Duration(cfg.Cascade.TaskTimeout))

	orch := cascade.NewOrchestrator(m, planner.New(registry, model), executor, model,
		cascade.WithThreshold(cfg.Matcher.Threshold),
		cascade.WithBatchSize(cfg.Matcher.BatchSize),
		cascade.WithStyleValidation(cfg.Cascade.StyleValidation),
	)

	cli.Configure(orch)
	cli.Execute()
}
