// Command autoheal runs the AI-assisted end-to-end test automation core as
// a standalone HTTP service.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/webqa/autoheal/pkg/analyser"
	"github.com/webqa/autoheal/pkg/api"
	"github.com/webqa/autoheal/pkg/config"
	"github.com/webqa/autoheal/pkg/driver"
	"github.com/webqa/autoheal/pkg/executor"
	"github.com/webqa/autoheal/pkg/impact"
	"github.com/webqa/autoheal/pkg/knowledge"
	"github.com/webqa/autoheal/pkg/livestatus"
	"github.com/webqa/autoheal/pkg/llmclient"
	"github.com/webqa/autoheal/pkg/orchestrator"
	"github.com/webqa/autoheal/pkg/plan"
	"github.com/webqa/autoheal/pkg/resolver"
	"github.com/webqa/autoheal/pkg/storage"
	"github.com/webqa/autoheal/pkg/suite"
	"github.com/webqa/autoheal/pkg/trigger"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to configuration directory")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("warning: could not load %s: %v", envPath, err)
	} else {
		log.Printf("loaded environment from %s", envPath)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		log.Fatalf("failed to initialize configuration: %v", err)
	}

	fs := storage.NewFSStore(cfg.Storage.Root)

	knowledgeStore, err := newKnowledgeStore(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to initialize knowledge store: %v", err)
	}

	embed, llm := newLLMClients(cfg)

	tracker := livestatus.New()
	feed := livestatus.NewChangeFeed(tracker)

	drivers := &driver.FakeFactory{}
	sel := resolver.New(knowledgeStore, embed, llm)
	an := analyser.New(knowledgeStore, embed, llm)
	impactAnalyser := impact.New(knowledgeStore, embed, llm)

	newExecutor := func(suiteID, planID string) *executor.Executor {
		return &executor.Executor{
			Drivers:   drivers,
			Resolver:  sel,
			Analyser:  an,
			Store:     knowledgeStore,
			Embed:     embed,
			Sink:      tracker.PlanSink(suiteID, planID),
			Artifacts: fs,
		}
	}

	planSource := func(_ context.Context, planID string) (*plan.Plan, error) {
		return fs.LoadPlan(planID)
	}
	orch := orchestrator.New(newExecutor, planSource)
	orch.Sink = tracker

	dispatch := func(dctx context.Context, suiteID string, execOpts suite.ExecutionOptions) error {
		suites, err := fs.ListSuites()
		if err != nil {
			return err
		}
		opts := orchestrator.DefaultOptions()
		if execOpts.Parallel {
			opts.Mode = orchestrator.ModeParallel
		}
		if execOpts.MaxConcurrent > 0 {
			opts.MaxConcurrent = execOpts.MaxConcurrent
		}
		results, err := orch.Run(dctx, suites, suiteID, nil, opts)
		if err != nil {
			return err
		}
		for _, r := range results {
			if r.Run != nil {
				if err := fs.SaveRunReport(r.Run); err != nil {
					return err
				}
			}
		}
		feed.Broadcast(suiteID)
		return nil
	}

	dispatcher := trigger.New(&triggerStoreAdapter{fs: fs}, dispatch, cfg.Trigger.HighWaterMark, cfg.Trigger.Workers)
	dispatcher.Start(ctx)
	defer dispatcher.Stop()

	server := api.NewServer(cfg, fs, newExecutor, orch, tracker, feed, knowledgeStore, embed, impactAnalyser, dispatcher)

	go sweepLiveStatus(ctx, tracker)

	addr := ":" + strconv.Itoa(cfg.Server.Port)
	log.Printf("autoheal listening on %s", addr)
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(addr)
	}()

	select {
	case <-ctx.Done():
		log.Println("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("error during shutdown: %v", err)
		}
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}
}

func newKnowledgeStore(ctx context.Context, cfg *config.Config) (knowledge.Store, error) {
	dsn := cfg.Storage.PostgresDSN
	if dsn == "" {
		slog.Info("knowledge store: no postgres DSN configured, using in-memory store")
		return knowledge.NewMemory(cfg.LLM.EmbeddingDims), nil
	}
	pool, err := storage.Open(ctx, storage.Config{DSN: dsn})
	if err != nil {
		return nil, err
	}
	return knowledge.NewPostgres(pool, cfg.LLM.EmbeddingDims), nil
}

func newLLMClients(cfg *config.Config) (llmclient.EmbeddingClient, llmclient.Client) {
	if cfg.LLM.BaseURL == "" || cfg.LLM.APIKey == "" {
		slog.Info("llm: no base_url/api_key configured, using fake client")
		fake := llmclient.NewFake()
		return fake, fake
	}
	httpClient := llmclient.NewHTTPClient(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Model,
		cfg.LLM.EmbeddingEndpoint, cfg.LLM.EmbeddingModel, cfg.LLM.EmbeddingDims)
	return httpClient, httpClient
}

func sweepLiveStatus(ctx context.Context, tracker *livestatus.Tracker) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tracker.Sweep()
		}
	}
}
