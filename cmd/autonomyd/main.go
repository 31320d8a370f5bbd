// Package main is the entry point for autonomyd, the Autonomy Core
// daemon: it wires the Clock, Persistence Gateway, Process Supervisor,
// Tool Registry, Scheduler Engine, Intent Classifier, and Debate
// Dispatcher into one process and serves the admin HTTP surface,
// following the flag-parse, config-load, connect, init-observability,
// construct, serve, signal-shutdown composition-root shape common to
// this codebase's other daemons.
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"
	"time"

	"autonomy-core/internal/adminapi"
	"autonomy-core/internal/clock"
	"autonomy-core/internal/config"
	"autonomy-core/internal/debate"
	"autonomy-core/internal/eventlog"
	"autonomy-core/internal/intent"
	"autonomy-core/internal/llm"
	"autonomy-core/internal/logger"
	"autonomy-core/internal/memory"
	"autonomy-core/internal/observability"
	"autonomy-core/internal/scheduler"
	"autonomy-core/internal/store"
	"autonomy-core/internal/store/kv"
	"autonomy-core/internal/store/postgres"
	"autonomy-core/internal/supervisor"
	"autonomy-core/internal/supervisor/sandbox"
	"autonomy-core/internal/toolregistry"
)

func main() {
	// A re-exec of this same binary requesting the sandbox trampoline
	// (set by internal/supervisor when SandboxEnforce is on) never
	// reaches the rest of main: it applies the Landlock restriction and
	// hands off to the real tool server command via execve.
	sandbox.RunTrampolineIfRequested(logger.New("info"))

	migrateFlag := flag.Bool("migrate", false, "Run database migrations before starting")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logg := logger.New(cfg.LogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	relational, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logg.Error("connect to postgres", "err", err)
		return
	}
	defer relational.Close()

	if *migrateFlag {
		logg.Info("running database migrations")
		if err := postgres.Migrate(relational.DB()); err != nil {
			logg.Error("run migrations", "err", err)
			return
		}
	}

	kvStore, err := kv.New(cfg.RedisURL)
	if err != nil {
		logg.Error("connect to redis", "err", err)
		return
	}
	defer kvStore.Close()

	compositeGateway := store.NewComposite(relational, kvStore)

	eventWriter := eventlog.New(compositeGateway, logg, cfg.WorkflowEventQueueMaxSize)
	go eventWriter.Run(ctx)
	var gateway store.Gateway = eventlog.NewGateway(compositeGateway, eventWriter)

	shutdownTracer, err := observability.InitTracer(ctx, "autonomy-core", cfg.OTELCollectorAddr)
	if err != nil {
		logg.Error("init tracing", "err", err)
		return
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			logg.Error("shutdown tracer failed", "err", err)
		}
	}()

	metricsHandler, shutdownMetrics, err := observability.InitMetrics()
	if err != nil {
		logg.Error("init metrics", "err", err)
		return
	}
	defer func() {
		if err := shutdownMetrics(context.Background()); err != nil {
			logg.Error("shutdown metrics failed", "err", err)
		}
	}()

	sysClock := clock.New()

	supCfg := supervisor.Config{
		StartTimeout:  cfg.ToolServerStartTimeout,
		MaxRestarts:   cfg.ToolServerMaxRetries,
		RestartWindow: cfg.ToolServerRetryWindow,
	}
	if cfg.SandboxEnforce {
		supCfg.SandboxWorkspace = cfg.SandboxWorkspace
	}
	sup := supervisor.New(logg, supCfg)
	specs, err := config.LoadToolServerSpecs(cfg.MCPServersConfig)
	if err != nil {
		logg.Error("load mcp server specs", "err", err)
		return
	}
	sup.Boot(ctx, specs)
	defer sup.Shutdown(context.Background())

	registry := toolregistry.New(toolregistry.Adapt(sup))

	outbound := make(chan scheduler.Notification, 256)
	sched := scheduler.New(gateway, sysClock, registry, logg, scheduler.Config{
		TickInterval:            cfg.TickInterval,
		LockTTL:                 cfg.SchedulerLockTTL,
		HeartbeatInterval:       cfg.SchedulerHeartbeatInterval,
		StatePublishMinInterval: cfg.SchedulerStateMinPublishInterval,
		WorkflowHTTPTimeout:     cfg.WorkflowHTTPTimeout,
		WorkflowHTTPRetries:     cfg.WorkflowHTTPRetries,
		StepTimeBudget:          cfg.WorkflowStepTimeBudget,
		FailureBudget:           cfg.TaskFailureBudget,
	}, outbound)

	if err := sched.SeedFromOverlay(ctx, cfg.TaskOverlayConfig); err != nil {
		logg.Error("seed task overlay failed", "err", err)
	}

	var llmClient llm.Client
	if cfg.OpenAIAPIKey != "" {
		llmCfg := llm.Config{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.OpenAIModel,
		}
		if cfg.SecondaryOpenAIAPIKey != "" {
			llmCfg.Secondary = &llm.SecondaryConfig{
				APIKey:  cfg.SecondaryOpenAIAPIKey,
				BaseURL: cfg.SecondaryOpenAIBaseURL,
				Model:   cfg.SecondaryOpenAIModel,
			}
		}
		llmClient = llm.New(llmCfg)
	} else {
		logg.Warn("no OPENAI_API_KEY set, intent classification and debate fall back to canned behavior")
	}

	intentClassifier := intent.New(llmClient, gateway, cfg.ActionIntentThreshold)

	var memStore memory.Store = memory.NewInProcess()
	if cfg.MemoryServiceURL != "" {
		memStore = memory.NewGuarded(memory.NewHTTPStore(cfg.MemoryServiceURL, nil), memory.NewInProcess(), cfg.MemoryStrictMode, logg)
	}

	dispatcher := debate.New(llmClient, registry, gateway, logg, debate.Config{
		MaxSteps:           cfg.AutonomousMaxSteps,
		StepDeadline:       cfg.ToolCallTimeout,
		ReinforcementClamp: 0.05,
		SandboxWorkspace:   cfg.SandboxWorkspace,
		StepsPerMinute:     cfg.TelegramPublicRateLimitPerMinute,
	})

	handlers := adminapi.New(sched, sup, registry, gateway, memStore, intentClassifier, dispatcher, logg)
	adminServer := adminapi.NewServer(handlers, adminapi.Config{
		Addr:           cfg.HTTPAddr,
		StaticSecret:   cfg.SystemAdminSecret,
		JWTSecret:      cfg.AdminJWTSecret,
		MetricsHandler: metricsHandler,
	})

	go func() {
		logg.Info("scheduler starting")
		if err := sched.Run(ctx); err != nil {
			logg.Error("scheduler stopped", "err", err)
		}
	}()

	go func() {
		logg.Info("admin server starting", "addr", cfg.HTTPAddr)
		if err := adminServer.Run(ctx); err != nil {
			logg.Error("admin server stopped", "err", err)
		}
	}()

	<-ctx.Done()
	logg.Info("shutting down autonomyd")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := adminServer.Shutdown(shutdownCtx); err != nil {
		logg.Error("admin server forced shutdown", "err", err)
	}
	sup.Shutdown(shutdownCtx)
	eventWriter.Wait()
	logg.Info("autonomyd exited")
}
