package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/artifacts"
	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/config"
	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/contextstore"
	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/db"
	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/documents"
	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/llm"
	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/logging"
	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/matters"
	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/metrics"
	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/middleware"
	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/notifications"
	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/orchestrator"
	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/toolcall"
	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/tools"
)

// app holds everything a command needs to run turns.
type app struct {
	cfg          *config.Config
	log          *zap.Logger
	db           *db.DB
	metrics      *metrics.Metrics
	matters      *matters.Store
	sweeper      *contextstore.SQLiteBackend
	orchestrator *orchestrator.Orchestrator
}

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `intake init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger builds the process logger from config and the --verbose flag.
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return logging.New(logging.Options{Level: cfg.Log.Level, JSON: cfg.Log.JSON, Verbose: verbose})
}

// newApp wires the orchestrator and its collaborators from config.
func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}

	database, err := db.Open(cfg.DBPath())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	a := &app{
		cfg:     cfg,
		log:     log,
		db:      database,
		metrics: metrics.New(prometheus.NewRegistry()),
		matters: matters.NewStore(database),
	}

	store, err := a.contextStore()
	if err != nil {
		database.Close()
		return nil, err
	}

	assistant, err := a.assistant()
	if err != nil {
		database.Close()
		return nil, err
	}

	renderer, err := artifacts.NewHTMLRenderer()
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("creating artifact renderer: %w", err)
	}
	artifactService := artifacts.NewService(renderer, artifacts.NewStore(database))

	if err := os.MkdirAll(cfg.UploadsDir, 0o755); err != nil {
		database.Close()
		return nil, fmt.Errorf("creating uploads directory: %w", err)
	}

	dispatcher := tools.NewDispatcher(tools.Deps{
		Matters:   a.matters,
		Notifier:  notifications.NewDispatcher(notifications.NewStore(database), cfg.Webhook, log),
		Artifacts: artifactService,
		Files:     documents.NewDirSource(cfg.UploadsDir),
		Extractor: documents.NewExtractor(cfg.ExtractionURL),
		Timeouts: tools.Timeouts{
			Submission: cfg.Timeouts.Submission,
			Effects:    cfg.Timeouts.Effects,
			Extraction: cfg.Timeouts.Extraction,
		},
		Logger: log,
	})
	dispatcher.OnDispatch = func(tool toolcall.Name, outcome string) {
		a.metrics.ToolDispatch(string(tool), outcome)
	}

	pipeline := middleware.New(log, middleware.Standard(artifactService, cfg.Timeouts.Effects, log)...)
	pipeline.OnStop = a.metrics.MiddlewareStop

	a.orchestrator, err = orchestrator.New(orchestrator.Deps{
		Store:     store,
		Assistant: assistant,
		Pipeline:  pipeline,
		Tools:     dispatcher,
		Teams:     cfg.Team,
		Observer:  a.metrics,
		Logger:    log,
	}, orchestrator.Options{
		AITimeout:         cfg.Timeouts.AI,
		SerializeSessions: cfg.SerializeSessions,
		Personas:          cfg.Personas,
	})
	if err != nil {
		database.Close()
		return nil, err
	}

	return a, nil
}

func (a *app) contextStore() (contextstore.Store, error) {
	var backend contextstore.Backend
	switch a.cfg.Store.Backend {
	case config.StoreMemory:
		mem, err := contextstore.NewMemoryBackend(a.cfg.Store.MemorySize)
		if err != nil {
			return nil, fmt.Errorf("creating memory store: %w", err)
		}
		backend = mem
	default:
		a.sweeper = contextstore.NewSQLiteBackend(a.db)
		backend = a.sweeper
	}
	return contextstore.New(backend, contextstore.Options{
		TTL:         a.cfg.Store.TTL,
		LoadTimeout: a.cfg.Timeouts.StoreLoad,
		SaveTimeout: a.cfg.Timeouts.StoreSave,
		Logger:      a.log,
	}), nil
}

func (a *app) assistant() (llm.Assistant, error) {
	provider, err := llm.NewProvider(llm.Settings{
		Type:    string(a.cfg.Provider),
		Model:   a.cfg.Model,
		BaseURL: a.cfg.LLM.BaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("creating LLM provider: %w", err)
	}
	if rpm := a.cfg.LLM.RequestsPerMinute; rpm > 0 {
		provider = llm.NewRateLimitedProvider(provider, rpm)
	}
	return llm.NewAssistant(provider, llm.AssistantOptions{
		Model:       a.cfg.Model,
		MaxTokens:   a.cfg.LLM.MaxTokens,
		Temperature: a.cfg.LLM.Temperature,
		Logger:      a.log,
		OnCall:      a.metrics.AICall,
	}), nil
}

// sweepExpired removes expired contexts from the SQLite store until ctx
// ends. The memory backend expires entries on read.
func (a *app) sweepExpired(ctx context.Context, every time.Duration) {
	if a.sweeper == nil {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := a.sweeper.Sweep(ctx)
			if err != nil {
				a.log.Warn("sweeping expired contexts failed", zap.Error(err))
				continue
			}
			if n > 0 {
				a.log.Debug("swept expired contexts", zap.Int64("count", n))
			}
		}
	}
}

func (a *app) Close() {
	_ = a.log.Sync()
	a.db.Close()
}
