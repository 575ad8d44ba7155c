package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/agente-usados/server/internal/agent"
	"github.com/agente-usados/server/internal/conversation"
	"github.com/agente-usados/server/internal/core"
	"github.com/agente-usados/server/internal/faq"
	"github.com/agente-usados/server/internal/finance"
	"github.com/agente-usados/server/internal/leads"
	"github.com/agente-usados/server/internal/server"
	"github.com/agente-usados/server/internal/stock"
	logx "github.com/agente-usados/server/pkg/logger"
	pkgredis "github.com/agente-usados/server/pkg/redis"
)

// AppConfig defines all configurable parameters for the service, sourced
// from environment variables (loaded from .env for local runs).
type AppConfig struct {
	Environment core.Environment `envconfig:"APP_ENV" default:"development"`

	// Infrastructure
	Redis  pkgredis.Config
	Server server.Config

	// LLM provider
	APIKey  string `envconfig:"GEMINI_API_KEY" required:"true"`
	BaseURL string `envconfig:"GEMINI_BASE_URL"`

	// Agent configs
	Agent    agent.ModelConfig
	Topic    agent.TopicModelConfig
	AgentCfg agent.AgentConfig

	// Domain
	Finance finance.Config

	// Storage paths and TTLs
	StockDB         string        `envconfig:"STOCK_DB" default:"stock.db"`
	StockCSV        string        `envconfig:"STOCK_CSV" default:"stock.csv"`
	LeadsDB         string        `envconfig:"LEADS_DB" default:"leads.db"`
	ConversationTTL time.Duration `envconfig:"CONVERSATION_TTL" default:"24h"`
	FAQTTL          time.Duration `envconfig:"FAQ_TTL" default:"168h"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(".env"); err != nil {
		fmt.Println("Warning: could not load .env file, using process environment")
	}

	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		logx.Fatal().Err(err).Msg("Failed to process environment config")
	}

	logx.Init(logx.LoggerOpts{Environment: cfg.Environment})

	rdb := cfg.Redis.MustNew()
	defer rdb.Close()
	logx.Info().Msg("Connected to Redis")

	stockRepo, err := stock.Open(cfg.StockDB)
	if err != nil {
		logx.Fatal().Err(err).Str("path", cfg.StockDB).Msg("Failed to open stock database")
	}
	defer stockRepo.Close()

	if n, err := stock.LoadCSV(ctx, stockRepo, cfg.StockCSV); err != nil {
		logx.Warn().Err(err).Str("path", cfg.StockCSV).Msg("Initial stock load failed, serving existing inventory")
	} else {
		logx.Info().Int("vehicles", n).Msg("Stock loaded")
	}

	watcher, err := stock.NewWatcher(stockRepo, cfg.StockCSV)
	if err != nil {
		logx.Warn().Err(err).Msg("Stock watcher unavailable, file changes need a restart")
	} else {
		go watcher.Run(ctx)
	}

	leadStore, err := leads.Open(cfg.LeadsDB)
	if err != nil {
		logx.Fatal().Err(err).Str("path", cfg.LeadsDB).Msg("Failed to open leads database")
	}
	defer leadStore.Close()

	models, err := agent.NewChatModels(ctx, agent.ChatModelConfig{
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.BaseURL,
		AgentConfig: &cfg.Agent,
		TopicConfig: &cfg.Topic,
	})
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to create chat models")
	}

	orchestrator, err := agent.NewOrchestrator(ctx, agent.Options{
		Repo:     conversation.NewRedisRepository(rdb, cfg.ConversationTTL),
		Stock:    stockRepo,
		Leads:    leadStore,
		FAQ:      faq.New(rdb, cfg.FAQTTL),
		Engine:   finance.NewEngine(cfg.Finance),
		Models:   models,
		MaxSteps: cfg.AgentCfg.MaxSteps,
	})
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to build orchestrator")
	}

	health := func(ctx context.Context) map[string]string {
		status := map[string]string{}
		if err := rdb.Ping(ctx).Err(); err != nil {
			status["redis"] = "error"
		} else {
			status["redis"] = "ok"
		}
		if summary, err := stockRepo.Summary(ctx); err != nil {
			status["stock"] = "error"
		} else {
			status["stock"] = fmt.Sprintf("%d vehicles", summary.Total)
		}
		return status
	}

	srv := server.New(cfg.Server, orchestrator, health)
	if err := srv.Start(ctx); err != nil {
		logx.Fatal().Err(err).Msg("HTTP server failed")
	}
	logx.Info().Msg("Shutdown complete")
}
