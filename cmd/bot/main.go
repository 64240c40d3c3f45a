package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/SmartNewbieProject/sometimes-work-helper/internal/analyzer"
	"github.com/SmartNewbieProject/sometimes-work-helper/internal/dedup"
	"github.com/SmartNewbieProject/sometimes-work-helper/internal/jira"
	"github.com/SmartNewbieProject/sometimes-work-helper/internal/processor"
	"github.com/SmartNewbieProject/sometimes-work-helper/internal/server"
	"github.com/SmartNewbieProject/sometimes-work-helper/internal/slack"
	"github.com/SmartNewbieProject/sometimes-work-helper/pkg/config"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Load configuration
	cfg, err := config.LoadConfig("config.yaml")
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err), zap.String("path", "config.yaml"))
	}

	// Initialize the durable dedup store
	var store dedup.Store
	switch cfg.Dedup.Backend {
	case "redis":
		logger.Info("Using Redis dedup store")
		store, err = dedup.NewRedisStore(cfg.Dedup.RedisURL)
		if err != nil {
			logger.Fatal("Failed to initialize redis store", zap.Error(err))
		}
	case "postgres":
		logger.Info("Using PostgreSQL dedup store")
		store, err = dedup.NewPostgresStore(cfg.Dedup.Database)
		if err != nil {
			logger.Fatal("Failed to initialize postgres store", zap.Error(err))
		}
	default:
		logger.Info("Using in-memory dedup store")
		store = dedup.NewMemoryStore()
	}
	defer store.Close()

	filter := dedup.NewFilter(store, dedup.NewSeenSet(), logger)

	// Initialize collaborators
	chat := slack.New(slack.Options{
		BotToken:  cfg.Slack.BotToken,
		ChannelID: cfg.Slack.ChannelID,
	}, logger)

	tracker := jira.New(jira.Options{
		ServerURL:       cfg.Jira.ServerURL,
		User:            cfg.Jira.User,
		APIToken:        cfg.Jira.APIToken,
		ProjectKey:      cfg.Jira.ProjectKey,
		AssigneeMapping: cfg.Jira.AssigneeMapping,
	}, logger)

	gpt := analyzer.NewGPTAnalyzer(
		cfg.OpenAI.APIKey,
		cfg.OpenAI.Model,
		cfg.OpenAI.MaxTokens,
		cfg.OpenAI.Temperature,
		logger,
	)

	// Initialize the decision pipeline
	proc := processor.New(chat, tracker, gpt, filter, processor.Config{
		Lookback:            time.Duration(cfg.Processing.LookbackMinutes) * time.Minute,
		ConfidenceThreshold: cfg.Processing.ConfidenceThreshold,
		RecentTicketLimit:   cfg.Processing.RecentTicketLimit,
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Processing.PollEnabled {
		run := proc.ProcessRecentMessages
		if cfg.Processing.BatchMode {
			run = proc.ProcessBatch
		}
		poller := processor.NewPoller(run,
			time.Duration(cfg.Processing.PollIntervalMinutes)*time.Minute, logger)
		go poller.Start(ctx)
		defer poller.Stop()
	}

	// Start the HTTP surface
	srv := server.New(proc, dedup.NewSeenSet(), logger)
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	logger.Info("Starting server", zap.String("addr", addr))
	if err := srv.Router().Run(addr); err != nil {
		logger.Fatal("Server error", zap.Error(err))
	}
}
