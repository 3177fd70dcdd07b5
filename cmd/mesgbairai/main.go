package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"mesgbairai/internal/api"
	"mesgbairai/internal/api/handlers"
	"mesgbairai/internal/repository"
	"mesgbairai/internal/service"
	"mesgbairai/pkg/config"
	"mesgbairai/pkg/logger"

	"go.uber.org/zap"
)

func main() {
	// Load configuration; missing API secrets are fatal before anything serves.
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	if err := logger.Init(cfg.Logger.Level); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	appLogger := logger.Get()
	appLogger.Info("Starting mesgbairai service")

	// Load persisted stores; unreadable files degrade to empty state.
	knowledgeRepo := repository.NewKnowledgeRepository(cfg.Storage.KnowledgeFile, appLogger)
	historyRepo := repository.NewHistoryRepository(cfg.Storage.HistoryFile, appLogger)
	appLogger.Info("Stores loaded",
		zap.Int("knowledge_entries", knowledgeRepo.Len()),
		zap.Int("history_turns", len(historyRepo.All())),
	)

	// External API clients
	searchService := service.NewSearchService(&cfg.SerpAPI, appLogger)
	llmService := service.NewLLMService(&cfg.HuggingFace, appLogger)

	detector := service.NewTruncationDetector(&cfg.Truncation)
	chatService := service.NewChatService(knowledgeRepo, historyRepo, searchService, llmService, detector, appLogger)

	chatHandler := handlers.NewChatHandler(chatService, appLogger)

	app := api.SetupRouter(chatHandler, appLogger)

	// Start server
	go func() {
		addr := ":" + cfg.Server.Port
		appLogger.Info("Server starting", zap.String("address", addr))
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server")
	if err := app.Shutdown(); err != nil {
		appLogger.Error("Server shutdown error", zap.Error(err))
	}
}
