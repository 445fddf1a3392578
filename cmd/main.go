package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/satriahrh/voxlate/adapters/cache"
	"github.com/satriahrh/voxlate/adapters/capture"
	"github.com/satriahrh/voxlate/adapters/csvexport"
	"github.com/satriahrh/voxlate/adapters/llm"
	"github.com/satriahrh/voxlate/adapters/memory"
	"github.com/satriahrh/voxlate/adapters/mongo"
	"github.com/satriahrh/voxlate/adapters/stt"
	"github.com/satriahrh/voxlate/domain/repositories"
	"github.com/satriahrh/voxlate/internal/api"
	"github.com/satriahrh/voxlate/internal/auth"
	"github.com/satriahrh/voxlate/internal/config"
	"github.com/satriahrh/voxlate/internal/websocket"
	"github.com/satriahrh/voxlate/internal/workflow/summary"
	"github.com/satriahrh/voxlate/usecase"
)

// languageModel is what every text provider offers
type languageModel interface {
	repositories.TextGenerator
	repositories.ModelCatalog
}

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := newLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var closers []io.Closer

	// Initialize adapters
	source, err := newAudioSource(cfg.Audio, logger)
	if err != nil {
		logger.Fatal("Failed to initialize audio backend", zap.Error(err))
	}
	if c, ok := source.(io.Closer); ok {
		closers = append(closers, c)
	}

	speechToText, err := newSpeechToText(ctx, cfg.STT, logger)
	if err != nil {
		logger.Fatal("Failed to initialize speech-to-text", zap.Error(err))
	}
	if c, ok := speechToText.(io.Closer); ok {
		closers = append(closers, c)
	}

	translator, err := newLanguageModel(ctx, cfg.LLM.Provider, cfg.LLM, logger)
	if err != nil {
		logger.Fatal("Failed to initialize translation model", zap.Error(err))
	}

	summarizerModel, err := newSummaryModel(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize summary model", zap.Error(err))
	}

	var translationCache repositories.TranslationCache
	if cfg.Storage.Cache.Enabled {
		c, err := cache.NewTranslationCache(cache.Config{Dir: cfg.Storage.Cache.Dir, TTL: cfg.Storage.Cache.TTL}, logger)
		if err != nil {
			logger.Fatal("Failed to open translation cache", zap.Error(err))
		}
		translationCache = c
		closers = append(closers, c)
	}

	archive, mongoClient := newArchive(ctx, cfg.Storage, logger)

	summarizer := summary.NewService(summarizerModel, summarizerModel, summary.Config{
		ReasoningModel: cfg.Summary.ReasoningModel,
		ResponseModel:  cfg.Summary.ResponseModel,
		Temperature:    cfg.Summary.Temperature,
		Timeout:        cfg.Summary.Timeout,
		ModelTimeout:   cfg.Summary.ModelTimeout,
	}, logger)

	// Initialize WebSocket hub
	hub := websocket.NewHub(logger)
	go hub.Run(ctx)

	// Initialize usecase services
	sessionService := usecase.NewSessionService(usecase.SessionServiceDeps{
		Source:             source,
		STT:                speechToText,
		Translator:         translator,
		Catalog:            translator,
		Summarizer:         summarizer,
		Cache:              translationCache,
		Archive:            archive,
		Exporter:           csvexport.NewExporter(cfg.Storage.ExportDir, logger),
		Publisher:          hub,
		STTTimeout:         cfg.STT.Timeout,
		TranslationTimeout: cfg.Translation.Timeout,
		BufferCapacity:     cfg.Audio.BufferCapacity,
		PollInterval:       cfg.Audio.PollInterval,
	}, logger)
	sessionService.StartEventForwarding(ctx)
	hub.SetSnapshotProvider(sessionService.StateEvent)

	levelTicker := websocket.NewLevelTicker(sessionService, hub, websocket.DefaultLevelInterval, logger)
	levelTicker.Start()

	var tokens *auth.TokenManager
	if cfg.Auth.Enabled() {
		tokens = auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.APIKey, cfg.Auth.TokenTTL)
	}

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Initialize API routes
	api.InitRoutes(e, sessionService, hub, tokens, logger)

	// Graceful shutdown
	go func() {
		if err := e.Start(":" + cfg.Server.Port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("shutting down the server", zap.Error(err))
		}
	}()

	logger.Info("Server started",
		zap.String("port", cfg.Server.Port),
		zap.String("audio_backend", cfg.Audio.Backend),
		zap.String("stt_provider", cfg.STT.Provider),
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.String("summary_provider", cfg.Summary.Provider),
		zap.Bool("auth", tokens != nil))

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Server is shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	levelTicker.Stop()
	sessionService.Shutdown(shutdownCtx)
	cancel()

	for _, c := range closers {
		if err := c.Close(); err != nil {
			logger.Warn("Failed to close resource", zap.Error(err))
		}
	}
	if mongoClient != nil {
		mongoClient.Close(shutdownCtx)
	}

	logger.Info("Server exited")
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	zapConfig := zap.NewProductionConfig()
	if cfg.Development {
		zapConfig = zap.NewDevelopmentConfig()
	}

	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	zapConfig.Level = level

	return zapConfig.Build()
}

func newAudioSource(cfg config.AudioConfig, logger *zap.Logger) (repositories.AudioSource, error) {
	switch cfg.Backend {
	case "malgo":
		return capture.NewMalgoSource(logger)
	case "wav":
		return capture.NewWAVFileSource(capture.WAVFileConfig{
			Path:  cfg.WAV.Path,
			Loop:  cfg.WAV.Loop,
			Speed: cfg.WAV.Speed,
		}, logger)
	default:
		return capture.NewPortAudioSource(logger)
	}
}

func newSpeechToText(ctx context.Context, cfg config.STTConfig, logger *zap.Logger) (repositories.SpeechToText, error) {
	switch cfg.Provider {
	case "google":
		return stt.NewGoogleSpeechToText(ctx, logger)
	case "mock":
		logger.Warn("Using scripted speech-to-text")
		return stt.NewScriptedSpeechToText(logger, "this is a scripted transcription"), nil
	default:
		return stt.NewOpenAISpeechToText(stt.OpenAIConfig{
			APIKey:  cfg.OpenAI.APIKey,
			BaseURL: cfg.OpenAI.BaseURL,
			Model:   cfg.OpenAI.Model,
			Timeout: cfg.Timeout,
		}, logger)
	}
}

func newLanguageModel(ctx context.Context, provider string, cfg config.LLMConfig, logger *zap.Logger) (languageModel, error) {
	switch provider {
	case "gemini":
		return llm.NewGeminiLLM(ctx, llm.GeminiConfig{
			APIKey:  cfg.Gemini.APIKey,
			BaseURL: cfg.Gemini.BaseURL,
			Model:   cfg.Gemini.Model,
			Timeout: cfg.Timeout,
		}, logger)
	case "openai":
		return llm.NewOpenAILLM(llm.OpenAIConfig{
			APIKey:  cfg.OpenAI.APIKey,
			BaseURL: cfg.OpenAI.BaseURL,
			Model:   cfg.OpenAI.Model,
			Timeout: cfg.Timeout,
		}, logger)
	case "mock":
		logger.Warn("Using scripted language model")
		return llm.NewScriptedLLM("[mock] translation").
			On("template selection expert", "architecture: scripted"), nil
	default:
		return llm.NewOllamaLLM(llm.OllamaConfig{
			BaseURL: cfg.Ollama.BaseURL,
			Model:   cfg.Ollama.Model,
			Timeout: cfg.Timeout,
		}, logger)
	}
}

// newSummaryModel builds a dedicated client for the summary workflow. Its transport
// timeout is summary.model_timeout, never the shorter translation timeout.
func newSummaryModel(ctx context.Context, cfg *config.Config, logger *zap.Logger) (languageModel, error) {
	llmConfig := cfg.LLM
	llmConfig.Timeout = cfg.Summary.ModelTimeout
	return newLanguageModel(ctx, cfg.Summary.Provider, llmConfig, logger)
}

// newArchive connects to MongoDB when configured and falls back to memory otherwise
func newArchive(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (repositories.SessionRepository, *mongo.Client) {
	if cfg.MongoDBURI == "" {
		logger.Info("MongoDB not configured, archiving sessions in memory")
		return memory.NewSessionRepository(), nil
	}

	client, err := mongo.NewClient(ctx, mongo.Config{URI: cfg.MongoDBURI, Database: cfg.MongoDBDatabase}, logger)
	if err != nil {
		logger.Warn("MongoDB unavailable, archiving sessions in memory", zap.Error(err))
		return memory.NewSessionRepository(), nil
	}

	repo := mongo.NewSessionRepository(client.Database, logger)
	if err := repo.EnsureIndexes(ctx); err != nil {
		logger.Warn("Failed to ensure session indexes", zap.Error(err))
	}
	return repo, client
}
