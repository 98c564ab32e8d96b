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

	"github.com/joho/godotenv"
	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/profile-twin/chatbot/internal/api"
	"github.com/profile-twin/chatbot/internal/config"
	"github.com/profile-twin/chatbot/internal/conversation"
	"github.com/profile-twin/chatbot/internal/docs"
	"github.com/profile-twin/chatbot/internal/llm"
	"github.com/profile-twin/chatbot/internal/llm/anthropic"
	"github.com/profile-twin/chatbot/internal/llm/gemini"
	"github.com/profile-twin/chatbot/internal/llm/ollama"
	"github.com/profile-twin/chatbot/internal/llm/openai"
	"github.com/profile-twin/chatbot/internal/repository/objectstore"
	"github.com/profile-twin/chatbot/internal/repository/redis"
	"github.com/profile-twin/chatbot/internal/security"
	"github.com/profile-twin/chatbot/internal/service"
)

func main() {
	// Load .env file - try multiple locations
	envPaths := []string{".env", "../.env", "../../.env"}
	for _, p := range envPaths {
		if err := godotenv.Load(p); err == nil {
			fmt.Printf("Loaded .env from: %s\n", p)
			break
		}
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	setupLogger(cfg)

	log.Info().
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Str("environment", cfg.Server.Environment).
		Msg("Starting profile chatbot API server")

	ctx := context.Background()

	// Conversations go to a single backend; documents are assembled
	// remote-then-local so a partial S3 upload still falls back to files
	// shipped with the deployment.
	memoryStore, docSources, err := buildStorage(ctx, cfg.Storage)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize storage")
	}

	// Guard state
	var guardState security.StateStore
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer redisClient.Close()
		guardState = redis.NewStateStore(redisClient)
		log.Info().Str("addr", cfg.Redis.Addr()).Msg("Guard state backed by Redis")
	} else {
		guardState = security.NewMemoryStore()
		log.Info().Msg("Guard state held in memory")
	}

	guard := security.NewGuard(guardState, security.Limits{
		MaxRequestsPerSession: cfg.Security.MaxRequestsPerSession,
		RateWindow:            cfg.Security.RateWindow,
		MaxSessionsPerClient:  cfg.Security.MaxSessionsPerClient,
		MaxTokensPerSession:   cfg.Security.MaxTokensPerSession,
	})

	// Initialize LLM Router with providers
	llmRouter := llm.NewRouter(cfg.LLM.DefaultProvider)
	log.Info().Msgf("Initializing LLM providers. Default: %s", cfg.LLM.DefaultProvider)

	if cfg.LLM.Ollama.Host != "" {
		log.Info().Str("host", cfg.LLM.Ollama.Host).Msg("Registering Ollama provider")
		llmRouter.RegisterProvider(ollama.NewProvider(cfg.LLM.Ollama.Host, cfg.LLM.Ollama.DefaultModel))
	}
	if cfg.LLM.OpenAI.APIKey != "" {
		llmRouter.RegisterProvider(openai.NewProvider(cfg.LLM.OpenAI.APIKey, cfg.LLM.OpenAI.Model))
	}
	if cfg.LLM.Anthropic.APIKey != "" {
		llmRouter.RegisterProvider(anthropic.NewProvider(cfg.LLM.Anthropic.APIKey, cfg.LLM.Anthropic.Model))
	}
	if cfg.LLM.Gemini.APIKey != "" {
		llmRouter.RegisterProvider(gemini.NewProvider(cfg.LLM.Gemini))
	}

	chatService := service.NewChatService(
		guard,
		security.NewJailbreakDetector(),
		conversation.NewStore(memoryStore),
		docs.NewAssembler(docSources, docs.NewPDFExtractor()),
		llmRouter,
		cfg.Chat,
		cfg.Security.SessionMaxAge,
	)

	router := api.NewRouter(cfg, chatService)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Msgf("Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}

// setupLogger configures zerolog: console output outside production, an
// optional rotating file sink when logging.file is set.
func setupLogger(cfg *config.Config) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	if level, err := zerolog.ParseLevel(cfg.Logging.Level); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	var writers []io.Writer
	if cfg.Server.Environment != "production" {
		writers = append(writers, zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		writers = append(writers, os.Stderr)
	}

	if cfg.Logging.File != "" {
		fileWriter, err := rotatelogs.New(
			cfg.Logging.File+".%Y%m%d",
			rotatelogs.WithLinkName(cfg.Logging.File),
			rotatelogs.WithRotationTime(24*time.Hour),
			rotatelogs.WithMaxAge(7*24*time.Hour),
		)
		if err != nil {
			log.Error().Err(err).Str("file", cfg.Logging.File).Msg("Failed to open log file, logging to stderr only")
		} else {
			writers = append(writers, fileWriter)
		}
	}

	log.Logger = log.Output(zerolog.MultiLevelWriter(writers...))
}

// buildStorage returns the conversation backend and the ordered document
// sources. With S3 enabled, documents prefer the bucket and fall back to
// the local data directory.
func buildStorage(ctx context.Context, cfg config.StorageConfig) (objectstore.Store, []objectstore.Store, error) {
	local := objectstore.NewLocalStore(cfg.LocalDir)

	if !cfg.UseS3 || cfg.Bucket == "" {
		log.Info().Str("dir", cfg.LocalDir).Msg("Using local object storage")
		return local, []objectstore.Store{local}, nil
	}

	s3Store, err := objectstore.NewS3Store(ctx, objectstore.S3Options{
		Bucket:    cfg.Bucket,
		Region:    cfg.Region,
		Endpoint:  cfg.Endpoint,
		AccessKey: cfg.AccessKey,
		SecretKey: cfg.SecretKey,
	})
	if err != nil {
		return nil, nil, err
	}

	log.Info().Str("bucket", cfg.Bucket).Str("region", cfg.Region).Msg("Using S3 object storage")
	return s3Store, []objectstore.Store{s3Store, local}, nil
}
