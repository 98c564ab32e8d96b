package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Redis    RedisConfig    `mapstructure:"redis"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Security SecurityConfig `mapstructure:"security"`
	Chat     ChatConfig     `mapstructure:"chat"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Environment     string        `mapstructure:"environment"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// StorageConfig selects the backing store for conversations and profile
// documents: S3 when use_s3 and a bucket are set, local directories
// otherwise.
type StorageConfig struct {
	UseS3     bool   `mapstructure:"use_s3"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	LocalDir  string `mapstructure:"local_dir"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type LLMConfig struct {
	DefaultProvider string          `mapstructure:"default_provider"`
	OpenAI          OpenAIConfig    `mapstructure:"openai"`
	Anthropic       AnthropicConfig `mapstructure:"anthropic"`
	Gemini          GeminiConfig    `mapstructure:"gemini"`
	Ollama          OllamaConfig    `mapstructure:"ollama"`
}

type OpenAIConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type AnthropicConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type OllamaConfig struct {
	Host         string `mapstructure:"host"`
	DefaultModel string `mapstructure:"default_model"`
}

// SecurityConfig holds the abuse-control ceilings. All windows and limits
// apply per session or per client address, never globally.
type SecurityConfig struct {
	MaxRequestsPerSession int           `mapstructure:"max_requests_per_session"`
	RateWindow            time.Duration `mapstructure:"rate_window"`
	MaxSessionsPerClient  int           `mapstructure:"max_sessions_per_client"`
	SessionMaxAge         time.Duration `mapstructure:"session_max_age"`
	MaxTokensPerSession   int           `mapstructure:"max_tokens_per_session"`
}

type ChatConfig struct {
	SystemPrompt    string  `mapstructure:"system_prompt"`
	HistoryWindow   int     `mapstructure:"history_window"`
	MaxOutputTokens int     `mapstructure:"max_output_tokens"`
	Temperature     float64 `mapstructure:"temperature"`
	TopP            float64 `mapstructure:"top_p"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

const defaultSystemPrompt = `You are an AI assistant representing a professional based on their resume/profile.
Answer questions about their experience, skills, projects, and background in a helpful and professional manner.
Keep responses concise and relevant. If asked about something not in the resume, politely say you don't have that information.`

// Load reads configuration from file and environment variables
func Load() (*Config, error) {
	v := viper.New()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./configs/config.yaml"
	}

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults and env vars
	}

	v.AutomaticEnv()
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.request_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "10s")

	// Storage
	v.SetDefault("storage.use_s3", false)
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.local_dir", "data")

	// Redis
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)

	// LLM
	v.SetDefault("llm.default_provider", "openai")
	v.SetDefault("llm.ollama.default_model", "llama3")

	// Security
	v.SetDefault("security.max_requests_per_session", 20)
	v.SetDefault("security.rate_window", "1h")
	v.SetDefault("security.max_sessions_per_client", 5)
	v.SetDefault("security.session_max_age", "24h")
	v.SetDefault("security.max_tokens_per_session", 10000)

	// Chat
	v.SetDefault("chat.system_prompt", defaultSystemPrompt)
	v.SetDefault("chat.history_window", 20)
	v.SetDefault("chat.max_output_tokens", 1000)
	v.SetDefault("chat.temperature", 0.7)
	v.SetDefault("chat.top_p", 0.9)

	// Logging
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file", "")
}

func bindEnvVars(v *viper.Viper) {
	// Server
	v.BindEnv("server.environment", "ENVIRONMENT")
	v.BindEnv("server.cors_origins", "CORS_ORIGINS")

	// Storage
	v.BindEnv("storage.use_s3", "USE_S3")
	v.BindEnv("storage.bucket", "S3_MEMORY_BUCKET")
	v.BindEnv("storage.region", "AWS_REGION")
	v.BindEnv("storage.endpoint", "S3_ENDPOINT")
	v.BindEnv("storage.access_key", "S3_ACCESS_KEY")
	v.BindEnv("storage.secret_key", "S3_SECRET_KEY")

	// Redis
	v.BindEnv("redis.enabled", "REDIS_ENABLED")
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	// LLM API keys
	v.BindEnv("llm.openai.api_key", "OPENAI_API_KEY")
	v.BindEnv("llm.anthropic.api_key", "ANTHROPIC_API_KEY")
	v.BindEnv("llm.gemini.api_key", "GEMINI_API_KEY")
	v.BindEnv("llm.ollama.host", "OLLAMA_HOST")

	// Abuse controls
	v.BindEnv("security.max_requests_per_session", "MAX_REQUESTS_PER_SESSION")
	v.BindEnv("security.max_sessions_per_client", "MAX_SESSIONS_PER_IP")
	v.BindEnv("security.max_tokens_per_session", "MAX_TOKENS_PER_SESSION")
	v.BindEnv("chat.max_output_tokens", "MAX_TOKENS_PER_REQUEST")
}
