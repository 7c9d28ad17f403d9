package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/cobra"
)

type Config struct {
	Server       ServerConfig       `koanf:"server"`
	Models       ModelsConfig       `koanf:"models"`
	Orchestrator OrchestratorConfig `koanf:"orchestrator"`
	Conversation ConversationConfig `koanf:"conversation"`
	Tools        ToolsConfig        `koanf:"tools"`
	Database     DatabaseConfig     `koanf:"database"`
	Ingress      IngressConfig      `koanf:"ingress"`
	Maintenance  MaintenanceConfig  `koanf:"maintenance"`
	Adapters     AdaptersConfig     `koanf:"adapters"`
}

type ServerConfig struct {
	LogLevel        string `koanf:"log_level"`
	LogFile         string `koanf:"log_file"`
	DataDir         string `koanf:"data_dir"`
	ShutdownTimeout string `koanf:"shutdown_timeout"`
	// HealthAddr is where serve exposes GET /health. Empty disables it.
	HealthAddr string `koanf:"health_addr"`
}

type ModelsConfig struct {
	Default             string          `koanf:"default"`
	Fallback            string          `koanf:"fallback"`
	EmbeddingModel      string          `koanf:"embedding_model"`
	Temperature         float64         `koanf:"temperature"`
	MaxTokens           int             `koanf:"max_tokens"`
	RequestTimeout      string          `koanf:"request_timeout"`
	MaxFallbackAttempts int             `koanf:"max_fallback_attempts"`
	Registry            []ModelRegistry `koanf:"registry"`
}

type ModelRegistry struct {
	Name     string `koanf:"name"`
	Provider string `koanf:"provider"`
	BaseURL  string `koanf:"base_url"`
	APIKey   string `koanf:"api_key"`
}

type OrchestratorConfig struct {
	MaxIterations   int    `koanf:"max_iterations"`
	TurnTimeout     string `koanf:"turn_timeout"`
	ParallelTools   bool   `koanf:"parallel_tools"`
	DefaultLocation string `koanf:"default_location"`
}

type ConversationConfig struct {
	Backend          string `koanf:"backend"`
	MaxHistory       int    `koanf:"max_history"`
	PersistAssistant bool   `koanf:"persist_assistant"`
	IdleTTL          string `koanf:"idle_ttl"`
}

type ToolsConfig struct {
	Timeout        string  `koanf:"timeout"`
	WeatherBaseURL string  `koanf:"weather_base_url"`
	GeocodeBaseURL string  `koanf:"geocode_base_url"`
	SearchRadiusKM float64 `koanf:"search_radius_km"`
	UserAgent      string  `koanf:"user_agent"`
}

type DatabaseConfig struct {
	Path string `koanf:"path"`
}

type IngressConfig struct {
	Workers         int    `koanf:"workers"`
	QueueSize       int    `koanf:"queue_size"`
	SubmitTimeout   string `koanf:"submit_timeout"`
	IdempotencyTTL  string `koanf:"idempotency_ttl"`
	IdempotencyPath string `koanf:"idempotency_path"`
}

type MaintenanceConfig struct {
	PruneSchedule string `koanf:"prune_schedule"`
	EvictSchedule string `koanf:"evict_schedule"`
}

type AdaptersConfig struct {
	MaxMessageLength int            `koanf:"max_message_length"`
	Slack            SlackConfig    `koanf:"slack"`
	Telegram         TelegramConfig `koanf:"telegram"`
}

type SlackConfig struct {
	Enabled       bool   `koanf:"enabled"`
	Port          int    `koanf:"port"`
	SigningSecret string `koanf:"signing_secret"`
	BotToken      string `koanf:"bot_token"`
}

type TelegramConfig struct {
	Enabled       bool   `koanf:"enabled"`
	BotToken      string `koanf:"bot_token"`
	UpdateTimeout int    `koanf:"update_timeout"`
}

const (
	DefaultServerLogLevel             = "info"
	DefaultServerShutdownTimeout      = "10s"
	DefaultServerHealthAddr           = "127.0.0.1:8780"
	DefaultModelDefault               = "llama-3.1-70b-versatile"
	DefaultModelTemperature           = 0.7
	DefaultModelMaxTokens             = 1024
	DefaultModelRequestTimeout        = "30s"
	DefaultModelMaxFallbackAttempts   = 2
	DefaultGroqBaseURL                = "https://api.groq.com/openai/v1"
	DefaultOpenAIBaseURL              = "https://api.openai.com/v1"
	DefaultOllamaBaseURL              = "http://localhost:11434/v1"
	DefaultOllamaAPIKey               = "ollama"
	DefaultOrchestratorMaxIterations  = 5
	DefaultOrchestratorTurnTimeout    = "2m"
	DefaultOrchestratorParallelTools  = true
	DefaultOrchestratorLocation       = "Jakarta"
	DefaultConversationBackend        = "memory"
	DefaultConversationMaxHistory     = 10
	DefaultConversationPersistReplies = true
	DefaultConversationIdleTTL        = "24h"
	DefaultToolsTimeout               = "10s"
	DefaultWeatherBaseURL             = "https://wttr.in"
	DefaultGeocodeBaseURL             = "https://nominatim.openstreetmap.org"
	DefaultSearchRadiusKM             = 5.0
	DefaultToolsUserAgent             = "foodiebot/1.0"
	DefaultIngressWorkers             = 4
	DefaultIngressQueueSize           = 100
	DefaultIngressSubmitTimeout       = "500ms"
	DefaultIngressIdempotencyTTL      = "24h"
	DefaultMaintenancePruneSchedule   = "@hourly"
	DefaultMaintenanceEvictSchedule   = "*/30 * * * *"
	DefaultMaxMessageLength           = 2000
	DefaultSlackPort                  = 3000
	DefaultTelegramUpdateTimeout      = 60

	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// HomeDir is the per-user directory holding config.yaml and the default data dir.
func HomeDir() string {
	return filepath.Join(userHome(), ".foodiebot")
}

func Load(cmd *cobra.Command) (*Config, error) {
	k := koanf.New(".")

	dataDir := filepath.Join(HomeDir(), "data")
	defaults := map[string]interface{}{
		"server.log_level":             DefaultServerLogLevel,
		"server.log_file":              "",
		"server.data_dir":              dataDir,
		"server.shutdown_timeout":      DefaultServerShutdownTimeout,
		"server.health_addr":           DefaultServerHealthAddr,
		"models.default":               DefaultModelDefault,
		"models.fallback":              "",
		"models.embedding_model":       "",
		"models.temperature":           DefaultModelTemperature,
		"models.max_tokens":            DefaultModelMaxTokens,
		"models.request_timeout":       DefaultModelRequestTimeout,
		"models.max_fallback_attempts": DefaultModelMaxFallbackAttempts,
		"models.registry": []ModelRegistry{
			{Name: DefaultModelDefault, Provider: "groq", BaseURL: DefaultGroqBaseURL},
			{Name: "nomic-embed-text", Provider: "ollama", BaseURL: DefaultOllamaBaseURL},
		},
		"orchestrator.max_iterations":      DefaultOrchestratorMaxIterations,
		"orchestrator.turn_timeout":        DefaultOrchestratorTurnTimeout,
		"orchestrator.parallel_tools":      DefaultOrchestratorParallelTools,
		"orchestrator.default_location":    DefaultOrchestratorLocation,
		"conversation.backend":             DefaultConversationBackend,
		"conversation.max_history":         DefaultConversationMaxHistory,
		"conversation.persist_assistant":   DefaultConversationPersistReplies,
		"conversation.idle_ttl":            DefaultConversationIdleTTL,
		"tools.timeout":                    DefaultToolsTimeout,
		"tools.weather_base_url":           DefaultWeatherBaseURL,
		"tools.geocode_base_url":           DefaultGeocodeBaseURL,
		"tools.search_radius_km":           DefaultSearchRadiusKM,
		"tools.user_agent":                 DefaultToolsUserAgent,
		"database.path":                    "",
		"ingress.workers":                  DefaultIngressWorkers,
		"ingress.queue_size":               DefaultIngressQueueSize,
		"ingress.submit_timeout":           DefaultIngressSubmitTimeout,
		"ingress.idempotency_ttl":          DefaultIngressIdempotencyTTL,
		"ingress.idempotency_path":         "",
		"maintenance.prune_schedule":       DefaultMaintenancePruneSchedule,
		"maintenance.evict_schedule":       DefaultMaintenanceEvictSchedule,
		"adapters.max_message_length":      DefaultMaxMessageLength,
		"adapters.slack.port":              DefaultSlackPort,
		"adapters.telegram.update_timeout": DefaultTelegramUpdateTimeout,
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	configPath := ""
	if cmd != nil {
		if flag := cmd.Flags().Lookup("config"); flag != nil {
			configPath = strings.TrimSpace(flag.Value.String())
		}
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, err
		}
	} else {
		globalPath := filepath.Join(HomeDir(), "config.yaml")
		if err := k.Load(file.Provider(globalPath), yaml.Parser()); err != nil {
			slog.Debug("Global config not found or invalid", "path", globalPath, "error", err)
		}
	}

	// FOODIEBOT_<SECTION>_<KEY>: FOODIEBOT_SERVER_LOG_LEVEL -> server.log_level
	k.Load(env.Provider("FOODIEBOT_", ".", envKey), nil)

	if cmd != nil {
		k.Load(posflag.Provider(cmd.Flags(), ".", k), nil)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	for i, m := range cfg.Models.Registry {
		if m.Provider == "" {
			cfg.Models.Registry[i].Provider = "groq"
		}
	}

	if err := normalizePathFields(&cfg); err != nil {
		return nil, err
	}

	injectProviderKeys(&cfg)
	injectAdapterSecrets(&cfg)

	return &cfg, nil
}

// Validate rejects configurations the runtime cannot start with.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config is nil")
	}
	if strings.TrimSpace(c.Models.Default) == "" {
		return fmt.Errorf("models.default is required")
	}
	if _, ok := c.FindModel(c.Models.Default); !ok {
		return fmt.Errorf("models.default %q is not in models.registry", c.Models.Default)
	}
	if c.Orchestrator.MaxIterations <= 0 {
		return fmt.Errorf("orchestrator.max_iterations must be positive")
	}
	if c.Conversation.MaxHistory <= 0 {
		return fmt.Errorf("conversation.max_history must be positive")
	}
	switch c.Conversation.Backend {
	case BackendMemory, BackendSQLite:
	default:
		return fmt.Errorf("conversation.backend must be %q or %q, got %q", BackendMemory, BackendSQLite, c.Conversation.Backend)
	}
	if c.Models.MaxTokens <= 0 {
		return fmt.Errorf("models.max_tokens must be positive")
	}
	for _, d := range []struct{ key, value string }{
		{"models.request_timeout", c.Models.RequestTimeout},
		{"orchestrator.turn_timeout", c.Orchestrator.TurnTimeout},
		{"tools.timeout", c.Tools.Timeout},
		{"conversation.idle_ttl", c.Conversation.IdleTTL},
		{"ingress.idempotency_ttl", c.Ingress.IdempotencyTTL},
	} {
		if _, err := DurationOrDefault(d.value, "0s"); err != nil {
			return fmt.Errorf("%s: %w", d.key, err)
		}
	}
	return nil
}

// FindModel looks up a registry entry by name.
func (c *Config) FindModel(name string) (ModelRegistry, bool) {
	for _, m := range c.Models.Registry {
		if m.Name == name {
			return m, true
		}
	}
	return ModelRegistry{}, false
}

// DatabasePath resolves database.path, defaulting into the data dir.
func (c *Config) DatabasePath() string {
	if strings.TrimSpace(c.Database.Path) != "" {
		return c.Database.Path
	}
	return filepath.Join(c.Server.DataDir, "foodiebot.db")
}

// IdempotencyPath resolves ingress.idempotency_path, defaulting into the data dir.
func (c *Config) IdempotencyPath() string {
	if strings.TrimSpace(c.Ingress.IdempotencyPath) != "" {
		return c.Ingress.IdempotencyPath
	}
	return filepath.Join(c.Server.DataDir, "processed_events.json")
}

func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, "FOODIEBOT_"))
	return strings.Replace(key, "_", ".", 1)
}

func injectProviderKeys(cfg *Config) {
	keys := map[string]string{
		"groq":      os.Getenv("GROQ_API_KEY"),
		"openai":    os.Getenv("OPENAI_API_KEY"),
		"anthropic": os.Getenv("ANTHROPIC_API_KEY"),
		"gemini":    os.Getenv("GEMINI_API_KEY"),
	}
	for i, m := range cfg.Models.Registry {
		if m.APIKey != "" {
			continue
		}
		if key := keys[m.Provider]; key != "" {
			cfg.Models.Registry[i].APIKey = key
		}
	}
}

func injectAdapterSecrets(cfg *Config) {
	if cfg.Adapters.Telegram.BotToken == "" {
		cfg.Adapters.Telegram.BotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	}
	if cfg.Adapters.Slack.BotToken == "" {
		cfg.Adapters.Slack.BotToken = os.Getenv("SLACK_BOT_TOKEN")
	}
	if cfg.Adapters.Slack.SigningSecret == "" {
		cfg.Adapters.Slack.SigningSecret = os.Getenv("SLACK_SIGNING_SECRET")
	}
}

func normalizePathFields(cfg *Config) error {
	if cfg == nil {
		return nil
	}

	fields := []*string{
		&cfg.Server.DataDir,
		&cfg.Server.LogFile,
		&cfg.Database.Path,
		&cfg.Ingress.IdempotencyPath,
	}
	for _, field := range fields {
		expanded, err := expandConfiguredPath(*field)
		if err != nil {
			return err
		}
		if expanded != "" {
			*field = expanded
		}
	}
	return nil
}
