package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for DocLexa
type Config struct {
	Backend  BackendConfig  `mapstructure:"backend"`
	Engine   EngineConfig   `mapstructure:"engine"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Server   ServerConfig   `mapstructure:"server"`
	Rates    RatesConfig    `mapstructure:"rates"`
	Documents DocumentsConfig `mapstructure:"documents"`
	Channels ChannelsConfig `mapstructure:"channels"`
	Export   ExportConfig   `mapstructure:"export"`
}

// BackendConfig holds managed-backend (auth + persistence + rates) settings
type BackendConfig struct {
	URL         string `mapstructure:"url"`
	AnonKey     string `mapstructure:"anon_key"`
	Timeout     int    `mapstructure:"timeout"`
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
}

// EngineConfig holds analysis engine settings
type EngineConfig struct {
	Provider  string `mapstructure:"provider"` // stub or llm
	APIKey    string `mapstructure:"api_key"`
	BaseURL   string `mapstructure:"base_url"`
	Model     string `mapstructure:"model"`
	Timeout   int    `mapstructure:"timeout"`
	MaxTokens int    `mapstructure:"max_tokens"`
}

// StorageConfig holds local database settings
type StorageConfig struct {
	DataDir    string `mapstructure:"data_dir"`
	SQLitePath string `mapstructure:"sqlite_path"`
	BadgerPath string `mapstructure:"badger_path"`
}

// ServerConfig holds local API server settings
type ServerConfig struct {
	Address      string   `mapstructure:"address"`
	Port         int      `mapstructure:"port"`
	ReadTimeout  int      `mapstructure:"read_timeout"`
	WriteTimeout int      `mapstructure:"write_timeout"`
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// RatesConfig holds exchange-rate refresh settings
type RatesConfig struct {
	RefreshSchedule string `mapstructure:"refresh_schedule"` // cron expression
	InitTimeout     int    `mapstructure:"init_timeout"`     // seconds
}

// DocumentsConfig holds document acquisition settings
type DocumentsConfig struct {
	InboxDir      string `mapstructure:"inbox_dir"`
	CameraDevice  string `mapstructure:"camera_device"`
	MaxDocumentMB int    `mapstructure:"max_document_mb"`
}

// ChannelsConfig holds notification channel settings
type ChannelsConfig struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
	Discord  DiscordConfig  `mapstructure:"discord"`
}

// TelegramConfig holds Telegram notifier settings
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   int64  `mapstructure:"chat_id"`
}

// DiscordConfig holds Discord notifier settings
type DiscordConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Token     string `mapstructure:"token"`
	ChannelID string `mapstructure:"channel_id"`
}

// ExportConfig holds print/share settings
type ExportConfig struct {
	ChromePath string `mapstructure:"chrome_path"`
	OutputDir  string `mapstructure:"output_dir"`
	PricingURL string `mapstructure:"pricing_url"`
}

// Load loads configuration from file, env, and defaults
func Load(configPath, dataDir string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if dataDir == "" {
		dataDir = getDefaultDataDir()
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	v.Set("storage.data_dir", dataDir)
	v.Set("storage.sqlite_path", filepath.Join(dataDir, "doclexa.db"))
	v.Set("storage.badger_path", filepath.Join(dataDir, "badger"))

	if configPath == "" {
		configPath = filepath.Join(dataDir, "doclexa.yaml")
	}

	if _, err := os.Stat(configPath); err == nil {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	// Environment variables (DOCLEXA_BACKEND_URL, DOCLEXA_ENGINE_API_KEY, etc.)
	v.SetEnvPrefix("DOCLEXA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	loadEnvOverrides(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Backend defaults
	v.SetDefault("backend.timeout", 30)
	v.SetDefault("backend.requests_per_minute", 60)

	// Engine defaults
	v.SetDefault("engine.provider", "stub")
	v.SetDefault("engine.base_url", "https://api.openai.com/v1")
	v.SetDefault("engine.model", "gpt-4o-mini")
	v.SetDefault("engine.timeout", 60)
	v.SetDefault("engine.max_tokens", 4096)

	// Server defaults
	v.SetDefault("server.address", "127.0.0.1")
	v.SetDefault("server.port", 8450)
	v.SetDefault("server.read_timeout", 30)
	v.SetDefault("server.write_timeout", 30)
	v.SetDefault("server.allow_origins", []string{"*"})

	// Rates defaults
	v.SetDefault("rates.refresh_schedule", "@every 1h")
	v.SetDefault("rates.init_timeout", 5)

	// Documents defaults
	v.SetDefault("documents.camera_device", "0")
	v.SetDefault("documents.max_document_mb", 25)

	// Export defaults
	v.SetDefault("export.pricing_url", "https://doclexa.com/pricing")
}

func getDefaultDataDir() string {
	// Try XDG_DATA_HOME first
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "doclexa")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "./data"
	}

	return filepath.Join(home, ".local", "share", "doclexa")
}

func loadEnvOverrides(cfg *Config) {
	if url := GetEnvWithFallback("DOCLEXA_BACKEND_URL", "SUPABASE_URL"); url != "" {
		cfg.Backend.URL = url
	}
	if key := GetEnvWithFallback("DOCLEXA_BACKEND_ANON_KEY", "SUPABASE_ANON_KEY"); key != "" {
		cfg.Backend.AnonKey = key
	}
	if key := GetEnvWithFallback("DOCLEXA_ENGINE_API_KEY", "OPENAI_API_KEY"); key != "" {
		cfg.Engine.APIKey = key
	}
	if token := os.Getenv("DOCLEXA_TELEGRAM_BOT_TOKEN"); token != "" {
		cfg.Channels.Telegram.BotToken = token
	}
	if token := os.Getenv("DOCLEXA_DISCORD_TOKEN"); token != "" {
		cfg.Channels.Discord.Token = token
	}
}

func validate(cfg *Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", cfg.Server.Port)
	}
	if cfg.Engine.Provider != "stub" && cfg.Engine.Provider != "llm" {
		return fmt.Errorf("invalid engine provider: %s", cfg.Engine.Provider)
	}
	if cfg.Engine.Provider == "llm" && cfg.Engine.APIKey == "" {
		return fmt.Errorf("engine provider llm requires an api key")
	}
	if cfg.Rates.InitTimeout <= 0 {
		cfg.Rates.InitTimeout = 5
	}
	return nil
}
