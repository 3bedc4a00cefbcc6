package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
)

type Config struct {
	App     AppConfig     `toml:"app"`
	Gemini  GeminiConfig  `toml:"gemini"`
	Storage StorageConfig `toml:"storage"`
	Redis   RedisConfig   `toml:"redis"`
}

type AppConfig struct {
	Name    string `toml:"name"`
	Env     string `toml:"env"`
	Host    string `toml:"host"`
	Port    int    `toml:"port"`
	GinMode string `toml:"gin_mode"`
}

// GeminiConfig has no default API key: an empty key disables the upload and
// ask operations while read-only endpoints keep working.
type GeminiConfig struct {
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

type StorageConfig struct {
	PDFDir     string `toml:"pdf_dir"`
	SQLitePath string `toml:"sqlite_path"`
}

// RedisConfig is optional; an empty addr disables the history cache.
type RedisConfig struct {
	Addr                   string `toml:"addr"`
	Password               string `toml:"password"`
	DB                     int    `toml:"db"`
	HistoryTTLSeconds      int    `toml:"history_ttl_seconds"`
	HistoryDirtyTTLSeconds int    `toml:"history_dirty_ttl_seconds"`
}

func Load() (*Config, error) {
	cfg := defaultConfig()

	configPath := getEnv("CONFIG_FILE", "configs/config.toml")
	if _, err := os.Stat(configPath); err == nil {
		if _, err := toml.DecodeFile(configPath, cfg); err != nil {
			return nil, fmt.Errorf("decode config file failed: %w", err)
		}
	}

	overrideByEnv(cfg)
	return cfg, nil
}

func (c *Config) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.App.Host, c.App.Port)
}

func defaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:    "docuchat",
			Env:     "dev",
			Host:    "0.0.0.0",
			Port:    8000,
			GinMode: "debug",
		},
		Gemini: GeminiConfig{
			BaseURL:        "https://generativelanguage.googleapis.com",
			APIKey:         "",
			Model:          "gemini-2.5-flash",
			TimeoutSeconds: 90,
		},
		Storage: StorageConfig{
			PDFDir:     "pdf_storage",
			SQLitePath: "database/chat_history.db",
		},
		Redis: RedisConfig{
			Addr:                   "",
			Password:               "",
			DB:                     0,
			HistoryTTLSeconds:      60,
			HistoryDirtyTTLSeconds: 5,
		},
	}
}

func overrideByEnv(cfg *Config) {
	cfg.App.Name = getEnv("APP_NAME", cfg.App.Name)
	cfg.App.Env = getEnv("APP_ENV", cfg.App.Env)
	cfg.App.Host = getEnv("APP_HOST", cfg.App.Host)
	cfg.App.Port = getEnvAsInt("APP_PORT", cfg.App.Port)
	cfg.App.GinMode = getEnv("GIN_MODE", cfg.App.GinMode)

	cfg.Gemini.BaseURL = getEnv("GEMINI_BASE_URL", cfg.Gemini.BaseURL)
	cfg.Gemini.APIKey = getEnv("GEMINI_API_KEY", cfg.Gemini.APIKey)
	cfg.Gemini.Model = getEnv("GEMINI_MODEL", cfg.Gemini.Model)
	cfg.Gemini.TimeoutSeconds = getEnvAsInt("GEMINI_TIMEOUT_SECONDS", cfg.Gemini.TimeoutSeconds)

	cfg.Storage.PDFDir = getEnv("PDF_STORAGE_DIR", cfg.Storage.PDFDir)
	cfg.Storage.SQLitePath = getEnv("SQLITE_PATH", cfg.Storage.SQLitePath)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = getEnvAsInt("REDIS_DB", cfg.Redis.DB)
	cfg.Redis.HistoryTTLSeconds = getEnvAsInt("REDIS_HISTORY_TTL_SECONDS", cfg.Redis.HistoryTTLSeconds)
	cfg.Redis.HistoryDirtyTTLSeconds = getEnvAsInt("REDIS_HISTORY_DIRTY_TTL_SECONDS", cfg.Redis.HistoryDirtyTTLSeconds)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}
