package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
	Storage  StorageConfig  `yaml:"storage"`
	LLM      LLMConfig      `yaml:"llm"`
	Keystore KeystoreConfig `yaml:"keystore"`
}

type ServerConfig struct {
	Host                string `yaml:"host"`
	Port                int    `yaml:"port"`
	ReadTimeoutSeconds  int    `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `yaml:"write_timeout_seconds"`
	MaxUploadMB         int    `yaml:"max_upload_mb"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

type StorageConfig struct {
	DataDir string `yaml:"data_dir"`
}

// LLMConfig holds the global chat-completion defaults. Per-capability
// overrides live in the preference store and fall back to these.
type LLMConfig struct {
	Endpoint          string `yaml:"endpoint"`
	Model             string `yaml:"model"`
	TimeoutSeconds    int    `yaml:"timeout_seconds"`
	RequestsPerMinute int    `yaml:"requests_per_minute"`
}

type KeystoreConfig struct {
	Service       string `yaml:"service"`
	PassphraseEnv string `yaml:"passphrase_env"`
}

func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Host:                "127.0.0.1",
			Port:                8080,
			ReadTimeoutSeconds:  30,
			WriteTimeoutSeconds: 180,
			MaxUploadMB:         10,
		},
		Database: DatabaseConfig{
			Path: "./postmuse.db",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Storage: StorageConfig{
			DataDir: "./data",
		},
		LLM: LLMConfig{
			Endpoint:          "https://api.openai.com/v1/chat/completions",
			Model:             "gpt-4o-mini",
			TimeoutSeconds:    120,
			RequestsPerMinute: 0,
		},
		Keystore: KeystoreConfig{
			Service:       "postmuse",
			PassphraseEnv: "POSTMUSE_MASTER_PASSPHRASE",
		},
	}
}

// Load reads a YAML config file and merges it over defaults.
// If the file does not exist, defaults are returned without error.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Info("No config file found, using defaults", "path", path)
			return cfg, nil
		}
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// TopicsDir is the flat knowledge-base directory inside the data dir.
func (s StorageConfig) TopicsDir() string {
	return filepath.Join(s.DataDir, "Topics")
}

// SlogLevel maps the configured level name to a slog level, defaulting to info.
func (l LoggingConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
