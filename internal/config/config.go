// Package config provides configuration loading and structs for the medscribe server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/hyperjump/medscribe/internal/apperr"
)

// Config holds all configuration for the application.
type Config struct {
	Debug    bool           `yaml:"debug"`
	EnvFile  string         `yaml:"env_file"`
	Server   ServerConfig   `yaml:"server"`
	Services ServicesConfig `yaml:"services"`
	Audio    AudioConfig    `yaml:"audio"`
	Uploads  UploadsConfig  `yaml:"uploads"`
	Features FeaturesConfig `yaml:"features"`
	Sessions SessionsConfig `yaml:"sessions"`
	Archive  ArchiveConfig  `yaml:"archive"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	MaxUploadMB    int           `yaml:"max_upload_mb"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// ServicesConfig groups the hosted AI services.
type ServicesConfig struct {
	Transcription ServiceConfig `yaml:"transcription"`
	Diagnosis     ServiceConfig `yaml:"diagnosis"`
	Chat          ChatConfig    `yaml:"chat"`
	OCR           OCRConfig     `yaml:"ocr"`
}

// ServiceConfig describes one OpenAI-compatible endpoint. The key itself is read
// from the environment variable named by APIKeyEnv and never stored in YAML.
type ServiceConfig struct {
	BaseURL     string        `yaml:"base_url"`
	Model       string        `yaml:"model"`
	APIKeyEnv   string        `yaml:"api_key_env"`
	Timeout     time.Duration `yaml:"timeout"`
	Temperature *float32      `yaml:"temperature"`
	MaxTokens   int           `yaml:"max_tokens"`
}

// APIKey returns the credential from the environment, or a config error naming
// the variable when it is unset.
func (s ServiceConfig) APIKey() (string, error) {
	if s.APIKeyEnv == "" {
		return "", apperr.Config("no api_key_env configured")
	}
	key := strings.TrimSpace(os.Getenv(s.APIKeyEnv))
	if key == "" {
		return "", apperr.Config("%s is not set", s.APIKeyEnv)
	}
	return key, nil
}

// SamplingTemperature returns the configured temperature. An explicit 0 is kept.
func (s ServiceConfig) SamplingTemperature() float32 {
	if s.Temperature == nil {
		return 0
	}
	return *s.Temperature
}

// ChatConfig extends ServiceConfig with conversation limits.
type ChatConfig struct {
	ServiceConfig      `yaml:",inline"`
	HistoryWindow      int   `yaml:"history_window"`
	SourceContextChars int   `yaml:"source_context_chars"`
	AutoApply          *bool `yaml:"auto_apply"`
}

// AutoApplyOrDefault returns whether replacement replies overwrite the report
// immediately; defaults to true when unset.
func (c *ChatConfig) AutoApplyOrDefault() bool {
	if c.AutoApply != nil {
		return *c.AutoApply
	}
	return true
}

// OCRConfig extends ServiceConfig with image and OpenRouter settings.
type OCRConfig struct {
	ServiceConfig     `yaml:",inline"`
	MaxImageDimension int    `yaml:"max_image_dimension"`
	Referer           string `yaml:"referer"`
	Title             string `yaml:"title"`
}

// AudioConfig holds large-audio splitting settings.
type AudioConfig struct {
	ChunkThresholdMB int    `yaml:"chunk_threshold_mb"`
	SegmentMinutes   int    `yaml:"segment_minutes"`
	FFmpegPath       string `yaml:"ffmpeg_path"`
}

// ChunkThresholdBytes returns the split threshold in bytes.
func (a AudioConfig) ChunkThresholdBytes() int64 {
	return int64(a.ChunkThresholdMB) * 1024 * 1024
}

// SegmentDuration returns the length of one audio segment.
func (a AudioConfig) SegmentDuration() time.Duration {
	return time.Duration(a.SegmentMinutes) * time.Minute
}

// UploadsConfig holds the extension allow-lists (lowercase, with leading dot).
type UploadsConfig struct {
	Audio     []string `yaml:"audio"`
	Images    []string `yaml:"images"`
	Documents []string `yaml:"documents"`
}

// FeaturesConfig toggles optional workflow features.
type FeaturesConfig struct {
	Chat         *bool `yaml:"chat"`
	ChunkedAudio *bool `yaml:"chunked_audio"`
	Review       *bool `yaml:"review"`
}

// ChatEnabled returns whether chat refinement is on; defaults to true.
func (f *FeaturesConfig) ChatEnabled() bool { return boolOr(f.Chat, true) }

// ChunkedAudioEnabled returns whether oversized audio is split; defaults to true.
func (f *FeaturesConfig) ChunkedAudioEnabled() bool { return boolOr(f.ChunkedAudio, true) }

// ReviewEnabled returns whether the single-source review flow is on; defaults to true.
func (f *FeaturesConfig) ReviewEnabled() bool { return boolOr(f.Review, true) }

// SessionsConfig holds in-memory session expiry settings.
type SessionsConfig struct {
	TTL             time.Duration `yaml:"ttl"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// ArchiveConfig holds paths for the optional report archive.
type ArchiveConfig struct {
	Enabled      bool   `yaml:"enabled"`
	DatabasePath string `yaml:"database_path"`
	IndexPath    string `yaml:"index_path"`
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.EnvFile = expandPath(cfg.EnvFile, configDir)
	cfg.Archive.DatabasePath = expandPath(cfg.Archive.DatabasePath, configDir)
	cfg.Archive.IndexPath = expandPath(cfg.Archive.IndexPath, configDir)

	return &cfg, nil
}

// Default returns a config with every default applied, used when no file exists.
func Default() *Config {
	var cfg Config
	ApplyDefaults(&cfg)
	return &cfg
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// LoadEnv loads credentials from the configured dotenv file. Variables already set
// in the environment win. A missing file is not an error.
func (c *Config) LoadEnv() error {
	if c.EnvFile == "" {
		return nil
	}
	if _, err := os.Stat(c.EnvFile); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(c.EnvFile); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", c.EnvFile, err)
	}
	return nil
}

// AllowedExtension reports whether ext (any case, with or without dot) is in list.
func AllowedExtension(list []string, ext string) bool {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	for _, e := range list {
		if e == ext {
			return true
		}
	}
	return false
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}

func boolOr(b *bool, def bool) bool {
	if b != nil {
		return *b
	}
	return def
}
