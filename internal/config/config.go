// Package config handles service configuration
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTPAddr string `yaml:"http_addr"`

	// Recognition and condensation service (Gemini)
	GeminiAPIKeys []string `yaml:"gemini_api_keys"`
	GeminiModel   string   `yaml:"gemini_model"`
	Language      string   `yaml:"language"`

	// Document store (Notion)
	NotionToken      string `yaml:"notion_token"`
	NotionDatabaseID string `yaml:"notion_database_id"`

	// Capture format
	SampleRate     int `yaml:"sample_rate"`
	Channels       int `yaml:"channels"`
	FramesPerBuf   int `yaml:"frames_per_buffer"`
	SegmentSeconds int `yaml:"segment_seconds"`

	// Summarization
	WindowChars int `yaml:"window_chars"`

	// Pipeline
	MaxParallel      int    `yaml:"max_parallel"`
	DurationLimitMin int    `yaml:"duration_limit_minutes"`
	TempDir          string `yaml:"temp_dir"`
}

// Load reads the optional YAML config file, then applies environment
// variable overrides on top of it.
func Load() *Config {
	cfg := defaults()

	path := getEnv("CONFIG_FILE", "config.yaml")
	if data, err := os.ReadFile(path); err == nil {
		_ = yaml.Unmarshal(data, cfg)
	}

	cfg.HTTPAddr = getEnv("HTTP_ADDR", cfg.HTTPAddr)
	cfg.GeminiAPIKeys = getEnvList("GEMINI_API_KEYS", cfg.GeminiAPIKeys)
	cfg.GeminiModel = getEnv("GEMINI_MODEL", cfg.GeminiModel)
	cfg.Language = getEnv("MEETING_LANGUAGE", cfg.Language)
	cfg.NotionToken = getEnv("NOTION_TOKEN", cfg.NotionToken)
	cfg.NotionDatabaseID = getEnv("NOTION_DATABASE_ID", cfg.NotionDatabaseID)
	cfg.SampleRate = getEnvInt("SAMPLE_RATE", cfg.SampleRate)
	cfg.Channels = getEnvInt("CHANNELS", cfg.Channels)
	cfg.FramesPerBuf = getEnvInt("FRAMES_PER_BUFFER", cfg.FramesPerBuf)
	cfg.SegmentSeconds = getEnvInt("SEGMENT_SECONDS", cfg.SegmentSeconds)
	cfg.WindowChars = getEnvInt("WINDOW_CHARS", cfg.WindowChars)
	cfg.MaxParallel = getEnvInt("MAX_PARALLEL", cfg.MaxParallel)
	cfg.DurationLimitMin = getEnvInt("DURATION_LIMIT_MINUTES", cfg.DurationLimitMin)
	cfg.TempDir = getEnv("TEMP_DIR", cfg.TempDir)

	return cfg
}

func defaults() *Config {
	return &Config{
		HTTPAddr:         ":8000",
		GeminiModel:      "gemini-2.5-flash",
		Language:         "ko-KR",
		SampleRate:       44100,
		Channels:         2,
		FramesPerBuf:     1024,
		SegmentSeconds:   30,
		WindowChars:      4000,
		MaxParallel:      4,
		DurationLimitMin: 60,
		TempDir:          os.TempDir(),
	}
}

// DurationLimit returns the session auto-stop limit.
func (c *Config) DurationLimit() time.Duration {
	return time.Duration(c.DurationLimitMin) * time.Minute
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvList(key string, def []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if t := strings.TrimSpace(p); t != "" {
				result = append(result, t)
			}
		}
		return result
	}
	return def
}
