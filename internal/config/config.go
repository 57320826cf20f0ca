package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/attilastrba/notion2hugo/internal/notion"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"
)

// ConfigFileEnv names the environment variable pointing at an optional YAML
// config file. Environment variables override values from the file.
const ConfigFileEnv = "NOTION2HUGO_CONFIG"

// Publish modes.
const (
	PublishAsk = "ask"
	PublishYes = "yes"
	PublishNo  = "no"
)

// Publish targets.
const (
	TargetFile = "file"
	TargetGCS  = "gcs"
)

type Config struct {
	// Notion source
	NotionToken      string `yaml:"notion_token"`
	NotionDatabaseID string `yaml:"notion_database_id"`
	NotionAPIURL     string `yaml:"notion_api_url"`
	NotionVersion    string `yaml:"notion_version"`
	// NotionFilter is a raw JSON database query filter.
	NotionFilter string `yaml:"notion_filter"`

	// Output layout
	OutputDir        string `yaml:"output_dir"`
	PostNameProperty string `yaml:"post_name_property"`
	CleanOutput      bool   `yaml:"clean_output"`
	CacheDir         string `yaml:"cache_dir"`
	AssetsDir        string `yaml:"assets_dir"`

	// Publishing
	PublishMode        string `yaml:"publish_mode"`
	PublishTarget      string `yaml:"publish_target"`
	PublishContentDir  string `yaml:"publish_content_dir"`
	PublishImagesDir   string `yaml:"publish_images_dir"`
	PublishBucket      string `yaml:"publish_bucket"`
	GCSCredentialsFile string `yaml:"gcs_credentials_file"`

	// Processing
	Concurrency int `yaml:"concurrency"`
	ReadingWPM  int `yaml:"reading_wpm"`

	// Server mode
	Port         string        `yaml:"port"`
	APIKey       string        `yaml:"api_key"`
	WorkerCount  int           `yaml:"worker_count"`
	MaxQueueSize int           `yaml:"max_queue_size"`
	JobTTL       time.Duration `yaml:"job_ttl"`

	LogLevel string `yaml:"log_level"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		NotionAPIURL:  notion.DefaultBaseURL,
		NotionVersion: notion.DefaultVersion,

		OutputDir:        "output",
		PostNameProperty: "Title",
		CleanOutput:      true,
		CacheDir:         filepath.Join(os.TempDir(), "notion2hugo-cache"),
		AssetsDir:        "../assets",

		PublishMode:       PublishAsk,
		PublishTarget:     TargetFile,
		PublishContentDir: "../content/blog-entries",
		PublishImagesDir:  "../assets/images",

		Concurrency: 4,
		ReadingWPM:  200,

		Port:         "8090",
		WorkerCount:  1,
		MaxQueueSize: 100,
		JobTTL:       1 * time.Hour,

		LogLevel: "info",
	}
}

// Load reads the optional YAML file named by NOTION2HUGO_CONFIG and then
// applies environment overrides.
func Load() (Config, error) {
	cfg := Defaults()

	if path := os.Getenv(ConfigFileEnv); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.NotionToken = envOr("NOTION_TOKEN", cfg.NotionToken)
	cfg.NotionDatabaseID = envOr("NOTION_DATABASE_ID", cfg.NotionDatabaseID)
	cfg.NotionAPIURL = envOr("NOTION_API_URL", cfg.NotionAPIURL)
	cfg.NotionVersion = envOr("NOTION_VERSION", cfg.NotionVersion)
	cfg.NotionFilter = envOr("NOTION_FILTER", cfg.NotionFilter)

	cfg.OutputDir = envOr("OUTPUT_DIR", cfg.OutputDir)
	cfg.PostNameProperty = envOr("POST_NAME_PROPERTY", cfg.PostNameProperty)
	cfg.CleanOutput = envBool("CLEAN_OUTPUT", cfg.CleanOutput)
	cfg.CacheDir = envOr("CACHE_DIR", cfg.CacheDir)
	cfg.AssetsDir = envOr("ASSETS_DIR", cfg.AssetsDir)

	cfg.PublishMode = envOr("PUBLISH_MODE", cfg.PublishMode)
	cfg.PublishTarget = envOr("PUBLISH_TARGET", cfg.PublishTarget)
	cfg.PublishContentDir = envOr("PUBLISH_CONTENT_DIR", cfg.PublishContentDir)
	cfg.PublishImagesDir = envOr("PUBLISH_IMAGES_DIR", cfg.PublishImagesDir)
	cfg.PublishBucket = envOr("PUBLISH_BUCKET", cfg.PublishBucket)
	cfg.GCSCredentialsFile = envOr("GOOGLE_APPLICATION_CREDENTIALS", cfg.GCSCredentialsFile)

	cfg.Concurrency = envInt("CONCURRENCY", cfg.Concurrency)
	cfg.ReadingWPM = envInt("READING_WPM", cfg.ReadingWPM)

	cfg.Port = envOr("PORT", cfg.Port)
	cfg.APIKey = envOr("NOTION2HUGO_API_KEY", cfg.APIKey)
	cfg.WorkerCount = envInt("WORKER_COUNT", cfg.WorkerCount)
	cfg.MaxQueueSize = envInt("MAX_QUEUE_SIZE", cfg.MaxQueueSize)
	cfg.JobTTL = envDuration("JOB_TTL", cfg.JobTTL)

	cfg.LogLevel = envOr("LOG_LEVEL", cfg.LogLevel)

	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.ReadingWPM <= 0 {
		cfg.ReadingWPM = 200
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 1
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}

	return cfg, nil
}

// Validate checks what a batch export needs.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.NotionToken, validation.Required.Error("NOTION_TOKEN is required")),
		validation.Field(&c.NotionDatabaseID, validation.Required.Error("NOTION_DATABASE_ID is required")),
		validation.Field(&c.NotionAPIURL, validation.Required),
		validation.Field(&c.NotionFilter, validation.By(validJSON)),
		validation.Field(&c.OutputDir, validation.Required),
		validation.Field(&c.CacheDir, validation.Required),
		validation.Field(&c.PublishMode, validation.In(PublishAsk, PublishYes, PublishNo)),
		validation.Field(&c.PublishTarget, validation.In(TargetFile, TargetGCS)),
		validation.Field(&c.PublishBucket, validation.When(c.PublishTarget == TargetGCS, validation.Required)),
		validation.Field(&c.LogLevel, validation.In("debug", "info", "warn", "error")),
	)
}

// ValidateServer additionally checks the HTTP server settings.
func (c Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.PublishMode == PublishAsk {
		return errors.New("publish_mode ask needs a terminal, use yes or no in server mode")
	}
	return validation.ValidateStruct(&c,
		validation.Field(&c.APIKey, validation.Required.Error("NOTION2HUGO_API_KEY is required")),
		validation.Field(&c.Port, validation.Required),
	)
}

// Filter returns the query filter as raw JSON, nil when unset.
func (c Config) Filter() json.RawMessage {
	if c.NotionFilter == "" {
		return nil
	}
	return json.RawMessage(c.NotionFilter)
}

func validJSON(value any) error {
	s, _ := value.(string)
	if s == "" || json.Valid([]byte(s)) {
		return nil
	}
	return errors.New("must be valid JSON")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

// SlogLevel maps LogLevel onto a slog level, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
