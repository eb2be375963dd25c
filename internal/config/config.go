// Package config assembles process settings from an optional .env file, an
// optional YAML file named by PETFINDER_CONFIG and the environment, in that
// order of increasing precedence.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"petfinder/internal/matching"
)

const EnvConfigFile = "PETFINDER_CONFIG"

type Config struct {
	Server   ServerConfig    `yaml:"server"`
	Database DatabaseConfig  `yaml:"database"`
	NATS     NATSConfig      `yaml:"nats"`
	Encoder  EncoderConfig   `yaml:"encoder"`
	Detector DetectorConfig  `yaml:"detector"`
	Photos   PhotosConfig    `yaml:"photos"`
	Cache    CacheConfig     `yaml:"cache"`
	Index    IndexConfig     `yaml:"index"`
	Search   SearchConfig    `yaml:"search"`
	Auth     AuthConfig      `yaml:"auth"`
	Logging  LoggingConfig   `yaml:"logging"`
	Matching matching.Config `yaml:"matching"`
}

type ServerConfig struct {
	Port            string        `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type DatabaseConfig struct {
	URL         string `yaml:"url"`
	AutoMigrate bool   `yaml:"auto_migrate"`
}

type NATSConfig struct {
	// URL empty disables change events.
	URL string `yaml:"url"`
}

type EncoderConfig struct {
	Provider string `yaml:"provider"`
	URL      string `yaml:"url"`
	// Model names the weights served at URL. Bump it when the service
	// switches models so cached embeddings are not reused.
	Model     string        `yaml:"model"`
	Timeout   time.Duration `yaml:"timeout"`
	RPS       float64       `yaml:"rps"`
	Dimension int           `yaml:"dimension"`
	ONNX      ONNXConfig    `yaml:"onnx"`
}

// Fingerprint identifies the vectors this encoder produces. Embeddings
// cached under one fingerprint are never served under another.
func (c EncoderConfig) Fingerprint() string {
	if c.Provider == "onnx" {
		return fmt.Sprintf("onnx:%s:%s:%d", c.ONNX.ModelPath, c.ONNX.OutputName, c.Dimension)
	}
	return fmt.Sprintf("http:%s:%s:%d", c.URL, c.Model, c.Dimension)
}

type ONNXConfig struct {
	ModelPath   string `yaml:"model_path"`
	LibraryPath string `yaml:"library_path"`
	InputName   string `yaml:"input_name"`
	OutputName  string `yaml:"output_name"`
}

type DetectorConfig struct {
	Provider     string        `yaml:"provider"`
	Timeout      time.Duration `yaml:"timeout"`
	GeminiAPIKey string        `yaml:"gemini_api_key"`
	GeminiModel  string        `yaml:"gemini_model"`
	OpenAIAPIKey string        `yaml:"openai_api_key"`
	OpenAIModel  string        `yaml:"openai_model"`
}

type PhotosConfig struct {
	Source    string   `yaml:"source"`
	MediaRoot string   `yaml:"media_root"`
	MediaURL  string   `yaml:"media_url"`
	S3        S3Config `yaml:"s3"`
}

type S3Config struct {
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

type CacheConfig struct {
	Backend    string `yaml:"backend"`
	BadgerPath string `yaml:"badger_path"`
}

type IndexConfig struct {
	RebuildInterval time.Duration `yaml:"rebuild_interval"`
	Workers         int           `yaml:"workers"`
}

type SearchConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type AuthConfig struct {
	JWTSecret     string        `yaml:"jwt_secret"`
	TokenTTL      time.Duration `yaml:"token_ttl"`
	AdminEmail    string        `yaml:"admin_email"`
	AdminPassword string        `yaml:"admin_password"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Default() *Config {
	return &Config{
		Server:   ServerConfig{Port: "8080", ShutdownTimeout: 10 * time.Second},
		Database: DatabaseConfig{AutoMigrate: true},
		Encoder: EncoderConfig{
			Provider:  "http",
			URL:       "http://localhost:8001",
			Timeout:   10 * time.Second,
			RPS:       20,
			Dimension: 512,
			ONNX: ONNXConfig{
				InputName:  "pixel_values",
				OutputName: "image_embeds",
			},
		},
		Detector: DetectorConfig{
			Provider:    "zeroshot",
			Timeout:     20 * time.Second,
			GeminiModel: "gemini-1.5-flash",
			OpenAIModel: "gpt-4o-mini",
		},
		Photos:   PhotosConfig{Source: "fs", MediaRoot: "media"},
		Cache:    CacheConfig{Backend: "postgres", BadgerPath: "data/embeddings"},
		Index:    IndexConfig{RebuildInterval: time.Hour, Workers: 4},
		Search:   SearchConfig{RPS: 10, Burst: 20},
		Auth:     AuthConfig{TokenTTL: 24 * time.Hour},
		Logging:  LoggingConfig{Level: "info", Format: "json"},
		Matching: matching.DefaultConfig(),
	}
}

// Load reads .env (if present), then the YAML file named by
// PETFINDER_CONFIG (if set), then environment overrides.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}

	cfg := Default()
	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: invalid: %w", err)
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

type envReader struct {
	errs []string
}

func (r *envReader) str(key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func (r *envReader) int(key string, dst *int) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			r.errs = append(r.errs, key)
			return
		}
		*dst = n
	}
}

func (r *envReader) float(key string, dst *float64) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			r.errs = append(r.errs, key)
			return
		}
		*dst = f
	}
}

func (r *envReader) duration(key string, dst *time.Duration) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			r.errs = append(r.errs, key)
			return
		}
		*dst = d
	}
}

func (r *envReader) bool(key string, dst *bool) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			r.errs = append(r.errs, key)
			return
		}
		*dst = b
	}
}

func applyEnv(cfg *Config) error {
	r := &envReader{}

	r.str("PORT", &cfg.Server.Port)
	r.str("POSTGRES_URL", &cfg.Database.URL)
	r.bool("AUTO_MIGRATE", &cfg.Database.AutoMigrate)
	r.str("NATS_URL", &cfg.NATS.URL)

	r.str("ENCODER_PROVIDER", &cfg.Encoder.Provider)
	r.str("ENCODER_URL", &cfg.Encoder.URL)
	r.str("ENCODER_MODEL", &cfg.Encoder.Model)
	r.duration("ENCODER_TIMEOUT", &cfg.Encoder.Timeout)
	r.float("ENCODER_RPS", &cfg.Encoder.RPS)
	r.int("EMBEDDING_DIM", &cfg.Encoder.Dimension)
	r.str("ONNX_MODEL_PATH", &cfg.Encoder.ONNX.ModelPath)
	r.str("ONNX_LIBRARY_PATH", &cfg.Encoder.ONNX.LibraryPath)

	r.str("DETECTOR_PROVIDER", &cfg.Detector.Provider)
	r.duration("DETECTOR_TIMEOUT", &cfg.Detector.Timeout)
	r.str("GEMINI_API_KEY", &cfg.Detector.GeminiAPIKey)
	r.str("GEMINI_MODEL", &cfg.Detector.GeminiModel)
	r.str("OPENAI_API_KEY", &cfg.Detector.OpenAIAPIKey)
	r.str("OPENAI_MODEL", &cfg.Detector.OpenAIModel)

	r.str("PHOTO_SOURCE", &cfg.Photos.Source)
	r.str("MEDIA_ROOT", &cfg.Photos.MediaRoot)
	r.str("MEDIA_URL", &cfg.Photos.MediaURL)
	r.str("S3_BUCKET", &cfg.Photos.S3.Bucket)
	r.str("S3_PREFIX", &cfg.Photos.S3.Prefix)
	r.str("S3_REGION", &cfg.Photos.S3.Region)
	r.str("S3_ENDPOINT", &cfg.Photos.S3.Endpoint)
	r.str("S3_ACCESS_KEY", &cfg.Photos.S3.AccessKey)
	r.str("S3_SECRET_KEY", &cfg.Photos.S3.SecretKey)

	r.str("EMBEDDING_CACHE", &cfg.Cache.Backend)
	r.str("BADGER_PATH", &cfg.Cache.BadgerPath)

	r.duration("REBUILD_INTERVAL", &cfg.Index.RebuildInterval)
	r.int("BUILD_WORKERS", &cfg.Index.Workers)

	r.float("SEARCH_RPS", &cfg.Search.RPS)
	r.int("SEARCH_BURST", &cfg.Search.Burst)

	r.str("JWT_SECRET", &cfg.Auth.JWTSecret)
	r.duration("TOKEN_TTL", &cfg.Auth.TokenTTL)
	r.str("ADMIN_EMAIL", &cfg.Auth.AdminEmail)
	r.str("ADMIN_PASSWORD", &cfg.Auth.AdminPassword)

	r.str("LOG_LEVEL", &cfg.Logging.Level)
	r.str("LOG_FORMAT", &cfg.Logging.Format)

	if len(r.errs) > 0 {
		return fmt.Errorf("config: malformed environment values: %s", strings.Join(r.errs, ", "))
	}
	return nil
}

func (c *Config) Validate() error {
	switch c.Encoder.Provider {
	case "http":
		if c.Encoder.URL == "" {
			return fmt.Errorf("ENCODER_URL is required for the http encoder")
		}
	case "onnx":
		if c.Encoder.ONNX.ModelPath == "" {
			return fmt.Errorf("ONNX_MODEL_PATH is required for the onnx encoder")
		}
	default:
		return fmt.Errorf("unknown encoder provider %q", c.Encoder.Provider)
	}

	switch c.Detector.Provider {
	case "zeroshot", "none":
	case "gemini":
		if c.Detector.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required for the gemini detector")
		}
	case "openai":
		if c.Detector.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required for the openai detector")
		}
	default:
		return fmt.Errorf("unknown detector provider %q", c.Detector.Provider)
	}

	switch c.Photos.Source {
	case "fs":
	case "s3":
		if c.Photos.S3.Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required for the s3 photo source")
		}
	default:
		return fmt.Errorf("unknown photo source %q", c.Photos.Source)
	}

	switch c.Cache.Backend {
	case "postgres", "badger", "none":
	default:
		return fmt.Errorf("unknown embedding cache %q", c.Cache.Backend)
	}

	if c.Encoder.Dimension < 0 {
		return fmt.Errorf("EMBEDDING_DIM must not be negative")
	}
	if c.Index.Workers < 1 {
		return fmt.Errorf("BUILD_WORKERS must be at least 1")
	}
	return nil
}
