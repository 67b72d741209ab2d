// Package config loads service settings from defaults, an optional YAML file,
// an optional .env file and the process environment, in that order.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"

	"cropadvisor/llm"
	"cropadvisor/ml"
)

const EnvDevelopment = "development"

type Config struct {
	// Env selects error verbosity; "development" exposes error detail in responses.
	Env      string         `yaml:"env" env:"APP_ENV"`
	HTTP     HTTPConfig     `yaml:"http"`
	Log      LogConfig      `yaml:"log"`
	ML       MLConfig       `yaml:"ml"`
	Advisory AdvisoryConfig `yaml:"advisory"`
}

type HTTPConfig struct {
	Port           int           `yaml:"port" env:"HTTP_PORT"`
	Timeout        time.Duration `yaml:"timeout" env:"HTTP_TIMEOUT"`
	AllowedOrigins []string      `yaml:"allowed_origins" env:"HTTP_ALLOWED_ORIGINS" envSeparator:","`
	MaxBodyBytes   int64         `yaml:"max_body_bytes" env:"HTTP_MAX_BODY_BYTES"`
}

type LogConfig struct {
	Level      string `yaml:"level" env:"LOG_LEVEL"`
	File       string `yaml:"file" env:"LOG_FILE"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type MLConfig struct {
	ModelType   string  `yaml:"model_type" env:"MODEL_TYPE"`
	ModelPath   string  `yaml:"model_path" env:"MODEL_PATH"`
	DatasetPath string  `yaml:"dataset_path" env:"DATASET_PATH"`
	TestRatio   float64 `yaml:"test_ratio"`
	Seed        int64   `yaml:"seed"`
	CacheSize   int     `yaml:"cache_size" env:"PREDICTION_CACHE_SIZE"`
}

type AdvisoryConfig struct {
	Provider  string        `yaml:"provider" env:"ADVISORY_PROVIDER"`
	APIKey    string        `yaml:"api_key" env:"ADVISORY_API_KEY"`
	Model     string        `yaml:"model" env:"ADVISORY_MODEL"`
	BaseURL   string        `yaml:"base_url" env:"ADVISORY_BASE_URL"`
	Timeout   time.Duration `yaml:"timeout" env:"ADVISORY_TIMEOUT"`
	MaxTokens int           `yaml:"max_tokens"`

	// GoogleAPIKey is the conventional Gemini variable; it takes precedence
	// over APIKey for the gemini provider.
	GoogleAPIKey string `yaml:"-" env:"GOOGLE_API_KEY"`
}

// Default returns the settings used when nothing overrides them.
func Default() Config {
	return Config{
		Env: "production",
		HTTP: HTTPConfig{
			Port:           5000,
			Timeout:        60 * time.Second,
			AllowedOrigins: []string{"*"},
			MaxBodyBytes:   1 << 20,
		},
		Log: LogConfig{
			Level:      "info",
			File:       "app.log",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		ML: MLConfig{
			ModelType:   ml.ModelTypeRandomForest,
			ModelPath:   "model.json",
			DatasetPath: "Crop_recommendation.csv",
			TestRatio:   0.2,
			Seed:        ml.DefaultSeed,
			CacheSize:   1024,
		},
		Advisory: AdvisoryConfig{
			Provider: llm.ProviderGemini,
			Timeout:  60 * time.Second,
		},
	}
}

// Load builds the configuration. A missing YAML file or .env file is not an
// error; an unreadable or malformed one is.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	for _, name := range envFiles {
		if err := godotenv.Load(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", name, err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadFile(path string, cfg *Config) error {
	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer file.Close()

	if err := yaml.NewDecoder(file).Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http port %d out of range", c.HTTP.Port)
	}
	if c.ML.ModelPath == "" {
		return errors.New("ml.model_path is required")
	}
	if c.ML.TestRatio <= 0 || c.ML.TestRatio >= 1 {
		return fmt.Errorf("ml.test_ratio %v must be between 0 and 1", c.ML.TestRatio)
	}
	if _, err := ml.NewModel(c.ML.ModelType, c.ML.Seed); err != nil {
		return err
	}
	return nil
}

// IsDevelopment reports whether responses may include error detail.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(strings.TrimSpace(c.Env), EnvDevelopment)
}

// Provider returns the ml settings for LoadOrTrain.
func (m MLConfig) Provider() ml.ProviderConfig {
	return ml.ProviderConfig{
		ModelType:   m.ModelType,
		ModelPath:   m.ModelPath,
		DatasetPath: m.DatasetPath,
		TestRatio:   m.TestRatio,
		Seed:        m.Seed,
	}
}

// Client returns the advisory settings with the provider's key resolved.
func (a AdvisoryConfig) Client() llm.Config {
	key := a.APIKey
	provider := strings.ToLower(strings.TrimSpace(a.Provider))
	if (provider == "" || provider == llm.ProviderGemini) && llm.CleanAPIKey(a.GoogleAPIKey) != "" {
		key = a.GoogleAPIKey
	}
	return llm.Config{
		Provider:  a.Provider,
		APIKey:    key,
		Model:     a.Model,
		BaseURL:   a.BaseURL,
		Timeout:   a.Timeout,
		MaxTokens: a.MaxTokens,
	}
}
