package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig `toml:"database"`
	Server   ServerConfig   `toml:"server"`
	Storage  StorageConfig  `toml:"storage"`
	OCR      OCRConfig      `toml:"ocr"`
	LLM      LLMConfig      `toml:"llm"`
	Worker   WorkerConfig   `toml:"worker"`
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	URL              string        `toml:"url"`
	MaxConns         int32         `toml:"max_conns"`
	MinConns         int32         `toml:"min_conns"`
	MaxConnLifetime  time.Duration `toml:"-"`
	MaxConnIdleTime  time.Duration `toml:"-"`
	DialTimeout      time.Duration `toml:"-"`
	StatementTimeout time.Duration `toml:"-"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	GRPCAddr string `toml:"grpc_addr"`
	LogLevel string `toml:"log_level"`
}

// StorageConfig holds file storage locations
type StorageConfig struct {
	UploadDir string `toml:"upload_dir"`
	InboxDir  string `toml:"inbox_dir"`
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Pdftotext     string `toml:"pdftotext"`
	Pdftoppm      string `toml:"pdftoppm"`
	Tesseract     string `toml:"tesseract"`
	TesseractLang string `toml:"tesseract_lang"`
	TessdataDir   string `toml:"tessdata_dir"`
	DPI           int    `toml:"dpi"`
	MinTextChars  int    `toml:"min_text_chars"`
}

// LLMConfig holds LLM-related configuration
type LLMConfig struct {
	Provider        string        `toml:"provider"` // anthropic | openai | none
	AnthropicAPIKey string        `toml:"anthropic_api_key"`
	AnthropicModel  string        `toml:"anthropic_model"`
	OpenAIAPIKey    string        `toml:"openai_api_key"`
	OpenAIModel     string        `toml:"openai_model"`
	Temperature     float32       `toml:"temperature"`
	Timeout         time.Duration `toml:"-"`
	MaxRetries      int           `toml:"max_retries"`
	RatePerMinute   int           `toml:"rate_per_minute"`
	UseMock         bool          `toml:"use_mock"`
}

// WorkerConfig holds async processing configuration
type WorkerConfig struct {
	Workers         int           `toml:"workers"`
	QueueSize       int           `toml:"queue_size"`
	ProcessTimeout  time.Duration `toml:"-"`
	CaseParallelism int           `toml:"case_parallelism"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			URL:             "sqlite:./data/tradedocs.db",
			MaxConns:        20,
			MinConns:        2,
			MaxConnLifetime: 30 * time.Minute,
			MaxConnIdleTime: 5 * time.Minute,
			DialTimeout:     3 * time.Second,
		},
		Server: ServerConfig{
			GRPCAddr: ":8080",
			LogLevel: "info",
		},
		Storage: StorageConfig{
			UploadDir: "./data/uploads",
		},
		OCR: OCRConfig{
			Pdftotext:     "pdftotext",
			Pdftoppm:      "pdftoppm",
			Tesseract:     "tesseract",
			TesseractLang: "eng",
			DPI:           300,
			MinTextChars:  50,
		},
		LLM: LLMConfig{
			Provider:       "anthropic",
			AnthropicModel: "claude-sonnet-4-20250514",
			OpenAIModel:    "gpt-4o-mini",
			Timeout:        60 * time.Second,
			MaxRetries:     2,
			RatePerMinute:  30,
		},
		Worker: WorkerConfig{
			Workers:         4,
			QueueSize:       256,
			ProcessTimeout:  5 * time.Minute,
			CaseParallelism: 1,
		},
	}
}

// LoadConfig loads configuration from an optional TOML file named by
// TRADEDOCS_CONFIG, then applies environment variable overrides.
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()
	if path := os.Getenv("TRADEDOCS_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return NewAppError("CONFIG_ERROR", "read config file", err)
	}
	if err := toml.Unmarshal(b, c); err != nil {
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("parse config file %s", path), err)
	}
	// go-toml has no native time.Duration support; durations are written as "30s".
	var d fileDurations
	if err := toml.Unmarshal(b, &d); err != nil {
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("parse config file %s", path), err)
	}
	return d.apply(c)
}

type fileDurations struct {
	Database struct {
		MaxConnLifetime  string `toml:"max_conn_lifetime"`
		MaxConnIdleTime  string `toml:"max_conn_idle_time"`
		DialTimeout      string `toml:"dial_timeout"`
		StatementTimeout string `toml:"statement_timeout"`
	} `toml:"database"`
	LLM struct {
		Timeout string `toml:"timeout"`
	} `toml:"llm"`
	Worker struct {
		ProcessTimeout string `toml:"process_timeout"`
	} `toml:"worker"`
}

func (d fileDurations) apply(c *Config) error {
	pairs := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"database.max_conn_lifetime", d.Database.MaxConnLifetime, &c.Database.MaxConnLifetime},
		{"database.max_conn_idle_time", d.Database.MaxConnIdleTime, &c.Database.MaxConnIdleTime},
		{"database.dial_timeout", d.Database.DialTimeout, &c.Database.DialTimeout},
		{"database.statement_timeout", d.Database.StatementTimeout, &c.Database.StatementTimeout},
		{"llm.timeout", d.LLM.Timeout, &c.LLM.Timeout},
		{"worker.process_timeout", d.Worker.ProcessTimeout, &c.Worker.ProcessTimeout},
	}
	for _, p := range pairs {
		if p.raw == "" {
			continue
		}
		v, err := time.ParseDuration(p.raw)
		if err != nil {
			return NewAppError("CONFIG_ERROR", fmt.Sprintf("invalid duration for %s", p.name), err)
		}
		*p.dst = v
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Database.URL = getEnv("DB_URL", c.Database.URL)
	c.Database.MaxConns = getEnvAsInt32("DB_MAX_CONNS", c.Database.MaxConns)
	c.Database.MinConns = getEnvAsInt32("DB_MIN_CONNS", c.Database.MinConns)
	c.Database.MaxConnLifetime = getEnvAsDuration("DB_MAX_CONN_LIFETIME", c.Database.MaxConnLifetime)
	c.Database.MaxConnIdleTime = getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", c.Database.MaxConnIdleTime)
	c.Database.DialTimeout = getEnvAsDuration("DB_DIAL_TIMEOUT", c.Database.DialTimeout)
	c.Database.StatementTimeout = getEnvAsDuration("DB_STATEMENT_TIMEOUT", c.Database.StatementTimeout)

	c.Server.GRPCAddr = getEnv("GRPC_ADDR", c.Server.GRPCAddr)
	c.Server.LogLevel = getEnv("LOG_LEVEL", c.Server.LogLevel)

	c.Storage.UploadDir = getEnv("UPLOAD_DIR", c.Storage.UploadDir)
	c.Storage.InboxDir = getEnv("INBOX_DIR", c.Storage.InboxDir)

	c.OCR.Pdftotext = getEnv("PDFTOTEXT_BIN", c.OCR.Pdftotext)
	c.OCR.Pdftoppm = getEnv("PDFTOPPM_BIN", c.OCR.Pdftoppm)
	c.OCR.Tesseract = getEnv("TESSERACT_BIN", c.OCR.Tesseract)
	c.OCR.TesseractLang = getEnv("TESSERACT_LANG", c.OCR.TesseractLang)
	c.OCR.TessdataDir = getEnv("TESSDATA_PREFIX", c.OCR.TessdataDir)
	c.OCR.DPI = getEnvAsInt("OCR_DPI", c.OCR.DPI)
	c.OCR.MinTextChars = getEnvAsInt("MIN_TEXT_CHARS", c.OCR.MinTextChars)

	c.LLM.Provider = strings.ToLower(getEnv("LLM_PROVIDER", c.LLM.Provider))
	c.LLM.AnthropicAPIKey = getEnv("ANTHROPIC_API_KEY", c.LLM.AnthropicAPIKey)
	c.LLM.AnthropicModel = getEnv("ANTHROPIC_MODEL", c.LLM.AnthropicModel)
	c.LLM.OpenAIAPIKey = getEnv("OPENAI_API_KEY", c.LLM.OpenAIAPIKey)
	c.LLM.OpenAIModel = getEnv("OPENAI_MODEL", c.LLM.OpenAIModel)
	c.LLM.Temperature = getEnvAsFloat32("LLM_TEMPERATURE", c.LLM.Temperature)
	c.LLM.Timeout = getEnvAsDuration("LLM_TIMEOUT", c.LLM.Timeout)
	c.LLM.MaxRetries = getEnvAsInt("LLM_MAX_RETRIES", c.LLM.MaxRetries)
	c.LLM.RatePerMinute = getEnvAsInt("LLM_RATE_PER_MINUTE", c.LLM.RatePerMinute)
	c.LLM.UseMock = getEnvAsBool("USE_MOCK_EXTRACTOR", c.LLM.UseMock)

	c.Worker.Workers = getEnvAsInt("WORKERS", c.Worker.Workers)
	c.Worker.QueueSize = getEnvAsInt("QUEUE_SIZE", c.Worker.QueueSize)
	c.Worker.ProcessTimeout = getEnvAsDuration("PROCESS_TIMEOUT", c.Worker.ProcessTimeout)
	c.Worker.CaseParallelism = getEnvAsInt("CASE_PARALLELISM", c.Worker.CaseParallelism)
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL is required", ErrInvalidInput)
	}
	switch c.LLM.Provider {
	case "anthropic", "openai", "none", "":
	default:
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("unknown LLM_PROVIDER %q", c.LLM.Provider), ErrInvalidInput)
	}
	if c.OCR.DPI <= 0 {
		return NewAppError("CONFIG_ERROR", "OCR_DPI must be positive", ErrInvalidInput)
	}
	if c.Storage.UploadDir == "" {
		return NewAppError("CONFIG_ERROR", "UPLOAD_DIR is required", ErrInvalidInput)
	}
	return nil
}
