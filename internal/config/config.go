package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"certverify/internal/logger"
)

type Config struct {
	// OCR Configuration
	OCREngine        string // vision, documentai, tesseract
	OCRTimeout       time.Duration
	PreprocessImages bool
	MaxUploadBytes   int64
	PDFBackend       string
	PDFPassword      string
	OCRLanguageHints []string

	// Tesseract Configuration
	TesseractPath string
	TesseractLang string
	TessdataDir   string

	// Google Cloud Configuration
	GoogleCloudProject    string
	GoogleCloudLocation   string
	DocumentAIProcessorID string

	// Trusted record store
	DatabaseURL string
	RedisURL    string
	CacheTTL    time.Duration

	// HTTP server
	HTTPAddr      string
	PublicBaseURL string

	// Google Sheets Configuration
	GoogleSheetURL       string
	GoogleSheetWorksheet string

	// Logging Configuration
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

// Load reads the configuration from the environment. Only values every command needs are
// validated here; command specific requirements are checked by the Require* methods.
func Load() (*Config, error) {
	config := &Config{
		OCREngine:             strings.ToLower(getEnv("OCR_ENGINE", "tesseract")),
		OCRTimeout:            getEnvDuration("OCR_TIMEOUT", 30*time.Second),
		PreprocessImages:      getEnvBool("OCR_PREPROCESS", true),
		MaxUploadBytes:        int64(getEnvInt("MAX_UPLOAD_BYTES", 10<<20)),
		PDFBackend:            getEnv("PDF_BACKEND", "ledongthuc"),
		PDFPassword:           getEnv("PDF_PASSWORD", ""),
		OCRLanguageHints:      getEnvList("OCR_LANGUAGE_HINTS"),
		TesseractPath:         getEnv("TESSERACT_PATH", "tesseract"),
		TesseractLang:         getEnv("TESSERACT_LANG", "eng"),
		TessdataDir:           getEnv("TESSDATA_DIR", ""),
		GoogleCloudProject:    getEnv("GOOGLE_CLOUD_PROJECT", ""),
		GoogleCloudLocation:   getEnv("GOOGLE_CLOUD_LOCATION", "us"),
		DocumentAIProcessorID: getEnv("DOCUMENT_AI_PROCESSOR_ID", ""),
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		RedisURL:              getEnv("REDIS_URL", ""),
		CacheTTL:              getEnvDuration("CACHE_TTL", 10*time.Minute),
		HTTPAddr:              getEnv("HTTP_ADDR", ":8080"),
		PublicBaseURL:         getEnv("PUBLIC_BASE_URL", "http://localhost:3000"),
		GoogleSheetURL:        getEnv("GOOGLE_SHEET_URL", ""),
		GoogleSheetWorksheet:  getEnv("GOOGLE_SHEET_WORKSHEET", "Verifications"),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		LogFormat:             getEnv("LOG_FORMAT", "console"),
		LogTimeFormat:         getEnv("LOG_TIME_FORMAT", "2006-01-02T15:04:05Z07:00"),
		LogOutput:             getEnv("LOG_OUTPUT", "stderr"),
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func (c *Config) validate() error {
	switch c.OCREngine {
	case "vision", "documentai", "tesseract":
	default:
		return fmt.Errorf("OCR_ENGINE must be one of vision, documentai, tesseract (got %q)", c.OCREngine)
	}
	if c.OCRTimeout <= 0 {
		return fmt.Errorf("OCR_TIMEOUT must be positive")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive")
	}
	return nil
}

// RequireOCR checks the settings the selected OCR engine depends on.
func (c *Config) RequireOCR() error {
	if c.OCREngine == "documentai" {
		if c.GoogleCloudProject == "" {
			return fmt.Errorf("GOOGLE_CLOUD_PROJECT is required for the documentai engine")
		}
		if c.DocumentAIProcessorID == "" {
			return fmt.Errorf("DOCUMENT_AI_PROCESSOR_ID is required for the documentai engine")
		}
	}
	return nil
}

// RequireStore checks that a trusted record database is configured.
func (c *Config) RequireStore() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	return nil
}

// RequireSheets checks that an audit sheet is configured.
func (c *Config) RequireSheets() error {
	if c.GoogleSheetURL == "" {
		return fmt.Errorf("GOOGLE_SHEET_URL is required")
	}
	return nil
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated value, dropping empty items.
func getEnvList(key string) []string {
	var items []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// getEnvDuration accepts Go durations ("45s") and plain seconds ("45").
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
