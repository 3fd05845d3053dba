package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const DefaultSheetSource = "https://docs.google.com/spreadsheets/d/e/2PACX-1vQtYCSC4BZp4eeQcoR8ZtNcuuD80lGAEDt0mrbJJqc6iKefbu5G1zxFmRpk4gByjZy5ZrZBHTddKkFP/pub?output=csv"

const DefaultPageSize = 20

type Config struct {
	SheetSource        string
	SourceFormat       string
	SourceTimeoutMs    int
	SourceRateLimitRPS int
	SourceMaxAttempts  int

	PageSize         int
	AmountMinDefault float64
	AmountMaxDefault float64
	SearchThreshold  float64

	PhoneCountryCode string
	MessagingBaseURL string

	DBPath    string
	OutputDir string
	LogLevel  string

	HTTPAddr          string
	HTTPRateLimitRPS  int
	HTTPRateBurst     int
	ExportCacheTTLSec int
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		SheetSource:        getEnv("SHEET_SOURCE", DefaultSheetSource),
		SourceFormat:       strings.ToLower(getEnv("SOURCE_FORMAT", "auto")),
		SourceTimeoutMs:    getEnvInt("SOURCE_TIMEOUT_MS", 30000),
		SourceRateLimitRPS: getEnvInt("SOURCE_RATE_LIMIT_RPS", 5),
		SourceMaxAttempts:  getEnvInt("SOURCE_MAX_ATTEMPTS", 4),

		PageSize:         getEnvInt("PAGE_SIZE", DefaultPageSize),
		AmountMinDefault: getEnvFloat("AMOUNT_MIN_DEFAULT", 0),
		AmountMaxDefault: getEnvFloat("AMOUNT_MAX_DEFAULT", 3000),
		SearchThreshold:  getEnvFloat("SEARCH_THRESHOLD", 0.6),

		PhoneCountryCode: getEnv("PHONE_COUNTRY_CODE", "51"),
		MessagingBaseURL: getEnv("MESSAGING_BASE_URL", "https://wa.me"),

		DBPath:    getEnv("DB_PATH", filepath.Join(cwd, "data", "tarifario.db")),
		OutputDir: getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),
		LogLevel:  getEnv("LOG_LEVEL", "info"),

		HTTPAddr:          getEnv("HTTP_ADDR", ":8080"),
		HTTPRateLimitRPS:  getEnvInt("HTTP_RATE_LIMIT_RPS", 20),
		HTTPRateBurst:     getEnvInt("HTTP_RATE_BURST", 40),
		ExportCacheTTLSec: getEnvInt("EXPORT_CACHE_TTL_SEC", 300),
	}

	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.SourceMaxAttempts <= 0 {
		cfg.SourceMaxAttempts = 1
	}

	return cfg, nil
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing required env var: %s", name)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}
