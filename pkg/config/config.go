package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Snapshot data
	Tema TemaConfig

	// Refresh (재수집) trigger
	Refresh RefreshConfig

	// Crawler
	Crawl CrawlConfig

	// Redis (optional response cache)
	Redis RedisConfig

	// External endpoints
	KRXBaseURL   string
	NaverBaseURL string // 테마 보드 크롤링 (finance.naver.com)
	ChartBaseURL string // 일봉 시세 조회 (fchart.stock.naver.com)

	// Trading-calendar probing
	CalendarRefCode string

	// Logging
	LogLevel  string
	LogFormat string
}

// TemaConfig holds the theme snapshot directory layout
type TemaConfig struct {
	Root       string // per-day snapshot directories live here
	RecordPath string // flat record ledger (record.csv)
}

// RefreshConfig controls the manual refresh endpoint
type RefreshConfig struct {
	Enabled bool
	Token   string // optional X-Refresh-Token check, empty = no check
}

// CrawlConfig holds snapshot ingestion settings
type CrawlConfig struct {
	Pages   int // theme list pages to scan
	Workers int // concurrent per-theme fetches
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	loadEnvFile()

	temaRoot := getEnv("TEMA_ROOT", "./tema")

	cfg := &Config{
		Port: getEnv("PORT", "8090"),
		Env:  getEnv("ENV", "development"),

		Tema: TemaConfig{
			Root:       temaRoot,
			RecordPath: getEnv("RECORD_PATH", filepath.Join(temaRoot, "record.csv")),
		},

		Refresh: RefreshConfig{
			Enabled: getEnvAsBool("ENABLE_REFRESH", false),
			Token:   getEnv("REFRESH_TOKEN", ""),
		},

		Crawl: CrawlConfig{
			Pages:   getEnvAsInt("CRAWL_PAGES", 2),
			Workers: getEnvAsInt("CRAWL_WORKERS", 4),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		KRXBaseURL:   getEnv("KRX_BASE_URL", "http://data.krx.co.kr"),
		NaverBaseURL: getEnv("NAVER_BASE_URL", "https://finance.naver.com"),
		ChartBaseURL: getEnv("CHART_BASE_URL", "https://fchart.stock.naver.com"),

		// 기준 종목(삼성전자)으로 거래일 여부를 탐침한다.
		CalendarRefCode: getEnv("CALENDAR_REF_CODE", "005930"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	if c.Tema.Root == "" {
		return fmt.Errorf("TEMA_ROOT is required")
	}

	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Crawl.Pages < 1 {
		return fmt.Errorf("CRAWL_PAGES must be >= 1")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env",
	}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}
