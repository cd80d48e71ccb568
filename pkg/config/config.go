package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database (optional: empty URL keeps the instance registry in memory)
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// External collaborators
	Binance    BinanceConfig
	GenAI      GenAIConfig
	Social     SocialConfig
	Settlement SettlementConfig

	// Curator core
	Curator CuratorConfig
	Judge   JudgeConfig

	// Logging
	LogLevel  string
	LogFormat string

	// Monitoring
	MetricsEnabled bool
	MetricsPort    string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// BinanceConfig holds the public market-data endpoint settings
type BinanceConfig struct {
	Enabled   bool
	BaseURL   string
	RateLimit int // requests per second
	Timeout   time.Duration
}

// GenAIConfig holds generative provider settings.
// An empty APIKey disables generation and every draft uses the template renderer.
type GenAIConfig struct {
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// SocialConfig holds the trend feed endpoint
type SocialConfig struct {
	TrendsURL string
	Timeout   time.Duration
}

// SettlementConfig holds the settlement authority endpoint
type SettlementConfig struct {
	URL     string
	Token   string
	Timeout time.Duration
}

// JudgeConfig holds resolution settings
type JudgeConfig struct {
	Timeout     time.Duration
	TickSize    float64
	SettleDelay time.Duration // wait after end_time so the closing candle is final
}

// CuratorConfig holds the startup values of the curator runtime config.
// Fields can come from a TOML file and are then overridden by CURATOR_* variables.
type CuratorConfig struct {
	Enabled           bool            `toml:"enabled"`
	Mode              string          `toml:"mode"`
	IntervalSeconds   int             `toml:"interval_seconds"`
	MaxMarketsPerHour int             `toml:"max_markets_per_hour"`
	AutoPublish       bool            `toml:"auto_publish"`
	MinLiquidity      float64         `toml:"min_liquidity"`
	MaxDurationHours  int             `toml:"max_duration_hours"`
	Assets            []string        `toml:"assets"`
	Topics            []string        `toml:"topics"`
	GameModes         map[string]bool `toml:"game_modes"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile reads the optional curator TOML file, then environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func LoadFile(curatorFile string) (*Config, error) {
	// Try multiple paths for .env file
	loadEnvFile()

	curator := defaultCurator()
	if curatorFile != "" {
		if _, err := toml.DecodeFile(curatorFile, &curator); err != nil {
			return nil, fmt.Errorf("decode curator file %s: %w", curatorFile, err)
		}
	}

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8080"),
		Env:  getEnv("ENV", "development"),

		// Database
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		// Redis
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		Binance: BinanceConfig{
			Enabled:   getEnvAsBool("BINANCE_ENABLED", true),
			BaseURL:   getEnv("BINANCE_BASE_URL", "https://api.binance.com"),
			RateLimit: getEnvAsInt("BINANCE_RATE_LIMIT", 10),
			Timeout:   getEnvAsDuration("BINANCE_TIMEOUT", "10s"),
		},

		GenAI: GenAIConfig{
			APIKey:      getEnv("GENAI_API_KEY", ""),
			Model:       getEnv("GENAI_MODEL", "gemini-2.0-flash"),
			Temperature: getEnvAsFloat("GENAI_TEMPERATURE", 0.7),
			MaxTokens:   getEnvAsInt("GENAI_MAX_TOKENS", 500),
			Timeout:     getEnvAsDuration("GENAI_TIMEOUT", "30s"),
		},

		Social: SocialConfig{
			TrendsURL: getEnv("SOCIAL_TRENDS_URL", ""),
			Timeout:   getEnvAsDuration("SOCIAL_TIMEOUT", "30s"),
		},

		Settlement: SettlementConfig{
			URL:     getEnv("SETTLEMENT_URL", ""),
			Token:   getEnv("SETTLEMENT_TOKEN", ""),
			Timeout: getEnvAsDuration("SETTLEMENT_TIMEOUT", "30s"),
		},

		Curator: CuratorConfig{
			Enabled:           getEnvAsBool("CURATOR_ENABLED", curator.Enabled),
			Mode:              getEnv("CURATOR_MODE", curator.Mode),
			IntervalSeconds:   getEnvAsInt("CURATOR_INTERVAL_SECONDS", curator.IntervalSeconds),
			MaxMarketsPerHour: getEnvAsInt("CURATOR_MAX_MARKETS_PER_HOUR", curator.MaxMarketsPerHour),
			AutoPublish:       getEnvAsBool("CURATOR_AUTO_PUBLISH", curator.AutoPublish),
			MinLiquidity:      getEnvAsFloat("MARKET_MIN_LIQUIDITY", curator.MinLiquidity),
			MaxDurationHours:  getEnvAsInt("MARKET_MAX_DURATION_HOURS", curator.MaxDurationHours),
			Assets:            getEnvAsList("CURATOR_ASSETS", curator.Assets),
			Topics:            getEnvAsList("CURATOR_TOPICS", curator.Topics),
			GameModes:         curator.GameModes,
		},

		Judge: JudgeConfig{
			Timeout:     getEnvAsDuration("JUDGE_TIMEOUT", "30s"),
			TickSize:    getEnvAsFloat("JUDGE_TICK_SIZE", 0.01),
			SettleDelay: getEnvAsDuration("SETTLE_DELAY", "1m"),
		},

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		// Monitoring
		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
		MetricsPort:    getEnv("METRICS_PORT", "9090"),
	}

	for _, mode := range getEnvAsList("CURATOR_DISABLED_GAME_MODES", nil) {
		if cfg.Curator.GameModes == nil {
			cfg.Curator.GameModes = make(map[string]bool)
		}
		cfg.Curator.GameModes[strings.ToUpper(mode)] = false
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// defaultCurator mirrors the admin panel defaults
func defaultCurator() CuratorConfig {
	return CuratorConfig{
		Enabled:           true,
		Mode:              "HUMAN_REVIEW",
		IntervalSeconds:   300,
		MaxMarketsPerHour: 10,
		AutoPublish:       false,
		MinLiquidity:      50000,
		MaxDurationHours:  24,
		Assets:            []string{"BTC/USDT", "ETH/USDT"},
		Topics:            []string{"Crypto Trading"},
	}
}

// validate checks if configuration values are usable
func (c *Config) validate() error {
	// Validate environment
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Curator.Mode != "HUMAN_REVIEW" && c.Curator.Mode != "FULL_CONTROL" {
		return fmt.Errorf("CURATOR_MODE must be HUMAN_REVIEW or FULL_CONTROL")
	}

	if c.Curator.IntervalSeconds < 60 || c.Curator.IntervalSeconds > 3600 {
		return fmt.Errorf("CURATOR_INTERVAL_SECONDS must be within 60..3600")
	}

	if c.Curator.MaxMarketsPerHour < 1 || c.Curator.MaxMarketsPerHour > 50 {
		return fmt.Errorf("CURATOR_MAX_MARKETS_PER_HOUR must be within 1..50")
	}

	if c.Curator.MaxDurationHours < 1 || c.Curator.MaxDurationHours > 24 {
		return fmt.Errorf("MARKET_MAX_DURATION_HOURS must be within 1..24")
	}

	if c.Judge.TickSize <= 0 {
		return fmt.Errorf("JUDGE_TICK_SIZE must be positive")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env",
	}

	// Also try relative to executable
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
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

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		// Fallback to default
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}

// getEnvAsList splits a comma-separated variable, dropping blanks
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
