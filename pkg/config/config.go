package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string `yaml:"port"`
	Env  string `yaml:"env"` // development, staging, production

	// Logging
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"` // json, console, pretty, text

	Provider     ProviderConfig     `yaml:"provider"`
	Cache        CacheConfig        `yaml:"cache"`
	Screening    ScreeningConfig    `yaml:"screening"`
	Storage      StorageConfig      `yaml:"storage"`
	Database     DatabaseConfig     `yaml:"database"`
	Redis        RedisConfig        `yaml:"redis"`
	Notification NotificationConfig `yaml:"notification"`
	Scheduler    SchedulerConfig    `yaml:"scheduler"`

	// Monitoring
	MetricsEnabled bool   `yaml:"metrics_enabled"`
	MetricsPort    string `yaml:"metrics_port"`
}

// ProviderConfig holds market data provider configuration
type ProviderConfig struct {
	Name      string        `yaml:"name"` // yahoo, alpha_vantage
	APIKey    string        `yaml:"api_key"`
	RateLimit int           `yaml:"rate_limit"` // requests per minute
	Timeout   time.Duration `yaml:"timeout"`
}

// CacheConfig holds provider response TTLs
type CacheConfig struct {
	QuoteTTL       time.Duration `yaml:"quote_ttl"`
	OptionChainTTL time.Duration `yaml:"option_chain_ttl"`
	HistoricalTTL  time.Duration `yaml:"historical_ttl"`
}

// ScreeningConfig holds screening run defaults
type ScreeningConfig struct {
	Universe      []string `yaml:"universe"`       // DEFAULT, SP500
	CustomSymbols []string `yaml:"custom_symbols"` // overrides Universe when set
	MaxConcurrent int      `yaml:"max_concurrent"`
	LookbackDays  int      `yaml:"lookback_days"`
	StrategyPath  string   `yaml:"strategy_path"`
}

// StorageConfig selects the result repository backend
type StorageConfig struct {
	Driver     string `yaml:"driver"` // sqlite, postgres
	SQLitePath string `yaml:"sqlite_path"`
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Enabled  bool   `yaml:"enabled"`
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string `yaml:"url"`

	// Connection Pool
	MaxConns        int           `yaml:"max_conns"`
	MinConns        int           `yaml:"min_conns"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time"`
}

// NotificationConfig holds alert channel configuration
type NotificationConfig struct {
	SMTPHost     string   `yaml:"smtp_host"`
	SMTPPort     int      `yaml:"smtp_port"`
	SMTPUser     string   `yaml:"smtp_user"`
	SMTPPassword string   `yaml:"smtp_password"`
	FromAddress  string   `yaml:"from_address"`
	ToAddresses  []string `yaml:"to_addresses"`

	TelegramToken  string `yaml:"telegram_token"`
	TelegramChatID int64  `yaml:"telegram_chat_id"`

	WebhookURL string `yaml:"webhook_url"`
}

// SchedulerConfig holds the cron schedule for unattended runs
type SchedulerConfig struct {
	Schedule string `yaml:"schedule"` // cron with seconds field
	Notify   bool   `yaml:"notify"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile reads an optional YAML file and then applies environment overrides.
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
// 우선순위: 환경변수 > YAML 파일 > 기본값
func LoadFile(path string) (*Config, error) {
	loadEnvFile()

	cfg := defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Port:      "8089",
		Env:       "development",
		LogLevel:  "info",
		LogFormat: "json",
		Provider: ProviderConfig{
			Name:      "yahoo",
			RateLimit: 5,
			Timeout:   30 * time.Second,
		},
		Cache: CacheConfig{
			QuoteTTL:       5 * time.Minute,
			OptionChainTTL: 15 * time.Minute,
			HistoricalTTL:  24 * time.Hour,
		},
		Screening: ScreeningConfig{
			Universe:      []string{"DEFAULT"},
			MaxConcurrent: 5,
			LookbackDays:  300,
			StrategyPath:  defaultStrategyPath(),
		},
		Storage: StorageConfig{
			Driver:     "sqlite",
			SQLitePath: defaultSQLitePath(),
		},
		Database: DatabaseConfig{
			MaxConns:        10,
			MinConns:        2,
			MaxConnLifetime: time.Hour,
			MaxConnIdleTime: 30 * time.Minute,
		},
		Redis: RedisConfig{
			Host: "localhost",
			Port: "6379",
		},
		Notification: NotificationConfig{
			SMTPHost: "smtp.gmail.com",
			SMTPPort: 587,
		},
		Scheduler: SchedulerConfig{
			Schedule: "0 45 9 * * MON-FRI",
			Notify:   true,
		},
		MetricsPort: "9090",
	}
}

// applyEnv overrides values with environment variables, keeping current values as defaults
func (c *Config) applyEnv() {
	c.Port = getEnv("PORT", c.Port)
	c.Env = getEnv("ENV", c.Env)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)

	c.Provider.Name = getEnv("DATA_PROVIDER", c.Provider.Name)
	c.Provider.APIKey = getEnv("ALPHA_VANTAGE_API_KEY", c.Provider.APIKey)
	c.Provider.RateLimit = getEnvAsInt("DATA_PROVIDER_RATE_LIMIT", c.Provider.RateLimit)
	c.Provider.Timeout = getEnvAsDuration("DATA_PROVIDER_TIMEOUT", c.Provider.Timeout)

	c.Cache.QuoteTTL = getEnvAsDuration("CACHE_QUOTE_TTL", c.Cache.QuoteTTL)
	c.Cache.OptionChainTTL = getEnvAsDuration("CACHE_OPTION_CHAIN_TTL", c.Cache.OptionChainTTL)
	c.Cache.HistoricalTTL = getEnvAsDuration("CACHE_HISTORICAL_TTL", c.Cache.HistoricalTTL)

	c.Screening.Universe = getEnvAsSlice("SCREENING_UNIVERSE", c.Screening.Universe)
	c.Screening.CustomSymbols = getEnvAsSlice("SCREENING_CUSTOM_SYMBOLS", c.Screening.CustomSymbols)
	c.Screening.MaxConcurrent = getEnvAsInt("SCREENING_MAX_CONCURRENT", c.Screening.MaxConcurrent)
	c.Screening.LookbackDays = getEnvAsInt("SCREENING_LOOKBACK_DAYS", c.Screening.LookbackDays)
	c.Screening.StrategyPath = getEnv("SCREENING_STRATEGY_PATH", c.Screening.StrategyPath)

	c.Storage.Driver = getEnv("STORAGE_DRIVER", c.Storage.Driver)
	c.Storage.SQLitePath = getEnv("SQLITE_PATH", c.Storage.SQLitePath)

	c.Database.URL = getEnv("DATABASE_URL", c.Database.URL)
	c.Database.MaxConns = getEnvAsInt("DB_MAX_CONNS", c.Database.MaxConns)
	c.Database.MinConns = getEnvAsInt("DB_MIN_CONNS", c.Database.MinConns)
	c.Database.MaxConnLifetime = getEnvAsDuration("DB_MAX_CONN_LIFETIME", c.Database.MaxConnLifetime)
	c.Database.MaxConnIdleTime = getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", c.Database.MaxConnIdleTime)

	c.Redis.Host = getEnv("REDIS_HOST", c.Redis.Host)
	c.Redis.Port = getEnv("REDIS_PORT", c.Redis.Port)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = getEnvAsInt("REDIS_DB", c.Redis.DB)
	c.Redis.Enabled = getEnvAsBool("REDIS_ENABLED", c.Redis.Enabled)

	n := &c.Notification
	n.SMTPHost = getEnv("SMTP_HOST", n.SMTPHost)
	n.SMTPPort = getEnvAsInt("SMTP_PORT", n.SMTPPort)
	n.SMTPUser = getEnv("SMTP_USER", n.SMTPUser)
	n.SMTPPassword = getEnv("SMTP_PASSWORD", n.SMTPPassword)
	n.FromAddress = getEnv("NOTIFICATION_FROM", n.FromAddress)
	n.ToAddresses = getEnvAsSlice("NOTIFICATION_TO", n.ToAddresses)
	n.TelegramToken = getEnv("TELEGRAM_TOKEN", n.TelegramToken)
	n.TelegramChatID = getEnvAsInt64("TELEGRAM_CHAT_ID", n.TelegramChatID)
	n.WebhookURL = getEnv("NOTIFICATION_WEBHOOK_URL", n.WebhookURL)

	c.Scheduler.Schedule = getEnv("SCHEDULE", c.Scheduler.Schedule)
	c.Scheduler.Notify = getEnvAsBool("SCHEDULE_NOTIFY", c.Scheduler.Notify)

	c.MetricsEnabled = getEnvAsBool("METRICS_ENABLED", c.MetricsEnabled)
	c.MetricsPort = getEnv("METRICS_PORT", c.MetricsPort)
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	switch c.Storage.Driver {
	case "sqlite":
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for sqlite storage")
		}
	case "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required for postgres storage")
		}
	default:
		return fmt.Errorf("STORAGE_DRIVER must be one of: sqlite, postgres")
	}

	if c.Provider.Name != "yahoo" && c.Provider.Name != "alpha_vantage" {
		return fmt.Errorf("DATA_PROVIDER must be one of: yahoo, alpha_vantage")
	}
	if c.Provider.RateLimit <= 0 {
		return fmt.Errorf("DATA_PROVIDER_RATE_LIMIT must be positive")
	}

	if c.Screening.MaxConcurrent <= 0 {
		return fmt.Errorf("SCREENING_MAX_CONCURRENT must be positive")
	}
	if c.Screening.LookbackDays <= 0 {
		return fmt.Errorf("SCREENING_LOOKBACK_DAYS must be positive")
	}

	return nil
}

// Helper functions (private, only used within this file)

func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "orion")
}

func defaultSQLitePath() string {
	return filepath.Join(configDir(), "data", "screenings.db")
}

func defaultStrategyPath() string {
	return filepath.Join(configDir(), "strategies", "ofi.yaml")
}

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env",
		filepath.Join(configDir(), ".env"),
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

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseInt(valueStr, 10, 64)
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

// getEnvAsDuration accepts Go durations ("15m") or plain seconds ("900")
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	if seconds, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(seconds) * time.Second
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}

	return duration
}

func getEnvAsSlice(key string, defaultValue []string) []string {
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
