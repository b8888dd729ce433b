package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

// app config, loaded once at startup
type Config struct {
	Port     string
	LogLevel string

	Provider  string
	AIAPIKey  string
	AIModel   string
	AIBaseURL string

	DBDriver   string
	Postgres   PostgresConfig
	SQLitePath string

	RedisAddr   string
	LockBackend string

	JWTSecret    string
	AuthRequired bool

	FreeDailyLimit   int
	NormalDailyLimit int
	Timezone         string
	Location         *time.Location

	MaxQuestions       int
	MinQuestions       int
	GenerationTimeout  time.Duration
	GenerationAttempts int
	ScoringTimeout     time.Duration
	Scorer             string
	FallbackQuestions  bool

	ReservationTTL time.Duration
	ReaperSchedule string

	// RequestTimeout bounds one HTTP request, collaborator calls included.
	RequestTimeout time.Duration
	// RetryWindow is how long a repeated answer without request_id or question_seq counts as a retry.
	RetryWindow time.Duration

	WechatAppID     string
	WechatAppSecret string
	WechatBaseURL   string

	PaymentSecret  string
	AllowedOrigins []string
}

type PostgresConfig struct {
	Host     string
	User     string
	Password string
	DBName   string
	Port     string
	SSLMode  string
}

// DSN renders the postgres connection string.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		p.Host, p.User, p.Password, p.DBName, p.Port, p.SSLMode)
}

// loads configuration from .env (if present) and environment variables
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	var errs []error
	config := &Config{
		Port:      getEnvOrDefault("PORT", "8080"),
		Provider:  getEnvOrDefault("AI_PROVIDER", "gemini"),
		LogLevel:  getEnvOrDefault("LOG_LEVEL", "info"),
		AIAPIKey:  os.Getenv("GEMINI_API_KEY"),
		AIModel:   os.Getenv("GEMINI_MODEL"),
		AIBaseURL: os.Getenv("GEMINI_BASE_URL"),
		DBDriver:  getEnvOrDefault("DB_DRIVER", "postgres"),
		Postgres: PostgresConfig{
			Host:     getEnvOrDefault("POSTGRES_HOST", "localhost"),
			User:     getEnvOrDefault("POSTGRES_USER", "postgres"),
			Password: getEnvOrDefault("POSTGRES_PASSWORD", "postgres"),
			DBName:   getEnvOrDefault("POSTGRES_DB", "postgres"),
			Port:     getEnvOrDefault("POSTGRES_PORT", "5432"),
			SSLMode:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
		},
		SQLitePath:      getEnvOrDefault("SQLITE_PATH", "interview.db"),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		LockBackend:     getEnvOrDefault("LOCK_BACKEND", "memory"),
		JWTSecret:       getEnvOrDefault("JWT_SECRET", "dev"),
		Timezone:        getEnvOrDefault("LEDGER_TIMEZONE", "Asia/Shanghai"),
		Scorer:          getEnvOrDefault("SCORER", "llm"),
		ReaperSchedule:  getEnvOrDefault("RESERVATION_REAPER_SCHEDULE", "@every 1m"),
		WechatAppID:     os.Getenv("WECHAT_APP_ID"),
		WechatAppSecret: os.Getenv("WECHAT_APP_SECRET"),
		WechatBaseURL:   getEnvOrDefault("WECHAT_API_BASE", "https://api.weixin.qq.com"),
		PaymentSecret:   os.Getenv("PAYMENT_WEBHOOK_SECRET"),
		AllowedOrigins:  splitList(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "*")),
	}

	config.AuthRequired = getEnvBool("AUTH_REQUIRED", false, &errs)
	config.FallbackQuestions = getEnvBool("FALLBACK_QUESTIONS", true, &errs)
	config.FreeDailyLimit = getEnvInt("FREE_DAILY_LIMIT", 1, &errs)
	config.NormalDailyLimit = getEnvInt("NORMAL_VIP_DAILY_LIMIT", 5, &errs)
	config.MaxQuestions = getEnvInt("MAX_QUESTIONS", 8, &errs)
	config.MinQuestions = getEnvInt("MIN_QUESTIONS", 5, &errs)
	config.GenerationAttempts = getEnvInt("GENERATION_ATTEMPTS", 2, &errs)
	config.GenerationTimeout = getEnvDuration("GENERATION_TIMEOUT", 30*time.Second, &errs)
	config.ScoringTimeout = getEnvDuration("SCORING_TIMEOUT", 15*time.Second, &errs)
	config.ReservationTTL = getEnvDuration("RESERVATION_TTL", 5*time.Minute, &errs)
	config.RequestTimeout = getEnvDuration("REQUEST_TIMEOUT", 120*time.Second, &errs)
	config.RetryWindow = getEnvDuration("ANSWER_RETRY_WINDOW", time.Minute, &errs)

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	if err := validateConfig(config); err != nil {
		return nil, err
	}
	return config, nil
}

func validateConfig(config *Config) error {
	if config.Provider != "gemini" {
		return errors.New("unsupported AI provider: " + config.Provider + ". Currently supported: gemini")
	}
	if config.DBDriver != "postgres" && config.DBDriver != "sqlite" {
		return errors.New("unsupported DB_DRIVER: " + config.DBDriver + ". Supported: postgres, sqlite")
	}
	switch config.LockBackend {
	case "memory":
	case "redis":
		if config.RedisAddr == "" {
			return errors.New("LOCK_BACKEND=redis requires REDIS_ADDR")
		}
	default:
		return errors.New("unsupported LOCK_BACKEND: " + config.LockBackend)
	}
	if config.Scorer != "llm" && config.Scorer != "keyword" {
		return errors.New("unsupported SCORER: " + config.Scorer + ". Supported: llm, keyword")
	}
	if config.FreeDailyLimit < 0 || config.NormalDailyLimit < 0 {
		return errors.New("daily limits must not be negative")
	}
	if config.MaxQuestions < 1 {
		return errors.New("MAX_QUESTIONS must be at least 1")
	}
	if config.MinQuestions < 1 || config.MinQuestions > config.MaxQuestions {
		return fmt.Errorf("MIN_QUESTIONS must be between 1 and MAX_QUESTIONS (%d)", config.MaxQuestions)
	}
	if config.GenerationAttempts < 1 {
		return errors.New("GENERATION_ATTEMPTS must be at least 1")
	}
	if config.GenerationTimeout <= 0 || config.ScoringTimeout <= 0 || config.ReservationTTL <= 0 ||
		config.RequestTimeout <= 0 || config.RetryWindow <= 0 {
		return errors.New("timeouts must be positive")
	}
	// an answer may wait on scoring and then on every generation attempt
	if budget := config.CollaboratorBudget(); budget >= config.RequestTimeout {
		return fmt.Errorf("SCORING_TIMEOUT + GENERATION_ATTEMPTS*GENERATION_TIMEOUT (%s) must be below REQUEST_TIMEOUT (%s)",
			budget, config.RequestTimeout)
	}
	loc, err := time.LoadLocation(config.Timezone)
	if err != nil {
		return fmt.Errorf("invalid LEDGER_TIMEZONE %q: %w", config.Timezone, err)
	}
	config.Location = loc
	return nil
}

// CollaboratorBudget is the longest an answer can wait on scoring and question generation.
func (c *Config) CollaboratorBudget() time.Duration {
	return c.ScoringTimeout + time.Duration(c.GenerationAttempts)*c.GenerationTimeout
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int, errs *[]error) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return i
}

func getEnvBool(key string, defaultValue bool, errs *[]error) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return b
}

func getEnvDuration(key string, defaultValue time.Duration, errs *[]error) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return d
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
