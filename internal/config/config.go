package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"ledger_backend/pkg/utils"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"

	TokenStoreDatabase = "database"
	TokenStoreRedis    = "redis"
)

// Config holds everything the server reads from the environment.
type Config struct {
	Port      string
	LogLevel  string
	LogPretty bool

	StoreDriver    string
	DatabaseURL    string
	DBHost         string
	DBPort         string
	DBUser         string
	DBPassword     string
	DBName         string
	DBSSLMode      string
	DBApplySchema  bool
	DBMaxOpenConns int

	TokenStore string
	RedisURL   string
	RedisAddr  string

	NATSURL           string
	NATSSubjectPrefix string

	JWTSecret     string
	JWTIssuer     string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	RequireAuth   bool
	CORSOrigins   []string
	SignInRate    float64 // sign-in attempts per second per client IP
	SignInBurst   int
	ShutdownGrace time.Duration
}

// Load reads .env (when present) and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		utils.LogDebug("No .env file found, reading environment variables")
	}

	cfg := &Config{
		Port:      utils.Getenv("PORT", "8080"),
		LogLevel:  utils.Getenv("LOG_LEVEL", "info"),
		LogPretty: utils.GetenvBool("LOG_PRETTY", true),

		StoreDriver:    strings.ToLower(utils.Getenv("STORE_DRIVER", StoreDriverPostgres)),
		DatabaseURL:    utils.Getenv("DATABASE_URL", ""),
		DBHost:         utils.Getenv("DB_HOST", "localhost"),
		DBPort:         utils.Getenv("DB_PORT", "5432"),
		DBUser:         utils.Getenv("DB_USER", "ledger_user"),
		DBPassword:     utils.Getenv("DB_PASSWORD", "ledger_password"),
		DBName:         utils.Getenv("DB_NAME", "ledger_db"),
		DBSSLMode:      utils.Getenv("DB_SSLMODE", "disable"),
		DBApplySchema:  utils.GetenvBool("DB_APPLY_SCHEMA", true),
		DBMaxOpenConns: utils.GetenvInt("DB_MAX_OPEN_CONNS", 10),

		TokenStore: strings.ToLower(utils.Getenv("TOKEN_STORE", TokenStoreDatabase)),
		RedisURL:   utils.Getenv("REDIS_URL", ""),
		RedisAddr:  utils.Getenv("REDIS_ADDR", "localhost:6379"),

		NATSURL:           utils.Getenv("NATS_URL", ""),
		NATSSubjectPrefix: utils.Getenv("NATS_SUBJECT_PREFIX", "ledger"),

		JWTSecret:     utils.Getenv("JWT_SECRET", ""),
		JWTIssuer:     utils.Getenv("JWT_ISSUER", "ledger-backend"),
		AccessTTL:     utils.GetenvDuration("JWT_ACCESS_TTL", 5*time.Minute),
		RefreshTTL:    utils.GetenvDuration("JWT_REFRESH_TTL", 24*time.Hour),
		RequireAuth:   utils.GetenvBool("REQUIRE_AUTH", false),
		CORSOrigins:   splitList(utils.Getenv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
		SignInRate:    utils.GetenvFloat("SIGNIN_RATE_LIMIT", 1),
		SignInBurst:   utils.GetenvInt("SIGNIN_RATE_BURST", 5),
		ShutdownGrace: utils.GetenvDuration("SHUTDOWN_GRACE", 10*time.Second),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects combinations the server cannot start with.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	switch c.StoreDriver {
	case StoreDriverPostgres, StoreDriverMemory:
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", c.StoreDriver)
	}
	switch c.TokenStore {
	case TokenStoreDatabase, TokenStoreRedis:
	default:
		return fmt.Errorf("unsupported TOKEN_STORE %q", c.TokenStore)
	}
	if c.AccessTTL <= 0 || c.RefreshTTL <= 0 {
		return errors.New("JWT_ACCESS_TTL and JWT_REFRESH_TTL must be positive")
	}
	return nil
}

// PostgresDSN returns DATABASE_URL when set, otherwise a key/value DSN built from DB_* values.
func (c *Config) PostgresDSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if o := strings.TrimRight(strings.TrimSpace(p), "/"); o != "" {
			out = append(out, o)
		}
	}
	return out
}
