package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Auth     AuthConfig
	Admin    AdminConfig
	Gate     GateConfig
}

type DatabaseConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
	AutoMigrate       bool
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	Version        string
	AllowedOrigins []string
	TrustedProxies []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
}

type AuthConfig struct {
	JWTSecret           string
	SessionLifetime     time.Duration
	LoginWindow         time.Duration
	LoginMaxFailures    int
	LoginBlockDuration  time.Duration
	LoginStaleAfter     time.Duration
	TimingDelayBaseMs   int
	TimingDelayRandomMs int
}

// AdminConfig covers seeding and the disaster-recovery credential pair
type AdminConfig struct {
	Username         string
	Password         string
	RecoveryEnabled  bool
	RecoveryUsername string
	RecoveryPassword string
}

// GateConfig holds admission gate limits
type GateConfig struct {
	MaxURLLength    int
	MaxQueryLength  int
	MaxBodyBytes    int64
	AuthPerWindow   int
	SearchPerWindow int
	ReadPerWindow   int
	WritePerWindow  int
	Window          time.Duration
	BlockDuration   time.Duration
	SweepInterval   time.Duration
	HealthPerMinute int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	jwtSecret := getEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	env := getEnv("ENV", "development")

	cfg := &Config{
		Database: loadDatabaseConfig(),
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Env:            env,
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			Version:        getEnv("APP_VERSION", "0.1.0"),
			AllowedOrigins: parseAllowedOrigins(env),
			TrustedProxies: getEnvAsList("TRUSTED_PROXIES"),
			ReadTimeout:    getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:    getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Auth: AuthConfig{
			JWTSecret:           jwtSecret,
			SessionLifetime:     getEnvAsDuration("SESSION_LIFETIME", 7*24*time.Hour),
			LoginWindow:         getEnvAsDuration("LOGIN_WINDOW", 15*time.Minute),
			LoginMaxFailures:    getEnvAsInt("LOGIN_MAX_FAILURES", 5),
			LoginBlockDuration:  getEnvAsDuration("LOGIN_BLOCK", 15*time.Minute),
			LoginStaleAfter:     getEnvAsDuration("LOGIN_STALE_AFTER", 24*time.Hour),
			TimingDelayBaseMs:   getEnvAsInt("TIMING_DELAY_BASE_MS", 150),
			TimingDelayRandomMs: getEnvAsInt("TIMING_DELAY_RANDOM_MS", 100),
		},
		Admin: AdminConfig{
			Username:         getEnv("ADMIN_USERNAME", ""),
			Password:         getEnv("ADMIN_PASSWORD", ""),
			RecoveryEnabled:  getEnvAsBool("ADMIN_RECOVERY_ENABLED", true),
			RecoveryUsername: getEnv("ADMIN_RECOVERY_USERNAME", "admin"),
			RecoveryPassword: getEnv("ADMIN_RECOVERY_PASSWORD", "LulusSPP2026!"),
		},
		Gate: GateConfig{
			MaxURLLength:    getEnvAsInt("GATE_MAX_URL_LENGTH", 2048),
			MaxQueryLength:  getEnvAsInt("GATE_MAX_QUERY_LENGTH", 1200),
			MaxBodyBytes:    int64(getEnvAsInt("GATE_MAX_BODY_BYTES", 200_000)),
			AuthPerWindow:   getEnvAsInt("GATE_AUTH_PER_WINDOW", 20),
			SearchPerWindow: getEnvAsInt("GATE_SEARCH_PER_WINDOW", 45),
			ReadPerWindow:   getEnvAsInt("GATE_READ_PER_WINDOW", 120),
			WritePerWindow:  getEnvAsInt("GATE_WRITE_PER_WINDOW", 40),
			Window:          getEnvAsDuration("GATE_WINDOW", time.Minute),
			BlockDuration:   getEnvAsDuration("GATE_BLOCK", 5*time.Minute),
			SweepInterval:   getEnvAsDuration("GATE_SWEEP_INTERVAL", 30*time.Second),
			HealthPerMinute: getEnvAsInt("HEALTH_RATE_LIMIT", 30),
		},
	}

	if cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}

	if err := validateJWTSecret(jwtSecret, env); err != nil {
		return nil, err
	}

	if cfg.Admin.RecoveryEnabled && (cfg.Admin.RecoveryUsername == "" || cfg.Admin.RecoveryPassword == "") {
		return nil, fmt.Errorf("ADMIN_RECOVERY_USERNAME and ADMIN_RECOVERY_PASSWORD are required when recovery is enabled")
	}

	return cfg, nil
}

// LoadDatabase loads only the database settings, for tools that never serve requests
func LoadDatabase() (*DatabaseConfig, error) {
	_ = godotenv.Load()

	cfg := loadDatabaseConfig()
	if cfg.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}
	return &cfg, nil
}

func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Host:              getEnv("DB_HOST", "localhost"),
		Port:              getEnvAsInt("DB_PORT", 5432),
		User:              getEnv("DB_USER", "postgres"),
		Password:          getEnv("DB_PASSWORD", ""),
		Name:              getEnv("DB_NAME", "lulus_spp"),
		SSLMode:           getEnv("DB_SSLMODE", "disable"),
		MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 10)),
		MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 2)),
		MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
		MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
		HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
		AutoMigrate:       getEnvAsBool("DB_AUTO_MIGRATE", true),
	}
}

// IsProduction reports whether the server runs in the production environment
func (c *ServerConfig) IsProduction() bool {
	return c.Env == "production"
}

// validateJWTSecret enforces minimum security standards for JWT secret
func validateJWTSecret(secret, env string) error {
	minLength := 16
	if env == "production" {
		minLength = 32
	}

	if len(secret) < minLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters in %s environment (got %d)",
			minLength, env, len(secret))
	}

	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("JWT_SECRET cannot be a common weak value")
		}
	}

	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

func getEnvAsList(key string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return []string{}
	}
	items := strings.Split(raw, ",")
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func parseAllowedOrigins(env string) []string {
	if env == "production" {
		return getEnvAsList("ALLOWED_ORIGINS")
	}

	// Development: allow localhost variants
	return []string{
		"http://localhost:3000",
		"http://localhost:8080",
		"http://127.0.0.1:3000",
		"http://127.0.0.1:8080",
	}
}
