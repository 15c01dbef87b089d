package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database  DatabaseConfig
	Server    ServerConfig
	Auth      AuthConfig
	TwoFactor TwoFactorConfig
	Email     EmailConfig
	Redis     RedisConfig
	Captcha   CaptchaConfig
	Cookie    CookieConfig
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
	ConnectAttempts   int
	AutoMigrate       bool
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	AllowedOrigins []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	RequestsPerMin int      // per-IP limit on /auth routes
	TrustedProxies []string // CIDRs allowed to set X-Forwarded-For
}

// AuthConfig is the login policy. MaxFailedAttempts and LockoutDuration
// drive the per-client counter; the *PerEmail/IP/Device values drive the
// server-side limiter that sits behind the credential verifier.
type AuthConfig struct {
	JWTSecret          string
	SessionTokenExpiry time.Duration
	CallTimeout        time.Duration
	MaxFailedAttempts  int
	LockoutDuration    time.Duration
	SessionIdleTimeout time.Duration
	CleanupInterval    time.Duration

	MaxFailedAttemptsPerEmail int
	EmailLockoutDuration      time.Duration
	MaxAttemptsPerIP          int
	MaxAttemptsPerDevice      int
	RateLimitLookbackWindow   time.Duration

	TimingDelayBaseMs    int
	TimingDelayRandomMs  int
	TimingDelayOnSuccess bool

	AdminEmail    string
	AdminPassword string
}

type TwoFactorConfig struct {
	EncryptionKey []byte // 32 bytes, hex encoded in TOTP_ENCRYPTION_KEY
	Issuer        string
	ResetTokenTTL time.Duration
	ResetLinkBase string
	CodeInterval  time.Duration // one code guess refills per interval
	CodeBurst     int
}

type EmailConfig struct {
	Enabled     bool
	AWSRegion   string
	FromAddress string
}

type RedisConfig struct {
	Addr     string // empty = in-memory stores
	Password string
	DB       int
}

type CaptchaConfig struct {
	Secret   string
	Endpoint string
	Timeout  time.Duration
}

type CookieConfig struct {
	Domain   string
	Secure   bool
	SameSite string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	jwtSecret := getEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	env := getEnv("ENV", "development")

	cfg := &Config{
		Database: DatabaseConfig{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvAsInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", ""),
			Name:              getEnv("DB_NAME", "records_portal"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 5)),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
			ConnectAttempts:   getEnvAsInt("DB_CONNECT_ATTEMPTS", 5),
			AutoMigrate:       getEnvAsBool("DB_AUTO_MIGRATE", true),
		},
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Env:            env,
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			AllowedOrigins: parseAllowedOrigins(env),
			ReadTimeout:    getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:    getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			RequestsPerMin: getEnvAsInt("AUTH_REQUESTS_PER_MIN", 30),
			TrustedProxies: splitList(getEnv("TRUSTED_PROXIES", "")),
		},
		Auth: AuthConfig{
			JWTSecret:          jwtSecret,
			SessionTokenExpiry: getEnvAsDuration("SESSION_TOKEN_EXPIRY", 8*time.Hour),
			CallTimeout:        getEnvAsDuration("AUTH_CALL_TIMEOUT", 10*time.Second),
			MaxFailedAttempts:  getEnvAsInt("LOGIN_MAX_FAILED_ATTEMPTS", 3),
			LockoutDuration:    getEnvAsDuration("LOGIN_LOCKOUT_DURATION", 15*time.Minute),
			SessionIdleTimeout: getEnvAsDuration("CLIENT_SESSION_IDLE_TIMEOUT", 30*time.Minute),
			CleanupInterval:    getEnvAsDuration("CLEANUP_INTERVAL", 1*time.Hour),

			MaxFailedAttemptsPerEmail: getEnvAsInt("RATE_LIMIT_MAX_PER_EMAIL", 10),
			EmailLockoutDuration:      getEnvAsDuration("RATE_LIMIT_EMAIL_LOCKOUT", 30*time.Minute),
			MaxAttemptsPerIP:          getEnvAsInt("RATE_LIMIT_MAX_PER_IP", 50),
			MaxAttemptsPerDevice:      getEnvAsInt("RATE_LIMIT_MAX_PER_DEVICE", 20),
			RateLimitLookbackWindow:   getEnvAsDuration("RATE_LIMIT_LOOKBACK", 1*time.Hour),

			TimingDelayBaseMs:    getEnvAsInt("TIMING_DELAY_BASE_MS", 100),
			TimingDelayRandomMs:  getEnvAsInt("TIMING_DELAY_RANDOM_MS", 50),
			TimingDelayOnSuccess: getEnvAsBool("TIMING_DELAY_ON_SUCCESS", false),

			AdminEmail:    getEnv("ADMIN_EMAIL", ""),
			AdminPassword: getEnv("ADMIN_PASSWORD", ""),
		},
		TwoFactor: TwoFactorConfig{
			Issuer:        getEnv("TOTP_ISSUER", "Records Portal"),
			ResetTokenTTL: getEnvAsDuration("TWO_FACTOR_RESET_TTL", 2*time.Hour),
			ResetLinkBase: getEnv("TWO_FACTOR_RESET_URL", "http://localhost:3000/two-factor/reset"),
			CodeInterval:  getEnvAsDuration("TWO_FACTOR_CODE_INTERVAL", 12*time.Second),
			CodeBurst:     getEnvAsInt("TWO_FACTOR_CODE_BURST", 5),
		},
		Email: EmailConfig{
			Enabled:     getEnvAsBool("EMAIL_ENABLED", env == "production"),
			AWSRegion:   getEnv("AWS_REGION", "us-east-1"),
			FromAddress: getEnv("EMAIL_FROM_ADDRESS", "no-reply@localhost"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Captcha: CaptchaConfig{
			Secret:   getEnv("CAPTCHA_SECRET", ""),
			Endpoint: getEnv("CAPTCHA_VERIFY_URL", "https://api.hcaptcha.com/siteverify"),
			Timeout:  getEnvAsDuration("CAPTCHA_TIMEOUT", 5*time.Second),
		},
		Cookie: CookieConfig{
			Domain:   getEnv("COOKIE_DOMAIN", ""),
			Secure:   getEnvAsBool("COOKIE_SECURE", env == "production"),
			SameSite: getEnv("COOKIE_SAMESITE", "strict"),
		},
	}

	if cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}

	// Validate JWT secret strength
	if err := validateJWTSecret(jwtSecret, env); err != nil {
		return nil, err
	}

	key, err := parseEncryptionKey(getEnv("TOTP_ENCRYPTION_KEY", ""), env)
	if err != nil {
		return nil, err
	}
	cfg.TwoFactor.EncryptionKey = key

	if env == "production" && cfg.Captcha.Secret == "" {
		return nil, fmt.Errorf("CAPTCHA_SECRET is required in production")
	}

	if cfg.Auth.MaxFailedAttempts < 1 {
		return nil, fmt.Errorf("LOGIN_MAX_FAILED_ATTEMPTS must be at least 1")
	}

	return cfg, nil
}

// validateJWTSecret enforces minimum security standards for JWT secret
func validateJWTSecret(secret, env string) error {
	// Minimum length based on environment
	minLength := 16 // Development minimum
	if env == "production" {
		minLength = 32 // Production requires stronger secret (256 bits)
	}

	if len(secret) < minLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters in %s environment (got %d)",
			minLength, env, len(secret))
	}

	// Check against common weak secrets
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

// parseEncryptionKey decodes the hex TOTP key. Outside production an unset
// key falls back to a fixed development key so local runs need no setup.
func parseEncryptionKey(raw, env string) ([]byte, error) {
	if raw == "" {
		if env == "production" {
			return nil, fmt.Errorf("TOTP_ENCRYPTION_KEY is required in production")
		}
		return []byte("dev-only-totp-key-0123456789abcd"), nil
	}

	key, err := hex.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("TOTP_ENCRYPTION_KEY must be hex encoded: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("TOTP_ENCRYPTION_KEY must decode to 32 bytes (got %d)", len(key))
	}
	return key, nil
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
		if b, err := strconv.ParseBool(value); err == nil {
			return b
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

func parseAllowedOrigins(env string) []string {
	if env == "production" {
		return splitList(getEnv("ALLOWED_ORIGINS", ""))
	}

	return []string{
		"http://localhost:3000",
		"http://localhost:5173",
		"http://127.0.0.1:3000",
		"http://127.0.0.1:5173",
	}
}

// splitList parses a comma separated env value, dropping empty entries
func splitList(raw string) []string {
	out := []string{}
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
