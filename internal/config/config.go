package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAppName       = "Medipass"
	defaultAppEnv        = "development"
	defaultPort          = "8080"
	defaultLogLevel      = "info"
	defaultShutdownDelay = 10 * time.Second

	defaultAccessTokenTTL  = time.Hour
	defaultRefreshTokenTTL = 7 * 24 * time.Hour
	defaultOTPLength       = 6
	defaultOTPTTL          = 5 * time.Minute
	defaultMaxLoginFails   = 5
	defaultLockoutDuration = 30 * time.Minute

	defaultAuthLimitMax    = 5
	defaultAuthLimitWindow = 15 * time.Minute
	defaultOTPLimitMax     = 3
	defaultOTPLimitWindow  = 5 * time.Minute

	devAccessSecret  = "dev_jwt_secret"
	devRefreshSecret = "dev_jwt_refresh_secret"
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName        string
	AppEnv         string
	Port           string
	LogLevel       string
	DatabaseURL    string
	RedisURL       string
	ShutdownPeriod time.Duration

	AccessTokenSecret  string
	RefreshTokenSecret string
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration

	OTPLength       int
	OTPTTL          time.Duration
	MaxLoginFails   int
	LockoutDuration time.Duration

	AuthLimitMax    int
	AuthLimitWindow time.Duration
	OTPLimitMax     int
	OTPLimitWindow  time.Duration

	SMSGatewayURL string
	SMSUsername   string
	SMSPassword   string
	SMSSenderID   string

	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	MailFrom string

	// Warnings collects non-fatal configuration problems for main to log,
	// such as default JWT secrets outside development.
	Warnings []string
}

// Load reads configuration values from the environment and populates a Config instance.
func Load() (Config, error) {
	cfg := Config{
		AppName:        getEnv("APP_NAME", defaultAppName),
		AppEnv:         getEnv("APP_ENV", defaultAppEnv),
		Port:           getEnv("PORT", defaultPort),
		LogLevel:       strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisURL:       os.Getenv("REDIS_URL"),
		ShutdownPeriod: defaultShutdownDelay,

		AccessTokenSecret:  getEnv("JWT_SECRET", devAccessSecret),
		RefreshTokenSecret: getEnv("JWT_REFRESH_SECRET", devRefreshSecret),
		AccessTokenTTL:     defaultAccessTokenTTL,
		RefreshTokenTTL:    defaultRefreshTokenTTL,

		OTPLength:       defaultOTPLength,
		OTPTTL:          defaultOTPTTL,
		MaxLoginFails:   defaultMaxLoginFails,
		LockoutDuration: defaultLockoutDuration,

		AuthLimitMax:    defaultAuthLimitMax,
		AuthLimitWindow: defaultAuthLimitWindow,
		OTPLimitMax:     defaultOTPLimitMax,
		OTPLimitWindow:  defaultOTPLimitWindow,

		SMSGatewayURL: os.Getenv("SMS_GATEWAY_URL"),
		SMSUsername:   os.Getenv("SMS_USERNAME"),
		SMSPassword:   os.Getenv("SMS_PASSWORD"),
		SMSSenderID:   getEnv("SMS_SENDER_ID", defaultAppName),

		SMTPHost: os.Getenv("SMTP_HOST"),
		SMTPUser: os.Getenv("SMTP_USER"),
		SMTPPass: os.Getenv("SMTP_PASS"),
		MailFrom: getEnv("MAIL_FROM", "no-reply@medipass.health"),
	}

	if v := os.Getenv("SHUTDOWN_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
		}
		cfg.ShutdownPeriod = d
	}

	if v := os.Getenv("ACCESS_TOKEN_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid ACCESS_TOKEN_TTL: %w", err)
		}
		cfg.AccessTokenTTL = d
	}

	if v := os.Getenv("REFRESH_TOKEN_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid REFRESH_TOKEN_TTL: %w", err)
		}
		cfg.RefreshTokenTTL = d
	}

	if v := os.Getenv("OTP_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid OTP_TTL: %w", err)
		}
		cfg.OTPTTL = d
	}

	if v := os.Getenv("SMTP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SMTP_PORT: %w", err)
		}
		cfg.SMTPPort = port
	}

	if !cfg.IsDev() {
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL must be set when APP_ENV=%s", cfg.AppEnv)
		}
		if cfg.RedisURL == "" {
			return Config{}, fmt.Errorf("REDIS_URL must be set when APP_ENV=%s", cfg.AppEnv)
		}
		// Default signing secrets outside development are a warning, not a
		// startup failure: the service stays up, operators get alerted.
		if os.Getenv("JWT_SECRET") == "" || os.Getenv("JWT_REFRESH_SECRET") == "" {
			cfg.Warnings = append(cfg.Warnings,
				fmt.Sprintf("using default JWT secrets with APP_ENV=%s; set JWT_SECRET and JWT_REFRESH_SECRET", cfg.AppEnv))
		}
	}

	return cfg, nil
}

// IsDev reports whether the app runs in a development-like environment.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.AppEnv) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

// SMSConfigured reports whether real SMS gateway credentials are present.
func (c Config) SMSConfigured() bool {
	return c.SMSGatewayURL != "" && c.SMSUsername != "" && c.SMSPassword != ""
}

// SMTPConfigured reports whether real SMTP credentials are present.
func (c Config) SMTPConfigured() bool {
	return c.SMTPHost != "" && c.SMTPPort != 0 && c.SMTPUser != "" && c.SMTPPass != ""
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
