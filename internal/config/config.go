/**
 * @description
 * This package handles configuration for the SplitUp CLI and the reference
 * backend. It uses Viper to read an optional .env file and environment
 * variables, then normalizes the values both binaries consume.
 *
 * @dependencies
 * - github.com/spf13/viper: configuration loading and env binding.
 */

package config

import (
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// PathEnvPrefix marks env vars that override an API resource path, e.g.
// API_PATH_PLANS_BY_SERVICE=/services/{id}/plans.
const PathEnvPrefix = "API_PATH_"

// Config holds every setting for both binaries. Unused fields are ignored by
// the binary that does not need them.
type Config struct {
	APIBaseURL           string `mapstructure:"API_BASE_URL"`
	HTTPTimeoutSeconds   int    `mapstructure:"HTTP_TIMEOUT_SECONDS"`
	SessionFile          string `mapstructure:"SESSION_FILE"`
	SessionRedisURL      string `mapstructure:"SESSION_REDIS_URL"`
	SessionRedisPrefix   string `mapstructure:"SESSION_REDIS_PREFIX"`
	SessionRedisTTLHours int    `mapstructure:"SESSION_REDIS_TTL_HOURS"`
	SessionProfile       string `mapstructure:"SESSION_PROFILE"`
	LocaleFile           string `mapstructure:"LOCALE_FILE"`
	LogLevel             string `mapstructure:"LOG_LEVEL"`

	ServerPort             string `mapstructure:"SERVER_PORT"`
	JWTSecret              string `mapstructure:"JWT_SECRET"`
	TokenTTLHours          int    `mapstructure:"TOKEN_TTL_HOURS"`
	RabbitMQURL            string `mapstructure:"RABBITMQ_URL"`
	VerificationExchange   string `mapstructure:"VERIFICATION_EXCHANGE"`
	CodeTTLMinutes         int    `mapstructure:"CODE_TTL_MINUTES"`
	CodeSweepSchedule      string `mapstructure:"CODE_SWEEP_SCHEDULE"`
	AuthRateLimitPerMinute int    `mapstructure:"AUTH_RATE_LIMIT_PER_MINUTE"`
	CORSOrigins            string `mapstructure:"CORS_ORIGINS"`
	AdminEmail             string `mapstructure:"ADMIN_EMAIL"`
	AdminPassword          string `mapstructure:"ADMIN_PASSWORD"`
	SeedDemoData           bool   `mapstructure:"SEED_DEMO_DATA"`

	// PathOverrides maps lower-cased path names (plans_by_service) to values,
	// collected from API_PATH_* variables.
	PathOverrides map[string]string `mapstructure:"-"`
}

// LoadConfig reads configuration from an optional .env file in path and from
// environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("API_BASE_URL", "http://localhost:8080/api")
	viper.SetDefault("HTTP_TIMEOUT_SECONDS", 0)
	viper.SetDefault("SESSION_REDIS_PREFIX", "splitup")
	viper.SetDefault("SESSION_REDIS_TTL_HOURS", 24*7)
	viper.SetDefault("SESSION_PROFILE", "default")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("TOKEN_TTL_HOURS", 24)
	viper.SetDefault("VERIFICATION_EXCHANGE", "splitup.auth")
	viper.SetDefault("CODE_TTL_MINUTES", 15)
	viper.SetDefault("CODE_SWEEP_SCHEDULE", "*/5 * * * *") // Every five minutes.
	viper.SetDefault("AUTH_RATE_LIMIT_PER_MINUTE", 30)
	viper.SetDefault("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173")
	viper.SetDefault("SEED_DEMO_DATA", true)

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("API_BASE_URL", "API_BASE_URL", "SPLITUP_API_URL")
	_ = viper.BindEnv("HTTP_TIMEOUT_SECONDS")
	_ = viper.BindEnv("SESSION_FILE")
	_ = viper.BindEnv("SESSION_REDIS_URL")
	_ = viper.BindEnv("SESSION_REDIS_PREFIX")
	_ = viper.BindEnv("SESSION_REDIS_TTL_HOURS")
	_ = viper.BindEnv("SESSION_PROFILE")
	_ = viper.BindEnv("LOCALE_FILE")
	_ = viper.BindEnv("LOG_LEVEL")
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("JWT_SECRET")
	_ = viper.BindEnv("TOKEN_TTL_HOURS")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("VERIFICATION_EXCHANGE")
	_ = viper.BindEnv("CODE_TTL_MINUTES")
	_ = viper.BindEnv("CODE_SWEEP_SCHEDULE")
	_ = viper.BindEnv("AUTH_RATE_LIMIT_PER_MINUTE")
	_ = viper.BindEnv("CORS_ORIGINS")
	_ = viper.BindEnv("ADMIN_EMAIL")
	_ = viper.BindEnv("ADMIN_PASSWORD")
	_ = viper.BindEnv("SEED_DEMO_DATA")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
		err = nil
	}

	if err = viper.Unmarshal(&config); err != nil {
		return
	}

	config.APIBaseURL = strings.TrimRight(strings.TrimSpace(config.APIBaseURL), "/")
	if config.APIBaseURL == "" {
		config.APIBaseURL = "http://localhost:8080/api"
	}
	if config.HTTPTimeoutSeconds < 0 {
		log.Printf("level=warn component=config msg=\"negative http timeout configured; using transport default\" value=%d", config.HTTPTimeoutSeconds)
		config.HTTPTimeoutSeconds = 0
	}

	configDir := defaultConfigDir()
	config.SessionFile = strings.TrimSpace(config.SessionFile)
	if config.SessionFile == "" {
		config.SessionFile = filepath.Join(configDir, "session.json")
	}
	config.LocaleFile = strings.TrimSpace(config.LocaleFile)
	if config.LocaleFile == "" {
		config.LocaleFile = filepath.Join(configDir, "locale.json")
	}
	config.SessionRedisURL = strings.TrimSpace(config.SessionRedisURL)
	config.SessionRedisPrefix = strings.TrimSpace(config.SessionRedisPrefix)
	if config.SessionRedisPrefix == "" {
		config.SessionRedisPrefix = "splitup"
	}
	if config.SessionRedisTTLHours < 0 {
		config.SessionRedisTTLHours = 0
	}
	config.SessionProfile = strings.TrimSpace(config.SessionProfile)
	if config.SessionProfile == "" {
		config.SessionProfile = "default"
	}
	config.LogLevel = strings.ToLower(strings.TrimSpace(config.LogLevel))

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}
	if strings.TrimSpace(config.ServerPort) == "" {
		config.ServerPort = "8080"
	}
	if config.TokenTTLHours <= 0 {
		config.TokenTTLHours = 24
	}
	if config.CodeTTLMinutes <= 0 {
		config.CodeTTLMinutes = 15
	}
	if strings.TrimSpace(config.CodeSweepSchedule) == "" {
		config.CodeSweepSchedule = "*/5 * * * *"
	}
	if config.AuthRateLimitPerMinute <= 0 {
		config.AuthRateLimitPerMinute = 30
	}
	config.VerificationExchange = strings.TrimSpace(config.VerificationExchange)
	if config.VerificationExchange == "" {
		config.VerificationExchange = "splitup.auth"
	}
	config.AdminEmail = strings.TrimSpace(config.AdminEmail)

	config.PathOverrides = pathOverrides(viper.AllKeys(), os.Environ())
	return
}

// HTTPTimeout is the client timeout; zero means the transport default.
func (c Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}

func (c Config) SessionRedisTTL() time.Duration {
	return time.Duration(c.SessionRedisTTLHours) * time.Hour
}

func (c Config) TokenTTL() time.Duration {
	return time.Duration(c.TokenTTLHours) * time.Hour
}

func (c Config) CodeTTL() time.Duration {
	return time.Duration(c.CodeTTLMinutes) * time.Minute
}

// SlogLevel maps LOG_LEVEL onto a slog level; unknown values mean info.
func (c Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// AllowedOrigins splits CORS_ORIGINS on commas.
func (c Config) AllowedOrigins() []string {
	var out []string
	for _, origin := range strings.Split(c.CORSOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			out = append(out, origin)
		}
	}
	return out
}

// pathOverrides collects API_PATH_* entries from the config file keys and
// then the environment, so a real environment variable wins over the file.
func pathOverrides(fileKeys, environ []string) map[string]string {
	out := map[string]string{}
	add := func(name, value string) {
		name = strings.ToLower(name)
		if name == "" || strings.TrimSpace(value) == "" {
			return
		}
		out[name] = strings.TrimSpace(value)
	}

	filePrefix := strings.ToLower(PathEnvPrefix)
	for _, key := range fileKeys {
		if name, ok := strings.CutPrefix(key, filePrefix); ok {
			add(name, viper.GetString(key))
		}
	}
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		if name, ok := strings.CutPrefix(key, PathEnvPrefix); ok {
			add(name, value)
		}
	}
	return out
}

func defaultConfigDir() string {
	if dir, err := os.UserConfigDir(); err == nil && dir != "" {
		return filepath.Join(dir, "splitup")
	}
	return ".splitup"
}
