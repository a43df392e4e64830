package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	Port     string
	Env      string
	LogLevel logrus.Level

	MongoURI string
	MongoDB  string

	JWTSecret     string
	Location      *time.Location
	DefaultLocale string
	HistoryLimit  int
	FullDayHours  float64

	MattermostURL       string
	MattermostToken     string
	MattermostChannelID string

	EnableAPIDocs bool
}

// Load reads the environment, after merging an optional .env file from the
// working directory. Malformed values fall back to their defaults and are
// reported on log.
func Load(log logrus.FieldLogger) *Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.WithError(err).Warn("Could not read .env file")
	}

	cfg := &Config{
		Port:                getEnv("PORT", "3000"),
		Env:                 getEnv("ENV", "development"),
		LogLevel:            getEnvAsLevel(log, "LOG_LEVEL", logrus.InfoLevel),
		MongoURI:            getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDB:             getEnv("MONGODB_DATABASE", "hrm"),
		JWTSecret:           getEnv("JWT_SECRET", ""),
		Location:            getEnvAsLocation(log, "BUSINESS_TIMEZONE", time.Local),
		DefaultLocale:       getEnv("DEFAULT_LOCALE", "en"),
		HistoryLimit:        getEnvAsInt(log, "HISTORY_LIMIT", 30),
		FullDayHours:        getEnvAsFloat(log, "FULL_DAY_HOURS", 8),
		MattermostURL:       strings.TrimRight(getEnv("MATTERMOST_URL", ""), "/"),
		MattermostToken:     getEnv("MATTERMOST_TOKEN", ""),
		MattermostChannelID: getEnv("MATTERMOST_CHANNEL_ID", ""),
		EnableAPIDocs:       getEnvAsBool(log, "ENABLE_API_DOCS", false),
	}
	if cfg.JWTSecret == "" {
		log.Warn("JWT_SECRET is empty, every authenticated request will be rejected")
	}
	return cfg
}

// MattermostEnabled reports whether channel announcements are configured.
func (c *Config) MattermostEnabled() bool {
	return c.MattermostURL != "" && c.MattermostToken != "" && c.MattermostChannelID != ""
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(log logrus.FieldLogger, key string, fallback int) int {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		log.WithField(key, raw).Warnf("Invalid value, using default %d", fallback)
		return fallback
	}
	return v
}

func getEnvAsFloat(log logrus.FieldLogger, key string, fallback float64) float64 {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v <= 0 {
		log.WithField(key, raw).Warnf("Invalid value, using default %g", fallback)
		return fallback
	}
	return v
}

func getEnvAsBool(log logrus.FieldLogger, key string, fallback bool) bool {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		log.WithField(key, raw).Warnf("Invalid value, using default %t", fallback)
		return fallback
	}
	return v
}

func getEnvAsLevel(log logrus.FieldLogger, key string, fallback logrus.Level) logrus.Level {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	lvl, err := logrus.ParseLevel(raw)
	if err != nil {
		log.WithField(key, raw).Warnf("Invalid log level, using %s", fallback)
		return fallback
	}
	return lvl
}

func getEnvAsLocation(log logrus.FieldLogger, key string, fallback *time.Location) *time.Location {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	loc, err := time.LoadLocation(raw)
	if err != nil {
		log.WithError(err).WithField(key, raw).Warnf("Unknown time zone, using %s", fallback)
		return fallback
	}
	return loc
}
