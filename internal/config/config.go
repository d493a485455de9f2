package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Sources  SourcesConfig
	Facility FacilityConfig
	Alerts   AlertsConfig
	Session  SessionConfig
	Monitor  MonitorConfig
	Worker   WorkerConfig
	DB       DatabaseConfig
	Logging  LoggingConfig
}

type ServerConfig struct {
	Host      string
	Port      int
	RateLimit int
}

type SourcesConfig struct {
	NominatimURL   string
	OverpassURL    string
	PlacesProxyURL string
	GoogleAPIKey   string
	PredictionURL  string
	PushRelayURL   string
	FIRMSURL       string
	UserAgent      string
	FetchTimeout   time.Duration
}

type FacilityConfig struct {
	SearchRadius      int
	EnrichConcurrency int
}

type AlertsConfig struct {
	HistorySize int
}

type SessionConfig struct {
	IdleTimeout time.Duration
}

// MonitorConfig drives the scheduled risk check. A hazard is only alerted on
// once its probability reaches its threshold.
type MonitorConfig struct {
	Enabled           bool
	Cities            []string
	Interval          time.Duration
	Cooldown          time.Duration
	FloodThreshold    float64
	WildfireThreshold float64
}

type WorkerConfig struct {
	Count      int
	BufferSize int
}

type DatabaseConfig struct {
	Path string
}

type LoggingConfig struct {
	Level  string
	Format string
	File   string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:      getEnv("SERVER_HOST", "localhost"),
			Port:      getEnvInt("SERVER_PORT", 8080),
			RateLimit: getEnvInt("RATE_LIMIT_RPS", 10),
		},
		Sources: SourcesConfig{
			NominatimURL:   getEnv("NOMINATIM_URL", "https://nominatim.openstreetmap.org"),
			OverpassURL:    getEnv("OVERPASS_URL", "https://overpass.kumi.systems/api/interpreter"),
			PlacesProxyURL: getEnv("PLACES_PROXY_URL", ""),
			GoogleAPIKey:   getEnv("GOOGLE_API_KEY", ""),
			PredictionURL:  getEnv("PREDICTION_URL", "http://localhost:5000"),
			PushRelayURL:   getEnv("PUSH_RELAY_URL", ""),
			FIRMSURL:       getEnv("FIRMS_URL", "https://firms.modaps.eosdis.nasa.gov/api/area/csv/?country=india&source=viirs&timeWindow=24"),
			UserAgent:      getEnv("HTTP_USER_AGENT", "earthpulse/1.0"),
			FetchTimeout:   getEnvDuration("FETCH_TIMEOUT", 10*time.Second),
		},
		Facility: FacilityConfig{
			SearchRadius:      getEnvInt("FACILITY_RADIUS_M", 10000),
			EnrichConcurrency: getEnvInt("ENRICH_CONCURRENCY", 4),
		},
		Alerts: AlertsConfig{
			HistorySize: getEnvInt("ALERT_HISTORY_SIZE", 5),
		},
		Session: SessionConfig{
			IdleTimeout: getEnvDuration("SESSION_IDLE_TIMEOUT", time.Hour),
		},
		Monitor: MonitorConfig{
			Enabled:  getEnvBool("ALERT_MONITOR_ENABLED", false),
			Cities:   getEnvList("ALERT_CITIES", []string{"Delhi", "Mumbai", "Bengaluru", "Chennai"}),
			Interval: getEnvDuration("ALERT_INTERVAL", time.Minute),
			Cooldown: getEnvDuration("ALERT_COOLDOWN", time.Minute),

			FloodThreshold:    getEnvFloat("ALERT_FLOOD_THRESHOLD", 0.7),
			WildfireThreshold: getEnvFloat("ALERT_FIRE_THRESHOLD", 0.7),
		},
		Worker: WorkerConfig{
			Count:      getEnvInt("WORKER_COUNT", 2),
			BufferSize: getEnvInt("WORKER_BUFFER_SIZE", 20),
		},
		DB: DatabaseConfig{
			Path: getEnv("DB_PATH", "./data/earthpulse.db"),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
			File:   getEnv("LOG_FILE", ""),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.RateLimit < 1 {
		return fmt.Errorf("rate limit must be positive: %d", c.Server.RateLimit)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	if c.Sources.FetchTimeout <= 0 {
		return fmt.Errorf("fetch timeout must be positive")
	}
	if c.Facility.SearchRadius < 100 || c.Facility.SearchRadius > 50000 {
		return fmt.Errorf("facility radius out of range: %d", c.Facility.SearchRadius)
	}
	if c.Facility.EnrichConcurrency < 1 {
		return fmt.Errorf("enrich concurrency must be at least 1")
	}
	if c.Alerts.HistorySize < 1 {
		return fmt.Errorf("alert history size must be at least 1")
	}

	if c.Session.IdleTimeout < time.Minute {
		return fmt.Errorf("session idle timeout must be at least 1 minute")
	}

	for name, v := range map[string]float64{
		"ALERT_FLOOD_THRESHOLD": c.Monitor.FloodThreshold,
		"ALERT_FIRE_THRESHOLD":  c.Monitor.WildfireThreshold,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be between 0 and 1: %g", name, v)
		}
	}

	if c.Monitor.Enabled {
		if len(c.Monitor.Cities) == 0 {
			return fmt.Errorf("ALERT_CITIES is required when the alert monitor is enabled")
		}
		if c.Monitor.Interval < time.Minute {
			return fmt.Errorf("alert interval must be at least 1 minute")
		}
	}

	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if v := strings.TrimSpace(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}
