// Package config loads service settings from an optional YAML file and the
// environment (a local .env file is read first).
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

type Config struct {
	Port string `yaml:"port"`
	Log  struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Database struct {
		Host           string `yaml:"host"`
		Port           string `yaml:"port"`
		Name           string `yaml:"name"`
		User           string `yaml:"user"`
		Pass           string `yaml:"pass"`
		CatalogEnabled bool   `yaml:"catalog_enabled"`
		CatalogLimit   int    `yaml:"catalog_limit"`
	} `yaml:"database"`
	Redis struct {
		Addr      string        `yaml:"addr"`
		Pass      string        `yaml:"pass"`
		DB        int           `yaml:"db"`
		PlacesTTL time.Duration `yaml:"places_ttl"`
	} `yaml:"redis"`
	Maps struct {
		APIKey  string        `yaml:"api_key"`
		BaseURL string        `yaml:"base_url"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"maps"`
	Search struct {
		RadiusMiles float64 `yaml:"radius_miles"`
		TravelMode  string  `yaml:"travel_mode"`
		MaxResults  int     `yaml:"max_results"`
	} `yaml:"search"`
}

func defaults() Config {
	var c Config
	c.Port = "8080"
	c.Log.Level = "info"
	c.Log.Format = "json"
	c.Database.Host = "localhost"
	c.Database.Port = "5432"
	c.Database.Name = "midpoint_db"
	c.Database.User = "midpoint_user"
	c.Database.CatalogEnabled = true
	c.Database.CatalogLimit = 60
	c.Redis.Addr = "localhost:6379"
	c.Redis.PlacesTTL = 15 * time.Minute
	c.Maps.Timeout = 10 * time.Second
	c.Search.TravelMode = "driving"
	c.Search.MaxResults = 20
	return c
}

// Load reads .env (if present), then CONFIG_FILE (if set), then applies
// environment overrides.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.Port = envOrDefault("PORT", cfg.Port)
	cfg.Log.Level = envOrDefault("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = envOrDefault("LOG_FORMAT", cfg.Log.Format)
	cfg.Database.Host = envOrDefault("DB_HOST", cfg.Database.Host)
	cfg.Database.Port = envOrDefault("DB_PORT", cfg.Database.Port)
	cfg.Database.Name = envOrDefault("DB_NAME", cfg.Database.Name)
	cfg.Database.User = envOrDefault("DB_USER", cfg.Database.User)
	cfg.Database.Pass = envOrDefault("DB_PASS", cfg.Database.Pass)
	cfg.Redis.Addr = envOrDefault("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Pass = envOrDefault("REDIS_PASS", cfg.Redis.Pass)
	cfg.Maps.APIKey = envOrDefault("GOOGLE_MAPS_API_KEY", cfg.Maps.APIKey)
	cfg.Maps.BaseURL = envOrDefault("MAPS_BASE_URL", cfg.Maps.BaseURL)
	cfg.Search.TravelMode = envOrDefault("TRAVEL_MODE", cfg.Search.TravelMode)

	var errs []error
	errs = append(errs,
		envParse("CATALOG_ENABLED", &cfg.Database.CatalogEnabled, strconv.ParseBool),
		envParse("CATALOG_LIMIT", &cfg.Database.CatalogLimit, strconv.Atoi),
		envParse("REDIS_DB", &cfg.Redis.DB, strconv.Atoi),
		envParse("PLACES_CACHE_TTL", &cfg.Redis.PlacesTTL, time.ParseDuration),
		envParse("MAPS_TIMEOUT", &cfg.Maps.Timeout, time.ParseDuration),
		envParse("SEARCH_RADIUS_MILES", &cfg.Search.RadiusMiles, parseFloat),
		envParse("MAX_RESULTS", &cfg.Search.MaxResults, strconv.Atoi),
	)
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch {
	case c.Port == "":
		return errors.New("config: PORT is required")
	case c.Search.RadiusMiles < 0:
		return fmt.Errorf("config: SEARCH_RADIUS_MILES must be >= 0, got %v", c.Search.RadiusMiles)
	case c.Search.MaxResults < 0 || c.Search.MaxResults > 20:
		return fmt.Errorf("config: MAX_RESULTS must be between 0 and 20, got %d", c.Search.MaxResults)
	case c.Database.CatalogLimit < 1 || c.Database.CatalogLimit > 200:
		return fmt.Errorf("config: CATALOG_LIMIT must be between 1 and 200, got %d", c.Database.CatalogLimit)
	case c.Maps.Timeout <= 0:
		return fmt.Errorf("config: MAPS_TIMEOUT must be positive, got %s", c.Maps.Timeout)
	}
	return nil
}

// PostgresURL is the lib/pq connection string for the catalog database.
func (c *Config) PostgresURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.Database.User, c.Database.Pass),
		Host:     net.JoinHostPort(c.Database.Host, c.Database.Port),
		Path:     "/" + c.Database.Name,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

func envOrDefault(key, d string) string {
	v := os.Getenv(key)
	if v == "" {
		return d
	}
	return v
}

func envParse[T any](key string, dst *T, parse func(string) (T, error)) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parsed, err := parse(v)
	if err != nil {
		return fmt.Errorf("config: %s=%q: %w", key, v, err)
	}
	*dst = parsed
	return nil
}

func parseFloat(s string) (float64, error) { return strconv.ParseFloat(s, 64) }
