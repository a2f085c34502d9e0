package shared

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"tinydoc/internal/record"
	"tinydoc/internal/storage"
)

// ServerConfig holds everything td-server needs. Values come from defaults,
// then an optional YAML file, then environment variables (a .env file is
// loaded first if present); command-line flags are applied by the caller.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	APIKey          string        `yaml:"api_key"`
	Collections     []string      `yaml:"collections"`
	Backend         string        `yaml:"backend"`
	DataDir         string        `yaml:"data_dir"`
	DBPath          string        `yaml:"db_path"`
	RedisAddr       string        `yaml:"redis_addr"`
	RedisPassword   string        `yaml:"redis_password"`
	RedisPrefix     string        `yaml:"redis_prefix"`
	RateLimit       float64       `yaml:"rate_limit"` // requests per second, 0 disables
	RateBurst       int           `yaml:"rate_burst"`
	LogFormat       string        `yaml:"log_format"` // json | terminal, empty picks by TTY
	Debug           bool          `yaml:"debug"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Addr:            ":8000",
		APIKey:          "lab2-simple",
		Collections:     []string{record.Items.Name, record.Products.Name},
		Backend:         storage.KindFile,
		DataDir:         "./data",
		DBPath:          "./data/tinydoc.db",
		RedisAddr:       "localhost:6379",
		RedisPrefix:     "tinydoc:",
		RateBurst:       20,
		ShutdownTimeout: 10 * time.Second,
	}
}

// LoadServerConfig builds a ServerConfig. path may be empty; TD_CONFIG is
// used when it is.
func LoadServerConfig(path string) (*ServerConfig, error) {
	_ = godotenv.Load() // .env is optional

	c := DefaultServerConfig()
	if path == "" {
		path = os.Getenv("TD_CONFIG")
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, c); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	c.Addr = envOr("TD_ADDR", c.Addr)
	c.APIKey = envOr("API_KEY", c.APIKey)
	if v := os.Getenv("TD_COLLECTIONS"); v != "" {
		c.Collections = SplitList(v)
	}
	c.Backend = envOr("TD_BACKEND", c.Backend)
	c.DataDir = envOr("TD_DATA_DIR", c.DataDir)
	c.DBPath = envOr("TD_DB_PATH", c.DBPath)
	c.RedisAddr = envOr("TD_REDIS_ADDR", c.RedisAddr)
	c.RedisPassword = envOr("TD_REDIS_PASSWORD", c.RedisPassword)
	c.RedisPrefix = envOr("TD_REDIS_PREFIX", c.RedisPrefix)
	c.LogFormat = envOr("TD_LOG_FORMAT", c.LogFormat)

	var err error
	if c.RateLimit, err = envFloatOr("TD_RATE_LIMIT", c.RateLimit); err != nil {
		return nil, err
	}
	if c.RateBurst, err = envIntOr("TD_RATE_BURST", c.RateBurst); err != nil {
		return nil, err
	}
	if c.Debug, err = envBoolOr("TD_DEBUG", c.Debug); err != nil {
		return nil, err
	}
	if c.ShutdownTimeout, err = envDurationOr("TD_SHUTDOWN_TIMEOUT", c.ShutdownTimeout); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks that the configuration can be served.
func (c *ServerConfig) Validate() error {
	if c.APIKey == "" {
		return errors.New("API_KEY must not be empty")
	}
	if len(c.Collections) == 0 {
		return errors.New("at least one collection is required")
	}
	for _, name := range c.Collections {
		if _, err := record.Lookup(name); err != nil {
			return err
		}
	}
	if !slices.Contains(storage.Kinds, c.Backend) {
		return fmt.Errorf("unknown backend %q (must be one of %v)", c.Backend, storage.Kinds)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate limit must not be negative: %v", c.RateLimit)
	}
	if c.RateLimit > 0 && c.RateBurst < 1 {
		return fmt.Errorf("rate burst must be at least 1 when rate limiting: %d", c.RateBurst)
	}
	switch c.LogFormat {
	case "", "json", "terminal":
	default:
		return fmt.Errorf("unknown log format %q (must be json or terminal)", c.LogFormat)
	}
	return nil
}

// Storage maps the server configuration to the storage layer's.
func (c *ServerConfig) Storage() storage.Config {
	return storage.Config{
		Kind:          c.Backend,
		DataDir:       c.DataDir,
		DBPath:        c.DBPath,
		RedisAddr:     c.RedisAddr,
		RedisPassword: c.RedisPassword,
		RedisPrefix:   c.RedisPrefix,
	}
}

// ClientConfig is the td-client configuration file.
type ClientConfig struct {
	ServerURL      string `json:"server_url"`
	APIKey         string `json:"api_key"`
	Collection     string `json:"collection"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// LoadClientConfig reads a client config. A missing file yields defaults.
func LoadClientConfig(path string) (*ClientConfig, error) {
	var c ClientConfig
	b, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := json.Unmarshal(b, &c); err != nil {
			return nil, err
		}
	}
	if c.ServerURL == "" {
		c.ServerURL = "http://localhost:8000"
	}
	if c.Collection == "" {
		c.Collection = record.Items.Name
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 20
	}
	return &c, nil
}

func SaveClientConfig(path string, c *ClientConfig) error {
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0600)
}

// SplitList splits a comma separated list, dropping blanks.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envOr(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func envIntOr(key string, defaultValue int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return i, nil
}

func envFloatOr(key string, defaultValue float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func envBoolOr(key string, defaultValue bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func envDurationOr(key string, defaultValue time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
