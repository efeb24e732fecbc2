package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/thisisnajafi/sarvcast-backend-sub015/internal/timeline"
)

// Store drivers.
const (
	DriverPostgREST = "postgrest"
	DriverSQLite    = "sqlite"
	DriverMemory    = "memory"
)

// Images configures the image URL policy.
type Images struct {
	AllowedExtensions []string `yaml:"allowed_extensions" toml:"allowed_extensions"`
	TrustedDomains    []string `yaml:"trusted_domains" toml:"trusted_domains"`
}

// API configures the HTTP server.
type API struct {
	Bind       string `yaml:"bind" toml:"bind"`
	AdminToken string `yaml:"admin_token" toml:"admin_token"`
}

// Store selects and configures the persistence back-end.
type Store struct {
	Driver     string `yaml:"driver" toml:"driver"`
	SQLitePath string `yaml:"sqlite_path" toml:"sqlite_path"`
}

// Supabase holds the PostgREST endpoint credentials.
type Supabase struct {
	URL        string `yaml:"url" toml:"url"`
	ServiceKey string `yaml:"service_key" toml:"service_key"`
	Schema     string `yaml:"schema" toml:"schema"`
}

// Logging configures logrus.
type Logging struct {
	Level string `yaml:"level" toml:"level"`
}

// Audit configures the batch audit.
type Audit struct {
	Workers int `yaml:"workers" toml:"workers"`
}

// Config is the full service configuration.
type Config struct {
	Images   Images   `yaml:"images" toml:"images"`
	API      API      `yaml:"api" toml:"api"`
	Store    Store    `yaml:"store" toml:"store"`
	Supabase Supabase `yaml:"supabase" toml:"supabase"`
	Logging  Logging  `yaml:"logging" toml:"logging"`
	Audit    Audit    `yaml:"audit" toml:"audit"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Images: Images{
			AllowedExtensions: append([]string(nil), timeline.DefaultAllowedExtensions...),
			TrustedDomains:    append([]string(nil), timeline.DefaultTrustedDomains...),
		},
		API:      API{Bind: ":8080"},
		Store:    Store{Driver: DriverMemory, SQLitePath: "data/timelines.db"},
		Supabase: Supabase{Schema: "public"},
		Logging:  Logging{Level: "info"},
		Audit:    Audit{Workers: 4},
	}
}

// Load reads .env, the optional settings file at path (or TIMELINE_CONFIG),
// then applies environment overrides and validates the result.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if path == "" {
		path = os.Getenv("TIMELINE_CONFIG")
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("parse config file: %w", err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("parse config file: %w", err)
		}
	default:
		return fmt.Errorf("unsupported config file type %q", ext)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v, ok := os.LookupEnv("TIMELINE_ALLOWED_EXTENSIONS"); ok {
		c.Images.AllowedExtensions = splitList(v)
	}
	if v, ok := os.LookupEnv("TIMELINE_TRUSTED_DOMAINS"); ok {
		c.Images.TrustedDomains = splitList(v)
	}
	setString(&c.API.Bind, "API_BIND")
	setString(&c.API.AdminToken, "TIMELINE_ADMIN_TOKEN")
	setString(&c.Store.Driver, "STORE_DRIVER")
	setString(&c.Store.SQLitePath, "SQLITE_PATH")
	setString(&c.Supabase.URL, "SUPABASE_URL")
	setString(&c.Supabase.ServiceKey, "SUPABASE_SERVICE_KEY")
	setString(&c.Logging.Level, "LOG_LEVEL")
	if v := strings.TrimSpace(os.Getenv("AUDIT_WORKERS")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("AUDIT_WORKERS: %w", err)
		}
		c.Audit.Workers = n
	}
	return nil
}

func (c *Config) normalize() {
	c.Images.AllowedExtensions = normalizeList(c.Images.AllowedExtensions, func(s string) string {
		return strings.TrimPrefix(s, ".")
	})
	c.Images.TrustedDomains = normalizeList(c.Images.TrustedDomains, func(s string) string {
		return strings.Trim(s, ".")
	})
	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	c.Supabase.URL = strings.TrimRight(strings.TrimSpace(c.Supabase.URL), "/")
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if len(c.Images.AllowedExtensions) == 0 {
		return errors.New("images.allowed_extensions must not be empty")
	}
	if len(c.Images.TrustedDomains) == 0 {
		return errors.New("images.trusted_domains must not be empty")
	}
	if strings.TrimSpace(c.API.Bind) == "" {
		return errors.New("api.bind must be set")
	}
	if c.Audit.Workers < 1 {
		return errors.New("audit.workers must be positive")
	}
	switch c.Store.Driver {
	case DriverMemory:
	case DriverSQLite:
		if strings.TrimSpace(c.Store.SQLitePath) == "" {
			return errors.New("store.sqlite_path is required for the sqlite driver")
		}
	case DriverPostgREST:
		if c.Supabase.URL == "" {
			return errors.New("supabase.url is required for the postgrest driver (set SUPABASE_URL)")
		}
		if c.Supabase.ServiceKey == "" {
			return errors.New("supabase.service_key is required for the postgrest driver (set SUPABASE_SERVICE_KEY)")
		}
	default:
		return fmt.Errorf("store.driver %q is not one of %s, %s, %s", c.Store.Driver, DriverPostgREST, DriverSQLite, DriverMemory)
	}
	return nil
}

// Policy builds the image policy from the configured lists.
func (c *Config) Policy() timeline.ImagePolicy {
	return timeline.NewImagePolicy(c.Images.AllowedExtensions, c.Images.TrustedDomains)
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = strings.TrimSpace(v)
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func normalizeList(in []string, trim func(string) string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = trim(strings.ToLower(strings.TrimSpace(v)))
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
