// Package config loads the sheets service configuration.
//
// Configuration comes from a single YAML file named by the --config flag or
// the SHEETS_CONFIG environment variable. Without either, Default applies.
// There is no discovery and environment variables never override file values;
// the only expansion is ${VAR} and ${VAR:-default} inside URL and path fields.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvVar names the environment variable holding the config file path.
const EnvVar = "SHEETS_CONFIG"

// Store drivers.
const (
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// Template provider kinds.
const (
	ProviderHTTP = "http"
	ProviderFile = "file"
)

// Config is the service configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Store     StoreConfig     `yaml:"store"`
	Templates TemplatesConfig `yaml:"templates"`
	Sheets    SheetsConfig    `yaml:"sheets"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	// Addr is the listen address. Default: :8000
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// StoreConfig selects and configures sheet persistence.
type StoreConfig struct {
	// Driver is "sqlite" or "memory".
	Driver   string `yaml:"driver"`
	Path     string `yaml:"path"`
	PoolSize int    `yaml:"pool_size"`
}

// TemplatesConfig selects the template provider.
type TemplatesConfig struct {
	// Provider is "http" (template service) or "file" (local directory).
	Provider string `yaml:"provider"`
	// URL is the template service root, e.g. http://templates:8000/api/templates/.
	URL     string        `yaml:"url"`
	Dir     string        `yaml:"dir"`
	Timeout time.Duration `yaml:"timeout"`
	Retries int           `yaml:"retries"`
}

// SheetsConfig tunes materialization.
type SheetsConfig struct {
	MaxDepth          int  `yaml:"max_depth"`
	SanitizeStrings   bool `yaml:"sanitize_strings"`
	RevalidateUpdates bool `yaml:"revalidate_updates"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	// Level is debug, info, warn, or error.
	Level string `yaml:"level"`
	// Format is text or json.
	Format string `yaml:"format"`
}

// Default returns the development configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8000",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Store: StoreConfig{
			Driver:   DriverSQLite,
			Path:     "sheets.db",
			PoolSize: 4,
		},
		Templates: TemplatesConfig{
			Provider: ProviderHTTP,
			URL:      "http://localhost:8001/api/templates/",
			Timeout:  5 * time.Second,
			Retries:  2,
		},
		Sheets: SheetsConfig{
			MaxDepth:          32,
			RevalidateUpdates: true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the file named by SHEETS_CONFIG.
func Load() (*Config, error) {
	path := os.Getenv(EnvVar)
	if path == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your sheets.yaml config file, or use --config flag", EnvVar)
	}
	return LoadFile(path)
}

// Resolve picks the configuration source: flagPath when set, then
// SHEETS_CONFIG, then Default.
func Resolve(flagPath string) (*Config, error) {
	if flagPath != "" {
		return LoadFile(flagPath)
	}
	if os.Getenv(EnvVar) != "" {
		return Load()
	}
	return Default(), nil
}

// LoadFile reads path over the defaults and expands variables.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults and expands variables.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.expandVariables()
	return cfg, nil
}

func (c *Config) expandVariables() {
	c.Store.Path = expandVars(c.Store.Path)
	c.Templates.URL = expandVars(c.Templates.URL)
	c.Templates.Dir = expandVars(c.Templates.Dir)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		if len(parts) >= 3 {
			return parts[2]
		}
		return ""
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("server.shutdown_timeout must be positive"))
	}

	switch c.Store.Driver {
	case DriverSQLite:
		if c.Store.Path == "" {
			errs = append(errs, errors.New("store.path is required for the sqlite driver"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("store.driver must be one of: %v", []string{DriverSQLite, DriverMemory}))
	}

	switch c.Templates.Provider {
	case ProviderHTTP:
		if c.Templates.URL == "" {
			errs = append(errs, errors.New("templates.url is required for the http provider"))
		}
	case ProviderFile:
		if c.Templates.Dir == "" {
			errs = append(errs, errors.New("templates.dir is required for the file provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("templates.provider must be one of: %v", []string{ProviderHTTP, ProviderFile}))
	}
	if c.Templates.Retries < 0 {
		errs = append(errs, errors.New("templates.retries must not be negative"))
	}

	if c.Sheets.MaxDepth <= 0 {
		errs = append(errs, errors.New("sheets.max_depth must be positive"))
	}

	levels := []string{"debug", "info", "warn", "error"}
	if !contains(levels, c.Log.Level) {
		errs = append(errs, fmt.Errorf("log.level must be one of: %v", levels))
	}
	formats := []string{"text", "json"}
	if !contains(formats, c.Log.Format) {
		errs = append(errs, fmt.Errorf("log.format must be one of: %v", formats))
	}

	return errors.Join(errs...)
}

func contains(slice []string, s string) bool {
	for _, v := range slice {
		if v == s {
			return true
		}
	}
	return false
}
