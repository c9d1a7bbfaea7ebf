// Package config loads the orderprint YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/orderprint/internal/alert"
	"github.com/ppiankov/orderprint/internal/extract"
	"github.com/ppiankov/orderprint/internal/receipt"
)

// ErrNoSources is returned by Validate when no mail source is configured.
var ErrNoSources = errors.New("config: no mail sources configured")

// Mail backends.
const (
	BackendGmail = "gmail"
	BackendSpool = "spool"
)

// Source is one mail label to poll and the extractor format its mails use.
// Sources are checked in list order.
type Source struct {
	Name   string `yaml:"name"`
	Label  string `yaml:"label"`
	Format string `yaml:"format"`
}

// Mail selects and authenticates the mailbox.
type Mail struct {
	Backend       string   `yaml:"backend"`
	SpoolDir      string   `yaml:"spool_dir"`
	ClientID      string   `yaml:"client_id"`
	ClientSecret  string   `yaml:"client_secret"`
	RefreshToken  string   `yaml:"refresh_token"`
	Allowlist     []string `yaml:"allowlist"`
	AllowlistFile string   `yaml:"allowlist_file"`
}

// Printer controls receipt rendering.
type Printer struct {
	Columns int `yaml:"columns"`
}

// History enables the Postgres order history sink when DSN is set.
type History struct {
	DSN string `yaml:"dsn"`
}

// Archive enables the S3 job archive sink when Bucket is set.
type Archive struct {
	Bucket string `yaml:"bucket"`
	Region string `yaml:"region"`
	Prefix string `yaml:"prefix"`
}

// Config holds all orderprint settings.
type Config struct {
	Port         int                 `yaml:"port"`
	HealthPort   int                 `yaml:"health_port"`
	PollInterval time.Duration       `yaml:"poll_interval"`
	TestRoute    bool                `yaml:"test_route"`
	AuditLog     string              `yaml:"audit_log"`
	Sources      []Source            `yaml:"sources"`
	Mail         Mail                `yaml:"mail"`
	Printer      Printer             `yaml:"printer"`
	History      History             `yaml:"history"`
	Archive      Archive             `yaml:"archive"`
	Alerts       []alert.AlertConfig `yaml:"alerts"`
}

// Default returns the built-in configuration: GrubHub before Square,
// polled every five seconds, served on port 8080.
func Default() *Config {
	return &Config{
		Port:         8080,
		PollInterval: 5 * time.Second,
		Sources: []Source{
			{Name: "grubhub", Label: "GH_PRINT", Format: extract.FormatGrubHub},
			{Name: "square", Label: "SQ_PRINT", Format: extract.FormatSquare},
		},
		Mail:    Mail{Backend: BackendGmail},
		Printer: Printer{Columns: receipt.DefaultColumns},
	}
}

// DefaultPath returns ~/.orderprint/config.yaml, or "" when there is no
// home directory.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".orderprint", "config.yaml")
}

// ResolvePath returns path, or ORDERPRINT_CONFIG when path is empty, or
// DefaultPath when both are.
func ResolvePath(path string) string {
	if path == "" {
		path = os.Getenv("ORDERPRINT_CONFIG")
	}
	if path == "" {
		path = DefaultPath()
	}
	return path
}

// Load reads configuration from a YAML file and applies environment
// overrides. The path is resolved with ResolvePath. Missing file returns
// defaults. Invalid YAML returns an error.
func Load(path string) (*Config, error) {
	path = ResolvePath(path)

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		c.Port = port
	}
	c.Mail.ClientID = envOrDefault("CLIENT_ID", c.Mail.ClientID)
	c.Mail.ClientSecret = envOrDefault("CLIENT_SECRET", c.Mail.ClientSecret)
	c.Mail.RefreshToken = envOrDefault("REFRESH_TOKEN", c.Mail.RefreshToken)
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Validate checks the configuration against the registered extractor
// formats.
func (c *Config) Validate() error {
	if len(c.Sources) == 0 {
		return ErrNoSources
	}
	reg := extract.DefaultRegistry()
	names := make(map[string]bool, len(c.Sources))
	for i, s := range c.Sources {
		if s.Label == "" {
			return fmt.Errorf("sources[%d]: label is required", i)
		}
		if !reg.Has(s.Format) {
			return fmt.Errorf("sources[%d]: %w %q", i, extract.ErrUnknownFormat, s.Format)
		}
		name := s.SourceName()
		if names[name] {
			return fmt.Errorf("sources[%d]: duplicate name %q", i, name)
		}
		names[name] = true
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive")
	}
	if c.Printer.Columns < 8 {
		return fmt.Errorf("printer.columns must be at least 8")
	}
	switch c.Mail.Backend {
	case BackendGmail:
	case BackendSpool:
		if c.Mail.SpoolDir == "" {
			return fmt.Errorf("mail.spool_dir is required for the spool backend")
		}
	default:
		return fmt.Errorf("unknown mail backend %q", c.Mail.Backend)
	}
	for i, a := range c.Alerts {
		if a.URL == "" {
			return fmt.Errorf("alerts[%d]: url is required", i)
		}
	}
	return nil
}

// SourceName returns Name, or Label when no name is set.
func (s Source) SourceName() string {
	if s.Name != "" {
		return s.Name
	}
	return s.Label
}
