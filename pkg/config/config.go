// Package config loads viewer settings from ~/.config/hv/config.yaml, the
// environment and the help page URL.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultBaseURL is where the help services live when nothing is configured.
	DefaultBaseURL = "http://localhost:8085/onlineHelpServices/"
	// DefaultTimeout applies to every request the viewer makes.
	DefaultTimeout = 10 * time.Second
	// DefaultLanguage is used when neither flags, config nor $LANG name one.
	DefaultLanguage = "en"
)

// Config holds the viewer settings.
type Config struct {
	// BaseURL is the help services root; endpoints live under services/help/.
	BaseURL string `yaml:"base_url,omitempty"`

	// ContentURL is prefixed to page urls from the menu. Defaults to BaseURL
	// without its trailing slash.
	ContentURL string `yaml:"content_url,omitempty"`

	// HelpPath selects one help set when the server hosts several.
	HelpPath string `yaml:"help_path,omitempty"`

	// Language is the translation language code (en, de, ...).
	Language string `yaml:"language,omitempty"`

	// Timeout bounds every request (default: 10s).
	Timeout time.Duration `yaml:"timeout,omitempty"`

	// DownloadDir receives downloaded documents (default: current directory).
	DownloadDir string `yaml:"download_dir,omitempty"`
}

// Default returns the built-in settings
func Default() Config {
	return Config{
		BaseURL: DefaultBaseURL,
		Timeout: DefaultTimeout,
	}
}

// DefaultPath returns the config file location, honouring XDG_CONFIG_HOME.
func DefaultPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "hv", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".hv", "config.yaml")
	}
	return filepath.Join(home, ".config", "hv", "config.yaml")
}

// Load reads the config file at path on top of the defaults.
// A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Default(), fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path, creating parent directories.
func Save(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides settings from HV_* environment variables.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("HV_BASE_URL"); v != "" {
		c.BaseURL = v
	}
	if v := getenv("HV_CONTENT_URL"); v != "" {
		c.ContentURL = v
	}
	if v := getenv("HV_HELP_PATH"); v != "" {
		c.HelpPath = v
	}
	if v := getenv("HV_LANGUAGE"); v != "" {
		c.Language = v
	}
	if v := getenv("HV_DOWNLOAD_DIR"); v != "" {
		c.DownloadDir = v
	}
}

// ApplyPageURL takes the language and path query parameters from the URL
// the help page was opened with, e.g. .../help/?language=de&path=showcase.
func (c *Config) ApplyPageURL(raw string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("parse page url: %w", err)
	}
	q := u.Query()
	if v := q.Get("language"); v != "" {
		c.Language = v
	}
	if v := q.Get("path"); v != "" {
		c.HelpPath = v
	}
	return nil
}

// Normalize fills derived defaults and validates the result.
func (c *Config) Normalize() error {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid base url %q: must be absolute", c.BaseURL)
	}
	if !strings.HasSuffix(c.BaseURL, "/") {
		c.BaseURL += "/"
	}
	if c.ContentURL == "" {
		c.ContentURL = strings.TrimSuffix(c.BaseURL, "/")
	}
	c.ContentURL = strings.TrimSuffix(c.ContentURL, "/")
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.DownloadDir == "" {
		c.DownloadDir = "."
	}
	return nil
}

// HelpPathParam returns the path query fragment sent with every request:
// "path=/" + help path.
func (c Config) HelpPathParam() string {
	return "path=/" + strings.TrimPrefix(c.HelpPath, "/")
}

// ResolveLanguage returns the configured language, else the language part
// of a POSIX locale such as "de_AT.UTF-8", else DefaultLanguage.
func (c Config) ResolveLanguage(locale string) string {
	if c.Language != "" {
		return c.Language
	}
	locale = strings.TrimSpace(locale)
	if locale == "" || locale == "C" || locale == "POSIX" {
		return DefaultLanguage
	}
	if i := strings.IndexAny(locale, "_.@-"); i > 0 {
		locale = locale[:i]
	}
	return strings.ToLower(locale)
}
