package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/claude/routinecopy/internal/driver"
)

type Config struct {
	Browser   BrowserConfig   `yaml:"browser"`
	Selectors SelectorsConfig `yaml:"selectors"`
	Timings   TimingsConfig   `yaml:"timings"`
	Server    ServerConfig    `yaml:"server"`
	Auth      AuthConfig      `yaml:"auth"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
	Shelf     ShelfConfig     `yaml:"shelf"`
	Notify    NotifyConfig    `yaml:"notify"`
}

// BrowserConfig locates the browser tab running the routine builder.
type BrowserConfig struct {
	DebuggerURL string `yaml:"debugger_url"`
	// PageMatch is a substring of the builder tab's URL. Empty picks the
	// first page target.
	PageMatch string `yaml:"page_match"`
}

type SelectorsConfig struct {
	// Profile is a YAML selector profile. Empty uses the built-in profile.
	Profile string `yaml:"profile"`
}

// TimingsConfig holds settle waits in milliseconds.
type TimingsConfig struct {
	PlacementMS      int `yaml:"placement_ms"`
	MenuMS           int `yaml:"menu_ms"`
	PickerMS         int `yaml:"picker_ms"`
	PickerRowMS      int `yaml:"picker_row_ms"`
	AddSetMS         int `yaml:"add_set_ms"`
	NoteToggleMS     int `yaml:"note_toggle_ms"`
	VerifyMS         int `yaml:"verify_ms"`
	LocateTimeoutMS  int `yaml:"locate_timeout_ms"`
	LocateIntervalMS int `yaml:"locate_interval_ms"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type AuthConfig struct {
	APIKey string `yaml:"api_key"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

type ShelfConfig struct {
	Path string `yaml:"path"`
}

type NotifyConfig struct {
	// NtfyTopic is a full ntfy topic URL. Empty disables push notifications.
	NtfyTopic      string `yaml:"ntfy_topic"`
	RequestTimeout int    `yaml:"request_timeout_seconds"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	t := driver.DefaultTimings()
	return &Config{
		Browser: BrowserConfig{DebuggerURL: "http://127.0.0.1:9222"},
		Timings: TimingsConfig{
			PlacementMS:      ms(t.Placement),
			MenuMS:           ms(t.Menu),
			PickerMS:         ms(t.Picker),
			PickerRowMS:      ms(t.PickerRow),
			AddSetMS:         ms(t.AddSet),
			NoteToggleMS:     ms(t.NoteToggle),
			VerifyMS:         ms(t.Verify),
			LocateTimeoutMS:  ms(t.LocateTimeout),
			LocateIntervalMS: ms(t.LocateInterval),
		},
		Server:    ServerConfig{Host: "127.0.0.1", Port: 8080},
		Tailscale: TailscaleConfig{Hostname: "routinecopy"},
		Shelf:     ShelfConfig{Path: defaultShelfPath()},
		Notify:    NotifyConfig{RequestTimeout: 10},
	}
}

func ms(d time.Duration) int { return int(d / time.Millisecond) }

func defaultShelfPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "shelf.db"
	}
	return filepath.Join(home, ".routinecopy", "shelf.db")
}

// DefaultPath is where Resolve looks for a config file when none is named.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".routinecopy", "config.yaml")
}

// Load reads config from a YAML file on top of the defaults, then applies
// environment variable overrides. Env vars use the prefix ROUTINECOPY_ and
// underscore-separated paths:
//
//	ROUTINECOPY_BROWSER_DEBUGGER_URL, ROUTINECOPY_BROWSER_PAGE_MATCH,
//	ROUTINECOPY_SELECTORS_PROFILE,
//	ROUTINECOPY_SERVER_HOST, ROUTINECOPY_SERVER_PORT,
//	ROUTINECOPY_AUTH_API_KEY,
//	ROUTINECOPY_TAILSCALE_ENABLED, ROUTINECOPY_TAILSCALE_HOSTNAME,
//	ROUTINECOPY_SHELF_PATH, ROUTINECOPY_NOTIFY_NTFY_TOPIC
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return finish(cfg)
}

// Resolve loads path when given. Without a path it loads DefaultPath if that
// file exists and otherwise starts from the defaults.
func Resolve(path string) (*Config, error) {
	if path != "" {
		return Load(path)
	}
	if p := DefaultPath(); p != "" {
		if _, err := os.Stat(p); err == nil {
			return Load(p)
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("checking config file: %w", err)
		}
	}
	return finish(Default())
}

func finish(cfg *Config) (*Config, error) {
	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ROUTINECOPY_BROWSER_DEBUGGER_URL"); v != "" {
		cfg.Browser.DebuggerURL = v
	}
	if v := os.Getenv("ROUTINECOPY_BROWSER_PAGE_MATCH"); v != "" {
		cfg.Browser.PageMatch = v
	}
	if v := os.Getenv("ROUTINECOPY_SELECTORS_PROFILE"); v != "" {
		cfg.Selectors.Profile = v
	}
	if v := os.Getenv("ROUTINECOPY_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("ROUTINECOPY_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("ROUTINECOPY_AUTH_API_KEY"); v != "" {
		cfg.Auth.APIKey = v
	}
	if v := os.Getenv("ROUTINECOPY_TAILSCALE_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Tailscale.Enabled = b
		}
	}
	if v := os.Getenv("ROUTINECOPY_TAILSCALE_HOSTNAME"); v != "" {
		cfg.Tailscale.Hostname = v
	}
	if v := os.Getenv("ROUTINECOPY_SHELF_PATH"); v != "" {
		cfg.Shelf.Path = v
	}
	if v := os.Getenv("ROUTINECOPY_NOTIFY_NTFY_TOPIC"); v != "" {
		cfg.Notify.NtfyTopic = v
	}
}

func (c *Config) validate() error {
	if c.Browser.DebuggerURL == "" {
		return fmt.Errorf("browser.debugger_url is required")
	}
	if u, err := url.Parse(c.Browser.DebuggerURL); err != nil || u.Host == "" {
		return fmt.Errorf("browser.debugger_url %q is not a URL", c.Browser.DebuggerURL)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d is out of range", c.Server.Port)
	}
	if c.Shelf.Path == "" {
		return fmt.Errorf("shelf.path is required")
	}
	t := c.Timings
	for name, v := range map[string]int{
		"placement_ms":       t.PlacementMS,
		"menu_ms":            t.MenuMS,
		"picker_ms":          t.PickerMS,
		"picker_row_ms":      t.PickerRowMS,
		"add_set_ms":         t.AddSetMS,
		"note_toggle_ms":     t.NoteToggleMS,
		"verify_ms":          t.VerifyMS,
		"locate_timeout_ms":  t.LocateTimeoutMS,
		"locate_interval_ms": t.LocateIntervalMS,
	} {
		if v < 0 {
			return fmt.Errorf("timings.%s must not be negative", name)
		}
	}
	if t.LocateIntervalMS == 0 {
		return fmt.Errorf("timings.locate_interval_ms is required")
	}
	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return fmt.Errorf("tailscale.hostname is required when tailscale is enabled")
	}
	return nil
}

// RequireAPIKey checks the settings that only the HTTP server needs.
func (c *Config) RequireAPIKey() error {
	if c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key is required to serve")
	}
	return nil
}

// DriverTimings converts the configured waits.
func (t TimingsConfig) DriverTimings() driver.Timings {
	d := func(v int) time.Duration { return time.Duration(v) * time.Millisecond }
	return driver.Timings{
		Placement:      d(t.PlacementMS),
		Menu:           d(t.MenuMS),
		Picker:         d(t.PickerMS),
		PickerRow:      d(t.PickerRowMS),
		AddSet:         d(t.AddSetMS),
		NoteToggle:     d(t.NoteToggleMS),
		Verify:         d(t.VerifyMS),
		LocateTimeout:  d(t.LocateTimeoutMS),
		LocateInterval: d(t.LocateIntervalMS),
	}
}

// Addr is the listen address of the HTTP server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
