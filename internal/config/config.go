package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"
)

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig      `toml:"server" yaml:"server"`
	Logging     LogConfig         `toml:"logging" yaml:"logging"`
	RateLimit   RateLimitConfig   `toml:"rate_limit" yaml:"rate_limit"`
	Terminal    TerminalConfig    `toml:"terminal" yaml:"terminal"`
	Filesystem  FilesystemConfig  `toml:"filesystem" yaml:"filesystem"`
	Persistence PersistenceConfig `toml:"persistence" yaml:"persistence"`
	Script      ScriptConfig      `toml:"script" yaml:"script"`
	Render      RenderConfig      `toml:"render" yaml:"render"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8000" toml:"port" yaml:"port"`
	Host string `envconfig:"HOST" default:"0.0.0.0" toml:"host" yaml:"host"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info" toml:"level" yaml:"level"`
	Development bool   `envconfig:"LOG_DEV" default:"false" toml:"development" yaml:"development"`
}

// RateLimitConfig holds per-IP rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100" toml:"requests_per_second" yaml:"requests_per_second"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200" toml:"burst" yaml:"burst"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true" toml:"enabled" yaml:"enabled"`
}

// TerminalConfig sizes the monitors created at startup.
type TerminalConfig struct {
	MonitorWidth  int      `envconfig:"MONITOR_WIDTH" default:"39" toml:"monitor_width" yaml:"monitor_width"`
	MonitorHeight int      `envconfig:"MONITOR_HEIGHT" default:"19" toml:"monitor_height" yaml:"monitor_height"`
	MonitorColour bool     `envconfig:"MONITOR_COLOUR" default:"true" toml:"monitor_colour" yaml:"monitor_colour"`
	Monitors      []string `envconfig:"MONITORS" default:"monitor_0" toml:"monitors" yaml:"monitors"`
}

// FilesystemConfig bounds the sandbox file tree.
type FilesystemConfig struct {
	MountCapacity   int64    `envconfig:"MOUNT_CAPACITY" default:"1000000000" toml:"mount_capacity" yaml:"mount_capacity"`
	ComputerSpace   int64    `envconfig:"COMPUTER_SPACE" default:"1000000" toml:"computer_space" yaml:"computer_space"`
	DataDir         string   `envconfig:"DATA_DIR" default:"" toml:"data_dir" yaml:"data_dir"`
	MaxOpenFiles    int      `envconfig:"MAX_OPEN_FILES" default:"128" toml:"max_open_files" yaml:"max_open_files"`
	AllowedRoots    []string `envconfig:"MOUNT_ROOTS" toml:"allowed_roots" yaml:"allowed_roots"`
	ExposeHostPaths bool     `envconfig:"EXPOSE_HOST_PATHS" default:"false" toml:"expose_host_paths" yaml:"expose_host_paths"`
}

// PersistenceConfig controls monitor snapshots.
type PersistenceConfig struct {
	Enabled bool   `envconfig:"PERSIST_ENABLED" default:"true" toml:"enabled" yaml:"enabled"`
	Dir     string `envconfig:"PERSIST_DIR" default:"./data/snapshots" toml:"dir" yaml:"dir"`
}

// ScriptConfig controls script execution.
type ScriptConfig struct {
	DefaultLanguage string   `envconfig:"SCRIPT_LANGUAGE" default:"lua" toml:"default_language" yaml:"default_language"`
	Timeout         Duration `envconfig:"SCRIPT_TIMEOUT" default:"10s" toml:"timeout" yaml:"timeout"`
	EventQueueSize  int      `envconfig:"EVENT_QUEUE_SIZE" default:"256" toml:"event_queue_size" yaml:"event_queue_size"`
}

// RenderConfig throttles redraws.
type RenderConfig struct {
	MaxRedrawsPerSecond float64 `envconfig:"RENDER_MAX_FPS" default:"20" toml:"max_redraws_per_second" yaml:"max_redraws_per_second"`
}

// Duration is a time.Duration that decodes from strings such as "10s" in
// environment variables and config files alike.
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// LoadFile decodes a TOML or YAML file over Default. Keys absent from the
// file keep their default values.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		return nil, fmt.Errorf("unsupported config format %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the runtime cannot work with.
func (c *Config) Validate() error {
	if c.Terminal.MonitorWidth <= 0 || c.Terminal.MonitorHeight <= 0 {
		return fmt.Errorf("invalid monitor size %dx%d", c.Terminal.MonitorWidth, c.Terminal.MonitorHeight)
	}
	seen := make(map[string]bool, len(c.Terminal.Monitors))
	for _, name := range c.Terminal.Monitors {
		if name == "" || seen[name] {
			return fmt.Errorf("monitor names must be unique and non-empty, got %q", c.Terminal.Monitors)
		}
		seen[name] = true
	}
	if c.Filesystem.MountCapacity < 0 || c.Filesystem.ComputerSpace < 0 {
		return fmt.Errorf("filesystem capacities must not be negative")
	}
	switch c.Script.DefaultLanguage {
	case "lua", "js":
	default:
		return fmt.Errorf("unknown script language %q", c.Script.DefaultLanguage)
	}
	if c.Render.MaxRedrawsPerSecond <= 0 {
		return fmt.Errorf("render rate must be positive")
	}
	return nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8000",
			Host: "0.0.0.0",
		},
		Logging: LogConfig{
			Level: "info",
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
		Terminal: TerminalConfig{
			MonitorWidth:  39,
			MonitorHeight: 19,
			MonitorColour: true,
			Monitors:      []string{"monitor_0"},
		},
		Filesystem: FilesystemConfig{
			MountCapacity: 1_000_000_000,
			ComputerSpace: 1_000_000,
			MaxOpenFiles:  128,
		},
		Persistence: PersistenceConfig{
			Enabled: true,
			Dir:     "./data/snapshots",
		},
		Script: ScriptConfig{
			DefaultLanguage: "lua",
			Timeout:         Duration(10 * time.Second),
			EventQueueSize:  256,
		},
		Render: RenderConfig{
			MaxRedrawsPerSecond: 20,
		},
	}
}
