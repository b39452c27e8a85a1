// Package config loads the daemon configuration from the XDG config
// directory, creating a commented default file on first run.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/pelletier/go-toml/v2"
)

const configRelPath = "molt/config.toml"

// Config is the user-facing configuration.
type Config struct {
	Terminal TerminalConfig `toml:"terminal"`
	Daemon   DaemonConfig   `toml:"daemon"`
}

// TerminalConfig holds per-session terminal settings.
type TerminalConfig struct {
	ScrollbackLines int    `toml:"scrollback_lines"` // Lines kept in scrollback (default: 10000, min: 100, max: 1000000)
	Shell           string `toml:"shell"`            // Shell to launch; empty auto-detects from $SHELL
	Theme           string `toml:"theme"`            // Color theme name (e.g., dracula, nord); empty uses built-in defaults
}

// DaemonConfig holds daemon-wide settings.
type DaemonConfig struct {
	LogLevel   string `toml:"log_level"`   // off, error, info, debug (default: info)
	ShmDir     string `toml:"shm_dir"`     // Region directory; empty picks /dev/shm or the temp dir
	GridWidth  int    `toml:"grid_width"`  // Region capacity in columns (default: 200)
	GridHeight int    `toml:"grid_height"` // Region capacity in rows (default: 100)
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Terminal: TerminalConfig{
			ScrollbackLines: 10000,
		},
		Daemon: DaemonConfig{
			LogLevel:   "info",
			GridWidth:  200,
			GridHeight: 100,
		},
	}
}

// Load reads the config file, creating a default one if none exists.
// Missing keys fall back to defaults; out-of-range values are clamped.
func Load() (*Config, error) {
	path, err := xdg.SearchConfigFile(configRelPath)
	if err != nil {
		return createDefault()
	}

	// #nosec G304 - path comes from the XDG search, reading it is the point
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return parse(data)
}

// parse merges TOML data over the defaults, clamps ranges and validates.
func parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Path returns where the config file is (or would be) located.
func Path() (string, error) {
	if path, err := xdg.SearchConfigFile(configRelPath); err == nil {
		return path, nil
	}
	return xdg.ConfigFile(configRelPath)
}

func (c *Config) normalize() {
	if c.Terminal.ScrollbackLines == 0 {
		c.Terminal.ScrollbackLines = 10000
	}
	c.Terminal.ScrollbackLines = min(max(c.Terminal.ScrollbackLines, 100), 1000000)
	if c.Daemon.GridWidth <= 0 {
		c.Daemon.GridWidth = 200
	}
	if c.Daemon.GridHeight <= 0 {
		c.Daemon.GridHeight = 100
	}
	if c.Daemon.LogLevel == "" {
		c.Daemon.LogLevel = "info"
	}
}

func (c *Config) validate() error {
	switch c.Daemon.LogLevel {
	case "off", "error", "info", "debug":
	default:
		return fmt.Errorf("config: log_level %q (want off, error, info or debug)", c.Daemon.LogLevel)
	}
	if c.Daemon.ShmDir != "" {
		fi, err := os.Stat(c.Daemon.ShmDir)
		if err != nil || !fi.IsDir() {
			return fmt.Errorf("config: shm_dir %q is not a directory", c.Daemon.ShmDir)
		}
	}
	return nil
}

func createDefault() (*Config, error) {
	cfg := Default()

	path, err := xdg.ConfigFile(configRelPath)
	if err != nil {
		return nil, fmt.Errorf("config: resolve path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("config: create directory: %w", err)
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("config: marshal defaults: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("# molt configuration\n")
	sb.WriteString("#\n")
	sb.WriteString("# scrollback_lines: lines kept per session (100 to 1000000)\n")
	sb.WriteString("# shell: command to launch; empty auto-detects from $SHELL\n")
	sb.WriteString("# theme: color theme name (dracula, nord, ...); empty for defaults\n")
	sb.WriteString("# log_level: off, error, info, debug\n")
	sb.WriteString("# shm_dir: shared-memory region directory; empty picks /dev/shm\n")
	sb.WriteString("# grid_width, grid_height: region capacity in cells\n\n")
	sb.Write(data)

	if err := os.WriteFile(path, []byte(sb.String()), 0o600); err != nil {
		return nil, fmt.Errorf("config: write %s: %w", path, err)
	}
	return cfg, nil
}

// Shell resolves the configured shell, falling back to $SHELL and then sh.
func (c *Config) Shell() string {
	if c.Terminal.Shell != "" {
		return c.Terminal.Shell
	}
	if sh := os.Getenv("SHELL"); sh != "" {
		return sh
	}
	return "/bin/sh"
}
