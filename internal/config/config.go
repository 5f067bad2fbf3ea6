// Package config handles TOML-based configuration loading and validation.
// The file is parsed as data only.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const appName = "reel"

// Config holds all application configuration.
type Config struct {
	Base              string   `toml:"base"`
	ConsumetAPI       string   `toml:"consumet_api"`
	Player            string   `toml:"player"`
	SubsLanguage      string   `toml:"subs_language"`
	Quality           string   `toml:"quality"`
	Sources           []string `toml:"sources"`
	ScrapeTimeout     int      `toml:"scrape_timeout"`
	RequestsPerSecond float64  `toml:"requests_per_second"`
	History           bool     `toml:"history"`
	DownloadDir       string   `toml:"download_dir"`
	Debug             bool     `toml:"debug"`
	LogJSON           bool     `toml:"log_json"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Base:              "flixhq.to",
		ConsumetAPI:       "https://api.consumet.org",
		Player:            "mpv",
		SubsLanguage:      "english",
		Quality:           "1080",
		ScrapeTimeout:     30,
		RequestsPerSecond: 4,
		History:           true,
		DownloadDir:       "~/Videos/reel",
	}
}

// configDir returns the XDG-compliant config directory.
func configDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".config", appName), nil
}

// ConfigPath returns the path to the config file.
func ConfigPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads the config file and merges with defaults.
// If the config file doesn't exist, defaults are returned.
func Load() (*Config, error) {
	cfg := Default()

	path, err := ConfigPath()
	if err != nil {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks config values are within acceptable bounds.
func (c *Config) Validate() error {
	validPlayers := map[string]bool{
		"mpv": true, "vlc": true, "iina": true, "celluloid": true,
	}
	if !validPlayers[strings.ToLower(c.Player)] {
		return fmt.Errorf("unsupported player %q (valid: mpv, vlc, iina, celluloid)", c.Player)
	}

	validQualities := map[string]bool{
		"360": true, "480": true, "720": true, "1080": true, "auto": true,
	}
	if !validQualities[strings.ToLower(c.Quality)] {
		return fmt.Errorf("unsupported quality %q (valid: 360, 480, 720, 1080, auto)", c.Quality)
	}

	if c.Base == "" {
		return fmt.Errorf("base URL cannot be empty")
	}

	u, err := url.Parse(c.ConsumetAPI)
	if err != nil || u.Scheme != "https" || u.Host == "" {
		return fmt.Errorf("consumet_api must be an https URL, got %q", c.ConsumetAPI)
	}

	if c.ScrapeTimeout <= 0 {
		return fmt.Errorf("scrape_timeout must be positive, got %d", c.ScrapeTimeout)
	}
	if c.RequestsPerSecond <= 0 {
		return fmt.Errorf("requests_per_second must be positive, got %g", c.RequestsPerSecond)
	}

	for i, id := range c.Sources {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("sources[%d] is blank", i)
		}
	}

	return nil
}

// Timeout returns the per-scrape timeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.ScrapeTimeout) * time.Second
}

// ExpandDownloadDir resolves ~ in the download directory path.
func (c *Config) ExpandDownloadDir() (string, error) {
	dir := c.DownloadDir
	if strings.HasPrefix(dir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("expanding home dir: %w", err)
		}
		dir = filepath.Join(home, dir[2:])
	}
	return filepath.Abs(dir)
}

func xdgDir(env string, fallback ...string) (string, error) {
	dir := os.Getenv(env)
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		dir = filepath.Join(append([]string{home}, fallback...)...)
	}
	return filepath.Join(dir, appName), nil
}

// HistoryPath returns the path to the sqlite history database.
func HistoryPath() (string, error) {
	dir, err := xdgDir("XDG_DATA_HOME", ".local", "share")
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history.db"), nil
}

// LegacyHistoryPath returns the TSV history file written by older releases.
func LegacyHistoryPath() (string, error) {
	dir, err := xdgDir("XDG_DATA_HOME", ".local", "share")
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history.tsv"), nil
}

// LogPath returns the path to the log file.
func LogPath() (string, error) {
	dir, err := xdgDir("XDG_STATE_HOME", ".local", "state")
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appName+".log"), nil
}
