package config

import (
	"os"
	"path/filepath"

	"github.com/browserwing/actionrunner/pkg/logger"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
)

type Config struct {
	Debug    bool                `json:"debug" toml:"debug" env:"DEBUG"`
	Server   ServerConfig        `json:"server" toml:"server"`
	Database DatabaseConfig      `json:"database" toml:"database"`
	Browser  BrowserConfig       `json:"browser" toml:"browser"`
	Proxy    ProxyConfig         `json:"proxy" toml:"proxy"`
	Runner   RunnerConfig        `json:"runner" toml:"runner"`
	Log      logger.LoggerConfig `json:"log" toml:"log"`
}

type ServerConfig struct {
	Host string `json:"host" toml:"host" env:"SERVER_HOST"`
	Port string `json:"port" toml:"port" env:"SERVER_PORT"`
	// run creations per second and client, 0 disables the limit
	RunRateLimit float64 `json:"run_rate_limit" toml:"run_rate_limit" env:"SERVER_RUN_RATE_LIMIT"`
	RunBurst     int     `json:"run_burst" toml:"run_burst"`
}

type DatabaseConfig struct {
	Path string `json:"path" toml:"path" env:"DATABASE_PATH"`
}

type BrowserConfig struct {
	BinPath        string   `json:"bin_path" toml:"bin_path" env:"CHROME_BIN_PATH"`
	ControlURL     string   `json:"control_url,omitempty" toml:"control_url,omitempty" env:"CHROME_CONTROL_URL"` // connect to a running browser instead of launching one
	UserDataDir    string   `json:"user_data_dir,omitempty" toml:"user_data_dir,omitempty"`
	UserAgent      string   `json:"user_agent" toml:"user_agent"`
	ViewportWidth  int      `json:"viewport_width" toml:"viewport_width"`
	ViewportHeight int      `json:"viewport_height" toml:"viewport_height"`
	Locale         string   `json:"locale" toml:"locale"`
	Timezone       string   `json:"timezone" toml:"timezone"`
	LaunchArgs     []string `json:"launch_args" toml:"launch_args"`
	NetworkIdleMS  int      `json:"network_idle_ms" toml:"network_idle_ms"` // quiet period that counts as network idle
}

// ProxyConfig describes the platform proxy used when a run asks for it.
type ProxyConfig struct {
	Hostname string `json:"hostname" toml:"hostname" env:"PROXY_HOSTNAME"`
	Port     int    `json:"port" toml:"port" env:"PROXY_PORT"`
	Password string `json:"-" toml:"password,omitempty" env:"PROXY_PASSWORD"`
}

type RunnerConfig struct {
	TypeDelayMS     int    `json:"type_delay_ms" toml:"type_delay_ms"`
	ScreenshotDir   string `json:"screenshot_dir" toml:"screenshot_dir" env:"SCREENSHOT_DIR"`
	SaveScreenshots bool   `json:"save_screenshots" toml:"save_screenshots"`
	ExportMaxOutput int    `json:"export_max_output" toml:"export_max_output"` // runes kept per exported output cell
}

const (
	DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	DefaultLocale    = "en-US"
	DefaultTimezone  = "America/New_York"
)

// Default returns the configuration written on first start.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: "8080",
		},
		Database: DatabaseConfig{
			Path: "./data/actionrunner.db",
		},
		Browser: BrowserConfig{
			BinPath:        findChromeBinary(),
			UserAgent:      DefaultUserAgent,
			ViewportWidth:  1920,
			ViewportHeight: 1080,
			Locale:         DefaultLocale,
			Timezone:       DefaultTimezone,
			LaunchArgs: []string{
				"disable-blink-features=AutomationControlled",
				"disable-dev-shm-usage",
			},
			NetworkIdleMS: 500,
		},
		Proxy: ProxyConfig{
			Port: 8000,
		},
		Runner: RunnerConfig{
			TypeDelayMS:     50,
			ScreenshotDir:   "./data/screenshots",
			ExportMaxOutput: 500,
		},
		Log: logger.LoggerConfig{
			Level: "info",
			File:  "./log/actionrunner.log",
		},
	}
}

// Load reads the TOML file at path. A missing file yields the defaults,
// which are also written to path. Environment variables override both.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "failed to parse config %s", path)
		}
	case os.IsNotExist(err):
		if dir := filepath.Dir(path); dir != "" {
			_ = os.MkdirAll(dir, 0o755)
		}
		if out, err := toml.Marshal(cfg); err == nil {
			_ = os.WriteFile(path, out, 0o644)
		}
	default:
		return nil, errors.Wrapf(err, "failed to read config %s", path)
	}

	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, errors.Wrap(err, "failed to apply environment overrides")
	}
	cfg.fillDefaults()
	return cfg, nil
}

// fillDefaults repairs values a hand-edited file may have zeroed.
func (c *Config) fillDefaults() {
	def := Default()
	if c.Server.Port == "" {
		c.Server.Port = def.Server.Port
	}
	if c.Database.Path == "" {
		c.Database.Path = def.Database.Path
	}
	if c.Browser.UserAgent == "" {
		c.Browser.UserAgent = def.Browser.UserAgent
	}
	if c.Browser.ViewportWidth <= 0 || c.Browser.ViewportHeight <= 0 {
		c.Browser.ViewportWidth = def.Browser.ViewportWidth
		c.Browser.ViewportHeight = def.Browser.ViewportHeight
	}
	if c.Browser.Locale == "" {
		c.Browser.Locale = def.Browser.Locale
	}
	if c.Browser.Timezone == "" {
		c.Browser.Timezone = def.Browser.Timezone
	}
	if c.Browser.NetworkIdleMS <= 0 {
		c.Browser.NetworkIdleMS = def.Browser.NetworkIdleMS
	}
	if c.Proxy.Port <= 0 {
		c.Proxy.Port = def.Proxy.Port
	}
	if c.Runner.TypeDelayMS < 0 {
		c.Runner.TypeDelayMS = def.Runner.TypeDelayMS
	}
	if c.Runner.ExportMaxOutput <= 0 {
		c.Runner.ExportMaxOutput = def.Runner.ExportMaxOutput
	}
	if c.Runner.ScreenshotDir == "" {
		c.Runner.ScreenshotDir = def.Runner.ScreenshotDir
	}
}

// findChromeBinary looks at the usual install locations.
func findChromeBinary() string {
	commonPaths := []string{
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/usr/bin/google-chrome-stable",
		"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
		"C:\\Program Files\\Google\\Chrome\\Application\\chrome.exe",
		"C:\\Program Files (x86)\\Google\\Chrome\\Application\\chrome.exe",
	}
	for _, p := range commonPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
