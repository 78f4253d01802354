// Package config loads the demo settings: YAML file first, then
// NEGOTIATION_* environment overrides, then clamping.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full demo configuration.
type Config struct {
	Demo    DemoConfig    `yaml:"demo"`
	UI      UIConfig      `yaml:"ui"`
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
	Report  ReportConfig  `yaml:"report"`
}

// DemoConfig controls narration timing.
type DemoConfig struct {
	// Pace multiplies every narration delay; 0 plays instantly.
	Pace           float64       `yaml:"pace"`
	TickerInterval time.Duration `yaml:"ticker_interval"`
}

// UIConfig controls the terminal UI.
type UIConfig struct {
	Launcher  bool `yaml:"launcher"`
	AltScreen bool `yaml:"alt_screen"`
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// LoggingConfig controls zap output.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// ReportConfig controls the negotiation report.
type ReportConfig struct {
	Threshold float64 `yaml:"threshold"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Demo: DemoConfig{
			Pace:           1,
			TickerInterval: 3 * time.Second,
		},
		UI: UIConfig{
			Launcher:  true,
			AltScreen: true,
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8000",
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "negotiation-demo.log",
		},
		Report: ReportConfig{
			Threshold: 0.8,
		},
	}
}

// Load reads path over the defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		case os.IsNotExist(err):
		default:
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}
	cfg.applyEnvOverrides()
	cfg.Normalize()
	return cfg, nil
}

// Save writes the configuration as YAML, creating parent directories.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	c.Demo.Pace = envOrFloat("NEGOTIATION_PACE", c.Demo.Pace)
	if secs := envOrInt("NEGOTIATION_TICKER_INTERVAL", 0); secs > 0 {
		c.Demo.TickerInterval = time.Duration(secs) * time.Second
	}
	c.UI.Launcher = envOrBool("NEGOTIATION_LAUNCHER", c.UI.Launcher)
	if envOrBool("NEGOTIATION_NO_LAUNCHER", false) {
		c.UI.Launcher = false
	}
	c.UI.AltScreen = envOrBool("NEGOTIATION_ALT_SCREEN", c.UI.AltScreen)
	c.Server.Addr = envOr("NEGOTIATION_HTTP_ADDR", c.Server.Addr)
	if origins := envOr("NEGOTIATION_WS_ORIGINS", ""); origins != "" {
		c.Server.AllowedOrigins = parseList(origins)
	}
	c.Logging.Level = envOr("NEGOTIATION_LOG_LEVEL", c.Logging.Level)
	c.Logging.File = envOr("NEGOTIATION_LOG_FILE", c.Logging.File)
	c.Report.Threshold = envOrFloat("NEGOTIATION_REPORT_THRESHOLD", c.Report.Threshold)
}

// Normalize clamps values into their supported ranges.
func (c *Config) Normalize() {
	c.Demo.Pace = clampFloat(c.Demo.Pace, 0, 10)
	if c.Demo.TickerInterval <= 0 {
		c.Demo.TickerInterval = 3 * time.Second
	}
	c.Demo.TickerInterval = clampDuration(c.Demo.TickerInterval, 500*time.Millisecond, time.Minute)
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		c.Logging.Level = "info"
	}
	if strings.TrimSpace(c.Server.Addr) == "" {
		c.Server.Addr = "127.0.0.1:8000"
	}
	if c.Report.Threshold <= 0 || c.Report.Threshold > 1 {
		c.Report.Threshold = 0.8
	}
}

func parseList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if value := strings.TrimSpace(part); value != "" {
			out = append(out, value)
		}
	}
	return out
}

func envOr(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrFloat(key string, fallback float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrBool(key string, fallback bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	if value == "" {
		return fallback
	}
	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func clampFloat(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

func clampDuration(value, min, max time.Duration) time.Duration {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
