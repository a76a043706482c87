package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const configFilename = "aurora.yaml"

// ErrMissingCredential is returned when a feature requires the OpenAI API
// key and none is configured.
var ErrMissingCredential = errors.New("no OpenAI API key configured (set openai_api_key or AURORA_OPENAI_API_KEY)")

// EngineMode selects how the soundscape is produced.
type EngineMode string

const (
	// EngineDrone synthesizes everything from oscillators.
	EngineDrone EngineMode = "drone"
	// EngineBeds crossfades between pre-rendered ambient audio files.
	EngineBeds EngineMode = "beds"
)

// Config holds all user-tunable settings.
type Config struct {
	Engine      EngineMode `yaml:"engine"`
	BedsDir     string     `yaml:"beds_dir"`
	Volume      float64    `yaml:"volume"`
	Microphone  bool       `yaml:"microphone"`
	Sensitivity string     `yaml:"sensitivity"` // subtle | balanced | explosive
	AutoCapture bool       `yaml:"auto_capture"`
	CapturesDir string     `yaml:"captures_dir"`
	UserID      string     `yaml:"user_id"`
	OpenAIKey   string     `yaml:"openai_api_key"`
	LogLevel    string     `yaml:"log_level"`
	LogFile     string     `yaml:"log_file"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Engine:      EngineDrone,
		Volume:      0.7,
		Microphone:  true,
		Sensitivity: "balanced",
		AutoCapture: true,
		UserID:      "local",
		LogLevel:    "info",
	}
}

// Dir returns the aurora config directory, creating it if needed.
func Dir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolving config dir: %w", err)
	}
	dir := filepath.Join(base, "aurora")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating config dir: %w", err)
	}
	return dir, nil
}

// DataDir returns the directory for captures, favorites and logs.
func DataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home dir: %w", err)
	}
	dir := filepath.Join(home, ".local", "share", "aurora")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating data dir: %w", err)
	}
	return dir, nil
}

// Load reads the config file, applies defaults for missing fields and
// environment overrides. A missing file is not an error.
func Load() (*Config, error) {
	cfg := Default()

	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(dir, configFilename))
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config back to disk.
func Save(cfg *Config) error {
	dir, err := Dir()
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, configFilename), data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("AURORA_OPENAI_API_KEY"); v != "" {
		cfg.OpenAIKey = v
	}
	if v := os.Getenv("AURORA_BEDS_DIR"); v != "" {
		cfg.BedsDir = v
	}
	if v := os.Getenv("AURORA_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
}

// Validate normalizes and checks field values.
func (c *Config) Validate() error {
	if c.Volume < 0 {
		c.Volume = 0
	}
	if c.Volume > 1 {
		c.Volume = 1
	}
	switch c.Engine {
	case EngineDrone, EngineBeds:
	case "":
		c.Engine = EngineDrone
	default:
		return fmt.Errorf("unknown engine mode %q (want drone or beds)", c.Engine)
	}
	if c.Engine == EngineBeds && c.BedsDir == "" {
		return fmt.Errorf("engine mode %q requires beds_dir", EngineBeds)
	}
	switch c.Sensitivity {
	case "subtle", "balanced", "explosive":
	case "":
		c.Sensitivity = "balanced"
	default:
		return fmt.Errorf("unknown sensitivity %q (want subtle, balanced or explosive)", c.Sensitivity)
	}
	if c.UserID == "" {
		c.UserID = "local"
	}
	return nil
}

// ResolveLogFile returns the log sink: the configured path, or aurora.log
// under the data dir. The TUI owns the terminal while running, so stderr is
// a last resort for when no file path can be resolved at all.
func (c *Config) ResolveLogFile() string {
	if c.LogFile != "" {
		return c.LogFile
	}
	dir, err := DataDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "aurora.log")
}

// RequireOpenAIKey returns the configured key or ErrMissingCredential.
// Features that talk to the remote generator must fail fast on this instead
// of silently falling back.
func (c *Config) RequireOpenAIKey() (string, error) {
	if c.OpenAIKey == "" {
		return "", ErrMissingCredential
	}
	return c.OpenAIKey, nil
}
