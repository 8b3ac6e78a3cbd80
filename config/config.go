package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	ErrConfigNotFound = errors.New("configuration file not found")
	ErrInvalidConfig  = errors.New("invalid configuration")
)

// Config is the bridge configuration loaded from a YAML file.
type Config struct {
	Engine           EngineConfig `yaml:"engine"`
	DefaultThinkTime int          `yaml:"default_think_time"` // milliseconds
	LogLevel         string       `yaml:"log_level"`
}

// EngineConfig describes the engine executable and its startup options.
type EngineConfig struct {
	Path    string    `yaml:"path"`
	Name    string    `yaml:"name,omitempty"`
	Options OptionMap `yaml:"options,omitempty"`
}

// OptionMap decodes YAML option values of any scalar type into strings, so
// `Threads: 4` and `Threads: "4"` configure the same thing.
type OptionMap map[string]string

func (m *OptionMap) UnmarshalYAML(value *yaml.Node) error {
	raw := map[string]interface{}{}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		if v == nil {
			out[k] = ""
			continue
		}
		out[k] = fmt.Sprintf("%v", v)
	}
	*m = out
	return nil
}

// Default returns the built-in configuration used when no file is found.
func Default() *Config {
	return &Config{
		DefaultThinkTime: 1000,
		LogLevel:         "info",
	}
}

// ThinkTime returns the default think time as a duration.
func (c *Config) ThinkTime() time.Duration {
	return time.Duration(c.DefaultThinkTime) * time.Millisecond
}

// Load reads and validates a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return cfg, nil
}

// DefaultLocations returns the config file search order.
func DefaultLocations() []string {
	locations := []string{"chess_uci_mcp.yaml", "config.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		locations = append(locations, filepath.Join(home, ".config", "chess_uci_mcp", "config.yaml"))
	}
	return append(locations, "/etc/chess_uci_mcp/config.yaml")
}

// LoadDefault searches DefaultLocations and loads the first file present.
// When none exists it returns the built-in defaults and an empty path.
func LoadDefault() (*Config, string, error) {
	return loadFirst(DefaultLocations())
}

func loadFirst(paths []string) (*Config, string, error) {
	for _, path := range paths {
		cfg, err := Load(path)
		if errors.Is(err, ErrConfigNotFound) {
			continue
		}
		if err != nil {
			// A present-but-broken file is an error, not a silent skip.
			return nil, path, err
		}
		return cfg, path, nil
	}
	return Default(), "", nil
}

func (c *Config) applyDefaults() {
	if c.DefaultThinkTime == 0 {
		c.DefaultThinkTime = 1000
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

func (c *Config) validate() error {
	if c.DefaultThinkTime < 0 {
		return fmt.Errorf("default_think_time must be positive, got %d", c.DefaultThinkTime)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be one of debug, info, warn, error; got %q", c.LogLevel)
	}
	return nil
}

const defaultConfigTemplate = `# chess-uci-mcp configuration.
#
# Explicit command-line flags override these values.

engine:
  # Path to the UCI engine executable. A bare name is resolved via PATH.
  path: stockfish
  # Display name override, used in logs (optional).
  # name: stockfish
  # UCI options applied once at startup.
  options:
    Threads: 1
    Hash: 16

# Default search time per request, in milliseconds.
default_think_time: 1000

# Log verbosity: debug, info, warn or error.
log_level: info
`

// WriteDefault writes a commented default configuration file. It refuses to
// overwrite an existing file.
func WriteDefault(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("config file already exists: %s", path)
		}
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(defaultConfigTemplate); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
