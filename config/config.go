package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spiffcs/repopin/internal/constants"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	DefaultFormat  string `yaml:"default_format,omitempty" json:"default_format,omitempty"`
	Debounce       string `yaml:"debounce,omitempty" json:"debounce,omitempty"`
	ResultLimit    *int   `yaml:"result_limit,omitempty" json:"result_limit,omitempty"`
	APIURL         string `yaml:"api_url,omitempty" json:"api_url,omitempty"`
	StaleResponses string `yaml:"stale_responses,omitempty" json:"stale_responses,omitempty"`
	PinsFile       string `yaml:"pins_file,omitempty" json:"pins_file,omitempty"`
	PersistPins    *bool  `yaml:"persist_pins,omitempty" json:"persist_pins,omitempty"`
}

// DefaultConfigDir returns the default config directory
func DefaultConfigDir() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return ".repopin"
	}
	return filepath.Join(configDir, "repopin")
}

// ConfigPath returns the path to the config file
func ConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// LocalConfigPath returns the path to the local config file in the current directory
func LocalConfigPath() string {
	return ".repopin.yaml"
}

// Load loads the configuration from disk.
// It first loads the global config from the user config directory, then
// merges any local .repopin.yaml on top (local values take precedence).
func Load() (*Config, error) {
	return LoadFrom(ConfigPath(), LocalConfigPath())
}

// LoadFrom loads and merges the config files at the given paths. Missing
// files are skipped.
func LoadFrom(globalPath, localPath string) (*Config, error) {
	cfg := &Config{}

	global, err := readFile(globalPath)
	if err != nil {
		return nil, fmt.Errorf("global config: %w", err)
	}
	if global != nil {
		cfg = global
	}

	local, err := readFile(localPath)
	if err != nil {
		return nil, fmt.Errorf("local config: %w", err)
	}
	if local != nil {
		cfg = mergeConfig(cfg, local)
	}

	if cfg.DefaultFormat == "" {
		cfg.DefaultFormat = "table"
	}

	return cfg, cfg.Validate()
}

// LoadGlobal loads only the global config file, for edits that must not
// copy local overrides into it.
func LoadGlobal() (*Config, error) {
	cfg, err := readFile(ConfigPath())
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = &Config{}
	}
	return cfg, nil
}

// readFile parses one config file; a missing file yields nil.
func readFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return &cfg, nil
}

// mergeConfig merges local config on top of global config.
// Local values take precedence; unset local values preserve global values.
func mergeConfig(global, local *Config) *Config {
	result := *global

	if local.DefaultFormat != "" {
		result.DefaultFormat = local.DefaultFormat
	}
	if local.Debounce != "" {
		result.Debounce = local.Debounce
	}
	if local.ResultLimit != nil {
		result.ResultLimit = local.ResultLimit
	}
	if local.APIURL != "" {
		result.APIURL = local.APIURL
	}
	if local.StaleResponses != "" {
		result.StaleResponses = local.StaleResponses
	}
	if local.PinsFile != "" {
		result.PinsFile = local.PinsFile
	}
	if local.PersistPins != nil {
		result.PersistPins = local.PersistPins
	}

	return &result
}

// Validate checks values that cannot be corrected silently.
func (c *Config) Validate() error {
	if _, err := c.DebounceDelay(); err != nil {
		return err
	}
	switch c.StaleResponses {
	case "", constants.StaleDiscard, constants.StaleLastWins:
	default:
		return fmt.Errorf("invalid stale_responses %q (must be %s or %s)",
			c.StaleResponses, constants.StaleDiscard, constants.StaleLastWins)
	}
	return nil
}

// DebounceDelay returns the configured quiet period.
func (c *Config) DebounceDelay() (time.Duration, error) {
	if c.Debounce == "" {
		return constants.DefaultDebounce, nil
	}
	d, err := time.ParseDuration(c.Debounce)
	if err != nil {
		return 0, fmt.Errorf("invalid debounce %q: %w", c.Debounce, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid debounce %q: must not be negative", c.Debounce)
	}
	return d, nil
}

// GetResultLimit returns the dropdown size, clamped to 1..MaxResults.
func (c *Config) GetResultLimit() int {
	if c.ResultLimit == nil || *c.ResultLimit <= 0 || *c.ResultLimit > constants.MaxResults {
		return constants.MaxResults
	}
	return *c.ResultLimit
}

// GetAPIURL returns the API root.
func (c *Config) GetAPIURL() string {
	if c.APIURL == "" {
		return constants.DefaultAPIURL
	}
	return c.APIURL
}

// GetStalePolicy returns how out-of-order search responses are handled.
func (c *Config) GetStalePolicy() string {
	if c.StaleResponses == "" {
		return constants.StaleDiscard
	}
	return c.StaleResponses
}

// GetPinsFile returns the pins file path with a leading ~ expanded. Empty
// means the default location.
func (c *Config) GetPinsFile() string {
	if !strings.HasPrefix(c.PinsFile, "~/") {
		return c.PinsFile
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return c.PinsFile
	}
	return filepath.Join(home, c.PinsFile[2:])
}

// ShouldPersistPins reports whether pins are saved between runs.
func (c *Config) ShouldPersistPins() bool {
	return c.PersistPins == nil || *c.PersistPins
}

// GetGitHubToken returns the GitHub token from the GITHUB_TOKEN environment variable.
// Tokens are only read from the environment, never from config files.
func (c *Config) GetGitHubToken() string {
	return os.Getenv("GITHUB_TOKEN")
}

// Set assigns a config key from its string form. Keys use their YAML names.
func (c *Config) Set(key, value string) error {
	switch key {
	case "token":
		return fmt.Errorf("tokens cannot be stored in config files for security reasons. Set the GITHUB_TOKEN environment variable instead")
	case "default_format", "format":
		switch value {
		case "table", "json", "yaml":
		default:
			return fmt.Errorf("invalid format: %s (must be table, json or yaml)", value)
		}
		c.DefaultFormat = value
	case "debounce":
		c.Debounce = value
	case "result_limit":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid result_limit %q: %w", value, err)
		}
		if n < 1 || n > constants.MaxResults {
			return fmt.Errorf("invalid result_limit %d (must be 1-%d)", n, constants.MaxResults)
		}
		c.ResultLimit = &n
	case "api_url":
		c.APIURL = value
	case "stale_responses":
		c.StaleResponses = value
	case "pins_file":
		c.PinsFile = value
	case "persist_pins":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid persist_pins %q: %w", value, err)
		}
		c.PersistPins = &b
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return c.Validate()
}

// Save writes the config to the global config file.
func (c *Config) Save() error {
	yamlStr, err := c.ToYAML()
	if err != nil {
		return err
	}
	return SaveTo(ConfigPath(), yamlStr)
}

// DefaultConfig returns a fully populated config with all default values.
// This is useful for generating a complete config file template.
func DefaultConfig() *Config {
	limit := constants.MaxResults
	persist := true
	return &Config{
		DefaultFormat:  "table",
		Debounce:       constants.DefaultDebounce.String(),
		ResultLimit:    &limit,
		APIURL:         constants.DefaultAPIURL,
		StaleResponses: constants.StaleDiscard,
		PersistPins:    &persist,
	}
}

// ToYAML returns the config as a YAML string
func (c *Config) ToYAML() (string, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to marshal config: %w", err)
	}
	return string(data), nil
}

// ConfigPathInfo contains information about config file paths
type ConfigPathInfo struct {
	GlobalPath   string
	GlobalExists bool
	LocalPath    string
	LocalExists  bool
}

// GetConfigPaths returns path info for both global and local configs
func GetConfigPaths() ConfigPathInfo {
	globalPath := ConfigPath()
	localPath := LocalConfigPath()

	absLocalPath, err := filepath.Abs(localPath)
	if err != nil {
		absLocalPath = localPath
	}

	_, globalErr := os.Stat(globalPath)
	_, localErr := os.Stat(localPath)

	return ConfigPathInfo{
		GlobalPath:   globalPath,
		GlobalExists: globalErr == nil,
		LocalPath:    absLocalPath,
		LocalExists:  localErr == nil,
	}
}

// MinimalConfig returns a minimal config template with comments
func MinimalConfig() string {
	return `# repopin configuration file
# See: repopin config defaults  (for all available options)

# Quiet period after the last keystroke before searching
debounce: 1s

# Number of results shown in the dropdown (1-5)
result_limit: 5

# How to handle a search response that arrives after a newer search was
# issued: discard (default) or last-wins
# stale_responses: discard

# Keep pinned repositories between runs (optional)
# persist_pins: true
# pins_file: ~/.cache/repopin/pins.json

# GitHub Enterprise (optional)
# api_url: https://github.example.com/api/v3/
`
}

// SaveTo writes content to a specific path, creating directories as needed
func SaveTo(path string, content string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write file %s: %w", path, err)
	}

	return nil
}
