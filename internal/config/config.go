package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// CommandPolicy configures optional shell command validation. When Allowlist
// is empty every command string is accepted and passed to the shell verbatim.
type CommandPolicy struct {
	// Allowlist maps a command name (the first token) to a regular
	// expression the full command line must match.
	Allowlist map[string]string `json:"allowlist,omitempty"`
}

// Config represents service configuration
type Config struct {
	WorkspaceRoot    string        `json:"workspace_root"`
	Host             string        `json:"host"`
	Port             int           `json:"port"`
	DefaultTimeout   int           `json:"default_timeout_seconds"`
	MaxTimeout       int           `json:"max_timeout_seconds"`
	PollInterval     int           `json:"poll_interval_seconds"`
	MaxOutputBytes   int           `json:"max_output_bytes"`
	MaxFileSizeBytes int64         `json:"max_file_size_bytes"`
	LogLevel         string        `json:"log_level"` // debug, info, warn, error, none
	LogPath          string        `json:"log_path,omitempty"`
	Commands         CommandPolicy `json:"commands,omitempty"`
}

func defaultStateDir() string {
	if stateHome := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); stateHome != "" {
		return filepath.Join(stateHome, "codestorm")
	}
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".local", "state", "codestorm")
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		WorkspaceRoot:    "user_workspaces",
		Host:             "0.0.0.0",
		Port:             5000,
		DefaultTimeout:   30,
		MaxTimeout:       300,
		PollInterval:     1,
		MaxOutputBytes:   1 << 20,  // 1 MiB command output cap
		MaxFileSizeBytes: 10 << 20, // 10 MiB per file
		LogLevel:         "info",
		LogPath:          filepath.Join(defaultStateDir(), "codestorm.log"),
	}
}

// Load loads configuration from file, falling back to defaults when the file
// does not exist. Environment variables override the common knobs afterwards.
func Load(path string) (*Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			config.applyEnv()
			return config, config.validate()
		}
		return nil, err
	}

	// Unmarshal into default config (overrides only provided fields)
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if config.WorkspaceRoot == "" {
		config.WorkspaceRoot = "user_workspaces"
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.DefaultTimeout <= 0 {
		config.DefaultTimeout = 30
	}
	if config.MaxTimeout <= 0 {
		config.MaxTimeout = 300
	}
	if config.PollInterval <= 0 {
		config.PollInterval = 1
	}
	if config.MaxOutputBytes <= 0 {
		config.MaxOutputBytes = 1 << 20
	}
	if config.MaxFileSizeBytes <= 0 {
		config.MaxFileSizeBytes = 10 << 20
	}

	config.applyEnv()
	return config, config.validate()
}

func (c *Config) applyEnv() {
	if root := strings.TrimSpace(os.Getenv("CODESTORM_WORKSPACE_ROOT")); root != "" {
		c.WorkspaceRoot = root
	}
	if host := strings.TrimSpace(os.Getenv("CODESTORM_HOST")); host != "" {
		c.Host = host
	}
	if port := strings.TrimSpace(os.Getenv("CODESTORM_PORT")); port != "" {
		if p, err := strconv.Atoi(port); err == nil && p > 0 {
			c.Port = p
		}
	}
	if level := strings.TrimSpace(os.Getenv("CODESTORM_LOG_LEVEL")); level != "" {
		c.LogLevel = level
	}
}

func (c *Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.DefaultTimeout > c.MaxTimeout {
		return fmt.Errorf("default timeout %ds exceeds max timeout %ds", c.DefaultTimeout, c.MaxTimeout)
	}
	return nil
}

// Save writes the configuration to a file
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Addr returns the listen address in host:port form
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
