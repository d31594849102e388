// Package config loads the hook's TOML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// EnvConfigPath names the environment variable that points at the hook
// config file when the --config flag is not given
const EnvConfigPath = "TRAC_HOOK_CONFIG"

// Config holds every recognized hook option. All options are explicit
// fields; nothing is read from process-wide mutable state.
type Config struct {
	// TracEnv is the path to the Trac environment (trac-admin initenv)
	TracEnv string `toml:"trac_env"`
	// GitDir is the repository to query; defaults to $GIT_DIR, then "."
	GitDir string `toml:"git_dir"`
	// GitPath points at a git executable. When set, commit listing and
	// message formatting shell out to it; when empty the in-process
	// backend is used.
	GitPath string `toml:"git_path"`

	// RepostSeen reposts commits already recorded in the ledger
	// (useful for replay and testing)
	RepostSeen bool `toml:"repost_seen"`
	// PostComment controls whether comments are actually posted
	PostComment bool `toml:"post_comment"`
	// Verbose enables debug output on stderr
	Verbose bool `toml:"verbose"`

	// DefaultTicket receives commits on branches with no ticket
	// association
	DefaultTicket int `toml:"default_ticket"`
	// PrettyFormat is the git pretty-print template for commit messages
	PrettyFormat string `toml:"pretty_format"`
	// Author is the synthetic identity comments are posted under
	Author string `toml:"author"`
	// Separator joins batched messages within one ticket comment
	Separator string `toml:"separator"`

	// Database overrides the connection string from the Trac
	// environment, same "sqlite:..."/"postgres://..." syntax as trac.ini
	Database string `toml:"database"`

	Notification NotificationConfig `toml:"notification"`
}

// NotificationConfig overrides the [notification] section of trac.ini
type NotificationConfig struct {
	// Enabled overrides smtp_enabled when set
	Enabled    *bool  `toml:"enabled"`
	SMTPServer string `toml:"smtp_server"`
	SMTPPort   int    `toml:"smtp_port"`
	SMTPFrom   string `toml:"smtp_from"`
}

// DefaultConfig returns the configuration used before the TOML file is
// applied on top
func DefaultConfig() *Config {
	gitDir := os.Getenv("GIT_DIR")
	if gitDir == "" {
		gitDir = "."
	}
	return &Config{
		GitDir:        gitDir,
		PostComment:   true,
		DefaultTicket: 1,
		PrettyFormat:  "%s%n%n%b",
		Author:        "the wire",
		Separator:     "\n----\n",
	}
}

// Load reads the config file at path, falling back to $TRAC_HOOK_CONFIG
// and then "hook.toml" in the working directory
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path == "" {
		path = "hook.toml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.TracEnv == "" {
		return fmt.Errorf("trac_env must be set")
	}
	if c.DefaultTicket <= 0 {
		return fmt.Errorf("default_ticket must be a positive ticket id, got %d", c.DefaultTicket)
	}
	if c.PrettyFormat == "" {
		return fmt.Errorf("pretty_format must not be empty")
	}
	return nil
}

// TracEnvPath returns the Trac environment path with a leading tilde
// expanded
func (c *Config) TracEnvPath() string {
	return expandTilde(c.TracEnv)
}

func expandTilde(path string) string {
	if len(path) >= 2 && path[:2] == "~/" {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
