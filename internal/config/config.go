// Package config manages the workspace registry: named Notion
// workspaces, their integration tokens, and where each index database
// lives on disk.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	configDirName  = ".notora"
	configFileName = "config.yaml"

	// EnvToken overrides the workspace token when set.
	EnvToken = "NOTION_TOKEN"
	// EnvConfigDir relocates the config directory, mainly for tests.
	EnvConfigDir = "NOTORA_CONFIG_DIR"
)

// Workspace is one registered Notion workspace.
type Workspace struct {
	Token       string `yaml:"token"`
	DBPath      string `yaml:"db_path"`
	Description string `yaml:"description,omitempty"`
}

// Config is the on-disk registry shape.
type Config struct {
	Workspaces       map[string]Workspace `yaml:"workspaces"`
	DefaultWorkspace string               `yaml:"default_workspace,omitempty"`
}

// NewConfig creates an empty registry.
func NewConfig() *Config {
	return &Config{Workspaces: make(map[string]Workspace)}
}

// Dir returns the directory holding the registry and job state.
func Dir() string {
	if dir := os.Getenv(EnvConfigDir); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), configDirName)
	}
	return filepath.Join(home, configDirName)
}

// Path returns the registry file path.
func Path() string {
	return filepath.Join(Dir(), configFileName)
}

// JobsDir returns where job status records are kept.
func JobsDir() string {
	return filepath.Join(Dir(), "jobs")
}

// LogsDir returns where run logs are written.
func LogsDir() string {
	return filepath.Join(Dir(), "logs")
}

// DefaultDBPath returns the index database location for a workspace
// that did not configure its own.
func DefaultDBPath(workspace string) string {
	return filepath.Join(Dir(), "indexes", workspace+".db")
}

// Load reads the registry from disk. A missing file yields an empty
// registry rather than an error.
func Load() (*Config, error) {
	return LoadFrom(Path())
}

// LoadFrom reads the registry from an explicit path.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewConfig(), nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := NewConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.Workspaces == nil {
		cfg.Workspaces = make(map[string]Workspace)
	}
	return cfg, nil
}

// Save writes the registry atomically: marshal to a temp file in the
// same directory, then rename over the target.
func (c *Config) Save() error {
	return c.SaveTo(Path())
}

// SaveTo writes the registry to an explicit path.
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("commit config: %w", err)
	}
	return nil
}

// Add registers or replaces a workspace. The first workspace added
// becomes the default.
func (c *Config) Add(name string, ws Workspace) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("workspace name is required")
	}
	if strings.TrimSpace(ws.Token) == "" {
		return fmt.Errorf("workspace %s: token is required", name)
	}
	if ws.DBPath == "" {
		ws.DBPath = DefaultDBPath(name)
	}
	c.Workspaces[name] = ws
	if c.DefaultWorkspace == "" {
		c.DefaultWorkspace = name
	}
	return nil
}

// Remove drops a workspace from the registry. Removing the default
// clears the default selection.
func (c *Config) Remove(name string) error {
	if _, ok := c.Workspaces[name]; !ok {
		return fmt.Errorf("unknown workspace %s", name)
	}
	delete(c.Workspaces, name)
	if c.DefaultWorkspace == name {
		c.DefaultWorkspace = ""
		for _, n := range c.Names() {
			c.DefaultWorkspace = n
			break
		}
	}
	return nil
}

// Names lists registered workspace names sorted alphabetically.
func (c *Config) Names() []string {
	names := make([]string, 0, len(c.Workspaces))
	for name := range c.Workspaces {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve picks the workspace to operate on: the named one, or the
// default when name is empty. The NOTION_TOKEN env var overrides the
// stored token either way.
func (c *Config) Resolve(name string) (string, Workspace, error) {
	if name == "" {
		name = c.DefaultWorkspace
	}
	if name == "" {
		return "", Workspace{}, fmt.Errorf("no workspace configured; run `notora config add` first")
	}
	ws, ok := c.Workspaces[name]
	if !ok {
		return "", Workspace{}, fmt.Errorf("unknown workspace %s", name)
	}
	if token := os.Getenv(EnvToken); token != "" {
		ws.Token = token
	}
	return name, ws, nil
}
