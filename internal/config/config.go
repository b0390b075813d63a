package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Sort modes for the rendered TODO LIST.
const (
	SortPriority  = "priority"
	SortCreatedAt = "created_at"
	SortTag       = "tag"
)

// Store backends.
const (
	StoreYAML   = "yaml"
	StoreSQLite = "sqlite"
)

// Config models logline.yml.
type Config struct {
	SortMode        string `yaml:"sort_mode"`
	TagIndex        int    `yaml:"tag_index"`
	DefaultPriority int    `yaml:"default_priority"`
	Store           string `yaml:"store"`
	Paths           struct {
		Inbox  string `yaml:"inbox"`
		Logs   string `yaml:"logs"`
		Todos  string `yaml:"todos"`
		Latest string `yaml:"latest"`
	} `yaml:"paths"`
}

// Paths holds the resolved per-run file locations.
type Paths struct {
	Workspace  string
	InboxFile  string
	LogsDir    string
	TasksFile  string
	TodoFile   string
	LatestFile string
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "logline.yml")
}

// Default returns the built-in configuration.
func Default() *Config {
	var cfg Config
	cfg.SortMode = SortPriority
	cfg.TagIndex = 0
	cfg.DefaultPriority = 5
	cfg.Store = StoreYAML
	cfg.Paths.Inbox = filepath.Join("inbox", "current.md")
	cfg.Paths.Logs = "logs"
	cfg.Paths.Todos = "todos"
	cfg.Paths.Latest = "latest.md"
	return &cfg
}

// Load reads logline.yml from the workspace. A missing or malformed file is
// never fatal: the built-in defaults are returned instead.
func Load(workspace string) *Config {
	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		return Default()
	}
	return FromYAML(data)
}

// FromYAML parses config bytes, falling back to defaults field by field.
func FromYAML(data []byte) *Config {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return Default()
	}
	cfg.normalize()
	return cfg
}

func (c *Config) normalize() {
	switch c.SortMode {
	case SortPriority, SortCreatedAt, SortTag:
	default:
		c.SortMode = SortPriority
	}
	if c.DefaultPriority < 1 || c.DefaultPriority > 9 {
		c.DefaultPriority = Default().DefaultPriority
	}
	if c.TagIndex < 0 {
		c.TagIndex = 0
	}
	switch c.Store {
	case StoreYAML, StoreSQLite:
	default:
		c.Store = StoreYAML
	}
	d := Default()
	if c.Paths.Inbox == "" {
		c.Paths.Inbox = d.Paths.Inbox
	}
	if c.Paths.Logs == "" {
		c.Paths.Logs = d.Paths.Logs
	}
	if c.Paths.Todos == "" {
		c.Paths.Todos = d.Paths.Todos
	}
	if c.Paths.Latest == "" {
		c.Paths.Latest = d.Paths.Latest
	}
}

// Resolve anchors the configured relative paths in the workspace.
func (c *Config) Resolve(workspace string) Paths {
	if workspace == "" {
		workspace = "."
	}
	return Paths{
		Workspace:  workspace,
		InboxFile:  filepath.Join(workspace, c.Paths.Inbox),
		LogsDir:    filepath.Join(workspace, c.Paths.Logs),
		TasksFile:  filepath.Join(workspace, c.Paths.Todos, "tasks.yaml"),
		TodoFile:   filepath.Join(workspace, c.Paths.Todos, "todo.md"),
		LatestFile: filepath.Join(workspace, c.Paths.Latest),
	}
}

// GenerateDefault returns the logline.yml template written by `ll init`.
func GenerateDefault() string {
	d := Default()
	return fmt.Sprintf(`# logline configuration
sort_mode: %s        # priority | created_at | tag
tag_index: %d              # tag position used by sort_mode: tag
default_priority: %d       # 1 (urgent) .. 9, used when a task has none
store: %s               # yaml | sqlite

paths:
  inbox: %s
  logs: %s
  todos: %s
  latest: %s
`, d.SortMode, d.TagIndex, d.DefaultPriority, d.Store,
		d.Paths.Inbox, d.Paths.Logs, d.Paths.Todos, d.Paths.Latest)
}
