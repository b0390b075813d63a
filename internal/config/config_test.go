package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"logline/internal/config"
)

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg := config.Load(t.TempDir())
	if cfg.SortMode != config.SortPriority || cfg.DefaultPriority != 5 {
		t.Fatalf("defaults: %+v", cfg)
	}
	if cfg.Store != config.StoreYAML {
		t.Fatalf("store: %s", cfg.Store)
	}
	if cfg.Paths.Inbox != filepath.Join("inbox", "current.md") {
		t.Fatalf("inbox path: %s", cfg.Paths.Inbox)
	}
}

func TestLoadMalformedFileFallsBackToDefaults(t *testing.T) {
	workspace := t.TempDir()
	if err := os.WriteFile(config.Path(workspace), []byte("sort_mode: [not\n  closed"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := config.Load(workspace)
	if cfg.SortMode != config.SortPriority || cfg.DefaultPriority != 5 {
		t.Fatalf("malformed config must yield defaults, got %+v", cfg)
	}
}

func TestFromYAMLNormalizes(t *testing.T) {
	cfg := config.FromYAML([]byte("sort_mode: alphabetical\ndefault_priority: 12\ntag_index: -3\nstore: redis\n"))
	if cfg.SortMode != config.SortPriority {
		t.Fatalf("sort_mode: %s", cfg.SortMode)
	}
	if cfg.DefaultPriority != 5 {
		t.Fatalf("default_priority: %d", cfg.DefaultPriority)
	}
	if cfg.TagIndex != 0 {
		t.Fatalf("tag_index: %d", cfg.TagIndex)
	}
	if cfg.Store != config.StoreYAML {
		t.Fatalf("store: %s", cfg.Store)
	}
}

func TestFromYAMLPartialOverride(t *testing.T) {
	cfg := config.FromYAML([]byte("sort_mode: tag\ntag_index: 1\npaths:\n  logs: archive\n"))
	if cfg.SortMode != config.SortTag || cfg.TagIndex != 1 {
		t.Fatalf("got %+v", cfg)
	}
	if cfg.Paths.Logs != "archive" {
		t.Fatalf("logs path: %s", cfg.Paths.Logs)
	}
	// untouched fields keep their defaults
	if cfg.Paths.Latest != "latest.md" || cfg.DefaultPriority != 5 {
		t.Fatalf("got %+v", cfg)
	}
}

func TestResolveAnchorsInWorkspace(t *testing.T) {
	paths := config.Default().Resolve("/data/journal")
	if paths.InboxFile != filepath.Join("/data/journal", "inbox", "current.md") {
		t.Fatalf("inbox: %s", paths.InboxFile)
	}
	if paths.TasksFile != filepath.Join("/data/journal", "todos", "tasks.yaml") {
		t.Fatalf("tasks: %s", paths.TasksFile)
	}
	if paths.TodoFile != filepath.Join("/data/journal", "todos", "todo.md") {
		t.Fatalf("todo: %s", paths.TodoFile)
	}
	if paths.LatestFile != filepath.Join("/data/journal", "latest.md") {
		t.Fatalf("latest: %s", paths.LatestFile)
	}
}

func TestGenerateDefaultRoundTrips(t *testing.T) {
	cfg := config.FromYAML([]byte(config.GenerateDefault()))
	want := config.Default()
	if *cfg != *want {
		t.Fatalf("template drifted:\n got %+v\nwant %+v", cfg, want)
	}
}
