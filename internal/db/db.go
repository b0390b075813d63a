// Package db opens the per-workspace sqlite state backing the optional
// task store and its event trail.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const stateDir = ".logline"

type Config struct {
	Workspace string
}

// Path returns the database file for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, stateDir, "logline.db")
}

// EnsureWorkspace creates the hidden state directory if missing.
func EnsureWorkspace(workspace string) (string, error) {
	dir := filepath.Dir(Path(workspace))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// Open prepares the workspace state directory and opens the database with
// foreign keys on.
func Open(cfg Config) (*sql.DB, error) {
	if _, err := EnsureWorkspace(cfg.Workspace); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=foreign_keys(1)", Path(cfg.Workspace))
	return sql.Open("sqlite", dsn)
}
