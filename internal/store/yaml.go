package store

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"logline/internal/domain"
)

// Repository persists the task collection. The engine loads the whole
// collection at the start of a run and saves it back before touching the
// inbox document.
type Repository interface {
	Load(ctx context.Context) ([]domain.Task, error)
	Save(ctx context.Context, tasks []domain.Task) error
}

// FileRepository keeps tasks in a single YAML file (todos/tasks.yaml).
type FileRepository struct {
	Path string
}

func (r FileRepository) Load(ctx context.Context) ([]domain.Task, error) {
	data, err := os.ReadFile(r.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	text := strings.TrimSpace(string(data))
	if text == "" || text == "[]" {
		return nil, nil
	}
	var tasks []domain.Task
	if err := yaml.Unmarshal(data, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r FileRepository) Save(ctx context.Context, tasks []domain.Task) error {
	if err := os.MkdirAll(filepath.Dir(r.Path), 0o755); err != nil {
		return err
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}
	data, err := yaml.Marshal(tasks)
	if err != nil {
		return err
	}
	return os.WriteFile(r.Path, data, 0o644)
}
