package store

import (
	"fmt"
	"strings"
	"time"

	"logline/internal/domain"
)

// Store is the in-memory task collection and the sole owner of task
// records during a run. Persistence is delegated to a Repository.
type Store struct {
	tasks           []domain.Task
	DefaultPriority int
	Now             func() time.Time
}

func New(defaultPriority int) *Store {
	return &Store{DefaultPriority: defaultPriority, Now: time.Now}
}

func (s *Store) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// SetTasks replaces the collection, typically with freshly loaded records.
func (s *Store) SetTasks(tasks []domain.Task) {
	s.tasks = tasks
}

// Tasks returns the records in store order.
func (s *Store) Tasks() []domain.Task {
	out := make([]domain.Task, len(s.tasks))
	copy(out, s.tasks)
	return out
}

func (s *Store) Len() int { return len(s.tasks) }

// NewID derives a task id from the wall clock with sub-second precision.
// Collisions are treated as acceptably rare, not actively prevented.
func (s *Store) NewID(now time.Time) string {
	return fmt.Sprintf("%s-%06d", now.Format("20060102-1504"), now.Nanosecond()/1000)
}

// Add creates a new open task. A missing priority is stamped with the
// configured default.
func (s *Store) Add(title string, tags []string, due string, priority *int) domain.Task {
	now := s.now()
	ts := now.Format(domain.DateTimeLayout)
	if priority == nil {
		p := s.DefaultPriority
		priority = &p
	}
	t := domain.Task{
		ID:        s.NewID(now),
		Title:     title,
		Status:    domain.StatusOpen,
		CreatedAt: ts,
		UpdatedAt: ts,
		Due:       due,
		Tags:      tags,
		Priority:  priority,
	}
	s.tasks = append(s.tasks, t)
	return t
}

// FindByTitle matches by exact trimmed title first, then falls back to the
// first task whose title contains the string, in store order. This is a
// heuristic, not a key lookup: near-duplicate titles may match the wrong
// task.
func (s *Store) FindByTitle(title string) (*domain.Task, bool) {
	norm := strings.TrimSpace(title)
	if norm == "" {
		return nil, false
	}
	for i := range s.tasks {
		if strings.TrimSpace(s.tasks[i].Title) == norm {
			return &s.tasks[i], true
		}
	}
	for i := range s.tasks {
		if strings.Contains(s.tasks[i].Title, norm) {
			return &s.tasks[i], true
		}
	}
	return nil, false
}

// Get returns the task with the given id.
func (s *Store) Get(id string) (*domain.Task, bool) {
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			return &s.tasks[i], true
		}
	}
	return nil, false
}

// CompleteOrCreate marks the matching task done, unioning tags, filling due
// only when empty and overwriting priority when given. With no match it
// creates the task directly in done status, its id carrying a
// distinguishing suffix. The returned flag is true when a new record was
// created.
func (s *Store) CompleteOrCreate(title string, tags []string, due string, priority *int) (domain.Task, bool) {
	now := s.now()
	ts := now.Format(domain.DateTimeLayout)
	if t, ok := s.FindByTitle(title); ok {
		t.Status = domain.StatusDone
		t.Tags = unionTags(t.Tags, tags)
		if due != "" && t.Due == "" {
			t.Due = due
		}
		if priority != nil {
			t.Priority = priority
		}
		t.UpdatedAt = ts
		return *t, false
	}
	t := domain.Task{
		ID:        s.NewID(now) + "-done",
		Title:     title,
		Status:    domain.StatusDone,
		CreatedAt: ts,
		UpdatedAt: ts,
		Due:       due,
		Tags:      tags,
		Priority:  priority,
	}
	s.tasks = append(s.tasks, t)
	return t, true
}

// Remove deletes the record unconditionally. Callers enforce the
// done/canceled-only rule for DROP-zone deletion before calling this.
func (s *Store) Remove(id string) bool {
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
			return true
		}
	}
	return false
}

// Touch refreshes the task's updated_at stamp.
func (s *Store) Touch(t *domain.Task) {
	t.UpdatedAt = s.now().Format(domain.DateTimeLayout)
}

// unionTags merges add into base preserving insertion order.
func unionTags(base, add []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(base)+len(add))
	for _, t := range base {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	for _, t := range add {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}
