package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"logline/internal/domain"
)

// Repo is the sqlite-backed task repository. It satisfies the same
// Load/Save contract as the YAML file repository; additionally every
// mutation observed at save time is recorded in an append-only events
// table.
type Repo struct {
	DB  *sql.DB
	Now func() time.Time
}

var ErrNotFound = errors.New("not found")

func (r Repo) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// Load returns all tasks in stored order.
func (r Repo) Load(ctx context.Context) ([]domain.Task, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id,title,status,created_at,updated_at,COALESCE(due,''),tags_json,priority FROM tasks ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var tasks []domain.Task
	for rows.Next() {
		var t domain.Task
		var tagsJSON sql.NullString
		var priority sql.NullInt64
		if err := rows.Scan(&t.ID, &t.Title, &t.Status, &t.CreatedAt, &t.UpdatedAt, &t.Due, &tagsJSON, &priority); err != nil {
			return nil, err
		}
		if tagsJSON.Valid && tagsJSON.String != "" {
			if err := json.Unmarshal([]byte(tagsJSON.String), &t.Tags); err != nil {
				return nil, fmt.Errorf("tags for task %s: %w", t.ID, err)
			}
		}
		if priority.Valid {
			p := int(priority.Int64)
			t.Priority = &p
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// Get returns one task by id.
func (r Repo) Get(ctx context.Context, id string) (domain.Task, error) {
	tasks, err := r.Load(ctx)
	if err != nil {
		return domain.Task{}, err
	}
	for _, t := range tasks {
		if t.ID == id {
			return t, nil
		}
	}
	return domain.Task{}, ErrNotFound
}

// Save replaces the stored collection with tasks, diffing against the
// previous rows so that every insert, field change and deletion leaves an
// event row behind.
func (r Repo) Save(ctx context.Context, tasks []domain.Task) error {
	previous, err := r.Load(ctx)
	if err != nil {
		return err
	}
	old := make(map[string]domain.Task, len(previous))
	for _, t := range previous {
		old[t.ID] = t
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	seen := map[string]bool{}
	for pos, t := range tasks {
		seen[t.ID] = true
		prev, existed := old[t.ID]
		if err := r.upsertTask(ctx, tx, t, pos); err != nil {
			return err
		}
		if !existed {
			if err := r.appendEvent(ctx, tx, "task.added", t.ID, eventPayload{
				"title": t.Title, "status": t.Status,
			}); err != nil {
				return err
			}
		} else if !taskEqual(prev, t) {
			if err := r.appendEvent(ctx, tx, "task.updated", t.ID, eventPayload{
				"from_status": prev.Status, "to_status": t.Status,
			}); err != nil {
				return err
			}
		}
	}
	for id, prev := range old {
		if seen[id] {
			continue
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id=?`, id); err != nil {
			return err
		}
		if err := r.appendEvent(ctx, tx, "task.removed", id, eventPayload{
			"title": prev.Title, "status": prev.Status,
		}); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r Repo) upsertTask(ctx context.Context, tx *sql.Tx, t domain.Task, pos int) error {
	tagsJSON, err := marshalTags(t.Tags)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO tasks(id,title,status,created_at,updated_at,due,tags_json,priority,position)
		VALUES (?,?,?,?,?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET
			title=excluded.title, status=excluded.status, created_at=excluded.created_at,
			updated_at=excluded.updated_at, due=excluded.due, tags_json=excluded.tags_json,
			priority=excluded.priority, position=excluded.position`,
		t.ID, t.Title, t.Status, t.CreatedAt, t.UpdatedAt, nullable(t.Due), tagsJSON, nullableInt(t.Priority), pos)
	return err
}

type eventPayload map[string]any

func (r Repo) appendEvent(ctx context.Context, tx *sql.Tx, evtType, taskID string, payload eventPayload) error {
	if payload == nil {
		payload = eventPayload{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	ts := r.now().UTC().Format(time.RFC3339)
	_, err = tx.ExecContext(ctx, `INSERT INTO events(id,ts,type,task_id,payload_json) VALUES (?,?,?,?,?)`,
		uuid.New().String(), ts, evtType, taskID, string(data))
	return err
}

// Event is one append-only trail row.
type Event struct {
	ID      string `json:"id"`
	TS      string `json:"ts"`
	Type    string `json:"type"`
	TaskID  string `json:"task_id"`
	Payload string `json:"payload_json"`
}

// LatestEvents returns up to n trail rows, newest first.
func (r Repo) LatestEvents(ctx context.Context, n int) ([]Event, error) {
	if n <= 0 {
		n = 20
	}
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id,ts,type,task_id,payload_json FROM events ORDER BY ts DESC, id LIMIT ?`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var events []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &e.TaskID, &e.Payload); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func taskEqual(a, b domain.Task) bool {
	if a.Title != b.Title || a.Status != b.Status || a.Due != b.Due ||
		a.CreatedAt != b.CreatedAt || a.UpdatedAt != b.UpdatedAt {
		return false
	}
	if (a.Priority == nil) != (b.Priority == nil) {
		return false
	}
	if a.Priority != nil && *a.Priority != *b.Priority {
		return false
	}
	if len(a.Tags) != len(b.Tags) {
		return false
	}
	for i := range a.Tags {
		if a.Tags[i] != b.Tags[i] {
			return false
		}
	}
	return true
}

func marshalTags(tags []string) (any, error) {
	if len(tags) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}
