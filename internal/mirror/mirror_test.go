package mirror_test

import (
	"strings"
	"testing"
	"time"

	"logline/internal/config"
	"logline/internal/domain"
	"logline/internal/mirror"
	"logline/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s := store.New(5)
	s.Now = func() time.Time { return time.Date(2026, 1, 8, 11, 0, 0, 0, time.Local) }
	return s
}

func testRenderer() mirror.Renderer {
	return mirror.Renderer{SortMode: config.SortPriority, TagIndex: 0, DefaultPriority: 5}
}

func seed(s *store.Store, tasks ...domain.Task) {
	s.SetTasks(tasks)
}

func intp(v int) *int { return &v }

func TestRenderParseFixedPoint(t *testing.T) {
	s := newTestStore(t)
	seed(s,
		domain.Task{ID: "a1", Title: "open one", Status: domain.StatusOpen,
			CreatedAt: "2026-01-01 09:00", UpdatedAt: "2026-01-01 09:00",
			Tags: []string{"work", "q1"}, Due: "2026-01-20", Priority: intp(2)},
		domain.Task{ID: "a2", Title: "done one", Status: domain.StatusDone,
			CreatedAt: "2026-01-02 09:00", UpdatedAt: "2026-01-03 09:00"},
		domain.Task{ID: "a3", Title: "gone one", Status: domain.StatusCanceled,
			CreatedAt: "2026-01-03 09:00", UpdatedAt: "2026-01-04 09:00", Priority: intp(7)},
	)
	before := s.Tasks()

	doc := "# Inbox\n\n" + testRenderer().Section(before) + "\n"
	events := mirror.Reconciler{Store: s}.Apply(doc)
	if len(events) != 0 {
		t.Fatalf("re-parsing rendered output must be silent, got %v", events)
	}
	after := s.Tasks()
	if len(after) != len(before) {
		t.Fatalf("task count changed: %d -> %d", len(before), len(after))
	}
	for i := range before {
		if !tasksEqual(before[i], after[i]) {
			t.Fatalf("task %s drifted:\nbefore %+v\nafter  %+v", before[i].ID, before[i], after[i])
		}
	}
}

func TestReconcileMarkerDrivesStatus(t *testing.T) {
	s := newTestStore(t)
	seed(s,
		domain.Task{ID: "t1", Title: "task one", Status: domain.StatusOpen, CreatedAt: "2026-01-01 09:00", UpdatedAt: "2026-01-01 09:00"},
		domain.Task{ID: "t2", Title: "task two", Status: domain.StatusDone, CreatedAt: "2026-01-01 09:00", UpdatedAt: "2026-01-01 09:00"},
		domain.Task{ID: "t3", Title: "task three", Status: domain.StatusOpen, CreatedAt: "2026-01-01 09:00", UpdatedAt: "2026-01-01 09:00"},
	)
	doc := strings.Join([]string{
		"# Inbox", "",
		"## TODO LIST", "",
		"### TODO", "",
		"- [v] task one (id:t1)", // marker says done even though it sits in TODO
		"", "### DONE", "",
		"- [ ] task two (id:t2)", // dragged back: silent reopen
		"", "### DELETE", "",
		"- [x] task three (id:t3)",
		"- [x] phantom (id:missing)", // unknown ids are ignored
		"", "### DROP", "",
		"- [ ] (placeholder)", "",
	}, "\n")

	events := mirror.Reconciler{Store: s}.Apply(doc)
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %v", events)
	}
	if !strings.Contains(events[0], "TODO completed:") || !strings.Contains(events[0], "task one") {
		t.Fatalf("event 0: %q", events[0])
	}
	if !strings.Contains(events[1], "TODO deleted:") || !strings.Contains(events[1], "task three") {
		t.Fatalf("event 1: %q", events[1])
	}

	get := func(id string) domain.Task {
		task, ok := s.Get(id)
		if !ok {
			t.Fatalf("task %s missing", id)
		}
		return *task
	}
	if get("t1").Status != domain.StatusDone {
		t.Fatal("t1 should be done")
	}
	if get("t2").Status != domain.StatusOpen {
		t.Fatal("t2 should reopen silently")
	}
	if get("t3").Status != domain.StatusCanceled {
		t.Fatal("t3 should be canceled")
	}
	if get("t2").UpdatedAt != "2026-01-08 11:00" {
		t.Fatalf("updated_at not stamped: %s", get("t2").UpdatedAt)
	}
}

func TestReconcileDropSafety(t *testing.T) {
	s := newTestStore(t)
	seed(s,
		domain.Task{ID: "d1", Title: "finished", Status: domain.StatusDone, CreatedAt: "2026-01-01 09:00", UpdatedAt: "2026-01-01 09:00"},
		domain.Task{ID: "d2", Title: "canceled", Status: domain.StatusCanceled, CreatedAt: "2026-01-01 09:00", UpdatedAt: "2026-01-01 09:00"},
		domain.Task{ID: "d3", Title: "still open", Status: domain.StatusOpen, CreatedAt: "2026-01-01 09:00", UpdatedAt: "2026-01-01 09:00"},
	)
	doc := strings.Join([]string{
		"## TODO LIST", "",
		"### DROP", "",
		"- [v] finished (id:d1)",
		"- [x] canceled (id:d2)",
		"- [ ] still open (id:d3)", "",
	}, "\n")

	events := mirror.Reconciler{Store: s}.Apply(doc)
	if len(events) != 2 {
		t.Fatalf("expected 2 drop events, got %v", events)
	}
	// each event carries the dropped task's own title, including when the
	// task was not last in the store at removal time
	if !strings.Contains(events[0], `TODO dropped: "finished" (id:d1)`) {
		t.Fatalf("event 0: %q", events[0])
	}
	if !strings.Contains(events[1], `TODO dropped: "canceled" (id:d2)`) {
		t.Fatalf("event 1: %q", events[1])
	}
	if _, ok := s.Get("d1"); ok {
		t.Fatal("done task should be hard-deleted from DROP")
	}
	if _, ok := s.Get("d2"); ok {
		t.Fatal("canceled task should be hard-deleted from DROP")
	}
	if _, ok := s.Get("d3"); !ok {
		t.Fatal("open tasks are never removable via DROP")
	}
}

func TestReconcileInlineOverrides(t *testing.T) {
	s := newTestStore(t)
	seed(s, domain.Task{
		ID: "o1", Title: "tune cache", Status: domain.StatusOpen,
		CreatedAt: "2026-01-01 09:00", UpdatedAt: "2026-01-01 09:00",
		Tags: []string{"perf", "backend"}, Due: "2026-01-10", Priority: intp(6),
	})
	doc := strings.Join([]string{
		"## TODO LIST", "",
		"### TODO", "",
		"- [ ] {2} tune cache (@perf, due:2026-02-15) (id:o1)", "",
	}, "\n")

	if events := (mirror.Reconciler{Store: s}).Apply(doc); len(events) != 0 {
		t.Fatalf("field edits alone emit no events, got %v", events)
	}
	task, _ := s.Get("o1")
	if task.Priority == nil || *task.Priority != 2 {
		t.Fatalf("priority: %v", task.Priority)
	}
	if len(task.Tags) != 1 || task.Tags[0] != "perf" {
		t.Fatalf("tags are replaced wholesale, got %v", task.Tags)
	}
	if task.Due != "2026-02-15" {
		t.Fatalf("due: %s", task.Due)
	}
	if task.UpdatedAt != "2026-01-08 11:00" {
		t.Fatalf("updated_at: %s", task.UpdatedAt)
	}
}

func TestSortStability(t *testing.T) {
	r := testRenderer()
	tasks := []domain.Task{
		{ID: "s1", Title: "beta", Status: domain.StatusOpen, CreatedAt: "2026-01-01 09:00", Priority: intp(3)},
		{ID: "s2", Title: "urgent", Status: domain.StatusOpen, CreatedAt: "2026-01-01 09:00", Priority: intp(1)},
		{ID: "s3", Title: "alpha", Status: domain.StatusOpen, CreatedAt: "2026-01-01 09:00", Priority: intp(3)},
	}
	got := r.Sorted(tasks)
	if got[0].Title != "urgent" || got[1].Title != "alpha" || got[2].Title != "beta" {
		t.Fatalf("order: %s, %s, %s", got[0].Title, got[1].Title, got[2].Title)
	}
}

func TestSortByTag(t *testing.T) {
	r := mirror.Renderer{SortMode: config.SortTag, TagIndex: 0, DefaultPriority: 5}
	tasks := []domain.Task{
		{ID: "g1", Title: "one", Status: domain.StatusOpen, CreatedAt: "2026-01-01 09:00", Tags: []string{"zeta"}},
		{ID: "g2", Title: "two", Status: domain.StatusOpen, CreatedAt: "2026-01-01 09:00", Tags: []string{"alpha"}},
	}
	got := r.Sorted(tasks)
	if got[0].ID != "g2" {
		t.Fatalf("tag sort order: %v", []string{got[0].ID, got[1].ID})
	}
}

func TestUpsertInsertsThenReplaces(t *testing.T) {
	r := testRenderer()
	tasks := []domain.Task{{ID: "u1", Title: "only task", Status: domain.StatusOpen, CreatedAt: "2026-01-01 09:00", Priority: intp(5)}}

	doc := "# Inbox\n\n## 2026-01-08\n\n### LOG\n"
	withMirror := r.Upsert(doc, tasks)
	if !strings.Contains(withMirror, "## TODO LIST") || !strings.Contains(withMirror, "(id:u1)") {
		t.Fatalf("mirror not inserted:\n%s", withMirror)
	}
	if !strings.HasPrefix(withMirror, "# Inbox\n\n## TODO LIST") {
		t.Fatalf("mirror must follow the title:\n%s", withMirror)
	}
	if !strings.Contains(withMirror, "## 2026-01-08") {
		t.Fatal("rest of document must be preserved")
	}

	// replacing in place is idempotent
	again := r.Upsert(withMirror, tasks)
	if again != withMirror {
		t.Fatalf("upsert not stable:\n--- first\n%s\n--- second\n%s", withMirror, again)
	}
	if strings.Count(again, "## TODO LIST") != 1 {
		t.Fatal("exactly one mirror section")
	}
}

func TestTodoFile(t *testing.T) {
	r := testRenderer()
	out := r.TodoFile([]domain.Task{
		{ID: "q1", Title: "open thing", Status: domain.StatusOpen, CreatedAt: "2026-01-01 09:00", Tags: []string{"a"}, Due: "2026-03-03"},
		{ID: "q2", Title: "done thing", Status: domain.StatusDone, CreatedAt: "2026-01-01 09:00"},
	})
	if !strings.Contains(out, "- [ ] open thing (@a, due:2026-03-03)") {
		t.Fatalf("open task missing:\n%s", out)
	}
	if strings.Contains(out, "done thing") {
		t.Fatalf("todo.md lists open tasks only:\n%s", out)
	}
	if empty := r.TodoFile(nil); !strings.Contains(empty, "_No open tasks._") {
		t.Fatalf("empty state:\n%s", empty)
	}
}

func tasksEqual(a, b domain.Task) bool {
	if a.ID != b.ID || a.Title != b.Title || a.Status != b.Status ||
		a.Due != b.Due || a.CreatedAt != b.CreatedAt || a.UpdatedAt != b.UpdatedAt {
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
