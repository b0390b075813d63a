package mirror

import (
	"sort"
	"strings"

	"logline/internal/config"
	"logline/internal/domain"
	"logline/internal/inbox"
)

// Renderer regenerates the mirror section and the open-task quick list
// from current store state. Rendering the post-reconciliation store yields
// text that parses back to the identical store (the round-trip fixed
// point).
type Renderer struct {
	SortMode        string
	TagIndex        int
	DefaultPriority int
}

// Section renders the full mirror section: the four zones in fixed order.
// DROP is always an instructional placeholder, never a live listing.
func (r Renderer) Section(tasks []domain.Task) string {
	var open, done, deleted []domain.Task
	for _, t := range tasks {
		switch t.Status {
		case domain.StatusOpen:
			open = append(open, t)
		case domain.StatusDone:
			done = append(done, t)
		case domain.StatusCanceled:
			deleted = append(deleted, t)
		}
	}

	lines := []string{Header, ""}
	zone := func(name, placeholder string, group []domain.Task) {
		lines = append(lines, "### "+name, "")
		if len(group) == 0 {
			lines = append(lines, placeholder)
		} else {
			for _, t := range r.Sorted(group) {
				lines = append(lines, inbox.FormatMirrorLine(t))
			}
		}
		lines = append(lines, "")
	}
	zone(ZoneTodo, "- [ ] (no open tasks)", open)
	zone(ZoneDone, "- [ ] (no finished tasks)", done)
	zone(ZoneDelete, "- [ ] (nothing deleted)", deleted)
	lines = append(lines, "### "+ZoneDrop, "",
		"- [ ] (move items from DONE or DELETE here to remove them permanently)", "")
	return strings.Join(lines, "\n")
}

// Upsert inserts the mirror section after a leading top-level title when it
// does not exist yet, or replaces the previous occurrence in place. The
// rest of the document is preserved verbatim.
func (r Renderer) Upsert(text string, tasks []domain.Task) string {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	if text == "" {
		lines = nil
	}
	section := strings.Split(r.Section(tasks), "\n")

	start, end, ok := sectionBounds(lines)
	if !ok {
		insertAt := 0
		if len(lines) > 0 && strings.HasPrefix(lines[0], "# ") {
			insertAt = 1
			if len(lines) > 1 && strings.TrimSpace(lines[1]) == "" {
				insertAt = 2
			}
		}
		merged := append([]string{}, lines[:insertAt]...)
		merged = append(merged, section...)
		merged = append(merged, "")
		merged = append(merged, lines[insertAt:]...)
		return joinLines(merged)
	}

	merged := append([]string{}, lines[:start]...)
	merged = append(merged, section...)
	merged = append(merged, "")
	merged = append(merged, lines[end:]...)
	return joinLines(merged)
}

// TodoFile renders todos/todo.md: a read-only listing of open tasks.
func (r Renderer) TodoFile(tasks []domain.Task) string {
	lines := []string{"# Open tasks", ""}
	var open []domain.Task
	for _, t := range tasks {
		if t.Status == domain.StatusOpen {
			open = append(open, t)
		}
	}
	if len(open) == 0 {
		lines = append(lines, "_No open tasks._")
	} else {
		for _, t := range r.Sorted(open) {
			line := "- [ ] " + t.Title
			var meta []string
			if len(t.Tags) > 0 {
				meta = append(meta, "@"+strings.Join(t.Tags, ",@"))
			}
			if t.Due != "" {
				meta = append(meta, "due:"+t.Due)
			}
			if len(meta) > 0 {
				line += " (" + strings.Join(meta, ", ") + ")"
			}
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n") + "\n"
}

// Sorted orders tasks by the configured policy. The sort is stable; ties
// always fall back to creation time, then title.
func (r Renderer) Sorted(tasks []domain.Task) []domain.Task {
	out := make([]domain.Task, len(tasks))
	copy(out, tasks)
	less := func(a, b domain.Task) bool {
		switch r.SortMode {
		case config.SortCreatedAt:
			if a.CreatedAt != b.CreatedAt {
				return a.CreatedAt < b.CreatedAt
			}
		case config.SortTag:
			if at, bt := a.TagAt(r.TagIndex), b.TagAt(r.TagIndex); at != bt {
				return at < bt
			}
			fallthrough
		default: // priority
			if ap, bp := a.PriorityOr(r.DefaultPriority), b.PriorityOr(r.DefaultPriority); ap != bp {
				return ap < bp
			}
			if a.CreatedAt != b.CreatedAt {
				return a.CreatedAt < b.CreatedAt
			}
		}
		return a.Title < b.Title
	}
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func joinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}
