package mirror

import (
	"strings"

	"logline/internal/domain"
	"logline/internal/inbox"
	"logline/internal/logbook"
	"logline/internal/store"
)

// Header opens the mirror section of the inbox document.
const Header = "## TODO LIST"

// Mirror zones, in rendered order.
const (
	ZoneTodo   = "TODO"
	ZoneDone   = "DONE"
	ZoneDelete = "DELETE"
	ZoneDrop   = "DROP"
)

// IsHeader matches the mirror section header, case-insensitively.
func IsHeader(line string) bool {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "##") {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(trimmed[2:]), "TODO LIST")
}

// sectionBounds returns the [start,end) line span of the mirror section:
// from its header to the next major header.
func sectionBounds(lines []string) (int, int, bool) {
	start := -1
	for i, line := range lines {
		if IsHeader(line) {
			start = i
			break
		}
	}
	if start < 0 {
		return 0, 0, false
	}
	end := len(lines)
	for j := start + 1; j < len(lines); j++ {
		if strings.HasPrefix(lines[j], "## ") && !IsHeader(lines[j]) {
			end = j
			break
		}
	}
	return start, end, true
}

// Reconciler folds user edits made in the mirror section back into the
// store. The document never owns task state; it only proposes changes.
type Reconciler struct {
	Store *store.Store
}

// Apply scans the mirror section of text and applies status and field
// edits. It returns the archive event lines for the transitions it made,
// in the order the ids were encountered.
func (r Reconciler) Apply(text string) []string {
	lines := strings.Split(text, "\n")
	start, end, ok := sectionBounds(lines)
	if !ok {
		return nil
	}

	var events []string
	zone := ""
	for _, line := range lines[start+1 : end] {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "### ") {
			name := strings.ToUpper(strings.TrimSpace(trimmed[4:]))
			switch name {
			case ZoneTodo, ZoneDone, ZoneDelete, ZoneDrop:
				zone = name
			default:
				zone = ""
			}
			continue
		}
		if trimmed == "" || zone == "" {
			continue
		}
		item, ok := inbox.ParseMirrorLine(trimmed)
		if !ok {
			continue
		}
		t, ok := r.Store.Get(item.ID)
		if !ok {
			continue // unknown ids are ignored
		}

		if zone == ZoneDrop {
			// Hard delete, only ever from done/canceled. Open tasks are
			// not removable here, and no field updates happen either way.
			// t points into the store's backing slice, so the title must be
			// taken before Remove shifts the remaining elements over it.
			if t.Status == domain.StatusDone || t.Status == domain.StatusCanceled {
				title := t.Title
				r.Store.Remove(t.ID)
				events = append(events, logbook.OpLine("dropped", title, item.ID))
			}
			continue
		}

		changed := false
		// The checkbox marker, not zone placement, decides the target
		// status: a dragged line is expected to have its marker flipped.
		if target := inbox.StatusFor(item.Marker); target != t.Status {
			t.Status = target
			changed = true
			switch target {
			case domain.StatusDone:
				events = append(events, logbook.OpLine("completed", t.Title, t.ID))
			case domain.StatusCanceled:
				events = append(events, logbook.OpLine("deleted", t.Title, t.ID))
			}
			// Transitions back to open are intentionally silent.
		}
		if item.Priority != nil && (t.Priority == nil || *t.Priority != *item.Priority) {
			t.Priority = item.Priority
			changed = true
		}
		if len(item.Tags) > 0 && !sameTags(t.Tags, item.Tags) {
			t.Tags = item.Tags // full replace, unlike complete_or_create
			changed = true
		}
		if item.Due != "" && item.Due != t.Due {
			t.Due = item.Due
			changed = true
		}
		if changed {
			r.Store.Touch(t)
		}
	}
	return events
}

func sameTags(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
