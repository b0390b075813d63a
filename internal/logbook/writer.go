package logbook

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"logline/internal/domain"
)

// OpPrefix marks synthesized TODO-operation records in the archive. Rollup
// partitioning keys on it.
const OpPrefix = "TODO "

// OpLine builds one TODO-operation record: add, complete, delete or drop.
func OpLine(op, title, id string) string {
	return fmt.Sprintf("%s%s: %q (id:%s)", OpPrefix, op, title, id)
}

// Writer appends to day-partitioned archive files, one per calendar day,
// grouped under year and year-month. Files are append-only: prior lines are
// never rewritten or removed.
type Writer struct {
	Dir string
	Now func() time.Time
}

func (w Writer) now() time.Time {
	if w.Now != nil {
		return w.Now()
	}
	return time.Now()
}

// DayPath returns the archive file for a calendar day.
func DayPath(dir string, day time.Time) string {
	return filepath.Join(dir, day.Format("2006"), day.Format("2006-01"), day.Format(domain.DateLayout)+".md")
}

// Append archives items under the given day. Each item is stamped with the
// current wall-clock time of day, not the day's nominal header time. The
// first write to a new day initializes the file with its date title and the
// LOG section marker.
func (w Writer) Append(day time.Time, items []string) error {
	if len(items) == 0 {
		return nil
	}
	path := DayPath(w.Dir, day)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	content := ""
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		content = string(data)
	case os.IsNotExist(err):
		content = fmt.Sprintf("# %s\n\n## LOG\n\n", day.Format(domain.DateLayout))
	default:
		return err
	}
	if !strings.Contains(content, "\n## LOG") && !strings.HasPrefix(content, "## LOG") {
		content = strings.TrimRight(content, "\n") + "\n\n## LOG\n\n"
	}
	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	stamp := w.now().Format(domain.ClockLayout)
	var b strings.Builder
	b.WriteString(content)
	for _, item := range items {
		fmt.Fprintf(&b, "- %s %s\n", stamp, item)
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}
