package logbook

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"logline/internal/domain"
)

// Rollup aggregates today's and yesterday's archive files into one
// read-only view, regenerated in full on every run.
type Rollup struct {
	Dir     string
	OutFile string
	Now     func() time.Time
}

func (r Rollup) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// Generate rewrites the rollup file. For each day the plain log entries are
// rendered newest first with headers and blank lines kept in place; the
// synthesized TODO-operation entries are grouped separately, also newest
// first.
func (r Rollup) Generate() error {
	today := r.now()
	parts := []string{"# Last two days", ""}

	for _, day := range []time.Time{today, today.AddDate(0, 0, -1)} {
		data, err := os.ReadFile(DayPath(r.Dir, day))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return err
		}
		lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
		if len(lines) > 0 && strings.HasPrefix(lines[0], "# ") {
			lines = lines[1:]
		}
		parts = append(parts, "## "+day.Format(domain.DateLayout), "")
		parts = append(parts, renderDay(lines)...)
		parts = append(parts, "")
	}

	if err := os.MkdirAll(filepath.Dir(r.OutFile), 0o755); err != nil {
		return err
	}
	return os.WriteFile(r.OutFile, []byte(strings.Join(parts, "\n")+"\n"), 0o644)
}

func renderDay(lines []string) []string {
	var body []string
	var slots []int
	var plain, ops []string
	for _, line := range lines {
		text, entry := entryText(line)
		switch {
		case !entry:
			body = append(body, line)
		case strings.HasPrefix(text, OpPrefix):
			ops = append(ops, line)
		default:
			slots = append(slots, len(body))
			body = append(body, "")
			plain = append(plain, line)
		}
	}
	for i, s := range slots {
		body[s] = plain[len(plain)-1-i]
	}
	if len(ops) > 0 {
		if n := len(body); n > 0 && body[n-1] != "" {
			body = append(body, "")
		}
		body = append(body, "## TODO", "")
		for i := len(ops) - 1; i >= 0; i-- {
			body = append(body, ops[i])
		}
	}
	return body
}

// entryText returns the text after the "- HH:MM " stamp of an archive entry
// line, and whether line is one.
func entryText(line string) (string, bool) {
	if !strings.HasPrefix(line, "- ") || len(line) < 8 {
		return "", false
	}
	if _, err := time.Parse(domain.ClockLayout, line[2:7]); err != nil {
		return "", false
	}
	if len(line) == 7 {
		return "", true
	}
	if line[7] != ' ' {
		return "", false
	}
	return line[8:], true
}
