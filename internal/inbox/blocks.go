package inbox

import (
	"strings"
	"time"

	"logline/internal/domain"
)

// Subsection names recognized inside a dated block.
const (
	SectionLog      = "LOG"
	SectionTodoAdd  = "TODO_ADD"
	SectionTodoDone = "TODO_DONE"
)

// Block is one dated edit unit: a `## YYYY-MM-DD[ HH:MM]` header and the
// lines up to the next major header, split into LOG/TODO_ADD/TODO_DONE.
type Block struct {
	Header   string
	At       time.Time
	Sections map[string][]string

	active     string
	start, end int // line span within the document, header inclusive
}

// IsTemplate reports whether all three subsections are empty. Template
// blocks are passed through untouched: never processed, never removed.
func (b *Block) IsTemplate() bool {
	for _, lines := range b.Sections {
		if len(lines) > 0 {
			return false
		}
	}
	return true
}

// Lines returns the trimmed non-empty body lines of one subsection.
func (b *Block) Lines(section string) []string {
	return b.Sections[section]
}

// Document is an inbox file parsed into an ordered line sequence plus the
// dated blocks found in it. Mutations build new documents; spans are never
// edited in place.
type Document struct {
	lines  []string
	Blocks []*Block
}

// dateOnlyHour is the nominal time assumed for date-only headers. It only
// ever decides which day's archive a block's lines land in.
const dateOnlyHour = 9

// HeaderTime parses a `## <date>[ <time>]` line. ok is false for any other
// line, including non-dated `## ` headers.
func HeaderTime(line string) (time.Time, bool) {
	if !strings.HasPrefix(line, "## ") {
		return time.Time{}, false
	}
	rest := strings.TrimSpace(line[3:])
	if at, err := time.ParseInLocation(domain.DateTimeLayout, rest, time.Local); err == nil {
		return at, true
	}
	if at, err := time.ParseInLocation(domain.DateLayout, rest, time.Local); err == nil {
		return at.Add(dateOnlyHour * time.Hour), true
	}
	return time.Time{}, false
}

// IsDateHeader reports whether line opens a dated block.
func IsDateHeader(line string) bool {
	_, ok := HeaderTime(line)
	return ok
}

// Parse splits document text into lines and dated blocks. A block ends at
// the next `## ` header of any kind; other `## ` sections (the TODO LIST
// mirror among them) are non-block spans and are left alone.
func Parse(text string) *Document {
	doc := &Document{lines: splitLines(text)}
	var cur *Block
	flush := func(end int) {
		if cur != nil {
			cur.end = end
			doc.Blocks = append(doc.Blocks, cur)
			cur = nil
		}
	}
	for i, line := range doc.lines {
		if strings.HasPrefix(line, "## ") {
			flush(i)
			if at, ok := HeaderTime(line); ok {
				cur = &Block{
					Header:   line,
					At:       at,
					Sections: map[string][]string{},
					start:    i,
				}
			}
			continue
		}
		if cur == nil {
			continue
		}
		stripped := strings.TrimSpace(line)
		if strings.HasPrefix(stripped, "### ") {
			name := strings.ToUpper(strings.TrimSpace(stripped[4:]))
			switch name {
			case SectionLog, SectionTodoAdd, SectionTodoDone:
				cur.active = name
			default:
				cur.active = ""
			}
			continue
		}
		if cur.active != "" && stripped != "" {
			cur.Sections[cur.active] = append(cur.Sections[cur.active], stripped)
		}
	}
	flush(len(doc.lines))
	return doc
}

// Text reassembles the document. A non-empty document always ends with a
// trailing newline.
func (d *Document) Text() string {
	if len(d.lines) == 0 {
		return ""
	}
	return strings.Join(d.lines, "\n") + "\n"
}

// Without returns the document text with the given blocks' spans omitted.
func (d *Document) Without(blocks []*Block) string {
	drop := map[int]bool{}
	for _, b := range blocks {
		for i := b.start; i < b.end; i++ {
			drop[i] = true
		}
	}
	var kept []string
	for i, line := range d.lines {
		if !drop[i] {
			kept = append(kept, line)
		}
	}
	if len(kept) == 0 {
		return ""
	}
	return strings.Join(kept, "\n") + "\n"
}

// RollFirstHeader rewrites the first dated header to today's date (time
// dropped), leaving everything else untouched. ok is false when the document
// has no dated header at all.
func RollFirstHeader(text string, today time.Time) (string, bool) {
	lines := splitLines(text)
	for i, line := range lines {
		if IsDateHeader(line) {
			lines[i] = "## " + today.Format(domain.DateLayout)
			return strings.Join(lines, "\n") + "\n", true
		}
	}
	return text, false
}

// HasDateHeader reports whether any dated block header remains in text.
func HasDateHeader(text string) bool {
	for _, line := range splitLines(text) {
		if IsDateHeader(line) {
			return true
		}
	}
	return false
}

// Template returns a fresh empty block for the given date.
func Template(date time.Time) string {
	return strings.Join([]string{
		"## " + date.Format(domain.DateLayout),
		"",
		"### LOG",
		"",
		"### TODO_ADD",
		"",
		"### TODO_DONE",
		"",
	}, "\n")
}

// AppendTemplate appends a fresh template block to text, separated by a
// blank line when needed.
func AppendTemplate(text string, date time.Time) string {
	out := text
	if out != "" && !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	if trimmed := strings.TrimRight(out, "\n"); trimmed != "" {
		out = trimmed + "\n\n"
	} else {
		out = ""
	}
	return out + Template(date) + "\n"
}

func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(strings.TrimRight(text, "\n"), "\n")
}
