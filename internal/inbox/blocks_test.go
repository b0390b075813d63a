package inbox_test

import (
	"strings"
	"testing"
	"time"

	"logline/internal/inbox"
)

const sampleDoc = `# Inbox

## TODO LIST

### TODO

- [ ] keep me (id:t1)

## 2026-01-08

### LOG

- met with team
- reviewed PRs

### TODO_ADD

- [ ] write report @work

### NOTES

this line is ignored, not an error

### TODO_DONE

## 2026-01-09 14:30

### LOG

### TODO_ADD

### TODO_DONE
`

func TestParseBlocks(t *testing.T) {
	doc := inbox.Parse(sampleDoc)
	if len(doc.Blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(doc.Blocks))
	}
	b := doc.Blocks[0]
	if b.Header != "## 2026-01-08" {
		t.Fatalf("header: %q", b.Header)
	}
	if b.At.Hour() != 9 {
		t.Fatalf("date-only header should assume 09:00, got %v", b.At)
	}
	if got := b.Lines(inbox.SectionLog); len(got) != 2 || got[0] != "- met with team" {
		t.Fatalf("log lines: %v", got)
	}
	if got := b.Lines(inbox.SectionTodoAdd); len(got) != 1 {
		t.Fatalf("todo_add lines: %v", got)
	}
	if b.IsTemplate() {
		t.Fatal("block with content is not a template")
	}

	b2 := doc.Blocks[1]
	if !b2.IsTemplate() {
		t.Fatal("empty block is a template")
	}
	if b2.At.Hour() != 14 || b2.At.Minute() != 30 {
		t.Fatalf("timed header: %v", b2.At)
	}
}

func TestUnknownSubheaderResetsSection(t *testing.T) {
	doc := inbox.Parse("## 2026-01-08\n\n### LOG\n- a\n### NOTES\n- hidden\n### LOG\n- b\n")
	b := doc.Blocks[0]
	got := b.Lines(inbox.SectionLog)
	if len(got) != 2 || got[0] != "- a" || got[1] != "- b" {
		t.Fatalf("log lines: %v", got)
	}
}

func TestWithoutRemovesOnlyBlockSpans(t *testing.T) {
	doc := inbox.Parse(sampleDoc)
	out := doc.Without(doc.Blocks[:1])
	if strings.Contains(out, "## 2026-01-08") || strings.Contains(out, "write report") {
		t.Fatalf("processed span not removed:\n%s", out)
	}
	for _, keep := range []string{"# Inbox", "## TODO LIST", "keep me (id:t1)", "## 2026-01-09 14:30"} {
		if !strings.Contains(out, keep) {
			t.Fatalf("lost %q:\n%s", keep, out)
		}
	}
}

func TestRollFirstHeader(t *testing.T) {
	today := time.Date(2026, 2, 1, 12, 0, 0, 0, time.Local)
	out, ok := inbox.RollFirstHeader(sampleDoc, today)
	if !ok {
		t.Fatal("expected a header to roll")
	}
	if !strings.Contains(out, "## 2026-02-01") {
		t.Fatalf("header not rolled:\n%s", out)
	}
	if !strings.Contains(out, "## 2026-01-09 14:30") {
		t.Fatal("later headers must be preserved")
	}
	if strings.Contains(out, "## 2026-01-08") {
		t.Fatal("first header should be replaced")
	}

	if _, ok := inbox.RollFirstHeader("# just a title\n", today); ok {
		t.Fatal("no dated header to roll")
	}
}

func TestAppendTemplate(t *testing.T) {
	date := time.Date(2026, 1, 10, 0, 0, 0, 0, time.Local)
	out := inbox.AppendTemplate("# Inbox\n", date)
	doc := inbox.Parse(out)
	if len(doc.Blocks) != 1 || !doc.Blocks[0].IsTemplate() {
		t.Fatalf("expected one template block:\n%s", out)
	}
	if doc.Blocks[0].Header != "## 2026-01-10" {
		t.Fatalf("header: %q", doc.Blocks[0].Header)
	}
	for _, section := range []string{"### LOG", "### TODO_ADD", "### TODO_DONE"} {
		if !strings.Contains(out, section) {
			t.Fatalf("missing %s:\n%s", section, out)
		}
	}
}

func TestHeaderTimeRejectsNonDates(t *testing.T) {
	for _, line := range []string{"## TODO LIST", "## notes", "# 2026-01-08", "## 2026-1-8"} {
		if inbox.IsDateHeader(line) {
			t.Fatalf("%q should not be a date header", line)
		}
	}
}
