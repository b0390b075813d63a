package inbox

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"logline/internal/domain"
)

// Declaration is one parsed TODO_ADD/TODO_DONE body line.
type Declaration struct {
	Title    string
	Tags     []string
	Due      string
	Priority *int
}

// MirrorItem is one parsed TODO LIST line carrying an (id:...) reference.
type MirrorItem struct {
	ID       string
	Marker   byte // ' ', 'v' or 'x', normalized
	Title    string
	Tags     []string
	Due      string
	Priority *int
}

// ParseDeclaration tokenizes a task declaration line. Extraction order is
// fixed: checkbox, due date, priority, tags, remainder as title. The first
// due/priority token wins; later tokens of the same kind are stripped so
// they never leak into the title. Unmatched tokens yield absent values,
// never an error.
func ParseDeclaration(raw string) Declaration {
	s := stripCheckbox(strings.TrimSpace(raw))
	var d Declaration
	s, d.Due = cutDue(s)
	s, d.Priority = cutPriority(s)
	s, d.Tags = cutTags(s)
	d.Title = strings.Join(strings.Fields(s), " ")
	return d
}

// ParseMirrorLine parses one rendered TODO LIST item back into its fields.
// ok is false for any line without a valid checkbox or an (id:...)
// reference; such lines are not mirror items.
func ParseMirrorLine(raw string) (MirrorItem, bool) {
	s := strings.TrimSpace(raw)
	if len(s) > 0 && (s[0] == '-' || s[0] == '*') {
		s = strings.TrimLeft(s[1:], " ")
	} else {
		return MirrorItem{}, false
	}
	var it MirrorItem
	marker, rest, ok := cutMarker(s)
	if !ok {
		return MirrorItem{}, false
	}
	it.Marker = marker
	s = rest

	if strings.HasPrefix(s, "{") {
		if end := strings.IndexByte(s, '}'); end == 2 && s[1] >= '1' && s[1] <= '9' {
			p := int(s[1] - '0')
			it.Priority = &p
			s = strings.TrimLeft(s[end+1:], " ")
		}
	}

	idStart := strings.LastIndex(s, "(id:")
	if idStart < 0 {
		return MirrorItem{}, false
	}
	idEnd := strings.IndexByte(s[idStart:], ')')
	if idEnd < 0 {
		return MirrorItem{}, false
	}
	it.ID = strings.TrimSpace(s[idStart+4 : idStart+idEnd])
	if it.ID == "" {
		return MirrorItem{}, false
	}
	s = strings.TrimSpace(s[:idStart])

	// Trailing "(...)" group is metadata only if every entry is a tag or a
	// due token; otherwise it is part of the title.
	if strings.HasSuffix(s, ")") {
		if open := strings.LastIndexByte(s, '('); open >= 0 {
			if tags, due, ok := parseMeta(s[open+1 : len(s)-1]); ok {
				it.Tags = tags
				it.Due = due
				s = strings.TrimSpace(s[:open])
			}
		}
	}
	it.Title = s
	return it, true
}

// FormatMirrorLine renders one task as a TODO LIST item. The output parses
// back to the identical field values via ParseMirrorLine.
func FormatMirrorLine(t domain.Task) string {
	var b strings.Builder
	b.WriteString("- [")
	b.WriteByte(MarkerFor(t.Status))
	b.WriteString("] ")
	if t.Priority != nil {
		fmt.Fprintf(&b, "{%d} ", *t.Priority)
	}
	b.WriteString(t.Title)
	var meta []string
	if len(t.Tags) > 0 {
		meta = append(meta, "@"+strings.Join(t.Tags, ",@"))
	}
	if t.Due != "" {
		meta = append(meta, "due:"+t.Due)
	}
	if len(meta) > 0 {
		b.WriteString(" (" + strings.Join(meta, ", ") + ")")
	}
	fmt.Fprintf(&b, " (id:%s)", t.ID)
	return b.String()
}

// MarkerFor maps a task status to its checkbox marker.
func MarkerFor(status string) byte {
	switch status {
	case domain.StatusDone:
		return 'v'
	case domain.StatusCanceled:
		return 'x'
	default:
		return ' '
	}
}

// StatusFor maps a checkbox marker to the status it demands.
func StatusFor(marker byte) string {
	switch marker {
	case 'v':
		return domain.StatusDone
	case 'x':
		return domain.StatusCanceled
	default:
		return domain.StatusOpen
	}
}

func stripCheckbox(s string) string {
	if len(s) > 0 && (s[0] == '-' || s[0] == '*') {
		s = strings.TrimLeft(s[1:], " ")
	}
	if _, rest, ok := cutMarker(s); ok {
		return rest
	}
	return s
}

// cutMarker consumes a leading "[m]" checkbox. Accepted markers are space,
// v and x (case-insensitive).
func cutMarker(s string) (byte, string, bool) {
	if len(s) < 3 || s[0] != '[' || s[2] != ']' {
		return 0, s, false
	}
	switch s[1] {
	case ' ':
		return ' ', strings.TrimLeft(s[3:], " "), true
	case 'v', 'V':
		return 'v', strings.TrimLeft(s[3:], " "), true
	case 'x', 'X':
		return 'x', strings.TrimLeft(s[3:], " "), true
	}
	return 0, s, false
}

// cutDue removes every valid due:YYYY-MM-DD token; the first one wins.
func cutDue(s string) (string, string) {
	due := ""
	var out strings.Builder
	for i := 0; i < len(s); {
		if strings.HasPrefix(s[i:], "due:") && len(s) >= i+14 {
			candidate := s[i+4 : i+14]
			if _, err := time.Parse(domain.DateLayout, candidate); err == nil {
				if due == "" {
					due = candidate
				}
				i += 14
				continue
			}
		}
		out.WriteByte(s[i])
		i++
	}
	return out.String(), due
}

// cutPriority removes every !digit token; the first one wins.
func cutPriority(s string) (string, *int) {
	var prio *int
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '!' && i+1 < len(s) && s[i+1] >= '1' && s[i+1] <= '9' {
			if prio == nil {
				p := int(s[i+1] - '0')
				prio = &p
			}
			i++
			continue
		}
		out = append(out, s[i])
	}
	return string(out), prio
}

// cutTags removes every @word token, collecting tags in order of first
// appearance.
func cutTags(s string) (string, []string) {
	var tags []string
	seen := map[string]bool{}
	var out strings.Builder
	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		if runes[i] == '@' {
			j := i + 1
			for j < len(runes) && isTagRune(runes[j]) {
				j++
			}
			if j > i+1 {
				tag := string(runes[i+1 : j])
				if !seen[tag] {
					seen[tag] = true
					tags = append(tags, tag)
				}
				i = j - 1
				continue
			}
		}
		out.WriteRune(runes[i])
	}
	return out.String(), tags
}

func isTagRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func parseMeta(group string) (tags []string, due string, ok bool) {
	for _, part := range strings.Split(group, ",") {
		part = strings.TrimSpace(part)
		switch {
		case part == "":
			return nil, "", false
		case strings.HasPrefix(part, "@"):
			tags = append(tags, part[1:])
		case strings.HasPrefix(part, "due:"):
			if _, err := time.Parse(domain.DateLayout, part[4:]); err != nil {
				return nil, "", false
			}
			due = part[4:]
		default:
			return nil, "", false
		}
	}
	return tags, due, true
}
