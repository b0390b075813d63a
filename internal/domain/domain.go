package domain

// Task statuses. A task has exactly one status at a time.
const (
	StatusOpen     = "open"
	StatusDone     = "done"
	StatusCanceled = "canceled"
)

// Timestamp layouts shared by the store, the inbox document and the archive.
const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04"
	ClockLayout    = "15:04"
)

type Task struct {
	ID        string   `json:"id" yaml:"id"`
	Title     string   `json:"title" yaml:"title"`
	Status    string   `json:"status" yaml:"status"`
	CreatedAt string   `json:"created_at" yaml:"created_at"`
	UpdatedAt string   `json:"updated_at" yaml:"updated_at"`
	Due       string   `json:"due,omitempty" yaml:"due,omitempty"`
	Tags      []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	Priority  *int     `json:"priority,omitempty" yaml:"priority,omitempty"`
}

// PriorityOr returns the task priority, or fallback when unset.
func (t Task) PriorityOr(fallback int) int {
	if t.Priority != nil {
		return *t.Priority
	}
	return fallback
}

// TagAt returns the tag at idx in insertion order, or "" when out of range.
func (t Task) TagAt(idx int) string {
	if idx < 0 || idx >= len(t.Tags) {
		return ""
	}
	return t.Tags[idx]
}

func ValidStatus(s string) bool {
	return s == StatusOpen || s == StatusDone || s == StatusCanceled
}
