package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"logline/internal/config"
	"logline/internal/inbox"
	"logline/internal/logbook"
	"logline/internal/mirror"
	"logline/internal/store"
)

// Engine runs one synchronization pass: reconcile the mirror, process the
// dated blocks, persist the store and regenerate the document views. One
// invocation is one linear pass; reconciliation always happens before block
// processing, and store persistence always happens before any document
// write.
type Engine struct {
	Config *config.Config
	Paths  config.Paths
	Repo   store.Repository
	Store  *store.Store
	Logs   logbook.Writer
	Now    func() time.Time
}

// Summary reports what one run did.
type Summary struct {
	Processed int  `json:"processed_blocks"`
	Events    int  `json:"reconciled_events"`
	NoOp      bool `json:"no_op"`
}

func New(cfg *config.Config, workspace string, repo store.Repository) *Engine {
	paths := cfg.Resolve(workspace)
	return &Engine{
		Config: cfg,
		Paths:  paths,
		Repo:   repo,
		Store:  store.New(cfg.DefaultPriority),
		Logs:   logbook.Writer{Dir: paths.LogsDir},
		Now:    time.Now,
	}
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e *Engine) renderer() mirror.Renderer {
	return mirror.Renderer{
		SortMode:        e.Config.SortMode,
		TagIndex:        e.Config.TagIndex,
		DefaultPriority: e.Config.DefaultPriority,
	}
}

// Run executes the state machine: loaded -> reconciled ->
// {no-op-cycle | processed-cycle} -> persisted.
func (e *Engine) Run(ctx context.Context) (Summary, error) {
	now := e.now()
	e.Store.Now = e.now
	e.Logs.Now = e.now

	tasks, err := e.Repo.Load(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("load tasks: %w", err)
	}
	e.Store.SetTasks(tasks)

	raw, err := os.ReadFile(e.Paths.InboxFile)
	if err != nil {
		return Summary{}, fmt.Errorf("inbox document: %w", err)
	}
	text := string(raw)
	doc := inbox.Parse(text)

	// Mirror edits land first; same-run TODO_ADD/TODO_DONE lines touching
	// the same task overwrite them. Reconciliation events go to the current
	// calendar day, not any block's date.
	events := mirror.Reconciler{Store: e.Store}.Apply(text)
	if err := e.Logs.Append(now, events); err != nil {
		return Summary{}, fmt.Errorf("archive reconciliation events: %w", err)
	}

	var processed []*inbox.Block
	for _, b := range doc.Blocks {
		ok, err := e.processBlock(b)
		if err != nil {
			return Summary{}, err
		}
		if ok {
			processed = append(processed, b)
		}
	}

	summary := Summary{Processed: len(processed), Events: len(events), NoOp: len(processed) == 0}

	if len(processed) == 0 {
		rolled, ok := inbox.RollFirstHeader(text, now)
		if !ok {
			rolled = inbox.AppendTemplate(text, now)
		}
		if err := e.persist(ctx, rolled); err != nil {
			return Summary{}, err
		}
		return summary, nil
	}

	remaining := doc.Without(processed)
	if !inbox.HasDateHeader(remaining) {
		latest := processed[0].At
		for _, b := range processed[1:] {
			if b.At.After(latest) {
				latest = b.At
			}
		}
		remaining = inbox.AppendTemplate(remaining, latest)
	}
	if err := e.persist(ctx, remaining); err != nil {
		return Summary{}, err
	}
	return summary, nil
}

// processBlock interprets one block against the store and the archive.
// A block counts as processed iff any subsection had content; template
// blocks pass through untouched.
func (e *Engine) processBlock(b *inbox.Block) (bool, error) {
	if b.IsTemplate() {
		return false, nil
	}

	logItems := make([]string, 0, len(b.Lines(inbox.SectionLog)))
	for _, line := range b.Lines(inbox.SectionLog) {
		logItems = append(logItems, stripBullet(line))
	}
	if err := e.Logs.Append(b.At, logItems); err != nil {
		return false, fmt.Errorf("archive block %s: %w", b.Header, err)
	}

	var ops []string
	for _, raw := range b.Lines(inbox.SectionTodoAdd) {
		d := inbox.ParseDeclaration(raw)
		if d.Title == "" {
			continue // no task, no error; the block still counts as processed
		}
		t := e.Store.Add(d.Title, d.Tags, d.Due, d.Priority)
		ops = append(ops, logbook.OpLine("added", t.Title, t.ID))
	}
	for _, raw := range b.Lines(inbox.SectionTodoDone) {
		d := inbox.ParseDeclaration(raw)
		if d.Title == "" {
			continue
		}
		t, _ := e.Store.CompleteOrCreate(d.Title, d.Tags, d.Due, d.Priority)
		ops = append(ops, logbook.OpLine("completed", t.Title, t.ID))
	}
	if err := e.Logs.Append(b.At, ops); err != nil {
		return false, fmt.Errorf("archive block %s: %w", b.Header, err)
	}
	return true, nil
}

// persist saves the store, then rewrites the inbox document with a fresh
// mirror section, the open-task quick list and the rollup. Store save comes
// first so a crash in between leaves the store ahead of the document, which
// the next run recovers from by re-deriving the mirror.
func (e *Engine) persist(ctx context.Context, text string) error {
	tasks := e.Store.Tasks()
	if err := e.Repo.Save(ctx, tasks); err != nil {
		return fmt.Errorf("save tasks: %w", err)
	}
	r := e.renderer()
	if err := writeFile(e.Paths.InboxFile, r.Upsert(text, tasks)); err != nil {
		return fmt.Errorf("write inbox: %w", err)
	}
	if err := writeFile(e.Paths.TodoFile, r.TodoFile(tasks)); err != nil {
		return fmt.Errorf("write todo list: %w", err)
	}
	rollup := logbook.Rollup{Dir: e.Paths.LogsDir, OutFile: e.Paths.LatestFile, Now: e.Now}
	if err := rollup.Generate(); err != nil {
		return fmt.Errorf("write rollup: %w", err)
	}
	return nil
}

func stripBullet(line string) string {
	if len(line) > 0 && (line[0] == '-' || line[0] == '*') {
		return strings.TrimLeft(line[1:], " ")
	}
	return line
}

func writeFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0o644)
}
