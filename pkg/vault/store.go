package vault

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mklimuk/orbit/pkg/task"
)

// DefaultTaskDir is the vault directory holding local task notes.
const DefaultTaskDir = "Orbit Tasks"

// Committer records vault changes, e.g. a git repository.
type Committer interface {
	Sync(message string) error
}

// Store persists local tasks as notes in one vault directory, one note per
// task named after its id. It implements the local store backend.
type Store struct {
	root      string
	dir       string
	templates *TemplateEngine
	git       Committer
}

// NewStore creates a Store writing to root/dir. templates and git are
// optional.
func NewStore(root, dir string, templates *TemplateEngine, git Committer) *Store {
	if dir == "" {
		dir = DefaultTaskDir
	}
	return &Store{root: root, dir: dir, templates: templates, git: git}
}

// Dir is the vault-relative directory owned by the store.
func (s *Store) Dir() string { return s.dir }

func (s *Store) path() string { return filepath.Join(s.root, s.dir) }

// LoadTasks reads every task note of the store directory.
func (s *Store) LoadTasks(ctx context.Context) ([]task.Task, error) {
	src := NewSource(s.path())
	records, err := src.Fetch(ctx)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read task notes: %w", err)
	}
	tasks, errs := task.NormalizeAll(records)
	for _, err := range errs {
		log.Printf("Vault store: %v", err)
	}
	return task.Sort{Field: task.SortByCreatedAt}.Apply(tasks), nil
}

// SaveTasks writes a note per task and removes notes of tasks that are
// gone. The vault is then committed in the background.
func (s *Store) SaveTasks(ctx context.Context, tasks []task.Task) error {
	dir := s.path()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create task dir: %w", err)
	}

	keep := make(map[string]bool, len(tasks))
	now := time.Now()
	for _, t := range tasks {
		if err := ctx.Err(); err != nil {
			return err
		}
		name := noteFilename(t.ID)
		keep[name] = true
		note := &Note{
			Path:        filepath.Join(dir, name),
			Frontmatter: FrontmatterFor(t),
			Content:     s.templates.TaskBody(noteVars(t), now),
		}
		if err := WriteNote(note); err != nil {
			return fmt.Errorf("failed to write note for %s: %w", t.ID, err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to list task dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") || keep[e.Name()] {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
			return fmt.Errorf("failed to remove stale note %s: %w", e.Name(), err)
		}
	}

	if s.git != nil {
		go func() {
			if err := s.git.Sync(fmt.Sprintf("Update %d local tasks", len(tasks))); err != nil {
				log.Printf("Git sync after task save: %v", err)
			}
		}()
	}
	return nil
}

func noteFilename(id string) string {
	return SanitizeFilename(id) + ".md"
}

func noteVars(t task.Task) map[string]string {
	due := ""
	if t.DueDate != nil {
		due = t.DueDate.Format(time.DateOnly)
	}
	return map[string]string{
		"title":       t.Name,
		"description": t.Description,
		"status":      string(t.Status),
		"priority":    string(t.Priority),
		"due":         due,
	}
}
