package vault

import (
	"path/filepath"
	"strings"

	"github.com/mklimuk/orbit/pkg/task"
)

// NoteType marks notes that describe a task.
const NoteType = "task"

// TaskFrontmatter is the frontmatter of a task note.
type TaskFrontmatter struct {
	Type     string   `yaml:"type"`
	ID       string   `yaml:"id,omitempty"`
	Name     string   `yaml:"name,omitempty"`
	Status   string   `yaml:"status,omitempty"`
	Priority string   `yaml:"priority,omitempty"` // Low, Medium, High, ...
	DueDate  string   `yaml:"due_date,omitempty"`
	Zoom     string   `yaml:"zoom,omitempty"`
	Parent   string   `yaml:"parent,omitempty"`
	Class    string   `yaml:"class,omitempty"`
	Projects []string `yaml:"projects,omitempty"`
	Goals    []string `yaml:"goals,omitempty"`
	Tags     []string `yaml:"tags,omitempty"`
	Created  string   `yaml:"created,omitempty"`
	Updated  string   `yaml:"updated,omitempty"`
}

// Note represents a parsed markdown note
type Note struct {
	Path        string
	Frontmatter interface{}
	Content     string // The markdown content after frontmatter
}

// Record turns the frontmatter into a flat raw record. relPath names the
// note when it carries no id or name; body becomes the description.
func (fm TaskFrontmatter) Record(relPath, body string) task.RawRecord {
	raw := task.RawRecord{}
	set := func(key, v string) {
		if v = strings.TrimSpace(v); v != "" {
			raw[key] = v
		}
	}

	id := fm.ID
	if strings.TrimSpace(id) == "" {
		id = "vault:" + filepath.ToSlash(relPath)
	}
	name := fm.Name
	if strings.TrimSpace(name) == "" {
		name = strings.TrimSuffix(filepath.Base(relPath), ".md")
	}
	set("id", id)
	set("name", name)
	set("description", noteDescription(body))
	set("status", fm.Status)
	set("priority", fm.Priority)
	set("due_date", fm.DueDate)
	set("zoom", fm.Zoom)
	set("parent_id", fm.Parent)
	set("createdAt", fm.Created)
	set("updatedAt", fm.Updated)

	props := map[string]any{}
	if c := strings.TrimSpace(fm.Class); c != "" {
		props["Class"] = map[string]any{"type": task.PropertySelect, "select": map[string]any{"name": c}}
	}
	if rel := relation(fm.Projects); rel != nil {
		props["Projects"] = rel
	}
	if rel := relation(fm.Goals); rel != nil {
		props["Goals"] = rel
	}
	if len(props) > 0 {
		raw[task.PropertiesKey] = props
	}
	return raw
}

func relation(ids []string) map[string]any {
	var refs []any
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			refs = append(refs, map[string]any{"id": id})
		}
	}
	if len(refs) == 0 {
		return nil
	}
	return map[string]any{"type": task.PropertyRelation, "relation": refs}
}

// noteDescription drops the leading "# title" heading written by the task
// template and returns the rest of the body.
func noteDescription(body string) string {
	body = strings.TrimSpace(body)
	if strings.HasPrefix(body, "# ") {
		if i := strings.IndexByte(body, '\n'); i >= 0 {
			body = body[i+1:]
		} else {
			body = ""
		}
	}
	return strings.TrimSpace(body)
}

// FrontmatterFor is the inverse of Record for a canonical task.
func FrontmatterFor(t task.Task) TaskFrontmatter {
	fm := TaskFrontmatter{
		Type:     NoteType,
		ID:       t.ID,
		Name:     t.Name,
		Status:   string(t.Status),
		Priority: string(t.Priority),
		Zoom:     string(t.Zoom),
		Parent:   t.ParentID,
		Projects: t.Properties.Relation("Projects"),
		Goals:    t.Properties.Relation("Goals"),
	}
	if t.DueDate != nil {
		fm.DueDate = t.DueDate.Format(timeFormat)
	}
	if !t.CreatedAt.IsZero() {
		fm.Created = t.CreatedAt.Format(timeFormat)
	}
	if !t.UpdatedAt.IsZero() {
		fm.Updated = t.UpdatedAt.Format(timeFormat)
	}
	if c, ok := t.Properties.Select("Class"); ok {
		fm.Class = c
	}
	return fm
}

const timeFormat = "2006-01-02T15:04:05Z07:00"
