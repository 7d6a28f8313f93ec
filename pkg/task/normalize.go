package task

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
)

// ErrInvalidRecord is returned for records without a usable id.
var ErrInvalidRecord = errors.New("invalid task record")

// RawRecord is one source record as decoded from JSON. It may carry flat
// top-level fields, a nested "properties" bag in Notion's shape, or both.
type RawRecord map[string]any

// PropertiesKey is the top-level key holding the nested property bag.
const PropertiesKey = "properties"

// Field names a canonical task field.
type Field string

const (
	FieldID          Field = "id"
	FieldName        Field = "name"
	FieldDescription Field = "description"
	FieldDueDate     Field = "dueDate"
	FieldPriority    Field = "priority"
	FieldStatus      Field = "status"
	FieldZoom        Field = "zoom"
	FieldParent      Field = "parent"
	FieldCreatedAt   Field = "createdAt"
	FieldUpdatedAt   Field = "updatedAt"
)

// Source is one place a canonical field may be read from: either a flat
// top-level key or an entry of the property bag.
type Source struct {
	Key      string
	Property string
}

// Flat reads a top-level key.
func Flat(key string) Source { return Source{Key: key} }

// Prop reads an entry of the property bag.
func Prop(name string) Source { return Source{Property: name} }

func (s Source) String() string {
	if s.Property != "" {
		return PropertiesKey + "." + s.Property
	}
	return s.Key
}

// Aliases maps each canonical field to the ordered sources tried for it.
type Aliases map[Field][]Source

// DefaultAliases is the field-alias table covering the record shapes seen
// from the Notion proxy routes and from vault notes.
var DefaultAliases = Aliases{
	FieldID:          {Flat("id")},
	FieldName:        {Flat("name"), Flat("title"), Prop("Name"), Prop("Title"), Prop("Task")},
	FieldDescription: {Flat("description"), Prop("Description")},
	FieldDueDate:     {Flat("dueDate"), Flat("due_date"), Prop("Due"), Prop("Due Date")},
	FieldPriority:    {Flat("priority"), Prop("Priority")},
	FieldStatus:      {Flat("status"), Prop("Status")},
	FieldZoom:        {Flat("zoom"), Prop("Zoom Out"), Prop("Zoom")},
	FieldParent:      {Flat("parentId"), Flat("parent_id"), Prop("Parent"), Prop("Parent Task")},
	FieldCreatedAt:   {Flat("createdAt"), Flat("created_time")},
	FieldUpdatedAt:   {Flat("updatedAt"), Flat("last_edited_time")},
}

// Option configures the normalizer and the forest builders.
type Option func(*settings)

type settings struct {
	logger  *slog.Logger
	aliases Aliases
}

func newSettings(opts []Option) settings {
	s := settings{aliases: DefaultAliases}
	for _, opt := range opts {
		opt(&s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return s
}

// WithLogger sets the logger used for debug diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// WithAliases replaces the field-alias table.
func WithAliases(a Aliases) Option {
	return func(s *settings) { s.aliases = a }
}

// Normalizer maps raw records onto canonical tasks.
type Normalizer struct {
	settings
}

// NewNormalizer creates a Normalizer.
func NewNormalizer(opts ...Option) *Normalizer {
	return &Normalizer{settings: newSettings(opts)}
}

var defaultNormalizer = NewNormalizer()

// Normalize maps raw with the default alias table and no logging.
func Normalize(raw RawRecord) (Task, error) {
	return defaultNormalizer.Normalize(raw)
}

// NormalizeAll maps every record with the default normalizer.
func NormalizeAll(raws []RawRecord) ([]Task, []error) {
	return defaultNormalizer.NormalizeAll(raws)
}

// Normalize maps one record. Missing or malformed optional fields fall back
// to their defaults; only a missing id is an error.
func (n *Normalizer) Normalize(raw RawRecord) (Task, error) {
	props := decodeProperties(raw[PropertiesKey])

	id, ok := n.lookup(raw, props, FieldID)
	if !ok {
		return Task{}, fmt.Errorf("%w: missing id", ErrInvalidRecord)
	}

	t := Task{
		ID:         id,
		Name:       DefaultName,
		Priority:   DefaultPriority,
		Status:     DefaultStatus,
		Zoom:       DefaultZoom,
		Properties: props,
	}
	if v, ok := n.lookup(raw, props, FieldName); ok {
		t.Name = v
	}
	if v, ok := n.lookup(raw, props, FieldDescription); ok {
		t.Description = v
	}
	if v, ok := n.lookup(raw, props, FieldPriority); ok {
		t.Priority = ParsePriority(v)
	}
	if v, ok := n.lookup(raw, props, FieldStatus); ok {
		t.Status = ParseStatus(v)
	}
	if v, ok := n.lookup(raw, props, FieldZoom); ok {
		t.Zoom = ParseZoom(v)
	}
	if v, ok := n.lookup(raw, props, FieldParent); ok && v != id {
		t.ParentID = v
	}
	if due, ok := n.lookupTime(raw, props, id, FieldDueDate); ok {
		t.DueDate = &due
	}
	if created, ok := n.lookupTime(raw, props, id, FieldCreatedAt); ok {
		t.CreatedAt = created
	}
	if updated, ok := n.lookupTime(raw, props, id, FieldUpdatedAt); ok {
		t.UpdatedAt = updated
	} else {
		t.UpdatedAt = t.CreatedAt
	}
	return t, nil
}

// NormalizeAll maps every record, skipping the invalid ones. The returned
// errors wrap ErrInvalidRecord and name the offending index.
func (n *Normalizer) NormalizeAll(raws []RawRecord) ([]Task, []error) {
	tasks := make([]Task, 0, len(raws))
	var errs []error
	for i, raw := range raws {
		t, err := n.Normalize(raw)
		if err != nil {
			n.logger.Debug("rejecting record", "index", i, "error", err)
			errs = append(errs, fmt.Errorf("record %d: %w", i, err))
			continue
		}
		tasks = append(tasks, t)
	}
	return tasks, errs
}

// lookup walks the alias list for f and returns the first non-empty value.
func (n *Normalizer) lookup(raw RawRecord, props Properties, f Field) (string, bool) {
	for _, src := range n.aliases[f] {
		if src.Property != "" {
			prop, ok := props[src.Property]
			if !ok {
				continue
			}
			if v, ok := prop.scalar(); ok {
				return v, true
			}
			continue
		}
		if v, ok := flatString(raw[src.Key]); ok {
			return v, true
		}
	}
	return "", false
}

func (n *Normalizer) lookupTime(raw RawRecord, props Properties, id string, f Field) (time.Time, bool) {
	v, ok := n.lookup(raw, props, f)
	if !ok {
		return time.Time{}, false
	}
	ts, ok := ParseTime(v)
	if !ok {
		n.logger.Debug("ignoring unparseable date", "task", id, "field", string(f), "value", v)
	}
	return ts, ok
}

// flatString accepts plain strings and, for records that inline a Notion
// property at the top level, property objects.
func flatString(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		s := strings.TrimSpace(val)
		return s, s != ""
	case map[string]any:
		prop, ok := decodeProperty(val)
		if !ok {
			return "", false
		}
		return prop.scalar()
	default:
		return "", false
	}
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	time.DateOnly,
}

// ParseTime parses an ISO-8601 date or date-time.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
