// Package task holds the canonical task model and the pure transformations
// that turn a flat snapshot of source records into a task forest: the
// normalizer, the property accessors, the forest builders and the
// filter/sort helpers.
package task

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the workflow state of a task.
type Status string

const (
	StatusNotStarted   Status = "Not Started"
	StatusInProgress   Status = "In Progress"
	StatusDone         Status = "Done"
	StatusHandedOff    Status = "Handed Off"
	StatusDeprecated   Status = "Deprecated"
	StatusWaitingReply Status = "Waiting on Reply"
	StatusWaitingTask  Status = "Waiting on other task"
)

// Statuses lists the known statuses in workflow order.
var Statuses = []Status{
	StatusNotStarted,
	StatusInProgress,
	StatusDone,
	StatusHandedOff,
	StatusDeprecated,
	StatusWaitingReply,
	StatusWaitingTask,
}

// Priority is the urgency label of a task.
type Priority string

const (
	PriorityLow        Priority = "Low"
	PriorityMedium     Priority = "Medium"
	PriorityHigh       Priority = "High"
	PriorityToday      Priority = "Must Be Done Today"
	PrioritySomeday    Priority = "Someday"
	PriorityUnassigned Priority = "Unassigned"
)

// Priorities lists the known priorities from least to most urgent.
var Priorities = []Priority{
	PriorityUnassigned,
	PrioritySomeday,
	PriorityLow,
	PriorityMedium,
	PriorityHigh,
	PriorityToday,
}

// Zoom is the coarse time horizon a task is planned at.
type Zoom string

const (
	ZoomDay           Zoom = "Day"
	ZoomWeek          Zoom = "Week"
	ZoomMonth         Zoom = "Month"
	ZoomQuarter       Zoom = "Quarter"
	ZoomYear          Zoom = "Year"
	ZoomUncategorized Zoom = "Uncategorized"
)

// Zooms lists the ranked zoom levels from finest to coarsest.
var Zooms = []Zoom{ZoomDay, ZoomWeek, ZoomMonth, ZoomQuarter, ZoomYear}

// Defaults applied when a record carries no usable value.
const (
	DefaultName     = "Unnamed Task"
	DefaultStatus   = StatusNotStarted
	DefaultPriority = PriorityLow
	DefaultZoom     = ZoomUncategorized
)

// UnknownLabel is the histogram key for empty or unrecognised values.
const UnknownLabel = "Unknown"

// fold normalises case and inner whitespace so "Not  started" and
// "not started" compare equal.
func fold(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// ParseStatus maps s onto a known status ignoring case and spacing.
// Unrecognised values are returned trimmed but otherwise verbatim.
func ParseStatus(s string) Status {
	f := fold(s)
	for _, st := range Statuses {
		if fold(string(st)) == f {
			return st
		}
	}
	return Status(strings.TrimSpace(s))
}

// Known reports whether s is one of Statuses.
func (s Status) Known() bool {
	for _, st := range Statuses {
		if st == s {
			return true
		}
	}
	return false
}

// Label is the histogram key for s.
func (s Status) Label() string {
	if !s.Known() {
		return UnknownLabel
	}
	return string(s)
}

// ParsePriority maps s onto a known priority ignoring case and spacing.
func ParsePriority(s string) Priority {
	f := fold(s)
	for _, p := range Priorities {
		if fold(string(p)) == f {
			return p
		}
	}
	return Priority(strings.TrimSpace(s))
}

// Known reports whether p is one of Priorities.
func (p Priority) Known() bool {
	return p.Rank() >= 0
}

// Rank orders priorities by urgency; unknown priorities rank -1.
func (p Priority) Rank() int {
	for i, known := range Priorities {
		if known == p {
			return i
		}
	}
	return -1
}

// Label is the histogram key for p.
func (p Priority) Label() string {
	if !p.Known() {
		return UnknownLabel
	}
	return string(p)
}

// ParseZoom maps s onto a known zoom level ignoring case and spacing.
func ParseZoom(s string) Zoom {
	f := fold(s)
	if f == fold(string(ZoomUncategorized)) {
		return ZoomUncategorized
	}
	for _, z := range Zooms {
		if fold(string(z)) == f {
			return z
		}
	}
	return Zoom(strings.TrimSpace(s))
}

// Rank is 1 for Day up to 5 for Year, 0 for anything without a horizon.
func (z Zoom) Rank() int {
	for i, known := range Zooms {
		if known == z {
			return i + 1
		}
	}
	return 0
}

// Label is the histogram key for z.
func (z Zoom) Label() string {
	if z == "" {
		return UnknownLabel
	}
	return string(z)
}

// Task is the canonical, normalized task. Values are treated as immutable:
// edits go through With, and Children is only ever filled by the forest
// builders on their own copies.
type Task struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	Priority    Priority   `json:"priority"`
	Status      Status     `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	Zoom        Zoom       `json:"zoom"`
	ParentID    string     `json:"parentId,omitempty"`
	Children    []*Task    `json:"children,omitempty"`
	Properties  Properties `json:"properties,omitempty"`
}

// IsDone reports whether the task is completed.
func (t Task) IsDone() bool {
	return t.Status == StatusDone
}

// Overdue reports whether the task has a deadline strictly before now and
// is not done.
func (t Task) Overdue(now time.Time) bool {
	return t.DueDate != nil && t.DueDate.Before(now) && !t.IsDone()
}

// DueWithin reports whether the deadline falls in (now, now+window].
func (t Task) DueWithin(now time.Time, window time.Duration) bool {
	if t.DueDate == nil {
		return false
	}
	return t.DueDate.After(now) && !t.DueDate.After(now.Add(window))
}

// Update lists the fields to replace when deriving a new task version.
// Nil fields are left as they are.
type Update struct {
	Name         *string
	Description  *string
	DueDate      *time.Time
	ClearDueDate bool
	Priority     *Priority
	Status       *Status
	Zoom         *Zoom
	ParentID     *string
	Properties   Properties
}

// With returns a new version of t with u applied and UpdatedAt set to now.
// t itself is left untouched.
func (t Task) With(u Update, now time.Time) Task {
	next := t
	next.Children = nil
	if u.Name != nil {
		next.Name = *u.Name
	}
	if u.Description != nil {
		next.Description = *u.Description
	}
	if u.ClearDueDate {
		next.DueDate = nil
	} else if u.DueDate != nil {
		due := *u.DueDate
		next.DueDate = &due
	}
	if u.Priority != nil {
		next.Priority = *u.Priority
	}
	if u.Status != nil {
		next.Status = *u.Status
	}
	if u.Zoom != nil {
		next.Zoom = *u.Zoom
	}
	if u.ParentID != nil {
		next.ParentID = *u.ParentID
	}
	if u.Properties != nil {
		merged := make(Properties, len(t.Properties)+len(u.Properties))
		for k, v := range t.Properties {
			merged[k] = v
		}
		for k, v := range u.Properties {
			merged[k] = v
		}
		next.Properties = merged
	}
	next.UpdatedAt = now
	return next
}

// NewLocal fabricates a task that only lives in the local store. It is the
// only place an id is generated rather than taken from the source.
func NewLocal(name string, now time.Time) Task {
	if strings.TrimSpace(name) == "" {
		name = DefaultName
	}
	return Task{
		ID:         uuid.NewString(),
		Name:       name,
		Priority:   DefaultPriority,
		Status:     DefaultStatus,
		Zoom:       DefaultZoom,
		CreatedAt:  now,
		UpdatedAt:  now,
		Properties: Properties{},
	}
}
