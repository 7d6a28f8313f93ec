package task

import (
	"sort"
	"strings"
	"time"
)

// Filter selects tasks. Empty members match everything.
type Filter struct {
	Statuses   []Status
	Priorities []Priority
	Zooms      []Zoom
	// DueAfter and DueBefore bound the deadline inclusively. Tasks without
	// a deadline are kept.
	DueAfter  *time.Time
	DueBefore *time.Time
	// Search matches name or description, case-insensitively.
	Search string
}

// Match reports whether t passes every condition of f.
func (f Filter) Match(t Task) bool {
	if len(f.Statuses) > 0 && !contains(f.Statuses, t.Status) {
		return false
	}
	if len(f.Priorities) > 0 && !contains(f.Priorities, t.Priority) {
		return false
	}
	if len(f.Zooms) > 0 && !contains(f.Zooms, t.Zoom) {
		return false
	}
	if t.DueDate != nil {
		if f.DueAfter != nil && t.DueDate.Before(*f.DueAfter) {
			return false
		}
		if f.DueBefore != nil && t.DueDate.After(*f.DueBefore) {
			return false
		}
	}
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		if !strings.Contains(strings.ToLower(t.Name), q) &&
			!strings.Contains(strings.ToLower(t.Description), q) {
			return false
		}
	}
	return true
}

// Apply returns the tasks matching f, in input order.
func (f Filter) Apply(tasks []Task) []Task {
	out := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		if f.Match(t) {
			out = append(out, t)
		}
	}
	return out
}

func contains[T comparable](list []T, v T) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

// SortField names the key tasks can be ordered by.
type SortField string

const (
	SortByName      SortField = "name"
	SortByDueDate   SortField = "dueDate"
	SortByCreatedAt SortField = "createdAt"
	SortByUpdatedAt SortField = "updatedAt"
	SortByPriority  SortField = "priority"
	SortByStatus    SortField = "status"
)

// ParseSortField accepts the field names above; anything else is rejected.
func ParseSortField(s string) (SortField, bool) {
	switch f := SortField(s); f {
	case SortByName, SortByDueDate, SortByCreatedAt, SortByUpdatedAt, SortByPriority, SortByStatus:
		return f, true
	}
	return "", false
}

// Sort orders tasks by one field.
type Sort struct {
	Field SortField
	Desc  bool
}

// Apply returns a sorted copy of tasks. The sort is stable and tasks that
// lack the key (no deadline, unknown priority or status) come last in both
// directions.
func (s Sort) Apply(tasks []Task) []Task {
	out := make([]Task, len(tasks))
	copy(out, tasks)
	if s.Field == "" {
		return out
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		aok, bok := s.has(a), s.has(b)
		if aok != bok {
			return aok
		}
		if !aok {
			return false
		}
		c := s.compare(a, b)
		if s.Desc {
			return c > 0
		}
		return c < 0
	})
	return out
}

func (s Sort) has(t Task) bool {
	switch s.Field {
	case SortByDueDate:
		return t.DueDate != nil
	case SortByPriority:
		return t.Priority.Known()
	case SortByStatus:
		return t.Status.Known()
	case SortByCreatedAt:
		return !t.CreatedAt.IsZero()
	case SortByUpdatedAt:
		return !t.UpdatedAt.IsZero()
	}
	return true
}

func (s Sort) compare(a, b Task) int {
	switch s.Field {
	case SortByName:
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	case SortByDueDate:
		return a.DueDate.Compare(*b.DueDate)
	case SortByCreatedAt:
		return a.CreatedAt.Compare(b.CreatedAt)
	case SortByUpdatedAt:
		return a.UpdatedAt.Compare(b.UpdatedAt)
	case SortByPriority:
		return a.Priority.Rank() - b.Priority.Rank()
	case SortByStatus:
		return statusIndex(a.Status) - statusIndex(b.Status)
	}
	return 0
}

func statusIndex(s Status) int {
	for i, st := range Statuses {
		if st == s {
			return i
		}
	}
	return -1
}

// Recent returns up to limit tasks, newest CreatedAt first. A limit of zero
// or less returns all of them.
func Recent(tasks []Task, limit int) []Task {
	out := Sort{Field: SortByCreatedAt, Desc: true}.Apply(tasks)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
