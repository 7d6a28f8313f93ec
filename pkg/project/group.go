// Package project buckets tasks by project and computes the dashboard
// rollups over a snapshot.
package project

import (
	"sort"

	"github.com/mklimuk/orbit/pkg/task"
)

// Bucket names produced by Classify.
const (
	BucketProjects = "Projects"
	BucketGoals    = "Goals"
	BucketOther    = "Other Tasks"
)

// Property keys consulted by Classify.
const (
	PropProjects = "Projects"
	PropGoals    = "Goals"
	PropClass    = "Class"
)

// displayOrder lists the buckets shown ahead of the alphabetical rest.
var displayOrder = []string{BucketProjects, BucketGoals, "Academics", "Admin", "House"}

// Classify picks the single bucket a task belongs to: a Projects relation
// wins over a Goals relation, which wins over the Class select.
func Classify(props task.PropertyReader) string {
	if len(props.Relation(PropProjects)) > 0 {
		return BucketProjects
	}
	if len(props.Relation(PropGoals)) > 0 {
		return BucketGoals
	}
	if class, ok := props.Select(PropClass); ok {
		return class
	}
	return BucketOther
}

// Groups maps bucket names to their tasks in input order.
type Groups map[string][]task.Task

// GroupByProject places every task in exactly one bucket.
func GroupByProject(tasks []task.Task) Groups {
	g := make(Groups)
	for _, t := range tasks {
		name := Classify(t.Properties)
		g[name] = append(g[name], t)
	}
	return g
}

// Names returns the bucket names in display order: the fixed leading
// buckets that are present, then the rest sorted lexicographically.
func (g Groups) Names() []string {
	names := make([]string, 0, len(g))
	for _, name := range displayOrder {
		if _, ok := g[name]; ok {
			names = append(names, name)
		}
	}
	var rest []string
	for name := range g {
		if displayRank(name) < 0 {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(names, rest...)
}

func displayRank(name string) int {
	for i, n := range displayOrder {
		if n == name {
			return i
		}
	}
	return -1
}
