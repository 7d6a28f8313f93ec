package project

import (
	"time"

	"github.com/mklimuk/orbit/pkg/task"
)

// Bucket is one project group of a Report.
type Bucket struct {
	Name     string       `json:"name"`
	Tasks    []task.Task  `json:"-"`
	Forest   []*task.Task `json:"tasks"`
	Stats    Stats        `json:"stats"`
	Progress int          `json:"progress"`
}

// Report is the projects dashboard computed from one snapshot.
type Report struct {
	GeneratedAt time.Time `json:"generatedAt"`
	Stats       Stats     `json:"stats"`
	Progress    int       `json:"progress"`
	Buckets     []Bucket  `json:"buckets"`
}

// Rollup groups tasks, builds each bucket's forest and computes the
// global and per-bucket figures. Parents in another bucket are not
// followed, so such children become roots of their own bucket.
func Rollup(tasks []task.Task, now time.Time, opts ...task.Option) Report {
	groups := GroupByProject(tasks)
	r := Report{
		GeneratedAt: now,
		Stats:       ComputeStats(tasks, now),
		Progress:    Progress(tasks),
		Buckets:     make([]Bucket, 0, len(groups)),
	}
	for _, name := range groups.Names() {
		members := groups[name]
		r.Buckets = append(r.Buckets, Bucket{
			Name:     name,
			Tasks:    members,
			Forest:   task.BuildForest(members, opts...),
			Stats:    ComputeStats(members, now),
			Progress: Progress(members),
		})
	}
	return r
}

// Bucket returns the named bucket.
func (r Report) Bucket(name string) (Bucket, bool) {
	for _, b := range r.Buckets {
		if b.Name == name {
			return b, true
		}
	}
	return Bucket{}, false
}
