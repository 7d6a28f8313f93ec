package project

import "github.com/mklimuk/orbit/pkg/task"

// PropEffort is the select property holding the level of effort.
const PropEffort = "Level of Effort"

// Analytics are the histograms of the analytics dashboard.
type Analytics struct {
	TotalTasks     int            `json:"totalTasks"`
	ByStatus       map[string]int `json:"byStatus"`
	ByPriority     map[string]int `json:"byPriority"`
	ByZoom         map[string]int `json:"byZoom"`
	ByEffort       map[string]int `json:"byEffort"`
	CompletionRate float64        `json:"completionRate"`
}

// Analyze builds the histograms. Only tasks carrying a Level of Effort
// property are counted in ByEffort; one without a value counts as Unknown.
func Analyze(tasks []task.Task) Analytics {
	a := Analytics{
		TotalTasks: len(tasks),
		ByStatus:   make(map[string]int),
		ByPriority: make(map[string]int),
		ByZoom:     make(map[string]int),
		ByEffort:   make(map[string]int),
	}
	done := 0
	for _, t := range tasks {
		if t.IsDone() {
			done++
		}
		a.ByStatus[t.Status.Label()]++
		a.ByPriority[t.Priority.Label()]++
		a.ByZoom[t.Zoom.Label()]++
		if t.Properties.Has(PropEffort) {
			effort, ok := t.Properties.Select(PropEffort)
			if !ok {
				effort = task.UnknownLabel
			}
			a.ByEffort[effort]++
		}
	}
	a.CompletionRate = rate(done, len(tasks))
	return a
}
