package project

import (
	"math"
	"time"

	"github.com/mklimuk/orbit/pkg/task"
)

// UpcomingWindow is how far ahead a deadline counts as upcoming.
const UpcomingWindow = 7 * 24 * time.Hour

// Stats is the aggregate view of a set of tasks.
type Stats struct {
	TotalTasks          int            `json:"totalTasks"`
	CompletedTasks      int            `json:"completedTasks"`
	InProgressTasks     int            `json:"inProgressTasks"`
	OverdueTasks        int            `json:"overdueTasks"`
	UpcomingDeadlines   int            `json:"upcomingDeadlines"`
	CompletionRate      float64        `json:"completionRate"`
	HighPriorityTasks   int            `json:"highPriorityTasks"`
	MediumPriorityTasks int            `json:"mediumPriorityTasks"`
	LowPriorityTasks    int            `json:"lowPriorityTasks"`
	ByStatus            map[string]int `json:"byStatus"`
	ByPriority          map[string]int `json:"byPriority"`
}

// ComputeStats aggregates tasks as of now. CompletionRate is a percentage
// and is 0 for an empty input.
func ComputeStats(tasks []task.Task, now time.Time) Stats {
	s := Stats{
		TotalTasks: len(tasks),
		ByStatus:   make(map[string]int),
		ByPriority: make(map[string]int),
	}
	for _, t := range tasks {
		switch t.Status {
		case task.StatusDone:
			s.CompletedTasks++
		case task.StatusInProgress:
			s.InProgressTasks++
		}
		switch t.Priority {
		case task.PriorityHigh:
			s.HighPriorityTasks++
		case task.PriorityMedium:
			s.MediumPriorityTasks++
		case task.PriorityLow:
			s.LowPriorityTasks++
		}
		if t.Overdue(now) {
			s.OverdueTasks++
		}
		if t.DueWithin(now, UpcomingWindow) {
			s.UpcomingDeadlines++
		}
		s.ByStatus[t.Status.Label()]++
		s.ByPriority[t.Priority.Label()]++
	}
	s.CompletionRate = rate(s.CompletedTasks, s.TotalTasks)
	return s
}

func rate(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

// TaskProgress is 100 for a done task, 50 in progress and 0 otherwise.
func TaskProgress(t task.Task) int {
	switch t.Status {
	case task.StatusDone:
		return 100
	case task.StatusInProgress:
		return 50
	}
	return 0
}

// Progress is the rounded mean TaskProgress, 0 for no tasks.
func Progress(tasks []task.Task) int {
	if len(tasks) == 0 {
		return 0
	}
	sum := 0
	for _, t := range tasks {
		sum += TaskProgress(t)
	}
	return int(math.Round(float64(sum) / float64(len(tasks))))
}
