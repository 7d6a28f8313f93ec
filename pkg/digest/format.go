// Package digest renders task snapshots as short chat messages and answers
// the bot commands shared by the telegram and discord integrations.
package digest

import (
	"fmt"
	"strings"
	"time"

	"github.com/mklimuk/orbit/pkg/project"
	"github.com/mklimuk/orbit/pkg/task"
)

// DefaultListLimit caps task lists in chat replies.
const DefaultListLimit = 10

// FormatStats renders the headline figures.
func FormatStats(s project.Stats) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Tasks: %d total, %d done (%.0f%%)\n", s.TotalTasks, s.CompletedTasks, s.CompletionRate)
	fmt.Fprintf(&sb, "In progress: %d\n", s.InProgressTasks)
	fmt.Fprintf(&sb, "Overdue: %d\n", s.OverdueTasks)
	fmt.Fprintf(&sb, "Due this week: %d\n", s.UpcomingDeadlines)
	fmt.Fprintf(&sb, "Priority: %d high, %d medium, %d low", s.HighPriorityTasks, s.MediumPriorityTasks, s.LowPriorityTasks)
	return sb.String()
}

// FormatProjects renders one line per bucket of the report.
func FormatProjects(r project.Report) string {
	if len(r.Buckets) == 0 {
		return "No projects yet."
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Overall progress: %d%%\n", r.Progress)
	for _, b := range r.Buckets {
		fmt.Fprintf(&sb, "\n%s: %d%% (%d/%d done", b.Name, b.Progress, b.Stats.CompletedTasks, b.Stats.TotalTasks)
		if b.Stats.OverdueTasks > 0 {
			fmt.Fprintf(&sb, ", %d overdue", b.Stats.OverdueTasks)
		}
		sb.WriteString(")")
	}
	return sb.String()
}

// FormatTasks renders up to limit tasks under title, noting how many were
// left out. A limit of zero or less lists everything.
func FormatTasks(title string, tasks []task.Task, limit int) string {
	if len(tasks) == 0 {
		return title + ": none"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s (%d):", title, len(tasks))
	for i, t := range tasks {
		if limit > 0 && i == limit {
			fmt.Fprintf(&sb, "\n... and %d more", len(tasks)-limit)
			break
		}
		fmt.Fprintf(&sb, "\n- %s", t.Name)
		if t.DueDate != nil {
			fmt.Fprintf(&sb, " (due %s)", t.DueDate.Format("2006-01-02"))
		}
		if t.Priority == task.PriorityHigh || t.Priority == task.PriorityToday {
			fmt.Fprintf(&sb, " [%s]", t.Priority)
		}
	}
	return sb.String()
}

// Overdue returns the overdue tasks, earliest deadline first.
func Overdue(tasks []task.Task, now time.Time) []task.Task {
	var out []task.Task
	for _, t := range tasks {
		if t.Overdue(now) {
			out = append(out, t)
		}
	}
	return task.Sort{Field: task.SortByDueDate}.Apply(out)
}

// Upcoming returns tasks due within the upcoming window, earliest first.
func Upcoming(tasks []task.Task, now time.Time) []task.Task {
	var out []task.Task
	for _, t := range tasks {
		if t.DueWithin(now, project.UpcomingWindow) {
			out = append(out, t)
		}
	}
	return task.Sort{Field: task.SortByDueDate}.Apply(out)
}

// Compose builds the scheduled digest message.
func Compose(tasks []task.Task, now time.Time) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Orbit digest for %s\n\n", now.Format("Mon Jan 2"))
	sb.WriteString(FormatStats(project.ComputeStats(tasks, now)))
	sb.WriteString("\n\n")
	sb.WriteString(FormatTasks("Overdue", Overdue(tasks, now), DefaultListLimit))
	sb.WriteString("\n\n")
	sb.WriteString(FormatTasks("Due this week", Upcoming(tasks, now), DefaultListLimit))
	return sb.String()
}

// TruncateTitle shortens content to 20 characters for acknowledgements.
func TruncateTitle(content string) string {
	r := []rune(content)
	if len(r) > 20 {
		return string(r[:20]) + "..."
	}
	return content
}
