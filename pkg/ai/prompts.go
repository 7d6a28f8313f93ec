package ai

import (
	"fmt"
	"strings"

	"github.com/mklimuk/orbit/pkg/project"
	"github.com/mklimuk/orbit/pkg/task"
)

// SystemPrompt frames every generation.
const SystemPrompt = `You are a personal productivity assistant. You read task statistics from a
Notion-based task system and write short, concrete, encouraging reviews.
Never invent tasks or numbers that are not in the input.`

// maxOverdueListed caps the overdue task names sent in a prompt.
const maxOverdueListed = 15

// ReviewPrompt returns a prompt asking for a review of the project rollup.
func ReviewPrompt(report project.Report) string {
	var sb strings.Builder
	s := report.Stats
	fmt.Fprintf(&sb, "Snapshot taken %s.\n\n", report.GeneratedAt.Format("2006-01-02 15:04"))
	fmt.Fprintf(&sb, "Overall: %d tasks, %d done (%.0f%%), %d in progress, %d overdue, %d due in the next 7 days. Progress %d%%.\n\n",
		s.TotalTasks, s.CompletedTasks, s.CompletionRate, s.InProgressTasks, s.OverdueTasks, s.UpcomingDeadlines, report.Progress)

	sb.WriteString("Per project:\n")
	for _, b := range report.Buckets {
		fmt.Fprintf(&sb, "- %s: %d tasks, %d done, %d in progress, %d overdue, progress %d%%\n",
			b.Name, b.Stats.TotalTasks, b.Stats.CompletedTasks, b.Stats.InProgressTasks, b.Stats.OverdueTasks, b.Progress)
	}

	var overdue []string
	for _, b := range report.Buckets {
		for _, t := range b.Tasks {
			if t.Overdue(report.GeneratedAt) && len(overdue) < maxOverdueListed {
				overdue = append(overdue, fmt.Sprintf("- %s (%s, due %s)", t.Name, b.Name, t.DueDate.Format("2006-01-02")))
			}
		}
	}
	if len(overdue) > 0 {
		sb.WriteString("\nOverdue tasks:\n")
		sb.WriteString(strings.Join(overdue, "\n"))
		sb.WriteString("\n")
	}

	sb.WriteString(`
Instructions:
1. Summarize where things stand in two or three sentences.
2. Name the projects that need attention and why.
3. Suggest 3 priorities for the coming week, preferring overdue and high priority work.

Output as Markdown.
`)
	return sb.String()
}

// CleanJSON strips the markdown code fences models like to wrap JSON in.
func CleanJSON(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// TaskPrompt asks the model to turn free text into a task draft, answered
// as JSON with name, description, priority and zoom.
func TaskPrompt(content string) string {
	return fmt.Sprintf(`Turn the following note into a single task.

Input: %q

Reply with JSON only:
{
  "name": "a concise task name",
  "description": "one or two sentences",
  "priority": one of %s,
  "zoom": one of %s
}
`, content, quoted(task.Priorities), quoted(task.Zooms))
}

func quoted[T ~string](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%q", string(v))
	}
	return strings.Join(parts, ", ")
}
