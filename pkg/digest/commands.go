package digest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/mklimuk/orbit/pkg/project"
	"github.com/mklimuk/orbit/pkg/snapshot"
	"github.com/mklimuk/orbit/pkg/task"
)

// Command names understood by the bots, without their prefix.
const (
	CmdStats    = "stats"
	CmdProjects = "projects"
	CmdOverdue  = "overdue"
	CmdUpcoming = "upcoming"
	CmdAdd      = "add"
	CmdStatus   = "status"
	CmdHelp     = "help"
)

// Snapshots serves the current snapshot and can force a reload.
type Snapshots interface {
	Current() *snapshot.Snapshot
	Refresh(ctx context.Context) error
}

// TaskWriter creates and persists locally captured tasks.
type TaskWriter interface {
	Create(name string, u task.Update) task.Task
	Commit(ctx context.Context, change func() error) error
}

// Commands answers bot commands from the current snapshot.
type Commands struct {
	Snapshots Snapshots
	// Tasks may be nil, in which case add is refused.
	Tasks TaskWriter
	now   func() time.Time
}

// NewCommands creates a command handler.
func NewCommands(snaps Snapshots, tasks TaskWriter) *Commands {
	return &Commands{Snapshots: snaps, Tasks: tasks, now: time.Now}
}

// ParseCommand splits text into a command and its argument when text
// starts with prefix, e.g. "/add Buy milk" gives ("add", "Buy milk").
// Anything else yields an empty command.
func ParseCommand(prefix, text string) (command, args string) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, prefix) {
		return "", text
	}
	rest := strings.TrimPrefix(text, prefix)
	command, args, _ = strings.Cut(rest, " ")
	// telegram appends the bot name in groups: /stats@orbit_bot
	command, _, _ = strings.Cut(command, "@")
	return strings.ToLower(command), strings.TrimSpace(args)
}

// Handle answers command. ok is false for commands it does not know.
func (c *Commands) Handle(ctx context.Context, command, args string) (reply string, ok bool) {
	switch command {
	case CmdStatus:
		return c.status(), true
	case CmdHelp:
		return help, true
	case CmdAdd:
		return c.add(ctx, args), true
	case CmdStats, CmdProjects, CmdOverdue, CmdUpcoming:
	default:
		return "", false
	}

	snap := c.Snapshots.Current()
	if snap == nil {
		return "No tasks loaded yet, try again shortly.", true
	}
	now := c.now()
	switch command {
	case CmdStats:
		return FormatStats(project.ComputeStats(snap.Tasks, now)), true
	case CmdProjects:
		return FormatProjects(project.Rollup(snap.Tasks, now)), true
	case CmdOverdue:
		return FormatTasks("Overdue", Overdue(snap.Tasks, now), DefaultListLimit), true
	default:
		return FormatTasks("Due this week", Upcoming(snap.Tasks, now), DefaultListLimit), true
	}
}

// Digest composes the scheduled digest from the current snapshot.
func (c *Commands) Digest() (string, error) {
	snap := c.Snapshots.Current()
	if snap == nil {
		return "", errors.New("no snapshot loaded")
	}
	return Compose(snap.Tasks, c.now()), nil
}

func (c *Commands) status() string {
	snap := c.Snapshots.Current()
	if snap == nil {
		return "Orbit is online. Waiting for the first snapshot."
	}
	return fmt.Sprintf("Orbit is online. %d tasks as of %s.", len(snap.Tasks), snap.TakenAt.Format("15:04"))
}

func (c *Commands) add(ctx context.Context, name string) string {
	if c.Tasks == nil {
		return "Adding tasks is disabled."
	}
	if name == "" {
		return "Usage: add <task name>"
	}
	err := c.Tasks.Commit(ctx, func() error {
		c.Tasks.Create(name, task.Update{})
		return nil
	})
	if err != nil {
		log.Printf("Digest: failed to save task %q: %v", name, err)
		return fmt.Sprintf("Error saving task: %v", err)
	}
	if err := c.Snapshots.Refresh(ctx); err != nil {
		log.Printf("Digest: refresh after add failed: %v", err)
	}
	return "Added: " + TruncateTitle(name)
}

const help = `Commands:
stats - headline figures
projects - progress per project
overdue - overdue tasks
upcoming - tasks due this week
add <name> - capture a task
status - bot status`
