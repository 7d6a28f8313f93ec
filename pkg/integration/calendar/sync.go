package calendar

import (
	"context"
	"fmt"
	"log"

	"github.com/mklimuk/orbit/pkg/db"
	"github.com/mklimuk/orbit/pkg/snapshot"
	"github.com/mklimuk/orbit/pkg/task"
)

// SyncStore remembers which event was published for which task.
type SyncStore interface {
	InsertCalendarSync(taskID, eventID, syncKey string) error
	GetCalendarSync(taskID string) (*db.CalendarSyncRecord, error)
	UpdateCalendarSync(taskID, syncKey string) error
	DeleteCalendarSync(taskID string) error
	ListCalendarSync() ([]db.CalendarSyncRecord, error)
}

// SnapshotSource serves the current task snapshot.
type SnapshotSource interface {
	Current() *snapshot.Snapshot
}

// Result counts the calendar writes of one sync.
type Result struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Deleted int `json:"deleted"`
}

// Syncer publishes open task deadlines to Google Calendar as all-day
// events and withdraws them once a task is closed, undated or gone.
//
// Syncer runs on demand; the server schedules it as an automation job.
type Syncer struct {
	service CalendarAPI
	repo    SyncStore
	snaps   SnapshotSource
}

// NewSyncer creates a new calendar syncer.
func NewSyncer(service CalendarAPI, repo SyncStore, snaps SnapshotSource) *Syncer {
	return &Syncer{service: service, repo: repo, snaps: snaps}
}

// SyncCurrent publishes the current snapshot. It does nothing before the
// first snapshot is loaded.
func (s *Syncer) SyncCurrent(ctx context.Context) (Result, error) {
	snap := s.snaps.Current()
	if snap == nil {
		return Result{}, nil
	}
	return s.Sync(ctx, snap.Tasks)
}

// Sync reconciles the calendar with tasks. Failures on single tasks are
// logged and skipped so one bad event does not block the rest.
func (s *Syncer) Sync(ctx context.Context, tasks []task.Task) (Result, error) {
	var res Result
	open := make(map[string]bool)
	for _, t := range tasks {
		if !Publishable(t) {
			continue
		}
		open[t.ID] = true
		key := SyncKey(t)
		rec, err := s.repo.GetCalendarSync(t.ID)
		if err != nil {
			return res, err
		}

		evt := EventFor(t)
		switch {
		case rec == nil:
			eventID, err := s.service.CreateEvent(ctx, evt)
			if err != nil {
				log.Printf("Calendar: create event for %s: %v", t.ID, err)
				continue
			}
			if err := s.repo.InsertCalendarSync(t.ID, eventID, key); err != nil {
				log.Printf("Calendar: insert sync for %s: %v", t.ID, err)
				continue
			}
			res.Created++
		case rec.SyncKey != key:
			if err := s.service.UpdateEvent(ctx, rec.EventID, evt); err != nil {
				log.Printf("Calendar: update event for %s: %v", t.ID, err)
				continue
			}
			if err := s.repo.UpdateCalendarSync(t.ID, key); err != nil {
				log.Printf("Calendar: update sync for %s: %v", t.ID, err)
				continue
			}
			res.Updated++
		}
	}

	published, err := s.repo.ListCalendarSync()
	if err != nil {
		return res, err
	}
	for _, rec := range published {
		if open[rec.TaskID] {
			continue
		}
		if err := s.service.DeleteEvent(ctx, rec.EventID); err != nil {
			log.Printf("Calendar: delete event for %s: %v", rec.TaskID, err)
			continue
		}
		if err := s.repo.DeleteCalendarSync(rec.TaskID); err != nil {
			log.Printf("Calendar: delete sync for %s: %v", rec.TaskID, err)
			continue
		}
		res.Deleted++
	}

	if res != (Result{}) {
		log.Printf("Calendar sync: %d created, %d updated, %d deleted", res.Created, res.Updated, res.Deleted)
	}
	return res, nil
}

// Publishable reports whether t should have a deadline event.
func Publishable(t task.Task) bool {
	if t.DueDate == nil {
		return false
	}
	switch t.Status {
	case task.StatusDone, task.StatusDeprecated, task.StatusHandedOff:
		return false
	}
	return true
}

// SyncKey changes whenever the published event would change.
func SyncKey(t task.Task) string {
	return fmt.Sprintf("%s|%s", t.Name, t.DueDate.Format(dateLayout))
}

// EventFor builds the deadline event of t.
func EventFor(t task.Task) Event {
	desc := t.Description
	if desc != "" {
		desc += "\n\n"
	}
	desc += fmt.Sprintf("Priority: %s\nZoom: %s", t.Priority, t.Zoom)
	return Event{
		Summary:     "Due: " + t.Name,
		Description: desc,
		Date:        *t.DueDate,
	}
}
