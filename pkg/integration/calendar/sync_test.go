package calendar

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/mklimuk/orbit/pkg/db"
	"github.com/mklimuk/orbit/pkg/snapshot"
	"github.com/mklimuk/orbit/pkg/task"
)

// mockCalendarAPI is a test double for CalendarAPI.
type mockCalendarAPI struct {
	created []Event
	updated map[string]Event
	deleted []string
	failOn  string
	nextID  int
}

func newMockCalendarAPI() *mockCalendarAPI {
	return &mockCalendarAPI{updated: make(map[string]Event)}
}

func (m *mockCalendarAPI) CreateEvent(_ context.Context, e Event) (string, error) {
	if e.Summary == m.failOn {
		return "", errors.New("quota exceeded")
	}
	m.nextID++
	m.created = append(m.created, e)
	return fmt.Sprintf("evt-%d", m.nextID), nil
}

func (m *mockCalendarAPI) UpdateEvent(_ context.Context, eventID string, e Event) error {
	m.updated[eventID] = e
	return nil
}

func (m *mockCalendarAPI) DeleteEvent(_ context.Context, eventID string) error {
	m.deleted = append(m.deleted, eventID)
	return nil
}

func setupTestDB(t *testing.T) *db.Repository {
	t.Helper()
	database, err := db.NewDB(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	if err := database.InitSchema(); err != nil {
		t.Fatalf("failed to init schema: %v", err)
	}
	return db.NewRepository(database)
}

func due(day int) *time.Time {
	d := time.Date(2024, 6, day, 0, 0, 0, 0, time.UTC)
	return &d
}

func TestSyncLifecycle(t *testing.T) {
	api := newMockCalendarAPI()
	repo := setupTestDB(t)
	s := NewSyncer(api, repo, nil)
	ctx := context.Background()

	tasks := []task.Task{
		{ID: "a", Name: "Pay rent", DueDate: due(1), Status: task.StatusNotStarted},
		{ID: "b", Name: "Taxes", DueDate: due(15), Status: task.StatusInProgress},
		{ID: "c", Name: "Undated"},
		{ID: "d", Name: "Finished", DueDate: due(2), Status: task.StatusDone},
	}

	res, err := s.Sync(ctx, tasks)
	if err != nil {
		t.Fatalf("first sync: %v", err)
	}
	if res != (Result{Created: 2}) {
		t.Errorf("first sync result = %+v", res)
	}
	if len(api.created) != 2 || api.created[0].Summary != "Due: Pay rent" {
		t.Fatalf("unexpected created events %+v", api.created)
	}

	// unchanged input is a no-op
	res, _ = s.Sync(ctx, tasks)
	if res != (Result{}) {
		t.Errorf("second sync result = %+v", res)
	}

	// move a deadline and close the other task
	tasks[0].DueDate = due(3)
	tasks[1].Status = task.StatusDone
	res, err = s.Sync(ctx, tasks)
	if err != nil {
		t.Fatalf("third sync: %v", err)
	}
	if res != (Result{Updated: 1, Deleted: 1}) {
		t.Errorf("third sync result = %+v", res)
	}
	if e, ok := api.updated["evt-1"]; !ok || !e.Date.Equal(*due(3)) {
		t.Errorf("expected evt-1 moved to the 3rd, got %+v", api.updated)
	}
	if len(api.deleted) != 1 || api.deleted[0] != "evt-2" {
		t.Errorf("expected evt-2 deleted, got %v", api.deleted)
	}

	rec, _ := repo.GetCalendarSync("a")
	if rec == nil || rec.SyncKey != "Pay rent|2024-06-03" {
		t.Errorf("sync record = %+v", rec)
	}
	if rec, _ := repo.GetCalendarSync("b"); rec != nil {
		t.Errorf("expected b forgotten, got %+v", rec)
	}
}

func TestSyncSkipsFailingTask(t *testing.T) {
	api := newMockCalendarAPI()
	api.failOn = "Due: Broken"
	repo := setupTestDB(t)
	s := NewSyncer(api, repo, nil)

	res, err := s.Sync(context.Background(), []task.Task{
		{ID: "x", Name: "Broken", DueDate: due(1)},
		{ID: "y", Name: "Fine", DueDate: due(2)},
	})
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if res.Created != 1 {
		t.Errorf("created = %d", res.Created)
	}
	if rec, _ := repo.GetCalendarSync("x"); rec != nil {
		t.Error("failed task should not be recorded")
	}
}

type staticSnapshots struct{ snap *snapshot.Snapshot }

func (s staticSnapshots) Current() *snapshot.Snapshot { return s.snap }

func TestSyncCurrent(t *testing.T) {
	api := newMockCalendarAPI()
	s := NewSyncer(api, setupTestDB(t), staticSnapshots{})
	if res, err := s.SyncCurrent(context.Background()); err != nil || res != (Result{}) {
		t.Fatalf("sync without snapshot = %+v, %v", res, err)
	}

	s.snaps = staticSnapshots{&snapshot.Snapshot{Tasks: []task.Task{{ID: "a", Name: "A", DueDate: due(9)}}}}
	res, err := s.SyncCurrent(context.Background())
	if err != nil || res.Created != 1 {
		t.Fatalf("sync = %+v, %v", res, err)
	}
}

func TestToGCalEventIsAllDay(t *testing.T) {
	e := toGCalEvent(EventFor(task.Task{Name: "Taxes", DueDate: due(30), Priority: task.PriorityHigh, Zoom: task.ZoomMonth}))
	if e.Start.Date != "2024-06-30" || e.End.Date != "2024-07-01" {
		t.Errorf("dates = %s..%s", e.Start.Date, e.End.Date)
	}
	if e.Start.DateTime != "" {
		t.Error("all-day events must not carry a time")
	}
	if e.Description != "Priority: High\nZoom: Month" {
		t.Errorf("description = %q", e.Description)
	}
}
