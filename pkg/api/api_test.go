package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mklimuk/orbit/pkg/automation"
	"github.com/mklimuk/orbit/pkg/db"
	"github.com/mklimuk/orbit/pkg/integration/calendar"
	"github.com/mklimuk/orbit/pkg/project"
	"github.com/mklimuk/orbit/pkg/snapshot"
	"github.com/mklimuk/orbit/pkg/store"
	"github.com/mklimuk/orbit/pkg/task"
)

// MockGenerator implements ai.Generator for testing
type MockGenerator struct {
	Response string
	Err      error
	Prompts  []string
}

func (m *MockGenerator) GenerateText(ctx context.Context, prompt string) (string, error) {
	m.Prompts = append(m.Prompts, prompt)
	return m.Response, m.Err
}

// staticSource plays the remote database.
type staticSource struct {
	records []task.RawRecord
	err     error
}

func (s *staticSource) Name() string { return "notion" }

func (s *staticSource) Fetch(ctx context.Context) ([]task.RawRecord, error) {
	return s.records, s.err
}

var testNow = time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	router  http.Handler
	handler *Handler
	store   *store.Store
	repo    *db.Repository
	remote  *staticSource
}

func setup(t *testing.T) *testEnv {
	t.Helper()
	database, err := db.NewDB(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { database.Close() })
	if err := database.InitSchema(); err != nil {
		t.Fatal(err)
	}
	repo := db.NewRepository(database)

	remote := &staticSource{records: []task.RawRecord{
		{"id": "n1", "name": "Pay rent", "status": "Done", "priority": "High", "zoom": "Month"},
		{"id": "n2", "name": "File taxes", "status": "Not started", "priority": "High", "dueDate": "2024-06-01", "zoom": "Week", "parentId": "n1"},
		{"id": "n3", "name": "Read paper", "status": "In progress", "priority": "Low", "dueDate": "2024-06-12"},
		{"name": "no id"},
	}}
	local := store.New(repo)
	refresher := snapshot.NewRefresher(snapshot.NewLoader(nil, remote, local), repo, time.Hour)
	if err := refresher.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}

	h := &Handler{Snapshots: refresher, Store: local, History: repo}
	h.now = func() time.Time { return testNow }
	return &testEnv{router: NewRouter(h), handler: h, store: local, repo: repo, remote: remote}
}

func (e *testEnv) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeTasks(t *testing.T, w *httptest.ResponseRecorder) []task.Task {
	t.Helper()
	var tasks []task.Task
	if err := json.Unmarshal(w.Body.Bytes(), &tasks); err != nil {
		t.Fatalf("decode: %v (%s)", err, w.Body.String())
	}
	return tasks
}

func names(tasks []task.Task) string {
	var out []string
	for _, t := range tasks {
		out = append(out, t.Name)
	}
	return strings.Join(out, ",")
}

func TestListTasks(t *testing.T) {
	env := setup(t)

	tests := []struct {
		name   string
		target string
		status int
		want   string
	}{
		{"all", "/tasks", http.StatusOK, "Pay rent,File taxes,Read paper"},
		{"status filter", "/tasks?status=not+started,in+progress", http.StatusOK, "File taxes,Read paper"},
		{"priority repeated", "/tasks?priority=high&priority=medium", http.StatusOK, "Pay rent,File taxes"},
		{"search", "/tasks?q=TAX", http.StatusOK, "File taxes"},
		{"due window", "/tasks?due_after=2024-06-05&status=in+progress", http.StatusOK, "Read paper"},
		{"sort desc with limit", "/tasks?sort=dueDate&order=desc&limit=1", http.StatusOK, "Read paper"},
		{"bad sort", "/tasks?sort=color", http.StatusBadRequest, ""},
		{"bad order", "/tasks?order=up", http.StatusBadRequest, ""},
		{"bad limit", "/tasks?limit=-1", http.StatusBadRequest, ""},
		{"bad date", "/tasks?due_before=soon", http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, "GET", tt.target, nil)
			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.status, w.Body.String())
			}
			if tt.status == http.StatusOK {
				if got := names(decodeTasks(t, w)); got != tt.want {
					t.Errorf("got %q, want %q", got, tt.want)
				}
			}
		})
	}
}

func TestForestAndRollups(t *testing.T) {
	env := setup(t)

	w := env.do(t, "GET", "/tasks/forest", nil)
	forest := decodeTasks(t, w)
	if len(forest) != 2 || len(forest[0].Children) != 1 || forest[0].Children[0].ID != "n2" {
		t.Errorf("unexpected forest %s", w.Body.String())
	}
	if w := env.do(t, "GET", "/tasks/forest?mode=zoom", nil); w.Code != http.StatusOK {
		t.Errorf("zoom forest status %d", w.Code)
	}
	if w := env.do(t, "GET", "/tasks/forest?mode=tree", nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad mode status %d", w.Code)
	}

	var stats project.Stats
	json.Unmarshal(env.do(t, "GET", "/stats", nil).Body.Bytes(), &stats)
	if stats.TotalTasks != 3 || stats.OverdueTasks != 1 || stats.UpcomingDeadlines != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}

	var report project.Report
	json.Unmarshal(env.do(t, "GET", "/projects", nil).Body.Bytes(), &report)
	if len(report.Buckets) != 1 || report.Buckets[0].Name != project.BucketOther || report.Progress != 50 {
		t.Errorf("unexpected report %+v", report)
	}

	var analytics project.Analytics
	json.Unmarshal(env.do(t, "GET", "/analytics", nil).Body.Bytes(), &analytics)
	if analytics.ByZoom["Uncategorized"] != 1 {
		t.Errorf("unexpected analytics %+v", analytics)
	}

	var history []db.StatsRecord
	json.Unmarshal(env.do(t, "GET", "/history?limit=5", nil).Body.Bytes(), &history)
	if len(history) != 1 || history[0].Rejected != 1 {
		t.Errorf("unexpected history %+v", history)
	}

	recent := decodeTasks(t, env.do(t, "GET", "/tasks/recent?limit=2", nil))
	if len(recent) != 2 {
		t.Errorf("recent = %d tasks", len(recent))
	}
}

func TestLocalTaskLifecycle(t *testing.T) {
	env := setup(t)

	w := env.do(t, "POST", "/local-tasks", map[string]any{
		"name":     "  Renew passport ",
		"dueDate":  "2024-07-01",
		"priority": "medium",
		"class":    "Admin",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d (%s)", w.Code, w.Body.String())
	}
	var created task.Task
	json.Unmarshal(w.Body.Bytes(), &created)
	if created.Name != "Renew passport" || created.Priority != task.PriorityMedium || created.DueDate == nil {
		t.Errorf("unexpected task %+v", created)
	}

	// the snapshot is republished with the new task
	all := decodeTasks(t, env.do(t, "GET", "/tasks?q=passport", nil))
	if len(all) != 1 {
		t.Fatalf("new task not in snapshot: %v", names(all))
	}
	var report project.Report
	json.Unmarshal(env.do(t, "GET", "/projects", nil).Body.Bytes(), &report)
	if _, ok := report.Bucket("Admin"); !ok {
		t.Error("expected Admin bucket for the local task")
	}

	// and persisted
	saved, err := env.repo.LoadTasks(context.Background())
	if err != nil || len(saved) != 1 {
		t.Fatalf("saved = %v, %v", saved, err)
	}

	w = env.do(t, "PATCH", "/local-tasks/"+created.ID, map[string]any{"status": "Done", "dueDate": ""})
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d (%s)", w.Code, w.Body.String())
	}
	var updated task.Task
	json.Unmarshal(w.Body.Bytes(), &updated)
	if updated.Status != task.StatusDone || updated.DueDate != nil || updated.Name != "Renew passport" {
		t.Errorf("unexpected update %+v", updated)
	}

	if w := env.do(t, "PATCH", "/local-tasks/"+created.ID, map[string]any{"name": " "}); w.Code != http.StatusBadRequest {
		t.Errorf("blank name status = %d", w.Code)
	}
	if w := env.do(t, "PATCH", "/local-tasks/missing", map[string]any{}); w.Code != http.StatusNotFound {
		t.Errorf("missing update status = %d", w.Code)
	}

	local := decodeTasks(t, env.do(t, "GET", "/local-tasks?status=done", nil))
	if len(local) != 1 {
		t.Errorf("local list = %v", names(local))
	}

	if w := env.do(t, "DELETE", "/local-tasks/"+created.ID, nil); w.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", w.Code)
	}
	if w := env.do(t, "DELETE", "/local-tasks/"+created.ID, nil); w.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d", w.Code)
	}
	if n := len(decodeTasks(t, env.do(t, "GET", "/tasks", nil))); n != 3 {
		t.Errorf("snapshot has %d tasks after delete", n)
	}
}

func TestCreateLocalTaskValidation(t *testing.T) {
	env := setup(t)
	tests := []struct {
		name string
		body any
	}{
		{"missing name", map[string]any{"priority": "High"}},
		{"bad date", map[string]any{"name": "x", "dueDate": "someday"}},
		{"not json", "not an object"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := env.do(t, "POST", "/local-tasks", tt.body); w.Code != http.StatusBadRequest {
				t.Errorf("status = %d", w.Code)
			}
		})
	}
	if env.store.Len() != 0 {
		t.Error("no task should have been created")
	}
}

func TestInbox(t *testing.T) {
	tests := []struct {
		name     string
		ai       *MockGenerator
		wantName string
		wantZoom task.Zoom
	}{
		{"no ai keeps content", nil, "buy milk tomorrow", task.DefaultZoom},
		{"ai draft", &MockGenerator{Response: "```json\n{\"name\": \"Buy milk\", \"priority\": \"High\", \"zoom\": \"Day\"}\n```"}, "Buy milk", task.ZoomDay},
		{"invalid ai reply", &MockGenerator{Response: "Sure! Here you go."}, "buy milk tomorrow", task.DefaultZoom},
		{"ai error", &MockGenerator{Err: errors.New("quota")}, "buy milk tomorrow", task.DefaultZoom},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setup(t)
			if tt.ai != nil {
				env.handler.AI = tt.ai
			}
			w := env.do(t, "POST", "/inbox", map[string]string{"content": "buy milk tomorrow"})
			if w.Code != http.StatusCreated {
				t.Fatalf("status = %d (%s)", w.Code, w.Body.String())
			}
			var created task.Task
			json.Unmarshal(w.Body.Bytes(), &created)
			if created.Name != tt.wantName || created.Zoom != tt.wantZoom {
				t.Errorf("created %+v", created)
			}
		})
	}

	env := setup(t)
	if w := env.do(t, "POST", "/inbox", map[string]string{"content": "  "}); w.Code != http.StatusBadRequest {
		t.Errorf("empty content status = %d", w.Code)
	}
}

func TestReview(t *testing.T) {
	env := setup(t)
	if w := env.do(t, "POST", "/review", nil); w.Code != http.StatusNotImplemented {
		t.Errorf("status without AI = %d", w.Code)
	}

	gen := &MockGenerator{Response: "## Review\nAll good"}
	env.handler.AI = gen
	w := env.do(t, "POST", "/review", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "All good") {
		t.Errorf("body = %s", w.Body.String())
	}
	if len(gen.Prompts) != 1 || !strings.Contains(gen.Prompts[0], "File taxes") {
		t.Errorf("prompt did not list the overdue task")
	}

	gen.Err = errors.New("boom")
	if w := env.do(t, "POST", "/review", nil); w.Code != http.StatusInternalServerError {
		t.Errorf("status on AI error = %d", w.Code)
	}
}

func TestRefreshKeepsLastSnapshot(t *testing.T) {
	env := setup(t)
	env.remote.records = append(env.remote.records, task.RawRecord{"id": "n4", "name": "New"})
	w := env.do(t, "POST", "/refresh", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"tasks":4`) {
		t.Fatalf("refresh = %d %s", w.Code, w.Body.String())
	}

	env.remote.err = errors.New("notion down")
	if w := env.do(t, "POST", "/refresh", nil); w.Code != http.StatusBadGateway {
		t.Errorf("failed refresh status = %d", w.Code)
	}
	if n := len(decodeTasks(t, env.do(t, "GET", "/tasks", nil))); n != 4 {
		t.Errorf("snapshot has %d tasks, want the previous 4", n)
	}
}

func TestNoSnapshotYet(t *testing.T) {
	remote := &staticSource{err: errors.New("unreachable")}
	refresher := snapshot.NewRefresher(snapshot.NewLoader(nil, remote), nil, time.Hour)
	refresher.Refresh(context.Background())
	router := NewRouter(&Handler{Snapshots: refresher})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/stats", nil))
	if w.Code != http.StatusServiceUnavailable || !strings.Contains(w.Body.String(), "unreachable") {
		t.Errorf("status = %d body = %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("POST", "/local-tasks", strings.NewReader(`{"name":"x"}`)))
	if w.Code != http.StatusNotImplemented {
		t.Errorf("local tasks without store = %d", w.Code)
	}
}

type fakeCalendar struct{ calls int }

func (f *fakeCalendar) SyncCurrent(ctx context.Context) (calendar.Result, error) {
	f.calls++
	return calendar.Result{Created: 2}, nil
}

func TestJobsAndCalendar(t *testing.T) {
	env := setup(t)
	if w := env.do(t, "GET", "/jobs", nil); w.Code != http.StatusNotImplemented {
		t.Errorf("jobs without scheduler = %d", w.Code)
	}

	cal := &fakeCalendar{}
	jobs := automation.NewService(time.Minute)
	jobs.Add(automation.Job{Name: "calendar-sync", Schedule: automation.MustParse("@every 15m"), Run: func(ctx context.Context) error {
		_, err := cal.SyncCurrent(ctx)
		return err
	}})
	env.handler.Jobs = jobs
	env.handler.Calendar = cal

	w := env.do(t, "GET", "/jobs", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"name":"calendar-sync"`) {
		t.Errorf("jobs = %d %s", w.Code, w.Body.String())
	}
	if w := env.do(t, "POST", "/jobs/calendar-sync/run-now", nil); w.Code != http.StatusOK || cal.calls != 1 {
		t.Errorf("run-now = %d, calls = %d", w.Code, cal.calls)
	}
	if w := env.do(t, "POST", "/jobs/unknown/run-now", nil); w.Code != http.StatusNotFound {
		t.Errorf("unknown job = %d", w.Code)
	}
	w = env.do(t, "POST", "/calendar/sync", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"created":2`) {
		t.Errorf("calendar sync = %d %s", w.Code, w.Body.String())
	}
}

type failingBackend struct{}

func (failingBackend) LoadTasks(ctx context.Context) ([]task.Task, error) { return nil, nil }

func (failingBackend) SaveTasks(ctx context.Context, tasks []task.Task) error {
	return errors.New("disk full")
}

func TestLocalTaskSaveFailureLeavesStoreUnchanged(t *testing.T) {
	env := setup(t)
	local := store.New(failingBackend{})
	kept := local.Create("Water plants", task.Update{})
	env.handler.Store = local

	tests := []struct {
		name   string
		method string
		target string
		body   any
	}{
		{"create", "POST", "/local-tasks", map[string]any{"name": "Renew passport"}},
		{"inbox", "POST", "/inbox", map[string]any{"content": "call the bank"}},
		{"update", "PATCH", "/local-tasks/" + kept.ID, map[string]any{"name": "Water cactus"}},
		{"delete", "DELETE", "/local-tasks/" + kept.ID, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, tt.method, tt.target, tt.body)
			if w.Code != http.StatusInternalServerError {
				t.Fatalf("status = %d (%s)", w.Code, w.Body.String())
			}
			if local.Len() != 1 {
				t.Fatalf("store holds %d tasks, want 1", local.Len())
			}
			got, err := local.Get(kept.ID)
			if err != nil || got.Name != "Water plants" {
				t.Errorf("task after failed save = %+v, %v", got, err)
			}
		})
	}
}
