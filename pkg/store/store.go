// Package store keeps tasks created locally, outside of Notion. The set
// lives in memory and is persisted only on explicit Load and Save calls.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mklimuk/orbit/pkg/task"
)

// ErrNotFound is returned for ids the store does not hold.
var ErrNotFound = errors.New("task not found")

// Backend persists the whole local task set.
type Backend interface {
	LoadTasks(ctx context.Context) ([]task.Task, error)
	SaveTasks(ctx context.Context, tasks []task.Task) error
}

// Store holds local tasks. It is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	tasks   []task.Task
	backend Backend
	now     func() time.Time

	// commitMu serializes Commit calls so a rollback never undoes another
	// caller's saved change.
	commitMu sync.Mutex
}

// New creates an empty store over backend. A nil backend keeps the tasks
// in memory only.
func New(backend Backend) *Store {
	return &Store{backend: backend, now: time.Now}
}

// Load replaces the in-memory set with the backend's.
func (s *Store) Load(ctx context.Context) error {
	if s.backend == nil {
		return nil
	}
	tasks, err := s.backend.LoadTasks(ctx)
	if err != nil {
		return fmt.Errorf("failed to load local tasks: %w", err)
	}
	s.mu.Lock()
	s.tasks = tasks
	s.mu.Unlock()
	return nil
}

// Save writes the in-memory set to the backend.
func (s *Store) Save(ctx context.Context) error {
	if s.backend == nil {
		return nil
	}
	s.mu.RLock()
	tasks := make([]task.Task, len(s.tasks))
	copy(tasks, s.tasks)
	s.mu.RUnlock()

	if err := s.backend.SaveTasks(ctx, tasks); err != nil {
		return fmt.Errorf("failed to save local tasks: %w", err)
	}
	return nil
}

// Commit applies change and saves the result. When change or the save
// fails, the set is restored to what it was before change ran.
func (s *Store) Commit(ctx context.Context, change func() error) error {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	s.mu.RLock()
	prev := make([]task.Task, len(s.tasks))
	copy(prev, s.tasks)
	s.mu.RUnlock()

	err := change()
	if err == nil {
		err = s.Save(ctx)
	}
	if err != nil {
		s.mu.Lock()
		s.tasks = prev
		s.mu.Unlock()
		return err
	}
	return nil
}

// Create adds a new local task named name with u applied.
func (s *Store) Create(name string, u task.Update) task.Task {
	now := s.now()
	t := task.NewLocal(name, now).With(u, now)

	s.mu.Lock()
	s.tasks = append(s.tasks, t)
	s.mu.Unlock()
	return t
}

// Get returns the task with id.
func (s *Store) Get(id string) (task.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.index(id)
	if i < 0 {
		return task.Task{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s.tasks[i], nil
}

// Update replaces the task with id by a new version carrying u.
func (s *Store) Update(id string, u task.Update) (task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(id)
	if i < 0 {
		return task.Task{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	next := s.tasks[i].With(u, s.now())
	s.tasks[i] = next
	return next, nil
}

// Delete removes the task with id.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.tasks = append(s.tasks[:i:i], s.tasks[i+1:]...)
	return nil
}

// List returns the tasks matching f, ordered by o.
func (s *Store) List(f task.Filter, o task.Sort) []task.Task {
	s.mu.RLock()
	matched := f.Apply(s.tasks)
	s.mu.RUnlock()
	return o.Apply(matched)
}

// Recent returns up to limit tasks, newest first.
func (s *Store) Recent(limit int) []task.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return task.Recent(s.tasks, limit)
}

// Len is the number of local tasks.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}

// Name identifies the store as a snapshot source.
func (s *Store) Name() string { return "local" }

// Fetch exposes the local tasks as raw records so they flow through the
// same normalization as every other source.
func (s *Store) Fetch(ctx context.Context) ([]task.RawRecord, error) {
	return s.Records()
}

// Records encodes every local task as a raw record.
func (s *Store) Records() ([]task.RawRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]task.RawRecord, 0, len(s.tasks))
	for _, t := range s.tasks {
		t.Children = nil
		data, err := json.Marshal(t)
		if err != nil {
			return nil, fmt.Errorf("failed to encode task %s: %w", t.ID, err)
		}
		var raw task.RawRecord
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to decode task %s: %w", t.ID, err)
		}
		out = append(out, raw)
	}
	return out, nil
}

func (s *Store) index(id string) int {
	for i, t := range s.tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}
