// Package automation runs scheduled jobs such as the periodic chat digest.
package automation

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// Job is a named action run on a schedule.
type Job struct {
	Name     string
	Schedule Schedule
	Run      func(ctx context.Context) error
}

type entry struct {
	job     Job
	next    time.Time
	pending bool
}

// Service polls its jobs and runs the ones that are due.
type Service struct {
	pollInterval time.Duration
	now          func() time.Time

	mu   sync.Mutex
	jobs []*entry

	stop chan struct{}
	wg   sync.WaitGroup
}

// NewService creates a scheduler checking for due jobs every pollInterval.
func NewService(pollInterval time.Duration) *Service {
	if pollInterval <= 0 {
		pollInterval = 15 * time.Second
	}
	return &Service{
		pollInterval: pollInterval,
		now:          time.Now,
		stop:         make(chan struct{}),
	}
}

// Add registers a job; its first run is the schedule's next time after now.
func (s *Service) Add(job Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := &entry{job: job}
	e.next, e.pending = job.Schedule.Next(s.now())
	s.jobs = append(s.jobs, e)
}

// NextRun reports when the named job runs next.
func (s *Service) NextRun(name string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.jobs {
		if e.job.Name == name && e.pending {
			return e.next, true
		}
	}
	return time.Time{}, false
}

// JobStatus describes a registered job.
type JobStatus struct {
	Name    string     `json:"name"`
	NextRun *time.Time `json:"nextRun,omitempty"`
}

// Jobs lists the registered jobs in registration order.
func (s *Service) Jobs() []JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]JobStatus, 0, len(s.jobs))
	for _, e := range s.jobs {
		st := JobStatus{Name: e.job.Name}
		if e.pending {
			next := e.next
			st.NextRun = &next
		}
		out = append(out, st)
	}
	return out
}

// RunNow runs the named job immediately without touching its schedule.
func (s *Service) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	var job *Job
	for _, e := range s.jobs {
		if e.job.Name == name {
			j := e.job
			job = &j
			break
		}
	}
	s.mu.Unlock()
	if job == nil {
		return fmt.Errorf("unknown job %q", name)
	}
	return job.Run(ctx)
}

// Start begins the polling loop.
func (s *Service) Start() {
	s.wg.Add(1)
	go s.loop()
}

// Stop stops the polling loop and waits for shutdown.
func (s *Service) Stop() {
	close(s.stop)
	s.wg.Wait()
}

func (s *Service) loop() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.runOnce(context.Background())
		case <-s.stop:
			return
		}
	}
}

// runOnce runs every due job and schedules its next run.
func (s *Service) runOnce(ctx context.Context) {
	now := s.now()

	s.mu.Lock()
	var due []Job
	for _, e := range s.jobs {
		if !e.pending || e.next.After(now) {
			continue
		}
		due = append(due, e.job)
		e.next, e.pending = e.job.Schedule.Next(now)
	}
	s.mu.Unlock()

	for _, job := range due {
		start := time.Now()
		if err := job.Run(ctx); err != nil {
			log.Printf("automation: job %s failed: %v", job.Name, err)
			continue
		}
		log.Printf("automation: job %s done in %s", job.Name, time.Since(start).Round(time.Millisecond))
	}
}
