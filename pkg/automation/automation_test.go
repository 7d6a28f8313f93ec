package automation

import (
	"context"
	"errors"
	"testing"
	"time"
	_ "time/tzdata"
)

func TestScheduleNext(t *testing.T) {
	from := time.Date(2024, 6, 3, 10, 30, 15, 0, time.UTC) // Monday

	tests := []struct {
		spec string
		want time.Time
	}{
		{"@every 90m", from.Add(90 * time.Minute)},
		{"@hourly", time.Date(2024, 6, 3, 11, 0, 0, 0, time.UTC)},
		{"@daily", time.Date(2024, 6, 4, 0, 0, 0, 0, time.UTC)},
		{"@weekly", time.Date(2024, 6, 9, 0, 0, 0, 0, time.UTC)},
		{"0 8 * * *", time.Date(2024, 6, 4, 8, 0, 0, 0, time.UTC)},
		{"*/15 * * * *", time.Date(2024, 6, 3, 10, 45, 0, 0, time.UTC)},
		{"0 9 * * 1-5", time.Date(2024, 6, 4, 9, 0, 0, 0, time.UTC)},
		{"0 9 1 * *", time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC)},
		{"0 0 * * 7", time.Date(2024, 6, 9, 0, 0, 0, 0, time.UTC)},
		{"2024-06-05T12:00:00Z", time.Date(2024, 6, 5, 12, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			s, err := Parse(tt.spec, "")
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			got, ok := s.Next(from)
			if !ok {
				t.Fatal("expected a next run")
			}
			if !got.Equal(tt.want) {
				t.Errorf("next = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScheduleTimezone(t *testing.T) {
	s, err := Parse("0 8 * * *", "Europe/Warsaw")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	from := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	got, _ := s.Next(from)
	// 08:00 CEST is 06:00 UTC
	if want := time.Date(2024, 6, 3, 6, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Errorf("next = %v, want %v", got, want)
	}
}

func TestScheduleOneshotInThePast(t *testing.T) {
	s := MustParse("2024-01-01T00:00:00Z")
	if _, ok := s.Next(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)); ok {
		t.Error("expected no further run")
	}
}

func TestParseInvalid(t *testing.T) {
	for _, spec := range []string{"", "@every -1m", "@every soon", "61 * * * *", "* * *", "0 0 31-1 * *", "*/0 * * * *"} {
		if _, err := Parse(spec, ""); err == nil {
			t.Errorf("expected error for %q", spec)
		}
	}
	if _, err := Parse("@daily", "Mars/Olympus"); err == nil {
		t.Error("expected timezone error")
	}
}

func TestServiceRunsDueJobs(t *testing.T) {
	now := time.Date(2024, 6, 3, 7, 59, 0, 0, time.UTC)
	svc := NewService(time.Minute)
	svc.now = func() time.Time { return now }

	runs := 0
	svc.Add(Job{Name: "digest", Schedule: MustParse("0 8 * * *"), Run: func(ctx context.Context) error {
		runs++
		return nil
	}})
	failing := 0
	svc.Add(Job{Name: "broken", Schedule: MustParse("@every 1m"), Run: func(ctx context.Context) error {
		failing++
		return errors.New("nope")
	}})

	svc.runOnce(context.Background())
	if runs != 0 {
		t.Fatalf("digest ran early")
	}

	now = now.Add(time.Minute)
	svc.runOnce(context.Background())
	if runs != 1 || failing != 1 {
		t.Fatalf("runs = %d, failing = %d", runs, failing)
	}
	next, ok := svc.NextRun("digest")
	if !ok || !next.Equal(time.Date(2024, 6, 4, 8, 0, 0, 0, time.UTC)) {
		t.Errorf("next digest = %v", next)
	}

	// a failing job stays scheduled
	now = now.Add(time.Minute)
	svc.runOnce(context.Background())
	if failing != 2 {
		t.Errorf("failing = %d", failing)
	}

	if err := svc.RunNow(context.Background(), "digest"); err != nil || runs != 2 {
		t.Errorf("run now: err=%v runs=%d", err, runs)
	}
	if err := svc.RunNow(context.Background(), "missing"); err == nil {
		t.Error("expected error for unknown job")
	}

	jobs := svc.Jobs()
	if len(jobs) != 2 || jobs[0].Name != "digest" || jobs[0].NextRun == nil {
		t.Errorf("unexpected jobs %+v", jobs)
	}
}
