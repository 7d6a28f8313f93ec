// Package snapshot assembles the current task snapshot from every
// configured source and keeps it fresh.
package snapshot

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mklimuk/orbit/pkg/task"
)

// Source yields raw task records.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]task.RawRecord, error)
}

// Snapshot is one immutable, normalized view of all tasks. Callers must
// not modify Tasks.
type Snapshot struct {
	Tasks    []task.Task `json:"tasks"`
	TakenAt  time.Time   `json:"takenAt"`
	Rejected int         `json:"rejected"`
	// Sources counts the records each source contributed.
	Sources map[string]int `json:"sources"`
}

// Loader merges all sources into a Snapshot.
type Loader struct {
	sources    []Source
	normalizer *task.Normalizer
	now        func() time.Time
}

// NewLoader creates a Loader reading sources in order.
func NewLoader(normalizer *task.Normalizer, sources ...Source) *Loader {
	if normalizer == nil {
		normalizer = task.NewNormalizer()
	}
	return &Loader{sources: sources, normalizer: normalizer, now: time.Now}
}

// Load fetches every source and normalizes the result. Any failing source
// fails the whole load so a partial view never replaces a full one.
// Invalid records are dropped and counted.
func (l *Loader) Load(ctx context.Context) (*Snapshot, error) {
	var raws []task.RawRecord
	counts := make(map[string]int, len(l.sources))
	for _, src := range l.sources {
		records, err := src.Fetch(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch %s: %w", src.Name(), err)
		}
		counts[src.Name()] += len(records)
		raws = append(raws, records...)
	}

	tasks, errs := l.normalizer.NormalizeAll(raws)
	for _, err := range errs {
		log.Printf("Snapshot: rejected %v", err)
	}
	return &Snapshot{
		Tasks:    tasks,
		TakenAt:  l.now(),
		Rejected: len(errs),
		Sources:  counts,
	}, nil
}
