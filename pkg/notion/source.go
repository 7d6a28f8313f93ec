// Package notion fetches the task database from the Notion API and hands
// the pages over as raw records in their Notion JSON shape.
package notion

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/jomei/notionapi"

	"github.com/mklimuk/orbit/pkg/task"
)

// DefaultPageSize is the largest page the Notion API serves.
const DefaultPageSize = 100

// DatabaseQuerier is the part of the Notion client the Source needs.
type DatabaseQuerier interface {
	Query(ctx context.Context, id notionapi.DatabaseID, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error)
}

// Config describes one task database.
type Config struct {
	Token      string
	DatabaseID string
	Version    string
	PageSize   int
	// SkipDone asks the server to leave out tasks whose Status is Done.
	SkipDone bool
}

// Source reads every page of a database.
type Source struct {
	db       DatabaseQuerier
	database notionapi.DatabaseID
	pageSize int
	skipDone bool
}

// NewClient builds the API client for cfg.
func NewClient(cfg Config) *notionapi.Client {
	var opts []notionapi.ClientOption
	if cfg.Version != "" {
		opts = append(opts, notionapi.WithVersion(cfg.Version))
	}
	return notionapi.NewClient(notionapi.Token(cfg.Token), opts...)
}

// NewSource creates a Source reading through db.
func NewSource(db DatabaseQuerier, cfg Config) *Source {
	size := cfg.PageSize
	if size <= 0 || size > DefaultPageSize {
		size = DefaultPageSize
	}
	return &Source{
		db:       db,
		database: notionapi.DatabaseID(cfg.DatabaseID),
		pageSize: size,
		skipDone: cfg.SkipDone,
	}
}

// Name identifies the source in logs.
func (s *Source) Name() string { return "notion" }

// Fetch follows the cursor until the whole database is read, newest
// pages first.
func (s *Source) Fetch(ctx context.Context) ([]task.RawRecord, error) {
	req := &notionapi.DatabaseQueryRequest{
		PageSize: s.pageSize,
		Sorts: []notionapi.SortObject{{
			Timestamp: notionapi.TimestampCreated,
			Direction: notionapi.SortOrderDESC,
		}},
	}
	if s.skipDone {
		req.Filter = &notionapi.PropertyFilter{
			Property: "Status",
			Status:   &notionapi.StatusFilterCondition{DoesNotEqual: string(task.StatusDone)},
		}
	}

	var records []task.RawRecord
	for page := 1; ; page++ {
		resp, err := s.db.Query(ctx, s.database, req)
		if err != nil {
			return nil, fmt.Errorf("failed to query database (page %d): %w", page, err)
		}
		for _, p := range resp.Results {
			raw, err := pageRecord(p)
			if err != nil {
				log.Printf("Notion: skipping page %s: %v", p.ID, err)
				continue
			}
			records = append(records, raw)
		}
		if !resp.HasMore || resp.NextCursor == "" {
			break
		}
		req.StartCursor = resp.NextCursor
	}
	return records, nil
}

// pageRecord re-encodes a page so the normalizer sees the API's JSON
// layout (id, created_time, last_edited_time, properties).
func pageRecord(p notionapi.Page) (task.RawRecord, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to encode page: %w", err)
	}
	var raw task.RawRecord
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode page: %w", err)
	}
	return raw, nil
}
