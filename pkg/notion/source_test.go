package notion

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/orbit/pkg/task"
)

type fakeQuerier struct {
	pages [][]notionapi.Page
	err   error
	reqs  []notionapi.DatabaseQueryRequest
}

func (f *fakeQuerier) Query(ctx context.Context, id notionapi.DatabaseID, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	f.reqs = append(f.reqs, *req)
	if f.err != nil {
		return nil, f.err
	}
	i := len(f.reqs) - 1
	resp := &notionapi.DatabaseQueryResponse{Results: f.pages[i]}
	if i < len(f.pages)-1 {
		resp.HasMore = true
		resp.NextCursor = notionapi.Cursor("cursor-" + string(rune('a'+i)))
	}
	return resp, nil
}

func page(id, name, status, parent string) notionapi.Page {
	props := notionapi.Properties{
		"Name": &notionapi.TitleProperty{
			Type:  notionapi.PropertyTypeTitle,
			Title: []notionapi.RichText{{PlainText: name}},
		},
		"Status": &notionapi.SelectProperty{
			Type:   notionapi.PropertyTypeSelect,
			Select: notionapi.Option{Name: status},
		},
	}
	if parent != "" {
		props["Parent Task"] = &notionapi.RelationProperty{
			Type:     notionapi.PropertyTypeRelation,
			Relation: []notionapi.Relation{{ID: notionapi.PageID(parent)}},
		}
	}
	return notionapi.Page{
		ID:          notionapi.ObjectID(id),
		CreatedTime: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Properties:  props,
	}
}

func TestFetchFollowsCursor(t *testing.T) {
	fake := &fakeQuerier{pages: [][]notionapi.Page{
		{page("p1", "Alpha", "Done", "")},
		{page("p2", "Beta", "In progress", "p1")},
		{page("p3", "Gamma", "Not started", "")},
	}}
	src := NewSource(fake, Config{DatabaseID: "db"})

	records, err := src.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 3)
	require.Len(t, fake.reqs, 3)

	assert.Equal(t, notionapi.Cursor(""), fake.reqs[0].StartCursor)
	assert.Equal(t, notionapi.Cursor("cursor-a"), fake.reqs[1].StartCursor)
	assert.Equal(t, notionapi.Cursor("cursor-b"), fake.reqs[2].StartCursor)
	assert.Equal(t, DefaultPageSize, fake.reqs[0].PageSize)
	assert.Nil(t, fake.reqs[0].Filter)

	tasks, errs := task.NormalizeAll(records)
	require.Empty(t, errs)
	assert.Equal(t, "Alpha", tasks[0].Name)
	assert.Equal(t, task.StatusDone, tasks[0].Status)
	assert.Equal(t, task.StatusInProgress, tasks[1].Status)
	assert.Equal(t, "p1", tasks[1].ParentID)
	assert.Equal(t, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), tasks[0].CreatedAt.UTC())

	forest := task.BuildForest(tasks)
	assert.Len(t, forest, 2)
}

func TestFetchSkipDoneFilter(t *testing.T) {
	fake := &fakeQuerier{pages: [][]notionapi.Page{{}}}
	src := NewSource(fake, Config{DatabaseID: "db", SkipDone: true, PageSize: 500})

	records, err := src.Fetch(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)

	require.Len(t, fake.reqs, 1)
	assert.Equal(t, DefaultPageSize, fake.reqs[0].PageSize)
	filter, ok := fake.reqs[0].Filter.(*notionapi.PropertyFilter)
	require.True(t, ok)
	assert.Equal(t, "Status", filter.Property)
	assert.Equal(t, "Done", filter.Status.DoesNotEqual)
}

func TestFetchError(t *testing.T) {
	fake := &fakeQuerier{err: errors.New("boom")}
	src := NewSource(fake, Config{DatabaseID: "db"})

	_, err := src.Fetch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}
