package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/orbit/pkg/project"
)

const sample = `[
	{"id": "1", "name": "Launch site", "status": "In progress", "zoom": "Quarter"},
	{"id": "2", "name": "Write copy", "status": "Done", "parentId": "1", "zoom": "Week"},
	{"id": "3", "name": "Taxes", "dueDate": "2024-06-01", "properties": {"Class": {"type": "select", "select": {"name": "Admin"}}}},
	{"name": "broken"}
]`

func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func writeSample(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tasks.json")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0644))
	return path
}

func TestTreeCommand(t *testing.T) {
	out, errOut, err := run(t, "", "tree", "--file", writeSample(t))
	require.NoError(t, err)
	assert.Equal(t, "- Launch site [In Progress]\n  - Write copy [Done]\n- Taxes [Not Started] due 2024-06-01\n", out)
	assert.Contains(t, errOut, "skipped 1 invalid records")

	out, _, err = run(t, sample, "tree", "--mode", "zoom", "-f", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "- Launch site")

	_, _, err = run(t, sample, "tree", "--mode", "flat", "-f", "-")
	assert.Error(t, err)
}

func TestProjectsJSON(t *testing.T) {
	out, _, err := run(t, sample, "projects", "--json", "-f", "-")
	require.NoError(t, err)

	var report project.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Len(t, report.Buckets, 2)
	assert.Equal(t, "Admin", report.Buckets[0].Name)
	assert.Equal(t, project.BucketOther, report.Buckets[1].Name)
	assert.Len(t, report.Buckets[1].Forest, 1, "child nested under its parent")
}

func TestStatsAndAnalytics(t *testing.T) {
	out, _, err := run(t, sample, "stats", "-f", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "Tasks: 3 total, 1 done (33%)")

	out, _, err = run(t, sample, "analytics", "-f", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "Zoom:")
	assert.Contains(t, out, "Quarter")
}

func TestNotionResultsEnvelope(t *testing.T) {
	in := `{"results": [{"id": "p1", "properties": {"Name": {"type": "title", "title": [{"plain_text": "From Notion"}]}}}], "has_more": false}`
	out, _, err := run(t, in, "tree", "-f", "-")
	require.NoError(t, err)
	assert.Equal(t, "- From Notion [Not Started]\n", out)
}

func TestSourceFlags(t *testing.T) {
	_, _, err := run(t, "", "stats")
	assert.ErrorContains(t, err, "--file or --notion")

	_, _, err = run(t, "", "stats", "--file", "x.json", "--notion")
	assert.ErrorContains(t, err, "either")

	_, _, err = run(t, "", "stats", "--file", filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestStatsUsesClock(t *testing.T) {
	opts := &options{file: "-", now: func() time.Time { return time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC) }}
	cmd := newStatsCmd(opts)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(sample))
	cmd.SetArgs(nil)
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "Overdue: 0")
	assert.Contains(t, out.String(), "Due this week: 0")
}
