package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mklimuk/orbit/pkg/config"
	"github.com/mklimuk/orbit/pkg/digest"
	"github.com/mklimuk/orbit/pkg/notion"
	"github.com/mklimuk/orbit/pkg/project"
	"github.com/mklimuk/orbit/pkg/snapshot"
	"github.com/mklimuk/orbit/pkg/task"
)

type options struct {
	file       string
	useNotion  bool
	configPath string
	asJSON     bool
	verbose    bool
	now        func() time.Time
}

func newRootCmd() *cobra.Command {
	opts := &options{now: time.Now}
	root := &cobra.Command{
		Use:          "orbit",
		Short:        "Inspect a task snapshot",
		SilenceUsage: true,
	}
	f := root.PersistentFlags()
	f.StringVarP(&opts.file, "file", "f", "", "JSON file with an array of task records, - for stdin")
	f.BoolVar(&opts.useNotion, "notion", false, "read the Notion database from the configuration")
	f.StringVar(&opts.configPath, "config", "", "path to orbit.yaml")
	f.BoolVar(&opts.asJSON, "json", false, "print JSON instead of text")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "log rejected records and unresolved parents")

	root.AddCommand(newTreeCmd(opts), newProjectsCmd(opts), newStatsCmd(opts), newAnalyticsCmd(opts))
	return root
}

func newTreeCmd(opts *options) *cobra.Command {
	var mode string
	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Print the task hierarchy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tasks, err := opts.load(cmd)
			if err != nil {
				return err
			}
			var forest []*task.Task
			switch mode {
			case "parent":
				forest = task.BuildForest(tasks, opts.taskOptions(cmd)...)
			case "zoom":
				forest = task.BuildZoomForest(tasks, opts.taskOptions(cmd)...)
			default:
				return fmt.Errorf("unknown mode %q, want parent or zoom", mode)
			}
			if opts.asJSON {
				return printJSON(cmd.OutOrStdout(), forest)
			}
			printForest(cmd.OutOrStdout(), forest)
			return nil
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "parent", "hierarchy to build: parent or zoom")
	return cmd
}

func newProjectsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "projects",
		Short: "Print progress per project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tasks, err := opts.load(cmd)
			if err != nil {
				return err
			}
			report := project.Rollup(tasks, opts.now(), opts.taskOptions(cmd)...)
			if opts.asJSON {
				return printJSON(cmd.OutOrStdout(), report)
			}
			fmt.Fprintln(cmd.OutOrStdout(), digest.FormatProjects(report))
			return nil
		},
	}
}

func newStatsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print headline statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tasks, err := opts.load(cmd)
			if err != nil {
				return err
			}
			stats := project.ComputeStats(tasks, opts.now())
			if opts.asJSON {
				return printJSON(cmd.OutOrStdout(), stats)
			}
			fmt.Fprintln(cmd.OutOrStdout(), digest.FormatStats(stats))
			return nil
		},
	}
}

func newAnalyticsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "analytics",
		Short: "Print status, priority, zoom and effort histograms",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tasks, err := opts.load(cmd)
			if err != nil {
				return err
			}
			a := project.Analyze(tasks)
			if opts.asJSON {
				return printJSON(cmd.OutOrStdout(), a)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Tasks: %d, completion %.0f%%\n", a.TotalTasks, a.CompletionRate)
			printHistogram(out, "Status", a.ByStatus)
			printHistogram(out, "Priority", a.ByPriority)
			printHistogram(out, "Zoom", a.ByZoom)
			printHistogram(out, "Effort", a.ByEffort)
			return nil
		},
	}
}

func (o *options) logger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

func (o *options) taskOptions(cmd *cobra.Command) []task.Option {
	return []task.Option{task.WithLogger(o.logger(cmd))}
}

// load reads and normalizes the records named by --file or --notion.
func (o *options) load(cmd *cobra.Command) ([]task.Task, error) {
	var src snapshot.Source
	switch {
	case o.file != "" && o.useNotion:
		return nil, errors.New("use either --file or --notion")
	case o.file != "":
		src = fileSource{path: o.file, stdin: cmd.InOrStdin()}
	case o.useNotion:
		cfg, err := config.Load(o.configPath)
		if err != nil {
			return nil, err
		}
		if cfg.Notion.Token == "" || cfg.Notion.DatabaseID == "" {
			return nil, errors.New("notion token and database id are required (NOTION_API_KEY, NOTION_DATABASE_ID)")
		}
		ncfg := notion.Config{
			Token:      cfg.Notion.Token,
			DatabaseID: cfg.Notion.DatabaseID,
			Version:    cfg.Notion.Version,
			PageSize:   cfg.Notion.PageSize,
			SkipDone:   cfg.Notion.SkipDone,
		}
		src = notion.NewSource(notion.NewClient(ncfg).Database, ncfg)
	default:
		return nil, errors.New("one of --file or --notion is required")
	}

	loader := snapshot.NewLoader(task.NewNormalizer(o.taskOptions(cmd)...), src)
	snap, err := loader.Load(cmd.Context())
	if err != nil {
		return nil, err
	}
	if snap.Rejected > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "skipped %d invalid records\n", snap.Rejected)
	}
	return snap.Tasks, nil
}

// fileSource reads a JSON array of records, or an object with a "results"
// array as returned by the Notion query endpoint.
type fileSource struct {
	path  string
	stdin io.Reader
}

func (f fileSource) Name() string { return "file" }

func (f fileSource) Fetch(ctx context.Context) ([]task.RawRecord, error) {
	var data []byte
	var err error
	if f.path == "-" {
		data, err = io.ReadAll(f.stdin)
	} else {
		data, err = os.ReadFile(f.path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", f.path, err)
	}

	var records []task.RawRecord
	if err := json.Unmarshal(data, &records); err == nil {
		return records, nil
	}
	var page struct {
		Results []task.RawRecord `json:"results"`
	}
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", f.path, err)
	}
	return page.Results, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printForest(w io.Writer, forest []*task.Task) {
	task.Walk(forest, func(t *task.Task, depth int) bool {
		line := strings.Repeat("  ", depth) + "- " + t.Name
		if t.Status != "" {
			line += " [" + string(t.Status) + "]"
		}
		if t.DueDate != nil {
			line += " due " + t.DueDate.Format("2006-01-02")
		}
		fmt.Fprintln(w, line)
		return true
	})
}

func printHistogram(w io.Writer, title string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s:\n", title)
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	for _, k := range keys {
		fmt.Fprintf(w, "  %-24s %d\n", k, counts[k])
	}
}
