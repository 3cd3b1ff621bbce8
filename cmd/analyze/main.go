package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/exp/slices"

	"github.com/ossf/byte-analysis/internal/contentanalysis"
	"github.com/ossf/byte-analysis/internal/criteria"
	"github.com/ossf/byte-analysis/internal/featureflags"
	"github.com/ossf/byte-analysis/internal/log"
	"github.com/ossf/byte-analysis/internal/resultstore"
	"github.com/ossf/byte-analysis/internal/utils"
	"github.com/ossf/byte-analysis/internal/worker"
	api "github.com/ossf/byte-analysis/pkg/api/bytedist"
)

var errUsage = errors.New("invalid usage")

type cliOptions struct {
	local        utils.CommaSeparatedFlagsData
	tasks        utils.CommaSeparatedFlagsData
	features     string
	listTasks    bool
	listFeatures bool
	upload       string
	criteriaFile string
	maxFileSize  int64
	output       string
	help         bool
}

func newFlagSet(opts *cliOptions) *flag.FlagSet {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)

	opts.local = utils.CommaSeparatedFlags("local", nil,
		"local files, directories or archives to analyse, separated by commas")
	opts.tasks = utils.CommaSeparatedFlags("tasks", []string{string(contentanalysis.All)},
		"list of analysis tasks to run, separated by commas. Use -list-tasks to see available options")
	opts.local.InitFlagSet(fs)
	opts.tasks.InitFlagSet(fs)

	fs.StringVar(&opts.features, "features", "", "override features that are enabled/disabled by default")
	fs.BoolVar(&opts.listTasks, "list-tasks", false, "prints out a list of available analysis tasks")
	fs.BoolVar(&opts.listFeatures, "list-features", false, "list available features that can be toggled")
	fs.StringVar(&opts.upload, "upload", "", "bucket path for uploading results")
	fs.StringVar(&opts.criteriaFile, "criteria", "", "YAML file with content acceptance criteria")
	fs.Int64Var(&opts.maxFileSize, "max-file-size", contentanalysis.DefaultMaxFileSize,
		"maximum number of bytes analysed per file, 0 for no limit")
	fs.StringVar(&opts.output, "output", "-", "file to write JSON results to, - for stdout")
	fs.BoolVar(&opts.help, "help", false, "print help on available options")
	return fs
}

func printAnalysisTasks(w io.Writer) {
	fmt.Fprintln(w, "Available analysis tasks:")
	for _, task := range contentanalysis.AllTasks() {
		fmt.Fprintln(w, task)
	}
	fmt.Fprintln(w, contentanalysis.All)
	fmt.Fprintln(w)
}

func printFeatureFlags(w io.Writer) {
	fmt.Fprintf(w, "Feature List\n\n")
	fmt.Fprintf(w, "%-30s %s\n", "Name", "Default")
	fmt.Fprintf(w, "----------------------------------------\n")

	// print features in sorted order
	state := featureflags.State()
	sortedFeatures := make([]string, 0, len(state))
	for feature := range state {
		sortedFeatures = append(sortedFeatures, feature)
	}
	slices.Sort(sortedFeatures)

	// print Off/On rather than 'false' and 'true'
	stateStrings := map[bool]string{false: "Off", true: "On"}
	for _, feature := range sortedFeatures {
		fmt.Fprintf(w, "%-30s %s\n", feature, stateStrings[state[feature]])
	}

	fmt.Fprintln(w)
}

// parseTasks converts task names into Tasks, expanding "all".
func parseTasks(names []string) ([]contentanalysis.Task, error) {
	var tasks []contentanalysis.Task
	for _, name := range names {
		task, ok := contentanalysis.TaskFromString(strings.ToLower(name))
		if !ok {
			return nil, fmt.Errorf("%w: unknown analysis task %q", errUsage, name)
		}
		if task == contentanalysis.All {
			tasks = append(tasks, contentanalysis.AllTasks()...)
		} else {
			tasks = append(tasks, task)
		}
	}
	return utils.RemoveDuplicates(tasks), nil
}

func makeAnalyzer(ctx context.Context, opts *cliOptions) (*contentanalysis.Analyzer, error) {
	tasks, err := parseTasks(opts.tasks.Values)
	if err != nil {
		return nil, err
	}

	analyzerOpts := contentanalysis.Options{
		Tasks:          tasks,
		MaxFileSize:    opts.maxFileSize,
		ByteCounts:     featureflags.ByteCounts.Enabled(),
		ArchiveMembers: featureflags.ArchiveMembers.Enabled(),
	}
	if opts.criteriaFile != "" {
		c, err := criteria.Load(opts.criteriaFile)
		if err != nil {
			return nil, err
		}
		analyzerOpts.Criteria = contentanalysis.StaticCriteria(c)
	}
	return contentanalysis.New(ctx, analyzerOpts)
}

// writeRecords writes one JSON record per line.
func writeRecords(w io.Writer, records []*api.Record) error {
	enc := json.NewEncoder(w)
	for _, record := range records {
		if err := enc.Encode(record); err != nil {
			return err
		}
	}
	return nil
}

func writeOutput(path string, stdout io.Writer, records []*api.Record) error {
	if path == "-" {
		return writeRecords(stdout, records)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := writeRecords(f, records); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	opts := &cliOptions{}
	fs := newFlagSet(opts)
	fs.SetOutput(stdout)
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	if err := featureflags.Update(opts.features); err != nil {
		return fmt.Errorf("failed to parse features: %w", err)
	}

	if opts.help {
		fs.Usage()
		return nil
	}

	if opts.listTasks {
		printAnalysisTasks(stdout)
		return nil
	}

	if opts.listFeatures {
		printFeatureFlags(stdout)
		return nil
	}

	if len(opts.local.Values) == 0 {
		fs.Usage()
		return fmt.Errorf("%w: -local is required", errUsage)
	}

	analyzer, err := makeAnalyzer(ctx, opts)
	if err != nil {
		return err
	}

	var store *resultstore.ResultStore
	if opts.upload != "" {
		store = resultstore.New(opts.upload)
	}

	var records []*api.Record
	for _, path := range opts.local.Values {
		pathCtx := log.ContextWithAttrs(ctx, slog.String("local", path))
		slog.InfoContext(pathCtx, "Processing local path")

		record, err := worker.RunAnalysis(pathCtx, analyzer, path, path)
		if err != nil {
			return err
		}
		if err := worker.SaveResults(pathCtx, store, record); err != nil {
			return err
		}
		records = append(records, record)
	}

	return writeOutput(opts.output, stdout, records)
}

func main() {
	log.Initialize(os.Getenv("LOGGER_ENV"))

	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		slog.Error("Analysis failed", "error", err)
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
