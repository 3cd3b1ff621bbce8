/*
Package contentanalysis runs byte distribution analysis over files,
directory trees and archive members, and collects the results into
the JSON-serialisable structures of pkg/api/bytedist.

Errors affecting a single file are logged rather than returned where
possible, to maximise the amount of data collected.
*/
package contentanalysis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ossf/byte-analysis/internal/archive"
	"github.com/ossf/byte-analysis/internal/bytedist"
	"github.com/ossf/byte-analysis/internal/filetype"
	"github.com/ossf/byte-analysis/internal/log"
	"github.com/ossf/byte-analysis/internal/utils"
	api "github.com/ossf/byte-analysis/pkg/api/bytedist"
	"github.com/ossf/byte-analysis/pkg/valuecounts"
)

// DefaultMaxFileSize bounds the number of bytes of each file that are held
// in memory and analysed.
const DefaultMaxFileSize = 64 << 20

// CriteriaProvider supplies the acceptance criteria used by the
// Classification task. It is consulted once per file, so implementations
// may change the criteria between files.
type CriteriaProvider interface {
	Current() bytedist.Criteria
}

// StaticCriteria is a CriteriaProvider that always returns the same criteria.
type StaticCriteria bytedist.Criteria

func (c StaticCriteria) Current() bytedist.Criteria {
	return bytedist.Criteria(c)
}

// Options configures an Analyzer.
type Options struct {
	// Tasks lists the tasks to run. Empty means AllTasks().
	Tasks []Task

	// Criteria supplies the classification criteria. Nil means
	// bytedist.DefaultCriteria().
	Criteria CriteriaProvider

	// MaxFileSize is the maximum number of bytes analysed per file. Larger
	// files are analysed on their first MaxFileSize bytes and marked as
	// truncated; the size and digest still cover the whole file.
	// Zero or less disables the limit.
	MaxFileSize int64

	// ByteCounts includes the nonzero histogram buckets in the results.
	ByteCounts bool

	// ArchiveMembers makes AnalyzePath analyse the members of archive
	// files instead of the archive itself.
	ArchiveMembers bool
}

// Analyzer runs a fixed set of tasks over file contents.
// It is safe for concurrent use.
type Analyzer struct {
	basic          bool
	distribution   bool
	classification bool

	criteria       CriteriaProvider
	maxFileSize    int64
	byteCounts     bool
	archiveMembers bool
}

/*
New validates the options and returns an Analyzer.

Some tasks depend on others: Classification needs the output of
Distribution. If a task is requested without its dependency, the
dependency is added.

An error is returned if an unknown task, or the All placeholder, is requested.
*/
func New(ctx context.Context, opts Options) (*Analyzer, error) {
	tasks := opts.Tasks
	if len(tasks) == 0 {
		tasks = AllTasks()
	}

	a := &Analyzer{
		criteria:       opts.Criteria,
		maxFileSize:    opts.MaxFileSize,
		byteCounts:     opts.ByteCounts,
		archiveMembers: opts.ArchiveMembers,
	}
	if a.criteria == nil {
		a.criteria = StaticCriteria(bytedist.DefaultCriteria())
	}

	for _, task := range tasks {
		switch task {
		case Basic:
			a.basic = true
		case Distribution:
			a.distribution = true
		case Classification:
			if !a.distribution {
				slog.InfoContext(ctx, "adding distribution to task list (needed by classification)")
			}
			a.distribution = true
			a.classification = true
		case All:
			return nil, errors.New("contentanalysis.All should not be passed in directly, use contentanalysis.AllTasks() instead")
		default:
			return nil, fmt.Errorf("content analysis task not implemented: %s", task)
		}
	}

	return a, nil
}

// Tasks returns the tasks that this Analyzer runs, including added dependencies.
func (a *Analyzer) Tasks() []Task {
	var tasks []Task
	if a.basic {
		tasks = append(tasks, Basic)
	}
	if a.distribution {
		tasks = append(tasks, Distribution)
	}
	if a.classification {
		tasks = append(tasks, Classification)
	}
	return tasks
}

func (a *Analyzer) analyze(name string, content utils.BoundedData) api.FileResult {
	result := api.FileResult{Filename: name}

	if a.basic {
		result.Size = content.Size
		result.SHA256 = content.SHA256
		result.DetectedType = filetype.Detect(content.Data)
	}

	if a.distribution {
		result.Truncated = content.Truncated()
		// one pass builds the histogram used for both statistics and counts
		h := bytedist.Count(content.Data)
		stats := bytedist.FromHistogram(&h)
		result.Distribution = &api.Distribution{
			Entropy: stats.Entropy,
			StdDev:  stats.StdDev,
		}
		if a.byteCounts {
			counts := byteCounts(&h)
			result.ByteCounts = &counts
		}
		if a.classification {
			verdict := toAPIVerdict(a.criteria.Current().Classify(stats))
			result.Verdict = &verdict
		}
	}

	return result
}

func byteCounts(h *bytedist.Histogram) valuecounts.ValueCounts {
	m := make(map[int]int, h.Distinct())
	for v, c := range h {
		if c > 0 {
			m[v] = int(c)
		}
	}
	return valuecounts.FromMap(m)
}

func toAPIVerdict(v bytedist.Verdict) api.Verdict {
	return api.Verdict{
		Accepted:   v.Accepted,
		Violations: utils.Transform(v.Violations, func(r bytedist.Rule) string { return string(r) }),
	}
}

// AnalyzeBytes analyses an in-memory buffer. The whole buffer is analysed
// regardless of MaxFileSize.
func (a *Analyzer) AnalyzeBytes(name string, data []byte) api.FileResult {
	return a.analyze(name, utils.BoundedData{
		Data:   data,
		Size:   int64(len(data)),
		SHA256: utils.SHA256Hash(data),
	})
}

// AnalyzeReader reads r to the end and analyses its content, keeping at most
// MaxFileSize bytes in memory.
func (a *Analyzer) AnalyzeReader(ctx context.Context, name string, r io.Reader) (api.FileResult, error) {
	content, err := utils.ReadBounded(r, a.maxFileSize)
	if err != nil {
		return api.FileResult{Filename: name}, fmt.Errorf("error reading %s: %w", name, err)
	}
	if content.Truncated() {
		slog.WarnContext(ctx, "content exceeds size limit, analysing prefix only",
			"filename", name,
			"size", content.Size,
			"max_file_size", a.maxFileSize)
	}
	return a.analyze(name, content), nil
}

func (a *Analyzer) analyzeFile(ctx context.Context, name, path string) (api.FileResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return api.FileResult{Filename: name}, err
	}
	defer f.Close()
	return a.AnalyzeReader(ctx, name, f)
}

/*
AnalyzeFiles analyses each of the given files. nameOf maps the path of a file
to the name recorded in its result; if nil, paths are used as given.

A result is returned for every path. If a file cannot be read, the error is
logged and its result only carries the filename.
*/
func (a *Analyzer) AnalyzeFiles(ctx context.Context, paths []string, nameOf func(path string) string) []api.FileResult {
	if nameOf == nil {
		nameOf = func(path string) string { return path }
	}

	results := make([]api.FileResult, 0, len(paths))
	for _, path := range paths {
		name := nameOf(path)
		result, err := a.analyzeFile(ctx, name, path)
		if err != nil {
			slog.ErrorContext(ctx, "Error analysing file", "filename", name, "error", err)
		}
		results = append(results, result)
	}
	return results
}

// enumerateFiles returns a list of paths to all regular files in a directory
// or any descendent directory.
func enumerateFiles(dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, f fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if f.Type().IsRegular() {
			paths = append(paths, path)
		}
		return nil
	})
	return paths, err
}

// AnalyzeDir analyses every regular file under dir. Result filenames are
// relative to dir and use forward slashes.
func (a *Analyzer) AnalyzeDir(ctx context.Context, dir string) ([]api.FileResult, error) {
	paths, err := enumerateFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("error enumerating files: %w", err)
	}
	slog.InfoContext(ctx, "analysing directory", "files", len(paths))

	relativeName := func(path string) string {
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return filepath.ToSlash(path)
		}
		return filepath.ToSlash(rel)
	}
	return a.AnalyzeFiles(ctx, paths, relativeName), nil
}

/*
AnalyzeArchive analyses every regular file in the archive at path.
Result filenames are the member names inside the archive.

A member that cannot be read is logged and its result only carries the
filename. The walk is abandoned if the archive itself cannot be read or a
member name escapes the archive root.
*/
func (a *Analyzer) AnalyzeArchive(ctx context.Context, path string) ([]api.FileResult, error) {
	results := []api.FileResult{}
	err := archive.Walk(ctx, path, func(ctx context.Context, name string, r io.Reader) error {
		result, err := a.AnalyzeReader(ctx, name, r)
		if err != nil {
			slog.ErrorContext(ctx, "Error analysing archive member", "filename", name, "error", err)
		}
		results = append(results, result)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error walking archive: %w", err)
	}
	return results, nil
}

/*
AnalyzePath analyses a local path, which may be a directory, an archive or a
single file:

  - directories are walked with AnalyzeDir;
  - archives are expanded with AnalyzeArchive if ArchiveMembers is set. If the
    archive cannot be walked, it is analysed as a single file instead;
  - anything else is analysed as a single file named by its base name.
*/
func (a *Analyzer) AnalyzePath(ctx context.Context, path string) ([]api.FileResult, error) {
	ctx = log.ContextWithAttrs(ctx, log.LabelAttr("source", path))

	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	if info.IsDir() {
		return a.AnalyzeDir(ctx, path)
	}

	if a.archiveMembers {
		isArchive, err := archive.IsArchive(path)
		if err != nil {
			slog.WarnContext(ctx, "could not identify archive format", "error", err)
		}
		if isArchive {
			results, err := a.AnalyzeArchive(ctx, path)
			if err == nil {
				return results, nil
			}
			slog.ErrorContext(ctx, "archive analysis failed, analysing as a single file", "error", err)
		}
	}

	result, err := a.analyzeFile(ctx, filepath.Base(path), path)
	if err != nil {
		return nil, err
	}
	return []api.FileResult{result}, nil
}
