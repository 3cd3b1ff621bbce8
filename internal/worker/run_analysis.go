package worker

import (
	"context"
	"time"

	"github.com/ossf/byte-analysis/internal/contentanalysis"
	api "github.com/ossf/byte-analysis/pkg/api/bytedist"
	"github.com/ossf/byte-analysis/pkg/notification"
)

// RunAnalysis analyses the file, directory or archive at localPath and wraps
// the results in a Record for source. source is the name the content is known
// by outside this process, e.g. a bucket key; it is also used as localPath's
// name in log output.
func RunAnalysis(ctx context.Context, analyzer *contentanalysis.Analyzer, localPath, source string) (*api.Record, error) {
	start := time.Now()

	files, err := analyzer.AnalyzePath(ctx, localPath)
	if err != nil {
		LogAnalysisError(ctx, source, err)
		return nil, err
	}

	record := api.CreateRecord(&api.Results{Files: files}, source)
	LogAnalysisResult(ctx, record)
	logDuration(ctx, "analysis_duration", time.Since(start))
	return record, nil
}

// Summarize counts the files in record by verdict.
func Summarize(record *api.Record) notification.Summary {
	accepted, rejected := record.Results.Summary()
	return notification.Summary{
		Files:    len(record.Results.Files),
		Accepted: accepted,
		Rejected: rejected,
	}
}
