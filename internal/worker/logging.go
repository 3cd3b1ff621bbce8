package worker

import (
	"context"
	"log/slog"

	"github.com/ossf/byte-analysis/internal/log"
	api "github.com/ossf/byte-analysis/pkg/api/bytedist"
)

/*
NOTE: These strings may be referenced externally by log based metrics and
dashboards, and so should be changed with care.
*/
const (
	analysisCompleteLogMsg = "Analysis completed successfully"
	analysisErrorLogMsg    = "Analysis error"
	gotRequestLogMsg       = "Got request"
)

// LogRequest records that a request for analysis was received by the worker.
func LogRequest(ctx context.Context, source, resultsBucketOverride string) {
	slog.InfoContext(ctx, gotRequestLogMsg,
		log.LabelAttr("source", source),
		log.LabelAttr("results_bucket_override", resultsBucketOverride),
	)
}

// LogAnalysisResult records the outcome of analysing a source.
func LogAnalysisResult(ctx context.Context, record *api.Record) {
	accepted, rejected := record.Results.Summary()
	slog.InfoContext(ctx, analysisCompleteLogMsg,
		log.LabelAttr("source", record.Source),
		"files", len(record.Results.Files),
		"accepted", accepted,
		"rejected", rejected,
	)
}

// LogAnalysisError indicates that a source could not be analysed at all.
func LogAnalysisError(ctx context.Context, source string, err error) {
	slog.ErrorContext(ctx, analysisErrorLogMsg,
		log.LabelAttr("source", source),
		"error", err)
}
