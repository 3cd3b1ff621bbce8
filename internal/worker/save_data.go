package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ossf/byte-analysis/internal/resultstore"
	api "github.com/ossf/byte-analysis/pkg/api/bytedist"
)

// SaveResults saves record to dest. dest can be nil, in which case
// this is a no-op.
func SaveResults(ctx context.Context, dest *resultstore.ResultStore, record *api.Record) error {
	if dest == nil {
		// nothing to do
		return nil
	}

	uploadStart := time.Now()
	if err := dest.Save(ctx, record); err != nil {
		return fmt.Errorf("failed to save byte analysis results to %s: %w", dest, err)
	}
	logDuration(ctx, "upload_duration", time.Since(uploadStart))

	return nil
}

func logDuration(ctx context.Context, key string, d time.Duration) {
	slog.DebugContext(ctx, "Timing", key, d)
}
