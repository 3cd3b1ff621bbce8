package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/s3blob"
	"gocloud.dev/pubsub"
	_ "gocloud.dev/pubsub/gcppubsub"
	_ "gocloud.dev/pubsub/kafkapubsub"

	"github.com/ossf/byte-analysis/internal/bytedist"
	"github.com/ossf/byte-analysis/internal/contentanalysis"
	"github.com/ossf/byte-analysis/internal/criteria"
	"github.com/ossf/byte-analysis/internal/featureflags"
	"github.com/ossf/byte-analysis/internal/log"
	"github.com/ossf/byte-analysis/internal/metrics"
	"github.com/ossf/byte-analysis/internal/notification"
	"github.com/ossf/byte-analysis/internal/resultstore"
	"github.com/ossf/byte-analysis/internal/worker"
)

// handler processes analysis request messages. inputBucket must be set;
// resultStore and notificationTopic may be nil, in which case results are
// not saved or announced.
type handler struct {
	inputBucket       *blob.Bucket
	resultStore       *resultstore.ResultStore
	notificationTopic *pubsub.Topic
	analyzer          *contentanalysis.Analyzer
	metrics           *metrics.Metrics
}

func (h *handler) handleMessage(ctx context.Context, msg *pubsub.Message) error {
	h.metrics.MessagesProcessed.Inc()

	source := msg.Metadata["path"]
	if source == "" {
		slog.WarnContext(ctx, "path is empty")
		msg.Ack()
		return nil
	}
	ctx = log.ContextWithAttrs(ctx, log.LabelAttr("source", source))

	resultStore := h.resultStore
	resultsBucketOverride := msg.Metadata["results_bucket_override"]
	if resultsBucketOverride != "" {
		resultStore = resultstore.New(resultsBucketOverride, resultstore.ConstructPath())
	}

	worker.LogRequest(ctx, source, resultsBucketOverride)

	start := time.Now()
	defer func() {
		h.metrics.AnalysisDuration.Observe(time.Since(start).Seconds())
	}()

	dir, err := os.MkdirTemp("", "byte-analysis-")
	if err != nil {
		h.metrics.ObserveError(metrics.StageRead)
		return err
	}
	defer os.RemoveAll(dir)

	localPath, err := worker.CopyBlobToDir(ctx, h.inputBucket, source, dir)
	if err != nil {
		h.metrics.ObserveError(metrics.StageRead)
		return fmt.Errorf("failed to copy %s from input bucket: %w", source, err)
	}

	record, err := worker.RunAnalysis(ctx, h.analyzer, localPath, source)
	if err != nil {
		h.metrics.ObserveError(metrics.StageAnalyze)
		return err
	}
	h.metrics.ObserveResults(record.Results.Files)

	if err := worker.SaveResults(ctx, resultStore, record); err != nil {
		h.metrics.ObserveError(metrics.StageSave)
		return err
	}

	if h.notificationTopic != nil {
		err := notification.PublishAnalysisCompletion(ctx, h.notificationTopic, source, worker.Summarize(record))
		if err != nil {
			h.metrics.ObserveError(metrics.StageNotify)
			return err
		}
	}

	msg.Ack()
	return nil
}

// messageLoop handles messages from sub until receiving fails, which
// includes ctx being cancelled. Messages that fail to process are not
// acked, so they are redelivered.
func messageLoop(ctx context.Context, sub *pubsub.Subscription, h *handler) error {
	slog.InfoContext(ctx, "Listening for messages to process...")
	for {
		msg, err := sub.Receive(ctx)
		if err != nil {
			if ctx.Err() == nil {
				h.metrics.ObserveError(metrics.StageMessage)
			}
			// All subsequent receive calls will return the same error, so we bail out.
			return fmt.Errorf("error receiving message: %w", err)
		}

		if err := h.handleMessage(ctx, msg); err != nil {
			slog.ErrorContext(ctx, "Failed to process message", "error", err)
		}
	}
}

func criteriaProvider(ctx context.Context, criteriaFile string) (contentanalysis.CriteriaProvider, error) {
	if criteriaFile == "" {
		return contentanalysis.StaticCriteria(bytedist.DefaultCriteria()), nil
	}
	return criteria.LoadAndWatch(ctx, criteriaFile)
}

func run(ctx context.Context, cfg *config) error {
	if err := featureflags.Update(cfg.Features); err != nil {
		return err
	}

	provider, err := criteriaProvider(ctx, cfg.CriteriaFile)
	if err != nil {
		return err
	}

	analyzer, err := contentanalysis.New(ctx, contentanalysis.Options{
		Tasks:          contentanalysis.AllTasks(),
		Criteria:       provider,
		MaxFileSize:    cfg.MaxFileSize,
		ByteCounts:     featureflags.ByteCounts.Enabled(),
		ArchiveMembers: featureflags.ArchiveMembers.Enabled(),
	})
	if err != nil {
		return err
	}

	m := metrics.New()
	if cfg.MetricsAddr != "" {
		go func() {
			if err := m.Serve(ctx, cfg.MetricsAddr, featureflags.Profiler.Enabled()); err != nil {
				slog.ErrorContext(ctx, "Metrics server failed", "error", err)
			}
		}()
	}

	sub, err := pubsub.OpenSubscription(ctx, cfg.SubscriptionURL)
	if err != nil {
		return err
	}
	defer sub.Shutdown(context.Background())

	if cfg.InputBucket == "" {
		return errors.New("BYTE_ANALYSIS_INPUT_BUCKET is not set")
	}
	inputBucket, err := blob.OpenBucket(ctx, cfg.InputBucket)
	if err != nil {
		return err
	}
	defer inputBucket.Close()

	// the default value of the notificationTopic object is nil
	// if no environment variable for a notification topic is set,
	// analysis continues with no notifications published
	var notificationTopic *pubsub.Topic
	if cfg.NotificationTopicURL != "" {
		notificationTopic, err = pubsub.OpenTopic(ctx, cfg.NotificationTopicURL)
		if err != nil {
			return err
		}
		defer notificationTopic.Shutdown(context.Background())
	}

	var resultStore *resultstore.ResultStore
	if cfg.ResultsBucket != "" {
		resultStore = resultstore.New(cfg.ResultsBucket, resultstore.ConstructPath())
	}

	h := &handler{
		inputBucket:       inputBucket,
		resultStore:       resultStore,
		notificationTopic: notificationTopic,
		analyzer:          analyzer,
		metrics:           m,
	}
	return messageLoop(ctx, sub, h)
}

func main() {
	log.Initialize(os.Getenv("LOGGER_ENV"))

	cfg, err := configFromEnv()
	if err != nil {
		slog.Error("Failed to read configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Log the configuration of the worker at startup so we can observe it.
	slog.InfoContext(ctx, "Starting worker", "config", cfg)

	if err := run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		slog.ErrorContext(ctx, "Error encountered", "error", err)
		os.Exit(1)
	}
}
