package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"regexp"

	"github.com/caarlos0/env/v11"
	"gocloud.dev/pubsub"
	_ "gocloud.dev/pubsub/gcppubsub"
	_ "gocloud.dev/pubsub/kafkapubsub"

	"github.com/ossf/byte-analysis/cmd/scheduler/proxy"
	"github.com/ossf/byte-analysis/internal/log"
)

type config struct {
	SubscriptionURL string `env:"BYTE_ANALYSIS_UPLOADS_SUBSCRIPTION,required"`
	TopicURL        string `env:"BYTE_ANALYSIS_WORKER_TOPIC,required"`

	// ExcludePaths is a list of regexp expressions, where if an uploaded
	// object's path matches an expression in this list, it will be ignored.
	ExcludePaths []string `env:"BYTE_ANALYSIS_EXCLUDE_PATHS" envSeparator:","`
}

// GCS object change notifications carry the event in message attributes.
// See https://cloud.google.com/storage/docs/pubsub-notifications
const (
	gcsEventTypeAttr = "eventType"
	gcsObjectIDAttr  = "objectId"
	gcsFinalizeEvent = "OBJECT_FINALIZE"
)

// uploadEvent is the JSON body accepted from producers that do not use
// GCS notifications.
type uploadEvent struct {
	Path string `json:"path"`
}

type filter struct {
	excludePaths []*regexp.Regexp
}

func newFilter(patterns []string) (*filter, error) {
	f := &filter{}
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", p, err)
		}
		f.excludePaths = append(f.excludePaths, re)
	}
	return f, nil
}

func (f *filter) skipPath(path string) bool {
	for _, re := range f.excludePaths {
		if re.MatchString(path) {
			return true
		}
	}
	return false
}

// uploadedPath extracts the path of the uploaded object from msg.
// An empty path with a nil error means the message is not an upload.
func uploadedPath(msg *pubsub.Message) (string, error) {
	if eventType, ok := msg.Metadata[gcsEventTypeAttr]; ok {
		if eventType != gcsFinalizeEvent {
			return "", nil
		}
		return msg.Metadata[gcsObjectIDAttr], nil
	}

	event := uploadEvent{}
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		return "", fmt.Errorf("error unmarshalling json: %w", err)
	}
	return event.Path, nil
}

// makeRequest turns an upload notification into an analysis request for the
// worker, or returns nil if the message should be dropped.
func (f *filter) makeRequest(msg *pubsub.Message) (*pubsub.Message, error) {
	path, err := uploadedPath(msg)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return nil, nil
	}
	if f.skipPath(path) {
		slog.Info("Skipping excluded path", "path", path)
		return nil, nil
	}
	return &pubsub.Message{
		Body: []byte{},
		Metadata: map[string]string{
			"path": path,
		},
	}, nil
}

func main() {
	log.Initialize(os.Getenv("LOGGER_ENV"))

	cfg := config{}
	if err := env.Parse(&cfg); err != nil {
		slog.Error("Failed to read configuration", "error", err)
		os.Exit(1)
	}

	if err := listenLoop(context.Background(), cfg); err != nil {
		slog.Error("Error encountered", "error", err)
	}
}

func listenLoop(ctx context.Context, cfg config) error {
	f, err := newFilter(cfg.ExcludePaths)
	if err != nil {
		return err
	}

	sub, err := pubsub.OpenSubscription(ctx, cfg.SubscriptionURL)
	if err != nil {
		return err
	}

	topic, err := pubsub.OpenTopic(ctx, cfg.TopicURL)
	if err != nil {
		return err
	}

	srv := proxy.New(topic, sub)
	slog.InfoContext(ctx, "Listening for messages to proxy...")

	return srv.Listen(ctx, f.makeRequest)
}
