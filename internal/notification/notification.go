package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"gocloud.dev/pubsub"

	"github.com/ossf/byte-analysis/pkg/notification"
)

func PublishAnalysisCompletion(ctx context.Context, notificationTopic *pubsub.Topic, source string, summary notification.Summary) error {
	notificationMsg, err := json.Marshal(notification.AnalysisCompletion{Source: source, Summary: summary})
	if err != nil {
		return fmt.Errorf("failed to encode completion notification: %w", err)
	}
	err = notificationTopic.Send(ctx, &pubsub.Message{
		Body:     notificationMsg,
		Metadata: nil,
	})
	if err != nil {
		return fmt.Errorf("failed to send completion notification: %w", err)
	}
	return nil
}
