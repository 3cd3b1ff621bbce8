package proxy

import (
	"context"
	"log/slog"

	"gocloud.dev/pubsub"
)

// MessageMutateFunc turns a received message into the message to forward.
// Returning a nil message with a nil error drops the message.
type MessageMutateFunc func(*pubsub.Message) (*pubsub.Message, error)

type PubSubProxy struct {
	topic        *pubsub.Topic
	subscription *pubsub.Subscription
}

func New(topic *pubsub.Topic, subscription *pubsub.Subscription) *PubSubProxy {
	return &PubSubProxy{
		topic:        topic,
		subscription: subscription,
	}
}

// Listen forwards messages from the subscription to the topic, passing each
// through preprocess, until receiving fails.
func (proxy *PubSubProxy) Listen(ctx context.Context, preprocess MessageMutateFunc) error {
	for {
		msg, err := proxy.subscription.Receive(ctx)
		if err != nil {
			slog.ErrorContext(ctx, "Error receiving message", "error", err)
			return err
		}
		go func(m *pubsub.Message) {
			logger := slog.With("message_id", m.LoggableID)
			outMsg, err := preprocess(m)
			if err != nil {
				// Failure to parse and process messages should result in an acknowledgement
				// to avoid the message being redelivered.
				logger.WarnContext(ctx, "Error processing message", "error", err)
				m.Ack()
				return
			}
			if outMsg == nil {
				logger.DebugContext(ctx, "Dropping message")
				m.Ack()
				return
			}
			logger.InfoContext(ctx, "Sending message to topic")
			if err := proxy.topic.Send(ctx, outMsg); err != nil {
				logger.ErrorContext(ctx, "Error sending message", "error", err)
				if m.Nackable() {
					m.Nack()
				}
				return
			}
			logger.InfoContext(ctx, "Sent message successfully")
			m.Ack()
		}(msg)
	}
}
