// Package eventbus fans committed match snapshots out to in-process
// subscribers and, when configured, mirrors them onto NATS.
package eventbus

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	nc "github.com/nats-io/nats.go"
)

const (
	// TopicRoundsUpdated carries a match view every time a refresh commits.
	TopicRoundsUpdated = "match.rounds.updated"

	// MetadataMatchID names the message metadata key holding the match id.
	MetadataMatchID = "match_id"
)

// EventBus publishes and subscribes to in-process topics.
type EventBus interface {
	Publish(topic string, messages ...*message.Message) error
	Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error)
	Close() error
}

type eventBus struct {
	pubsub   *gochannel.GoChannel
	natsConn *nc.Conn
	logger   *slog.Logger
}

// NewEventBus creates an in-process bus. A non-empty natsURL additionally
// mirrors every published payload to "<topic>.<match id>" on NATS.
func NewEventBus(natsURL string, logger *slog.Logger) (EventBus, error) {
	pubsub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 16},
		watermill.NewSlogLogger(logger),
	)

	eb := &eventBus{pubsub: pubsub, logger: logger}
	if natsURL == "" {
		return eb, nil
	}

	conn, err := nc.Connect(natsURL,
		nc.Name("matchview"),
		nc.RetryOnFailedConnect(true),
		nc.MaxReconnects(-1),
		nc.ReconnectWait(2*time.Second),
	)
	if err != nil {
		pubsub.Close()
		logger.Error("Failed to connect to NATS", slog.Any("error", err))
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	eb.natsConn = conn
	return eb, nil
}

// NewMessage builds a message for a match with a fresh UUID.
func NewMessage(matchID string, payload []byte) *message.Message {
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set(MetadataMatchID, matchID)
	return msg
}

func (eb *eventBus) Publish(topic string, messages ...*message.Message) error {
	for _, msg := range messages {
		if msg.UUID == "" {
			msg.UUID = watermill.NewUUID()
		}
		eb.logger.Debug("Publishing message",
			slog.String("topic", topic),
			slog.String("message_id", msg.UUID),
			slog.String(MetadataMatchID, msg.Metadata.Get(MetadataMatchID)),
		)
	}

	if err := eb.pubsub.Publish(topic, messages...); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}

	if eb.natsConn != nil {
		for _, msg := range messages {
			subject := Subject(topic, msg.Metadata.Get(MetadataMatchID))
			if err := eb.natsConn.Publish(subject, msg.Payload); err != nil {
				// the in-process delivery already succeeded
				eb.logger.Warn("Failed to mirror message to NATS",
					slog.String("subject", subject),
					slog.Any("error", err),
				)
			}
		}
	}
	return nil
}

func (eb *eventBus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	ch, err := eb.pubsub.Subscribe(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}
	return ch, nil
}

func (eb *eventBus) Close() error {
	if eb.natsConn != nil {
		if err := eb.natsConn.Drain(); err != nil {
			eb.logger.Warn("Failed to drain NATS connection", slog.Any("error", err))
			eb.natsConn.Close()
		}
	}
	return eb.pubsub.Close()
}

// Subject returns the NATS subject a topic is mirrored to for a match.
func Subject(topic, matchID string) string {
	if matchID == "" {
		return topic
	}
	return topic + "." + matchID
}
