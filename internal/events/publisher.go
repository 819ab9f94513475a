package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	kafka "github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
)

// WatermillPublisher adapts a watermill publisher to the EventPublisher
// interface. The transport behind it is either the in-process gochannel
// pub/sub or Kafka, depending on configuration.
type WatermillPublisher struct {
	publisher message.Publisher
	topic     string
	logger    *slog.Logger
}

// NewGoChannelPublisher builds an in-process publisher. Used when no broker is
// configured; events stay observable to in-process subscribers and tests.
func NewGoChannelPublisher(topic string, logger *slog.Logger) *WatermillPublisher {
	pubsub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 64,
	}, watermill.NewSlogLogger(logger))

	return &WatermillPublisher{
		publisher: pubsub,
		topic:     topic,
		logger:    logger,
	}
}

// NewKafkaPublisher builds a Kafka-backed publisher from a comma-separated
// broker list.
func NewKafkaPublisher(brokers, topic string, logger *slog.Logger) (*WatermillPublisher, error) {
	publisher, err := kafka.NewPublisher(kafka.PublisherConfig{
		Brokers:   strings.Split(brokers, ","),
		Marshaler: kafka.DefaultMarshaler{},
	}, watermill.NewSlogLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka publisher: %w", err)
	}

	return &WatermillPublisher{
		publisher: publisher,
		topic:     topic,
		logger:    logger,
	}, nil
}

func (p *WatermillPublisher) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(event.ID, payload)
	msg.SetContext(ctx)
	msg.Metadata.Set("type", event.Type)

	if err := p.publisher.Publish(p.topic, msg); err != nil {
		return fmt.Errorf("failed to publish event %s: %w", event.Type, err)
	}

	return nil
}

func (p *WatermillPublisher) Close() error {
	return p.publisher.Close()
}
