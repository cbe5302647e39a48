package events

import (
	"context"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
)

// KafkaPublisher writes events to a single topic keyed by event type.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: kafka.NewWriter(kafka.WriterConfig{
			Brokers:  brokers,
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		}),
	}
}

func (k *KafkaPublisher) Publish(ctx context.Context, e Event) error {
	value, err := e.encode()
	if err != nil {
		return errors.Wrap(err, "encode event")
	}
	msg := kafka.Message{
		Key:   []byte(e.Type),
		Value: value,
		Time:  e.OccurredAt,
	}
	return errors.Wrapf(k.writer.WriteMessages(ctx, msg), "kafka write %s", e.Type)
}

func (k *KafkaPublisher) Close() error {
	return k.writer.Close()
}
