package alerts

import (
	"context"
	"fmt"

	"github.com/segmentio/kafka-go"

	"procodus.dev/plant-processor/pkg/mq"
	"procodus.dev/plant-processor/pkg/plant"
	"procodus.dev/plant-processor/pkg/stream"
)

// KafkaNotifier publishes alerts as JSON to a topic, keyed by plant ID.
type KafkaNotifier struct {
	writer stream.Writer
}

// NewKafkaNotifier wraps writer.
func NewKafkaNotifier(writer stream.Writer) *KafkaNotifier {
	return &KafkaNotifier{writer: writer}
}

// Notify implements Notifier.
func (n *KafkaNotifier) Notify(ctx context.Context, alert *plant.Alert) error {
	data, err := encode(alert)
	if err != nil {
		return err
	}

	if err := n.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(alert.PlantID),
		Value: data,
	}); err != nil {
		return fmt.Errorf("failed to write alert to kafka: %w", err)
	}
	return nil
}

// Close implements Notifier.
func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}

// QueueNotifier pushes alerts as JSON onto a RabbitMQ queue.
type QueueNotifier struct {
	client mq.Publisher
}

// NewQueueNotifier wraps client.
func NewQueueNotifier(client mq.Publisher) *QueueNotifier {
	return &QueueNotifier{client: client}
}

// Notify implements Notifier.
func (n *QueueNotifier) Notify(ctx context.Context, alert *plant.Alert) error {
	data, err := encode(alert)
	if err != nil {
		return err
	}

	if err := n.client.Push(ctx, data); err != nil {
		return fmt.Errorf("failed to push alert to queue: %w", err)
	}
	return nil
}

// Close implements Notifier.
func (n *QueueNotifier) Close() error {
	return n.client.Close()
}
