package notify

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
	"github.com/segmentio/kafka-go"
)

// KafkaNotifier publishes notifications to a Kafka topic. Consumers (the
// admin dashboard's notification feed) are outside this service.
type KafkaNotifier struct {
	writer *kafka.Writer
}

// NewKafkaNotifier creates a notifier writing to the given brokers and topic.
func NewKafkaNotifier(brokers []string, topic string) *KafkaNotifier {
	return &KafkaNotifier{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.LeastBytes{},
			AllowAutoTopicCreation: true,
		},
	}
}

// Send publishes one message per notification, keyed by recipient so a
// recipient's notifications stay ordered within a partition.
func (n *KafkaNotifier) Send(ctx context.Context, notifications []Notification) error {
	msgs := make([]kafka.Message, 0, len(notifications))
	for _, nt := range notifications {
		payload, err := json.Marshal(nt)
		if err != nil {
			return errors.Wrap(err, "marshal notification")
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(nt.Recipient),
			Value: payload,
		})
	}
	if len(msgs) == 0 {
		return nil
	}
	if err := n.writer.WriteMessages(ctx, msgs...); err != nil {
		return errors.Wrap(err, "write messages")
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}
