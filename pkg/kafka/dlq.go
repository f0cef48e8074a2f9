package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
)

// DLQTopic returns the dead-letter topic for a source topic.
func DLQTopic(originalTopic string) string {
	return fmt.Sprintf("%s.dlq.%s", TopicPrefix, originalTopic)
}

// DLQProducer copies failed messages to their dead-letter topic with the
// failure context attached as headers.
type DLQProducer struct {
	writer MessageWriter
	logger *slog.Logger
}

// NewDLQProducer creates a DLQ producer for the given brokers.
func NewDLQProducer(brokers []string, logger *slog.Logger) *DLQProducer {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		BatchSize:              1,
		BatchTimeout:           100 * time.Millisecond,
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &DLQProducer{writer: w, logger: logger}
}

// Publish writes msg to DLQTopic(msg.Topic).
func (d *DLQProducer) Publish(ctx context.Context, msg kafka.Message, lastErr error, consumerGroup string) error {
	dlqTopic := DLQTopic(msg.Topic)

	headers := make([]kafka.Header, 0, len(msg.Headers)+5)
	headers = append(headers, msg.Headers...)
	headers = append(headers,
		kafka.Header{Key: "dlq.original_topic", Value: []byte(msg.Topic)},
		kafka.Header{Key: "dlq.original_partition", Value: []byte(strconv.Itoa(msg.Partition))},
		kafka.Header{Key: "dlq.original_offset", Value: []byte(strconv.FormatInt(msg.Offset, 10))},
		kafka.Header{Key: "dlq.consumer_group", Value: []byte(consumerGroup)},
	)
	if lastErr != nil {
		headers = append(headers, kafka.Header{Key: "dlq.error", Value: []byte(lastErr.Error())})
	}

	err := d.writer.WriteMessages(ctx, kafka.Message{
		Topic:   dlqTopic,
		Key:     msg.Key,
		Value:   msg.Value,
		Headers: headers,
	})
	if err != nil {
		d.logger.ErrorContext(ctx, "failed to publish message to DLQ",
			slog.String("dlq_topic", dlqTopic),
			slog.Int64("offset", msg.Offset),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("publish to DLQ %s: %w", dlqTopic, err)
	}

	d.logger.WarnContext(ctx, "message sent to DLQ",
		slog.String("dlq_topic", dlqTopic),
		slog.String("original_topic", msg.Topic),
		slog.Int64("offset", msg.Offset),
		slog.String("consumer_group", consumerGroup),
	)
	return nil
}

// Close closes the DLQ writer.
func (d *DLQProducer) Close() error {
	return d.writer.Close()
}
