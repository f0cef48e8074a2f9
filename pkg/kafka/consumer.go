package kafka

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// maxHandlerRetries bounds handler attempts before a message is dead-lettered.
const maxHandlerRetries = 3

// Handler processes a single event.
type Handler func(ctx context.Context, event *Event) error

// MessageReader is the subset of *kafka.Reader used by Consumer.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// DeadLetterer receives messages whose handler failed every attempt.
type DeadLetterer interface {
	Publish(ctx context.Context, msg kafka.Message, lastErr error, consumerGroup string) error
}

// ConsumerConfig holds Kafka consumer configuration.
type ConsumerConfig struct {
	Brokers  []string
	GroupID  string
	Topics   []string
	MinBytes int
	MaxBytes int
	// RetryBackoff is multiplied by the attempt number between handler retries.
	RetryBackoff time.Duration
}

// Consumer reads events from one consumer group and dispatches them to a
// handler with retries. Offsets are committed after handling, so delivery
// is at-least-once.
type Consumer struct {
	reader    MessageReader
	dlq       DeadLetterer
	group     string
	backoff   time.Duration
	logger    *slog.Logger
	handler   Handler
	closeOnce sync.Once
}

// NewConsumer creates a consumer subscribed to cfg.Topics. dlq may be nil,
// in which case exhausted messages are committed and dropped.
func NewConsumer(cfg ConsumerConfig, handler Handler, dlq DeadLetterer, logger *slog.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		GroupTopics: cfg.Topics,
		MinBytes:    cfg.MinBytes,
		MaxBytes:    cfg.MaxBytes,
		StartOffset: kafka.FirstOffset,
	})
	return newConsumerWithReader(r, cfg, handler, dlq, logger)
}

func newConsumerWithReader(r MessageReader, cfg ConsumerConfig, handler Handler, dlq DeadLetterer, logger *slog.Logger) *Consumer {
	backoff := cfg.RetryBackoff
	if backoff <= 0 {
		backoff = 100 * time.Millisecond
	}
	return &Consumer{
		reader:  r,
		dlq:     dlq,
		group:   cfg.GroupID,
		backoff: backoff,
		logger:  logger,
		handler: handler,
	}
}

// Start consumes until ctx is canceled, then closes the reader.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("consumer started", slog.String("group", c.group))

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				c.logger.Info("consumer stopping", slog.String("group", c.group))
				return c.Close()
			}
			c.logger.Error("failed to fetch message", slog.String("error", err.Error()))
			select {
			case <-ctx.Done():
				return c.Close()
			case <-time.After(c.backoff):
			}
			continue
		}

		ConsumerMessagesReceived.WithLabelValues(msg.Topic, c.group).Inc()
		c.process(ctx, msg)

		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			c.logger.Error("failed to commit message",
				slog.String("topic", msg.Topic),
				slog.Int64("offset", msg.Offset),
				slog.String("error", err.Error()),
			)
		}
	}
}

// process runs the handler with retries. Every outcome ends in a commit:
// success, an unparseable message, or exhausted retries (after dead-lettering).
func (c *Consumer) process(ctx context.Context, msg kafka.Message) {
	event, err := UnmarshalEvent(msg.Value)
	if err != nil {
		c.logger.Error("failed to unmarshal event",
			slog.String("topic", msg.Topic),
			slog.Int64("offset", msg.Offset),
			slog.String("error", err.Error()),
		)
		c.deadLetter(ctx, msg, err)
		return
	}

	ctx = otel.GetTextMapPropagator().Extract(ctx, NewHeaderCarrier(&msg))
	ctx, span := otel.Tracer("github.com/harunzafer/fastsvelte/kafka").Start(ctx, "consume "+msg.Topic,
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination.name", msg.Topic),
			attribute.String("messaging.message.id", event.ID),
		),
	)
	defer span.End()

	start := time.Now()
	var lastErr error
	for attempt := 1; attempt <= maxHandlerRetries; attempt++ {
		if lastErr = c.handler(ctx, event); lastErr == nil {
			break
		}

		c.logger.WarnContext(ctx, "handler failed, will retry",
			slog.String("event_type", event.Type),
			slog.String("event_id", event.ID),
			slog.String("topic", msg.Topic),
			slog.Int("partition", msg.Partition),
			slog.Int64("offset", msg.Offset),
			slog.Int("attempt", attempt),
			slog.String("error", lastErr.Error()),
		)

		if attempt < maxHandlerRetries {
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Duration(attempt) * c.backoff):
			}
		}
	}
	ConsumerProcessingDuration.WithLabelValues(msg.Topic, c.group).Observe(time.Since(start).Seconds())

	if lastErr != nil {
		span.RecordError(lastErr)
		span.SetStatus(codes.Error, lastErr.Error())
		ConsumerMessagesFailed.WithLabelValues(msg.Topic, c.group).Inc()
		c.logger.ErrorContext(ctx, "handler failed after all retries",
			slog.String("event_type", event.Type),
			slog.String("event_id", event.ID),
			slog.String("error", lastErr.Error()),
		)
		c.deadLetter(ctx, msg, lastErr)
		return
	}

	ConsumerMessagesProcessed.WithLabelValues(msg.Topic, c.group).Inc()
}

func (c *Consumer) deadLetter(ctx context.Context, msg kafka.Message, cause error) {
	if c.dlq == nil {
		return
	}
	if err := c.dlq.Publish(ctx, msg, cause, c.group); err != nil {
		return
	}
	ConsumerDLQPublished.WithLabelValues(msg.Topic, c.group).Inc()
}

// Close closes the reader. It is safe to call multiple times.
func (c *Consumer) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.reader.Close()
	})
	return err
}
