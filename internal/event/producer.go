// Package event publishes domain events to Kafka and consumes the ones the
// application reacts to itself.
package event

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/harunzafer/fastsvelte/internal/domain"
	pkgkafka "github.com/harunzafer/fastsvelte/pkg/kafka"
	"github.com/harunzafer/fastsvelte/pkg/logger"
)

// Topics owned by the API.
var (
	TopicUserRegistered        = pkgkafka.Topic("user", "registered")
	TopicOrganizationFirstSeen = pkgkafka.Topic("organization", "first_seen")
	TopicSubscriptionChanged   = pkgkafka.Topic("subscription", "changed")
)

// SourceAPI identifies events emitted by this service.
const SourceAPI = "fastsvelte-api"

// UserRegisteredData is the payload for a user.registered event.
type UserRegisteredData struct {
	UserID         int64  `json:"user_id"`
	OrganizationID int64  `json:"organization_id"`
	Email          string `json:"email"`
	Role           string `json:"role"`
	Method         string `json:"method"`
}

// OrganizationFirstSeenData is the payload for an organization.first_seen event.
type OrganizationFirstSeenData struct {
	OrganizationID int64 `json:"organization_id"`
	UserID         int64 `json:"user_id"`
}

// SubscriptionChangedData is the payload for a subscription.changed event.
type SubscriptionChangedData struct {
	OrganizationID       int64  `json:"organization_id"`
	PlanID               int64  `json:"plan_id"`
	StripeSubscriptionID string `json:"stripe_subscription_id"`
	Status               string `json:"status"`
}

// Producer publishes domain events. A Producer built with a nil publisher
// drops every event, which is how the API runs without Kafka.
type Producer struct {
	kafka  pkgkafka.Publisher
	logger *slog.Logger
}

func NewProducer(kafka pkgkafka.Publisher, logger *slog.Logger) *Producer {
	return &Producer{kafka: kafka, logger: logger}
}

// Enabled reports whether events reach a broker.
func (p *Producer) Enabled() bool {
	return p != nil && p.kafka != nil
}

func (p *Producer) PublishUserRegistered(ctx context.Context, u *domain.User, method string) error {
	return p.publish(ctx, TopicUserRegistered, u.ID, UserRegisteredData{
		UserID:         u.ID,
		OrganizationID: u.OrganizationID,
		Email:          u.Email,
		Role:           u.Role.String(),
		Method:         method,
	})
}

func (p *Producer) PublishOrganizationFirstSeen(ctx context.Context, orgID, userID int64) error {
	return p.publish(ctx, TopicOrganizationFirstSeen, orgID, OrganizationFirstSeenData{
		OrganizationID: orgID,
		UserID:         userID,
	})
}

func (p *Producer) PublishSubscriptionChanged(ctx context.Context, op *domain.OrganizationPlan) error {
	data := SubscriptionChangedData{
		OrganizationID: op.OrganizationID,
		PlanID:         op.PlanID,
		Status:         op.Status,
	}
	if op.StripeSubscriptionID != nil {
		data.StripeSubscriptionID = *op.StripeSubscriptionID
	}
	return p.publish(ctx, TopicSubscriptionChanged, op.OrganizationID, data)
}

func (p *Producer) publish(ctx context.Context, topic string, key int64, data any) error {
	if !p.Enabled() {
		return nil
	}

	event, err := pkgkafka.NewEvent(topic, strconv.FormatInt(key, 10), SourceAPI, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	event.WithCorrelationID(logger.CorrelationIDFromContext(ctx))

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published event",
		slog.String("topic", topic),
		slog.String("event_id", event.ID),
	)
	return nil
}
