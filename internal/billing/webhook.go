package billing

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"
)

// MaxWebhookBody bounds the raw payload read from a webhook request.
const MaxWebhookBody = 64 << 10

// Webhook event types that change an organization's plan.
const (
	EventSubscriptionCreated = "customer.subscription.created"
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionDeleted = "customer.subscription.deleted"
)

// Event is a verified webhook event. Subscription is set only for
// customer.subscription.* events.
type Event struct {
	ID           string
	Type         string
	Subscription *Subscription
}

// Subscription is the normalized subscription object carried by an event.
type Subscription struct {
	ID          string
	CustomerID  string
	ProductID   string
	Status      string
	StartedAt   time.Time
	PeriodStart *time.Time
	PeriodEnd   *time.Time
	CanceledAt  *time.Time
}

// WebhookVerifier checks Stripe-Signature headers with the endpoint secret.
type WebhookVerifier struct {
	secret string
}

func NewWebhookVerifier(secret string) *WebhookVerifier {
	return &WebhookVerifier{secret: secret}
}

// Parse verifies the HMAC signature over payload and decodes the event.
func (v *WebhookVerifier) Parse(payload []byte, signature string) (*Event, error) {
	raw, err := webhook.ConstructEventWithOptions(payload, signature, v.secret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("verify webhook signature: %w", err)
	}

	ev := &Event{ID: raw.ID, Type: string(raw.Type)}
	switch ev.Type {
	case EventSubscriptionCreated, EventSubscriptionUpdated, EventSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(raw.Data.Raw, &sub); err != nil {
			return nil, fmt.Errorf("decode subscription: %w", err)
		}
		ev.Subscription = normalizeSubscription(&sub)
	}
	return ev, nil
}

func normalizeSubscription(sub *stripe.Subscription) *Subscription {
	out := &Subscription{
		ID:          sub.ID,
		Status:      string(sub.Status),
		StartedAt:   unixUTC(sub.StartDate),
		PeriodStart: optionalUnix(sub.CurrentPeriodStart),
		PeriodEnd:   optionalUnix(sub.CurrentPeriodEnd),
		CanceledAt:  optionalUnix(sub.CanceledAt),
	}
	if sub.Customer != nil {
		out.CustomerID = sub.Customer.ID
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 {
		if p := sub.Items.Data[0].Price; p != nil && p.Product != nil {
			out.ProductID = p.Product.ID
		}
	}
	if out.StartedAt.IsZero() {
		out.StartedAt = unixUTC(sub.Created)
	}
	return out
}

func unixUTC(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}

func optionalUnix(sec int64) *time.Time {
	if sec == 0 {
		return nil
	}
	t := unixUTC(sec)
	return &t
}
