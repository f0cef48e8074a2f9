// Package billing talks to Stripe: customers, prices, subscriptions, the
// hosted billing portal and checkout, and webhook verification.
package billing

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"

	apperrors "github.com/harunzafer/fastsvelte/pkg/errors"
)

const callTimeout = 15 * time.Second

// Price is the subset of a Stripe price the service needs.
type Price struct {
	ID         string
	ProductID  string
	UnitAmount int64
}

// Gateway is the payment-provider surface used by the service layer.
type Gateway interface {
	CreateCustomer(ctx context.Context, name, email string, orgID int64) (string, error)
	ListActivePrices(ctx context.Context, productID string) ([]Price, error)
	CreateSubscription(ctx context.Context, customerID, priceID string, orgID int64) (string, error)
	BillingPortalURL(ctx context.Context, customerID, returnURL string) (string, error)
	CheckoutURL(ctx context.Context, customerID, priceID, successURL, cancelURL string) (string, error)
}

// StripeGateway implements Gateway with a per-instance Stripe client.
type StripeGateway struct {
	sc *client.API
}

// Options overrides the Stripe backend. The zero value talks to api.stripe.com.
type Options struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewStripeGateway(apiKey string, opts Options) *StripeGateway {
	cfg := &stripe.BackendConfig{
		HTTPClient:        opts.HTTPClient,
		MaxNetworkRetries: stripe.Int64(1),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelError},
	}
	if opts.BaseURL != "" {
		cfg.URL = stripe.String(opts.BaseURL)
	}
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, cfg)

	return &StripeGateway{
		sc: client.New(apiKey, &stripe.Backends{API: backend, Connect: backend, Uploads: backend}),
	}
}

func (g *StripeGateway) CreateCustomer(ctx context.Context, name, email string, orgID int64) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	params := &stripe.CustomerParams{
		Name:  stripe.String(name),
		Email: stripe.String(email),
	}
	params.Context = ctx
	params.AddMetadata("org_id", strconv.FormatInt(orgID, 10))

	cust, err := g.sc.Customers.New(params)
	if err != nil {
		return "", classify("create customer", err)
	}
	return cust.ID, nil
}

func (g *StripeGateway) ListActivePrices(ctx context.Context, productID string) ([]Price, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	params := &stripe.PriceListParams{
		Product: stripe.String(productID),
		Active:  stripe.Bool(true),
	}
	params.Context = ctx

	prices := []Price{}
	it := g.sc.Prices.List(params)
	for it.Next() {
		p := it.Price()
		price := Price{ID: p.ID, UnitAmount: p.UnitAmount}
		if p.Product != nil {
			price.ProductID = p.Product.ID
		}
		prices = append(prices, price)
	}
	if err := it.Err(); err != nil {
		return nil, classify("list prices", err)
	}
	return prices, nil
}

func (g *StripeGateway) CreateSubscription(ctx context.Context, customerID, priceID string, orgID int64) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	params := &stripe.SubscriptionParams{
		Customer: stripe.String(customerID),
		Items: []*stripe.SubscriptionItemsParams{
			{Price: stripe.String(priceID)},
		},
	}
	params.Context = ctx
	params.AddMetadata("org_id", strconv.FormatInt(orgID, 10))

	sub, err := g.sc.Subscriptions.New(params)
	if err != nil {
		return "", classify("create subscription", err)
	}
	return sub.ID, nil
}

func (g *StripeGateway) BillingPortalURL(ctx context.Context, customerID, returnURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	params.Context = ctx

	sess, err := g.sc.BillingPortalSessions.New(params)
	if err != nil {
		return "", classify("create billing portal session", err)
	}
	return sess.URL, nil
}

func (g *StripeGateway) CheckoutURL(ctx context.Context, customerID, priceID, successURL, cancelURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	params := &stripe.CheckoutSessionParams{
		Mode:     stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer: stripe.String(customerID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(priceID), Quantity: stripe.Int64(1)},
		},
		SuccessURL: stripe.String(successURL),
		CancelURL:  stripe.String(cancelURL),
	}
	params.Context = ctx

	sess, err := g.sc.CheckoutSessions.New(params)
	if err != nil {
		return "", classify("create checkout session", err)
	}
	return sess.URL, nil
}

// classify turns throttling, 5xx and transport failures into a retryable
// EXTERNAL_SERVICE_ERROR and leaves request errors as plain wrapped errors.
func classify(op string, err error) error {
	var serr *stripe.Error
	if errors.As(err, &serr) && serr.HTTPStatusCode > 0 &&
		serr.HTTPStatusCode < 500 && serr.HTTPStatusCode != http.StatusTooManyRequests {
		return fmt.Errorf("stripe %s: %w", op, err)
	}
	return apperrors.Unavailable("stripe", fmt.Errorf("%s: %w", op, err))
}
