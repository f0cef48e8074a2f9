package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/harunzafer/fastsvelte/internal/billing"
	"github.com/harunzafer/fastsvelte/internal/domain"
	"github.com/harunzafer/fastsvelte/internal/service"
	"github.com/harunzafer/fastsvelte/pkg/httputil"
	"github.com/harunzafer/fastsvelte/pkg/logger"
)

// SubscriptionManager is implemented by *service.SubscriptionService.
type SubscriptionManager interface {
	ManageURL(ctx context.Context, actor *domain.AuthenticatedUser) (string, error)
	CheckoutURL(ctx context.Context, actor *domain.AuthenticatedUser, in service.CheckoutInput) (string, error)
	HandleWebhook(ctx context.Context, ev *billing.Event) error
}

// WebhookParser is implemented by *billing.WebhookVerifier.
type WebhookParser interface {
	Parse(payload []byte, signature string) (*billing.Event, error)
}

// BillingHandler handles subscription management and payment webhooks.
type BillingHandler struct {
	subscriptions SubscriptionManager
	webhooks      WebhookParser
	logger        *slog.Logger
}

func NewBillingHandler(subscriptions SubscriptionManager, webhooks WebhookParser, logger *slog.Logger) *BillingHandler {
	return &BillingHandler{subscriptions: subscriptions, webhooks: webhooks, logger: logger}
}

type urlResponse struct {
	URL string `json:"url"`
}

// Manage handles POST /subscription/manage
func (h *BillingHandler) Manage(w http.ResponseWriter, r *http.Request) {
	u, err := h.subscriptions.ManageURL(r.Context(), actor(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: urlResponse{URL: u}})
}

// Checkout handles POST /subscription/checkout
func (h *BillingHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req service.CheckoutInput
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	u, err := h.subscriptions.CheckoutURL(r.Context(), actor(r), req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: urlResponse{URL: u}})
}

// StripeWebhook handles POST /webhooks/stripe. The raw body is verified
// before anything is decoded.
func (h *BillingHandler) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, billing.MaxWebhookBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeCodedError(w, r, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "webhook payload too large")
			return
		}
		writeCodedError(w, r, http.StatusBadRequest, "INVALID_INPUT", "could not read webhook payload")
		return
	}

	ev, err := h.webhooks.Parse(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		h.logger.WarnContext(r.Context(), "rejected webhook", slog.String("error", err.Error()))
		writeCodedError(w, r, http.StatusBadRequest, "INVALID_SIGNATURE", "invalid webhook signature")
		return
	}

	if err := h.subscriptions.HandleWebhook(r.Context(), ev); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]bool{"received": true}})
}

func writeCodedError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	httputil.WriteJSON(w, status, httputil.Response{
		Error: &httputil.ErrorResponse{
			Code:      code,
			Message:   message,
			RequestID: logger.CorrelationIDFromContext(r.Context()),
		},
	})
}
