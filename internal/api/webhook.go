/**
 * @description
 * This file contains the HTTP handler for processing incoming webhooks from
 * the payment provider. It is the entry point for subscription purchases.
 *
 * Key features:
 * - Security: validates the HMAC signature of the raw body before trusting
 *   anything in the payload. A mismatch rejects the request with 400 and
 *   mutates nothing.
 * - Parsing: decodes the JSON payload into strongly-typed structs.
 * - Routing: only charge.success events are acted on; everything else is
 *   acknowledged and ignored.
 */
package api

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/focusly/coach-service/internal/domain"
)

// SignatureHeader carries the provider's HMAC-SHA512 hex digest of the body.
const SignatureHeader = "x-payment-signature"

// SubscriptionActivator applies a verified successful charge.
type SubscriptionActivator interface {
	Activate(ctx context.Context, userID int64, plan domain.Plan, now time.Time) (*domain.User, error)
}

// PaymentEvent is the provider's webhook payload.
type PaymentEvent struct {
	Event string           `json:"event"`
	Data  PaymentEventData `json:"data"`
}

// PaymentEventData is the charge body inside a payment event.
type PaymentEventData struct {
	Status   string          `json:"status"`
	Metadata PaymentMetadata `json:"metadata"`
}

// PaymentMetadata is the pass-through metadata attached at checkout time.
type PaymentMetadata struct {
	UserID string `json:"userId"`
	Plan   string `json:"plan"`
}

// PaymentWebhookHandler processes incoming webhooks from the payment provider.
type PaymentWebhookHandler struct {
	subscriptions SubscriptionActivator
	secret        string
	logger        *slog.Logger
}

// NewPaymentWebhookHandler creates a new handler for the webhook endpoint.
func NewPaymentWebhookHandler(subscriptions SubscriptionActivator, secret string, logger *slog.Logger) *PaymentWebhookHandler {
	return &PaymentWebhookHandler{subscriptions: subscriptions, secret: secret, logger: logger}
}

// ServeHTTP implements the http.Handler interface.
func (h *PaymentWebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Error("failed to read webhook body", "error", err)
		http.Error(w, "cannot read request body", http.StatusBadRequest)
		return
	}

	if !h.isValidSignature(r.Header.Get(SignatureHeader), body) {
		h.logger.Warn("rejected webhook with invalid signature", "remote", r.RemoteAddr)
		http.Error(w, domain.ErrInvalidWebhookSignature.Error(), http.StatusBadRequest)
		return
	}

	var event PaymentEvent
	if err := json.Unmarshal(body, &event); err != nil {
		h.logger.Error("failed to decode webhook payload", "error", err)
		http.Error(w, "invalid JSON payload", http.StatusBadRequest)
		return
	}

	if event.Event != "charge.success" || event.Data.Status != "success" {
		h.logger.Info("ignoring webhook event", "event", event.Event, "status", event.Data.Status)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("event ignored"))
		return
	}

	userID, err := strconv.ParseInt(event.Data.Metadata.UserID, 10, 64)
	if err != nil {
		h.logger.Error("webhook metadata has invalid user id", "user_id", event.Data.Metadata.UserID)
		http.Error(w, "invalid user id in metadata", http.StatusBadRequest)
		return
	}

	plan, ok := domain.ParsePlan(event.Data.Metadata.Plan)
	if !ok {
		h.logger.Error("webhook metadata has unknown plan", "plan", event.Data.Metadata.Plan)
		http.Error(w, "unknown plan in metadata", http.StatusBadRequest)
		return
	}

	if _, err := h.subscriptions.Activate(r.Context(), userID, plan, time.Now()); err != nil {
		h.logger.Error("failed to activate subscription", "user_id", userID, "error", err)
		http.Error(w, "failed to process event", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("webhook processed"))
}

// isValidSignature checks the HMAC-SHA512 hex digest of the raw body against
// the signature header using a constant-time comparison.
func (h *PaymentWebhookHandler) isValidSignature(header string, body []byte) bool {
	if header == "" || h.secret == "" {
		return false
	}

	mac := hmac.New(sha512.New, []byte(h.secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(header))
}
