// Package webhook delivers signed event notifications to
// tenant-registered endpoints.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/atum-helpdesk/atum/internal/domain"
	"github.com/atum-helpdesk/atum/internal/observability"
	"github.com/atum-helpdesk/atum/internal/repository"
)

const (
	headerEvent     = "X-Atum-Event"
	headerSignature = "X-Atum-Signature"

	defaultTimeout = 10 * time.Second
)

// envelope is the wire body every receiver gets.
type envelope struct {
	Event     string `json:"event"`
	Timestamp string `json:"timestamp"`
	Payload   any    `json:"payload"`
}

// Dispatcher POSTs signed event bodies to matching webhooks and records
// per-endpoint delivery outcomes.
type Dispatcher struct {
	webhooks repository.WebhookRepository
	client   *http.Client
	logger   *zap.Logger
	metrics  *observability.Metrics
}

// NewDispatcher builds a dispatcher with its own bounded HTTP client.
func NewDispatcher(webhooks repository.WebhookRepository, logger *zap.Logger, metrics *observability.Metrics) *Dispatcher {
	return &Dispatcher{
		webhooks: webhooks,
		client:   &http.Client{Timeout: defaultTimeout},
		logger:   logger,
		metrics:  metrics,
	}
}

// Dispatch sends the event to every active matching webhook of the org.
// Delivery failures are recorded per endpoint and never propagate to the
// caller; the triggering request must not fail because a receiver is down.
func (d *Dispatcher) Dispatch(ctx context.Context, orgID, eventType string, payload any) {
	hooks, err := d.webhooks.ListActive(ctx, orgID)
	if err != nil {
		d.logger.Error("loading webhooks failed",
			zap.String("organization_id", orgID),
			zap.Error(err),
		)
		return
	}

	body, err := json.Marshal(envelope{
		Event:     eventType,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	})
	if err != nil {
		d.logger.Error("marshalling webhook body failed", zap.Error(err))
		return
	}

	for _, hook := range hooks {
		if !hook.Matches(eventType) {
			continue
		}
		d.deliver(ctx, hook, eventType, body)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, hook domain.Webhook, eventType string, body []byte) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, hook.URL, bytes.NewReader(body))
	if err != nil {
		d.recordFailure(ctx, hook, err.Error())
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(headerEvent, eventType)
	req.Header.Set(headerSignature, Sign(hook.Secret, body))

	resp, err := d.client.Do(req)
	if err != nil {
		d.recordFailure(ctx, hook, err.Error())
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		d.recordFailure(ctx, hook, fmt.Sprintf("endpoint returned status %d", resp.StatusCode))
		return
	}

	if err := d.webhooks.RecordSuccess(ctx, hook.ID); err != nil {
		d.logger.Warn("recording webhook success failed", zap.Error(err))
	}
	if d.metrics != nil {
		d.metrics.WebhookResults.WithLabelValues("delivered").Inc()
	}
}

func (d *Dispatcher) recordFailure(ctx context.Context, hook domain.Webhook, reason string) {
	d.logger.Warn("webhook delivery failed",
		zap.String("webhook_id", hook.ID),
		zap.String("url", hook.URL),
		zap.String("reason", reason),
	)
	if err := d.webhooks.RecordFailure(ctx, hook.ID, reason); err != nil {
		d.logger.Error("recording webhook failure failed", zap.Error(err))
	}
	if d.metrics != nil {
		d.metrics.WebhookResults.WithLabelValues("failed").Inc()
	}
}

// Sign computes the signature header value for a body:
// sha256=<hex HMAC-SHA256 over the exact body bytes>.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a received signature in constant time; used by
// tests and by receivers built against this service.
func VerifySignature(secret string, body []byte, signature string) bool {
	return hmac.Equal([]byte(Sign(secret, body)), []byte(signature))
}
