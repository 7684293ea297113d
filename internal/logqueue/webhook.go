package logqueue

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/TimurManjosov/goflagship-server-sdk/internal/model"
)

const (
	// SignatureHeader carries hex HMAC-SHA256 of "<delivery id>.<body>"
	SignatureHeader = "X-Flagship-Signature"
	// EventHeader carries the event name
	EventHeader = "X-Flagship-Event"
	// DeliveryHeader carries a unique id per delivery
	DeliveryHeader = "X-Flagship-Delivery"

	// maxErrorBodySize limits how much of a failed response is kept (1KB)
	maxErrorBodySize = 1024
)

// WebhookSink posts each event as signed JSON to a fixed URL. Failed
// deliveries are reported to the queue, which logs them; there is no retry.
type WebhookSink struct {
	url    string
	key    []byte
	client *http.Client
}

// NewWebhookSink creates a sink. An empty secret sends unsigned requests.
func NewWebhookSink(url, secret string, timeout time.Duration) *WebhookSink {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	s := &WebhookSink{url: url, client: &http.Client{Timeout: timeout}}
	if secret != "" {
		s.key = []byte(secret)
	}
	return s
}

// sign binds the body to its delivery id so a captured body cannot be
// replayed under a fresh id.
func (s *WebhookSink) sign(delivery string, body []byte) string {
	mac := hmac.New(sha256.New, s.key)
	mac.Write([]byte(delivery))
	mac.Write([]byte{'.'})
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func (s *WebhookSink) Write(ctx context.Context, event model.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(EventHeader, event.EventName)
	delivery := uuid.NewString()
	req.Header.Set(DeliveryHeader, delivery)
	if s.key != nil {
		req.Header.Set(SignatureHeader, s.sign(delivery, payload))
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook delivery failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return fmt.Errorf("webhook delivery failed: status=%d body=%q", resp.StatusCode, body)
	}
	return nil
}

func (s *WebhookSink) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
