// Package webhook posts fire notifications to an external endpoint.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/garyohosu/translate-nudge/trigger"
)

// EventFired is sent after every fire that ran the actions.
const EventFired = "nudge.fired"

// SignatureHeader carries "sha256=<hex HMAC of the body>" when a secret is set.
const SignatureHeader = "X-Nudge-Signature"

// Event is the payload sent to webhook endpoints.
type Event struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Kind      string `json:"kind"`
	Timestamp int64  `json:"timestamp"` // unix millis
	Error     string `json:"error,omitempty"`
}

// Notifier delivers events to one endpoint.
type Notifier struct {
	url    string
	secret string
	client *http.Client
	log    *slog.Logger

	// retryDelays are the waits before each attempt.
	retryDelays []time.Duration
}

// New creates a Notifier. A nil logger means slog.Default().
func New(url, secret string, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		url:         url,
		secret:      secret,
		client:      &http.Client{Timeout: 10 * time.Second},
		log:         logger.With("component", "webhook"),
		retryDelays: []time.Duration{0, 1 * time.Second, 5 * time.Second, 30 * time.Second},
	}
}

// Wrap returns a dispatcher that runs d and then notifies asynchronously,
// so delivery never holds up the in-flight window.
func (n *Notifier) Wrap(d trigger.Dispatcher) trigger.Dispatcher {
	return trigger.DispatchFunc(func(kind trigger.Kind) error {
		err := d.Dispatch(kind)
		ev := &Event{
			ID:        uuid.NewString(),
			Type:      EventFired,
			Kind:      kind.String(),
			Timestamp: time.Now().UnixMilli(),
		}
		if err != nil {
			ev.Error = err.Error()
		}
		n.DeliverAsync(ev)
		return err
	})
}

// Deliver sends an event synchronously.
func (n *Notifier) Deliver(ctx context.Context, event *Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("webhook: marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "translate-nudge-webhook/1.0")
	if n.secret != "" {
		req.Header.Set(SignatureHeader, Sign(n.secret, body))
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: deliver: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook: endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// DeliverAsync sends an event in the background, retrying on failure.
func (n *Notifier) DeliverAsync(event *Event) {
	go func() {
		for attempt, delay := range n.retryDelays {
			if delay > 0 {
				time.Sleep(delay)
			}
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			err := n.Deliver(ctx, event)
			cancel()
			if err == nil {
				n.log.Debug("webhook delivered",
					"event", event.Type,
					"id", event.ID,
					"attempt", attempt+1,
				)
				return
			}
			n.log.Warn("webhook delivery failed",
				"event", event.Type,
				"id", event.ID,
				"attempt", attempt+1,
				"error", err,
			)
		}
		n.log.Error("webhook delivery exhausted all retries",
			"event", event.Type,
			"id", event.ID,
		)
	}()
}

// Sign returns the signature header value for body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
