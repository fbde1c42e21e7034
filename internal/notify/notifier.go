package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Event kinds. Operator events have no recipient; the family-facing ones
// carry the parent's address in To.
const (
	EventFamilyRegistered = "family_registered"
	EventFamilyDeleted    = "family_deleted"
	EventCodeRecovery     = "code_recovery"
	EventFamilyWelcome    = "welcome_parent"
	EventChoreSubmitted   = "chore_submitted"
	EventRewardRedeemed   = "reward_redeemed"
)

// Event is a notification payload. An empty To targets the operator channel.
type Event struct {
	Kind       string            `json:"kind"`
	To         string            `json:"to,omitempty"`
	OccurredAt time.Time         `json:"occurredAt"`
	Fields     map[string]string `json:"fields,omitempty"`
}

// Notifier delivers notifications on a best-effort basis. When a webhook URL
// is configured events go there with a signed service token; otherwise they
// fall back to email, addressed to the event recipient or the operator.
// Delivery failures are logged and never surfaced to the caller, so
// user-facing flows cannot break on a bad notification channel.
type Notifier struct {
	webhookURL    string
	signingSecret []byte
	httpClient    *http.Client
	email         *EmailSender
	adminEmail    string
}

// NewNotifier wires the notification channels. Either channel may be absent.
func NewNotifier(webhookURL, signingSecret string, email *EmailSender, adminEmail string) *Notifier {
	return &Notifier{
		webhookURL:    webhookURL,
		signingSecret: []byte(signingSecret),
		httpClient:    &http.Client{Timeout: 10 * time.Second},
		email:         email,
		adminEmail:    adminEmail,
	}
}

// Notify dispatches an event in the background. It returns immediately.
func (n *Notifier) Notify(event Event) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	go n.deliver(event)
}

func (n *Notifier) deliver(event Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if n.webhookURL != "" {
		if err := n.postWebhook(ctx, event); err != nil {
			log.Printf("Notification webhook failed for %s: %v", event.Kind, err)
		}
		return
	}

	recipient := event.To
	if recipient == "" {
		recipient = n.adminEmail
	}
	if n.email != nil && recipient != "" {
		subject := fmt.Sprintf("[choreking] %s", event.Kind)
		body := formatEventBody(event)
		if err := n.email.Send(ctx, recipient, subject, body); err != nil {
			log.Printf("Notification email failed for %s: %v", event.Kind, err)
		}
		return
	}

	log.Printf("Notification dropped (no channel configured): %s", event.Kind)
}

func (n *Notifier) postWebhook(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if len(n.signingSecret) > 0 {
		token, err := n.serviceToken()
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// serviceToken mints a short-lived HS256 token identifying this service to
// the webhook receiver.
func (n *Notifier) serviceToken() (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    "choreking",
		Subject:   "notifier",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(5 * time.Minute)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(n.signingSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign service token: %w", err)
	}
	return signed, nil
}

func formatEventBody(event Event) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Event: %s\nAt: %s\n", event.Kind, event.OccurredAt.Format(time.RFC3339))
	for key, value := range event.Fields {
		fmt.Fprintf(&buf, "%s: %s\n", key, value)
	}
	return buf.String()
}
