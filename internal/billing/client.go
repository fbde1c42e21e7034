package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2/clientcredentials"

	"choreking/internal/config"
)

// ErrOrderNotFound is returned when the billing provider has no record of
// the requested order.
var ErrOrderNotFound = errors.New("billing order not found")

// Order is the provider's view of a subscription order
type Order struct {
	ID          string     `json:"id"`
	Status      string     `json:"status"`
	Plan        string     `json:"plan"`
	Interval    string     `json:"interval"`
	RenewalDate *time.Time `json:"renewalDate"`
	PaidAt      *time.Time `json:"paidAt"`
}

// Client talks to the billing provider's REST API using OAuth2
// client-credentials tokens.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient builds a billing client from configuration. Returns nil when
// billing is not configured, in which case subscription refresh is disabled.
func NewClient(cfg *config.Config) *Client {
	if cfg.BillingAPIBaseURL == "" || cfg.BillingClientID == "" {
		return nil
	}

	oauthCfg := clientcredentials.Config{
		ClientID:     cfg.BillingClientID,
		ClientSecret: cfg.BillingClientSecret,
		TokenURL:     cfg.BillingTokenURL,
	}
	httpClient := oauthCfg.Client(context.Background())
	httpClient.Timeout = cfg.BillingTimeout

	return &Client{
		httpClient: httpClient,
		baseURL:    cfg.BillingAPIBaseURL,
	}
}

// GetOrder fetches the current state of a subscription order
func (c *Client) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	endpoint := fmt.Sprintf("%s/v1/orders/%s", c.baseURL, url.PathEscape(orderID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build order request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch order: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrOrderNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("billing provider returned status %d", resp.StatusCode)
	}

	var order Order
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, fmt.Errorf("failed to decode order: %w", err)
	}
	return &order, nil
}
