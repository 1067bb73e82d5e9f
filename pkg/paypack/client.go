package paypack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/config"
	pkgerrors "github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/errors"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/metrics"
)

const (
	defaultBaseURL              = "https://payments.paypack.rw/api"
	defaultTimeout              = 30 * time.Second
	authorizePath               = "auth/agents/authorize"
	cashinPath                  = "transactions/cashin"
	responseBodyReadLimit int64 = 1024
	tokenExpiryMargin           = 30 * time.Second

	operationAuthorize = "authorize"
	operationCashin    = "cashin"
)

// Gateway statuses reported on a cash-in.
const (
	StatusPending    = "pending"
	StatusSuccessful = "successful"
	StatusFailed     = "failed"
)

var (
	errCredentialsRequired = errors.New("paypack client id and secret are required")
)

// CashinResult is the normalized cash-in response.
type CashinResult struct {
	Ref    string
	Status string
	Amount int64
	Kind   string
}

// Client calls the PayPack merchant API. The access token is cached until
// shortly before it expires.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	clientID     string
	clientSecret string
	webhookMode  string
	metrics      *metrics.GatewayMetrics
	now          func() time.Time

	mu          sync.Mutex
	accessToken string
	expiresAt   time.Time
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the configured API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithMetrics records call outcomes and latency.
func WithMetrics(m *metrics.GatewayMetrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithClock overrides the time source used for token expiry.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// NewClient builds the PayPack client from configuration.
func NewClient(cfg config.PayPackConfig, opts ...Option) (*Client, error) {
	clientID := strings.TrimSpace(cfg.ClientID)
	clientSecret := strings.TrimSpace(cfg.ClientSecret)
	if clientID == "" || clientSecret == "" {
		return nil, errCredentialsRequired
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := &Client{
		httpClient:   &http.Client{Timeout: timeout},
		baseURL:      strings.TrimSpace(cfg.BaseURL),
		clientID:     clientID,
		clientSecret: clientSecret,
		webhookMode:  strings.TrimSpace(cfg.WebhookMode),
		now:          time.Now,
	}
	if client.baseURL == "" {
		client.baseURL = defaultBaseURL
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	return client, nil
}

// Cashin requests a mobile money pull of amount from the given phone number.
// The gateway only accepts whole units; fractional amounts are rejected
// rather than rounded so the charge always matches the recorded amount.
func (c *Client) Cashin(ctx context.Context, amount decimal.Decimal, phone string) (result CashinResult, err error) {
	if c == nil {
		return CashinResult{}, pkgerrors.New(pkgerrors.CodeDependency, "paypack client not configured")
	}
	number := strings.TrimSpace(phone)
	if number == "" {
		return CashinResult{}, pkgerrors.Validation("phone_number", "phone number is required")
	}
	units, err := WholeUnits(amount)
	if err != nil {
		return CashinResult{}, err
	}

	started := c.now()
	defer func() {
		c.metrics.Observe(operationCashin, outcomeLabel(result, err), c.now().Sub(started))
	}()

	token, err := c.token(ctx)
	if err != nil {
		return CashinResult{}, err
	}

	var resp struct {
		Ref    string `json:"ref"`
		Status string `json:"status"`
		Amount int64  `json:"amount"`
		Kind   string `json:"kind"`
	}
	body := map[string]any{"amount": units, "number": number}
	if err := c.post(ctx, cashinPath, token, body, &resp); err != nil {
		return CashinResult{}, err
	}
	if strings.TrimSpace(resp.Ref) == "" {
		return CashinResult{}, pkgerrors.New(pkgerrors.CodeGateway, "invalid response from paypack")
	}

	return CashinResult{
		Ref:    resp.Ref,
		Status: strings.ToLower(strings.TrimSpace(resp.Status)),
		Amount: resp.Amount,
		Kind:   resp.Kind,
	}, nil
}

// WholeUnits returns amount as a count of whole currency units. Anything
// below one unit or carrying a fractional part is a validation error.
func WholeUnits(amount decimal.Decimal) (int64, error) {
	if !amount.Equal(amount.Truncate(0)) {
		return 0, pkgerrors.Validation("amount", "mobile money amounts must be whole units")
	}
	units := amount.IntPart()
	if units < 1 {
		return 0, pkgerrors.Validation("amount", "amount must be at least 1")
	}
	return units, nil
}

func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && c.now().Before(c.expiresAt) {
		return c.accessToken, nil
	}

	started := c.now()
	var resp struct {
		Access  string `json:"access"`
		Refresh string `json:"refresh"`
		Expires int64  `json:"expires"`
	}
	body := map[string]string{"client_id": c.clientID, "client_secret": c.clientSecret}
	err := c.post(ctx, authorizePath, "", body, &resp)
	if err == nil && strings.TrimSpace(resp.Access) == "" {
		err = pkgerrors.New(pkgerrors.CodeGateway, "paypack authorize returned no token")
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	c.metrics.Observe(operationAuthorize, outcome, c.now().Sub(started))
	if err != nil {
		return "", err
	}

	c.accessToken = resp.Access
	c.expiresAt = c.expiry(resp.Expires)
	return c.accessToken, nil
}

// expiry accepts either a unix timestamp or a lifetime in seconds.
func (c *Client) expiry(expires int64) time.Time {
	now := c.now()
	var at time.Time
	switch {
	case expires <= 0:
		at = now.Add(5 * time.Minute)
	case expires > now.Unix()/2:
		at = time.Unix(expires, 0)
	default:
		at = now.Add(time.Duration(expires) * time.Second)
	}
	return at.Add(-tokenExpiryMargin)
}

func (c *Client) post(ctx context.Context, path, token string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal paypack request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.buildURL(path), bytes.NewReader(payload))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build paypack request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if c.webhookMode != "" {
		req.Header.Set("X-Webhook-Mode", c.webhookMode)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute paypack request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		cause := fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
		if resp.StatusCode >= http.StatusInternalServerError {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, cause, "paypack unavailable")
		}
		return pkgerrors.Wrap(pkgerrors.CodeGateway, cause, "paypack rejected request")
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeGateway, err, "decode paypack response")
	}
	return nil
}

func (c *Client) buildURL(path string) string {
	trimmed := strings.TrimRight(c.baseURL, "/")
	path = strings.TrimLeft(path, "/")
	return fmt.Sprintf("%s/%s", trimmed, path)
}

func outcomeLabel(result CashinResult, err error) string {
	if err != nil {
		return "error"
	}
	if result.Status == "" {
		return "unknown"
	}
	return result.Status
}
