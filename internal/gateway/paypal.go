package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/trinitystore/backoffice/pkg/config"

	"github.com/sony/gobreaker/v2"
)

// tokenExpirySlack is subtracted from the provider-reported lifetime so a
// token is refreshed before it actually expires mid-call.
const tokenExpirySlack = 30 * time.Second

type httpResult struct {
	status int
	body   []byte
}

// RESTClient implements Client against a PayPal-style REST provider.
// All provider calls run through a circuit breaker and are bounded by the
// configured timeout. The access token is cached until shortly before expiry;
// the cache is an optimization only.
type RESTClient struct {
	baseURL  string
	clientID string
	secret   string
	timeout  time.Duration
	tokenTTL time.Duration

	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[*httpResult]
	logger     *slog.Logger

	mu     sync.Mutex
	cached *Token
}

func NewRESTClient(cfg config.GatewayConfig, logger *slog.Logger) *RESTClient {
	st := gobreaker.Settings{
		Name:        "payment-gateway-cb",
		MaxRequests: 3,
		Timeout:     cfg.Breaker.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > cfg.Breaker.ConsecutiveFailures ||
				(counts.TotalSuccesses+counts.TotalFailures > cfg.Breaker.ConsecutiveFailures &&
					float64(counts.TotalFailures)/float64(counts.TotalSuccesses+counts.TotalFailures)*100 > float64(cfg.Breaker.ErrorRatePercent))
		},
	}
	return &RESTClient{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		clientID:   cfg.ClientID,
		secret:     cfg.Secret,
		timeout:    cfg.Timeout,
		tokenTTL:   cfg.TokenTTL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		breaker:    gobreaker.NewCircuitBreaker[*httpResult](st),
		logger:     logger.With("component", "gateway"),
	}
}

// ObtainAccessToken exchanges the configured credentials for a bearer token.
// A cached token is returned while it is still comfortably valid.
func (c *RESTClient) ObtainAccessToken(ctx context.Context) (*Token, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cached != nil && time.Until(c.cached.ExpiresAt) > tokenExpirySlack {
		return c.cached, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuth, err)
	}
	req.SetBasicAuth(c.clientID, c.secret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := c.execute(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuth, err)
	}
	if res.status != http.StatusOK {
		return nil, fmt.Errorf("%w: provider returned status %d", ErrAuth, res.status)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.Unmarshal(res.body, &payload); err != nil || payload.AccessToken == "" {
		return nil, fmt.Errorf("%w: malformed token response", ErrAuth)
	}

	lifetime := time.Duration(payload.ExpiresIn) * time.Second
	if c.tokenTTL > 0 && (lifetime == 0 || c.tokenTTL < lifetime) {
		lifetime = c.tokenTTL
	}
	c.cached = &Token{
		AccessToken: payload.AccessToken,
		ExpiresAt:   time.Now().Add(lifetime),
	}
	return c.cached, nil
}

// CreateIntent asks the provider to reserve a pending payment. No money moves.
func (c *RESTClient) CreateIntent(ctx context.Context, amount int64, currency string) (*PaymentIntent, error) {
	token, err := c.ObtainAccessToken(ctx)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(map[string]any{
		"intent": "CAPTURE",
		"purchase_units": []map[string]any{
			{"amount": map[string]string{
				"currency_code": currency,
				"value":         formatAmount(amount),
			}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v2/checkout/orders", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.execute(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if res.status != http.StatusCreated && res.status != http.StatusOK {
		return nil, fmt.Errorf("%w: provider returned status %d", ErrUnavailable, res.status)
	}

	var payload struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(res.body, &payload); err != nil || payload.ID == "" {
		return nil, fmt.Errorf("%w: malformed intent response", ErrUnavailable)
	}
	return &PaymentIntent{
		ID:       payload.ID,
		Status:   IntentStatus(payload.Status),
		Amount:   amount,
		Currency: currency,
	}, nil
}

// CaptureIntent finalizes a pending payment. A declined capture is reported
// through the result status, not an error; only transport and protocol
// failures return ErrCapture.
func (c *RESTClient) CaptureIntent(ctx context.Context, intentID string) (*CaptureResult, error) {
	token, err := c.ObtainAccessToken(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v2/checkout/orders/"+url.PathEscape(intentID)+"/capture", http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCapture, err)
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.execute(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCapture, err)
	}
	if res.status < 200 || res.status >= 300 {
		return nil, fmt.Errorf("%w: provider returned status %d", ErrCapture, res.status)
	}

	var payload struct {
		ID            string `json:"id"`
		Status        string `json:"status"`
		PurchaseUnits []struct {
			Payments struct {
				Captures []struct {
					ID     string `json:"id"`
					Status string `json:"status"`
					Amount struct {
						Value string `json:"value"`
					} `json:"amount"`
				} `json:"captures"`
			} `json:"payments"`
		} `json:"purchase_units"`
	}
	if err := json.Unmarshal(res.body, &payload); err != nil {
		return nil, fmt.Errorf("%w: malformed capture response", ErrCapture)
	}

	result := &CaptureResult{Status: IntentStatus(payload.Status)}
	if len(payload.PurchaseUnits) > 0 && len(payload.PurchaseUnits[0].Payments.Captures) > 0 {
		capture := payload.PurchaseUnits[0].Payments.Captures[0]
		result.CaptureID = capture.ID
		amount, parseErr := parseAmount(capture.Amount.Value)
		if parseErr != nil {
			return nil, fmt.Errorf("%w: malformed capture amount %q", ErrCapture, capture.Amount.Value)
		}
		result.Amount = amount
	}
	return result, nil
}

// execute runs the request through the circuit breaker. Transport failures
// and provider 5xx responses count against the breaker; client-level
// rejections (4xx) do not, they indicate a bad request, not a sick provider.
func (c *RESTClient) execute(req *http.Request) (*httpResult, error) {
	return c.breaker.Execute(func() (*httpResult, error) {
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer func() { _ = resp.Body.Close() }()

		body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, fmt.Errorf("provider returned status %d", resp.StatusCode)
		}
		return &httpResult{status: resp.StatusCode, body: body}, nil
	})
}

// formatAmount renders cents as a decimal string, e.g. 600 -> "6.00".
func formatAmount(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

// parseAmount converts a decimal string like "6.00" into cents.
func parseAmount(value string) (int64, error) {
	whole, frac, found := strings.Cut(value, ".")
	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, err
	}
	if !found {
		return units * 100, nil
	}
	if len(frac) > 2 {
		frac = frac[:2]
	}
	for len(frac) < 2 {
		frac += "0"
	}
	cents, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, err
	}
	if units < 0 || strings.HasPrefix(whole, "-") {
		return units*100 - cents, nil
	}
	return units*100 + cents, nil
}
