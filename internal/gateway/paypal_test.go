package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trinitystore/backoffice/pkg/config"
)

func testConfig(baseURL string) config.GatewayConfig {
	return config.GatewayConfig{
		BaseURL:  baseURL,
		ClientID: "client-id",
		Secret:   "client-secret",
		Currency: "EUR",
		Timeout:  2 * time.Second,
		TokenTTL: time.Hour,
		Breaker: config.CircuitBreakerConfig{
			ConsecutiveFailures: 100,
			ErrorRatePercent:    100,
			OpenTimeout:         time.Second,
		},
	}
}

func tokenResponse(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"access_token": "test-token",
		"expires_in":   3600,
	})
}

func Test_ObtainAccessToken_CachesToken(t *testing.T) {
	var tokenCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/oauth2/token", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "client-id", user)
		assert.Equal(t, "client-secret", pass)
		tokenCalls.Add(1)
		tokenResponse(w)
	}))
	defer srv.Close()

	client := NewRESTClient(testConfig(srv.URL), slog.New(slog.NewTextHandler(io.Discard, nil)))

	first, err := client.ObtainAccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "test-token", first.AccessToken)

	second, err := client.ObtainAccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first.AccessToken, second.AccessToken)
	assert.Equal(t, int32(1), tokenCalls.Load(), "second call must be served from cache")
}

func Test_ObtainAccessToken_BadCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewRESTClient(testConfig(srv.URL), slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err := client.ObtainAccessToken(context.Background())
	require.ErrorIs(t, err, ErrAuth)
}

func Test_CreateIntent_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/oauth2/token":
			tokenResponse(w)
		case "/v2/checkout/orders":
			assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
			var body struct {
				Intent        string `json:"intent"`
				PurchaseUnits []struct {
					Amount struct {
						CurrencyCode string `json:"currency_code"`
						Value        string `json:"value"`
					} `json:"amount"`
				} `json:"purchase_units"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "CAPTURE", body.Intent)
			require.Len(t, body.PurchaseUnits, 1)
			assert.Equal(t, "EUR", body.PurchaseUnits[0].Amount.CurrencyCode)
			assert.Equal(t, "12.50", body.PurchaseUnits[0].Amount.Value)

			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(map[string]string{"id": "ORDER-1", "status": "CREATED"})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	client := NewRESTClient(testConfig(srv.URL), slog.New(slog.NewTextHandler(io.Discard, nil)))

	intent, err := client.CreateIntent(context.Background(), 1250, "EUR")
	require.NoError(t, err)
	assert.Equal(t, "ORDER-1", intent.ID)
	assert.Equal(t, StatusCreated, intent.Status)
	assert.Equal(t, int64(1250), intent.Amount)
}

func Test_CreateIntent_ProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/oauth2/token" {
			tokenResponse(w)
			return
		}
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	client := NewRESTClient(testConfig(srv.URL), slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err := client.CreateIntent(context.Background(), 1000, "EUR")
	require.ErrorIs(t, err, ErrUnavailable)
}

func Test_CaptureIntent_Completed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/oauth2/token":
			tokenResponse(w)
		case "/v2/checkout/orders/ORDER-1/capture":
			assert.Equal(t, http.MethodPost, r.Method)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"id":     "ORDER-1",
				"status": "COMPLETED",
				"purchase_units": []map[string]any{{
					"payments": map[string]any{
						"captures": []map[string]any{{
							"id":     "CAP-1",
							"status": "COMPLETED",
							"amount": map[string]string{"value": "12.50"},
						}},
					},
				}},
			})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	client := NewRESTClient(testConfig(srv.URL), slog.New(slog.NewTextHandler(io.Discard, nil)))

	result, err := client.CaptureIntent(context.Background(), "ORDER-1")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, result.Status)
	assert.Equal(t, "CAP-1", result.CaptureID)
	assert.Equal(t, int64(1250), result.Amount)
}

func Test_CaptureIntent_Declined(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/oauth2/token" {
			tokenResponse(w)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "ORDER-1", "status": "DECLINED"})
	}))
	defer srv.Close()

	client := NewRESTClient(testConfig(srv.URL), slog.New(slog.NewTextHandler(io.Discard, nil)))

	result, err := client.CaptureIntent(context.Background(), "ORDER-1")
	require.NoError(t, err, "a declined capture is a result, not a transport error")
	assert.NotEqual(t, StatusCompleted, result.Status)
}

func Test_CaptureIntent_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/oauth2/token" {
			tokenResponse(w)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewRESTClient(testConfig(srv.URL), slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err := client.CaptureIntent(context.Background(), "ORDER-1")
	require.ErrorIs(t, err, ErrCapture)
}

func Test_AmountFormatting(t *testing.T) {
	testCases := []struct {
		cents    int64
		expected string
	}{
		{0, "0.00"},
		{5, "0.05"},
		{600, "6.00"},
		{1250, "12.50"},
		{99999, "999.99"},
	}
	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			assert.Equal(t, tc.expected, formatAmount(tc.cents))

			parsed, err := parseAmount(tc.expected)
			require.NoError(t, err)
			assert.Equal(t, tc.cents, parsed)
		})
	}
}

func Test_ParseAmount_Invalid(t *testing.T) {
	for _, value := range []string{"", "abc", "1.x"} {
		t.Run(fmt.Sprintf("%q", value), func(t *testing.T) {
			_, err := parseAmount(value)
			assert.Error(t, err)
		})
	}
}
