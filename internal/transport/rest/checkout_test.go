package rest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trinitystore/backoffice/internal/checkout"
	"github.com/trinitystore/backoffice/internal/gateway"
	"github.com/trinitystore/backoffice/internal/inventory"
	"github.com/trinitystore/backoffice/pkg/web"
)

// mockOrchestrator is a mock implementation of the checkout.Orchestrator interface.
type mockOrchestrator struct {
	intent       *checkout.Intent
	confirmation *checkout.Confirmation
	billing      checkout.Billing
	error        error
}

func (m *mockOrchestrator) PrepareIntent(_ context.Context, _ uuid.UUID, _ []checkout.LineItem) (*checkout.Intent, error) {
	if m.error != nil {
		return nil, m.error
	}
	return m.intent, nil
}

func (m *mockOrchestrator) Complete(_ context.Context, _ uuid.UUID, _ string, _ []checkout.LineItem, billing checkout.Billing) (*checkout.Confirmation, error) {
	m.billing = billing
	if m.error != nil {
		return nil, m.error
	}
	return m.confirmation, nil
}

func newCheckoutRequest(t *testing.T, method, target string, body string, userID uuid.UUID) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if userID != uuid.Nil {
		ctx := context.WithValue(req.Context(), web.UserIDKey, userID.String())
		req = req.WithContext(ctx)
	}
	return req
}

func completeBody(t *testing.T, ref string, productID uuid.UUID, quantity int32) string {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"payment_reference": ref,
		"items":             []map[string]any{{"product_id": productID, "quantity": quantity}},
	})
	require.NoError(t, err)
	return string(body)
}

func Test_CheckoutAPI_Complete(t *testing.T) {
	userID := uuid.New()
	productID := uuid.New()
	invoiceID := uuid.New()

	testCases := []struct {
		name         string
		orchestrator mockOrchestrator
		body         string
		userID       uuid.UUID
		expectedCode int
	}{
		{
			name: "Success - checkout recorded",
			orchestrator: mockOrchestrator{confirmation: &checkout.Confirmation{
				InvoiceID:        invoiceID,
				Total:            500,
				PaymentReference: "INTENT-1",
				Status:           checkout.StatusRecorded,
			}},
			body:         completeBody(t, "INTENT-1", productID, 2),
			userID:       userID,
			expectedCode: http.StatusCreated,
		},
		{
			name:         "Error - missing user identity",
			orchestrator: mockOrchestrator{},
			body:         completeBody(t, "INTENT-1", productID, 2),
			userID:       uuid.Nil,
			expectedCode: http.StatusUnauthorized,
		},
		{
			name:         "Error - malformed payload",
			orchestrator: mockOrchestrator{},
			body:         "{not json",
			userID:       userID,
			expectedCode: http.StatusBadRequest,
		},
		{
			name:         "Error - missing payment reference",
			orchestrator: mockOrchestrator{},
			body:         `{"items":[{"product_id":"` + productID.String() + `","quantity":1}]}`,
			userID:       userID,
			expectedCode: http.StatusBadRequest,
		},
		{
			name:         "Error - unknown product",
			orchestrator: mockOrchestrator{error: checkout.ErrUnknownProduct},
			body:         completeBody(t, "INTENT-1", productID, 1),
			userID:       userID,
			expectedCode: http.StatusBadRequest,
		},
		{
			name: "Error - insufficient stock",
			orchestrator: mockOrchestrator{error: &inventory.InsufficientStockError{
				ProductID: productID, Available: 1, Requested: 3,
			}},
			body:         completeBody(t, "INTENT-1", productID, 3),
			userID:       userID,
			expectedCode: http.StatusConflict,
		},
		{
			name:         "Error - capture declined",
			orchestrator: mockOrchestrator{error: checkout.ErrPaymentNotCompleted},
			body:         completeBody(t, "INTENT-1", productID, 1),
			userID:       userID,
			expectedCode: http.StatusPaymentRequired,
		},
		{
			name:         "Error - gateway unavailable",
			orchestrator: mockOrchestrator{error: gateway.ErrUnavailable},
			body:         completeBody(t, "INTENT-1", productID, 1),
			userID:       userID,
			expectedCode: http.StatusBadGateway,
		},
		{
			name: "Accepted - reconciliation pending",
			orchestrator: mockOrchestrator{error: &checkout.ReconciliationError{
				PaymentReference: "INTENT-1",
				CaptureID:        "CAP-1",
				Total:            500,
				Cause:            errors.New("stock commit failed"),
			}},
			body:         completeBody(t, "INTENT-1", productID, 1),
			userID:       userID,
			expectedCode: http.StatusAccepted,
		},
		{
			name:         "Error - unexpected failure",
			orchestrator: mockOrchestrator{error: errors.New("boom")},
			body:         completeBody(t, "INTENT-1", productID, 1),
			userID:       userID,
			expectedCode: http.StatusInternalServerError,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
			handler := NewCheckoutHandler(&tc.orchestrator, validator.New(), logger)

			req := newCheckoutRequest(t, http.MethodPost, "/api/v1/checkout", tc.body, tc.userID)
			rr := httptest.NewRecorder()

			handler.Complete(rr, req)

			assert.Equal(t, tc.expectedCode, rr.Code)
		})
	}
}

func Test_CheckoutAPI_Complete_ReconciliationBody(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	orchestrator := &mockOrchestrator{error: &checkout.ReconciliationError{
		PaymentReference: "INTENT-1",
		CaptureID:        "CAP-1",
		Total:            500,
		Cause:            errors.New("invoice write failed"),
	}}
	handler := NewCheckoutHandler(orchestrator, validator.New(), logger)

	req := newCheckoutRequest(t, http.MethodPost, "/api/v1/checkout",
		completeBody(t, "INTENT-1", uuid.New(), 1), uuid.New())
	rr := httptest.NewRecorder()

	handler.Complete(rr, req)

	require.Equal(t, http.StatusAccepted, rr.Code)
	var body reconciliationResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "PENDING_RECONCILIATION", body.Status)
	assert.Equal(t, "INTENT-1", body.PaymentReference)
}

func Test_CheckoutAPI_Complete_BillingPassThrough(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	orchestrator := &mockOrchestrator{confirmation: &checkout.Confirmation{
		InvoiceID:        uuid.New(),
		Total:            500,
		PaymentReference: "INTENT-1",
		Status:           checkout.StatusRecorded,
	}}
	handler := NewCheckoutHandler(orchestrator, validator.New(), logger)

	productID := uuid.New()
	body, err := json.Marshal(map[string]any{
		"payment_reference": "INTENT-1",
		"items":             []map[string]any{{"product_id": productID, "quantity": 1}},
		"billing":           map[string]any{"name": "Jean Dupont", "city": "Lyon"},
	})
	require.NoError(t, err)

	req := newCheckoutRequest(t, http.MethodPost, "/api/v1/checkout", string(body), uuid.New())
	rr := httptest.NewRecorder()

	handler.Complete(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "Jean Dupont", orchestrator.billing["name"])
	assert.Equal(t, "Lyon", orchestrator.billing["city"])
}

func Test_CheckoutAPI_PrepareIntent(t *testing.T) {
	userID := uuid.New()
	productID := uuid.New()

	testCases := []struct {
		name         string
		orchestrator mockOrchestrator
		body         string
		expectedCode int
	}{
		{
			name: "Success - intent created",
			orchestrator: mockOrchestrator{intent: &checkout.Intent{
				IntentID: "INTENT-1",
				Total:    900,
				Currency: "EUR",
				Status:   "CREATED",
			}},
			body:         `{"items":[{"product_id":"` + productID.String() + `","quantity":2}]}`,
			expectedCode: http.StatusCreated,
		},
		{
			name:         "Error - empty cart",
			orchestrator: mockOrchestrator{},
			body:         `{"items":[]}`,
			expectedCode: http.StatusBadRequest,
		},
		{
			name:         "Error - gateway down",
			orchestrator: mockOrchestrator{error: gateway.ErrUnavailable},
			body:         `{"items":[{"product_id":"` + productID.String() + `","quantity":2}]}`,
			expectedCode: http.StatusBadGateway,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
			handler := NewCheckoutHandler(&tc.orchestrator, validator.New(), logger)

			req := newCheckoutRequest(t, http.MethodPost, "/api/v1/checkout/intent", tc.body, userID)
			rr := httptest.NewRecorder()

			handler.PrepareIntent(rr, req)

			assert.Equal(t, tc.expectedCode, rr.Code)
			if tc.expectedCode == http.StatusCreated {
				var intent checkout.Intent
				require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &intent))
				assert.Equal(t, "INTENT-1", intent.IntentID)
			}
		})
	}
}
