package rest

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/trinitystore/backoffice/internal/checkout"
	"github.com/trinitystore/backoffice/internal/gateway"
	"github.com/trinitystore/backoffice/internal/inventory"
	"github.com/trinitystore/backoffice/pkg/web"
)

// CheckoutHandler handles HTTP requests for the checkout flow.
type CheckoutHandler struct {
	orchestrator checkout.Orchestrator
	validate     *validator.Validate
	logger       *slog.Logger
}

// NewCheckoutHandler creates a new instance of CheckoutHandler.
func NewCheckoutHandler(orchestrator checkout.Orchestrator, validate *validator.Validate, logger *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{orchestrator: orchestrator, validate: validate, logger: logger}
}

type prepareIntentRequest struct {
	Items []checkout.LineItem `json:"items" validate:"required,min=1,dive"`
}

type completeRequest struct {
	PaymentReference string              `json:"payment_reference" validate:"required"`
	Items            []checkout.LineItem `json:"items" validate:"required,min=1,dive"`
	Billing          checkout.Billing    `json:"billing"`
}

type reconciliationResponse struct {
	Status           string `json:"status"`
	PaymentReference string `json:"payment_reference"`
	Message          string `json:"message"`
}

// PrepareIntent handles POST /api/v1/checkout/intent requests.
func (h *CheckoutHandler) PrepareIntent(w http.ResponseWriter, r *http.Request) {
	logger := loggerWithReqID(r, h.logger)

	userID, ok := web.GetUserID(w, r, logger)
	if !ok {
		return
	}

	var req prepareIntentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		web.RespondError(w, logger, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		web.RespondError(w, logger, http.StatusBadRequest, err.Error())
		return
	}

	intent, err := h.orchestrator.PrepareIntent(r.Context(), userID, req.Items)
	if err != nil {
		h.respondCheckoutError(w, logger, err, "Failed to prepare payment intent")
		return
	}
	web.RespondJSON(w, logger, http.StatusCreated, intent)
}

// Complete handles POST /api/v1/checkout requests.
func (h *CheckoutHandler) Complete(w http.ResponseWriter, r *http.Request) {
	logger := loggerWithReqID(r, h.logger)

	userID, ok := web.GetUserID(w, r, logger)
	if !ok {
		return
	}

	var req completeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		web.RespondError(w, logger, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		web.RespondError(w, logger, http.StatusBadRequest, err.Error())
		return
	}

	confirmation, err := h.orchestrator.Complete(r.Context(), userID, req.PaymentReference, req.Items, req.Billing)
	if err != nil {
		var reconcile *checkout.ReconciliationError
		if errors.As(err, &reconcile) {
			// Money moved. The client must not retry; the order will be
			// resolved out of band.
			web.RespondJSON(w, logger, http.StatusAccepted, reconciliationResponse{
				Status:           "PENDING_RECONCILIATION",
				PaymentReference: reconcile.PaymentReference,
				Message:          "Payment received, order pending reconciliation",
			})
			return
		}
		h.respondCheckoutError(w, logger, err, "Failed to complete checkout")
		return
	}
	web.RespondJSON(w, logger, http.StatusCreated, confirmation)
}

func (h *CheckoutHandler) respondCheckoutError(w http.ResponseWriter, logger *slog.Logger, err error, fallback string) {
	var insufficient *inventory.InsufficientStockError
	switch {
	case errors.Is(err, checkout.ErrEmptyCart),
		errors.Is(err, checkout.ErrInvalidQuantity),
		errors.Is(err, checkout.ErrUnknownProduct),
		errors.Is(err, inventory.ErrUnknownProduct):
		web.RespondError(w, logger, http.StatusBadRequest, err.Error())
	case errors.As(err, &insufficient):
		web.RespondError(w, logger, http.StatusConflict, insufficient.Error())
	case errors.Is(err, checkout.ErrPaymentNotCompleted), errors.Is(err, gateway.ErrCapture):
		web.RespondError(w, logger, http.StatusPaymentRequired, "Payment was not completed")
	case errors.Is(err, gateway.ErrUnavailable), errors.Is(err, gateway.ErrAuth):
		logger.Error("Payment gateway error", "error", err)
		web.RespondError(w, logger, http.StatusBadGateway, "Payment gateway unavailable")
	default:
		logger.Error(fallback, "error", err)
		web.RespondError(w, logger, http.StatusInternalServerError, fallback)
	}
}
