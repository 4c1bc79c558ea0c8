package rest

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/trinitystore/backoffice/internal/ledger"
	"github.com/trinitystore/backoffice/internal/ledger/store"
	"github.com/trinitystore/backoffice/pkg/web"
)

// InvoiceHandler handles HTTP requests for invoices.
type InvoiceHandler struct {
	service *ledger.Service
	logger  *slog.Logger
}

// NewInvoiceHandler creates a new instance of InvoiceHandler.
func NewInvoiceHandler(service *ledger.Service, logger *slog.Logger) *InvoiceHandler {
	return &InvoiceHandler{service: service, logger: logger}
}

// FindMine handles GET /api/v1/invoices requests. Returns the authenticated
// user's invoices, newest first.
func (h *InvoiceHandler) FindMine(w http.ResponseWriter, r *http.Request) {
	logger := loggerWithReqID(r, h.logger)

	userID, ok := web.GetUserID(w, r, logger)
	if !ok {
		return
	}
	offset, ok := web.ParseValidateGte(r, w, logger, "offset", 0)
	if !ok {
		return
	}
	limit, ok := web.ParseValidateGt(r, w, logger, "limit", 0)
	if !ok {
		return
	}

	invoices, err := h.service.FindByUserID(r.Context(), userID, offset, limit)
	if err != nil {
		logger.Error("Failed to list invoices", "user_id", userID, "error", err)
		web.RespondError(w, logger, http.StatusInternalServerError, "Failed to list invoices")
		return
	}
	web.RespondJSON(w, logger, http.StatusOK, invoices)
}

// FindByID handles GET /api/v1/invoices/{id} requests. Managers may read any
// invoice; other users only their own.
func (h *InvoiceHandler) FindByID(w http.ResponseWriter, r *http.Request) {
	logger := loggerWithReqID(r, h.logger)

	userID, ok := web.GetUserID(w, r, logger)
	if !ok {
		return
	}
	id, ok := web.ParseID(w, r, logger)
	if !ok {
		return
	}

	isManager := web.GetUserRole(r) == web.RoleManager
	invoice, err := h.service.FindByID(r.Context(), id, userID, isManager)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrInvoiceNotFound):
			web.RespondError(w, logger, http.StatusNotFound, "Invoice not found")
		case errors.Is(err, ledger.ErrAccessDenied):
			web.RespondError(w, logger, http.StatusForbidden, "Access denied")
		default:
			logger.Error("Failed to find invoice", "invoice_id", id, "error", err)
			web.RespondError(w, logger, http.StatusInternalServerError, "Failed to find invoice")
		}
		return
	}
	web.RespondJSON(w, logger, http.StatusOK, invoice)
}
