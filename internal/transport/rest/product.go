package rest

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/trinitystore/backoffice/internal/catalog"
	"github.com/trinitystore/backoffice/internal/catalog/store"
	"github.com/trinitystore/backoffice/pkg/web"
)

// ProductHandler handles HTTP requests for catalog products.
type ProductHandler struct {
	service  *catalog.Service
	validate *validator.Validate
	logger   *slog.Logger
}

// NewProductHandler creates a new instance of ProductHandler.
func NewProductHandler(service *catalog.Service, validate *validator.Validate, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{service: service, validate: validate, logger: logger}
}

// FindAll handles GET /api/v1/products requests.
func (h *ProductHandler) FindAll(w http.ResponseWriter, r *http.Request) {
	logger := loggerWithReqID(r, h.logger)

	offset, ok := web.ParseValidateGte(r, w, logger, "offset", 0)
	if !ok {
		return
	}
	limit, ok := web.ParseValidateGt(r, w, logger, "limit", 0)
	if !ok {
		return
	}

	products, err := h.service.FindAll(r.Context(), offset, limit)
	if err != nil {
		logger.Error("Failed to list products", "error", err)
		web.RespondError(w, logger, http.StatusInternalServerError, "Failed to list products")
		return
	}
	web.RespondJSON(w, logger, http.StatusOK, products)
}

// FindByID handles GET /api/v1/products/{id} requests.
func (h *ProductHandler) FindByID(w http.ResponseWriter, r *http.Request) {
	logger := loggerWithReqID(r, h.logger)

	id, ok := web.ParseID(w, r, logger)
	if !ok {
		return
	}

	product, err := h.service.FindByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrProductNotFound) {
			web.RespondError(w, logger, http.StatusNotFound, "Product not found")
			return
		}
		logger.Error("Failed to find product", "product_id", id, "error", err)
		web.RespondError(w, logger, http.StatusInternalServerError, "Failed to find product")
		return
	}
	web.RespondJSON(w, logger, http.StatusOK, product)
}

// Search handles GET /api/v1/products/search requests.
func (h *ProductHandler) Search(w http.ResponseWriter, r *http.Request) {
	logger := loggerWithReqID(r, h.logger)

	query := r.URL.Query().Get("q")
	if query == "" {
		web.RespondError(w, logger, http.StatusBadRequest, "q url parameter is required")
		return
	}
	limit, ok := web.ParseValidateGt(r, w, logger, "limit", 0)
	if !ok {
		return
	}

	products, err := h.service.SearchByName(r.Context(), query, limit)
	if err != nil {
		logger.Error("Failed to search products", "query", query, "error", err)
		web.RespondError(w, logger, http.StatusInternalServerError, "Failed to search products")
		return
	}
	web.RespondJSON(w, logger, http.StatusOK, products)
}

// Create handles POST /api/v1/products requests.
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	logger := loggerWithReqID(r, h.logger)

	var req catalog.CreateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		web.RespondError(w, logger, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		web.RespondError(w, logger, http.StatusBadRequest, err.Error())
		return
	}

	product, err := h.service.Create(r.Context(), req)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateBarcode) {
			web.RespondError(w, logger, http.StatusConflict, "A product with this barcode already exists")
			return
		}
		logger.Error("Failed to create product", "error", err)
		web.RespondError(w, logger, http.StatusInternalServerError, "Failed to create product")
		return
	}
	web.RespondJSON(w, logger, http.StatusCreated, product)
}

// Update handles PUT /api/v1/products/{id} requests.
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	logger := loggerWithReqID(r, h.logger)

	id, ok := web.ParseID(w, r, logger)
	if !ok {
		return
	}

	var req catalog.UpdateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		web.RespondError(w, logger, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		web.RespondError(w, logger, http.StatusBadRequest, err.Error())
		return
	}

	product, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		if errors.Is(err, store.ErrProductNotFound) {
			web.RespondError(w, logger, http.StatusNotFound, "Product not found or version mismatch")
			return
		}
		logger.Error("Failed to update product", "product_id", id, "error", err)
		web.RespondError(w, logger, http.StatusInternalServerError, "Failed to update product")
		return
	}
	web.RespondJSON(w, logger, http.StatusOK, product)
}

type updatePriceRequest struct {
	Price int64 `json:"price" validate:"gte=0"`
}

// UpdatePrice handles PATCH /api/v1/products/{id}/price requests.
func (h *ProductHandler) UpdatePrice(w http.ResponseWriter, r *http.Request) {
	logger := loggerWithReqID(r, h.logger)

	id, ok := web.ParseID(w, r, logger)
	if !ok {
		return
	}

	var req updatePriceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		web.RespondError(w, logger, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		web.RespondError(w, logger, http.StatusBadRequest, err.Error())
		return
	}

	product, err := h.service.UpdatePrice(r.Context(), id, req.Price)
	if err != nil {
		if errors.Is(err, store.ErrProductNotFound) {
			web.RespondError(w, logger, http.StatusNotFound, "Product not found")
			return
		}
		logger.Error("Failed to update product price", "product_id", id, "error", err)
		web.RespondError(w, logger, http.StatusInternalServerError, "Failed to update product price")
		return
	}
	web.RespondJSON(w, logger, http.StatusOK, product)
}

// Delete handles DELETE /api/v1/products/{id} requests.
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	logger := loggerWithReqID(r, h.logger)

	id, ok := web.ParseID(w, r, logger)
	if !ok {
		return
	}
	version, ok := web.ParseValidateGt(r, w, logger, "version", 0)
	if !ok {
		return
	}

	if err := h.service.DeleteByID(r.Context(), id, version); err != nil {
		if errors.Is(err, store.ErrProductNotFound) {
			web.RespondError(w, logger, http.StatusNotFound, "Product not found or version mismatch")
			return
		}
		logger.Error("Failed to delete product", "product_id", id, "error", err)
		web.RespondError(w, logger, http.StatusInternalServerError, "Failed to delete product")
		return
	}
	web.RespondJSON(w, logger, http.StatusNoContent, nil)
}

// Scan handles POST /api/v1/products/scan/{barcode} requests.
func (h *ProductHandler) Scan(w http.ResponseWriter, r *http.Request) {
	logger := loggerWithReqID(r, h.logger)

	barcode := r.PathValue("barcode")
	if barcode == "" {
		web.RespondError(w, logger, http.StatusBadRequest, "Barcode is required")
		return
	}

	product, err := h.service.Scan(r.Context(), barcode)
	if err != nil {
		switch {
		case errors.Is(err, catalog.ErrBarcodeNotFound):
			web.RespondError(w, logger, http.StatusNotFound, "Barcode not found")
		case errors.Is(err, catalog.ErrLookupUnavailable):
			logger.Error("External catalog lookup failed", "barcode", barcode, "error", err)
			web.RespondError(w, logger, http.StatusBadGateway, "External catalog unavailable")
		default:
			logger.Error("Failed to scan barcode", "barcode", barcode, "error", err)
			web.RespondError(w, logger, http.StatusInternalServerError, "Failed to scan barcode")
		}
		return
	}
	web.RespondJSON(w, logger, http.StatusOK, product)
}
