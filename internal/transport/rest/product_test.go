package rest

import (
	"context"
	"encoding/json"
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

	"github.com/trinitystore/backoffice/internal/catalog"
	"github.com/trinitystore/backoffice/internal/catalog/store"
)

// mockLookup is a mock implementation of the catalog.ProductLookup interface.
type mockLookup struct {
	product *catalog.ExternalProduct
	error   error
}

func (m *mockLookup) LookupBarcode(_ context.Context, _ string) (*catalog.ExternalProduct, error) {
	if m.error != nil {
		return nil, m.error
	}
	return m.product, nil
}

func newProductHandler(t *testing.T, lookup catalog.ProductLookup) (*ProductHandler, *store.InMemoryStore) {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	products := store.NewInMemoryStore()
	service := catalog.NewService(products, lookup, logger)
	return NewProductHandler(service, validator.New(), logger), products
}

func Test_ProductAPI_Create(t *testing.T) {
	testCases := []struct {
		name         string
		body         string
		expectedCode int
	}{
		{
			name:         "Success - product created",
			body:         `{"name":"olive oil","price":850,"stock":12}`,
			expectedCode: http.StatusCreated,
		},
		{
			name:         "Error - missing name",
			body:         `{"price":850,"stock":12}`,
			expectedCode: http.StatusBadRequest,
		},
		{
			name:         "Error - negative price",
			body:         `{"name":"olive oil","price":-1,"stock":12}`,
			expectedCode: http.StatusBadRequest,
		},
		{
			name:         "Error - malformed payload",
			body:         `{`,
			expectedCode: http.StatusBadRequest,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			handler, _ := newProductHandler(t, &mockLookup{})

			req := httptest.NewRequest(http.MethodPost, "/api/v1/products", strings.NewReader(tc.body))
			rr := httptest.NewRecorder()

			handler.Create(rr, req)

			assert.Equal(t, tc.expectedCode, rr.Code)
			if tc.expectedCode == http.StatusCreated {
				var created catalog.ProductDTO
				require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
				assert.Equal(t, "olive oil", created.Name)
				assert.Equal(t, int32(1), created.Version)
			}
		})
	}
}

func Test_ProductAPI_Create_DuplicateBarcode(t *testing.T) {
	handler, products := newProductHandler(t, &mockLookup{})
	_, err := products.Create(context.Background(), store.CreateParams{OffID: "123", Name: "first", Price: 10})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/products",
		strings.NewReader(`{"off_id":"123","name":"second","price":20,"stock":1}`))
	rr := httptest.NewRecorder()

	handler.Create(rr, req)

	assert.Equal(t, http.StatusConflict, rr.Code)
}

func Test_ProductAPI_FindByID(t *testing.T) {
	handler, products := newProductHandler(t, &mockLookup{})
	created, err := products.Create(context.Background(), store.CreateParams{Name: "bread", Price: 120, Stock: 4})
	require.NoError(t, err)

	testCases := []struct {
		name         string
		id           string
		expectedCode int
	}{
		{"Success - product found", created.ID.String(), http.StatusOK},
		{"Error - not found", uuid.NewString(), http.StatusNotFound},
		{"Error - invalid id", "not-a-uuid", http.StatusBadRequest},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/products/"+tc.id, nil)
			req.SetPathValue("id", tc.id)
			rr := httptest.NewRecorder()

			handler.FindByID(rr, req)

			assert.Equal(t, tc.expectedCode, rr.Code)
		})
	}
}

func Test_ProductAPI_Scan(t *testing.T) {
	testCases := []struct {
		name         string
		lookup       *mockLookup
		expectedCode int
	}{
		{
			name: "Success - barcode imported",
			lookup: &mockLookup{product: &catalog.ExternalProduct{
				OffID: "3017620422003",
				Name:  "hazelnut spread",
			}},
			expectedCode: http.StatusOK,
		},
		{
			name:         "Error - barcode unknown externally",
			lookup:       &mockLookup{error: catalog.ErrBarcodeNotFound},
			expectedCode: http.StatusNotFound,
		},
		{
			name:         "Error - external catalog down",
			lookup:       &mockLookup{error: catalog.ErrLookupUnavailable},
			expectedCode: http.StatusBadGateway,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			handler, _ := newProductHandler(t, tc.lookup)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/products/scan/3017620422003", nil)
			req.SetPathValue("barcode", "3017620422003")
			rr := httptest.NewRecorder()

			handler.Scan(rr, req)

			assert.Equal(t, tc.expectedCode, rr.Code)
		})
	}
}

func Test_ProductAPI_FindAll_RequiresPagination(t *testing.T) {
	handler, _ := newProductHandler(t, &mockLookup{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	rr := httptest.NewRecorder()

	handler.FindAll(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
