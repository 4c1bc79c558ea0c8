package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

var ErrBarcodeNotFound = errors.New("barcode not found in external catalog")
var ErrLookupUnavailable = errors.New("external catalog unavailable")

// ExternalProduct is the subset of external catalog data the store cares
// about. Price is never provided externally; new products start unpriced.
type ExternalProduct struct {
	OffID           string
	Name            string
	Brand           string
	Category        string
	Picture         string
	NutritionalInfo string
}

// ProductLookup resolves a barcode to product facts from an external source.
type ProductLookup interface {
	LookupBarcode(ctx context.Context, barcode string) (*ExternalProduct, error)
}

// OpenFoodFactsClient looks products up in the OpenFoodFacts public database.
type OpenFoodFactsClient struct {
	baseURL string
	client  *http.Client
}

// NewOpenFoodFactsClient creates a new instance of OpenFoodFactsClient.
func NewOpenFoodFactsClient(baseURL string, timeout time.Duration) *OpenFoodFactsClient {
	return &OpenFoodFactsClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type offResponse struct {
	Status  int `json:"status"`
	Product struct {
		ProductName string                     `json:"product_name"`
		Brands      string                     `json:"brands"`
		Categories  string                     `json:"categories"`
		ImageURL    string                     `json:"image_url"`
		Nutriments  map[string]json.RawMessage `json:"nutriments"`
	} `json:"product"`
}

func (c *OpenFoodFactsClient) LookupBarcode(ctx context.Context, barcode string) (*ExternalProduct, error) {
	reqURL := fmt.Sprintf("%s/api/v2/product/%s.json", c.baseURL, url.PathEscape(barcode))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLookupUnavailable, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLookupUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrBarcodeNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d", ErrLookupUnavailable, resp.StatusCode)
	}

	var body offResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLookupUnavailable, err)
	}
	if body.Status != 1 || body.Product.ProductName == "" {
		return nil, ErrBarcodeNotFound
	}

	nutritional := ""
	if len(body.Product.Nutriments) > 0 {
		if raw, err := json.Marshal(body.Product.Nutriments); err == nil {
			nutritional = string(raw)
		}
	}
	return &ExternalProduct{
		OffID:           barcode,
		Name:            body.Product.ProductName,
		Brand:           body.Product.Brands,
		Category:        body.Product.Categories,
		Picture:         body.Product.ImageURL,
		NutritionalInfo: nutritional,
	}, nil
}
