package report

import (
	"context"
	"log/slog"
	"time"
)

const defaultTopProductsLimit = 5

// Summary is the KPI snapshot served to the back office dashboard.
type Summary struct {
	PeriodStart   time.Time      `json:"period_start"`
	TotalRevenue  int64          `json:"total_revenue"`
	OrderCount    int64          `json:"order_count"`
	AverageBasket int64          `json:"average_basket"`
	TotalProducts int64          `json:"total_products"`
	OutOfStock    int64          `json:"out_of_stock"`
	Customers     int64          `json:"customers"`
	RepeatBuyers  int64          `json:"repeat_buyers"`
	LoyaltyRate   float64        `json:"loyalty_rate"`
	TopProducts   []TopProduct   `json:"top_products"`
	RevenueByDay  []DailyRevenue `json:"revenue_by_day"`
}

// Service assembles KPI summaries from the report store.
type Service struct {
	store Store
	log   *slog.Logger
}

// NewService creates a new instance of Service.
func NewService(store Store, log *slog.Logger) *Service {
	return &Service{store: store, log: log}
}

// Summarize computes the KPI snapshot for the period starting at since.
func (s *Service) Summarize(ctx context.Context, since time.Time) (*Summary, error) {
	revenue, orders, err := s.store.TotalRevenueAndCount(ctx, since)
	if err != nil {
		return nil, err
	}
	totalProducts, outOfStock, err := s.store.ProductCounts(ctx)
	if err != nil {
		return nil, err
	}
	customers, repeatBuyers, err := s.store.CustomerCounts(ctx, since)
	if err != nil {
		return nil, err
	}
	top, err := s.store.TopProducts(ctx, since, defaultTopProductsLimit)
	if err != nil {
		return nil, err
	}
	byDay, err := s.store.RevenueByDay(ctx, since)
	if err != nil {
		return nil, err
	}

	var averageBasket int64
	if orders > 0 {
		averageBasket = revenue / orders
	}
	var loyaltyRate float64
	if customers > 0 {
		loyaltyRate = float64(repeatBuyers) / float64(customers) * 100
	}
	return &Summary{
		PeriodStart:   since,
		TotalRevenue:  revenue,
		OrderCount:    orders,
		AverageBasket: averageBasket,
		TotalProducts: totalProducts,
		OutOfStock:    outOfStock,
		Customers:     customers,
		RepeatBuyers:  repeatBuyers,
		LoyaltyRate:   loyaltyRate,
		TopProducts:   top,
		RevenueByDay:  byDay,
	}, nil
}
