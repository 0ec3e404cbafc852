package service

import (
	"context"
	"fmt"
	"time"

	"github.com/manyeka-petros/malonda-web-app/internal/models"
	"github.com/manyeka-petros/malonda-web-app/internal/store"
	"github.com/manyeka-petros/malonda-web-app/internal/util"
)

// DashboardService builds the manager summary view
type DashboardService struct {
	store *store.Store
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(store *store.Store) *DashboardService {
	return &DashboardService{store: store}
}

// ChartData is a label/value series for the frontend charts
type ChartData struct {
	Labels []string  `json:"labels"`
	Data   []float64 `json:"data"`
}

// TopProductData is a best-seller row
type TopProductData struct {
	Name    string  `json:"name"`
	Sales   int64   `json:"sales"`
	Revenue float64 `json:"revenue"`
}

// RecentOrderData is a latest-order row
type RecentOrderData struct {
	ID         int64     `json:"id"`
	Email      string    `json:"email"`
	Status     string    `json:"status"`
	TotalPrice float64   `json:"total_price"`
	CreatedAt  time.Time `json:"created_at"`
}

// Dashboard is the manager summary payload
type Dashboard struct {
	TotalProducts     int64             `json:"totalProducts"`
	TotalCategories   int64             `json:"totalCategories"`
	TotalOrders       int64             `json:"totalOrders"`
	TotalCustomers    int64             `json:"totalCustomers"`
	TotalSales        float64           `json:"totalSales"`
	SalesChart        ChartData         `json:"salesChart"`
	RevenueByCategory ChartData         `json:"revenueByCategory"`
	RecentOrders      []RecentOrderData `json:"recentOrders"`
	TopProducts       []TopProductData  `json:"topProducts"`
}

// Build assembles the dashboard; manager or admin only
func (s *DashboardService) Build(ctx context.Context, user *models.User) (*Dashboard, error) {
	if !user.IsManager() {
		return nil, fmt.Errorf("manager role required: %w", util.ErrForbidden)
	}

	totalProducts, err := s.store.CountProducts(ctx)
	if err != nil {
		return nil, err
	}
	totalCategories, err := s.store.CountCategories(ctx)
	if err != nil {
		return nil, err
	}
	totalOrders, err := s.store.CountOrders(ctx)
	if err != nil {
		return nil, err
	}
	totalCustomers, err := s.store.CountUsersByRole(ctx, models.RoleCustomer)
	if err != nil {
		return nil, err
	}
	totalSales, err := s.store.TotalSales(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	byMonth, err := s.store.SalesByMonth(ctx, now.Year())
	if err != nil {
		return nil, err
	}
	monthTotals := make(map[int]float64, len(byMonth))
	for _, row := range byMonth {
		monthTotals[row.Month], _ = row.Total.Float64()
	}

	// Six calendar months ending with the current one.
	sales := ChartData{}
	for i := 5; i >= 0; i-- {
		m := int(now.Month()) - i
		if m <= 0 {
			m += 12
		}
		sales.Labels = append(sales.Labels, time.Month(m).String()[:3])
		sales.Data = append(sales.Data, monthTotals[m])
	}

	byCategory, err := s.store.RevenueByCategory(ctx)
	if err != nil {
		return nil, err
	}
	revenue := ChartData{}
	for _, row := range byCategory {
		v, _ := row.Revenue.Float64()
		revenue.Labels = append(revenue.Labels, row.Category)
		revenue.Data = append(revenue.Data, v)
	}

	recentRows, err := s.store.RecentOrders(ctx, 5)
	if err != nil {
		return nil, err
	}
	recent := make([]RecentOrderData, 0, len(recentRows))
	for _, row := range recentRows {
		total, _ := row.TotalPrice.Float64()
		recent = append(recent, RecentOrderData{
			ID:         row.ID,
			Email:      row.Email,
			Status:     row.Status,
			TotalPrice: total,
			CreatedAt:  row.CreatedAt,
		})
	}

	topRows, err := s.store.TopProducts(ctx, 5)
	if err != nil {
		return nil, err
	}
	top := make([]TopProductData, 0, len(topRows))
	for _, row := range topRows {
		rev, _ := row.Revenue.Float64()
		top = append(top, TopProductData{Name: row.Name, Sales: row.Sales, Revenue: rev})
	}

	salesTotal, _ := totalSales.Float64()
	return &Dashboard{
		TotalProducts:     totalProducts,
		TotalCategories:   totalCategories,
		TotalOrders:       totalOrders,
		TotalCustomers:    totalCustomers,
		TotalSales:        salesTotal,
		SalesChart:        sales,
		RevenueByCategory: revenue,
		RecentOrders:      recent,
		TopProducts:       top,
	}, nil
}
