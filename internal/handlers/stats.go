package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/storeops/api/internal/domain"
	"github.com/storeops/api/internal/platform/httpx"
	"github.com/storeops/api/internal/services"
)

// StatsHandlers exposes the read-only reporting endpoints.
type StatsHandlers struct {
	stats services.StatsService
}

// NewStatsHandlers constructs stats handlers.
func NewStatsHandlers(stats services.StatsService) *StatsHandlers {
	return &StatsHandlers{stats: stats}
}

// Routes wires the /stats endpoints onto the provided router.
func (h *StatsHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/sales", h.salesReport)
}

func (h *StatsHandlers) salesReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.stats == nil {
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "stats service unavailable", http.StatusServiceUnavailable))
		return
	}

	query := services.SalesReportQuery{
		Granularity: domain.StatsGranularity(strings.TrimSpace(r.URL.Query().Get("granularity"))),
	}
	if from, err := queryTime(r, "from"); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	} else if from != nil {
		query.From = *from
	}
	if to, err := queryTime(r, "to"); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	} else if to != nil {
		query.To = *to
	}
	limit, err := queryInt(r, "topLimit")
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}
	query.TopLimit = limit

	report, err := h.stats.SalesReport(ctx, query)
	if err != nil {
		writeStatsError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildSalesReportPayload(report))
}

func writeStatsError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrStatsInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "report generation failed", http.StatusInternalServerError))
	}
}

type salesReportPayload struct {
	From           time.Time            `json:"from"`
	To             time.Time            `json:"to"`
	Granularity    string               `json:"granularity"`
	TotalRevenue   int64                `json:"totalRevenue"`
	TotalOrders    int64                `json:"totalOrders"`
	AverageOrder   int64                `json:"averageOrder"`
	GrowthPercent  float64              `json:"growthPercent"`
	Series         []revenuePoint       `json:"series"`
	TopProducts    []productSales       `json:"topProducts"`
	TopCustomers   []customerSales      `json:"topCustomers"`
	Categories     []categoryShare      `json:"categories"`
	PaymentMethods []paymentMethodSlice `json:"paymentMethods"`
}

type revenuePoint struct {
	BucketStart time.Time `json:"bucketStart"`
	Revenue     int64     `json:"revenue"`
	OrderCount  int64     `json:"orderCount"`
}

type productSales struct {
	ProductID string `json:"productId"`
	Name      string `json:"name,omitempty"`
	Quantity  int64  `json:"quantity"`
	Revenue   int64  `json:"revenue"`
}

type customerSales struct {
	CustomerID string `json:"customerId"`
	Name       string `json:"name,omitempty"`
	OrderCount int64  `json:"orderCount"`
	Revenue    int64  `json:"revenue"`
}

type categoryShare struct {
	Category string  `json:"category"`
	Revenue  int64   `json:"revenue"`
	Percent  float64 `json:"percent"`
}

type paymentMethodSlice struct {
	Method     string  `json:"method"`
	OrderCount int64   `json:"orderCount"`
	Revenue    int64   `json:"revenue"`
	Percent    float64 `json:"percent"`
}

func buildSalesReportPayload(report services.SalesReport) salesReportPayload {
	payload := salesReportPayload{
		From:           report.From,
		To:             report.To,
		Granularity:    string(report.Granularity),
		TotalRevenue:   report.TotalRevenue,
		TotalOrders:    report.TotalOrders,
		AverageOrder:   report.AverageOrder,
		GrowthPercent:  report.GrowthPercent,
		Series:         make([]revenuePoint, 0, len(report.Series)),
		TopProducts:    make([]productSales, 0, len(report.TopProducts)),
		TopCustomers:   make([]customerSales, 0, len(report.TopCustomers)),
		Categories:     make([]categoryShare, 0, len(report.Categories)),
		PaymentMethods: make([]paymentMethodSlice, 0, len(report.PaymentMethods)),
	}
	for _, point := range report.Series {
		payload.Series = append(payload.Series, revenuePoint{
			BucketStart: point.BucketStart,
			Revenue:     point.Revenue,
			OrderCount:  point.OrderCount,
		})
	}
	for _, product := range report.TopProducts {
		payload.TopProducts = append(payload.TopProducts, productSales{
			ProductID: product.ProductID,
			Name:      product.Name,
			Quantity:  product.Quantity,
			Revenue:   product.Revenue,
		})
	}
	for _, customer := range report.TopCustomers {
		payload.TopCustomers = append(payload.TopCustomers, customerSales{
			CustomerID: customer.CustomerID,
			Name:       customer.Name,
			OrderCount: customer.OrderCount,
			Revenue:    customer.Revenue,
		})
	}
	for _, category := range report.Categories {
		payload.Categories = append(payload.Categories, categoryShare{
			Category: category.Category,
			Revenue:  category.Revenue,
			Percent:  category.Percent,
		})
	}
	for _, method := range report.PaymentMethods {
		payload.PaymentMethods = append(payload.PaymentMethods, paymentMethodSlice{
			Method:     method.Method,
			OrderCount: method.OrderCount,
			Revenue:    method.Revenue,
			Percent:    method.Percent,
		})
	}
	return payload
}
