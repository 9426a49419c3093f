package services

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	domain "github.com/storeops/api/internal/domain"
)

type stubStatsRepo struct {
	ordersFn     func(context.Context, time.Time, time.Time) ([]domain.Order, error)
	categoriesFn func(context.Context) (map[string]string, error)
}

func (s *stubStatsRepo) OrdersPlacedBetween(ctx context.Context, from, to time.Time) ([]domain.Order, error) {
	if s.ordersFn != nil {
		return s.ordersFn(ctx, from, to)
	}
	return nil, nil
}

func (s *stubStatsRepo) ProductCategories(ctx context.Context) (map[string]string, error) {
	if s.categoriesFn != nil {
		return s.categoriesFn(ctx)
	}
	return map[string]string{}, nil
}

func reportOrder(id string, placedAt time.Time, total int64) domain.Order {
	return domain.Order{
		ID:            id,
		Customer:      domain.CustomerRef{ID: "cus_1", Name: "Ada"},
		Status:        domain.OrderStatusProcessing,
		PaymentMethod: "card",
		Totals:        domain.OrderTotals{Total: total},
		PlacedAt:      placedAt,
		Items: []domain.OrderItem{
			{ProductID: "prd_chair", Name: "Chair", Quantity: 1, UnitPrice: total, LineTotal: total},
		},
	}
}

func newTestStatsService(t *testing.T, repo *stubStatsRepo) StatsService {
	t.Helper()
	svc, err := NewStatsService(StatsServiceDeps{
		Stats: repo,
		Clock: func() time.Time {
			return time.Date(2025, 3, 31, 12, 0, 0, 0, time.UTC)
		},
		TopLimit: 2,
	})
	if err != nil {
		t.Fatalf("new stats service: %v", err)
	}
	return svc
}

func TestStatsServiceSalesReport(t *testing.T) {
	ctx := context.Background()
	from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC)

	current := []domain.Order{
		reportOrder("ord_1", from.Add(2*time.Hour), 1000),
		reportOrder("ord_2", from.AddDate(0, 0, 2), 3000),
	}
	cancelled := reportOrder("ord_3", from.Add(6*time.Hour), 9999)
	cancelled.Status = domain.OrderStatusCancelled
	deleted := reportOrder("ord_4", from.Add(7*time.Hour), 5000)
	deleted.Deleted = true
	current = append(current, cancelled, deleted)

	previous := []domain.Order{
		reportOrder("ord_0", from.AddDate(0, 0, -1), 2000),
	}

	repo := &stubStatsRepo{
		ordersFn: func(_ context.Context, lo, hi time.Time) ([]domain.Order, error) {
			if lo.Equal(from) && hi.Equal(to) {
				return current, nil
			}
			return previous, nil
		},
		categoriesFn: func(context.Context) (map[string]string, error) {
			return map[string]string{"prd_chair": "furniture"}, nil
		},
	}

	report, err := newTestStatsService(t, repo).SalesReport(ctx, SalesReportQuery{
		From:        from,
		To:          to,
		Granularity: domain.StatsGranularityDay,
	})
	if err != nil {
		t.Fatalf("sales report: %v", err)
	}

	if report.TotalRevenue != 4000 {
		t.Fatalf("cancelled and deleted orders must not count, got revenue %d", report.TotalRevenue)
	}
	if report.TotalOrders != 2 {
		t.Fatalf("expected 2 orders got %d", report.TotalOrders)
	}
	if report.AverageOrder != 2000 {
		t.Fatalf("expected average 2000 got %d", report.AverageOrder)
	}
	if report.GrowthPercent != 100 {
		t.Fatalf("expected 100%% growth over previous 2000, got %v", report.GrowthPercent)
	}

	if len(report.Series) != 3 {
		t.Fatalf("expected a bucket per day, got %d", len(report.Series))
	}
	if report.Series[0].Revenue != 1000 || report.Series[0].OrderCount != 1 {
		t.Fatalf("unexpected first bucket %+v", report.Series[0])
	}
	if report.Series[1].Revenue != 0 || report.Series[1].OrderCount != 0 {
		t.Fatalf("expected empty middle bucket, got %+v", report.Series[1])
	}
	if report.Series[2].Revenue != 3000 {
		t.Fatalf("unexpected last bucket %+v", report.Series[2])
	}

	var seriesTotal int64
	for _, point := range report.Series {
		seriesTotal += point.Revenue
	}
	if seriesTotal != report.TotalRevenue {
		t.Fatalf("series revenue %d must equal total %d", seriesTotal, report.TotalRevenue)
	}

	if len(report.TopProducts) != 1 || report.TopProducts[0].ProductID != "prd_chair" {
		t.Fatalf("unexpected top products %+v", report.TopProducts)
	}
	if report.TopProducts[0].Revenue != 4000 {
		t.Fatalf("expected product revenue 4000 got %d", report.TopProducts[0].Revenue)
	}
	if len(report.TopCustomers) != 1 || report.TopCustomers[0].OrderCount != 2 {
		t.Fatalf("unexpected top customers %+v", report.TopCustomers)
	}

	if len(report.Categories) != 1 || report.Categories[0].Category != "furniture" {
		t.Fatalf("unexpected categories %+v", report.Categories)
	}
	if math.Abs(report.Categories[0].Percent-100) > 1e-9 {
		t.Fatalf("category percents must sum to 100, got %v", report.Categories[0].Percent)
	}
	if len(report.PaymentMethods) != 1 || report.PaymentMethods[0].Method != "card" {
		t.Fatalf("unexpected payment methods %+v", report.PaymentMethods)
	}
}

func TestStatsServiceTopLimitsAndFallbacks(t *testing.T) {
	ctx := context.Background()
	from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)

	orders := make([]domain.Order, 0, 3)
	for i, spec := range []struct {
		product string
		total   int64
	}{
		{"prd_a", 500},
		{"prd_b", 2500},
		{"prd_c", 1500},
	} {
		order := reportOrder("ord_"+spec.product, from.Add(time.Duration(i)*time.Hour), spec.total)
		order.Customer = domain.CustomerRef{ID: "cus_" + spec.product}
		order.PaymentMethod = ""
		order.Items = []domain.OrderItem{
			{ProductID: spec.product, Quantity: 1, UnitPrice: spec.total, LineTotal: spec.total},
		}
		orders = append(orders, order)
	}

	repo := &stubStatsRepo{
		ordersFn: func(_ context.Context, lo, hi time.Time) ([]domain.Order, error) {
			if lo.Equal(from) {
				return orders, nil
			}
			return nil, nil
		},
	}

	report, err := newTestStatsService(t, repo).SalesReport(ctx, SalesReportQuery{From: from, To: to})
	if err != nil {
		t.Fatalf("sales report: %v", err)
	}

	if len(report.TopProducts) != 2 {
		t.Fatalf("expected top list capped at 2, got %d", len(report.TopProducts))
	}
	if report.TopProducts[0].ProductID != "prd_b" || report.TopProducts[1].ProductID != "prd_c" {
		t.Fatalf("expected revenue-descending ranking, got %+v", report.TopProducts)
	}

	if len(report.Categories) != 1 || report.Categories[0].Category != "uncategorized" {
		t.Fatalf("expected uncategorized fallback, got %+v", report.Categories)
	}
	if len(report.PaymentMethods) != 1 || report.PaymentMethods[0].Method != "unknown" {
		t.Fatalf("expected unknown payment method fallback, got %+v", report.PaymentMethods)
	}

	// No revenue in the previous window reports 100% growth.
	if report.GrowthPercent != 100 {
		t.Fatalf("unexpected growth %v", report.GrowthPercent)
	}
}

func TestStatsServiceWeekAndMonthBuckets(t *testing.T) {
	ctx := context.Background()
	// Saturday; its week bucket starts Monday March 3rd.
	placed := time.Date(2025, 3, 8, 15, 0, 0, 0, time.UTC)
	from := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 3, 17, 0, 0, 0, 0, time.UTC)

	repo := &stubStatsRepo{
		ordersFn: func(_ context.Context, lo, _ time.Time) ([]domain.Order, error) {
			if lo.Equal(from) {
				return []domain.Order{reportOrder("ord_1", placed, 700)}, nil
			}
			return nil, nil
		},
	}
	svc := newTestStatsService(t, repo)

	weekly, err := svc.SalesReport(ctx, SalesReportQuery{From: from, To: to, Granularity: domain.StatsGranularityWeek})
	if err != nil {
		t.Fatalf("weekly report: %v", err)
	}
	if len(weekly.Series) != 2 {
		t.Fatalf("expected 2 week buckets got %d", len(weekly.Series))
	}
	if !weekly.Series[0].BucketStart.Equal(from) {
		t.Fatalf("expected week bucket starting Monday %v, got %v", from, weekly.Series[0].BucketStart)
	}
	if weekly.Series[0].Revenue != 700 || weekly.Series[1].Revenue != 0 {
		t.Fatalf("unexpected weekly series %+v", weekly.Series)
	}

	monthly, err := svc.SalesReport(ctx, SalesReportQuery{From: from, To: to, Granularity: domain.StatsGranularityMonth})
	if err != nil {
		t.Fatalf("monthly report: %v", err)
	}
	if len(monthly.Series) != 1 {
		t.Fatalf("expected a single month bucket got %d", len(monthly.Series))
	}
	want := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	if !monthly.Series[0].BucketStart.Equal(want) {
		t.Fatalf("expected month bucket %v got %v", want, monthly.Series[0].BucketStart)
	}
}

func TestStatsServiceQueryValidation(t *testing.T) {
	ctx := context.Background()
	svc := newTestStatsService(t, &stubStatsRepo{})

	from := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	if _, err := svc.SalesReport(ctx, SalesReportQuery{From: from, To: from}); !errors.Is(err, ErrStatsInvalidInput) {
		t.Fatalf("expected empty range rejected, got %v", err)
	}
	if _, err := svc.SalesReport(ctx, SalesReportQuery{From: from, To: from.AddDate(0, 0, 1), Granularity: "hour"}); !errors.Is(err, ErrStatsInvalidInput) {
		t.Fatalf("expected unknown granularity rejected, got %v", err)
	}
	if _, err := svc.SalesReport(ctx, SalesReportQuery{From: from, To: from.AddDate(2, 0, 0)}); !errors.Is(err, ErrStatsInvalidInput) {
		t.Fatalf("expected oversized range rejected, got %v", err)
	}
}
