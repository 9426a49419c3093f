package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	domain "github.com/storeops/api/internal/domain"
	"github.com/storeops/api/internal/repositories"
)

const (
	defaultReportWindowDays = 30
	categoryUnassigned      = "uncategorized"
	paymentMethodUnknown    = "unknown"
)

// ErrStatsInvalidInput signals the caller provided invalid report parameters.
var ErrStatsInvalidInput = errors.New("stats: invalid input")

// StatsServiceDeps bundles the collaborators required to construct a stats service.
type StatsServiceDeps struct {
	Stats        repositories.StatsRepository
	Clock        func() time.Time
	TopLimit     int
	MaxRangeDays int
}

type statsService struct {
	stats        repositories.StatsRepository
	clock        func() time.Time
	topLimit     int
	maxRangeDays int
}

var _ StatsService = (*statsService)(nil)

// NewStatsService wires dependencies into a concrete StatsService implementation.
func NewStatsService(deps StatsServiceDeps) (StatsService, error) {
	if deps.Stats == nil {
		return nil, errors.New("stats service: stats repository is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	topLimit := deps.TopLimit
	if topLimit <= 0 {
		topLimit = 5
	}

	maxRangeDays := deps.MaxRangeDays
	if maxRangeDays <= 0 {
		maxRangeDays = 366
	}

	return &statsService{
		stats: deps.Stats,
		clock: func() time.Time {
			return clock().UTC()
		},
		topLimit:     topLimit,
		maxRangeDays: maxRangeDays,
	}, nil
}

// SalesReport aggregates committed orders placed inside the requested range.
// The aggregation is a pure read: it never mutates order or product state, and
// repeated calls over unchanged data return identical reports.
func (s *statsService) SalesReport(ctx context.Context, query SalesReportQuery) (SalesReport, error) {
	from, to, granularity, err := s.normaliseQuery(query)
	if err != nil {
		return SalesReport{}, err
	}

	orders, err := s.stats.OrdersPlacedBetween(ctx, from, to)
	if err != nil {
		return SalesReport{}, err
	}

	window := to.Sub(from)
	previous, err := s.stats.OrdersPlacedBetween(ctx, from.Add(-window), from)
	if err != nil {
		return SalesReport{}, err
	}

	categories, err := s.stats.ProductCategories(ctx)
	if err != nil {
		return SalesReport{}, err
	}

	counted := filterRevenueOrders(orders)

	report := SalesReport{
		From:        from,
		To:          to,
		Granularity: granularity,
	}

	for _, order := range counted {
		report.TotalRevenue += order.Totals.Total
		report.TotalOrders++
	}
	if report.TotalOrders > 0 {
		report.AverageOrder = report.TotalRevenue / report.TotalOrders
	}

	var previousRevenue int64
	for _, order := range filterRevenueOrders(previous) {
		previousRevenue += order.Totals.Total
	}
	report.GrowthPercent = domain.GrowthPercent(previousRevenue, report.TotalRevenue)

	report.Series = buildSeries(counted, from, to, granularity)
	report.TopProducts = topProducts(counted, s.topLimit)
	report.TopCustomers = topCustomers(counted, s.topLimit)
	report.Categories = categoryShares(counted, categories)
	report.PaymentMethods = paymentMethodShares(counted)

	return report, nil
}

func (s *statsService) normaliseQuery(query SalesReportQuery) (time.Time, time.Time, StatsGranularity, error) {
	to := query.To.UTC()
	if query.To.IsZero() {
		to = s.clock()
	}

	from := query.From.UTC()
	if query.From.IsZero() {
		from = to.AddDate(0, 0, -defaultReportWindowDays)
	}

	if !from.Before(to) {
		return time.Time{}, time.Time{}, "", fmt.Errorf("%w: range start must precede range end", ErrStatsInvalidInput)
	}
	if to.Sub(from) > time.Duration(s.maxRangeDays)*24*time.Hour {
		return time.Time{}, time.Time{}, "", fmt.Errorf("%w: range must not exceed %d days", ErrStatsInvalidInput, s.maxRangeDays)
	}

	granularity := query.Granularity
	if granularity == "" {
		granularity = domain.StatsGranularityDay
	}
	switch granularity {
	case domain.StatsGranularityDay, domain.StatsGranularityWeek, domain.StatsGranularityMonth:
	default:
		return time.Time{}, time.Time{}, "", fmt.Errorf("%w: unknown granularity %q", ErrStatsInvalidInput, granularity)
	}

	return from, to, granularity, nil
}

// filterRevenueOrders keeps the orders that contribute to revenue figures:
// placed orders that were neither deleted, cancelled, nor refunded.
func filterRevenueOrders(orders []Order) []Order {
	out := make([]Order, 0, len(orders))
	for _, order := range orders {
		if order.Deleted {
			continue
		}
		if order.Status == domain.OrderStatusCancelled || order.Status == domain.OrderStatusRefunded {
			continue
		}
		out = append(out, order)
	}
	return out
}

func buildSeries(orders []Order, from, to time.Time, granularity StatsGranularity) []RevenuePoint {
	points := make(map[time.Time]*RevenuePoint)
	var starts []time.Time

	// Pre-seed every bucket in the range so the series has no gaps.
	for cursor := bucketStart(from, granularity); cursor.Before(to); cursor = nextBucket(cursor, granularity) {
		points[cursor] = &RevenuePoint{BucketStart: cursor}
		starts = append(starts, cursor)
	}

	for _, order := range orders {
		bucket := bucketStart(order.PlacedAt, granularity)
		point, ok := points[bucket]
		if !ok {
			continue
		}
		point.Revenue += order.Totals.Total
		point.OrderCount++
	}

	series := make([]RevenuePoint, 0, len(starts))
	for _, start := range starts {
		series = append(series, *points[start])
	}
	return series
}

func bucketStart(t time.Time, granularity StatsGranularity) time.Time {
	t = t.UTC()
	switch granularity {
	case domain.StatsGranularityWeek:
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		// Weeks start Monday.
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	case domain.StatsGranularityMonth:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	}
}

func nextBucket(t time.Time, granularity StatsGranularity) time.Time {
	switch granularity {
	case domain.StatsGranularityWeek:
		return t.AddDate(0, 0, 7)
	case domain.StatsGranularityMonth:
		return t.AddDate(0, 1, 0)
	default:
		return t.AddDate(0, 0, 1)
	}
}

func topProducts(orders []Order, limit int) []ProductSales {
	byProduct := make(map[string]*ProductSales)
	for _, order := range orders {
		for _, item := range order.Items {
			entry, ok := byProduct[item.ProductID]
			if !ok {
				entry = &ProductSales{ProductID: item.ProductID, Name: item.Name}
				byProduct[item.ProductID] = entry
			}
			entry.Quantity += item.Quantity
			entry.Revenue += item.LineTotal
		}
	}

	ranked := make([]ProductSales, 0, len(byProduct))
	for _, entry := range byProduct {
		ranked = append(ranked, *entry)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Revenue != ranked[j].Revenue {
			return ranked[i].Revenue > ranked[j].Revenue
		}
		return ranked[i].ProductID < ranked[j].ProductID
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

func topCustomers(orders []Order, limit int) []CustomerSales {
	byCustomer := make(map[string]*CustomerSales)
	for _, order := range orders {
		entry, ok := byCustomer[order.Customer.ID]
		if !ok {
			entry = &CustomerSales{CustomerID: order.Customer.ID, Name: order.Customer.Name}
			byCustomer[order.Customer.ID] = entry
		}
		entry.OrderCount++
		entry.Revenue += order.Totals.Total
	}

	ranked := make([]CustomerSales, 0, len(byCustomer))
	for _, entry := range byCustomer {
		ranked = append(ranked, *entry)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Revenue != ranked[j].Revenue {
			return ranked[i].Revenue > ranked[j].Revenue
		}
		return ranked[i].CustomerID < ranked[j].CustomerID
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

func categoryShares(orders []Order, categories map[string]string) []CategoryShare {
	revenue := make(map[string]int64)
	var total int64
	for _, order := range orders {
		for _, item := range order.Items {
			category := categories[item.ProductID]
			if category == "" {
				category = categoryUnassigned
			}
			revenue[category] += item.LineTotal
			total += item.LineTotal
		}
	}

	shares := make([]CategoryShare, 0, len(revenue))
	for category, amount := range revenue {
		share := CategoryShare{Category: category, Revenue: amount}
		if total > 0 {
			share.Percent = float64(amount) / float64(total) * 100
		}
		shares = append(shares, share)
	}
	sort.Slice(shares, func(i, j int) bool {
		if shares[i].Revenue != shares[j].Revenue {
			return shares[i].Revenue > shares[j].Revenue
		}
		return shares[i].Category < shares[j].Category
	})
	return shares
}

func paymentMethodShares(orders []Order) []PaymentMethodShare {
	type bucket struct {
		count   int64
		revenue int64
	}
	byMethod := make(map[string]*bucket)
	var total int64
	for _, order := range orders {
		method := order.PaymentMethod
		if method == "" {
			method = paymentMethodUnknown
		}
		entry, ok := byMethod[method]
		if !ok {
			entry = &bucket{}
			byMethod[method] = entry
		}
		entry.count++
		entry.revenue += order.Totals.Total
		total += order.Totals.Total
	}

	shares := make([]PaymentMethodShare, 0, len(byMethod))
	for method, entry := range byMethod {
		share := PaymentMethodShare{
			Method:     method,
			OrderCount: entry.count,
			Revenue:    entry.revenue,
		}
		if total > 0 {
			share.Percent = float64(entry.revenue) / float64(total) * 100
		}
		shares = append(shares, share)
	}
	sort.Slice(shares, func(i, j int) bool {
		if shares[i].Revenue != shares[j].Revenue {
			return shares[i].Revenue > shares[j].Revenue
		}
		return shares[i].Method < shares[j].Method
	})
	return shares
}
