package domain

import (
	"time"
)

// StatsGranularity selects the bucket width for time-series aggregations.
type StatsGranularity string

const (
	// StatsGranularityDay buckets by calendar day (UTC).
	StatsGranularityDay StatsGranularity = "day"
	// StatsGranularityWeek buckets by ISO week starting Monday (UTC).
	StatsGranularityWeek StatsGranularity = "week"
	// StatsGranularityMonth buckets by calendar month (UTC).
	StatsGranularityMonth StatsGranularity = "month"
)

// RevenuePoint is one bucket of the revenue/order-count time series.
type RevenuePoint struct {
	BucketStart time.Time
	Revenue     int64
	OrderCount  int64
}

// ProductSales ranks a product by revenue within a report range.
type ProductSales struct {
	ProductID string
	Name      string
	Quantity  int64
	Revenue   int64
}

// CustomerSales ranks a customer by revenue within a report range.
type CustomerSales struct {
	CustomerID string
	Name       string
	OrderCount int64
	Revenue    int64
}

// CategoryShare is one slice of the category revenue breakdown.
type CategoryShare struct {
	Category string
	Revenue  int64
	Percent  float64
}

// PaymentMethodShare is one slice of the payment-method breakdown.
type PaymentMethodShare struct {
	Method     string
	OrderCount int64
	Revenue    int64
	Percent    float64
}

// SalesReport is the aggregate view derived from committed orders in a range.
// All monetary values are in the smallest currency unit; buckets partition
// the range exactly, so their sums equal the headline totals.
type SalesReport struct {
	From           time.Time
	To             time.Time
	Granularity    StatsGranularity
	TotalRevenue   int64
	TotalOrders    int64
	AverageOrder   int64
	GrowthPercent  float64
	Series         []RevenuePoint
	TopProducts    []ProductSales
	TopCustomers   []CustomerSales
	Categories     []CategoryShare
	PaymentMethods []PaymentMethodShare
}

// GrowthPercent implements period-over-period growth. A previous period with
// no revenue reports 100 when the current period has any, otherwise 0.
func GrowthPercent(previous, current int64) float64 {
	if previous == 0 {
		if current > 0 {
			return 100
		}
		return 0
	}
	return float64(current-previous) / float64(previous) * 100
}
