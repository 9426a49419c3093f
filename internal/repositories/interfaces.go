package repositories

import (
	"context"
	"time"

	domain "github.com/storeops/api/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error

	Orders() OrderRepository
	Products() ProductRepository
	Counters() CounterRepository
	Stats() StatsRepository
	Health() HealthRepository
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// OrderRepository persists order aggregates. Create, ApplyTransition and
// SoftDelete each commit the order write and its inventory counterpart as a
// single transaction; partial effects never become visible.
type OrderRepository interface {
	Create(ctx context.Context, req OrderCreateRequest) (domain.Order, error)
	ApplyTransition(ctx context.Context, req OrderTransitionRequest) (domain.Order, error)
	SoftDelete(ctx context.Context, req OrderDeleteRequest) (domain.Order, error)
	FindByID(ctx context.Context, orderID string) (domain.Order, error)
	FindByIDs(ctx context.Context, orderIDs []string) (map[string]domain.Order, error)
	List(ctx context.Context, filter OrderListFilter) (domain.CursorPage[domain.Order], error)
}

// OrderLineInput names a product and the units requested for it.
type OrderLineInput struct {
	ProductID string
	Quantity  int64
}

// OrderCreateRequest carries a prepared order draft plus the raw lines to
// reserve. The repository resolves product snapshots and totals inside the
// reservation transaction so pricing reflects the same read that stock
// validation used.
type OrderCreateRequest struct {
	Draft    domain.Order
	Lines    []OrderLineInput
	Discount int64
	Pricing  domain.PricingConfig
	Now      time.Time
}

// OrderTransitionRequest describes one lifecycle transition. ExpectedStatus
// and ExpectedVersion, when set, must match the stored order inside the
// transaction or the write fails as a conflict.
type OrderTransitionRequest struct {
	OrderID         string
	Target          domain.OrderStatus
	Actor           string
	Note            string
	Fulfillment     *domain.FulfillmentUpdate
	ExpectedStatus  *domain.OrderStatus
	ExpectedVersion *int64
	Now             time.Time
}

// OrderDeleteRequest marks an order soft-deleted, cancelling it first when it
// is still cancellable.
type OrderDeleteRequest struct {
	OrderID string
	Actor   string
	Note    string
	Now     time.Time
}

// OrderListFilter bounds admin order listings.
type OrderListFilter struct {
	CustomerID     string
	Statuses       []domain.OrderStatus
	PlacedAt       domain.RangeQuery[time.Time]
	IncludeDeleted bool
	Pagination     domain.Pagination
}

// ProductRepository persists catalog entries and their stock configuration.
// Upsert never writes the Quantity/TotalSold counters of an existing product;
// those move only through order transactions and ConfigureStock.
type ProductRepository interface {
	Upsert(ctx context.Context, product domain.Product) (domain.Product, error)
	FindByID(ctx context.Context, productID string) (domain.Product, error)
	ConfigureStock(ctx context.Context, req StockConfigRequest) (domain.Product, error)
	List(ctx context.Context, filter ProductListFilter) (domain.CursorPage[domain.Product], error)
	ListLowStock(ctx context.Context, filter ProductListFilter) (domain.CursorPage[domain.Product], error)
}

// StockConfigRequest adjusts available stock outside the order path, e.g.
// when receiving goods. Exactly one of SetQuantity or AdjustBy is used.
type StockConfigRequest struct {
	ProductID   string
	SetQuantity *int64
	AdjustBy    *int64
	Now         time.Time
}

// ProductListFilter bounds catalog listings.
type ProductListFilter struct {
	Category   string
	ActiveOnly bool
	Pagination domain.Pagination
}

// StatsRepository provides the read-only committed snapshots the statistics
// aggregator consumes. It never mutates order or product state.
type StatsRepository interface {
	OrdersPlacedBetween(ctx context.Context, from, to time.Time) ([]domain.Order, error)
	ProductCategories(ctx context.Context) (map[string]string, error)
}

// CounterRepository provides transaction-safe sequence numbers.
type CounterRepository interface {
	Next(ctx context.Context, counterID string, step int64) (int64, error)
	Configure(ctx context.Context, counterID string, cfg CounterConfig) error
}

// CounterConfig seeds or bounds a named counter.
type CounterConfig struct {
	Start    int64
	MaxValue int64
}

// HealthRepository exposes the status of downstream dependencies for readiness checks.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.HealthReport, error)
}
