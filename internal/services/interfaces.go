package services

import (
	"context"
	"time"

	domain "github.com/storeops/api/internal/domain"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	Pagination         = domain.Pagination
	SortOrder          = domain.SortOrder
	Product            = domain.Product
	Order              = domain.Order
	OrderItem          = domain.OrderItem
	OrderTotals        = domain.OrderTotals
	OrderStatus        = domain.OrderStatus
	PaymentStatus      = domain.PaymentStatus
	StatusChange       = domain.StatusChange
	FulfillmentEvent   = domain.FulfillmentEvent
	FulfillmentUpdate  = domain.FulfillmentUpdate
	CustomerRef        = domain.CustomerRef
	Address            = domain.Address
	PricingConfig      = domain.PricingConfig
	StatsGranularity   = domain.StatsGranularity
	SalesReport        = domain.SalesReport
	RevenuePoint       = domain.RevenuePoint
	ProductSales       = domain.ProductSales
	CustomerSales      = domain.CustomerSales
	CategoryShare      = domain.CategoryShare
	PaymentMethodShare = domain.PaymentMethodShare
	HealthReport       = domain.HealthReport
)

// OrderService encapsulates the order lifecycle: placement with stock
// reservation, status transitions with inventory reconciliation, bulk
// transitions, and soft deletion.
type OrderService interface {
	Create(ctx context.Context, cmd OrderCreateCommand) (Order, error)
	Get(ctx context.Context, orderID string) (Order, error)
	List(ctx context.Context, query OrderListQuery) (domain.CursorPage[Order], error)
	ApplyTransition(ctx context.Context, cmd OrderTransitionCommand) (Order, error)
	BulkApplyTransition(ctx context.Context, cmd BulkTransitionCommand) (BulkTransitionResult, error)
	Delete(ctx context.Context, cmd OrderDeleteCommand) (Order, error)
}

// InventoryService manages the product catalog and its stock configuration.
type InventoryService interface {
	GetProduct(ctx context.Context, productID string) (Product, error)
	UpsertProduct(ctx context.Context, cmd ProductUpsertCommand) (Product, error)
	ConfigureStock(ctx context.Context, cmd StockAdjustmentCommand) (Product, error)
	ListProducts(ctx context.Context, query ProductListQuery) (domain.CursorPage[Product], error)
	ListLowStock(ctx context.Context, query ProductListQuery) (domain.CursorPage[Product], error)
}

// StatsService derives read-only sales reports from committed orders.
type StatsService interface {
	SalesReport(ctx context.Context, query SalesReportQuery) (SalesReport, error)
}

// SystemService aggregates utility endpoints (health checks, counters).
type SystemService interface {
	HealthReport(ctx context.Context) (HealthReport, error)
	NextCounterValue(ctx context.Context, counterID string) (int64, error)
}

// OrderEventPublisher emits order lifecycle events to interested consumers.
// Implementations must not block order flows on delivery.
type OrderEventPublisher interface {
	PublishOrderEvent(ctx context.Context, message OrderEventMessage) (string, error)
}

// OrderEventMessage is the payload published on order lifecycle changes.
type OrderEventMessage struct {
	EventID       string         `json:"eventId"`
	Type          string         `json:"type"`
	OrderID       string         `json:"orderId"`
	OrderNumber   string         `json:"orderNumber"`
	Status        OrderStatus    `json:"status"`
	PreviousState OrderStatus    `json:"previousStatus,omitempty"`
	CustomerID    string         `json:"customerId,omitempty"`
	CustomerEmail string         `json:"customerEmail,omitempty"`
	OccurredAt    time.Time      `json:"occurredAt"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// Command and DTO definitions ------------------------------------------------

// OrderItemInput names a product and the units requested for it.
type OrderItemInput struct {
	ProductID string
	Quantity  int64
}

type OrderCreateCommand struct {
	Customer        CustomerRef
	Items           []OrderItemInput
	ShippingAddress *Address
	BillingAddress  *Address
	PaymentMethod   string
	MarkPaid        bool
	Discount        int64
	Actor           string
	Note            string
	Metadata        map[string]any
}

type OrderTransitionCommand struct {
	OrderID         string
	Target          OrderStatus
	Actor           string
	Note            string
	Fulfillment     *FulfillmentUpdate
	ExpectedStatus  *OrderStatus
	ExpectedVersion *int64
}

type BulkTransitionCommand struct {
	OrderIDs    []string
	Target      OrderStatus
	Actor       string
	Note        string
	Fulfillment *FulfillmentUpdate
}

// BulkOrderOutcome reports the result for a single order within a bulk
// transition. Reason is empty when Applied is true.
type BulkOrderOutcome struct {
	OrderID string
	Applied bool
	Order   Order
	Reason  string
}

// BulkTransitionResult summarises a bulk transition after all referenced
// orders were found. ModifiedCount equals the number of applied outcomes.
type BulkTransitionResult struct {
	Outcomes      []BulkOrderOutcome
	ModifiedCount int
}

type OrderDeleteCommand struct {
	OrderID string
	Actor   string
	Note    string
}

type OrderListQuery struct {
	CustomerID     string
	Statuses       []OrderStatus
	PlacedFrom     *time.Time
	PlacedTo       *time.Time
	IncludeDeleted bool
	Pagination
}

type ProductUpsertCommand struct {
	ProductID               string
	SKU                     string
	Name                    string
	Category                string
	UnitPrice               int64
	Currency                string
	InitialQuantity         *int64
	TrackQuantity           bool
	AllowOutOfStockPurchase bool
	LowStockThreshold       *int64
	Active                  bool
}

type StockAdjustmentCommand struct {
	ProductID   string
	SetQuantity *int64
	AdjustBy    *int64
}

type ProductListQuery struct {
	Category   string
	ActiveOnly bool
	Pagination
}

type SalesReportQuery struct {
	From        time.Time
	To          time.Time
	Granularity StatsGranularity
	TopLimit    int
}
