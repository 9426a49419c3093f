package domain

import (
	"time"
)

// Pagination defines standard cursor-based paging inputs for list operations.
type Pagination struct {
	PageSize  int
	PageToken string
}

// SortOrder indicates ascending or descending ordering for list queries.
type SortOrder string

const (
	// SortAsc sorts results in ascending order.
	SortAsc SortOrder = "asc"
	// SortDesc sorts results in descending order.
	SortDesc SortOrder = "desc"
)

// RangeQuery represents inclusive range filters for numeric or timestamp fields.
type RangeQuery[T comparable] struct {
	From *T
	To   *T
}

// CursorPage wraps a page of results along with the next page token.
type CursorPage[T any] struct {
	Items         []T
	NextPageToken string
}

// Product is the inventory unit. Quantity and TotalSold are the ledger
// counters: they move only through order reservation and reconciliation,
// never through catalog edits.
type Product struct {
	ID                      string
	SKU                     string
	Name                    string
	Category                string
	UnitPrice               int64
	Currency                string
	Quantity                int64
	TotalSold               int64
	TrackQuantity           bool
	AllowOutOfStockPurchase bool
	LowStockThreshold       int64
	Active                  bool
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

// LowStock reports whether a tracked product has fallen to or below its
// configured threshold.
func (p Product) LowStock() bool {
	return p.TrackQuantity && p.Quantity <= p.LowStockThreshold
}

// OrderStatus enumerates valid lifecycle states for orders.
type OrderStatus string

const (
	// OrderStatusPending indicates the order is placed but not yet confirmed for fulfillment.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusProcessing indicates the order is confirmed and being prepared.
	OrderStatusProcessing OrderStatus = "processing"
	// OrderStatusShipped indicates the order has been handed to a carrier.
	OrderStatusShipped OrderStatus = "shipped"
	// OrderStatusDelivered indicates the order reached the customer.
	OrderStatusDelivered OrderStatus = "delivered"
	// OrderStatusCancelled indicates the order was cancelled before shipment.
	OrderStatusCancelled OrderStatus = "cancelled"
	// OrderStatusRefunded indicates a delivered order was refunded.
	OrderStatusRefunded OrderStatus = "refunded"
)

// PaymentStatus tracks the payment side of an order independently of fulfillment.
type PaymentStatus string

const (
	// PaymentStatusPending indicates payment has not completed.
	PaymentStatusPending PaymentStatus = "pending"
	// PaymentStatusPaid indicates payment settled.
	PaymentStatusPaid PaymentStatus = "paid"
	// PaymentStatusRefunded indicates payment was returned to the customer.
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// CustomerRef is the frozen customer snapshot carried on an order.
type CustomerRef struct {
	ID    string
	Name  string
	Email string
}

// Address is a postal address snapshot attached to an order.
type Address struct {
	Line1      string
	Line2      string
	City       string
	Region     string
	PostalCode string
	Country    string
}

// OrderItem is a frozen snapshot of a product at order placement.
// Reconciliation always uses these recorded quantities, never the current
// catalog state.
type OrderItem struct {
	ProductID string
	Name      string
	Quantity  int64
	UnitPrice int64
	LineTotal int64
}

// OrderTotals holds rolled-up monetary fields in the smallest currency unit.
type OrderTotals struct {
	Subtotal int64
	Discount int64
	Shipping int64
	Tax      int64
	Total    int64
}

// StatusChange is one append-only audit entry in an order's status history.
type StatusChange struct {
	Status OrderStatus
	At     time.Time
	Actor  string
	Note   string
}

// FulfillmentEvent records a shipment handoff in an order's fulfillment history.
type FulfillmentEvent struct {
	TrackingNumber string
	Carrier        string
	At             time.Time
	Actor          string
}

// FulfillmentUpdate carries the tracking details required by a shipped transition.
type FulfillmentUpdate struct {
	TrackingNumber string
	Carrier        string
}

// Order is the aggregate root for a customer purchase. Status, the histories
// and the per-status timestamps change only through lifecycle transitions;
// Version increases on every committed write and backs the optimistic
// concurrency check.
type Order struct {
	ID                 string
	OrderNumber        string
	Customer           CustomerRef
	Items              []OrderItem
	Currency           string
	Totals             OrderTotals
	Status             OrderStatus
	PaymentStatus      PaymentStatus
	PaymentMethod      string
	ShippingAddress    *Address
	BillingAddress     *Address
	StatusHistory      []StatusChange
	FulfillmentHistory []FulfillmentEvent
	PlacedAt           time.Time
	ProcessingAt       *time.Time
	ShippedAt          *time.Time
	DeliveredAt        *time.Time
	CancelledAt        *time.Time
	RefundedAt         *time.Time
	InventoryRestored  bool
	Deleted            bool
	DeletedAt          *time.Time
	Version            int64
	Metadata           map[string]any
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// ItemQuantities aggregates requested units per product across the order's
// items, so multi-line orders for the same product reconcile as one delta.
func (o Order) ItemQuantities() map[string]int64 {
	out := make(map[string]int64, len(o.Items))
	for _, item := range o.Items {
		out[item.ProductID] += item.Quantity
	}
	return out
}
