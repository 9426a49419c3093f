package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "github.com/storeops/api/internal/domain"
	pfirestore "github.com/storeops/api/internal/platform/firestore"
	"github.com/storeops/api/internal/platform/pagination"
	"github.com/storeops/api/internal/repositories"
)

const ordersCollection = "orders"

// OrderRepository implements repositories.OrderRepository backed by Firestore.
// Every write path runs as one Firestore transaction covering the order
// document and the product ledgers it touches, so an order and its stock
// movement commit or fail together.
type OrderRepository struct {
	provider *pfirestore.Provider
	orders   *pfirestore.BaseRepository[orderDocument]
	products *pfirestore.BaseRepository[productDocument]
}

// NewOrderRepository constructs a Firestore-backed order repository.
func NewOrderRepository(provider *pfirestore.Provider) (*OrderRepository, error) {
	if provider == nil {
		return nil, errors.New("order repository requires firestore provider")
	}
	return &OrderRepository{
		provider: provider,
		orders:   pfirestore.NewBaseRepository[orderDocument](provider, ordersCollection, nil, nil),
		products: pfirestore.NewBaseRepository[productDocument](provider, productsCollection, nil, nil),
	}, nil
}

// Create persists the draft order after validating and decrementing stock for
// every line inside a single transaction. Product snapshots and totals are
// resolved from the same reads that validated availability.
func (r *OrderRepository) Create(ctx context.Context, req repositories.OrderCreateRequest) (domain.Order, error) {
	if r == nil || r.provider == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	if strings.TrimSpace(req.Draft.ID) == "" {
		return domain.Order{}, errors.New("order create: draft id is required")
	}
	if len(req.Lines) == 0 {
		return domain.Order{}, errors.New("order create: at least one line is required")
	}

	now := req.Now.UTC()
	var created domain.Order

	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		orderRef, err := r.orders.DocumentRef(ctx, req.Draft.ID)
		if err != nil {
			return err
		}

		// All reads must complete before the first write.
		type productRead struct {
			ref *firestore.DocumentRef
			doc productDocument
		}
		reads := make([]productRead, 0, len(req.Lines))
		items := make([]domain.OrderItem, 0, len(req.Lines))

		for _, line := range req.Lines {
			productID := strings.TrimSpace(line.ProductID)
			if productID == "" {
				return repositories.NewInventoryError(repositories.InventoryErrorProductNotFound, "order create: product id is required", nil)
			}
			if line.Quantity <= 0 {
				return repositories.NewInventoryError(repositories.InventoryErrorInvalidQuantity, fmt.Sprintf("order create: quantity for %s must be positive", productID), nil)
			}

			productRef, err := r.products.DocumentRef(ctx, productID)
			if err != nil {
				return err
			}
			snap, err := tx.Get(productRef)
			if err != nil {
				if status.Code(err) == codes.NotFound {
					return repositories.NewInventoryError(repositories.InventoryErrorProductNotFound, fmt.Sprintf("product %s not found", productID), err)
				}
				return err
			}
			var doc productDocument
			if err := snap.DataTo(&doc); err != nil {
				return fmt.Errorf("decode product %s: %w", productID, err)
			}
			if !doc.Active {
				return repositories.NewInventoryError(repositories.InventoryErrorProductNotFound, fmt.Sprintf("product %s is not available", productID), nil)
			}
			if doc.TrackQuantity && !doc.AllowOutOfStockPurchase && doc.Quantity < line.Quantity {
				return repositories.NewStockShortageError(productID, doc.Quantity, line.Quantity)
			}

			items = append(items, domain.OrderItem{
				ProductID: productID,
				Name:      doc.Name,
				Quantity:  line.Quantity,
				UnitPrice: doc.UnitPrice,
				LineTotal: domain.LineTotal(line.Quantity, doc.UnitPrice),
			})

			if doc.TrackQuantity {
				doc.Quantity -= line.Quantity
			}
			doc.TotalSold += line.Quantity
			doc.UpdatedAt = now
			doc.recalculate()
			reads = append(reads, productRead{ref: productRef, doc: doc})
		}

		order := req.Draft
		order.Items = items
		order.Totals = domain.ComputeTotals(items, req.Discount, req.Pricing)
		order.Version = 1

		for _, read := range reads {
			if err := tx.Set(read.ref, read.doc); err != nil {
				return err
			}
		}

		if err := tx.Create(orderRef, newOrderDocument(order)); err != nil {
			return err
		}

		created = order
		return nil
	})
	if err != nil {
		return domain.Order{}, wrapOrderError("orders.create", err)
	}
	return created, nil
}

// ApplyTransition moves the order to the target status and, when the
// transition releases a reservation, restores the recorded item quantities to
// the product ledgers in the same transaction.
func (r *OrderRepository) ApplyTransition(ctx context.Context, req repositories.OrderTransitionRequest) (domain.Order, error) {
	if r == nil || r.provider == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	orderID := strings.TrimSpace(req.OrderID)
	if orderID == "" {
		return domain.Order{}, errors.New("order transition: order id is required")
	}

	now := req.Now.UTC()
	var updated domain.Order

	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		orderRef, err := r.orders.DocumentRef(ctx, orderID)
		if err != nil {
			return err
		}
		order, err := r.readOrder(tx, orderRef, "orders.transition")
		if err != nil {
			return err
		}

		if req.ExpectedStatus != nil && order.Status != *req.ExpectedStatus {
			return pfirestore.NewConflictError("orders.transition", fmt.Errorf("expected status %q but order is %q", *req.ExpectedStatus, order.Status))
		}
		if req.ExpectedVersion != nil && order.Version != *req.ExpectedVersion {
			return pfirestore.NewConflictError("orders.transition", fmt.Errorf("expected version %d but order is at %d", *req.ExpectedVersion, order.Version))
		}

		effects, err := domain.ApplyTransition(&order, req.Target, req.Actor, req.Note, req.Fulfillment, now)
		if err != nil {
			return err
		}

		restores, err := r.readRestores(ctx, tx, order, effects, now)
		if err != nil {
			return err
		}

		order.Version++
		for _, restore := range restores {
			if err := tx.Set(restore.ref, restore.doc); err != nil {
				return err
			}
		}
		if err := tx.Set(orderRef, newOrderDocument(order)); err != nil {
			return err
		}

		updated = order
		return nil
	})
	if err != nil {
		return domain.Order{}, wrapOrderError("orders.transition", err)
	}
	return updated, nil
}

// SoftDelete hides the order from listings. Orders that can still be
// cancelled are cancelled first so their stock returns; shipped or delivered
// orders must go through refund flows instead and are rejected.
func (r *OrderRepository) SoftDelete(ctx context.Context, req repositories.OrderDeleteRequest) (domain.Order, error) {
	if r == nil || r.provider == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	orderID := strings.TrimSpace(req.OrderID)
	if orderID == "" {
		return domain.Order{}, errors.New("order delete: order id is required")
	}

	now := req.Now.UTC()
	var deleted domain.Order

	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		orderRef, err := r.orders.DocumentRef(ctx, orderID)
		if err != nil {
			return err
		}
		order, err := r.readOrder(tx, orderRef, "orders.delete")
		if err != nil {
			return err
		}

		var restores []productRestore
		switch {
		case domain.CanTransition(order.Status, domain.OrderStatusCancelled):
			effects, err := domain.ApplyTransition(&order, domain.OrderStatusCancelled, req.Actor, req.Note, nil, now)
			if err != nil {
				return err
			}
			restores, err = r.readRestores(ctx, tx, order, effects, now)
			if err != nil {
				return err
			}
		case domain.TerminalStatus(order.Status):
			// Already settled; nothing to unwind.
		default:
			return fmt.Errorf("%w: %s orders cannot be deleted", domain.ErrInvalidTransition, order.Status)
		}

		order.Deleted = true
		order.DeletedAt = &now
		order.UpdatedAt = now
		order.Version++

		for _, restore := range restores {
			if err := tx.Set(restore.ref, restore.doc); err != nil {
				return err
			}
		}
		if err := tx.Set(orderRef, newOrderDocument(order)); err != nil {
			return err
		}

		deleted = order
		return nil
	})
	if err != nil {
		return domain.Order{}, wrapOrderError("orders.delete", err)
	}
	return deleted, nil
}

// FindByID returns the order unless it has been soft-deleted.
func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	if r == nil || r.orders == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return domain.Order{}, errors.New("order find: order id is required")
	}

	doc, err := r.orders.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if doc.Data.Deleted {
		return domain.Order{}, pfirestore.NewNotFoundError("orders.find", fmt.Errorf("order %s is deleted", orderID))
	}
	return doc.Data.toDomain(doc.ID), nil
}

// FindByIDs fetches the given orders in one round trip. Missing or deleted
// orders are simply absent from the result; the caller decides whether that
// is an error.
func (r *OrderRepository) FindByIDs(ctx context.Context, orderIDs []string) (map[string]domain.Order, error) {
	if r == nil || r.provider == nil {
		return nil, errors.New("order repository not initialised")
	}

	client, err := r.provider.Client(ctx)
	if err != nil {
		return nil, wrapOrderError("orders.findMany", err)
	}

	refs := make([]*firestore.DocumentRef, 0, len(orderIDs))
	for _, id := range orderIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		refs = append(refs, client.Collection(ordersCollection).Doc(id))
	}

	snaps, err := client.GetAll(ctx, refs)
	if err != nil {
		return nil, wrapOrderError("orders.findMany", err)
	}

	out := make(map[string]domain.Order, len(snaps))
	for _, snap := range snaps {
		if !snap.Exists() {
			continue
		}
		var doc orderDocument
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode order %s: %w", snap.Ref.ID, err)
		}
		if doc.Deleted {
			continue
		}
		out[snap.Ref.ID] = doc.toDomain(snap.Ref.ID)
	}
	return out, nil
}

// List returns orders most recent first with cursor pagination.
func (r *OrderRepository) List(ctx context.Context, filter repositories.OrderListFilter) (domain.CursorPage[domain.Order], error) {
	if r == nil || r.provider == nil {
		return domain.CursorPage[domain.Order]{}, errors.New("order repository not initialised")
	}

	pageSize := pagination.ClampPageSize(filter.Pagination.PageSize)

	client, err := r.provider.Client(ctx)
	if err != nil {
		return domain.CursorPage[domain.Order]{}, wrapOrderError("orders.list", err)
	}

	query := client.Collection(ordersCollection).Query
	if !filter.IncludeDeleted {
		query = query.Where("deleted", "==", false)
	}
	if customerID := strings.TrimSpace(filter.CustomerID); customerID != "" {
		query = query.Where("customer.id", "==", customerID)
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, s := range filter.Statuses {
			statuses = append(statuses, string(s))
		}
		query = query.Where("status", "in", statuses)
	}
	if filter.PlacedAt.From != nil {
		query = query.Where("placedAt", ">=", filter.PlacedAt.From.UTC())
	}
	if filter.PlacedAt.To != nil {
		query = query.Where("placedAt", "<", filter.PlacedAt.To.UTC())
	}
	query = query.OrderBy("placedAt", firestore.Desc).OrderBy(firestore.DocumentID, firestore.Asc).Limit(pageSize + 1)

	if token := strings.TrimSpace(filter.Pagination.PageToken); token != "" {
		cursor, err := pagination.DecodeToken[orderPageToken](token)
		if err != nil {
			return domain.CursorPage[domain.Order]{}, wrapOrderError("orders.list", err)
		}
		query = query.StartAfter(cursor.PlacedAt, cursor.ID)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var orders []domain.Order
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return domain.CursorPage[domain.Order]{}, wrapOrderError("orders.list", err)
		}
		var doc orderDocument
		if err := snap.DataTo(&doc); err != nil {
			return domain.CursorPage[domain.Order]{}, fmt.Errorf("decode order %s: %w", snap.Ref.ID, err)
		}
		orders = append(orders, doc.toDomain(snap.Ref.ID))
	}

	hasMore := len(orders) > pageSize
	if hasMore {
		orders = orders[:pageSize]
	}
	var nextToken string
	if hasMore && len(orders) > 0 {
		last := orders[len(orders)-1]
		encoded, err := pagination.EncodeToken(orderPageToken{ID: last.ID, PlacedAt: last.PlacedAt})
		if err != nil {
			return domain.CursorPage[domain.Order]{}, wrapOrderError("orders.list", err)
		}
		nextToken = encoded
	}

	return domain.CursorPage[domain.Order]{
		Items:         orders,
		NextPageToken: nextToken,
	}, nil
}

func (r *OrderRepository) readOrder(tx *firestore.Transaction, ref *firestore.DocumentRef, op string) (domain.Order, error) {
	snap, err := tx.Get(ref)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return domain.Order{}, pfirestore.NewNotFoundError(op, fmt.Errorf("order %s not found", ref.ID))
		}
		return domain.Order{}, err
	}
	var doc orderDocument
	if err := snap.DataTo(&doc); err != nil {
		return domain.Order{}, fmt.Errorf("decode order %s: %w", ref.ID, err)
	}
	if doc.Deleted {
		return domain.Order{}, pfirestore.NewNotFoundError(op, fmt.Errorf("order %s is deleted", ref.ID))
	}
	return doc.toDomain(ref.ID), nil
}

type productRestore struct {
	ref *firestore.DocumentRef
	doc productDocument
}

// readRestores prepares the product writes for a transition that returns
// stock. Products removed from the catalog since the order was placed are
// skipped rather than failing the cancellation.
func (r *OrderRepository) readRestores(ctx context.Context, tx *firestore.Transaction, order domain.Order, effects domain.TransitionEffects, now time.Time) ([]productRestore, error) {
	if !effects.RestoreInventory {
		return nil, nil
	}

	quantities := order.ItemQuantities()
	restores := make([]productRestore, 0, len(quantities))
	for _, item := range order.Items {
		qty, ok := quantities[item.ProductID]
		if !ok {
			continue
		}
		delete(quantities, item.ProductID)

		productRef, err := r.products.DocumentRef(ctx, item.ProductID)
		if err != nil {
			return nil, err
		}
		snap, err := tx.Get(productRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				continue
			}
			return nil, err
		}
		var doc productDocument
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode product %s: %w", item.ProductID, err)
		}

		if doc.TrackQuantity {
			doc.Quantity += qty
		}
		doc.TotalSold -= qty
		if doc.TotalSold < 0 {
			doc.TotalSold = 0
		}
		doc.UpdatedAt = now
		doc.recalculate()
		restores = append(restores, productRestore{ref: productRef, doc: doc})
	}
	return restores, nil
}

// Document structures --------------------------------------------------------

type orderDocument struct {
	OrderNumber        string                     `firestore:"orderNumber"`
	Customer           customerDocument           `firestore:"customer"`
	Items              []orderItemDocument        `firestore:"items"`
	Currency           string                     `firestore:"currency"`
	Totals             orderTotalsDocument        `firestore:"totals"`
	Status             string                     `firestore:"status"`
	PaymentStatus      string                     `firestore:"paymentStatus"`
	PaymentMethod      string                     `firestore:"paymentMethod,omitempty"`
	ShippingAddress    *addressDocument           `firestore:"shippingAddress,omitempty"`
	BillingAddress     *addressDocument           `firestore:"billingAddress,omitempty"`
	StatusHistory      []statusChangeDocument     `firestore:"statusHistory"`
	FulfillmentHistory []fulfillmentEventDocument `firestore:"fulfillmentHistory,omitempty"`
	PlacedAt           time.Time                  `firestore:"placedAt"`
	ProcessingAt       *time.Time                 `firestore:"processingAt,omitempty"`
	ShippedAt          *time.Time                 `firestore:"shippedAt,omitempty"`
	DeliveredAt        *time.Time                 `firestore:"deliveredAt,omitempty"`
	CancelledAt        *time.Time                 `firestore:"cancelledAt,omitempty"`
	RefundedAt         *time.Time                 `firestore:"refundedAt,omitempty"`
	InventoryRestored  bool                       `firestore:"inventoryRestored"`
	Deleted            bool                       `firestore:"deleted"`
	DeletedAt          *time.Time                 `firestore:"deletedAt,omitempty"`
	Version            int64                      `firestore:"version"`
	Metadata           map[string]any             `firestore:"metadata,omitempty"`
	CreatedAt          time.Time                  `firestore:"createdAt"`
	UpdatedAt          time.Time                  `firestore:"updatedAt"`
}

type customerDocument struct {
	ID    string `firestore:"id"`
	Name  string `firestore:"name,omitempty"`
	Email string `firestore:"email,omitempty"`
}

type orderItemDocument struct {
	ProductID string `firestore:"productId"`
	Name      string `firestore:"name"`
	Quantity  int64  `firestore:"qty"`
	UnitPrice int64  `firestore:"unitPrice"`
	LineTotal int64  `firestore:"lineTotal"`
}

type orderTotalsDocument struct {
	Subtotal int64 `firestore:"subtotal"`
	Discount int64 `firestore:"discount"`
	Shipping int64 `firestore:"shipping"`
	Tax      int64 `firestore:"tax"`
	Total    int64 `firestore:"total"`
}

type addressDocument struct {
	Line1      string `firestore:"line1"`
	Line2      string `firestore:"line2,omitempty"`
	City       string `firestore:"city"`
	Region     string `firestore:"region,omitempty"`
	PostalCode string `firestore:"postalCode"`
	Country    string `firestore:"country"`
}

type statusChangeDocument struct {
	Status string    `firestore:"status"`
	At     time.Time `firestore:"at"`
	Actor  string    `firestore:"actor,omitempty"`
	Note   string    `firestore:"note,omitempty"`
}

type fulfillmentEventDocument struct {
	TrackingNumber string    `firestore:"trackingNumber"`
	Carrier        string    `firestore:"carrier"`
	At             time.Time `firestore:"at"`
	Actor          string    `firestore:"actor,omitempty"`
}

func newOrderDocument(order domain.Order) orderDocument {
	items := make([]orderItemDocument, len(order.Items))
	for i, item := range order.Items {
		items[i] = orderItemDocument{
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			LineTotal: item.LineTotal,
		}
	}

	history := make([]statusChangeDocument, len(order.StatusHistory))
	for i, change := range order.StatusHistory {
		history[i] = statusChangeDocument{
			Status: string(change.Status),
			At:     change.At.UTC(),
			Actor:  change.Actor,
			Note:   change.Note,
		}
	}

	var fulfillment []fulfillmentEventDocument
	for _, event := range order.FulfillmentHistory {
		fulfillment = append(fulfillment, fulfillmentEventDocument{
			TrackingNumber: event.TrackingNumber,
			Carrier:        event.Carrier,
			At:             event.At.UTC(),
			Actor:          event.Actor,
		})
	}

	return orderDocument{
		OrderNumber: order.OrderNumber,
		Customer: customerDocument{
			ID:    order.Customer.ID,
			Name:  order.Customer.Name,
			Email: order.Customer.Email,
		},
		Items:    items,
		Currency: order.Currency,
		Totals: orderTotalsDocument{
			Subtotal: order.Totals.Subtotal,
			Discount: order.Totals.Discount,
			Shipping: order.Totals.Shipping,
			Tax:      order.Totals.Tax,
			Total:    order.Totals.Total,
		},
		Status:             string(order.Status),
		PaymentStatus:      string(order.PaymentStatus),
		PaymentMethod:      order.PaymentMethod,
		ShippingAddress:    newAddressDocument(order.ShippingAddress),
		BillingAddress:     newAddressDocument(order.BillingAddress),
		StatusHistory:      history,
		FulfillmentHistory: fulfillment,
		PlacedAt:           order.PlacedAt.UTC(),
		ProcessingAt:       order.ProcessingAt,
		ShippedAt:          order.ShippedAt,
		DeliveredAt:        order.DeliveredAt,
		CancelledAt:        order.CancelledAt,
		RefundedAt:         order.RefundedAt,
		InventoryRestored:  order.InventoryRestored,
		Deleted:            order.Deleted,
		DeletedAt:          order.DeletedAt,
		Version:            order.Version,
		Metadata:           order.Metadata,
		CreatedAt:          order.CreatedAt.UTC(),
		UpdatedAt:          order.UpdatedAt.UTC(),
	}
}

func (d orderDocument) toDomain(id string) domain.Order {
	items := make([]domain.OrderItem, len(d.Items))
	for i, item := range d.Items {
		items[i] = domain.OrderItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			LineTotal: item.LineTotal,
		}
	}

	history := make([]domain.StatusChange, len(d.StatusHistory))
	for i, change := range d.StatusHistory {
		history[i] = domain.StatusChange{
			Status: domain.OrderStatus(change.Status),
			At:     change.At,
			Actor:  change.Actor,
			Note:   change.Note,
		}
	}

	var fulfillment []domain.FulfillmentEvent
	for _, event := range d.FulfillmentHistory {
		fulfillment = append(fulfillment, domain.FulfillmentEvent{
			TrackingNumber: event.TrackingNumber,
			Carrier:        event.Carrier,
			At:             event.At,
			Actor:          event.Actor,
		})
	}

	return domain.Order{
		ID:          id,
		OrderNumber: d.OrderNumber,
		Customer: domain.CustomerRef{
			ID:    d.Customer.ID,
			Name:  d.Customer.Name,
			Email: d.Customer.Email,
		},
		Items:    items,
		Currency: d.Currency,
		Totals: domain.OrderTotals{
			Subtotal: d.Totals.Subtotal,
			Discount: d.Totals.Discount,
			Shipping: d.Totals.Shipping,
			Tax:      d.Totals.Tax,
			Total:    d.Totals.Total,
		},
		Status:             domain.OrderStatus(d.Status),
		PaymentStatus:      domain.PaymentStatus(d.PaymentStatus),
		PaymentMethod:      d.PaymentMethod,
		ShippingAddress:    d.ShippingAddress.toDomain(),
		BillingAddress:     d.BillingAddress.toDomain(),
		StatusHistory:      history,
		FulfillmentHistory: fulfillment,
		PlacedAt:           d.PlacedAt,
		ProcessingAt:       d.ProcessingAt,
		ShippedAt:          d.ShippedAt,
		DeliveredAt:        d.DeliveredAt,
		CancelledAt:        d.CancelledAt,
		RefundedAt:         d.RefundedAt,
		InventoryRestored:  d.InventoryRestored,
		Deleted:            d.Deleted,
		DeletedAt:          d.DeletedAt,
		Version:            d.Version,
		Metadata:           d.Metadata,
		CreatedAt:          d.CreatedAt,
		UpdatedAt:          d.UpdatedAt,
	}
}

func newAddressDocument(addr *domain.Address) *addressDocument {
	if addr == nil {
		return nil
	}
	return &addressDocument{
		Line1:      addr.Line1,
		Line2:      addr.Line2,
		City:       addr.City,
		Region:     addr.Region,
		PostalCode: addr.PostalCode,
		Country:    addr.Country,
	}
}

func (d *addressDocument) toDomain() *domain.Address {
	if d == nil {
		return nil
	}
	return &domain.Address{
		Line1:      d.Line1,
		Line2:      d.Line2,
		City:       d.City,
		Region:     d.Region,
		PostalCode: d.PostalCode,
		Country:    d.Country,
	}
}

type orderPageToken struct {
	ID       string    `json:"id"`
	PlacedAt time.Time `json:"placedAt"`
}

func wrapOrderError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrInvalidTransition) ||
		errors.Is(err, domain.ErrMissingFulfillmentDetails) ||
		errors.Is(err, domain.ErrUnknownStatus) {
		return err
	}
	var invErr *repositories.InventoryError
	if errors.As(err, &invErr) {
		if invErr.Op == "" {
			invErr.Op = op
		}
		return invErr
	}
	return pfirestore.WrapError(op, err)
}
