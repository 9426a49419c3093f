package services

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/storeops/api/internal/domain"
	"github.com/storeops/api/internal/repositories"
)

const (
	orderEventCreated   = "order.created"
	orderEventConfirmed = "order.confirmed"
	orderEventShipped   = "order.shipped"
	orderEventDelivered = "order.delivered"
	orderEventCancelled = "order.cancelled"
	orderEventRefunded  = "order.refunded"

	orderIDPrefix = "ord_"
	eventIDPrefix = "evt_"

	maxBulkTransitionOrders = 100
)

var (
	// ErrOrderInvalidInput signals the caller provided invalid arguments.
	ErrOrderInvalidInput = errors.New("order: invalid input")
	// ErrOrderNotFound indicates the requested order does not exist or is deleted.
	ErrOrderNotFound = errors.New("order: not found")
	// ErrOrderConflict indicates the order changed between read and write.
	ErrOrderConflict = errors.New("order: concurrent modification")
	// ErrOrdersNotFound indicates a bulk transition referenced unknown orders.
	ErrOrdersNotFound = errors.New("order: orders not found")
)

// MissingOrdersError lists the ids a bulk transition referenced that do not
// exist. The whole batch is rejected before any order is modified.
type MissingOrdersError struct {
	OrderIDs []string
}

// Error implements the error interface.
func (e *MissingOrdersError) Error() string {
	return fmt.Sprintf("order: orders not found: %s", strings.Join(e.OrderIDs, ", "))
}

// Is reports ErrOrdersNotFound so callers can match without unpacking ids.
func (e *MissingOrdersError) Is(target error) bool {
	return target == ErrOrdersNotFound
}

// OrderServiceDeps bundles the collaborators required to construct an order service.
type OrderServiceDeps struct {
	Orders       repositories.OrderRepository
	Counters     repositories.CounterRepository
	Events       OrderEventPublisher
	Clock        func() time.Time
	IDGenerator  func() string
	Logger       func(ctx context.Context, event string, fields map[string]any)
	Pricing      PricingConfig
	NumberPrefix string
	Currency     string
}

type orderService struct {
	orders       repositories.OrderRepository
	counters     repositories.CounterRepository
	events       OrderEventPublisher
	clock        func() time.Time
	newID        func() string
	logger       func(context.Context, string, map[string]any)
	pricing      PricingConfig
	numberPrefix string
	currency     string
}

var _ OrderService = (*orderService)(nil)

// NewOrderService wires dependencies into a concrete OrderService implementation.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Orders == nil {
		return nil, errors.New("order service: order repository is required")
	}
	if deps.Counters == nil {
		return nil, errors.New("order service: counter repository is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string {
			return ulid.Make().String()
		}
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	prefix := strings.TrimSpace(deps.NumberPrefix)
	if prefix == "" {
		prefix = "SO"
	}

	currency := strings.ToLower(strings.TrimSpace(deps.Currency))
	if currency == "" {
		currency = "usd"
	}

	return &orderService{
		orders:   deps.Orders,
		counters: deps.Counters,
		events:   deps.Events,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:        idGen,
		logger:       logger,
		pricing:      deps.Pricing,
		numberPrefix: prefix,
		currency:     currency,
	}, nil
}

func (s *orderService) Create(ctx context.Context, cmd OrderCreateCommand) (Order, error) {
	lines, err := s.validateCreateInput(cmd)
	if err != nil {
		return Order{}, err
	}

	now := s.now()

	number, err := s.generateOrderNumber(ctx, now)
	if err != nil {
		return Order{}, err
	}

	paymentStatus := domain.PaymentStatusPending
	initialStatus := domain.OrderStatusPending
	if cmd.MarkPaid {
		paymentStatus = domain.PaymentStatusPaid
		initialStatus = domain.OrderStatusProcessing
	}

	draft := Order{
		ID:          s.nextOrderID(),
		OrderNumber: number,
		Customer: CustomerRef{
			ID:    strings.TrimSpace(cmd.Customer.ID),
			Name:  strings.TrimSpace(cmd.Customer.Name),
			Email: strings.TrimSpace(cmd.Customer.Email),
		},
		Currency:        s.currency,
		Status:          initialStatus,
		PaymentStatus:   paymentStatus,
		PaymentMethod:   strings.TrimSpace(cmd.PaymentMethod),
		ShippingAddress: cloneAddress(cmd.ShippingAddress),
		BillingAddress:  cloneAddress(cmd.BillingAddress),
		StatusHistory: []StatusChange{{
			Status: initialStatus,
			At:     now,
			Actor:  strings.TrimSpace(cmd.Actor),
			Note:   strings.TrimSpace(cmd.Note),
		}},
		PlacedAt:  now,
		Metadata:  cloneMap(cmd.Metadata),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if initialStatus == domain.OrderStatusProcessing {
		draft.ProcessingAt = &now
	}

	created, err := s.orders.Create(ctx, repositories.OrderCreateRequest{
		Draft:    draft,
		Lines:    lines,
		Discount: cmd.Discount,
		Pricing:  s.pricing,
		Now:      now,
	})
	if err != nil {
		return Order{}, s.mapRepositoryError(err)
	}

	s.publishEvent(ctx, OrderEventMessage{
		Type:        orderEventCreated,
		OrderID:     created.ID,
		OrderNumber: created.OrderNumber,
		Status:      created.Status,
		OccurredAt:  now,
	}, created)

	return created, nil
}

func (s *orderService) Get(ctx context.Context, orderID string) (Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return Order{}, s.mapRepositoryError(err)
	}
	return order, nil
}

func (s *orderService) List(ctx context.Context, query OrderListQuery) (domain.CursorPage[Order], error) {
	for _, status := range query.Statuses {
		if !domain.ValidStatus(status) {
			return domain.CursorPage[Order]{}, fmt.Errorf("%w: unknown status %q", ErrOrderInvalidInput, status)
		}
	}
	if query.PageSize < 0 {
		return domain.CursorPage[Order]{}, fmt.Errorf("%w: page size must not be negative", ErrOrderInvalidInput)
	}

	filter := repositories.OrderListFilter{
		CustomerID:     strings.TrimSpace(query.CustomerID),
		Statuses:       query.Statuses,
		PlacedAt:       domain.RangeQuery[time.Time]{From: query.PlacedFrom, To: query.PlacedTo},
		IncludeDeleted: query.IncludeDeleted,
		Pagination:     query.Pagination,
	}

	page, err := s.orders.List(ctx, filter)
	if err != nil {
		return domain.CursorPage[Order]{}, s.mapRepositoryError(err)
	}
	return page, nil
}

func (s *orderService) ApplyTransition(ctx context.Context, cmd OrderTransitionCommand) (Order, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	if !domain.ValidStatus(cmd.Target) {
		return Order{}, fmt.Errorf("%w: %v %q", ErrOrderInvalidInput, domain.ErrUnknownStatus, cmd.Target)
	}

	now := s.now()

	updated, err := s.orders.ApplyTransition(ctx, repositories.OrderTransitionRequest{
		OrderID:         orderID,
		Target:          cmd.Target,
		Actor:           strings.TrimSpace(cmd.Actor),
		Note:            strings.TrimSpace(cmd.Note),
		Fulfillment:     cmd.Fulfillment,
		ExpectedStatus:  cmd.ExpectedStatus,
		ExpectedVersion: cmd.ExpectedVersion,
		Now:             now,
	})
	if err != nil {
		return Order{}, s.mapRepositoryError(err)
	}

	s.publishTransitionEvent(ctx, updated, now)

	return updated, nil
}

func (s *orderService) BulkApplyTransition(ctx context.Context, cmd BulkTransitionCommand) (BulkTransitionResult, error) {
	ids := dedupeIDs(cmd.OrderIDs)
	if len(ids) == 0 {
		return BulkTransitionResult{}, fmt.Errorf("%w: at least one order id is required", ErrOrderInvalidInput)
	}
	if len(ids) > maxBulkTransitionOrders {
		return BulkTransitionResult{}, fmt.Errorf("%w: at most %d orders per batch", ErrOrderInvalidInput, maxBulkTransitionOrders)
	}
	if !domain.ValidStatus(cmd.Target) {
		return BulkTransitionResult{}, fmt.Errorf("%w: %v %q", ErrOrderInvalidInput, domain.ErrUnknownStatus, cmd.Target)
	}

	found, err := s.orders.FindByIDs(ctx, ids)
	if err != nil {
		return BulkTransitionResult{}, s.mapRepositoryError(err)
	}

	var missing []string
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return BulkTransitionResult{}, &MissingOrdersError{OrderIDs: missing}
	}

	result := BulkTransitionResult{
		Outcomes: make([]BulkOrderOutcome, 0, len(ids)),
	}

	for _, id := range ids {
		now := s.now()
		updated, err := s.orders.ApplyTransition(ctx, repositories.OrderTransitionRequest{
			OrderID:     id,
			Target:      cmd.Target,
			Actor:       strings.TrimSpace(cmd.Actor),
			Note:        strings.TrimSpace(cmd.Note),
			Fulfillment: cmd.Fulfillment,
			Now:         now,
		})
		if err != nil {
			result.Outcomes = append(result.Outcomes, BulkOrderOutcome{
				OrderID: id,
				Reason:  s.mapRepositoryError(err).Error(),
			})
			continue
		}

		result.Outcomes = append(result.Outcomes, BulkOrderOutcome{
			OrderID: id,
			Applied: true,
			Order:   updated,
		})
		result.ModifiedCount++

		s.publishTransitionEvent(ctx, updated, now)
	}

	return result, nil
}

func (s *orderService) Delete(ctx context.Context, cmd OrderDeleteCommand) (Order, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}

	before, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return Order{}, s.mapRepositoryError(err)
	}

	now := s.now()

	deleted, err := s.orders.SoftDelete(ctx, repositories.OrderDeleteRequest{
		OrderID: orderID,
		Actor:   strings.TrimSpace(cmd.Actor),
		Note:    strings.TrimSpace(cmd.Note),
		Now:     now,
	})
	if err != nil {
		return Order{}, s.mapRepositoryError(err)
	}

	if before.Status != deleted.Status && deleted.Status == domain.OrderStatusCancelled {
		s.publishEvent(ctx, OrderEventMessage{
			Type:          orderEventCancelled,
			OrderID:       deleted.ID,
			OrderNumber:   deleted.OrderNumber,
			Status:        deleted.Status,
			PreviousState: before.Status,
			OccurredAt:    now,
		}, deleted)
	}

	return deleted, nil
}

func (s *orderService) validateCreateInput(cmd OrderCreateCommand) ([]repositories.OrderLineInput, error) {
	if strings.TrimSpace(cmd.Customer.ID) == "" {
		return nil, fmt.Errorf("%w: customer id is required", ErrOrderInvalidInput)
	}
	if len(cmd.Items) == 0 {
		return nil, fmt.Errorf("%w: at least one item is required", ErrOrderInvalidInput)
	}
	if cmd.Discount < 0 {
		return nil, fmt.Errorf("%w: discount must not be negative", ErrOrderInvalidInput)
	}

	// Merge duplicate product lines so the reservation sees one delta per product.
	quantities := make(map[string]int64, len(cmd.Items))
	ordered := make([]string, 0, len(cmd.Items))
	for _, item := range cmd.Items {
		productID := strings.TrimSpace(item.ProductID)
		if productID == "" {
			return nil, fmt.Errorf("%w: item product id is required", ErrOrderInvalidInput)
		}
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("%w: item quantity must be positive", ErrOrderInvalidInput)
		}
		if _, seen := quantities[productID]; !seen {
			ordered = append(ordered, productID)
		}
		quantities[productID] += item.Quantity
	}

	lines := make([]repositories.OrderLineInput, 0, len(ordered))
	for _, productID := range ordered {
		lines = append(lines, repositories.OrderLineInput{
			ProductID: productID,
			Quantity:  quantities[productID],
		})
	}
	return lines, nil
}

func (s *orderService) publishTransitionEvent(ctx context.Context, order Order, now time.Time) {
	eventType, ok := transitionEventTypes[order.Status]
	if !ok {
		return
	}

	var previous OrderStatus
	if n := len(order.StatusHistory); n >= 2 {
		previous = order.StatusHistory[n-2].Status
	}

	s.publishEvent(ctx, OrderEventMessage{
		Type:          eventType,
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		Status:        order.Status,
		PreviousState: previous,
		OccurredAt:    now,
	}, order)
}

var transitionEventTypes = map[OrderStatus]string{
	domain.OrderStatusProcessing: orderEventConfirmed,
	domain.OrderStatusShipped:    orderEventShipped,
	domain.OrderStatusDelivered:  orderEventDelivered,
	domain.OrderStatusCancelled:  orderEventCancelled,
	domain.OrderStatusRefunded:   orderEventRefunded,
}

func (s *orderService) publishEvent(ctx context.Context, event OrderEventMessage, order Order) {
	if s.events == nil {
		return
	}

	event.EventID = eventIDPrefix + s.newID()
	event.CustomerID = order.Customer.ID
	event.CustomerEmail = order.Customer.Email

	if _, err := s.events.PublishOrderEvent(ctx, event); err != nil {
		s.logger(ctx, "order.event.publish.failed", map[string]any{
			"type":   event.Type,
			"order":  event.OrderID,
			"status": string(event.Status),
			"error":  err.Error(),
		})
	}
}

func (s *orderService) mapRepositoryError(err error) error {
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
		switch invErr.Code {
		case repositories.InventoryErrorProductNotFound:
			return fmt.Errorf("%w: %v", ErrProductNotFound, err)
		case repositories.InventoryErrorInsufficientStock:
			return &InsufficientStockError{
				ProductID: invErr.ProductID,
				Available: invErr.Available,
				Requested: invErr.Requested,
			}
		case repositories.InventoryErrorInvalidQuantity:
			return fmt.Errorf("%w: %v", ErrOrderInvalidInput, err)
		}
	}

	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrOrderNotFound, err)
		case repoErr.IsConflict():
			return fmt.Errorf("%w: %v", ErrOrderConflict, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("order: repository unavailable: %w", err)
		}
	}

	return err
}

func (s *orderService) generateOrderNumber(ctx context.Context, now time.Time) (string, error) {
	seq, err := s.counters.Next(ctx, "orders", 1)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%04d-%06d", s.numberPrefix, now.Year(), seq), nil
}

func (s *orderService) now() time.Time {
	return s.clock()
}

func (s *orderService) nextOrderID() string {
	return orderIDPrefix + s.newID()
}

func dedupeIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func cloneAddress(addr *Address) *Address {
	if addr == nil {
		return nil
	}
	cloned := *addr
	return &cloned
}

func cloneMap(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	return maps.Clone(src)
}
