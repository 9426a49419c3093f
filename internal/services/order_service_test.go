package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/storeops/api/internal/domain"
	"github.com/storeops/api/internal/repositories"
)

type stubOrderRepo struct {
	createFn     func(context.Context, repositories.OrderCreateRequest) (domain.Order, error)
	applyFn      func(context.Context, repositories.OrderTransitionRequest) (domain.Order, error)
	softDeleteFn func(context.Context, repositories.OrderDeleteRequest) (domain.Order, error)
	findFn       func(context.Context, string) (domain.Order, error)
	findManyFn   func(context.Context, []string) (map[string]domain.Order, error)
	listFn       func(context.Context, repositories.OrderListFilter) (domain.CursorPage[domain.Order], error)
}

func (s *stubOrderRepo) Create(ctx context.Context, req repositories.OrderCreateRequest) (domain.Order, error) {
	if s.createFn != nil {
		return s.createFn(ctx, req)
	}
	return req.Draft, nil
}

func (s *stubOrderRepo) ApplyTransition(ctx context.Context, req repositories.OrderTransitionRequest) (domain.Order, error) {
	if s.applyFn != nil {
		return s.applyFn(ctx, req)
	}
	return domain.Order{}, errors.New("not implemented")
}

func (s *stubOrderRepo) SoftDelete(ctx context.Context, req repositories.OrderDeleteRequest) (domain.Order, error) {
	if s.softDeleteFn != nil {
		return s.softDeleteFn(ctx, req)
	}
	return domain.Order{}, errors.New("not implemented")
}

func (s *stubOrderRepo) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	if s.findFn != nil {
		return s.findFn(ctx, orderID)
	}
	return domain.Order{}, errors.New("not implemented")
}

func (s *stubOrderRepo) FindByIDs(ctx context.Context, orderIDs []string) (map[string]domain.Order, error) {
	if s.findManyFn != nil {
		return s.findManyFn(ctx, orderIDs)
	}
	return nil, errors.New("not implemented")
}

func (s *stubOrderRepo) List(ctx context.Context, filter repositories.OrderListFilter) (domain.CursorPage[domain.Order], error) {
	if s.listFn != nil {
		return s.listFn(ctx, filter)
	}
	return domain.CursorPage[domain.Order]{}, nil
}

type stubCounterRepo struct {
	nextFn func(context.Context, string, int64) (int64, error)
}

func (s *stubCounterRepo) Next(ctx context.Context, counterID string, step int64) (int64, error) {
	if s.nextFn != nil {
		return s.nextFn(ctx, counterID, step)
	}
	return 1, nil
}

func (s *stubCounterRepo) Configure(context.Context, string, repositories.CounterConfig) error {
	return nil
}

type captureOrderEvents struct {
	messages []OrderEventMessage
	failWith error
}

func (c *captureOrderEvents) PublishOrderEvent(_ context.Context, message OrderEventMessage) (string, error) {
	if c.failWith != nil {
		return "", c.failWith
	}
	c.messages = append(c.messages, message)
	return "msg-1", nil
}

func newTestOrderService(t *testing.T, deps OrderServiceDeps) OrderService {
	t.Helper()
	if deps.Orders == nil {
		deps.Orders = &stubOrderRepo{}
	}
	if deps.Counters == nil {
		deps.Counters = &stubCounterRepo{}
	}
	if deps.Clock == nil {
		deps.Clock = func() time.Time {
			return time.Date(2025, 5, 1, 9, 30, 0, 0, time.UTC)
		}
	}
	if deps.IDGenerator == nil {
		deps.IDGenerator = func() string { return "000TEST" }
	}
	svc, err := NewOrderService(deps)
	if err != nil {
		t.Fatalf("new order service: %v", err)
	}
	return svc
}

func TestOrderServiceCreate(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 5, 1, 9, 30, 0, 0, time.UTC)
	events := &captureOrderEvents{}

	var captured repositories.OrderCreateRequest
	orderRepo := &stubOrderRepo{
		createFn: func(_ context.Context, req repositories.OrderCreateRequest) (domain.Order, error) {
			captured = req
			created := req.Draft
			created.Items = []domain.OrderItem{
				{ProductID: "prd_chair", Name: "Chair", Quantity: 3, UnitPrice: 4500, LineTotal: 13500},
			}
			created.Totals = domain.OrderTotals{Subtotal: 13500, Shipping: 500, Tax: 1080, Total: 15080}
			created.Version = 1
			return created, nil
		},
	}

	counters := &stubCounterRepo{
		nextFn: func(_ context.Context, counterID string, step int64) (int64, error) {
			if counterID != "orders" {
				t.Fatalf("unexpected counter id %s", counterID)
			}
			if step != 1 {
				t.Fatalf("unexpected step %d", step)
			}
			return 42, nil
		},
	}

	svc := newTestOrderService(t, OrderServiceDeps{
		Orders:   orderRepo,
		Counters: counters,
		Events:   events,
		Clock:    func() time.Time { return now },
	})

	order, err := svc.Create(ctx, OrderCreateCommand{
		Customer: CustomerRef{ID: "cus_1", Name: "Ada", Email: "ada@example.com"},
		Items: []OrderItemInput{
			{ProductID: "prd_chair", Quantity: 2},
			{ProductID: "prd_chair", Quantity: 1},
		},
		PaymentMethod: "card",
		Actor:         "ada",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if order.ID != "ord_000TEST" {
		t.Fatalf("unexpected order id %s", order.ID)
	}
	if order.OrderNumber != "SO-2025-000042" {
		t.Fatalf("unexpected order number %s", order.OrderNumber)
	}
	if order.Status != domain.OrderStatusPending {
		t.Fatalf("expected status pending got %s", order.Status)
	}
	if len(captured.Lines) != 1 {
		t.Fatalf("expected duplicate lines merged, got %d", len(captured.Lines))
	}
	if captured.Lines[0].Quantity != 3 {
		t.Fatalf("expected merged quantity 3 got %d", captured.Lines[0].Quantity)
	}
	if got := captured.Draft.StatusHistory; len(got) != 1 || got[0].Status != domain.OrderStatusPending {
		t.Fatalf("expected initial pending history entry, got %+v", got)
	}
	if len(events.messages) != 1 {
		t.Fatalf("expected 1 event got %d", len(events.messages))
	}
	event := events.messages[0]
	if event.Type != "order.created" {
		t.Fatalf("unexpected event type %s", event.Type)
	}
	if event.EventID != "evt_000TEST" {
		t.Fatalf("unexpected event id %s", event.EventID)
	}
	if event.CustomerEmail != "ada@example.com" {
		t.Fatalf("expected customer email on event payload")
	}
}

func TestOrderServiceCreateMarkPaidStartsProcessing(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 5, 1, 9, 30, 0, 0, time.UTC)

	var captured repositories.OrderCreateRequest
	svc := newTestOrderService(t, OrderServiceDeps{
		Orders: &stubOrderRepo{
			createFn: func(_ context.Context, req repositories.OrderCreateRequest) (domain.Order, error) {
				captured = req
				return req.Draft, nil
			},
		},
		Clock: func() time.Time { return now },
	})

	order, err := svc.Create(ctx, OrderCreateCommand{
		Customer: CustomerRef{ID: "cus_1"},
		Items:    []OrderItemInput{{ProductID: "prd_chair", Quantity: 1}},
		MarkPaid: true,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if order.Status != domain.OrderStatusProcessing {
		t.Fatalf("expected status processing got %s", order.Status)
	}
	if order.PaymentStatus != domain.PaymentStatusPaid {
		t.Fatalf("expected payment status paid got %s", order.PaymentStatus)
	}
	if order.ProcessingAt == nil || !order.ProcessingAt.Equal(now) {
		t.Fatalf("expected processing timestamp %v got %v", now, order.ProcessingAt)
	}
	if got := captured.Draft.StatusHistory; len(got) != 1 || got[0].Status != domain.OrderStatusProcessing {
		t.Fatalf("expected initial processing history entry, got %+v", got)
	}
}

func TestOrderServiceCreateValidation(t *testing.T) {
	ctx := context.Background()
	repoCalled := false
	svc := newTestOrderService(t, OrderServiceDeps{
		Orders: &stubOrderRepo{
			createFn: func(context.Context, repositories.OrderCreateRequest) (domain.Order, error) {
				repoCalled = true
				return domain.Order{}, nil
			},
		},
	})

	cases := []struct {
		name string
		cmd  OrderCreateCommand
	}{
		{"missing customer", OrderCreateCommand{Items: []OrderItemInput{{ProductID: "prd_1", Quantity: 1}}}},
		{"no items", OrderCreateCommand{Customer: CustomerRef{ID: "cus_1"}}},
		{"zero quantity", OrderCreateCommand{Customer: CustomerRef{ID: "cus_1"}, Items: []OrderItemInput{{ProductID: "prd_1"}}}},
		{"blank product", OrderCreateCommand{Customer: CustomerRef{ID: "cus_1"}, Items: []OrderItemInput{{ProductID: "  ", Quantity: 1}}}},
		{"negative discount", OrderCreateCommand{Customer: CustomerRef{ID: "cus_1"}, Items: []OrderItemInput{{ProductID: "prd_1", Quantity: 1}}, Discount: -1}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Create(ctx, tc.cmd); !errors.Is(err, ErrOrderInvalidInput) {
				t.Fatalf("expected invalid input error, got %v", err)
			}
		})
	}
	if repoCalled {
		t.Fatalf("repository must not be reached on invalid input")
	}
}

func TestOrderServiceCreateInsufficientStock(t *testing.T) {
	ctx := context.Background()
	svc := newTestOrderService(t, OrderServiceDeps{
		Orders: &stubOrderRepo{
			createFn: func(context.Context, repositories.OrderCreateRequest) (domain.Order, error) {
				return domain.Order{}, repositories.NewStockShortageError("prd_chair", 1, 3)
			},
		},
	})

	_, err := svc.Create(ctx, OrderCreateCommand{
		Customer: CustomerRef{ID: "cus_1"},
		Items:    []OrderItemInput{{ProductID: "prd_chair", Quantity: 3}},
	})
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock error, got %v", err)
	}

	var shortage *InsufficientStockError
	if !errors.As(err, &shortage) {
		t.Fatalf("expected typed shortage error, got %v", err)
	}
	if shortage.ProductID != "prd_chair" || shortage.Available != 1 || shortage.Requested != 3 {
		t.Fatalf("unexpected shortage details %+v", shortage)
	}
}

func TestOrderServiceApplyTransition(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	events := &captureOrderEvents{}

	orderRepo := &stubOrderRepo{
		applyFn: func(_ context.Context, req repositories.OrderTransitionRequest) (domain.Order, error) {
			if req.Target != domain.OrderStatusShipped {
				t.Fatalf("unexpected target %s", req.Target)
			}
			shippedAt := req.Now
			return domain.Order{
				ID:          req.OrderID,
				OrderNumber: "SO-2025-000007",
				Customer:    domain.CustomerRef{ID: "cus_1", Email: "ada@example.com"},
				Status:      domain.OrderStatusShipped,
				ShippedAt:   &shippedAt,
				StatusHistory: []domain.StatusChange{
					{Status: domain.OrderStatusPending},
					{Status: domain.OrderStatusProcessing},
					{Status: domain.OrderStatusShipped, At: req.Now},
				},
				Version: 3,
			}, nil
		},
	}

	svc := newTestOrderService(t, OrderServiceDeps{
		Orders: orderRepo,
		Events: events,
		Clock:  func() time.Time { return now },
	})

	order, err := svc.ApplyTransition(ctx, OrderTransitionCommand{
		OrderID:     "ord_1",
		Target:      domain.OrderStatusShipped,
		Actor:       "staff-1",
		Fulfillment: &FulfillmentUpdate{TrackingNumber: "TRK-1", Carrier: "ups"},
	})
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if order.Status != domain.OrderStatusShipped {
		t.Fatalf("expected shipped got %s", order.Status)
	}

	if len(events.messages) != 1 {
		t.Fatalf("expected shipped event, got %d events", len(events.messages))
	}
	event := events.messages[0]
	if event.Type != "order.shipped" {
		t.Fatalf("unexpected event type %s", event.Type)
	}
	if event.PreviousState != domain.OrderStatusProcessing {
		t.Fatalf("expected previous status processing got %s", event.PreviousState)
	}
}

func TestOrderServiceApplyTransitionErrors(t *testing.T) {
	ctx := context.Background()

	svc := newTestOrderService(t, OrderServiceDeps{
		Orders: &stubOrderRepo{
			applyFn: func(context.Context, repositories.OrderTransitionRequest) (domain.Order, error) {
				return domain.Order{}, domain.ErrInvalidTransition
			},
		},
	})

	if _, err := svc.ApplyTransition(ctx, OrderTransitionCommand{OrderID: "ord_1", Target: "paused"}); !errors.Is(err, ErrOrderInvalidInput) {
		t.Fatalf("expected invalid input for unknown status, got %v", err)
	}

	if _, err := svc.ApplyTransition(ctx, OrderTransitionCommand{OrderID: "ord_1", Target: domain.OrderStatusDelivered}); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition passthrough, got %v", err)
	}
}

func TestOrderServiceApplyTransitionConflict(t *testing.T) {
	ctx := context.Background()

	svc := newTestOrderService(t, OrderServiceDeps{
		Orders: &stubOrderRepo{
			applyFn: func(context.Context, repositories.OrderTransitionRequest) (domain.Order, error) {
				return domain.Order{}, testRepoError{conflict: true}
			},
		},
	})

	expected := domain.OrderStatusPending
	_, err := svc.ApplyTransition(ctx, OrderTransitionCommand{
		OrderID:        "ord_1",
		Target:         domain.OrderStatusProcessing,
		ExpectedStatus: &expected,
	})
	if !errors.Is(err, ErrOrderConflict) {
		t.Fatalf("expected conflict error, got %v", err)
	}
}

func TestOrderServiceBulkApplyTransitionMissingOrders(t *testing.T) {
	ctx := context.Background()
	applied := 0

	svc := newTestOrderService(t, OrderServiceDeps{
		Orders: &stubOrderRepo{
			findManyFn: func(_ context.Context, ids []string) (map[string]domain.Order, error) {
				return map[string]domain.Order{"ord_1": {ID: "ord_1"}}, nil
			},
			applyFn: func(context.Context, repositories.OrderTransitionRequest) (domain.Order, error) {
				applied++
				return domain.Order{}, nil
			},
		},
	})

	_, err := svc.BulkApplyTransition(ctx, BulkTransitionCommand{
		OrderIDs: []string{"ord_1", "ord_2", "ord_3"},
		Target:   domain.OrderStatusProcessing,
	})
	if !errors.Is(err, ErrOrdersNotFound) {
		t.Fatalf("expected orders-not-found error, got %v", err)
	}

	var missing *MissingOrdersError
	if !errors.As(err, &missing) {
		t.Fatalf("expected missing orders error, got %v", err)
	}
	if len(missing.OrderIDs) != 2 {
		t.Fatalf("expected 2 missing ids got %v", missing.OrderIDs)
	}
	if applied != 0 {
		t.Fatalf("no order may be modified when the batch is rejected")
	}
}

func TestOrderServiceBulkApplyTransitionPartialFailure(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 7, 1, 8, 0, 0, 0, time.UTC)
	events := &captureOrderEvents{}

	orders := map[string]domain.Order{
		"ord_1": {ID: "ord_1", Status: domain.OrderStatusPending},
		"ord_2": {ID: "ord_2", Status: domain.OrderStatusDelivered},
	}

	svc := newTestOrderService(t, OrderServiceDeps{
		Events: events,
		Clock:  func() time.Time { return now },
		Orders: &stubOrderRepo{
			findManyFn: func(_ context.Context, ids []string) (map[string]domain.Order, error) {
				return orders, nil
			},
			applyFn: func(_ context.Context, req repositories.OrderTransitionRequest) (domain.Order, error) {
				order := orders[req.OrderID]
				if !domain.CanTransition(order.Status, req.Target) {
					return domain.Order{}, domain.ErrInvalidTransition
				}
				order.Status = req.Target
				order.StatusHistory = append(order.StatusHistory,
					domain.StatusChange{Status: domain.OrderStatusPending},
					domain.StatusChange{Status: req.Target, At: req.Now},
				)
				return order, nil
			},
		},
	})

	// The duplicated id must count once.
	result, err := svc.BulkApplyTransition(ctx, BulkTransitionCommand{
		OrderIDs: []string{"ord_1", "ord_2", "ord_1"},
		Target:   domain.OrderStatusProcessing,
	})
	if err != nil {
		t.Fatalf("bulk transition: %v", err)
	}

	if result.ModifiedCount != 1 {
		t.Fatalf("expected 1 modified order got %d", result.ModifiedCount)
	}
	if len(result.Outcomes) != 2 {
		t.Fatalf("expected 2 outcomes got %d", len(result.Outcomes))
	}
	if !result.Outcomes[0].Applied || result.Outcomes[0].OrderID != "ord_1" {
		t.Fatalf("expected ord_1 applied, got %+v", result.Outcomes[0])
	}
	if result.Outcomes[1].Applied {
		t.Fatalf("expected ord_2 skipped, got %+v", result.Outcomes[1])
	}
	if result.Outcomes[1].Reason == "" {
		t.Fatalf("expected skip reason for ord_2")
	}
	if len(events.messages) != 1 {
		t.Fatalf("expected events only for applied orders, got %d", len(events.messages))
	}
}

func TestOrderServiceDelete(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	events := &captureOrderEvents{}

	svc := newTestOrderService(t, OrderServiceDeps{
		Events: events,
		Clock:  func() time.Time { return now },
		Orders: &stubOrderRepo{
			findFn: func(_ context.Context, id string) (domain.Order, error) {
				return domain.Order{ID: id, Status: domain.OrderStatusPending}, nil
			},
			softDeleteFn: func(_ context.Context, req repositories.OrderDeleteRequest) (domain.Order, error) {
				deletedAt := req.Now
				return domain.Order{
					ID:        req.OrderID,
					Status:    domain.OrderStatusCancelled,
					Deleted:   true,
					DeletedAt: &deletedAt,
				}, nil
			},
		},
	})

	order, err := svc.Delete(ctx, OrderDeleteCommand{OrderID: "ord_1", Actor: "staff-1"})
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !order.Deleted {
		t.Fatalf("expected order marked deleted")
	}
	if order.Status != domain.OrderStatusCancelled {
		t.Fatalf("expected cancelled status got %s", order.Status)
	}
	if len(events.messages) != 1 || events.messages[0].Type != "order.cancelled" {
		t.Fatalf("expected cancellation event, got %+v", events.messages)
	}
}

func TestOrderServiceDeleteAlreadyCancelled(t *testing.T) {
	ctx := context.Background()
	events := &captureOrderEvents{}

	svc := newTestOrderService(t, OrderServiceDeps{
		Events: events,
		Orders: &stubOrderRepo{
			findFn: func(_ context.Context, id string) (domain.Order, error) {
				return domain.Order{ID: id, Status: domain.OrderStatusCancelled}, nil
			},
			softDeleteFn: func(_ context.Context, req repositories.OrderDeleteRequest) (domain.Order, error) {
				return domain.Order{ID: req.OrderID, Status: domain.OrderStatusCancelled, Deleted: true}, nil
			},
		},
	})

	if _, err := svc.Delete(ctx, OrderDeleteCommand{OrderID: "ord_1"}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(events.messages) != 0 {
		t.Fatalf("expected no event for an already cancelled order, got %d", len(events.messages))
	}
}

func TestOrderServicePublishFailureDoesNotFailFlow(t *testing.T) {
	ctx := context.Background()
	var logged []string

	svc := newTestOrderService(t, OrderServiceDeps{
		Events: &captureOrderEvents{failWith: errors.New("broker down")},
		Logger: func(_ context.Context, event string, _ map[string]any) {
			logged = append(logged, event)
		},
		Orders: &stubOrderRepo{
			createFn: func(_ context.Context, req repositories.OrderCreateRequest) (domain.Order, error) {
				return req.Draft, nil
			},
		},
	})

	if _, err := svc.Create(ctx, OrderCreateCommand{
		Customer: CustomerRef{ID: "cus_1"},
		Items:    []OrderItemInput{{ProductID: "prd_1", Quantity: 1}},
	}); err != nil {
		t.Fatalf("create must not fail on publish errors: %v", err)
	}
	if len(logged) != 1 || logged[0] != "order.event.publish.failed" {
		t.Fatalf("expected publish failure logged, got %v", logged)
	}
}

type testRepoError struct {
	notFound    bool
	conflict    bool
	unavailable bool
}

func (e testRepoError) Error() string       { return "repository error" }
func (e testRepoError) IsNotFound() bool    { return e.notFound }
func (e testRepoError) IsConflict() bool    { return e.conflict }
func (e testRepoError) IsUnavailable() bool { return e.unavailable }
