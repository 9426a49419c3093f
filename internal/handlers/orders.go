package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/storeops/api/internal/domain"
	"github.com/storeops/api/internal/platform/httpx"
	"github.com/storeops/api/internal/services"
)

const maxOrderRequestBody = 256 * 1024

// OrderHandlers exposes the admin order lifecycle endpoints.
type OrderHandlers struct {
	orders services.OrderService
}

// NewOrderHandlers constructs order handlers.
func NewOrderHandlers(orders services.OrderService) *OrderHandlers {
	return &OrderHandlers{orders: orders}
}

// Routes wires the /orders endpoints onto the provided router.
func (h *OrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/", h.createOrder)
	r.Get("/", h.listOrders)
	r.Post("/transitions", h.bulkTransition)
	r.Get("/{orderID}", h.getOrder)
	r.Delete("/{orderID}", h.deleteOrder)
	r.Post("/{orderID}/transitions", h.applyTransition)
}

func (h *OrderHandlers) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	var req createOrderRequest
	if !decodeOrderBody(ctx, w, r, &req) {
		return
	}

	cmd := services.OrderCreateCommand{
		Customer: services.CustomerRef{
			ID:    strings.TrimSpace(req.Customer.ID),
			Name:  strings.TrimSpace(req.Customer.Name),
			Email: strings.TrimSpace(req.Customer.Email),
		},
		ShippingAddress: req.ShippingAddress.toDomain(),
		BillingAddress:  req.BillingAddress.toDomain(),
		PaymentMethod:   strings.TrimSpace(req.PaymentMethod),
		MarkPaid:        req.MarkPaid,
		Discount:        req.Discount,
		Actor:           strings.TrimSpace(req.Actor),
		Note:            strings.TrimSpace(req.Note),
		Metadata:        req.Metadata,
	}
	for _, item := range req.Items {
		cmd.Items = append(cmd.Items, services.OrderItemInput{
			ProductID: strings.TrimSpace(item.ProductID),
			Quantity:  item.Quantity,
		})
	}

	order, err := h.orders.Create(ctx, cmd)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, orderResponse{Order: buildOrderPayload(order)})
}

func (h *OrderHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	order, err := h.orders.Get(ctx, chi.URLParam(r, "orderID"))
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

func (h *OrderHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	query := services.OrderListQuery{
		CustomerID:     strings.TrimSpace(r.URL.Query().Get("customerId")),
		IncludeDeleted: queryBool(r, "includeDeleted"),
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		for _, value := range strings.Split(raw, ",") {
			value = strings.TrimSpace(value)
			if value != "" {
				query.Statuses = append(query.Statuses, domain.OrderStatus(value))
			}
		}
	}

	var err error
	if query.PlacedFrom, err = queryTime(r, "placedFrom"); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}
	if query.PlacedTo, err = queryTime(r, "placedTo"); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}
	if query.Pagination, err = paginationFromRequest(r); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	page, err := h.orders.List(ctx, query)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	payload := orderListResponse{
		Orders:        make([]orderPayload, 0, len(page.Items)),
		NextPageToken: page.NextPageToken,
	}
	for _, order := range page.Items {
		payload.Orders = append(payload.Orders, buildOrderPayload(order))
	}
	writeJSONResponse(w, http.StatusOK, payload)
}

func (h *OrderHandlers) applyTransition(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	var req transitionRequest
	if !decodeOrderBody(ctx, w, r, &req) {
		return
	}

	cmd := services.OrderTransitionCommand{
		OrderID:     chi.URLParam(r, "orderID"),
		Target:      domain.OrderStatus(strings.TrimSpace(req.Target)),
		Actor:       strings.TrimSpace(req.Actor),
		Note:        strings.TrimSpace(req.Note),
		Fulfillment: req.Fulfillment.toDomain(),
	}
	if expected := strings.TrimSpace(req.ExpectedStatus); expected != "" {
		status := domain.OrderStatus(expected)
		cmd.ExpectedStatus = &status
	}
	if req.ExpectedVersion != nil {
		cmd.ExpectedVersion = req.ExpectedVersion
	}

	order, err := h.orders.ApplyTransition(ctx, cmd)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

func (h *OrderHandlers) bulkTransition(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	var req bulkTransitionRequest
	if !decodeOrderBody(ctx, w, r, &req) {
		return
	}

	result, err := h.orders.BulkApplyTransition(ctx, services.BulkTransitionCommand{
		OrderIDs:    req.OrderIDs,
		Target:      domain.OrderStatus(strings.TrimSpace(req.Target)),
		Actor:       strings.TrimSpace(req.Actor),
		Note:        strings.TrimSpace(req.Note),
		Fulfillment: req.Fulfillment.toDomain(),
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	payload := bulkTransitionResponse{
		ModifiedCount: result.ModifiedCount,
		Outcomes:      make([]bulkOutcomePayload, 0, len(result.Outcomes)),
	}
	for _, outcome := range result.Outcomes {
		entry := bulkOutcomePayload{
			OrderID: outcome.OrderID,
			Applied: outcome.Applied,
			Reason:  outcome.Reason,
		}
		if outcome.Applied {
			order := buildOrderPayload(outcome.Order)
			entry.Order = &order
		}
		payload.Outcomes = append(payload.Outcomes, entry)
	}
	writeJSONResponse(w, http.StatusOK, payload)
}

func (h *OrderHandlers) deleteOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	order, err := h.orders.Delete(ctx, services.OrderDeleteCommand{
		OrderID: chi.URLParam(r, "orderID"),
		Actor:   strings.TrimSpace(r.URL.Query().Get("actor")),
		Note:    strings.TrimSpace(r.URL.Query().Get("note")),
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

func decodeOrderBody(ctx context.Context, w http.ResponseWriter, r *http.Request, target any) bool {
	body, err := readLimitedBody(r, maxOrderRequestBody)
	if err != nil {
		switch {
		case errors.Is(err, errBodyTooLarge):
			httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "request body exceeds allowed size", http.StatusRequestEntityTooLarge))
		default:
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		}
		return false
	}
	if err := json.Unmarshal(body, target); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", fmt.Sprintf("invalid json payload: %v", err), http.StatusBadRequest))
		return false
	}
	return true
}

func writeOrderError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}

	var missing *services.MissingOrdersError
	if errors.As(err, &missing) {
		httpx.WriteError(ctx, w, httpx.NewError("orders_not_found", "one or more orders do not exist", http.StatusNotFound).
			WithDetails(map[string]any{"missingOrderIds": missing.OrderIDs}))
		return
	}

	var shortage *services.InsufficientStockError
	if errors.As(err, &shortage) {
		httpx.WriteError(ctx, w, httpx.NewError("insufficient_stock", shortage.Error(), http.StatusConflict).
			WithDetails(map[string]any{
				"productId": shortage.ProductID,
				"available": shortage.Available,
				"requested": shortage.Requested,
			}))
		return
	}

	switch {
	case errors.Is(err, services.ErrOrderInvalidInput),
		errors.Is(err, domain.ErrUnknownStatus),
		errors.Is(err, domain.ErrMissingFulfillmentDetails):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, domain.ErrInvalidTransition):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_transition", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrOrderNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("order_not_found", "order not found", http.StatusNotFound))
	case errors.Is(err, services.ErrProductNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("product_not_found", err.Error(), http.StatusNotFound))
	case errors.Is(err, services.ErrOrderConflict):
		httpx.WriteError(ctx, w, httpx.NewError("order_conflict", "order has been modified; refresh and retry", http.StatusConflict))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "order operation failed", http.StatusInternalServerError))
	}
}

// Request/response payloads --------------------------------------------------

type createOrderRequest struct {
	Customer        customerPayload        `json:"customer"`
	Items           []orderItemInput       `json:"items"`
	ShippingAddress *addressPayload        `json:"shippingAddress"`
	BillingAddress  *addressPayload        `json:"billingAddress"`
	PaymentMethod   string                 `json:"paymentMethod"`
	MarkPaid        bool                   `json:"markPaid"`
	Discount        int64                  `json:"discount"`
	Actor           string                 `json:"actor"`
	Note            string                 `json:"note"`
	Metadata        map[string]any         `json:"metadata"`
}

type orderItemInput struct {
	ProductID string `json:"productId"`
	Quantity  int64  `json:"quantity"`
}

type transitionRequest struct {
	Target          string              `json:"target"`
	Actor           string              `json:"actor"`
	Note            string              `json:"note"`
	Fulfillment     *fulfillmentPayload `json:"fulfillment"`
	ExpectedStatus  string              `json:"expectedStatus"`
	ExpectedVersion *int64              `json:"expectedVersion"`
}

type bulkTransitionRequest struct {
	OrderIDs    []string            `json:"orderIds"`
	Target      string              `json:"target"`
	Actor       string              `json:"actor"`
	Note        string              `json:"note"`
	Fulfillment *fulfillmentPayload `json:"fulfillment"`
}

type fulfillmentPayload struct {
	TrackingNumber string `json:"trackingNumber"`
	Carrier        string `json:"carrier"`
}

func (p *fulfillmentPayload) toDomain() *domain.FulfillmentUpdate {
	if p == nil {
		return nil
	}
	return &domain.FulfillmentUpdate{
		TrackingNumber: strings.TrimSpace(p.TrackingNumber),
		Carrier:        strings.TrimSpace(p.Carrier),
	}
}

type addressPayload struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	Region     string `json:"region,omitempty"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

func (p *addressPayload) toDomain() *domain.Address {
	if p == nil {
		return nil
	}
	return &domain.Address{
		Line1:      strings.TrimSpace(p.Line1),
		Line2:      strings.TrimSpace(p.Line2),
		City:       strings.TrimSpace(p.City),
		Region:     strings.TrimSpace(p.Region),
		PostalCode: strings.TrimSpace(p.PostalCode),
		Country:    strings.TrimSpace(p.Country),
	}
}

func newAddressPayload(addr *domain.Address) *addressPayload {
	if addr == nil {
		return nil
	}
	return &addressPayload{
		Line1:      addr.Line1,
		Line2:      addr.Line2,
		City:       addr.City,
		Region:     addr.Region,
		PostalCode: addr.PostalCode,
		Country:    addr.Country,
	}
}

type customerPayload struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

type orderResponse struct {
	Order orderPayload `json:"order"`
}

type orderListResponse struct {
	Orders        []orderPayload `json:"orders"`
	NextPageToken string         `json:"nextPageToken,omitempty"`
}

type bulkTransitionResponse struct {
	ModifiedCount int                  `json:"modifiedCount"`
	Outcomes      []bulkOutcomePayload `json:"outcomes"`
}

type bulkOutcomePayload struct {
	OrderID string        `json:"orderId"`
	Applied bool          `json:"applied"`
	Reason  string        `json:"reason,omitempty"`
	Order   *orderPayload `json:"order,omitempty"`
}

type orderPayload struct {
	ID                 string                `json:"id"`
	OrderNumber        string                `json:"orderNumber"`
	Customer           customerPayload       `json:"customer"`
	Items              []orderItemPayload    `json:"items"`
	Currency           string                `json:"currency"`
	Totals             orderTotalsPayload    `json:"totals"`
	Status             string                `json:"status"`
	PaymentStatus      string                `json:"paymentStatus"`
	PaymentMethod      string                `json:"paymentMethod,omitempty"`
	ShippingAddress    *addressPayload       `json:"shippingAddress,omitempty"`
	BillingAddress     *addressPayload       `json:"billingAddress,omitempty"`
	StatusHistory      []statusChangePayload `json:"statusHistory"`
	FulfillmentHistory []fulfillmentEvent    `json:"fulfillmentHistory,omitempty"`
	PlacedAt           time.Time             `json:"placedAt"`
	ProcessingAt       *time.Time            `json:"processingAt,omitempty"`
	ShippedAt          *time.Time            `json:"shippedAt,omitempty"`
	DeliveredAt        *time.Time            `json:"deliveredAt,omitempty"`
	CancelledAt        *time.Time            `json:"cancelledAt,omitempty"`
	RefundedAt         *time.Time            `json:"refundedAt,omitempty"`
	Deleted            bool                  `json:"deleted,omitempty"`
	Version            int64                 `json:"version"`
	Metadata           map[string]any        `json:"metadata,omitempty"`
	CreatedAt          time.Time             `json:"createdAt"`
	UpdatedAt          time.Time             `json:"updatedAt"`
}

type orderItemPayload struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Quantity  int64  `json:"quantity"`
	UnitPrice int64  `json:"unitPrice"`
	LineTotal int64  `json:"lineTotal"`
}

type orderTotalsPayload struct {
	Subtotal int64 `json:"subtotal"`
	Discount int64 `json:"discount"`
	Shipping int64 `json:"shipping"`
	Tax      int64 `json:"tax"`
	Total    int64 `json:"total"`
}

type statusChangePayload struct {
	Status string    `json:"status"`
	At     time.Time `json:"at"`
	Actor  string    `json:"actor,omitempty"`
	Note   string    `json:"note,omitempty"`
}

type fulfillmentEvent struct {
	TrackingNumber string    `json:"trackingNumber"`
	Carrier        string    `json:"carrier"`
	At             time.Time `json:"at"`
	Actor          string    `json:"actor,omitempty"`
}

func buildOrderPayload(order services.Order) orderPayload {
	payload := orderPayload{
		ID:          order.ID,
		OrderNumber: order.OrderNumber,
		Customer: customerPayload{
			ID:    order.Customer.ID,
			Name:  order.Customer.Name,
			Email: order.Customer.Email,
		},
		Currency: order.Currency,
		Totals: orderTotalsPayload{
			Subtotal: order.Totals.Subtotal,
			Discount: order.Totals.Discount,
			Shipping: order.Totals.Shipping,
			Tax:      order.Totals.Tax,
			Total:    order.Totals.Total,
		},
		Status:          string(order.Status),
		PaymentStatus:   string(order.PaymentStatus),
		PaymentMethod:   order.PaymentMethod,
		ShippingAddress: newAddressPayload(order.ShippingAddress),
		BillingAddress:  newAddressPayload(order.BillingAddress),
		PlacedAt:        order.PlacedAt,
		ProcessingAt:    order.ProcessingAt,
		ShippedAt:       order.ShippedAt,
		DeliveredAt:     order.DeliveredAt,
		CancelledAt:     order.CancelledAt,
		RefundedAt:      order.RefundedAt,
		Deleted:         order.Deleted,
		Version:         order.Version,
		Metadata:        order.Metadata,
		CreatedAt:       order.CreatedAt,
		UpdatedAt:       order.UpdatedAt,
	}
	for _, item := range order.Items {
		payload.Items = append(payload.Items, orderItemPayload{
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			LineTotal: item.LineTotal,
		})
	}
	for _, change := range order.StatusHistory {
		payload.StatusHistory = append(payload.StatusHistory, statusChangePayload{
			Status: string(change.Status),
			At:     change.At,
			Actor:  change.Actor,
			Note:   change.Note,
		})
	}
	for _, event := range order.FulfillmentHistory {
		payload.FulfillmentHistory = append(payload.FulfillmentHistory, fulfillmentEvent{
			TrackingNumber: event.TrackingNumber,
			Carrier:        event.Carrier,
			At:             event.At,
			Actor:          event.Actor,
		})
	}
	return payload
}
