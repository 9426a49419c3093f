package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Lifecycle rule errors. Callers match them with errors.Is; the wrapped
// messages carry the offending states so operators can see what was rejected.
var (
	// ErrUnknownStatus indicates a status value outside the lifecycle enum.
	ErrUnknownStatus = errors.New("order: unknown status")
	// ErrInvalidTransition indicates the requested source/target pair is not permitted.
	ErrInvalidTransition = errors.New("order: invalid status transition")
	// ErrMissingFulfillmentDetails indicates a shipped transition without tracking details.
	ErrMissingFulfillmentDetails = errors.New("order: tracking number and carrier required")
)

// statusTransitions is the single source of truth for the order lifecycle.
// Terminal states map to empty target sets.
var statusTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered},
	OrderStatusDelivered:  {OrderStatusRefunded},
	OrderStatusCancelled:  {},
	OrderStatusRefunded:   {},
}

// ValidStatus reports whether the value is a member of the lifecycle enum.
func ValidStatus(status OrderStatus) bool {
	_, ok := statusTransitions[status]
	return ok
}

// CanTransition reports whether the lifecycle permits moving from one status
// to another.
func CanTransition(from, to OrderStatus) bool {
	for _, candidate := range statusTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// TransitionTargets returns the statuses reachable from the given status.
func TransitionTargets(from OrderStatus) []OrderStatus {
	targets := statusTransitions[from]
	out := make([]OrderStatus, len(targets))
	copy(out, targets)
	return out
}

// TerminalStatus reports whether no further transitions are possible.
func TerminalStatus(status OrderStatus) bool {
	return ValidStatus(status) && len(statusTransitions[status]) == 0
}

// TransitionEffects describes the side effects a committed transition owes
// beyond the order document itself.
type TransitionEffects struct {
	// RestoreInventory is set when the order's recorded item quantities must
	// be returned to stock in the same atomic unit as the status write.
	RestoreInventory bool
}

// ApplyTransition validates and applies a single status transition to the
// order in place: status, the per-status timestamp, and one status-history
// entry. It returns the side effects the caller must commit atomically with
// the order write. The order is left untouched on any error.
func ApplyTransition(order *Order, target OrderStatus, actor, note string, fulfillment *FulfillmentUpdate, now time.Time) (TransitionEffects, error) {
	var effects TransitionEffects
	if !ValidStatus(target) {
		return effects, fmt.Errorf("%w: %q", ErrUnknownStatus, target)
	}
	if !CanTransition(order.Status, target) {
		return effects, fmt.Errorf("%w: from %s to %s", ErrInvalidTransition, order.Status, target)
	}

	switch target {
	case OrderStatusProcessing:
		order.ProcessingAt = &now
	case OrderStatusShipped:
		if fulfillment == nil || strings.TrimSpace(fulfillment.TrackingNumber) == "" || strings.TrimSpace(fulfillment.Carrier) == "" {
			return effects, ErrMissingFulfillmentDetails
		}
		order.ShippedAt = &now
		order.FulfillmentHistory = append(order.FulfillmentHistory, FulfillmentEvent{
			TrackingNumber: strings.TrimSpace(fulfillment.TrackingNumber),
			Carrier:        strings.TrimSpace(fulfillment.Carrier),
			At:             now,
			Actor:          actor,
		})
	case OrderStatusDelivered:
		order.DeliveredAt = &now
	case OrderStatusCancelled:
		order.CancelledAt = &now
		if !order.InventoryRestored {
			effects.RestoreInventory = true
			order.InventoryRestored = true
		}
	case OrderStatusRefunded:
		order.RefundedAt = &now
		order.PaymentStatus = PaymentStatusRefunded
	}

	order.Status = target
	order.StatusHistory = append(order.StatusHistory, StatusChange{
		Status: target,
		At:     now,
		Actor:  actor,
		Note:   note,
	})
	order.UpdatedAt = now
	return effects, nil
}
