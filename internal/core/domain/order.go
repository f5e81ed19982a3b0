package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus represents the lifecycle state of an order.
type OrderStatus string

const (
	StatusCreated    OrderStatus = "CREATED"
	StatusInProgress OrderStatus = "IN_PROGRESS"
	StatusCompleted  OrderStatus = "COMPLETED"
	StatusCancelled  OrderStatus = "CANCELLED"
)

// AllStatuses lists every status in lifecycle order.
var AllStatuses = []OrderStatus{StatusCreated, StatusInProgress, StatusCompleted, StatusCancelled}

// validTransitions defines the allowed state machine transitions. COMPLETED
// and CANCELLED are terminal.
var validTransitions = map[OrderStatus][]OrderStatus{
	StatusCreated:    {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusCancelled},
}

// IsValid reports whether s is a known status.
func (s OrderStatus) IsValid() bool {
	switch s {
	case StatusCreated, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no transition can leave s.
func (s OrderStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransitionTo reports whether a transition from current status to next is valid.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ParseOrderStatus converts user input into an OrderStatus.
func ParseOrderStatus(raw string) (OrderStatus, error) {
	s := OrderStatus(strings.ToUpper(strings.TrimSpace(raw)))
	if !s.IsValid() {
		return "", fmt.Errorf("%w: unknown status %q", ErrInvalidInput, raw)
	}
	return s, nil
}

// LineItem is a single product line of an order.
type LineItem struct {
	Name        string          `json:"name"`
	Quantity    int             `json:"amount"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
}

// Subtotal returns quantity × unit price.
func (li LineItem) Subtotal() decimal.Decimal {
	return li.Price.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// StatusHistoryEntry records a single status change on an order.
type StatusHistoryEntry struct {
	Status    OrderStatus `json:"status"`
	Timestamp time.Time   `json:"timestamp"`
	ActorID   string      `json:"actor_id,omitempty"`
}

// Order is the aggregate root of the orders service.
type Order struct {
	ID             string               `json:"id"`
	UserID         string               `json:"user_id"`
	Items          []LineItem           `json:"items"`
	Status         OrderStatus          `json:"status"`
	TotalAmount    decimal.Decimal      `json:"total_amount"`
	StatusHistory  []StatusHistoryEntry `json:"status_history"`
	IdempotencyKey string               `json:"-"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

// NewOrder builds a CREATED order owned by ownerID. The total is derived from
// items; callers never supply it.
func NewOrder(id, ownerID string, items []LineItem, now time.Time) (*Order, error) {
	if err := ValidateItems(items); err != nil {
		return nil, err
	}
	o := &Order{
		ID:        id,
		UserID:    ownerID,
		Items:     append([]LineItem(nil), items...),
		Status:    StatusCreated,
		CreatedAt: now,
		UpdatedAt: now,
		StatusHistory: []StatusHistoryEntry{
			{Status: StatusCreated, Timestamp: now, ActorID: ownerID},
		},
	}
	o.TotalAmount = ComputeTotal(o.Items)
	return o, nil
}

// ReplaceItems swaps the line items and recomputes the total. Items can only
// change while the order has not started.
func (o *Order) ReplaceItems(items []LineItem, now time.Time) error {
	if o.Status != StatusCreated {
		return fmt.Errorf("%w: items are frozen once the order is %s", ErrInvalidTransition, o.Status)
	}
	if err := ValidateItems(items); err != nil {
		return err
	}
	o.Items = append([]LineItem(nil), items...)
	o.TotalAmount = ComputeTotal(o.Items)
	o.UpdatedAt = now
	return nil
}

// ComputeTotal sums quantity × price over items.
func ComputeTotal(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Subtotal())
	}
	return total
}

// ValidateItems enforces the line item invariants. Errors wrap ErrInvalidInput.
func ValidateItems(items []LineItem) error {
	if len(items) == 0 {
		return fmt.Errorf("%w: order must contain at least one item", ErrInvalidInput)
	}
	for i, it := range items {
		switch {
		case strings.TrimSpace(it.Name) == "":
			return fmt.Errorf("%w: items[%d]: name is required", ErrInvalidInput, i)
		case it.Quantity < 1:
			return fmt.Errorf("%w: items[%d]: amount must be at least 1", ErrInvalidInput, i)
		case it.Price.IsNegative():
			return fmt.Errorf("%w: items[%d]: price must not be negative", ErrInvalidInput, i)
		case !it.Price.Equal(it.Price.Round(2)):
			return fmt.Errorf("%w: items[%d]: price must have at most 2 decimal places", ErrInvalidInput, i)
		}
	}
	return nil
}
