package ports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/99minutos/order-platform/internal/core/domain"
)

// ListOrdersFilter carries the query parameters for listing one owner's orders.
// UserID is always set by the service layer.
type ListOrdersFilter struct {
	UserID    string
	Status    domain.OrderStatus // optional
	SortBy    string             // created_at, updated_at or total_amount
	Ascending bool
	Page      int // 1-based
	Limit     int
}

// StatusChange describes a compare-and-set status transition.
type StatusChange struct {
	From    domain.OrderStatus
	To      domain.OrderStatus
	At      time.Time
	ActorID string
}

// OrderRepository defines persistence operations for orders.
type OrderRepository interface {
	Create(ctx context.Context, o *domain.Order) error
	FindByID(ctx context.Context, id string) (*domain.Order, error)
	List(ctx context.Context, filter ListOrdersFilter) ([]*domain.Order, int64, error)
	// UpdateStatus atomically moves the order from change.From to change.To,
	// refreshes updated_at and appends a history entry. It returns
	// domain.ErrConcurrentUpdate when the stored status is no longer change.From
	// and domain.ErrOrderNotFound when the order does not exist.
	UpdateStatus(ctx context.Context, id string, change StatusChange) (*domain.Order, error)
	// ReplaceItems atomically swaps items and total while the order is still
	// CREATED, with the same error contract as UpdateStatus.
	ReplaceItems(ctx context.Context, id string, items []domain.LineItem, total decimal.Decimal, at time.Time) (*domain.Order, error)
}

// OrderEventRepository persists the order audit trail.
type OrderEventRepository interface {
	InsertEvent(ctx context.Context, event domain.OrderEvent) error
}

// OrderEventPublisher hands audit events off the request path.
type OrderEventPublisher interface {
	Publish(event domain.OrderEvent)
}

// IdempotencyStore remembers which order an Idempotency-Key produced.
type IdempotencyStore interface {
	// Lookup returns the order id recorded for (ownerID, key), if any.
	Lookup(ctx context.Context, ownerID, key string) (string, bool, error)
	// Remember records orderID for (ownerID, key) unless one is already recorded.
	Remember(ctx context.Context, ownerID, key, orderID string) error
}
