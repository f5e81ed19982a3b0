package ports

import (
	"context"

	"github.com/99minutos/order-platform/internal/core/domain"
)

// CreateOrderInput carries the data needed to create an order.
type CreateOrderInput struct {
	Items []domain.LineItem
	// IdempotencyKey is optional; when set, a replay returns the order created first.
	IdempotencyKey string
}

// ListOrdersInput carries the parameters of the "my orders" endpoint.
type ListOrdersInput struct {
	Status    string
	SortBy    string
	SortOrder string
	Page      int
	PageSize  int
}

// OrderPage is one page of orders.
type OrderPage struct {
	Items    []*domain.Order
	Total    int64
	Page     int
	PageSize int
	Pages    int
}

// OrderService is the order lifecycle engine.
type OrderService interface {
	Create(ctx context.Context, p domain.Principal, in CreateOrderInput) (*domain.Order, error)
	Get(ctx context.Context, p domain.Principal, id string) (*domain.Order, error)
	ListMine(ctx context.Context, p domain.Principal, in ListOrdersInput) (*OrderPage, error)
	UpdateStatus(ctx context.Context, p domain.Principal, id string, to domain.OrderStatus) (*domain.Order, error)
	Cancel(ctx context.Context, p domain.Principal, id string) (*domain.Order, error)
	ReplaceItems(ctx context.Context, p domain.Principal, id string, items []domain.LineItem) (*domain.Order, error)
}

// OrderAuditService persists order events taken off the dispatcher queue.
type OrderAuditService interface {
	Record(ctx context.Context, event domain.OrderEvent) error
}
