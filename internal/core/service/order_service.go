package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/99minutos/order-platform/internal/core/domain"
	"github.com/99minutos/order-platform/internal/core/ports"
)

// maxCASAttempts bounds the re-read loop after a lost compare-and-set. The
// lifecycle has at most two transitions, so three reads always observe a
// status the caller can no longer move from.
const maxCASAttempts = 3

var orderSortFields = map[string]bool{
	"created_at":   true,
	"updated_at":   true,
	"total_amount": true,
}

type orderService struct {
	repo   ports.OrderRepository
	events ports.OrderEventPublisher
	idem   ports.IdempotencyStore
	now    func() time.Time
	newID  func() string
	log    zerolog.Logger
}

// OrderServiceOption customises an order service.
type OrderServiceOption func(*orderService)

// WithEventPublisher sends an audit event for every create and transition.
func WithEventPublisher(p ports.OrderEventPublisher) OrderServiceOption {
	return func(s *orderService) { s.events = p }
}

// WithIdempotencyStore enables Idempotency-Key replay on Create.
func WithIdempotencyStore(store ports.IdempotencyStore) OrderServiceOption {
	return func(s *orderService) { s.idem = store }
}

// WithOrderClock overrides the time source.
func WithOrderClock(now func() time.Time) OrderServiceOption {
	return func(s *orderService) { s.now = now }
}

// WithIDGenerator overrides order id generation.
func WithIDGenerator(gen func() string) OrderServiceOption {
	return func(s *orderService) { s.newID = gen }
}

// NewOrderService returns an OrderService implementation.
func NewOrderService(repo ports.OrderRepository, log zerolog.Logger, opts ...OrderServiceOption) ports.OrderService {
	s := &orderService{
		repo:  repo,
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
		log:   log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates the items, computes the total and stores a CREATED order
// owned by the principal. With an idempotency key, a replay returns the order
// the key produced first.
func (s *orderService) Create(ctx context.Context, p domain.Principal, in ports.CreateOrderInput) (*domain.Order, error) {
	if p.UserID == "" {
		return nil, domain.ErrUnauthenticated
	}

	key := strings.TrimSpace(in.IdempotencyKey)
	if existing := s.replay(ctx, p.UserID, key); existing != nil {
		return existing, nil
	}

	order, err := domain.NewOrder(s.newID(), p.UserID, in.Items, s.now())
	if err != nil {
		return nil, err
	}
	order.IdempotencyKey = key

	if err := s.repo.Create(ctx, order); err != nil {
		s.log.Error().Err(err).Str("user_id", p.UserID).Msg("failed to create order")
		return nil, fmt.Errorf("create order: %w", err)
	}

	if key != "" && s.idem != nil {
		if err := s.idem.Remember(ctx, p.UserID, key, order.ID); err != nil {
			s.log.Warn().Err(err).Str("order_id", order.ID).Msg("failed to record idempotency key")
		}
	}

	s.publish(domain.OrderEvent{
		OrderID:   order.ID,
		OwnerID:   order.UserID,
		ActorID:   p.UserID,
		To:        domain.StatusCreated,
		Timestamp: order.CreatedAt,
	})

	s.log.Info().
		Str("order_id", order.ID).
		Str("user_id", p.UserID).
		Str("total", order.TotalAmount.StringFixed(2)).
		Msg("order created")
	return order, nil
}

// replay returns the order previously created with key, or nil. Store errors
// are logged and treated as a miss.
func (s *orderService) replay(ctx context.Context, ownerID, key string) *domain.Order {
	if key == "" || s.idem == nil {
		return nil
	}
	orderID, ok, err := s.idem.Lookup(ctx, ownerID, key)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", ownerID).Msg("idempotency lookup failed, creating anyway")
		return nil
	}
	if !ok {
		return nil
	}
	existing, err := s.repo.FindByID(ctx, orderID)
	if err != nil || existing.UserID != ownerID {
		s.log.Warn().Err(err).Str("order_id", orderID).Msg("idempotency key points to missing order")
		return nil
	}
	s.log.Info().Str("order_id", orderID).Str("user_id", ownerID).Msg("idempotent replay")
	return existing
}

func (s *orderService) Get(ctx context.Context, p domain.Principal, id string) (*domain.Order, error) {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.CanAccess(order.UserID) {
		return nil, domain.ErrForbidden
	}
	return order, nil
}

// ListMine lists the principal's own orders. Admins see only their own here too.
func (s *orderService) ListMine(ctx context.Context, p domain.Principal, in ports.ListOrdersInput) (*ports.OrderPage, error) {
	if p.UserID == "" {
		return nil, domain.ErrUnauthenticated
	}

	filter := ports.ListOrdersFilter{UserID: p.UserID, SortBy: "created_at", Ascending: true}

	if in.Status != "" {
		status, err := domain.ParseOrderStatus(in.Status)
		if err != nil {
			return nil, err
		}
		filter.Status = status
	}
	if in.SortBy != "" {
		if !orderSortFields[in.SortBy] {
			return nil, fmt.Errorf("%w: cannot sort by %q", domain.ErrInvalidInput, in.SortBy)
		}
		filter.SortBy = in.SortBy
	}
	switch strings.ToLower(in.SortOrder) {
	case "", "asc":
	case "desc":
		filter.Ascending = false
	default:
		return nil, fmt.Errorf("%w: sort_order must be asc or desc", domain.ErrInvalidInput)
	}

	page, size, err := normalizePage(in.Page, in.PageSize)
	if err != nil {
		return nil, err
	}
	filter.Page, filter.Limit = page, size

	orders, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return &ports.OrderPage{
		Items:    orders,
		Total:    total,
		Page:     page,
		PageSize: size,
		Pages:    pageCount(total, size),
	}, nil
}

// UpdateStatus moves the order to status to. The write only lands if the
// stored status still equals the one the transition was checked against;
// otherwise the order is re-read and the transition re-checked.
func (s *orderService) UpdateStatus(ctx context.Context, p domain.Principal, id string, to domain.OrderStatus) (*domain.Order, error) {
	for attempt := 1; attempt <= maxCASAttempts; attempt++ {
		order, err := s.Get(ctx, p, id)
		if err != nil {
			return nil, err
		}

		from := order.Status
		if !from.CanTransitionTo(to) {
			return nil, fmt.Errorf("%w: %s to %s", domain.ErrInvalidTransition, from, to)
		}

		updated, err := s.repo.UpdateStatus(ctx, id, ports.StatusChange{
			From:    from,
			To:      to,
			At:      s.now(),
			ActorID: p.UserID,
		})
		if errors.Is(err, domain.ErrConcurrentUpdate) {
			s.log.Debug().Str("order_id", id).Int("attempt", attempt).Msg("status changed concurrently, re-checking")
			continue
		}
		if err != nil {
			return nil, err
		}

		s.publish(domain.OrderEvent{
			OrderID:   updated.ID,
			OwnerID:   updated.UserID,
			ActorID:   p.UserID,
			From:      from,
			To:        to,
			Timestamp: updated.UpdatedAt,
		})
		s.log.Info().
			Str("order_id", id).
			Str("from", string(from)).
			Str("to", string(to)).
			Str("actor_id", p.UserID).
			Msg("order status updated")
		return updated, nil
	}
	return nil, fmt.Errorf("%w: order %s kept changing", domain.ErrInvalidTransition, id)
}

func (s *orderService) Cancel(ctx context.Context, p domain.Principal, id string) (*domain.Order, error) {
	return s.UpdateStatus(ctx, p, id, domain.StatusCancelled)
}

// ReplaceItems swaps the items of an order that has not started yet.
func (s *orderService) ReplaceItems(ctx context.Context, p domain.Principal, id string, items []domain.LineItem) (*domain.Order, error) {
	if err := domain.ValidateItems(items); err != nil {
		return nil, err
	}

	for attempt := 1; attempt <= maxCASAttempts; attempt++ {
		order, err := s.Get(ctx, p, id)
		if err != nil {
			return nil, err
		}
		now := s.now()
		if err := order.ReplaceItems(items, now); err != nil {
			return nil, err
		}

		updated, err := s.repo.ReplaceItems(ctx, id, order.Items, order.TotalAmount, now)
		if errors.Is(err, domain.ErrConcurrentUpdate) {
			continue
		}
		if err != nil {
			return nil, err
		}

		s.log.Info().
			Str("order_id", id).
			Str("total", updated.TotalAmount.StringFixed(2)).
			Msg("order items replaced")
		return updated, nil
	}
	return nil, fmt.Errorf("%w: order %s kept changing", domain.ErrInvalidTransition, id)
}

func (s *orderService) publish(e domain.OrderEvent) {
	if s.events != nil {
		s.events.Publish(e)
	}
}
