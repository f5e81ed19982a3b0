package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/99minutos/order-platform/internal/core/domain"
	"github.com/99minutos/order-platform/internal/core/ports"
)

type auditService struct {
	eventRepo ports.OrderEventRepository
	log       zerolog.Logger
}

// NewAuditService returns an OrderAuditService implementation.
func NewAuditService(eventRepo ports.OrderEventRepository, log zerolog.Logger) ports.OrderAuditService {
	return &auditService{eventRepo: eventRepo, log: log}
}

// Record validates and persists a single order event. Every status is entered
// at most once per order, so the repository treats a repeated (order, status)
// pair as already recorded.
func (s *auditService) Record(ctx context.Context, e domain.OrderEvent) error {
	if e.OrderID == "" || !e.To.IsValid() {
		return fmt.Errorf("record event: %w: order id and target status are required", domain.ErrInvalidInput)
	}
	if e.From != "" && !e.From.CanTransitionTo(e.To) {
		return fmt.Errorf("record event: %w (from %s to %s)", domain.ErrInvalidTransition, e.From, e.To)
	}

	if err := s.eventRepo.InsertEvent(ctx, e); err != nil {
		return fmt.Errorf("record event: %w", err)
	}

	s.log.Debug().
		Str("order_id", e.OrderID).
		Str("from", string(e.From)).
		Str("to", string(e.To)).
		Str("actor_id", e.ActorID).
		Msg("order event recorded")
	return nil
}
