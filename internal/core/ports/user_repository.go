package ports

import (
	"context"

	"github.com/99minutos/order-platform/internal/core/domain"
)

// ListUsersFilter carries the query parameters for the admin user listing.
type ListUsersFilter struct {
	Search string // optional: case-insensitive partial match on name or email
	Role   string // optional: users holding this role
	Page   int    // 1-based
	Limit  int
}

// UserRepository defines persistence operations for user accounts.
// Create and Update return domain.ErrUserExists on an email collision.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
	List(ctx context.Context, filter ListUsersFilter) ([]*domain.User, int64, error)
}
