package ports

import (
	"context"

	"github.com/99minutos/order-platform/internal/core/domain"
)

// RegisterInput carries the public registration payload.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
}

// UpdateProfileInput carries optional profile changes; nil fields are left untouched.
type UpdateProfileInput struct {
	Name  *string
	Email *string
}

// ListUsersInput carries the parameters of the admin listing endpoint.
type ListUsersInput struct {
	Search   string
	Role     string
	Page     int
	PageSize int
}

// UserPage is one page of users.
type UserPage struct {
	Items    []*domain.User
	Total    int64
	Page     int
	PageSize int
	Pages    int
}

// UserService is the credential store: identity, authentication and profile.
type UserService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.User, error)
	Login(ctx context.Context, email, password string) (string, *domain.User, error)
	Me(ctx context.Context, p domain.Principal) (*domain.User, error)
	UpdateMe(ctx context.Context, p domain.Principal, in UpdateProfileInput) (*domain.User, error)
	List(ctx context.Context, in ListUsersInput) (*UserPage, error)
}
