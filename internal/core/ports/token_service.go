package ports

import "github.com/99minutos/order-platform/internal/core/domain"

// TokenIssuer mints signed tokens for authenticated users.
type TokenIssuer interface {
	Issue(user *domain.User) (string, error)
}

// TokenValidator turns a bearer token back into a principal. It returns
// domain.ErrInvalidToken or domain.ErrExpiredToken on failure.
type TokenValidator interface {
	Validate(token string) (domain.Principal, error)
}
