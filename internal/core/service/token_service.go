package service

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/99minutos/order-platform/internal/core/domain"
)

const defaultTokenTTL = 30 * time.Minute

// TokenConfig is the process-wide token configuration. It is loaded once at
// startup and never mutated afterwards.
type TokenConfig struct {
	Secret []byte
	TTL    time.Duration
}

// TokenService issues and validates HS256 tokens. It holds no mutable state
// and is safe for concurrent use.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

type tokenClaims struct {
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// NewTokenService copies the secret so later changes to cfg cannot affect
// tokens minted or validated by the returned service.
func NewTokenService(cfg TokenConfig) (*TokenService, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("token service: secret must not be empty")
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &TokenService{
		secret: slices.Clone(cfg.Secret),
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// WithClock returns a copy of the service that reads time from now.
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	clone := *s
	clone.now = now
	return &clone
}

// TTL returns the lifetime of issued tokens.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Issue mints a token carrying the user's id and roles, valid for the configured TTL.
func (s *TokenService) Issue(user *domain.User) (string, error) {
	if user == nil || user.ID == "" {
		return "", fmt.Errorf("issue token: %w: missing user id", domain.ErrInvalidInput)
	}

	now := s.now()
	claims := tokenClaims{
		Roles: slices.Clone(user.Roles),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	return signed, nil
}

// Validate checks signature and expiry and returns the encoded principal.
// A token is valid while now < exp. Any failure yields no principal.
func (s *TokenService) Validate(token string) (domain.Principal, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)

	claims := &tokenClaims{}
	tkn, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.Principal{}, domain.ErrExpiredToken
		}
		return domain.Principal{}, domain.ErrInvalidToken
	}
	if !tkn.Valid || claims.Subject == "" || len(claims.Roles) == 0 {
		return domain.Principal{}, domain.ErrInvalidToken
	}

	return domain.Principal{UserID: claims.Subject, Roles: claims.Roles}, nil
}
