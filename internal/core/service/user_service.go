package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/99minutos/order-platform/internal/core/domain"
	"github.com/99minutos/order-platform/internal/core/ports"
)

const (
	minPasswordLength = 8
	maxNameLength     = 100
	defaultPageSize   = 20
	maxPageSize       = 100
)

type userService struct {
	repo        ports.UserRepository
	tokens      ports.TokenIssuer
	adminEmails map[string]struct{}
	bcryptCost  int
	now         func() time.Time
	log         zerolog.Logger
}

// UserServiceOption customises a user service.
type UserServiceOption func(*userService)

// WithAdminEmails grants the admin role to accounts registered with one of emails.
func WithAdminEmails(emails []string) UserServiceOption {
	return func(s *userService) {
		for _, e := range emails {
			if e = domain.NormalizeEmail(e); e != "" {
				s.adminEmails[e] = struct{}{}
			}
		}
	}
}

// WithBcryptCost overrides the bcrypt work factor. Tests use bcrypt.MinCost.
func WithBcryptCost(cost int) UserServiceOption {
	return func(s *userService) { s.bcryptCost = cost }
}

// WithUserClock overrides the time source.
func WithUserClock(now func() time.Time) UserServiceOption {
	return func(s *userService) { s.now = now }
}

// NewUserService returns a UserService implementation.
func NewUserService(repo ports.UserRepository, tokens ports.TokenIssuer, log zerolog.Logger, opts ...UserServiceOption) ports.UserService {
	s := &userService{
		repo:        repo,
		tokens:      tokens,
		adminEmails: make(map[string]struct{}),
		bcryptCost:  bcrypt.DefaultCost,
		now:         func() time.Time { return time.Now().UTC() },
		log:         log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *userService) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	email := domain.NormalizeEmail(in.Email)
	name := strings.TrimSpace(in.Name)

	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validateName(name); err != nil {
		return nil, err
	}
	if utf8.RuneCountInString(in.Password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", domain.ErrInvalidInput, minPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("register: hash password: %w", err)
	}

	roles := []string{domain.RoleClient}
	if _, ok := s.adminEmails[email]; ok {
		roles = append(roles, domain.RoleAdmin)
	}

	now := s.now()
	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		Name:         name,
		Roles:        roles,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrUserExists) {
			return nil, err
		}
		s.log.Error().Err(err).Msg("failed to create user")
		return nil, fmt.Errorf("register: %w", err)
	}

	s.log.Info().Str("user_id", user.ID).Strs("roles", roles).Msg("user registered")
	return user, nil
}

// Login verifies credentials and issues a token. Unknown email and wrong
// password are indistinguishable to the caller.
func (s *userService) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	user, err := s.repo.FindByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return "", nil, domain.ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("login: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.log.Debug().Str("user_id", user.ID).Msg("password mismatch")
		return "", nil, domain.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return "", nil, fmt.Errorf("login: %w", err)
	}
	return token, user, nil
}

func (s *userService) Me(ctx context.Context, p domain.Principal) (*domain.User, error) {
	if p.UserID == "" {
		return nil, domain.ErrUnauthenticated
	}
	user, err := s.repo.FindByID(ctx, p.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			// valid signature, but the account is gone
			return nil, domain.ErrUnauthenticated
		}
		return nil, fmt.Errorf("me: %w", err)
	}
	return user, nil
}

func (s *userService) UpdateMe(ctx context.Context, p domain.Principal, in ports.UpdateProfileInput) (*domain.User, error) {
	user, err := s.Me(ctx, p)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if err := validateName(name); err != nil {
			return nil, err
		}
		user.Name = name
	}

	if in.Email != nil {
		email := domain.NormalizeEmail(*in.Email)
		if err := validateEmail(email); err != nil {
			return nil, err
		}
		if email != user.Email {
			existing, err := s.repo.FindByEmail(ctx, email)
			switch {
			case err == nil && existing.ID != user.ID:
				return nil, domain.ErrUserExists
			case err != nil && !errors.Is(err, domain.ErrUserNotFound):
				return nil, fmt.Errorf("update profile: %w", err)
			}
			user.Email = email
		}
	}

	user.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, user); err != nil {
		if errors.Is(err, domain.ErrUserExists) || errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}

	s.log.Info().Str("user_id", user.ID).Msg("profile updated")
	return user, nil
}

func (s *userService) List(ctx context.Context, in ports.ListUsersInput) (*ports.UserPage, error) {
	if in.Role != "" && !domain.IsKnownRole(in.Role) {
		return nil, fmt.Errorf("%w: unknown role %q", domain.ErrInvalidInput, in.Role)
	}
	page, size, err := normalizePage(in.Page, in.PageSize)
	if err != nil {
		return nil, err
	}

	users, total, err := s.repo.List(ctx, ports.ListUsersFilter{
		Search: strings.TrimSpace(in.Search),
		Role:   in.Role,
		Page:   page,
		Limit:  size,
	})
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	return &ports.UserPage{
		Items:    users,
		Total:    total,
		Page:     page,
		PageSize: size,
		Pages:    pageCount(total, size),
	}, nil
}

// emailRules applies the same "email" rule as the request validator.
var emailRules = validator.New()

func validateEmail(email string) error {
	if err := emailRules.Var(email, "required,email"); err != nil {
		return fmt.Errorf("%w: invalid email", domain.ErrInvalidInput)
	}
	return nil
}

func validateName(name string) error {
	if n := utf8.RuneCountInString(name); n < 1 || n > maxNameLength {
		return fmt.Errorf("%w: name must be between 1 and %d characters", domain.ErrInvalidInput, maxNameLength)
	}
	return nil
}

// normalizePage applies defaults to zero values and rejects out-of-range input.
func normalizePage(page, size int) (int, int, error) {
	if page == 0 {
		page = 1
	}
	if size == 0 {
		size = defaultPageSize
	}
	if page < 1 {
		return 0, 0, fmt.Errorf("%w: page must be at least 1", domain.ErrInvalidInput)
	}
	if size < 1 || size > maxPageSize {
		return 0, 0, fmt.Errorf("%w: page_size must be between 1 and %d", domain.ErrInvalidInput, maxPageSize)
	}
	return page, size, nil
}

func pageCount(total int64, size int) int {
	if total == 0 {
		return 0
	}
	return int(math.Ceil(float64(total) / float64(size)))
}
