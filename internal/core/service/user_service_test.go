package service

import (
	"context"
	"errors"
	"slices"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/99minutos/order-platform/internal/core/domain"
	"github.com/99minutos/order-platform/internal/core/ports"
)

// ---------------------------------------------------------------------------
// In-memory stub repository
// ---------------------------------------------------------------------------

type stubUserRepo struct {
	mu      sync.Mutex
	byID    map[string]*domain.User
	findErr error // if set, every lookup returns this error
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{byID: make(map[string]*domain.User)}
}

func (r *stubUserRepo) emailTaken(email, exceptID string) bool {
	for _, u := range r.byID {
		if u.Email == email && u.ID != exceptID {
			return true
		}
	}
	return false
}

func (r *stubUserRepo) Create(_ context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.emailTaken(u.Email, "") {
		return domain.ErrUserExists
	}
	clone := *u
	r.byID[u.ID] = &clone
	return nil
}

func (r *stubUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	for _, u := range r.byID {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	clone := *u
	return &clone, nil
}

func (r *stubUserRepo) Update(_ context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[u.ID]; !ok {
		return domain.ErrUserNotFound
	}
	if r.emailTaken(u.Email, u.ID) {
		return domain.ErrUserExists
	}
	clone := *u
	r.byID[u.ID] = &clone
	return nil
}

// List applies the same filters the Mongo repository does.
func (r *stubUserRepo) List(_ context.Context, f ports.ListUsersFilter) ([]*domain.User, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []*domain.User
	for _, u := range r.byID {
		if f.Role != "" && !slices.Contains(u.Roles, f.Role) {
			continue
		}
		if f.Search != "" {
			q := strings.ToLower(f.Search)
			if !strings.Contains(strings.ToLower(u.Name), q) && !strings.Contains(u.Email, q) {
				continue
			}
		}
		clone := *u
		matched = append(matched, &clone)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Email < matched[j].Email })

	total := int64(len(matched))
	skip := (f.Page - 1) * f.Limit
	if skip >= len(matched) {
		return []*domain.User{}, total, nil
	}
	end := min(skip+f.Limit, len(matched))
	return matched[skip:end], total, nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func newUserSvc(t *testing.T, repo *stubUserRepo, opts ...UserServiceOption) (ports.UserService, *TokenService) {
	t.Helper()
	tokens, err := NewTokenService(TokenConfig{Secret: []byte("test-secret"), TTL: time.Hour})
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	opts = append([]UserServiceOption{WithBcryptCost(bcrypt.MinCost)}, opts...)
	return NewUserService(repo, tokens, zerolog.Nop(), opts...), tokens
}

func mustRegister(t *testing.T, svc ports.UserService, email, name string) *domain.User {
	t.Helper()
	u, err := svc.Register(context.Background(), ports.RegisterInput{Email: email, Password: "pw123456", Name: name})
	if err != nil {
		t.Fatalf("Register(%s): %v", email, err)
	}
	return u
}

// ---------------------------------------------------------------------------
// Register
// ---------------------------------------------------------------------------

func TestUserService_Register_Success(t *testing.T) {
	repo := newStubUserRepo()
	svc, _ := newUserSvc(t, repo)

	u, err := svc.Register(context.Background(), ports.RegisterInput{
		Email:    "  A@X.com ",
		Password: "pw123456",
		Name:     " Ana ",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.ID == "" {
		t.Error("expected generated id")
	}
	if u.Email != "a@x.com" {
		t.Errorf("expected normalised email a@x.com, got %q", u.Email)
	}
	if u.Name != "Ana" {
		t.Errorf("expected trimmed name, got %q", u.Name)
	}
	if !slices.Equal(u.Roles, []string{domain.RoleClient}) {
		t.Errorf("expected [client], got %v", u.Roles)
	}
	if u.PasswordHash == "pw123456" || u.PasswordHash == "" {
		t.Error("password must be stored hashed")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("pw123456")); err != nil {
		t.Errorf("hash does not match password: %v", err)
	}
}

func TestUserService_Register_AdminEmails(t *testing.T) {
	svc, _ := newUserSvc(t, newStubUserRepo(), WithAdminEmails([]string{" Boss@X.com", ""}))

	admin := mustRegister(t, svc, "boss@x.com", "Boss")
	if !slices.Contains(admin.Roles, domain.RoleAdmin) || !slices.Contains(admin.Roles, domain.RoleClient) {
		t.Errorf("expected admin+client, got %v", admin.Roles)
	}
	regular := mustRegister(t, svc, "c@x.com", "C")
	if slices.Contains(regular.Roles, domain.RoleAdmin) {
		t.Errorf("regular user must not be admin, got %v", regular.Roles)
	}
}

func TestUserService_Register_Duplicate(t *testing.T) {
	svc, _ := newUserSvc(t, newStubUserRepo())
	mustRegister(t, svc, "a@x.com", "A")

	_, err := svc.Register(context.Background(), ports.RegisterInput{Email: "A@x.COM", Password: "pw123456", Name: "A"})
	if !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestUserService_Register_Validation(t *testing.T) {
	svc, _ := newUserSvc(t, newStubUserRepo())
	cases := map[string]ports.RegisterInput{
		"short password": {Email: "a@x.com", Password: "short", Name: "A"},
		"empty name":     {Email: "a@x.com", Password: "pw123456", Name: "   "},
		"long name":      {Email: "a@x.com", Password: "pw123456", Name: strings.Repeat("n", 101)},
		"bad email":      {Email: "not-an-email", Password: "pw123456", Name: "A"},
		"empty email":    {Email: "", Password: "pw123456", Name: "A"},
		"double at":      {Email: "a@@x.com", Password: "pw123456", Name: "A"},
		"no local part":  {Email: "@x.com", Password: "pw123456", Name: "A"},
	}
	for name, in := range cases {
		if _, err := svc.Register(context.Background(), in); !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("%s: expected ErrInvalidInput, got %v", name, err)
		}
	}
}

// ---------------------------------------------------------------------------
// Login
// ---------------------------------------------------------------------------

func TestUserService_Login_IssuesValidToken(t *testing.T) {
	svc, tokens := newUserSvc(t, newStubUserRepo())
	registered := mustRegister(t, svc, "a@x.com", "A")

	token, u, err := svc.Login(context.Background(), "A@X.com", "pw123456")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.ID != registered.ID {
		t.Errorf("expected user %s, got %s", registered.ID, u.ID)
	}

	p, err := tokens.Validate(token)
	if err != nil {
		t.Fatalf("issued token does not validate: %v", err)
	}
	if p.UserID != registered.ID || !slices.Equal(p.Roles, registered.Roles) {
		t.Errorf("principal mismatch: %+v", p)
	}
}

func TestUserService_Login_InvalidCredentials(t *testing.T) {
	svc, _ := newUserSvc(t, newStubUserRepo())
	mustRegister(t, svc, "a@x.com", "A")

	if _, _, err := svc.Login(context.Background(), "a@x.com", "wrong-password"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Errorf("wrong password: expected ErrInvalidCredentials, got %v", err)
	}
	if _, _, err := svc.Login(context.Background(), "nobody@x.com", "pw123456"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Errorf("unknown email: expected ErrInvalidCredentials, got %v", err)
	}
}

func TestUserService_Login_RepoFailure(t *testing.T) {
	repo := newStubUserRepo()
	repo.findErr = errors.New("connection reset")
	svc, _ := newUserSvc(t, repo)

	_, _, err := svc.Login(context.Background(), "a@x.com", "pw123456")
	if err == nil || errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected infrastructure error, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Me / UpdateMe
// ---------------------------------------------------------------------------

func TestUserService_Me(t *testing.T) {
	svc, _ := newUserSvc(t, newStubUserRepo())
	u := mustRegister(t, svc, "a@x.com", "A")

	got, err := svc.Me(context.Background(), domain.Principal{UserID: u.ID, Roles: u.Roles})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Email != "a@x.com" {
		t.Errorf("expected a@x.com, got %s", got.Email)
	}

	_, err = svc.Me(context.Background(), domain.Principal{UserID: "deleted", Roles: []string{domain.RoleClient}})
	if !errors.Is(err, domain.ErrUnauthenticated) {
		t.Errorf("missing subject: expected ErrUnauthenticated, got %v", err)
	}
}

func TestUserService_UpdateMe(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	svc, _ := newUserSvc(t, newStubUserRepo(), WithUserClock(func() time.Time { return now }))
	a := mustRegister(t, svc, "a@x.com", "A")
	mustRegister(t, svc, "b@x.com", "B")
	p := domain.Principal{UserID: a.ID, Roles: a.Roles}

	now = now.Add(time.Hour)
	name, email := "Alice", "Alice@X.com"
	got, err := svc.UpdateMe(context.Background(), p, ports.UpdateProfileInput{Name: &name, Email: &email})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name != "Alice" || got.Email != "alice@x.com" {
		t.Errorf("unexpected profile: %+v", got)
	}
	if !got.UpdatedAt.Equal(now) {
		t.Errorf("expected updated_at %v, got %v", now, got.UpdatedAt)
	}

	taken := "b@x.com"
	if _, err := svc.UpdateMe(context.Background(), p, ports.UpdateProfileInput{Email: &taken}); !errors.Is(err, domain.ErrUserExists) {
		t.Errorf("expected ErrUserExists, got %v", err)
	}

	same := "alice@x.com"
	if _, err := svc.UpdateMe(context.Background(), p, ports.UpdateProfileInput{Email: &same}); err != nil {
		t.Errorf("re-submitting own email must succeed, got %v", err)
	}

	blank := " "
	if _, err := svc.UpdateMe(context.Background(), p, ports.UpdateProfileInput{Name: &blank}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// List
// ---------------------------------------------------------------------------

func TestUserService_List(t *testing.T) {
	svc, _ := newUserSvc(t, newStubUserRepo(), WithAdminEmails([]string{"root@x.com"}))
	mustRegister(t, svc, "root@x.com", "Root")
	mustRegister(t, svc, "ana@x.com", "Ana")
	mustRegister(t, svc, "bob@x.com", "Bob")

	page, err := svc.List(context.Background(), ports.ListUsersInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Total != 3 || len(page.Items) != 3 || page.Page != 1 || page.PageSize != defaultPageSize || page.Pages != 1 {
		t.Errorf("unexpected page: %+v", page)
	}

	page, _ = svc.List(context.Background(), ports.ListUsersInput{Role: domain.RoleAdmin})
	if page.Total != 1 || page.Items[0].Email != "root@x.com" {
		t.Errorf("role filter: unexpected result %+v", page)
	}

	page, _ = svc.List(context.Background(), ports.ListUsersInput{Search: "AN"})
	if page.Total != 1 || page.Items[0].Name != "Ana" {
		t.Errorf("search: unexpected result %+v", page)
	}

	page, _ = svc.List(context.Background(), ports.ListUsersInput{Page: 2, PageSize: 2})
	if page.Total != 3 || len(page.Items) != 1 || page.Pages != 2 {
		t.Errorf("pagination: unexpected result %+v", page)
	}
}

func TestUserService_List_Validation(t *testing.T) {
	svc, _ := newUserSvc(t, newStubUserRepo())
	bad := []ports.ListUsersInput{
		{PageSize: 101},
		{PageSize: -1},
		{Page: -2},
		{Role: "superuser"},
	}
	for _, in := range bad {
		if _, err := svc.List(context.Background(), in); !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("%+v: expected ErrInvalidInput, got %v", in, err)
		}
	}
}
