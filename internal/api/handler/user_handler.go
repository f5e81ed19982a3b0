package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/order-platform/internal/core/domain"
	"github.com/99minutos/order-platform/internal/core/ports"
)

// UserHandler handles registration, login and profile requests.
type UserHandler struct {
	service  ports.UserService
	tokenTTL time.Duration
}

func NewUserHandler(service ports.UserService, tokenTTL time.Duration) *UserHandler {
	return &UserHandler{service: service, tokenTTL: tokenTTL}
}

// bindAndValidate decodes the request and runs struct validation. Decode
// failures are reported as invalid input.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return fmt.Errorf("%w: malformed request", domain.ErrInvalidInput)
	}
	return c.Validate(req)
}

// Register creates a new client account.
//
// @Summary      Register a new user
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "User registration details"
// @Success      201   {object}  Envelope{data=userResponse}
// @Failure      400   {object}  Envelope
// @Failure      409   {object}  Envelope
// @Router       /v1/users/register [post]
func (h *UserHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.service.Register(c.Request().Context(), ports.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		return err
	}
	return Success(c, http.StatusCreated, toUserResponse(user))
}

// Login authenticates a user and returns a bearer token.
//
// @Summary      Login
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  Envelope{data=loginResponse}
// @Failure      400   {object}  Envelope
// @Failure      401   {object}  Envelope
// @Router       /v1/users/login [post]
func (h *UserHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	token, user, err := h.service.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return Success(c, http.StatusOK, loginResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int64(h.tokenTTL.Seconds()),
		User:        toUserResponse(user),
	})
}

// Me returns the caller's profile.
//
// @Summary      Current user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  Envelope{data=userResponse}
// @Failure      401  {object}  Envelope
// @Router       /v1/users/me [get]
func (h *UserHandler) Me(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	user, err := h.service.Me(c.Request().Context(), p)
	if err != nil {
		return err
	}
	return Success(c, http.StatusOK, toUserResponse(user))
}

// UpdateMe changes the caller's name and/or email.
//
// @Summary      Update current user
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      updateMeRequest  true  "Profile changes"
// @Success      200   {object}  Envelope{data=userResponse}
// @Failure      400   {object}  Envelope
// @Failure      401   {object}  Envelope
// @Failure      409   {object}  Envelope
// @Router       /v1/users/me [put]
func (h *UserHandler) UpdateMe(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req updateMeRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.service.UpdateMe(c.Request().Context(), p, ports.UpdateProfileInput{
		Name:  req.Name,
		Email: req.Email,
	})
	if err != nil {
		return err
	}
	return Success(c, http.StatusOK, toUserResponse(user))
}

// List returns a page of users. Admin only.
//
// @Summary      List users
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        page       query     int     false  "Page number (1-based)"
// @Param        page_size  query     int     false  "Page size (max 100)"
// @Param        search     query     string  false  "Case-insensitive match on name or email"
// @Param        role       query     string  false  "admin or client"
// @Success      200        {object}  Envelope{data=userPageResponse}
// @Failure      401        {object}  Envelope
// @Failure      403        {object}  Envelope
// @Router       /v1/users/all [get]
func (h *UserHandler) List(c echo.Context) error {
	var q listUsersQuery
	if err := bindAndValidate(c, &q); err != nil {
		return err
	}

	page, err := h.service.List(c.Request().Context(), ports.ListUsersInput{
		Search:   q.Search,
		Role:     q.Role,
		Page:     q.Page,
		PageSize: q.PageSize,
	})
	if err != nil {
		return err
	}
	return Success(c, http.StatusOK, toUserPageResponse(page))
}
