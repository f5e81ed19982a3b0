package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/order-platform/internal/api/metrics"
	"github.com/99minutos/order-platform/internal/core/domain"
	"github.com/99minutos/order-platform/internal/core/ports"
)

// OrderHandler handles HTTP requests for order operations.
type OrderHandler struct {
	service ports.OrderService
}

func NewOrderHandler(service ports.OrderService) *OrderHandler {
	return &OrderHandler{service: service}
}

// Create handles POST /v1/orders.
//
// @Summary      Create an order
// @Tags         orders
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        Idempotency-Key  header    string              false  "Replays return the order first created with this key"
// @Param        body             body      createOrderRequest  true   "Order items"
// @Success      201              {object}  Envelope{data=orderResponse}
// @Failure      400              {object}  Envelope
// @Failure      401              {object}  Envelope
// @Router       /v1/orders/create [post]
func (h *OrderHandler) Create(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req createOrderRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	order, err := h.service.Create(c.Request().Context(), p, ports.CreateOrderInput{
		Items:          toLineItems(req.Items),
		IdempotencyKey: c.Request().Header.Get("Idempotency-Key"),
	})
	if err != nil {
		return err
	}

	metrics.OrdersCreatedTotal.Inc()
	return Success(c, http.StatusCreated, toOrderResponse(order))
}

// Get handles GET /v1/orders/:id.
//
// @Summary      Get an order
// @Tags         orders
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Order id"
// @Success      200  {object}  Envelope{data=orderResponse}
// @Failure      401  {object}  Envelope
// @Failure      403  {object}  Envelope
// @Failure      404  {object}  Envelope
// @Router       /v1/orders/{id} [get]
func (h *OrderHandler) Get(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	order, err := h.service.Get(c.Request().Context(), p, c.Param("id"))
	if err != nil {
		return err
	}
	return Success(c, http.StatusOK, toOrderResponse(order))
}

// ListMine handles GET /v1/orders.
//
// @Summary      List my orders
// @Tags         orders
// @Produce      json
// @Security     BearerAuth
// @Param        page        query     int     false  "Page number (1-based)"
// @Param        page_size   query     int     false  "Page size (max 100)"
// @Param        status      query     string  false  "Filter by status"
// @Param        status_filter  query  string  false  "Older name of status"
// @Param        sort_by     query     string  false  "created_at, updated_at or total_amount"
// @Param        sort_order  query     string  false  "asc or desc"
// @Success      200         {object}  Envelope{data=orderPageResponse}
// @Failure      400         {object}  Envelope
// @Failure      401         {object}  Envelope
// @Router       /v1/orders/my [get]
func (h *OrderHandler) ListMine(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var q listOrdersQuery
	if err := bindAndValidate(c, &q); err != nil {
		return err
	}

	status := q.Status
	if status == "" {
		status = q.StatusFilter
	}
	page, err := h.service.ListMine(c.Request().Context(), p, ports.ListOrdersInput{
		Status:    status,
		SortBy:    q.SortBy,
		SortOrder: q.SortOrder,
		Page:      q.Page,
		PageSize:  q.PageSize,
	})
	if err != nil {
		return err
	}
	return Success(c, http.StatusOK, toOrderPageResponse(page))
}

// UpdateStatus handles PUT /v1/orders/:id/status.
//
// @Summary      Change order status
// @Tags         orders
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string               true  "Order id"
// @Param        body  body      updateStatusRequest  true  "Target status"
// @Success      200   {object}  Envelope{data=orderResponse}
// @Failure      401   {object}  Envelope
// @Failure      403   {object}  Envelope
// @Failure      404   {object}  Envelope
// @Failure      409   {object}  Envelope
// @Router       /v1/orders/{id}/status [put]
func (h *OrderHandler) UpdateStatus(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req updateStatusRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	// Unknown statuses are rejected by the transition table, not here.
	to := domain.OrderStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	order, err := h.service.UpdateStatus(c.Request().Context(), p, c.Param("id"), to)
	observeTransition(to, err)
	if err != nil {
		return err
	}
	return Success(c, http.StatusOK, toOrderResponse(order))
}

// Cancel handles DELETE /v1/orders/:id.
//
// @Summary      Cancel an order
// @Tags         orders
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Order id"
// @Success      200  {object}  Envelope{data=orderResponse}
// @Failure      401  {object}  Envelope
// @Failure      403  {object}  Envelope
// @Failure      404  {object}  Envelope
// @Failure      409  {object}  Envelope
// @Router       /v1/orders/{id} [delete]
func (h *OrderHandler) Cancel(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	order, err := h.service.Cancel(c.Request().Context(), p, c.Param("id"))
	observeTransition(domain.StatusCancelled, err)
	if err != nil {
		return err
	}
	return Success(c, http.StatusOK, toOrderResponse(order))
}

// ReplaceItems handles PUT /v1/orders/:id/items.
//
// @Summary      Replace order items
// @Tags         orders
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string               true  "Order id"
// @Param        body  body      replaceItemsRequest  true  "New items"
// @Success      200   {object}  Envelope{data=orderResponse}
// @Failure      400   {object}  Envelope
// @Failure      403   {object}  Envelope
// @Failure      404   {object}  Envelope
// @Failure      409   {object}  Envelope
// @Router       /v1/orders/{id}/items [put]
func (h *OrderHandler) ReplaceItems(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req replaceItemsRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	order, err := h.service.ReplaceItems(c.Request().Context(), p, c.Param("id"), toLineItems(req.Items))
	if err != nil {
		return err
	}
	return Success(c, http.StatusOK, toOrderResponse(order))
}

func observeTransition(to domain.OrderStatus, err error) {
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrInvalidTransition):
		result = "invalid_transition"
	case errors.Is(err, domain.ErrForbidden):
		result = "forbidden"
	case errors.Is(err, domain.ErrOrderNotFound):
		result = "not_found"
	default:
		result = "error"
	}
	label := string(to)
	if !to.IsValid() {
		label = "unknown"
	}
	metrics.OrderTransitionsTotal.WithLabelValues(label, result).Inc()
}
