package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/99minutos/order-platform/internal/core/domain"
	"github.com/99minutos/order-platform/internal/core/ports"
)

// --- Requests ---

// lineItemRequest accepts price as a JSON number or string ("100.50").
type lineItemRequest struct {
	Name        string          `json:"name"        validate:"required,max=200"`
	Amount      int             `json:"amount"      validate:"required,gt=0"`
	Description string          `json:"description" validate:"max=1000"`
	Price       decimal.Decimal `json:"price"`
}

type createOrderRequest struct {
	Items []lineItemRequest `json:"items" validate:"required,min=1,dive"`
}

type replaceItemsRequest struct {
	Items []lineItemRequest `json:"items" validate:"required,min=1,dive"`
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type listOrdersQuery struct {
	Page      int    `query:"page"       validate:"gte=0"`
	PageSize  int    `query:"page_size"  validate:"gte=0,max=100"`
	Status    string `query:"status"`
	// StatusFilter is the older name of Status; Status wins when both are set.
	StatusFilter string `query:"status_filter"`
	SortBy    string `query:"sort_by"    validate:"omitempty,oneof=created_at updated_at total_amount"`
	SortOrder string `query:"sort_order" validate:"omitempty,oneof=asc desc"`
}

// --- Responses ---

type lineItemResponse struct {
	Name        string `json:"name"`
	Amount      int    `json:"amount"`
	Description string `json:"description"`
	Price       string `json:"price"`
	Subtotal    string `json:"subtotal"`
}

type statusHistoryResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	ActorID   string    `json:"actor_id,omitempty"`
}

type orderResponse struct {
	ID            string                  `json:"id"`
	UserID        string                  `json:"user_id"`
	Items         []lineItemResponse      `json:"items"`
	Status        string                  `json:"status"`
	TotalAmount   string                  `json:"total_amount"`
	StatusHistory []statusHistoryResponse `json:"status_history"`
	CreatedAt     time.Time               `json:"created_at"`
	UpdatedAt     time.Time               `json:"updated_at"`
}

type orderPageResponse struct {
	Items    []orderResponse `json:"items"`
	Total    int64           `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
	Pages    int             `json:"pages"`
}

// --- Request → Service input ---

func toLineItems(reqs []lineItemRequest) []domain.LineItem {
	items := make([]domain.LineItem, 0, len(reqs))
	for _, r := range reqs {
		items = append(items, domain.LineItem{
			Name:        r.Name,
			Quantity:    r.Amount,
			Description: r.Description,
			Price:       r.Price,
		})
	}
	return items
}

// --- Service result → HTTP response ---

// Money is rendered as a string with two decimals so clients never see
// binary floating point.
func toOrderResponse(o *domain.Order) orderResponse {
	items := make([]lineItemResponse, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, lineItemResponse{
			Name:        it.Name,
			Amount:      it.Quantity,
			Description: it.Description,
			Price:       it.Price.StringFixed(2),
			Subtotal:    it.Subtotal().StringFixed(2),
		})
	}
	history := make([]statusHistoryResponse, 0, len(o.StatusHistory))
	for _, h := range o.StatusHistory {
		history = append(history, statusHistoryResponse{
			Status:    string(h.Status),
			Timestamp: h.Timestamp.UTC(),
			ActorID:   h.ActorID,
		})
	}
	return orderResponse{
		ID:            o.ID,
		UserID:        o.UserID,
		Items:         items,
		Status:        string(o.Status),
		TotalAmount:   o.TotalAmount.StringFixed(2),
		StatusHistory: history,
		CreatedAt:     o.CreatedAt.UTC(),
		UpdatedAt:     o.UpdatedAt.UTC(),
	}
}

func toOrderPageResponse(p *ports.OrderPage) orderPageResponse {
	items := make([]orderResponse, 0, len(p.Items))
	for _, o := range p.Items {
		items = append(items, toOrderResponse(o))
	}
	return orderPageResponse{
		Items:    items,
		Total:    p.Total,
		Page:     p.Page,
		PageSize: p.PageSize,
		Pages:    p.Pages,
	}
}
