package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/99minutos/order-platform/internal/core/domain"
	"github.com/99minutos/order-platform/internal/core/ports"
)

const collectionOrders = "orders"

// OrderRepository implements ports.OrderRepository using MongoDB. Status and
// item writes are compare-and-set on the stored status.
type OrderRepository struct {
	col *mongo.Collection
}

func NewOrderRepository(db *mongo.Database) *OrderRepository {
	return &OrderRepository{col: db.Collection(collectionOrders)}
}

// Money is stored as Decimal128 so totals sort numerically and never pass
// through float64.
type mongoLineItem struct {
	Name        string               `bson:"name"`
	Quantity    int                  `bson:"amount"`
	Description string               `bson:"description,omitempty"`
	Price       primitive.Decimal128 `bson:"price"`
}

type mongoStatusEntry struct {
	Status    string    `bson:"status"`
	Timestamp time.Time `bson:"timestamp"`
	ActorID   string    `bson:"actor_id,omitempty"`
}

type mongoOrder struct {
	ID             string               `bson:"_id"`
	UserID         string               `bson:"user_id"`
	Items          []mongoLineItem      `bson:"items"`
	Status         string               `bson:"status"`
	TotalAmount    primitive.Decimal128 `bson:"total_amount"`
	StatusHistory  []mongoStatusEntry   `bson:"status_history"`
	IdempotencyKey string               `bson:"idempotency_key,omitempty"`
	CreatedAt      time.Time            `bson:"created_at"`
	UpdatedAt      time.Time            `bson:"updated_at"`
}

// Amounts carry at most two decimal places, so they are stored with exactly two.
func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	v, err := primitive.ParseDecimal128(d.StringFixed(2))
	if err != nil {
		return primitive.Decimal128{}, fmt.Errorf("encode decimal %s: %w", d, err)
	}
	return v, nil
}

func fromDecimal128(v primitive.Decimal128) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("decode decimal %s: %w", v, err)
	}
	return d, nil
}

func toMongoItems(items []domain.LineItem) ([]mongoLineItem, error) {
	out := make([]mongoLineItem, 0, len(items))
	for _, it := range items {
		price, err := toDecimal128(it.Price)
		if err != nil {
			return nil, err
		}
		out = append(out, mongoLineItem{
			Name:        it.Name,
			Quantity:    it.Quantity,
			Description: it.Description,
			Price:       price,
		})
	}
	return out, nil
}

func toMongoOrder(o *domain.Order) (*mongoOrder, error) {
	items, err := toMongoItems(o.Items)
	if err != nil {
		return nil, err
	}
	total, err := toDecimal128(o.TotalAmount)
	if err != nil {
		return nil, err
	}
	history := make([]mongoStatusEntry, 0, len(o.StatusHistory))
	for _, h := range o.StatusHistory {
		history = append(history, mongoStatusEntry{
			Status:    string(h.Status),
			Timestamp: h.Timestamp.UTC(),
			ActorID:   h.ActorID,
		})
	}
	return &mongoOrder{
		ID:             o.ID,
		UserID:         o.UserID,
		Items:          items,
		Status:         string(o.Status),
		TotalAmount:    total,
		StatusHistory:  history,
		IdempotencyKey: o.IdempotencyKey,
		CreatedAt:      o.CreatedAt.UTC(),
		UpdatedAt:      o.UpdatedAt.UTC(),
	}, nil
}

func (mo *mongoOrder) toDomain() (*domain.Order, error) {
	items := make([]domain.LineItem, 0, len(mo.Items))
	for _, it := range mo.Items {
		price, err := fromDecimal128(it.Price)
		if err != nil {
			return nil, err
		}
		items = append(items, domain.LineItem{
			Name:        it.Name,
			Quantity:    it.Quantity,
			Description: it.Description,
			Price:       price,
		})
	}
	total, err := fromDecimal128(mo.TotalAmount)
	if err != nil {
		return nil, err
	}
	history := make([]domain.StatusHistoryEntry, 0, len(mo.StatusHistory))
	for _, h := range mo.StatusHistory {
		history = append(history, domain.StatusHistoryEntry{
			Status:    domain.OrderStatus(h.Status),
			Timestamp: h.Timestamp.UTC(),
			ActorID:   h.ActorID,
		})
	}
	return &domain.Order{
		ID:             mo.ID,
		UserID:         mo.UserID,
		Items:          items,
		Status:         domain.OrderStatus(mo.Status),
		TotalAmount:    total,
		StatusHistory:  history,
		IdempotencyKey: mo.IdempotencyKey,
		CreatedAt:      mo.CreatedAt.UTC(),
		UpdatedAt:      mo.UpdatedAt.UTC(),
	}, nil
}

// Create inserts a new order document.
func (r *OrderRepository) Create(ctx context.Context, o *domain.Order) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc, err := toMongoOrder(o)
	if err != nil {
		return err
	}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

// FindByID retrieves an order by id.
func (r *OrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var mo mongoOrder
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&mo); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, fmt.Errorf("find order: %w", err)
	}
	return mo.toDomain()
}

// List returns one page of an owner's orders plus the total match count.
func (r *OrderRepository) List(ctx context.Context, f ports.ListOrdersFilter) ([]*domain.Order, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := orderListFilter(f)
	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	opts := options.Find().
		SetSort(orderListSort(f)).
		SetSkip(int64((f.Page - 1) * f.Limit)).
		SetLimit(int64(f.Limit))

	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer cur.Close(ctx)

	var docs []mongoOrder
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("decode orders: %w", err)
	}

	orders := make([]*domain.Order, 0, len(docs))
	for i := range docs {
		o, err := docs[i].toDomain()
		if err != nil {
			return nil, 0, err
		}
		orders = append(orders, o)
	}
	return orders, total, nil
}

func orderListFilter(f ports.ListOrdersFilter) bson.M {
	filter := bson.M{"user_id": f.UserID}
	if f.Status != "" {
		filter["status"] = string(f.Status)
	}
	return filter
}

// orderListSort only accepts known fields; _id breaks ties so pages are stable.
func orderListSort(f ports.ListOrdersFilter) bson.D {
	field := "created_at"
	switch f.SortBy {
	case "updated_at", "total_amount":
		field = f.SortBy
	}
	dir := 1
	if !f.Ascending {
		dir = -1
	}
	return bson.D{{Key: field, Value: dir}, {Key: "_id", Value: dir}}
}

// UpdateStatus atomically sets the new status, refreshes updated_at and
// appends a history entry, but only if the stored status is still c.From.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, c ports.StatusChange) (*domain.Order, error) {
	update := bson.M{
		"$set": bson.M{
			"status":     string(c.To),
			"updated_at": c.At.UTC(),
		},
		"$push": bson.M{
			"status_history": mongoStatusEntry{
				Status:    string(c.To),
				Timestamp: c.At.UTC(),
				ActorID:   c.ActorID,
			},
		},
	}
	return r.compareAndSet(ctx, id, c.From, update)
}

// ReplaceItems swaps items and total while the order is still CREATED.
func (r *OrderRepository) ReplaceItems(ctx context.Context, id string, items []domain.LineItem, total decimal.Decimal, at time.Time) (*domain.Order, error) {
	docs, err := toMongoItems(items)
	if err != nil {
		return nil, err
	}
	totalDoc, err := toDecimal128(total)
	if err != nil {
		return nil, err
	}
	update := bson.M{
		"$set": bson.M{
			"items":        docs,
			"total_amount": totalDoc,
			"updated_at":   at.UTC(),
		},
	}
	return r.compareAndSet(ctx, id, domain.StatusCreated, update)
}

func (r *OrderRepository) compareAndSet(ctx context.Context, id string, expected domain.OrderStatus, update bson.M) (*domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var mo mongoOrder
	err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": id, "status": string(expected)}, update, opts).Decode(&mo)
	if err == nil {
		return mo.toDomain()
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("update order: %w", err)
	}

	// No match: either the order is gone or another writer moved it first.
	n, err := r.col.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return nil, fmt.Errorf("update order: %w", err)
	}
	if n == 0 {
		return nil, domain.ErrOrderNotFound
	}
	return nil, domain.ErrConcurrentUpdate
}

// EnsureIndexes creates necessary indexes on the orders collection.
func (r *OrderRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: 1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "status", Value: 1}}},
	}
	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
