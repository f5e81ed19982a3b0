package mongo

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/99minutos/order-platform/internal/core/domain"
	"github.com/99minutos/order-platform/internal/core/ports"
)

// ---------------------------------------------------------------------------
// Order documents
// ---------------------------------------------------------------------------

func sampleOrder(t *testing.T) *domain.Order {
	t.Helper()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	o, err := domain.NewOrder("o-1", "u-1", []domain.LineItem{
		{Name: "Keyboard", Quantity: 2, Price: decimal.RequireFromString("100.50")},
		{Name: "Cable", Quantity: 3, Description: "USB-C", Price: decimal.RequireFromString("0.10")},
	}, now)
	if err != nil {
		t.Fatalf("expected valid order, got %v", err)
	}
	o.IdempotencyKey = "key-1"
	return o
}

func TestOrderDocument_KeepsExactMoney(t *testing.T) {
	o := sampleOrder(t)

	doc, err := toMongoOrder(o)
	if err != nil {
		t.Fatalf("expected encoding to succeed, got %v", err)
	}
	if doc.TotalAmount.String() != "201.30" {
		t.Fatalf("expected stored total 201.30, got %s", doc.TotalAmount.String())
	}

	back, err := doc.toDomain()
	if err != nil {
		t.Fatalf("expected decoding to succeed, got %v", err)
	}
	if !back.TotalAmount.Equal(o.TotalAmount) {
		t.Fatalf("expected total %s, got %s", o.TotalAmount, back.TotalAmount)
	}
	if !back.Items[1].Price.Equal(decimal.RequireFromString("0.10")) {
		t.Fatalf("expected price 0.10, got %s", back.Items[1].Price)
	}
	if back.Items[0].Quantity != 2 || back.Items[1].Description != "USB-C" {
		t.Fatalf("expected items to survive mapping, got %+v", back.Items)
	}
	if back.Status != domain.StatusCreated || len(back.StatusHistory) != 1 {
		t.Fatalf("expected CREATED with one history entry, got %s / %d", back.Status, len(back.StatusHistory))
	}
	if back.IdempotencyKey != "key-1" {
		t.Fatalf("expected idempotency key key-1, got %q", back.IdempotencyKey)
	}
}

func TestOrderDocument_QuantityStoredAsAmount(t *testing.T) {
	doc, err := toMongoOrder(sampleOrder(t))
	if err != nil {
		t.Fatalf("expected encoding to succeed, got %v", err)
	}
	raw, err := bson.Marshal(doc.Items[0])
	if err != nil {
		t.Fatalf("expected bson encoding, got %v", err)
	}
	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		t.Fatalf("expected bson decoding, got %v", err)
	}
	if _, ok := m["amount"]; !ok {
		t.Fatalf("expected an amount field, got %v", m)
	}
	if _, ok := m["price"].(primitive.Decimal128); !ok {
		t.Fatalf("expected price stored as Decimal128, got %T", m["price"])
	}
}

// ---------------------------------------------------------------------------
// Queries
// ---------------------------------------------------------------------------

func TestOrderListFilter(t *testing.T) {
	f := orderListFilter(ports.ListOrdersFilter{UserID: "u-1"})
	if len(f) != 1 || f["user_id"] != "u-1" {
		t.Fatalf("expected owner-only filter, got %v", f)
	}

	f = orderListFilter(ports.ListOrdersFilter{UserID: "u-1", Status: domain.StatusCompleted})
	if f["status"] != "COMPLETED" {
		t.Fatalf("expected status filter COMPLETED, got %v", f["status"])
	}
}

func TestOrderListSort(t *testing.T) {
	cases := []struct {
		in        ports.ListOrdersFilter
		wantField string
		wantDir   int
	}{
		{ports.ListOrdersFilter{SortBy: "created_at", Ascending: true}, "created_at", 1},
		{ports.ListOrdersFilter{SortBy: "total_amount"}, "total_amount", -1},
		{ports.ListOrdersFilter{SortBy: "updated_at", Ascending: true}, "updated_at", 1},
		{ports.ListOrdersFilter{SortBy: "password", Ascending: true}, "created_at", 1},
	}
	for _, tc := range cases {
		got := orderListSort(tc.in)
		if len(got) != 2 {
			t.Fatalf("expected primary and tie-break keys, got %v", got)
		}
		if got[0].Key != tc.wantField || got[0].Value != tc.wantDir {
			t.Fatalf("expected %s %d, got %s %v", tc.wantField, tc.wantDir, got[0].Key, got[0].Value)
		}
		if got[1].Key != "_id" {
			t.Fatalf("expected _id tie-break, got %s", got[1].Key)
		}
	}
}

func TestUserListFilter(t *testing.T) {
	f := userListFilter(ports.ListUsersFilter{})
	if len(f) != 0 {
		t.Fatalf("expected empty filter, got %v", f)
	}

	f = userListFilter(ports.ListUsersFilter{Search: "a.b+", Role: "admin"})
	if f["roles"] != "admin" {
		t.Fatalf("expected roles filter admin, got %v", f["roles"])
	}
	or, ok := f["$or"].(bson.A)
	if !ok || len(or) != 2 {
		t.Fatalf("expected $or over name and email, got %v", f["$or"])
	}
	re := or[0].(bson.M)["name"].(primitive.Regex)
	if re.Pattern != `a\.b\+` || re.Options != "i" {
		t.Fatalf("expected escaped case-insensitive pattern, got %+v", re)
	}
}

// ---------------------------------------------------------------------------
// Audit events
// ---------------------------------------------------------------------------

func TestEventID_OnePerOrderAndStatus(t *testing.T) {
	a := eventID(domain.OrderEvent{OrderID: "o-1", To: domain.StatusInProgress})
	b := eventID(domain.OrderEvent{OrderID: "o-1", To: domain.StatusInProgress, ActorID: "admin"})
	c := eventID(domain.OrderEvent{OrderID: "o-1", To: domain.StatusCompleted})

	if a != b {
		t.Fatalf("expected redelivered event to share id, got %q and %q", a, b)
	}
	if a == c {
		t.Fatalf("expected different statuses to differ, got %q", a)
	}
}
