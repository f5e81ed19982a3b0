package domain

import "time"

// OrderEvent is an audit record of an order entering a status. From is empty
// for the creation event.
type OrderEvent struct {
	OrderID   string
	OwnerID   string
	ActorID   string
	From      OrderStatus
	To        OrderStatus
	Timestamp time.Time
}
