package order

import "time"

// Event is a lifecycle notification published after a state change has been
// committed. Consumers live outside the core (mail, analytics, fulfilment).
type Event interface {
	EventName() string
	Order() string
}

type CreatedEvent struct {
	OrderID    string
	UserID     string
	TotalCents int64
	OccurredAt time.Time
}

func (CreatedEvent) EventName() string { return "order.created" }
func (e CreatedEvent) Order() string   { return e.OrderID }

func NewCreatedEvent(o *Order, now time.Time) CreatedEvent {
	return CreatedEvent{
		OrderID:    o.ID,
		UserID:     o.UserID,
		TotalCents: o.TotalCents,
		OccurredAt: now,
	}
}

// ShippedEvent is emitted when a payment confirmation wins the guarded
// Pending->Shipped transition.
type ShippedEvent struct {
	OrderID    string
	PaymentRef string
	OccurredAt time.Time
}

func (ShippedEvent) EventName() string { return "order.shipped" }
func (e ShippedEvent) Order() string   { return e.OrderID }

func NewShippedEvent(o *Order, now time.Time) ShippedEvent {
	return ShippedEvent{OrderID: o.ID, PaymentRef: o.PaymentRef, OccurredAt: now}
}

// CanceledEvent is emitted when the expiration sweep cancels a stale order.
type CanceledEvent struct {
	OrderID    string
	Reason     string
	OccurredAt time.Time
}

func (CanceledEvent) EventName() string { return "order.canceled" }
func (e CanceledEvent) Order() string   { return e.OrderID }

func NewCanceledEvent(o *Order, reason string, now time.Time) CanceledEvent {
	return CanceledEvent{OrderID: o.ID, Reason: reason, OccurredAt: now}
}
