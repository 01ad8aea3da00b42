package order

import (
	"errors"
	"time"
)

var (
	ErrNotFound        = errors.New("order: not found")
	ErrConflict        = errors.New("order: status conflict")
	ErrNoLines         = errors.New("order: at least one line is required")
	ErrInvalidQuantity = errors.New("order: quantity must be greater than zero")
	ErrInvalidAmount   = errors.New("order: amount must be zero or greater")
	ErrNotDeletable    = errors.New("order: shipped or delivered orders cannot be deleted")
)

// Line is one product position of an order. The unit price is snapshotted at
// order-creation time; later catalog price changes never alter it.
type Line struct {
	ProductID      string
	Quantity       int
	UnitPriceCents int64
}

type Order struct {
	ID     string
	UserID string
	Status Status
	// TotalCents is always the sum of Quantity*UnitPriceCents over Lines.
	TotalCents int64
	// PaymentRef is the provider-side identifier of the most recent payment
	// intent, kept for reconciliation. Empty until payment is requested.
	PaymentRef     string
	IdempotencyKey string
	Lines          []Line
	OrderedAt      time.Time
	UpdatedAt      time.Time
}

// New builds a Pending order from snapshotted lines.
func New(id, userID, idempotencyKey string, lines []Line, now time.Time) (*Order, error) {
	if len(lines) == 0 {
		return nil, ErrNoLines
	}
	total, err := SumLines(lines)
	if err != nil {
		return nil, err
	}
	return &Order{
		ID:             id,
		UserID:         userID,
		Status:         StatusPending,
		TotalCents:     total,
		IdempotencyKey: idempotencyKey,
		Lines:          append([]Line(nil), lines...),
		OrderedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// SumLines validates every line and returns the order total.
func SumLines(lines []Line) (int64, error) {
	var total int64
	for _, l := range lines {
		if l.Quantity <= 0 {
			return 0, ErrInvalidQuantity
		}
		if l.UnitPriceCents < 0 {
			return 0, ErrInvalidAmount
		}
		total += int64(l.Quantity) * l.UnitPriceCents
	}
	return total, nil
}

func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	clone := *o
	clone.Lines = append([]Line(nil), o.Lines...)
	return &clone
}

// Deletable reports whether an administrative delete may remove the order.
func (o *Order) Deletable() bool {
	return o.Status != StatusShipped && o.Status != StatusDelivered
}
