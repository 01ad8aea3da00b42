package order

import (
	"errors"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	o, err := New("order-1", "user-1", "key", []Line{
		{ProductID: "p1", Quantity: 2, UnitPriceCents: 500},
		{ProductID: "p2", Quantity: 1, UnitPriceCents: 1500},
	}, now)
	if err != nil {
		t.Fatal(err)
	}
	if o.TotalCents != 2500 {
		t.Errorf("total = %d, want 2500", o.TotalCents)
	}
	if o.Status != StatusPending {
		t.Errorf("status = %s, want Pending", o.Status)
	}

	if _, err := New("order-2", "user-1", "", nil, now); !errors.Is(err, ErrNoLines) {
		t.Errorf("no lines: want ErrNoLines, got %v", err)
	}
	if _, err := New("order-3", "user-1", "", []Line{{ProductID: "p1", Quantity: 0, UnitPriceCents: 1}}, now); !errors.Is(err, ErrInvalidQuantity) {
		t.Errorf("zero quantity: want ErrInvalidQuantity, got %v", err)
	}
	if _, err := New("order-4", "user-1", "", []Line{{ProductID: "p1", Quantity: 1, UnitPriceCents: -1}}, now); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("negative price: want ErrInvalidAmount, got %v", err)
	}
}

func TestCanTransition(t *testing.T) {
	allowed := map[[2]Status]bool{
		{StatusPending, StatusShipped}:   true,
		{StatusPending, StatusCanceled}:  true,
		{StatusShipped, StatusDelivered}: true,
	}
	statuses := []Status{StatusPending, StatusShipped, StatusDelivered, StatusCanceled}
	for _, from := range statuses {
		for _, to := range statuses {
			want := allowed[[2]Status{from, to}]
			if got := CanTransition(from, to); got != want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestTerminal(t *testing.T) {
	for s, want := range map[Status]bool{
		StatusPending:   false,
		StatusShipped:   false,
		StatusDelivered: true,
		StatusCanceled:  true,
	} {
		if got := s.Terminal(); got != want {
			t.Errorf("%s.Terminal() = %v, want %v", s, got, want)
		}
	}
}

func TestDeletable(t *testing.T) {
	o := &Order{Status: StatusPending}
	if !o.Deletable() {
		t.Error("pending order must be deletable")
	}
	for _, s := range []Status{StatusShipped, StatusDelivered} {
		o.Status = s
		if o.Deletable() {
			t.Errorf("%s order must not be deletable", s)
		}
	}
	o.Status = StatusCanceled
	if !o.Deletable() {
		t.Error("canceled order must be deletable")
	}
}

func TestCloneIsolation(t *testing.T) {
	o, err := New("order-1", "user-1", "", []Line{{ProductID: "p1", Quantity: 1, UnitPriceCents: 100}}, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	clone := o.Clone()
	clone.Lines[0].Quantity = 99
	clone.Status = StatusShipped
	if o.Lines[0].Quantity != 1 || o.Status != StatusPending {
		t.Error("clone shares state with the original")
	}
}

func TestParseStatus(t *testing.T) {
	if s, ok := ParseStatus("Shipped"); !ok || s != StatusShipped {
		t.Errorf("ParseStatus(Shipped) = %v %v", s, ok)
	}
	if _, ok := ParseStatus("shipped"); ok {
		t.Error("status values are case sensitive")
	}
	if _, ok := ParseStatus("Teleported"); ok {
		t.Error("unknown status accepted")
	}
}
