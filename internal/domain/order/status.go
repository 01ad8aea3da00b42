package order

type Status string

const (
	StatusPending   Status = "Pending"
	StatusShipped   Status = "Shipped"
	StatusDelivered Status = "Delivered"
	StatusCanceled  Status = "Canceled"
)

// validNext is the closed transition table of the core flows. Shipped,
// Delivered and Canceled are terminal with respect to payment confirmation
// and expiration; only the administrative override may leave them.
var validNext = map[Status]map[Status]bool{
	StatusPending:   {StatusShipped: true, StatusCanceled: true},
	StatusShipped:   {StatusDelivered: true},
	StatusDelivered: {},
	StatusCanceled:  {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

// ParseStatus maps a wire value onto the closed enum.
func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusPending, StatusShipped, StatusDelivered, StatusCanceled:
		return Status(s), true
	}
	return "", false
}

func (s Status) Terminal() bool {
	return len(validNext[s]) == 0
}
