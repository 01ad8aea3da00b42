package payment

import (
	"context"
	"errors"
)

var (
	// ErrGateway covers every external-processor fault: unreachable,
	// timed out, or a non-2xx answer. Retryable; the order stays Pending.
	ErrGateway = errors.New("payment: gateway error")
)

// Provider status signals as reported back by the processor. Only
// StatusSucceeded may move an order out of Pending.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
	StatusCanceled  = "canceled"
)

// IntentRequest asks the processor to prepare a payment. AmountCents is in
// minor currency units and is taken from the stored order, never from the
// client.
type IntentRequest struct {
	OrderID     string
	AmountCents int64
	Currency    string
	Method      string
}

// Intent is the processor's answer: an opaque client secret for the caller
// to complete payment with, and the provider-side reference we keep for
// reconciliation. Not persisted beyond that reference.
type Intent struct {
	OrderID      string
	ClientSecret string
	ProviderRef  string
	AmountCents  int64
}

// Gateway wraps the external payment-intent API. Implementations must bound
// the call with a timeout and translate any fault into ErrGateway.
type Gateway interface {
	CreateIntent(ctx context.Context, req IntentRequest) (Intent, error)
}
