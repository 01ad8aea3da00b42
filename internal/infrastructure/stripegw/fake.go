package stripegw

import (
	"context"
	"fmt"

	dompay "shopcore/internal/domain/payment"
)

// FakeGateway returns canned intents without touching the network.
// Used in development mode and in tests that only need a succeeding path.
type FakeGateway struct {
	// Fail makes every call return a gateway error.
	Fail bool
}

func NewFake() *FakeGateway { return &FakeGateway{} }

func (f *FakeGateway) CreateIntent(_ context.Context, req dompay.IntentRequest) (dompay.Intent, error) {
	if f.Fail {
		return dompay.Intent{}, fmt.Errorf("%w: fake gateway configured to fail", dompay.ErrGateway)
	}
	return dompay.Intent{
		OrderID:      req.OrderID,
		ClientSecret: "fake_secret_" + req.OrderID,
		ProviderRef:  "fake_pi_" + req.OrderID,
		AmountCents:  req.AmountCents,
	}, nil
}
