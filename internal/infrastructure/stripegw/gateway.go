// Package stripegw adapts the external payment processor's intent API.
// The processor is untrusted but authoritative for payment truth: every
// fault here becomes payment.ErrGateway and never corrupts local state.
package stripegw

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"shopcore/internal/config"
	dompay "shopcore/internal/domain/payment"
	"shopcore/internal/pkg/logging"
)

const intentPath = "/v1/payment_intents"

// Gateway creates payment intents over HTTP with a bounded timeout.
type Gateway struct {
	baseURL   string
	secretKey string
	timeout   time.Duration
	client    *http.Client
}

func New(cfg config.GatewayConfig) *Gateway {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Gateway{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		secretKey: cfg.SecretKey,
		timeout:   timeout,
		client:    &http.Client{Timeout: timeout},
	}
}

type intentResponse struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
}

func (g *Gateway) CreateIntent(ctx context.Context, req dompay.IntentRequest) (dompay.Intent, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(req.AmountCents, 10))
	form.Set("currency", req.Currency)
	form.Set("payment_method_types[]", req.Method)
	form.Set("description", "Payment for order "+req.OrderID)

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+intentPath, strings.NewReader(form.Encode()))
	if err != nil {
		return dompay.Intent{}, fmt.Errorf("%w: %v", dompay.ErrGateway, err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+g.secretKey)
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		logging.FromContext(ctx).Warn("gateway_request_failed", zap.Error(err))
		return dompay.Intent{}, fmt.Errorf("%w: %v", dompay.ErrGateway, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return dompay.Intent{}, fmt.Errorf("%w: provider returned %d", dompay.ErrGateway, resp.StatusCode)
	}

	var body intentResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return dompay.Intent{}, fmt.Errorf("%w: decode response: %v", dompay.ErrGateway, err)
	}
	if body.ClientSecret == "" {
		return dompay.Intent{}, fmt.Errorf("%w: response missing client secret", dompay.ErrGateway)
	}

	return dompay.Intent{
		OrderID:      req.OrderID,
		ClientSecret: body.ClientSecret,
		ProviderRef:  body.ID,
		AmountCents:  req.AmountCents,
	}, nil
}
