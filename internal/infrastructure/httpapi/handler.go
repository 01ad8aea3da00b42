// Package httpapi is the HTTP transport over the order coordinator.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apporder "shopcore/internal/application/order"
	"shopcore/internal/domain/order"
)

type Handler struct {
	orders *apporder.Coordinator
	secret string
	log    *zap.Logger
}

func NewHandler(orders *apporder.Coordinator, jwtSecret string, log *zap.Logger) *Handler {
	return &Handler{
		orders: orders,
		secret: jwtSecret,
		log:    log.With(zap.String("component", "http_server")),
	}
}

// Router assembles the middleware chain and routes. Gatherer serves
// /metrics; pass the same registry the vectors were registered on.
func (h *Handler) Router(m *Metrics, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()

	r.Use(serverTrace)
	r.Use(requestLogger(h.log))
	r.Use(observe(m))

	r.Get("/healthz", h.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	// Provider-facing confirmation callback. Authenticity is asserted by
	// the caller's channel, not a user token.
	r.Post("/orders/{id}/confirm", h.handleConfirmPayment)

	r.Group(func(r chi.Router) {
		r.Use(authenticate(h.secret))

		r.Post("/orders", h.handleCreateOrder)
		r.Post("/orders/{id}/payment", h.handleRequestPayment)

		r.Group(func(r chi.Router) {
			r.Use(requireAdmin)

			r.Get("/orders", h.handleListOrders)
			r.Get("/orders/{id}", h.handleGetOrder)
			r.Post("/orders/{id}/delivered", h.handleMarkDelivered)
			r.Put("/orders/{id}/status", h.handleOverrideStatus)
			r.Put("/orders/{id}", h.handleReplaceLines)
			r.Delete("/orders/{id}", h.handleDeleteOrder)
		})
	})

	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type lineRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type createOrderRequest struct {
	IdempotencyKey string        `json:"idempotency_key"`
	Lines          []lineRequest `json:"lines"`
}

type createOrderResponse struct {
	OrderID    string       `json:"order_id"`
	TotalCents int64        `json:"total_cents"`
	Status     order.Status `json:"status"`
}

func (h *Handler) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	lines := make([]apporder.LineInput, 0, len(req.Lines))
	for _, l := range req.Lines {
		lines = append(lines, apporder.LineInput{ProductID: l.ProductID, Quantity: l.Quantity})
	}

	result, err := h.orders.CreateOrder(r.Context(), apporder.CreateOrderInput{
		UserID:         claimsFromContext(r.Context()).UserID,
		IdempotencyKey: req.IdempotencyKey,
		Lines:          lines,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, createOrderResponse{
		OrderID:    result.OrderID,
		TotalCents: result.TotalCents,
		Status:     result.Status,
	})
}

type requestPaymentRequest struct {
	Method string `json:"method"`
}

type requestPaymentResponse struct {
	OrderID      string `json:"order_id"`
	ClientSecret string `json:"client_secret"`
	AmountCents  int64  `json:"amount_cents"`
}

func (h *Handler) handleRequestPayment(w http.ResponseWriter, r *http.Request) {
	var req requestPaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Method == "" {
		req.Method = "card"
	}

	intent, err := h.orders.RequestPayment(r.Context(),
		chi.URLParam(r, "id"), claimsFromContext(r.Context()).UserID, req.Method)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, requestPaymentResponse{
		OrderID:      intent.OrderID,
		ClientSecret: intent.ClientSecret,
		AmountCents:  intent.AmountCents,
	})
}

type confirmPaymentRequest struct {
	Status string `json:"status"`
}

func (h *Handler) handleConfirmPayment(w http.ResponseWriter, r *http.Request) {
	var req confirmPaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	// Shipping requires an explicit provider signal; absence is not success.
	if req.Status == "" {
		writeError(w, http.StatusBadRequest, errors.New("provider status is required"))
		return
	}

	if err := h.orders.ConfirmPayment(r.Context(), chi.URLParam(r, "id"), req.Status); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(order.StatusShipped)})
}

type orderResponse struct {
	OrderID    string         `json:"order_id"`
	UserID     string         `json:"user_id"`
	Status     order.Status   `json:"status"`
	TotalCents int64          `json:"total_cents"`
	PaymentRef string         `json:"payment_ref,omitempty"`
	OrderedAt  string         `json:"ordered_at"`
	Lines      []lineResponse `json:"lines"`
}

type lineResponse struct {
	ProductID      string `json:"product_id"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
}

func toOrderResponse(o *order.Order) orderResponse {
	lines := make([]lineResponse, 0, len(o.Lines))
	for _, l := range o.Lines {
		lines = append(lines, lineResponse{
			ProductID:      l.ProductID,
			Quantity:       l.Quantity,
			UnitPriceCents: l.UnitPriceCents,
		})
	}
	return orderResponse{
		OrderID:    o.ID,
		UserID:     o.UserID,
		Status:     o.Status,
		TotalCents: o.TotalCents,
		PaymentRef: o.PaymentRef,
		OrderedAt:  o.OrderedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		Lines:      lines,
	}
}

func (h *Handler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.List(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderResponse(o))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

func (h *Handler) handleMarkDelivered(w http.ResponseWriter, r *http.Request) {
	if err := h.orders.MarkDelivered(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(order.StatusDelivered)})
}

type overrideStatusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) handleOverrideStatus(w http.ResponseWriter, r *http.Request) {
	var req overrideStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	status, ok := order.ParseStatus(req.Status)
	if !ok {
		writeError(w, http.StatusBadRequest, errors.New("unknown status "+req.Status))
		return
	}

	if err := h.orders.OverrideStatus(r.Context(), chi.URLParam(r, "id"), status); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(status)})
}

type replaceLinesRequest struct {
	Lines []lineRequest `json:"lines"`
}

func (h *Handler) handleReplaceLines(w http.ResponseWriter, r *http.Request) {
	var req replaceLinesRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	lines := make([]apporder.LineInput, 0, len(req.Lines))
	for _, l := range req.Lines {
		lines = append(lines, apporder.LineInput{ProductID: l.ProductID, Quantity: l.Quantity})
	}

	if err := h.orders.ReplaceLines(r.Context(), chi.URLParam(r, "id"), lines); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDeleteOrder(w http.ResponseWriter, r *http.Request) {
	if err := h.orders.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return errors.New("invalid request body")
	}
	return nil
}
