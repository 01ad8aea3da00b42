package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"shopcore/internal/clock"
	domcat "shopcore/internal/domain/catalog"
	dominv "shopcore/internal/domain/inventory"
	domain "shopcore/internal/domain/order"
	dompay "shopcore/internal/domain/payment"
	"shopcore/internal/pkg/logging"
)

var (
	ErrUnauthorized = errors.New("order: requester does not own this order")
	ErrNotPending   = errors.New("order: not pending")
	// ErrRejected covers confirmations that must not ship the order: a
	// non-success provider status, or a guarded transition lost to a
	// concurrent sweep or earlier confirmation.
	ErrRejected = errors.New("payment: confirmation rejected")
)

const publishTimeout = 300 * time.Millisecond

// Coordinator orchestrates the order lifecycle: all-or-nothing reservation,
// pending persist, payment intent hand-off, confirmation reconciliation and
// the expiration sweep. It owns no persistent state of its own.
type Coordinator struct {
	orders  domain.Repository
	ledger  dominv.Ledger
	catalog domcat.Source
	gateway dompay.Gateway

	ids       IDGenerator
	publisher Publisher
	clk       clock.Clock
	currency  string
	cutoff    time.Duration

	metrics *Metrics
	tracer  trace.Tracer
}

func NewCoordinator(
	orders domain.Repository,
	ledger dominv.Ledger,
	catalog domcat.Source,
	gateway dompay.Gateway,
	ids IDGenerator,
	publisher Publisher,
	clk clock.Clock,
	currency string,
	cutoff time.Duration,
	metrics *Metrics,
) *Coordinator {
	return &Coordinator{
		orders:    orders,
		ledger:    ledger,
		catalog:   catalog,
		gateway:   gateway,
		ids:       ids,
		publisher: publisher,
		clk:       clk,
		currency:  currency,
		cutoff:    cutoff,
		metrics:   metrics,
		tracer:    otel.Tracer("shopcore.order"),
	}
}

type LineInput struct {
	ProductID string
	Quantity  int
}

type CreateOrderInput struct {
	UserID         string
	IdempotencyKey string
	Lines          []LineInput
}

type CreateOrderResult struct {
	OrderID    string
	TotalCents int64
	Status     domain.Status
}

// CreateOrder reserves stock for every line, snapshots unit prices and
// persists the order as Pending. Reservation is all-or-nothing: the first
// failing line rolls back everything reserved earlier in this request.
func (c *Coordinator) CreateOrder(ctx context.Context, in CreateOrderInput) (_ *CreateOrderResult, err error) {
	const op = "order.create"
	ctx, span := c.tracer.Start(ctx, "CreateOrder",
		trace.WithAttributes(attribute.String("order.user_id", in.UserID)))
	defer c.finish(op, span, time.Now(), &err)

	logger := logging.FromContext(ctx).With(zap.String("operation", op))

	if in.UserID == "" {
		return nil, fmt.Errorf("validation: %w", errors.New("user id is required"))
	}
	if len(in.Lines) == 0 {
		return nil, fmt.Errorf("validation: %w", domain.ErrNoLines)
	}
	for _, l := range in.Lines {
		if l.Quantity <= 0 {
			return nil, fmt.Errorf("validation: %w", domain.ErrInvalidQuantity)
		}
	}

	if in.IdempotencyKey != "" {
		existing, lookupErr := c.orders.FindByIdempotency(ctx, in.UserID, in.IdempotencyKey)
		switch {
		case lookupErr == nil:
			span.AddEvent("order.idempotent_replay",
				trace.WithAttributes(attribute.String("order.id", existing.ID)))
			return &CreateOrderResult{OrderID: existing.ID, TotalCents: existing.TotalCents, Status: existing.Status}, nil
		case errors.Is(lookupErr, domain.ErrNotFound):
			// continue
		default:
			return nil, fmt.Errorf("order: idempotency lookup: %w", lookupErr)
		}
	}

	// Reserve line by line, keeping track of what to roll back.
	lines := make([]domain.Line, 0, len(in.Lines))
	reserved := make([]domain.Line, 0, len(in.Lines))
	rollback := func() {
		// Nothing persists the reservation once this request fails, so the
		// release must outlive a canceled request context.
		rctx := context.WithoutCancel(ctx)
		for _, l := range reserved {
			if relErr := c.ledger.Release(rctx, l.ProductID, l.Quantity); relErr != nil {
				logger.Error("reservation_rollback_failed",
					zap.String("product_id", l.ProductID),
					zap.Int("quantity", l.Quantity),
					zap.Error(relErr),
				)
			}
		}
	}

	for _, l := range in.Lines {
		product, prodErr := c.catalog.Product(ctx, l.ProductID)
		if prodErr != nil {
			rollback()
			return nil, prodErr
		}
		if resErr := c.ledger.TryReserve(ctx, l.ProductID, l.Quantity); resErr != nil {
			rollback()
			return nil, resErr
		}
		line := domain.Line{ProductID: l.ProductID, Quantity: l.Quantity, UnitPriceCents: product.PriceCents}
		reserved = append(reserved, line)
		lines = append(lines, line)
	}

	entity, newErr := domain.New(c.ids.NewID(), in.UserID, in.IdempotencyKey, lines, c.clk.Now())
	if newErr != nil {
		rollback()
		return nil, newErr
	}

	if insErr := c.orders.Insert(ctx, entity); insErr != nil {
		if errors.Is(insErr, domain.ErrConflict) && in.IdempotencyKey != "" {
			// A concurrent retry with the same key won; hand back its order.
			if existing, lookupErr := c.orders.FindByIdempotency(ctx, in.UserID, in.IdempotencyKey); lookupErr == nil {
				rollback()
				return &CreateOrderResult{OrderID: existing.ID, TotalCents: existing.TotalCents, Status: existing.Status}, nil
			}
		}
		rollback()
		return nil, fmt.Errorf("order: insert: %w", insErr)
	}

	c.publish(ctx, logger, domain.NewCreatedEvent(entity, c.clk.Now()))

	span.SetAttributes(attribute.String("order.id", entity.ID))
	logger.Info("order_created",
		zap.String("order_id", entity.ID),
		zap.Int64("total_cents", entity.TotalCents),
		zap.Int("lines", len(entity.Lines)),
	)
	return &CreateOrderResult{OrderID: entity.ID, TotalCents: entity.TotalCents, Status: entity.Status}, nil
}

// RequestPayment re-validates ownership and state, then asks the gateway for
// a payment intent over the order's stored total. The amount is never taken
// from the caller.
func (c *Coordinator) RequestPayment(ctx context.Context, orderID, userID, method string) (_ dompay.Intent, err error) {
	const op = "order.request_payment"
	ctx, span := c.tracer.Start(ctx, "RequestPayment",
		trace.WithAttributes(attribute.String("order.id", orderID)))
	defer c.finish(op, span, time.Now(), &err)

	logger := logging.FromContext(ctx).With(
		zap.String("operation", op),
		zap.String("order_id", orderID),
	)

	o, getErr := c.orders.Get(ctx, orderID)
	if getErr != nil {
		return dompay.Intent{}, getErr
	}
	if o.UserID != userID {
		return dompay.Intent{}, ErrUnauthorized
	}
	if o.Status != domain.StatusPending {
		return dompay.Intent{}, ErrNotPending
	}

	intent, gwErr := c.gateway.CreateIntent(ctx, dompay.IntentRequest{
		OrderID:     o.ID,
		AmountCents: o.TotalCents,
		Currency:    c.currency,
		Method:      method,
	})
	if gwErr != nil {
		logger.Warn("payment_intent_failed", zap.Error(gwErr))
		return dompay.Intent{}, gwErr
	}

	// At most one active intent per pending order: the newest replaces any
	// earlier unresolved one.
	if refErr := c.orders.SetPaymentRef(ctx, o.ID, intent.ProviderRef); refErr != nil {
		return dompay.Intent{}, refErr
	}

	logger.Info("payment_intent_created", zap.String("provider_ref", intent.ProviderRef))
	return intent, nil
}

// ConfirmPayment reconciles the provider's outcome into order state. Only an
// explicit "succeeded" signal ships the order; everything else leaves it
// Pending for a retry or the sweeper, reported as ErrRejected.
func (c *Coordinator) ConfirmPayment(ctx context.Context, orderID, providerStatus string) (err error) {
	const op = "order.confirm_payment"
	ctx, span := c.tracer.Start(ctx, "ConfirmPayment",
		trace.WithAttributes(
			attribute.String("order.id", orderID),
			attribute.String("payment.provider_status", providerStatus),
		))
	defer c.finish(op, span, time.Now(), &err)

	logger := logging.FromContext(ctx).With(
		zap.String("operation", op),
		zap.String("order_id", orderID),
	)

	if providerStatus != dompay.StatusSucceeded {
		logger.Info("payment_not_succeeded", zap.String("provider_status", providerStatus))
		return fmt.Errorf("%w: provider status %q", ErrRejected, providerStatus)
	}

	transErr := c.orders.Transition(ctx, orderID, domain.StatusPending, domain.StatusShipped)
	switch {
	case transErr == nil:
		// fall through to event publication
	case errors.Is(transErr, domain.ErrNotFound):
		return transErr
	case errors.Is(transErr, domain.ErrConflict):
		// The order already left Pending. A confirmation arriving after the
		// sweeper canceled the order means the customer may have been
		// charged after cancellation; surface it loudly for reconciliation.
		if o, getErr := c.orders.Get(ctx, orderID); getErr == nil && o.Status == domain.StatusCanceled {
			logger.Warn("payment_after_cancel",
				zap.String("provider_status", providerStatus),
				zap.String("payment_ref", o.PaymentRef),
			)
		}
		return fmt.Errorf("%w: already processed", ErrRejected)
	default:
		return transErr
	}

	if o, getErr := c.orders.Get(ctx, orderID); getErr == nil {
		c.publish(ctx, logger, domain.NewShippedEvent(o, c.clk.Now()))
	}

	logger.Info("order_shipped")
	return nil
}

// MarkDelivered completes fulfilment through the guarded Shipped->Delivered
// transition.
func (c *Coordinator) MarkDelivered(ctx context.Context, orderID string) (err error) {
	const op = "order.mark_delivered"
	ctx, span := c.tracer.Start(ctx, "MarkDelivered",
		trace.WithAttributes(attribute.String("order.id", orderID)))
	defer c.finish(op, span, time.Now(), &err)

	return c.orders.Transition(ctx, orderID, domain.StatusShipped, domain.StatusDelivered)
}

// SweepExpired cancels every order still Pending past the grace period and
// releases its reservation. Inventory is released only after the guarded
// transition wins, so a concurrent confirmation can never be double-counted.
func (c *Coordinator) SweepExpired(ctx context.Context) (swept int, err error) {
	const op = "order.sweep_expired"
	ctx, span := c.tracer.Start(ctx, "SweepExpired")
	defer c.finish(op, span, time.Now(), &err)

	logger := logging.FromContext(ctx).With(zap.String("operation", op))

	cutoff := c.clk.Now().Add(-c.cutoff)
	stale, listErr := c.orders.ListPendingBefore(ctx, cutoff)
	if listErr != nil {
		return 0, fmt.Errorf("order: list pending: %w", listErr)
	}

	for _, o := range stale {
		transErr := c.orders.Transition(ctx, o.ID, domain.StatusPending, domain.StatusCanceled)
		if errors.Is(transErr, domain.ErrConflict) || errors.Is(transErr, domain.ErrNotFound) {
			// Lost the race to a confirmation or another sweep pass.
			continue
		}
		if transErr != nil {
			return swept, transErr
		}

		// The order is already Canceled and will never be listed again; the
		// release must not die with the request context.
		relCtx := context.WithoutCancel(ctx)
		for _, l := range o.Lines {
			if relErr := c.ledger.Release(relCtx, l.ProductID, l.Quantity); relErr != nil {
				logger.Error("sweep_release_failed",
					zap.String("order_id", o.ID),
					zap.String("product_id", l.ProductID),
					zap.Error(relErr),
				)
			}
		}
		c.publish(ctx, logger, domain.NewCanceledEvent(o, "expired", c.clk.Now()))
		swept++

		logger.Info("order_expired",
			zap.String("order_id", o.ID),
			zap.Time("ordered_at", o.OrderedAt),
		)
	}

	c.metrics.swept(swept)
	span.SetAttributes(attribute.Int("sweep.canceled", swept))
	return swept, nil
}

// Get returns one order, sweeping first so callers never observe a stale
// pending order past its deadline.
func (c *Coordinator) Get(ctx context.Context, orderID string) (*domain.Order, error) {
	if _, err := c.SweepExpired(ctx); err != nil {
		return nil, err
	}
	return c.orders.Get(ctx, orderID)
}

// List returns all orders, sweeping first.
func (c *Coordinator) List(ctx context.Context) ([]*domain.Order, error) {
	if _, err := c.SweepExpired(ctx); err != nil {
		return nil, err
	}
	return c.orders.List(ctx)
}

// OverrideStatus is the administrative direct-set. It bypasses the guarded
// state machine; the caller is responsible for consistency.
func (c *Coordinator) OverrideStatus(ctx context.Context, orderID string, to domain.Status) (err error) {
	const op = "order.override_status"
	ctx, span := c.tracer.Start(ctx, "OverrideStatus",
		trace.WithAttributes(
			attribute.String("order.id", orderID),
			attribute.String("order.status", string(to)),
		))
	defer c.finish(op, span, time.Now(), &err)

	logging.FromContext(ctx).Warn("order_status_override",
		zap.String("order_id", orderID),
		zap.String("status", string(to)),
	)
	return c.orders.Override(ctx, orderID, to)
}

// ReplaceLines swaps an order's lines wholesale, re-snapshotting prices at
// edit time. Administrative edit; inventory is deliberately not touched.
func (c *Coordinator) ReplaceLines(ctx context.Context, orderID string, in []LineInput) (err error) {
	const op = "order.replace_lines"
	ctx, span := c.tracer.Start(ctx, "ReplaceLines",
		trace.WithAttributes(attribute.String("order.id", orderID)))
	defer c.finish(op, span, time.Now(), &err)

	if len(in) == 0 {
		return fmt.Errorf("validation: %w", domain.ErrNoLines)
	}
	lines := make([]domain.Line, 0, len(in))
	for _, l := range in {
		if l.Quantity <= 0 {
			return fmt.Errorf("validation: %w", domain.ErrInvalidQuantity)
		}
		product, prodErr := c.catalog.Product(ctx, l.ProductID)
		if prodErr != nil {
			return prodErr
		}
		lines = append(lines, domain.Line{ProductID: l.ProductID, Quantity: l.Quantity, UnitPriceCents: product.PriceCents})
	}
	return c.orders.ReplaceLines(ctx, orderID, lines)
}

// Delete removes an order administratively. Shipped and delivered orders
// are refused.
func (c *Coordinator) Delete(ctx context.Context, orderID string) (err error) {
	const op = "order.delete"
	ctx, span := c.tracer.Start(ctx, "DeleteOrder",
		trace.WithAttributes(attribute.String("order.id", orderID)))
	defer c.finish(op, span, time.Now(), &err)

	return c.orders.Delete(ctx, orderID)
}

func (c *Coordinator) publish(ctx context.Context, logger *zap.Logger, e domain.Event) {
	if c.publisher == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := c.publisher.Publish(pubCtx, e); err != nil {
		logger.Warn("event_publish_failed",
			zap.String("event", e.EventName()),
			zap.String("order_id", e.Order()),
			zap.Error(err),
		)
	}
}

func (c *Coordinator) finish(op string, span trace.Span, start time.Time, err *error) {
	outcome := "success"
	if err != nil && *err != nil {
		outcome = "error"
		span.RecordError(*err)
		span.SetStatus(codes.Error, (*err).Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
	c.metrics.observe(op, outcome, time.Since(start).Seconds())
}
