// Package outbox provides an in-memory event bus for single-process
// deployments. It is not durable; production setups should publish to
// Kafka instead and dispatch from a consumer.
package outbox

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	"go.uber.org/zap"

	"shopcore/internal/domain/order"
	"shopcore/internal/pkg/logging"
)

// Handler consumes a single event. Errors are logged, not retried.
type Handler func(ctx context.Context, e order.Event) error

// Bus fans published events out to subscribed handlers on a background
// goroutine with a bounded queue.
type Bus struct {
	mu          sync.RWMutex
	subs        map[string][]Handler
	queue       chan order.Event
	startOnce   sync.Once
	stopOnce    sync.Once
	cancel      context.CancelFunc
	concurrency int
	log         *zap.Logger
}

func NewBus(log *zap.Logger) *Bus {
	return &Bus{
		subs:        make(map[string][]Handler),
		queue:       make(chan order.Event, 1024),
		concurrency: 8,
		log:         log.With(zap.String("component", "outbox")),
	}
}

func (b *Bus) Subscribe(eventName string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[eventName] = append(b.subs[eventName], h)
}

func (b *Bus) Start(ctx context.Context) {
	b.startOnce.Do(func() {
		bg, cancel := context.WithCancel(ctx)
		b.cancel = cancel
		go b.dispatchLoop(bg)
		b.log.Info("event_bus_started")
	})
}

func (b *Bus) Stop(context.Context) {
	b.stopOnce.Do(func() {
		if b.cancel != nil {
			b.cancel()
		}
		close(b.queue)
		b.log.Info("event_bus_stopped")
	})
}

func (b *Bus) Publish(ctx context.Context, e order.Event) error {
	if e == nil {
		return nil
	}
	select {
	case b.queue <- e:
		logging.FromContext(ctx).Debug("event_enqueued", zap.String("event", e.EventName()))
		return nil
	case <-ctx.Done():
		logging.FromContext(ctx).Warn("event_enqueue_aborted",
			zap.String("event", e.EventName()),
			zap.Error(ctx.Err()),
		)
		return ctx.Err()
	}
}

func (b *Bus) dispatchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-b.queue:
			if !ok {
				return
			}
			b.fanout(ctx, e)
		}
	}
}

func (b *Bus) fanout(ctx context.Context, e order.Event) {
	name := e.EventName()

	b.mu.RLock()
	handlers := append([]Handler(nil), b.subs[name]...)
	b.mu.RUnlock()

	if len(handlers) == 0 {
		b.log.Debug("event_dropped_no_subscriber", zap.String("event", name))
		return
	}

	ctx = context.WithoutCancel(ctx)
	log := b.log.With(zap.String("event", name))

	sem := make(chan struct{}, b.concurrency)
	var wg sync.WaitGroup

	for _, h := range handlers {
		h := h
		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					log.Error("event_handler_panic",
						zap.Any("panic", r),
						zap.String("stack", string(debug.Stack())),
					)
				}
				<-sem
				wg.Done()
			}()

			hctx, cancel := context.WithTimeout(ctx, 30*time.Second)
			hctx = logging.ContextWithLogger(hctx, log)
			err := h(hctx, e)
			cancel()
			if err != nil {
				log.Warn("event_handler_error", zap.Error(err))
			}
		}()
	}

	wg.Wait()

	log.Debug("event_fanned_out", zap.Int("handlers", len(handlers)))
}
