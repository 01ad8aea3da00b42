package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	apporder "shopcore/internal/application/order"
	"shopcore/internal/clock"
	"shopcore/internal/config"
	"shopcore/internal/domain/catalog"
	"shopcore/internal/domain/inventory"
	domorder "shopcore/internal/domain/order"
	dompay "shopcore/internal/domain/payment"
	"shopcore/internal/infrastructure/httpapi"
	"shopcore/internal/infrastructure/id"
	"shopcore/internal/infrastructure/kafkax"
	"shopcore/internal/infrastructure/memory"
	"shopcore/internal/infrastructure/outbox"
	"shopcore/internal/infrastructure/postgres"
	"shopcore/internal/infrastructure/redisx"
	"shopcore/internal/infrastructure/stripegw"
	"shopcore/internal/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger := logging.MustNewLogger(cfg.ServiceName, cfg.Env)
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		logger.Fatal("trace_exporter_init_failed", zap.Error(err))
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp))
	otel.SetTracerProvider(tp)
	defer func() { _ = tp.Shutdown(context.Background()) }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clk := clock.NewSystem()

	// Storage: pgx-backed when a DSN is configured, in-memory otherwise.
	var (
		orderRepo domorder.Repository
		ledger    inventory.Ledger
		products  catalog.Source
	)
	if cfg.PostgresDSN != "" {
		pool, err := postgres.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			logger.Fatal("postgres_connect_failed", zap.Error(err))
		}
		defer pool.Close()
		if err := postgres.Migrate(ctx, pool); err != nil {
			logger.Fatal("postgres_migrate_failed", zap.Error(err))
		}
		orderRepo = postgres.NewOrderRepository(pool, clk)
		ledger = postgres.NewInventoryLedger(pool)
		products = postgres.NewCatalog(pool)
		logger.Info("storage_selected", zap.String("backend", "postgres"))
	} else {
		memOrders := memory.NewOrderRepository(clk)
		memLedger := memory.NewInventoryLedger()
		memCatalog := memory.NewCatalog()
		seedDemoCatalog(memCatalog, memLedger)
		orderRepo = memOrders
		ledger = memLedger
		products = memCatalog
		logger.Info("storage_selected", zap.String("backend", "memory"))
	}

	if cfg.RedisAddr != "" {
		orderRepo = redisx.NewOrderCache(orderRepo, redisx.New(cfg.RedisAddr), logger)
		logger.Info("order_cache_enabled", zap.String("addr", cfg.RedisAddr))
	}

	// Events: Kafka when brokers are configured, in-process bus otherwise.
	var publisher apporder.Publisher
	var bus *outbox.Bus
	if len(cfg.KafkaBrokers) > 0 {
		kp := kafkax.NewPublisher(cfg.KafkaBrokers, logger)
		defer func() { _ = kp.Close() }()
		publisher = kp
		logger.Info("event_publisher_selected", zap.String("backend", "kafka"))
	} else {
		bus = outbox.NewBus(logger)
		bus.Start(ctx)
		defer bus.Stop(context.Background())
		publisher = bus
		logger.Info("event_publisher_selected", zap.String("backend", "bus"))
	}

	var gateway dompay.Gateway
	if cfg.Gateway.Fake || cfg.Gateway.SecretKey == "" {
		gateway = stripegw.NewFake()
		logger.Warn("payment_gateway_fake_enabled")
	} else {
		gateway = stripegw.New(cfg.Gateway)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	orderMetrics := apporder.NewMetrics(registry)
	httpMetrics := httpapi.NewMetrics(registry)

	coordinator := apporder.NewCoordinator(
		orderRepo,
		ledger,
		products,
		gateway,
		id.NewUUIDGenerator(),
		publisher,
		clk,
		cfg.Gateway.Currency,
		cfg.Sweep.Cutoff,
		orderMetrics,
	)

	sweeper := apporder.NewSweeper(coordinator, cfg.Sweep.Interval, logger)
	go sweeper.Run(ctx)

	handler := httpapi.NewHandler(coordinator, cfg.JWTSecret, logger)
	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: handler.Router(httpMetrics, registry),
	}

	go func() {
		logger.Info("http_server_start", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http_server_error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http_server_shutdown_error", zap.Error(err))
	} else {
		logger.Info("http_server_stopped")
	}
}

// seedDemoCatalog gives the in-memory backend something to sell.
func seedDemoCatalog(cat *memory.Catalog, ledger *memory.InventoryLedger) {
	for _, p := range []struct {
		product catalog.Product
		stock   int
	}{
		{catalog.Product{ID: "keyboard", Name: "Mechanical Keyboard", PriceCents: 129900}, 25},
		{catalog.Product{ID: "mouse", Name: "Wireless Mouse", PriceCents: 59900}, 40},
		{catalog.Product{ID: "monitor", Name: "27\" Monitor", PriceCents: 349900}, 10},
	} {
		cat.Put(p.product)
		ledger.Seed(p.product.ID, p.stock)
	}
}
