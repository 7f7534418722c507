package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-grocery-store/internal/catalog"
	"github.com/ariefcatur/go-grocery-store/internal/config"
	"github.com/ariefcatur/go-grocery-store/internal/httpx"
	kafkax "github.com/ariefcatur/go-grocery-store/internal/kafka"
	"github.com/ariefcatur/go-grocery-store/internal/logging"
	"github.com/ariefcatur/go-grocery-store/internal/orders"
	"github.com/ariefcatur/go-grocery-store/internal/postgres"
	"github.com/ariefcatur/go-grocery-store/internal/redisx"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN, cfg.PostgresMaxConns)
	if err != nil {
		log.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()
	if cfg.MigrateOnStart {
		if err := postgres.Migrate(ctx, db); err != nil {
			log.Fatal("db migrate", zap.Error(err))
		}
	}

	oh := &httpx.OrdersHandler{
		Orders:  &orders.Repo{DB: db},
		Service: cfg.ServiceName,
		Log:     log,
	}

	// Redis: idempotency keys for order placement
	if cfg.RedisAddr != "" {
		rdb := redisx.New(cfg.RedisAddr)
		defer rdb.Close()
		if err := redisx.Ping(ctx, rdb); err != nil {
			log.Warn("redis unreachable, orders are placed without idempotency checks until it recovers", zap.Error(err))
		}
		oh.Idem = redisx.NewIdempotency(rdb)
	}

	// Kafka: order-placed events
	var prod *kafkax.Producer
	if len(cfg.KafkaBrokers) > 0 {
		prod = kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderPlaced, 1024, log)
		prod.Start()
		oh.Producer = prod
	}

	router := httpx.NewRouter(log,
		&httpx.CatalogHandler{Catalog: &catalog.Repo{DB: db}, Log: log},
		oh,
	)
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		log.Info("HTTP listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	if err := srv.Shutdown(ctx2); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	if prod != nil {
		prod.Close() // flush queued events
	}
}
