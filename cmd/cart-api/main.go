package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fjod/go_cart/cart-api/internal/cache"
	"github.com/fjod/go_cart/cart-api/internal/catalog"
	"github.com/fjod/go_cart/cart-api/internal/config"
	"github.com/fjod/go_cart/cart-api/internal/health"
	h "github.com/fjod/go_cart/cart-api/internal/http"
	"github.com/fjod/go_cart/cart-api/internal/logger"
	"github.com/fjod/go_cart/cart-api/internal/poller"
	"github.com/fjod/go_cart/cart-api/internal/repository"
	"github.com/fjod/go_cart/cart-api/internal/service"
	"github.com/fjod/go_cart/cart-api/internal/telemetry"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

const serviceName = "cart-api"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}

	log := logger.New(os.Stdout, cfg.LogLevel, serviceName)

	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("cart-api stopped with error")
	}
	log.Info("cart-api stopped")
}

func run(cfg *config.Config, log *logrus.Entry) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.InitTracing(ctx, cfg.OTLPEndpoint, serviceName)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.WithError(err).Warn("tracer shutdown failed")
		}
	}()

	checks := map[string]health.Pinger{}

	// Cart store
	repo, closeStore, err := openCartStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()
	checks["cart-store"] = repo

	// Product catalog
	products, err := catalog.NewRepository(cfg.CatalogDBPath)
	if err != nil {
		return err
	}
	defer products.Close()
	if err := products.RunMigrations(cfg.CatalogMigrationsPath); err != nil {
		return err
	}
	checks["catalog"] = products
	log.WithField("path", cfg.CatalogDBPath).Info("catalog ready")

	// Cart cache
	var cartCache cache.CartCache = cache.Noop{}
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       0,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis connection failed: %w", err)
		}
		log.WithField("addr", cfg.RedisAddr).Info("redis ping succeeded")
		redisCache := cache.NewRedisCache(redisClient, cache.DefaultOptions)
		cartCache = redisCache
		checks["cache"] = redisCache
	} else {
		log.Info("REDIS_ADDR not set, cart cache disabled")
	}

	lookup := catalog.NewBreakerLookup(products, catalog.DefaultBreakerSettings, log)
	carts := service.NewCartService(repo, cartCache, lookup, cfg.Currency, log)
	productService := service.NewProductService(products, log)

	// Checkout consumer
	if len(cfg.KafkaBrokers) > 0 {
		p := poller.NewPoller(carts, cfg.KafkaTopic, cfg.KafkaGroupID, log, cfg.KafkaBrokers...)
		p.Start(ctx)
		defer func() {
			// the poller must see cancellation before Close waits for it
			stop()
			p.Close()
		}()
		checks["kafka"] = health.PingFunc(func(ctx context.Context) error {
			conn, err := kafka.DialContext(ctx, "tcp", cfg.KafkaBrokers[0])
			if err != nil {
				return err
			}
			return conn.Close()
		})
	} else {
		log.Info("KAFKA_BROKERS not set, checkout consumer disabled")
	}

	// Health
	healthServer := health.NewServer(checks, 2*time.Second, log)
	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.GRPCPort, err)
	}
	go healthServer.Watch(ctx, 10*time.Second)

	// HTTP
	router := h.NewRouter(
		h.RouterConfig{RequestTimeout: cfg.RequestTimeout, ServiceName: serviceName, Log: log},
		h.NewCartHandler(carts, cfg.RequestTimeout, cfg.MaxRequestBodySize, log),
		h.NewProductHandler(productService, cfg.RequestTimeout, cfg.MaxRequestBodySize, log),
	)
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		if err := healthServer.Serve(lis); err != nil {
			errCh <- fmt.Errorf("health server: %w", err)
		}
	}()
	go func() {
		log.WithField("addr", srv.Addr).Info("cart-api starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		log.Info("shutting down server...")
	case serveErr = <-errCh:
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	healthServer.Stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Join(serveErr, fmt.Errorf("server forced to shutdown: %w", err))
	}
	return serveErr
}

func openCartStore(ctx context.Context, cfg *config.Config, log *logrus.Entry) (repository.CartRepository, func(), error) {
	switch cfg.CartStore {
	case config.StoreMongo:
		db, err := repository.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			return nil, nil, err
		}
		repo := repository.NewMongoRepository(db)
		if err := repo.CreateIndexes(ctx); err != nil {
			_ = db.Client().Disconnect(context.WithoutCancel(ctx))
			return nil, nil, err
		}
		log.WithField("database", cfg.MongoDBName).Info("connected to MongoDB")
		return repo, func() {
			if err := db.Client().Disconnect(context.Background()); err != nil {
				log.WithError(err).Warn("mongo disconnect failed")
			}
		}, nil

	case config.StorePostgres:
		if err := repository.RunPostgresMigrations(cfg.PostgresURL, cfg.PostgresMigrationsPath); err != nil {
			return nil, nil, err
		}
		pool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create postgres pool: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("failed to ping postgres: %w", err)
		}
		log.Info("connected to Postgres")
		return repository.NewPostgresRepository(pool), pool.Close, nil

	default:
		log.Warn("using in-memory cart store, carts are lost on restart")
		return repository.NewMemoryRepository(), func() {}, nil
	}
}
