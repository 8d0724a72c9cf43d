package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/fjod/go_cart/variant-cart/internal/cache"
	"github.com/fjod/go_cart/variant-cart/internal/catalog"
	"github.com/fjod/go_cart/variant-cart/internal/config"
	cartgrpc "github.com/fjod/go_cart/variant-cart/internal/grpc"
	carthttp "github.com/fjod/go_cart/variant-cart/internal/http"
	"github.com/fjod/go_cart/variant-cart/internal/logger"
	"github.com/fjod/go_cart/variant-cart/internal/platform/mongodb"
	"github.com/fjod/go_cart/variant-cart/internal/poller"
	"github.com/fjod/go_cart/variant-cart/internal/repository"
	"github.com/fjod/go_cart/variant-cart/internal/resolver"
	"github.com/fjod/go_cart/variant-cart/internal/service"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	lg, err := logger.New(cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	if err := run(cfg, lg); err != nil {
		lg.Fatal("cart service failed", zap.Error(err))
	}
}

func run(cfg *config.Config, lg *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Set up MongoDB connection
	mongoDB, err := mongodb.Connect(ctx, mongodb.Options{
		URI:         cfg.MongoURI,
		Database:    cfg.MongoDBName,
		MaxPoolSize: cfg.MongoMaxPoolSize,
	})
	if err != nil {
		return err
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := mongoDB.Client().Disconnect(disconnectCtx); err != nil {
			lg.Warn("mongo disconnect failed", zap.Error(err))
		}
	}()
	lg.Info("connected to MongoDB", zap.String("database", cfg.MongoDBName))

	repo := repository.NewMongoRepository(mongoDB)
	if err := repository.EnsureIndexes(ctx, repo); err != nil {
		return err
	}

	store, closeStore, err := openCatalog(cfg, mongoDB)
	if err != nil {
		return err
	}
	defer closeStore()
	lg.Info("catalog ready", zap.String("driver", cfg.CatalogDriver))

	guarded := catalog.NewBreakerStore(store, catalog.BreakerSettings{
		Name:        "catalog",
		MaxFailures: cfg.BreakerMaxFailures,
		OpenTimeout: cfg.BreakerOpenTimeout,
	}, lg)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis connection failed: %w", err)
	}
	lg.Info("redis ping succeeded", zap.String("addr", cfg.RedisAddr))

	svc := service.NewCartService(
		repo,
		cache.NewRedisCache(redisClient, cfg.CacheTTL),
		resolver.New(guarded, cfg.CatalogTimeout),
		lg.Named("service"),
		service.Options{
			MaxAttempts:      cfg.MaxAttempts,
			StoreTimeout:     cfg.StoreTimeout,
			SweepConcurrency: cfg.SweepConcurrency,
		},
	)

	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	cartgrpc.RegisterCartServiceServer(grpcServer, cartgrpc.NewCartServiceServer(svc, lg.Named("grpc")))

	router := carthttp.NewRouter(
		carthttp.NewCartHandler(svc, cfg.RequestTimeout, lg.Named("http")),
		carthttp.NewAdminHandler(svc, cfg.RequestTimeout, lg.Named("http")),
		carthttp.RouterConfig{RequestTimeout: cfg.RequestTimeout},
		lg.Named("http"),
	)
	httpServer := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(router, "cart-http"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 2)
	go func() {
		lg.Info("grpc listening", zap.String("port", cfg.GRPCPort))
		if err := grpcServer.Serve(lis); err != nil {
			serveErr <- fmt.Errorf("grpc serve: %w", err)
		}
	}()
	go func() {
		lg.Info("http listening", zap.String("port", cfg.HTTPPort))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- fmt.Errorf("http serve: %w", err)
		}
	}()

	if len(cfg.KafkaBrokers) > 0 {
		p := poller.NewPoller(svc, poller.Config{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.CheckoutTopic,
			GroupID: cfg.KafkaGroupID,
		}, lg.Named("poller"))
		defer p.Close()
		go p.Run(ctx)
		lg.Info("checkout consumer started", zap.String("topic", cfg.CheckoutTopic))
	}

	select {
	case <-ctx.Done():
		lg.Info("shutting down cart service")
	case err := <-serveErr:
		lg.Error("server stopped", zap.Error(err))
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		lg.Warn("http shutdown failed", zap.Error(err))
	}
	grpcServer.GracefulStop()
	lg.Info("cart service stopped")
	return nil
}

// openCatalog returns the store the resolver reads and a func releasing it.
func openCatalog(cfg *config.Config, mongoDB *mongo.Database) (catalog.Store, func(), error) {
	switch cfg.CatalogDriver {
	case config.CatalogMongo:
		return catalog.NewMongoStore(mongoDB), func() {}, nil
	default:
		store, err := catalog.NewSQLStore(cfg.CatalogDriver, cfg.CatalogDSN)
		if err != nil {
			return nil, nil, err
		}
		if err := store.RunMigrations(); err != nil {
			_ = store.Close()
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	}
}
