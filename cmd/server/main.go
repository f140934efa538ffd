package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fjod/cosmic-backend/internal/auth"
	"github.com/fjod/cosmic-backend/internal/cache"
	"github.com/fjod/cosmic-backend/internal/config"
	"github.com/fjod/cosmic-backend/internal/health"
	h "github.com/fjod/cosmic-backend/internal/http"
	"github.com/fjod/cosmic-backend/internal/logging"
	"github.com/fjod/cosmic-backend/internal/poller"
	"github.com/fjod/cosmic-backend/internal/repository"
	"github.com/fjod/cosmic-backend/internal/service"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	memoryScheme        = "memory://"
	healthCheckInterval = 10 * time.Second
)

// stores groups the three repositories with a reachability check and a
// release hook for the underlying connection.
type stores struct {
	carts    repository.CartRepository
	products repository.ProductRepository
	users    repository.UserRepository
	ping     func(ctx context.Context) error
	close    func(ctx context.Context) error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("invalid configuration: %v", err)
	}
	log := logging.New(cfg.LogLevel)

	identity, err := h.ParseIdentitySource(cfg.IdentitySource)
	if err != nil {
		log.WithError(err).Fatal("invalid CART_IDENTITY_SOURCE")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to open store")
	}

	cartCache, closeCache := newCartCache(ctx, cfg, log)

	tokens := auth.NewJWTManager(cfg.Secret, cfg.TokenTTL, cfg.TokenIssuer)
	hasher := auth.NewPasswordHasher(auth.DefaultBcryptCost)

	cartService := service.NewCartService(st.carts, st.products, cartCache, log)
	productService := service.NewProductService(st.products)
	authService := service.NewAuthService(st.users, tokens, hasher, cfg.AdminEmails...)

	router := h.NewRouter(h.RouterConfig{
		Carts:          cartService,
		Products:       productService,
		Users:          authService,
		Tokens:         tokens,
		Identity:       identity,
		Log:            log,
		RequestTimeout: cfg.RequestTimeout,
		Health:         st.ping,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(router, "cosmic-backend"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infof("HTTP server starting on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server error")
		}
	}()

	healthServer := health.NewServer(st.ping, healthCheckInterval, log)
	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		log.WithError(err).Fatal("failed to listen for gRPC")
	}
	go healthServer.Watch(ctx)
	go func() {
		log.Infof("gRPC health service listening on :%s", cfg.GRPCPort)
		if err := healthServer.Serve(lis); err != nil {
			log.WithError(err).Error("gRPC server stopped")
		}
	}()

	var checkoutPoller *poller.Poller
	if len(cfg.KafkaBrokers) > 0 {
		checkoutPoller = poller.NewPoller(cartService, log, cfg.KafkaBrokers...)
		go checkoutPoller.Run(ctx)
	} else {
		log.Info("KAFKA_BROKERS not set, checkout poller disabled")
	}

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server forced to shutdown")
	}
	healthServer.GracefulStop()
	if checkoutPoller != nil {
		checkoutPoller.Close()
	}
	closeCache()
	if err := st.close(shutdownCtx); err != nil {
		log.WithError(err).Error("failed to close store")
	}

	log.Info("server exited")
}

func openStores(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (*stores, error) {
	if strings.HasPrefix(cfg.DatabaseURL, memoryScheme) {
		log.Warn("using in-memory store, data is lost on restart")
		mem := repository.NewMemoryStore()
		return &stores{
			carts:    mem,
			products: mem,
			users:    mem,
			ping:     mem.Ping,
			close:    func(context.Context) error { return nil },
		}, nil
	}

	db, err := repository.ConnectMongoDB(ctx, cfg.DatabaseURL, cfg.MongoDBName)
	if err != nil {
		return nil, err
	}
	if err := repository.EnsureIndexes(ctx, db); err != nil {
		_ = db.Client().Disconnect(ctx)
		return nil, err
	}
	log.WithField("database", cfg.MongoDBName).Info("connected to MongoDB")

	return &stores{
		carts:    repository.NewMongoCartRepository(db),
		products: repository.NewMongoProductRepository(db),
		users:    repository.NewMongoUserRepository(db),
		ping:     repository.PingMongoDB(db),
		close:    db.Client().Disconnect,
	}, nil
}

// newCartCache returns a breaker-guarded Redis cache, or a no-op cache when
// REDIS_ADDR is empty. An unreachable Redis at startup is not fatal.
func newCartCache(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (cache.CartCache, func()) {
	if cfg.RedisAddr == "" {
		log.Info("REDIS_ADDR not set, cart cache disabled")
		return cache.Noop{}, func() {}
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	redisCache := cache.NewRedisCache(redisClient, cfg.CartCacheTTL)
	if err := redisCache.Ping(ctx); err != nil {
		log.WithError(err).Warn("Redis ping failed, cart reads fall back to the store")
	} else {
		log.Info("Redis ping succeeded")
	}

	closeFn := func() {
		if err := redisClient.Close(); err != nil {
			log.WithError(err).Error("failed to close Redis client")
		}
	}
	return cache.NewBreakerCache(redisCache, log), closeFn
}
