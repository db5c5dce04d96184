package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"billing-api/internal/config"
	"billing-api/internal/db"
	"billing-api/internal/events"
	apihttp "billing-api/internal/http"
	"billing-api/internal/metrics"
	"billing-api/internal/payment"
	"billing-api/internal/repository"
	"billing-api/internal/service"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()

	ctxPing, cancelPing := context.WithTimeout(ctx, 5*time.Second)
	if err := db.Ping(ctxPing, pool); err != nil {
		logger.Fatal("db ping", zap.Error(err))
	}
	if err := db.EnsureSchema(ctxPing, pool); err != nil {
		logger.Fatal("db schema", zap.Error(err))
	}
	cancelPing()

	m := metrics.New()
	userRepo := repository.NewPgUserRepository(pool)

	var (
		loginLimiter service.LoginRateLimiter
		revokedStore service.RevokedTokenStore
		redisClient  *redis.Client
	)
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisClient.Close()
		ctxRedis, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxRedis).Err(); err != nil {
			logger.Warn("redis ping failed, using in-memory stores", zap.Error(err))
		} else {
			loginLimiter = service.NewRedisLoginRateLimiter(redisClient, cfg.LoginRateWindow, cfg.LoginRateLimit)
			revokedStore = service.NewRedisRevokedTokenStore(redisClient)
		}
		cancel()
	}
	if loginLimiter == nil {
		loginLimiter = service.NewMemoryLoginRateLimiter(cfg.LoginRateWindow, cfg.LoginRateLimit)
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.AMQPURL != "" {
		amqpPub, err := events.DialAMQP(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			logger.Warn("amqp connect failed, status events disabled", zap.Error(err))
		} else {
			publisher = amqpPub
		}
	}
	defer publisher.Close()

	processor := payment.WithObserver(payment.NewStripeProcessor(payment.StripeConfig{
		SecretKey:     cfg.StripeSecretKey,
		WebhookSecret: cfg.StripeWebhookSecret,
		APIURL:        cfg.StripeAPIURL,
		Timeout:       cfg.StripeTimeout,
	}, logger), m)
	if cfg.StripePriceID == "" {
		logger.Warn("stripe price not configured, /subscribe will fail")
	}

	jwtSvc := service.NewJWTServiceWithStore(cfg.JWTSecret, cfg.JWTAccessTTL, revokedStore)
	notifier := service.NewStatusNotifier(logger, publisher, m)
	userSvc := service.NewUserService(logger, userRepo, loginLimiter)
	subSvc := service.NewSubscriptionService(logger, userRepo, processor, notifier, service.SubscriptionConfig{
		PriceID:         cfg.StripePriceID,
		RegisterPriceID: cfg.RegisterPriceID(),
	})
	webhookSvc := service.NewWebhookService(logger, userRepo, processor, notifier, m)

	router := apihttp.NewRouter(logger, m, jwtSvc,
		apihttp.NewUserHandler(logger, userSvc, jwtSvc),
		apihttp.NewSubscriptionHandler(logger, subSvc, jwtSvc),
		apihttp.NewWebhookHandler(logger, webhookSvc),
		apihttp.NewHealthHandler(logger, pool),
	)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("starting server", zap.String("port", cfg.HTTPPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
}
