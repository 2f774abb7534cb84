package main

import (
	"context"
	"database/sql"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"github.com/stripe/stripe-go/v81/client"
	"google.golang.org/grpc"

	"github.com/rl1809/food-order/internal/adapter/handler"
	"github.com/rl1809/food-order/internal/adapter/messaging"
	"github.com/rl1809/food-order/internal/adapter/payment"
	"github.com/rl1809/food-order/internal/adapter/storage"
	"github.com/rl1809/food-order/internal/config"
	"github.com/rl1809/food-order/internal/core/service"
	"github.com/rl1809/food-order/internal/logger"
	"github.com/rl1809/food-order/internal/metrics"
	"github.com/rl1809/food-order/internal/port"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New("food-order", "info").Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New("food-order", cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize MySQL
	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		log.Error("failed to open mysql", "error", err)
		os.Exit(1)
	}
	db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		log.Error("failed to ping mysql", "error", err)
		os.Exit(1)
	}
	if err := storage.Migrate(ctx, db); err != nil {
		log.Error("failed to migrate schema", "error", err)
		os.Exit(1)
	}
	log.Info("connected to mysql")

	// Initialize Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	redisAdapter := storage.NewRedisAdapter(rdb)
	if err := redisAdapter.Ping(ctx); err != nil {
		log.Error("failed to connect redis", "error", err)
		os.Exit(1)
	}
	log.Info("connected to redis")

	// Order events are optional
	var events port.EventPublisher
	var publisher *messaging.AMQPPublisher
	if cfg.RabbitMQ.URL != "" {
		publisher, err = messaging.NewAMQPPublisher(cfg.RabbitMQ.URL)
		if err != nil {
			log.Error("failed to connect rabbitmq", "error", err)
			os.Exit(1)
		}
		events = publisher
		log.Info("connected to rabbitmq", "exchange", messaging.OrdersExchange)
	}

	mysqlAdapter := storage.NewMySQLAdapter(db)
	stripeAdapter := payment.NewStripeAdapter(client.New(cfg.Stripe.APIKey, nil), cfg.Stripe.WebhookSecret)
	m := metrics.New()

	backfill := service.NewBackfillQueue(mysqlAdapter, cfg.Backfill.QueueSize, m, log)
	backfill.Start(cfg.Backfill.Workers)

	orderService := service.NewOrderService(service.Dependencies{
		Orders:      mysqlAdapter,
		Restaurants: mysqlAdapter,
		Users:       mysqlAdapter,
		Payments:    stripeAdapter,
		Ledger:      redisAdapter,
		Events:      events,
		Backfill:    backfill,
		Recorder:    m,
		Logger:      log,
	}, cfg.Server.FrontendURL)

	auth := handler.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.Audience, mysqlAdapter)

	// Initialize gRPC server
	grpcHandler := handler.NewGRPCHandler(orderService, auth, log)
	grpcServer := grpc.NewServer(grpcHandler.ServerOptions()...)
	grpcHandler.Register(grpcServer)

	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		log.Error("failed to listen", "addr", cfg.Server.GRPCAddr, "error", err)
		os.Exit(1)
	}

	go func() {
		log.Info("gRPC server listening", "addr", cfg.Server.GRPCAddr)
		if err := grpcServer.Serve(lis); err != nil {
			log.Error("gRPC server error", "error", err)
		}
	}()

	// Initialize HTTP server
	httpHandler := handler.NewHTTPHandler(orderService, auth, m, log)
	httpServer := &http.Server{
		Addr:         cfg.Server.HTTPAddr,
		Handler:      httpHandler.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info("HTTP server listening", "addr", cfg.Server.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			log.Error("HTTP server error", "error", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP shutdown incomplete", "error", err)
	}
	log.Info("HTTP server stopped")

	stopGRPC(grpcServer, cfg.Server.ShutdownTimeout)
	log.Info("gRPC server stopped")

	// Drain queued backfills before closing the pool they write to
	backfill.Close()
	log.Info("backfill workers stopped")

	if publisher != nil {
		publisher.Close()
	}
	rdb.Close()
	db.Close()
	log.Info("connections closed")
}

func stopGRPC(s *grpc.Server, timeout time.Duration) {
	done := make(chan struct{})
	go func() {
		s.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		s.Stop()
	}
}
