package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/hoangnv-dev/hotelhold/api"
	"github.com/hoangnv-dev/hotelhold/config"
	"github.com/hoangnv-dev/hotelhold/internal/gateway"
	"github.com/hoangnv-dev/hotelhold/internal/inventory"
	"github.com/hoangnv-dev/hotelhold/internal/kafka"
	"github.com/hoangnv-dev/hotelhold/internal/lock"
	"github.com/hoangnv-dev/hotelhold/internal/repository"
	"github.com/hoangnv-dev/hotelhold/internal/service/booking"
	"github.com/hoangnv-dev/hotelhold/internal/service/payment"
	"github.com/hoangnv-dev/hotelhold/internal/store"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("connect redis: %v", err)
	}
	sharedStore := store.NewRedis(redisClient)

	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()

	bookingRepo := repository.NewBookingRepository(pool)
	txnRepo := repository.NewTransactionRepository(pool)
	catalogRepo := repository.NewCatalogRepository(pool)
	customerRepo := repository.NewCustomerRepository(pool)

	locks := lock.New(sharedStore, time.Duration(cfg.Booking.LockTTLMinutes)*time.Minute)
	ledger := inventory.NewLedger(sharedStore, catalogRepo, bookingRepo,
		time.Duration(cfg.Booking.InventoryTTLMinutes)*time.Minute)

	bookingService := booking.NewService(
		bookingRepo, catalogRepo, customerRepo, locks, ledger,
		producer, cfg.Kafka.BookingEventsTopic,
		time.Duration(cfg.Booking.HoldWindowMinutes)*time.Minute,
		cfg.Booking.DepositThresholdPercent,
	)

	gatewayClient := gateway.NewHTTPClient(gateway.Config{
		Endpoint:    cfg.Gateway.Endpoint,
		ClientID:    cfg.Gateway.ClientID,
		APIKey:      cfg.Gateway.APIKey,
		ChecksumKey: cfg.Gateway.ChecksumKey,
	})
	paymentService := payment.NewService(bookingRepo, txnRepo, bookingService, gatewayClient,
		cfg.Booking.DepositThresholdPercent)

	router := gin.Default()
	api.NewAvailabilityHandler(ledger).Register(router.Group("/availability"))
	api.NewBookingHandler(bookingService).Register(router.Group("/bookings"))
	api.NewPaymentHandler(paymentService).Register(router.Group("/payments"))

	server := &http.Server{
		Addr:    cfg.HTTP.Address,
		Handler: router,
	}

	go func() {
		log.Printf("server listening on %s", cfg.HTTP.Address)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("shutdown: %v", err)
	}
}
