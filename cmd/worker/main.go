package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	kafkaGo "github.com/segmentio/kafka-go"

	"github.com/hoangnv-dev/hotelhold/config"
	"github.com/hoangnv-dev/hotelhold/internal/email"
	"github.com/hoangnv-dev/hotelhold/internal/inventory"
	"github.com/hoangnv-dev/hotelhold/internal/kafka"
	"github.com/hoangnv-dev/hotelhold/internal/lock"
	"github.com/hoangnv-dev/hotelhold/internal/repository"
	"github.com/hoangnv-dev/hotelhold/internal/scheduler"
	"github.com/hoangnv-dev/hotelhold/internal/service/booking"
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
	sharedStore := store.NewRedis(redisClient)

	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()

	bookingRepo := repository.NewBookingRepository(pool)
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

	consumer := kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers:   cfg.Kafka.Brokers,
		GroupID:   cfg.Kafka.GroupID,
		Topic:     cfg.Kafka.BookingEventsTopic,
		Heartbeat: time.Duration(cfg.Kafka.HeartbeatSeconds) * time.Second,
		Session:   time.Duration(cfg.Kafka.SessionSeconds) * time.Second,
	})
	defer consumer.Close()

	sender := email.NewSender()
	go func() {
		err := consumer.Consume(ctx, func(ctx context.Context, msg kafkaGo.Message) error {
			var event booking.BookingEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				log.Printf("decode event: %v", err)
				return nil
			}
			return sender.Send(ctx, event)
		})
		if err != nil {
			log.Printf("consumer stopped: %v", err)
		}
	}()

	sweeper := scheduler.NewExpiryScheduler(bookingService,
		time.Duration(cfg.Worker.ExpirationSweepSeconds)*time.Second)
	sweeper.Run(ctx)
}
