package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gopawz/booking/config"
	"github.com/gopawz/booking/internal/bootstrap"
	"github.com/gopawz/booking/internal/cache"
	"github.com/gopawz/booking/internal/kafka"
	"github.com/gopawz/booking/internal/payments"
	"github.com/gopawz/booking/internal/repository"
	"github.com/gopawz/booking/internal/service/checkin"
	"github.com/gopawz/booking/internal/service/lifecycle"
	"github.com/jackc/pgx/v5/pgxpool"
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

	redisCache := cache.NewRedisCache(cfg.Redis)
	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()

	stripeClient := payments.NewStripeClient(cfg.Stripe.APIKey)

	bookingRepo := repository.NewBookingRepository(pool)
	auditRepo := repository.NewAuditRepository(pool)
	paymentRepo := repository.NewPaymentRepository(pool)
	petRepo := repository.NewPetRepository(pool)
	userRepo := repository.NewUserRepository(pool)

	checkinSvc := checkin.NewCheckinService(
		bookingRepo,
		auditRepo,
		petRepo,
		redisCache,
		cfg.HTTP.CheckInBaseURL,
		checkin.WithScanLockTTL(time.Duration(cfg.Booking.ScanLockTTLSeconds)*time.Second),
	)
	lifecycleSvc := lifecycle.NewLifecycleService(
		bookingRepo,
		paymentRepo,
		petRepo,
		userRepo,
		auditRepo,
		stripeClient,
		producer,
		redisCache,
		cfg.Kafka.NotificationsTopic,
		lifecycle.WithPolicyWindows(
			time.Duration(cfg.Booking.CancelWindowHours)*time.Hour,
			time.Duration(cfg.Booking.RescheduleWindowHours)*time.Hour,
		),
	)

	if err := bootstrap.Run(ctx, cfg, lifecycleSvc, checkinSvc); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
