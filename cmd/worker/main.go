package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gopawz/booking/config"
	"github.com/gopawz/booking/internal/cache"
	"github.com/gopawz/booking/internal/kafka"
	"github.com/gopawz/booking/internal/notifier"
	"github.com/gopawz/booking/internal/payments"
	"github.com/gopawz/booking/internal/repository"
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()
	redisCache := cache.NewRedisCache(cfg.Redis)

	bookingRepo := repository.NewBookingRepository(pool)
	auditRepo := repository.NewAuditRepository(pool)
	paymentRepo := repository.NewPaymentRepository(pool)
	petRepo := repository.NewPetRepository(pool)
	userRepo := repository.NewUserRepository(pool)

	lifecycleSvc := lifecycle.NewLifecycleService(
		bookingRepo,
		paymentRepo,
		petRepo,
		userRepo,
		auditRepo,
		payments.NewStripeClient(cfg.Stripe.APIKey),
		producer,
		redisCache,
		cfg.Kafka.NotificationsTopic,
		lifecycle.WithReminderLead(time.Duration(cfg.Worker.ReminderLeadHours)*time.Hour),
	)

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic)
	defer consumer.Close()

	sender := notifier.NewSender(cfg.Notifications)

	go func() {
		if err := consumer.Consume(ctx, sender.Send); err != nil {
			log.Printf("consumer stopped: %v", err)
		}
	}()

	sweepEvery := cfg.Worker.ReminderSweepMinutes
	if sweepEvery <= 0 {
		sweepEvery = 15
	}

	reminderTicker := time.NewTicker(time.Duration(sweepEvery) * time.Minute)
	defer reminderTicker.Stop()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-reminderTicker.C:
			reminded, err := lifecycleSvc.SendReminders(ctx)
			if err != nil {
				log.Printf("reminder sweep error: %v", err)
				continue
			}
			if len(reminded) > 0 {
				log.Printf("sent %d booking reminders", len(reminded))
			}
		case s := <-sig:
			log.Printf("received signal %v, shutting down", s)
			return
		}
	}
}
