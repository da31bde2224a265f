package main

import (
	"context"
	"errors"

	"aptbook/internal/notifications/consumer"
	"aptbook/internal/notifications/handler"
	"aptbook/internal/notifications/repository"
	"aptbook/internal/notifications/service"
	"aptbook/pkg/app"
	"aptbook/pkg/auth"
	"aptbook/pkg/clock"
	"aptbook/pkg/config"
	"aptbook/pkg/events"
	"aptbook/pkg/kafka"
	kafka_config "aptbook/pkg/kafka/config"
	kafka_middleware "aptbook/pkg/kafka/middleware"
	"aptbook/pkg/mailer"
)

const ServiceName = "notifier"

var subscribedTopics = []string{
	events.TopicBookings,
	events.TopicApartments,
	events.TopicUsers,
}

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	cfg.SetRedis()

	cfg.Log.Info("Starting Notifier service")
	tokens, err := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	if err != nil {
		cfg.Log.Fatal("Failed to create token manager", "error", err)
	}

	notificationRepo := repository.NewMongoNotificationRepository(cfg)
	stopConsumers := startConsumers(cfg, notificationRepo)

	serverApp := app.NewApplication(cfg,
		app.WithAuth(tokens),
		app.WithCloser("kafka-consumers", stopConsumers),
	)
	serverApp.SetApp(handler.NewNotificationHandler(
		service.NewNotificationService(notificationRepo, cfg),
		cfg.Log,
	))
	serverApp.Run()
}

// startConsumers runs one consumer per subscribed topic and returns a func
// that stops them all.
func startConsumers(cfg *config.Config, repo repository.NotificationRepository) func() error {
	kcfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	if !kcfg.Enabled {
		cfg.Log.Warn("Kafka disabled, notifier will only serve the notifications API")
		return func() error { return nil }
	}
	kcfg.LogConfiguration(cfg.Log)

	mail := mailer.New(mailer.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		User:     cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		From:     cfg.MailFrom,
	}, cfg.Log)
	dispatcher := consumer.NewDispatcher(
		repo,
		repository.NewMongoRecipientDirectory(cfg),
		mail,
		clock.System{Location: cfg.Location},
		cfg.Log,
	)

	metrics := kafka_middleware.NewConsumerMetrics()
	ctx, cancel := context.WithCancel(context.Background())
	consumers := make([]*kafka.Consumer, 0, len(subscribedTopics))
	for _, topic := range subscribedTopics {
		c, err := kafka.NewConsumer(kcfg, topic, events.DLQ(topic), dispatcher.Handle, cfg.Log)
		if err != nil {
			cancel()
			cfg.Log.Fatal("Failed to create Kafka consumer", "topic", topic, "error", err)
		}
		c.Use(kafka_middleware.LoggingConsumerMiddleware(cfg.Log))
		c.Use(kafka_middleware.MetricsConsumerMiddleware(metrics))
		consumers = append(consumers, c)

		go func(topic string, c *kafka.Consumer) {
			if err := c.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				cfg.Log.Error("Kafka consumer stopped", "topic", topic, "error", err)
			}
		}(topic, c)
	}
	cfg.Log.Info("Notification consumers started", "topics", subscribedTopics)

	return func() error {
		cancel()
		var errs []error
		for _, c := range consumers {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		cfg.Log.Info("Notification consumers stopped", metrics.Snapshot().LogAttrs()...)
		return errors.Join(errs...)
	}
}
