package main

import (
	"aptbook/internal/bookings/handler"
	"aptbook/internal/bookings/repository"
	"aptbook/internal/bookings/service"
	"aptbook/internal/bookings/validator"
	"aptbook/internal/payments/provider"
	"aptbook/pkg/app"
	"aptbook/pkg/auth"
	"aptbook/pkg/clock"
	"aptbook/pkg/config"
	"aptbook/pkg/events"
	kafka_config "aptbook/pkg/kafka/config"
	"aptbook/pkg/sealer"
)

const ServiceName = "bookings"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	cfg.SetRedis()

	cfg.Log.Info("Starting Bookings service")
	if err := cfg.ValidatePayments(); err != nil {
		cfg.Log.Fatal("Invalid payment configuration", "error", err)
	}
	tokens, err := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	if err != nil {
		cfg.Log.Fatal("Failed to create token manager", "error", err)
	}

	publisher, closePublisher := initPublisher(cfg)
	bookingService := initServices(cfg, publisher)

	serverApp := app.NewApplication(cfg,
		app.WithAuth(tokens),
		app.WithCloser("kafka-publisher", closePublisher),
	)
	serverApp.SetApp(handler.NewBookingHandler(
		bookingService,
		cfg.PaymentWebhookSecret,
		cfg.PaymentWebhookTolerance,
		cfg.Log,
	))
	serverApp.Run()
}

func initPublisher(cfg *config.Config) (events.Publisher, func() error) {
	kcfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	if !kcfg.Enabled {
		cfg.Log.Warn("Kafka disabled, booking events will not be published")
		return events.NopPublisher{}, func() error { return nil }
	}
	kcfg.LogConfiguration(cfg.Log)

	publisher, err := events.NewKafkaPublisher(kcfg, ServiceName, cfg.Log, events.TopicBookings)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka publisher", "error", err)
	}
	return publisher, publisher.Close
}

func initServices(cfg *config.Config, publisher events.Publisher) service.BookingService {
	var seal *sealer.Sealer
	if cfg.SealerKey != "" {
		var err error
		if seal, err = sealer.New([]byte(cfg.SealerKey)); err != nil {
			cfg.Log.Fatal("Failed to create checkout sealer", "error", err)
		}
	} else {
		cfg.Log.Warn("SEALER_KEY not set, checkout references are sent unsealed")
	}

	clk := clock.System{Location: cfg.Location}
	bookingRepo := repository.NewMongoBookingRepository(cfg)
	bookingValidator := validator.NewBookingValidator(clk, bookingRepo, cfg.Log)
	payments := provider.NewStripeClient(cfg.PaymentAPIURL, cfg.PaymentAPIKey, cfg.PaymentTimeout, cfg.Log)

	bookingService := service.NewBookingService(
		bookingRepo,
		repository.NewBookingLockRepository(cfg),
		repository.NewApartmentReader(cfg),
		bookingValidator,
		payments,
		seal,
		publisher,
		cfg,
	)

	cfg.Log.Info("Booking service initialized", "database", cfg.MongoDatabaseName)
	return bookingService
}
