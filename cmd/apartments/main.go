package main

import (
	"aptbook/internal/apartments/handler"
	"aptbook/internal/apartments/images"
	"aptbook/internal/apartments/repository"
	"aptbook/internal/apartments/service"
	"aptbook/internal/apartments/validator"
	reviewHandler "aptbook/internal/reviews/handler"
	reviewRepository "aptbook/internal/reviews/repository"
	reviewService "aptbook/internal/reviews/service"
	reviewValidator "aptbook/internal/reviews/validator"
	"aptbook/pkg/app"
	"aptbook/pkg/auth"
	"aptbook/pkg/cache"
	"aptbook/pkg/clock"
	"aptbook/pkg/config"
	"aptbook/pkg/events"
	kafka_config "aptbook/pkg/kafka/config"
)

const ServiceName = "apartments"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	cfg.SetRedis()

	cfg.Log.Info("Starting Apartments service")
	tokens, err := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	if err != nil {
		cfg.Log.Fatal("Failed to create token manager", "error", err)
	}

	publisher, closePublisher := initPublisher(cfg)
	apartmentRepo := repository.NewMongoApartmentRepository(cfg)
	apartmentService := initApartmentService(cfg, apartmentRepo, publisher)
	reviews := initReviewService(cfg, apartmentRepo)

	serverApp := app.NewApplication(cfg,
		app.WithAuth(tokens),
		app.WithContentTypeExempt(handler.ImageUploadPattern),
		app.WithCloser("kafka-publisher", closePublisher),
	)
	serverApp.SetApp(
		handler.NewApartmentHandler(apartmentService, cfg.Log),
		reviewHandler.NewReviewHandler(reviews, cfg.Log),
	)
	serverApp.Run()
}

func initPublisher(cfg *config.Config) (events.Publisher, func() error) {
	kcfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	if !kcfg.Enabled {
		cfg.Log.Warn("Kafka disabled, apartment events will not be published")
		return events.NopPublisher{}, func() error { return nil }
	}
	kcfg.LogConfiguration(cfg.Log)

	publisher, err := events.NewKafkaPublisher(kcfg, ServiceName, cfg.Log, events.TopicApartments)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka publisher", "error", err)
	}
	return publisher, publisher.Close
}

func initApartmentService(cfg *config.Config, repo repository.ApartmentRepository, publisher events.Publisher) service.ApartmentService {
	imageStore := images.NewCloudinaryStore(
		cfg.CloudinaryUploadURL,
		cfg.CloudinaryCloudName,
		cfg.CloudinaryAPIKey,
		cfg.CloudinaryAPISecret,
		cfg.RequestTimeout,
		cfg.Log,
	)

	apartmentService := service.NewApartmentService(
		repo,
		repository.NewMongoAvailabilityRepository(cfg),
		validator.NewApartmentValidator(cfg.Log),
		cache.NewRedisCache(cfg.Client.Redis, cfg.Log),
		imageStore,
		publisher,
		clock.System{Location: cfg.Location},
		cfg,
	)

	cfg.Log.Info("Apartment service initialized", "database", cfg.MongoDatabaseName)
	return apartmentService
}

func initReviewService(cfg *config.Config, apartments reviewService.ApartmentFinder) reviewService.ReviewService {
	svc := reviewService.NewReviewService(
		reviewRepository.NewMongoReviewRepository(cfg),
		apartments,
		reviewValidator.NewReviewValidator(cfg.Log),
		cfg,
	)

	cfg.Log.Info("Review service initialized", "database", cfg.MongoDatabaseName)
	return svc
}
