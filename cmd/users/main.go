package main

import (
	"aptbook/internal/users/handler"
	"aptbook/internal/users/repository"
	"aptbook/internal/users/service"
	"aptbook/internal/users/validator"
	"aptbook/pkg/app"
	"aptbook/pkg/auth"
	"aptbook/pkg/clock"
	"aptbook/pkg/config"
	"aptbook/pkg/events"
	kafka_config "aptbook/pkg/kafka/config"
	"aptbook/pkg/mailer"
)

const ServiceName = "users"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	cfg.SetRedis()

	cfg.Log.Info("Starting Users service")
	tokens, err := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	if err != nil {
		cfg.Log.Fatal("Failed to create token manager", "error", err)
	}

	publisher, closePublisher := initPublisher(cfg)
	userService := initServices(cfg, tokens, publisher)

	serverApp := app.NewApplication(cfg,
		app.WithAuth(tokens),
		app.WithCloser("kafka-publisher", closePublisher),
	)
	serverApp.SetApp(handler.NewUserHandler(userService, cfg.Log))
	serverApp.Run()
}

func initPublisher(cfg *config.Config) (events.Publisher, func() error) {
	kcfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	if !kcfg.Enabled {
		cfg.Log.Warn("Kafka disabled, user events will not be published")
		return events.NopPublisher{}, func() error { return nil }
	}
	kcfg.LogConfiguration(cfg.Log)

	publisher, err := events.NewKafkaPublisher(kcfg, ServiceName, cfg.Log, events.TopicUsers)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka publisher", "error", err)
	}
	return publisher, publisher.Close
}

func initServices(cfg *config.Config, tokens *auth.TokenManager, publisher events.Publisher) service.UserService {
	mail := mailer.New(mailer.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		User:     cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		From:     cfg.MailFrom,
	}, cfg.Log)

	userService := service.NewUserService(
		repository.NewMongoUserRepository(cfg),
		validator.NewUserValidator(cfg.Log),
		tokens,
		mail,
		publisher,
		clock.System{Location: cfg.Location},
		cfg,
	)

	cfg.Log.Info("User service initialized", "database", cfg.MongoDatabaseName)
	return userService
}
