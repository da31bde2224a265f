package config

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"
	_ "time/tzdata"

	"aptbook/pkg/client"
	"aptbook/pkg/logger"

	"github.com/joho/godotenv"
)

type Config struct {
	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	RedisConnTimeout time.Duration

	Port string

	RateLimitRequests int
	RateLimitWindow   time.Duration

	RequestTimeout time.Duration
	IdempotencyTTL time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	TimeZone string
	Location *time.Location

	CacheListTTL         time.Duration
	CacheDetailTTL       time.Duration
	CacheAvailabilityTTL time.Duration

	BookingLockTTL           time.Duration
	BookingLockWait          time.Duration
	BookingLockRetryInterval time.Duration

	JWTSecret       string
	JWTIssuer       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	OTPTTL          time.Duration

	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	MailFrom     string

	PaymentAPIURL           string
	PaymentAPIKey           string
	PaymentTimeout          time.Duration
	PaymentWebhookSecret    string
	PaymentWebhookTolerance time.Duration
	PaymentSuccessURL       string
	PaymentCancelURL        string

	CloudinaryUploadURL string
	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string

	SealerKey string

	Log    *logger.Logger
	Client *client.Client
}

// Load reads the configuration from the environment, optionally seeded from a
// .env file in the working directory, and exits the process if it is invalid.
func Load(serviceName string) *Config {
	_ = godotenv.Load()

	log := logger.New(logger.Config{
		Level:     getEnvStr(EnvLogLevel, DefaultLogLevel),
		Format:    logger.JSON,
		AddSource: true,
		Service:   serviceName,
	})

	cfg := FromEnv(log)
	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

// FromEnv builds a Config from environment variables and defaults without validating it.
func FromEnv(log *logger.Logger) *Config {
	cfg := &Config{
		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		RedisAddr:        getEnvStr(EnvRedisAddr, DefaultRedisAddr),
		RedisPassword:    getEnvStr(EnvRedisPassword, ""),
		RedisDB:          getEnvNum(EnvRedisDB, DefaultRedisDB),
		RedisConnTimeout: getEnvDuration(EnvRedisConnTimeout, DefaultRedisConnTimeout),

		Port: getEnvStr(EnvPort, DefaultPort),

		RateLimitRequests: getEnvNum(EnvRateLimitRequests, DefaultRateLimitRequests),
		RateLimitWindow:   getEnvDuration(EnvRateLimitWindow, DefaultRateLimitWindow),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		IdempotencyTTL: getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		TimeZone: getEnvStr(EnvTimeZone, DefaultTimeZone),

		CacheListTTL:         getEnvDuration(EnvCacheListTTL, DefaultCacheListTTL),
		CacheDetailTTL:       getEnvDuration(EnvCacheDetailTTL, DefaultCacheDetailTTL),
		CacheAvailabilityTTL: getEnvDuration(EnvCacheAvailabilityTTL, DefaultCacheAvailabilityTTL),

		BookingLockTTL:           getEnvDuration(EnvBookingLockTTL, DefaultBookingLockTTL),
		BookingLockWait:          getEnvDuration(EnvBookingLockWait, DefaultBookingLockWait),
		BookingLockRetryInterval: getEnvDuration(EnvBookingLockRetryInterval, DefaultBookingLockRetryInterval),

		JWTSecret:       getEnvStr(EnvJWTSecret, ""),
		JWTIssuer:       getEnvStr(EnvJWTIssuer, DefaultJWTIssuer),
		AccessTokenTTL:  getEnvDuration(EnvAccessTokenTTL, DefaultAccessTokenTTL),
		RefreshTokenTTL: getEnvDuration(EnvRefreshTokenTTL, DefaultRefreshTokenTTL),
		OTPTTL:          getEnvDuration(EnvOTPTTL, DefaultOTPTTL),

		SMTPHost:     getEnvStr(EnvSMTPHost, ""),
		SMTPPort:     getEnvNum(EnvSMTPPort, DefaultSMTPPort),
		SMTPUser:     getEnvStr(EnvSMTPUser, ""),
		SMTPPassword: getEnvStr(EnvSMTPPassword, ""),
		MailFrom:     getEnvStr(EnvMailFrom, DefaultMailFrom),

		PaymentAPIURL:           getEnvStr(EnvPaymentAPIURL, DefaultPaymentAPIURL),
		PaymentAPIKey:           getEnvStr(EnvPaymentAPIKey, ""),
		PaymentTimeout:          getEnvDuration(EnvPaymentTimeout, DefaultPaymentTimeout),
		PaymentWebhookSecret:    getEnvStr(EnvPaymentWebhookSecret, ""),
		PaymentWebhookTolerance: getEnvDuration(EnvPaymentWebhookTolerance, DefaultPaymentWebhookTolerance),
		PaymentSuccessURL:       getEnvStr(EnvPaymentSuccessURL, DefaultPaymentSuccessURL),
		PaymentCancelURL:        getEnvStr(EnvPaymentCancelURL, DefaultPaymentCancelURL),

		CloudinaryUploadURL: getEnvStr(EnvCloudinaryUploadURL, DefaultCloudinaryUploadURL),
		CloudinaryCloudName: getEnvStr(EnvCloudinaryCloudName, ""),
		CloudinaryAPIKey:    getEnvStr(EnvCloudinaryAPIKey, ""),
		CloudinaryAPISecret: getEnvStr(EnvCloudinaryAPISecret, ""),

		SealerKey: getEnvStr(EnvSealerKey, ""),

		Log:    log,
		Client: client.NewClient(log),
	}

	if loc, err := time.LoadLocation(cfg.TimeZone); err == nil {
		cfg.Location = loc
	}
	return cfg
}

// ValidatePayments checks the settings a service that accepts payment
// webhooks cannot run without.
func (cfg *Config) ValidatePayments() error {
	if cfg.PaymentWebhookSecret == "" {
		return fmt.Errorf("PaymentWebhookSecret cannot be empty")
	}
	return nil
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.MongoURI, cfg.MongoConnTimeout)
}

func (cfg *Config) SetRedis() {
	cfg.Client.SetRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisConnTimeout)
}

func (cfg *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	if cfg.MongoURI == "" {
		errors = append(errors, "MongoURI cannot be empty")
	} else if !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
		errors = append(errors, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", redactMongoURI(cfg.MongoURI)))
	}
	if cfg.MongoDatabaseName == "" {
		errors = append(errors, "MongoDatabaseName cannot be empty")
	}
	if cfg.RedisAddr == "" {
		errors = append(errors, "RedisAddr cannot be empty")
	}
	if cfg.RedisDB < 0 {
		errors = append(errors, fmt.Sprintf("RedisDB cannot be negative, got: %d", cfg.RedisDB))
	}

	if cfg.Location == nil {
		errors = append(errors, fmt.Sprintf("TimeZone must be a valid IANA zone, got: %s", cfg.TimeZone))
	}

	positive := []struct {
		name  string
		value time.Duration
	}{
		{"MongoConnTimeout", cfg.MongoConnTimeout},
		{"RedisConnTimeout", cfg.RedisConnTimeout},
		{"RateLimitWindow", cfg.RateLimitWindow},
		{"RequestTimeout", cfg.RequestTimeout},
		{"IdempotencyTTL", cfg.IdempotencyTTL},
		{"ReadTimeout", cfg.ReadTimeout},
		{"WriteTimeout", cfg.WriteTimeout},
		{"IdleTimeout", cfg.IdleTimeout},
		{"ShutdownTimeout", cfg.ShutdownTimeout},
		{"CacheListTTL", cfg.CacheListTTL},
		{"CacheDetailTTL", cfg.CacheDetailTTL},
		{"CacheAvailabilityTTL", cfg.CacheAvailabilityTTL},
		{"BookingLockTTL", cfg.BookingLockTTL},
		{"BookingLockWait", cfg.BookingLockWait},
		{"BookingLockRetryInterval", cfg.BookingLockRetryInterval},
		{"AccessTokenTTL", cfg.AccessTokenTTL},
		{"RefreshTokenTTL", cfg.RefreshTokenTTL},
		{"OTPTTL", cfg.OTPTTL},
		{"PaymentTimeout", cfg.PaymentTimeout},
		{"PaymentWebhookTolerance", cfg.PaymentWebhookTolerance},
	}
	for _, p := range positive {
		if p.value <= 0 {
			errors = append(errors, fmt.Sprintf("%s must be positive, got: %s", p.name, p.value))
		}
	}

	if cfg.RefreshTokenTTL < cfg.AccessTokenTTL {
		errors = append(errors, fmt.Sprintf("RefreshTokenTTL (%s) must be >= AccessTokenTTL (%s)", cfg.RefreshTokenTTL, cfg.AccessTokenTTL))
	}
	if cfg.BookingLockTTL <= cfg.RequestTimeout {
		errors = append(errors, fmt.Sprintf("BookingLockTTL (%s) must be > RequestTimeout (%s)", cfg.BookingLockTTL, cfg.RequestTimeout))
	}
	if cfg.BookingLockRetryInterval > cfg.BookingLockWait {
		errors = append(errors, fmt.Sprintf("BookingLockRetryInterval (%s) must be <= BookingLockWait (%s)", cfg.BookingLockRetryInterval, cfg.BookingLockWait))
	}

	if cfg.RateLimitRequests <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitRequests must be positive, got: %d", cfg.RateLimitRequests))
	}
	if cfg.MaxRequestSize <= 0 {
		errors = append(errors, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}
	if cfg.SMTPPort < 1 || cfg.SMTPPort > 65535 {
		errors = append(errors, fmt.Sprintf("SMTPPort must be between 1 and 65535, got: %d", cfg.SMTPPort))
	}

	if cfg.JWTSecret != "" && len(cfg.JWTSecret) < 32 {
		errors = append(errors, "JWTSecret must be at least 32 characters")
	}
	if n := len(cfg.SealerKey); n != 0 && n != 16 && n != 24 && n != 32 {
		errors = append(errors, fmt.Sprintf("SealerKey must be 16, 24 or 32 bytes, got: %d", n))
	}

	if len(errors) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, err := range errors {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"mongo_uri", redactMongoURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"redis_addr", cfg.RedisAddr,
		"redis_db", cfg.RedisDB,
		"port", cfg.Port,
		"rate_limit_requests", cfg.RateLimitRequests,
		"rate_limit_window", cfg.RateLimitWindow,
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
		"time_zone", cfg.TimeZone,
		"cache_list_ttl", cfg.CacheListTTL,
		"cache_detail_ttl", cfg.CacheDetailTTL,
		"cache_availability_ttl", cfg.CacheAvailabilityTTL,
		"booking_lock_ttl", cfg.BookingLockTTL,
		"booking_lock_wait", cfg.BookingLockWait,
		"jwt_secret_set", cfg.JWTSecret != "",
		"access_token_ttl", cfg.AccessTokenTTL,
		"refresh_token_ttl", cfg.RefreshTokenTTL,
		"otp_ttl", cfg.OTPTTL,
		"smtp_host", cfg.SMTPHost,
		"smtp_port", cfg.SMTPPort,
		"payment_api_url", cfg.PaymentAPIURL,
		"payment_api_key_set", cfg.PaymentAPIKey != "",
		"payment_webhook_secret_set", cfg.PaymentWebhookSecret != "",
		"cloudinary_cloud_name", cfg.CloudinaryCloudName,
		"sealer_key_set", cfg.SealerKey != "",
	)
}

func (cfg *Config) GracefulShutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	cfg.Client.GracefulShutdown(ctx)
}

func redactMongoURI(uri string) string {
	credentialRegex := regexp.MustCompile(`(mongodb(\+srv)?://)[^:]+:[^@]+@`)
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
