package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "aptbook"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultRedisAddr        = "localhost:6379"
	DefaultRedisDB          = 0
	DefaultRedisConnTimeout = 5 * time.Second

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultRateLimitRequests = 60
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 10 * 1024 * 1024 // 10MB, image uploads

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultTimeZone = "UTC"

	DefaultCacheListTTL         = 10 * time.Minute
	DefaultCacheDetailTTL       = 10 * time.Minute
	DefaultCacheAvailabilityTTL = 5 * time.Minute

	DefaultBookingLockTTL           = 45 * time.Second
	DefaultBookingLockWait          = 5 * time.Second
	DefaultBookingLockRetryInterval = 100 * time.Millisecond

	DefaultJWTIssuer       = "aptbook"
	DefaultAccessTokenTTL  = 24 * time.Hour
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
	DefaultOTPTTL          = 15 * time.Minute

	DefaultSMTPPort = 587
	DefaultMailFrom = "no-reply@aptbook.local"

	DefaultPaymentAPIURL           = "https://api.stripe.com"
	DefaultPaymentTimeout          = 10 * time.Second
	DefaultPaymentWebhookTolerance = 5 * time.Minute
	DefaultPaymentSuccessURL       = "http://localhost:3000/bookings/success"
	DefaultPaymentCancelURL        = "http://localhost:3000/bookings/cancel"

	DefaultCloudinaryUploadURL = "https://api.cloudinary.com"
)
