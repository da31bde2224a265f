package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvRedisAddr        = "REDIS_ADDR"
	EnvRedisPassword    = "REDIS_PASSWORD"
	EnvRedisDB          = "REDIS_DB"
	EnvRedisConnTimeout = "REDIS_CONN_TIMEOUT"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvTimeZone = "TIME_ZONE"

	EnvCacheListTTL         = "CACHE_LIST_TTL"
	EnvCacheDetailTTL       = "CACHE_DETAIL_TTL"
	EnvCacheAvailabilityTTL = "CACHE_AVAILABILITY_TTL"

	EnvBookingLockTTL           = "BOOKING_LOCK_TTL"
	EnvBookingLockWait          = "BOOKING_LOCK_WAIT"
	EnvBookingLockRetryInterval = "BOOKING_LOCK_RETRY_INTERVAL"

	EnvJWTSecret       = "JWT_SECRET"
	EnvJWTIssuer       = "JWT_ISSUER"
	EnvAccessTokenTTL  = "ACCESS_TOKEN_TTL"
	EnvRefreshTokenTTL = "REFRESH_TOKEN_TTL"
	EnvOTPTTL          = "OTP_TTL"

	EnvSMTPHost     = "SMTP_HOST"
	EnvSMTPPort     = "SMTP_PORT"
	EnvSMTPUser     = "SMTP_USER"
	EnvSMTPPassword = "SMTP_PASSWORD"
	EnvMailFrom     = "MAIL_FROM"

	EnvPaymentAPIURL           = "PAYMENT_API_URL"
	EnvPaymentAPIKey           = "PAYMENT_API_KEY"
	EnvPaymentTimeout          = "PAYMENT_TIMEOUT"
	EnvPaymentWebhookSecret    = "PAYMENT_WEBHOOK_SECRET"
	EnvPaymentWebhookTolerance = "PAYMENT_WEBHOOK_TOLERANCE"
	EnvPaymentSuccessURL       = "PAYMENT_SUCCESS_URL"
	EnvPaymentCancelURL        = "PAYMENT_CANCEL_URL"

	EnvCloudinaryUploadURL = "CLOUDINARY_UPLOAD_URL"
	EnvCloudinaryCloudName = "CLOUDINARY_CLOUD_NAME"
	EnvCloudinaryAPIKey    = "CLOUDINARY_API_KEY"
	EnvCloudinaryAPISecret = "CLOUDINARY_API_SECRET"

	EnvSealerKey = "SEALER_KEY"
)
