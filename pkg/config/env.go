package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvPort      = "PORT"
	EnvLogLevel  = "LOG_LEVEL"
	EnvLogFormat = "LOG_FORMAT"
	EnvEnvFile   = "ENV_FILE"

	EnvStoreBackend    = "STORE_BACKEND"
	EnvLockBackend     = "LOCK_BACKEND"
	EnvLockTTL         = "LOCK_TTL"
	EnvLockWaitTimeout = "LOCK_WAIT_TIMEOUT"

	EnvResourceID         = "RESOURCE_ID"
	EnvSettingsSource     = "SETTINGS_SOURCE"
	EnvSettingsFile       = "SETTINGS_FILE"
	EnvTimezone           = "HELIPAD_TIMEZONE"
	EnvOpenTime           = "HELIPAD_OPEN_TIME"
	EnvCloseTime          = "HELIPAD_CLOSE_TIME"
	EnvBlackoutDates      = "HELIPAD_BLACKOUT_DATES"
	EnvMinNoticeMinutes   = "HELIPAD_MIN_NOTICE_MINUTES"
	EnvMaxDurationMinutes = "HELIPAD_MAX_DURATION_MINUTES"
	EnvBufferMinutes      = "HELIPAD_BUFFER_MINUTES"
	EnvSlotMinutes        = "HELIPAD_SLOT_MINUTES"

	EnvNotifierBus         = "NOTIFIER_BUS"
	EnvNotifierTopic       = "NOTIFIER_TOPIC"
	EnvSubscriberQueueSize = "SUBSCRIBER_QUEUE_SIZE"
	EnvStreamWriteTimeout  = "STREAM_WRITE_TIMEOUT"
	EnvRelayQueueSize      = "RELAY_QUEUE_SIZE"

	EnvRedisAddr     = "REDIS_ADDR"
	EnvRedisPassword = "REDIS_PASSWORD"
	EnvRedisDB       = "REDIS_DB"

	EnvAMQPURL         = "AMQP_URL"
	EnvMailerQueue     = "MAILER_QUEUE"
	EnvMailerWorkers   = "MAILER_WORKERS"
	EnvMailerQueueSize = "MAILER_QUEUE_SIZE"

	EnvJWTSecret             = "JWT_SECRET"
	EnvTrustPrincipalHeaders = "TRUST_PRINCIPAL_HEADERS"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvDBReadTimeout  = "DB_READ_TIMEOUT"
	EnvDBWriteTimeout = "DB_WRITE_TIMEOUT"
)
