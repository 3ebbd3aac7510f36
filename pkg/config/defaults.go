package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "helipad"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort      = "8080"
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
	DefaultEnvFile   = ".env"

	StoreBackendMongo  = "mongo"
	StoreBackendMemory = "memory"

	DefaultStoreBackend    = StoreBackendMongo
	DefaultLockBackend     = StoreBackendMongo
	DefaultLockTTL         = 30 * time.Second
	DefaultLockWaitTimeout = 5 * time.Second

	SettingsSourceEnv   = "env"
	SettingsSourceFile  = "file"
	SettingsSourceMongo = "mongo"

	DefaultResourceID         = "helipad-1"
	DefaultSettingsSource     = SettingsSourceEnv
	DefaultTimezone           = "UTC"
	DefaultOpenTime           = "07:00"
	DefaultCloseTime          = "21:00"
	DefaultMinNoticeMinutes   = 60
	DefaultMaxDurationMinutes = 120
	DefaultBufferMinutes      = 15
	DefaultSlotMinutes        = 15

	NotifierBusNone  = "none"
	NotifierBusKafka = "kafka"
	NotifierBusRedis = "redis"

	DefaultNotifierBus         = NotifierBusNone
	DefaultNotifierTopic       = "helipad.reservations"
	DefaultSubscriberQueueSize = 64
	DefaultStreamWriteTimeout  = 10 * time.Second
	DefaultRelayQueueSize      = 256

	DefaultRedisAddr = "localhost:6379"

	DefaultMailerQueue     = "helipad.notices"
	DefaultMailerWorkers   = 2
	DefaultMailerQueueSize = 128

	DefaultRateLimitRequests = 60
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultDBReadTimeout  = 5 * time.Second
	DefaultDBWriteTimeout = 5 * time.Second

	DefaultPaginationLimit = 100
)
