package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"helipad/pkg/client"
	"helipad/pkg/logger"

	"github.com/joho/godotenv"
)

type Config struct {
	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	Port      string
	LogLevel  string
	LogFormat string

	StoreBackend    string
	LockBackend     string
	LockTTL         time.Duration
	LockWaitTimeout time.Duration

	ResourceID         string
	SettingsSource     string
	SettingsFile       string
	Timezone           string
	OpenTime           string
	CloseTime          string
	BlackoutDates      []string
	MinNoticeMinutes   int
	MaxDurationMinutes int
	BufferMinutes      int
	SlotMinutes        int

	NotifierBus         string
	NotifierTopic       string
	SubscriberQueueSize int
	StreamWriteTimeout  time.Duration
	RelayQueueSize      int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	AMQPURL         string
	MailerQueue     string
	MailerWorkers   int
	MailerQueueSize int

	JWTSecret             string
	TrustPrincipalHeaders bool

	RateLimitRequests int
	RateLimitWindow   time.Duration

	RequestTimeout time.Duration
	IdempotencyTTL time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	DBReadTimeout  time.Duration
	DBWriteTimeout time.Duration

	Log    *logger.Logger
	Client *client.Client
}

// Load reads the optional .env file, then the process environment, and exits
// on invalid configuration.
func Load(serviceName string) *Config {
	_ = godotenv.Load(getEnvStr(EnvEnvFile, DefaultEnvFile))

	cfg := FromEnv()
	cfg.Log = logger.New(logger.Config{
		Level:     cfg.LogLevel,
		Format:    cfg.LogFormat,
		AddSource: true,
		Service:   serviceName,
	})
	cfg.Client = client.NewClient()

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

// FromEnv builds a Config from the environment without validating it or
// attaching a logger.
func FromEnv() *Config {
	return &Config{
		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		Port:      getEnvStr(EnvPort, DefaultPort),
		LogLevel:  getEnvStr(EnvLogLevel, DefaultLogLevel),
		LogFormat: getEnvStr(EnvLogFormat, DefaultLogFormat),

		StoreBackend:    getEnvStr(EnvStoreBackend, DefaultStoreBackend),
		LockBackend:     getEnvStr(EnvLockBackend, DefaultLockBackend),
		LockTTL:         getEnvDuration(EnvLockTTL, DefaultLockTTL),
		LockWaitTimeout: getEnvDuration(EnvLockWaitTimeout, DefaultLockWaitTimeout),

		ResourceID:         getEnvStr(EnvResourceID, DefaultResourceID),
		SettingsSource:     getEnvStr(EnvSettingsSource, DefaultSettingsSource),
		SettingsFile:       getEnvStr(EnvSettingsFile, ""),
		Timezone:           getEnvStr(EnvTimezone, DefaultTimezone),
		OpenTime:           getEnvStr(EnvOpenTime, DefaultOpenTime),
		CloseTime:          getEnvStr(EnvCloseTime, DefaultCloseTime),
		BlackoutDates:      getEnvList(EnvBlackoutDates),
		MinNoticeMinutes:   getEnvNum(EnvMinNoticeMinutes, DefaultMinNoticeMinutes),
		MaxDurationMinutes: getEnvNum(EnvMaxDurationMinutes, DefaultMaxDurationMinutes),
		BufferMinutes:      getEnvNum(EnvBufferMinutes, DefaultBufferMinutes),
		SlotMinutes:        getEnvNum(EnvSlotMinutes, DefaultSlotMinutes),

		NotifierBus:         getEnvStr(EnvNotifierBus, DefaultNotifierBus),
		NotifierTopic:       getEnvStr(EnvNotifierTopic, DefaultNotifierTopic),
		SubscriberQueueSize: getEnvNum(EnvSubscriberQueueSize, DefaultSubscriberQueueSize),
		StreamWriteTimeout:  getEnvDuration(EnvStreamWriteTimeout, DefaultStreamWriteTimeout),
		RelayQueueSize:      getEnvNum(EnvRelayQueueSize, DefaultRelayQueueSize),

		RedisAddr:     getEnvStr(EnvRedisAddr, DefaultRedisAddr),
		RedisPassword: getEnvStr(EnvRedisPassword, ""),
		RedisDB:       getEnvNum(EnvRedisDB, 0),

		AMQPURL:         getEnvStr(EnvAMQPURL, ""),
		MailerQueue:     getEnvStr(EnvMailerQueue, DefaultMailerQueue),
		MailerWorkers:   getEnvNum(EnvMailerWorkers, DefaultMailerWorkers),
		MailerQueueSize: getEnvNum(EnvMailerQueueSize, DefaultMailerQueueSize),

		JWTSecret:             getEnvStr(EnvJWTSecret, ""),
		TrustPrincipalHeaders: getEnvBool(EnvTrustPrincipalHeaders, false),

		RateLimitRequests: getEnvNum(EnvRateLimitRequests, DefaultRateLimitRequests),
		RateLimitWindow:   getEnvDuration(EnvRateLimitWindow, DefaultRateLimitWindow),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		IdempotencyTTL: getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		DBReadTimeout:  getEnvDuration(EnvDBReadTimeout, DefaultDBReadTimeout),
		DBWriteTimeout: getEnvDuration(EnvDBWriteTimeout, DefaultDBWriteTimeout),
	}
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

// UsesMongo reports whether any component needs a Mongo connection.
func (cfg *Config) UsesMongo() bool {
	return cfg.StoreBackend == StoreBackendMongo ||
		cfg.LockBackend == StoreBackendMongo ||
		cfg.SettingsSource == SettingsSourceMongo
}

func (cfg *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	if cfg.StoreBackend != StoreBackendMongo && cfg.StoreBackend != StoreBackendMemory {
		errors = append(errors, fmt.Sprintf("StoreBackend must be 'mongo' or 'memory', got: %s", cfg.StoreBackend))
	}
	if cfg.LockBackend != StoreBackendMongo && cfg.LockBackend != StoreBackendMemory {
		errors = append(errors, fmt.Sprintf("LockBackend must be 'mongo' or 'memory', got: %s", cfg.LockBackend))
	}
	if cfg.LockTTL <= 0 {
		errors = append(errors, fmt.Sprintf("LockTTL must be positive, got: %s", cfg.LockTTL))
	}
	if cfg.LockWaitTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("LockWaitTimeout must be positive, got: %s", cfg.LockWaitTimeout))
	}

	if cfg.UsesMongo() {
		if cfg.MongoURI == "" {
			errors = append(errors, "MongoURI cannot be empty")
		} else if len(cfg.MongoURI) < 10 || !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
			errors = append(errors, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", redactMongoURI(cfg.MongoURI)))
		}
		if cfg.MongoDatabaseName == "" {
			errors = append(errors, "MongoDatabaseName cannot be empty")
		}
		if cfg.MongoConnTimeout <= 0 {
			errors = append(errors, fmt.Sprintf("MongoConnTimeout must be positive, got: %s", cfg.MongoConnTimeout))
		}
	}

	if strings.TrimSpace(cfg.ResourceID) == "" {
		errors = append(errors, "ResourceID cannot be empty")
	}
	switch cfg.SettingsSource {
	case SettingsSourceEnv, SettingsSourceMongo:
	case SettingsSourceFile:
		if cfg.SettingsFile == "" {
			errors = append(errors, "SettingsFile is required when SettingsSource is 'file'")
		}
	default:
		errors = append(errors, fmt.Sprintf("SettingsSource must be 'env', 'file' or 'mongo', got: %s", cfg.SettingsSource))
	}

	timeRegex := regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)
	if !timeRegex.MatchString(cfg.OpenTime) {
		errors = append(errors, fmt.Sprintf("OpenTime must be in HH:MM format (00:00-23:59), got: %s", cfg.OpenTime))
	}
	if !timeRegex.MatchString(cfg.CloseTime) {
		errors = append(errors, fmt.Sprintf("CloseTime must be in HH:MM format (00:00-23:59), got: %s", cfg.CloseTime))
	}
	if timeRegex.MatchString(cfg.OpenTime) && timeRegex.MatchString(cfg.CloseTime) && cfg.CloseTime <= cfg.OpenTime {
		errors = append(errors, fmt.Sprintf("CloseTime (%s) must be after OpenTime (%s)", cfg.CloseTime, cfg.OpenTime))
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		errors = append(errors, fmt.Sprintf("Timezone is not a valid IANA zone, got: %s", cfg.Timezone))
	}
	for _, d := range cfg.BlackoutDates {
		if _, err := time.Parse("2006-01-02", d); err != nil {
			errors = append(errors, fmt.Sprintf("BlackoutDates entries must be YYYY-MM-DD, got: %s", d))
		}
	}
	if cfg.MinNoticeMinutes < 0 {
		errors = append(errors, fmt.Sprintf("MinNoticeMinutes cannot be negative, got: %d", cfg.MinNoticeMinutes))
	}
	if cfg.MaxDurationMinutes <= 0 {
		errors = append(errors, fmt.Sprintf("MaxDurationMinutes must be positive, got: %d", cfg.MaxDurationMinutes))
	}
	if cfg.BufferMinutes < 0 {
		errors = append(errors, fmt.Sprintf("BufferMinutes cannot be negative, got: %d", cfg.BufferMinutes))
	}
	if cfg.SlotMinutes <= 0 {
		errors = append(errors, fmt.Sprintf("SlotMinutes must be positive, got: %d", cfg.SlotMinutes))
	}

	switch cfg.NotifierBus {
	case NotifierBusNone, NotifierBusKafka:
	case NotifierBusRedis:
		if cfg.RedisAddr == "" {
			errors = append(errors, "RedisAddr is required when NotifierBus is 'redis'")
		}
	default:
		errors = append(errors, fmt.Sprintf("NotifierBus must be 'none', 'kafka' or 'redis', got: %s", cfg.NotifierBus))
	}
	if cfg.NotifierTopic == "" {
		errors = append(errors, "NotifierTopic cannot be empty")
	}
	if cfg.SubscriberQueueSize <= 0 {
		errors = append(errors, fmt.Sprintf("SubscriberQueueSize must be positive, got: %d", cfg.SubscriberQueueSize))
	}
	if cfg.StreamWriteTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("StreamWriteTimeout must be positive, got: %s", cfg.StreamWriteTimeout))
	}
	if cfg.RelayQueueSize <= 0 {
		errors = append(errors, fmt.Sprintf("RelayQueueSize must be positive, got: %d", cfg.RelayQueueSize))
	}

	if cfg.AMQPURL != "" && !strings.HasPrefix(cfg.AMQPURL, "amqp://") && !strings.HasPrefix(cfg.AMQPURL, "amqps://") {
		errors = append(errors, "AMQPURL must start with 'amqp://' or 'amqps://'")
	}
	if cfg.MailerWorkers <= 0 {
		errors = append(errors, fmt.Sprintf("MailerWorkers must be positive, got: %d", cfg.MailerWorkers))
	}
	if cfg.MailerQueueSize <= 0 {
		errors = append(errors, fmt.Sprintf("MailerQueueSize must be positive, got: %d", cfg.MailerQueueSize))
	}

	if cfg.RateLimitWindow <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitWindow must be positive, got: %s", cfg.RateLimitWindow))
	}
	if cfg.RateLimitRequests <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitRequests must be positive, got: %d", cfg.RateLimitRequests))
	}
	if cfg.RequestTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("RequestTimeout must be positive, got: %s", cfg.RequestTimeout))
	}
	if cfg.IdempotencyTTL <= 0 {
		errors = append(errors, fmt.Sprintf("IdempotencyTTL must be positive, got: %s", cfg.IdempotencyTTL))
	}
	if cfg.MaxRequestSize <= 0 {
		errors = append(errors, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}
	if cfg.ReadTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ReadTimeout must be positive, got: %s", cfg.ReadTimeout))
	}
	if cfg.WriteTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("WriteTimeout must be positive, got: %s", cfg.WriteTimeout))
	}
	if cfg.IdleTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("IdleTimeout must be positive, got: %s", cfg.IdleTimeout))
	}
	if cfg.ShutdownTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ShutdownTimeout must be positive, got: %s", cfg.ShutdownTimeout))
	}
	if cfg.DBReadTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("DBReadTimeout must be positive, got: %s", cfg.DBReadTimeout))
	}
	if cfg.DBWriteTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("DBWriteTimeout must be positive, got: %s", cfg.DBWriteTimeout))
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
		"port", cfg.Port,
		"store_backend", cfg.StoreBackend,
		"lock_backend", cfg.LockBackend,
		"lock_ttl", cfg.LockTTL,
		"lock_wait_timeout", cfg.LockWaitTimeout,
		"resource_id", cfg.ResourceID,
		"settings_source", cfg.SettingsSource,
		"settings_file", cfg.SettingsFile,
		"timezone", cfg.Timezone,
		"open_time", cfg.OpenTime,
		"close_time", cfg.CloseTime,
		"blackout_dates", len(cfg.BlackoutDates),
		"min_notice_minutes", cfg.MinNoticeMinutes,
		"max_duration_minutes", cfg.MaxDurationMinutes,
		"buffer_minutes", cfg.BufferMinutes,
		"slot_minutes", cfg.SlotMinutes,
		"notifier_bus", cfg.NotifierBus,
		"notifier_topic", cfg.NotifierTopic,
		"redis_addr", cfg.RedisAddr,
		"redis_password_set", cfg.RedisPassword != "",
		"amqp_url", redactURLCredentials(cfg.AMQPURL),
		"mailer_workers", cfg.MailerWorkers,
		"jwt_secret_set", cfg.JWTSecret != "",
		"trust_principal_headers", cfg.TrustPrincipalHeaders,
		"rate_limit_requests", cfg.RateLimitRequests,
		"rate_limit_window", cfg.RateLimitWindow,
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"max_request_size", cfg.MaxRequestSize,
		"shutdown_timeout", cfg.ShutdownTimeout,
		"db_read_timeout", cfg.DBReadTimeout,
		"db_write_timeout", cfg.DBWriteTimeout,
	)
}

func redactMongoURI(uri string) string {
	credentialRegex := regexp.MustCompile(`(mongodb(\+srv)?://)[^:]+:[^@]+@`)
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func redactURLCredentials(uri string) string {
	credentialRegex := regexp.MustCompile(`(amqps?://)[^:]+:[^@]+@`)
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

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
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

func getEnvList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown(cfg.Log, cfg.ShutdownTimeout)
}

func NormalizePaginationLimit(limit int) int {
	if limit <= 0 {
		limit = 10
	} else if limit > DefaultPaginationLimit {
		limit = DefaultPaginationLimit
	}
	return limit
}

func NormalizeOffset(offset int64) int64 {
	return max(0, offset)
}
