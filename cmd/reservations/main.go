package main

import (
	"context"
	"errors"
	"time"

	"helipad/internal/mailer"
	"helipad/internal/notifier"
	"helipad/internal/reservations/handler"
	"helipad/internal/reservations/repository"
	"helipad/internal/reservations/service"
	"helipad/internal/reservations/validator"
	"helipad/internal/settings"
	"helipad/pkg/app"
	"helipad/pkg/config"
	kafka_config "helipad/pkg/kafka/config"

	"github.com/redis/go-redis/v9"
)

const (
	ServiceName      = "reservations"
	redisConnTimeout = 10 * time.Second
)

func main() {
	cfg := config.Load(ServiceName)

	if cfg.UsesMongo() {
		cfg.SetMongo()
	}

	cfg.Log.Info("Starting Reservations service", "resource_id", cfg.ResourceID)

	serverApp := app.NewApplication(cfg)

	hub := notifier.NewHub(cfg.SubscriberQueueSize, cfg.Log)
	publisher := initNotifier(cfg, serverApp, hub)
	notices := initMailer(cfg, serverApp)
	serverApp.OnShutdown("hub", func() error {
		hub.Close()
		return nil
	})
	serverApp.OnShutdown("mongo", func() error {
		cfg.GracefulShutdown()
		return nil
	})

	reservationService := initServices(cfg, publisher, notices)

	serverApp.SetApp(
		handler.NewHealthHandler(cfg.Client.Mongo, hub, cfg.Log),
		handler.NewStreamHandler(hub, cfg.StreamWriteTimeout, cfg.Log),
		handler.NewReservationHandler(reservationService, cfg.Log),
	)
	serverApp.Run()
}

func initServices(cfg *config.Config, publisher notifier.Publisher, notices mailer.Notifier) service.ReservationService {
	var repo repository.ReservationRepository
	if cfg.StoreBackend == config.StoreBackendMemory {
		repo = repository.NewMemoryReservationRepository()
		cfg.Log.Warn("Using in-memory reservation store, data is lost on restart")
	} else {
		repo = repository.NewMongoReservationRepository(cfg)
	}

	var locker repository.SlotLocker
	if cfg.LockBackend == config.StoreBackendMemory {
		locker = repository.NewMemorySlotLocker(cfg.LockWaitTimeout)
	} else {
		locker = repository.NewMongoSlotLocker(cfg)
	}

	reservationService := service.NewReservationService(
		repo,
		locker,
		initSettings(cfg),
		publisher,
		notices,
		validator.NewReservationValidator(cfg.Log),
		cfg,
	)

	cfg.Log.Info("Reservation service initialized",
		"store", cfg.StoreBackend,
		"lock", cfg.LockBackend,
		"settings", cfg.SettingsSource,
	)
	return reservationService
}

func initSettings(cfg *config.Config) settings.Provider {
	fallback := settings.FromConfig(cfg)

	switch cfg.SettingsSource {
	case config.SettingsSourceFile:
		provider, err := settings.NewFileProvider(cfg.SettingsFile, fallback, cfg.Log)
		if err != nil {
			cfg.Log.Fatal("Failed to load settings file", "path", cfg.SettingsFile, "error", err)
		}
		return provider
	case config.SettingsSourceMongo:
		return settings.NewMongoProvider(cfg)
	default:
		provider, err := settings.NewStaticProvider(fallback)
		if err != nil {
			cfg.Log.Fatal("Invalid helipad settings", "error", err)
		}
		return provider
	}
}

// initNotifier returns the engine-facing publisher. Without a bus the engine
// publishes straight into the local hub; with one, events travel through the
// bus and every process feeds its own hub from it.
func initNotifier(cfg *config.Config, serverApp *app.Application, hub *notifier.Hub) notifier.Publisher {
	var (
		bus      notifier.Bus
		source   notifier.Source
		closeBus func() error
		err      error
	)

	switch cfg.NotifierBus {
	case config.NotifierBusKafka:
		kafkaCfg, loadErr := kafka_config.Load()
		if loadErr != nil {
			cfg.Log.Fatal("Invalid Kafka configuration", "error", loadErr)
		}
		kafkaCfg.LogConfiguration(cfg.Log.Info)

		if bus, err = notifier.NewKafkaBus(kafkaCfg, cfg.NotifierTopic, cfg.Log); err != nil {
			cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
		}
		if source, err = notifier.NewKafkaSource(kafkaCfg, cfg.NotifierTopic, cfg.Log); err != nil {
			cfg.Log.Fatal("Failed to create Kafka consumer", "error", err)
		}

	case config.NotifierBusRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), redisConnTimeout)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			cfg.Log.Fatal("Failed to connect to Redis", "addr", cfg.RedisAddr, "error", err)
		}
		bus = notifier.NewRedisBus(client, cfg.NotifierTopic)
		if source, err = notifier.NewRedisSource(ctx, client, cfg.NotifierTopic); err != nil {
			cfg.Log.Fatal("Failed to subscribe to Redis channel", "channel", cfg.NotifierTopic, "error", err)
		}
		closeBus = client.Close

	default:
		cfg.Log.Info("Notifier running in-process only")
		return hub
	}

	feed := notifier.NewFeed(source, hub, cfg.Log)
	go func() {
		if err := feed.Run(context.Background()); err != nil && !errors.Is(err, context.Canceled) {
			cfg.Log.Error("Notifier feed stopped", "error", err)
		}
	}()
	relay := notifier.NewRelay(bus, cfg.RelayQueueSize, cfg.Log)

	// Relay first so in-flight events are flushed before the feed stops.
	serverApp.OnShutdown("relay", relay.Close)
	serverApp.OnShutdown("feed", feed.Close)
	if closeBus != nil {
		serverApp.OnShutdown(cfg.NotifierBus, closeBus)
	}

	cfg.Log.Info("Notifier bus configured", "bus", cfg.NotifierBus, "topic", cfg.NotifierTopic)
	return relay
}

func initMailer(cfg *config.Config, serverApp *app.Application) mailer.Notifier {
	var sink mailer.Sink
	if cfg.AMQPURL != "" {
		amqpSink, err := mailer.NewAMQPSink(cfg.AMQPURL, cfg.MailerQueue)
		if err != nil {
			cfg.Log.Fatal("Failed to connect to RabbitMQ", "error", err)
		}
		sink = amqpSink
		cfg.Log.Info("Mailer publishing to RabbitMQ", "queue", cfg.MailerQueue)
	} else {
		sink = mailer.NewLogSink(cfg.Log)
		cfg.Log.Info("AMQP_URL not set, mailer notices are logged only")
	}

	dispatcher := mailer.NewDispatcher(sink, cfg.MailerWorkers, cfg.MailerQueueSize, cfg.Log)
	serverApp.OnShutdown("mailer", dispatcher.Close)
	return dispatcher
}
