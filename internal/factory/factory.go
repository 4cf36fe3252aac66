package factory

import (
	"context"
	"fmt"
	"sync"

	"hfl-auth/internal/bucketing"
	"hfl-auth/internal/client"
	"hfl-auth/internal/config"
	"hfl-auth/internal/events"
	"hfl-auth/internal/handler"
	"hfl-auth/internal/model"
	"hfl-auth/internal/otp"
	"hfl-auth/internal/player"
	"hfl-auth/internal/ratelimit"
	"hfl-auth/internal/session"
	"hfl-auth/internal/sms"
	"hfl-auth/internal/store"
	"hfl-auth/internal/store/scylla"
	"hfl-auth/internal/util"
)

// Factory wires and owns the lifecycle of all application dependencies.
// Scylla, kafka, and clickhouse are required in production; in development
// the factory degrades to in-memory stores so the service runs standalone.
type Factory struct {
	config *config.Config

	redisClient      *client.RedisClient
	scyllaClient     *scylla.Client
	kafkaProducer    *client.KafkaProducer
	clickhouseClient *client.ClickHouseClient

	bucketingManager *bucketing.Manager
	records          *store.RecordStore
	playerGateway    model.PlayerGateway
	sender           sms.Sender
	publisher        *events.Publisher
	auditSink        *events.AuditSink
	engine           *otp.Engine
	sessions         *session.Service
	limiter          *ratelimit.Limiter
	authHandler      *handler.AuthHandler

	closeOnce sync.Once
	closed    chan struct{}
}

func NewFactory() (*Factory, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	util.Init(cfg.Environment, cfg.Logging.Level, cfg.Logging.Format)

	f := &Factory{
		config: cfg,
		closed: make(chan struct{}),
	}

	if err := f.initializeClients(); err != nil {
		return nil, fmt.Errorf("failed to initialize clients: %w", err)
	}

	if err := f.initializeComponents(); err != nil {
		return nil, fmt.Errorf("failed to initialize components: %w", err)
	}

	util.Info("Factory initialized",
		util.String("environment", cfg.Environment))

	return f, nil
}

func (f *Factory) initializeClients() error {
	var initErrors []error

	if redisClient, err := client.NewRedisClient(f.config, util.Get()); err != nil {
		initErrors = append(initErrors, fmt.Errorf("redis: %w", err))
	} else {
		f.redisClient = redisClient
	}

	if scyllaClient, err := scylla.NewClient(f.config, util.Get()); err != nil {
		initErrors = append(initErrors, fmt.Errorf("scylla: %w", err))
	} else {
		f.scyllaClient = scyllaClient
		if err := f.scyllaClient.HealthCheck(); err != nil {
			initErrors = append(initErrors, fmt.Errorf("scylla health check: %w", err))
		}
	}

	// Eventing and audit are optional everywhere: the auth flow must not
	// depend on them.
	if producer, err := client.NewKafkaProducer(f.config, util.Get()); err != nil {
		util.Warn("Kafka producer initialization failed, proceeding without eventing", util.ErrorField(err))
	} else {
		f.kafkaProducer = producer
	}

	if chClient, err := client.NewClickHouseClient(f.config, util.Get()); err != nil {
		util.Warn("ClickHouse initialization failed, proceeding without audit sink", util.ErrorField(err))
	} else {
		f.clickhouseClient = chClient
	}

	if len(initErrors) > 0 {
		if f.config.IsProduction() {
			return fmt.Errorf("critical service initialization failed: %v", initErrors)
		}
		for _, err := range initErrors {
			util.Warn("Service initialization warning", util.ErrorField(err))
		}
	}

	return nil
}

func (f *Factory) initializeComponents() error {
	f.bucketingManager = bucketing.NewManager(f.config)

	cache := store.NewMemoryCache()
	switch {
	case f.scyllaClient != nil:
		f.records = store.NewRecordStore(cache, scylla.NewOTPStore(f.scyllaClient, f.bucketingManager))
		f.playerGateway = scylla.NewPlayerStore(f.scyllaClient, f.bucketingManager)
	case f.config.IsDevelopment():
		util.Warn("Scylla unavailable, using in-memory stores (development only)")
		f.records = store.NewRecordStore(cache, store.NewMemoryStore())
		f.playerGateway = player.NewMemoryGateway()
	default:
		return fmt.Errorf("no durable store available outside development")
	}

	if gateway, err := sms.NewGateway(f.config); err != nil {
		if !f.config.IsDevelopment() {
			return fmt.Errorf("sms gateway: %w", err)
		}
		util.Warn("SMS credentials missing, using dev sender")
		f.sender = sms.NewDevSender()
	} else {
		f.sender = gateway
	}

	f.publisher = events.NewPublisher(f.kafkaProducer)
	f.auditSink = events.NewAuditSink(f.clickhouseClient)
	f.auditSink.Start()

	var locker otp.Locker
	if f.redisClient != nil {
		locker = otp.NewRedisLocker(f.redisClient)
	}

	f.engine = otp.NewEngine(f.config, f.records, f.sender, f.publisher, f.auditSink, locker)

	sessions, err := session.NewService(f.config, f.redisClient)
	if err != nil {
		return fmt.Errorf("session service: %w", err)
	}
	f.sessions = sessions

	f.limiter = ratelimit.NewLimiter(f.config, f.redisClient, f.bucketingManager)

	f.authHandler = handler.NewAuthHandler(f.engine, f.playerGateway, f.sessions, f.limiter, f.config.IsProduction(), util.Get())

	return nil
}

func (f *Factory) HealthCheck(ctx context.Context) map[string]error {
	healthErrors := make(map[string]error)

	if f.redisClient != nil {
		if err := f.redisClient.HealthCheck(ctx); err != nil {
			healthErrors["redis"] = err
		}
	}

	if f.scyllaClient != nil {
		if err := f.scyllaClient.HealthCheck(); err != nil {
			healthErrors["scylla"] = err
		}
	}

	if f.clickhouseClient != nil {
		if err := f.clickhouseClient.HealthCheck(ctx); err != nil {
			healthErrors["clickhouse"] = err
		}
	}

	if f.kafkaProducer != nil {
		if err := f.kafkaProducer.HealthCheck(ctx); err != nil {
			healthErrors["kafka"] = err
		}
	}

	return healthErrors
}

func (f *Factory) Close() error {
	f.closeOnce.Do(func() {
		close(f.closed)
		util.Info("Shutting down factory...")

		f.auditSink.Stop()

		if f.clickhouseClient != nil {
			if err := f.clickhouseClient.Close(); err != nil {
				util.Error("Failed to close ClickHouse client", util.ErrorField(err))
			}
		}

		if f.kafkaProducer != nil {
			if err := f.kafkaProducer.Close(); err != nil {
				util.Error("Failed to close Kafka producer", util.ErrorField(err))
			}
		}

		if f.scyllaClient != nil {
			f.scyllaClient.Close()
		}

		if f.redisClient != nil {
			if err := f.redisClient.Close(); err != nil {
				util.Error("Failed to close Redis client", util.ErrorField(err))
			}
		}

		util.Sync()
		util.Info("Factory shutdown completed")
	})

	return nil
}

func (f *Factory) Config() *config.Config {
	return f.config
}

func (f *Factory) Engine() *otp.Engine {
	return f.engine
}

func (f *Factory) AuthHandler() *handler.AuthHandler {
	return f.authHandler
}
