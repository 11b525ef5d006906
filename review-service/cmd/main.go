package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"jobber/pkg/logger"
	"jobber/review-service/internal/app/review/config"
	"jobber/review-service/internal/app/review/handler"
	"jobber/review-service/internal/app/review/infrastructure/cache"
	"jobber/review-service/internal/app/review/infrastructure/messaging"
	"jobber/review-service/internal/app/review/processor"
	"jobber/review-service/internal/app/review/repository"
	"jobber/review-service/internal/app/review/service"
)

const serviceName = "review-service"

// storage - выбранное хранилище отзывов вместе с проверкой готовности и закрытием
type storage struct {
	repo  repository.ReviewRepository
	check handler.HealthCheck
	close func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(serviceName, cfg.Log.Level)

	if cfg.Log.LogstashAddr != "" {
		if err := logger.InitLogstash(cfg.Log.LogstashAddr, serviceName, cfg.Log.Level); err != nil {
			logger.Warn().Err(err).Msg("Failed to connect to Logstash, using stdout only")
		} else {
			logger.Info().Str("logstash_addr", cfg.Log.LogstashAddr).Msg("Connected to Logstash")
		}
	}

	store, err := openStorage(cfg)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.Storage.Driver).Msg("Failed to open review storage")
	}
	defer store.close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reviewCache, err := cache.Connect(ctx, cfg.Redis.Address(), cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer reviewCache.Close()
	logger.Info().Str("address", cfg.Redis.Address()).Msg("Connected to Redis")

	kafkaProducer := messaging.NewKafkaProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	defer kafkaProducer.Close()
	logger.Info().
		Strs("brokers", cfg.Kafka.Brokers).
		Str("topic", kafkaProducer.Topic()).
		Msg("Initialized Kafka producer")

	reviewService := service.NewReviewService(store.repo, reviewCache, kafkaProducer, cfg.Redis.TTL)

	scheduler := processor.NewCronScheduler(reviewService)
	if err := scheduler.Start(ctx, cfg.Outbox.Schedule); err != nil {
		logger.Fatal().Err(err).Str("schedule", cfg.Outbox.Schedule).Msg("Failed to start review event relay")
	}

	healthHandler := handler.NewHealthHandler(serviceName,
		store.check,
		handler.HealthCheck{Name: "redis", Check: func(ctx context.Context) error {
			return reviewCache.Client().Ping(ctx).Err()
		}},
	)

	router := handler.SetupRoutes(
		handler.NewReviewHandler(reviewService),
		healthHandler,
		handler.NewAuthMiddleware(cfg.JWT.Secret),
		cfg.CORS.AllowedOrigins,
	)

	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Str("storage", cfg.Storage.Driver).
			Msg("Starting Review Service")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down Review Service...")

	scheduler.Stop()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}

	logger.Info().Msg("Review Service stopped gracefully")
}

func openStorage(cfg *config.Config) (*storage, error) {
	switch cfg.Storage.Driver {
	case config.StoragePostgres:
		db, err := connectPostgres(cfg.Database)
		if err != nil {
			return nil, err
		}
		if err := repository.Migrate(db); err != nil {
			return nil, fmt.Errorf("failed to migrate reviews table: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		logger.Info().Str("database", cfg.Database.DBName).Msg("Connected to PostgreSQL")

		return &storage{
			repo:  repository.NewPostgresReviewRepository(db),
			check: handler.HealthCheck{Name: "postgres", Check: sqlDB.PingContext},
			close: func() {
				if err := sqlDB.Close(); err != nil {
					logger.Error().Err(err).Msg("Error closing PostgreSQL connection")
				}
			},
		}, nil

	default:
		client, err := connectMongoDB(cfg.MongoDB)
		if err != nil {
			return nil, err
		}
		logger.Info().Str("database", cfg.MongoDB.Database).Msg("Connected to MongoDB")

		return &storage{
			repo: repository.NewMongoReviewRepository(client.Database(cfg.MongoDB.Database)),
			check: handler.HealthCheck{Name: "mongodb", Check: func(ctx context.Context) error {
				return client.Ping(ctx, nil)
			}},
			close: func() {
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := client.Disconnect(ctx); err != nil {
					logger.Error().Err(err).Msg("Error disconnecting from MongoDB")
				}
			},
		}, nil
	}
}

func connectMongoDB(cfg config.MongoDBConfig) (*mongo.Client, error) {
	clientOptions := options.Client().ApplyURI(cfg.URI)

	var client *mongo.Client
	var err error

	for i := 0; i < 10; i++ {
		client, err = tryConnectMongoDB(clientOptions)
		if err == nil {
			return client, nil
		}

		logger.Warn().
			Int("attempt", i+1).
			Err(err).
			Msg("Failed to connect to MongoDB, retrying...")
		time.Sleep(3 * time.Second)
	}

	return nil, fmt.Errorf("failed to connect to MongoDB after 10 attempts: %w", err)
}

func tryConnectMongoDB(clientOptions *options.ClientOptions) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, err
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	return client, nil
}

func connectPostgres(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
		TranslateError: true,
	}

	var db *gorm.DB
	var err error

	for i := 0; i < 10; i++ {
		db, err = gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
		if err == nil {
			sqlDB, sqlErr := db.DB()
			if sqlErr != nil {
				err = sqlErr
			} else if pingErr := sqlDB.Ping(); pingErr != nil {
				err = pingErr
			} else {
				sqlDB.SetMaxOpenConns(10)
				sqlDB.SetMaxIdleConns(5)
				sqlDB.SetConnMaxLifetime(5 * time.Minute)
				sqlDB.SetConnMaxIdleTime(1 * time.Minute)
				return db, nil
			}
		}

		logger.Warn().
			Int("attempt", i+1).
			Err(err).
			Msg("Failed to connect to PostgreSQL, retrying...")
		time.Sleep(3 * time.Second)
	}

	return nil, fmt.Errorf("failed to connect to PostgreSQL after 10 attempts: %w", err)
}
