package main

import (
	"context"
	"encoding/hex"
	"net/http"
	"os"

	"invoicehub-sync/internal/application"
	"invoicehub-sync/internal/infrastructure/api"
	"invoicehub-sync/internal/infrastructure/encryption"
	"invoicehub-sync/internal/infrastructure/gateway"
	"invoicehub-sync/internal/infrastructure/locker"
	"invoicehub-sync/internal/infrastructure/repository"
	"invoicehub-sync/internal/metrics"
	"invoicehub-sync/internal/ports"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	// Initialize logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg("Warning: .env file not found")
	}

	// Get configuration from environment
	mongoURI := os.Getenv("MONGODB_URI")
	if mongoURI == "" {
		mongoURI = "mongodb://localhost:27017"
	}
	dbName := os.Getenv("MONGODB_DATABASE")
	if dbName == "" {
		dbName = "invoicehub"
	}

	// Connect to MongoDB
	client, err := mongo.Connect(context.Background(), options.Client().ApplyURI(mongoURI))
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}
	defer client.Disconnect(context.Background())

	db := client.Database(dbName)

	// Get encryption key (32 bytes, hex-encoded)
	encryptionKey := os.Getenv("ENCRYPTION_KEY")
	if encryptionKey == "" {
		logger.Fatal().Msg("ENCRYPTION_KEY environment variable is required")
	}
	keyBytes, err := hex.DecodeString(encryptionKey)
	if err != nil {
		keyBytes = []byte(encryptionKey)
	}

	// Initialize infrastructure (implementations)
	encryptionService, err := encryption.NewAESEncryptionService(keyBytes)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize encryption service")
	}

	// Initialize repositories
	connectionRepo := repository.NewMongoConnectionRepository(db)
	credentialStore := repository.NewMongoCredentialStore(db, encryptionService)
	customerDirectory := repository.NewMongoCustomerDirectory(db)
	productCatalog := repository.NewMongoProductCatalog(db)
	invoiceIssuer := repository.NewMongoInvoiceIssuer(db)

	var ledger ports.SyncLedger = repository.NewMongoSyncLedger(db)
	var runLocker ports.RunLocker

	// Redis backs the run lock and the ledger cache. Without it the service
	// still works single-instance: in-process lock, no cache.
	if redisAddr := os.Getenv("REDIS_ADDR"); redisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     redisAddr,
			Password: os.Getenv("REDIS_PASSWORD"),
		})
		ledger = repository.NewCachedSyncLedger(ledger, redisClient, logger)
		runLocker = locker.NewRedisRunLocker(redisClient)
		logger.Info().Str("addr", redisAddr).Msg("Redis enabled for run locks and ledger cache")
	} else {
		runLocker = locker.NewMemoryRunLocker()
		logger.Warn().Msg("REDIS_ADDR not set, using in-process run locks")
	}

	// Initialize marketplace gateways
	gatewayResolver := gateway.NewResolver(
		gateway.NewBaseLinkerGateway(logger),
		gateway.NewAllegroGateway(logger),
		gateway.NewShopifyGateway(logger),
	)

	// Initialize application services
	connectionService := application.NewConnectionService(
		connectionRepo,
		gatewayResolver,
		credentialStore,
		logger,
	)

	settingsService := application.NewSettingsService(connectionRepo, logger)

	syncService := application.NewSyncService(
		connectionRepo,
		ledger,
		gatewayResolver,
		credentialStore,
		customerDirectory,
		productCatalog,
		invoiceIssuer,
		runLocker,
		logger,
		application.WithIncludeUnconfirmed(os.Getenv("SYNC_INCLUDE_UNCONFIRMED") == "true"),
	)

	metrics.RegisterDefault()

	// Start the scheduler unless explicitly disabled
	if os.Getenv("SYNC_SCHEDULER_DISABLED") != "true" {
		scheduler := application.NewSyncScheduler(connectionRepo, syncService, logger)
		go func() {
			if err := scheduler.Run(context.Background()); err != nil && err != context.Canceled {
				logger.Error().Err(err).Msg("Scheduler stopped")
			}
		}()
		logger.Info().Msg("Sync scheduler started")
	}

	handler := api.NewHandler(connectionService, settingsService, syncService, logger)
	r := handler.Router()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	logger.Info().Str("port", port).Msg("Starting server")
	if err := http.ListenAndServe(":"+port, r); err != nil {
		logger.Fatal().Err(err).Msg("Server failed")
	}
}
