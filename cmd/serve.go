package cmd

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"example.com/fleetops/api"
	"example.com/fleetops/config"
	"example.com/fleetops/internal/cache"
	"example.com/fleetops/internal/database"
	"example.com/fleetops/internal/lark"
	"example.com/fleetops/internal/messaging"
	"example.com/fleetops/internal/telemetry"

	"github.com/go-co-op/gocron/v2"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	// Serve command flags
	disableNewRelic bool
	serverPort      int
	gracefulTimeout int
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	Long: `Starts the back-office API server handling bulk uploads, merchant
order assignment, and outbound message dispatch.

The server respects the configuration in config.yaml or specified via the
--config flag and shuts down gracefully on SIGINT or SIGTERM.`,
	Run: func(cmd *cobra.Command, args []string) {
		startServer()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&disableNewRelic, "disable-newrelic", false, "Disable New Relic monitoring")
	serveCmd.Flags().IntVar(&serverPort, "port", 0, "Server port (overrides config file)")
	serveCmd.Flags().IntVar(&gracefulTimeout, "graceful-timeout", 30, "Graceful shutdown timeout in seconds")
}

// startServer initializes and starts the API server
func startServer() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if serverPort > 0 {
		cfg.Server.Port = serverPort
	}
	if disableNewRelic {
		cfg.NewRelic.Enabled = false
	}

	log.WithFields(logrus.Fields{
		"port":             cfg.Server.Port,
		"newrelic_enabled": cfg.NewRelic.Enabled,
	}).Info("Initializing service components...")

	// Connect to the database with retry
	var db database.DB
	maxRetries := 5
	retryInterval := time.Second

	for i := 0; i < maxRetries; i++ {
		log.WithField("attempt", i+1).Info("Connecting to database...")
		db, err = database.Connect(cfg.Database)
		if err == nil {
			break
		}

		log.WithFields(logrus.Fields{
			"error":         err.Error(),
			"retry_attempt": i + 1,
			"max_retries":   maxRetries,
		}).Error("Failed to connect to database, retrying...")

		if i < maxRetries-1 {
			time.Sleep(retryInterval)
			retryInterval *= 2
		}
	}
	if err != nil {
		log.Fatalf("Failed to connect to database after %d attempts: %v", maxRetries, err)
	}

	log.Info("Successfully connected to database")
	defer func() {
		log.Info("Closing database connection...")
		if err := db.Close(); err != nil {
			log.WithField("error", err.Error()).Error("Error closing database connection")
		}
	}()

	log.Info("Connecting to Redis...")
	redisClient, err := cache.NewRedisClient(cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer func() {
		log.Info("Closing Redis connection...")
		if err := redisClient.Close(); err != nil {
			log.WithField("error", err.Error()).Error("Error closing Redis connection")
		}
	}()

	log.Info("Connecting to message broker...")
	sbClient, err := messaging.NewServiceBusClient(cfg.ServiceBus, "fleetops-api")
	if err != nil {
		log.Fatalf("Failed to connect to message broker: %v", err)
	}
	defer func() {
		log.Info("Closing messaging connection...")
		if err := sbClient.Close(); err != nil {
			log.WithField("error", err.Error()).Error("Error closing messaging connection")
		}
	}()

	nrApp, err := telemetry.InitNewRelic(cfg.NewRelic, log)
	if err != nil {
		log.Warnf("Failed to initialize New Relic: %v", err)
	}

	// Keep the bitable token warm in the background
	scheduler, err := startTokenRefreshJob(cfg, redisClient)
	if err != nil {
		log.Warnf("Failed to start token refresh job: %v", err)
	}

	log.Info("Initializing API server...")
	server := api.NewServer(cfg, log, nrApp, db, redisClient, sbClient)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.WithField("port", cfg.Server.Port).Info("Starting server...")
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	sig := <-stop
	log.Infof("Received signal %s, shutting down gracefully...", sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(gracefulTimeout)*time.Second)
	defer cancel()

	if scheduler != nil {
		log.Info("Shutting down token refresh job...")
		if err := scheduler.Shutdown(); err != nil {
			log.Warnf("Scheduler shutdown error: %v", err)
		}
	}

	log.Info("Shutting down HTTP server...")
	if err := server.Shutdown(ctx); err != nil {
		log.Warnf("Server shutdown error: %v", err)
	}

	log.Info("Server shutdown complete")
}

// startTokenRefreshJob schedules the periodic bitable token refresh. The
// refreshed token lands in redis where the request path reads it.
func startTokenRefreshJob(cfg *config.Config, redisClient cache.RedisClient) (gocron.Scheduler, error) {
	if cfg.Lark.AppID == "" || cfg.Lark.AppSecret == "" {
		log.Info("Bitable credentials not configured, skipping token refresh job")
		return nil, nil
	}

	tokens := lark.NewTokenProvider(cfg.Lark, redisClient, log)

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(cfg.Lark.RefreshEvery),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := tokens.Refresh(ctx); err != nil {
				log.WithError(err).Error("Failed to refresh bitable token")
			}
		}),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return nil, err
	}

	scheduler.Start()
	return scheduler, nil
}
