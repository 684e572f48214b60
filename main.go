package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	awspkg "github.com/bchikara/la-carte-backend/pkg/aws"

	"github.com/bchikara/la-carte-backend/config"
	"github.com/bchikara/la-carte-backend/database"
	"github.com/bchikara/la-carte-backend/kafka"
	"github.com/bchikara/la-carte-backend/logger"
	"github.com/bchikara/la-carte-backend/middleware"
	"github.com/bchikara/la-carte-backend/publisher"
	"github.com/bchikara/la-carte-backend/repository"
	"github.com/bchikara/la-carte-backend/routes"
	"github.com/bchikara/la-carte-backend/services"
)

func main() {
	cfg := config.Load()

	logger.Initialize(cfg.Environment)
	defer logger.Log.Sync()

	// Storage
	redisClient := database.NewRedisClient(cfg.RedisURL)
	mongoDB := database.NewMongoDatabase(cfg.MongoURI, cfg.MongoDB)
	postgresDB := database.NewPostgresDB(cfg.PostgresDSN)

	if err := postgresDB.AutoMigrate(&repository.OrderOutbox{}); err != nil {
		logger.Log.Fatal("Failed to migrate outbox table", zap.Error(err))
	}

	cartRepo := repository.NewCartRepository(redisClient, cfg.CartTTL)
	orderRepo := repository.NewStoreOrderRepository(repository.NewMongoPathStore(mongoDB))
	outboxRepo := repository.NewGormOutboxRepository(postgresDB)

	// Messaging
	producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.OrderTopic)
	defer producer.Close()

	var snsClient awspkg.SNSPublisher
	if cfg.SNSTopicArn != "" {
		awsCfg, err := awspkg.LoadAWSConfig(context.Background())
		if err != nil {
			logger.Log.Fatal("Failed to load AWS config", zap.Error(err))
		}
		snsClient = awspkg.NewSNSClient(awsCfg)
	}

	// Services
	carts := services.NewCartService(cartRepo)
	orders := services.NewOrderService(orderRepo, outboxRepo, producer, snsClient, cfg.SNSTopicArn)

	widgetGateway := services.NewHostedCheckoutGateway(cfg.PaymentInitiateURL, cfg.PaymentAccessKey)
	gateways := map[string]services.PaymentGateway{
		services.GatewayWidget: widgetGateway,
	}
	if cfg.StripeSecretKey != "" {
		gateways[services.GatewayStripe] = services.NewStripeGateway(cfg.StripeSecretKey)
	}

	orchestrator := services.NewCheckoutOrchestrator(carts, orders, gateways, cartRepo, cfg.Currency)

	// Outbox poller replays projections that failed after capture.
	pollerCtx, cancelPoller := context.WithCancel(context.Background())
	defer cancelPoller()
	poller := publisher.NewOutboxPoller(cfg.OutboxTick, cfg.OutboxMaxAttempts, outboxRepo, orderRepo, producer)
	go poller.Run(pollerCtx)

	// HTTP
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), logger.RequestLogger(), middleware.CORSMiddleware(cfg.AllowedOrigins))

	routes.Register(router, cfg, carts, orders, orderRepo, orchestrator, widgetGateway)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Log.Info("Checkout service is running", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Log.Info("Shutting down gracefully")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatal("Shutdown error", zap.Error(err))
	}
	logger.Log.Info("Server shutdown complete")
}
