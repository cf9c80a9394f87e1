package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	api "aura-backend/cmd/api"
	accessDelivery "aura-backend/internal/access/delivery"
	authUsecase "aura-backend/internal/auth/usecase"
	conversationDelivery "aura-backend/internal/conversation/delivery"
	conversationDomain "aura-backend/internal/conversation/domain"
	conversationRepo "aura-backend/internal/conversation/repository"
	conversationUsecase "aura-backend/internal/conversation/usecase"
	deviceDelivery "aura-backend/internal/device/delivery"
	deviceDomain "aura-backend/internal/device/domain"
	deviceRepo "aura-backend/internal/device/repository"
	deviceUsecase "aura-backend/internal/device/usecase"
	pushDelivery "aura-backend/internal/push/delivery"
	pushRepo "aura-backend/internal/push/repository"
	pushUsecase "aura-backend/internal/push/usecase"
	"aura-backend/pkg/config"
	"aura-backend/pkg/database"
	"aura-backend/pkg/fcm"
	"aura-backend/pkg/logger"
	"aura-backend/pkg/worker"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg := config.Load()

	log := logger.GetLogger()
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Initialize database
	db, err := database.NewPostgresConnection(cfg, logger.Named("gorm"))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}

	// Auto-migrate database schemas
	if err := db.AutoMigrate(&deviceDomain.DeviceTokenRecord{}, &conversationDomain.Conversation{}); err != nil {
		log.Fatal("Failed to migrate database", zap.Error(err))
	}

	// Push dedup store: redis when configured, in-process otherwise
	var seen pushRepo.SeenStore
	redisClient, err := database.NewRedisClient(ctx, cfg)
	switch {
	case err != nil:
		log.Warn("Redis unavailable, using in-memory dedup store", zap.Error(err))
		seen = pushRepo.NewMemorySeenStore(cfg.PushDedupTTL)
	case redisClient == nil:
		log.Warn("REDIS_ADDR not configured, using in-memory dedup store")
		seen = pushRepo.NewMemorySeenStore(cfg.PushDedupTTL)
	default:
		defer redisClient.Close()
		seen = pushRepo.NewRedisSeenStore(redisClient, cfg.PushDedupTTL)
	}

	// FCM is optional; conversations still work without pushes
	var pusher conversationUsecase.Pusher
	if cfg.FirebaseCredentials != "" || cfg.GoogleProjectID != "" {
		fcmClient, err := fcm.NewClient(ctx, cfg.FirebaseCredentials, logger.Named("fcm"))
		if err != nil {
			log.Warn("Failed to initialize FCM client, push notifications disabled", zap.Error(err))
		} else {
			pusher = fcmClient
		}
	} else {
		log.Warn("No Firebase credentials configured, FCM disabled")
	}

	// Background workers
	poolCfg := worker.Config{
		MaxWorkers: cfg.TokenForwardWorkers,
		QueueSize:  cfg.TokenForwardQueue,
		JobTimeout: cfg.TokenForwardMaxElapsed + 30*time.Second,
	}
	tokenPool := worker.NewPool("token_forward", poolCfg, log, reg)
	tokenPool.Start()
	pushPool := worker.NewPool("push_fanout", worker.Config{
		MaxWorkers: cfg.TokenForwardWorkers,
		QueueSize:  cfg.TokenForwardQueue,
		JobTimeout: 30 * time.Second,
	}, log, reg)
	pushPool.Start()

	// Initialize repositories (dependency injection)
	registry := deviceRepo.NewRegistry(db)
	conversations := conversationRepo.NewConversationRepository(db)

	// Initialize use cases
	policy := deviceUsecase.DefaultRetryPolicy()
	policy.MaxRetries = cfg.TokenForwardMaxRetries
	policy.MaxElapsed = cfg.TokenForwardMaxElapsed
	manager := deviceUsecase.NewManager(registry, tokenPool, policy, logger.Named("device"))
	conversationUc := conversationUsecase.NewConversationUsecase(conversations, registry, pusher, pushPool, logger.Named("conversation"))
	authUc := authUsecase.NewAuthUsecase(cfg)

	hub := pushDelivery.NewHub(logger.Named("hub"))
	classifier, err := pushUsecase.NewClassifier(
		pushUsecase.BaseRoutes(seen, hub, logger.Named("push")),
		pushUsecase.NewLogObserver(logger.Named("classifier"), reg),
	)
	if err != nil {
		log.Fatal("Failed to build push classifier", zap.Error(err))
	}

	// Pub/Sub inbound push transport, only when a project is configured
	if cfg.GoogleProjectID != "" {
		subscriber, err := pushDelivery.NewSubscriber(ctx, cfg.GoogleProjectID, cfg.GooglePubSubSubscription, cfg.GoogleCredentials, classifier, logger.Named("subscriber"))
		if err != nil {
			log.Error("Failed to initialize push subscriber", zap.Error(err))
		} else {
			defer subscriber.Close()
			go func() {
				if err := subscriber.Start(ctx); err != nil {
					log.Error("Push subscriber stopped", zap.Error(err))
				}
			}()
		}
	} else {
		log.Warn("GOOGLE_PROJECT_ID not configured, push subscriber disabled")
	}

	// Initialize HTTP handler
	handler := api.NewHandler(authUc, api.Handlers{
		Access:       accessDelivery.NewAccessHandler(accessDelivery.NewDecisionCounter(reg), logger.Named("access")),
		Push:         pushDelivery.NewPushHandler(classifier, hub, logger.Named("push-http")),
		Device:       deviceDelivery.NewDeviceHandler(manager),
		Conversation: conversationDelivery.NewConversationHandler(conversationUc, logger.Named("conversation-http")),
		Metrics:      promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		Queues: map[string]api.QueueReporter{
			"token_forward": tokenPool,
			"push_fanout":   pushPool,
		},
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handler.Engine(),
	}

	go func() {
		log.Info("Server starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown failed", zap.Error(err))
	}
	if err := tokenPool.Shutdown(shutdownCtx); err != nil {
		log.Warn("Token pool did not drain", zap.Error(err))
	}
	if err := pushPool.Shutdown(shutdownCtx); err != nil {
		log.Warn("Push pool did not drain", zap.Error(err))
	}
}
