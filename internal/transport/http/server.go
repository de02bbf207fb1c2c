package http

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"time"

	"socialmedia_api/internal/authz"
	"socialmedia_api/internal/cache"
	"socialmedia_api/internal/config"
	"socialmedia_api/internal/database"
	"socialmedia_api/internal/handler"
	"socialmedia_api/internal/logging"
	"socialmedia_api/internal/model"
	"socialmedia_api/internal/queue"
	"socialmedia_api/internal/redis"
	"socialmedia_api/internal/repository"
	"socialmedia_api/internal/service"
	"socialmedia_api/internal/worker"
)

const shutdownTimeout = 15 * time.Second

// Run wires the application and serves until ctx is cancelled.
func Run(ctx context.Context) error {
	// 1. Configuration and logging
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	log := logging.Component("server")

	// 2. Database
	db, err := database.Connect(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	// 3. Redis is optional; without it events are dropped and the unread
	// count is always read from Postgres.
	var (
		publisher queue.Publisher     = queue.NopPublisher{}
		unread    cache.UnreadCounter = cache.NopUnreadCounter{}
		consumer  queue.Consumer
	)
	if cfg.RedisURL != "" {
		rdb, err := redis.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer rdb.Close()

		publisher = queue.NewPublisher(rdb.Client)
		unread = cache.NewUnreadCounter(rdb.Client)
		consumer = queue.NewConsumer(rdb.Client)
	} else {
		log.Warn().Msg("REDIS_URL not set, activity events and unread cache disabled")
	}

	// 4. Repositories
	userRepo := repository.NewUserRepository(db)
	followRepo := repository.NewFollowRepository(db)
	postRepo := repository.NewPostRepository(db)
	likeRepo := repository.NewLikeRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	notifRepo := repository.NewNotificationRepository(db)
	tokenRepo := repository.NewDeviceTokenRepository(db)
	refreshTokenRepo := repository.NewRefreshTokenRepository(db)
	tx := repository.NewTransactor(db)

	// 5. Services
	enforcer, err := authz.NewEnforcer()
	if err != nil {
		return err
	}
	policy := service.NotifyPolicy{SuppressSelf: cfg.NotifySuppressSelf}

	mediaService, err := service.NewMediaService(ctx, cfg)
	if errors.Is(err, model.ErrStorageDisabled) {
		log.Warn().Msg("R2 not configured, avatar uploads disabled")
		mediaService = nil
	} else if err != nil {
		return err
	}

	userService := service.NewUserService(userRepo, followRepo)
	authService := service.NewAuthService(refreshTokenRepo, tx, cfg)
	followService := service.NewFollowService(followRepo, userRepo, tx, publisher)
	feedService := service.NewFeedService(postRepo, likeRepo)
	notifService := service.NewNotificationService(notifRepo, tokenRepo, enforcer, unread, publisher)
	postService := service.NewPostService(postRepo, likeRepo, commentRepo, tx, notifService, enforcer, publisher, policy)
	commentService := service.NewCommentService(commentRepo, postRepo, tx, notifService, enforcer, publisher, policy)

	// 6. Background workers
	if consumer != nil {
		var push worker.PushNotifier
		if cfg.PushEnabled {
			push = service.NewPushService(service.NewExpoPushClient(cfg.ExpoPushURL), tokenRepo, userRepo, service.DefaultBreakerConfig())
		}
		managerCfg := worker.DefaultManagerConfig()
		managerCfg.WorkerCount = cfg.WorkerCount
		manager := worker.NewManager(consumer, worker.NewHandler(unread, push), refreshTokenRepo, managerCfg)
		if err := manager.Start(ctx); err != nil {
			return fmt.Errorf("failed to start workers: %w", err)
		}
		defer manager.Stop()
	}

	// 7. HTTP
	router := NewRouter(RouterConfig{
		AuthHandler:         handler.NewAuthHandler(userService, authService, mediaService, cfg),
		UserHandler:         handler.NewUserHandler(userService, mediaService),
		FollowHandler:       handler.NewFollowHandler(followService),
		FeedHandler:         handler.NewFeedHandler(feedService),
		PostHandler:         handler.NewPostHandler(postService),
		CommentHandler:      handler.NewCommentHandler(commentService),
		NotificationHandler: handler.NewNotificationHandler(notifService),
		JWTSecret:           cfg.JWTSecret,
		CORSOrigins:         cfg.CORSOrigins(),
		RateLimitRPM:        cfg.RateLimitRPM,
	})

	srv := &stdhttp.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}
