package evaluationservice

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/rasbandhu/evaluation-service/internal/cache"
	"github.com/rasbandhu/evaluation-service/internal/config"
	"github.com/rasbandhu/evaluation-service/internal/lib/jwt"
	"github.com/rasbandhu/evaluation-service/internal/lib/rabbitmq"
	"github.com/rasbandhu/evaluation-service/internal/migrations"
	"github.com/rasbandhu/evaluation-service/internal/paymentprovider"
	authservice "github.com/rasbandhu/evaluation-service/internal/services/auth"
	catalogservice "github.com/rasbandhu/evaluation-service/internal/services/catalog"
	checkoutservice "github.com/rasbandhu/evaluation-service/internal/services/checkout"
	entitlementservice "github.com/rasbandhu/evaluation-service/internal/services/entitlement"
	lifecycleservice "github.com/rasbandhu/evaluation-service/internal/services/lifecycle"
	"github.com/rasbandhu/evaluation-service/internal/storage/files"
	"github.com/rasbandhu/evaluation-service/internal/storage/repository"
)

type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
	cache  *cache.Cache
	conn   *amqp.Connection
	ch     *amqp.Channel
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	fileStore, err := files.New(cfg.FileStoreRoot, cfg.PublicBaseURL)
	if err != nil {
		return nil, err
	}

	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, err
	}
	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetNotificationQueues())
	if err != nil {
		conn.Close()
		return nil, err
	}

	jwtMaker := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)
	gateway := paymentprovider.NewClient(cfg.RazorpayKeyID, cfg.RazorpayKeySecret, cfg.WebhookSecret)

	sla := lifecycleservice.SLAWindows{
		DailyHours: cfg.SLA.DailyWindowHours,
		TestHours:  cfg.SLA.TestWindowHours,
	}

	authService := authservice.NewAuthService(db, jwtMaker)
	lifecycleService := lifecycleservice.NewLifecycleService(db, sla, logger)
	entitlementService := entitlementservice.NewEntitlementService(db, logger)
	catalogService := catalogservice.NewCatalogService(db, cacheRedis, logger)
	checkoutService := checkoutservice.NewCheckoutService(db, gateway, cfg.Currency, logger)

	publish := func(routingKey string, message any) error {
		return rabbitmq.PublishMessage(ch, rabbitmq.Exchange, routingKey, message)
	}

	router := chi.NewRouter()

	RegisterRoutes(router, logger,
		authService, lifecycleService, entitlementService,
		catalogService, checkoutService, fileStore, publish)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
		cache:  cacheRedis,
		conn:   conn,
		ch:     ch,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		if chErr := a.ch.Close(); chErr != nil {
			a.logger.Error("failed to close channel", slog.Any("err", chErr))
		}
		if connErr := a.conn.Close(); connErr != nil {
			a.logger.Error("failed to close connection", slog.Any("err", connErr))
		}
		a.db.DB.Close()
		return err
	}
}
