package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"log/slog"

	server "github.com/admin/tg-bots/shop-bot/internal/adapters/primary/http"
	healthcheckController "github.com/admin/tg-bots/shop-bot/internal/adapters/primary/http/controllers/healthcheck"
	intentsController "github.com/admin/tg-bots/shop-bot/internal/adapters/primary/http/controllers/intents"
	opsController "github.com/admin/tg-bots/shop-bot/internal/adapters/primary/http/controllers/ops"
	alerterAdapter "github.com/admin/tg-bots/shop-bot/internal/adapters/secondary/alerter"
	"github.com/admin/tg-bots/shop-bot/internal/adapters/secondary/coingecko"
	kafkaAdapter "github.com/admin/tg-bots/shop-bot/internal/adapters/secondary/kafka"
	solanaAdapter "github.com/admin/tg-bots/shop-bot/internal/adapters/secondary/solana"
	"github.com/admin/tg-bots/shop-bot/internal/adapters/secondary/storage/pg"
	redisAdapter "github.com/admin/tg-bots/shop-bot/internal/adapters/secondary/storage/redis"
	s3Adapter "github.com/admin/tg-bots/shop-bot/internal/adapters/secondary/storage/s3"
	"github.com/admin/tg-bots/shop-bot/internal/adapters/secondary/telegram"
	"github.com/admin/tg-bots/shop-bot/internal/pkg/logger"
	forwardLogRepo "github.com/admin/tg-bots/shop-bot/internal/repository/forwardlog"
	intentRepo "github.com/admin/tg-bots/shop-bot/internal/repository/intent"
	inventoryRepo "github.com/admin/tg-bots/shop-bot/internal/repository/inventory"
	processedTxRepo "github.com/admin/tg-bots/shop-bot/internal/repository/processedtx"
	alerterService "github.com/admin/tg-bots/shop-bot/internal/services/alerter"
	"github.com/admin/tg-bots/shop-bot/internal/services/jobs"
	"github.com/admin/tg-bots/shop-bot/internal/usecases/payment"
	"golang.org/x/sync/errgroup"

	"github.com/jmoiron/sqlx"
)

type App struct {
	Name string
	Cfg  *Config
	Log  *slog.Logger
}

func New(name string, cfg *Config) *App {
	return &App{
		Name: name,
		Cfg:  cfg,
		Log:  logger.New(name, cfg.Log),
	}
}

func (a *App) Run(ctx context.Context) error {
	a.Log.Info("starting shop-bot payment service")

	db, err := a.initPostgres()
	if err != nil {
		return fmt.Errorf("failed to init postgres: %w", err)
	}

	persistenceLayer := pg.NewDB(db)

	redisConn, err := a.Cfg.Redis.NewConnection()
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	cacheClient := redisAdapter.NewClient(redisConn)

	minioClient, err := a.Cfg.S3.NewClient()
	if err != nil {
		return fmt.Errorf("failed to create s3 client: %w", err)
	}
	s3Client := s3Adapter.NewClient(minioClient, a.Cfg.S3.Bucket, a.Log)

	rpcClient := a.Cfg.Solana.NewClient()
	collectionKey, err := a.Cfg.Solana.CollectionKey()
	if err != nil {
		return fmt.Errorf("failed to parse collection key: %w", err)
	}
	scanner := solanaAdapter.NewScanner(rpcClient, a.Log)
	sender := solanaAdapter.NewSender(rpcClient, collectionKey,
		time.Duration(a.Cfg.Solana.ConfirmTimeout)*time.Second, a.Log)

	tgClient := telegram.NewClient(a.Cfg.Telegram.BotToken, a.Log)
	notifier := telegram.NewNotifier(tgClient)
	alerter := alerterService.New(alerterAdapter.NewClient(a.Cfg.Alerter, a.Log))

	producer, err := kafkaAdapter.NewProducer(a.Cfg.Kafka, a.Log)
	if err != nil {
		return fmt.Errorf("failed to create kafka producer: %w", err)
	}

	oracle := coingecko.NewOracle(a.Cfg.CoinGecko, cacheClient, a.Log)

	intents := intentRepo.New(persistenceLayer, a.Log)
	processed := processedTxRepo.New(persistenceLayer, a.Log)
	forwards := forwardLogRepo.New(persistenceLayer, a.Log)
	inventory := inventoryRepo.New(persistenceLayer, a.Log)

	paymentService := payment.New(intents, inventory, oracle, a.Cfg.Payment, a.Log)
	forwarder := payment.NewForwarder(sender, forwards, producer, alerter, a.Cfg.Payment, a.Log)
	finalizer := payment.NewFinalizer(inventory, s3Client, notifier, alerter, a.Log)
	matcher := payment.NewMatcher(intents, processed, inventory, scanner, forwarder, finalizer,
		notifier, alerter, producer, a.Cfg.Payment, a.Log)

	scheduler := jobs.NewScheduler(a.Log, alerter)
	scheduler.Register(jobs.NewPaymentWatcherJob(matcher, a.Cfg.Payment.PollInterval(), a.Log))

	healthCheck := healthcheckController.New(db, a.Log)
	intentsAPI := intentsController.New(paymentService, a.Log)
	ops := opsController.New(intents, forwards, a.Log)
	httpServer := server.NewHTTPServer(a.Cfg.Server, a.Log, healthCheck, intentsAPI, ops)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Log.Info("starting http server",
			"host", a.Cfg.Server.Host,
			"port", a.Cfg.Server.Port)

		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})

	// Планировщик запускает горутины внутри, сам не блокирует
	a.Log.Info("starting job scheduler")
	if err := scheduler.Start(gCtx); err != nil {
		a.Log.Error("failed to start job scheduler", "error", err)
	}

	// Graceful shutdown
	g.Go(func() error {
		<-gCtx.Done()
		a.Log.Info("received shutdown signal")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			a.Log.Error("failed to shutdown http server", "error", err)
		}

		if err := producer.Close(); err != nil {
			a.Log.Error("failed to close kafka producer", "error", err)
		}

		if err := cacheClient.Close(); err != nil {
			a.Log.Error("failed to close cache", "error", err)
		}

		if err := db.Close(); err != nil {
			a.Log.Error("failed to close database", "error", err)
		}

		a.Log.Info("application shutdown completed")
		return nil
	})

	if err := g.Wait(); err != nil {
		a.Log.Error("application error", "error", err)
		return err
	}

	return nil
}

func (a *App) initPostgres() (*sqlx.DB, error) {
	db, err := a.Cfg.Postgres.NewConnection()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	a.Log.Info("postgres connected successfully")

	if err := pg.RunMigrations(db, a.Log); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}
