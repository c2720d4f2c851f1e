package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Freeeeeet/interview_scheduler/internal/app"
	"github.com/Freeeeeet/interview_scheduler/internal/cache"
	"github.com/Freeeeeet/interview_scheduler/internal/config"
	"github.com/Freeeeeet/interview_scheduler/internal/controller"
	"github.com/Freeeeeet/interview_scheduler/internal/events"
	"github.com/Freeeeeet/interview_scheduler/internal/metrics"
	"github.com/Freeeeeet/interview_scheduler/internal/model"
	"github.com/Freeeeeet/interview_scheduler/internal/repository"
	"github.com/Freeeeeet/interview_scheduler/internal/service"
	"github.com/go-telegram/bot"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("Scheduler stopped with error", zap.Error(err))
	}
	logger.Info("Scheduler stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	shutdownTelemetry, err := app.SetupTelemetry(ctx, cfg.Otel)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			logger.Warn("Failed to shutdown telemetry", zap.Error(err))
		}
	}()

	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return err
	}
	logger.Info("Connected to database")

	migrator, err := app.NewMigrator(pool, cfg.MigrationsDir, logger)
	if err != nil {
		return err
	}
	if err := migrator.Run(ctx); err != nil {
		_ = migrator.Close()
		return err
	}
	_ = migrator.Close()

	collector := metrics.NewCollector("interview_scheduler", prometheus.DefaultRegisterer)

	slotRepo := repository.NewSlotRepository(pool)
	store := repository.NewBreakerStore(slotRepo, repository.BreakerConfig{
		ConsecutiveFailures: cfg.Breaker.ConsecutiveFailures,
		OpenTimeout:         cfg.Breaker.OpenTimeout,
	}, logger)

	ranges := cache.New[string, []model.Slot](cache.Options{
		TTL:      cfg.Cache.TTL,
		MaxSize:  cfg.Cache.MaxSize,
		OnLookup: collector.ObserveCacheLookup,
	})

	bookingService := service.NewBookingService(store, ranges, cfg.TimeSlots, collector, logger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return app.NewSweeper(ranges, cfg.Cache.SweepInterval, logger).Run(gctx)
	})

	checks := []app.ReadyCheck{{Name: "postgres", Check: slotRepo.Ping}}

	if cfg.Redis.Enabled() {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		invalidator := cache.NewRedisInvalidator(rdb, "", logger)
		bookingService.Subscribe(invalidator.HandleEvent)
		g.Go(func() error {
			return invalidator.Listen(gctx, bookingService.InvalidateDate)
		})
		checks = append(checks, app.ReadyCheck{Name: "redis", Check: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
		logger.Info("Redis cache invalidation enabled", zap.String("addr", cfg.Redis.Addr))
	}

	if cfg.Kafka.Enabled() {
		publisher, err := events.NewKafkaPublisher(events.PublisherConfig{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
		}, collector, logger)
		if err != nil {
			return err
		}
		bookingService.Subscribe(publisher.Handle)
		g.Go(func() error {
			return publisher.Run(gctx)
		})
	}

	if cfg.TelegramToken != "" {
		botInstance, err := bot.New(cfg.TelegramToken)
		if err != nil {
			return err
		}

		botController := controller.NewBotController(botInstance, bookingService, logger)
		if err := botController.RegisterHandlers(ctx); err != nil {
			// меню команд необязательно, бот работает и без него
			logger.Warn("Bot commands are not registered", zap.Error(err))
		}
		g.Go(func() error {
			return botController.Start(gctx)
		})

		if cfg.TelegramChatID != 0 {
			notifier := controller.NewNotifier(botInstance, cfg.TelegramChatID, logger)
			bookingService.Subscribe(notifier.Handle)
			g.Go(func() error {
				return notifier.Run(gctx)
			})
		}
	}

	server := app.NewHTTPServer(cfg.HTTPAddr, app.NewHTTPMux(bookingService, prometheus.DefaultGatherer, logger, checks...))
	g.Go(func() error {
		logger.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
