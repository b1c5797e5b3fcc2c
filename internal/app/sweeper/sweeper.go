// Package sweeper собирает планировщик переходов по времени.
package sweeper

import (
	"context"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/tudomais/tudomais-backend/internal/cache"
	"github.com/tudomais/tudomais-backend/internal/config"
	"github.com/tudomais/tudomais-backend/internal/lib/rabbitmq"
	sweeperservice "github.com/tudomais/tudomais-backend/internal/services/sweeper"
	"github.com/tudomais/tudomais-backend/internal/storage/repository"
	"github.com/tudomais/tudomais-backend/internal/subscription"
)

type App struct {
	conn    *amqp.Connection
	ch      *amqp.Channel
	db      *repository.Storage
	service *sweeperservice.SweeperService
	logger  *slog.Logger
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err := repository.CheckDatabaseReady(db); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
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

	rules := subscription.Rules{
		GraceDays: cfg.Automation.GraceDays,
		TrialDays: cfg.Automation.TrialDays,
	}
	service := sweeperservice.NewSweeperService(db, cacheRedis, rabbitmq.NewPublisher(ch),
		logger, rules, cfg.SweepInterval)

	return &App{
		conn:    conn,
		ch:      ch,
		db:      db,
		service: service,
		logger:  logger,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	go a.service.Run(ctx)

	<-ctx.Done()
	a.logger.Info("sweeper service shutting down gracefully")

	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", slog.Any("err", err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", slog.Any("err", err))
	}
	_ = a.db.DB.Close()

	return nil
}
