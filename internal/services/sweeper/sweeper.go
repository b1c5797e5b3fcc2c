// Package services реализует планировщик переходов по времени: перевод
// подписок с истекшим оплаченным или льготным периодом в конечные состояния.
package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/tudomais/tudomais-backend/internal/cache"
	"github.com/tudomais/tudomais-backend/internal/lib/rabbitmq"
	"github.com/tudomais/tudomais-backend/internal/lib/sl"
	"github.com/tudomais/tudomais-backend/internal/metrics"
	"github.com/tudomais/tudomais-backend/internal/models"
	"github.com/tudomais/tudomais-backend/internal/notify"
	"github.com/tudomais/tudomais-backend/internal/subscription"
)

// Repository описывает методы хранилища, необходимые планировщику.
type Repository interface {
	FindDueSubscriptions(ctx context.Context, now time.Time) ([]*models.Advertiser, error)
	ApplyEventTx(ctx context.Context, uid string,
		apply func(subscription.Record) subscription.Record) (*models.Advertiser, bool, error)
}

// StatusCache описывает кеш статусов подписок.
type StatusCache interface {
	Invalidate(key string) error
}

// Notifier публикует уведомления в очередь для последующей отправки почтой.
type Notifier interface {
	Publish(exchange, routingKey string, message any) error
}

// SweeperService периодически переводит просроченные подписки.
type SweeperService struct {
	repo     Repository
	cache    StatusCache
	notifier Notifier
	log      *slog.Logger
	rules    subscription.Rules
	interval time.Duration

	now func() time.Time
}

// NewSweeperService создает новый экземпляр SweeperService.
func NewSweeperService(repo Repository, statusCache StatusCache, notifier Notifier,
	log *slog.Logger, rules subscription.Rules, interval time.Duration) *SweeperService {
	return &SweeperService{
		repo:     repo,
		cache:    statusCache,
		notifier: notifier,
		log:      log,
		rules:    rules,
		interval: interval,
		now:      time.Now,
	}
}

// Run выполняет проход сразу и затем по тикеру, пока не отменен контекст.
func (s *SweeperService) Run(ctx context.Context) {
	s.Sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Sweep(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Sweep находит подписки с истекшими сроками, применяет к каждой переход
// по времени и возвращает число переведенных подписок. Ошибка одного
// анунсианта не прерывает обработку остальных.
func (s *SweeperService) Sweep(ctx context.Context) int {
	s.log.Info("starting subscription sweep")
	now := s.now()

	due, err := s.repo.FindDueSubscriptions(ctx, now)
	if err != nil {
		s.log.Error("failed to find due subscriptions", sl.Err(err))
		return 0
	}
	if len(due) == 0 {
		s.log.Info("no due subscriptions found")
		return 0
	}
	s.log.Info("found due subscriptions", "count", len(due))

	transitioned := 0
	ev := subscription.Event{Kind: subscription.EventKindPeriodElapsed}
	for _, advertiser := range due {
		updated, changed, err := s.repo.ApplyEventTx(ctx, advertiser.UID,
			func(rec subscription.Record) subscription.Record {
				return subscription.Apply(rec, ev, now, s.rules)
			})
		if err != nil {
			s.log.Error("failed to apply elapsed period", sl.Err(err),
				slog.String("advertiser_uid", advertiser.UID))
			continue
		}
		if !changed {
			continue
		}
		transitioned++

		metrics.SweeperTransitionsTotal.WithLabelValues(string(updated.Subscription.Status)).Inc()
		if err := s.cache.Invalidate(cache.StatusKey(updated.UID)); err != nil {
			s.log.Error("failed to invalidate status cache", sl.Err(err))
		}
		s.publishEmail(updated)

		s.log.Info("subscription transitioned",
			slog.String("advertiser_uid", updated.UID),
			slog.String("status", string(updated.Subscription.Status)))
	}

	s.log.Info("subscription sweep finished", "transitioned", transitioned)
	return transitioned
}

// publishEmail отправляет письмо о приостановке или истечении подписки.
// Доставка письма не влияет на результат прохода.
func (s *SweeperService) publishEmail(a *models.Advertiser) {
	var msg notify.Message
	switch a.Subscription.Status {
	case subscription.StatusSuspended:
		var ok bool
		msg, ok = notify.Format(subscription.EventKindSuspended, notify.Data{Name: a.Name})
		if !ok {
			return
		}
	case subscription.StatusExpired:
		msg = notify.FormatExpiry(notify.Data{Name: a.Name})
	default:
		return
	}

	email := notify.Email{To: a.Email, Subject: msg.Subject, Body: msg.Body}
	if err := s.notifier.Publish(rabbitmq.NotificationsExchange, "lifecycle", email); err != nil {
		s.log.Error("failed to publish lifecycle email", sl.Err(err),
			slog.String("advertiser_uid", a.UID))
	}
}
