// Package services содержит бизнес-логику жизненного цикла подписок:
// обработку событий платежного провайдера, выдачу статуса и каталога тарифов.
package services

import (
	"context"
	"errors"
	"fmt"
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

// Repository описывает методы хранилища, необходимые сервису подписок.
type Repository interface {
	GetAdvertiserByEmail(ctx context.Context, email string) (*models.Advertiser, error)
	GetAdvertiserByUID(ctx context.Context, uid string) (*models.Advertiser, error)
	ApplyEventTx(ctx context.Context, uid string,
		apply func(subscription.Record) subscription.Record) (*models.Advertiser, bool, error)
	ListPlanPricing(ctx context.Context) (map[subscription.Plan]float64, error)
	UpsertPlanPricing(ctx context.Context, plan subscription.Plan, price float64) error
}

// StatusCache описывает кеш статусов подписок.
type StatusCache interface {
	Get(key string, result any) (bool, error)
	Set(key string, value any, expiration time.Duration) error
	Invalidate(key string) error
}

// Notifier публикует уведомления в очередь для последующей отправки почтой.
type Notifier interface {
	Publish(exchange, routingKey string, message any) error
}

// StatusInfo — статус подписки анунсианта для выдачи клиенту.
type StatusInfo struct {
	Plan              subscription.Plan   `json:"plan"`
	Status            subscription.Status `json:"status"`
	IsActive          bool                `json:"is_active"`
	PeriodEnd         *time.Time          `json:"period_end,omitempty"`
	GracePeriodEnd    *time.Time          `json:"grace_period_end,omitempty"`
	DaysRemaining     *int                `json:"days_remaining,omitempty"`
	LastPaymentDate   *time.Time          `json:"last_payment_date,omitempty"`
	LastPaymentAmount *float64            `json:"last_payment_amount,omitempty"`
	MaxItems          int                 `json:"max_items,omitempty"`
	ReviewsEnabled    bool                `json:"reviews_enabled"`
	BetaMessage       string              `json:"beta_message,omitempty"`
}

const statusCacheTTL = 5 * time.Minute

// SubscriptionService реализует операции над подписками анунсиантов.
type SubscriptionService struct {
	repo        Repository
	cache       StatusCache
	notifier    Notifier
	log         *slog.Logger
	rules       subscription.Rules
	betaMode    bool
	betaMessage string

	now func() time.Time
}

// NewSubscriptionService создает новый экземпляр SubscriptionService.
func NewSubscriptionService(repo Repository, statusCache StatusCache, notifier Notifier,
	log *slog.Logger, rules subscription.Rules, betaMode bool, betaMessage string) *SubscriptionService {
	return &SubscriptionService{
		repo:        repo,
		cache:       statusCache,
		notifier:    notifier,
		log:         log,
		rules:       rules,
		betaMode:    betaMode,
		betaMessage: betaMessage,
		now:         time.Now,
	}
}

// ProcessWebhookEvent применяет уведомление платежного провайдера к подписке
// анунсианта. Нераспознанный тип события подтверждается без изменений.
func (s *SubscriptionService) ProcessWebhookEvent(ctx context.Context, n models.WebhookNotification) error {
	const op = "services.subscription.ProcessWebhookEvent"
	log := s.log.With(slog.String("op", op), slog.String("event_type", n.EventType))

	ev, err := subscription.MapProviderEvent(n.EventType, n.PlanInfo.PlanType, n.Amount)
	if err != nil {
		metrics.WebhookEventsTotal.WithLabelValues(n.EventType, "invalid").Inc()
		return fmt.Errorf("%s: %w", op, err)
	}
	if ev.Kind == subscription.EventKindUnrecognized {
		log.Info("ignored unrecognized webhook event")
		metrics.WebhookEventsTotal.WithLabelValues(n.EventType, "ignored").Inc()
		return nil
	}

	advertiser, err := s.repo.GetAdvertiserByEmail(ctx, n.ReferenceID)
	if err != nil {
		if errors.Is(err, models.ErrAdvertiserNotFound) {
			metrics.WebhookEventsTotal.WithLabelValues(n.EventType, "not_found").Inc()
		} else {
			metrics.WebhookEventsTotal.WithLabelValues(n.EventType, "error").Inc()
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	now := s.now()
	updated, changed, err := s.repo.ApplyEventTx(ctx, advertiser.UID,
		func(rec subscription.Record) subscription.Record {
			return subscription.Apply(rec, ev, now, s.rules)
		})
	if err != nil {
		metrics.WebhookEventsTotal.WithLabelValues(n.EventType, "error").Inc()
		return fmt.Errorf("%s: %w", op, err)
	}
	metrics.WebhookEventsTotal.WithLabelValues(n.EventType, "processed").Inc()

	if !changed {
		log.Info("event did not change subscription state",
			slog.String("status", string(updated.Subscription.Status)))
		return nil
	}

	if err := s.cache.Invalidate(cache.StatusKey(updated.UID)); err != nil {
		log.Error("failed to invalidate status cache", sl.Err(err))
	}
	s.publishLifecycleEmail(updated, ev.Kind)

	log.Info("webhook event applied",
		slog.String("advertiser_uid", updated.UID),
		slog.String("status", string(updated.Subscription.Status)))
	return nil
}

// publishLifecycleEmail отправляет письмо о событии в очередь уведомлений.
// Доставка письма не влияет на результат обработки события.
func (s *SubscriptionService) publishLifecycleEmail(a *models.Advertiser, kind subscription.EventKind) {
	catalog := subscription.DefaultCatalog()
	planName := string(a.Subscription.Plan)
	if info, err := catalog.Lookup(a.Subscription.Plan); err == nil {
		planName = info.Name
	}

	msg, ok := notify.Format(kind, notify.Data{
		Name:      a.Name,
		PlanName:  planName,
		Amount:    paymentAmount(a),
		PeriodEnd: a.Subscription.PeriodEnd,
		GraceEnd:  a.Subscription.GracePeriodEnd,
	})
	if !ok {
		return
	}

	email := notify.Email{To: a.Email, Subject: msg.Subject, Body: msg.Body}
	if err := s.notifier.Publish(rabbitmq.NotificationsExchange, "lifecycle", email); err != nil {
		s.log.Error("failed to publish lifecycle email", sl.Err(err),
			slog.String("advertiser_uid", a.UID))
	}
}

func paymentAmount(a *models.Advertiser) float64 {
	if a.Subscription.LastPaymentAmount != nil {
		return *a.Subscription.LastPaymentAmount
	}
	return 0
}

// Status возвращает статус подписки анунсианта, используя кеш.
// В промо-режиме независимо от записи в хранилище возвращается
// фиксированный ответ без ограничений.
func (s *SubscriptionService) Status(ctx context.Context, uid string) (*StatusInfo, error) {
	const op = "services.subscription.Status"

	if s.betaMode {
		if _, err := s.repo.GetAdvertiserByUID(ctx, uid); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return &StatusInfo{
			Plan:           subscription.PlanBetaUnlimited,
			Status:         subscription.StatusBeta,
			IsActive:       true,
			ReviewsEnabled: true,
			BetaMessage:    s.betaMessage,
		}, nil
	}

	var cached StatusInfo
	found, err := s.cache.Get(cache.StatusKey(uid), &cached)
	if err != nil {
		s.log.Error("failed to read status cache", sl.Err(err))
	}
	if found {
		return &cached, nil
	}

	advertiser, err := s.repo.GetAdvertiserByUID(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	info := s.buildStatusInfo(advertiser)
	if err := s.cache.Set(cache.StatusKey(uid), info, statusCacheTTL); err != nil {
		s.log.Error("failed to write status cache", sl.Err(err))
	}
	return info, nil
}

func (s *SubscriptionService) buildStatusInfo(a *models.Advertiser) *StatusInfo {
	rec := a.Subscription
	info := &StatusInfo{
		Plan:              rec.Plan,
		Status:            rec.Status,
		IsActive:          rec.IsActive,
		PeriodEnd:         rec.PeriodEnd,
		GracePeriodEnd:    rec.GracePeriodEnd,
		LastPaymentDate:   rec.LastPaymentDate,
		LastPaymentAmount: rec.LastPaymentAmount,
		MaxItems:          subscription.ItemLimit(rec.Plan),
		ReviewsEnabled:    subscription.ReviewEligible(rec.Plan),
	}
	if rec.PeriodEnd != nil {
		days := int(rec.PeriodEnd.Sub(s.now()).Hours() / 24)
		if days < 0 {
			days = 0
		}
		info.DaysRemaining = &days
	}
	return info
}

// Plans возвращает каталог тарифов с актуальными ценами из хранилища.
func (s *SubscriptionService) Plans(ctx context.Context) (map[subscription.Plan]subscription.PlanInfo, error) {
	const op = "services.subscription.Plans"

	overrides, err := s.repo.ListPlanPricing(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return subscription.NewCatalog(overrides).All(), nil
}

// UpdatePlanPrice сохраняет новую цену тарифа. Пробный период бесплатен,
// его цена не переопределяется.
func (s *SubscriptionService) UpdatePlanPrice(ctx context.Context, plan subscription.Plan, price float64) error {
	const op = "services.subscription.UpdatePlanPrice"

	if plan == subscription.PlanTrial {
		return fmt.Errorf("%s: %w", op, subscription.ErrUnknownPlan)
	}
	if _, err := subscription.DefaultCatalog().Lookup(plan); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.repo.UpsertPlanPricing(ctx, plan, price); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
