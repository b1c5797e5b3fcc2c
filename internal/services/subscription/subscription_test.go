package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tudomais/tudomais-backend/internal/models"
	"github.com/tudomais/tudomais-backend/internal/notify"
	"github.com/tudomais/tudomais-backend/internal/subscription"
)

type RepoMock struct {
	mock.Mock
	record subscription.Record
}

func (m *RepoMock) GetAdvertiserByEmail(ctx context.Context, email string) (*models.Advertiser, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Advertiser), args.Error(1)
}

func (m *RepoMock) GetAdvertiserByUID(ctx context.Context, uid string) (*models.Advertiser, error) {
	args := m.Called(ctx, uid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Advertiser), args.Error(1)
}

func (m *RepoMock) ApplyEventTx(ctx context.Context, uid string,
	apply func(subscription.Record) subscription.Record) (*models.Advertiser, bool, error) {
	args := m.Called(ctx, uid)
	if args.Get(0) == nil {
		return nil, false, args.Error(1)
	}
	advertiser := args.Get(0).(*models.Advertiser)
	updated := apply(m.record)
	changed := updated != m.record
	advertiser.Subscription = updated
	return advertiser, changed, args.Error(1)
}

func (m *RepoMock) ListPlanPricing(ctx context.Context) (map[subscription.Plan]float64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[subscription.Plan]float64), args.Error(1)
}

func (m *RepoMock) UpsertPlanPricing(ctx context.Context, plan subscription.Plan, price float64) error {
	return m.Called(ctx, plan, price).Error(0)
}

type CacheMock struct{ mock.Mock }

func (m *CacheMock) Get(key string, result any) (bool, error) {
	args := m.Called(key, result)
	return args.Bool(0), args.Error(1)
}

func (m *CacheMock) Set(key string, value any, expiration time.Duration) error {
	return m.Called(key, value, expiration).Error(0)
}

func (m *CacheMock) Invalidate(key string) error {
	return m.Called(key).Error(0)
}

type NotifierMock struct{ mock.Mock }

func (m *NotifierMock) Publish(exchange, routingKey string, message any) error {
	return m.Called(exchange, routingKey, message).Error(0)
}

func NewNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func newTestService(repo *RepoMock, cacheMock *CacheMock, notifier *NotifierMock) *SubscriptionService {
	svc := NewSubscriptionService(repo, cacheMock, notifier, NewNoopLogger(),
		subscription.DefaultRules(), false, "")
	svc.now = func() time.Time {
		return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	}
	return svc
}

func TestProcessWebhookEvent_PaymentApproved(t *testing.T) {
	repo := new(RepoMock)
	cacheMock := new(CacheMock)
	notifier := new(NotifierMock)

	repo.record = subscription.Record{
		Plan: subscription.PlanTrial, Status: subscription.StatusTrial, IsActive: true,
	}
	advertiser := &models.Advertiser{UID: "uid-1", Email: "ana@example.com", Name: "Ana"}

	repo.On("GetAdvertiserByEmail", mock.Anything, "ana@example.com").Return(advertiser, nil).Once()
	repo.On("ApplyEventTx", mock.Anything, "uid-1").Return(advertiser, nil).Once()
	cacheMock.On("Invalidate", "subscription:status:uid-1").Return(nil).Once()
	notifier.On("Publish", "notifications", "lifecycle", mock.MatchedBy(func(msg any) bool {
		email, ok := msg.(notify.Email)
		return ok && email.To == "ana@example.com"
	})).Return(nil).Once()

	svc := newTestService(repo, cacheMock, notifier)
	err := svc.ProcessWebhookEvent(context.Background(), models.WebhookNotification{
		EventType:   "PAYMENT_APPROVED",
		ReferenceID: "ana@example.com",
		PlanInfo:    models.WebhookPlanInfo{PlanType: "monthly"},
		Amount:      20,
	})

	require.NoError(t, err)
	assert.Equal(t, subscription.StatusActive, advertiser.Subscription.Status)
	repo.AssertExpectations(t)
	cacheMock.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestProcessWebhookEvent_UnrecognizedEventIsAcknowledged(t *testing.T) {
	repo := new(RepoMock)
	cacheMock := new(CacheMock)
	notifier := new(NotifierMock)

	svc := newTestService(repo, cacheMock, notifier)
	err := svc.ProcessWebhookEvent(context.Background(), models.WebhookNotification{
		EventType:   "SOMETHING_NEW",
		ReferenceID: "ana@example.com",
	})

	require.NoError(t, err)
	repo.AssertNotCalled(t, "GetAdvertiserByEmail", mock.Anything, mock.Anything)
}

func TestProcessWebhookEvent_AdvertiserNotFound(t *testing.T) {
	repo := new(RepoMock)
	cacheMock := new(CacheMock)
	notifier := new(NotifierMock)

	repo.On("GetAdvertiserByEmail", mock.Anything, "ghost@example.com").
		Return(nil, models.ErrAdvertiserNotFound).Once()

	svc := newTestService(repo, cacheMock, notifier)
	err := svc.ProcessWebhookEvent(context.Background(), models.WebhookNotification{
		EventType:   "SUBSCRIPTION_CANCELLED",
		ReferenceID: "ghost@example.com",
	})

	assert.ErrorIs(t, err, models.ErrAdvertiserNotFound)
}

func TestProcessWebhookEvent_NoopKeepsCacheAndQueueUntouched(t *testing.T) {
	repo := new(RepoMock)
	cacheMock := new(CacheMock)
	notifier := new(NotifierMock)

	// повторная доставка SUSPENDED для уже приостановленной подписки
	repo.record = subscription.Record{
		Plan: subscription.PlanMonthly, Status: subscription.StatusSuspended,
	}
	advertiser := &models.Advertiser{UID: "uid-2", Email: "bia@example.com", Name: "Bia"}

	repo.On("GetAdvertiserByEmail", mock.Anything, "bia@example.com").Return(advertiser, nil).Once()
	repo.On("ApplyEventTx", mock.Anything, "uid-2").Return(advertiser, nil).Once()

	svc := newTestService(repo, cacheMock, notifier)
	err := svc.ProcessWebhookEvent(context.Background(), models.WebhookNotification{
		EventType:   "SUBSCRIPTION_SUSPENDED",
		ReferenceID: "bia@example.com",
	})

	require.NoError(t, err)
	cacheMock.AssertNotCalled(t, "Invalidate", mock.Anything)
	notifier.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessWebhookEvent_NotifyFailureIsNotFatal(t *testing.T) {
	repo := new(RepoMock)
	cacheMock := new(CacheMock)
	notifier := new(NotifierMock)

	repo.record = subscription.Record{
		Plan: subscription.PlanMonthly, Status: subscription.StatusActive, IsActive: true,
	}
	advertiser := &models.Advertiser{UID: "uid-3", Email: "caio@example.com", Name: "Caio"}

	repo.On("GetAdvertiserByEmail", mock.Anything, "caio@example.com").Return(advertiser, nil).Once()
	repo.On("ApplyEventTx", mock.Anything, "uid-3").Return(advertiser, nil).Once()
	cacheMock.On("Invalidate", "subscription:status:uid-3").Return(nil).Once()
	notifier.On("Publish", mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("broker down")).Once()

	svc := newTestService(repo, cacheMock, notifier)
	err := svc.ProcessWebhookEvent(context.Background(), models.WebhookNotification{
		EventType:   "PAYMENT_CANCELLED",
		ReferenceID: "caio@example.com",
	})

	require.NoError(t, err)
	assert.Equal(t, subscription.StatusPaymentPending, advertiser.Subscription.Status)
}

func TestStatus_CacheMissLoadsFromRepository(t *testing.T) {
	repo := new(RepoMock)
	cacheMock := new(CacheMock)
	notifier := new(NotifierMock)

	periodEnd := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	advertiser := &models.Advertiser{
		UID: "uid-4",
		Subscription: subscription.Record{
			Plan: subscription.PlanAnnual, Status: subscription.StatusActive,
			IsActive: true, PeriodEnd: &periodEnd,
		},
	}

	cacheMock.On("Get", "subscription:status:uid-4", mock.Anything).Return(false, nil).Once()
	repo.On("GetAdvertiserByUID", mock.Anything, "uid-4").Return(advertiser, nil).Once()
	cacheMock.On("Set", "subscription:status:uid-4", mock.Anything, 5*time.Minute).Return(nil).Once()

	svc := newTestService(repo, cacheMock, notifier)
	info, err := svc.Status(context.Background(), "uid-4")

	require.NoError(t, err)
	assert.Equal(t, subscription.PlanAnnual, info.Plan)
	assert.True(t, info.IsActive)
	assert.Equal(t, 25, info.MaxItems)
	assert.True(t, info.ReviewsEnabled)
	cacheMock.AssertExpectations(t)
}

func TestStatus_BetaModeIgnoresStoredRecord(t *testing.T) {
	repo := new(RepoMock)
	cacheMock := new(CacheMock)
	notifier := new(NotifierMock)

	// приостановленная подписка не должна просвечивать в промо-режиме
	advertiser := &models.Advertiser{
		UID: "uid-beta",
		Subscription: subscription.Record{
			Plan: subscription.PlanMonthly, Status: subscription.StatusSuspended,
		},
	}
	repo.On("GetAdvertiserByUID", mock.Anything, "uid-beta").Return(advertiser, nil).Once()

	svc := NewSubscriptionService(repo, cacheMock, notifier, NewNoopLogger(),
		subscription.DefaultRules(), true, "Modo Beta - Acesso gratuito por tempo indeterminado")
	info, err := svc.Status(context.Background(), "uid-beta")

	require.NoError(t, err)
	assert.Equal(t, subscription.PlanBetaUnlimited, info.Plan)
	assert.Equal(t, subscription.StatusBeta, info.Status)
	assert.True(t, info.IsActive)
	assert.True(t, info.ReviewsEnabled)
	assert.Zero(t, info.MaxItems)
	assert.Nil(t, info.PeriodEnd)
	assert.Equal(t, "Modo Beta - Acesso gratuito por tempo indeterminado", info.BetaMessage)
	cacheMock.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
	cacheMock.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything)
}

func TestStatus_BetaModeStillReportsUnknownAdvertiser(t *testing.T) {
	repo := new(RepoMock)
	repo.On("GetAdvertiserByUID", mock.Anything, "uid-ghost").
		Return(nil, models.ErrAdvertiserNotFound).Once()

	svc := NewSubscriptionService(repo, new(CacheMock), new(NotifierMock), NewNoopLogger(),
		subscription.DefaultRules(), true, "Modo Beta")
	_, err := svc.Status(context.Background(), "uid-ghost")

	assert.ErrorIs(t, err, models.ErrAdvertiserNotFound)
}

func TestStatus_CacheHitSkipsRepository(t *testing.T) {
	repo := new(RepoMock)
	cacheMock := new(CacheMock)
	notifier := new(NotifierMock)

	cacheMock.On("Get", "subscription:status:uid-5", mock.Anything).Return(true, nil).Once()

	svc := newTestService(repo, cacheMock, notifier)
	_, err := svc.Status(context.Background(), "uid-5")

	require.NoError(t, err)
	repo.AssertNotCalled(t, "GetAdvertiserByUID", mock.Anything, mock.Anything)
}

func TestPlans_AppliesPriceOverrides(t *testing.T) {
	repo := new(RepoMock)
	cacheMock := new(CacheMock)
	notifier := new(NotifierMock)

	repo.On("ListPlanPricing", mock.Anything).
		Return(map[subscription.Plan]float64{subscription.PlanMonthly: 30.0}, nil).Once()

	svc := newTestService(repo, cacheMock, notifier)
	plans, err := svc.Plans(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 30.0, plans[subscription.PlanMonthly].Price)
	assert.Equal(t, 180.0, plans[subscription.PlanBiannual].MonthlyEquivalent)
}

func TestUpdatePlanPrice(t *testing.T) {
	t.Run("trial price cannot be overridden", func(t *testing.T) {
		svc := newTestService(new(RepoMock), new(CacheMock), new(NotifierMock))
		err := svc.UpdatePlanPrice(context.Background(), subscription.PlanTrial, 10)
		assert.ErrorIs(t, err, subscription.ErrUnknownPlan)
	})

	t.Run("valid plan is persisted", func(t *testing.T) {
		repo := new(RepoMock)
		repo.On("UpsertPlanPricing", mock.Anything, subscription.PlanMonthly, 25.0).Return(nil).Once()
		svc := newTestService(repo, new(CacheMock), new(NotifierMock))
		err := svc.UpdatePlanPrice(context.Background(), subscription.PlanMonthly, 25.0)
		require.NoError(t, err)
		repo.AssertExpectations(t)
	})
}
