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

	"github.com/tudomais/tudomais-backend/internal/models"
	"github.com/tudomais/tudomais-backend/internal/notify"
	"github.com/tudomais/tudomais-backend/internal/subscription"
)

type RepoMock struct {
	mock.Mock
	records map[string]subscription.Record
}

func (m *RepoMock) FindDueSubscriptions(ctx context.Context, now time.Time) ([]*models.Advertiser, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Advertiser), args.Error(1)
}

func (m *RepoMock) ApplyEventTx(ctx context.Context, uid string,
	apply func(subscription.Record) subscription.Record) (*models.Advertiser, bool, error) {
	args := m.Called(ctx, uid)
	if args.Error(1) != nil {
		return nil, false, args.Error(1)
	}
	rec := m.records[uid]
	updated := apply(rec)
	advertiser := args.Get(0).(*models.Advertiser)
	advertiser.Subscription = updated
	return advertiser, updated != rec, nil
}

type CacheMock struct{ mock.Mock }

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

func TestSweep_TransitionsDueSubscriptions(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)

	repo := new(RepoMock)
	cacheMock := new(CacheMock)
	notifier := new(NotifierMock)

	repo.records = map[string]subscription.Record{
		"uid-active": {Plan: subscription.PlanMonthly, Status: subscription.StatusActive,
			IsActive: true, PeriodEnd: &past},
		"uid-pending": {Plan: subscription.PlanMonthly, Status: subscription.StatusPaymentPending,
			IsActive: true, GracePeriodEnd: &past},
	}
	due := []*models.Advertiser{
		{UID: "uid-active", Email: "a@example.com", Name: "A",
			Subscription: repo.records["uid-active"]},
		{UID: "uid-pending", Email: "b@example.com", Name: "B",
			Subscription: repo.records["uid-pending"]},
	}

	repo.On("FindDueSubscriptions", mock.Anything, now).Return(due, nil).Once()
	repo.On("ApplyEventTx", mock.Anything, "uid-active").Return(due[0], nil).Once()
	repo.On("ApplyEventTx", mock.Anything, "uid-pending").Return(due[1], nil).Once()
	cacheMock.On("Invalidate", "subscription:status:uid-active").Return(nil).Once()
	cacheMock.On("Invalidate", "subscription:status:uid-pending").Return(nil).Once()
	notifier.On("Publish", "notifications", "lifecycle", mock.Anything).Return(nil).Twice()

	svc := NewSweeperService(repo, cacheMock, notifier, NewNoopLogger(),
		subscription.DefaultRules(), time.Hour)
	svc.now = func() time.Time { return now }

	transitioned := svc.Sweep(context.Background())

	assert.Equal(t, 2, transitioned)
	assert.Equal(t, subscription.StatusExpired, due[0].Subscription.Status)
	assert.Equal(t, subscription.StatusSuspended, due[1].Subscription.Status)
	repo.AssertExpectations(t)
	cacheMock.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestSweep_FailureOfOneAdvertiserDoesNotStopOthers(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)

	repo := new(RepoMock)
	cacheMock := new(CacheMock)
	notifier := new(NotifierMock)

	repo.records = map[string]subscription.Record{
		"uid-ok": {Plan: subscription.PlanMonthly, Status: subscription.StatusActive,
			IsActive: true, PeriodEnd: &past},
	}
	due := []*models.Advertiser{
		{UID: "uid-broken", Email: "x@example.com", Name: "X"},
		{UID: "uid-ok", Email: "y@example.com", Name: "Y",
			Subscription: repo.records["uid-ok"]},
	}

	repo.On("FindDueSubscriptions", mock.Anything, now).Return(due, nil).Once()
	repo.On("ApplyEventTx", mock.Anything, "uid-broken").
		Return(nil, errors.New("row lock timeout")).Once()
	repo.On("ApplyEventTx", mock.Anything, "uid-ok").Return(due[1], nil).Once()
	cacheMock.On("Invalidate", "subscription:status:uid-ok").Return(nil).Once()
	notifier.On("Publish", "notifications", "lifecycle", mock.MatchedBy(func(msg any) bool {
		email, ok := msg.(notify.Email)
		return ok && email.To == "y@example.com"
	})).Return(nil).Once()

	svc := NewSweeperService(repo, cacheMock, notifier, NewNoopLogger(),
		subscription.DefaultRules(), time.Hour)
	svc.now = func() time.Time { return now }

	transitioned := svc.Sweep(context.Background())

	assert.Equal(t, 1, transitioned)
	assert.Equal(t, subscription.StatusExpired, due[1].Subscription.Status)
	repo.AssertExpectations(t)
}

func TestSweep_FindErrorAbortsPass(t *testing.T) {
	repo := new(RepoMock)
	cacheMock := new(CacheMock)
	notifier := new(NotifierMock)

	repo.On("FindDueSubscriptions", mock.Anything, mock.Anything).
		Return(nil, errors.New("db down")).Once()

	svc := NewSweeperService(repo, cacheMock, notifier, NewNoopLogger(),
		subscription.DefaultRules(), time.Hour)

	transitioned := svc.Sweep(context.Background())

	assert.Equal(t, 0, transitioned)
	repo.AssertNotCalled(t, "ApplyEventTx", mock.Anything, mock.Anything)
}
