// Package services реализует регистрацию и аутентификацию анунсиантов.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tudomais/tudomais-backend/internal/lib/jwt"
	"github.com/tudomais/tudomais-backend/internal/lib/password"
	"github.com/tudomais/tudomais-backend/internal/models"
	"github.com/tudomais/tudomais-backend/internal/subscription"
)

// Repository описывает методы хранилища, необходимые сервису аутентификации.
type Repository interface {
	CreateAdvertiser(ctx context.Context, a models.Advertiser) (string, error)
	GetAdvertiserByEmail(ctx context.Context, email string) (*models.Advertiser, error)
	CPFHasUsedTrial(ctx context.Context, cpf string) (bool, error)
}

// AuthService реализует регистрацию и вход анунсиантов.
type AuthService struct {
	repo     Repository
	jwtMaker jwt.Maker
	log      *slog.Logger
	rules    subscription.Rules
	betaMode bool

	now func() time.Time
}

// NewAuthService создает новый экземпляр AuthService.
func NewAuthService(repo Repository, jwtMaker jwt.Maker, log *slog.Logger,
	rules subscription.Rules, betaMode bool) *AuthService {
	return &AuthService{
		repo:     repo,
		jwtMaker: jwtMaker,
		log:      log,
		rules:    rules,
		betaMode: betaMode,
		now:      time.Now,
	}
}

const minAge = 18

// Register создает анунсианта с пробным периодом и возвращает его UID.
// Пробный период выдается один раз на CPF: повторная регистрация с тем же
// CPF отклоняется. В промо-режиме пробный период не ограничен по времени.
func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (string, error) {
	const op = "services.auth.Register"

	birthDate, err := time.Parse("2006-01-02", req.BirthDate)
	if err != nil {
		return "", fmt.Errorf("%s: invalid birth date: %w", op, err)
	}

	now := s.now()
	advertiser := models.Advertiser{
		Email:        req.Email,
		Name:         req.Name,
		BusinessName: req.BusinessName,
		Phone:        req.Phone,
		CPF:          req.CPF,
		BirthDate:    birthDate,
		Role:         "advertiser",
	}
	if advertiser.Age(now) < minAge {
		return "", fmt.Errorf("%s: %w", op, models.ErrUnderage)
	}

	if _, err := s.repo.GetAdvertiserByEmail(ctx, req.Email); err == nil {
		return "", fmt.Errorf("%s: %w", op, models.ErrAlreadyRegistered)
	} else if !errors.Is(err, models.ErrAdvertiserNotFound) {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	used, err := s.repo.CPFHasUsedTrial(ctx, req.CPF)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if used {
		return "", fmt.Errorf("%s: %w", op, models.ErrTrialAlreadyUsed)
	}

	hash, err := password.GetHash(req.Password)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	advertiser.PasswordHash = hash
	advertiser.Subscription = subscription.NewTrialRecord(now, s.rules, s.betaMode)

	uid, err := s.repo.CreateAdvertiser(ctx, advertiser)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("advertiser registered",
		slog.String("advertiser_uid", uid),
		slog.String("plan", string(advertiser.Subscription.Plan)))
	return uid, nil
}

// Login проверяет учетные данные и возвращает JWT токен.
func (s *AuthService) Login(ctx context.Context, email, pass string) (string, error) {
	const op = "services.auth.Login"

	advertiser, err := s.repo.GetAdvertiserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrAdvertiserNotFound) {
			return "", fmt.Errorf("%s: %w", op, models.ErrInvalidCredentials)
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if err := password.CompareHash(advertiser.PasswordHash, pass); err != nil {
		return "", fmt.Errorf("%s: %w", op, models.ErrInvalidCredentials)
	}

	token, err := s.jwtMaker.GenerateToken(advertiser.Email, advertiser.Role, advertiser.UID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return token, nil
}
