package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tudomais/tudomais-backend/internal/models"
	"github.com/tudomais/tudomais-backend/internal/subscription"
)

const advertiserColumns = `uid, email, password_hash, name, business_name, phone, cpf,
	birth_date, role, created_at, plan, status, period_start, period_end,
	grace_period_end, is_active, has_used_trial, last_payment_date, last_payment_amount`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAdvertiser(row rowScanner) (*models.Advertiser, error) {
	a := &models.Advertiser{}
	var periodStart, periodEnd, graceEnd, lastPayment sql.NullTime
	var lastAmount sql.NullFloat64
	if err := row.Scan(&a.UID, &a.Email, &a.PasswordHash, &a.Name, &a.BusinessName,
		&a.Phone, &a.CPF, &a.BirthDate, &a.Role, &a.CreatedAt,
		&a.Subscription.Plan, &a.Subscription.Status,
		&periodStart, &periodEnd, &graceEnd,
		&a.Subscription.IsActive, &a.Subscription.HasUsedTrial,
		&lastPayment, &lastAmount); err != nil {
		return nil, err
	}
	if periodStart.Valid {
		a.Subscription.PeriodStart = &periodStart.Time
	}
	if periodEnd.Valid {
		a.Subscription.PeriodEnd = &periodEnd.Time
	}
	if graceEnd.Valid {
		a.Subscription.GracePeriodEnd = &graceEnd.Time
	}
	if lastPayment.Valid {
		a.Subscription.LastPaymentDate = &lastPayment.Time
	}
	if lastAmount.Valid {
		amount := lastAmount.Float64
		a.Subscription.LastPaymentAmount = &amount
	}
	return a, nil
}

// CreateAdvertiser сохраняет нового анунсианта вместе с начальной записью
// подписки и регистрирует его CPF как использовавший пробный период.
func (s *Storage) CreateAdvertiser(ctx context.Context, a models.Advertiser) (string, error) {
	const op = "storage.CreateAdvertiser"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var newUID string
	query := `INSERT INTO advertisers (email, password_hash, name, business_name, phone, cpf,
			      birth_date, role, plan, status, period_start, period_end, grace_period_end,
			      is_active, has_used_trial)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
			  RETURNING uid;`
	if err := tx.QueryRowContext(ctx, query,
		a.Email, a.PasswordHash, a.Name, a.BusinessName, a.Phone, a.CPF,
		a.BirthDate, a.Role, a.Subscription.Plan, a.Subscription.Status,
		a.Subscription.PeriodStart, a.Subscription.PeriodEnd, a.Subscription.GracePeriodEnd,
		a.Subscription.IsActive, a.Subscription.HasUsedTrial).Scan(&newUID); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO trial_registry (cpf) VALUES ($1) ON CONFLICT (cpf) DO NOTHING`, a.CPF)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return newUID, nil
}

// GetAdvertiserByEmail возвращает анунсианта по email.
func (s *Storage) GetAdvertiserByEmail(ctx context.Context, email string) (*models.Advertiser, error) {
	const op = "storage.GetAdvertiserByEmail"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + advertiserColumns + `
			  FROM advertisers
			  WHERE email = $1`
	a, err := scanAdvertiser(s.DB.QueryRowContext(ctx, query, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrAdvertiserNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return a, nil
}

// GetAdvertiserByUID возвращает анунсианта по его UID.
func (s *Storage) GetAdvertiserByUID(ctx context.Context, uid string) (*models.Advertiser, error) {
	const op = "storage.GetAdvertiserByUID"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + advertiserColumns + `
			  FROM advertisers
			  WHERE uid = $1`
	a, err := scanAdvertiser(s.DB.QueryRowContext(ctx, query, uid))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrAdvertiserNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return a, nil
}

// CPFHasUsedTrial сообщает, был ли уже использован пробный период для CPF.
func (s *Storage) CPFHasUsedTrial(ctx context.Context, cpf string) (bool, error) {
	const op = "storage.CPFHasUsedTrial"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM trial_registry WHERE cpf = $1)`
	if err := s.DB.QueryRowContext(ctx, query, cpf).Scan(&exists); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return exists, nil
}

// ApplyEventTx атомарно применяет переход состояния к подписке анунсианта:
// строка блокируется FOR UPDATE, apply вычисляет новую запись, результат
// записывается в той же транзакции. Возвращает анунсианта с обновленной
// подпиской и признак того, что состояние изменилось.
func (s *Storage) ApplyEventTx(ctx context.Context, uid string,
	apply func(subscription.Record) subscription.Record) (*models.Advertiser, bool, error) {
	const op = "storage.ApplyEventTx"
	select {
	case <-ctx.Done():
		return nil, false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `SELECT ` + advertiserColumns + `
			  FROM advertisers
			  WHERE uid = $1
			  FOR UPDATE`
	a, err := scanAdvertiser(tx.QueryRowContext(ctx, query, uid))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("%s: %w", op, models.ErrAdvertiserNotFound)
	}
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}

	updated := apply(a.Subscription)
	if updated == a.Subscription {
		if err := tx.Commit(); err != nil {
			return nil, false, fmt.Errorf("%s: %w", op, err)
		}
		return a, false, nil
	}

	updateQuery := `UPDATE advertisers
			  SET plan = $1, status = $2, period_start = $3, period_end = $4,
			      grace_period_end = $5, is_active = $6, has_used_trial = $7,
			      last_payment_date = $8, last_payment_amount = $9
			  WHERE uid = $10`
	_, err = tx.ExecContext(ctx, updateQuery,
		updated.Plan, updated.Status, updated.PeriodStart, updated.PeriodEnd,
		updated.GracePeriodEnd, updated.IsActive, updated.HasUsedTrial,
		updated.LastPaymentDate, updated.LastPaymentAmount, uid)
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	a.Subscription = updated
	return a, true, nil
}

// FindDueSubscriptions находит анунсиантов, чьи подписки подлежат переводу
// планировщиком: истек оплаченный период либо льготный период после
// неудачной оплаты. Бессрочные промо-периоды (period_end IS NULL)
// запросом не затрагиваются.
func (s *Storage) FindDueSubscriptions(ctx context.Context, now time.Time) ([]*models.Advertiser, error) {
	const op = "storage.FindDueSubscriptions"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + advertiserColumns + `
			  FROM advertisers
			  WHERE (status IN ('active', 'cancelled') AND period_end <= $1)
			     OR (status = 'payment_pending' AND grace_period_end <= $1)`
	rows, err := s.DB.QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Advertiser
	for rows.Next() {
		a, err := scanAdvertiser(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, a)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
