package repository

import (
	"context"
	"fmt"

	"github.com/tudomais/tudomais-backend/internal/subscription"
)

// ListPlanPricing возвращает переопределения цен тарифов из базы данных.
func (s *Storage) ListPlanPricing(ctx context.Context) (map[subscription.Plan]float64, error) {
	const op = "storage.ListPlanPricing"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT plan, price FROM plan_pricing`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make(map[subscription.Plan]float64)
	for rows.Next() {
		var plan subscription.Plan
		var price float64
		if err = rows.Scan(&plan, &price); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result[plan] = price
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// UpsertPlanPricing сохраняет новую цену тарифа.
func (s *Storage) UpsertPlanPricing(ctx context.Context, plan subscription.Plan, price float64) error {
	const op = "storage.UpsertPlanPricing"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO plan_pricing (plan, price, updated_at)
			  VALUES ($1, $2, now())
			  ON CONFLICT (plan) DO UPDATE SET price = $2, updated_at = now()`
	_, err := s.DB.ExecContext(ctx, query, plan, price)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
