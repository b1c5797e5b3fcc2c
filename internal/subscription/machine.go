package subscription

import "time"

// Record — снимок состояния подписки анунсианта.
type Record struct {
	Plan              Plan
	Status            Status
	PeriodStart       *time.Time
	PeriodEnd         *time.Time // nil при бессрочном промо-периоде
	GracePeriodEnd    *time.Time
	IsActive          bool
	HasUsedTrial      bool
	LastPaymentDate   *time.Time
	LastPaymentAmount *float64
}

// Rules — параметры автоматизации жизненного цикла.
type Rules struct {
	GraceDays int
	TrialDays int
}

// DefaultRules возвращает стандартные параметры: 3 дня льготного периода
// после неудачной оплаты и 7 дней пробного периода.
func DefaultRules() Rules {
	return Rules{GraceDays: 3, TrialDays: 7}
}

// NewTrialRecord создает запись пробного периода для нового анунсианта.
// При unbounded период не ограничен (промо-режим).
func NewTrialRecord(now time.Time, rules Rules, unbounded bool) Record {
	rec := Record{
		Plan:         PlanTrial,
		Status:       StatusTrial,
		PeriodStart:  &now,
		IsActive:     true,
		HasUsedTrial: true,
	}
	if !unbounded {
		end := now.Add(time.Duration(rules.TrialDays) * 24 * time.Hour)
		rec.PeriodEnd = &end
	}
	return rec
}

// Apply применяет событие к записи и возвращает новую запись.
// Функция чистая и тотальная: событие, неприменимое к текущему состоянию,
// оставляет запись без изменений.
func Apply(rec Record, ev Event, now time.Time, rules Rules) Record {
	switch ev.Kind {
	case EventKindPaymentApproved:
		end := now.Add(PeriodDuration(ev.Plan, rules))
		amount := ev.Amount
		rec.Plan = ev.Plan
		rec.Status = StatusActive
		rec.PeriodStart = &now
		rec.PeriodEnd = &end
		rec.GracePeriodEnd = nil
		rec.IsActive = true
		rec.LastPaymentDate = &now
		rec.LastPaymentAmount = &amount
		return rec

	case EventKindPaymentFailed:
		if rec.Status != StatusActive && rec.Status != StatusTrial {
			return rec
		}
		grace := now.Add(time.Duration(rules.GraceDays) * 24 * time.Hour)
		rec.Status = StatusPaymentPending
		rec.GracePeriodEnd = &grace
		// доступ сохраняется до конца льготного периода
		return rec

	case EventKindCancelled:
		// отложенная отмена: доступ остается до конца оплаченного периода
		rec.Status = StatusCancelled
		rec.GracePeriodEnd = nil
		return rec

	case EventKindSuspended:
		rec.Status = StatusSuspended
		rec.IsActive = false
		rec.GracePeriodEnd = nil
		return rec

	case EventKindReactivated:
		if rec.Status != StatusSuspended && rec.Status != StatusPaymentPending && rec.Status != StatusCancelled {
			return rec
		}
		end := now.Add(PeriodDuration(rec.Plan, rules))
		rec.Status = StatusActive
		rec.PeriodStart = &now
		rec.PeriodEnd = &end
		rec.GracePeriodEnd = nil
		rec.IsActive = true
		return rec

	case EventKindPeriodElapsed:
		switch rec.Status {
		case StatusPaymentPending:
			if rec.GracePeriodEnd != nil && !rec.GracePeriodEnd.After(now) {
				rec.Status = StatusSuspended
				rec.IsActive = false
				rec.GracePeriodEnd = nil
			}
		case StatusActive, StatusCancelled:
			if rec.PeriodEnd != nil && !rec.PeriodEnd.After(now) {
				rec.Status = StatusExpired
				rec.IsActive = false
			}
		}
		return rec

	default:
		return rec
	}
}
