// Package subscription содержит каталог тарифов и чистую машину состояний
// жизненного цикла подписки анунсианта.
package subscription

import (
	"fmt"
	"math"
	"time"
)

// Plan — тариф подписки.
type Plan string

// Поддерживаемые тарифы.
const (
	PlanTrial    Plan = "trial"
	PlanMonthly  Plan = "monthly"
	PlanBiannual Plan = "biannual"
	PlanAnnual   Plan = "annual"
)

// Status — состояние подписки.
type Status string

// Состояния жизненного цикла подписки.
const (
	StatusTrial          Status = "trial"
	StatusActive         Status = "active"
	StatusPaymentPending Status = "payment_pending"
	StatusSuspended      Status = "suspended"
	StatusCancelled      Status = "cancelled"
	StatusExpired        Status = "expired"
)

// Отчетные значения промо-режима. В хранилище они не записываются:
// статус подписки подменяется фиксированным ответом без ограничений.
const (
	PlanBetaUnlimited Plan   = "beta_unlimited"
	StatusBeta        Status = "beta"
)

// ErrUnknownPlan возвращается, когда тариф не найден в каталоге.
var ErrUnknownPlan = fmt.Errorf("unknown plan")

// PlanInfo описывает тариф для выдачи клиенту: цена, период оплаты,
// ограничения и выгода относительно помесячной оплаты.
type PlanInfo struct {
	Name              string   `json:"name"`
	Price             float64  `json:"price"`
	Currency          string   `json:"currency"`
	BillingCycle      string   `json:"billing_cycle"`
	BillingPeriodDays int      `json:"billing_period_days"`
	MaxItems          int      `json:"max_items"`
	Features          []string `json:"features"`
	MonthlyEquivalent float64  `json:"monthly_equivalent,omitempty"`
	SavingsAmount     float64  `json:"savings_amount,omitempty"`
	SavingsPercentage int      `json:"savings_percentage,omitempty"`
}

// Catalog — неизменяемый каталог тарифов.
type Catalog struct {
	plans map[Plan]PlanInfo
}

// DefaultCatalog возвращает каталог со стандартными ценами.
func DefaultCatalog() *Catalog {
	return NewCatalog(nil)
}

// NewCatalog строит каталог, применяя переопределения цен из хранилища.
// Выгода долгосрочных тарифов пересчитывается от актуальной цены месячного.
func NewCatalog(priceOverrides map[Plan]float64) *Catalog {
	prices := map[Plan]float64{
		PlanMonthly:  20.00,
		PlanBiannual: 15.00,
		PlanAnnual:   110.00,
	}
	for plan, price := range priceOverrides {
		prices[plan] = price
	}

	plans := map[Plan]PlanInfo{
		PlanTrial: {
			Name:              "Período de Teste",
			Price:             0,
			Currency:          "BRL",
			BillingCycle:      "trial",
			BillingPeriodDays: 7,
			MaxItems:          10,
			Features: []string{
				"10 produtos/serviços em destaque",
				"Acesso completo por 7 dias",
			},
		},
		PlanMonthly: {
			Name:              "Plano Mensal",
			Price:             prices[PlanMonthly],
			Currency:          "BRL",
			BillingCycle:      "monthly",
			BillingPeriodDays: 30,
			MaxItems:          5,
			Features: []string{
				"5 produtos/serviços em destaque",
				"Chat com clientes",
				"Perfil completo",
				"Suporte por email",
			},
		},
		PlanBiannual: {
			Name:              "Plano Semestral",
			Price:             prices[PlanBiannual],
			Currency:          "BRL",
			BillingCycle:      "biannual",
			BillingPeriodDays: 180,
			MaxItems:          10,
			Features: []string{
				"10 produtos/serviços em destaque",
				"Sistema de avaliações com estrelas",
				"Chat com clientes",
				"Perfil completo",
				"Links compartilháveis",
				"Suporte prioritário",
			},
		},
		PlanAnnual: {
			Name:              "Plano Anual",
			Price:             prices[PlanAnnual],
			Currency:          "BRL",
			BillingCycle:      "annual",
			BillingPeriodDays: 365,
			MaxItems:          25,
			Features: []string{
				"25 produtos/serviços em destaque",
				"Sistema de avaliações com estrelas",
				"Chat com clientes",
				"Perfil completo",
				"Links compartilháveis",
				"Máxima visibilidade",
				"Suporte prioritário",
				"Relatórios de desempenho",
			},
		},
	}

	monthly := prices[PlanMonthly]
	for _, plan := range []Plan{PlanBiannual, PlanAnnual} {
		info := plans[plan]
		periods := 6
		if plan == PlanAnnual {
			periods = 12
		}
		equivalent := monthly * float64(periods)
		info.MonthlyEquivalent = equivalent
		info.SavingsAmount = equivalent - info.Price
		if equivalent > 0 {
			info.SavingsPercentage = int(math.Round(info.SavingsAmount / equivalent * 100))
		}
		plans[plan] = info
	}

	return &Catalog{plans: plans}
}

// Lookup возвращает описание тарифа.
func (c *Catalog) Lookup(plan Plan) (PlanInfo, error) {
	info, ok := c.plans[plan]
	if !ok {
		return PlanInfo{}, fmt.Errorf("%w: %q", ErrUnknownPlan, plan)
	}
	return info, nil
}

// All возвращает все тарифы каталога.
func (c *Catalog) All() map[Plan]PlanInfo {
	result := make(map[Plan]PlanInfo, len(c.plans))
	for plan, info := range c.plans {
		result[plan] = info
	}
	return result
}

// ItemLimit возвращает максимум объявлений для тарифа.
func ItemLimit(plan Plan) int {
	switch plan {
	case PlanMonthly:
		return 5
	case PlanAnnual:
		return 25
	default:
		return 10
	}
}

// ReviewEligible сообщает, доступны ли тарифу отзывы клиентов.
func ReviewEligible(plan Plan) bool {
	return plan == PlanBiannual || plan == PlanAnnual
}

// PeriodDuration возвращает длительность оплаченного периода тарифа.
func PeriodDuration(plan Plan, rules Rules) time.Duration {
	switch plan {
	case PlanTrial:
		return time.Duration(rules.TrialDays) * 24 * time.Hour
	case PlanBiannual:
		return 180 * 24 * time.Hour
	case PlanAnnual:
		return 365 * 24 * time.Hour
	default:
		return 30 * 24 * time.Hour
	}
}
