package subscription

import "fmt"

// EventKind — нормализованный тип события жизненного цикла.
type EventKind string

// Нормализованные события, которые понимает машина состояний.
const (
	EventKindPaymentApproved EventKind = "payment_approved"
	EventKindPaymentFailed   EventKind = "payment_failed"
	EventKindCancelled       EventKind = "subscription_cancelled"
	EventKindSuspended       EventKind = "subscription_suspended"
	EventKindReactivated     EventKind = "subscription_reactivated"
	EventKindPeriodElapsed   EventKind = "period_elapsed"
	EventKindUnrecognized    EventKind = "unrecognized"
)

// Имена событий во внешнем формате платежного провайдера.
const (
	ProviderPaymentApproved         = "PAYMENT_APPROVED"
	ProviderPaymentCancelled        = "PAYMENT_CANCELLED"
	ProviderSubscriptionActivated   = "SUBSCRIPTION_ACTIVATED"
	ProviderSubscriptionCancelled   = "SUBSCRIPTION_CANCELLED"
	ProviderSubscriptionSuspended   = "SUBSCRIPTION_SUSPENDED"
	ProviderSubscriptionReactivated = "SUBSCRIPTION_REACTIVATED"
)

// Event — нормализованное событие, поданное на вход машине состояний.
type Event struct {
	Kind   EventKind
	Plan   Plan    // заполняется только для оплаты
	Amount float64 // сумма оплаты, если есть
}

// MapProviderEvent переводит событие провайдера во внутреннее представление.
// Неизвестный тип события не считается ошибкой: возвращается
// EventKindUnrecognized, и обработчик отвечает провайдеру 200.
func MapProviderEvent(eventType, planType string, amount float64) (Event, error) {
	switch eventType {
	case ProviderPaymentApproved, ProviderSubscriptionActivated:
		plan, err := mapProviderPlan(planType)
		if err != nil {
			return Event{}, err
		}
		return Event{Kind: EventKindPaymentApproved, Plan: plan, Amount: amount}, nil
	case ProviderPaymentCancelled:
		return Event{Kind: EventKindPaymentFailed}, nil
	case ProviderSubscriptionCancelled:
		return Event{Kind: EventKindCancelled}, nil
	case ProviderSubscriptionSuspended:
		return Event{Kind: EventKindSuspended}, nil
	case ProviderSubscriptionReactivated:
		return Event{Kind: EventKindReactivated}, nil
	default:
		return Event{Kind: EventKindUnrecognized}, nil
	}
}

func mapProviderPlan(planType string) (Plan, error) {
	switch planType {
	case "monthly":
		return PlanMonthly, nil
	case "semiannual", "biannual":
		return PlanBiannual, nil
	case "annual":
		return PlanAnnual, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPlan, planType)
	}
}
