// Package models содержит структуры доменных сущностей приложения.
package models

import (
	"time"

	"github.com/tudomais/tudomais-backend/internal/subscription"
)

// Advertiser представляет анунсианта — владельца бизнеса в каталоге.
type Advertiser struct {
	UID          string
	Email        string
	PasswordHash string
	Name         string
	BusinessName string
	Phone        string
	CPF          string
	BirthDate    time.Time
	Role         string
	CreatedAt    time.Time
	Subscription subscription.Record
}

// Age возвращает полный возраст анунсианта на момент now.
func (a *Advertiser) Age(now time.Time) int {
	years := now.Year() - a.BirthDate.Year()
	anniversary := a.BirthDate.AddDate(years, 0, 0)
	if anniversary.After(now) {
		years--
	}
	return years
}

// RegisterRequest — тело запроса регистрации анунсианта.
type RegisterRequest struct {
	Email        string `json:"email" validate:"required,email"`
	Password     string `json:"password" validate:"required,min=8"`
	Name         string `json:"name" validate:"required"`
	BusinessName string `json:"business_name" validate:"required"`
	Phone        string `json:"phone" validate:"required"`
	CPF          string `json:"cpf" validate:"required,len=11"`
	BirthDate    string `json:"birth_date" validate:"required"` // формат AAAA-MM-DD
}

// LoginRequest — тело запроса входа.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// WebhookNotification — тело уведомления платежного провайдера.
// ReferenceID содержит email анунсианта; PlanInfo заполняется
// только в событиях оплаты.
type WebhookNotification struct {
	EventType   string          `json:"eventType" validate:"required"`
	ReferenceID string          `json:"referenceId" validate:"required,email"`
	PlanInfo    WebhookPlanInfo `json:"planInfo"`
	Amount      float64         `json:"amount"`
}

// WebhookPlanInfo — вложенные сведения о тарифе в уведомлении об оплате.
type WebhookPlanInfo struct {
	PlanType string `json:"planType"`
}
