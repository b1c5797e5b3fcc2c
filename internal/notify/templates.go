// Package notify содержит шаблоны писем о событиях жизненного цикла подписки
// и тип сообщения, публикуемого в очередь уведомлений.
package notify

import (
	"fmt"
	"time"

	"github.com/tudomais/tudomais-backend/internal/subscription"
)

// Email — полезная нагрузка очереди уведомлений, которую читает sender.
type Email struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Data — данные для подстановки в шаблон письма.
type Data struct {
	Name      string
	PlanName  string
	Amount    float64
	PeriodEnd *time.Time
	GraceEnd  *time.Time
}

// Message — готовые тема и тело письма.
type Message struct {
	Subject string
	Body    string
}

const dateLayout = "02/01/2006"

// Format возвращает письмо для события жизненного цикла. Второе возвращаемое
// значение false означает, что для события письмо не предусмотрено.
func Format(kind subscription.EventKind, data Data) (Message, bool) {
	switch kind {
	case subscription.EventKindPaymentApproved:
		body := fmt.Sprintf(
			"Olá %s!\n\nSeu pagamento de R$ %.2f foi aprovado e sua assinatura do %s está ativa.",
			data.Name, data.Amount, data.PlanName)
		if data.PeriodEnd != nil {
			body += fmt.Sprintf("\nSua assinatura é válida até %s.", data.PeriodEnd.Format(dateLayout))
		}
		body += "\n\nObrigado por fazer parte do Tudo Mais!"
		return Message{Subject: "Pagamento aprovado - Tudo Mais", Body: body}, true

	case subscription.EventKindPaymentFailed:
		body := fmt.Sprintf(
			"Olá %s,\n\nNão conseguimos processar o pagamento da sua assinatura.",
			data.Name)
		if data.GraceEnd != nil {
			body += fmt.Sprintf(
				"\nRegularize o pagamento até %s para manter seus anúncios ativos.",
				data.GraceEnd.Format(dateLayout))
		}
		body += "\n\nEquipe Tudo Mais"
		return Message{Subject: "Problema com seu pagamento - Tudo Mais", Body: body}, true

	case subscription.EventKindCancelled:
		body := fmt.Sprintf(
			"Olá %s,\n\nSua assinatura foi cancelada.",
			data.Name)
		if data.PeriodEnd != nil {
			body += fmt.Sprintf(
				"\nSeus anúncios permanecem ativos até %s, o fim do período já pago.",
				data.PeriodEnd.Format(dateLayout))
		}
		body += "\n\nSentiremos sua falta. Equipe Tudo Mais"
		return Message{Subject: "Assinatura cancelada - Tudo Mais", Body: body}, true

	case subscription.EventKindSuspended:
		body := fmt.Sprintf(
			"Olá %s,\n\nSua assinatura foi suspensa e seus anúncios não estão mais visíveis.\n"+
				"Para reativá-los, regularize o pagamento da sua assinatura.\n\nEquipe Tudo Mais",
			data.Name)
		return Message{Subject: "Assinatura suspensa - Tudo Mais", Body: body}, true

	case subscription.EventKindReactivated:
		body := fmt.Sprintf(
			"Olá %s!\n\nSua assinatura do %s foi reativada e seus anúncios voltaram ao ar.",
			data.Name, data.PlanName)
		if data.PeriodEnd != nil {
			body += fmt.Sprintf("\nSua assinatura é válida até %s.", data.PeriodEnd.Format(dateLayout))
		}
		body += "\n\nBem-vindo de volta! Equipe Tudo Mais"
		return Message{Subject: "Assinatura reativada - Tudo Mais", Body: body}, true

	default:
		return Message{}, false
	}
}

// FormatExpiry возвращает письмо об истечении оплаченного периода,
// отправляемое планировщиком.
func FormatExpiry(data Data) Message {
	body := fmt.Sprintf(
		"Olá %s,\n\nO período da sua assinatura terminou e seus anúncios foram pausados.\n"+
			"Assine um de nossos planos para voltar a anunciar no Tudo Mais.\n\nEquipe Tudo Mais",
		data.Name)
	return Message{Subject: "Sua assinatura expirou - Tudo Mais", Body: body}
}
