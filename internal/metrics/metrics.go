// Package metrics содержит счетчики Prometheus для наблюдения за
// обработкой уведомлений провайдера и работой планировщика.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WebhookEventsTotal считает входящие уведомления провайдера по типу
	// события и результату обработки.
	WebhookEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_total",
		Help: "Входящие уведомления платежного провайдера по типу и результату.",
	}, []string{"event_type", "result"})

	// SweeperTransitionsTotal считает переходы, выполненные планировщиком.
	SweeperTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sweeper_transitions_total",
		Help: "Переходы подписок, выполненные планировщиком, по итоговому статусу.",
	}, []string{"status"})
)
