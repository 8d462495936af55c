// Package metrics регистрирует прометеевские счётчики сервиса. Сами значения
// отдаются промежуточным обработчиком promhttp на /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Исходы обработки события для метки outcome.
const (
	OutcomeProcessed = "processed"
	OutcomeSkipped   = "skipped"
	OutcomeRejected  = "rejected"
	OutcomeFailed    = "failed"
)

// WebhookEventsTotal считает входящие webhook-события по типу и исходу.
var WebhookEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "mercury_webhook_events_total",
	Help: "Webhook events by provider event type and processing outcome.",
}, []string{"type", "outcome"})

// SessionRequestsTotal считает запросы на выпуск hosted-сессий провайдера.
var SessionRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "mercury_session_requests_total",
	Help: "Checkout and billing-portal session requests by kind and outcome.",
}, []string{"kind", "outcome"})
