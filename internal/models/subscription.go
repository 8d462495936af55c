// Package models содержит доменные структуры сервиса: запись подписки в том
// виде, в котором она хранится в record store, а также перечисления тарифа и
// статуса.
package models

import "time"

// DateOnly — формат дат для границ расчётного периода (usagePeriodStart/End).
// Record store хранит их без времени суток.
const DateOnly = "2006-01-02"

// Tier — внутренний тариф приложения. Выводится из прайса провайдера,
// клиент никогда не задаёт его напрямую.
type Tier string

// Допустимые значения тарифа.
const (
	TierFree Tier = "free"
	TierPro  Tier = "pro"
)

// SubscriptionStatus — статус подписки, зеркалирующий статус провайдера.
// Отдельное значение StatusCanceled выставляется принудительно при событии
// удаления подписки.
type SubscriptionStatus string

// Допустимые значения статуса.
const (
	StatusActive            SubscriptionStatus = "active"
	StatusCanceled          SubscriptionStatus = "canceled"
	StatusPastDue           SubscriptionStatus = "past_due"
	StatusTrialing          SubscriptionStatus = "trialing"
	StatusIncomplete        SubscriptionStatus = "incomplete"
	StatusIncompleteExpired SubscriptionStatus = "incomplete_expired"
)

// Subscription — запись подписки пользователя. На одного пользователя
// существует не больше одной записи; это соглашение, а не ограничение базы,
// поэтому reconciler обязан обновлять найденную запись, а не плодить новые.
//
// Даты usagePeriodStart/usagePeriodEnd хранятся строками в формате DateOnly,
// currentPeriodEnd — строкой RFC3339 либо пустой строкой.
type Subscription struct {
	ID                   string             `json:"id,omitempty"`
	UserID               string             `json:"userId"`
	Tier                 Tier               `json:"tier"`
	Status               SubscriptionStatus `json:"status"`
	StripeSubscriptionID string             `json:"stripeSubscriptionId"`
	StripeCustomerID     string             `json:"stripeCustomerId"`
	CurrentPeriodEnd     string             `json:"currentPeriodEnd"`
	CancelAtPeriodEnd    bool               `json:"cancelAtPeriodEnd"`
	PMGFetchesUsed       int                `json:"pmgFetchesUsed"`
	AIExtractionsUsed    int                `json:"aiExtractionsUsed"`
	UsagePeriodStart     string             `json:"usagePeriodStart"`
	UsagePeriodEnd       string             `json:"usagePeriodEnd"`
}

// UsagePeriodEndTime разбирает usagePeriodEnd. Возвращает nil, если граница
// не сохранена или строка не разбирается: в обоих случаях период считается
// устаревшим и подлежит сдвигу.
func (s *Subscription) UsagePeriodEndTime() *time.Time {
	if s.UsagePeriodEnd == "" {
		return nil
	}
	t, err := time.Parse(DateOnly, s.UsagePeriodEnd)
	if err != nil {
		return nil
	}
	return &t
}
