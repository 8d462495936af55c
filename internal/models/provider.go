package models

import "time"

// ProviderSubscription — объект подписки из события Stripe
// (customer.subscription.created/updated/deleted). Разбирается из сырых байт
// event.Data.Raw собственной структурой, чтобы не зависеть от версии API,
// с которой SDK ожидает объект.
type ProviderSubscription struct {
	ID                string            `json:"id"`
	Customer          string            `json:"customer"`
	Status            string            `json:"status"`
	CancelAtPeriodEnd bool              `json:"cancel_at_period_end"`
	CurrentPeriodEnd  int64             `json:"current_period_end"`
	Metadata          map[string]string `json:"metadata"`
	Items             struct {
		Data []struct {
			CurrentPeriodEnd int64 `json:"current_period_end"`
			Price            struct {
				ID string `json:"id"`
			} `json:"price"`
		} `json:"data"`
	} `json:"items"`
}

// PriceID возвращает идентификатор прайса первой позиции подписки.
// В модели ровно один платный тариф, поэтому остальные позиции не важны.
func (s *ProviderSubscription) PriceID() string {
	if len(s.Items.Data) == 0 {
		return ""
	}
	return s.Items.Data[0].Price.ID
}

// PeriodEnd возвращает конец оплаченного периода, если провайдер его прислал.
// Сначала смотрит на сам объект подписки, затем на первую позицию: начиная с
// API-версии 2025-03-31 Stripe переносит current_period_end в items.
func (s *ProviderSubscription) PeriodEnd() *time.Time {
	ts := s.CurrentPeriodEnd
	if ts == 0 && len(s.Items.Data) > 0 {
		ts = s.Items.Data[0].CurrentPeriodEnd
	}
	if ts == 0 {
		return nil
	}
	t := time.Unix(ts, 0).UTC()
	return &t
}

// MetadataUserID возвращает внутренний идентификатор пользователя из
// метаданных события, либо пустую строку.
func (s *ProviderSubscription) MetadataUserID() string {
	return s.Metadata["userId"]
}

// ProviderInvoice — объект счёта из событий invoice.payment_succeeded и
// invoice.payment_failed. Нужен только для сигнала продления: идентификатор
// подписки, клиента и необязательные метаданные.
type ProviderInvoice struct {
	ID           string            `json:"id"`
	Customer     string            `json:"customer"`
	Subscription string            `json:"subscription"`
	Metadata     map[string]string `json:"metadata"`
}
