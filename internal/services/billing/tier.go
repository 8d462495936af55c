package billing

import "github.com/numisgallery/mercury-webhooks/internal/models"

// StatusOf переводит статус провайдера во внутренний. Функция тотальна:
// незнакомый статус отображается в active, чтобы подписка не провалилась
// в неопределённое состояние.
func StatusOf(providerStatus string) models.SubscriptionStatus {
	switch status := models.SubscriptionStatus(providerStatus); status {
	case models.StatusActive,
		models.StatusCanceled,
		models.StatusPastDue,
		models.StatusTrialing,
		models.StatusIncomplete,
		models.StatusIncompleteExpired:
		return status
	default:
		return models.StatusActive
	}
}

// TierMapper — единственное место, где прайс провайдера превращается во
// внутренний тариф. Новый платный тариф добавляется здесь, а не в reconciler.
type TierMapper struct {
	proPriceID string
}

// NewTierMapper создаёт маппер с идентификатором прайса тарифа pro.
func NewTierMapper(proPriceID string) TierMapper {
	return TierMapper{proPriceID: proPriceID}
}

// TierOf возвращает тариф для прайса события. Отменяемая подписка всегда
// даёт free независимо от прайса; любой прайс вне конфигурации — тоже free.
func (m TierMapper) TierOf(priceID string, canceled bool) models.Tier {
	if canceled {
		return models.TierFree
	}
	if priceID != "" && priceID == m.proPriceID {
		return models.TierPro
	}
	return models.TierFree
}
