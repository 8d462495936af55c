package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/numisgallery/mercury-webhooks/internal/models"
)

func TestStatusOf(t *testing.T) {
	tests := []struct {
		name           string
		providerStatus string
		expected       models.SubscriptionStatus
	}{
		{"active зеркалируется", "active", models.StatusActive},
		{"canceled зеркалируется", "canceled", models.StatusCanceled},
		{"past_due зеркалируется", "past_due", models.StatusPastDue},
		{"trialing зеркалируется", "trialing", models.StatusTrialing},
		{"incomplete зеркалируется", "incomplete", models.StatusIncomplete},
		{"incomplete_expired зеркалируется", "incomplete_expired", models.StatusIncompleteExpired},
		{"незнакомый статус даёт active", "paused", models.StatusActive},
		{"пустой статус даёт active", "", models.StatusActive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, StatusOf(tt.providerStatus))
		})
	}
}

func TestTierOf(t *testing.T) {
	mapper := NewTierMapper("price_pro_123")

	tests := []struct {
		name     string
		priceID  string
		canceled bool
		expected models.Tier
	}{
		{"прайс pro даёт pro", "price_pro_123", false, models.TierPro},
		{"чужой прайс даёт free", "price_other", false, models.TierFree},
		{"пустой прайс даёт free", "", false, models.TierFree},
		{"отмена доминирует над прайсом pro", "price_pro_123", true, models.TierFree},
		{"отмена с чужим прайсом даёт free", "price_other", true, models.TierFree},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, mapper.TierOf(tt.priceID, tt.canceled))
		})
	}
}

func TestTierOf_EmptyProPrice(t *testing.T) {
	// Несконфигурированный прайс pro не должен превращать пустой прайс
	// события в платный тариф.
	mapper := NewTierMapper("")
	assert.Equal(t, models.TierFree, mapper.TierOf("", false))
}
