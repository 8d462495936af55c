package billing

import (
	"context"
	"fmt"
	"regexp"

	"github.com/numisgallery/mercury-webhooks/internal/models"
)

// userIDPattern — форма внутреннего идентификатора пользователя: ровно
// 15 алфавитно-цифровых символов. Метаданные события приходят от внешней
// системы, поэтому значение проверяется до любого обращения к хранилищу.
var userIDPattern = regexp.MustCompile(`^[a-zA-Z0-9]{15}$`)

// Resolution — результат разрешения события во внутреннего пользователя.
// Existing заполняется, когда пользователь найден поиском по записи в
// хранилище: reconciler переиспользует её и не делает повторный запрос.
type Resolution struct {
	UserID   string
	Existing *models.Subscription
}

// SubscriptionFinder — часть хранилища, нужная резолверу для запасного пути.
type SubscriptionFinder interface {
	FindSubscriptionByCustomerID(ctx context.Context, customerID string) (*models.Subscription, error)
}

// ResolveStrategy — одна стратегия разрешения. Возвращает nil без ошибки,
// если стратегия неприменима, и цепочка переходит к следующей.
type ResolveStrategy func(ctx context.Context, metaUserID, customerID string) (*Resolution, error)

// Resolver — явная упорядоченная цепочка стратегий разрешения подписчика,
// первый успех останавливает перебор.
type Resolver struct {
	strategies []ResolveStrategy
}

// NewResolver собирает штатную цепочку: сначала явный userId из метаданных
// события, затем поиск записи по идентификатору клиента провайдера. Провайдер
// не всегда возвращает метаданные (например, на subscription-updated их нет),
// поэтому запасной путь через customerId обязателен для корректности.
func NewResolver(store SubscriptionFinder) *Resolver {
	return &Resolver{
		strategies: []ResolveStrategy{
			metadataStrategy,
			customerLookupStrategy(store),
		},
	}
}

// Resolve прогоняет стратегии по порядку. Если ни одна не дала результата,
// событие неразрешимо: вызывающий логирует и подтверждает приём, ничего не
// меняя в хранилище.
func (r *Resolver) Resolve(ctx context.Context, metaUserID, customerID string) (*Resolution, error) {
	for _, strategy := range r.strategies {
		res, err := strategy(ctx, metaUserID, customerID)
		if err != nil {
			return nil, err
		}
		if res != nil {
			return res, nil
		}
	}
	return nil, ErrUnresolvedSubscriber
}

// metadataStrategy использует явный userId из метаданных события.
// Кривой идентификатор — терминальная ошибка, а не повод перейти к запасному
// пути: иначе опечатка в метаданных могла бы испортить чужую запись.
func metadataStrategy(_ context.Context, metaUserID, _ string) (*Resolution, error) {
	if metaUserID == "" {
		return nil, nil
	}
	if !userIDPattern.MatchString(metaUserID) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidIdentifierFormat, metaUserID)
	}
	return &Resolution{UserID: metaUserID}, nil
}

// customerLookupStrategy находит ранее сохранённую запись по customerId
// провайдера и принимает её userId.
func customerLookupStrategy(store SubscriptionFinder) ResolveStrategy {
	return func(ctx context.Context, _ string, customerID string) (*Resolution, error) {
		if customerID == "" {
			return nil, nil
		}
		sub, err := store.FindSubscriptionByCustomerID(ctx, customerID)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrReconciliationFailed, err)
		}
		if sub == nil {
			return nil, nil
		}
		return &Resolution{UserID: sub.UserID, Existing: sub}, nil
	}
}
