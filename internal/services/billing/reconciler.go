// Package billing содержит ядро сервиса: приведение записи подписки
// пользователя к состоянию, продиктованному верифицированными событиями
// платёжного провайдера. События приходят асинхронно, минимум один раз и не
// обязательно по порядку; применение события обязано быть идемпотентным.
package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	stripe "github.com/stripe/stripe-go/v82"

	"github.com/numisgallery/mercury-webhooks/internal/models"
)

// Типы событий провайдера, которые сервис обрабатывает. Остальные
// подтверждаются без обработки.
const (
	EventSubscriptionCreated = "customer.subscription.created"
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionDeleted = "customer.subscription.deleted"
	EventInvoicePaid         = "invoice.payment_succeeded"
	EventInvoiceFailed       = "invoice.payment_failed"
)

// SubscriptionStore описывает контракт хранилища, нужный reconciler'у:
// поиск по равенству двух ключей, создание и частичное обновление.
type SubscriptionStore interface {
	FindSubscriptionByUserID(ctx context.Context, userID string) (*models.Subscription, error)
	FindSubscriptionByCustomerID(ctx context.Context, customerID string) (*models.Subscription, error)
	CreateSubscription(ctx context.Context, sub models.Subscription) (*models.Subscription, error)
	UpdateSubscription(ctx context.Context, id string, fields map[string]any) (*models.Subscription, error)
}

// Service — reconciler подписок. Все мутации записи подписки в рамках
// webhook-пути проходят через него.
type Service struct {
	store    SubscriptionStore
	resolver *Resolver
	tiers    TierMapper
	log      *slog.Logger
	now      func() time.Time

	locks userLocks
}

// NewService создаёт reconciler. Часы подменяемы в тестах через WithClock.
func NewService(log *slog.Logger, store SubscriptionStore, tiers TierMapper) *Service {
	return &Service{
		store:    store,
		resolver: NewResolver(store),
		tiers:    tiers,
		log:      log,
		now:      time.Now,
		locks:    userLocks{entries: make(map[string]*sync.Mutex)},
	}
}

// WithClock подменяет источник времени. Используется в тестах.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// ProcessEvent применяет одно верифицированное событие. Возвращает
// ErrUnresolvedSubscriber / ErrInvalidIdentifierFormat, когда событие
// структурно неразрешимо (вызывающий подтверждает приём), и
// ErrReconciliationFailed при отказе хранилища (вызывающий отвечает не-200,
// чтобы провайдер повторил доставку).
func (s *Service) ProcessEvent(ctx context.Context, event stripe.Event) error {
	const op = "billing.ProcessEvent"
	log := s.log.With(slog.String("op", op), slog.String("event_type", string(event.Type)))

	switch string(event.Type) {
	case EventSubscriptionCreated:
		return s.applySubscriptionEvent(ctx, log, event, false, false)
	case EventSubscriptionUpdated:
		// Обновление — ещё и сигнал продления: после upsert'а проверяется
		// сдвиг расчётного периода.
		return s.applySubscriptionEvent(ctx, log, event, false, true)
	case EventSubscriptionDeleted:
		return s.applySubscriptionEvent(ctx, log, event, true, false)
	case EventInvoicePaid:
		return s.applyInvoicePaid(ctx, log, event)
	case EventInvoiceFailed:
		var invoice models.ProviderInvoice
		if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
			return fmt.Errorf("%s: decode invoice payload: %w", op, err)
		}
		// Статус past_due придёт отдельным subscription-updated; здесь
		// достаточно следа в логах.
		log.Warn("payment failed for subscription",
			slog.String("subscription_id", invoice.Subscription),
			slog.String("customer_id", invoice.Customer))
		return nil
	default:
		log.Info("ignored webhook event")
		return nil
	}
}

// applySubscriptionEvent выполняет идемпотентный upsert записи подписки по
// событию customer.subscription.*.
func (s *Service) applySubscriptionEvent(ctx context.Context, log *slog.Logger, event stripe.Event, canceled, renewal bool) error {
	const op = "billing.applySubscriptionEvent"

	var obj models.ProviderSubscription
	if err := json.Unmarshal(event.Data.Raw, &obj); err != nil {
		return fmt.Errorf("%s: decode subscription payload: %w", op, err)
	}

	res, err := s.resolver.Resolve(ctx, obj.MetadataUserID(), obj.Customer)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	unlock := s.locks.acquire(res.UserID)
	defer unlock()

	existing := res.Existing
	if existing == nil {
		existing, err = s.store.FindSubscriptionByUserID(ctx, res.UserID)
		if err != nil {
			return fmt.Errorf("%s: %w: %w", op, ErrReconciliationFailed, err)
		}
	}

	tier := s.tiers.TierOf(obj.PriceID(), canceled)
	status := StatusOf(obj.Status)
	subscriptionID := obj.ID
	if canceled {
		// Удаление терминально: free, canceled, без ссылки на подписку
		// провайдера — что бы ни говорили прайс и статус события.
		status = models.StatusCanceled
		subscriptionID = ""
	}

	currentPeriodEnd := ""
	if end := obj.PeriodEnd(); end != nil {
		currentPeriodEnd = end.Format(time.RFC3339)
	}

	if existing == nil {
		now := s.now()
		created, err := s.store.CreateSubscription(ctx, models.Subscription{
			UserID:               res.UserID,
			Tier:                 tier,
			Status:               status,
			StripeSubscriptionID: subscriptionID,
			StripeCustomerID:     obj.Customer,
			CurrentPeriodEnd:     currentPeriodEnd,
			CancelAtPeriodEnd:    obj.CancelAtPeriodEnd,
			PMGFetchesUsed:       0,
			AIExtractionsUsed:    0,
			UsagePeriodStart:     now.Format(models.DateOnly),
			UsagePeriodEnd:       now.AddDate(0, 1, 0).Format(models.DateOnly),
		})
		if err != nil {
			return fmt.Errorf("%s: %w: %w", op, ErrReconciliationFailed, err)
		}
		log.Info("created subscription record", slog.String("user_id", res.UserID), slog.String("tier", string(tier)))
		existing = created
	} else {
		updated, err := s.store.UpdateSubscription(ctx, existing.ID, map[string]any{
			"userId":               res.UserID,
			"tier":                 tier,
			"status":               status,
			"stripeSubscriptionId": subscriptionID,
			"stripeCustomerId":     obj.Customer,
			"currentPeriodEnd":     currentPeriodEnd,
			"cancelAtPeriodEnd":    obj.CancelAtPeriodEnd,
		})
		if err != nil {
			return fmt.Errorf("%s: %w: %w", op, ErrReconciliationFailed, err)
		}
		log.Info("updated subscription record", slog.String("user_id", res.UserID), slog.String("tier", string(tier)))
		existing = updated
	}

	if renewal {
		if err := s.rollIfDue(ctx, log, existing, obj.PeriodEnd()); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	return nil
}

// applyInvoicePaid обрабатывает сигнал успешной оплаты: только сдвиг
// расчётного периода, записи он не создаёт.
func (s *Service) applyInvoicePaid(ctx context.Context, log *slog.Logger, event stripe.Event) error {
	const op = "billing.applyInvoicePaid"

	var invoice models.ProviderInvoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		return fmt.Errorf("%s: decode invoice payload: %w", op, err)
	}
	if invoice.Subscription == "" {
		log.Info("invoice without subscription, nothing to roll")
		return nil
	}

	res, err := s.resolver.Resolve(ctx, invoice.Metadata["userId"], invoice.Customer)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	unlock := s.locks.acquire(res.UserID)
	defer unlock()

	sub := res.Existing
	if sub == nil {
		sub, err = s.store.FindSubscriptionByUserID(ctx, res.UserID)
		if err != nil {
			return fmt.Errorf("%s: %w: %w", op, ErrReconciliationFailed, err)
		}
	}
	if sub == nil {
		log.Info("no subscription record to roll", slog.String("user_id", res.UserID))
		return nil
	}

	// Счёт не несёт авторитетной границы периода, окно считается от
	// текущего момента.
	if err := s.rollIfDue(ctx, log, sub, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// rollIfDue сдвигает расчётный период и обнуляет счётчики, если окно истекло.
func (s *Service) rollIfDue(ctx context.Context, log *slog.Logger, sub *models.Subscription, eventEnd *time.Time) error {
	window, due := RollWindow(s.now(), sub.UsagePeriodEndTime(), eventEnd)
	if !due {
		return nil
	}

	_, err := s.store.UpdateSubscription(ctx, sub.ID, map[string]any{
		"pmgFetchesUsed":    0,
		"aiExtractionsUsed": 0,
		"usagePeriodStart":  window.Start.Format(models.DateOnly),
		"usagePeriodEnd":    window.End.Format(models.DateOnly),
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrReconciliationFailed, err)
	}
	log.Info("rolled usage period",
		slog.String("user_id", sub.UserID),
		slog.String("period_end", window.End.Format(models.DateOnly)))
	return nil
}

// userLocks сериализует обработку событий одного пользователя внутри
// процесса: параллельные дубликаты доставки не должны создать две записи.
// Межпроцессное окно гонки остаётся: провайдер фактически сериализует
// доставку по одной подписке.
type userLocks struct {
	mu      sync.Mutex
	entries map[string]*sync.Mutex
}

func (l *userLocks) acquire(key string) func() {
	l.mu.Lock()
	entry, ok := l.entries[key]
	if !ok {
		entry = &sync.Mutex{}
		l.entries[key] = entry
	}
	l.mu.Unlock()

	entry.Lock()
	return entry.Unlock
}
