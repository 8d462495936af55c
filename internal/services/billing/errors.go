package billing

import "errors"

// Классы отказов реконсиляции. Отказы разрешения подписчика терминальны для
// события: повторная доставка их не исправит, поэтому обработчик подтверждает
// приём. ErrReconciliationFailed — единственный класс, который должен
// приводить к повторной доставке событием провайдера.
var (
	ErrUnresolvedSubscriber    = errors.New("event cannot be resolved to an internal user")
	ErrInvalidIdentifierFormat = errors.New("malformed user identifier in event metadata")
	ErrReconciliationFailed    = errors.New("record store operation failed")
)
