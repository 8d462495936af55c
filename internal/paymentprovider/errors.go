package paymentprovider

import "errors"

// Ошибки границы аутентификации вебхука. Подпись — единственный механизм
// доверия к входящему событию, поэтому классы ошибок различаются явно:
// отсутствие заголовка и невалидная подпись — ошибки клиента,
// несконфигурированный секрет — операционная ошибка сервиса.
var (
	ErrMissingSignatureHeader = errors.New("missing stripe-signature header")
	ErrSecretNotConfigured    = errors.New("webhook secret is not configured")
	ErrSignatureInvalid       = errors.New("webhook signature verification failed")
)
