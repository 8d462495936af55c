// Package sl содержит небольшие помощники для структурированного логирования
// через slog: единообразное формирование атрибутов, прежде всего для ошибок.
package sl

import "log/slog"

// Err возвращает slog.Attr с ключом "error" и текстом ошибки.
//
// Пример:
//
//	log.Error("failed to reconcile subscription", sl.Err(err))
func Err(err error) slog.Attr {
	return slog.Attr{
		Key:   "error",
		Value: slog.StringValue(err.Error()),
	}
}

// Secret возвращает slog.Attr, показывающий только факт наличия значения.
// Используется при логировании конфигурации, чтобы не печатать секреты.
func Secret(key, value string) slog.Attr {
	masked := "unset"
	if value != "" {
		masked = "set"
	}
	return slog.String(key, masked)
}
