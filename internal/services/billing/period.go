package billing

import "time"

// Window — расчётное окно учёта использования с границами по датам.
type Window struct {
	Start time.Time
	End   time.Time
}

// RollWindow решает, пора ли сдвигать расчётный период, и возвращает новое
// окно. Сдвиг происходит только когда сохранённой границы нет или текущий
// момент уже за ней: сигнал продления внутри неистёкшего периода не должен
// обнулять счётчики, иначе повторные события позволяют обойти лимиты.
//
// Конец нового окна берётся из события; если провайдер его не прислал —
// календарный месяц от текущего момента.
func RollWindow(now time.Time, storedEnd, eventEnd *time.Time) (Window, bool) {
	if storedEnd != nil && !now.After(*storedEnd) {
		return Window{}, false
	}

	end := now.AddDate(0, 1, 0)
	if eventEnd != nil {
		end = *eventEnd
	}
	return Window{Start: now, End: end}, true
}
