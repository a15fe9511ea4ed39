// Package month содержит календарную арифметику сроков планов и add-on пакетов.
package month

import (
	"time"
)

// End возвращает последнюю секунду месяца, в котором находится t.
func End(t time.Time) time.Time {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return first.AddDate(0, 1, 0).Add(-time.Second)
}

// Next возвращает момент через календарный месяц после t.
// Переполнение дня нормализуется вперёд: 31 января даёт 2 или 3 марта.
func Next(t time.Time) time.Time {
	return t.AddDate(0, 1, 0)
}
