package markethours

import "time"

// HOSE holidays for 2026 (weekdays only; weekends are closed anyway).
// Tết and National Day dates follow the government's announced schedule
// and are marked tentative until the exchange publishes its notice.
var hoseHolidays2026 = []struct {
	month time.Month
	day   int
}{
	{time.January, 1},   // New Year's Day
	{time.February, 16}, // Tết (tentative)
	{time.February, 17}, // Tết, Lunar New Year's Day
	{time.February, 18}, // Tết
	{time.February, 19}, // Tết
	{time.February, 20}, // Tết (tentative)
	{time.April, 27},    // Hùng Kings' Commemoration, in lieu of Sun 26 Apr
	{time.April, 30},    // Reunification Day
	{time.May, 1},       // International Labour Day
	{time.September, 1}, // National Day (tentative)
	{time.September, 2}, // National Day
}

var holidaySet map[string]bool

func init() {
	holidaySet = make(map[string]bool, len(hoseHolidays2026))
	for _, h := range hoseHolidays2026 {
		holidaySet[dateKey(2026, h.month, h.day)] = true
	}
}

// IsHoliday returns true if the date (in ICT) is a HOSE holiday.
func IsHoliday(t time.Time) bool {
	ict := t.In(ICT)
	return holidaySet[dateKey(ict.Year(), ict.Month(), ict.Day())]
}

func dateKey(year int, month time.Month, day int) string {
	return time.Date(year, month, day, 0, 0, 0, 0, ICT).Format("2006-01-02")
}
