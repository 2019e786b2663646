// Package markethours knows the HOSE trading calendar: two continuous
// sessions a day in ICT, weekends and exchange holidays off.
package markethours

import (
	"fmt"
	"time"

	"stockdash/internal/model"
)

// ICT is Indochina Time (UTC+7), the exchange zone.
var ICT = model.ICT

// Session bounds in minutes after midnight ICT.
const (
	MorningOpen    = 9 * 60     // 09:00, ATO auction then continuous
	MorningClose   = 11*60 + 30 // 11:30
	AfternoonOpen  = 13 * 60    // 13:00
	AfternoonClose = 14*60 + 45 // 14:45, after the ATC auction
)

// Phase names the part of the trading day t falls in.
type Phase string

const (
	PhasePreOpen    Phase = "pre_open"
	PhaseMorning    Phase = "morning"
	PhaseLunchBreak Phase = "lunch_break"
	PhaseAfternoon  Phase = "afternoon"
	PhaseClosed     Phase = "closed"
)

// Status is what the dashboard shows next to the symbol picker.
type Status struct {
	Open     bool      `json:"open"`
	Phase    Phase     `json:"phase"`
	Message  string    `json:"message"`
	NextOpen time.Time `json:"next_open"`
}

func minuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

func at(t time.Time, minute int) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), minute/60, minute%60, 0, 0, ICT)
}

// IsWeekday returns true if t is Mon–Fri in ICT.
func IsWeekday(t time.Time) bool {
	wd := t.In(ICT).Weekday()
	return wd >= time.Monday && wd <= time.Friday
}

// IsTradingDay returns true if t is a weekday and not a holiday.
func IsTradingDay(t time.Time) bool {
	ict := t.In(ICT)
	return IsWeekday(ict) && !IsHoliday(ict)
}

// CurrentPhase classifies t.
func CurrentPhase(t time.Time) Phase {
	ict := t.In(ICT)
	if !IsTradingDay(ict) {
		return PhaseClosed
	}
	switch hm := minuteOfDay(ict); {
	case hm < MorningOpen:
		return PhasePreOpen
	case hm < MorningClose:
		return PhaseMorning
	case hm < AfternoonOpen:
		return PhaseLunchBreak
	case hm < AfternoonClose:
		return PhaseAfternoon
	default:
		return PhaseClosed
	}
}

// IsMarketOpen returns true during either continuous session.
func IsMarketOpen(t time.Time) bool {
	p := CurrentPhase(t)
	return p == PhaseMorning || p == PhaseAfternoon
}

// NextOpen returns the start of the next session strictly after t: the
// afternoon session during the lunch break, otherwise 09:00 on the next
// trading day (today if t is before 09:00 on a trading day).
func NextOpen(t time.Time) time.Time {
	ict := t.In(ICT)

	switch CurrentPhase(ict) {
	case PhasePreOpen:
		return at(ict, MorningOpen)
	case PhaseMorning, PhaseLunchBreak:
		return at(ict, AfternoonOpen)
	}

	d := ict.AddDate(0, 0, 1)
	for i := 0; i < 15; i++ { // Tết can close the exchange for over a week
		if IsTradingDay(d) {
			return at(d, MorningOpen)
		}
		d = d.AddDate(0, 0, 1)
	}
	return at(ict.AddDate(0, 0, 1), MorningOpen)
}

// TimeUntilBreak returns the time left in the current session, or 0 when
// the market is not open.
func TimeUntilBreak(t time.Time) time.Duration {
	ict := t.In(ICT)
	switch CurrentPhase(ict) {
	case PhaseMorning:
		return at(ict, MorningClose).Sub(ict)
	case PhaseAfternoon:
		return at(ict, AfternoonClose).Sub(ict)
	}
	return 0
}

// StatusAt reports the market status at t.
func StatusAt(t time.Time) Status {
	return Status{
		Open:     IsMarketOpen(t),
		Phase:    CurrentPhase(t),
		Message:  StatusString(t),
		NextOpen: NextOpen(t),
	}
}

var weekdayVN = [...]string{"Chủ nhật", "Thứ hai", "Thứ ba", "Thứ tư", "Thứ năm", "Thứ sáu", "Thứ bảy"}

// StatusString returns a human-readable market status in Vietnamese.
func StatusString(t time.Time) string {
	switch CurrentPhase(t) {
	case PhaseMorning:
		return fmt.Sprintf("HOSE đang giao dịch phiên sáng, nghỉ trưa sau %s", fmtDur(TimeUntilBreak(t)))
	case PhaseAfternoon:
		return fmt.Sprintf("HOSE đang giao dịch phiên chiều, đóng cửa sau %s", fmtDur(TimeUntilBreak(t)))
	case PhaseLunchBreak:
		return fmt.Sprintf("HOSE nghỉ trưa, mở lại lúc 13:00 (%s)", fmtDur(NextOpen(t).Sub(t)))
	}
	next := NextOpen(t)
	return fmt.Sprintf("HOSE đóng cửa, mở lại %s %s (%s)",
		weekdayVN[next.Weekday()], next.Format("02/01 15:04"), fmtDur(next.Sub(t)))
}

func fmtDur(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh%dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}
