package markethours

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func ict(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, ICT)
}

func TestCurrentPhase_TradingDay(t *testing.T) {
	// Monday 19 Oct 2026
	cases := []struct {
		hh, mm int
		want   Phase
	}{
		{8, 59, PhasePreOpen},
		{9, 0, PhaseMorning},
		{11, 29, PhaseMorning},
		{11, 30, PhaseLunchBreak},
		{12, 59, PhaseLunchBreak},
		{13, 0, PhaseAfternoon},
		{14, 44, PhaseAfternoon},
		{14, 45, PhaseClosed},
		{20, 0, PhaseClosed},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, CurrentPhase(ict(2026, 10, 19, c.hh, c.mm)), "%02d:%02d", c.hh, c.mm)
	}
}

func TestIsMarketOpen_Weekend(t *testing.T) {
	assert.False(t, IsMarketOpen(ict(2026, 10, 17, 10, 0))) // Saturday
	assert.False(t, IsMarketOpen(ict(2026, 10, 18, 10, 0))) // Sunday
}

func TestIsMarketOpen_Holiday(t *testing.T) {
	assert.True(t, IsHoliday(ict(2026, 4, 30, 10, 0)))
	assert.False(t, IsMarketOpen(ict(2026, 4, 30, 10, 0)))
	assert.False(t, IsMarketOpen(ict(2026, 2, 17, 10, 0)))
	assert.True(t, IsMarketOpen(ict(2026, 2, 23, 10, 0)))
}

func TestIsMarketOpen_ConvertsFromUTC(t *testing.T) {
	// 02:30 UTC is 09:30 ICT.
	assert.True(t, IsMarketOpen(time.Date(2026, 10, 19, 2, 30, 0, 0, time.UTC)))
	// 07:50 UTC is 14:50 ICT, after close.
	assert.False(t, IsMarketOpen(time.Date(2026, 10, 19, 7, 50, 0, 0, time.UTC)))
}

func TestNextOpen(t *testing.T) {
	cases := []struct {
		name string
		at   time.Time
		want time.Time
	}{
		{"before open", ict(2026, 10, 19, 8, 0), ict(2026, 10, 19, 9, 0)},
		{"morning session", ict(2026, 10, 19, 10, 0), ict(2026, 10, 19, 13, 0)},
		{"lunch break", ict(2026, 10, 19, 12, 0), ict(2026, 10, 19, 13, 0)},
		{"after close", ict(2026, 10, 19, 15, 0), ict(2026, 10, 20, 9, 0)},
		{"friday evening", ict(2026, 10, 23, 16, 0), ict(2026, 10, 26, 9, 0)},
		{"before tet", ict(2026, 2, 13, 15, 0), ict(2026, 2, 23, 9, 0)},
		{"before reunification day", ict(2026, 4, 29, 15, 0), ict(2026, 5, 4, 9, 0)},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.True(t, c.want.Equal(NextOpen(c.at)), "got %v", NextOpen(c.at))
		})
	}
}

func TestTimeUntilBreak(t *testing.T) {
	assert.Equal(t, 30*time.Minute, TimeUntilBreak(ict(2026, 10, 19, 11, 0)))
	assert.Equal(t, 45*time.Minute, TimeUntilBreak(ict(2026, 10, 19, 14, 0)))
	assert.Equal(t, time.Duration(0), TimeUntilBreak(ict(2026, 10, 19, 12, 0)))
}

func TestStatusAt(t *testing.T) {
	s := StatusAt(ict(2026, 10, 19, 10, 30))
	assert.True(t, s.Open)
	assert.Equal(t, PhaseMorning, s.Phase)
	assert.Equal(t, "HOSE đang giao dịch phiên sáng, nghỉ trưa sau 1h0m", s.Message)

	s = StatusAt(ict(2026, 10, 23, 16, 0))
	assert.False(t, s.Open)
	assert.Equal(t, PhaseClosed, s.Phase)
	assert.Equal(t, "HOSE đóng cửa, mở lại Thứ hai 26/10 09:00 (65h0m)", s.Message)

	s = StatusAt(ict(2026, 10, 19, 12, 15))
	assert.Equal(t, "HOSE nghỉ trưa, mở lại lúc 13:00 (45m)", s.Message)
}
