package feeds

import (
	"testing"
	"time"
)

func TestTradingDayEveningSession(t *testing.T) {
	cal := Calendar{Location: time.UTC, SessionStart: 18 * time.Hour}

	tests := []struct {
		name string
		at   time.Time
		want time.Time
	}{
		{"before evening open", time.Date(2024, 3, 4, 17, 59, 0, 0, time.UTC), time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)},
		{"at evening open", time.Date(2024, 3, 4, 18, 0, 0, 0, time.UTC), time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)},
		{"overnight", time.Date(2024, 3, 5, 2, 0, 0, 0, time.UTC), time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cal.TradingDay(tt.at); !got.Equal(tt.want) {
				t.Errorf("TradingDay = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestTradingDayMorningSession(t *testing.T) {
	cal := Calendar{Location: time.UTC, SessionStart: 9*time.Hour + 30*time.Minute}

	early := time.Date(2024, 3, 5, 8, 0, 0, 0, time.UTC)
	if got := cal.TradingDay(early); !got.Equal(time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("pre-open bar assigned to %s", got)
	}
	open := time.Date(2024, 3, 5, 9, 30, 0, 0, time.UTC)
	if got := cal.TradingDay(open); !got.Equal(time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("open bar assigned to %s", got)
	}
}

func TestInRTH(t *testing.T) {
	cal := Calendar{Location: time.UTC, RTHStart: 570 * time.Minute, RTHEnd: 960 * time.Minute}

	tests := []struct {
		hh, mm int
		want   bool
	}{
		{9, 29, false},
		{9, 30, true},
		{12, 0, true},
		{15, 59, true},
		{16, 0, false},
	}
	for _, tt := range tests {
		at := time.Date(2024, 3, 4, tt.hh, tt.mm, 0, 0, time.UTC)
		if got := cal.InRTH(at); got != tt.want {
			t.Errorf("InRTH(%02d:%02d) = %v, want %v", tt.hh, tt.mm, got, tt.want)
		}
	}

	always := Calendar{Location: time.UTC}
	if !always.InRTH(time.Date(2024, 3, 4, 3, 0, 0, 0, time.UTC)) {
		t.Error("empty window should always be open")
	}
}

func TestParseClock(t *testing.T) {
	d, err := ParseClock("09:30")
	if err != nil || d != 9*time.Hour+30*time.Minute {
		t.Fatalf("ParseClock(09:30) = %v, %v", d, err)
	}
	d, err = ParseClock("18:00:30")
	if err != nil || d != 18*time.Hour+30*time.Second {
		t.Fatalf("ParseClock(18:00:30) = %v, %v", d, err)
	}
	if _, err := ParseClock("9h30"); err == nil {
		t.Fatal("expected error for bad clock")
	}
}
