package weather

import (
	"errors"
	"math"
	"testing"
	"time"
)

// testDay has sunrise at 06:30 and sunset at 18:45 UTC, so night hours are
// 19..23 and 0..5.
var (
	testSunrise = time.Date(2024, 10, 5, 6, 30, 0, 0, time.UTC)
	testSunset  = time.Date(2024, 10, 5, 18, 45, 0, 0, time.UTC)
)

func at(day, hour int) time.Time {
	return time.Date(2024, 10, day, hour, 0, 0, 0, time.UTC)
}

// cloudy returns a forecast whose observing index equals idx.
func cloudy(idx float32) HourlyForecast {
	return HourlyForecast{CloudCoverage: idx, Description: "test"}
}

func bundle(entries map[time.Time]HourlyForecast) Bundle {
	b := Bundle{Hourly: make(map[Slot]HourlyForecast), Sunrise: testSunrise, Sunset: testSunset}
	for t, f := range entries {
		b.Hourly[SlotOf(t)] = f
	}
	return b
}

func TestObservingIndex(t *testing.T) {
	f := HourlyForecast{CloudCoverage: 20, WindSpeed: 3.5, PrecipProbability: 0.4, Humidity: 65}
	if got := ObservingIndex(f); math.Abs(float64(got)-88.9) > 1e-4 {
		t.Errorf("ObservingIndex = %v, want 88.9", got)
	}
	if got := ObservingIndex(HourlyForecast{}); got != 0 {
		t.Errorf("ObservingIndex(zero) = %v, want 0", got)
	}
}

func TestIsNight(t *testing.T) {
	tests := []struct {
		hour, rise, set int
		want            bool
	}{
		{hour: 22, rise: 6, set: 18, want: true},
		{hour: 3, rise: 6, set: 18, want: true},
		{hour: 18, rise: 6, set: 18, want: false},
		{hour: 6, rise: 6, set: 18, want: false},
		{hour: 12, rise: 6, set: 18, want: false},
		// Sunset 02 UTC, sunrise 14 UTC (e.g. the US west coast).
		{hour: 5, rise: 14, set: 2, want: true},
		{hour: 13, rise: 14, set: 2, want: true},
		{hour: 2, rise: 14, set: 2, want: false},
		{hour: 20, rise: 14, set: 2, want: false},
	}
	for _, tt := range tests {
		if got := IsNight(tt.hour, tt.rise, tt.set); got != tt.want {
			t.Errorf("IsNight(%d, rise=%d, set=%d) = %v, want %v", tt.hour, tt.rise, tt.set, got, tt.want)
		}
	}
}

func TestSelectBestWindow_LowestIndexWins(t *testing.T) {
	b := bundle(map[time.Time]HourlyForecast{
		at(5, 21): cloudy(50),
		at(5, 23): cloudy(40),
	})
	got, f, err := SelectBestWindow(b, at(5, 17))
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(at(5, 23)) || ObservingIndex(f) != 40 {
		t.Errorf("selected %v (index %v), want %v (index 40)", got, ObservingIndex(f), at(5, 23))
	}
}

func TestSelectBestWindow_TieKeepsEarliest(t *testing.T) {
	b := bundle(map[time.Time]HourlyForecast{
		at(6, 2):  cloudy(30),
		at(5, 20): cloudy(30),
		at(5, 22): cloudy(30),
	})
	got, _, err := SelectBestWindow(b, at(5, 12))
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(at(5, 20)) {
		t.Errorf("selected %v, want earliest tied hour %v", got, at(5, 20))
	}
}

func TestSelectBestWindow_SkipsDaytimeAndPast(t *testing.T) {
	b := bundle(map[time.Time]HourlyForecast{
		at(5, 12): cloudy(0),  // daytime
		at(5, 19): cloudy(10), // before now
		at(5, 21): cloudy(60),
		at(6, 1):  cloudy(55),
		at(6, 13): cloudy(1), // daytime
	})
	got, _, err := SelectBestWindow(b, at(5, 20).Add(30*time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(at(6, 1)) {
		t.Errorf("selected %v, want %v", got, at(6, 1))
	}
}

func TestSelectBestWindow_StartsAtTopOfCurrentHour(t *testing.T) {
	b := bundle(map[time.Time]HourlyForecast{
		at(5, 21): cloudy(5),
		at(5, 22): cloudy(50),
	})
	got, _, err := SelectBestWindow(b, at(5, 21).Add(59*time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(at(5, 21)) {
		t.Errorf("selected %v, want the current hour %v", got, at(5, 21))
	}
}

func TestSelectBestWindow_NoViableWindow(t *testing.T) {
	daytimeOnly := bundle(map[time.Time]HourlyForecast{
		at(5, 10): cloudy(0),
		at(5, 14): cloudy(0),
		at(6, 9):  cloudy(0),
	})
	_, _, err := SelectBestWindow(daytimeOnly, at(5, 8))
	if !errors.Is(err, ErrNoViableWindow) {
		t.Errorf("daytime-only forecast: error = %v, want ErrNoViableWindow", err)
	}

	_, _, err = SelectBestWindow(Bundle{Sunrise: testSunrise, Sunset: testSunset}, at(5, 8))
	if !errors.Is(err, ErrNoViableWindow) {
		t.Errorf("empty forecast: error = %v, want ErrNoViableWindow", err)
	}

	past := bundle(map[time.Time]HourlyForecast{at(5, 22): cloudy(0)})
	_, _, err = SelectBestWindow(past, at(6, 3))
	if !errors.Is(err, ErrNoViableWindow) {
		t.Errorf("forecast entirely in the past: error = %v, want ErrNoViableWindow", err)
	}
}

func TestSelectBestWindow_WrappedNight(t *testing.T) {
	b := Bundle{
		Hourly:  make(map[Slot]HourlyForecast),
		Sunrise: time.Date(2024, 10, 5, 14, 10, 0, 0, time.UTC),
		Sunset:  time.Date(2024, 10, 6, 1, 40, 0, 0, time.UTC),
	}
	b.Hourly[SlotOf(at(6, 0))] = cloudy(0)  // still daylight locally
	b.Hourly[SlotOf(at(6, 8))] = cloudy(20) // local night
	b.Hourly[SlotOf(at(6, 20))] = cloudy(1) // daylight

	got, _, err := SelectBestWindow(b, at(5, 23))
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(at(6, 8)) {
		t.Errorf("selected %v, want %v", got, at(6, 8))
	}
}

func TestSlotRoundTrip(t *testing.T) {
	ts := time.Date(2024, 12, 31, 23, 59, 59, 0, time.FixedZone("X", -3*3600))
	s := SlotOf(ts)
	if s.Hour != 2 || s.Day != 1 || s.Month != time.January || s.Year != 2025 {
		t.Fatalf("SlotOf(%v) = %+v, want 2025-01-01 02h", ts, s)
	}
	if !s.Time().Equal(time.Date(2025, 1, 1, 2, 0, 0, 0, time.UTC)) {
		t.Errorf("Slot.Time() = %v", s.Time())
	}
}
