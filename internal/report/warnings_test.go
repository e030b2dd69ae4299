package report

import (
	"net/url"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/star/skywindow/internal/catalog"
	"github.com/star/skywindow/internal/lightpollution"
	"github.com/star/skywindow/internal/weather"
)

func TestWarnings(t *testing.T) {
	tests := []struct {
		name  string
		cloud float32
		pop   float32
		want  []string
	}{
		{name: "clear", cloud: 10, pop: 0.1, want: nil},
		{name: "exactly half", cloud: 50, pop: 0.5, want: nil},
		{name: "partly cloudy", cloud: 51, pop: 0, want: []string{"Partly cloudy"}},
		{name: "exactly ninety", cloud: 90, pop: 0, want: []string{"Partly cloudy"}},
		{name: "heavy clouds", cloud: 95, pop: 0, want: []string{"Heavy clouds"}},
		{name: "rain", cloud: 20, pop: 0.8, want: []string{"Precipitation likely"}},
		{name: "heavy clouds and rain", cloud: 100, pop: 0.9, want: []string{"Heavy clouds", "Precipitation likely"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Warnings(weather.HourlyForecast{CloudCoverage: tt.cloud, PrecipProbability: tt.pop})
			if len(got) != len(tt.want) {
				t.Fatalf("Warnings = %q, want prefixes %q", got, tt.want)
			}
			for i, prefix := range tt.want {
				if !strings.HasPrefix(got[i], prefix) {
					t.Errorf("warning %d = %q, want prefix %q", i, got[i], prefix)
				}
			}
		})
	}
}

func TestCalendarURL(t *testing.T) {
	site := lightpollution.Site{ID: "usno", Name: "US Naval Observatory", LonDeg: -77.06556, LatDeg: 38.92139, Bortle: 8, NELM: 4.25}
	window := time.Date(1987, 4, 10, 19, 0, 0, 0, time.UTC)
	f := weather.HourlyForecast{CloudCoverage: 12, WindSpeed: 2.5, PrecipProbability: 0.05, Humidity: 40, Description: "few clouds"}

	raw := CalendarURL(site, window, f)
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	if u.Host != "calendar.google.com" {
		t.Errorf("host = %q", u.Host)
	}
	q := u.Query()
	if q.Get("action") != "TEMPLATE" {
		t.Errorf("action = %q", q.Get("action"))
	}
	if q.Get("dates") != "19870410T190000Z/19870410T200000Z" {
		t.Errorf("dates = %q", q.Get("dates"))
	}
	if q.Get("text") != "Observing at US Naval Observatory" {
		t.Errorf("text = %q", q.Get("text"))
	}
	if q.Get("location") != "38.92139,-77.06556" {
		t.Errorf("location = %q", q.Get("location"))
	}
	if d := q.Get("details"); !strings.Contains(d, "few clouds") || !strings.Contains(d, "Bortle 8") {
		t.Errorf("details = %q", d)
	}
}

func TestGroupBySite(t *testing.T) {
	a := lightpollution.Site{ID: "a"}
	b := lightpollution.Site{ID: "b"}
	m31 := catalog.Object{ID: "m31"}
	m42 := catalog.Object{ID: "m42"}
	vega := catalog.Object{ID: "vega"}

	obs := []catalog.Observation{
		{Site: b, Object: m42},
		{Site: a, Object: m31},
		{Site: b, Object: vega},
		{Site: a, Object: m31},
		{Site: a, Object: m42},
	}
	groups := GroupBySite(obs)

	var got [][]string
	for _, g := range groups {
		ids := []string{g.Site.ID}
		for _, o := range g.Objects {
			ids = append(ids, o.ID)
		}
		got = append(got, ids)
	}
	want := [][]string{{"b", "m42", "vega"}, {"a", "m31", "m42"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("GroupBySite = %v, want %v", got, want)
	}

	groups[0].Objects[0].ID = "changed"
	if obs[0].Object.ID != "m42" {
		t.Error("grouping shares storage with its input")
	}

	if len(GroupBySite(nil)) != 0 {
		t.Error("GroupBySite(nil) not empty")
	}
}

func TestStateString(t *testing.T) {
	if StateFetchingForecast.String() != "fetching_forecast" || StateFailed.String() != "failed" {
		t.Errorf("state names: %s, %s", StateFetchingForecast, StateFailed)
	}
	if State(99).String() != "State(99)" {
		t.Errorf("unknown state = %s", State(99))
	}
}
