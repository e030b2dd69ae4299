package report

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/star/skywindow/internal/lightpollution"
	"github.com/star/skywindow/internal/weather"
)

// Weather warning thresholds. Values equal to a threshold do not warn.
const (
	heavyCloudPercent   = 90
	partlyCloudPercent  = 50
	precipProbabilityHi = 0.5
)

const calendarBaseURL = "https://calendar.google.com/calendar/render"

// Warnings lists the human-readable weather warnings for a forecast hour.
// Heavy clouds replace the partly-cloudy warning rather than adding to it.
func Warnings(f weather.HourlyForecast) []string {
	var w []string
	switch {
	case f.CloudCoverage > heavyCloudPercent:
		w = append(w, fmt.Sprintf("Heavy clouds: %.0f%% cloud cover expected.", f.CloudCoverage))
	case f.CloudCoverage > partlyCloudPercent:
		w = append(w, fmt.Sprintf("Partly cloudy: %.0f%% cloud cover expected.", f.CloudCoverage))
	}
	if f.PrecipProbability > precipProbabilityHi {
		w = append(w, fmt.Sprintf("Precipitation likely: %.0f%% chance.", f.PrecipProbability*100))
	}
	return w
}

// CalendarURL builds a Google Calendar event link for a one-hour session at
// window.
func CalendarURL(site lightpollution.Site, window time.Time, f weather.HourlyForecast) string {
	const stamp = "20060102T150405Z"
	start := window.UTC()
	end := start.Add(time.Hour)

	var details strings.Builder
	fmt.Fprintf(&details, "Forecast: %s\n", f.Description)
	fmt.Fprintf(&details, "Clouds %.0f%%, wind %.1f m/s, precipitation %.0f%%, humidity %.0f%%\n",
		f.CloudCoverage, f.WindSpeed, f.PrecipProbability*100, f.Humidity)
	fmt.Fprintf(&details, "Bortle %d, naked-eye limit %.2f mag", site.Bortle, site.NELM)

	q := url.Values{}
	q.Set("action", "TEMPLATE")
	q.Set("text", "Observing at "+site.Name)
	q.Set("dates", start.Format(stamp)+"/"+end.Format(stamp))
	q.Set("details", details.String())
	q.Set("location", fmt.Sprintf("%.5f,%.5f", site.LatDeg, site.LonDeg))
	return calendarBaseURL + "?" + q.Encode()
}

// MapAttachment is the file name of a site's static map.
func MapAttachment(siteID string) string {
	return "map-" + siteID + ".png"
}

// ChartAttachment is the file name of a site's altitude chart.
func ChartAttachment(siteID string) string {
	return "altitude-" + siteID + ".png"
}
