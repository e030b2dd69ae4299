// Package notify delivers finished reports to users.
package notify

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/star/skywindow/internal/catalog"
	"github.com/star/skywindow/internal/report"
)

// Markdown renders a user's reports as a markdown document. Images refer to
// attachments through cid: links so mail clients show them inline.
func Markdown(user catalog.User, reports []report.LocationReport, attachments map[string][]byte) string {
	var b strings.Builder

	name := user.Name
	if name == "" {
		name = user.ID
	}
	fmt.Fprintf(&b, "# Observing plan for %s\n\n", name)

	for _, r := range reports {
		fmt.Fprintf(&b, "## %s\n\n", r.Site.Name)
		fmt.Fprintf(&b, "Best window: **%s UTC** (observing index %.1f)\n\n",
			r.Window.UTC().Format("Mon 2 Jan 15:04"), r.ObservingIndex)
		fmt.Fprintf(&b, "Forecast: %s. Clouds %.0f%%, wind %.1f m/s, precipitation %.0f%%, humidity %.0f%%.\n\n",
			r.Forecast.Description, r.Forecast.CloudCoverage, r.Forecast.WindSpeed,
			r.Forecast.PrecipProbability*100, r.Forecast.Humidity)
		fmt.Fprintf(&b, "Sky: Bortle %d, naked-eye limit %.2f mag.\n\n", r.Site.Bortle, r.Site.NELM)

		for _, w := range r.Warnings {
			fmt.Fprintf(&b, "> ⚠ %s\n", w)
		}
		if len(r.Warnings) > 0 {
			b.WriteString("\n")
		}

		b.WriteString("| Object | Magnitude | Altitude | Azimuth | Rises | Sets | Notes |\n")
		b.WriteString("|---|---:|---:|---:|---|---|---|\n")
		for _, o := range r.Objects {
			fmt.Fprintf(&b, "| %s | %.1f | %.1f° | %.1f° | %s | %s | %s |\n",
				escapeCell(o.Object.DisplayName()), o.Object.Magnitude,
				o.Horizontal.AltitudeDeg, o.Horizontal.AzimuthDeg,
				riseCell(o.RiseSet.Rise, o.RiseSet.Circumpolar, o.RiseSet.NeverRises),
				riseCell(o.RiseSet.Set, o.RiseSet.Circumpolar, o.RiseSet.NeverRises),
				escapeCell(notes(o)))
		}
		b.WriteString("\n")

		fmt.Fprintf(&b, "[Add to calendar](%s)\n\n", r.CalendarURL)

		names := append([]string(nil), r.Attachments...)
		sort.Strings(names)
		for _, n := range names {
			if _, ok := attachments[n]; ok {
				fmt.Fprintf(&b, "![%s](cid:%s)\n\n", n, n)
			}
		}
	}
	return b.String()
}

func riseCell(t time.Time, circumpolar, neverRises bool) string {
	switch {
	case circumpolar:
		return "always up"
	case neverRises:
		return "never up"
	case t.IsZero():
		return "-"
	default:
		return t.UTC().Format("15:04")
	}
}

func notes(o report.ObjectReport) string {
	var parts []string
	for _, a := range o.Verdict.Alerts {
		parts = append(parts, a.Message)
	}
	if len(parts) == 0 {
		return o.Verdict.Message
	}
	return strings.Join(parts, " ")
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
