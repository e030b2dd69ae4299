// Command diag prints an altitude sweep for one object at one site, with the
// visibility verdict and rise/set times the report pipeline would compute.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/star/skywindow/internal/lightpollution"
	"github.com/star/skywindow/internal/transform"
)

func main() {
	name := flag.String("name", "Sirius", "object name")
	ra := flag.String("ra", "06h45m08.9s", "right ascension")
	dec := flag.String("dec", "-16:42:58", "declination")
	mag := flag.Float64("mag", -1.46, "apparent magnitude")
	lon := flag.Float64("lon", 13.4049, "site longitude, east positive")
	lat := flag.Float64("lat", 52.52, "site latitude")
	bortle := flag.Int("bortle", 4, "site Bortle class")
	date := flag.String("date", time.Now().UTC().Format("2006-01-02"), "UTC day to sweep")
	step := flag.Duration("step", time.Hour, "sample step")
	flag.Parse()

	if err := run(*name, *ra, *dec, float32(*mag), *lon, *lat, *bortle, *date, *step); err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err)
		os.Exit(1)
	}
}

func run(name, raStr, decStr string, mag float32, lon, lat float64, bortle int, date string, step time.Duration) error {
	if step <= 0 {
		return fmt.Errorf("step must be positive, got %s", step)
	}
	raHMS, err := transform.ParseRA(raStr)
	if err != nil {
		return err
	}
	decDMS, err := transform.ParseDec(decStr)
	if err != nil {
		return err
	}
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return fmt.Errorf("parsing date: %w", err)
	}
	site, err := lightpollution.NewSiteWithBortle("diag", "diag", lon, lat, bortle)
	if err != nil {
		return err
	}
	target := lightpollution.Target{ID: "diag", Name: name, Coord: transform.Equatorial{RA: raHMS, Dec: decDMS}, Magnitude: mag}

	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("205"))

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("244")).
		Width(14)

	upStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#2ECC71"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("60"))
	alertStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#E84A27"))

	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("%s  %s", name, target.Coord)))
	b.WriteString("\n")
	b.WriteString(labelStyle.Render("Site:"))
	b.WriteString(fmt.Sprintf("%.4f, %.4f  Bortle %d  NELM %.2f\n", site.LatDeg, site.LonDeg, site.Bortle, site.NELM))

	rs, err := lightpollution.RiseTransitSet(target, site, day)
	if err != nil {
		return err
	}
	b.WriteString(labelStyle.Render("Rise/Set:"))
	switch {
	case rs.Circumpolar:
		b.WriteString("circumpolar\n")
	case rs.NeverRises:
		b.WriteString(alertStyle.Render("never rises") + "\n")
	default:
		b.WriteString(fmt.Sprintf("rise %s  transit %s  set %s\n",
			rs.Rise.Format("15:04"), rs.Transit.Format("15:04"), rs.Set.Format("15:04")))
	}

	verdict, err := lightpollution.EvaluateVisibility(target, site, day)
	if err != nil {
		return err
	}
	b.WriteString(labelStyle.Render("Verdict:"))
	if len(verdict.Alerts) == 0 {
		b.WriteString(upStyle.Render(verdict.Message) + "\n")
	}
	for i, a := range verdict.Alerts {
		if i > 0 {
			b.WriteString(labelStyle.Render(""))
		}
		b.WriteString(alertStyle.Render(a.Message) + "\n")
	}
	b.WriteString("\n")

	for t := day; t.Before(day.Add(24 * time.Hour)); t = t.Add(step) {
		hz, err := transform.EquatorialToHorizontal(target.Coord, t, site.LonDeg, site.LatDeg)
		if err != nil {
			return err
		}
		line := fmt.Sprintf("%s  alt %6.1f°  az %5.1f°  ", t.Format("15:04"), hz.AltitudeDeg, hz.AzimuthDeg)
		if hz.AboveHorizon() {
			b.WriteString(line + upStyle.Render(strings.Repeat("█", int(hz.AltitudeDeg/3)+1)))
		} else {
			b.WriteString(dimStyle.Render(line + "below horizon"))
		}
		b.WriteString("\n")
	}

	fmt.Print(b.String())
	return nil
}
