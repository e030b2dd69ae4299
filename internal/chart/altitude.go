// Package chart draws the altitude curves attached to report emails.
package chart

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/star/skywindow/internal/report"
	"github.com/star/skywindow/internal/transform"
)

// palette colours object curves in order, wrapping around.
var palette = []drawing.Color{
	{R: 51, G: 102, B: 204, A: 255}, // blue
	{R: 220, G: 57, B: 18, A: 255},  // red
	{R: 255, G: 153, B: 0, A: 255},  // orange
	{R: 16, G: 150, B: 24, A: 255},  // green
	{R: 153, G: 0, B: 153, A: 255},  // purple
	{R: 0, G: 153, B: 198, A: 255},  // teal
}

// Altitude renders object altitude over a span centred on the report window.
type Altitude struct {
	Width, Height int
	Span          time.Duration // total time covered
	Step          time.Duration // sampling interval
}

// NewAltitude returns a renderer with a 12 hour span sampled every 10 minutes.
func NewAltitude() *Altitude {
	return &Altitude{Width: 800, Height: 400, Span: 12 * time.Hour, Step: 10 * time.Minute}
}

// Samples returns the sample times and per-object altitudes for r.
func (a *Altitude) Samples(r report.LocationReport) ([]time.Time, [][]float64, error) {
	if a.Step <= 0 || a.Span < 2*a.Step {
		return nil, nil, fmt.Errorf("invalid chart span %s / step %s", a.Span, a.Step)
	}
	start := r.Window.UTC().Add(-a.Span / 2)
	n := int(a.Span/a.Step) + 1

	times := make([]time.Time, n)
	for i := range times {
		times[i] = start.Add(time.Duration(i) * a.Step)
	}

	alts := make([][]float64, len(r.Objects))
	for j, o := range r.Objects {
		alts[j] = make([]float64, n)
		for i, t := range times {
			h, err := transform.EquatorialToHorizontal(o.Object.Coord, t, r.Site.LonDeg, r.Site.LatDeg)
			if err != nil {
				return nil, nil, err
			}
			alts[j][i] = h.AltitudeDeg
		}
	}
	return times, alts, nil
}

// AltitudeChart renders r as a PNG.
func (a *Altitude) AltitudeChart(r report.LocationReport) ([]byte, error) {
	if len(r.Objects) == 0 {
		return nil, errors.New("report has no objects to chart")
	}
	times, alts, err := a.Samples(r)
	if err != nil {
		return nil, err
	}

	graph := chart.Chart{
		Title: fmt.Sprintf("Altitude at %s", r.Site.Name),
		TitleStyle: chart.Style{
			FontSize:  14,
			FontColor: drawing.ColorBlack,
		},
		Background: chart.Style{
			Padding: chart.Box{
				Top:    40,
				Left:   20,
				Right:  20,
				Bottom: 20,
			},
		},
		Width:  a.Width,
		Height: a.Height,
		XAxis: chart.XAxis{
			Name: "Time (UTC)",
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return time.Unix(0, int64(f)).UTC().Format("15:04")
				}
				return ""
			},
		},
		YAxis: chart.YAxis{
			Name: "Altitude (°)",
			Range: &chart.ContinuousRange{
				Min: -90,
				Max: 90,
			},
		},
	}

	for j, o := range r.Objects {
		color := palette[j%len(palette)]
		graph.Series = append(graph.Series, chart.TimeSeries{
			Name: o.Object.DisplayName(),
			Style: chart.Style{
				StrokeColor: color,
				StrokeWidth: 2,
			},
			XValues: times,
			YValues: alts[j],
		})
	}

	first, last := times[0], times[len(times)-1]
	graph.Series = append(graph.Series,
		chart.TimeSeries{
			Name: "Horizon",
			Style: chart.Style{
				StrokeColor:     drawing.ColorBlack,
				StrokeWidth:     1,
				StrokeDashArray: []float64{5, 5},
			},
			XValues: []time.Time{first, last},
			YValues: []float64{0, 0},
		},
		chart.TimeSeries{
			Name: "Best window",
			Style: chart.Style{
				StrokeColor: drawing.Color{R: 120, G: 120, B: 120, A: 200},
				StrokeWidth: 1,
			},
			XValues: []time.Time{r.Window, r.Window},
			YValues: []float64{-90, 90},
		},
	)
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("rendering altitude chart: %w", err)
	}
	return buf.Bytes(), nil
}

var _ report.Charter = (*Altitude)(nil)
