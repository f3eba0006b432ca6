// Package render draws the chart datasets as SVG. Bar and line charts use
// gonum/plot, the pie chart uses go-chart.
package render

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"powerstats-server/internal/modules/electricity/types"
)

var ErrEmptyDataset = errors.New("nothing to render")

const (
	seriesWidth  = 9 * vg.Inch
	seriesHeight = 4 * vg.Inch
	pieSize      = 480
	barGroup     = 18.0 // points per year slot
)

// Bar writes a grouped bar chart: one slot per year, one bar per series.
func Bar(w io.Writer, d types.SeriesDataset) error {
	if d.IsEmpty() {
		return ErrEmptyDataset
	}
	years := yearAxis(d)
	p := newPlot(d)
	p.NominalX(yearLabels(years)...)

	n := 0
	for _, s := range d.Series {
		if len(s.Points) > 0 {
			n++
		}
	}
	barWidth := vg.Points(barGroup / float64(n))
	i := 0
	for _, s := range d.Series {
		if len(s.Points) == 0 {
			continue
		}
		values := make(plotter.Values, len(years))
		pos := make(map[int]int, len(years))
		for j, y := range years {
			pos[y] = j
		}
		for _, pt := range s.Points {
			values[pos[pt.Year]] += pt.Value
		}
		bars, err := plotter.NewBarChart(values, barWidth)
		if err != nil {
			return fmt.Errorf("bar series %s: %w", s.Feature, err)
		}
		bars.LineStyle.Width = vg.Length(0)
		bars.Color = hexColor(s.Color)
		bars.Offset = barWidth * vg.Length(float64(i)-float64(n-1)/2)
		p.Add(bars)
		p.Legend.Add(s.Feature, bars)
		i++
	}
	return writeSVG(w, p)
}

// Line writes one line with point markers per series.
func Line(w io.Writer, d types.SeriesDataset) error {
	if d.IsEmpty() {
		return ErrEmptyDataset
	}
	p := newPlot(d)
	p.Add(plotter.NewGrid())
	for _, s := range d.Series {
		if len(s.Points) == 0 {
			continue
		}
		xys := make(plotter.XYs, len(s.Points))
		for i, pt := range s.Points {
			xys[i].X = float64(pt.Year)
			xys[i].Y = pt.Value
		}
		line, points, err := plotter.NewLinePoints(xys)
		if err != nil {
			return fmt.Errorf("line series %s: %w", s.Feature, err)
		}
		c := hexColor(s.Color)
		line.Color = c
		line.Width = vg.Points(2)
		points.Color = c
		points.Shape = draw.CircleGlyph{}
		p.Add(line, points)
		p.Legend.Add(s.Feature, line, points)
	}
	p.X.Tick.Marker = plot.TickerFunc(yearTicks)
	return writeSVG(w, p)
}

// Pie writes the composition chart. Slices that are not positive cannot be
// drawn and are left out.
func Pie(w io.Writer, d types.PieDataset) error {
	values := make([]chart.Value, 0, len(d.Slices))
	for _, s := range d.Slices {
		if s.Value <= 0 {
			continue
		}
		values = append(values, chart.Value{
			Label: fmt.Sprintf("%s %.2f%%", s.Feature, s.Share*100),
			Value: s.Value,
			Style: chart.Style{
				FillColor:   hexColor(s.Color),
				StrokeColor: drawing.ColorWhite,
				StrokeWidth: 1,
			},
		})
	}
	if len(values) == 0 {
		return ErrEmptyDataset
	}
	pie := chart.PieChart{
		Title:  pieTitle(d),
		Width:  pieSize,
		Height: pieSize,
		Values: values,
	}
	if err := pie.Render(chart.SVG, w); err != nil {
		return fmt.Errorf("render pie: %w", err)
	}
	return nil
}

func newPlot(d types.SeriesDataset) *plot.Plot {
	p := plot.New()
	p.Title.Text = d.Title
	if d.Country != "" {
		p.Title.Text += " - " + d.Country
	}
	p.Title.TextStyle.Font.Size = vg.Points(14)
	p.X.Label.Text = d.XLabel
	p.Y.Label.Text = d.YLabel
	p.Legend.Top = true
	return p
}

func writeSVG(w io.Writer, p *plot.Plot) error {
	wt, err := p.WriterTo(seriesWidth, seriesHeight, "svg")
	if err != nil {
		return fmt.Errorf("svg canvas: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write svg: %w", err)
	}
	return nil
}

func pieTitle(d types.PieDataset) string {
	if d.Country == "" {
		return d.Title
	}
	return d.Title + " - " + d.Country
}

func yearAxis(d types.SeriesDataset) []int {
	seen := make(map[int]struct{})
	for _, s := range d.Series {
		for _, pt := range s.Points {
			seen[pt.Year] = struct{}{}
		}
	}
	years := make([]int, 0, len(seen))
	for y := range seen {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

func yearLabels(years []int) []string {
	out := make([]string, len(years))
	for i, y := range years {
		out[i] = strconv.Itoa(y)
	}
	return out
}

// yearTicks labels whole years only.
func yearTicks(min, max float64) []plot.Tick {
	var ticks []plot.Tick
	step := 1
	if span := int(max - min); span > 12 {
		step = span/10 + 1
	}
	for y := int(min); float64(y) <= max; y += step {
		if float64(y) < min {
			continue
		}
		ticks = append(ticks, plot.Tick{Value: float64(y), Label: strconv.Itoa(y)})
	}
	return ticks
}

func hexColor(hex string) drawing.Color {
	hex = strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if len(hex) != 6 {
		return drawing.ColorBlack
	}
	return drawing.ColorFromHex(hex)
}
