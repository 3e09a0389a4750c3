package render

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"GlucoPlot/internal/domain/models"
)

var namedColors = map[string]drawing.Color{
	"red":   drawing.ColorRed,
	"green": drawing.ColorGreen,
	"blue":  drawing.ColorBlue,
	"black": drawing.ColorBlack,
	"white": drawing.ColorWhite,
	"gray":  {R: 128, G: 128, B: 128, A: 255},
}

// GoChart renders ChartSpecs to PNG with go-chart.
type GoChart struct {
	DotWidth float64
}

// NewGoChart returns a PNG renderer.
func NewGoChart() *GoChart {
	return &GoChart{DotWidth: 5}
}

func (g *GoChart) ContentType() string { return "image/png" }

// Render draws spec as PNG into w.
func (g *GoChart) Render(ctx context.Context, spec models.ChartSpec, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(spec.Traces) == 0 {
		return fmt.Errorf("render: chart %q has no traces", spec.Title)
	}
	ch, err := g.build(spec)
	if err != nil {
		return err
	}
	if err := ch.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render: %w", err)
	}
	return nil
}

func (g *GoChart) build(spec models.ChartSpec) (*chart.Chart, error) {
	loc, err := time.LoadLocation(spec.Zone)
	if err != nil {
		loc = time.UTC
	}
	xmin, xmax := chart.TimeToFloat64(spec.Bounds.XMin), chart.TimeToFloat64(spec.Bounds.XMax)
	if xmax <= xmin {
		return nil, fmt.Errorf("render: empty x range %s..%s", spec.Bounds.XMin, spec.Bounds.XMax)
	}
	if spec.Bounds.YMax <= spec.Bounds.YMin {
		return nil, fmt.Errorf("render: empty y range %.2f..%.2f", spec.Bounds.YMin, spec.Bounds.YMax)
	}

	series := make([]chart.Series, 0, len(spec.Traces)+len(spec.Rules))
	for _, rule := range spec.Rules {
		series = append(series, g.ruleSeries(rule, spec.Bounds))
	}
	for _, tr := range spec.Traces {
		if len(tr.Points) == 0 {
			continue
		}
		series = append(series, g.traceSeries(tr))
	}

	format := spec.TimeFormat
	if format == "" {
		format = "15:04"
	}

	ch := &chart.Chart{
		Title:  spec.Title,
		Width:  spec.Width,
		Height: spec.Height,
		Background: chart.Style{Padding: chart.Box{
			Top:    spec.Margins.Top,
			Left:   spec.Margins.Left,
			Right:  spec.Margins.Right,
			Bottom: spec.Margins.Bottom,
		}},
		XAxis: chart.XAxis{
			Range:          &chart.ContinuousRange{Min: xmin, Max: xmax},
			ValueFormatter: timeFormatter(format, loc),
		},
		YAxis: chart.YAxis{
			Name:  "mmol/L",
			Range: &chart.ContinuousRange{Min: spec.Bounds.YMin, Max: spec.Bounds.YMax},
		},
	}
	// the legend lists traces and rules only
	legend := *ch
	legend.Series = series
	ch.Series = append([]chart.Series{bandSeries{bands: spec.Bands}}, series...)
	ch.Elements = []chart.Renderable{chart.Legend(&legend)}
	return ch, nil
}

func (g *GoChart) traceSeries(tr models.Trace) chart.TimeSeries {
	xs := make([]time.Time, len(tr.Points))
	ys := make([]float64, len(tr.Points))
	for i, p := range tr.Points {
		xs[i], ys[i] = p.Time, p.Value
	}
	col := parseColor(tr.Style.Color, drawing.ColorBlue)

	st := chart.Style{StrokeColor: col, StrokeWidth: tr.Style.Width}
	if tr.Kind == models.TraceMarkers {
		size := tr.Style.Size
		if size == 0 {
			size = g.DotWidth
		}
		st = chart.Style{StrokeWidth: chart.Disabled, DotWidth: size, DotColor: col}
	}
	return chart.TimeSeries{Name: tr.Name, XValues: xs, YValues: ys, Style: st}
}

func (g *GoChart) ruleSeries(r models.Rule, b models.AxisBounds) chart.TimeSeries {
	st := chart.Style{StrokeColor: parseColor(r.Color, drawing.ColorRed), StrokeWidth: 1}
	if r.Dashed {
		st.StrokeDashArray = []float64{5, 5}
	}
	return chart.TimeSeries{
		Name:    fmt.Sprintf("%.1f", r.Y),
		XValues: []time.Time{b.XMin, b.XMax},
		YValues: []float64{r.Y, r.Y},
		Style:   st,
	}
}

// bandSeries fills each band as a translucent rectangle. It is the first
// series so every trace is drawn over it.
type bandSeries struct {
	bands []models.Band
}

func (bandSeries) GetName() string           { return "bands" }
func (bandSeries) GetYAxis() chart.YAxisType { return chart.YAxisPrimary }
func (bandSeries) GetStyle() chart.Style     { return chart.Style{} }
func (bandSeries) Validate() error           { return nil }

func (s bandSeries) Render(r chart.Renderer, canvas chart.Box, xr, yr chart.Range, _ chart.Style) {
	for _, band := range s.bands {
		if band.YMax <= band.YMin {
			continue
		}
		col := parseColor(band.Color, drawing.ColorRed).WithAlpha(uint8(band.Opacity * 255))
		x0 := canvas.Left + xr.Translate(chart.TimeToFloat64(band.XMin))
		x1 := canvas.Left + xr.Translate(chart.TimeToFloat64(band.XMax))
		y0 := canvas.Bottom - yr.Translate(band.YMin)
		y1 := canvas.Bottom - yr.Translate(band.YMax)
		r.SetFillColor(col)
		r.SetStrokeColor(drawing.ColorTransparent)
		r.SetStrokeWidth(0)
		r.MoveTo(x0, y0)
		r.LineTo(x1, y0)
		r.LineTo(x1, y1)
		r.LineTo(x0, y1)
		r.Close()
		r.Fill()
	}
}

func timeFormatter(layout string, loc *time.Location) chart.ValueFormatter {
	return func(v interface{}) string {
		switch tv := v.(type) {
		case time.Time:
			return tv.In(loc).Format(layout)
		case float64:
			return time.Unix(0, int64(tv)).In(loc).Format(layout)
		}
		return ""
	}
}

func parseColor(s string, def drawing.Color) drawing.Color {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return def
	}
	if c, ok := namedColors[s]; ok {
		return c
	}
	if strings.HasPrefix(s, "#") {
		return drawing.ColorFromHex(strings.TrimPrefix(s, "#"))
	}
	return def
}
