package plot

import (
	"time"

	"GlucoPlot/internal/domain/models"
)

// Canvas defaults for rendered charts.
const (
	DefaultWidth  = 1400
	DefaultHeight = 700
	DefaultMargin = 20
)

// timeFormat labels the x axis; weekly charts are folded onto one day too.
const timeFormat = "15:04"

// weekdayColors colours weekly traces, indexed by time.Weekday.
var weekdayColors = [7]string{
	"#d62728", // Sunday
	"#1f77b4",
	"#ff7f0e",
	"#2ca02c",
	"#9467bd",
	"#8c564b",
	"#e377c2",
}

// MarkerTrace is one labelled group of aligned markers.
type MarkerTrace struct {
	Label   string
	Markers []models.AlignedMarker
	Style   models.TraceStyle
}

// Assembler composes plot components into a ChartSpec.
type Assembler struct {
	Width        int
	Height       int
	Margins      models.Margins
	Thresholds   models.Thresholds
	PrimaryStyle models.TraceStyle
	RuleColor    string
	Location     *time.Location
}

// NewAssembler returns an Assembler with the default canvas.
func NewAssembler(th models.Thresholds, loc *time.Location) *Assembler {
	if loc == nil {
		loc = time.UTC
	}
	return &Assembler{
		Width:        DefaultWidth,
		Height:       DefaultHeight,
		Margins:      models.Margins{Left: DefaultMargin, Right: DefaultMargin, Top: DefaultMargin, Bottom: DefaultMargin},
		Thresholds:   th,
		PrimaryStyle: models.TraceStyle{Color: "#1f77b4", Width: 2},
		RuleColor:    "red",
		Location:     loc,
	}
}

// Assemble builds the daily chart: the primary line followed by marker traces
// in the order given.
func (a *Assembler) Assemble(title string, primary models.Series, markers []MarkerTrace, bounds models.AxisBounds, bands []models.Band) models.ChartSpec {
	spec := a.base(title, bounds, bands)
	spec.Traces = make([]models.Trace, 0, 1+len(markers))
	spec.Traces = append(spec.Traces, models.Trace{
		Name:   "glucose",
		Kind:   models.TraceLine,
		Style:  a.PrimaryStyle,
		Points: seriesPoints(primary),
	})
	for _, m := range markers {
		pts := make([]models.Point, len(m.Markers))
		for i, am := range m.Markers {
			pts[i] = models.Point{Time: am.Time, Value: am.Value}
		}
		spec.Traces = append(spec.Traces, models.Trace{
			Name:   m.Label,
			Kind:   models.TraceMarkers,
			Style:  m.Style,
			Points: pts,
		})
	}
	return spec
}

// AssembleWeekly builds one line trace per included, non-empty weekday bucket.
func (a *Assembler) AssembleWeekly(title string, fold WeekFold, bounds models.AxisBounds, bands []models.Band) models.ChartSpec {
	spec := a.base(title, bounds, bands)
	// folded times are wall clock in UTC
	spec.Zone = time.UTC.String()
	for _, d := range fold.Included.Days() {
		b := fold.Buckets[d]
		if len(b) == 0 {
			continue
		}
		spec.Traces = append(spec.Traces, models.Trace{
			Name:   d.String(),
			Kind:   models.TraceLine,
			Style:  models.TraceStyle{Color: weekdayColors[d], Width: a.PrimaryStyle.Width},
			Points: seriesPoints(b),
		})
	}
	return spec
}

func (a *Assembler) base(title string, bounds models.AxisBounds, bands []models.Band) models.ChartSpec {
	return models.ChartSpec{
		Title:   title,
		Width:   a.Width,
		Height:  a.Height,
		Margins: a.Margins,
		Bounds:  bounds,
		Bands:   append([]models.Band(nil), bands...),
		Rules: []models.Rule{
			{Y: a.Thresholds.Low, Color: a.RuleColor, Dashed: true},
			{Y: a.Thresholds.High, Color: a.RuleColor, Dashed: true},
		},
		TimeFormat: timeFormat,
		Zone:       a.Location.String(),
	}
}

func seriesPoints(s models.Series) []models.Point {
	pts := make([]models.Point, len(s))
	for i, smp := range s {
		pts[i] = models.Point{Time: smp.Time, Value: smp.Value}
	}
	return pts
}
