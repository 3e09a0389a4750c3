package plot

import (
	"fmt"
	"math"
	"time"

	"GlucoPlot/internal/domain/models"
)

// DefaultDailyPadding widens the daily x axis on both sides.
const DefaultDailyPadding = 10 * time.Minute

// BandLayout derives axis bounds and range bands. Every field that changed
// between chart revisions is a knob here rather than a separate code path.
type BandLayout struct {
	// YFloor is the fixed bottom of the clinical scale.
	YFloor float64 `yaml:"y_floor" default:"2"`
	// Headroom is added above the highest reading; 0 reproduces the tight axis.
	Headroom float64 `yaml:"headroom" default:"1"`
	// TargetBand toggles the band around the target value.
	TargetBand bool `yaml:"target_band" default:"true"`
	// TargetHalfWidth is the distance from target to each target band edge.
	TargetHalfWidth float64 `yaml:"target_half_width" default:"1"`

	AlertColor  string  `yaml:"alert_color" default:"red"`
	TargetColor string  `yaml:"target_color" default:"green"`
	BandOpacity float64 `yaml:"band_opacity" default:"0.15"`
}

// DefaultBandLayout matches the current daily chart.
func DefaultBandLayout() BandLayout {
	return BandLayout{
		YFloor:          2,
		Headroom:        1,
		TargetBand:      true,
		TargetHalfWidth: 1,
		AlertColor:      "red",
		TargetColor:     "green",
		BandOpacity:     0.15,
	}
}

// Extent is the data window a layout is computed for.
type Extent struct {
	XMin, XMax time.Time
	YMin, YMax float64
}

// SeriesExtent returns the time and value range of a non-empty series.
func SeriesExtent(s models.Series) (Extent, error) {
	lo, hi, ok := s.MinMax()
	if !ok {
		return Extent{}, ErrEmptyPrimarySeries
	}
	return Extent{XMin: s[0].Time, XMax: s[len(s)-1].Time, YMin: lo, YMax: hi}, nil
}

// ValidateThresholds enforces low < target < high.
func ValidateThresholds(th models.Thresholds) error {
	if math.IsNaN(th.Low) || math.IsNaN(th.High) || math.IsNaN(th.Target) {
		return fmt.Errorf("%w: NaN value", ErrInvalidThresholds)
	}
	if th.Low >= th.High {
		return fmt.Errorf("%w: low %.2f must be below high %.2f", ErrInvalidThresholds, th.Low, th.High)
	}
	if th.Target <= th.Low || th.Target >= th.High {
		return fmt.Errorf("%w: target %.2f must be inside (%.2f, %.2f)", ErrInvalidThresholds, th.Target, th.Low, th.High)
	}
	return nil
}

// Layout computes bounds and bands for a daily chart of primary.
func (l BandLayout) Layout(primary models.Series, th models.Thresholds, padding time.Duration) (models.AxisBounds, []models.Band, error) {
	if err := ValidateThresholds(th); err != nil {
		return models.AxisBounds{}, nil, err
	}
	ext, err := SeriesExtent(primary)
	if err != nil {
		return models.AxisBounds{}, nil, err
	}
	ext.XMin = ext.XMin.Add(-padding)
	ext.XMax = ext.XMax.Add(padding)
	b, bands := l.layout(ext, th)
	return b, bands, nil
}

// LayoutExtent computes bounds and bands for a precomputed extent with no
// extra padding. The weekly chart passes the union of its folded buckets.
func (l BandLayout) LayoutExtent(ext Extent, th models.Thresholds) (models.AxisBounds, []models.Band, error) {
	if err := ValidateThresholds(th); err != nil {
		return models.AxisBounds{}, nil, err
	}
	if ext.XMin.IsZero() && ext.XMax.IsZero() {
		return models.AxisBounds{}, nil, ErrEmptyPrimarySeries
	}
	b, bands := l.layout(ext, th)
	return b, bands, nil
}

func (l BandLayout) layout(ext Extent, th models.Thresholds) (models.AxisBounds, []models.Band) {
	b := models.AxisBounds{
		XMin: ext.XMin,
		XMax: ext.XMax,
		YMin: l.YFloor,
		YMax: ext.YMax + l.Headroom,
	}

	bands := []models.Band{
		l.band("high", b, th.High, b.YMax, l.AlertColor),
		l.band("low", b, b.YMin, th.Low, l.AlertColor),
	}
	if l.TargetBand {
		bands = append(bands, l.band("target", b, th.Target-l.TargetHalfWidth, th.Target+l.TargetHalfWidth, l.TargetColor))
	}
	return b, bands
}

// band builds a full-width band clipped to the y axis.
func (l BandLayout) band(name string, b models.AxisBounds, y0, y1 float64, color string) models.Band {
	y0 = clamp(y0, b.YMin, b.YMax)
	y1 = clamp(y1, b.YMin, b.YMax)
	if y1 < y0 {
		y1 = y0
	}
	return models.Band{
		Name:    name,
		XMin:    b.XMin,
		XMax:    b.XMax,
		YMin:    y0,
		YMax:    y1,
		Color:   color,
		Opacity: l.BandOpacity,
	}
}

func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		return lo
	}
	return math.Min(math.Max(v, lo), hi)
}
