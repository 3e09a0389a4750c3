package plot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GlucoPlot/internal/domain/models"
)

func TestAssembleDaily(t *testing.T) {
	primary := threePoint()
	insulin, err := Interpolate(primary, []time.Time{t0.Add(30 * time.Minute)}, Above)
	require.NoError(t, err)
	carbs, err := Interpolate(primary, []time.Time{t0.Add(90 * time.Minute)}, Below)
	require.NoError(t, err)

	bounds, bands, err := DefaultBandLayout().Layout(primary, defaultThresholds, DefaultDailyPadding)
	require.NoError(t, err)

	a := NewAssembler(defaultThresholds, time.UTC)
	spec := a.Assemble("Today", primary, []MarkerTrace{
		{Label: "rapid", Markers: insulin, Style: models.TraceStyle{Symbol: models.SymbolTriangleDown}},
		{Label: "carbs", Markers: carbs, Style: models.TraceStyle{Symbol: models.SymbolTriangleUp}},
	}, bounds, bands)

	assert.Equal(t, 1400, spec.Width)
	assert.Equal(t, 700, spec.Height)
	assert.Equal(t, models.Margins{Left: 20, Right: 20, Top: 20, Bottom: 20}, spec.Margins)
	assert.Equal(t, "UTC", spec.Zone)
	assert.Equal(t, bounds, spec.Bounds)
	assert.Equal(t, bands, spec.Bands)

	require.Len(t, spec.Traces, 3)
	assert.Equal(t, []string{"glucose", "rapid", "carbs"}, []string{spec.Traces[0].Name, spec.Traces[1].Name, spec.Traces[2].Name})
	assert.Equal(t, models.TraceLine, spec.Traces[0].Kind)
	assert.Len(t, spec.Traces[0].Points, 3)
	assert.Equal(t, models.TraceMarkers, spec.Traces[1].Kind)
	assert.InDelta(t, 6.2, spec.Traces[1].Points[0].Value, 1e-9)

	require.Len(t, spec.Rules, 2)
	assert.Equal(t, 4.0, spec.Rules[0].Y)
	assert.Equal(t, 10.0, spec.Rules[1].Y)
	assert.True(t, spec.Rules[0].Dashed)
}

func TestAssembleDoesNotAliasBands(t *testing.T) {
	bands := []models.Band{{Name: "high", YMin: 10, YMax: 12}}
	spec := NewAssembler(defaultThresholds, nil).Assemble("x", threePoint(), nil, models.AxisBounds{}, bands)
	bands[0].YMax = 99
	assert.Equal(t, 12.0, spec.Bands[0].YMax)
}

func TestAssembleWeekly(t *testing.T) {
	fold, err := NewFolder(time.UTC).Fold(weekSeries(time.UTC))
	require.NoError(t, err)
	ext, err := fold.Extent()
	require.NoError(t, err)
	bounds, bands, err := DefaultBandLayout().LayoutExtent(ext, defaultThresholds)
	require.NoError(t, err)

	spec := NewAssembler(defaultThresholds, time.UTC).AssembleWeekly("Week", fold, bounds, bands)
	require.Len(t, spec.Traces, 6)
	assert.Equal(t, "Sunday", spec.Traces[0].Name)
	assert.Equal(t, "Friday", spec.Traces[5].Name)
	for _, tr := range spec.Traces {
		assert.Equal(t, models.TraceLine, tr.Kind)
		assert.Len(t, tr.Points, 2)
	}
	assert.Equal(t, 12.0, spec.Bounds.YMax)
}

func TestAssembleWeeklyLabelsWallClock(t *testing.T) {
	loc := mustZone(t, "Europe/Stockholm")
	fold, err := NewFolder(loc).Fold(weekSeries(loc))
	require.NoError(t, err)
	ext, err := fold.Extent()
	require.NoError(t, err)
	bounds, bands, err := DefaultBandLayout().LayoutExtent(ext, defaultThresholds)
	require.NoError(t, err)

	spec := NewAssembler(defaultThresholds, loc).AssembleWeekly("Week", fold, bounds, bands)
	assert.Equal(t, "UTC", spec.Zone)
	assert.Equal(t, "07:30", spec.Traces[0].Points[0].Time.In(time.UTC).Format(timeFormat))
}
