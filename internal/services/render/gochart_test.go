package render

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"GlucoPlot/internal/domain/models"
	"GlucoPlot/internal/services/plot"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

func dailySpec(t *testing.T) models.ChartSpec {
	t.Helper()
	t0 := time.Date(2024, time.March, 4, 8, 0, 0, 0, time.UTC)
	primary := models.Series{
		{Time: t0, Value: 5},
		{Time: t0.Add(time.Hour), Value: 11},
		{Time: t0.Add(2 * time.Hour), Value: 3.5},
	}
	th := models.Thresholds{Low: 4, High: 10, Target: 6}
	bounds, bands, err := plot.DefaultBandLayout().Layout(primary, th, plot.DefaultDailyPadding)
	require.NoError(t, err)
	insulin, err := plot.Interpolate(primary, []time.Time{t0.Add(20 * time.Minute)}, plot.Above)
	require.NoError(t, err)

	return plot.NewAssembler(th, time.UTC).Assemble("test", primary, []plot.MarkerTrace{
		{Label: "rapid", Markers: insulin, Style: models.TraceStyle{Color: "#ff7f0e", Symbol: models.SymbolTriangleDown}},
	}, bounds, bands)
}

func TestRenderProducesPNG(t *testing.T) {
	var buf bytes.Buffer
	r := NewGoChart()
	require.NoError(t, r.Render(context.Background(), dailySpec(t), &buf))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), pngMagic))
	assert.Equal(t, "image/png", r.ContentType())
}

func TestRenderRejectsEmptyCharts(t *testing.T) {
	spec := dailySpec(t)

	noTraces := spec
	noTraces.Traces = nil
	assert.Error(t, NewGoChart().Render(context.Background(), noTraces, &bytes.Buffer{}))

	flat := spec
	flat.Bounds.XMax = flat.Bounds.XMin
	assert.Error(t, NewGoChart().Render(context.Background(), flat, &bytes.Buffer{}))
}

func TestRenderHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewGoChart().Render(ctx, dailySpec(t), &bytes.Buffer{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseColor(t *testing.T) {
	assert.Equal(t, drawing.ColorRed, parseColor("Red", drawing.ColorBlue))
	assert.Equal(t, drawing.ColorBlue, parseColor("", drawing.ColorBlue))
	assert.Equal(t, drawing.ColorBlue, parseColor("chartreuse", drawing.ColorBlue))
	assert.Equal(t, uint8(0xff), parseColor("#ff7f0e", drawing.ColorBlue).R)
}

func TestTimeFormatter(t *testing.T) {
	ts := time.Date(2024, time.March, 4, 13, 45, 0, 0, time.UTC)
	f := timeFormatter("15:04", time.UTC)
	assert.Equal(t, "13:45", f(ts))
	assert.Equal(t, "13:45", f(float64(ts.UnixNano())))
	assert.Equal(t, "", f("nope"))
}

func TestBandsDrawnBeneathTraces(t *testing.T) {
	spec := dailySpec(t)
	ch, err := NewGoChart().build(spec)
	require.NoError(t, err)

	require.NotEmpty(t, ch.Series)
	bands, ok := ch.Series[0].(bandSeries)
	require.True(t, ok, "first series is %T", ch.Series[0])
	assert.Equal(t, spec.Bands, bands.bands)
	for _, s := range ch.Series[1:] {
		_, isBand := s.(bandSeries)
		assert.False(t, isBand)
	}
	assert.Len(t, ch.Series, 1+len(spec.Rules)+len(spec.Traces))
}
