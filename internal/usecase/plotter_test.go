package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GlucoPlot/internal/domain/models"
	"GlucoPlot/internal/repository"
	"GlucoPlot/internal/services/plot"
	"GlucoPlot/pkg/cache"
)

type plotterFixture struct {
	events    *fakeEvents
	renderer  *fakeRenderer
	publisher *fakePublisher
	metrics   *fakeMetrics
	blobs     *repository.CacheBlobStore
	plotter   *PlotterUseCase
}

func newPlotterFixture(t *testing.T, events *fakeEvents, opts ...PlotterOption) *plotterFixture {
	t.Helper()
	mem := cache.NewMemoryCache()
	t.Cleanup(func() { _ = mem.Close() })

	f := &plotterFixture{
		events:    events,
		renderer:  &fakeRenderer{},
		publisher: &fakePublisher{},
		metrics:   newFakeMetrics(),
		blobs:     repository.NewCacheBlobStore(mem, 0),
	}
	cfg := PlotterConfig{
		Thresholds: models.Thresholds{Low: 4, High: 10, Target: 6},
		Location:   time.UTC,
		Layout:     plot.DefaultBandLayout(),
		WeekStart:  time.Monday,
	}
	opts = append([]PlotterOption{WithClock(func() time.Time { return at(2 * time.Hour) })}, opts...)
	f.plotter = NewPlotterUseCase(cfg, events, f.blobs, f.renderer, f.publisher, f.metrics, nil, opts...)
	return f
}

func TestDailyChartAlignsMarkers(t *testing.T) {
	f := newPlotterFixture(t, dayOfReadings())

	res, err := f.plotter.DailyChart(context.Background(), at(0), at(3*time.Hour))
	require.NoError(t, err)

	spec := res.Spec
	require.Len(t, spec.Traces, 3)
	assert.Equal(t, "glucose", spec.Traces[0].Name)
	assert.Equal(t, "rapid insulin", spec.Traces[1].Name)
	assert.Equal(t, "carbs", spec.Traces[2].Name)

	// offset is a tenth of the 3.5..11 range
	insulin := spec.Traces[1].Points
	require.Len(t, insulin, 1)
	assert.InDelta(t, 7+0.75, insulin[0].Value, 1e-9)
	carbs := spec.Traces[2].Points
	require.Len(t, carbs, 1)
	assert.InDelta(t, 7.25-0.75, carbs[0].Value, 1e-9)

	assert.Equal(t, 2.0, spec.Bounds.YMin)
	assert.Equal(t, 12.0, spec.Bounds.YMax)
	assert.Equal(t, at(-plot.DefaultDailyPadding), spec.Bounds.XMin)
	assert.Equal(t, at(2*time.Hour), res.Last)
	assert.Equal(t, 3.5, res.Latest)
}

func TestDailyChartSplitsSlowInsulin(t *testing.T) {
	events := dayOfReadings()
	events.insulin = append(events.insulin, models.InsulinDose{Time: at(30 * time.Minute), Type: "slow", Amount: 20})
	events.carbs = nil
	f := newPlotterFixture(t, events)

	res, err := f.plotter.DailyChart(context.Background(), at(0), at(3*time.Hour))
	require.NoError(t, err)
	require.Len(t, res.Spec.Traces, 3)
	assert.Equal(t, "slow insulin", res.Spec.Traces[2].Name)
}

func TestDailyChartWindowErrors(t *testing.T) {
	f := newPlotterFixture(t, dayOfReadings())
	ctx := context.Background()

	_, err := f.plotter.DailyChart(ctx, at(24*time.Hour), at(30*time.Hour))
	var werr *WindowError
	require.ErrorAs(t, err, &werr)
	assert.ErrorIs(t, err, plot.ErrEmptyPrimarySeries)
	assert.Equal(t, at(24*time.Hour), werr.Start)

	_, err = f.plotter.DailyChart(ctx, at(time.Hour), at(time.Hour))
	assert.ErrorAs(t, err, &werr)

	// store failures are not window errors
	f.events.err = errStoreDown
	_, err = f.plotter.DailyChart(ctx, at(0), at(time.Hour))
	assert.ErrorIs(t, err, errStoreDown)
	assert.False(t, errors.As(err, &werr))
}

func TestDailyWindowDefaults(t *testing.T) {
	f := newPlotterFixture(t, dayOfReadings())

	start, end := f.plotter.DailyWindow(time.Time{}, time.Time{}, 0)
	assert.Equal(t, at(2*time.Hour), end)
	assert.Equal(t, at(-10*time.Hour), start)

	start, _ = f.plotter.DailyWindow(time.Time{}, at(time.Hour), 3)
	assert.Equal(t, at(-2*time.Hour), start)
}

func TestRenderDailyStoresAndPublishes(t *testing.T) {
	f := newPlotterFixture(t, dayOfReadings())
	ctx := context.Background()

	ref, err := f.plotter.RenderDaily(ctx, at(0), at(3*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "daily-03042024-100000-+0000.png", ref.Name)

	blob, err := f.plotter.GetFile(ctx, ref.ID)
	require.NoError(t, err)
	assert.Equal(t, "image/png", blob.ContentType)
	assert.Contains(t, string(blob.Data), "PNG:Glucose")

	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, ref, f.publisher.events[0].File)
	assert.Equal(t, KindDaily, f.publisher.events[0].Kind)
	assert.Equal(t, 1, f.metrics.plots[KindDaily])

	// same last reading, same name, same blob
	again, err := f.plotter.RenderDaily(ctx, at(0), at(4*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, ref.ID, again.ID)

	require.NoError(t, f.plotter.DeleteFile(ctx, ref.ID))
	_, err = f.plotter.GetFile(ctx, ref.ID)
	assert.Error(t, err)
}

func TestRenderSurvivesPublishFailure(t *testing.T) {
	f := newPlotterFixture(t, dayOfReadings())
	f.publisher.err = errors.New("broker down")

	ref, err := f.plotter.RenderDaily(context.Background(), at(0), at(3*time.Hour))
	require.NoError(t, err)
	assert.NotEmpty(t, ref.ID)
	assert.Equal(t, 1, f.metrics.errors["publish"])
}

func TestRenderFailure(t *testing.T) {
	f := newPlotterFixture(t, dayOfReadings())
	f.renderer.err = errors.New("no font")

	_, err := f.plotter.RenderDaily(context.Background(), at(0), at(3*time.Hour))
	assert.ErrorContains(t, err, "no font")
	assert.Empty(t, f.publisher.events)
}

func TestWeeklyChartFoldsWeekdays(t *testing.T) {
	events := &fakeEvents{glucose: []models.GlucoseReading{
		{Time: at(0), Mmol: 5},
		{Time: at(time.Hour), Mmol: 7},
		{Time: at(24*time.Hour + 30*time.Minute), Mmol: 9},
		{Time: at(25*time.Hour + 30*time.Minute), Mmol: 6},
		{Time: at(5 * 24 * time.Hour), Mmol: 12}, // Saturday, excluded
	}}
	f := newPlotterFixture(t, events, WithClock(func() time.Time { return at(50 * time.Hour) }))

	start, end := f.plotter.WeeklyWindow(0)
	assert.Equal(t, time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, start.AddDate(0, 0, 7), end)

	res, err := f.plotter.WeeklyChart(context.Background(), start, end)
	require.NoError(t, err)
	require.Len(t, res.Spec.Traces, 2)
	assert.Equal(t, "Monday", res.Spec.Traces[0].Name)
	assert.Equal(t, "Tuesday", res.Spec.Traces[1].Name)

	// Tuesday is drawn on Monday's date
	assert.Equal(t, at(30*time.Minute), res.Spec.Traces[1].Points[0].Time)
	assert.Equal(t, 10.0, res.Spec.Bounds.YMax)

	prev, _ := f.plotter.WeeklyWindow(1)
	assert.Equal(t, start.AddDate(0, 0, -7), prev)
}

func TestChartCache(t *testing.T) {
	mem := cache.NewMemoryCache()
	defer mem.Close()
	f := newPlotterFixture(t, dayOfReadings(), WithChartCache(mem))
	f.plotter.cfg.CacheTTL = time.Minute
	ctx := context.Background()

	first, err := f.plotter.DailyChart(ctx, at(0), at(3*time.Hour))
	require.NoError(t, err)
	second, err := f.plotter.DailyChart(ctx, at(0), at(3*time.Hour))
	require.NoError(t, err)

	assert.Equal(t, 1, f.events.reads)
	assert.Equal(t, first.Spec.Title, second.Spec.Title)
	assert.Len(t, second.Spec.Traces, 3)
}

func TestDefaultDailyWindowHitsCache(t *testing.T) {
	mem := cache.NewMemoryCache()
	defer mem.Close()
	now := at(2*time.Hour + 5*time.Second)
	f := newPlotterFixture(t, dayOfReadings(), WithChartCache(mem), WithClock(func() time.Time { return now }))
	f.plotter.cfg.CacheTTL = 30 * time.Second
	ctx := context.Background()

	start, end := f.plotter.DailyWindow(time.Time{}, time.Time{}, 3)
	assert.Equal(t, at(2*time.Hour), end)
	_, err := f.plotter.DailyChart(ctx, start, end)
	require.NoError(t, err)

	now = now.Add(20 * time.Second)
	start2, end2 := f.plotter.DailyWindow(time.Time{}, time.Time{}, 3)
	assert.Equal(t, end, end2)
	_, err = f.plotter.DailyChart(ctx, start2, end2)
	require.NoError(t, err)
	assert.Equal(t, 1, f.events.reads)

	// explicit ends are never rounded
	_, explicit := f.plotter.DailyWindow(time.Time{}, now, 3)
	assert.Equal(t, now, explicit)
}

func TestFileName(t *testing.T) {
	loc := time.FixedZone("EST", -5*3600)
	ts := time.Date(2024, time.December, 1, 7, 5, 9, 0, loc)
	assert.Equal(t, "weekly-12012024-070509--0500.png", FileName(KindWeekly, ts))
}
