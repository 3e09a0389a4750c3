package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"GlucoPlot/internal/domain/models"
	domrepo "GlucoPlot/internal/domain/repository"
	domsvc "GlucoPlot/internal/domain/service"
	"GlucoPlot/internal/services/plot"
	"GlucoPlot/pkg/cache"
	"GlucoPlot/pkg/logger"
)

const (
	KindDaily  = "daily"
	KindWeekly = "weekly"

	// filename layout: MMDDYYYY-HHMMSS-zone of the last reading
	fileTimeLayout = "01022006-150405--0700"
)

// PlotterConfig is the immutable chart configuration.
type PlotterConfig struct {
	Thresholds  models.Thresholds
	Location    *time.Location
	Layout      plot.BandLayout
	Weekdays    plot.WeekdaySet
	WeekStart   time.Weekday
	OrderPolicy plot.OrderPolicy
	DailyHours  int
	Width       int
	Height      int
	CacheTTL    time.Duration
}

// ChartResult is a chart plus the window it was built for.
type ChartResult struct {
	Kind   string           `json:"kind"`
	Start  time.Time        `json:"start"`
	End    time.Time        `json:"end"`
	Last   time.Time        `json:"last"`
	Latest float64          `json:"latest"`
	Spec   models.ChartSpec `json:"spec"`
}

// WindowError is a chart request that cannot be served for its window.
type WindowError struct {
	Kind       string
	Start, End time.Time
	Err        error
}

func (e *WindowError) Error() string {
	return fmt.Sprintf("%s chart %s..%s: %v", e.Kind, e.Start.Format(time.RFC3339), e.End.Format(time.RFC3339), e.Err)
}

func (e *WindowError) Unwrap() error { return e.Err }

// PlotterUseCase builds, renders and stores glucose charts.
type PlotterUseCase struct {
	events    domrepo.EventReader
	blobs     domrepo.BlobStore
	renderer  domsvc.ChartRenderer
	publisher domrepo.Publisher
	metrics   domrepo.Metrics
	cache     cache.Store
	log       *logger.Logger

	cfg        PlotterConfig
	normalizer *plot.Normalizer
	folder     *plot.Folder
	now        func() time.Time
}

// PlotterOption configures PlotterUseCase.
type PlotterOption func(*PlotterUseCase)

// WithChartCache caches assembled ChartSpecs for cfg.CacheTTL.
func WithChartCache(s cache.Store) PlotterOption {
	return func(p *PlotterUseCase) {
		p.cache = s
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) PlotterOption {
	return func(p *PlotterUseCase) {
		p.now = now
	}
}

func NewPlotterUseCase(
	cfg PlotterConfig,
	events domrepo.EventReader,
	blobs domrepo.BlobStore,
	renderer domsvc.ChartRenderer,
	publisher domrepo.Publisher,
	metrics domrepo.Metrics,
	log *logger.Logger,
	opts ...PlotterOption,
) *PlotterUseCase {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.DailyHours <= 0 {
		cfg.DailyHours = 12
	}
	if cfg.Weekdays == 0 {
		cfg.Weekdays = plot.DefaultWeekdays
	}
	if log == nil {
		log = logger.NewNop()
	}
	p := &PlotterUseCase{
		events:    events,
		blobs:     blobs,
		renderer:  renderer,
		publisher: publisher,
		metrics:   metrics,
		log:       log,
		cfg:       cfg,
		normalizer: plot.NewNormalizer(cfg.Location,
			plot.WithOrderPolicy(cfg.OrderPolicy)),
		folder: plot.NewFolder(cfg.Location,
			plot.WithWeekStart(cfg.WeekStart),
			plot.WithWeekdays(cfg.Weekdays)),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// DailyWindow resolves a daily request. A zero end means now, a zero start
// means end minus hours (or the configured lookback). With the chart cache on,
// now is truncated to the cache TTL so repeated default requests share a key.
func (p *PlotterUseCase) DailyWindow(start, end time.Time, hours int) (time.Time, time.Time) {
	if end.IsZero() {
		end = p.now()
		if p.cache != nil && p.cfg.CacheTTL > 0 {
			end = end.Truncate(p.cfg.CacheTTL)
		}
	}
	if hours <= 0 {
		hours = p.cfg.DailyHours
	}
	if start.IsZero() {
		start = end.Add(-time.Duration(hours) * time.Hour)
	}
	return start.In(p.cfg.Location), end.In(p.cfg.Location)
}

// WeeklyWindow is the week offset weeks before the current one.
func (p *PlotterUseCase) WeeklyWindow(offset int) (time.Time, time.Time) {
	start := p.folder.StartOfWeek(p.now()).AddDate(0, 0, -7*offset)
	return start, start.AddDate(0, 0, 7)
}

// DailyChart builds the glucose chart for [start, end) with insulin and carb markers.
func (p *PlotterUseCase) DailyChart(ctx context.Context, start, end time.Time) (*ChartResult, error) {
	key := cache.GenerateKeyWithParams("chart", KindDaily, start.UnixNano(), end.UnixNano())
	if res, ok := p.cached(ctx, key); ok {
		return res, nil
	}

	res, err := p.buildDaily(ctx, start, end)
	if err != nil {
		return nil, err
	}
	p.store(ctx, key, res)
	return res, nil
}

func (p *PlotterUseCase) buildDaily(ctx context.Context, start, end time.Time) (*ChartResult, error) {
	if !start.Before(end) {
		return nil, &WindowError{Kind: KindDaily, Start: start, End: end, Err: errors.New("start must be before end")}
	}
	began := time.Now()
	defer func() { p.latency("daily_chart", began) }()

	primary, err := p.glucose(ctx, start, end)
	if err != nil {
		return nil, p.windowErr(KindDaily, start, end, err)
	}
	doses, err := p.events.ReadInsulin(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("read insulin: %w", err)
	}
	carbs, err := p.events.ReadCarbs(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("read carbs: %w", err)
	}

	var rapid, slow []models.RawSample
	for _, d := range doses {
		if d.Type == models.SlowActing.String() {
			slow = append(slow, models.RawFromTime(d.Time, d.Amount))
			continue
		}
		rapid = append(rapid, models.RawFromTime(d.Time, d.Amount))
	}
	carbRaw := make([]models.RawSample, len(carbs))
	for i, c := range carbs {
		carbRaw[i] = models.RawFromTime(c.Time, c.Amount)
	}

	var traces []plot.MarkerTrace
	for _, m := range []struct {
		label string
		raw   []models.RawSample
		dir   plot.Direction
		style models.TraceStyle
	}{
		{"rapid insulin", rapid, plot.Above, models.TraceStyle{Color: "#ff7f0e", Symbol: models.SymbolTriangleDown, Size: 8}},
		{"slow insulin", slow, plot.Above, models.TraceStyle{Color: "#9467bd", Symbol: models.SymbolTriangleDown, Size: 8}},
		{"carbs", carbRaw, plot.Below, models.TraceStyle{Color: "#2ca02c", Symbol: models.SymbolTriangleUp, Size: 8}},
	} {
		if len(m.raw) == 0 {
			continue
		}
		times, err := p.normalizer.NormalizeTimes(m.raw)
		if err != nil {
			return nil, p.windowErr(KindDaily, start, end, fmt.Errorf("%s: %w", m.label, err))
		}
		aligned, err := plot.Interpolate(primary, times, m.dir)
		if err != nil {
			return nil, p.windowErr(KindDaily, start, end, fmt.Errorf("%s: %w", m.label, err))
		}
		traces = append(traces, plot.MarkerTrace{Label: m.label, Markers: aligned, Style: m.style})
	}

	bounds, bands, err := p.cfg.Layout.Layout(primary, p.cfg.Thresholds, plot.DefaultDailyPadding)
	if err != nil {
		return nil, p.windowErr(KindDaily, start, end, err)
	}

	last := primary[len(primary)-1]
	title := fmt.Sprintf("Glucose %s - %s", start.Format("Jan 2 15:04"), end.Format("Jan 2 15:04"))
	spec := p.assembler().Assemble(title, primary, traces, bounds, bands)
	return &ChartResult{Kind: KindDaily, Start: start, End: end, Last: last.Time, Latest: last.Value, Spec: spec}, nil
}

// WeeklyChart overlays the week starting at start, one trace per included weekday.
func (p *PlotterUseCase) WeeklyChart(ctx context.Context, start, end time.Time) (*ChartResult, error) {
	key := cache.GenerateKeyWithParams("chart", KindWeekly, start.UnixNano(), end.UnixNano())
	if res, ok := p.cached(ctx, key); ok {
		return res, nil
	}

	res, err := p.buildWeekly(ctx, start, end)
	if err != nil {
		return nil, err
	}
	p.store(ctx, key, res)
	return res, nil
}

func (p *PlotterUseCase) buildWeekly(ctx context.Context, start, end time.Time) (*ChartResult, error) {
	if !start.Before(end) {
		return nil, &WindowError{Kind: KindWeekly, Start: start, End: end, Err: errors.New("start must be before end")}
	}
	began := time.Now()
	defer func() { p.latency("weekly_chart", began) }()

	primary, err := p.glucose(ctx, start, end)
	if err != nil {
		return nil, p.windowErr(KindWeekly, start, end, err)
	}
	fold, err := p.folder.Fold(primary)
	if err != nil {
		return nil, p.windowErr(KindWeekly, start, end, err)
	}
	ext, err := fold.Extent()
	if err != nil {
		return nil, p.windowErr(KindWeekly, start, end, err)
	}
	bounds, bands, err := p.cfg.Layout.LayoutExtent(ext, p.cfg.Thresholds)
	if err != nil {
		return nil, p.windowErr(KindWeekly, start, end, err)
	}

	last := primary[len(primary)-1]
	title := fmt.Sprintf("Week of %s", start.Format("Jan 2 2006"))
	spec := p.assembler().AssembleWeekly(title, fold, bounds, bands)
	return &ChartResult{Kind: KindWeekly, Start: start, End: end, Last: last.Time, Latest: last.Value, Spec: spec}, nil
}

// RenderDaily renders the daily chart and stores the image.
func (p *PlotterUseCase) RenderDaily(ctx context.Context, start, end time.Time) (models.FileRef, error) {
	res, err := p.DailyChart(ctx, start, end)
	if err != nil {
		return models.FileRef{}, err
	}
	return p.renderAndStore(ctx, res)
}

// RenderWeekly renders the weekly chart and stores the image.
func (p *PlotterUseCase) RenderWeekly(ctx context.Context, start, end time.Time) (models.FileRef, error) {
	res, err := p.WeeklyChart(ctx, start, end)
	if err != nil {
		return models.FileRef{}, err
	}
	return p.renderAndStore(ctx, res)
}

// GetFile loads a stored image.
func (p *PlotterUseCase) GetFile(ctx context.Context, id string) (models.Blob, error) {
	return p.blobs.Get(ctx, id)
}

// DeleteFile removes a stored image.
func (p *PlotterUseCase) DeleteFile(ctx context.Context, id string) error {
	return p.blobs.Delete(ctx, id)
}

// FileName is the stored name for a chart whose last reading is at last.
func FileName(kind string, last time.Time) string {
	return kind + "-" + last.Format(fileTimeLayout) + ".png"
}

func (p *PlotterUseCase) renderAndStore(ctx context.Context, res *ChartResult) (models.FileRef, error) {
	began := time.Now()
	var buf bytes.Buffer
	if err := p.renderer.Render(ctx, res.Spec, &buf); err != nil {
		p.recordError("render")
		return models.FileRef{}, fmt.Errorf("render %s: %w", res.Kind, err)
	}
	p.latency("render", began)

	name := FileName(res.Kind, res.Last)
	ref, err := p.blobs.Put(ctx, name, p.renderer.ContentType(), buf.Bytes())
	if err != nil {
		p.recordError("blob_put")
		return models.FileRef{}, fmt.Errorf("store %s: %w", name, err)
	}
	if p.metrics != nil {
		p.metrics.RecordPlot(res.Kind)
	}

	if p.publisher != nil {
		ev := models.PlotReady{
			Kind:     res.Kind,
			File:     ref,
			Start:    res.Start,
			End:      res.End,
			Latest:   res.Latest,
			Rendered: p.now(),
		}
		// the image is stored; a lost notification is logged, not returned
		if err := p.publisher.PublishPlotReady(ctx, ev); err != nil {
			p.recordError("publish")
			p.log.Warn("plot ready publish failed",
				logger.String("file", ref.Name),
				logger.Error(err))
		}
	}

	p.log.Info("plot stored",
		logger.String("kind", res.Kind),
		logger.String("id", ref.ID),
		logger.String("name", ref.Name),
		logger.Int("bytes", buf.Len()))
	return ref, nil
}

func (p *PlotterUseCase) glucose(ctx context.Context, start, end time.Time) (models.Series, error) {
	readings, err := p.events.ReadGlucose(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("read glucose: %w", err)
	}
	raw := make([]models.RawSample, len(readings))
	for i, r := range readings {
		raw[i] = models.RawFromTime(r.Time, r.Mmol)
	}
	primary, err := p.normalizer.Normalize(raw)
	if err != nil {
		return nil, err
	}
	if len(primary) == 0 {
		return nil, plot.ErrEmptyPrimarySeries
	}
	return primary, nil
}

func (p *PlotterUseCase) assembler() *plot.Assembler {
	a := plot.NewAssembler(p.cfg.Thresholds, p.cfg.Location)
	if p.cfg.Width > 0 {
		a.Width = p.cfg.Width
	}
	if p.cfg.Height > 0 {
		a.Height = p.cfg.Height
	}
	return a
}

// windowErr tags engine input errors with the request window; store failures
// pass through untouched.
func (p *PlotterUseCase) windowErr(kind string, start, end time.Time, err error) error {
	if plot.IsInputError(err) {
		return &WindowError{Kind: kind, Start: start, End: end, Err: err}
	}
	p.recordError("chart_" + kind)
	return err
}

func (p *PlotterUseCase) cached(ctx context.Context, key string) (*ChartResult, bool) {
	if p.cache == nil || p.cfg.CacheTTL <= 0 {
		return nil, false
	}
	res, err := cache.GetJSON[ChartResult](ctx, p.cache, key)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			p.log.Warn("chart cache read failed", logger.String("key", key), logger.Error(err))
		}
		return nil, false
	}
	return &res, true
}

func (p *PlotterUseCase) store(ctx context.Context, key string, res *ChartResult) {
	if p.cache == nil || p.cfg.CacheTTL <= 0 {
		return
	}
	if err := cache.SetJSON(ctx, p.cache, key, res, p.cfg.CacheTTL); err != nil {
		p.log.Warn("chart cache write failed", logger.String("key", key), logger.Error(err))
	}
}

func (p *PlotterUseCase) latency(op string, since time.Time) {
	if p.metrics != nil {
		p.metrics.RecordLatency(op, time.Since(since).Seconds())
	}
}

func (p *PlotterUseCase) recordError(kind string) {
	if p.metrics != nil {
		p.metrics.RecordError(kind)
	}
}
