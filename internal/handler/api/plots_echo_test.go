package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GlucoPlot/internal/domain/models"
	"GlucoPlot/internal/repository"
	"GlucoPlot/internal/service/ratelimit"
	"GlucoPlot/internal/services/plot"
	"GlucoPlot/internal/services/render"
	"GlucoPlot/internal/usecase"
	"GlucoPlot/pkg/cache"
	xhttp "GlucoPlot/pkg/http"
	"GlucoPlot/pkg/metrics"
	"GlucoPlot/pkg/queue"
)

var base = time.Date(2024, time.March, 4, 8, 0, 0, 0, time.UTC) // a Monday

type apiFixture struct {
	e     *echo.Echo
	store *repository.SQLiteEventStore
}

func newAPIFixture(t *testing.T, limiter *ratelimit.Limiter) *apiFixture {
	t.Helper()
	ctx := context.Background()

	store, err := repository.NewSQLiteEventStore(filepath.Join(t.TempDir(), "events.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Init(ctx))

	for i, v := range []float64{5, 11, 3.5} {
		_, err := store.WriteGlucose(ctx, models.GlucoseReading{Time: base.Add(time.Duration(i) * time.Hour), Mmol: v})
		require.NoError(t, err)
	}
	_, err = store.WriteInsulin(ctx, models.InsulinDose{Time: base.Add(20 * time.Minute), Type: "rapid", Amount: 4})
	require.NoError(t, err)

	mem := cache.NewMemoryCache()
	t.Cleanup(func() { _ = mem.Close() })

	th := models.Thresholds{Low: 4, High: 10, Target: 6}
	clock := usecase.WithClock(func() time.Time { return base.Add(150 * time.Minute) })
	plotter := usecase.NewPlotterUseCase(usecase.PlotterConfig{
		Thresholds: th,
		Location:   time.UTC,
		Layout:     plot.DefaultBandLayout(),
		WeekStart:  time.Monday,
	}, store, repository.NewCacheBlobStore(mem, 0), render.NewGoChart(), repository.NopPublisher{}, metrics.New(), nil, clock)
	report := usecase.NewReportUseCase(store, th, time.UTC)

	q := queue.NewLocalQueue(nil, nil)
	q.RegisterJob(usecase.NewRenderDailyJob(plotter))
	q.RegisterJob(usecase.NewRenderWeeklyJob(plotter))

	if limiter == nil {
		limiter = ratelimit.New(100, 100)
	}
	handlers := []xhttp.Handler{
		NewPlotsEchoHandler(nil, plotter, report, limiter, q),
		NewHealthEchoHandler(nil, map[string]HealthCheck{"store": store.Health}),
	}
	s := xhttp.NewServer(nil, handlers, xhttp.WithMetricsPath(""))
	return &apiFixture{e: s.Echo(), store: store}
}

func (f *apiFixture) do(method, target string, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	return rec
}

func decodeData[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var env struct {
		Data T `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env.Data
}

func TestDailyChartEndpoint(t *testing.T) {
	f := newAPIFixture(t, nil)

	rec := f.do(http.MethodGet, "/api/charts/daily", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decodeData[usecase.ChartResult](t, rec)
	require.Len(t, res.Spec.Traces, 2)
	assert.Equal(t, "rapid insulin", res.Spec.Traces[1].Name)
	assert.Equal(t, 3.5, res.Latest)
}

func TestDailyChartEmptyWindow(t *testing.T) {
	f := newAPIFixture(t, nil)
	q := url.Values{}
	q.Set("start", base.Add(24*time.Hour).Format(time.RFC3339))
	q.Set("end", base.Add(30*time.Hour).Format(time.RFC3339))

	rec := f.do(http.MethodGet, "/api/charts/daily?"+q.Encode(), "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	errs := decodeData[[]xhttp.AppError](t, rec)
	require.Len(t, errs, 1)
	assert.Equal(t, "ERR_EMPTY_WINDOW", errs[0].Code)
	assert.Equal(t, "2024-03-05T08:00:00Z", errs[0].Params["start"])
	assert.Equal(t, "daily", errs[0].Params["kind"])
}

func TestDailyChartBadRequests(t *testing.T) {
	f := newAPIFixture(t, nil)

	rec := f.do(http.MethodGet, "/api/charts/daily?start=yesterday", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "ERR_INVALID_TIME")

	rec = f.do(http.MethodGet, "/api/charts/daily?hours=100", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWeeklyChartEndpoint(t *testing.T) {
	f := newAPIFixture(t, nil)

	rec := f.do(http.MethodGet, "/api/charts/weekly", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decodeData[usecase.ChartResult](t, rec)
	require.Len(t, res.Spec.Traces, 1)
	assert.Equal(t, "Monday", res.Spec.Traces[0].Name)

	rec = f.do(http.MethodGet, "/api/charts/weekly?offset=1", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestRenderAndFileLifecycle(t *testing.T) {
	f := newAPIFixture(t, nil)

	rec := f.do(http.MethodPost, "/api/plots/daily", "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	ref := decodeData[models.FileRef](t, rec)
	assert.Equal(t, "daily-03042024-100000-+0000.png", ref.Name)

	rec = f.do(http.MethodGet, "/api/files/"+ref.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get(echo.HeaderContentType))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), ref.Name)

	rec = f.do(http.MethodDelete, "/api/files/"+ref.ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(http.MethodGet, "/api/files/"+ref.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(http.MethodGet, "/api/files/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRenderWeeklyEndpoint(t *testing.T) {
	f := newAPIFixture(t, nil)

	rec := f.do(http.MethodPost, "/api/plots/weekly", `{"offset":0}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.True(t, strings.HasPrefix(decodeData[models.FileRef](t, rec).Name, "weekly-"))
}

func TestRenderAsync(t *testing.T) {
	f := newAPIFixture(t, nil)

	rec := f.do(http.MethodPost, "/api/plots/daily", `{"async":true}`)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	assert.Equal(t, usecase.JobRenderDaily, decodeData[map[string]string](t, rec)["queued"])
}

func TestRenderRateLimited(t *testing.T) {
	f := newAPIFixture(t, ratelimit.New(0.001, 1))

	assert.Equal(t, http.StatusCreated, f.do(http.MethodPost, "/api/plots/daily", "").Code)
	rec := f.do(http.MethodPost, "/api/plots/daily", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// reads are not limited
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/api/charts/daily", "").Code)
}

func TestReportEndpoint(t *testing.T) {
	f := newAPIFixture(t, nil)
	q := url.Values{}
	q.Set("start", base.Format(time.RFC3339))
	q.Set("end", base.Add(24*time.Hour).Format(time.RFC3339))

	rec := f.do(http.MethodGet, "/api/report?"+q.Encode(), "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rep := decodeData[models.Report](t, rec)
	assert.Equal(t, 3, rep.Count)
	require.Len(t, rep.Days, 1)
	assert.Equal(t, 4.0, rep.Days[0].Rapid)
}

func TestLatestEndpoint(t *testing.T) {
	f := newAPIFixture(t, nil)

	rec := f.do(http.MethodGet, "/api/latest?n=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeData[xhttp.ListDataResponse](t, rec)
	assert.Equal(t, int64(2), list.Total)
}

func TestHealthEndpoint(t *testing.T) {
	f := newAPIFixture(t, nil)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/healthz", "").Code)

	e := echo.New()
	NewHealthEchoHandler(nil, map[string]HealthCheck{
		"redis": func(context.Context) error { return errors.New("connection refused") },
	}).RegisterRoutes(e)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")
}
