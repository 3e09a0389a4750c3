package usecase

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"GlucoPlot/internal/domain/models"
)

var base = time.Date(2024, time.March, 4, 8, 0, 0, 0, time.UTC) // a Monday

func at(d time.Duration) time.Time { return base.Add(d) }

func in(t, start, end time.Time) bool { return !t.Before(start) && t.Before(end) }

type fakeEvents struct {
	mu      sync.Mutex
	glucose []models.GlucoseReading
	insulin []models.InsulinDose
	carbs   []models.CarbIntake
	reads   int
	err     error
}

func (f *fakeEvents) ReadGlucose(_ context.Context, start, end time.Time) ([]models.GlucoseReading, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if f.err != nil {
		return nil, f.err
	}
	var out []models.GlucoseReading
	for _, r := range f.glucose {
		if in(r.Time, start, end) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeEvents) ReadInsulin(_ context.Context, start, end time.Time) ([]models.InsulinDose, error) {
	var out []models.InsulinDose
	for _, d := range f.insulin {
		if in(d.Time, start, end) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeEvents) ReadCarbs(_ context.Context, start, end time.Time) ([]models.CarbIntake, error) {
	var out []models.CarbIntake
	for _, c := range f.carbs {
		if in(c.Time, start, end) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeEvents) LatestGlucose(_ context.Context, n int) ([]models.GlucoseReading, error) {
	if n > len(f.glucose) {
		n = len(f.glucose)
	}
	return f.glucose[len(f.glucose)-n:], nil
}

func (f *fakeEvents) WriteGlucose(_ context.Context, r models.GlucoseReading) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	for i, g := range f.glucose {
		if g.Time.Equal(r.Time) {
			f.glucose[i] = r
			return true, nil
		}
	}
	f.glucose = append(f.glucose, r)
	return false, nil
}

func (f *fakeEvents) WriteInsulin(_ context.Context, d models.InsulinDose) (bool, error) {
	f.insulin = append(f.insulin, d)
	return false, nil
}

func (f *fakeEvents) WriteCarbs(_ context.Context, c models.CarbIntake) (bool, error) {
	f.carbs = append(f.carbs, c)
	return false, nil
}

// dayOfReadings is 5 -> 11 -> 3.5 mmol/L over two hours from base.
func dayOfReadings() *fakeEvents {
	return &fakeEvents{
		glucose: []models.GlucoseReading{
			{Time: at(0), Mmol: 5},
			{Time: at(time.Hour), Mmol: 11},
			{Time: at(2 * time.Hour), Mmol: 3.5},
		},
		insulin: []models.InsulinDose{{Time: at(20 * time.Minute), Type: "rapid", Amount: 4}},
		carbs:   []models.CarbIntake{{Time: at(90 * time.Minute), Amount: 30}},
	}
}

type fakeRenderer struct {
	err   error
	calls int
}

func (r *fakeRenderer) Render(_ context.Context, spec models.ChartSpec, w io.Writer) error {
	r.calls++
	if r.err != nil {
		return r.err
	}
	_, err := io.WriteString(w, "PNG:"+spec.Title)
	return err
}

func (r *fakeRenderer) ContentType() string { return "image/png" }

type fakePublisher struct {
	events []models.PlotReady
	err    error
}

func (p *fakePublisher) PublishPlotReady(_ context.Context, ev models.PlotReady) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

type fakeMetrics struct {
	mu     sync.Mutex
	events map[string]int
	errors map[string]int
	plots  map[string]int
	last   float64
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{events: map[string]int{}, errors: map[string]int{}, plots: map[string]int{}}
}

func (m *fakeMetrics) RecordEvent(kind string) {
	m.mu.Lock()
	m.events[kind]++
	m.mu.Unlock()
}

func (m *fakeMetrics) RecordError(kind string) {
	m.mu.Lock()
	m.errors[kind]++
	m.mu.Unlock()
}

func (m *fakeMetrics) RecordLastGlucose(v float64) { m.last = v }

func (m *fakeMetrics) RecordLatency(string, float64) {}

func (m *fakeMetrics) RecordPlot(kind string) {
	m.mu.Lock()
	m.plots[kind]++
	m.mu.Unlock()
}

type fakeLive struct {
	got []models.GlucoseReading
}

func (l *fakeLive) Process(_ context.Context, r models.GlucoseReading) error {
	l.got = append(l.got, r)
	return nil
}

var errStoreDown = errors.New("store down")
