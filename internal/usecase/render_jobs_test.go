package usecase

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GlucoPlot/pkg/queue"
)

func TestRenderDailyJob(t *testing.T) {
	f := newPlotterFixture(t, dayOfReadings())
	job := NewRenderDailyJob(f.plotter)
	assert.Equal(t, JobRenderDaily, job.Type())

	payload, _ := json.Marshal(RenderPayload{Start: at(0), End: at(3 * time.Hour)})
	require.NoError(t, job.Handle(context.Background(), payload))
	assert.Equal(t, 1, f.renderer.calls)
	require.Len(t, f.publisher.events, 1)
}

func TestRenderJobEmptyWindowIsPermanent(t *testing.T) {
	f := newPlotterFixture(t, &fakeEvents{})

	err := NewRenderWeeklyJob(f.plotter).Handle(context.Background(), json.RawMessage(`{"offset":1}`))
	assert.ErrorIs(t, err, queue.ErrPermanent)

	err = NewRenderDailyJob(f.plotter).Handle(context.Background(), json.RawMessage(`{`))
	assert.ErrorIs(t, err, queue.ErrPermanent)
}

func TestRenderJobStoreErrorRetries(t *testing.T) {
	f := newPlotterFixture(t, &fakeEvents{err: errStoreDown})

	err := NewRenderDailyJob(f.plotter).Handle(context.Background(), json.RawMessage(`{}`))
	assert.ErrorIs(t, err, errStoreDown)
	assert.NotErrorIs(t, err, queue.ErrPermanent)
}
