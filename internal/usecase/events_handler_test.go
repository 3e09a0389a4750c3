package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgkafka "GlucoPlot/pkg/kafka"
)

func newEventsHandler(events *fakeEvents) (*EventsHandler, *fakeMetrics, *fakeLive) {
	m := newFakeMetrics()
	live := &fakeLive{}
	return NewEventsHandler("glucoplot.events", events, m, live, nil), m, live
}

func TestHandleGlucose(t *testing.T) {
	events := &fakeEvents{}
	h, m, live := newEventsHandler(events)
	ctx := context.Background()

	msg := []byte(`{"kind":"glucose","time":{"seconds":1709539200,"nanos":500},"value":6.2,"trend":"flat"}`)
	require.NoError(t, h.Handle(ctx, msg))

	require.Len(t, events.glucose, 1)
	got := events.glucose[0]
	assert.Equal(t, int64(1709539200), got.Time.Unix())
	assert.Equal(t, 500, got.Time.Nanosecond())
	assert.Equal(t, 6.2, got.Mmol)
	assert.Equal(t, "flat", got.Trend)
	assert.Equal(t, 1, m.events["glucose"])
	assert.Equal(t, 6.2, m.last)
	require.Len(t, live.got, 1)

	// replay of the same instant replaces the row
	require.NoError(t, h.Handle(ctx, []byte(`{"kind":"glucose","time":{"seconds":1709539200,"nanos":500},"value":6.4}`)))
	require.Len(t, events.glucose, 1)
	assert.Equal(t, 6.4, events.glucose[0].Mmol)
}

func TestHandleInsulinAndCarbs(t *testing.T) {
	events := &fakeEvents{}
	h, _, live := newEventsHandler(events)
	ctx := context.Background()

	require.NoError(t, h.Handle(ctx, []byte(`{"kind":"insulin","time":{"seconds":1709539200},"value":4}`)))
	require.NoError(t, h.Handle(ctx, []byte(`{"kind":"insulin","time":{"seconds":1709539300},"value":18,"insulin_type":"slow"}`)))
	require.NoError(t, h.Handle(ctx, []byte(`{"kind":"carbs","time":{"seconds":1709539400},"value":45}`)))

	require.Len(t, events.insulin, 2)
	assert.Equal(t, "rapid", events.insulin[0].Type)
	assert.Equal(t, "slow", events.insulin[1].Type)
	require.Len(t, events.carbs, 1)
	assert.Equal(t, 45.0, events.carbs[0].Amount)
	assert.Empty(t, live.got)
}

func TestHandleRejectsBadMessages(t *testing.T) {
	h, m, _ := newEventsHandler(&fakeEvents{})
	ctx := context.Background()

	for name, msg := range map[string]string{
		"not json":       `{"kind":`,
		"unknown kind":   `{"kind":"ketones","time":{"seconds":1709539200},"value":1}`,
		"missing time":   `{"kind":"glucose","value":5}`,
		"bad nanos":      `{"kind":"glucose","time":{"seconds":1709539200,"nanos":1000000000},"value":5}`,
		"negative value": `{"kind":"carbs","time":{"seconds":1709539200},"value":-1}`,
		"insulin type":   `{"kind":"insulin","time":{"seconds":1709539200},"value":1,"insulin_type":"medium"}`,
	} {
		t.Run(name, func(t *testing.T) {
			err := h.Handle(ctx, []byte(msg))
			assert.ErrorIs(t, err, pkgkafka.ErrPermanent)
		})
	}
	assert.Equal(t, 1, m.errors["consumer_unmarshal"])
}

func TestHandleStoreErrorIsRetryable(t *testing.T) {
	h, m, _ := newEventsHandler(&fakeEvents{err: errStoreDown})

	err := h.Handle(context.Background(), []byte(`{"kind":"glucose","time":{"seconds":1709539200},"value":5}`))
	assert.ErrorIs(t, err, errStoreDown)
	assert.NotErrorIs(t, err, pkgkafka.ErrPermanent)
	assert.Equal(t, 1, m.errors["consumer_store"])
}
