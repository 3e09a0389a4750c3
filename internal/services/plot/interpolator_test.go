package plot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GlucoPlot/internal/domain/models"
)

var t0 = time.Date(2024, time.March, 4, 8, 0, 0, 0, time.UTC)

func threePoint() models.Series {
	return models.Series{
		{Time: t0, Value: 5.0},
		{Time: t0.Add(time.Hour), Value: 7.0},
		{Time: t0.Add(2 * time.Hour), Value: 6.0},
	}
}

func TestInterpolateMidSegmentAbove(t *testing.T) {
	got, err := Interpolate(threePoint(), []time.Time{t0.Add(30 * time.Minute)}, Above)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.InDelta(t, 6.0, got[0].Base, 1e-9)
	assert.InDelta(t, 6.2, got[0].Value, 1e-9)
	assert.True(t, got[0].Time.Equal(t0.Add(30*time.Minute)))
}

func TestInterpolateBeforeFirstIsFlat(t *testing.T) {
	got, err := Interpolate(threePoint(), []time.Time{t0.Add(-10 * time.Minute)}, Above)
	require.NoError(t, err)
	assert.Equal(t, 5.0, got[0].Base)
	assert.InDelta(t, 5.2, got[0].Value, 1e-9)
}

func TestInterpolateAtAndAfterLastIsFlat(t *testing.T) {
	markers := []time.Time{t0.Add(2 * time.Hour), t0.Add(5 * time.Hour)}
	got, err := Interpolate(threePoint(), markers, Below)
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, m := range got {
		assert.Equal(t, 6.0, m.Base)
		assert.InDelta(t, 5.8, m.Value, 1e-9)
	}
}

func TestInterpolateExactSampleTime(t *testing.T) {
	got, err := Interpolate(threePoint(), []time.Time{t0.Add(time.Hour)}, Above)
	require.NoError(t, err)
	assert.InDelta(t, 7.0, got[0].Base, 1e-9)
}

func TestInterpolateBaseBetweenBracketingSamples(t *testing.T) {
	primary := threePoint()
	var markers []time.Time
	for m := 1; m < 120; m += 7 {
		markers = append(markers, t0.Add(time.Duration(m)*time.Minute))
	}
	got, err := Interpolate(primary, markers, Above)
	require.NoError(t, err)
	require.Len(t, got, len(markers))

	for _, m := range got {
		a, b := primary[0], primary[1]
		if !m.Time.Before(primary[1].Time) {
			a, b = primary[1], primary[2]
		}
		lo, hi := a.Value, b.Value
		if lo > hi {
			lo, hi = hi, lo
		}
		assert.GreaterOrEqual(t, m.Base, lo-1e-9, "marker at %s", m.Time)
		assert.LessOrEqual(t, m.Base, hi+1e-9, "marker at %s", m.Time)
	}
}

func TestInterpolateOffsetSign(t *testing.T) {
	markers := []time.Time{t0.Add(-time.Minute), t0.Add(45 * time.Minute), t0.Add(3 * time.Hour)}

	above, err := Interpolate(threePoint(), markers, Above)
	require.NoError(t, err)
	below, err := Interpolate(threePoint(), markers, Below)
	require.NoError(t, err)

	for i := range markers {
		assert.GreaterOrEqual(t, above[i].Value, above[i].Base)
		assert.LessOrEqual(t, below[i].Value, below[i].Base)
		assert.Equal(t, above[i].Base, below[i].Base)
	}
}

func TestInterpolateFlatCurveHasNoOffset(t *testing.T) {
	primary := models.Series{{Time: t0, Value: 6}, {Time: t0.Add(time.Hour), Value: 6}}
	got, err := Interpolate(primary, []time.Time{t0.Add(10 * time.Minute)}, Above)
	require.NoError(t, err)
	assert.Equal(t, 6.0, got[0].Value)
}

func TestInterpolateIsIdempotent(t *testing.T) {
	markers := []time.Time{t0.Add(13 * time.Minute), t0.Add(77 * time.Minute)}
	a, err := Interpolate(threePoint(), markers, Below)
	require.NoError(t, err)
	b, err := Interpolate(threePoint(), markers, Below)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestInterpolateEmptyInputs(t *testing.T) {
	_, err := Interpolate(nil, []time.Time{t0}, Above)
	assert.ErrorIs(t, err, ErrEmptyPrimarySeries)

	got, err := Interpolate(threePoint(), nil, Above)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestInterpolateSingleSample(t *testing.T) {
	primary := models.Series{{Time: t0, Value: 8}}
	got, err := Interpolate(primary, []time.Time{t0.Add(-time.Hour), t0, t0.Add(time.Hour)}, Above)
	require.NoError(t, err)
	for _, m := range got {
		assert.Equal(t, 8.0, m.Value)
	}
}

func TestLerpRejectsDegenerateSegment(t *testing.T) {
	a := models.Sample{Time: t0, Value: 5}
	_, err := lerp(a, a, t0)
	assert.ErrorIs(t, err, ErrDegenerateInterval)

	_, err = lerp(models.Sample{Time: t0.Add(time.Minute)}, a, t0)
	assert.ErrorIs(t, err, ErrDegenerateInterval)
	assert.True(t, IsInputError(err))
}
