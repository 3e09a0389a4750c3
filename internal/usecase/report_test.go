package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GlucoPlot/internal/domain/models"
)

func TestReport(t *testing.T) {
	events := dayOfReadings()
	events.glucose = append(events.glucose, models.GlucoseReading{Time: at(3 * time.Hour), Mmol: 4})
	events.insulin = append(events.insulin, models.InsulinDose{Time: at(26 * time.Hour), Type: "slow", Amount: 18})
	uc := NewReportUseCase(events, models.Thresholds{Low: 4, High: 10, Target: 6}, time.UTC)

	rep, err := uc.Report(context.Background(), at(0), at(48*time.Hour))
	require.NoError(t, err)

	assert.Equal(t, 4, rep.Count)
	// 3.5 and 4 are at or below low, 11 above, 5 in range
	assert.InDelta(t, 0.5, rep.Range.BelowRange, 1e-9)
	assert.InDelta(t, 0.25, rep.Range.InRange, 1e-9)
	assert.InDelta(t, 0.25, rep.Range.AboveRange, 1e-9)
	assert.InDelta(t, 5.875, rep.Summary.Average, 1e-9)
	assert.Equal(t, 3.5, rep.Summary.Min)
	assert.Equal(t, 11.0, rep.Summary.Max)

	require.Len(t, rep.Days, 2)
	assert.Equal(t, 4.0, rep.Days[0].Rapid)
	assert.Equal(t, 30.0, rep.Days[0].Carbs)
	assert.Equal(t, 18.0, rep.Days[1].Slow)
}

func TestReportWindow(t *testing.T) {
	uc := NewReportUseCase(&fakeEvents{}, models.Thresholds{Low: 4, High: 10, Target: 6}, nil)
	uc.now = func() time.Time { return base }

	start, end := uc.Window(time.Time{}, time.Time{}, 0)
	assert.Equal(t, base, end)
	assert.Equal(t, base.AddDate(0, 0, -7), start)

	_, err := uc.Report(context.Background(), end, start)
	var werr *WindowError
	assert.ErrorAs(t, err, &werr)

	rep, err := uc.Report(context.Background(), start, end)
	require.NoError(t, err)
	assert.Zero(t, rep.Count)
	assert.Empty(t, rep.Days)
}
