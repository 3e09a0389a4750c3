package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"GlucoPlot/internal/domain/models"
	domrepo "GlucoPlot/internal/domain/repository"
	"GlucoPlot/internal/services/stats"
)

// ReportUseCase summarises readings and intake over a window.
type ReportUseCase struct {
	events     domrepo.EventReader
	thresholds models.Thresholds
	loc        *time.Location
	now        func() time.Time
}

func NewReportUseCase(events domrepo.EventReader, th models.Thresholds, loc *time.Location) *ReportUseCase {
	if loc == nil {
		loc = time.UTC
	}
	return &ReportUseCase{events: events, thresholds: th, loc: loc, now: time.Now}
}

// Window resolves a report request the same way as the daily chart: a zero end
// means now, a zero start means end minus days.
func (uc *ReportUseCase) Window(start, end time.Time, days int) (time.Time, time.Time) {
	if end.IsZero() {
		end = uc.now()
	}
	if days <= 0 {
		days = 7
	}
	if start.IsZero() {
		start = end.AddDate(0, 0, -days)
	}
	return start.In(uc.loc), end.In(uc.loc)
}

// Report computes time in range, summary statistics and per day intake for [start, end).
func (uc *ReportUseCase) Report(ctx context.Context, start, end time.Time) (*models.Report, error) {
	if !start.Before(end) {
		return nil, &WindowError{Kind: "report", Start: start, End: end, Err: errors.New("start must be before end")}
	}
	readings, err := uc.events.ReadGlucose(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("read glucose: %w", err)
	}
	doses, err := uc.events.ReadInsulin(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("read insulin: %w", err)
	}
	carbs, err := uc.events.ReadCarbs(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("read carbs: %w", err)
	}

	return &models.Report{
		Start:   start,
		End:     end,
		Count:   len(readings),
		Range:   stats.TimeSpentInRange(readings, uc.thresholds.Low, uc.thresholds.High),
		Summary: stats.GlucoseSummary(readings),
		Days:    stats.DailyAggregate(doses, carbs, uc.loc),
	}, nil
}

// Latest returns the n most recent readings, oldest first.
func (uc *ReportUseCase) Latest(ctx context.Context, n int) ([]models.GlucoseReading, error) {
	readings, err := uc.events.LatestGlucose(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("latest glucose: %w", err)
	}
	out := make([]models.GlucoseReading, len(readings))
	for i, r := range readings {
		r.Time = r.Time.In(uc.loc)
		out[i] = r
	}
	return out, nil
}
