package stats

import (
	"sort"
	"time"

	"github.com/montanaflynn/stats"

	"GlucoPlot/internal/domain/models"
	"GlucoPlot/pkg/util"
)

// TimeSpentInRange returns the share of readings at or below low, strictly
// between the limits, and at or above high.
func TimeSpentInRange(readings []models.GlucoseReading, low, high float64) models.RangeAnalysis {
	if len(readings) == 0 {
		return models.RangeAnalysis{}
	}

	below, above := 0.0, 0.0
	for _, r := range readings {
		switch {
		case r.Mmol <= low:
			below++
		case r.Mmol >= high:
			above++
		}
	}
	total := float64(len(readings))
	return models.RangeAnalysis{
		BelowRange: below / total,
		InRange:    (total - below - above) / total,
		AboveRange: above / total,
	}
}

// GlucoseSummary computes mean, population deviation and extremes.
// An empty input yields zero values.
func GlucoseSummary(readings []models.GlucoseReading) models.SummaryStatistics {
	if len(readings) == 0 {
		return models.SummaryStatistics{}
	}
	data := make(stats.Float64Data, len(readings))
	for i, r := range readings {
		data[i] = r.Mmol
	}
	// errors are only returned for empty input
	avg, _ := data.Mean()
	dev, _ := data.StandardDeviation()
	lo, _ := data.Min()
	hi, _ := data.Max()
	return models.SummaryStatistics{Average: avg, Deviation: dev, Min: lo, Max: hi}
}

// DailyAggregate totals doses and carbs per local calendar day, oldest first.
// Doses whose type is not slow acting count as rapid.
func DailyAggregate(doses []models.InsulinDose, carbs []models.CarbIntake, loc *time.Location) []models.DailyIntake {
	if loc == nil {
		loc = time.UTC
	}
	days := make(map[time.Time]*models.DailyIntake)
	day := func(t time.Time) *models.DailyIntake {
		key := util.StartOfDay(t, loc)
		d, ok := days[key]
		if !ok {
			d = &models.DailyIntake{Day: key}
			days[key] = d
		}
		return d
	}

	for _, in := range doses {
		d := day(in.Time)
		if in.Type == models.SlowActing.String() {
			d.Slow += in.Amount
		} else {
			d.Rapid += in.Amount
		}
	}
	for _, c := range carbs {
		day(c.Time).Carbs += c.Amount
	}

	out := make([]models.DailyIntake, 0, len(days))
	for _, d := range days {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day.Before(out[j].Day) })
	return out
}
