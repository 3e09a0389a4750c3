package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"GlucoPlot/internal/domain/models"
)

type StatsTestSuite struct {
	suite.Suite
	start time.Time
}

func TestStatsTestSuite(t *testing.T) {
	suite.Run(t, new(StatsTestSuite))
}

func (s *StatsTestSuite) SetupTest() {
	s.start = time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)
}

// readings builds one reading every five minutes with the given values.
func (s *StatsTestSuite) readings(values ...float64) []models.GlucoseReading {
	out := make([]models.GlucoseReading, len(values))
	for i, v := range values {
		out[i] = models.GlucoseReading{Time: s.start.Add(time.Duration(i*5) * time.Minute), Mmol: v, Trend: "Flat"}
	}
	return out
}

func (s *StatsTestSuite) TestTimeSpentInRange() {
	ra := TimeSpentInRange(s.readings(3, 4, 5, 6, 7, 8, 9, 10, 11, 12), 4, 10)
	assert.InDelta(s.T(), 0.2, ra.BelowRange, 1e-9, "limit itself counts as below")
	assert.InDelta(s.T(), 0.5, ra.InRange, 1e-9)
	assert.InDelta(s.T(), 0.3, ra.AboveRange, 1e-9, "limit itself counts as above")
}

func (s *StatsTestSuite) TestTimeSpentInRangeEmpty() {
	assert.Equal(s.T(), models.RangeAnalysis{}, TimeSpentInRange(nil, 4, 10))
}

func (s *StatsTestSuite) TestGlucoseSummary() {
	ss := GlucoseSummary(s.readings(6, 6, 6, 6))
	assert.Equal(s.T(), 6.0, ss.Average)
	assert.Equal(s.T(), 0.0, ss.Deviation)

	ss = GlucoseSummary(s.readings(2, 4, 4, 4, 5, 5, 7, 9))
	assert.InDelta(s.T(), 5.0, ss.Average, 1e-9)
	assert.InDelta(s.T(), 2.0, ss.Deviation, 1e-9)
	assert.Equal(s.T(), 2.0, ss.Min)
	assert.Equal(s.T(), 9.0, ss.Max)

	assert.Equal(s.T(), models.SummaryStatistics{}, GlucoseSummary(nil))
}

func (s *StatsTestSuite) TestDailyAggregate() {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		s.T().Skip("zone database unavailable")
	}
	doses := []models.InsulinDose{
		// 2024-03-05 03:00 UTC is still March 4th in New York
		{Time: s.start.Add(27 * time.Hour), Type: "rapid", Amount: 4},
		{Time: s.start.Add(14 * time.Hour), Type: "slow", Amount: 20},
		{Time: s.start.Add(15 * time.Hour), Type: "rapid", Amount: 6},
		{Time: s.start.Add(40 * time.Hour), Type: "rapid", Amount: 3},
	}
	carbs := []models.CarbIntake{
		{Time: s.start.Add(15 * time.Hour), Amount: 45},
		{Time: s.start.Add(64 * time.Hour), Amount: 30},
	}

	days := DailyAggregate(doses, carbs, loc)
	require.Len(s.T(), days, 3)

	assert.Equal(s.T(), 4, days[0].Day.Day())
	assert.Equal(s.T(), 10.0, days[0].Rapid)
	assert.Equal(s.T(), 20.0, days[0].Slow)
	assert.Equal(s.T(), 45.0, days[0].Carbs)

	assert.Equal(s.T(), 5, days[1].Day.Day())
	assert.Equal(s.T(), 3.0, days[1].Rapid)

	assert.Equal(s.T(), 6, days[2].Day.Day())
	assert.Equal(s.T(), 30.0, days[2].Carbs)
	assert.Equal(s.T(), loc, days[2].Day.Location())
}
