package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GlucoPlot/internal/services/plot"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestDefaults(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	assert.Equal(t, "UTC", c.Timezone)
	assert.Equal(t, 4.0, c.Glucose.Low)
	assert.Equal(t, 10.0, c.Glucose.High)
	assert.Equal(t, 6.0, c.Glucose.Target)
	assert.Equal(t, plot.DefaultBandLayout(), c.Plot.Layout)
	assert.Equal(t, 10*time.Second, c.Server.ReadTimeout)
	assert.Equal(t, "sqlite", c.Store.Backend)
	assert.Equal(t, time.Monday, c.WeekStart())
	assert.Equal(t, plot.SortStable, c.OrderPolicy())

	set, err := c.WeekdaySet()
	require.NoError(t, err)
	assert.Equal(t, plot.DefaultWeekdays, set)
}

func TestLoadOverridesDefaults(t *testing.T) {
	p := writeConfig(t, `
timezone: Europe/Stockholm
glucose: {low: 3.9, high: 8, target: 5.5}
plot:
  layout:
    headroom: 0
    target_band: false
  weekdays: [0, 1, 2, 3, 4, 5, 6]
  week_start: sunday
  order_policy: strict
`)
	c, err := Load(p)
	require.NoError(t, err)

	assert.Equal(t, "Europe/Stockholm", c.Location().String())
	assert.Equal(t, 3.9, c.Glucose.Low)
	assert.False(t, c.Plot.Layout.TargetBand)
	assert.Zero(t, c.Plot.Layout.Headroom)
	assert.Equal(t, 2.0, c.Plot.Layout.YFloor)
	assert.Equal(t, time.Sunday, c.WeekStart())
	assert.Equal(t, plot.Strict, c.OrderPolicy())

	set, err := c.WeekdaySet()
	require.NoError(t, err)
	assert.Equal(t, plot.AllWeekdays, set)
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]string{
		"thresholds":      `glucose: {low: 10, high: 4, target: 6}`,
		"target outside":  `glucose: {low: 4, high: 10, target: 12}`,
		"timezone":        `timezone: Mars/Olympus`,
		"weekday":         `plot: {weekdays: [7]}`,
		"backend":         `store: {backend: mongo}`,
		"clickhouse host": `store: {backend: clickhouse}`,
		"kafka brokers":   `kafka: {enabled: true, brokers: []}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestLoadWithEnv(t *testing.T) {
	t.Setenv("GLUCOPLOT_TIMEZONE", "America/New_York")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("REDIS_ADDR", "cache:6379")
	t.Setenv("STORE_BACKEND", "sqlite")

	c, err := LoadWithEnv("")
	require.NoError(t, err)
	assert.Equal(t, "America/New_York", c.Timezone)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
	assert.True(t, c.Kafka.Enabled)
	assert.True(t, c.Redis.Enabled)
	assert.Equal(t, "cache:6379", c.Redis.Addr)
}

func TestLoadSampleConfig(t *testing.T) {
	c, err := Load(filepath.Join("..", "..", "config", "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "Europe/Stockholm", c.Timezone)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
