package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internalrepo "GlucoPlot/internal/repository"
	"GlucoPlot/internal/usecase"
	"GlucoPlot/pkg/metrics"
)

func TestImportEvents(t *testing.T) {
	ctx := context.Background()
	store, err := internalrepo.NewSQLiteEventStore(":memory:", nil)
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.Init(ctx))

	path := filepath.Join(t.TempDir(), "events.jsonl")
	body := `{"kind":"glucose","time":{"seconds":1709539200},"value":5.5}

{"kind":"glucose","time":{"seconds":1709539500},"value":6.1,"trend":"flat"}
{"kind":"insulin","time":{"seconds":1709539400},"value":4,"insulin_type":"rapid"}
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	h := usecase.NewEventsHandler("", store, metrics.New(), nil, nil)
	n, err := importEvents(ctx, h, path)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	latest, err := store.LatestGlucose(ctx, 5)
	require.NoError(t, err)
	require.Len(t, latest, 2)
}

func TestImportEventsReportsLine(t *testing.T) {
	ctx := context.Background()
	store, err := internalrepo.NewSQLiteEventStore(":memory:", nil)
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.Init(ctx))

	path := filepath.Join(t.TempDir(), "bad.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{\"kind\":\"glucose\",\"time\":{\"seconds\":1709539200},\"value\":5}\nnot json\n"), 0o644))

	h := usecase.NewEventsHandler("", store, metrics.New(), nil, nil)
	n, err := importEvents(ctx, h, path)
	require.Error(t, err)
	assert.Equal(t, 1, n)
	assert.Contains(t, err.Error(), "bad.jsonl:2")
}

func TestParseFlagTime(t *testing.T) {
	got, err := parseFlagTime("start", "")
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	got, err = parseFlagTime("start", "2024-03-04T08:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.March, 4, 8, 0, 0, 0, time.UTC), got)

	_, err = parseFlagTime("end", "yesterday")
	assert.ErrorContains(t, err, "--end")
}
