package repository

import (
	"context"
	"errors"
	"time"

	"GlucoPlot/internal/domain/models"
)

// ErrNotFound is returned by stores when a key or id does not exist.
var ErrNotFound = errors.New("not found")

// EventReader serves the raw streams a chart is built from. Windows are
// half open: start <= t < end, ordered by time.
type EventReader interface {
	ReadGlucose(ctx context.Context, start, end time.Time) ([]models.GlucoseReading, error)
	ReadInsulin(ctx context.Context, start, end time.Time) ([]models.InsulinDose, error)
	ReadCarbs(ctx context.Context, start, end time.Time) ([]models.CarbIntake, error)
	LatestGlucose(ctx context.Context, n int) ([]models.GlucoseReading, error)
}

// EventWriter persists events. Writes are upserts keyed by event time; the
// bool result reports whether a row with that time already existed.
type EventWriter interface {
	WriteGlucose(ctx context.Context, r models.GlucoseReading) (bool, error)
	WriteInsulin(ctx context.Context, d models.InsulinDose) (bool, error)
	WriteCarbs(ctx context.Context, c models.CarbIntake) (bool, error)
}

type EventStore interface {
	EventReader
	EventWriter
	Init(ctx context.Context) error // ensure tables
	Health(ctx context.Context) error
	Close() error
}

// BlobStore keeps rendered images. Put is idempotent by name.
type BlobStore interface {
	Put(ctx context.Context, name, contentType string, data []byte) (models.FileRef, error)
	Get(ctx context.Context, id string) (models.Blob, error)
	Delete(ctx context.Context, id string) error
}

type Publisher interface {
	PublishPlotReady(ctx context.Context, ev models.PlotReady) error
	Close() error
}

type Metrics interface {
	RecordEvent(kind string)
	RecordError(kind string)
	RecordLastGlucose(mmol float64)
	RecordLatency(op string, seconds float64)
	RecordPlot(kind string)
}
