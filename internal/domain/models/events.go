package models

import "time"

// EventKind names a stream of measurements.
type EventKind string

const (
	KindGlucose EventKind = "glucose"
	KindInsulin EventKind = "insulin"
	KindCarbs   EventKind = "carbs"
)

// InsulinType distinguishes rapid from slow acting doses.
type InsulinType int

const (
	RapidActing InsulinType = iota
	SlowActing
)

func (it InsulinType) String() string {
	return [...]string{"rapid", "slow"}[it]
}

// GlucoseReading is one CGM reading.
type GlucoseReading struct {
	Time  time.Time `json:"time"`
	Mmol  float64   `json:"mmol"`
	Trend string    `json:"trend,omitempty"`
}

// InsulinDose is a logged insulin injection.
type InsulinDose struct {
	Time   time.Time
	Type   string
	Amount float64
}

// CarbIntake is a logged carbohydrate intake in grams.
type CarbIntake struct {
	Time   time.Time
	Amount float64
}

// EventTime mirrors a protobuf Timestamp on the wire.
type EventTime struct {
	Seconds int64 `json:"seconds" validate:"gt=0"`
	Nanos   int64 `json:"nanos" validate:"gte=0,lt=1000000000"`
}

// EventMessage is the JSON payload consumed from the events topic.
type EventMessage struct {
	Kind        EventKind `json:"kind" validate:"required,oneof=glucose insulin carbs"`
	Time        EventTime `json:"time"`
	Value       float64   `json:"value" validate:"gte=0"`
	Trend       string    `json:"trend,omitempty"`
	InsulinType string    `json:"insulin_type,omitempty" validate:"omitempty,oneof=rapid slow"`
}

// Instant returns the event time in UTC.
func (m EventMessage) Instant() time.Time {
	return time.Unix(m.Time.Seconds, m.Time.Nanos).UTC()
}

// PlotReady is published once a rendered plot is stored.
type PlotReady struct {
	Kind     string    `json:"kind"`
	File     FileRef   `json:"file"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Latest   float64   `json:"latest"`
	Rendered time.Time `json:"rendered"`
}
