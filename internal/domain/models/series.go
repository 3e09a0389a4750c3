package models

import "time"

// RawSample is a reading as it leaves the event store: Unix seconds plus
// nanoseconds and a value, no zone attached.
type RawSample struct {
	Seconds int64   `json:"seconds"`
	Nanos   int64   `json:"nanos"`
	Value   float64 `json:"value"`
}

// RawFromTime converts a stored instant back into its boundary form.
func RawFromTime(t time.Time, v float64) RawSample {
	return RawSample{Seconds: t.Unix(), Nanos: int64(t.Nanosecond()), Value: v}
}

// Sample is a zoned reading.
type Sample struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// Series is an ordered run of samples.
type Series []Sample

// Times returns the sample instants in order.
func (s Series) Times() []time.Time {
	out := make([]time.Time, len(s))
	for i, smp := range s {
		out[i] = smp.Time
	}
	return out
}

// Values returns the sample values in order.
func (s Series) Values() []float64 {
	out := make([]float64, len(s))
	for i, smp := range s {
		out[i] = smp.Value
	}
	return out
}

// MinMax returns the smallest and largest value. ok is false for an empty series.
func (s Series) MinMax() (lo, hi float64, ok bool) {
	if len(s) == 0 {
		return 0, 0, false
	}
	lo, hi = s[0].Value, s[0].Value
	for _, smp := range s[1:] {
		if smp.Value < lo {
			lo = smp.Value
		}
		if smp.Value > hi {
			hi = smp.Value
		}
	}
	return lo, hi, true
}

// AlignedMarker is a rendering position for a discrete event, derived from the
// primary curve. It is not a physical reading.
type AlignedMarker struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
	// Base is the curve height at Time before the display offset is applied.
	Base float64 `json:"base"`
}
