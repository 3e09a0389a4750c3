package plot

import (
	"fmt"
	"time"

	"GlucoPlot/internal/domain/models"
)

// Direction places markers above or below the curve.
type Direction int

const (
	Above Direction = iota
	Below
)

func (d Direction) String() string {
	if d == Below {
		return "below"
	}
	return "above"
}

// offsetDivisor scales the curve's dynamic range into the marker offset.
const offsetDivisor = 10

// Interpolate aligns marker instants onto the primary curve. Markers must be in
// ascending order; that precondition is not re-checked. Markers before the first
// sample take the first value, markers at or after the last sample take the last
// value, everything else is interpolated linearly between the bracketing samples.
// The display value is shifted by a tenth of the curve's range in dir.
func Interpolate(primary models.Series, markers []time.Time, dir Direction) ([]models.AlignedMarker, error) {
	if len(primary) == 0 {
		return nil, ErrEmptyPrimarySeries
	}

	lo, hi, _ := primary.MinMax()
	offset := (hi - lo) / offsetDivisor
	if dir == Below {
		offset = -offset
	}

	out := make([]models.AlignedMarker, 0, len(markers))
	prev := models.Sample{Time: primary[0].Time}
	i := 0
	for k, mx := range markers {
		for i < len(primary) && primary[i].Time.Before(mx) {
			prev = primary[i]
			i++
		}

		var base float64
		switch {
		case i == 0:
			base = primary[0].Value
		case i == len(primary):
			base = primary[len(primary)-1].Value
		default:
			v, err := lerp(prev, primary[i], mx)
			if err != nil {
				return nil, fmt.Errorf("marker %d at %s: %w", k, mx.Format(time.RFC3339), err)
			}
			base = v
		}
		out = append(out, models.AlignedMarker{Time: mx, Value: base + offset, Base: base})
	}
	return out, nil
}

// lerp interpolates the value at t on the segment a-b.
func lerp(a, b models.Sample, t time.Time) (float64, error) {
	span := b.Time.Sub(a.Time)
	if span <= 0 {
		return 0, ErrDegenerateInterval
	}
	frac := t.Sub(a.Time).Seconds() / span.Seconds()
	return a.Value + frac*(b.Value-a.Value), nil
}
