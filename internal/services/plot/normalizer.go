package plot

import (
	"fmt"
	"sort"
	"time"

	"GlucoPlot/internal/domain/models"
)

// OrderPolicy decides what Normalize does with out-of-order input.
type OrderPolicy int

const (
	// SortStable sorts ascending by instant, keeping input order for ties.
	SortStable OrderPolicy = iota
	// Strict rejects input that is not already non-decreasing.
	Strict
)

const nanosPerSecond = int64(time.Second)

var (
	minInstant = time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC)
	maxInstant = time.Date(9999, time.December, 31, 23, 59, 59, 999999999, time.UTC)
)

// Normalizer turns raw store samples into a zoned, time ordered Series.
type Normalizer struct {
	loc    *time.Location
	policy OrderPolicy
}

// NormalizerOption configures a Normalizer.
type NormalizerOption func(*Normalizer)

// WithOrderPolicy overrides the default SortStable policy.
func WithOrderPolicy(p OrderPolicy) NormalizerOption {
	return func(n *Normalizer) {
		n.policy = p
	}
}

// NewNormalizer creates a Normalizer for the given zone. A nil zone means UTC.
func NewNormalizer(loc *time.Location, opts ...NormalizerOption) *Normalizer {
	if loc == nil {
		loc = time.UTC
	}
	n := &Normalizer{loc: loc, policy: SortStable}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Location returns the zone samples are converted to.
func (n *Normalizer) Location() *time.Location { return n.loc }

// Normalize converts raw samples. The input slice is not modified.
func (n *Normalizer) Normalize(raw []models.RawSample) (models.Series, error) {
	out := make(models.Series, len(raw))
	sorted := true
	for i, r := range raw {
		t, err := instant(r.Seconds, r.Nanos)
		if err != nil {
			return nil, fmt.Errorf("sample %d: %w", i, err)
		}
		out[i] = models.Sample{Time: t.In(n.loc), Value: r.Value}
		if i > 0 && out[i].Time.Before(out[i-1].Time) {
			sorted = false
		}
	}
	if sorted {
		return out, nil
	}
	if n.policy == Strict {
		return nil, ErrUnsortedInput
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Time.Before(out[j].Time)
	})
	return out, nil
}

// NormalizeTimes is Normalize for event streams where only the instant matters.
func (n *Normalizer) NormalizeTimes(raw []models.RawSample) ([]time.Time, error) {
	s, err := n.Normalize(raw)
	if err != nil {
		return nil, err
	}
	return s.Times(), nil
}

func instant(sec, nsec int64) (time.Time, error) {
	if nsec < 0 || nsec >= nanosPerSecond {
		return time.Time{}, fmt.Errorf("%w: nanos %d outside [0, 1e9)", ErrInvalidTimestamp, nsec)
	}
	if sec < minInstant.Unix() || sec > maxInstant.Unix() {
		return time.Time{}, fmt.Errorf("%w: seconds %d not representable", ErrInvalidTimestamp, sec)
	}
	return time.Unix(sec, nsec), nil
}
