package plot

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"GlucoPlot/internal/domain/models"
	"GlucoPlot/pkg/util"
)

// WeekdaySet is a bitmask over time.Weekday (bit 0 = Sunday).
type WeekdaySet uint8

// AllWeekdays includes Sunday through Saturday.
const AllWeekdays WeekdaySet = 1<<7 - 1

// DefaultWeekdays is Sunday through Friday: six weekdays, Saturday left out.
const DefaultWeekdays WeekdaySet = AllWeekdays &^ (1 << time.Saturday)

// NewWeekdaySet builds a set from weekday numbers 0..6.
func NewWeekdaySet(days ...int) (WeekdaySet, error) {
	var s WeekdaySet
	for _, d := range days {
		if d < 0 || d > 6 {
			return 0, fmt.Errorf("weekday %d outside 0..6", d)
		}
		s |= 1 << uint(d)
	}
	return s, nil
}

// Has reports whether d is in the set.
func (s WeekdaySet) Has(d time.Weekday) bool { return s&(1<<uint(d)) != 0 }

// Days lists the included weekdays in Sunday-first order.
func (s WeekdaySet) Days() []time.Weekday {
	out := make([]time.Weekday, 0, 7)
	for d := time.Sunday; d <= time.Saturday; d++ {
		if s.Has(d) {
			out = append(out, d)
		}
	}
	return out
}

func (s WeekdaySet) String() string {
	names := make([]string, 0, 7)
	for _, d := range s.Days() {
		names = append(names, d.String()[:3])
	}
	return strings.Join(names, ",")
}

// WeekFold is a series folded onto a single canonical day, one bucket per weekday.
// Bucket times carry the original wall clock on the anchor date in UTC, so a
// time of day inside a DST gap of the anchor date is kept as is.
type WeekFold struct {
	// Anchor is local midnight of the canonical day.
	Anchor   time.Time
	Buckets  [7]models.Series
	Included WeekdaySet
}

// Extent is the union of time and value ranges over included, non-empty buckets.
func (f WeekFold) Extent() (Extent, error) {
	var ext Extent
	found := false
	for _, d := range f.Included.Days() {
		b := f.Buckets[d]
		if len(b) == 0 {
			continue
		}
		be, err := SeriesExtent(b)
		if err != nil {
			return Extent{}, err
		}
		if !found {
			ext, found = be, true
			continue
		}
		if be.XMin.Before(ext.XMin) {
			ext.XMin = be.XMin
		}
		if be.XMax.After(ext.XMax) {
			ext.XMax = be.XMax
		}
		if be.YMin < ext.YMin {
			ext.YMin = be.YMin
		}
		if be.YMax > ext.YMax {
			ext.YMax = be.YMax
		}
	}
	if !found {
		return Extent{}, ErrEmptyPrimarySeries
	}
	return ext, nil
}

// Folder maps a multi-day series onto the first day of its week.
type Folder struct {
	loc       *time.Location
	weekStart time.Weekday
	included  WeekdaySet
}

// FolderOption configures a Folder.
type FolderOption func(*Folder)

// WithWeekStart sets the weekday a week begins on (default Monday).
func WithWeekStart(d time.Weekday) FolderOption {
	return func(f *Folder) {
		f.weekStart = d
	}
}

// WithWeekdays sets which weekdays are folded (default DefaultWeekdays).
func WithWeekdays(s WeekdaySet) FolderOption {
	return func(f *Folder) {
		f.included = s
	}
}

// NewFolder creates a Folder working in loc. A nil zone means UTC.
func NewFolder(loc *time.Location, opts ...FolderOption) *Folder {
	if loc == nil {
		loc = time.UTC
	}
	f := &Folder{loc: loc, weekStart: time.Monday, included: DefaultWeekdays}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Included returns the folded weekday set.
func (f *Folder) Included() WeekdaySet { return f.included }

// StartOfWeek returns local midnight of the week containing t.
func (f *Folder) StartOfWeek(t time.Time) time.Time {
	t = t.In(f.loc)
	back := (int(t.Weekday()) - int(f.weekStart) + 7) % 7
	return util.StartOfDay(t.AddDate(0, 0, -back), f.loc)
}

// Fold shifts every sample by whole calendar days onto the anchor date, keeping
// its wall clock time, and buckets it by its original weekday.
func (f *Folder) Fold(primary models.Series) (WeekFold, error) {
	if len(primary) == 0 {
		return WeekFold{}, ErrEmptyPrimarySeries
	}
	anchor := f.StartOfWeek(primary[0].Time)
	fold := WeekFold{Anchor: anchor, Included: f.included}
	ay, am, ad := anchor.Date()

	for _, s := range primary {
		t := s.Time.In(f.loc)
		wd := t.Weekday()
		if !f.included.Has(wd) {
			continue
		}
		h, m, sec := t.Clock()
		folded := time.Date(ay, am, ad, h, m, sec, t.Nanosecond(), time.UTC)
		fold.Buckets[wd] = append(fold.Buckets[wd], models.Sample{Time: folded, Value: s.Value})
	}

	empty := true
	for d := range fold.Buckets {
		b := fold.Buckets[d]
		if len(b) == 0 {
			continue
		}
		empty = false
		sort.SliceStable(b, func(i, j int) bool { return b[i].Time.Before(b[j].Time) })
	}
	if empty {
		return WeekFold{}, fmt.Errorf("%w: no samples on %s", ErrEmptyPrimarySeries, f.included)
	}
	return fold, nil
}
