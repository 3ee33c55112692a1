package analytics

import (
	"strings"
	"time"

	"fintrack/internal/core"
)

// trendMonths is the length of the default trend window, current month included.
const trendMonths = 12

// Resolver turns optional date strings and month/year pairs into inclusive windows.
type Resolver struct {
	loc *time.Location
	now func() time.Time
}

func NewResolver(loc *time.Location, now func() time.Time) *Resolver {
	if loc == nil {
		loc = time.Local
	}
	if now == nil {
		now = time.Now
	}
	return &Resolver{loc: loc, now: now}
}

// Now is the current instant in the resolver's location.
func (r *Resolver) Now() time.Time { return r.now().In(r.loc) }

func (r *Resolver) Location() *time.Location { return r.loc }

// CurrentMonth spans the 1st 00:00:00.000 to the last day 23:59:59.999 of this month.
func (r *Resolver) CurrentMonth() core.Range {
	now := r.Now()
	return monthRange(now.Year(), now.Month(), r.loc)
}

// Month validates the pair and returns its calendar-month bounds.
func (r *Resolver) Month(month, year int) (core.Range, error) {
	if err := core.ValidateMonth(month, year); err != nil {
		return core.Range{}, err
	}
	return monthRange(year, time.Month(month), r.loc), nil
}

// Window resolves the range for breakdown reports. With neither bound given it
// is the current month; with one given the other side stays open.
func (r *Resolver) Window(startDate, endDate string) (core.Range, error) {
	if strings.TrimSpace(startDate) == "" && strings.TrimSpace(endDate) == "" {
		return r.CurrentMonth(), nil
	}
	return r.Bounds(startDate, endDate)
}

// TrendWindow resolves the range for trend series. A missing end is now; a
// missing start is midnight on the 1st of the month eleven months before the end.
func (r *Resolver) TrendWindow(startDate, endDate string) (core.Range, error) {
	rng, err := r.Bounds(startDate, endDate)
	if err != nil {
		return core.Range{}, err
	}
	if rng.End.IsZero() {
		rng.End = r.Now()
	}
	if rng.Start.IsZero() {
		end := rng.End.In(r.loc)
		rng.Start = time.Date(end.Year(), end.Month()-(trendMonths-1), 1, 0, 0, 0, 0, r.loc)
	}
	// A lone start after now leaves nothing to report.
	if rng.End.Before(rng.Start) {
		return core.Range{}, core.NewValidationError("startDate", core.ErrInvalidRange)
	}
	return rng, nil
}

// Bounds parses whichever bounds are present and applies no defaults.
func (r *Resolver) Bounds(startDate, endDate string) (core.Range, error) {
	var rng core.Range
	var err error
	if s := strings.TrimSpace(startDate); s != "" {
		if rng.Start, err = r.parse("startDate", s, false); err != nil {
			return core.Range{}, err
		}
	}
	if s := strings.TrimSpace(endDate); s != "" {
		if rng.End, err = r.parse("endDate", s, true); err != nil {
			return core.Range{}, err
		}
	}
	if !rng.Start.IsZero() && !rng.End.IsZero() && rng.End.Before(rng.Start) {
		return core.Range{}, core.NewValidationError("endDate", core.ErrInvalidRange)
	}
	return rng, nil
}

var zonedLayouts = []string{time.RFC3339Nano}

var localLayouts = []string{"2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02 15:04:05"}

// parse reads s as a timestamp. A bare date as an end bound covers the whole day.
func (r *Resolver) parse(field, s string, endOfDay bool) (time.Time, error) {
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, r.loc); err == nil {
			return t, nil
		}
	}
	if t, err := time.ParseInLocation(time.DateOnly, s, r.loc); err == nil {
		if endOfDay {
			t = t.AddDate(0, 0, 1).Add(-time.Millisecond)
		}
		return t, nil
	}
	return time.Time{}, core.NewValidationError(field, core.ErrInvalidDate)
}

func monthRange(year int, month time.Month, loc *time.Location) core.Range {
	start := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	return core.Range{
		Start: start,
		End:   start.AddDate(0, 1, 0).Add(-time.Millisecond),
	}
}
