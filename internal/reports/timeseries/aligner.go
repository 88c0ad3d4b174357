package timeseries

import (
	"fmt"
	"time"

	"github.com/smallbiznis/analytics/internal/reports/domain"
)

// Align filters pivots and dates, then lays every series onto one contiguous daily axis
// in ascending order. Bounds are inclusive days and a missing bound is inferred from the
// remaining points. Points sharing a day are summed. An axis longer than maxDays is rejected;
// maxDays <= 0 disables the limit.
func Align(data domain.ReportData, specs []domain.ReportSpecification, start, end *time.Time, maxDays int) (domain.ReportData, error) {
	startDay, endDay := dayPtr(start), dayPtr(end)
	if startDay != nil && endDay != nil && startDay.After(*endDay) {
		return nil, fmt.Errorf("%w: %s after %s", domain.ErrInvalidDateRange, domain.FormatDay(*startDay), domain.FormatDay(*endDay))
	}

	filters := make(map[string]domain.ReportSpecification, len(specs))
	for _, spec := range specs {
		if _, ok := filters[spec.Name]; !ok {
			filters[spec.Name] = spec
		}
	}

	kept := make(map[string]map[string]map[time.Time]float64, len(data))
	var minDay, maxDay time.Time
	hasPoints := false
	for report, pivots := range data {
		spec, filtered := filters[report]
		kept[report] = make(map[string]map[time.Time]float64, len(pivots))
		for pivot, points := range pivots {
			if filtered && !spec.Keep(pivot) {
				continue
			}
			byDay := make(map[time.Time]float64, len(points))
			for _, p := range points {
				day := domain.TruncateDay(p.X)
				if startDay != nil && day.Before(*startDay) {
					continue
				}
				if endDay != nil && day.After(*endDay) {
					continue
				}
				byDay[day] += p.Y
				if !hasPoints || day.Before(minDay) {
					minDay = day
				}
				if !hasPoints || day.After(maxDay) {
					maxDay = day
				}
				hasPoints = true
			}
			kept[report][pivot] = byDay
		}
	}

	if startDay != nil {
		minDay = *startDay
	}
	if endDay != nil {
		maxDay = *endDay
	}
	if (startDay == nil || endDay == nil) && !hasPoints {
		return nil, domain.ErrEmptyTimeSeries
	}
	if minDay.After(maxDay) {
		return nil, fmt.Errorf("%w: %s after %s", domain.ErrInvalidDateRange, domain.FormatDay(minDay), domain.FormatDay(maxDay))
	}

	if maxDays > 0 && spanDays(minDay, maxDay) > maxDays {
		return nil, fmt.Errorf("%w: %s to %s spans more than %d days", domain.ErrInvalidDateRange, domain.FormatDay(minDay), domain.FormatDay(maxDay), maxDays)
	}

	axis := dayAxis(minDay, maxDay)
	out := make(domain.ReportData, len(kept))
	for report, pivots := range kept {
		out[report] = make(map[string][]domain.XY, len(pivots))
		for pivot, byDay := range pivots {
			series := make([]domain.XY, len(axis))
			for i, day := range axis {
				series[i] = domain.XY{X: day, Y: byDay[day]}
			}
			out[report][pivot] = series
		}
	}
	return out, nil
}

func dayAxis(from, to time.Time) []time.Time {
	var axis []time.Time
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		axis = append(axis, day)
	}
	return axis
}

// spanDays counts the days of an inclusive range. Ranges past the time.Duration limit saturate
// at roughly 106k days.
func spanDays(from, to time.Time) int {
	return int(to.Sub(from)/(24*time.Hour)) + 1
}

func dayPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	day := domain.TruncateDay(*t)
	return &day
}
