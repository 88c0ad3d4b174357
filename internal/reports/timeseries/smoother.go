package timeseries

import (
	"fmt"
	"strings"

	"github.com/smallbiznis/analytics/internal/reports/domain"
)

type SmootherType string

const (
	SmootherNone           SmootherType = "NONE"
	SmootherAverageWeekly  SmootherType = "AVERAGE_WEEKLY"
	SmootherAverageMonthly SmootherType = "AVERAGE_MONTHLY"
	SmootherSumWeekly      SmootherType = "SUM_WEEKLY"
	SmootherSumMonthly     SmootherType = "SUM_MONTHLY"
)

const (
	weekDays  = 7
	monthDays = 30
)

// Smoother transforms the values of every series independently. The day axis is never changed.
type Smoother interface {
	Smooth(data domain.ReportData) domain.ReportData
}

// ParseSmootherType matches names case-insensitively, treating '-' as '_'.
func ParseSmootherType(name string) (SmootherType, error) {
	normalized := SmootherType(strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(name), "-", "_")))
	switch normalized {
	case SmootherNone, SmootherAverageWeekly, SmootherAverageMonthly, SmootherSumWeekly, SmootherSumMonthly:
		return normalized, nil
	default:
		return "", fmt.Errorf("%w: %q", domain.ErrUnknownSmoother, name)
	}
}

func NewSmoother(t SmootherType) (Smoother, error) {
	switch t {
	case SmootherNone:
		return noneSmoother{}, nil
	case SmootherAverageWeekly:
		return windowSmoother{window: weekDays, average: true}, nil
	case SmootherAverageMonthly:
		return windowSmoother{window: monthDays, average: true}, nil
	case SmootherSumWeekly:
		return windowSmoother{window: weekDays}, nil
	case SmootherSumMonthly:
		return windowSmoother{window: monthDays}, nil
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownSmoother, t)
	}
}

type noneSmoother struct{}

func (noneSmoother) Smooth(data domain.ReportData) domain.ReportData { return data }

// windowSmoother replaces each value with the sum or mean of the trailing window ending on
// it. Near the start of the axis the window covers only the points that exist.
type windowSmoother struct {
	window  int
	average bool
}

func (s windowSmoother) Smooth(data domain.ReportData) domain.ReportData {
	out := make(domain.ReportData, len(data))
	for report, pivots := range data {
		out[report] = make(map[string][]domain.XY, len(pivots))
		for pivot, points := range pivots {
			out[report][pivot] = s.series(points)
		}
	}
	return out
}

func (s windowSmoother) series(points []domain.XY) []domain.XY {
	smoothed := make([]domain.XY, len(points))
	sum := 0.0
	for i, p := range points {
		sum += p.Y
		if i >= s.window {
			sum -= points[i-s.window].Y
		}
		size := min(i+1, s.window)
		value := sum
		if s.average {
			value = sum / float64(size)
		}
		smoothed[i] = domain.XY{X: p.X, Y: value}
	}
	return smoothed
}
