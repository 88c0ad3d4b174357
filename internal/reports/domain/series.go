package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// NoPivot keys the series of a report whose rows carry no pivot column.
const NoPivot = "____NO_PIVOT____"

const dayLayout = "2006-01-02"

// XY is one daily point. X is always midnight UTC.
type XY struct {
	X time.Time
	Y float64
}

func NewXY(day time.Time, value float64) XY {
	return XY{X: TruncateDay(day), Y: value}
}

type xyJSON struct {
	X string  `json:"x"`
	Y float64 `json:"y"`
}

func (p XY) MarshalJSON() ([]byte, error) {
	return json.Marshal(xyJSON{X: p.X.Format(dayLayout), Y: p.Y})
}

func (p *XY) UnmarshalJSON(data []byte) error {
	var raw xyJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	day, err := ParseDay(raw.X)
	if err != nil {
		return err
	}
	p.X = day
	p.Y = raw.Y
	return nil
}

// ReportData maps report name to pivot name to points.
type ReportData map[string]map[string][]XY

// Points counts every point across all series.
func (d ReportData) Points() int {
	total := 0
	for _, pivots := range d {
		for _, points := range pivots {
			total += len(points)
		}
	}
	return total
}

// NamedSeries is one assembled series ready for display.
type NamedSeries struct {
	Name       string `json:"name"`
	ReportName string `json:"report_name"`
	PivotName  string `json:"pivot_name,omitempty"`
	Values     []XY   `json:"values"`
}

// TruncateDay drops the time of day, in UTC.
func TruncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDay reads the leading YYYY-MM-DD of value, so timestamps keep their calendar day.
func ParseDay(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if len(value) < len(dayLayout) {
		return time.Time{}, fmt.Errorf("invalid day %q", value)
	}
	day, err := time.Parse(dayLayout, value[:len(dayLayout)])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid day %q: %w", value, err)
	}
	return day, nil
}

// FormatDay renders a day as YYYY-MM-DD.
func FormatDay(t time.Time) string {
	return t.Format(dayLayout)
}
