package timeseries

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/analytics/internal/reports/domain"
	"gorm.io/gorm"
)

const (
	columnDay   = "day"
	columnCount = "count"
	columnPivot = "pivot"
)

// TableReader loads the raw daily series stored in one report table.
type TableReader interface {
	ReadTable(ctx context.Context, table string) (map[string][]domain.XY, error)
}

type gormReader struct {
	db *gorm.DB
}

// NewTableReader reads report tables through db. Tables expose day and count columns
// and optionally a pivot column.
func NewTableReader(db *gorm.DB) TableReader {
	return &gormReader{db: db}
}

func (r *gormReader) ReadTable(ctx context.Context, table string) (map[string][]domain.XY, error) {
	if !domain.ValidIdentifier(table) {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidSourceTable, table)
	}

	var rows []map[string]any
	if err := r.db.WithContext(ctx).Table(table).Find(&rows).Error; err != nil {
		return nil, err
	}
	return classifyRows(rows)
}

// classifyRows splits rows into series. Rows with only day and count belong to the
// unpivoted series; rows with a pivot value belong to that pivot's series. Rows missing
// a day or count are skipped.
func classifyRows(rows []map[string]any) (map[string][]domain.XY, error) {
	series := make(map[string][]domain.XY)
	for _, row := range rows {
		rawDay, rawCount := row[columnDay], row[columnCount]
		if rawDay == nil || rawCount == nil {
			continue
		}
		day, err := toDay(rawDay)
		if err != nil {
			return nil, err
		}
		value, err := toFloat(rawCount)
		if err != nil {
			return nil, err
		}

		pivot := domain.NoPivot
		if len(row) != 2 {
			rawPivot := row[columnPivot]
			if rawPivot == nil {
				continue
			}
			pivot = toString(rawPivot)
		}
		series[pivot] = append(series[pivot], domain.NewXY(day, value))
	}
	return series, nil
}

func toDay(v any) (time.Time, error) {
	switch typed := v.(type) {
	case time.Time:
		return domain.TruncateDay(typed), nil
	case *time.Time:
		return domain.TruncateDay(*typed), nil
	case string:
		return domain.ParseDay(typed)
	case []byte:
		return domain.ParseDay(string(typed))
	default:
		return time.Time{}, fmt.Errorf("unsupported day value %T", v)
	}
}

func toFloat(v any) (float64, error) {
	switch typed := v.(type) {
	case float64:
		return typed, nil
	case float32:
		return float64(typed), nil
	case int64:
		return float64(typed), nil
	case int32:
		return float64(typed), nil
	case int:
		return float64(typed), nil
	case uint64:
		return float64(typed), nil
	case decimal.Decimal:
		return typed.InexactFloat64(), nil
	case string:
		return parseNumber(typed)
	case []byte:
		return parseNumber(string(typed))
	default:
		return 0, fmt.Errorf("unsupported count value %T", v)
	}
}

func parseNumber(value string) (float64, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return 0, fmt.Errorf("invalid count %q: %w", value, err)
	}
	return d.InexactFloat64(), nil
}

func toString(v any) string {
	switch typed := v.(type) {
	case string:
		return typed
	case []byte:
		return string(typed)
	case int64:
		return strconv.FormatInt(typed, 10)
	default:
		return fmt.Sprint(v)
	}
}
