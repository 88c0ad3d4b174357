package timeseries

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/smallbiznis/analytics/internal/reports/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func day(d int) time.Time {
	return time.Date(2013, time.January, d, 0, 0, 0, 0, time.UTC)
}

func ptr(t time.Time) *time.Time { return &t }

func snapshot() domain.Snapshot {
	return domain.Snapshot{
		"signups": {Name: "signups", PrettyName: "Signups", SourceTableName: "signups"},
		"churn":   {Name: "churn", PrettyName: "Churn", SourceTableName: "churn"},
	}
}

type fakeReader struct {
	tables   map[string]map[string][]domain.XY
	fail     map[string]error
	inflight atomic.Int32
	peak     atomic.Int32
}

func (f *fakeReader) ReadTable(_ context.Context, table string) (map[string][]domain.XY, error) {
	n := f.inflight.Add(1)
	defer f.inflight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	if err := f.fail[table]; err != nil {
		return nil, err
	}
	return f.tables[table], nil
}

func TestAlignFillsGapsInsideExplicitRange(t *testing.T) {
	data := domain.ReportData{"signups": {domain.NoPivot: {
		domain.NewXY(day(3), 5),
		domain.NewXY(day(1), 3),
	}}}

	aligned, err := Align(data, nil, ptr(day(1)), ptr(day(3)), 0)
	require.NoError(t, err)

	assert.Equal(t, []domain.XY{
		{X: day(1), Y: 3},
		{X: day(2), Y: 0},
		{X: day(3), Y: 5},
	}, aligned["signups"][domain.NoPivot])
}

func TestAlignInfersAxisAcrossAllSeries(t *testing.T) {
	data := domain.ReportData{
		"signups": {domain.NoPivot: {domain.NewXY(day(2), 1)}},
		"churn":   {"gold": {domain.NewXY(day(4), 2)}, "silver": {domain.NewXY(day(3), 7)}},
	}

	aligned, err := Align(data, nil, nil, nil, 0)
	require.NoError(t, err)

	for report, pivots := range aligned {
		for pivot, points := range pivots {
			require.Len(t, points, 3, "%s/%s", report, pivot)
			assert.Equal(t, day(2), points[0].X)
			assert.Equal(t, day(4), points[2].X)
		}
	}
	assert.Equal(t, 7.0, aligned["churn"]["silver"][1].Y)
}

func TestAlignOneSidedBound(t *testing.T) {
	data := domain.ReportData{"signups": {domain.NoPivot: {
		domain.NewXY(day(1), 1),
		domain.NewXY(day(5), 5),
	}}}

	aligned, err := Align(data, nil, ptr(day(3)), nil, 0)
	require.NoError(t, err)
	points := aligned["signups"][domain.NoPivot]
	require.Len(t, points, 3)
	assert.Equal(t, day(3), points[0].X)
	assert.Equal(t, 5.0, points[2].Y)
}

func TestAlignSumsDuplicateDays(t *testing.T) {
	data := domain.ReportData{"signups": {domain.NoPivot: {
		domain.NewXY(day(1), 1),
		domain.NewXY(day(1).Add(6*time.Hour), 2),
	}}}

	aligned, err := Align(data, nil, nil, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, []domain.XY{{X: day(1), Y: 3}}, aligned["signups"][domain.NoPivot])
}

func TestAlignPivotFilters(t *testing.T) {
	data := func() domain.ReportData {
		return domain.ReportData{"churn": {
			"gold":   {domain.NewXY(day(1), 1)},
			"silver": {domain.NewXY(day(1), 2)},
			"bronze": {domain.NewXY(day(1), 3)},
		}}
	}

	included, err := Align(data(), []domain.ReportSpecification{{Name: "churn", Include: []string{"gold"}, Exclude: []string{"gold"}}}, nil, nil, 0)
	require.NoError(t, err)
	assert.Len(t, included["churn"], 1)
	assert.Contains(t, included["churn"], "gold")

	excluded, err := Align(data(), []domain.ReportSpecification{{Name: "churn", Exclude: []string{"bronze"}}}, nil, nil, 0)
	require.NoError(t, err)
	assert.Len(t, excluded["churn"], 2)
	assert.NotContains(t, excluded["churn"], "bronze")
}

func TestAlignErrors(t *testing.T) {
	_, err := Align(domain.ReportData{"signups": {}}, nil, nil, nil, 0)
	assert.ErrorIs(t, err, domain.ErrEmptyTimeSeries)

	_, err = Align(domain.ReportData{}, nil, ptr(day(5)), ptr(day(1)), 0)
	assert.ErrorIs(t, err, domain.ErrInvalidDateRange)

	aligned, err := Align(domain.ReportData{"signups": {domain.NoPivot: nil}}, nil, ptr(day(1)), ptr(day(2)), 0)
	require.NoError(t, err)
	assert.Len(t, aligned["signups"][domain.NoPivot], 2)
}

func TestAlignRejectsSpanPastLimit(t *testing.T) {
	data := domain.ReportData{"signups": {domain.NoPivot: {{X: day(1), Y: 1}}}}

	aligned, err := Align(data, nil, ptr(day(1)), ptr(day(10)), 10)
	require.NoError(t, err)
	assert.Len(t, aligned["signups"][domain.NoPivot], 10)

	_, err = Align(data, nil, ptr(day(1)), ptr(day(11)), 10)
	assert.ErrorIs(t, err, domain.ErrInvalidDateRange)

	first := time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC)
	_, err = Align(data, nil, &first, &last, 3660)
	assert.ErrorIs(t, err, domain.ErrInvalidDateRange)

	_, err = Align(domain.ReportData{"signups": {domain.NoPivot: {{X: day(1), Y: 1}, {X: day(20), Y: 2}}}}, nil, nil, nil, 10)
	assert.ErrorIs(t, err, domain.ErrInvalidDateRange)
}

func TestParseSmootherType(t *testing.T) {
	for _, name := range []string{"none", "AVERAGE_WEEKLY", "average-monthly", " sum_weekly ", "Sum-Monthly"} {
		_, err := ParseSmootherType(name)
		assert.NoError(t, err, name)
	}
	_, err := ParseSmootherType("median")
	assert.ErrorIs(t, err, domain.ErrUnknownSmoother)
	_, err = ParseSmootherType("")
	assert.ErrorIs(t, err, domain.ErrUnknownSmoother)
}

func TestWindowSmoothers(t *testing.T) {
	points := make([]domain.XY, 10)
	for i := range points {
		points[i] = domain.XY{X: day(i + 1), Y: float64(i + 1)}
	}
	data := domain.ReportData{"signups": {domain.NoPivot: points}}

	sum, err := NewSmoother(SmootherSumWeekly)
	require.NoError(t, err)
	summed := sum.Smooth(data)["signups"][domain.NoPivot]
	assert.Equal(t, 1.0, summed[0].Y)
	assert.Equal(t, 28.0, summed[6].Y)
	assert.Equal(t, 49.0, summed[9].Y)

	avg, err := NewSmoother(SmootherAverageWeekly)
	require.NoError(t, err)
	averaged := avg.Smooth(data)["signups"][domain.NoPivot]
	assert.Equal(t, 1.5, averaged[1].Y)
	assert.Equal(t, 7.0, averaged[9].Y)

	monthly, err := NewSmoother(SmootherAverageMonthly)
	require.NoError(t, err)
	assert.Equal(t, 5.5, monthly.Smooth(data)["signups"][domain.NoPivot][9].Y)

	for i := range summed {
		assert.Equal(t, points[i].X, summed[i].X, "smoothing must keep the axis")
	}
	assert.Equal(t, 1.0, points[0].Y, "input must not be modified")
}

func TestNoneSmootherKeepsValues(t *testing.T) {
	data := domain.ReportData{"signups": {domain.NoPivot: {{X: day(1), Y: 4}}}}
	s, err := NewSmoother(SmootherNone)
	require.NoError(t, err)
	assert.Equal(t, data, s.Smooth(data))
}

func TestAssembleNamesAndOrder(t *testing.T) {
	data := domain.ReportData{
		"signups": {domain.NoPivot: {{X: day(1), Y: 1}}},
		"churn":   {"silver": {{X: day(1), Y: 2}}, "gold": {{X: day(1), Y: 3}}},
	}

	series, err := Assemble(data, snapshot())
	require.NoError(t, err)
	require.Len(t, series, 3)
	assert.Equal(t, "Churn (gold)", series[0].Name)
	assert.Equal(t, "Churn (silver)", series[1].Name)
	assert.Equal(t, "Signups", series[2].Name)
	assert.Empty(t, series[2].PivotName)

	assert.Equal(t, data, Disassemble(series))
}

func TestAssembleRequiresConfiguration(t *testing.T) {
	_, err := Assemble(domain.ReportData{"unknown": {domain.NoPivot: nil}}, snapshot())
	assert.ErrorIs(t, err, domain.ErrReportNotConfigured)
	assert.True(t, domain.IsConfigurationError(err))
}

func TestClassifyRows(t *testing.T) {
	rows := []map[string]any{
		{"day": "2013-01-01", "count": int64(3)},
		{"day": day(2), "count": []byte("2.5"), "pivot": "gold"},
		{"day": "2013-01-03", "count": 1.0, "pivot": nil},
		{"day": nil, "count": 4.0},
	}

	series, err := classifyRows(rows)
	require.NoError(t, err)
	assert.Equal(t, []domain.XY{{X: day(1), Y: 3}}, series[domain.NoPivot])
	assert.Equal(t, []domain.XY{{X: day(2), Y: 2.5}}, series["gold"])
	assert.Len(t, series, 2)
}

func TestFetchBoundsConcurrency(t *testing.T) {
	reader := &fakeReader{tables: map[string]map[string][]domain.XY{}}
	configs := domain.Snapshot{}
	var specs []domain.ReportSpecification
	for _, name := range []string{"a", "b", "c", "d", "e", "f"} {
		configs[name] = domain.ReportConfiguration{Name: name, PrettyName: name, SourceTableName: name}
		reader.tables[name] = map[string][]domain.XY{domain.NoPivot: {{X: day(1), Y: 1}}}
		specs = append(specs, domain.ReportSpecification{Name: name})
	}

	data, err := NewFetcher(reader, 2, zap.NewNop(), nil).Fetch(context.Background(), specs, configs)
	require.NoError(t, err)
	assert.Len(t, data, 6)
	assert.LessOrEqual(t, reader.peak.Load(), int32(2))
}

func TestFetchUnknownReport(t *testing.T) {
	reader := &fakeReader{}
	_, err := NewFetcher(reader, 2, nil, nil).Fetch(context.Background(), []domain.ReportSpecification{{Name: "nope"}}, snapshot())
	assert.ErrorIs(t, err, domain.ErrReportNotConfigured)
	assert.Zero(t, reader.peak.Load(), "no job may start for an unconfigured report")
}

func TestFetchFailsWholeRequestOnOneJobFailure(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock: %v", err)
	}
	defer sqlDB.Close()
	mock.MatchExpectationsInOrder(false)

	conn, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT \* FROM "signups"`).
		WillReturnRows(sqlmock.NewRows([]string{"day", "count"}).AddRow("2013-01-01", 3))
	mock.ExpectQuery(`SELECT \* FROM "churn"`).
		WillReturnError(errors.New("relation churn does not exist"))

	specs := []domain.ReportSpecification{{Name: "signups"}, {Name: "churn"}}
	data, err := NewFetcher(NewTableReader(conn), 2, zap.NewNop(), nil).Fetch(context.Background(), specs, snapshot())

	require.Error(t, err)
	assert.Nil(t, data)
	var jobErr *domain.FetchJobError
	require.ErrorAs(t, err, &jobErr)
	assert.Equal(t, "churn", jobErr.ReportName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTableReaderRejectsUnsafeNames(t *testing.T) {
	_, err := NewTableReader(nil).ReadTable(context.Background(), "signups; DROP TABLE accounts")
	assert.ErrorIs(t, err, domain.ErrInvalidSourceTable)
}
