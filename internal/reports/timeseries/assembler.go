package timeseries

import (
	"fmt"
	"sort"

	"github.com/smallbiznis/analytics/internal/reports/domain"
)

// Assemble names every series for display. Reports and their pivots come out in
// lexicographic order; a report without configuration is an error.
func Assemble(data domain.ReportData, configs domain.Snapshot) ([]domain.NamedSeries, error) {
	reports := make([]string, 0, len(data))
	for report := range data {
		reports = append(reports, report)
	}
	sort.Strings(reports)

	var out []domain.NamedSeries
	for _, report := range reports {
		cfg, ok := configs.Lookup(report)
		if !ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrReportNotConfigured, report)
		}

		pivots := make([]string, 0, len(data[report]))
		for pivot := range data[report] {
			pivots = append(pivots, pivot)
		}
		sort.Strings(pivots)

		for _, pivot := range pivots {
			series := domain.NamedSeries{
				Name:       cfg.PrettyName,
				ReportName: report,
				Values:     data[report][pivot],
			}
			if pivot != domain.NoPivot {
				series.Name = fmt.Sprintf("%s (%s)", cfg.PrettyName, pivot)
				series.PivotName = pivot
			}
			out = append(out, series)
		}
	}
	return out, nil
}

// Disassemble rebuilds the report data an assembled list was produced from.
func Disassemble(series []domain.NamedSeries) domain.ReportData {
	data := make(domain.ReportData)
	for _, s := range series {
		pivot := s.PivotName
		if pivot == "" {
			pivot = domain.NoPivot
		}
		if data[s.ReportName] == nil {
			data[s.ReportName] = make(map[string][]domain.XY)
		}
		data[s.ReportName][pivot] = s.Values
	}
	return data
}
