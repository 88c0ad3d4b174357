package timeseries

import (
	"context"
	"errors"
	"fmt"

	"github.com/smallbiznis/analytics/internal/observability/metrics"
	"github.com/smallbiznis/analytics/internal/reports/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const DefaultWorkers = 10

// Fetcher reads every requested report concurrently on a bounded pool.
type Fetcher struct {
	reader  TableReader
	workers int
	log     *zap.Logger
	metrics *metrics.AnalyticsMetrics
}

func NewFetcher(reader TableReader, workers int, log *zap.Logger, m *metrics.AnalyticsMetrics) *Fetcher {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Fetcher{
		reader:  reader,
		workers: workers,
		log:     log.Named("reports.fetcher"),
		metrics: m,
	}
}

// Fetch runs one read job per distinct report and waits for all of them. If any job
// fails no data is returned; the error joins every FetchJobError.
func (f *Fetcher) Fetch(ctx context.Context, specs []domain.ReportSpecification, configs domain.Snapshot) (domain.ReportData, error) {
	type job struct {
		report string
		table  string
	}

	seen := make(map[string]struct{}, len(specs))
	jobs := make([]job, 0, len(specs))
	for _, spec := range specs {
		if _, dup := seen[spec.Name]; dup {
			continue
		}
		seen[spec.Name] = struct{}{}
		cfg, ok := configs.Lookup(spec.Name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrReportNotConfigured, spec.Name)
		}
		jobs = append(jobs, job{report: spec.Name, table: cfg.SourceTableName})
	}

	results := make([]map[string][]domain.XY, len(jobs))
	failures := make([]error, len(jobs))

	g := new(errgroup.Group)
	g.SetLimit(f.workers)
	for i, j := range jobs {
		g.Go(func() error {
			series, err := f.reader.ReadTable(ctx, j.table)
			f.metrics.IncFetchJob(err)
			if err != nil {
				f.log.Warn("fetch job failed",
					zap.String("report", j.report),
					zap.String("table", j.table),
					zap.Error(err),
				)
				failures[i] = &domain.FetchJobError{ReportName: j.report, Err: err}
				return failures[i]
			}
			results[i] = series
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Join(failures...)
	}

	data := make(domain.ReportData, len(jobs))
	for i, j := range jobs {
		if results[i] == nil {
			results[i] = map[string][]domain.XY{}
		}
		data[j.report] = results[i]
	}
	return data, nil
}
