package metrics

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultBusy    = "busy"
)

const (
	ReasonDeadlineExceeded     = "deadline_exceeded"
	ReasonDBLockTimeout        = "db_lock_timeout"
	ReasonSerializationFailure = "serialization_failure"
	ReasonUniqueViolation      = "unique_violation"
	ReasonDB                   = "db"
	ReasonUnknown              = "unknown"
)

// AnalyticsMetrics captures rebuild and report engine health.
type AnalyticsMetrics struct {
	rebuilds        *prometheus.CounterVec
	rebuildDuration *prometheus.HistogramVec
	rebuildErrors   *prometheus.CounterVec
	factRows        *prometheus.CounterVec
	fetchJobs       *prometheus.CounterVec
	reportDuration  *prometheus.HistogramVec
	refreshQueue    *prometheus.GaugeVec
	lockWait        prometheus.Observer
}

var (
	analyticsMetricsOnce sync.Once
	analyticsMetrics     *AnalyticsMetrics
)

// AnalyticsWithConfig returns the process wide collectors registered on the default registry,
// labelled with the service and environment of cfg.
func AnalyticsWithConfig(cfg Config) *AnalyticsMetrics {
	analyticsMetricsOnce.Do(func() {
		analyticsMetrics = NewAnalyticsMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return analyticsMetrics
}

// NewAnalyticsMetrics registers a fresh collector set on registerer.
func NewAnalyticsMetrics(registerer prometheus.Registerer, cfg Config) *AnalyticsMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "analytics"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{"service": serviceName, "env": environment}

	m := &AnalyticsMetrics{
		rebuilds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "analytics_rebuilds_total",
			Help:        "Account rebuilds by kind and result.",
			ConstLabels: constLabels,
		}, []string{"kind", "result"}),
		rebuildDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "analytics_rebuild_duration_seconds",
			Help:        "Account rebuild latency by kind.",
			Buckets:     []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			ConstLabels: constLabels,
		}, []string{"kind"}),
		rebuildErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "analytics_rebuild_errors_total",
			Help:        "Failed account rebuilds by kind, stage and reason.",
			ConstLabels: constLabels,
		}, []string{"kind", "stage", "reason"}),
		factRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "analytics_fact_rows_written_total",
			Help:        "Fact rows committed by table.",
			ConstLabels: constLabels,
		}, []string{"table"}),
		fetchJobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "analytics_fetch_jobs_total",
			Help:        "Report fetch jobs by result.",
			ConstLabels: constLabels,
		}, []string{"result"}),
		reportDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "analytics_report_request_duration_seconds",
			Help:        "Time series aggregation latency.",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: constLabels,
		}, []string{"result"}),
		refreshQueue: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "analytics_refresh_queue_claimed",
			Help:        "Refresh requests claimed by the last worker poll.",
			ConstLabels: constLabels,
		}, []string{"kind"}),
	}

	lockWait := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        "analytics_account_lock_wait_seconds",
		Help:        "Time spent waiting for the account rebuild lock.",
		Buckets:     []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		ConstLabels: constLabels,
	})
	m.lockWait = lockWait

	registerer.MustRegister(
		m.rebuilds,
		m.rebuildDuration,
		m.rebuildErrors,
		m.factRows,
		m.fetchJobs,
		m.reportDuration,
		m.refreshQueue,
		lockWait,
	)
	return m
}

func (m *AnalyticsMetrics) ObserveRebuild(kind string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	result := ResultSuccess
	if err != nil {
		result = ResultFailure
	}
	m.rebuilds.WithLabelValues(kind, result).Inc()
	m.rebuildDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

func (m *AnalyticsMetrics) IncRebuildError(kind, stage string, err error) {
	if m == nil || err == nil {
		return
	}
	m.rebuildErrors.WithLabelValues(kind, stage, ClassifyErrorReason(err)).Inc()
}

func (m *AnalyticsMetrics) AddFactRows(table string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.factRows.WithLabelValues(table).Add(float64(count))
}

func (m *AnalyticsMetrics) IncFetchJob(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.fetchJobs.WithLabelValues(ResultFailure).Inc()
		return
	}
	m.fetchJobs.WithLabelValues(ResultSuccess).Inc()
}

func (m *AnalyticsMetrics) ObserveReportRequest(duration time.Duration, err error) {
	if m == nil {
		return
	}
	result := ResultSuccess
	if err != nil {
		result = ResultFailure
	}
	m.reportDuration.WithLabelValues(result).Observe(duration.Seconds())
}

func (m *AnalyticsMetrics) SetRefreshClaimed(kind string, count int) {
	if m == nil {
		return
	}
	m.refreshQueue.WithLabelValues(kind).Set(float64(count))
}

func (m *AnalyticsMetrics) ObserveLockWait(duration time.Duration) {
	if m == nil {
		return
	}
	m.lockWait.Observe(duration.Seconds())
}

// ClassifyErrorReason maps err to a low-cardinality label.
func ClassifyErrorReason(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ReasonDeadlineExceeded
	}
	if hasPGCode(err, "55P03") {
		return ReasonDBLockTimeout
	}
	if hasPGCode(err, "40001") {
		return ReasonSerializationFailure
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || hasPGCode(err, "23505") {
		return ReasonUniqueViolation
	}
	if isDBError(err) {
		return ReasonDB
	}
	return ReasonUnknown
}

func hasPGCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == code
	}
	return false
}

func isDBError(err error) bool {
	if errors.Is(err, gorm.ErrInvalidDB) ||
		errors.Is(err, gorm.ErrInvalidTransaction) ||
		errors.Is(err, gorm.ErrInvalidField) ||
		errors.Is(err, gorm.ErrInvalidData) ||
		errors.Is(err, gorm.ErrMissingWhereClause) ||
		errors.Is(err, gorm.ErrUnsupportedDriver) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr)
}
