package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"gorm.io/gorm"
)

func TestClassifyErrorReason(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{name: "deadline", err: context.DeadlineExceeded, want: ReasonDeadlineExceeded},
		{name: "db_lock_timeout", err: &pgconn.PgError{Code: "55P03"}, want: ReasonDBLockTimeout},
		{name: "serialization_failure", err: fmt.Errorf("commit: %w", &pgconn.PgError{Code: "40001"}), want: ReasonSerializationFailure},
		{name: "unique_violation", err: gorm.ErrDuplicatedKey, want: ReasonUniqueViolation},
		{name: "other_pg", err: &pgconn.PgError{Code: "42P01"}, want: ReasonDB},
		{name: "unknown", err: errors.New("boom"), want: ReasonUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifyErrorReason(tc.err); got != tc.want {
				t.Fatalf("expected reason %q, got %q", tc.want, got)
			}
		})
	}
}

func TestObserveRebuild(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewAnalyticsMetrics(registry, Config{ServiceName: "analytics", Environment: "test"})

	m.ObserveRebuild("subscriptions", 10*time.Millisecond, nil)
	m.ObserveRebuild("subscriptions", 10*time.Millisecond, errors.New("boom"))
	m.ObserveRebuild("tags", time.Millisecond, nil)

	if got := testutil.ToFloat64(m.rebuilds.WithLabelValues("subscriptions", ResultSuccess)); got != 1 {
		t.Fatalf("expected 1 successful subscriptions rebuild, got %v", got)
	}
	if got := testutil.ToFloat64(m.rebuilds.WithLabelValues("subscriptions", ResultFailure)); got != 1 {
		t.Fatalf("expected 1 failed subscriptions rebuild, got %v", got)
	}
}

func TestFetchJobsAndFactRows(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewAnalyticsMetrics(registry, Config{})

	m.IncFetchJob(nil)
	m.IncFetchJob(nil)
	m.IncFetchJob(errors.New("read failed"))
	m.AddFactRows("analytics_bundles", 3)
	m.AddFactRows("analytics_bundles", 0)

	if got := testutil.ToFloat64(m.fetchJobs.WithLabelValues(ResultSuccess)); got != 2 {
		t.Fatalf("expected 2 successful fetch jobs, got %v", got)
	}
	if got := testutil.ToFloat64(m.fetchJobs.WithLabelValues(ResultFailure)); got != 1 {
		t.Fatalf("expected 1 failed fetch job, got %v", got)
	}
	if got := testutil.ToFloat64(m.factRows.WithLabelValues("analytics_bundles")); got != 3 {
		t.Fatalf("expected 3 bundle rows, got %v", got)
	}
}

func TestNilMetricsAreNoop(t *testing.T) {
	var m *AnalyticsMetrics
	m.ObserveRebuild("tags", time.Second, nil)
	m.IncRebuildError("tags", "commit", errors.New("boom"))
	m.IncFetchJob(nil)
	m.ObserveLockWait(time.Second)
}
