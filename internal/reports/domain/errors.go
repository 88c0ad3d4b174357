package domain

import (
	"errors"
	"fmt"
)

var (
	ErrReportNotConfigured        = errors.New("report_not_configured")
	ErrUnknownSmoother            = errors.New("unknown_smoother")
	ErrInvalidReportSpecification = errors.New("invalid_report_specification")
	ErrEmptyTimeSeries            = errors.New("empty_time_series")
	ErrInvalidDateRange           = errors.New("invalid_date_range")
	ErrInvalidReportName          = errors.New("invalid_report_name")
	ErrInvalidSourceTable         = errors.New("invalid_source_table")
	ErrInvalidRefreshSettings     = errors.New("invalid_refresh_settings")
	ErrReportExists               = errors.New("report_already_exists")
	ErrNotFound                   = errors.New("not_found")
	ErrNoReports                  = errors.New("no_reports_requested")
)

// FetchJobError reports the failure of one report's read job.
type FetchJobError struct {
	ReportName string
	Err        error
}

func (e *FetchJobError) Error() string {
	return fmt.Sprintf("fetch report %s: %v", e.ReportName, e.Err)
}

func (e *FetchJobError) Unwrap() error {
	return e.Err
}

// IsConfigurationError reports caller mistakes that must not be retried.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrReportNotConfigured) ||
		errors.Is(err, ErrUnknownSmoother) ||
		errors.Is(err, ErrInvalidReportSpecification) ||
		errors.Is(err, ErrInvalidReportName) ||
		errors.Is(err, ErrInvalidSourceTable) ||
		errors.Is(err, ErrInvalidRefreshSettings) ||
		errors.Is(err, ErrNoReports)
}

// IsPreconditionError reports requests whose data or bounds cannot produce an axis.
func IsPreconditionError(err error) bool {
	return errors.Is(err, ErrEmptyTimeSeries) || errors.Is(err, ErrInvalidDateRange)
}
