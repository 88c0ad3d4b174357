package domain

import (
	"context"
	"time"
)

type Service interface {
	GetTimeSeriesForReports(ctx context.Context, req TimeSeriesRequest) ([]NamedSeries, error)

	CreateReport(ctx context.Context, req CreateRequest) (*ReportConfiguration, error)
	UpdateReport(ctx context.Context, name string, req UpdateRequest) (*ReportConfiguration, error)
	DeleteReport(ctx context.Context, name string) error
	GetReport(ctx context.Context, name string) (*ReportConfiguration, error)
	ListReports(ctx context.Context, req ListRequest) (*ListResponse, error)
	RefreshReport(ctx context.Context, name string) error
}

// TimeSeriesRequest selects reports, an optional inclusive day range and a smoother.
type TimeSeriesRequest struct {
	Reports   []string
	StartDate *time.Time
	EndDate   *time.Time
	Smoother  string
}

type CreateRequest struct {
	Name             string `json:"name"`
	PrettyName       string `json:"pretty_name"`
	SourceTableName  string `json:"source_table_name"`
	RefreshProcedure string `json:"refresh_procedure_name"`
	RefreshFrequency string `json:"refresh_frequency"`
}

type UpdateRequest struct {
	PrettyName       *string `json:"pretty_name"`
	SourceTableName  *string `json:"source_table_name"`
	RefreshProcedure *string `json:"refresh_procedure_name"`
	RefreshFrequency *string `json:"refresh_frequency"`
}

type ListRequest struct {
	PageToken string
	PageSize  int
}

type ListResponse struct {
	Reports       []ReportConfiguration `json:"reports"`
	NextPageToken string                `json:"next_page_token,omitempty"`
	HasMore       bool                  `json:"has_more"`
}
