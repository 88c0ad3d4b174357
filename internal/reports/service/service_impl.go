package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/smallbiznis/analytics/internal/clock"
	"github.com/smallbiznis/analytics/internal/config"
	"github.com/smallbiznis/analytics/internal/observability/metrics"
	"github.com/smallbiznis/analytics/internal/observability/tracing"
	"github.com/smallbiznis/analytics/internal/reports/domain"
	"github.com/smallbiznis/analytics/internal/reports/timeseries"
	"github.com/smallbiznis/analytics/pkg/db"
	"github.com/smallbiznis/analytics/pkg/db/pagination"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Repo      domain.Repository
	Directory *Directory
	GenID     *snowflake.Node
	Clock     clock.Clock
	Config    config.Config
	Reader    timeseries.TableReader    `optional:"true"`
	Metrics   *metrics.AnalyticsMetrics `optional:"true"`
	OTel      *metrics.Metrics          `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	repo    domain.Repository
	dir     *Directory
	genID   *snowflake.Node
	clock   clock.Clock
	fetcher *timeseries.Fetcher
	metrics *metrics.AnalyticsMetrics
	otel    *metrics.Metrics
	maxDays int
}

func New(p Params) domain.Service {
	reader := p.Reader
	if reader == nil {
		reader = timeseries.NewTableReader(p.DB)
	}
	log := p.Log.Named("reports.service")
	return &Service{
		db:      p.DB,
		log:     log,
		repo:    p.Repo,
		dir:     p.Directory,
		genID:   p.GenID,
		clock:   p.Clock,
		fetcher: timeseries.NewFetcher(reader, p.Config.Analytics.FetchWorkers, p.Log, p.Metrics),
		metrics: p.Metrics,
		otel:    p.OTel,
		maxDays: p.Config.Analytics.ReportsMaxDays,
	}
}

// GetTimeSeriesForReports fetches, aligns, smooths and names the requested reports.
// An empty smoother name means no smoothing.
func (s *Service) GetTimeSeriesForReports(ctx context.Context, req domain.TimeSeriesRequest) (result []domain.NamedSeries, err error) {
	ctx, span := tracing.Start(ctx, "reports.GetTimeSeriesForReports",
		attribute.Int("reports.count", len(req.Reports)),
		attribute.String("reports.smoother", req.Smoother),
	)
	start := time.Now()
	smootherName := string(timeseries.SmootherNone)
	defer func() {
		s.metrics.ObserveReportRequest(time.Since(start), err)
		resultLabel := metrics.ResultSuccess
		if err != nil {
			resultLabel = metrics.ResultFailure
		}
		s.otel.RecordReportRequest(ctx, smootherName, resultLabel)
		tracing.End(span, err)
	}()

	if len(req.Reports) == 0 {
		return nil, domain.ErrNoReports
	}
	specs, err := domain.ParseReportSpecifications(req.Reports)
	if err != nil {
		return nil, err
	}

	smootherType := timeseries.SmootherNone
	if strings.TrimSpace(req.Smoother) != "" {
		smootherType, err = timeseries.ParseSmootherType(req.Smoother)
		if err != nil {
			return nil, err
		}
	}
	smootherName = string(smootherType)
	smoother, err := timeseries.NewSmoother(smootherType)
	if err != nil {
		return nil, err
	}

	snapshot := s.dir.Snapshot()
	data, err := s.fetcher.Fetch(ctx, specs, snapshot)
	if err != nil {
		return nil, err
	}
	aligned, err := timeseries.Align(data, specs, req.StartDate, req.EndDate, s.maxDays)
	if err != nil {
		return nil, err
	}
	series, err := timeseries.Assemble(smoother.Smooth(aligned), snapshot)
	if err != nil {
		return nil, err
	}

	s.log.Debug("report series assembled",
		zap.Strings("reports", req.Reports),
		zap.String("smoother", smootherName),
		zap.Int("series", len(series)),
	)
	return series, nil
}

func (s *Service) CreateReport(ctx context.Context, req domain.CreateRequest) (*domain.ReportConfiguration, error) {
	prettyName := strings.TrimSpace(req.PrettyName)
	name := strings.TrimSpace(req.Name)
	if name == "" && prettyName != "" {
		name = slug.Make(prettyName)
	}
	if prettyName == "" {
		prettyName = name
	}

	now := s.clock.Now()
	cfg := &domain.ReportConfiguration{
		ID:               s.genID.Generate(),
		Name:             name,
		PrettyName:       prettyName,
		SourceTableName:  strings.TrimSpace(req.SourceTableName),
		RefreshProcedure: strings.TrimSpace(req.RefreshProcedure),
		RefreshFrequency: strings.ToUpper(strings.TrimSpace(req.RefreshFrequency)),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.repo.FindByName(ctx, s.db, cfg.Name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrReportExists, cfg.Name)
	}
	if err := s.repo.Create(ctx, s.db, cfg); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrReportExists, cfg.Name)
		}
		return nil, err
	}

	s.reload(ctx)
	s.log.Info("report created", zap.String("report", cfg.Name), zap.String("table", cfg.SourceTableName))
	return cfg, nil
}

func (s *Service) UpdateReport(ctx context.Context, name string, req domain.UpdateRequest) (*domain.ReportConfiguration, error) {
	cfg, err := s.find(ctx, name)
	if err != nil {
		return nil, err
	}

	if req.PrettyName != nil {
		cfg.PrettyName = strings.TrimSpace(*req.PrettyName)
		if cfg.PrettyName == "" {
			cfg.PrettyName = cfg.Name
		}
	}
	if req.SourceTableName != nil {
		cfg.SourceTableName = strings.TrimSpace(*req.SourceTableName)
	}
	if req.RefreshProcedure != nil {
		cfg.RefreshProcedure = strings.TrimSpace(*req.RefreshProcedure)
	}
	if req.RefreshFrequency != nil {
		cfg.RefreshFrequency = strings.ToUpper(strings.TrimSpace(*req.RefreshFrequency))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cfg.UpdatedAt = s.clock.Now()
	if err := s.repo.Update(ctx, s.db, cfg); err != nil {
		return nil, err
	}

	s.reload(ctx)
	s.log.Info("report updated", zap.String("report", cfg.Name))
	return cfg, nil
}

func (s *Service) DeleteReport(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	deleted, err := s.repo.Delete(ctx, s.db, name)
	if err != nil {
		return err
	}
	if deleted == 0 {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, name)
	}

	s.reload(ctx)
	s.log.Info("report deleted", zap.String("report", name))
	return nil
}

func (s *Service) GetReport(ctx context.Context, name string) (*domain.ReportConfiguration, error) {
	return s.find(ctx, name)
}

func (s *Service) ListReports(ctx context.Context, req domain.ListRequest) (*domain.ListResponse, error) {
	page := pagination.Pagination{PageToken: req.PageToken, PageSize: req.PageSize}
	limit := page.Size()

	var afterID snowflake.ID
	if token := strings.TrimSpace(page.PageToken); token != "" {
		cursor, err := pagination.DecodeCursor(token)
		if err != nil {
			return nil, fmt.Errorf("%w: page token", domain.ErrInvalidReportSpecification)
		}
		afterID, err = snowflake.ParseString(cursor.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: page token", domain.ErrInvalidReportSpecification)
		}
	}

	items, err := s.repo.List(ctx, s.db, afterID, limit+1)
	if err != nil {
		return nil, err
	}
	items, info, err := pagination.BuildCursorPageInfo(items, limit, func(cfg domain.ReportConfiguration) pagination.Cursor {
		return pagination.Cursor{ID: cfg.ID.String()}
	})
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.ReportConfiguration{}
	}
	return &domain.ListResponse{
		Reports:       items,
		NextPageToken: info.NextPageToken,
		HasMore:       info.HasMore,
	}, nil
}

// RefreshReport runs the report's refresh procedure, which rebuilds its source table.
func (s *Service) RefreshReport(ctx context.Context, name string) error {
	cfg, err := s.find(ctx, name)
	if err != nil {
		return err
	}
	if cfg.RefreshProcedure == "" {
		return nil
	}
	if !domain.ValidIdentifier(cfg.RefreshProcedure) {
		return domain.ErrInvalidRefreshSettings
	}

	start := time.Now()
	if err := s.db.WithContext(ctx).Exec("CALL " + cfg.RefreshProcedure + "()").Error; err != nil {
		return fmt.Errorf("refresh report %s: %w", cfg.Name, err)
	}
	s.log.Info("report refreshed",
		zap.String("report", cfg.Name),
		zap.String("procedure", cfg.RefreshProcedure),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}

func (s *Service) find(ctx context.Context, name string) (*domain.ReportConfiguration, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.ErrInvalidReportName
	}
	cfg, err := s.repo.FindByName(ctx, s.db, name)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, name)
	}
	return cfg, nil
}

// reload refreshes the directory after a write. A failure only delays visibility until
// the next periodic reload.
func (s *Service) reload(ctx context.Context) {
	if err := s.dir.Reload(ctx); err != nil {
		s.log.Warn("report directory reload failed", zap.Error(err))
	}
}
