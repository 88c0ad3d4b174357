package reports

import (
	"context"
	"time"

	"github.com/smallbiznis/analytics/internal/config"
	"github.com/smallbiznis/analytics/internal/reports/domain"
	"github.com/smallbiznis/analytics/internal/reports/repository"
	"github.com/smallbiznis/analytics/internal/reports/service"
	"github.com/smallbiznis/analytics/internal/reports/timeseries"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("reports.service",
	fx.Provide(timeseries.NewTableReader),
	fx.Provide(repository.Provide),
	fx.Provide(service.NewDirectory),
	fx.Provide(service.New),
	fx.Invoke(runDirectory),
)

func runDirectory(lc fx.Lifecycle, dir *service.Directory, svc domain.Service, holder *config.ReportsFileHolder, cfg config.Config, log *zap.Logger) {
	log = log.Named("reports")
	interval := cfg.Analytics.ReportsRefreshInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(startCtx context.Context) error {
			if err := service.Seed(startCtx, svc, holder.Get()); err != nil {
				log.Warn("reports seed incomplete", zap.Error(err))
			}
			holder.OnChange(func(defs []config.ReportDefinition) {
				if err := service.Seed(ctx, svc, defs); err != nil {
					log.Warn("reports reseed incomplete", zap.Error(err))
				}
			})
			if err := dir.Reload(startCtx); err != nil {
				return err
			}
			go func() {
				defer close(done)
				dir.Run(ctx, interval)
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
			case <-stopCtx.Done():
			}
			return nil
		},
	})
}
