package analytics

import (
	"github.com/smallbiznis/analytics/internal/analytics/listener"
	"github.com/smallbiznis/analytics/internal/analytics/lock"
	"github.com/smallbiznis/analytics/internal/analytics/repository"
	"github.com/smallbiznis/analytics/internal/analytics/service"
	"github.com/smallbiznis/analytics/internal/analytics/source"
	"go.uber.org/fx"
)

var Module = fx.Module("analytics.service",
	lock.Module,
	fx.Provide(source.NewReader),
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
	listener.Module,
)
