package lock

import "go.uber.org/fx"

var Module = fx.Module("analytics.lock",
	fx.Provide(NewRedisClient),
	fx.Provide(NewRedisLocker),
	fx.Provide(New),
)
