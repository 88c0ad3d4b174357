package listener

import (
	"context"

	"go.uber.org/fx"
)

var Module = fx.Module("analytics.listener",
	fx.Provide(New),
	fx.Invoke(runListener),
)

func runListener(lc fx.Lifecycle, l *Listener) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				l.RunForever(ctx)
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
