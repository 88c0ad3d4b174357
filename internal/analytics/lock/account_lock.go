package lock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/smallbiznis/analytics/internal/analytics/domain"
	"github.com/smallbiznis/analytics/internal/config"
	"github.com/smallbiznis/analytics/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const redisPollInterval = 50 * time.Millisecond

type Params struct {
	fx.In

	Log     *zap.Logger
	Config  config.Config
	Redis   *RedisLocker              `optional:"true"`
	Metrics *metrics.AnalyticsMetrics `optional:"true"`
}

// Lease is a distributed, expiring lock held under a token.
type Lease interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error)
	Extend(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key, token string) error
}

// AccountLocker serializes rebuilds of the same account. Within a process a keyed
// semaphore is used; across processes the Redis lease is taken as well when configured.
// A held lease is renewed every third of its TTL until released.
type AccountLocker struct {
	log     *zap.Logger
	redis   Lease
	metrics *metrics.AnalyticsMetrics
	ttl     time.Duration
	wait    time.Duration

	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

func New(p Params) *AccountLocker {
	var lease Lease
	if p.Redis != nil {
		lease = p.Redis
	}
	return NewAccountLocker(p.Log, lease, p.Metrics, p.Config.Analytics.LockTTL, p.Config.Analytics.LockWait)
}

func NewAccountLocker(log *zap.Logger, redis Lease, m *metrics.AnalyticsMetrics, ttl, wait time.Duration) *AccountLocker {
	if log == nil {
		log = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if wait <= 0 {
		wait = 30 * time.Second
	}
	return &AccountLocker{
		log:     log.Named("analytics.lock"),
		redis:   redis,
		metrics: m,
		ttl:     ttl,
		wait:    wait,
		slots:   make(map[string]*slot),
	}
}

// Acquire blocks until key is free or the wait budget is spent, in which case it returns ErrAccountBusy.
func (l *AccountLocker) Acquire(ctx context.Context, key string) (func(), error) {
	start := time.Now()
	waitCtx, cancel := context.WithTimeout(ctx, l.wait)
	defer cancel()

	s := l.ref(key)
	select {
	case s.ch <- struct{}{}:
	case <-waitCtx.Done():
		l.unref(key)
		return nil, l.busy(ctx, waitCtx)
	}

	token, err := l.acquireRedis(waitCtx, key)
	if err != nil {
		<-s.ch
		l.unref(key)
		return nil, err
	}
	l.metrics.ObserveLockWait(time.Since(start))

	stopRenew := func() {}
	if token != "" {
		stopRenew = l.renew(key, token)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			stopRenew()
			if token != "" {
				releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				if err := l.redis.Release(releaseCtx, key, token); err != nil {
					l.log.Warn("release account lock failed", zap.String("key", key), zap.Error(err))
				}
				cancel()
			}
			<-s.ch
			l.unref(key)
		})
	}, nil
}

func (l *AccountLocker) acquireRedis(ctx context.Context, key string) (string, error) {
	if l.redis == nil {
		return "", nil
	}

	ticker := time.NewTicker(redisPollInterval)
	defer ticker.Stop()

	for {
		token, ok, err := l.redis.TryLock(ctx, key, l.ttl)
		if err != nil && ctx.Err() == nil {
			return "", err
		}
		if ok {
			return token, nil
		}

		select {
		case <-ctx.Done():
			return "", domain.ErrAccountBusy
		case <-ticker.C:
		}
	}
}

// renew extends the lease until the returned stop function is called. A lease found
// expired or taken over is logged and no longer renewed.
func (l *AccountLocker) renew(key, token string) func() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		interval := l.ttl / 3
		if interval <= 0 {
			interval = l.ttl
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			ok, err := l.redis.Extend(ctx, key, token, l.ttl)
			if ctx.Err() != nil {
				return
			}
			if err != nil {
				l.log.Warn("extend account lock failed", zap.String("key", key), zap.Error(err))
				continue
			}
			if !ok {
				l.log.Error("account lock lease lost", zap.String("key", key))
				return
			}
		}
	}()
	return func() {
		cancel()
		<-done
	}
}

func (l *AccountLocker) busy(parent, waitCtx context.Context) error {
	if err := parent.Err(); err != nil {
		return err
	}
	if errors.Is(waitCtx.Err(), context.DeadlineExceeded) {
		return domain.ErrAccountBusy
	}
	return waitCtx.Err()
}

func (l *AccountLocker) ref(key string) *slot {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	return s
}

func (l *AccountLocker) unref(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.slots[key]
	if !ok {
		return
	}
	s.refs--
	if s.refs <= 0 {
		delete(l.slots, key)
	}
}
