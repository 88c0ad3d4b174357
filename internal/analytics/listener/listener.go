package listener

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/smallbiznis/analytics/internal/analytics/domain"
	"github.com/smallbiznis/analytics/internal/clock"
	"github.com/smallbiznis/analytics/internal/config"
	obscontext "github.com/smallbiznis/analytics/internal/observability/context"
	obslogger "github.com/smallbiznis/analytics/internal/observability/logger"
	"github.com/smallbiznis/analytics/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	defaultWorkers      = 10
	defaultBatchSize    = 50
	defaultPollInterval = 2 * time.Second
	requestTimeout      = 10 * time.Minute
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Service domain.Service
	GenID   *snowflake.Node
	Clock   clock.Clock
	Config  config.Config
	Metrics *metrics.AnalyticsMetrics `optional:"true"`
	OTel    *metrics.Metrics          `optional:"true"`
}

// Listener turns domain events into queued refreshes and drains the queue.
type Listener struct {
	db           *gorm.DB
	log          *zap.Logger
	svc          domain.Service
	genID        *snowflake.Node
	clock        clock.Clock
	metrics      *metrics.AnalyticsMetrics
	otel         *metrics.Metrics
	workers      int
	batchSize    int
	pollInterval time.Duration
}

func New(p Params) *Listener {
	cfg := p.Config.Analytics
	l := &Listener{
		db:           p.DB,
		log:          p.Log.Named("analytics.listener"),
		svc:          p.Service,
		genID:        p.GenID,
		clock:        p.Clock,
		metrics:      p.Metrics,
		otel:         p.OTel,
		workers:      cfg.RebuildWorkers,
		batchSize:    cfg.RefreshBatchSize,
		pollInterval: cfg.RefreshPollInterval,
	}
	if l.workers <= 0 {
		l.workers = defaultWorkers
	}
	if l.batchSize <= 0 {
		l.batchSize = defaultBatchSize
	}
	if l.pollInterval <= 0 {
		l.pollInterval = defaultPollInterval
	}
	return l
}

// HandleEvent queues the refresh an event requires. It reports false for event types analytics ignores.
func (l *Listener) HandleEvent(ctx context.Context, event Event) (bool, error) {
	kind, ok := KindForEvent(event.Type)
	if !ok {
		l.log.Debug("ignoring event", zap.String("event_type", event.Type))
		return false, nil
	}
	if _, err := l.enqueue(ctx, kind, event.Type, event.AccountID, event.CallContext()); err != nil {
		return false, err
	}
	l.otel.RecordRefreshEvent(ctx, event.Type, string(kind))
	return true, nil
}

// EnqueueRefresh persists a refresh request for asynchronous processing.
func (l *Listener) EnqueueRefresh(ctx context.Context, kind domain.RefreshKind, accountID uuid.UUID, cc domain.CallContext) (snowflake.ID, error) {
	return l.enqueue(ctx, kind, "", accountID, cc)
}

func (l *Listener) enqueue(ctx context.Context, kind domain.RefreshKind, eventType string, accountID uuid.UUID, cc domain.CallContext) (snowflake.ID, error) {
	if !kind.Valid() {
		return 0, domain.ErrInvalidKind
	}
	if accountID == uuid.Nil {
		return 0, domain.ErrInvalidAccountID
	}

	req := RefreshRequest{
		ID:        l.genID.Generate(),
		AccountID: accountID.String(),
		Kind:      string(kind),
		EventType: eventType,
		Payload:   encodeCallContext(cc),
		Status:    StatusPending,
		CreatedAt: l.clock.Now(),
	}
	if err := l.db.WithContext(ctx).Create(&req).Error; err != nil {
		return 0, fmt.Errorf("enqueue refresh: %w", err)
	}
	l.log.Info("refresh enqueued",
		zap.String("request_id", req.ID.String()),
		zap.String("account_id", req.AccountID),
		zap.String("kind", req.Kind),
	)
	return req.ID, nil
}

// RunForever drains the queue every poll interval until ctx is done.
func (l *Listener) RunForever(ctx context.Context) {
	ticker := time.NewTicker(l.pollInterval)
	defer ticker.Stop()

	for {
		if err := l.RunOnce(ctx); err != nil {
			l.log.Warn("refresh run failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunOnce claims one batch of pending requests and processes it on the worker pool.
func (l *Listener) RunOnce(ctx context.Context) error {
	runID := ulid.Make().String()
	log := l.log.With(zap.String("run_id", runID))

	var pending []RefreshRequest
	if err := l.db.WithContext(ctx).
		Where("status = ?", StatusPending).
		Order("id ASC").
		Limit(l.batchSize).
		Find(&pending).Error; err != nil {
		return err
	}
	if len(pending) == 0 {
		return nil
	}

	claimed := make([]RefreshRequest, 0, len(pending))
	perKind := map[string]int{}
	for _, req := range pending {
		ok, err := l.claim(ctx, req.ID)
		if err != nil {
			return err
		}
		if ok {
			claimed = append(claimed, req)
			perKind[req.Kind]++
		}
	}
	for kind, count := range perKind {
		l.metrics.SetRefreshClaimed(kind, count)
	}
	log.Info("refresh batch claimed", zap.Int("pending", len(pending)), zap.Int("claimed", len(claimed)))

	var (
		mu     sync.Mutex
		runErr error
	)
	g := new(errgroup.Group)
	g.SetLimit(l.workers)
	for _, req := range claimed {
		g.Go(func() error {
			if err := l.process(req); err != nil {
				mu.Lock()
				runErr = errors.Join(runErr, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	for kind := range perKind {
		l.metrics.SetRefreshClaimed(kind, 0)
	}
	return runErr
}

func (l *Listener) claim(ctx context.Context, id snowflake.ID) (bool, error) {
	now := l.clock.Now()
	result := l.db.WithContext(ctx).
		Model(&RefreshRequest{}).
		Where("id = ? AND status = ?", id, StatusPending).
		Updates(map[string]any{"status": StatusProcessing, "started_at": now})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// process runs one claimed request on its own context so a stopping poller does not abandon it midway.
func (l *Listener) process(req RefreshRequest) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	ctx = obscontext.WithRequestID(ctx, req.ID.String())
	log := obslogger.WithContext(ctx, l.log)

	accountID, err := uuid.Parse(req.AccountID)
	if err != nil {
		return l.finish(ctx, req, fmt.Errorf("%w: %s", domain.ErrInvalidAccountID, req.AccountID))
	}
	cc := decodeCallContext(req.Payload)
	if cc.TenantID != nil {
		ctx = obscontext.WithTenantID(ctx, cc.TenantID.String())
	}

	err = l.svc.Refresh(ctx, domain.RefreshKind(req.Kind), accountID, cc)
	if err != nil {
		log.Warn("refresh failed", zap.String("kind", req.Kind), zap.Error(err))
	}
	return l.finish(ctx, req, err)
}

func (l *Listener) finish(ctx context.Context, req RefreshRequest, cause error) error {
	now := l.clock.Now()
	updates := map[string]any{"status": StatusCompleted, "completed_at": now}
	if cause != nil {
		updates["status"] = StatusFailed
		updates["error"] = errorSummary(cause)
	}
	if err := l.db.WithContext(ctx).
		Model(&RefreshRequest{}).
		Where("id = ?", req.ID).
		Updates(updates).Error; err != nil {
		return errors.Join(cause, err)
	}
	if cause != nil {
		return fmt.Errorf("refresh request %s: %w", req.ID, cause)
	}
	return nil
}

func encodeCallContext(cc domain.CallContext) datatypes.JSONMap {
	payload := datatypes.JSONMap{
		"user_name": cc.UserName,
		"reason":    cc.Reason,
		"comment":   cc.Comment,
	}
	if cc.TenantID != nil {
		payload["tenant_id"] = cc.TenantID.String()
	}
	return payload
}

func decodeCallContext(payload datatypes.JSONMap) domain.CallContext {
	var cc domain.CallContext
	if payload == nil {
		return cc
	}
	cc.UserName = payloadString(payload, "user_name")
	cc.Reason = payloadString(payload, "reason")
	cc.Comment = payloadString(payload, "comment")
	if raw := payloadString(payload, "tenant_id"); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			cc.TenantID = &id
		}
	}
	return cc
}

func payloadString(payload datatypes.JSONMap, key string) string {
	value, ok := payload[key].(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(value)
}

func errorSummary(err error) string {
	if err == nil {
		return ""
	}
	value := strings.TrimSpace(err.Error())
	if value == "" {
		return "unknown_error"
	}
	if len(value) > 256 {
		return value[:256]
	}
	return value
}
