package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/smallbiznis/analytics/internal/analytics/domain"
	"github.com/smallbiznis/analytics/internal/analytics/factory"
	"github.com/smallbiznis/analytics/internal/analytics/lock"
	obscontext "github.com/smallbiznis/analytics/internal/observability/context"
	"github.com/smallbiznis/analytics/internal/observability/metrics"
	"github.com/smallbiznis/analytics/internal/observability/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Source  domain.SourceReader
	Repo    domain.Repository
	Locker  *lock.AccountLocker       `optional:"true"`
	Metrics *metrics.AnalyticsMetrics `optional:"true"`
	OTel    *metrics.Metrics          `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	source  domain.SourceReader
	repo    domain.Repository
	locker  *lock.AccountLocker
	metrics *metrics.AnalyticsMetrics
	otel    *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("analytics.rebuild"),
		source:  p.Source,
		repo:    p.Repo,
		locker:  p.Locker,
		metrics: p.Metrics,
		otel:    p.OTel,
	}
}

type rebuildFunc func(ctx context.Context, accountID uuid.UUID, cc domain.CallContext) error

// Rebuild recomputes the account summary, subscription transitions and bundle summaries.
func (s *Service) Rebuild(ctx context.Context, accountID uuid.UUID, cc domain.CallContext) error {
	return s.run(ctx, domain.RefreshKindSubscriptions, accountID, cc, s.rebuildSubscriptions)
}

// RebuildTags replaces each non-empty tag table. An account without tags leaves existing rows untouched.
func (s *Service) RebuildTags(ctx context.Context, accountID uuid.UUID, cc domain.CallContext) error {
	return s.run(ctx, domain.RefreshKindTags, accountID, cc, s.rebuildTags)
}

func (s *Service) RebuildFields(ctx context.Context, accountID uuid.UUID, cc domain.CallContext) error {
	return s.run(ctx, domain.RefreshKindFields, accountID, cc, s.rebuildFields)
}

func (s *Service) RebuildOverdueStatuses(ctx context.Context, accountID uuid.UUID, cc domain.CallContext) error {
	return s.run(ctx, domain.RefreshKindOverdue, accountID, cc, s.rebuildOverdueStatuses)
}

func (s *Service) RebuildInvoices(ctx context.Context, accountID uuid.UUID, cc domain.CallContext) error {
	return s.run(ctx, domain.RefreshKindInvoices, accountID, cc, s.rebuildInvoices)
}

// RebuildAll runs every coordinator under one account lock. Each fact group commits on its
// own; the first failure stops the sequence.
func (s *Service) RebuildAll(ctx context.Context, accountID uuid.UUID, cc domain.CallContext) error {
	return s.run(ctx, domain.RefreshKindAll, accountID, cc, func(ctx context.Context, accountID uuid.UUID, cc domain.CallContext) error {
		for _, fn := range []rebuildFunc{
			s.rebuildSubscriptions,
			s.rebuildInvoices,
			s.rebuildTags,
			s.rebuildFields,
			s.rebuildOverdueStatuses,
		} {
			if err := fn(ctx, accountID, cc); err != nil {
				return err
			}
		}
		return nil
	})
}

// Refresh dispatches to the coordinator for kind.
func (s *Service) Refresh(ctx context.Context, kind domain.RefreshKind, accountID uuid.UUID, cc domain.CallContext) error {
	switch kind {
	case domain.RefreshKindSubscriptions:
		return s.Rebuild(ctx, accountID, cc)
	case domain.RefreshKindTags:
		return s.RebuildTags(ctx, accountID, cc)
	case domain.RefreshKindFields:
		return s.RebuildFields(ctx, accountID, cc)
	case domain.RefreshKindOverdue:
		return s.RebuildOverdueStatuses(ctx, accountID, cc)
	case domain.RefreshKindInvoices:
		return s.RebuildInvoices(ctx, accountID, cc)
	case domain.RefreshKindAll:
		return s.RebuildAll(ctx, accountID, cc)
	default:
		return &domain.RefreshError{AccountID: accountID.String(), Kind: string(kind), Stage: domain.StageResolve, Err: domain.ErrInvalidKind}
	}
}

func (s *Service) run(ctx context.Context, kind domain.RefreshKind, accountID uuid.UUID, cc domain.CallContext, fn rebuildFunc) (err error) {
	ctx = obscontext.WithAccountID(ctx, accountID.String())
	ctx, span := tracing.Start(ctx, "analytics.rebuild."+string(kind),
		attribute.String("account.id", accountID.String()),
		attribute.String("tenant.id", cc.TenantKey()),
	)
	start := time.Now()
	log := s.log.With(
		zap.String("kind", string(kind)),
		zap.String("account_id", accountID.String()),
		zap.String("tenant_id", cc.TenantKey()),
	)

	defer func() {
		duration := time.Since(start)
		s.metrics.ObserveRebuild(string(kind), duration, err)
		var refreshErr *domain.RefreshError
		result := metrics.ResultSuccess
		if errors.As(err, &refreshErr) {
			result = metrics.ResultFailure
			if errors.Is(err, domain.ErrAccountBusy) {
				result = metrics.ResultBusy
			}
			s.metrics.IncRebuildError(string(kind), refreshErr.Stage, refreshErr.Err)
			log.Warn("analytics rebuild failed", zap.String("stage", refreshErr.Stage), zap.Duration("duration", duration), zap.Error(err))
		} else {
			log.Info("analytics rebuild completed", zap.Duration("duration", duration))
		}
		s.otel.RecordRebuild(ctx, string(kind), result)
		tracing.End(span, err)
	}()

	if s.locker != nil {
		release, lockErr := s.locker.Acquire(ctx, domain.LockKey(accountID, cc))
		if lockErr != nil {
			return s.fail(kind, accountID, domain.StageLock, lockErr)
		}
		defer release()
	}

	log.Info("analytics rebuild started")
	return fn(ctx, accountID, cc)
}

func (s *Service) fail(kind domain.RefreshKind, accountID uuid.UUID, stage string, err error) error {
	var refreshErr *domain.RefreshError
	if errors.As(err, &refreshErr) {
		return err
	}
	var staged *stagedError
	if errors.As(err, &staged) {
		err = staged.err
	}
	return &domain.RefreshError{
		AccountID: accountID.String(),
		Kind:      string(kind),
		Stage:     stage,
		Err:       err,
	}
}

func (s *Service) rebuildSubscriptions(ctx context.Context, accountID uuid.UUID, cc domain.CallContext) error {
	kind := domain.RefreshKindSubscriptions
	src, err := s.load(ctx, accountID, cc, sourceSet{invoices: true, payments: true, bundles: true})
	if err != nil {
		return s.fail(kind, accountID, stageOf(err), err)
	}

	account, transitions, bundles := accountFacts(src)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.replace(ctx, tx, domain.TableSubscriptionTransitions, src.Scope, transitions, len(transitions)); err != nil {
			return err
		}
		if err := s.replace(ctx, tx, domain.TableBundles, src.Scope, bundles, len(bundles)); err != nil {
			return err
		}
		return s.replace(ctx, tx, domain.TableAccounts, src.Scope, []domain.BusinessAccount{account}, 1)
	})
	if err != nil {
		return s.fail(kind, accountID, domain.StageCommit, err)
	}

	s.metrics.AddFactRows(string(domain.TableSubscriptionTransitions), len(transitions))
	s.metrics.AddFactRows(string(domain.TableBundles), len(bundles))
	s.metrics.AddFactRows(string(domain.TableAccounts), 1)
	return nil
}

// accountFacts computes the account summary together with the transition and bundle sets it
// depends on, so the committed active bundle count always matches the committed bundle rows.
func accountFacts(src factory.Sources) (domain.BusinessAccount, []domain.BusinessSubscriptionTransition, []domain.BusinessBundleSummary) {
	account := factory.AccountSummary(src)
	transitions := factory.SubscriptionTransitions(src)
	bundles := factory.BundleSummaries(transitions)
	account.NbActiveBundles = factory.CountActiveBundles(bundles)
	return account, transitions, bundles
}

func (s *Service) rebuildTags(ctx context.Context, accountID uuid.UUID, cc domain.CallContext) error {
	kind := domain.RefreshKindTags
	src, err := s.load(ctx, accountID, cc, sourceSet{})
	if err != nil {
		return s.fail(kind, accountID, stageOf(err), err)
	}

	batches := factory.Tags(src)
	if err := s.commitTags(ctx, src.Scope, batches); err != nil {
		return s.fail(kind, accountID, stageOf(err), err)
	}
	return nil
}

func (s *Service) commitTags(ctx context.Context, scope domain.AccountScope, batches []domain.TagBatch) error {
	total := 0
	for _, batch := range batches {
		if err := batch.Validate(); err != nil {
			return computeErr(err)
		}
		total += len(batch.Rows)
	}
	if total == 0 {
		s.log.Debug("no tags to replace", zap.String("scope", scope.String()))
		return nil
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, batch := range batches {
			if len(batch.Rows) == 0 {
				continue
			}
			if err := s.replace(ctx, tx, batch.Kind.TagTable(), scope, batch.Rows, len(batch.Rows)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, batch := range batches {
		s.metrics.AddFactRows(string(batch.Kind.TagTable()), len(batch.Rows))
	}
	return nil
}

func (s *Service) rebuildFields(ctx context.Context, accountID uuid.UUID, cc domain.CallContext) error {
	kind := domain.RefreshKindFields
	src, err := s.load(ctx, accountID, cc, sourceSet{fields: true})
	if err != nil {
		return s.fail(kind, accountID, stageOf(err), err)
	}

	batches := factory.Fields(src)
	total := 0
	for _, batch := range batches {
		if err := batch.Validate(); err != nil {
			return s.fail(kind, accountID, domain.StageCompute, err)
		}
		total += len(batch.Rows)
	}
	if total == 0 {
		return nil
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, batch := range batches {
			if len(batch.Rows) == 0 {
				continue
			}
			if err := s.replace(ctx, tx, batch.Kind.FieldTable(), src.Scope, batch.Rows, len(batch.Rows)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return s.fail(kind, accountID, domain.StageCommit, err)
	}
	return nil
}

func (s *Service) rebuildOverdueStatuses(ctx context.Context, accountID uuid.UUID, cc domain.CallContext) error {
	kind := domain.RefreshKindOverdue
	src, err := s.load(ctx, accountID, cc, sourceSet{blocking: true})
	if err != nil {
		return s.fail(kind, accountID, stageOf(err), err)
	}

	rows := factory.OverdueStatuses(src)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.replace(ctx, tx, domain.TableOverdueStatuses, src.Scope, rows, len(rows))
	})
	if err != nil {
		return s.fail(kind, accountID, domain.StageCommit, err)
	}
	s.metrics.AddFactRows(string(domain.TableOverdueStatuses), len(rows))
	return nil
}

func (s *Service) rebuildInvoices(ctx context.Context, accountID uuid.UUID, cc domain.CallContext) error {
	kind := domain.RefreshKindInvoices
	src, err := s.load(ctx, accountID, cc, sourceSet{invoices: true, payments: true, bundles: true})
	if err != nil {
		return s.fail(kind, accountID, stageOf(err), err)
	}

	account, _, _ := accountFacts(src)
	invoices, batches := factory.Invoices(src)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.replace(ctx, tx, domain.TableAccounts, src.Scope, []domain.BusinessAccount{account}, 1); err != nil {
			return err
		}
		if err := s.replace(ctx, tx, domain.TableInvoices, src.Scope, invoices, len(invoices)); err != nil {
			return err
		}
		for _, batch := range batches {
			if err := s.replace(ctx, tx, batch.Kind.Table(), src.Scope, batch.Rows, len(batch.Rows)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return s.fail(kind, accountID, domain.StageCommit, err)
	}

	s.metrics.AddFactRows(string(domain.TableInvoices), len(invoices))
	for _, batch := range batches {
		s.metrics.AddFactRows(string(batch.Kind.Table()), len(batch.Rows))
	}
	return nil
}

// replace swaps the account's fact set in table for rows inside tx.
func (s *Service) replace(ctx context.Context, tx *gorm.DB, table domain.FactTable, scope domain.AccountScope, rows any, count int) error {
	deleted, err := s.repo.DeleteByAccountScope(ctx, tx, table, scope)
	if err != nil {
		return err
	}
	if count > 0 {
		if err := s.repo.Create(ctx, tx, table, rows); err != nil {
			return err
		}
	}
	s.log.Debug("fact set replaced",
		zap.String("table", string(table)),
		zap.Int64("account_record_id", scope.AccountRecordID),
		zap.Int64("tenant_record_id", scope.TenantRecordID),
		zap.Int64("deleted", deleted),
		zap.Int("inserted", count),
	)
	return nil
}

type sourceSet struct {
	invoices bool
	payments bool
	bundles  bool
	fields   bool
	blocking bool
}

type stagedError struct {
	stage string
	err   error
}

func (e *stagedError) Error() string { return e.err.Error() }
func (e *stagedError) Unwrap() error { return e.err }

func computeErr(err error) error {
	return &stagedError{stage: domain.StageCompute, err: err}
}

func stageOf(err error) string {
	var staged *stagedError
	if errors.As(err, &staged) {
		return staged.stage
	}
	return domain.StageCommit
}

// load resolves the account and reads the requested source sets concurrently. Nothing is
// written until every read has succeeded.
func (s *Service) load(ctx context.Context, accountID uuid.UUID, cc domain.CallContext, want sourceSet) (factory.Sources, error) {
	account, err := s.source.GetAccount(ctx, accountID, cc)
	if err != nil {
		return factory.Sources{}, &stagedError{stage: domain.StageResolve, err: err}
	}
	scope, err := s.source.ResolveAccountScope(ctx, accountID, cc)
	if err != nil {
		return factory.Sources{}, &stagedError{stage: domain.StageResolve, err: err}
	}

	src := factory.Sources{Account: *account, Scope: scope}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		tags, err := s.source.GetTagsForAccount(gctx, accountID, cc)
		src.Tags = tags
		return err
	})
	g.Go(func() error {
		audit, err := s.source.GetAuditLogsForAccount(gctx, accountID, cc)
		src.Audit = audit
		return err
	})
	if want.invoices {
		g.Go(func() error {
			invoices, err := s.source.GetInvoicesByAccountID(gctx, accountID, cc)
			src.Invoices = invoices
			return err
		})
	}
	if want.payments {
		g.Go(func() error {
			payments, err := s.source.GetPaymentsByAccountID(gctx, accountID, cc)
			src.Payments = payments
			return err
		})
	}
	if want.bundles {
		g.Go(func() error {
			bundles, err := s.source.GetBundlesForAccount(gctx, accountID, cc)
			src.Bundles = bundles
			return err
		})
	}
	if want.fields {
		g.Go(func() error {
			fields, err := s.source.GetCustomFieldsForAccount(gctx, accountID, cc)
			src.Fields = fields
			return err
		})
	}
	if want.blocking {
		g.Go(func() error {
			history, err := s.source.GetBlockingHistory(gctx, accountID, cc)
			src.Blocking = history
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return factory.Sources{}, &stagedError{stage: domain.StageRead, err: err}
	}
	return src, nil
}
