package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/analytics/internal/analytics/domain"
	"github.com/smallbiznis/analytics/internal/analytics/lock"
	"github.com/smallbiznis/analytics/internal/analytics/repository"
	"github.com/smallbiznis/analytics/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fakeSource struct {
	mu       sync.Mutex
	account  *domain.Account
	scope    domain.AccountScope
	invoices []domain.Invoice
	payments []domain.Payment
	bundles  []domain.Bundle
	tags     []domain.Tag
	fields   []domain.CustomField
	blocking []domain.BlockingState
	audit    domain.AccountAuditLogs
	failRead error
}

func (f *fakeSource) check(accountID uuid.UUID) error {
	if f.account == nil || f.account.ID != accountID {
		return domain.ErrAccountNotFound
	}
	return nil
}

func (f *fakeSource) GetAccount(_ context.Context, accountID uuid.UUID, _ domain.CallContext) (*domain.Account, error) {
	if err := f.check(accountID); err != nil {
		return nil, err
	}
	account := *f.account
	return &account, nil
}

func (f *fakeSource) ResolveAccountScope(_ context.Context, accountID uuid.UUID, _ domain.CallContext) (domain.AccountScope, error) {
	if err := f.check(accountID); err != nil {
		return domain.AccountScope{}, err
	}
	return f.scope, nil
}

func (f *fakeSource) GetInvoicesByAccountID(context.Context, uuid.UUID, domain.CallContext) ([]domain.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failRead != nil {
		return nil, f.failRead
	}
	return f.invoices, nil
}

func (f *fakeSource) GetPaymentsByAccountID(context.Context, uuid.UUID, domain.CallContext) ([]domain.Payment, error) {
	return f.payments, nil
}

func (f *fakeSource) GetBundlesForAccount(context.Context, uuid.UUID, domain.CallContext) ([]domain.Bundle, error) {
	return f.bundles, nil
}

func (f *fakeSource) GetTagsForAccount(context.Context, uuid.UUID, domain.CallContext) ([]domain.Tag, error) {
	return f.tags, nil
}

func (f *fakeSource) GetCustomFieldsForAccount(context.Context, uuid.UUID, domain.CallContext) ([]domain.CustomField, error) {
	return f.fields, nil
}

func (f *fakeSource) GetBlockingHistory(context.Context, uuid.UUID, domain.CallContext) ([]domain.BlockingState, error) {
	return f.blocking, nil
}

func (f *fakeSource) GetAuditLogsForAccount(context.Context, uuid.UUID, domain.CallContext) (domain.AccountAuditLogs, error) {
	return f.audit, nil
}

// failingRepo fails Create for one table so the surrounding transaction rolls back.
type failingRepo struct {
	domain.Repository
	table domain.FactTable
}

var errInjected = errors.New("injected insert failure")

func (r failingRepo) Create(ctx context.Context, conn *gorm.DB, table domain.FactTable, rows any) error {
	if table == r.table {
		return errInjected
	}
	return r.Repository.Create(ctx, conn, table, rows)
}

func day(month time.Month, d int) time.Time {
	return time.Date(2013, month, d, 0, 0, 0, 0, time.UTC)
}

func newFixture() *fakeSource {
	accountID := uuid.New()
	paid := uuid.New()
	open10 := uuid.New()
	open20 := uuid.New()
	bundleID := uuid.New()

	return &fakeSource{
		account: &domain.Account{ID: accountID, RecordID: 7, TenantRecordID: 3, ExternalKey: "acme", Name: "Acme", Currency: "USD", CreatedDate: day(time.January, 1)},
		scope:   domain.AccountScope{AccountRecordID: 7, TenantRecordID: 3},
		invoices: []domain.Invoice{
			{ID: paid, RecordID: 1, AccountID: accountID, InvoiceNumber: 1, InvoiceDate: day(time.January, 1), Amount: decimal.NewFromInt(30), PaidAmount: decimal.NewFromInt(30), Balance: decimal.Zero, Currency: "USD"},
			{ID: open10, RecordID: 2, AccountID: accountID, InvoiceNumber: 2, InvoiceDate: day(time.January, 10), Amount: decimal.NewFromInt(50), Balance: decimal.NewFromInt(50), Currency: "USD",
				Items: []domain.InvoiceItem{
					{ID: uuid.New(), RecordID: 11, InvoiceID: open10, ItemType: domain.InvoiceItemTypeRecurring, Amount: decimal.NewFromInt(50), StartDate: day(time.January, 10)},
					{ID: uuid.New(), RecordID: 12, InvoiceID: open10, ItemType: domain.InvoiceItemTypeCBAAdj, Amount: decimal.NewFromInt(-5), StartDate: day(time.January, 10)},
				}},
			{ID: open20, RecordID: 3, AccountID: accountID, InvoiceNumber: 3, InvoiceDate: day(time.January, 20), Amount: decimal.NewFromInt(20), Balance: decimal.NewFromInt(20), Currency: "USD"},
		},
		bundles: []domain.Bundle{{
			ID:          bundleID,
			RecordID:    1,
			AccountID:   accountID,
			ExternalKey: "bundle-1",
			Subscriptions: []domain.Subscription{{
				ID:       uuid.New(),
				RecordID: 1,
				BundleID: bundleID,
				Category: domain.ProductCategoryBase,
				State:    domain.SubscriptionStateActive,
				Events: []domain.SubscriptionEvent{
					{ID: uuid.New(), RecordID: 1, EventType: "start_entitlement", EffectiveDate: day(time.January, 1), NextPlan: "basic", NextPrice: decimal.NewFromInt(10), NextState: domain.SubscriptionStateActive, Currency: "USD"},
				},
			}},
		}},
		tags: []domain.Tag{
			{ID: uuid.New(), RecordID: 1, ObjectID: accountID, ObjectType: domain.ObjectTypeAccount, TagDefinitionName: "VIP"},
			{ID: uuid.New(), RecordID: 2, ObjectID: open10, ObjectType: domain.ObjectTypeInvoice, TagDefinitionName: "DISPUTED"},
		},
	}
}

func newTestService(t *testing.T, src *fakeSource, repo domain.Repository) (*Service, *gorm.DB) {
	t.Helper()
	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, repository.Migrate(conn))
	if repo == nil {
		repo = repository.Provide()
	}
	log := zap.NewNop()
	svc := New(Params{
		DB:     conn,
		Log:    log,
		Source: src,
		Repo:   repo,
		Locker: lock.NewAccountLocker(log, nil, nil, time.Minute, 2*time.Second),
	})
	return svc.(*Service), conn
}

func tenantCtx() domain.CallContext {
	tenant := uuid.New()
	return domain.CallContext{TenantID: &tenant, UserName: "test"}
}

func TestRebuildAccountSummaryPicksOldestUnpaidAndLastInvoice(t *testing.T) {
	src := newFixture()
	svc, _ := newTestService(t, src, nil)
	ctx := context.Background()
	cc := tenantCtx()

	require.NoError(t, svc.Rebuild(ctx, src.account.ID, cc))

	summary, err := svc.GetAccountSummary(ctx, src.account.ID, cc)
	require.NoError(t, err)
	assert.Equal(t, src.invoices[1].ID.String(), summary.OldestUnpaidInvoiceID)
	assert.Equal(t, src.invoices[2].ID.String(), summary.LastInvoiceID)
	assert.Equal(t, int64(7), summary.AccountRecordID)
	assert.Equal(t, int64(3), summary.TenantRecordID)
}

func TestRebuildActiveBundlesMatchSummaries(t *testing.T) {
	src := newFixture()
	cancelled := uuid.New()
	src.bundles = append(src.bundles, domain.Bundle{
		ID:          cancelled,
		RecordID:    2,
		ExternalKey: "bundle-2",
		Subscriptions: []domain.Subscription{{
			ID:       uuid.New(),
			RecordID: 2,
			BundleID: cancelled,
			Category: domain.ProductCategoryBase,
			Events: []domain.SubscriptionEvent{
				{ID: uuid.New(), RecordID: 2, EventType: "start_entitlement", EffectiveDate: day(time.January, 2), NextPlan: "basic", NextState: domain.SubscriptionStateActive},
				{ID: uuid.New(), RecordID: 3, EventType: "stop_entitlement", EffectiveDate: day(time.January, 15), NextState: domain.SubscriptionStateCancelled},
			},
		}},
	})
	svc, _ := newTestService(t, src, nil)
	ctx := context.Background()
	cc := tenantCtx()

	require.NoError(t, svc.Rebuild(ctx, src.account.ID, cc))

	summary, err := svc.GetAccountSummary(ctx, src.account.ID, cc)
	require.NoError(t, err)
	bundles, err := svc.GetBundleSummaries(ctx, src.account.ID, cc)
	require.NoError(t, err)
	require.Len(t, bundles, 2)

	active := 0
	for _, b := range bundles {
		if b.Active() {
			active++
		}
	}
	assert.Equal(t, 1, active)
	assert.Equal(t, active, summary.NbActiveBundles)

	transitions, err := svc.GetSubscriptionTransitions(ctx, src.account.ID, cc)
	require.NoError(t, err)
	assert.Len(t, transitions, 3)
}

func TestRebuildIsIdempotent(t *testing.T) {
	src := newFixture()
	svc, _ := newTestService(t, src, nil)
	ctx := context.Background()
	cc := tenantCtx()

	require.NoError(t, svc.RebuildAll(ctx, src.account.ID, cc))
	firstSummary, err := svc.GetAccountSummary(ctx, src.account.ID, cc)
	require.NoError(t, err)
	firstTransitions, err := svc.GetSubscriptionTransitions(ctx, src.account.ID, cc)
	require.NoError(t, err)
	firstTags, err := svc.GetTags(ctx, src.account.ID, cc)
	require.NoError(t, err)

	require.NoError(t, svc.RebuildAll(ctx, src.account.ID, cc))
	secondSummary, err := svc.GetAccountSummary(ctx, src.account.ID, cc)
	require.NoError(t, err)
	secondTransitions, err := svc.GetSubscriptionTransitions(ctx, src.account.ID, cc)
	require.NoError(t, err)
	secondTags, err := svc.GetTags(ctx, src.account.ID, cc)
	require.NoError(t, err)

	assert.Equal(t, firstSummary, secondSummary)
	assert.Equal(t, firstTransitions, secondTransitions)
	assert.Equal(t, firstTags, secondTags)
}

func TestRebuildRollsBackOnCommitFailure(t *testing.T) {
	src := newFixture()
	svc, _ := newTestService(t, src, nil)
	ctx := context.Background()
	cc := tenantCtx()
	require.NoError(t, svc.Rebuild(ctx, src.account.ID, cc))

	svc.repo = failingRepo{Repository: repository.Provide(), table: domain.TableAccounts}
	src.bundles = nil

	err := svc.Rebuild(ctx, src.account.ID, cc)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRefresh)
	assert.ErrorIs(t, err, errInjected)
	var refreshErr *domain.RefreshError
	require.ErrorAs(t, err, &refreshErr)
	assert.Equal(t, domain.StageCommit, refreshErr.Stage)

	bundles, err := svc.GetBundleSummaries(ctx, src.account.ID, cc)
	require.NoError(t, err)
	assert.Len(t, bundles, 1, "bundle rows must survive a rolled back rebuild")
}

func TestRebuildSourceFailureLeavesFactsUntouched(t *testing.T) {
	src := newFixture()
	svc, _ := newTestService(t, src, nil)
	ctx := context.Background()
	cc := tenantCtx()
	require.NoError(t, svc.RebuildInvoices(ctx, src.account.ID, cc))

	src.failRead = errors.New("source unavailable")
	err := svc.RebuildInvoices(ctx, src.account.ID, cc)
	var refreshErr *domain.RefreshError
	require.ErrorAs(t, err, &refreshErr)
	assert.Equal(t, domain.StageRead, refreshErr.Stage)

	invoices, err := svc.GetInvoices(ctx, src.account.ID, cc)
	require.NoError(t, err)
	assert.Len(t, invoices, 3)
}

func TestRebuildUnknownAccount(t *testing.T) {
	src := newFixture()
	svc, _ := newTestService(t, src, nil)

	err := svc.Rebuild(context.Background(), uuid.New(), tenantCtx())
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
	var refreshErr *domain.RefreshError
	require.ErrorAs(t, err, &refreshErr)
	assert.Equal(t, domain.StageResolve, refreshErr.Stage)
}

func TestRebuildTagsReplacesPerKind(t *testing.T) {
	src := newFixture()
	svc, _ := newTestService(t, src, nil)
	ctx := context.Background()
	cc := tenantCtx()

	require.NoError(t, svc.RebuildTags(ctx, src.account.ID, cc))
	tags, err := svc.GetTags(ctx, src.account.ID, cc)
	require.NoError(t, err)
	require.Len(t, tags, 2)

	src.tags = src.tags[:1]
	src.tags[0].TagDefinitionName = "GOLD"
	require.NoError(t, svc.RebuildTags(ctx, src.account.ID, cc))

	tags, err = svc.GetTags(ctx, src.account.ID, cc)
	require.NoError(t, err)
	names := make([]string, 0, len(tags))
	for _, tag := range tags {
		names = append(names, tag.Name)
	}
	// the invoice batch is empty this time, so its previous rows stay.
	assert.ElementsMatch(t, []string{"GOLD", "DISPUTED"}, names)
}

func TestRebuildTagsWithoutTagsKeepsExistingRows(t *testing.T) {
	src := newFixture()
	svc, _ := newTestService(t, src, nil)
	ctx := context.Background()
	cc := tenantCtx()
	require.NoError(t, svc.RebuildTags(ctx, src.account.ID, cc))

	src.tags = nil
	require.NoError(t, svc.RebuildTags(ctx, src.account.ID, cc))

	tags, err := svc.GetTags(ctx, src.account.ID, cc)
	require.NoError(t, err)
	assert.Len(t, tags, 2)
}

func TestRebuildFields(t *testing.T) {
	src := newFixture()
	src.fields = []domain.CustomField{
		{ID: uuid.New(), RecordID: 1, ObjectID: src.account.ID, ObjectType: domain.ObjectTypeAccount, Name: "region", Value: "emea"},
	}
	svc, _ := newTestService(t, src, nil)
	ctx := context.Background()
	cc := tenantCtx()

	require.NoError(t, svc.RebuildFields(ctx, src.account.ID, cc))

	fields, err := svc.GetFields(ctx, src.account.ID, cc)
	require.NoError(t, err)
	require.Len(t, fields, 1)
	assert.Equal(t, "region", fields[0].Name)
	assert.Equal(t, "emea", fields[0].Value)
}

func TestRebuildOverdueStatuses(t *testing.T) {
	src := newFixture()
	src.blocking = []domain.BlockingState{
		{RecordID: 2, BlockedID: src.account.ID, BlockedType: domain.ObjectTypeAccount, State: "CLEAR", Service: "overdue", EffectiveDate: day(time.February, 1)},
		{RecordID: 1, BlockedID: src.account.ID, BlockedType: domain.ObjectTypeAccount, State: "OD1", Service: "overdue", EffectiveDate: day(time.January, 15)},
	}
	svc, _ := newTestService(t, src, nil)
	ctx := context.Background()
	cc := tenantCtx()

	require.NoError(t, svc.RebuildOverdueStatuses(ctx, src.account.ID, cc))

	rows, err := svc.GetOverdueStatuses(ctx, src.account.ID, cc)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	byStatus := map[string]domain.BusinessOverdueStatus{}
	for _, row := range rows {
		byStatus[row.Status] = row
	}
	require.NotNil(t, byStatus["OD1"].EndDate)
	assert.True(t, byStatus["OD1"].EndDate.Equal(day(time.February, 1)))
	assert.Nil(t, byStatus["CLEAR"].EndDate)
}

func TestRebuildInvoicesWritesItemTables(t *testing.T) {
	src := newFixture()
	svc, conn := newTestService(t, src, nil)
	ctx := context.Background()
	cc := tenantCtx()

	require.NoError(t, svc.RebuildInvoices(ctx, src.account.ID, cc))

	var items, credits int64
	require.NoError(t, conn.Table(string(domain.TableInvoiceItems)).Count(&items).Error)
	require.NoError(t, conn.Table(string(domain.TableInvoiceCredits)).Count(&credits).Error)
	assert.Equal(t, int64(1), items)
	assert.Equal(t, int64(1), credits)

	summary, err := svc.GetAccountSummary(ctx, src.account.ID, cc)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.NbActiveBundles)
}

func TestRefreshRejectsUnknownKind(t *testing.T) {
	src := newFixture()
	svc, _ := newTestService(t, src, nil)

	err := svc.Refresh(context.Background(), domain.RefreshKind("nope"), src.account.ID, tenantCtx())
	assert.ErrorIs(t, err, domain.ErrInvalidKind)
	assert.True(t, domain.IsConfigurationError(err))
}

func TestGetAccountSummaryBeforeRebuild(t *testing.T) {
	src := newFixture()
	svc, _ := newTestService(t, src, nil)

	_, err := svc.GetAccountSummary(context.Background(), src.account.ID, tenantCtx())
	assert.ErrorIs(t, err, domain.ErrFactsNotFound)
}

func TestConcurrentRebuildsSameAccount(t *testing.T) {
	src := newFixture()
	svc, _ := newTestService(t, src, nil)
	ctx := context.Background()
	cc := tenantCtx()

	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- svc.Rebuild(ctx, src.account.ID, cc)
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("rebuild failed: %v", err)
		}
	}

	bundles, err := svc.GetBundleSummaries(ctx, src.account.ID, cc)
	require.NoError(t, err)
	assert.Len(t, bundles, 1)
}
