package factory

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/analytics/internal/analytics/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func testSources() Sources {
	accountID := uuid.New()
	return Sources{
		Account: domain.Account{
			ID:          accountID,
			RecordID:    42,
			ExternalKey: "acme",
			Name:        "Acme",
			Email:       "billing@acme.test",
			Currency:    "USD",
			CreatedDate: day(2012, time.December, 1),
		},
		Scope: domain.AccountScope{AccountRecordID: 42, TenantRecordID: 7},
	}
}

func TestAccountSummaryPicksOldestUnpaidAndLastInvoice(t *testing.T) {
	src := testSources()
	jan1 := domain.Invoice{ID: uuid.New(), RecordID: 1, InvoiceDate: day(2013, time.January, 1), Balance: decimal.Zero}
	jan10 := domain.Invoice{ID: uuid.New(), RecordID: 2, InvoiceDate: day(2013, time.January, 10), Balance: decimal.NewFromInt(50)}
	jan20 := domain.Invoice{ID: uuid.New(), RecordID: 3, InvoiceDate: day(2013, time.January, 20), Balance: decimal.NewFromInt(20)}
	src.Invoices = []domain.Invoice{jan20, jan1, jan10}

	row := AccountSummary(src)

	assert.Equal(t, jan10.ID.String(), row.OldestUnpaidInvoiceID)
	assert.True(t, row.OldestUnpaidInvoiceBalance.Equal(decimal.NewFromInt(50)))
	assert.Equal(t, jan20.ID.String(), row.LastInvoiceID)
	assert.True(t, row.Balance.Equal(decimal.NewFromInt(70)), "balance %s", row.Balance)
	assert.Equal(t, int64(42), row.AccountRecordID)
	assert.Equal(t, int64(7), row.TenantRecordID)
	assert.Equal(t, domain.ReportGroupDefault, row.ReportGroup)
}

func TestAccountSummaryWithoutInvoicesOrPayments(t *testing.T) {
	row := AccountSummary(testSources())

	assert.Empty(t, row.OldestUnpaidInvoiceID)
	assert.Nil(t, row.LastInvoiceDate)
	assert.Nil(t, row.LastPaymentDate)
	assert.True(t, row.Balance.IsZero())
}

func TestAccountSummaryLastPayment(t *testing.T) {
	src := testSources()
	first := domain.Payment{ID: uuid.New(), RecordID: 1, EffectiveDate: day(2013, time.February, 1), Status: "SUCCESS"}
	second := domain.Payment{ID: uuid.New(), RecordID: 2, EffectiveDate: day(2013, time.February, 1), Status: "FAILED"}
	src.Payments = []domain.Payment{first, second}

	row := AccountSummary(src)

	assert.Equal(t, second.ID.String(), row.LastPaymentID)
	assert.Equal(t, "FAILED", row.LastPaymentStatus)
}

func transition(bundle string, recordID int64, category domain.ProductCategory, start time.Time, state domain.SubscriptionState) domain.BusinessSubscriptionTransition {
	return domain.BusinessSubscriptionTransition{
		SubscriptionEventRecordID: recordID,
		BundleID:                  bundle,
		SubscriptionID:            bundle + "-sub",
		Category:                  category,
		NextPlan:                  "plan-" + bundle,
		NextState:                 state,
		NextStartDate:             start,
	}
}

func TestBundleSummariesKeepLastBaseTransition(t *testing.T) {
	base := domain.ProductCategoryBase
	addOn := domain.ProductCategoryAddOn
	active := domain.SubscriptionStateActive
	transitions := []domain.BusinessSubscriptionTransition{
		transition("b1", 1, base, day(2013, time.January, 1), active),
		transition("b2", 2, base, day(2013, time.January, 2), active),
		transition("b1", 3, base, day(2013, time.January, 5), active),
		transition("b1", 4, addOn, day(2013, time.January, 9), active),
		transition("b3", 5, base, day(2013, time.January, 3), active),
		transition("b2", 6, base, day(2013, time.January, 8), domain.SubscriptionStateCancelled),
		transition("b4", 7, addOn, day(2013, time.January, 4), active),
	}

	rows := BundleSummaries(transitions)

	require.Len(t, rows, 3)
	assert.Equal(t, "b1", rows[0].BundleID)
	assert.Equal(t, int64(3), rows[0].SubscriptionEventRecordID)
	assert.Equal(t, day(2013, time.January, 5), rows[0].NextStartDate)
	require.NotNil(t, rows[0].PreviousStartDate)
	assert.Equal(t, day(2013, time.January, 1), *rows[0].PreviousStartDate)
	assert.Equal(t, 1, rows[0].BundleAccountRank)

	assert.Equal(t, "b2", rows[1].BundleID)
	assert.Equal(t, domain.SubscriptionStateCancelled, rows[1].CurrentState)
	assert.Equal(t, 2, rows[1].BundleAccountRank)

	assert.Equal(t, "b3", rows[2].BundleID)
	assert.Nil(t, rows[2].PreviousStartDate)

	assert.Equal(t, 2, CountActiveBundles(rows))
}

func TestBundleSummariesTieKeepsInsertionOrder(t *testing.T) {
	base := domain.ProductCategoryBase
	same := day(2013, time.March, 1)
	rows := BundleSummaries([]domain.BusinessSubscriptionTransition{
		transition("b1", 10, base, same, domain.SubscriptionStateActive),
		transition("b1", 11, base, same, domain.SubscriptionStateCancelled),
	})

	require.Len(t, rows, 1)
	assert.Equal(t, int64(11), rows[0].SubscriptionEventRecordID)
	assert.False(t, rows[0].Active())
}

func TestBundleSummariesOneRowPerBaseBundle(t *testing.T) {
	base := domain.ProductCategoryBase
	var transitions []domain.BusinessSubscriptionTransition
	bundles := map[string]struct{}{}
	for i := 0; i < 40; i++ {
		bundle := uuid.NewString()[:4]
		if i%3 == 0 && len(transitions) > 0 {
			bundle = transitions[i/2].BundleID
		}
		bundles[bundle] = struct{}{}
		transitions = append(transitions, transition(bundle, int64(i), base, day(2013, time.January, 1).AddDate(0, 0, i%7), domain.SubscriptionStateActive))
	}

	rows := BundleSummaries(transitions)

	seen := map[string]struct{}{}
	for _, row := range rows {
		_, dup := seen[row.BundleID]
		require.False(t, dup, "bundle %s summarized twice", row.BundleID)
		seen[row.BundleID] = struct{}{}
	}
	assert.Equal(t, len(bundles), len(rows))
}

func TestSubscriptionTransitionsChainEvents(t *testing.T) {
	src := testSources()
	bundleID := uuid.New()
	subID := uuid.New()
	start := domain.SubscriptionEvent{ID: uuid.New(), RecordID: 1, EventType: "start_entitlement", EffectiveDate: day(2013, time.January, 1), NextPlan: "basic", NextPrice: decimal.NewFromInt(10), NextState: domain.SubscriptionStateActive}
	change := domain.SubscriptionEvent{ID: uuid.New(), RecordID: 2, EventType: "change", EffectiveDate: day(2013, time.February, 1), NextPlan: "pro", NextPrice: decimal.NewFromInt(30), NextState: domain.SubscriptionStateActive}
	src.Bundles = []domain.Bundle{{
		ID:          bundleID,
		ExternalKey: "bundle-1",
		Subscriptions: []domain.Subscription{{
			ID:       subID,
			BundleID: bundleID,
			Category: domain.ProductCategoryBase,
			Events:   []domain.SubscriptionEvent{change, start},
		}},
	}}

	rows := SubscriptionTransitions(src)

	require.Len(t, rows, 2)
	assert.Equal(t, "START_ENTITLEMENT_BASE", rows[0].Event)
	assert.Empty(t, rows[0].PrevPlan)
	require.NotNil(t, rows[0].NextEndDate)
	assert.Equal(t, day(2013, time.February, 1), *rows[0].NextEndDate)
	assert.Equal(t, "CHANGE_BASE", rows[1].Event)
	assert.Equal(t, "basic", rows[1].PrevPlan)
	assert.Equal(t, "pro", rows[1].NextPlan)
	assert.Nil(t, rows[1].NextEndDate)
}

func TestOverdueStatusesStampEndDates(t *testing.T) {
	src := testSources()
	bundle := uuid.New()
	src.Blocking = []domain.BlockingState{
		{RecordID: 3, BlockedID: bundle, BlockedType: domain.ObjectTypeBundle, State: "CLEAR", EffectiveDate: day(2013, time.March, 1)},
		{RecordID: 2, BlockedID: bundle, BlockedType: domain.ObjectTypeBundle, State: "OD2", EffectiveDate: day(2013, time.February, 1)},
		{RecordID: 1, BlockedID: bundle, BlockedType: domain.ObjectTypeBundle, State: "OD1", EffectiveDate: day(2013, time.January, 1)},
	}

	rows := OverdueStatuses(src)

	require.Len(t, rows, 3)
	assert.Equal(t, "OD1", rows[0].Status)
	assert.Equal(t, day(2013, time.February, 1), *rows[0].EndDate)
	assert.Equal(t, "OD2", rows[1].Status)
	assert.Equal(t, day(2013, time.March, 1), *rows[1].EndDate)
	assert.Equal(t, "CLEAR", rows[2].Status)
	assert.Nil(t, rows[2].EndDate)
}

func TestOverdueStatusesInterleavedObjectsFormOneTimeline(t *testing.T) {
	src := testSources()
	account := src.Account.ID
	bundle := uuid.New()
	src.Blocking = []domain.BlockingState{
		{RecordID: 4, BlockedID: bundle, BlockedType: domain.ObjectTypeBundle, State: "B2", EffectiveDate: day(2013, time.April, 1)},
		{RecordID: 3, BlockedID: account, BlockedType: domain.ObjectTypeAccount, State: "A2", EffectiveDate: day(2013, time.March, 1)},
		{RecordID: 2, BlockedID: bundle, BlockedType: domain.ObjectTypeBundle, State: "B1", EffectiveDate: day(2013, time.February, 1)},
		{RecordID: 1, BlockedID: account, BlockedType: domain.ObjectTypeAccount, State: "A1", EffectiveDate: day(2013, time.January, 1)},
	}

	rows := OverdueStatuses(src)

	require.Len(t, rows, 4)
	expected := []struct {
		status string
		start  time.Time
		end    *time.Time
	}{
		{"A1", day(2013, time.January, 1), timePtr(day(2013, time.February, 1))},
		{"B1", day(2013, time.February, 1), timePtr(day(2013, time.March, 1))},
		{"A2", day(2013, time.March, 1), timePtr(day(2013, time.April, 1))},
		{"B2", day(2013, time.April, 1), nil},
	}
	for i, want := range expected {
		assert.Equal(t, want.status, rows[i].Status)
		assert.Equal(t, want.start, rows[i].StartDate)
		assert.Equal(t, want.end, rows[i].EndDate)
	}
	assert.Equal(t, bundle.String(), rows[1].ObjectID)
	assert.Equal(t, domain.ObjectTypeAccount, rows[2].ObjectType)
}

func TestTagsSplitByKind(t *testing.T) {
	src := testSources()
	src.Tags = []domain.Tag{
		{ID: uuid.New(), RecordID: 1, ObjectID: src.Account.ID, ObjectType: domain.ObjectTypeAccount, TagDefinitionName: "PARTNER"},
		{ID: uuid.New(), RecordID: 2, ObjectID: uuid.New(), ObjectType: domain.ObjectTypeBundle, TagDefinitionName: "VIP"},
		{ID: uuid.New(), RecordID: 3, ObjectID: uuid.New(), ObjectType: domain.ObjectTypeSubscription, TagDefinitionName: "IGNORED"},
	}

	batches := Tags(src)

	require.Len(t, batches, len(domain.ObjectKinds))
	assert.Equal(t, domain.ObjectKindAccount, batches[0].Kind)
	require.Len(t, batches[0].Rows, 1)
	assert.Equal(t, domain.ReportGroupPartner, batches[0].Rows[0].ReportGroup)
	require.Len(t, batches[1].Rows, 1)
	assert.Equal(t, "VIP", batches[1].Rows[0].Name)
	assert.Empty(t, batches[2].Rows)
	for _, batch := range batches {
		assert.NoError(t, batch.Validate())
	}
}

func TestTagBatchRejectsMixedKinds(t *testing.T) {
	batch := domain.TagBatch{
		Kind: domain.ObjectKindAccount,
		Rows: []domain.BusinessTag{
			{ObjectType: domain.ObjectTypeAccount},
			{ObjectType: domain.ObjectTypeBundle},
		},
	}

	err := batch.Validate()
	assert.ErrorIs(t, err, domain.ErrMixedTagBatch)
	assert.True(t, domain.IsConfigurationError(err))
}

func TestReportGroupFor(t *testing.T) {
	accountID := uuid.New()
	tags := []domain.Tag{
		{ObjectID: accountID, ObjectType: domain.ObjectTypeAccount, TagDefinitionName: "partner"},
		{ObjectID: uuid.New(), ObjectType: domain.ObjectTypeAccount, TagDefinitionName: "TEST"},
	}
	assert.Equal(t, domain.ReportGroupPartner, ReportGroupFor(accountID, tags))

	tags = append(tags, domain.Tag{ObjectID: accountID, ObjectType: domain.ObjectTypeAccount, TagDefinitionName: "TEST"})
	assert.Equal(t, domain.ReportGroupTest, ReportGroupFor(accountID, tags))
}

func TestInvoicesClassifyItems(t *testing.T) {
	src := testSources()
	invoiceID := uuid.New()
	recurring := uuid.New()
	src.Invoices = []domain.Invoice{{
		ID:          invoiceID,
		RecordID:    9,
		InvoiceDate: day(2013, time.January, 10),
		Amount:      decimal.NewFromInt(45),
		Balance:     decimal.NewFromInt(45),
		Items: []domain.InvoiceItem{
			{ID: recurring, RecordID: 1, ItemType: domain.InvoiceItemTypeRecurring, Amount: decimal.NewFromInt(50)},
			{ID: uuid.New(), RecordID: 2, ItemType: domain.InvoiceItemTypeItemAdj, LinkedItemID: &recurring, Amount: decimal.NewFromInt(-5)},
			{ID: uuid.New(), RecordID: 3, ItemType: domain.InvoiceItemTypeCBAAdj, Amount: decimal.NewFromInt(2)},
			{ID: uuid.New(), RecordID: 4, ItemType: domain.InvoiceItemTypeRefundAdj, Amount: decimal.NewFromInt(-2)},
		},
	}}

	invoices, batches := Invoices(src)

	require.Len(t, invoices, 1)
	assert.True(t, invoices[0].OriginalAmountCharged.Equal(decimal.NewFromInt(50)))
	require.Len(t, batches, 4)
	counts := map[domain.InvoiceItemKind]int{}
	for _, batch := range batches {
		counts[batch.Kind] = len(batch.Rows)
	}
	assert.Equal(t, 1, counts[domain.InvoiceItemKindItem])
	assert.Equal(t, 1, counts[domain.InvoiceItemKindItemAdjustment])
	assert.Equal(t, 1, counts[domain.InvoiceItemKindCredit])
	assert.Equal(t, 1, counts[domain.InvoiceItemKindAdjustment])
	assert.Equal(t, recurring.String(), batches[2].Rows[0].LinkedItemID)
}
