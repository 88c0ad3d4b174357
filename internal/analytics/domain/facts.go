package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// FactTable names one physical fact table.
type FactTable string

const (
	TableAccounts                FactTable = "analytics_accounts"
	TableSubscriptionTransitions FactTable = "analytics_subscription_transitions"
	TableBundles                 FactTable = "analytics_bundles"
	TableAccountTags             FactTable = "analytics_account_tags"
	TableBundleTags              FactTable = "analytics_bundle_tags"
	TableInvoiceTags             FactTable = "analytics_invoice_tags"
	TableInvoicePaymentTags      FactTable = "analytics_invoice_payment_tags"
	TableAccountFields           FactTable = "analytics_account_fields"
	TableBundleFields            FactTable = "analytics_bundle_fields"
	TableInvoiceFields           FactTable = "analytics_invoice_fields"
	TableInvoicePaymentFields    FactTable = "analytics_invoice_payment_fields"
	TableOverdueStatuses         FactTable = "analytics_overdue_statuses"
	TableInvoices                FactTable = "analytics_invoices"
	TableInvoiceItems            FactTable = "analytics_invoice_items"
	TableInvoiceAdjustments      FactTable = "analytics_invoice_adjustments"
	TableInvoiceItemAdjustments  FactTable = "analytics_invoice_item_adjustments"
	TableInvoiceCredits          FactTable = "analytics_invoice_credits"
)

// ReportGroup buckets accounts so test and partner traffic can be filtered out of reports.
type ReportGroup string

const (
	ReportGroupDefault ReportGroup = "default"
	ReportGroupTest    ReportGroup = "test"
	ReportGroupPartner ReportGroup = "partner"
)

// FactBase is carried by every fact row.
type FactBase struct {
	AccountRecordID    int64       `gorm:"column:account_record_id;not null;index" json:"account_record_id"`
	TenantRecordID     int64       `gorm:"column:tenant_record_id;not null;index" json:"tenant_record_id"`
	AccountID          string      `gorm:"column:account_id;not null" json:"account_id"`
	AccountExternalKey string      `gorm:"column:account_external_key" json:"account_external_key"`
	AccountName        string      `gorm:"column:account_name" json:"account_name"`
	ReportGroup        ReportGroup `gorm:"column:report_group;not null" json:"report_group"`
	CreatedBy          string      `gorm:"column:created_by" json:"created_by"`
	CreatedReasonCode  string      `gorm:"column:created_reason_code" json:"created_reason_code"`
	CreatedComment     string      `gorm:"column:created_comment" json:"created_comment"`
	CreatedDate        time.Time   `gorm:"column:created_date" json:"created_date"`
}

func (b FactBase) Scope() AccountScope {
	return AccountScope{AccountRecordID: b.AccountRecordID, TenantRecordID: b.TenantRecordID}
}

// BusinessAccount is the single account summary row.
type BusinessAccount struct {
	FactBase
	Email                      string          `gorm:"column:email" json:"email"`
	Currency                   string          `gorm:"column:currency" json:"currency"`
	Balance                    decimal.Decimal `gorm:"column:balance;type:numeric(38,10)" json:"balance"`
	OldestUnpaidInvoiceID      string          `gorm:"column:oldest_unpaid_invoice_id" json:"oldest_unpaid_invoice_id,omitempty"`
	OldestUnpaidInvoiceDate    *time.Time      `gorm:"column:oldest_unpaid_invoice_date" json:"oldest_unpaid_invoice_date,omitempty"`
	OldestUnpaidInvoiceBalance decimal.Decimal `gorm:"column:oldest_unpaid_invoice_balance;type:numeric(38,10)" json:"oldest_unpaid_invoice_balance"`
	LastInvoiceID              string          `gorm:"column:last_invoice_id" json:"last_invoice_id,omitempty"`
	LastInvoiceDate            *time.Time      `gorm:"column:last_invoice_date" json:"last_invoice_date,omitempty"`
	LastInvoiceBalance         decimal.Decimal `gorm:"column:last_invoice_balance;type:numeric(38,10)" json:"last_invoice_balance"`
	LastPaymentID              string          `gorm:"column:last_payment_id" json:"last_payment_id,omitempty"`
	LastPaymentDate            *time.Time      `gorm:"column:last_payment_date" json:"last_payment_date,omitempty"`
	LastPaymentStatus          string          `gorm:"column:last_payment_status" json:"last_payment_status,omitempty"`
	NbActiveBundles            int             `gorm:"column:nb_active_bundles;not null" json:"nb_active_bundles"`
}

// BusinessSubscriptionTransition is one step of a subscription's history.
type BusinessSubscriptionTransition struct {
	FactBase
	SubscriptionEventRecordID int64             `gorm:"column:subscription_event_record_id;not null" json:"subscription_event_record_id"`
	BundleID                  string            `gorm:"column:bundle_id;not null" json:"bundle_id"`
	BundleExternalKey         string            `gorm:"column:bundle_external_key" json:"bundle_external_key"`
	SubscriptionID            string            `gorm:"column:subscription_id;not null" json:"subscription_id"`
	Category                  ProductCategory   `gorm:"column:category" json:"category"`
	Event                     string            `gorm:"column:event" json:"event"`
	PrevPlan                  string            `gorm:"column:prev_plan" json:"prev_plan,omitempty"`
	PrevPhase                 string            `gorm:"column:prev_phase" json:"prev_phase,omitempty"`
	PrevPrice                 decimal.Decimal   `gorm:"column:prev_price;type:numeric(38,10)" json:"prev_price"`
	PrevState                 SubscriptionState `gorm:"column:prev_state" json:"prev_state,omitempty"`
	PrevStartDate             *time.Time        `gorm:"column:prev_start_date" json:"prev_start_date,omitempty"`
	NextPlan                  string            `gorm:"column:next_plan" json:"next_plan,omitempty"`
	NextPhase                 string            `gorm:"column:next_phase" json:"next_phase,omitempty"`
	NextPrice                 decimal.Decimal   `gorm:"column:next_price;type:numeric(38,10)" json:"next_price"`
	NextState                 SubscriptionState `gorm:"column:next_state" json:"next_state"`
	NextStartDate             time.Time         `gorm:"column:next_start_date;not null" json:"next_start_date"`
	NextEndDate               *time.Time        `gorm:"column:next_end_date" json:"next_end_date,omitempty"`
	Currency                  string            `gorm:"column:currency" json:"currency"`
}

// BusinessBundleSummary condenses a bundle to its latest base-plan transition.
type BusinessBundleSummary struct {
	FactBase
	BundleID                  string            `gorm:"column:bundle_id;not null" json:"bundle_id"`
	BundleExternalKey         string            `gorm:"column:bundle_external_key" json:"bundle_external_key"`
	SubscriptionID            string            `gorm:"column:subscription_id" json:"subscription_id"`
	BundleAccountRank         int               `gorm:"column:bundle_account_rank;not null" json:"bundle_account_rank"`
	SubscriptionEventRecordID int64             `gorm:"column:subscription_event_record_id" json:"subscription_event_record_id"`
	CurrentPlan               string            `gorm:"column:current_plan" json:"current_plan"`
	CurrentPhase              string            `gorm:"column:current_phase" json:"current_phase"`
	CurrentPrice              decimal.Decimal   `gorm:"column:current_price;type:numeric(38,10)" json:"current_price"`
	CurrentState              SubscriptionState `gorm:"column:current_state" json:"current_state"`
	Currency                  string            `gorm:"column:currency" json:"currency"`
	PreviousStartDate         *time.Time        `gorm:"column:previous_start_date" json:"previous_start_date,omitempty"`
	NextStartDate             time.Time         `gorm:"column:next_start_date;not null" json:"next_start_date"`
	NextEndDate               *time.Time        `gorm:"column:next_end_date" json:"next_end_date,omitempty"`
}

// Active reports whether the bundle counts towards the account's active bundles.
func (b BusinessBundleSummary) Active() bool {
	return b.CurrentState != SubscriptionStateCancelled
}

// BusinessTag is one tag attached to the account or an object it owns.
type BusinessTag struct {
	FactBase
	TagRecordID int64      `gorm:"column:tag_record_id;not null" json:"tag_record_id"`
	ObjectID    string     `gorm:"column:object_id;not null" json:"object_id"`
	ObjectType  ObjectType `gorm:"column:object_type;not null" json:"object_type"`
	Name        string     `gorm:"column:name;not null" json:"name"`
}

// BusinessField is one custom field attached to the account or an object it owns.
type BusinessField struct {
	FactBase
	CustomFieldRecordID int64      `gorm:"column:custom_field_record_id;not null" json:"custom_field_record_id"`
	ObjectID            string     `gorm:"column:object_id;not null" json:"object_id"`
	ObjectType          ObjectType `gorm:"column:object_type;not null" json:"object_type"`
	Name                string     `gorm:"column:name;not null" json:"name"`
	Value               string     `gorm:"column:value" json:"value"`
}

// BusinessOverdueStatus is one period of a blocking state.
type BusinessOverdueStatus struct {
	FactBase
	BlockingStateRecordID int64      `gorm:"column:blocking_state_record_id;not null" json:"blocking_state_record_id"`
	ObjectID              string     `gorm:"column:object_id;not null" json:"object_id"`
	ObjectType            ObjectType `gorm:"column:object_type;not null" json:"object_type"`
	Service               string     `gorm:"column:service" json:"service"`
	Status                string     `gorm:"column:status;not null" json:"status"`
	StartDate             time.Time  `gorm:"column:start_date;not null" json:"start_date"`
	EndDate               *time.Time `gorm:"column:end_date" json:"end_date,omitempty"`
}

type BusinessInvoice struct {
	FactBase
	InvoiceRecordID       int64           `gorm:"column:invoice_record_id;not null" json:"invoice_record_id"`
	InvoiceID             string          `gorm:"column:invoice_id;not null" json:"invoice_id"`
	InvoiceNumber         int64           `gorm:"column:invoice_number" json:"invoice_number"`
	InvoiceDate           time.Time       `gorm:"column:invoice_date;not null" json:"invoice_date"`
	TargetDate            time.Time       `gorm:"column:target_date" json:"target_date"`
	Currency              string          `gorm:"column:currency" json:"currency"`
	Balance               decimal.Decimal `gorm:"column:balance;type:numeric(38,10)" json:"balance"`
	AmountPaid            decimal.Decimal `gorm:"column:amount_paid;type:numeric(38,10)" json:"amount_paid"`
	AmountCharged         decimal.Decimal `gorm:"column:amount_charged;type:numeric(38,10)" json:"amount_charged"`
	OriginalAmountCharged decimal.Decimal `gorm:"column:original_amount_charged;type:numeric(38,10)" json:"original_amount_charged"`
	AmountCredited        decimal.Decimal `gorm:"column:amount_credited;type:numeric(38,10)" json:"amount_credited"`
	AmountRefunded        decimal.Decimal `gorm:"column:amount_refunded;type:numeric(38,10)" json:"amount_refunded"`
}

type BusinessInvoiceItem struct {
	FactBase
	InvoiceItemRecordID int64           `gorm:"column:invoice_item_record_id;not null" json:"invoice_item_record_id"`
	InvoiceItemID       string          `gorm:"column:invoice_item_id;not null" json:"invoice_item_id"`
	InvoiceID           string          `gorm:"column:invoice_id;not null" json:"invoice_id"`
	InvoiceNumber       int64           `gorm:"column:invoice_number" json:"invoice_number"`
	InvoiceDate         time.Time       `gorm:"column:invoice_date" json:"invoice_date"`
	ItemType            InvoiceItemType `gorm:"column:item_type;not null" json:"item_type"`
	BundleID            string          `gorm:"column:bundle_id" json:"bundle_id,omitempty"`
	LinkedItemID        string          `gorm:"column:linked_item_id" json:"linked_item_id,omitempty"`
	PlanName            string          `gorm:"column:plan_name" json:"plan_name,omitempty"`
	PhaseName           string          `gorm:"column:phase_name" json:"phase_name,omitempty"`
	StartDate           time.Time       `gorm:"column:start_date" json:"start_date"`
	EndDate             *time.Time      `gorm:"column:end_date" json:"end_date,omitempty"`
	Amount              decimal.Decimal `gorm:"column:amount;type:numeric(38,10)" json:"amount"`
	Currency            string          `gorm:"column:currency" json:"currency"`
}
