package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ObjectType string

const (
	ObjectTypeAccount        ObjectType = "ACCOUNT"
	ObjectTypeBundle         ObjectType = "BUNDLE"
	ObjectTypeSubscription   ObjectType = "SUBSCRIPTION"
	ObjectTypeInvoice        ObjectType = "INVOICE"
	ObjectTypeInvoiceItem    ObjectType = "INVOICE_ITEM"
	ObjectTypeInvoicePayment ObjectType = "INVOICE_PAYMENT"
	ObjectTypePayment        ObjectType = "PAYMENT"
	ObjectTypeTag            ObjectType = "TAG"
	ObjectTypeCustomField    ObjectType = "CUSTOM_FIELD"
)

type ProductCategory string

const (
	ProductCategoryBase       ProductCategory = "BASE"
	ProductCategoryAddOn      ProductCategory = "ADD_ON"
	ProductCategoryStandalone ProductCategory = "STANDALONE"
)

type SubscriptionState string

const (
	SubscriptionStateActive    SubscriptionState = "ACTIVE"
	SubscriptionStatePending   SubscriptionState = "PENDING"
	SubscriptionStateCancelled SubscriptionState = "CANCELLED"
)

type InvoiceItemType string

const (
	InvoiceItemTypeFixed          InvoiceItemType = "FIXED"
	InvoiceItemTypeRecurring      InvoiceItemType = "RECURRING"
	InvoiceItemTypeUsage          InvoiceItemType = "USAGE"
	InvoiceItemTypeExternalCharge InvoiceItemType = "EXTERNAL_CHARGE"
	InvoiceItemTypeItemAdj        InvoiceItemType = "ITEM_ADJ"
	InvoiceItemTypeRepairAdj      InvoiceItemType = "REPAIR_ADJ"
	InvoiceItemTypeCreditAdj      InvoiceItemType = "CREDIT_ADJ"
	InvoiceItemTypeRefundAdj      InvoiceItemType = "REFUND_ADJ"
	InvoiceItemTypeCBAAdj         InvoiceItemType = "CBA_ADJ"
)

// Account is the source-of-truth account as seen by the analytics reader.
type Account struct {
	ID             uuid.UUID
	RecordID       int64
	TenantRecordID int64
	ExternalKey    string
	Name           string
	Email          string
	Currency       string
	CreatedDate    time.Time
}

type Invoice struct {
	ID            uuid.UUID
	RecordID      int64
	AccountID     uuid.UUID
	InvoiceNumber int64
	InvoiceDate   time.Time
	TargetDate    time.Time
	Currency      string
	Amount        decimal.Decimal
	CreditAdj     decimal.Decimal
	RefundAdj     decimal.Decimal
	PaidAmount    decimal.Decimal
	Balance       decimal.Decimal
	CreatedDate   time.Time
	Items         []InvoiceItem
}

type InvoiceItem struct {
	ID           uuid.UUID
	RecordID     int64
	InvoiceID    uuid.UUID
	BundleID     *uuid.UUID
	LinkedItemID *uuid.UUID
	ItemType     InvoiceItemType
	PlanName     string
	PhaseName    string
	StartDate    time.Time
	EndDate      *time.Time
	Amount       decimal.Decimal
	Currency     string
	CreatedDate  time.Time
}

type Payment struct {
	ID            uuid.UUID
	RecordID      int64
	AccountID     uuid.UUID
	InvoiceID     *uuid.UUID
	Amount        decimal.Decimal
	Currency      string
	Status        string
	EffectiveDate time.Time
	CreatedDate   time.Time
}

type Bundle struct {
	ID            uuid.UUID
	RecordID      int64
	AccountID     uuid.UUID
	ExternalKey   string
	CreatedDate   time.Time
	Subscriptions []Subscription
}

type Subscription struct {
	ID          uuid.UUID
	RecordID    int64
	BundleID    uuid.UUID
	Category    ProductCategory
	State       SubscriptionState
	CreatedDate time.Time
	Events      []SubscriptionEvent
}

// SubscriptionEvent is one entitlement or billing change of a subscription.
type SubscriptionEvent struct {
	ID            uuid.UUID
	RecordID      int64
	EventType     string
	EffectiveDate time.Time
	NextPlan      string
	NextPhase     string
	NextPrice     decimal.Decimal
	NextState     SubscriptionState
	Currency      string
}

type Tag struct {
	ID                uuid.UUID
	RecordID          int64
	ObjectID          uuid.UUID
	ObjectType        ObjectType
	TagDefinitionName string
	CreatedDate       time.Time
}

type CustomField struct {
	ID          uuid.UUID
	RecordID    int64
	ObjectID    uuid.UUID
	ObjectType  ObjectType
	Name        string
	Value       string
	CreatedDate time.Time
}

// BlockingState is one entry of an overdue/blocking history.
type BlockingState struct {
	RecordID         int64
	BlockedID        uuid.UUID
	BlockedType      ObjectType
	State            string
	Service          string
	BlockChange      bool
	BlockEntitlement bool
	BlockBilling     bool
	EffectiveDate    time.Time
}

// AuditLog is the creation audit entry of a source object.
type AuditLog struct {
	ObjectID    uuid.UUID
	ObjectType  ObjectType
	ChangeType  string
	UserName    string
	ReasonCode  string
	Comment     string
	CreatedDate time.Time
}

// AccountAuditLogs indexes creation audit entries by object.
type AccountAuditLogs map[uuid.UUID]AuditLog

func (a AccountAuditLogs) For(objectID uuid.UUID) AuditLog {
	if a == nil {
		return AuditLog{}
	}
	return a[objectID]
}

// SourceReader reads billing entities scoped by account and tenant.
type SourceReader interface {
	GetAccount(ctx context.Context, accountID uuid.UUID, cc CallContext) (*Account, error)
	ResolveAccountScope(ctx context.Context, accountID uuid.UUID, cc CallContext) (AccountScope, error)
	GetInvoicesByAccountID(ctx context.Context, accountID uuid.UUID, cc CallContext) ([]Invoice, error)
	GetPaymentsByAccountID(ctx context.Context, accountID uuid.UUID, cc CallContext) ([]Payment, error)
	GetBundlesForAccount(ctx context.Context, accountID uuid.UUID, cc CallContext) ([]Bundle, error)
	GetTagsForAccount(ctx context.Context, accountID uuid.UUID, cc CallContext) ([]Tag, error)
	GetCustomFieldsForAccount(ctx context.Context, accountID uuid.UUID, cc CallContext) ([]CustomField, error)
	// GetBlockingHistory returns the account's blocking states, most recent first.
	GetBlockingHistory(ctx context.Context, accountID uuid.UUID, cc CallContext) ([]BlockingState, error)
	GetAuditLogsForAccount(ctx context.Context, accountID uuid.UUID, cc CallContext) (AccountAuditLogs, error)
}
