package source

import (
	"time"

	"github.com/shopspring/decimal"
)

// Records mirror the billing tables the analytics reader consumes.

type TenantRecord struct {
	RecordID int64  `gorm:"column:record_id;primaryKey;autoIncrement:false"`
	ID       string `gorm:"column:id;uniqueIndex;not null"`
	APIKey   string `gorm:"column:api_key"`
}

func (TenantRecord) TableName() string { return "tenants" }

type AccountRecord struct {
	RecordID       int64     `gorm:"column:record_id;primaryKey;autoIncrement:false"`
	ID             string    `gorm:"column:id;uniqueIndex;not null"`
	TenantRecordID int64     `gorm:"column:tenant_record_id;index"`
	ExternalKey    string    `gorm:"column:external_key"`
	Name           string    `gorm:"column:name"`
	Email          string    `gorm:"column:email"`
	Currency       string    `gorm:"column:currency"`
	CreatedDate    time.Time `gorm:"column:created_date"`
}

func (AccountRecord) TableName() string { return "accounts" }

type InvoiceRecord struct {
	RecordID       int64           `gorm:"column:record_id;primaryKey;autoIncrement:false"`
	ID             string          `gorm:"column:id;uniqueIndex;not null"`
	AccountID      string          `gorm:"column:account_id;index;not null"`
	TenantRecordID int64           `gorm:"column:tenant_record_id"`
	InvoiceNumber  int64           `gorm:"column:invoice_number"`
	InvoiceDate    time.Time       `gorm:"column:invoice_date"`
	TargetDate     time.Time       `gorm:"column:target_date"`
	Currency       string          `gorm:"column:currency"`
	Amount         decimal.Decimal `gorm:"column:amount;type:numeric(38,10)"`
	CreditAdj      decimal.Decimal `gorm:"column:credit_adj;type:numeric(38,10)"`
	RefundAdj      decimal.Decimal `gorm:"column:refund_adj;type:numeric(38,10)"`
	PaidAmount     decimal.Decimal `gorm:"column:paid_amount;type:numeric(38,10)"`
	Balance        decimal.Decimal `gorm:"column:balance;type:numeric(38,10)"`
	CreatedDate    time.Time       `gorm:"column:created_date"`
}

func (InvoiceRecord) TableName() string { return "invoices" }

type InvoiceItemRecord struct {
	RecordID     int64           `gorm:"column:record_id;primaryKey;autoIncrement:false"`
	ID           string          `gorm:"column:id;uniqueIndex;not null"`
	InvoiceID    string          `gorm:"column:invoice_id;index;not null"`
	AccountID    string          `gorm:"column:account_id;index;not null"`
	BundleID     *string         `gorm:"column:bundle_id"`
	LinkedItemID *string         `gorm:"column:linked_item_id"`
	ItemType     string          `gorm:"column:type"`
	PlanName     string          `gorm:"column:plan_name"`
	PhaseName    string          `gorm:"column:phase_name"`
	StartDate    time.Time       `gorm:"column:start_date"`
	EndDate      *time.Time      `gorm:"column:end_date"`
	Amount       decimal.Decimal `gorm:"column:amount;type:numeric(38,10)"`
	Currency     string          `gorm:"column:currency"`
	CreatedDate  time.Time       `gorm:"column:created_date"`
}

func (InvoiceItemRecord) TableName() string { return "invoice_items" }

type PaymentRecord struct {
	RecordID      int64           `gorm:"column:record_id;primaryKey;autoIncrement:false"`
	ID            string          `gorm:"column:id;uniqueIndex;not null"`
	AccountID     string          `gorm:"column:account_id;index;not null"`
	InvoiceID     *string         `gorm:"column:invoice_id"`
	Amount        decimal.Decimal `gorm:"column:amount;type:numeric(38,10)"`
	Currency      string          `gorm:"column:currency"`
	Status        string          `gorm:"column:status"`
	EffectiveDate time.Time       `gorm:"column:effective_date"`
	CreatedDate   time.Time       `gorm:"column:created_date"`
}

func (PaymentRecord) TableName() string { return "payments" }

type BundleRecord struct {
	RecordID    int64     `gorm:"column:record_id;primaryKey;autoIncrement:false"`
	ID          string    `gorm:"column:id;uniqueIndex;not null"`
	AccountID   string    `gorm:"column:account_id;index;not null"`
	ExternalKey string    `gorm:"column:external_key"`
	CreatedDate time.Time `gorm:"column:created_date"`
}

func (BundleRecord) TableName() string { return "bundles" }

type SubscriptionRecord struct {
	RecordID    int64     `gorm:"column:record_id;primaryKey;autoIncrement:false"`
	ID          string    `gorm:"column:id;uniqueIndex;not null"`
	BundleID    string    `gorm:"column:bundle_id;index;not null"`
	Category    string    `gorm:"column:category"`
	State       string    `gorm:"column:state"`
	CreatedDate time.Time `gorm:"column:created_date"`
}

func (SubscriptionRecord) TableName() string { return "subscriptions" }

type SubscriptionEventRecord struct {
	RecordID       int64           `gorm:"column:record_id;primaryKey;autoIncrement:false"`
	ID             string          `gorm:"column:id;uniqueIndex;not null"`
	SubscriptionID string          `gorm:"column:subscription_id;index;not null"`
	EventType      string          `gorm:"column:event_type"`
	EffectiveDate  time.Time       `gorm:"column:effective_date"`
	PlanName       string          `gorm:"column:plan_name"`
	PhaseName      string          `gorm:"column:phase_name"`
	Price          decimal.Decimal `gorm:"column:price;type:numeric(38,10)"`
	State          string          `gorm:"column:state"`
	Currency       string          `gorm:"column:currency"`
	IsActive       bool            `gorm:"column:is_active;default:true"`
}

func (SubscriptionEventRecord) TableName() string { return "subscription_events" }

type TagRecord struct {
	RecordID          int64     `gorm:"column:record_id;primaryKey;autoIncrement:false"`
	ID                string    `gorm:"column:id;uniqueIndex;not null"`
	AccountID         string    `gorm:"column:account_id;index;not null"`
	ObjectID          string    `gorm:"column:object_id;not null"`
	ObjectType        string    `gorm:"column:object_type;not null"`
	TagDefinitionName string    `gorm:"column:tag_definition_name"`
	IsActive          bool      `gorm:"column:is_active;default:true"`
	CreatedDate       time.Time `gorm:"column:created_date"`
}

func (TagRecord) TableName() string { return "tags" }

type CustomFieldRecord struct {
	RecordID    int64     `gorm:"column:record_id;primaryKey;autoIncrement:false"`
	ID          string    `gorm:"column:id;uniqueIndex;not null"`
	AccountID   string    `gorm:"column:account_id;index;not null"`
	ObjectID    string    `gorm:"column:object_id;not null"`
	ObjectType  string    `gorm:"column:object_type;not null"`
	FieldName   string    `gorm:"column:field_name"`
	FieldValue  string    `gorm:"column:field_value"`
	IsActive    bool      `gorm:"column:is_active;default:true"`
	CreatedDate time.Time `gorm:"column:created_date"`
}

func (CustomFieldRecord) TableName() string { return "custom_fields" }

type BlockingStateRecord struct {
	RecordID         int64     `gorm:"column:record_id;primaryKey;autoIncrement:false"`
	AccountID        string    `gorm:"column:account_id;index;not null"`
	BlockableID      string    `gorm:"column:blockable_id;not null"`
	Type             string    `gorm:"column:type"`
	State            string    `gorm:"column:state"`
	Service          string    `gorm:"column:service"`
	BlockChange      bool      `gorm:"column:block_change"`
	BlockEntitlement bool      `gorm:"column:block_entitlement"`
	BlockBilling     bool      `gorm:"column:block_billing"`
	EffectiveDate    time.Time `gorm:"column:effective_date"`
}

func (BlockingStateRecord) TableName() string { return "blocking_states" }

type AuditLogRecord struct {
	RecordID    int64     `gorm:"column:record_id;primaryKey;autoIncrement:false"`
	AccountID   string    `gorm:"column:account_id;index;not null"`
	ObjectID    string    `gorm:"column:object_id;not null"`
	ObjectType  string    `gorm:"column:object_type"`
	ChangeType  string    `gorm:"column:change_type"`
	CreatedBy   string    `gorm:"column:created_by"`
	ReasonCode  string    `gorm:"column:reason_code"`
	Comments    string    `gorm:"column:comments"`
	CreatedDate time.Time `gorm:"column:created_date"`
}

func (AuditLogRecord) TableName() string { return "audit_log" }

// Models lists every source record for schema setup in tests and local runs.
func Models() []any {
	return []any{
		&TenantRecord{},
		&AccountRecord{},
		&InvoiceRecord{},
		&InvoiceItemRecord{},
		&PaymentRecord{},
		&BundleRecord{},
		&SubscriptionRecord{},
		&SubscriptionEventRecord{},
		&TagRecord{},
		&CustomFieldRecord{},
		&BlockingStateRecord{},
		&AuditLogRecord{},
	}
}
