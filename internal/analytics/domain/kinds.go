package domain

// ObjectKind selects the tag or field table an object's rows belong to.
type ObjectKind string

const (
	ObjectKindAccount        ObjectKind = "ACCOUNT"
	ObjectKindBundle         ObjectKind = "BUNDLE"
	ObjectKindInvoice        ObjectKind = "INVOICE"
	ObjectKindInvoicePayment ObjectKind = "INVOICE_PAYMENT"
)

// ObjectKinds lists the kinds in table write order.
var ObjectKinds = []ObjectKind{
	ObjectKindAccount,
	ObjectKindBundle,
	ObjectKindInvoice,
	ObjectKindInvoicePayment,
}

// ObjectKindFor maps a source object type onto its kind. Types without a table report false.
func ObjectKindFor(objectType ObjectType) (ObjectKind, bool) {
	switch objectType {
	case ObjectTypeAccount:
		return ObjectKindAccount, true
	case ObjectTypeBundle:
		return ObjectKindBundle, true
	case ObjectTypeInvoice:
		return ObjectKindInvoice, true
	case ObjectTypeInvoicePayment, ObjectTypePayment:
		return ObjectKindInvoicePayment, true
	default:
		return "", false
	}
}

func (k ObjectKind) TagTable() FactTable {
	switch k {
	case ObjectKindAccount:
		return TableAccountTags
	case ObjectKindBundle:
		return TableBundleTags
	case ObjectKindInvoice:
		return TableInvoiceTags
	case ObjectKindInvoicePayment:
		return TableInvoicePaymentTags
	default:
		return ""
	}
}

func (k ObjectKind) FieldTable() FactTable {
	switch k {
	case ObjectKindAccount:
		return TableAccountFields
	case ObjectKindBundle:
		return TableBundleFields
	case ObjectKindInvoice:
		return TableInvoiceFields
	case ObjectKindInvoicePayment:
		return TableInvoicePaymentFields
	default:
		return ""
	}
}

// TagBatch is the set of tag rows destined for one tag table.
type TagBatch struct {
	Kind ObjectKind
	Rows []BusinessTag
}

// Validate rejects rows whose object type does not belong to the batch kind.
func (b TagBatch) Validate() error {
	for _, row := range b.Rows {
		kind, ok := ObjectKindFor(row.ObjectType)
		if !ok || kind != b.Kind {
			return ErrMixedTagBatch
		}
	}
	return nil
}

// FieldBatch is the set of custom field rows destined for one field table.
type FieldBatch struct {
	Kind ObjectKind
	Rows []BusinessField
}

func (b FieldBatch) Validate() error {
	for _, row := range b.Rows {
		kind, ok := ObjectKindFor(row.ObjectType)
		if !ok || kind != b.Kind {
			return ErrMixedTagBatch
		}
	}
	return nil
}

// InvoiceItemKind is the closed set of invoice item fact tables.
type InvoiceItemKind string

const (
	InvoiceItemKindItem           InvoiceItemKind = "ITEM"
	InvoiceItemKindAdjustment     InvoiceItemKind = "ADJUSTMENT"
	InvoiceItemKindItemAdjustment InvoiceItemKind = "ITEM_ADJUSTMENT"
	InvoiceItemKindCredit         InvoiceItemKind = "CREDIT"
)

var InvoiceItemKinds = []InvoiceItemKind{
	InvoiceItemKindItem,
	InvoiceItemKindAdjustment,
	InvoiceItemKindItemAdjustment,
	InvoiceItemKindCredit,
}

// InvoiceItemKindFor classifies a source item type.
func InvoiceItemKindFor(itemType InvoiceItemType) InvoiceItemKind {
	switch itemType {
	case InvoiceItemTypeItemAdj, InvoiceItemTypeRepairAdj:
		return InvoiceItemKindItemAdjustment
	case InvoiceItemTypeCreditAdj, InvoiceItemTypeRefundAdj:
		return InvoiceItemKindAdjustment
	case InvoiceItemTypeCBAAdj:
		return InvoiceItemKindCredit
	default:
		return InvoiceItemKindItem
	}
}

func (k InvoiceItemKind) Table() FactTable {
	switch k {
	case InvoiceItemKindAdjustment:
		return TableInvoiceAdjustments
	case InvoiceItemKindItemAdjustment:
		return TableInvoiceItemAdjustments
	case InvoiceItemKindCredit:
		return TableInvoiceCredits
	default:
		return TableInvoiceItems
	}
}

// InvoiceItemBatch is the set of item rows destined for one invoice item table.
type InvoiceItemBatch struct {
	Kind InvoiceItemKind
	Rows []BusinessInvoiceItem
}

// TableSpec describes how a fact table is created and listed.
type TableSpec struct {
	Table   FactTable
	Model   any
	OrderBy string
}

var tableSpecs = []TableSpec{
	{Table: TableAccounts, Model: &BusinessAccount{}, OrderBy: "account_record_id"},
	{Table: TableSubscriptionTransitions, Model: &BusinessSubscriptionTransition{}, OrderBy: "subscription_event_record_id"},
	{Table: TableBundles, Model: &BusinessBundleSummary{}, OrderBy: "bundle_account_rank"},
	{Table: TableAccountTags, Model: &BusinessTag{}, OrderBy: "tag_record_id"},
	{Table: TableBundleTags, Model: &BusinessTag{}, OrderBy: "tag_record_id"},
	{Table: TableInvoiceTags, Model: &BusinessTag{}, OrderBy: "tag_record_id"},
	{Table: TableInvoicePaymentTags, Model: &BusinessTag{}, OrderBy: "tag_record_id"},
	{Table: TableAccountFields, Model: &BusinessField{}, OrderBy: "custom_field_record_id"},
	{Table: TableBundleFields, Model: &BusinessField{}, OrderBy: "custom_field_record_id"},
	{Table: TableInvoiceFields, Model: &BusinessField{}, OrderBy: "custom_field_record_id"},
	{Table: TableInvoicePaymentFields, Model: &BusinessField{}, OrderBy: "custom_field_record_id"},
	{Table: TableOverdueStatuses, Model: &BusinessOverdueStatus{}, OrderBy: "start_date, blocking_state_record_id"},
	{Table: TableInvoices, Model: &BusinessInvoice{}, OrderBy: "invoice_record_id"},
	{Table: TableInvoiceItems, Model: &BusinessInvoiceItem{}, OrderBy: "invoice_item_record_id"},
	{Table: TableInvoiceAdjustments, Model: &BusinessInvoiceItem{}, OrderBy: "invoice_item_record_id"},
	{Table: TableInvoiceItemAdjustments, Model: &BusinessInvoiceItem{}, OrderBy: "invoice_item_record_id"},
	{Table: TableInvoiceCredits, Model: &BusinessInvoiceItem{}, OrderBy: "invoice_item_record_id"},
}

// TableSpecs returns every fact table.
func TableSpecs() []TableSpec {
	out := make([]TableSpec, len(tableSpecs))
	copy(out, tableSpecs)
	return out
}

// LookupTable returns the spec of a known fact table.
func LookupTable(table FactTable) (TableSpec, bool) {
	for _, spec := range tableSpecs {
		if spec.Table == table {
			return spec, true
		}
	}
	return TableSpec{}, false
}
