package source

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/smallbiznis/analytics/internal/analytics/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB *gorm.DB
}

type reader struct {
	db *gorm.DB
}

// NewReader reads source entities straight from the billing tables.
func NewReader(p Params) domain.SourceReader {
	return &reader{db: p.DB}
}

func (r *reader) GetAccount(ctx context.Context, accountID uuid.UUID, cc domain.CallContext) (*domain.Account, error) {
	record, err := r.account(ctx, accountID, cc)
	if err != nil {
		return nil, err
	}
	return &domain.Account{
		ID:             accountID,
		RecordID:       record.RecordID,
		TenantRecordID: record.TenantRecordID,
		ExternalKey:    record.ExternalKey,
		Name:           record.Name,
		Email:          record.Email,
		Currency:       record.Currency,
		CreatedDate:    record.CreatedDate.UTC(),
	}, nil
}

func (r *reader) ResolveAccountScope(ctx context.Context, accountID uuid.UUID, cc domain.CallContext) (domain.AccountScope, error) {
	record, err := r.account(ctx, accountID, cc)
	if err != nil {
		return domain.AccountScope{}, err
	}
	scope := domain.AccountScope{
		AccountRecordID: record.RecordID,
		TenantRecordID:  domain.NoTenantRecordID,
	}
	if cc.TenantID != nil {
		scope.TenantRecordID = record.TenantRecordID
	}
	return scope, nil
}

func (r *reader) account(ctx context.Context, accountID uuid.UUID, cc domain.CallContext) (*AccountRecord, error) {
	stmt := r.db.WithContext(ctx).Where("id = ?", accountID.String())
	if cc.TenantID != nil {
		tenantRecordID, err := r.tenantRecordID(ctx, *cc.TenantID)
		if err != nil {
			return nil, err
		}
		stmt = stmt.Where("tenant_record_id = ?", tenantRecordID)
	}

	var record AccountRecord
	if err := stmt.Take(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrAccountNotFound, accountID)
		}
		return nil, err
	}
	return &record, nil
}

func (r *reader) tenantRecordID(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var tenant TenantRecord
	err := r.db.WithContext(ctx).Where("id = ?", tenantID.String()).Take(&tenant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, fmt.Errorf("%w: unknown tenant %s", domain.ErrAccountNotFound, tenantID)
		}
		return 0, err
	}
	return tenant.RecordID, nil
}

func (r *reader) GetInvoicesByAccountID(ctx context.Context, accountID uuid.UUID, _ domain.CallContext) ([]domain.Invoice, error) {
	var invoices []InvoiceRecord
	if err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID.String()).
		Order("invoice_date ASC, record_id ASC").
		Find(&invoices).Error; err != nil {
		return nil, err
	}

	var items []InvoiceItemRecord
	if err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID.String()).
		Order("record_id ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}

	itemsByInvoice := make(map[string][]domain.InvoiceItem, len(invoices))
	for _, item := range items {
		converted, err := item.toDomain()
		if err != nil {
			return nil, err
		}
		itemsByInvoice[item.InvoiceID] = append(itemsByInvoice[item.InvoiceID], converted)
	}

	out := make([]domain.Invoice, 0, len(invoices))
	for _, invoice := range invoices {
		converted, err := invoice.toDomain()
		if err != nil {
			return nil, err
		}
		converted.Items = itemsByInvoice[invoice.ID]
		out = append(out, converted)
	}
	return out, nil
}

func (r *reader) GetPaymentsByAccountID(ctx context.Context, accountID uuid.UUID, _ domain.CallContext) ([]domain.Payment, error) {
	var payments []PaymentRecord
	if err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID.String()).
		Order("effective_date ASC, record_id ASC").
		Find(&payments).Error; err != nil {
		return nil, err
	}

	out := make([]domain.Payment, 0, len(payments))
	for _, payment := range payments {
		converted, err := payment.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, converted)
	}
	return out, nil
}

func (r *reader) GetBundlesForAccount(ctx context.Context, accountID uuid.UUID, _ domain.CallContext) ([]domain.Bundle, error) {
	var bundles []BundleRecord
	if err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID.String()).
		Order("record_id ASC").
		Find(&bundles).Error; err != nil {
		return nil, err
	}
	if len(bundles) == 0 {
		return nil, nil
	}

	bundleIDs := make([]string, 0, len(bundles))
	for _, bundle := range bundles {
		bundleIDs = append(bundleIDs, bundle.ID)
	}

	var subscriptions []SubscriptionRecord
	if err := r.db.WithContext(ctx).
		Where("bundle_id IN ?", bundleIDs).
		Order("record_id ASC").
		Find(&subscriptions).Error; err != nil {
		return nil, err
	}

	subscriptionIDs := make([]string, 0, len(subscriptions))
	for _, sub := range subscriptions {
		subscriptionIDs = append(subscriptionIDs, sub.ID)
	}

	var events []SubscriptionEventRecord
	if len(subscriptionIDs) > 0 {
		if err := r.db.WithContext(ctx).
			Where("subscription_id IN ? AND is_active = ?", subscriptionIDs, true).
			Order("effective_date ASC, record_id ASC").
			Find(&events).Error; err != nil {
			return nil, err
		}
	}

	eventsBySubscription := make(map[string][]domain.SubscriptionEvent, len(subscriptions))
	for _, event := range events {
		converted, err := event.toDomain()
		if err != nil {
			return nil, err
		}
		eventsBySubscription[event.SubscriptionID] = append(eventsBySubscription[event.SubscriptionID], converted)
	}

	subsByBundle := make(map[string][]domain.Subscription, len(bundles))
	for _, sub := range subscriptions {
		converted, err := sub.toDomain()
		if err != nil {
			return nil, err
		}
		converted.Events = eventsBySubscription[sub.ID]
		subsByBundle[sub.BundleID] = append(subsByBundle[sub.BundleID], converted)
	}

	out := make([]domain.Bundle, 0, len(bundles))
	for _, bundle := range bundles {
		converted, err := bundle.toDomain()
		if err != nil {
			return nil, err
		}
		converted.Subscriptions = subsByBundle[bundle.ID]
		out = append(out, converted)
	}
	return out, nil
}

func (r *reader) GetTagsForAccount(ctx context.Context, accountID uuid.UUID, _ domain.CallContext) ([]domain.Tag, error) {
	var tags []TagRecord
	if err := r.db.WithContext(ctx).
		Where("account_id = ? AND is_active = ?", accountID.String(), true).
		Order("record_id ASC").
		Find(&tags).Error; err != nil {
		return nil, err
	}

	out := make([]domain.Tag, 0, len(tags))
	for _, tag := range tags {
		converted, err := tag.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, converted)
	}
	return out, nil
}

func (r *reader) GetCustomFieldsForAccount(ctx context.Context, accountID uuid.UUID, _ domain.CallContext) ([]domain.CustomField, error) {
	var fields []CustomFieldRecord
	if err := r.db.WithContext(ctx).
		Where("account_id = ? AND is_active = ?", accountID.String(), true).
		Order("record_id ASC").
		Find(&fields).Error; err != nil {
		return nil, err
	}

	out := make([]domain.CustomField, 0, len(fields))
	for _, field := range fields {
		converted, err := field.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, converted)
	}
	return out, nil
}

func (r *reader) GetBlockingHistory(ctx context.Context, accountID uuid.UUID, _ domain.CallContext) ([]domain.BlockingState, error) {
	var states []BlockingStateRecord
	if err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID.String()).
		Order("effective_date DESC, record_id DESC").
		Find(&states).Error; err != nil {
		return nil, err
	}

	out := make([]domain.BlockingState, 0, len(states))
	for _, state := range states {
		converted, err := state.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, converted)
	}
	return out, nil
}

func (r *reader) GetAuditLogsForAccount(ctx context.Context, accountID uuid.UUID, _ domain.CallContext) (domain.AccountAuditLogs, error) {
	var logs []AuditLogRecord
	if err := r.db.WithContext(ctx).
		Where("account_id = ? AND change_type = ?", accountID.String(), "INSERT").
		Order("record_id ASC").
		Find(&logs).Error; err != nil {
		return nil, err
	}

	out := make(domain.AccountAuditLogs, len(logs))
	for _, log := range logs {
		objectID, err := parseID("audit_log.object_id", log.ObjectID)
		if err != nil {
			return nil, err
		}
		if _, seen := out[objectID]; seen {
			continue
		}
		out[objectID] = domain.AuditLog{
			ObjectID:    objectID,
			ObjectType:  domain.ObjectType(strings.ToUpper(log.ObjectType)),
			ChangeType:  log.ChangeType,
			UserName:    log.CreatedBy,
			ReasonCode:  log.ReasonCode,
			Comment:     log.Comments,
			CreatedDate: log.CreatedDate.UTC(),
		}
	}
	return out, nil
}
