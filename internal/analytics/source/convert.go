package source

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/smallbiznis/analytics/internal/analytics/domain"
)

func parseID(field, value string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(value))
	if err != nil {
		return uuid.Nil, fmt.Errorf("parse %s %q: %w", field, value, err)
	}
	return id, nil
}

func parseOptionalID(field string, value *string) (*uuid.UUID, error) {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil, nil
	}
	id, err := parseID(field, *value)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func (r InvoiceRecord) toDomain() (domain.Invoice, error) {
	id, err := parseID("invoice.id", r.ID)
	if err != nil {
		return domain.Invoice{}, err
	}
	accountID, err := parseID("invoice.account_id", r.AccountID)
	if err != nil {
		return domain.Invoice{}, err
	}
	return domain.Invoice{
		ID:            id,
		RecordID:      r.RecordID,
		AccountID:     accountID,
		InvoiceNumber: r.InvoiceNumber,
		InvoiceDate:   r.InvoiceDate.UTC(),
		TargetDate:    r.TargetDate.UTC(),
		Currency:      r.Currency,
		Amount:        r.Amount,
		CreditAdj:     r.CreditAdj,
		RefundAdj:     r.RefundAdj,
		PaidAmount:    r.PaidAmount,
		Balance:       r.Balance,
		CreatedDate:   r.CreatedDate.UTC(),
	}, nil
}

func (r InvoiceItemRecord) toDomain() (domain.InvoiceItem, error) {
	id, err := parseID("invoice_item.id", r.ID)
	if err != nil {
		return domain.InvoiceItem{}, err
	}
	invoiceID, err := parseID("invoice_item.invoice_id", r.InvoiceID)
	if err != nil {
		return domain.InvoiceItem{}, err
	}
	bundleID, err := parseOptionalID("invoice_item.bundle_id", r.BundleID)
	if err != nil {
		return domain.InvoiceItem{}, err
	}
	linkedItemID, err := parseOptionalID("invoice_item.linked_item_id", r.LinkedItemID)
	if err != nil {
		return domain.InvoiceItem{}, err
	}
	return domain.InvoiceItem{
		ID:           id,
		RecordID:     r.RecordID,
		InvoiceID:    invoiceID,
		BundleID:     bundleID,
		LinkedItemID: linkedItemID,
		ItemType:     domain.InvoiceItemType(strings.ToUpper(r.ItemType)),
		PlanName:     r.PlanName,
		PhaseName:    r.PhaseName,
		StartDate:    r.StartDate.UTC(),
		EndDate:      r.EndDate,
		Amount:       r.Amount,
		Currency:     r.Currency,
		CreatedDate:  r.CreatedDate.UTC(),
	}, nil
}

func (r PaymentRecord) toDomain() (domain.Payment, error) {
	id, err := parseID("payment.id", r.ID)
	if err != nil {
		return domain.Payment{}, err
	}
	accountID, err := parseID("payment.account_id", r.AccountID)
	if err != nil {
		return domain.Payment{}, err
	}
	invoiceID, err := parseOptionalID("payment.invoice_id", r.InvoiceID)
	if err != nil {
		return domain.Payment{}, err
	}
	return domain.Payment{
		ID:            id,
		RecordID:      r.RecordID,
		AccountID:     accountID,
		InvoiceID:     invoiceID,
		Amount:        r.Amount,
		Currency:      r.Currency,
		Status:        r.Status,
		EffectiveDate: r.EffectiveDate.UTC(),
		CreatedDate:   r.CreatedDate.UTC(),
	}, nil
}

func (r BundleRecord) toDomain() (domain.Bundle, error) {
	id, err := parseID("bundle.id", r.ID)
	if err != nil {
		return domain.Bundle{}, err
	}
	accountID, err := parseID("bundle.account_id", r.AccountID)
	if err != nil {
		return domain.Bundle{}, err
	}
	return domain.Bundle{
		ID:          id,
		RecordID:    r.RecordID,
		AccountID:   accountID,
		ExternalKey: r.ExternalKey,
		CreatedDate: r.CreatedDate.UTC(),
	}, nil
}

func (r SubscriptionRecord) toDomain() (domain.Subscription, error) {
	id, err := parseID("subscription.id", r.ID)
	if err != nil {
		return domain.Subscription{}, err
	}
	bundleID, err := parseID("subscription.bundle_id", r.BundleID)
	if err != nil {
		return domain.Subscription{}, err
	}
	return domain.Subscription{
		ID:          id,
		RecordID:    r.RecordID,
		BundleID:    bundleID,
		Category:    domain.ProductCategory(strings.ToUpper(r.Category)),
		State:       domain.SubscriptionState(strings.ToUpper(r.State)),
		CreatedDate: r.CreatedDate.UTC(),
	}, nil
}

func (r SubscriptionEventRecord) toDomain() (domain.SubscriptionEvent, error) {
	id, err := parseID("subscription_event.id", r.ID)
	if err != nil {
		return domain.SubscriptionEvent{}, err
	}
	return domain.SubscriptionEvent{
		ID:            id,
		RecordID:      r.RecordID,
		EventType:     r.EventType,
		EffectiveDate: r.EffectiveDate.UTC(),
		NextPlan:      r.PlanName,
		NextPhase:     r.PhaseName,
		NextPrice:     r.Price,
		NextState:     domain.SubscriptionState(strings.ToUpper(r.State)),
		Currency:      r.Currency,
	}, nil
}

func (r TagRecord) toDomain() (domain.Tag, error) {
	id, err := parseID("tag.id", r.ID)
	if err != nil {
		return domain.Tag{}, err
	}
	objectID, err := parseID("tag.object_id", r.ObjectID)
	if err != nil {
		return domain.Tag{}, err
	}
	return domain.Tag{
		ID:                id,
		RecordID:          r.RecordID,
		ObjectID:          objectID,
		ObjectType:        domain.ObjectType(strings.ToUpper(r.ObjectType)),
		TagDefinitionName: r.TagDefinitionName,
		CreatedDate:       r.CreatedDate.UTC(),
	}, nil
}

func (r CustomFieldRecord) toDomain() (domain.CustomField, error) {
	id, err := parseID("custom_field.id", r.ID)
	if err != nil {
		return domain.CustomField{}, err
	}
	objectID, err := parseID("custom_field.object_id", r.ObjectID)
	if err != nil {
		return domain.CustomField{}, err
	}
	return domain.CustomField{
		ID:          id,
		RecordID:    r.RecordID,
		ObjectID:    objectID,
		ObjectType:  domain.ObjectType(strings.ToUpper(r.ObjectType)),
		Name:        r.FieldName,
		Value:       r.FieldValue,
		CreatedDate: r.CreatedDate.UTC(),
	}, nil
}

func (r BlockingStateRecord) toDomain() (domain.BlockingState, error) {
	blockedID, err := parseID("blocking_state.blockable_id", r.BlockableID)
	if err != nil {
		return domain.BlockingState{}, err
	}
	return domain.BlockingState{
		RecordID:         r.RecordID,
		BlockedID:        blockedID,
		BlockedType:      domain.ObjectType(strings.ToUpper(r.Type)),
		State:            r.State,
		Service:          r.Service,
		BlockChange:      r.BlockChange,
		BlockEntitlement: r.BlockEntitlement,
		BlockBilling:     r.BlockBilling,
		EffectiveDate:    r.EffectiveDate.UTC(),
	}, nil
}
