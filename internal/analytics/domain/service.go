package domain

import (
	"context"

	"github.com/google/uuid"
)

// RefreshKind selects which fact sets a refresh recomputes.
type RefreshKind string

const (
	RefreshKindSubscriptions RefreshKind = "subscriptions"
	RefreshKindTags          RefreshKind = "tags"
	RefreshKindFields        RefreshKind = "fields"
	RefreshKindInvoices      RefreshKind = "invoices"
	RefreshKindOverdue       RefreshKind = "overdue"
	RefreshKindAll           RefreshKind = "all"
)

func (k RefreshKind) Valid() bool {
	switch k {
	case RefreshKindSubscriptions, RefreshKindTags, RefreshKindFields,
		RefreshKindInvoices, RefreshKindOverdue, RefreshKindAll:
		return true
	default:
		return false
	}
}

type Service interface {
	Rebuild(ctx context.Context, accountID uuid.UUID, cc CallContext) error
	RebuildTags(ctx context.Context, accountID uuid.UUID, cc CallContext) error
	RebuildFields(ctx context.Context, accountID uuid.UUID, cc CallContext) error
	RebuildOverdueStatuses(ctx context.Context, accountID uuid.UUID, cc CallContext) error
	RebuildInvoices(ctx context.Context, accountID uuid.UUID, cc CallContext) error
	RebuildAll(ctx context.Context, accountID uuid.UUID, cc CallContext) error
	Refresh(ctx context.Context, kind RefreshKind, accountID uuid.UUID, cc CallContext) error

	GetAccountSummary(ctx context.Context, accountID uuid.UUID, cc CallContext) (*BusinessAccount, error)
	GetSubscriptionTransitions(ctx context.Context, accountID uuid.UUID, cc CallContext) ([]BusinessSubscriptionTransition, error)
	GetBundleSummaries(ctx context.Context, accountID uuid.UUID, cc CallContext) ([]BusinessBundleSummary, error)
	GetTags(ctx context.Context, accountID uuid.UUID, cc CallContext) ([]BusinessTag, error)
	GetFields(ctx context.Context, accountID uuid.UUID, cc CallContext) ([]BusinessField, error)
	GetOverdueStatuses(ctx context.Context, accountID uuid.UUID, cc CallContext) ([]BusinessOverdueStatus, error)
	GetInvoices(ctx context.Context, accountID uuid.UUID, cc CallContext) ([]BusinessInvoice, error)
}
