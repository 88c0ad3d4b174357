package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/smallbiznis/analytics/internal/analytics/domain"
)

func (s *Service) GetAccountSummary(ctx context.Context, accountID uuid.UUID, cc domain.CallContext) (*domain.BusinessAccount, error) {
	var rows []domain.BusinessAccount
	if err := s.list(ctx, accountID, cc, domain.TableAccounts, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, domain.ErrFactsNotFound
	}
	return &rows[0], nil
}

func (s *Service) GetSubscriptionTransitions(ctx context.Context, accountID uuid.UUID, cc domain.CallContext) ([]domain.BusinessSubscriptionTransition, error) {
	var rows []domain.BusinessSubscriptionTransition
	if err := s.list(ctx, accountID, cc, domain.TableSubscriptionTransitions, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Service) GetBundleSummaries(ctx context.Context, accountID uuid.UUID, cc domain.CallContext) ([]domain.BusinessBundleSummary, error) {
	var rows []domain.BusinessBundleSummary
	if err := s.list(ctx, accountID, cc, domain.TableBundles, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// GetTags returns the account's tag facts across every object kind.
func (s *Service) GetTags(ctx context.Context, accountID uuid.UUID, cc domain.CallContext) ([]domain.BusinessTag, error) {
	var out []domain.BusinessTag
	for _, kind := range domain.ObjectKinds {
		var rows []domain.BusinessTag
		if err := s.list(ctx, accountID, cc, kind.TagTable(), &rows); err != nil {
			return nil, err
		}
		out = append(out, rows...)
	}
	return out, nil
}

func (s *Service) GetFields(ctx context.Context, accountID uuid.UUID, cc domain.CallContext) ([]domain.BusinessField, error) {
	var out []domain.BusinessField
	for _, kind := range domain.ObjectKinds {
		var rows []domain.BusinessField
		if err := s.list(ctx, accountID, cc, kind.FieldTable(), &rows); err != nil {
			return nil, err
		}
		out = append(out, rows...)
	}
	return out, nil
}

func (s *Service) GetOverdueStatuses(ctx context.Context, accountID uuid.UUID, cc domain.CallContext) ([]domain.BusinessOverdueStatus, error) {
	var rows []domain.BusinessOverdueStatus
	if err := s.list(ctx, accountID, cc, domain.TableOverdueStatuses, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Service) GetInvoices(ctx context.Context, accountID uuid.UUID, cc domain.CallContext) ([]domain.BusinessInvoice, error) {
	var rows []domain.BusinessInvoice
	if err := s.list(ctx, accountID, cc, domain.TableInvoices, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Service) list(ctx context.Context, accountID uuid.UUID, cc domain.CallContext, table domain.FactTable, dest any) error {
	scope, err := s.source.ResolveAccountScope(ctx, accountID, cc)
	if err != nil {
		return err
	}
	return s.repo.ListByAccountScope(ctx, s.db.WithContext(ctx), table, scope, dest)
}
