package domain

import (
	"errors"
	"fmt"
)

var (
	ErrRefresh          = errors.New("analytics_refresh_failed")
	ErrAccountNotFound  = errors.New("account_not_found")
	ErrInvalidAccountID = errors.New("invalid_account_id")
	ErrMixedTagBatch    = errors.New("mixed_tag_batch")
	ErrUnknownFactTable = errors.New("unknown_fact_table")
	ErrAccountBusy      = errors.New("account_rebuild_in_progress")
	ErrFactsNotFound    = errors.New("facts_not_found")
	ErrInvalidKind      = errors.New("invalid_refresh_kind")
)

// Rebuild stages reported by RefreshError.
const (
	StageResolve = "resolve"
	StageLock    = "lock"
	StageRead    = "read"
	StageCompute = "compute"
	StageCommit  = "commit"
)

// RefreshError reports a failed rebuild. The account's committed facts are unchanged.
type RefreshError struct {
	AccountID string
	Kind      string
	Stage     string
	Err       error
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("refresh %s for account %s failed at %s: %v", e.Kind, e.AccountID, e.Stage, e.Err)
}

func (e *RefreshError) Unwrap() error {
	return e.Err
}

func (e *RefreshError) Is(target error) bool {
	return target == ErrRefresh
}

// IsConfigurationError reports caller mistakes that must not be retried.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrMixedTagBatch) ||
		errors.Is(err, ErrUnknownFactTable) ||
		errors.Is(err, ErrInvalidKind)
}
