package domain

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// NoTenantRecordID marks fact rows written without a tenant context.
const NoTenantRecordID int64 = -1

// AccountScope partitions every fact row of one account.
type AccountScope struct {
	AccountRecordID int64
	TenantRecordID  int64
}

func (s AccountScope) HasTenant() bool {
	return s.TenantRecordID != NoTenantRecordID
}

func (s AccountScope) String() string {
	return fmt.Sprintf("%d/%d", s.TenantRecordID, s.AccountRecordID)
}

// CallContext carries the audit identity of whoever triggered a rebuild.
type CallContext struct {
	TenantID *uuid.UUID
	UserName string
	Reason   string
	Comment  string
}

func (c CallContext) TenantKey() string {
	if c.TenantID == nil {
		return "-"
	}
	return c.TenantID.String()
}

// LockKey names the serialization slot of one account within one tenant.
func LockKey(accountID uuid.UUID, cc CallContext) string {
	return strings.Join([]string{"analytics", "rebuild", cc.TenantKey(), accountID.String()}, ":")
}
