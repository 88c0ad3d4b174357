package listener

import (
	"strings"

	"github.com/google/uuid"
	"github.com/smallbiznis/analytics/internal/analytics/domain"
)

// Event is a billing domain event relevant to an account's analytics.
type Event struct {
	Type      string
	AccountID uuid.UUID
	TenantID  *uuid.UUID
	UserName  string
	Reason    string
	Comment   string
}

func (e Event) CallContext() domain.CallContext {
	return domain.CallContext{
		TenantID: e.TenantID,
		UserName: e.UserName,
		Reason:   e.Reason,
		Comment:  e.Comment,
	}
}

const eventOverdueChange = "OVERDUE_CHANGE"

var kindPrefixes = []struct {
	prefix string
	kind   domain.RefreshKind
}{
	{"ACCOUNT_", domain.RefreshKindSubscriptions},
	{"SUBSCRIPTION_", domain.RefreshKindSubscriptions},
	{"BUNDLE_", domain.RefreshKindSubscriptions},
	{"TAG_", domain.RefreshKindTags},
	{"CUSTOM_FIELD_", domain.RefreshKindFields},
	{"INVOICE_", domain.RefreshKindInvoices},
	{"PAYMENT_", domain.RefreshKindInvoices},
}

// KindForEvent maps an event type to the refresh it requires. Unknown types map to nothing.
func KindForEvent(eventType string) (domain.RefreshKind, bool) {
	eventType = strings.ToUpper(strings.TrimSpace(eventType))
	if eventType == eventOverdueChange {
		return domain.RefreshKindOverdue, true
	}
	for _, p := range kindPrefixes {
		if strings.HasPrefix(eventType, p.prefix) {
			return p.kind, true
		}
	}
	return "", false
}
