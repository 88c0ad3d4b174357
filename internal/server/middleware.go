package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	analyticsdomain "github.com/smallbiznis/analytics/internal/analytics/domain"
)

const (
	HeaderCreatedBy = "X-Killbill-CreatedBy"
	HeaderReason    = "X-Killbill-Reason"
	HeaderComment   = "X-Killbill-Comment"
)

// callContext builds the caller identity from the audit headers and the tenantId query.
func callContext(c *gin.Context) (analyticsdomain.CallContext, error) {
	cc := analyticsdomain.CallContext{
		UserName: strings.TrimSpace(c.GetHeader(HeaderCreatedBy)),
		Reason:   strings.TrimSpace(c.GetHeader(HeaderReason)),
		Comment:  strings.TrimSpace(c.GetHeader(HeaderComment)),
	}
	if raw := strings.TrimSpace(c.Query("tenantId")); raw != "" {
		tenantID, err := uuid.Parse(raw)
		if err != nil {
			return cc, newValidationError("tenantId", "invalid_tenant_id", "tenantId must be a uuid")
		}
		cc.TenantID = &tenantID
	}
	return cc, nil
}

func accountIDParam(c *gin.Context) (uuid.UUID, error) {
	accountID, err := uuid.Parse(strings.TrimSpace(c.Param("accountId")))
	if err != nil || accountID == uuid.Nil {
		return uuid.Nil, newValidationError("accountId", "invalid_account_id", "accountId must be a uuid")
	}
	return accountID, nil
}
