package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/smallbiznis/analytics/internal/analytics/domain"
	"github.com/smallbiznis/analytics/internal/analytics/listener"
	"go.uber.org/zap"
)

func (s *Server) GetAccountSummary(c *gin.Context) {
	accountID, err := accountIDParam(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	cc, err := callContext(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	summary, err := s.analyticsSvc.GetAccountSummary(c.Request.Context(), accountID, cc)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// RebuildAccount recomputes every fact set of the account synchronously.
func (s *Server) RebuildAccount(c *gin.Context) {
	accountID, err := accountIDParam(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	cc, err := callContext(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.analyticsSvc.RebuildAll(c.Request.Context(), accountID, cc); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusCreated)
}

// EnqueueAccountRefresh queues a refresh; kind defaults to all.
func (s *Server) EnqueueAccountRefresh(c *gin.Context) {
	if s.queue == nil {
		AbortWithError(c, ErrUnavailable)
		return
	}
	accountID, err := accountIDParam(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	cc, err := callContext(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	kind := domain.RefreshKindAll
	if raw := strings.TrimSpace(c.Query("kind")); raw != "" {
		kind = domain.RefreshKind(strings.ToLower(raw))
	}

	id, err := s.queue.EnqueueRefresh(c.Request.Context(), kind, accountID, cc)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	s.log.Debug("account refresh queued",
		zap.String("account_id", accountID.String()),
		zap.String("kind", string(kind)),
		zap.String("request_id", id.String()),
	)
	c.JSON(http.StatusAccepted, gin.H{"id": id.String(), "kind": kind})
}

type billingEventRequest struct {
	Type      string `json:"type" binding:"required"`
	AccountID string `json:"account_id" binding:"required"`
	TenantID  string `json:"tenant_id"`
	UserName  string `json:"user_name"`
	Reason    string `json:"reason"`
	Comment   string `json:"comment"`
}

// HandleBillingEvent accepts a billing event and queues the refresh it implies.
// Events that touch no fact set are acknowledged and dropped.
func (s *Server) HandleBillingEvent(c *gin.Context) {
	if s.queue == nil {
		AbortWithError(c, ErrUnavailable)
		return
	}

	var req billingEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	accountID, err := uuid.Parse(strings.TrimSpace(req.AccountID))
	if err != nil {
		AbortWithError(c, newValidationError("account_id", "invalid_account_id", "account_id must be a uuid"))
		return
	}
	event := listener.Event{
		Type:      req.Type,
		AccountID: accountID,
		UserName:  req.UserName,
		Reason:    req.Reason,
		Comment:   req.Comment,
	}
	if raw := strings.TrimSpace(req.TenantID); raw != "" {
		tenantID, err := uuid.Parse(raw)
		if err != nil {
			AbortWithError(c, newValidationError("tenant_id", "invalid_tenant_id", "tenant_id must be a uuid"))
			return
		}
		event.TenantID = &tenantID
	}

	queued, err := s.queue.HandleEvent(c.Request.Context(), event)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"queued": queued})
}
