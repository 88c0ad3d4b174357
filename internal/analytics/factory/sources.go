package factory

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/smallbiznis/analytics/internal/analytics/domain"
)

// Sources is the source data of one account, read once per rebuild.
type Sources struct {
	Account  domain.Account
	Scope    domain.AccountScope
	Audit    domain.AccountAuditLogs
	Tags     []domain.Tag
	Invoices []domain.Invoice
	Payments []domain.Payment
	Bundles  []domain.Bundle
	Fields   []domain.CustomField
	Blocking []domain.BlockingState
}

const (
	tagTest    = "TEST"
	tagPartner = "PARTNER"
)

// ReportGroupFor derives the report group from the tags attached to the account itself.
func ReportGroupFor(accountID uuid.UUID, tags []domain.Tag) domain.ReportGroup {
	group := domain.ReportGroupDefault
	for _, tag := range tags {
		if tag.ObjectType != domain.ObjectTypeAccount || tag.ObjectID != accountID {
			continue
		}
		switch strings.ToUpper(strings.TrimSpace(tag.TagDefinitionName)) {
		case tagTest:
			return domain.ReportGroupTest
		case tagPartner:
			group = domain.ReportGroupPartner
		}
	}
	return group
}

func (s Sources) base(objectID uuid.UUID, created time.Time) domain.FactBase {
	audit := s.Audit.For(objectID)
	createdDate := created
	if !audit.CreatedDate.IsZero() {
		createdDate = audit.CreatedDate
	}
	return domain.FactBase{
		AccountRecordID:    s.Scope.AccountRecordID,
		TenantRecordID:     s.Scope.TenantRecordID,
		AccountID:          s.Account.ID.String(),
		AccountExternalKey: s.Account.ExternalKey,
		AccountName:        s.Account.Name,
		ReportGroup:        ReportGroupFor(s.Account.ID, s.Tags),
		CreatedBy:          audit.UserName,
		CreatedReasonCode:  audit.ReasonCode,
		CreatedComment:     audit.Comment,
		CreatedDate:        createdDate.UTC(),
	}
}

func optionalID(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}

func timePtr(t time.Time) *time.Time {
	u := t.UTC()
	return &u
}

// laterRecord orders by time, then by record id so equal timestamps resolve to the newest record.
func laterRecord(t time.Time, recordID int64, than time.Time, thanRecordID int64) bool {
	if t.Equal(than) {
		return recordID > thanRecordID
	}
	return t.After(than)
}
