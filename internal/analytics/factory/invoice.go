package factory

import (
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/analytics/internal/analytics/domain"
)

// Invoices builds invoice rows and their items, split by item kind.
func Invoices(src Sources) ([]domain.BusinessInvoice, []domain.InvoiceItemBatch) {
	invoices := make([]domain.BusinessInvoice, 0, len(src.Invoices))
	byKind := make(map[domain.InvoiceItemKind][]domain.BusinessInvoiceItem, len(domain.InvoiceItemKinds))

	for _, invoice := range src.Invoices {
		original := decimal.Zero
		for _, item := range invoice.Items {
			kind := domain.InvoiceItemKindFor(item.ItemType)
			if kind == domain.InvoiceItemKindItem {
				original = original.Add(item.Amount)
			}

			row := domain.BusinessInvoiceItem{
				FactBase:            src.base(item.ID, item.CreatedDate),
				InvoiceItemRecordID: item.RecordID,
				InvoiceItemID:       item.ID.String(),
				InvoiceID:           invoice.ID.String(),
				InvoiceNumber:       invoice.InvoiceNumber,
				InvoiceDate:         invoice.InvoiceDate.UTC(),
				ItemType:            item.ItemType,
				BundleID:            optionalID(item.BundleID),
				LinkedItemID:        optionalID(item.LinkedItemID),
				PlanName:            item.PlanName,
				PhaseName:           item.PhaseName,
				StartDate:           item.StartDate.UTC(),
				Amount:              item.Amount,
				Currency:            item.Currency,
			}
			if item.EndDate != nil {
				row.EndDate = timePtr(*item.EndDate)
			}
			byKind[kind] = append(byKind[kind], row)
		}

		invoices = append(invoices, domain.BusinessInvoice{
			FactBase:              src.base(invoice.ID, invoice.CreatedDate),
			InvoiceRecordID:       invoice.RecordID,
			InvoiceID:             invoice.ID.String(),
			InvoiceNumber:         invoice.InvoiceNumber,
			InvoiceDate:           invoice.InvoiceDate.UTC(),
			TargetDate:            invoice.TargetDate.UTC(),
			Currency:              invoice.Currency,
			Balance:               invoice.Balance,
			AmountPaid:            invoice.PaidAmount,
			AmountCharged:         invoice.Amount,
			OriginalAmountCharged: original,
			AmountCredited:        invoice.CreditAdj,
			AmountRefunded:        invoice.RefundAdj,
		})
	}

	batches := make([]domain.InvoiceItemBatch, 0, len(domain.InvoiceItemKinds))
	for _, kind := range domain.InvoiceItemKinds {
		batches = append(batches, domain.InvoiceItemBatch{Kind: kind, Rows: byKind[kind]})
	}
	return invoices, batches
}
