package factory

import (
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/analytics/internal/analytics/domain"
)

// AccountSummary builds the account row. NbActiveBundles counts bundles with a live base
// subscription; the coordinator replaces it with the count derived from the bundle summaries.
func AccountSummary(src Sources) domain.BusinessAccount {
	row := domain.BusinessAccount{
		FactBase: src.base(src.Account.ID, src.Account.CreatedDate),
		Email:    src.Account.Email,
		Currency: src.Account.Currency,
		Balance:  decimal.Zero,
	}

	var oldestUnpaid, lastInvoice *domain.Invoice
	for i := range src.Invoices {
		invoice := &src.Invoices[i]
		row.Balance = row.Balance.Add(invoice.Balance)

		if invoice.Balance.IsPositive() {
			if oldestUnpaid == nil || invoice.InvoiceDate.Before(oldestUnpaid.InvoiceDate) {
				oldestUnpaid = invoice
			}
		}
		if lastInvoice == nil || laterRecord(invoice.InvoiceDate, invoice.RecordID, lastInvoice.InvoiceDate, lastInvoice.RecordID) {
			lastInvoice = invoice
		}
	}

	if oldestUnpaid != nil {
		row.OldestUnpaidInvoiceID = oldestUnpaid.ID.String()
		row.OldestUnpaidInvoiceDate = timePtr(oldestUnpaid.InvoiceDate)
		row.OldestUnpaidInvoiceBalance = oldestUnpaid.Balance
	}
	if lastInvoice != nil {
		row.LastInvoiceID = lastInvoice.ID.String()
		row.LastInvoiceDate = timePtr(lastInvoice.InvoiceDate)
		row.LastInvoiceBalance = lastInvoice.Balance
	}

	var lastPayment *domain.Payment
	for i := range src.Payments {
		payment := &src.Payments[i]
		if lastPayment == nil || laterRecord(payment.EffectiveDate, payment.RecordID, lastPayment.EffectiveDate, lastPayment.RecordID) {
			lastPayment = payment
		}
	}
	if lastPayment != nil {
		row.LastPaymentID = lastPayment.ID.String()
		row.LastPaymentDate = timePtr(lastPayment.EffectiveDate)
		row.LastPaymentStatus = lastPayment.Status
	}

	for _, bundle := range src.Bundles {
		for _, sub := range bundle.Subscriptions {
			if sub.Category == domain.ProductCategoryBase && sub.State != domain.SubscriptionStateCancelled {
				row.NbActiveBundles++
				break
			}
		}
	}

	return row
}
