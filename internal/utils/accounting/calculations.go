package accounting

import (
	"fmt"

	"github.com/SscSPs/invoice_review_app/internal/core/domain"
	"github.com/shopspring/decimal"
)

// SignedAmount applies the fixed sign convention of a ledger transaction type to a magnitude.
// Deductions debit the account, refunds and credits add to it, adjustments keep the caller's sign.
func SignedAmount(txnType domain.LedgerTransactionType, magnitude decimal.Decimal) (decimal.Decimal, error) {
	switch txnType {
	case domain.TxnInvoiceDeduction:
		return magnitude.Abs().Neg(), nil
	case domain.TxnInvoiceRefund, domain.TxnInvoiceDeleteRefund, domain.TxnAdvanceCredit:
		return magnitude.Abs(), nil
	case domain.TxnAdjustment:
		return magnitude, nil
	default:
		return decimal.Zero, fmt.Errorf("unknown ledger transaction type '%s'", txnType)
	}
}

// CheckSign verifies that a posting amount agrees with its transaction type's sign convention.
func CheckSign(txnType domain.LedgerTransactionType, amount decimal.Decimal) error {
	expected, err := SignedAmount(txnType, amount)
	if err != nil {
		return err
	}
	if !expected.Equal(amount) {
		return fmt.Errorf("amount %s has the wrong sign for %s", amount.String(), txnType)
	}
	return nil
}

// NextBalance computes balanceAfter for a posting at the fixed ledger scale.
func NextBalance(before, amount decimal.Decimal) decimal.Decimal {
	return before.Add(amount).Round(domain.AmountScale)
}
