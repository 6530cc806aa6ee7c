package utils

import (
	"github.com/SscSPs/invoice_review_app/internal/core/domain"
	"github.com/shopspring/decimal"
)

// FormatAmount formats an amount at the fixed ledger precision.
// Example: 750 returns "750.00", -19.9 returns "-19.90".
func FormatAmount(amount decimal.Decimal) string {
	return amount.StringFixed(domain.AmountScale)
}

// FormatOptionalAmount formats a nullable amount, returning "" for nil.
func FormatOptionalAmount(amount *decimal.Decimal) string {
	if amount == nil {
		return ""
	}
	return FormatAmount(*amount)
}
