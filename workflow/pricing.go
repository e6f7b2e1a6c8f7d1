package workflow

import (
	"bitbucket.org/mmdatafocus/retail_backend/models"
	"github.com/shopspring/decimal"
)

// Pure pricing arithmetic. Nothing here touches the database; callers
// validate quantities and prices before invoking these.

type LinePrice struct {
	TotalPrice decimal.Decimal
	Profit     decimal.Decimal
}

// PriceLine computes a line's total and profit from its snapshot values:
// totalPrice = quantity * unitPrice, profit = (unitPrice - costPrice) * quantity.
func PriceLine(quantity int, unitPrice decimal.Decimal, costPrice decimal.Decimal) LinePrice {
	qty := decimal.NewFromInt(int64(quantity))
	return LinePrice{
		TotalPrice: unitPrice.Mul(qty),
		Profit:     unitPrice.Sub(costPrice).Mul(qty),
	}
}

type SaleTotals struct {
	Subtotal    decimal.Decimal
	TotalAmount decimal.Decimal
}

// CalculateSaleTotals sums item totals and applies discount and tax:
// totalAmount = subtotal - discount + tax.
//
// The total is deliberately not clamped; a discount larger than
// subtotal+tax yields a negative total that the caller surfaces as-is.
func CalculateSaleTotals(items []models.SaleItem, discount decimal.Decimal, tax decimal.Decimal) SaleTotals {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.TotalPrice)
	}
	return SaleTotals{
		Subtotal:    subtotal,
		TotalAmount: subtotal.Sub(discount).Add(tax),
	}
}
