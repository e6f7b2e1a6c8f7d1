package workflow

import (
	"testing"

	"bitbucket.org/mmdatafocus/retail_backend/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestPriceLine(t *testing.T) {
	lp := PriceLine(4, dec("5"), dec("3"))
	assert.True(t, lp.TotalPrice.Equal(dec("20")), "total = %s", lp.TotalPrice)
	assert.True(t, lp.Profit.Equal(dec("8")), "profit = %s", lp.Profit)
}

func TestPriceLineNegativeMargin(t *testing.T) {
	// selling below cost is legal; profit goes negative
	lp := PriceLine(2, dec("3"), dec("5"))
	assert.True(t, lp.TotalPrice.Equal(dec("6")))
	assert.True(t, lp.Profit.Equal(dec("-4")))
}

func TestCalculateSaleTotals(t *testing.T) {
	items := []models.SaleItem{
		{Quantity: 4, UnitPrice: dec("5"), TotalPrice: dec("20")},
		{Quantity: 1, UnitPrice: dec("10.50"), TotalPrice: dec("10.50")},
	}

	totals := CalculateSaleTotals(items, dec("2"), dec("1.50"))
	require.True(t, totals.Subtotal.Equal(dec("30.50")), "subtotal = %s", totals.Subtotal)
	// total = subtotal - discount + tax
	require.True(t, totals.TotalAmount.Equal(dec("30")), "total = %s", totals.TotalAmount)
}

func TestCalculateSaleTotalsDiscountExceedsSubtotal(t *testing.T) {
	items := []models.SaleItem{
		{Quantity: 1, UnitPrice: dec("5"), TotalPrice: dec("5")},
	}

	// an over-discount produces a negative total; it is surfaced, not clamped
	totals := CalculateSaleTotals(items, dec("10"), decimal.Zero)
	assert.True(t, totals.TotalAmount.Equal(dec("-5")), "total = %s", totals.TotalAmount)
}

func TestCalculateSaleTotalsEmpty(t *testing.T) {
	totals := CalculateSaleTotals(nil, decimal.Zero, decimal.Zero)
	assert.True(t, totals.Subtotal.IsZero())
	assert.True(t, totals.TotalAmount.IsZero())
}

func TestValidateSaleItems(t *testing.T) {
	assert.ErrorIs(t, validateSaleItems(nil), ErrEmptySaleItems)

	assert.ErrorIs(t, validateSaleItems([]models.NewSaleItem{
		{ProductId: 1, Quantity: 0},
	}), ErrNonPositiveQuantity)

	assert.ErrorIs(t, validateSaleItems([]models.NewSaleItem{
		{ProductId: 1, Quantity: -3},
	}), ErrNonPositiveQuantity)

	neg := dec("-1")
	assert.ErrorIs(t, validateSaleItems([]models.NewSaleItem{
		{ProductId: 1, Quantity: 1, UnitPrice: &neg},
	}), ErrNegativeUnitPrice)

	override := dec("0")
	assert.NoError(t, validateSaleItems([]models.NewSaleItem{
		{ProductId: 1, Quantity: 1},
		{ProductId: 2, Quantity: 2, UnitPrice: &override},
	}))
}
