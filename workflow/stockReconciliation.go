package workflow

import (
	"errors"

	"bitbucket.org/mmdatafocus/retail_backend/config"
	"bitbucket.org/mmdatafocus/retail_backend/models"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ReserveStock decrements product stock for each requested line, in the order
// supplied, and returns the resulting line items carrying the product's
// name/price/cost captured at this moment.
//
// The decrement is conditional at write time: `UPDATE ... WHERE quantity >= ?`
// is the authority that reports insufficiency, not the earlier read. Two
// concurrent reservations against the same product therefore cannot both
// succeed past the available quantity.
//
// IMPORTANT: must run inside the caller's transaction. A mid-batch failure is
// surfaced as-is and the caller's rollback discards every decrement already
// applied for earlier lines (all-or-nothing per batch).
func ReserveStock(tx *gorm.DB, logger *logrus.Logger, requested []models.NewSaleItem) ([]models.SaleItem, error) {

	items := make([]models.SaleItem, 0, len(requested))
	for _, req := range requested {
		var product models.Product
		err := tx.First(&product, req.ProductId).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, &ProductNotFoundError{ProductId: req.ProductId}
			}
			config.LogError(logger, "stockReconciliation.go", "ReserveStock", "GetProduct", req.ProductId, err)
			return nil, err
		}

		res := tx.Model(&models.Product{}).
			Where("id = ? AND quantity >= ?", req.ProductId, req.Quantity).
			UpdateColumn("quantity", gorm.Expr("quantity - ?", req.Quantity))
		if res.Error != nil {
			config.LogError(logger, "stockReconciliation.go", "ReserveStock", "DecrementQuantity", req, res.Error)
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			// The guarded update matched nothing: stock on record at write
			// time was below the request. Re-read for the error detail.
			available := 0
			if err := tx.Model(&models.Product{}).Where("id = ?", req.ProductId).
				Select("quantity").Scan(&available).Error; err != nil {
				config.LogError(logger, "stockReconciliation.go", "ReserveStock", "ReadAvailable", req.ProductId, err)
				return nil, err
			}
			return nil, &InsufficientStockError{
				ProductId: req.ProductId,
				Available: available,
				Requested: req.Quantity,
			}
		}

		unitPrice := product.Price
		if req.UnitPrice != nil {
			unitPrice = *req.UnitPrice
		}
		line := PriceLine(req.Quantity, unitPrice, product.CostPrice)

		items = append(items, models.SaleItem{
			ProductId:   product.ID,
			ProductName: product.Name,
			Quantity:    req.Quantity,
			UnitPrice:   unitPrice,
			TotalPrice:  line.TotalPrice,
			CostPrice:   product.CostPrice,
			Profit:      line.Profit,
		})
	}
	return items, nil
}

// ReleaseStock restores product stock for each line, reversing a prior
// reservation. A product deleted since the sale is tolerated: the release
// becomes a no-op for that line and the anomaly is logged.
func ReleaseStock(tx *gorm.DB, logger *logrus.Logger, items []models.SaleItem) error {

	for _, item := range items {
		res := tx.Model(&models.Product{}).
			Where("id = ?", item.ProductId).
			UpdateColumn("quantity", gorm.Expr("quantity + ?", item.Quantity))
		if res.Error != nil {
			config.LogError(logger, "stockReconciliation.go", "ReleaseStock", "IncrementQuantity", item, res.Error)
			return res.Error
		}
		if res.RowsAffected == 0 {
			config.LogWarn(logger, "stockReconciliation.go", "ReleaseStock", "ProductMissing", item.ProductId,
				"releasing stock for a product that no longer exists; skipped")
		}
	}
	return nil
}
