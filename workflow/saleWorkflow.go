package workflow

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/retail_backend/authz"
	"bitbucket.org/mmdatafocus/retail_backend/config"
	"bitbucket.org/mmdatafocus/retail_backend/models"
	"bitbucket.org/mmdatafocus/retail_backend/utils"
	mysqlDriver "github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Sale transaction orchestrator. Each entry point authorizes the actor,
// then runs the whole workflow (stock reconciliation + sale write) in a
// single MySQL transaction so a failure at any step leaves both the sale
// and every product exactly as they were.
//
// Advisory locks survive COMMIT (they are connection-scoped, not
// transaction-scoped), so every path must release the posting lock on the
// still-live tx: explicitly before Commit on success, via the deferred
// release on error.

const saleResource = "sales"

func isDuplicateKeyErr(err error) bool {
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return false
}

// rollbackTx discards the transaction. A rollback that itself fails is the
// one condition that may leave sales and stock disagreeing, so it is logged
// as a CompensationError alert rather than returned to the user.
func rollbackTx(tx *gorm.DB, funcName string, op string) {
	logger := config.GetLogger()
	if err := tx.Rollback().Error; err != nil &&
		!errors.Is(err, sql.ErrTxDone) && !errors.Is(err, gorm.ErrInvalidTransaction) {
		comp := &CompensationError{Op: op, Err: err}
		config.LogError(logger, "saleWorkflow.go", funcName, "Rollback", nil, comp)
	}
}

func validateSaleItems(items []models.NewSaleItem) error {
	if len(items) == 0 {
		return ErrEmptySaleItems
	}
	for _, item := range items {
		if item.Quantity <= 0 {
			return ErrNonPositiveQuantity
		}
		if item.UnitPrice != nil && item.UnitPrice.IsNegative() {
			return ErrNegativeUnitPrice
		}
	}
	return nil
}

// lockSaleForPosting row-locks the sale, acquires its store's posting lock
// and returns the sale loaded AFTER the lock is held, so the caller never
// acts on quantities a concurrent workflow has already changed. A concurrent
// move to another store restarts the loop; a concurrent delete surfaces as
// ErrorRecordNotFound.
func lockSaleForPosting(tx *gorm.DB, funcName string, saleId int, lockedStore *int) (*models.Sale, error) {
	logger := config.GetLogger()

	for {
		// FOR UPDATE reads the latest committed row regardless of the
		// transaction's snapshot, and blocks rival sale mutations on the
		// row lock itself.
		var header struct{ StoreId int }
		err := tx.Model(&models.Sale{}).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("store_id").
			Where("id = ?", saleId).
			Take(&header).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, utils.ErrorRecordNotFound
			}
			config.LogError(logger, "saleWorkflow.go", funcName, "LockSaleRow", saleId, err)
			return nil, err
		}

		if header.StoreId == *lockedStore {
			break
		}
		if *lockedStore != 0 {
			ReleaseStorePostingLock(tx, *lockedStore)
			*lockedStore = 0
		}
		if err := AcquireStorePostingLock(tx, header.StoreId); err != nil {
			config.LogError(logger, "saleWorkflow.go", funcName, "AcquireStorePostingLock", header.StoreId, err)
			return nil, err
		}
		*lockedStore = header.StoreId
	}

	var sale models.Sale
	if err := tx.Preload("Items").First(&sale, saleId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		config.LogError(logger, "saleWorkflow.go", funcName, "GetSale", saleId, err)
		return nil, err
	}
	return &sale, nil
}

// CreateSale reserves stock for every line, prices the sale, allocates a
// sale number and persists the sale as completed/paid.
func CreateSale(ctx context.Context, input *models.NewSale) (*models.Sale, error) {
	db := config.GetDB()
	logger := config.GetLogger()

	if err := authz.Authorize(ctx, "create", saleResource); err != nil {
		return nil, err
	}

	if err := validateSaleItems(input.Items); err != nil {
		return nil, err
	}
	if input.PaymentMethod == "" {
		return nil, ErrPaymentMethodMissing
	}
	if err := utils.ValidateResourceId[models.Store](ctx, input.StoreId); err != nil {
		return nil, errors.New("store not found")
	}

	// best-effort redis lock; the advisory lock below is the authority
	release, err := utils.StoreLock(ctx, input.StoreId, "sale_posting", "saleWorkflow.go", "CreateSale")
	if err != nil {
		return nil, err
	}
	defer release()

	tx := db.WithContext(ctx).Begin()
	// always rollback on early-return or panic to avoid leaking DB locks
	defer func() {
		if r := recover(); r != nil {
			rollbackTx(tx, "CreateSale", "create")
			panic(r)
		}
	}()
	defer rollbackTx(tx, "CreateSale", "create")

	lockedStore := 0
	defer func() {
		if lockedStore != 0 {
			ReleaseStorePostingLock(tx, lockedStore)
		}
	}()
	if err := AcquireStorePostingLock(tx, input.StoreId); err != nil {
		config.LogError(logger, "saleWorkflow.go", "CreateSale", "AcquireStorePostingLock", input.StoreId, err)
		return nil, err
	}
	lockedStore = input.StoreId

	items, err := ReserveStock(tx, logger, input.Items)
	if err != nil {
		return nil, err
	}

	totals := CalculateSaleTotals(items, input.Discount, input.Tax)

	saleNumber, seq, err := models.NextSaleNumber(tx, input.StoreId)
	if err != nil {
		config.LogError(logger, "saleWorkflow.go", "CreateSale", "NextSaleNumber", input.StoreId, err)
		return nil, err
	}

	userId, _ := utils.GetUserIdFromContext(ctx)

	sale := models.Sale{
		SaleNumber:    saleNumber,
		SequenceNo:    seq,
		StoreId:       input.StoreId,
		UserId:        userId,
		Items:         items,
		Subtotal:      totals.Subtotal,
		Discount:      input.Discount,
		Tax:           input.Tax,
		TotalAmount:   totals.TotalAmount,
		PaymentMethod: input.PaymentMethod,
		PaymentStatus: models.PaymentStatusPaid,
		Status:        models.SaleStatusCompleted,
		Notes:         input.Notes,
		SaleDate:      time.Now().UTC(),
	}

	if err := tx.Create(&sale).Error; err != nil {
		if isDuplicateKeyErr(err) {
			// only possible when the advisory lock was bypassed
			config.LogError(logger, "saleWorkflow.go", "CreateSale", "DuplicateSaleNumber", saleNumber, err)
			return nil, errors.New("sale number collision, please retry")
		}
		config.LogError(logger, "saleWorkflow.go", "CreateSale", "CreateSale", sale, err)
		return nil, err
	}

	// release on the live tx; after Commit the tx can no longer run
	// RELEASE_LOCK and the advisory lock would outlive the request
	ReleaseStorePostingLock(tx, lockedStore)
	lockedStore = 0

	if err := tx.Commit().Error; err != nil {
		config.LogError(logger, "saleWorkflow.go", "CreateSale", "Commit", sale.SaleNumber, err)
		return nil, err
	}
	return &sale, nil
}

// UpdateSale applies a partial update. When new items are supplied the old
// reservation is released BEFORE the new one is taken, so the caller may swap
// to a product/quantity mix that would not fit while both were held. Both
// steps share one transaction: if the new reservation fails, the release is
// rolled back with it and the original state survives.
func UpdateSale(ctx context.Context, saleId int, patch *models.SalePatch) (*models.Sale, error) {
	db := config.GetDB()
	logger := config.GetLogger()

	if err := authz.Authorize(ctx, "update", saleResource); err != nil {
		return nil, err
	}

	if patch.Items != nil {
		if err := validateSaleItems(*patch.Items); err != nil {
			return nil, err
		}
	}
	if patch.StoreId != nil {
		if err := utils.ValidateResourceId[models.Store](ctx, *patch.StoreId); err != nil {
			return nil, errors.New("store not found")
		}
	}

	tx := db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			rollbackTx(tx, "UpdateSale", "update")
			panic(r)
		}
	}()
	defer rollbackTx(tx, "UpdateSale", "update")

	lockedStore := 0
	defer func() {
		if lockedStore != 0 {
			ReleaseStorePostingLock(tx, lockedStore)
		}
	}()
	salePtr, err := lockSaleForPosting(tx, "UpdateSale", saleId, &lockedStore)
	if err != nil {
		return nil, err
	}
	sale := *salePtr

	if patch.Items != nil {
		// a refunded sale's reservation is already released; swapping its
		// items would release it a second time
		if sale.Status == models.SaleStatusRefunded {
			return nil, ErrSaleAlreadyRefunded
		}
		// release-then-reserve, in this order (see function comment)
		if err := ReleaseStock(tx, logger, sale.Items); err != nil {
			return nil, err
		}
		newItems, err := ReserveStock(tx, logger, *patch.Items)
		if err != nil {
			return nil, err
		}
		if err := tx.Where("sale_id = ?", sale.ID).Delete(&models.SaleItem{}).Error; err != nil {
			config.LogError(logger, "saleWorkflow.go", "UpdateSale", "DeleteOldItems", sale.ID, err)
			return nil, err
		}
		for i := range newItems {
			newItems[i].SaleId = sale.ID
		}
		if err := tx.Create(&newItems).Error; err != nil {
			config.LogError(logger, "saleWorkflow.go", "UpdateSale", "CreateNewItems", sale.ID, err)
			return nil, err
		}
		sale.Items = newItems
	}

	// partial update: only fields explicitly supplied change
	if patch.Discount != nil {
		sale.Discount = *patch.Discount
	}
	if patch.Tax != nil {
		sale.Tax = *patch.Tax
	}
	if patch.PaymentMethod != nil {
		sale.PaymentMethod = *patch.PaymentMethod
	}
	if patch.PaymentStatus != nil {
		sale.PaymentStatus = *patch.PaymentStatus
	}
	if patch.Notes != nil {
		sale.Notes = *patch.Notes
	}
	if patch.StoreId != nil {
		// SaleNumber is immutable; moving a sale keeps its original number
		sale.StoreId = *patch.StoreId
	}

	// totals are always recomputed, never accepted from the caller
	totals := CalculateSaleTotals(sale.Items, sale.Discount, sale.Tax)
	sale.Subtotal = totals.Subtotal
	sale.TotalAmount = totals.TotalAmount

	if err := tx.Omit("Items").Save(&sale).Error; err != nil {
		config.LogError(logger, "saleWorkflow.go", "UpdateSale", "SaveSale", sale.ID, err)
		return nil, err
	}

	ReleaseStorePostingLock(tx, lockedStore)
	lockedStore = 0

	if err := tx.Commit().Error; err != nil {
		config.LogError(logger, "saleWorkflow.go", "UpdateSale", "Commit", sale.ID, err)
		return nil, err
	}
	return &sale, nil
}

// DeleteSale restores the sale's stock effect and removes the record
// permanently. There is no tombstone; reporting will no longer see it.
func DeleteSale(ctx context.Context, saleId int) (*models.Sale, error) {
	db := config.GetDB()
	logger := config.GetLogger()

	if err := authz.Authorize(ctx, "delete", saleResource); err != nil {
		return nil, err
	}

	tx := db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			rollbackTx(tx, "DeleteSale", "delete")
			panic(r)
		}
	}()
	defer rollbackTx(tx, "DeleteSale", "delete")

	lockedStore := 0
	defer func() {
		if lockedStore != 0 {
			ReleaseStorePostingLock(tx, lockedStore)
		}
	}()
	sale, err := lockSaleForPosting(tx, "DeleteSale", saleId, &lockedStore)
	if err != nil {
		return nil, err
	}

	// a refunded sale's stock already came back; restoring again on delete
	// would credit it twice
	if sale.Status != models.SaleStatusRefunded {
		if err := ReleaseStock(tx, logger, sale.Items); err != nil {
			return nil, err
		}
	}

	if err := tx.Where("sale_id = ?", sale.ID).Delete(&models.SaleItem{}).Error; err != nil {
		config.LogError(logger, "saleWorkflow.go", "DeleteSale", "DeleteItems", sale.ID, err)
		return nil, err
	}
	if err := tx.Delete(&models.Sale{}, sale.ID).Error; err != nil {
		config.LogError(logger, "saleWorkflow.go", "DeleteSale", "DeleteSale", sale.ID, err)
		return nil, err
	}

	ReleaseStorePostingLock(tx, lockedStore)
	lockedStore = 0

	if err := tx.Commit().Error; err != nil {
		config.LogError(logger, "saleWorkflow.go", "DeleteSale", "Commit", sale.ID, err)
		return nil, err
	}
	return sale, nil
}

// RefundSale restores the sale's stock effect and marks the record refunded.
// Unlike DeleteSale the record is retained. Refund is not idempotent: a
// second attempt fails and does not double-restore stock.
func RefundSale(ctx context.Context, saleId int) (*models.Sale, error) {
	db := config.GetDB()
	logger := config.GetLogger()

	if err := authz.Authorize(ctx, "refund", saleResource); err != nil {
		return nil, err
	}

	tx := db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			rollbackTx(tx, "RefundSale", "refund")
			panic(r)
		}
	}()
	defer rollbackTx(tx, "RefundSale", "refund")

	lockedStore := 0
	defer func() {
		if lockedStore != 0 {
			ReleaseStorePostingLock(tx, lockedStore)
		}
	}()
	sale, err := lockSaleForPosting(tx, "RefundSale", saleId, &lockedStore)
	if err != nil {
		return nil, err
	}

	// the status was read under the lock, so a concurrent refund either
	// finished before us (seen here) or is queued behind us
	if sale.Status == models.SaleStatusRefunded {
		return nil, ErrSaleAlreadyRefunded
	}

	if err := ReleaseStock(tx, logger, sale.Items); err != nil {
		return nil, err
	}

	sale.Status = models.SaleStatusRefunded
	sale.PaymentStatus = models.PaymentStatusRefunded
	if err := tx.Model(&models.Sale{}).Where("id = ?", sale.ID).
		Updates(map[string]interface{}{
			"status":         models.SaleStatusRefunded,
			"payment_status": models.PaymentStatusRefunded,
		}).Error; err != nil {
		config.LogError(logger, "saleWorkflow.go", "RefundSale", "UpdateStatus", sale.ID, err)
		return nil, err
	}

	ReleaseStorePostingLock(tx, lockedStore)
	lockedStore = 0

	if err := tx.Commit().Error; err != nil {
		config.LogError(logger, "saleWorkflow.go", "RefundSale", "Commit", sale.ID, err)
		return nil, err
	}
	return sale, nil
}
