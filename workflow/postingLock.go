package workflow

import (
	"fmt"

	"gorm.io/gorm"
)

// AcquireStorePostingLock serializes sale posting per store across instances
// using MySQL advisory locks. Sale number allocation depends on this.
// NOTE: GET_LOCK is connection-scoped, so this must be called on the same
// *gorm.DB that runs the posting transaction.
func AcquireStorePostingLock(tx *gorm.DB, storeId int) error {
	lockName := fmt.Sprintf("sale_posting:%d", storeId)
	var ok int
	if err := tx.Raw("SELECT GET_LOCK(?, 30)", lockName).Scan(&ok).Error; err != nil {
		return err
	}
	if ok != 1 {
		return fmt.Errorf("could not acquire posting lock for store_id=%d", storeId)
	}
	return nil
}

func ReleaseStorePostingLock(tx *gorm.DB, storeId int) {
	lockName := fmt.Sprintf("sale_posting:%d", storeId)
	var _ok int
	_ = tx.Raw("SELECT RELEASE_LOCK(?)", lockName).Scan(&_ok).Error
}
