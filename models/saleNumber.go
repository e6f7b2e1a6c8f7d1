package models

import (
	"fmt"

	"gorm.io/gorm"
)

// NextSaleNumber allocates the next sale number for a store.
//
// The number is a per-store monotonic sequence rather than a raw timestamp, so
// two sales created in the same instant can never collide. Callers must hold
// the store's posting lock; the MAX() read below is only safe while allocation
// is serialized per store.
func NextSaleNumber(tx *gorm.DB, storeId int) (string, int64, error) {
	var lastSeq int64
	err := tx.Model(&Sale{}).
		Where("store_id = ?", storeId).
		Select("COALESCE(MAX(sequence_no), 0)").
		Scan(&lastSeq).Error
	if err != nil {
		return "", 0, err
	}

	seq := lastSeq + 1
	return fmt.Sprintf("SL-%d-%06d", storeId, seq), seq, nil
}
