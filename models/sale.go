package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/retail_backend/config"
	"bitbucket.org/mmdatafocus/retail_backend/utils"
	"github.com/shopspring/decimal"
)

type Sale struct {
	ID            int             `gorm:"primary_key" json:"id"`
	SaleNumber    string          `gorm:"size:100;uniqueIndex;not null" json:"sale_number"`
	SequenceNo    int64           `gorm:"not null" json:"sequence_no"`
	StoreId       int             `gorm:"index;not null" json:"store_id" binding:"required"`
	UserId        int             `gorm:"index;default:null" json:"user_id"`
	Items         []SaleItem      `gorm:"foreignKey:SaleId" json:"items"`
	Subtotal      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"subtotal"`
	Discount      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"discount"`
	Tax           decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"tax"`
	TotalAmount   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_amount"`
	PaymentMethod PaymentMethod   `gorm:"type:enum('cash','card','upi','bank_transfer','credit');not null" json:"payment_method" binding:"required"`
	PaymentStatus PaymentStatus   `gorm:"type:enum('pending','paid','partial','failed','refunded');not null" json:"payment_status"`
	Status        SaleStatus      `gorm:"type:enum('pending','completed','cancelled','refunded');not null" json:"status"`
	Notes         string          `gorm:"type:text;default:null" json:"notes"`
	SaleDate      time.Time       `gorm:"index;not null" json:"sale_date"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// SaleItem is a denormalized snapshot taken at transaction time. Name, unit
// price and cost price never change retroactively, even if the product does.
type SaleItem struct {
	ID          int             `gorm:"primary_key" json:"id"`
	SaleId      int             `gorm:"index;not null" json:"sale_id"`
	ProductId   int             `gorm:"index;not null" json:"product_id"`
	ProductName string          `gorm:"size:255;not null" json:"product_name"`
	Quantity    int             `gorm:"not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_price"`
	TotalPrice  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_price"`
	CostPrice   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"cost_price"`
	Profit      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"profit"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewSale struct {
	StoreId       int             `json:"store_id" binding:"required"`
	Items         []NewSaleItem   `json:"items" binding:"required"`
	Discount      decimal.Decimal `json:"discount"`
	Tax           decimal.Decimal `json:"tax"`
	PaymentMethod PaymentMethod   `json:"payment_method" binding:"required"`
	Notes         string          `json:"notes"`
}

type NewSaleItem struct {
	ProductId int `json:"product_id" binding:"required"`
	Quantity  int `json:"quantity" binding:"required"`
	// UnitPrice overrides the product's selling price when supplied.
	UnitPrice *decimal.Decimal `json:"unit_price"`
}

// SalePatch carries partial-update fields. Every field is independently
// optional; nil means "leave unchanged", not "reset to zero".
type SalePatch struct {
	Items         *[]NewSaleItem   `json:"items"`
	Discount      *decimal.Decimal `json:"discount"`
	Tax           *decimal.Decimal `json:"tax"`
	PaymentMethod *PaymentMethod   `json:"payment_method"`
	PaymentStatus *PaymentStatus   `json:"payment_status"`
	Notes         *string          `json:"notes"`
	StoreId       *int             `json:"store_id"`
}

type SalesPage struct {
	Sales      []*Sale `json:"sales"`
	TotalCount int64   `json:"total_count"`
	Limit      int     `json:"limit"`
	Offset     int     `json:"offset"`
}

func GetSale(ctx context.Context, id int) (*Sale, error) {
	return utils.FetchModel[Sale](ctx, id, "Items")
}

func GetSales(ctx context.Context, storeId *int, status *SaleStatus) ([]*Sale, error) {
	db := config.GetDB()
	var sales []*Sale
	dbCtx := db.WithContext(ctx).Preload("Items")
	if storeId != nil && *storeId > 0 {
		dbCtx = dbCtx.Where("store_id = ?", *storeId)
	}
	if status != nil && *status != "" {
		dbCtx = dbCtx.Where("status = ?", *status)
	}
	if err := dbCtx.Order("sale_date DESC, id DESC").Find(&sales).Error; err != nil {
		return nil, err
	}
	return sales, nil
}

// PaginateSales is the read-only enumeration used by reporting. It never
// mutates and intentionally has no access to the workflows.
func PaginateSales(ctx context.Context, limit int, offset int, storeId *int) (*SalesPage, error) {
	db := config.GetDB()

	if limit <= 0 || limit > 100 {
		limit = config.SearchLimit
	}
	if offset < 0 {
		offset = 0
	}

	dbCtx := db.WithContext(ctx).Model(&Sale{})
	if storeId != nil && *storeId > 0 {
		dbCtx = dbCtx.Where("store_id = ?", *storeId)
	}

	var total int64
	if err := dbCtx.Count(&total).Error; err != nil {
		return nil, err
	}

	var sales []*Sale
	if err := dbCtx.Preload("Items").
		Order("sale_date DESC, id DESC").
		Limit(limit).Offset(offset).
		Find(&sales).Error; err != nil {
		return nil, err
	}

	return &SalesPage{Sales: sales, TotalCount: total, Limit: limit, Offset: offset}, nil
}
