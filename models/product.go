package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/retail_backend/config"
	"bitbucket.org/mmdatafocus/retail_backend/utils"
	"github.com/shopspring/decimal"
)

type Product struct {
	ID          int             `gorm:"primary_key" json:"id"`
	Name        string          `gorm:"size:255;not null" json:"name" binding:"required"`
	Sku         string          `gorm:"size:100;index" json:"sku"`
	Description string          `gorm:"type:text;default:null" json:"description"`
	SupplierId  int             `gorm:"index;default:null" json:"supplier_id"`
	Quantity    int             `gorm:"not null;default:0" json:"quantity"`
	Price       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"price"`
	CostPrice   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"cost_price"`
	IsActive    *bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewProduct struct {
	Name        string          `json:"name" binding:"required"`
	Sku         string          `json:"sku"`
	Description string          `json:"description"`
	SupplierId  int             `json:"supplier_id"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	CostPrice   decimal.Decimal `json:"cost_price"`
	IsActive    *bool           `json:"is_active"`
}

// validate input for both create & update. (id = 0 for create)
func (input *NewProduct) validate(ctx context.Context, id int) error {
	if input.Quantity < 0 {
		return errors.New("quantity must not be negative")
	}
	if input.Price.IsNegative() || input.CostPrice.IsNegative() {
		return errors.New("price must not be negative")
	}
	if input.Sku != "" {
		if err := utils.ValidateUnique[Product](ctx, "sku", input.Sku, id); err != nil {
			return err
		}
	}
	if input.SupplierId > 0 {
		if err := utils.ValidateResourceId[Supplier](ctx, input.SupplierId); err != nil {
			return errors.New("supplier not found")
		}
	}
	return nil
}

func CreateProduct(ctx context.Context, input *NewProduct) (*Product, error) {
	db := config.GetDB()

	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}

	isActive := input.IsActive
	if isActive == nil {
		isActive = utils.NewTrue()
	}

	product := Product{
		Name:        input.Name,
		Sku:         input.Sku,
		Description: input.Description,
		SupplierId:  input.SupplierId,
		Quantity:    input.Quantity,
		Price:       input.Price,
		CostPrice:   input.CostPrice,
		IsActive:    isActive,
	}

	if err := db.WithContext(ctx).Create(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func UpdateProduct(ctx context.Context, id int, input *NewProduct) (*Product, error) {
	db := config.GetDB()

	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}

	product, err := utils.FetchModel[Product](ctx, id)
	if err != nil {
		return nil, err
	}

	product.Name = input.Name
	product.Sku = input.Sku
	product.Description = input.Description
	product.SupplierId = input.SupplierId
	product.Price = input.Price
	product.CostPrice = input.CostPrice
	if input.IsActive != nil {
		product.IsActive = input.IsActive
	}
	// NOTE: Quantity is deliberately not writable here. Stock only moves
	// through the sale workflows so the ledger stays consistent.

	if err := db.WithContext(ctx).Save(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// DeleteProduct removes the product record. Historical sale items keep their
// snapshot of the product's name and prices; they are not cascaded.
func DeleteProduct(ctx context.Context, id int) (*Product, error) {
	db := config.GetDB()

	product, err := utils.FetchModel[Product](ctx, id)
	if err != nil {
		return nil, err
	}

	if err := db.WithContext(ctx).Delete(&Product{}, id).Error; err != nil {
		return nil, err
	}
	return product, nil
}

func GetProduct(ctx context.Context, id int) (*Product, error) {
	return utils.FetchModel[Product](ctx, id)
}

func GetProducts(ctx context.Context, name *string) ([]*Product, error) {
	db := config.GetDB()
	var products []*Product
	dbCtx := db.WithContext(ctx)
	if name != nil && *name != "" {
		dbCtx = dbCtx.Where("name LIKE ?", "%"+*name+"%")
	}
	if err := dbCtx.Order("name").Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func ToggleActiveProduct(ctx context.Context, id int, isActive bool) (*Product, error) {
	db := config.GetDB()
	product, err := utils.FetchModel[Product](ctx, id)
	if err != nil {
		return nil, err
	}
	product.IsActive = &isActive
	if err := db.WithContext(ctx).Save(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}
