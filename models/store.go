package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/retail_backend/config"
	"bitbucket.org/mmdatafocus/retail_backend/utils"
)

type Store struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name" binding:"required"`
	Address   string    `gorm:"type:text;default:null" json:"address"`
	Phone     string    `gorm:"size:20" json:"phone"`
	Email     string    `gorm:"size:100" json:"email"`
	IsActive  *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewStore struct {
	Name     string `json:"name" binding:"required"`
	Address  string `json:"address"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	IsActive *bool  `json:"is_active"`
}

func (input *NewStore) validate(ctx context.Context, id int) error {
	if err := utils.ValidateUnique[Store](ctx, "name", input.Name, id); err != nil {
		return err
	}
	if input.Email != "" && !utils.IsValidEmail(input.Email) {
		return errors.New("invalid email")
	}
	if input.Phone != "" {
		if err := utils.ValidatePhoneNumber(input.Phone, utils.CountryCode); err != nil {
			return err
		}
	}
	return nil
}

func CreateStore(ctx context.Context, input *NewStore) (*Store, error) {
	db := config.GetDB()

	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}

	isActive := input.IsActive
	if isActive == nil {
		isActive = utils.NewTrue()
	}

	store := Store{
		Name:     input.Name,
		Address:  input.Address,
		Phone:    input.Phone,
		Email:    input.Email,
		IsActive: isActive,
	}
	if err := db.WithContext(ctx).Create(&store).Error; err != nil {
		return nil, err
	}
	return &store, nil
}

func UpdateStore(ctx context.Context, id int, input *NewStore) (*Store, error) {
	db := config.GetDB()

	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}

	store, err := utils.FetchModel[Store](ctx, id)
	if err != nil {
		return nil, err
	}

	store.Name = input.Name
	store.Address = input.Address
	store.Phone = input.Phone
	store.Email = input.Email
	if input.IsActive != nil {
		store.IsActive = input.IsActive
	}

	if err := db.WithContext(ctx).Save(store).Error; err != nil {
		return nil, err
	}
	return store, nil
}

func DeleteStore(ctx context.Context, id int) (*Store, error) {
	db := config.GetDB()

	store, err := utils.FetchModel[Store](ctx, id)
	if err != nil {
		return nil, err
	}

	var count int64
	if err := db.WithContext(ctx).Model(&Sale{}).Where("store_id = ?", id).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("store has sales")
	}

	if err := db.WithContext(ctx).Delete(&Store{}, id).Error; err != nil {
		return nil, err
	}
	return store, nil
}

func GetStore(ctx context.Context, id int) (*Store, error) {
	return utils.FetchModel[Store](ctx, id)
}

func GetStores(ctx context.Context) ([]*Store, error) {
	return utils.FetchAllModels[Store](ctx)
}
