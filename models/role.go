package models

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/retail_backend/config"
	"bitbucket.org/mmdatafocus/retail_backend/utils"
)

type Role struct {
	ID          int               `gorm:"primary_key" json:"id"`
	Name        string            `gorm:"index;size:100;not null" json:"name" binding:"required"`
	Permissions []*RolePermission `gorm:"foreignKey:RoleId" json:"permissions"`
	CreatedAt   time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

// RolePermission grants actions on one resource, e.g. {sales, "create;read;refund"}.
type RolePermission struct {
	ID             int    `gorm:"primary_key" json:"id"`
	RoleId         int    `gorm:"index;not null" json:"role_id"`
	Resource       string `gorm:"size:100;not null" json:"resource"`
	AllowedActions string `gorm:"size:255;not null" json:"allowed_actions"`
}

type NewRole struct {
	Name        string           `json:"name" binding:"required"`
	Permissions []*NewPermission `json:"permissions"`
}

type NewPermission struct {
	Resource       string `json:"resource" binding:"required"`
	AllowedActions string `json:"allowed_actions" binding:"required"`
}

// resources and the actions each supports
var resourceActions = map[string][]string{
	"sales":     {"create", "read", "update", "delete", "refund"},
	"products":  {"create", "read", "update", "delete"},
	"stores":    {"create", "read", "update", "delete"},
	"suppliers": {"create", "read", "update", "delete"},
	"users":     {"create", "read", "update", "delete"},
	"roles":     {"create", "read", "update", "delete"},
}

func extractActions(s string) []string {
	return strings.Split(strings.ToLower(s), ";")
}

// GetAllowedActionsFromRole returns the role's grants as a
// "resource:action" -> true map for constant-time authorization checks.
func GetAllowedActionsFromRole(ctx context.Context, roleId int) (map[string]bool, error) {
	db := config.GetDB()
	var role Role
	if err := db.WithContext(ctx).Preload("Permissions").Where("id = ?", roleId).First(&role).Error; err != nil {
		return nil, err
	}

	allowed := make(map[string]bool)
	for _, permission := range role.Permissions {
		validActions, ok := resourceActions[permission.Resource]
		if !ok {
			continue
		}
		for _, action := range extractActions(permission.AllowedActions) {
			if slices.Contains(validActions, action) {
				allowed[fmt.Sprintf("%s:%s", permission.Resource, action)] = true
			}
		}
	}
	return allowed, nil
}

func mapPermissions(input []*NewPermission) ([]*RolePermission, error) {
	var permissions []*RolePermission
	for _, p := range input {
		validActions, ok := resourceActions[p.Resource]
		if !ok {
			return nil, errors.New("invalid resource")
		}
		for _, action := range extractActions(p.AllowedActions) {
			if !slices.Contains(validActions, action) {
				return nil, errors.New("invalid action for resource " + p.Resource)
			}
		}
		permissions = append(permissions, &RolePermission{
			Resource:       p.Resource,
			AllowedActions: p.AllowedActions,
		})
	}
	return permissions, nil
}

func CreateRole(ctx context.Context, input *NewRole) (*Role, error) {
	db := config.GetDB()

	if err := utils.ValidateUnique[Role](ctx, "name", input.Name, 0); err != nil {
		return nil, err
	}
	permissions, err := mapPermissions(input.Permissions)
	if err != nil {
		return nil, err
	}

	role := Role{
		Name:        input.Name,
		Permissions: permissions,
	}
	if err := db.WithContext(ctx).Create(&role).Error; err != nil {
		return nil, err
	}
	return &role, nil
}

func UpdateRole(ctx context.Context, id int, input *NewRole) (*Role, error) {
	db := config.GetDB()

	if err := utils.ValidateUnique[Role](ctx, "name", input.Name, id); err != nil {
		return nil, err
	}
	permissions, err := mapPermissions(input.Permissions)
	if err != nil {
		return nil, err
	}

	role, err := utils.FetchModel[Role](ctx, id)
	if err != nil {
		return nil, err
	}

	// replace permissions wholesale
	if err := db.WithContext(ctx).Where("role_id = ?", id).Delete(&RolePermission{}).Error; err != nil {
		return nil, err
	}
	role.Name = input.Name
	role.Permissions = permissions
	if err := db.WithContext(ctx).Save(role).Error; err != nil {
		return nil, err
	}

	// invalidate cached grants so the change applies immediately
	if err := config.RemoveRedisKey("AllowedActions:Role:" + fmt.Sprint(id)); err != nil {
		return nil, err
	}
	return role, nil
}

func DeleteRole(ctx context.Context, id int) (*Role, error) {
	db := config.GetDB()

	role, err := utils.FetchModel[Role](ctx, id)
	if err != nil {
		return nil, err
	}

	var count int64
	if err := db.WithContext(ctx).Model(&User{}).Where("role_id = ?", id).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("role is in use")
	}

	if err := db.WithContext(ctx).Where("role_id = ?", id).Delete(&RolePermission{}).Error; err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).Delete(&Role{}, id).Error; err != nil {
		return nil, err
	}
	if err := config.RemoveRedisKey("AllowedActions:Role:" + fmt.Sprint(id)); err != nil {
		return nil, err
	}
	return role, nil
}

func GetRoles(ctx context.Context) ([]*Role, error) {
	return utils.FetchAllModels[Role](ctx, "Permissions")
}
