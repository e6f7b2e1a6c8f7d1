package models

import (
	"context"
	"errors"
	"os"
	"strconv"
	"time"

	"bitbucket.org/mmdatafocus/retail_backend/config"
	"bitbucket.org/mmdatafocus/retail_backend/utils"
)

type User struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Username  string    `gorm:"size:100;not null;unique" json:"username" binding:"required"`
	Name      string    `gorm:"size:100;not null" json:"name" binding:"required"`
	Email     *string   `gorm:"size:100;unique" json:"email"`
	Phone     string    `gorm:"size:20" json:"phone"`
	Password  string    `gorm:"size:255;not null" json:"-"`
	IsActive  *bool     `gorm:"not null" json:"is_active"`
	RoleId    int       `gorm:"not null;default:0" json:"role_id"`
	Role      UserRole  `gorm:"type:enum('Admin','Owner','Custom');default:Custom" json:"role"`
	StoreId   int       `gorm:"index;default:null" json:"store_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewUser struct {
	Username string   `json:"username" binding:"required"`
	Name     string   `json:"name" binding:"required"`
	Email    string   `json:"email"`
	Phone    string   `json:"phone"`
	Password string   `json:"password" binding:"required"`
	IsActive *bool    `json:"is_active"`
	RoleId   int      `json:"role_id"`
	Role     UserRole `json:"role"`
	StoreId  int      `json:"store_id"`
}

/*
caches:
	User:$username
	AllowedActions:Role:$roleId
*/

func (user User) RemoveInstanceRedis() error {
	return config.RemoveRedisKey("User:" + user.Username)
}

type LoginInfo struct {
	Token string   `json:"token"`
	Name  string   `json:"name"`
	Role  UserRole `json:"role"`
}

func Login(ctx context.Context, username string, password string) (*LoginInfo, error) {

	db := config.GetDB()
	var result LoginInfo

	user := User{}

	// get User info
	exists, err := config.GetRedisObject("User:"+username, &user)
	if err != nil {
		return nil, err
	}
	if !exists {
		err = db.WithContext(ctx).Model(&User{}).Where("username = ?", username).Take(&user).Error
		if err != nil {
			return nil, errors.New("invalid username or password")
		}
	}

	// check login credentials
	// any comparison failure is a bad credential; never fall through on an
	// unexpected bcrypt error
	if err := utils.ComparePassword(user.Password, password); err != nil {
		return nil, errors.New("invalid username or password")
	}

	if user.IsActive == nil || !*user.IsActive {
		return nil, errors.New("user is disabled")
	}

	token, err := utils.JwtGenerate(user.ID, user.Username)
	if err != nil {
		return nil, err
	}
	result.Token = token
	result.Name = user.Name
	result.Role = user.Role

	// cache user for the token lifespan
	token_lifespan, err := strconv.Atoi(os.Getenv("TOKEN_HOUR_LIFESPAN"))
	if err != nil {
		token_lifespan = 24
	}
	if err := config.SetRedisObject("User:"+user.Username, &user, time.Duration(token_lifespan)*time.Hour); err != nil {
		return nil, err
	}

	return &result, nil
}

func CreateUser(ctx context.Context, input *NewUser) (*User, error) {
	db := config.GetDB()

	if err := utils.ValidateUnique[User](ctx, "username", input.Username, 0); err != nil {
		return nil, err
	}
	if input.Email != "" && !utils.IsValidEmail(input.Email) {
		return nil, errors.New("invalid email")
	}
	if input.Role == UserRoleCustom && input.RoleId > 0 {
		if err := utils.ValidateResourceId[Role](ctx, input.RoleId); err != nil {
			return nil, errors.New("role not found")
		}
	}

	hashed, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	role := input.Role
	if role == "" {
		role = UserRoleCustom
	}
	isActive := input.IsActive
	if isActive == nil {
		isActive = utils.NewTrue()
	}

	user := User{
		Username: input.Username,
		Name:     input.Name,
		Email:    utils.NilIfEmpty(input.Email),
		Phone:    input.Phone,
		Password: string(hashed),
		IsActive: isActive,
		RoleId:   input.RoleId,
		Role:     role,
		StoreId:  input.StoreId,
	}

	if err := db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func ToggleActiveUser(ctx context.Context, id int, isActive bool) (*User, error) {
	db := config.GetDB()
	user, err := utils.FetchModel[User](ctx, id)
	if err != nil {
		return nil, err
	}
	user.IsActive = &isActive
	if err := db.WithContext(ctx).Save(user).Error; err != nil {
		return nil, err
	}
	// stale cache would keep a disabled user authorized until expiry
	if err := user.RemoveInstanceRedis(); err != nil {
		return nil, err
	}
	return user, nil
}

func GetUsers(ctx context.Context) ([]*User, error) {
	return utils.FetchAllModels[User](ctx)
}
