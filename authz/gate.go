// Package authz is the authorization gate: it answers allow/deny for an
// actor + action + resource triple. Grants come from the actor's role and are
// cached in Redis; Redis being down degrades to DB lookups, never to "allow".
package authz

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"bitbucket.org/mmdatafocus/retail_backend/config"
	"bitbucket.org/mmdatafocus/retail_backend/models"
	"bitbucket.org/mmdatafocus/retail_backend/utils"
)

var (
	ErrAccessDenied = errors.New("access denied")
	ErrUnauthorized = errors.New("unauthorized")
)

// retrieve user from redis or db
func getUser(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	exists, err := config.GetRedisObject("User:"+username, &user)
	if err != nil {
		return nil, err
	}

	if !exists {
		db := config.GetDB()
		if err := db.WithContext(ctx).Model(&models.User{}).Where("username = ?", username).Take(&user).Error; err != nil {
			return nil, err
		}

		token_lifespan, err := strconv.Atoi(os.Getenv("TOKEN_HOUR_LIFESPAN"))
		if err != nil {
			token_lifespan = 24
		}

		if err := config.SetRedisObject("User:"+user.Username, &user, time.Duration(token_lifespan)*time.Hour); err != nil {
			return nil, err
		}
	}
	return &user, nil
}

// retrieve role's allowed actions from redis and check the resource:action grant
func authorizeRole(ctx context.Context, roleId int, resource string, action string) error {
	var allowed map[string]bool
	exists, err := config.GetRedisObject("AllowedActions:Role:"+fmt.Sprint(roleId), &allowed)
	if err != nil {
		return err
	}

	if !exists {
		allowed, err = models.GetAllowedActionsFromRole(ctx, roleId)
		if err != nil {
			return err
		}

		// store in redis
		if err := config.SetRedisObject("AllowedActions:Role:"+fmt.Sprint(roleId), &allowed, 0); err != nil {
			return err
		}
	}

	// non-existent key returns false, the zero value
	if !allowed[fmt.Sprintf("%s:%s", resource, action)] {
		return ErrAccessDenied
	}
	return nil
}

// Authorize resolves the current actor from ctx and answers allow/deny for
// performing action on resource. A deny returns before any side effect.
func Authorize(ctx context.Context, action string, resource string) error {

	username, ok := utils.GetUsernameFromContext(ctx)
	if !ok || username == "" {
		return ErrUnauthorized
	}

	user, err := getUser(ctx, username)
	if err != nil {
		return ErrAccessDenied
	}
	if user.IsActive == nil || !*user.IsActive {
		return errors.New("user is disabled")
	}

	// admins and owners hold every grant; custom users go through their role
	if user.Role != models.UserRoleAdmin && user.Role != models.UserRoleOwner {
		if err := authorizeRole(ctx, user.RoleId, resource, action); err != nil {
			return err
		}
	}

	return nil
}

// WithActor enriches ctx with the resolved actor's identity fields. Handlers
// call this once after token validation so downstream code can read the
// actor without another lookup.
func WithActor(ctx context.Context, username string) (context.Context, error) {
	user, err := getUser(ctx, username)
	if err != nil {
		return ctx, err
	}
	ctx = utils.SetUsernameInContext(ctx, user.Username)
	ctx = utils.SetUserIdInContext(ctx, user.ID)
	ctx = utils.SetUserNameInContext(ctx, user.Name)
	ctx = utils.SetRoleIdInContext(ctx, user.RoleId)
	ctx = utils.SetStoreIdInContext(ctx, user.StoreId)
	ctx = utils.SetIsAdminInContext(ctx, user.Role == models.UserRoleAdmin)
	return ctx, nil
}
