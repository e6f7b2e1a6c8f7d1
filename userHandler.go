package main

import (
	"net/http"

	"bitbucket.org/mmdatafocus/retail_backend/authz"
	"bitbucket.org/mmdatafocus/retail_backend/models"
	"github.com/gin-gonic/gin"
)

func loginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Username string `json:"username" binding:"required"`
			Password string `json:"password" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			writeError(c, err)
			return
		}

		info, err := models.Login(c.Request.Context(), input.Username, input.Password)
		if err != nil {
			// never leak whether the username or the password was wrong
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		c.JSON(http.StatusOK, info)
	}
}

func createUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := authz.Authorize(c.Request.Context(), "create", "users"); err != nil {
			writeError(c, err)
			return
		}
		var input models.NewUser
		if err := c.ShouldBindJSON(&input); err != nil {
			writeError(c, err)
			return
		}

		user, err := models.CreateUser(c.Request.Context(), &input)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, user)
	}
}

func listUsersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := authz.Authorize(c.Request.Context(), "read", "users"); err != nil {
			writeError(c, err)
			return
		}

		users, err := models.GetUsers(c.Request.Context())
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, users)
	}
}

func toggleActiveUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		if err := authz.Authorize(c.Request.Context(), "update", "users"); err != nil {
			writeError(c, err)
			return
		}
		var input struct {
			IsActive *bool `json:"is_active" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			writeError(c, err)
			return
		}

		user, err := models.ToggleActiveUser(c.Request.Context(), id, *input.IsActive)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

func createRoleHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := authz.Authorize(c.Request.Context(), "create", "roles"); err != nil {
			writeError(c, err)
			return
		}
		var input models.NewRole
		if err := c.ShouldBindJSON(&input); err != nil {
			writeError(c, err)
			return
		}

		role, err := models.CreateRole(c.Request.Context(), &input)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, role)
	}
}

func updateRoleHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		if err := authz.Authorize(c.Request.Context(), "update", "roles"); err != nil {
			writeError(c, err)
			return
		}
		var input models.NewRole
		if err := c.ShouldBindJSON(&input); err != nil {
			writeError(c, err)
			return
		}

		role, err := models.UpdateRole(c.Request.Context(), id, &input)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, role)
	}
}

func deleteRoleHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		if err := authz.Authorize(c.Request.Context(), "delete", "roles"); err != nil {
			writeError(c, err)
			return
		}

		role, err := models.DeleteRole(c.Request.Context(), id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, role)
	}
}

func listRolesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := authz.Authorize(c.Request.Context(), "read", "roles"); err != nil {
			writeError(c, err)
			return
		}

		roles, err := models.GetRoles(c.Request.Context())
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, roles)
	}
}
