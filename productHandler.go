package main

import (
	"net/http"

	"bitbucket.org/mmdatafocus/retail_backend/authz"
	"bitbucket.org/mmdatafocus/retail_backend/models"
	"github.com/gin-gonic/gin"
)

func createProductHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := authz.Authorize(c.Request.Context(), "create", "products"); err != nil {
			writeError(c, err)
			return
		}
		var input models.NewProduct
		if err := c.ShouldBindJSON(&input); err != nil {
			writeError(c, err)
			return
		}

		product, err := models.CreateProduct(c.Request.Context(), &input)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, product)
	}
}

func updateProductHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		if err := authz.Authorize(c.Request.Context(), "update", "products"); err != nil {
			writeError(c, err)
			return
		}
		var input models.NewProduct
		if err := c.ShouldBindJSON(&input); err != nil {
			writeError(c, err)
			return
		}

		product, err := models.UpdateProduct(c.Request.Context(), id, &input)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, product)
	}
}

func deleteProductHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		if err := authz.Authorize(c.Request.Context(), "delete", "products"); err != nil {
			writeError(c, err)
			return
		}

		product, err := models.DeleteProduct(c.Request.Context(), id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, product)
	}
}

func getProductHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		if err := authz.Authorize(c.Request.Context(), "read", "products"); err != nil {
			writeError(c, err)
			return
		}

		product, err := models.GetProduct(c.Request.Context(), id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, product)
	}
}

func listProductsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := authz.Authorize(c.Request.Context(), "read", "products"); err != nil {
			writeError(c, err)
			return
		}

		var name *string
		if v := c.Query("name"); v != "" {
			name = &v
		}

		products, err := models.GetProducts(c.Request.Context(), name)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, products)
	}
}

func toggleActiveProductHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		if err := authz.Authorize(c.Request.Context(), "update", "products"); err != nil {
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

		product, err := models.ToggleActiveProduct(c.Request.Context(), id, *input.IsActive)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, product)
	}
}
