package main

import (
	"net/http"

	"bitbucket.org/mmdatafocus/retail_backend/authz"
	"bitbucket.org/mmdatafocus/retail_backend/models"
	"github.com/gin-gonic/gin"
)

func createStoreHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := authz.Authorize(c.Request.Context(), "create", "stores"); err != nil {
			writeError(c, err)
			return
		}
		var input models.NewStore
		if err := c.ShouldBindJSON(&input); err != nil {
			writeError(c, err)
			return
		}

		store, err := models.CreateStore(c.Request.Context(), &input)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, store)
	}
}

func updateStoreHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		if err := authz.Authorize(c.Request.Context(), "update", "stores"); err != nil {
			writeError(c, err)
			return
		}
		var input models.NewStore
		if err := c.ShouldBindJSON(&input); err != nil {
			writeError(c, err)
			return
		}

		store, err := models.UpdateStore(c.Request.Context(), id, &input)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, store)
	}
}

func deleteStoreHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		if err := authz.Authorize(c.Request.Context(), "delete", "stores"); err != nil {
			writeError(c, err)
			return
		}

		store, err := models.DeleteStore(c.Request.Context(), id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, store)
	}
}

func getStoreHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		if err := authz.Authorize(c.Request.Context(), "read", "stores"); err != nil {
			writeError(c, err)
			return
		}

		store, err := models.GetStore(c.Request.Context(), id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, store)
	}
}

func listStoresHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := authz.Authorize(c.Request.Context(), "read", "stores"); err != nil {
			writeError(c, err)
			return
		}

		stores, err := models.GetStores(c.Request.Context())
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, stores)
	}
}

func createSupplierHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := authz.Authorize(c.Request.Context(), "create", "suppliers"); err != nil {
			writeError(c, err)
			return
		}
		var input models.NewSupplier
		if err := c.ShouldBindJSON(&input); err != nil {
			writeError(c, err)
			return
		}

		supplier, err := models.CreateSupplier(c.Request.Context(), &input)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, supplier)
	}
}

func updateSupplierHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		if err := authz.Authorize(c.Request.Context(), "update", "suppliers"); err != nil {
			writeError(c, err)
			return
		}
		var input models.NewSupplier
		if err := c.ShouldBindJSON(&input); err != nil {
			writeError(c, err)
			return
		}

		supplier, err := models.UpdateSupplier(c.Request.Context(), id, &input)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, supplier)
	}
}

func deleteSupplierHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		if err := authz.Authorize(c.Request.Context(), "delete", "suppliers"); err != nil {
			writeError(c, err)
			return
		}

		supplier, err := models.DeleteSupplier(c.Request.Context(), id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, supplier)
	}
}

func getSupplierHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		if err := authz.Authorize(c.Request.Context(), "read", "suppliers"); err != nil {
			writeError(c, err)
			return
		}

		supplier, err := models.GetSupplier(c.Request.Context(), id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, supplier)
	}
}

func listSuppliersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := authz.Authorize(c.Request.Context(), "read", "suppliers"); err != nil {
			writeError(c, err)
			return
		}

		suppliers, err := models.GetSuppliers(c.Request.Context())
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, suppliers)
	}
}
