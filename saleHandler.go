package main

import (
	"net/http"
	"strconv"

	"bitbucket.org/mmdatafocus/retail_backend/authz"
	"bitbucket.org/mmdatafocus/retail_backend/metrics"
	"bitbucket.org/mmdatafocus/retail_backend/models"
	"bitbucket.org/mmdatafocus/retail_backend/workflow"
	"github.com/gin-gonic/gin"
)

func createSaleHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewSale
		if err := c.ShouldBindJSON(&input); err != nil {
			writeError(c, err)
			return
		}

		sale, err := workflow.CreateSale(c.Request.Context(), &input)
		metrics.RecordSaleOperation("create", err)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, sale)
	}
}

func updateSaleHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var patch models.SalePatch
		if err := c.ShouldBindJSON(&patch); err != nil {
			writeError(c, err)
			return
		}

		sale, err := workflow.UpdateSale(c.Request.Context(), id, &patch)
		metrics.RecordSaleOperation("update", err)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, sale)
	}
}

func deleteSaleHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}

		sale, err := workflow.DeleteSale(c.Request.Context(), id)
		metrics.RecordSaleOperation("delete", err)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, sale)
	}
}

func refundSaleHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}

		sale, err := workflow.RefundSale(c.Request.Context(), id)
		metrics.RecordSaleOperation("refund", err)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, sale)
	}
}

func getSaleHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		if err := authz.Authorize(c.Request.Context(), "read", "sales"); err != nil {
			writeError(c, err)
			return
		}

		sale, err := models.GetSale(c.Request.Context(), id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, sale)
	}
}

func listSalesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := authz.Authorize(c.Request.Context(), "read", "sales"); err != nil {
			writeError(c, err)
			return
		}

		var storeId *int
		if v := c.Query("store_id"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				storeId = &n
			}
		}

		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
		offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
		if limit > 0 || offset > 0 {
			page, err := models.PaginateSales(c.Request.Context(), limit, offset, storeId)
			if err != nil {
				writeError(c, err)
				return
			}
			c.JSON(http.StatusOK, page)
			return
		}

		var status *models.SaleStatus
		if v := c.Query("status"); v != "" {
			s := models.SaleStatus(v)
			status = &s
		}

		sales, err := models.GetSales(c.Request.Context(), storeId, status)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, sales)
	}
}
