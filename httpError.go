package main

import (
	"errors"
	"net/http"
	"strconv"

	"bitbucket.org/mmdatafocus/retail_backend/authz"
	"bitbucket.org/mmdatafocus/retail_backend/metrics"
	"bitbucket.org/mmdatafocus/retail_backend/utils"
	"bitbucket.org/mmdatafocus/retail_backend/workflow"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// writeError maps workflow/model errors onto HTTP statuses. Stock and refund
// conflicts are 409 so clients can distinguish a retryable business conflict
// from bad input.
func writeError(c *gin.Context, err error) {
	var validationErrs validator.ValidationErrors
	var insufficientStock *workflow.InsufficientStockError
	var productNotFound *workflow.ProductNotFoundError

	switch {
	case errors.As(err, &validationErrs):
		c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(validationErrs)})
	case errors.Is(err, authz.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, authz.ErrAccessDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, utils.ErrorRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &productNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &insufficientStock):
		metrics.InsufficientStockTotal.Inc()
		c.JSON(http.StatusConflict, gin.H{
			"error":      err.Error(),
			"product_id": insufficientStock.ProductId,
			"available":  insufficientStock.Available,
			"requested":  insufficientStock.Requested,
		})
	case errors.Is(err, workflow.ErrSaleAlreadyRefunded):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, workflow.ErrEmptySaleItems),
		errors.Is(err, workflow.ErrNonPositiveQuantity),
		errors.Is(err, workflow.ErrNegativeUnitPrice),
		errors.Is(err, workflow.ErrPaymentMethodMissing):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func pathId(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}
