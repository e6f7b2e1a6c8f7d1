package workflow

import (
	"errors"
	"fmt"
)

var (
	ErrEmptySaleItems       = errors.New("sale must contain at least one item")
	ErrNonPositiveQuantity  = errors.New("item quantity must be positive")
	ErrNegativeUnitPrice    = errors.New("item unit price must not be negative")
	ErrSaleAlreadyRefunded  = errors.New("sale is already refunded")
	ErrPaymentMethodMissing = errors.New("payment method is required")
)

// ProductNotFoundError reports a sale line referencing a product that does
// not exist. Returned before any stock is adjusted.
type ProductNotFoundError struct {
	ProductId int
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %d not found", e.ProductId)
}

// InsufficientStockError reports a reservation rejected at write time: the
// quantity on record when the decrement executed was below the request.
type InsufficientStockError struct {
	ProductId int
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d (available=%d, requested=%d)",
		e.ProductId, e.Available, e.Requested)
}

// CompensationError means a rollback itself failed. The sale and product
// records may disagree until someone reconciles them manually, so this is
// logged as an alert rather than treated as a normal user-facing error.
type CompensationError struct {
	Op  string
	Err error
}

func (e *CompensationError) Error() string {
	return fmt.Sprintf("compensation failed during %s: %v", e.Op, e.Err)
}

func (e *CompensationError) Unwrap() error {
	return e.Err
}
