package utils

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"bitbucket.org/mmdatafocus/retail_backend/config"
	"github.com/bsm/redislock"
	"github.com/go-playground/validator/v10"
	"github.com/ttacon/libphonenumber"
)

var CountryCode = "IN"

func IsValidEmail(email string) bool {
	// Basic email validation regex pattern
	pattern := `^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`
	regex := regexp.MustCompile(pattern)
	return regex.MatchString(email)
}

func ValidatePhoneNumber(phoneNumber, countryCode string) error {
	p, err := libphonenumber.Parse(phoneNumber, countryCode)
	if err != nil {
		return err // Phone number is invalid
	}

	if !libphonenumber.IsValidNumber(p) {
		return fmt.Errorf("phone number is not valid")
	}

	return nil // Phone number is valid for the specified country code
}

func ProcessValidationErrors(err error) map[string]string {

	validationErrors := err.(validator.ValidationErrors)

	errorResponse := make(map[string]string)

	for _, ve := range validationErrors {
		errorResponse[ve.Field()] = ve.Tag()
	}

	return errorResponse
}

func NewTrue() *bool {
	b := true
	return &b
}

func NilIfEmpty[T comparable](v T) *T {
	var zero T
	if v == zero {
		return nil
	}
	return &v
}

// StoreLock obtains a best-effort Redis lock for a store-scoped workflow.
// Reliability must not depend on Redis: workflows also serialize posting via
// MySQL advisory locks. The returned release func is nil-safe.
func StoreLock(ctx context.Context, storeId int, lockType string, moduleName string, functionName string) (func(), error) {
	logger := config.GetLogger()
	locker := config.GetRedisLock()
	if locker == nil {
		// Redis not connected yet. Proceed; the advisory lock is the authority.
		return func() {}, nil
	}
	lockKey := fmt.Sprintf("%s:%d", lockType, storeId)
	// retry so concurrent workflows on one store queue instead of failing
	lock, err := locker.Obtain(ctx, lockKey, 30*time.Second, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(100*time.Millisecond), 300),
	})
	if err == redislock.ErrNotObtained {
		config.LogError(logger, moduleName, functionName, "Could not obtain lock for store", storeId, err)
		return nil, errors.New("could not obtain lock for store")
	} else if err != nil {
		config.LogError(logger, moduleName, functionName, "Error obtaining lock for store", storeId, err)
		return nil, err
	}
	return func() { _ = lock.Release(ctx) }, nil
}
