package models

import (
	"errors"
	"strconv"
)

// Closed enum types for sale fields. Unrecognized values are rejected when
// the request is decoded, never silently defaulted.

type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "cash"
	PaymentMethodCard         PaymentMethod = "card"
	PaymentMethodUpi          PaymentMethod = "upi"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodCredit       PaymentMethod = "credit"
)

func (t PaymentMethod) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(string(t))), nil
}

func (t *PaymentMethod) UnmarshalJSON(b []byte) error {
	str, err := strconv.Unquote(string(b))
	if err != nil {
		return errors.New("payment method must be string")
	}
	paymentMethods := map[string]PaymentMethod{
		"cash":          PaymentMethodCash,
		"card":          PaymentMethodCard,
		"upi":           PaymentMethodUpi,
		"bank_transfer": PaymentMethodBankTransfer,
		"credit":        PaymentMethodCredit,
	}
	v, ok := paymentMethods[str]
	if !ok {
		return errors.New("invalid payment method")
	}
	*t = v
	return nil
}

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusPartial  PaymentStatus = "partial"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

func (t PaymentStatus) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(string(t))), nil
}

func (t *PaymentStatus) UnmarshalJSON(b []byte) error {
	str, err := strconv.Unquote(string(b))
	if err != nil {
		return errors.New("payment status must be string")
	}
	paymentStatuses := map[string]PaymentStatus{
		"pending":  PaymentStatusPending,
		"paid":     PaymentStatusPaid,
		"partial":  PaymentStatusPartial,
		"failed":   PaymentStatusFailed,
		"refunded": PaymentStatusRefunded,
	}
	v, ok := paymentStatuses[str]
	if !ok {
		return errors.New("invalid payment status")
	}
	*t = v
	return nil
}

type SaleStatus string

const (
	SaleStatusPending   SaleStatus = "pending"
	SaleStatusCompleted SaleStatus = "completed"
	SaleStatusCancelled SaleStatus = "cancelled"
	SaleStatusRefunded  SaleStatus = "refunded"
)

func (t SaleStatus) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(string(t))), nil
}

func (t *SaleStatus) UnmarshalJSON(b []byte) error {
	str, err := strconv.Unquote(string(b))
	if err != nil {
		return errors.New("sale status must be string")
	}
	saleStatuses := map[string]SaleStatus{
		"pending":   SaleStatusPending,
		"completed": SaleStatusCompleted,
		"cancelled": SaleStatusCancelled,
		"refunded":  SaleStatusRefunded,
	}
	v, ok := saleStatuses[str]
	if !ok {
		return errors.New("invalid sale status")
	}
	*t = v
	return nil
}

type UserRole string

const (
	UserRoleAdmin  UserRole = "Admin"
	UserRoleOwner  UserRole = "Owner"
	UserRoleCustom UserRole = "Custom"
)

func (t UserRole) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(string(t))), nil
}

func (t *UserRole) UnmarshalJSON(b []byte) error {
	str, err := strconv.Unquote(string(b))
	if err != nil {
		return errors.New("user role must be string")
	}
	switch str {
	case "Admin":
		*t = UserRoleAdmin
	case "Owner":
		*t = UserRoleOwner
	case "Custom":
		*t = UserRoleCustom
	default:
		return errors.New("invalid user role")
	}
	return nil
}
