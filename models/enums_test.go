package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaymentMethodUnmarshal(t *testing.T) {
	var m PaymentMethod
	require.NoError(t, json.Unmarshal([]byte(`"bank_transfer"`), &m))
	assert.Equal(t, PaymentMethodBankTransfer, m)

	assert.Error(t, json.Unmarshal([]byte(`"bitcoin"`), &m))
	assert.Error(t, json.Unmarshal([]byte(`"Cash"`), &m), "enum values are case sensitive")
	assert.Error(t, json.Unmarshal([]byte(`""`), &m))
}

func TestSaleStatusUnmarshal(t *testing.T) {
	var s SaleStatus
	require.NoError(t, json.Unmarshal([]byte(`"refunded"`), &s))
	assert.Equal(t, SaleStatusRefunded, s)

	assert.Error(t, json.Unmarshal([]byte(`"done"`), &s))
}

func TestPaymentStatusUnmarshal(t *testing.T) {
	var s PaymentStatus
	require.NoError(t, json.Unmarshal([]byte(`"partial"`), &s))
	assert.Equal(t, PaymentStatusPartial, s)

	assert.Error(t, json.Unmarshal([]byte(`"half"`), &s))
}

func TestSalePatchPartialDecode(t *testing.T) {
	var patch SalePatch
	require.NoError(t, json.Unmarshal([]byte(`{"discount":"2.50","notes":""}`), &patch))

	require.NotNil(t, patch.Discount)
	assert.Equal(t, "2.5", patch.Discount.String())
	// empty string is an explicit value, not an omission
	require.NotNil(t, patch.Notes)
	assert.Equal(t, "", *patch.Notes)

	assert.Nil(t, patch.Items)
	assert.Nil(t, patch.Tax)
	assert.Nil(t, patch.PaymentMethod)
	assert.Nil(t, patch.PaymentStatus)
	assert.Nil(t, patch.StoreId)
}

func TestSaleItemJSONRoundTrip(t *testing.T) {
	sale := Sale{
		SaleNumber:    "SL-1-000001",
		PaymentMethod: PaymentMethodCash,
		PaymentStatus: PaymentStatusPaid,
		Status:        SaleStatusCompleted,
	}
	b, err := json.Marshal(&sale)
	require.NoError(t, err)

	var decoded Sale
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.Equal(t, sale.SaleNumber, decoded.SaleNumber)
	assert.Equal(t, PaymentMethodCash, decoded.PaymentMethod)
	assert.Equal(t, SaleStatusCompleted, decoded.Status)
}
