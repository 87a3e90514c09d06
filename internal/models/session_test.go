package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormState_Valid(t *testing.T) {
	for _, s := range []FormState{
		StateIdle, StateAwaitingBankName, StateAwaitingCardNumber,
		StateAwaitingExpiryDate, StateAwaitingCVV, StateAwaitingBillingDay,
		StateAwaitingBillAmount, StateAwaitingGraceDays,
	} {
		assert.True(t, s.Valid(), "state %q", s)
	}

	assert.False(t, FormState("awaiting_pin").Valid())
	assert.False(t, FormState("").Valid())
}

func TestFormData_Missing(t *testing.T) {
	tests := []struct {
		name string
		form FormData
		want []Field
	}{
		{"empty form", FormData{}, []Field{FieldBank, FieldNumber, FieldExpiry}},
		{"bank only", FormData{Bank: "Chase"}, []Field{FieldNumber, FieldExpiry}},
		{
			"short number complete without cvv",
			FormData{Bank: "Chase", Number: "3456", Expiry: "12/2026"},
			nil,
		},
		{
			"full number requires cvv",
			FormData{Bank: "Chase", Number: "3456", FullNumber: "1234567890123456", Expiry: "12/2026"},
			[]Field{FieldCVV},
		},
		{
			"full number with cvv complete",
			FormData{Bank: "Chase", Number: "3456", FullNumber: "1234567890123456", Expiry: "12/2026", CVV: "123"},
			nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.form.Missing())
			assert.Equal(t, len(tt.want) == 0, tt.form.Complete())
		})
	}
}

func TestFormData_EncodeDecode(t *testing.T) {
	in := &FormData{
		Bank:       "Chase",
		Number:     "3456",
		FullNumber: "1234567890123456",
		Expiry:     "12/2026",
		CVV:        "123",
		CardID:     7,
		BillingDay: 15,
		BillAmount: 1250.50,
		GraceDays:  21,
	}

	raw, err := in.Encode()
	require.NoError(t, err)

	out, err := DecodeFormData(raw)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestFormData_EncodeOmitsEmptyFields(t *testing.T) {
	raw, err := (&FormData{}).Encode()
	require.NoError(t, err)
	assert.Equal(t, "{}", raw)
}

func TestDecodeFormData_Corrupt(t *testing.T) {
	_, err := DecodeFormData("{not json")
	assert.Error(t, err)

	_, err = DecodeFormData("")
	assert.Error(t, err)
}
