package middleware

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type addToCartRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,gte=1"`
}

type priceRequest struct {
	Name  string          `json:"name" validate:"required"`
	Price decimal.Decimal `json:"price" validate:"gt=0"`
}

func decodeBody(t *testing.T, body interface{}, v interface{}) error {
	t.Helper()
	reqBody, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest("POST", "/test", bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	return DecodeAndValidate(req, v)
}

func TestProperty_RequiredFieldValidationWorks(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("missing required fields are rejected", prop.ForAll(
		func(includeProduct bool, includeQuantity bool) bool {
			reqMap := make(map[string]interface{})
			if includeProduct {
				reqMap["product_id"] = "9b2f1c84-3d5e-4f6a-8b7c-0d1e2f3a4b5c"
			}
			if includeQuantity {
				reqMap["quantity"] = 2
			}

			var req addToCartRequest
			err := decodeBody(t, reqMap, &req)

			if includeProduct && includeQuantity {
				return err == nil
			}
			return err != nil && len(FormatValidationErrors(err)) > 0
		},
		gen.Bool(),
		gen.Bool(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProperty_PriceMustBePositive(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("decimal prices are compared numerically", prop.ForAll(
		func(cents int64) bool {
			var req priceRequest
			err := decodeBody(t, map[string]interface{}{
				"name":  "Desk Lamp",
				"price": decimal.New(cents, -2),
			}, &req)

			if cents > 0 {
				return err == nil
			}
			return err != nil
		},
		gen.Int64Range(-500, 500),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestFormatValidationErrors_UsesJSONNames(t *testing.T) {
	var req addToCartRequest
	err := decodeBody(t, map[string]interface{}{"product_id": "abc", "quantity": 0}, &req)
	require.Error(t, err)

	errs := FormatValidationErrors(err)
	require.Len(t, errs, 2)
	assert.Equal(t, ValidationError{Field: "product_id", Message: "Invalid identifier"}, errs[0])
	assert.Equal(t, "quantity", errs[1].Field)
	assert.Equal(t, "This field is required", errs[1].Message)
}

func TestFormatValidationErrors_NonValidationError(t *testing.T) {
	req := httptest.NewRequest("POST", "/test", bytes.NewReader([]byte("{not json")))
	var body addToCartRequest
	err := DecodeAndValidate(req, &body)

	require.Error(t, err)
	assert.Empty(t, FormatValidationErrors(err))
}
