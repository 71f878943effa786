package handlers

import (
	"encoding/json"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/example/kabirclub/internal/services"
)

// Request bodies are checked against these shapes before decoding. Only the
// canonical object form is accepted; business rules stay in the services.

const schemaAddCartItem = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["productId"],
  "properties": {
    "productId": { "type": "string", "minLength": 1 },
    "quantity": { "type": "integer" }
  },
  "additionalProperties": false
}`

const schemaUpdateCartItem = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["quantity"],
  "properties": {
    "quantity": { "type": "integer" }
  },
  "additionalProperties": false
}`

const schemaCheckout = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "shippingAddress": {
      "type": "object",
      "properties": {
        "fullName": { "type": "string" },
        "phone": { "type": "string" },
        "addressLine1": { "type": "string" },
        "addressLine2": { "type": "string" },
        "city": { "type": "string" },
        "state": { "type": "string" },
        "postalCode": { "type": "string" },
        "country": { "type": "string" }
      },
      "additionalProperties": false
    },
    "paymentMethod": { "type": "string" },
    "paymentConfirmed": { "type": "boolean" },
    "sizes": {
      "type": "object",
      "additionalProperties": { "type": "string" }
    }
  },
  "additionalProperties": false
}`

const schemaOrderStatus = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "orderStatus": { "type": "string" },
    "paymentStatus": { "type": "string" }
  },
  "additionalProperties": false
}`

const schemaRegister = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["email", "password"],
  "properties": {
    "email": { "type": "string" },
    "password": { "type": "string" },
    "fullName": { "type": "string" },
    "phone": { "type": "string" }
  },
  "additionalProperties": false
}`

const schemaLogin = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["email", "password"],
  "properties": {
    "email": { "type": "string" },
    "password": { "type": "string" }
  },
  "additionalProperties": false
}`

var (
	addCartItemSchema    = mustSchema(schemaAddCartItem)
	updateCartItemSchema = mustSchema(schemaUpdateCartItem)
	checkoutSchema       = mustSchema(schemaCheckout)
	orderStatusSchema    = mustSchema(schemaOrderStatus)
	registerSchema       = mustSchema(schemaRegister)
	loginSchema          = mustSchema(schemaLogin)
)

func mustSchema(src string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(err)
	}
	return schema
}

// decodeStrict validates body against schema and then decodes it into dest.
// Any mismatch is reported as a ValidationError.
func decodeStrict(schema *gojsonschema.Schema, body []byte, dest any) error {
	if len(body) == 0 {
		return &services.ValidationError{Field: "body", Message: "request body is required"}
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return &services.ValidationError{Field: "body", Message: "request body must be a JSON object"}
	}
	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			problems = append(problems, e.String())
		}
		return &services.ValidationError{Field: "body", Message: "invalid request: " + strings.Join(problems, "; ")}
	}

	if err := json.Unmarshal(body, dest); err != nil {
		return &services.ValidationError{Field: "body", Message: "invalid request body"}
	}
	return nil
}
